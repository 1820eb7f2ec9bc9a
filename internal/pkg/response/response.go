package response

import (
	"errors"
	"net/http"

	"pgstay/internal/domain"
	"pgstay/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the envelope for a service error. Unclassified errors
// become a generic 500; their text is shown only outside production.
func FromError(c *gin.Context, err error, production bool) {
	kind := domain.Kind(err)
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		msg := "internal server error"
		if !production {
			msg = err.Error()
		}
		_ = c.Error(err)
		Error(c, status, kind, msg)
		return
	}
	var fe *validator.FieldError
	if errors.As(err, &fe) {
		ErrorWithDetails(c, status, kind, err.Error(), fe.Fields)
		return
	}
	Error(c, status, kind, err.Error())
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOnboardingPending):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
