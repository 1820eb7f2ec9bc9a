package identity

import (
	"net/http"
	"strconv"

	"pgstay/internal/domain"
	"pgstay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service    *Service
	production bool
}

func NewHandler(service *Service, production bool) *Handler {
	return &Handler{service: service, production: production}
}

type VerificationRequest struct {
	Status string `json:"status" binding:"required,oneof=pending verified rejected"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}

// RegisterAdminRoutes expects a group already restricted to admins.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.PATCH("/owners/:id/verification", h.SetVerification)
}

func (h *Handler) Me(c *gin.Context) {
	v, ok := c.Get("identity")
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	response.Success(c, http.StatusOK, v)
}

// SetVerification godoc
// @Summary      Set owner verification status
// @Tags         Admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Owner user ID"
// @Param        body body VerificationRequest true "Status"
// @Success      200 {object} domain.User
// @Router       /admin/owners/{id}/verification [patch]
func (h *Handler) SetVerification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return
	}
	var req VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	u, err := h.service.SetOwnerVerification(c.Request.Context(), c.GetInt64("user_id"), id, domain.VerificationStatus(req.Status))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, u)
}
