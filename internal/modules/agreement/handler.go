package agreement

import (
	"net/http"
	"strconv"

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

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/agreements/:bookingId")
	{
		g.GET("", h.Get)
		g.POST("/draft", h.Draft)
		g.POST("/owner-sign", h.OwnerSign)
		g.POST("/tenant-sign", h.TenantSign)
		g.GET("/status", h.Status)
		g.GET("/download", h.Download)
	}
}

// RegisterAdminRoutes mounts the manual re-seal used when automatic sealing
// after the second signature did not complete.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/agreements/:bookingId/seal", h.Seal)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/agreement/verify/:hash", h.VerifyByHash)
	rg.GET("/agreement/lookup/:code", h.VerifyByCode)
}

type SignRequest struct {
	SignatureRef string `json:"signature_ref" binding:"max=512"`
}

func (h *Handler) Get(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), c.GetInt64("user_id"), bookingID)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, a)
}

func (h *Handler) Draft(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}
	a, err := h.service.GenerateDraft(c.Request.Context(), c.GetInt64("user_id"), bookingID)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, a)
}

// OwnerSign godoc
// @Summary      Owner e-signs the agreement
// @Tags         Agreements
// @Security     BearerAuth
// @Param        bookingId path int true "Booking ID"
// @Success      200 {object} domain.Agreement
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /agreements/{bookingId}/owner-sign [post]
func (h *Handler) OwnerSign(c *gin.Context) {
	h.sign(c, PartyOwner)
}

// TenantSign godoc
// @Summary      Tenant e-signs the agreement
// @Tags         Agreements
// @Security     BearerAuth
// @Param        bookingId path int true "Booking ID"
// @Success      200 {object} domain.Agreement
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /agreements/{bookingId}/tenant-sign [post]
func (h *Handler) TenantSign(c *gin.Context) {
	h.sign(c, PartyTenant)
}

func (h *Handler) sign(c *gin.Context, party Party) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}
	var req SignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}
	in := SignInput{SignatureRef: req.SignatureRef, IP: c.ClientIP()}

	userID := c.GetInt64("user_id")
	var err error
	var out interface{}
	if party == PartyOwner {
		out, err = h.service.OwnerSign(c.Request.Context(), userID, bookingID, in)
	} else {
		out, err = h.service.TenantSign(c.Request.Context(), userID, bookingID, in)
	}
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Status(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}
	v, err := h.service.Status(c.Request.Context(), c.GetInt64("user_id"), bookingID)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Download(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}
	data, name, err := h.service.Download(c.Request.Context(), c.GetInt64("user_id"), bookingID)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) Seal(c *gin.Context) {
	bookingID, ok := bookingParam(c)
	if !ok {
		return
	}
	a, err := h.service.Seal(c.Request.Context(), bookingID)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, a)
}

// VerifyByHash godoc
// @Summary      Public agreement verification
// @Description  Resolves a content hash to verification metadata. Never returns the document.
// @Tags         Agreements
// @Param        hash path string true "SHA-256 content hash"
// @Success      200 {object} domain.AgreementVerification
// @Router       /agreement/verify/{hash} [get]
func (h *Handler) VerifyByHash(c *gin.Context) {
	v, err := h.service.VerifyByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) VerifyByCode(c *gin.Context) {
	v, err := h.service.VerifyByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, v)
}

func bookingParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("bookingId"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return 0, false
	}
	return id, true
}
