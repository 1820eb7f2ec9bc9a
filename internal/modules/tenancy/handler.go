package tenancy

import (
	"net/http"
	"strconv"
	"time"

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

// RegisterOwnerRoutes expects a group already restricted to owners.
func (h *Handler) RegisterOwnerRoutes(owner *gin.RouterGroup) {
	owner.PATCH("/bookings/:id/status", h.UpdateBookingStatus)
	owner.GET("/tenants", h.ListTenants)
	owner.POST("/tenancies/:id/end", h.EndTenancy)
}

func (h *Handler) RegisterTenantRoutes(rg *gin.RouterGroup) {
	rg.GET("/tenancies/me", h.MyStays)
}

type UpdateStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=approved rejected"`
	RejectReason string `json:"reject_reason" binding:"max=500"`
	RoomNo       string `json:"room_no" binding:"max=32"`
	ExitDate     string `json:"exit_date"`
}

type EndTenancyRequest struct {
	ExitDate string `json:"exit_date"`
}

// UpdateBookingStatus godoc
// @Summary      Approve or reject a booking
// @Description  Approval activates the tenancy and creates the agreement atomically
// @Tags         Owner
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Booking ID"
// @Param        body body UpdateStatusRequest true "Decision"
// @Success      200 {object} Result
// @Failure      403 {object} gin.H
// @Failure      404 {object} gin.H
// @Failure      409 {object} gin.H
// @Router       /owner/bookings/{id}/status [patch]
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	exit, ok := optionalDate(c, req.ExitDate)
	if !ok {
		return
	}

	res, err := h.service.ApproveBooking(c.Request.Context(), c.GetInt64("user_id"), id, Decision{
		Status:       domain.BookingStatus(req.Status),
		RejectReason: req.RejectReason,
		RoomNo:       req.RoomNo,
		ExitDate:     exit,
	})
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ListTenants(c *gin.Context) {
	list, err := h.service.ListActiveTenants(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tenancies": list})
}

func (h *Handler) EndTenancy(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req EndTenancyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}
	exit, ok := optionalDate(c, req.ExitDate)
	if !ok {
		return
	}
	t, err := h.service.EndTenancy(c.Request.Context(), c.GetInt64("user_id"), id, exit)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) MyStays(c *gin.Context) {
	list, err := h.service.MyActiveStays(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tenancies": list})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}

func optionalDate(c *gin.Context, v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "dates must be YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}
