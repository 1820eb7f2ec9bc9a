package booking

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/properties/:id/bookings", h.CreateBooking)
	rg.GET("/bookings/me", h.MyBookings)
	rg.GET("/bookings/:id", h.GetBooking)
	rg.POST("/bookings/:id/consent", h.SaveConsent)
	rg.POST("/bookings/:id/move-in", h.CompleteMoveIn)
	rg.GET("/bookings/:id/move-in", h.MoveInStatus)
}

// RegisterOwnerRoutes expects a group already restricted to owners.
func (h *Handler) RegisterOwnerRoutes(owner *gin.RouterGroup) {
	owner.GET("/bookings", h.OwnerBookings)
}

// CreateBooking godoc
// @Summary      Request a booking
// @Tags         Bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Property ID"
// @Param        body body CreateBookingRequest true "Booking"
// @Success      201 {object} domain.Booking
// @Failure      400 {object} gin.H
// @Failure      404 {object} gin.H
// @Failure      409 {object} gin.H
// @Router       /properties/{id}/bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	propertyID, ok := idParam(c)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	b, err := h.service.CreateBooking(c.Request.Context(), c.GetInt64("user_id"), propertyID, req)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) MyBookings(c *gin.Context) {
	list, err := h.service.ListTenantBookings(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) OwnerBookings(c *gin.Context) {
	status := domain.BookingStatus(c.Query("status"))
	list, err := h.service.ListOwnerBookings(c.Request.Context(), c.GetInt64("user_id"), status)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), c.GetInt64("user_id"), id)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) SaveConsent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	b, err := h.service.SaveConsent(c.Request.Context(), c.GetInt64("user_id"), id, req)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// CompleteMoveIn godoc
// @Summary      Complete move-in
// @Description  Requires a paid booking with KYC and agreement consent; repeat calls return the same state
// @Tags         Bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Booking ID"
// @Success      200 {object} MoveInStatus
// @Failure      412 {object} gin.H
// @Router       /bookings/{id}/move-in [post]
func (h *Handler) CompleteMoveIn(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	st, err := h.service.CompleteMoveIn(c.Request.Context(), c.GetInt64("user_id"), id)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, st)
}

func (h *Handler) MoveInStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	st, err := h.service.MoveInStatus(c.Request.Context(), c.GetInt64("user_id"), id)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, st)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}
