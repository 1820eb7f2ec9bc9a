package settlement

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

// RegisterOwnerRoutes mounts under /owner.
func (h *Handler) RegisterOwnerRoutes(owner *gin.RouterGroup) {
	owner.PUT("/payout-account", h.SavePayoutAccount)
}

// RegisterAdminRoutes mounts under /admin.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/settlements/pending", h.ListPending)
	admin.POST("/settlements/:bookingId/settle", h.MarkSettled)
	admin.GET("/settlements/history", h.History)
	admin.GET("/finance/summary", h.FinanceSummary)
}

// SavePayoutAccount godoc
// @Summary      Save owner payout account
// @Tags         Settlements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body PayoutAccountRequest true "Bank details"
// @Success      200 {object} domain.OwnerPayoutAccount
// @Failure      400 {object} map[string]interface{}
// @Router       /owner/payout-account [put]
func (h *Handler) SavePayoutAccount(c *gin.Context) {
	var req PayoutAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	acct, err := h.service.SaveOwnerPayoutAccount(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, acct)
}

// ListPending godoc
// @Summary      Pending owner settlements
// @Tags         Admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} domain.PendingSettlement
// @Router       /admin/settlements/pending [get]
func (h *Handler) ListPending(c *gin.Context) {
	rows, err := h.service.ListPendingSettlements(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settlements": rows, "count": len(rows)})
}

// MarkSettled godoc
// @Summary      Mark a booking's owner settlement as done
// @Tags         Admin
// @Security     BearerAuth
// @Param        bookingId path int true "Booking ID"
// @Success      200 {object} MarkResult
// @Failure      412 {object} map[string]interface{}
// @Router       /admin/settlements/{bookingId}/settle [post]
func (h *Handler) MarkSettled(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("bookingId"), 10, 64)
	if err != nil || bookingID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid booking id")
		return
	}
	res, err := h.service.MarkSettled(c.Request.Context(), c.GetInt64("user_id"), bookingID)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.service.SettlementHistory(c.Request.Context(), c.GetInt64("user_id"), limit)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settlements": rows, "count": len(rows)})
}

func (h *Handler) FinanceSummary(c *gin.Context) {
	sum, err := h.service.FinanceSummary(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, sum)
}
