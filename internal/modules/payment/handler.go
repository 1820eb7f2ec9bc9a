package payment

import (
	"io"
	"net/http"
	"strings"

	"pgstay/internal/domain"
	"pgstay/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	service    *Service
	production bool
	log        *logrus.Entry
}

func NewHandler(service *Service, production bool, log *logrus.Entry) *Handler {
	return &Handler{service: service, production: production, log: log}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/orders", h.CreateOrder)
	rg.GET("/payments/orders/:orderId/verify", h.VerifyOrder)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

// CreateOrder godoc
// @Summary      Create payment order
// @Description  Registers a gateway order for the tenant's approved booking and returns the payment session
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreateOrderRequest true "Order payload"
// @Success      201 {object} CreateOrderResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /payments/orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	resp, err := h.service.CreateOrder(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

// VerifyOrder godoc
// @Summary      Verify payment order
// @Description  Polls the gateway for the order and applies the result
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} OrderStatusResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /payments/orders/{orderId}/verify [get]
func (h *Handler) VerifyOrder(c *gin.Context) {
	resp, err := h.service.VerifyOrder(c.Request.Context(), c.GetInt64("user_id"), c.Param("orderId"))
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// Webhook godoc
// @Summary      Payment gateway webhook
// @Description  Verifies the HMAC signature over the raw body and applies the order outcome (idempotent)
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        x-webhook-signature header string true "base64 HMAC-SHA256 of the raw body"
// @Success      200 {object} WebhookAck
// @Failure      401 {object} ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.log.WithError(err).Error("failed to read webhook body")
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body")
		return
	}

	signature := strings.TrimSpace(c.GetHeader("x-webhook-signature"))
	if signature == "" {
		signature = strings.TrimSpace(c.GetHeader("signature"))
	}

	if err := h.service.HandleWebhook(c.Request.Context(), rawBody, signature); err != nil {
		response.Error(c, http.StatusUnauthorized, domain.Kind(err), "invalid signature")
		return
	}
	c.JSON(http.StatusOK, WebhookAck{Status: "ok"})
}
