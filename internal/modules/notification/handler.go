package notification

import (
	"net/http"
	"strconv"

	"pgstay/internal/pkg/response"
	"pgstay/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	service    *Service
	hub        *realtime.Hub
	upgrader   websocket.Upgrader
	production bool
	log        *logrus.Entry
}

func NewHandler(service *Service, hub *realtime.Hub, allowedOrigins []string, production bool, log *logrus.Entry) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		service:    service,
		hub:        hub,
		production: production,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || allowed["*"]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/notifications")
	{
		g.GET("", h.List)
		g.PATCH("/:id/read", h.MarkRead)
	}
	protected.GET("/ws/notifications", h.Stream)
}

func (h *Handler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}

	list, unread, err := h.service.List(c.Request.Context(), userID, limit)
	if err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"notifications": list,
		"unread_count":  unread,
	})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.GetInt64("user_id"), id); err != nil {
		response.FromError(c, err, h.production)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "is_read": true})
}

// Stream upgrades to a websocket and keeps it registered until the client
// goes away. Inbound frames are read only to notice the close.
func (h *Handler) Stream(c *gin.Context) {
	userID := c.GetInt64("user_id")
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	h.hub.Register(userID, conn)
	h.log.WithField("user_id", userID).Debug("notification stream connected")

	go func() {
		defer h.hub.Unregister(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
