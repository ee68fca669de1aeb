package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/service/notifications"
)

// NotificationHandler handles the notification inbox endpoints.
type NotificationHandler struct {
	svc    *notifications.Service
	logger *zap.Logger
}

// NewNotificationHandler constructs the HTTP handler adapter.
func NewNotificationHandler(svc *notifications.Service, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{svc: svc, logger: logger}
}

// List returns the actor's notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	items, err := h.svc.Inbox(c.Request.Context(), actorFrom(c), c.Query("unread") == "true", limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// UnreadCount returns the badge number.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead clears the actor's unread notifications.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.svc.MarkAllRead(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": count})
}
