package handler

import (
	"errors"
	"net/http"

	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(notifications *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications godoc
// @Summary      List my notifications
// @Description  Newest first. Filter by type and unread state.
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Param        type    query     string  false  "common, request, reminder, event or invite"
// @Param        unread  query     bool    false  "Only unread"
// @Success      200     {object}  PaginatedResponse[models.Notification]
// @Router       /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	page, limit := pageParams(c, 20)
	filter := notification.ListFilter{
		Type:       models.NotificationType(c.Query("type")),
		UnreadOnly: c.Query("unread") == "true",
		Page:       page,
		Limit:      limit,
	}

	items, total, err := h.notifications.List(c.Request.Context(), viewerID(c), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(items, total, page, limit))
}

// GetNotificationStats godoc
// @Summary      Count my notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  notification.Stats
// @Router       /notifications/stats [get]
func (h *NotificationHandler) GetNotificationStats(c *gin.Context) {
	stats, err := h.notifications.Stats(c.Request.Context(), viewerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MarkNotificationRead godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), viewerID(c), id); err != nil {
		notificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead godoc
// @Summary      Mark all my notifications as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), viewerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Tags         notifications
// @Security     BearerAuth
// @Param        id   path  int  true  "Notification ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		notificationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func notificationError(c *gin.Context, err error) {
	if errors.Is(err, notification.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
}
