package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultNotificationLimit = 50

// initNotificationRoutes registers the notification bell endpoints.
func (c *Controller) initNotificationRoutes() {
	if c.notifications == nil {
		return
	}
	n := c.Group.Group("/notifications")
	n.GET("", c.ListNotifications)
	n.POST("/:id/read", c.MarkNotificationRead)
}

// ListNotifications returns recent notifications, newest first.
func (c *Controller) ListNotifications(ctx echo.Context) error {
	limit := defaultNotificationLimit
	if v, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	items := c.notifications.List(limit)
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        c.notifications.UnreadCount(),
	})
}

// MarkNotificationRead marks one notification as read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	if !c.notifications.MarkRead(ctx.Param("id")) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	}
	return ctx.NoContent(http.StatusNoContent)
}
