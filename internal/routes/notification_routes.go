package routes

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/handlers"
)

func SetupNotificationRoutes(app *fiber.App, h *handlers.NotificationHandler, auth fiber.Handler) {
	// Notification routes (all require authentication)
	notifications := app.Group("/api/notifications", auth)

	notifications.Get("/", h.GetNotifications)
	notifications.Get("/unread-count", h.GetUnreadCount)

	// Mark all notifications as read
	notifications.Put("/read-all", h.MarkAllAsRead)
	notifications.Put("/:id/read", h.MarkAsRead)

	// Delete all read notifications
	notifications.Delete("/read-all", h.DeleteAllRead)
	notifications.Delete("/:id", h.DeleteNotification)
}
