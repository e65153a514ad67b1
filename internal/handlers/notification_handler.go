package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotifications retrieves all notifications for the authenticated user
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	notifications, unreadCount, err := h.notifications.List(c.UserContext(), currentUser(c), services.NotificationQuery{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: c.Query("unread_only", "false") == "true",
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"count":         len(notifications),
		"unread_count":  unreadCount,
	})
}

// GetUnreadCount returns the count of unread notifications
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	unreadCount, err := h.notifications.UnreadCount(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"unread_count": unreadCount,
	})
}

// MarkAsRead marks a specific notification as read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	notification, err := h.notifications.MarkAsRead(c.UserContext(), c.Params("id"), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "Notification marked as read",
		"notification": notification,
	})
}

// MarkAllAsRead marks all notifications as read for the user
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkAllAsRead(c.UserContext(), currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "All notifications marked as read",
	})
}

// DeleteNotification deletes a specific notification
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	if err := h.notifications.Delete(c.UserContext(), c.Params("id"), currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Notification deleted successfully",
	})
}

// DeleteAllRead deletes all read notifications for the user
func (h *NotificationHandler) DeleteAllRead(c *fiber.Ctx) error {
	if err := h.notifications.DeleteAllRead(c.UserContext(), currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "All read notifications deleted successfully",
	})
}
