package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"SafeDeal/internal/models"
)

// NotificationService stores in-app notifications.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// CreateNotification creates a new notification
func (s *NotificationService) CreateNotification(ctx context.Context, userID string, notifType models.NotificationType, title, message string, data map[string]any) (*models.Notification, error) {
	// Convert data to JSON string
	var dataJSON string
	if data != nil {
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = string(jsonBytes)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    dataJSON,
		IsRead:  false,
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return &notification, nil
}

// Notify implements Notifier.
func (s *NotificationService) Notify(ctx context.Context, n Notice) error {
	_, err := s.CreateNotification(ctx, n.UserID, n.Type, n.Title, n.Message, n.Payload)
	return err
}

type NotificationQuery struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// List returns the user's notifications, newest first, and the unread count.
func (s *NotificationService) List(ctx context.Context, userID string, q NotificationQuery) ([]models.Notification, int64, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if q.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var unreadCount int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unreadCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return unreadCount, nil
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		return nil, lookupErr(err, "notification", id)
	}

	if !notification.IsRead {
		now := time.Now()
		notification.IsRead = true
		notification.ReadAt = &now

		if err := s.db.WithContext(ctx).Save(&notification).Error; err != nil {
			return nil, fmt.Errorf("failed to mark notification as read: %w", err)
		}
	}
	return &notification, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("notification %s not found", id)
	}
	return nil
}

// DeleteAllRead deletes all read notifications for the user
func (s *NotificationService) DeleteAllRead(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&models.Notification{}).Error; err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}
