package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationOfferSubmitted     NotificationType = "offer_submitted"
	NotificationOfferAccepted      NotificationType = "offer_accepted"
	NotificationOfferRejected      NotificationType = "offer_rejected"
	NotificationEscrowCreated      NotificationType = "escrow_created"
	NotificationEscrowFunded       NotificationType = "escrow_funded"
	NotificationMilestoneApproved  NotificationType = "milestone_approved"
	NotificationMilestoneRejected  NotificationType = "milestone_rejected"
	NotificationFundsReleased      NotificationType = "funds_released"
	NotificationEscrowDisputed     NotificationType = "escrow_disputed"
	NotificationDisputeResolved    NotificationType = "dispute_resolved"
	NotificationEscrowRefunded     NotificationType = "escrow_refunded"
	NotificationBuyerRequestClosed NotificationType = "buyer_request_closed"
)

type Notification struct {
	ID        string           `json:"id" gorm:"primaryKey;size:36"`
	UserID    string           `json:"user_id" gorm:"size:64;not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(50);not null"`
	Title     string           `json:"title" gorm:"type:varchar(255);not null"`
	Message   string           `json:"message" gorm:"type:text;not null"`
	IsRead    bool             `json:"is_read" gorm:"default:false;index"`
	Data      string           `json:"data" gorm:"type:text"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate hook
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = newID()
	}
	n.CreatedAt = time.Now()
	return nil
}
