package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BuyerRequestStatus string

const (
	BuyerRequestOpen   BuyerRequestStatus = "open"
	BuyerRequestClosed BuyerRequestStatus = "closed"
)

type BuyerRequest struct {
	ID          string             `gorm:"primaryKey;size:36" json:"id"`
	BuyerID     string             `gorm:"size:64;not null;index" json:"buyer_id"`
	Category    string             `gorm:"type:varchar(100);not null;index" json:"category"`
	BudgetMin   decimal.Decimal    `gorm:"type:decimal(20,2);not null" json:"budget_min"`
	BudgetMax   decimal.Decimal    `gorm:"type:decimal(20,2);not null" json:"budget_max"`
	Title       string             `gorm:"type:varchar(255);not null" json:"title"`
	Description string             `gorm:"type:text" json:"description"`
	Status      BuyerRequestStatus `gorm:"type:varchar(20);not null;default:'open';index:idx_buyer_requests_status_expiry,priority:1" json:"status"`
	ExpiresAt   time.Time          `gorm:"not null;index:idx_buyer_requests_status_expiry,priority:2" json:"expires_at"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	Offers []Offer `gorm:"foreignKey:BuyerRequestID;constraint:OnDelete:CASCADE" json:"offers,omitempty"`
}

func (BuyerRequest) TableName() string {
	return "buyer_requests"
}

func (r *BuyerRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.Status == "" {
		r.Status = BuyerRequestOpen
	}
	return nil
}

// IsOpenAt reports whether offers may still be submitted or accepted at t.
// A request past its expiration counts as closed even before the sweep runs.
func (r *BuyerRequest) IsOpenAt(t time.Time) bool {
	return r.Status == BuyerRequestOpen && t.Before(r.ExpiresAt)
}
