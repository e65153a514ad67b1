package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

type Offer struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	BuyerRequestID string          `gorm:"size:36;not null;index" json:"buyer_request_id"`
	SellerID       string          `gorm:"size:64;not null;index" json:"seller_id"`
	ProductID      *string         `gorm:"size:64" json:"product_id,omitempty"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	Price          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	Status         OfferStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Blocked        bool            `gorm:"default:false" json:"blocked"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Status == "" {
		o.Status = OfferPending
	}
	return nil
}
