package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowFunded   EscrowStatus = "funded"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
	EscrowDisputed EscrowStatus = "disputed"
)

// IsTerminal reports whether no further transition may leave the status.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowReleased || s == EscrowRefunded
}

type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "pending"
	MilestoneApproved MilestoneStatus = "approved"
	MilestoneRejected MilestoneStatus = "rejected"
	MilestoneReleased MilestoneStatus = "released"
)

type EscrowAccount struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	OfferID           string          `gorm:"size:36;not null;uniqueIndex" json:"offer_id"`
	BuyerID           string          `gorm:"size:64;not null;index" json:"buyer_id"`
	SellerID          string          `gorm:"size:64;not null;index" json:"seller_id"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	ReleasedAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"released_amount"`
	Status            EscrowStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CheckoutReference string          `gorm:"type:varchar(100)" json:"checkout_reference,omitempty"`
	PaymentReference  string          `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	Version           int             `gorm:"not null;default:0" json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	FundedAt          *time.Time      `json:"funded_at,omitempty"`
	ReleasedAt        *time.Time      `json:"released_at,omitempty"`
	DisputedAt        *time.Time      `json:"disputed_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`

	Milestones []Milestone `gorm:"foreignKey:EscrowAccountID;constraint:OnDelete:CASCADE" json:"milestones,omitempty"`
}

func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}

func (a *EscrowAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Status == "" {
		a.Status = EscrowPending
	}
	return nil
}

// Remaining is the escrowed amount not yet released to the seller.
func (a *EscrowAccount) Remaining() decimal.Decimal {
	return a.TotalAmount.Sub(a.ReleasedAmount)
}

type Milestone struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	EscrowAccountID string          `gorm:"size:36;not null;index" json:"escrow_account_id"`
	Position        int             `gorm:"not null" json:"position"`
	Title           string          `gorm:"type:varchar(255);not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status          MilestoneStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	BuyerApproved   bool            `gorm:"default:false" json:"buyer_approved"`
	BuyerNotes      string          `gorm:"type:text" json:"buyer_notes,omitempty"`
	SellerNotes     string          `gorm:"type:text" json:"seller_notes,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ReleasedAt      *time.Time      `json:"released_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Milestone) TableName() string {
	return "milestones"
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Status == "" {
		m.Status = MilestonePending
	}
	return nil
}
