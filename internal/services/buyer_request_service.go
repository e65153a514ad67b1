package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SafeDeal/internal/models"
)

type CreateBuyerRequestInput struct {
	Category    string          `json:"category" validate:"required,max=100"`
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	BudgetMin   decimal.Decimal `json:"budget_min" validate:"gte=0"`
	BudgetMax   decimal.Decimal `json:"budget_max" validate:"gte=0"`
}

// BuyerRequestService is the only writer of buyer_requests rows.
type BuyerRequestService struct {
	db      *gorm.DB
	clock   Clock
	horizon time.Duration
}

func NewBuyerRequestService(db *gorm.DB, clock Clock, horizon time.Duration) *BuyerRequestService {
	return &BuyerRequestService{db: db, clock: clock, horizon: horizon}
}

// Create opens a request that expires after the configured horizon.
func (s *BuyerRequestService) Create(ctx context.Context, buyerID string, in CreateBuyerRequestInput) (*models.BuyerRequest, error) {
	if buyerID == "" {
		return nil, Forbidden("an authenticated buyer is required")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := validateMoney(map[string]decimal.Decimal{"budget_min": in.BudgetMin, "budget_max": in.BudgetMax}); err != nil {
		return nil, err
	}
	if in.BudgetMin.GreaterThan(in.BudgetMax) {
		return nil, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("budget_min %s exceeds budget_max %s", in.BudgetMin, in.BudgetMax),
			Fields:  map[string]string{"budget_min": "must not exceed budget_max"},
		}
	}

	now := s.clock.now()
	req := models.BuyerRequest{
		BuyerID:     buyerID,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Status:      models.BuyerRequestOpen,
		ExpiresAt:   now.Add(s.horizon),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, fmt.Errorf("create buyer request: %w", err)
	}
	return &req, nil
}

func (s *BuyerRequestService) Get(ctx context.Context, id string) (*models.BuyerRequest, error) {
	var req models.BuyerRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "buyer request", id)
	}
	return &req, nil
}

// Close lets the owner withdraw an open request.
func (s *BuyerRequestService) Close(ctx context.Context, id, actorID string) (*models.BuyerRequest, error) {
	var closed models.BuyerRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadBuyerRequest(tx, id, clause.Locking{Strength: "UPDATE"})
		if err != nil {
			return err
		}
		if req.BuyerID != actorID {
			return Forbidden("only the owning buyer can close this request")
		}
		if err := s.closeOpenTx(tx, id); err != nil {
			return err
		}
		closed = *req
		closed.Status = models.BuyerRequestClosed
		closed.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

// closeOpenTx moves one request from open to closed. Zero affected rows means
// another transition (owner close, acceptance, sweep) got there first.
func (s *BuyerRequestService) closeOpenTx(tx *gorm.DB, id string) error {
	res := tx.Model(&models.BuyerRequest{}).
		Where("id = ? AND status = ?", id, models.BuyerRequestOpen).
		Updates(map[string]any{
			"status":     models.BuyerRequestClosed,
			"updated_at": s.clock.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("close buyer request %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return Conflict("buyer request %s is already closed", id)
	}
	return nil
}

// SweepExpired closes every open request whose expiration has passed in one
// set-based statement and reports how many rows it touched.
func (s *BuyerRequestService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	res := s.db.WithContext(ctx).Model(&models.BuyerRequest{}).
		Where("status = ? AND expires_at <= ?", models.BuyerRequestOpen, now).
		Updates(map[string]any{
			"status":     models.BuyerRequestClosed,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep expired buyer requests: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Printf("⏰ Closed %d expired buyer request(s)", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// Delete removes a request and its offers. Requests whose negotiation ended in
// an accepted offer are kept because an escrow account points at that offer.
func (s *BuyerRequestService) Delete(ctx context.Context, id, actorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadBuyerRequest(tx, id, clause.Locking{Strength: "UPDATE"})
		if err != nil {
			return err
		}
		if req.BuyerID != actorID {
			return Forbidden("only the owning buyer can delete this request")
		}

		var accepted int64
		if err := tx.Model(&models.Offer{}).
			Where("buyer_request_id = ? AND status = ?", id, models.OfferAccepted).
			Count(&accepted).Error; err != nil {
			return fmt.Errorf("count accepted offers: %w", err)
		}
		if accepted > 0 {
			return Conflict("buyer request %s has an accepted offer and cannot be deleted", id)
		}

		if err := tx.Where("buyer_request_id = ?", id).Delete(&models.Offer{}).Error; err != nil {
			return fmt.Errorf("delete offers of buyer request %s: %w", id, err)
		}
		if err := tx.Delete(&models.BuyerRequest{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete buyer request %s: %w", id, err)
		}
		return nil
	})
}

func loadBuyerRequest(tx *gorm.DB, id string, lock clause.Locking) (*models.BuyerRequest, error) {
	var req models.BuyerRequest
	if err := tx.Clauses(lock).First(&req, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "buyer request", id)
	}
	return &req, nil
}
