package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SafeDeal/internal/models"
)

type SubmitOfferInput struct {
	ProductID   *string         `json:"product_id"`
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
}

// acceptance is everything the accept step changed inside its transaction.
type acceptance struct {
	offer    models.Offer
	request  models.BuyerRequest
	rejected []models.Offer
}

// OfferService is the only writer of offers rows.
type OfferService struct {
	db       *gorm.DB
	clock    Clock
	requests *BuyerRequestService
}

func NewOfferService(db *gorm.DB, clock Clock, requests *BuyerRequestService) *OfferService {
	return &OfferService{db: db, clock: clock, requests: requests}
}

// Submit records a pending offer against an open buyer request.
func (s *OfferService) Submit(ctx context.Context, requestID, sellerID string, in SubmitOfferInput) (*models.Offer, *models.BuyerRequest, error) {
	if sellerID == "" {
		return nil, nil, Forbidden("an authenticated seller is required")
	}
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	if err := validateMoney(map[string]decimal.Decimal{"price": in.Price}); err != nil {
		return nil, nil, err
	}

	var (
		offer   models.Offer
		request *models.BuyerRequest
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		// a share lock keeps a concurrent close from committing between the check and the insert
		request, err = loadBuyerRequest(tx, requestID, clause.Locking{Strength: "SHARE"})
		if err != nil {
			return err
		}
		now := s.clock.now()
		if !request.IsOpenAt(now) {
			return Conflict("buyer request %s is not open for offers", requestID)
		}
		if request.BuyerID == sellerID {
			return Forbidden("you cannot make an offer on your own request")
		}

		offer = models.Offer{
			BuyerRequestID: requestID,
			SellerID:       sellerID,
			ProductID:      in.ProductID,
			Title:          in.Title,
			Description:    in.Description,
			Price:          in.Price,
			Status:         models.OfferPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&offer).Error; err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &offer, request, nil
}

func (s *OfferService) Get(ctx context.Context, id string) (*models.Offer, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "offer", id)
	}
	return &offer, nil
}

// ListForRequest returns every offer of the request, rejected ones included.
func (s *OfferService) ListForRequest(ctx context.Context, requestID string) ([]models.Offer, error) {
	if _, err := s.requests.Get(ctx, requestID); err != nil {
		return nil, err
	}
	var offers []models.Offer
	if err := s.db.WithContext(ctx).
		Where("buyer_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("list offers of buyer request %s: %w", requestID, err)
	}
	return offers, nil
}

// acceptTx marks the offer as the winner, rejects its pending siblings and
// closes the buyer request. Each write is conditional on the state it expects,
// so a concurrent accept or sweep leaves this call with a ConflictError.
func (s *OfferService) acceptTx(tx *gorm.DB, offerID, buyerID string) (*acceptance, error) {
	offer, request, err := lockOfferAndRequest(tx, offerID, clause.Locking{Strength: "UPDATE"})
	if err != nil {
		return nil, err
	}
	if request.BuyerID != buyerID {
		return nil, Forbidden("only the owning buyer can accept offers on this request")
	}
	if offer.Status != models.OfferPending {
		return nil, Conflict("cannot accept offer with status: %s", offer.Status)
	}
	if offer.Blocked {
		return nil, Conflict("offer %s is blocked by moderation", offerID)
	}

	var acceptedSiblings int64
	if err := tx.Model(&models.Offer{}).
		Where("buyer_request_id = ? AND status = ?", request.ID, models.OfferAccepted).
		Count(&acceptedSiblings).Error; err != nil {
		return nil, fmt.Errorf("check accepted offers: %w", err)
	}
	if acceptedSiblings > 0 {
		return nil, Conflict("another offer on buyer request %s is already accepted", request.ID)
	}

	now := s.clock.now()
	if !request.IsOpenAt(now) {
		return nil, Conflict("buyer request %s is no longer open", request.ID)
	}

	res := tx.Model(&models.Offer{}).
		Where(`id = ? AND status = ? AND blocked = ? AND NOT EXISTS (
			SELECT 1 FROM offers sibling WHERE sibling.buyer_request_id = ? AND sibling.status = ?)`,
			offerID, models.OfferPending, false, request.ID, models.OfferAccepted).
		Updates(map[string]any{"status": models.OfferAccepted, "updated_at": now})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, Conflict("another offer on buyer request %s is already accepted", request.ID)
		}
		return nil, fmt.Errorf("accept offer %s: %w", offerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, Conflict("offer %s is no longer eligible for acceptance", offerID)
	}

	var rejected []models.Offer
	if err := tx.Where("buyer_request_id = ? AND id <> ? AND status = ?", request.ID, offerID, models.OfferPending).
		Find(&rejected).Error; err != nil {
		return nil, fmt.Errorf("load sibling offers: %w", err)
	}
	if err := tx.Model(&models.Offer{}).
		Where("buyer_request_id = ? AND id <> ? AND status = ?", request.ID, offerID, models.OfferPending).
		Updates(map[string]any{"status": models.OfferRejected, "updated_at": now}).Error; err != nil {
		return nil, fmt.Errorf("reject sibling offers: %w", err)
	}
	for i := range rejected {
		rejected[i].Status = models.OfferRejected
		rejected[i].UpdatedAt = now
	}

	if err := s.requests.closeOpenTx(tx, request.ID); err != nil {
		return nil, err
	}

	offer.Status = models.OfferAccepted
	offer.UpdatedAt = now
	request.Status = models.BuyerRequestClosed
	request.UpdatedAt = now
	return &acceptance{offer: *offer, request: *request, rejected: rejected}, nil
}

// Reject turns down a single pending offer.
func (s *OfferService) Reject(ctx context.Context, offerID, buyerID string) (*models.Offer, error) {
	var offer *models.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			request *models.BuyerRequest
			err     error
		)
		offer, request, err = lockOfferAndRequest(tx, offerID, clause.Locking{Strength: "SHARE"})
		if err != nil {
			return err
		}
		if request.BuyerID != buyerID {
			return Forbidden("only the owning buyer can reject offers on this request")
		}
		if offer.Status != models.OfferPending {
			return Conflict("cannot reject offer with status: %s", offer.Status)
		}

		now := s.clock.now()
		res := tx.Model(&models.Offer{}).
			Where("id = ? AND status = ?", offerID, models.OfferPending).
			Updates(map[string]any{"status": models.OfferRejected, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("reject offer %s: %w", offerID, res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("offer %s is no longer pending", offerID)
		}
		offer.Status = models.OfferRejected
		offer.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// lockOfferAndRequest locks the buyer request row before the offer row, the
// order Submit and BuyerRequestService.Delete use, so writers on one request
// queue up instead of deadlocking.
func lockOfferAndRequest(tx *gorm.DB, offerID string, requestLock clause.Locking) (*models.Offer, *models.BuyerRequest, error) {
	var target models.Offer
	if err := tx.Select("buyer_request_id").First(&target, "id = ?", offerID).Error; err != nil {
		return nil, nil, lookupErr(err, "offer", offerID)
	}
	request, err := loadBuyerRequest(tx, target.BuyerRequestID, requestLock)
	if err != nil {
		return nil, nil, err
	}
	var offer models.Offer
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&offer, "id = ?", offerID).Error; err != nil {
		return nil, nil, lookupErr(err, "offer", offerID)
	}
	return &offer, request, nil
}

// SetBlocked flags an offer for moderation. Status is left untouched.
func (s *OfferService) SetBlocked(ctx context.Context, offerID string, blocked bool) (*models.Offer, error) {
	now := s.clock.now()
	res := s.db.WithContext(ctx).Model(&models.Offer{}).
		Where("id = ?", offerID).
		Updates(map[string]any{"blocked": blocked, "updated_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("moderate offer %s: %w", offerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, NotFound("offer %s not found", offerID)
	}
	return s.Get(ctx, offerID)
}
