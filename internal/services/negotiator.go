package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"SafeDeal/internal/models"
)

// AcceptResult is what a successful acceptance committed.
type AcceptResult struct {
	Offer        models.Offer         `json:"offer"`
	BuyerRequest models.BuyerRequest  `json:"buyer_request"`
	Account      models.EscrowAccount `json:"escrow_account"`
	Rejected     []models.Offer       `json:"rejected_offers"`
}

// Negotiator coordinates the offer lifecycle with the buyer request and escrow
// stores. Acceptance closes the request, rejects the competing offers and opens
// the escrow account in a single transaction.
type Negotiator struct {
	db       *gorm.DB
	requests *BuyerRequestService
	offers   *OfferService
	escrow   *EscrowService
	notifier Notifier
}

func NewNegotiator(db *gorm.DB, requests *BuyerRequestService, offers *OfferService, escrow *EscrowService, notifier Notifier) *Negotiator {
	return &Negotiator{db: db, requests: requests, offers: offers, escrow: escrow, notifier: notifier}
}

// Submit places a seller's offer and tells the buyer about it.
func (n *Negotiator) Submit(ctx context.Context, requestID, sellerID string, in SubmitOfferInput) (*models.Offer, error) {
	offer, request, err := n.offers.Submit(ctx, requestID, sellerID, in)
	if err != nil {
		return nil, err
	}
	notifyQuietly(ctx, n.notifier, Notice{
		UserID:  request.BuyerID,
		Type:    models.NotificationOfferSubmitted,
		Title:   "New Offer",
		Message: fmt.Sprintf("You received an offer of %s for %q", offer.Price.StringFixed(2), request.Title),
		Payload: map[string]any{"buyer_request_id": request.ID, "offer_id": offer.ID, "seller_id": offer.SellerID},
	})
	return offer, nil
}

// Accept settles the negotiation on offerID. Without milestones the whole price
// is held under one milestone named after the offer.
func (n *Negotiator) Accept(ctx context.Context, offerID, buyerID string, milestones []MilestoneInput) (*AcceptResult, error) {
	var result AcceptResult
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accepted, err := n.offers.acceptTx(tx, offerID, buyerID)
		if err != nil {
			return err
		}

		plan := milestones
		if len(plan) == 0 {
			plan = []MilestoneInput{{
				Title:       accepted.offer.Title,
				Description: accepted.offer.Description,
				Amount:      accepted.offer.Price,
			}}
		}
		account, err := n.escrow.createAccountTx(tx, CreateAccountInput{
			OfferID:     accepted.offer.ID,
			BuyerID:     accepted.request.BuyerID,
			SellerID:    accepted.offer.SellerID,
			TotalAmount: accepted.offer.Price,
			Milestones:  plan,
		})
		if err != nil {
			return err
		}

		result = AcceptResult{
			Offer:        accepted.offer,
			BuyerRequest: accepted.request,
			Account:      *account,
			Rejected:     accepted.rejected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notices := []Notice{{
		UserID:  result.Offer.SellerID,
		Type:    models.NotificationOfferAccepted,
		Title:   "Offer Accepted",
		Message: fmt.Sprintf("Your offer on %q was accepted", result.BuyerRequest.Title),
		Payload: map[string]any{"offer_id": result.Offer.ID, "escrow_account_id": result.Account.ID},
	}}
	for _, o := range result.Rejected {
		notices = append(notices, Notice{
			UserID:  o.SellerID,
			Type:    models.NotificationOfferRejected,
			Title:   "Offer Not Selected",
			Message: fmt.Sprintf("The buyer chose another offer on %q", result.BuyerRequest.Title),
			Payload: map[string]any{"offer_id": o.ID, "buyer_request_id": result.BuyerRequest.ID},
		})
	}
	notices = append(notices, escrowCreatedNotices(&result.Account)...)
	notifyQuietly(ctx, n.notifier, notices...)
	return &result, nil
}

// Reject turns down one offer without touching the request.
func (n *Negotiator) Reject(ctx context.Context, offerID, buyerID string) (*models.Offer, error) {
	offer, err := n.offers.Reject(ctx, offerID, buyerID)
	if err != nil {
		return nil, err
	}
	notifyQuietly(ctx, n.notifier, Notice{
		UserID:  offer.SellerID,
		Type:    models.NotificationOfferRejected,
		Title:   "Offer Rejected",
		Message: fmt.Sprintf("Your offer %q was rejected", offer.Title),
		Payload: map[string]any{"offer_id": offer.ID, "buyer_request_id": offer.BuyerRequestID},
	})
	return offer, nil
}

// Close withdraws a request on behalf of its owner and tells the sellers who
// were still waiting on it.
func (n *Negotiator) Close(ctx context.Context, requestID, buyerID string) (*models.BuyerRequest, error) {
	request, err := n.requests.Close(ctx, requestID, buyerID)
	if err != nil {
		return nil, err
	}
	var waiting []models.Offer
	if err := n.db.WithContext(ctx).
		Where("buyer_request_id = ? AND status = ?", requestID, models.OfferPending).
		Find(&waiting).Error; err != nil {
		log.Printf("⚠️  Failed to load offers of closed request %s: %v", requestID, err)
		return request, nil
	}
	notices := make([]Notice, 0, len(waiting))
	for _, o := range waiting {
		notices = append(notices, Notice{
			UserID:  o.SellerID,
			Type:    models.NotificationBuyerRequestClosed,
			Title:   "Request Closed",
			Message: fmt.Sprintf("The buyer closed %q", request.Title),
			Payload: map[string]any{"buyer_request_id": request.ID, "offer_id": o.ID},
		})
	}
	notifyQuietly(ctx, n.notifier, notices...)
	return request, nil
}
