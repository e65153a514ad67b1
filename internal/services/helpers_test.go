package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"SafeDeal/internal/database/databasetest"
	"SafeDeal/internal/models"
)

var testStart = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

const testHorizon = 7 * 24 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) ofType(t models.NotificationType) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeVerifier struct {
	receipts map[string]*PaymentReceipt
	err      error
}

func (f *fakeVerifier) VerifyPayment(_ context.Context, reference string) (*PaymentReceipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.receipts[reference]; ok {
		return r, nil
	}
	return &PaymentReceipt{Reference: reference}, nil
}

type testEnv struct {
	db         *gorm.DB
	clock      *fakeClock
	notes      *recordingNotifier
	payments   *fakeVerifier
	requests   *BuyerRequestService
	offers     *OfferService
	escrow     *EscrowService
	negotiator *Negotiator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := databasetest.Open(t)
	clock := &fakeClock{now: testStart}
	notes := &recordingNotifier{}
	payments := &fakeVerifier{receipts: map[string]*PaymentReceipt{}}

	requests := NewBuyerRequestService(db, clock.Now, testHorizon)
	offers := NewOfferService(db, clock.Now, requests)
	escrow := NewEscrowService(db, clock.Now, notes, payments)
	return &testEnv{
		db:         db,
		clock:      clock,
		notes:      notes,
		payments:   payments,
		requests:   requests,
		offers:     offers,
		escrow:     escrow,
		negotiator: NewNegotiator(db, requests, offers, escrow, notes),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) openRequest(t *testing.T, buyerID, min, max string) *models.BuyerRequest {
	t.Helper()
	req, err := e.requests.Create(context.Background(), buyerID, CreateBuyerRequestInput{
		Category:  "design",
		Title:     "Logo for a bakery",
		BudgetMin: dec(min),
		BudgetMax: dec(max),
	})
	require.NoError(t, err)
	return req
}

func (e *testEnv) submit(t *testing.T, requestID, sellerID, price string) *models.Offer {
	t.Helper()
	offer, err := e.negotiator.Submit(context.Background(), requestID, sellerID, SubmitOfferInput{
		Title: "Offer from " + sellerID,
		Price: dec(price),
	})
	require.NoError(t, err)
	return offer
}

func (e *testEnv) reloadRequest(t *testing.T, id string) models.BuyerRequest {
	t.Helper()
	var req models.BuyerRequest
	require.NoError(t, e.db.First(&req, "id = ?", id).Error)
	return req
}

func (e *testEnv) reloadOffer(t *testing.T, id string) models.Offer {
	t.Helper()
	var offer models.Offer
	require.NoError(t, e.db.First(&offer, "id = ?", id).Error)
	return offer
}
