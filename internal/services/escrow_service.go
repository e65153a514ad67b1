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

type MilestoneInput struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
}

type CreateAccountInput struct {
	OfferID     string           `json:"offer_id" validate:"required"`
	BuyerID     string           `json:"buyer_id" validate:"required"`
	SellerID    string           `json:"seller_id" validate:"required"`
	TotalAmount decimal.Decimal  `json:"total_amount" validate:"gt=0"`
	Milestones  []MilestoneInput `json:"milestones" validate:"required,min=1,dive"`
}

// ReleaseResult is the state of both rows right after a release commits.
type ReleaseResult struct {
	Milestone models.Milestone     `json:"milestone"`
	Account   models.EscrowAccount `json:"account"`
}

type DisputeOutcome string

const (
	// DisputeResume returns the account to where it was before the dispute.
	DisputeResume DisputeOutcome = "resume"
	DisputeRefund DisputeOutcome = "refund"
)

// EscrowService owns escrow_accounts and milestones and is their only writer.
type EscrowService struct {
	db       *gorm.DB
	clock    Clock
	notifier Notifier
	payments PaymentVerifier
}

func NewEscrowService(db *gorm.DB, clock Clock, notifier Notifier, payments PaymentVerifier) *EscrowService {
	return &EscrowService{db: db, clock: clock, notifier: notifier, payments: payments}
}

// CreateAccount opens an account with its milestone batch.
func (s *EscrowService) CreateAccount(ctx context.Context, in CreateAccountInput) (*models.EscrowAccount, error) {
	var account *models.EscrowAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.createAccountTx(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	notifyQuietly(ctx, s.notifier, escrowCreatedNotices(account)...)
	return account, nil
}

func (s *EscrowService) createAccountTx(tx *gorm.DB, in CreateAccountInput) (*models.EscrowAccount, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	amounts := map[string]decimal.Decimal{"total_amount": in.TotalAmount}
	sum := decimal.Zero
	for i, m := range in.Milestones {
		amounts[fmt.Sprintf("milestones[%d].amount", i)] = m.Amount
		sum = sum.Add(m.Amount)
	}
	if err := validateMoney(amounts); err != nil {
		return nil, err
	}
	if !sum.Equal(in.TotalAmount) {
		return nil, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("milestone amounts sum to %s, expected %s", sum, in.TotalAmount),
			Fields:  map[string]string{"milestones": "must sum to total_amount"},
		}
	}

	var existing int64
	if err := tx.Model(&models.EscrowAccount{}).Where("offer_id = ?", in.OfferID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check escrow account for offer %s: %w", in.OfferID, err)
	}
	if existing > 0 {
		return nil, Conflict("an escrow account already exists for offer %s", in.OfferID)
	}

	now := s.clock.now()
	account := models.EscrowAccount{
		OfferID:        in.OfferID,
		BuyerID:        in.BuyerID,
		SellerID:       in.SellerID,
		TotalAmount:    in.TotalAmount,
		ReleasedAmount: decimal.Zero,
		Status:         models.EscrowPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict("an escrow account already exists for offer %s", in.OfferID)
		}
		return nil, fmt.Errorf("create escrow account: %w", err)
	}

	milestones := make([]models.Milestone, len(in.Milestones))
	for i, m := range in.Milestones {
		milestones[i] = models.Milestone{
			EscrowAccountID: account.ID,
			Position:        i + 1,
			Title:           m.Title,
			Description:     m.Description,
			Amount:          m.Amount,
			Status:          models.MilestonePending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}
	if err := tx.Create(&milestones).Error; err != nil {
		return nil, fmt.Errorf("create milestones: %w", err)
	}
	account.Milestones = milestones
	return &account, nil
}

// GetAccount returns the account with its milestones in batch order.
func (s *EscrowService) GetAccount(ctx context.Context, id string) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := s.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&account, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "escrow account", id)
	}
	return &account, nil
}

// GetAccountByOffer returns the account created when the offer was accepted.
func (s *EscrowService) GetAccountByOffer(ctx context.Context, offerID string) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := s.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&account, "offer_id = ?", offerID).Error
	if err != nil {
		return nil, lookupErr(err, "escrow account for offer", offerID)
	}
	return &account, nil
}

// RecordCheckout stores the payment reference issued to the buyer for a
// pending account. Fund only accepts that reference afterwards; a new
// checkout replaces the previous one.
func (s *EscrowService) RecordCheckout(ctx context.Context, accountID, buyerID, reference string) (*models.EscrowAccount, error) {
	if reference == "" {
		return nil, &Error{Kind: KindValidation, Message: "payment reference is required",
			Fields: map[string]string{"reference": "is required"}}
	}
	account, err := s.loadAccount(s.db.WithContext(ctx), accountID, clause.Locking{})
	if err != nil {
		return nil, err
	}
	if account.BuyerID != buyerID {
		return nil, Forbidden("only the buyer can fund this escrow account")
	}
	if account.Status != models.EscrowPending {
		return nil, Conflict("cannot fund escrow account with status: %s", account.Status)
	}

	now := s.clock.now()
	res := s.db.WithContext(ctx).Model(&models.EscrowAccount{}).
		Where("id = ? AND status = ?", accountID, models.EscrowPending).
		Updates(map[string]any{"checkout_reference": reference, "updated_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("record checkout for escrow account %s: %w", accountID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, Conflict("escrow account %s is no longer pending", accountID)
	}
	account.CheckoutReference = reference
	account.UpdatedAt = now
	return account, nil
}

// Fund marks a pending account as funded once the buyer's payment verifies.
// A reference funds at most one account, and when a checkout was recorded
// only its reference is accepted.
func (s *EscrowService) Fund(ctx context.Context, accountID, buyerID, reference string) (*models.EscrowAccount, error) {
	if reference == "" {
		return nil, &Error{Kind: KindValidation, Message: "payment reference is required",
			Fields: map[string]string{"reference": "is required"}}
	}
	account, err := s.loadAccount(s.db.WithContext(ctx), accountID, clause.Locking{})
	if err != nil {
		return nil, err
	}
	if account.BuyerID != buyerID {
		return nil, Forbidden("only the buyer can fund this escrow account")
	}
	if account.Status != models.EscrowPending {
		return nil, Conflict("cannot fund escrow account with status: %s", account.Status)
	}
	if account.CheckoutReference != "" && account.CheckoutReference != reference {
		return nil, &Error{Kind: KindValidation,
			Message: fmt.Sprintf("payment %s was not issued for escrow account %s", reference, accountID),
			Fields:  map[string]string{"reference": "does not match the checkout for this account"}}
	}
	if s.payments == nil {
		return nil, errors.New("payment verification is not configured")
	}

	receipt, err := s.payments.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", reference, err)
	}
	if receipt.Reference != reference {
		return nil, Validation("payment provider answered for %q instead of %s", receipt.Reference, reference)
	}
	if !receipt.Paid {
		return nil, Validation("payment %s has not succeeded", reference)
	}
	if receipt.Amount.LessThan(account.TotalAmount) {
		return nil, Validation("payment %s covers %s of %s", reference, receipt.Amount, account.TotalAmount)
	}

	now := s.clock.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.EscrowAccount{}).
			Where("payment_reference = ? AND id <> ?", reference, accountID).
			Count(&used).Error; err != nil {
			return fmt.Errorf("check payment reference %s: %w", reference, err)
		}
		if used > 0 {
			return Conflict("payment %s already funded another escrow account", reference)
		}

		res := tx.Model(&models.EscrowAccount{}).
			Where("id = ? AND status = ?", accountID, models.EscrowPending).
			Updates(map[string]any{
				"status":            models.EscrowFunded,
				"payment_reference": reference,
				"funded_at":         now,
				"version":           gorm.Expr("version + 1"),
				"updated_at":        now,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return Conflict("payment %s already funded another escrow account", reference)
			}
			return fmt.Errorf("fund escrow account %s: %w", accountID, res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("escrow account %s is no longer pending", accountID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	account.Status = models.EscrowFunded
	account.PaymentReference = reference
	account.FundedAt = &now
	account.UpdatedAt = now
	notifyQuietly(ctx, s.notifier, Notice{
		UserID:  account.SellerID,
		Type:    models.NotificationEscrowFunded,
		Title:   "Escrow Funded",
		Message: fmt.Sprintf("The buyer has funded the escrow with %s", account.TotalAmount.StringFixed(2)),
		Payload: map[string]any{"escrow_account_id": account.ID, "amount": account.TotalAmount.String()},
	})
	return account, nil
}

// ApproveMilestone records the buyer's verdict on a pending milestone.
func (s *EscrowService) ApproveMilestone(ctx context.Context, milestoneID, buyerID string, approved bool, notes string) (*models.Milestone, error) {
	var (
		milestone *models.Milestone
		account   *models.EscrowAccount
	)
	now := s.clock.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, account, err = s.loadMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		if account.BuyerID != buyerID {
			return Forbidden("only the buyer can approve milestones of this escrow account")
		}
		if account.Status.IsTerminal() || account.Status == models.EscrowDisputed {
			return Conflict("cannot review milestones of escrow account with status: %s", account.Status)
		}
		if milestone.Status != models.MilestonePending {
			return Conflict("cannot review milestone with status: %s", milestone.Status)
		}

		status := models.MilestoneRejected
		if approved {
			status = models.MilestoneApproved
		}
		res := tx.Model(&models.Milestone{}).
			Where("id = ? AND status = ?", milestoneID, models.MilestonePending).
			Updates(map[string]any{
				"status":         status,
				"buyer_approved": approved,
				"buyer_notes":    notes,
				"approved_at":    now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("review milestone %s: %w", milestoneID, res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("milestone %s was reviewed concurrently", milestoneID)
		}
		milestone.Status = status
		milestone.BuyerApproved = approved
		milestone.BuyerNotes = notes
		milestone.ApprovedAt = &now
		milestone.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	notice := Notice{
		UserID:  account.SellerID,
		Type:    models.NotificationMilestoneApproved,
		Title:   "Milestone Approved",
		Message: fmt.Sprintf("The buyer approved milestone %q. You can now release %s", milestone.Title, milestone.Amount.StringFixed(2)),
		Payload: map[string]any{"escrow_account_id": account.ID, "milestone_id": milestone.ID},
	}
	if !approved {
		notice.Type = models.NotificationMilestoneRejected
		notice.Title = "Milestone Rejected"
		notice.Message = fmt.Sprintf("The buyer rejected milestone %q", milestone.Title)
	}
	notifyQuietly(ctx, s.notifier, notice)
	return milestone, nil
}

// ReleaseFunds pays out an approved milestone. The milestone flip and the
// account increment commit together or not at all.
func (s *EscrowService) ReleaseFunds(ctx context.Context, milestoneID, sellerID, notes string) (*ReleaseResult, error) {
	var result ReleaseResult
	now := s.clock.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		milestone, account, err := s.loadMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		if account.SellerID != sellerID {
			return Forbidden("only the seller can release funds of this escrow account")
		}
		switch account.Status {
		case models.EscrowReleased, models.EscrowRefunded, models.EscrowDisputed:
			return Conflict("cannot release funds from escrow account with status: %s", account.Status)
		}
		if milestone.Status != models.MilestoneApproved || !milestone.BuyerApproved {
			return Conflict("cannot release milestone with status: %s", milestone.Status)
		}

		released := account.ReleasedAmount.Add(milestone.Amount)
		if released.GreaterThan(account.TotalAmount) {
			return Conflict("releasing %s would exceed the escrowed %s", milestone.Amount, account.TotalAmount)
		}

		res := tx.Model(&models.Milestone{}).
			Where("id = ? AND status = ? AND buyer_approved = ?", milestoneID, models.MilestoneApproved, true).
			Updates(map[string]any{
				"status":       models.MilestoneReleased,
				"seller_notes": notes,
				"released_at":  now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("release milestone %s: %w", milestoneID, res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("milestone %s was released concurrently", milestoneID)
		}

		status := account.Status
		updates := map[string]any{
			"released_amount": released,
			"version":         account.Version + 1,
			"updated_at":      now,
		}
		if released.Equal(account.TotalAmount) {
			status = models.EscrowReleased
			updates["released_at"] = now
			account.ReleasedAt = &now
		} else if status == models.EscrowPending {
			status = models.EscrowFunded
			updates["funded_at"] = now
			account.FundedAt = &now
		}
		updates["status"] = status

		res = tx.Model(&models.EscrowAccount{}).
			Where("id = ? AND version = ? AND status = ?", account.ID, account.Version, account.Status).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update escrow account %s: %w", account.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("escrow account %s changed concurrently", account.ID)
		}

		milestone.Status = models.MilestoneReleased
		milestone.SellerNotes = notes
		milestone.ReleasedAt = &now
		milestone.UpdatedAt = now
		account.ReleasedAmount = released
		account.Status = status
		account.Version++
		account.UpdatedAt = now

		result = ReleaseResult{Milestone: *milestone, Account: *account}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyQuietly(ctx, s.notifier, Notice{
		UserID:  result.Account.BuyerID,
		Type:    models.NotificationFundsReleased,
		Title:   "Funds Released",
		Message: fmt.Sprintf("%s was released to the seller for milestone %q", result.Milestone.Amount.StringFixed(2), result.Milestone.Title),
		Payload: map[string]any{
			"escrow_account_id": result.Account.ID,
			"milestone_id":      result.Milestone.ID,
			"released_amount":   result.Account.ReleasedAmount.String(),
			"status":            result.Account.Status,
		},
	})
	return &result, nil
}

// Dispute freezes a pending or funded account. Either party may raise it.
func (s *EscrowService) Dispute(ctx context.Context, accountID, actorID string) (*models.EscrowAccount, error) {
	account, err := s.loadAccount(s.db.WithContext(ctx), accountID, clause.Locking{})
	if err != nil {
		return nil, err
	}
	if account.BuyerID != actorID && account.SellerID != actorID {
		return nil, Forbidden("you don't have access to this escrow account")
	}

	now := s.clock.now()
	account, err = s.transition(ctx, accountID,
		[]models.EscrowStatus{models.EscrowPending, models.EscrowFunded},
		models.EscrowDisputed,
		map[string]any{"disputed_at": now})
	if err != nil {
		return nil, err
	}

	counterparty := account.SellerID
	if actorID == account.SellerID {
		counterparty = account.BuyerID
	}
	notifyQuietly(ctx, s.notifier, Notice{
		UserID:  counterparty,
		Type:    models.NotificationEscrowDisputed,
		Title:   "Dispute Raised",
		Message: "The other party has raised a dispute. Fund releases are paused until it is resolved.",
		Payload: map[string]any{"escrow_account_id": account.ID, "raised_by": actorID},
	})
	return account, nil
}

// ResolveDispute ends a dispute either by resuming the account or refunding it.
func (s *EscrowService) ResolveDispute(ctx context.Context, accountID string, outcome DisputeOutcome) (*models.EscrowAccount, error) {
	account, err := s.loadAccount(s.db.WithContext(ctx), accountID, clause.Locking{})
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	var next models.EscrowStatus
	extra := map[string]any{}
	switch outcome {
	case DisputeResume:
		next = models.EscrowPending
		if account.FundedAt != nil {
			next = models.EscrowFunded
		}
	case DisputeRefund:
		next = models.EscrowRefunded
		extra["refunded_at"] = now
	default:
		return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown dispute outcome %q", outcome),
			Fields: map[string]string{"outcome": "must be resume or refund"}}
	}

	account, err = s.transition(ctx, accountID, []models.EscrowStatus{models.EscrowDisputed}, next, extra)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("The dispute has been resolved. The escrow account is now %s.", account.Status)
	notifyQuietly(ctx, s.notifier,
		Notice{UserID: account.BuyerID, Type: models.NotificationDisputeResolved, Title: "Dispute Resolved", Message: message,
			Payload: map[string]any{"escrow_account_id": account.ID, "outcome": outcome}},
		Notice{UserID: account.SellerID, Type: models.NotificationDisputeResolved, Title: "Dispute Resolved", Message: message,
			Payload: map[string]any{"escrow_account_id": account.ID, "outcome": outcome}},
	)
	return account, nil
}

// Refund returns the unreleased remainder to the buyer and closes the account.
func (s *EscrowService) Refund(ctx context.Context, accountID string) (*models.EscrowAccount, error) {
	now := s.clock.now()
	account, err := s.transition(ctx, accountID,
		[]models.EscrowStatus{models.EscrowPending, models.EscrowFunded, models.EscrowDisputed},
		models.EscrowRefunded,
		map[string]any{"refunded_at": now})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("The escrow account has been refunded. %s returns to the buyer.", account.Remaining().StringFixed(2))
	notifyQuietly(ctx, s.notifier,
		Notice{UserID: account.BuyerID, Type: models.NotificationEscrowRefunded, Title: "Escrow Refunded", Message: message,
			Payload: map[string]any{"escrow_account_id": account.ID, "refunded_amount": account.Remaining().String()}},
		Notice{UserID: account.SellerID, Type: models.NotificationEscrowRefunded, Title: "Escrow Refunded", Message: message,
			Payload: map[string]any{"escrow_account_id": account.ID}},
	)
	return account, nil
}

// transition moves an account to next when its status is one of from.
func (s *EscrowService) transition(ctx context.Context, accountID string, from []models.EscrowStatus, next models.EscrowStatus, extra map[string]any) (*models.EscrowAccount, error) {
	var account *models.EscrowAccount
	now := s.clock.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.loadAccount(tx, accountID, clause.Locking{Strength: "UPDATE"})
		if err != nil {
			return err
		}
		if !containsStatus(from, account.Status) {
			return Conflict("cannot move escrow account from %s to %s", account.Status, next)
		}

		updates := map[string]any{
			"status":     next,
			"version":    account.Version + 1,
			"updated_at": now,
		}
		for k, v := range extra {
			updates[k] = v
		}
		res := tx.Model(&models.EscrowAccount{}).
			Where("id = ? AND version = ? AND status IN ?", accountID, account.Version, from).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("move escrow account %s to %s: %w", accountID, next, res.Error)
		}
		if res.RowsAffected == 0 {
			return Conflict("escrow account %s changed concurrently", accountID)
		}
		return tx.First(account, "id = ?", accountID).Error
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *EscrowService) loadAccount(db *gorm.DB, id string, lock clause.Locking) (*models.EscrowAccount, error) {
	q := db
	if lock.Strength != "" {
		q = q.Clauses(lock)
	}
	var account models.EscrowAccount
	if err := q.First(&account, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "escrow account", id)
	}
	return &account, nil
}

// loadMilestone locks the milestone and its owning account for the transaction.
func (s *EscrowService) loadMilestone(tx *gorm.DB, id string) (*models.Milestone, *models.EscrowAccount, error) {
	var milestone models.Milestone
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&milestone, "id = ?", id).Error; err != nil {
		return nil, nil, lookupErr(err, "milestone", id)
	}
	account, err := s.loadAccount(tx, milestone.EscrowAccountID, clause.Locking{Strength: "UPDATE"})
	if err != nil {
		return nil, nil, err
	}
	return &milestone, account, nil
}

func containsStatus(set []models.EscrowStatus, s models.EscrowStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func escrowCreatedNotices(account *models.EscrowAccount) []Notice {
	payload := map[string]any{
		"escrow_account_id": account.ID,
		"offer_id":          account.OfferID,
		"total_amount":      account.TotalAmount.String(),
		"milestones":        len(account.Milestones),
	}
	return []Notice{
		{
			UserID:  account.BuyerID,
			Type:    models.NotificationEscrowCreated,
			Title:   "Escrow Account Opened",
			Message: fmt.Sprintf("An escrow account for %s has been opened. Fund it to start the work.", account.TotalAmount.StringFixed(2)),
			Payload: payload,
		},
		{
			UserID:  account.SellerID,
			Type:    models.NotificationEscrowCreated,
			Title:   "Escrow Account Opened",
			Message: fmt.Sprintf("An escrow account for %s has been opened for your offer.", account.TotalAmount.StringFixed(2)),
			Payload: payload,
		},
	}
}
