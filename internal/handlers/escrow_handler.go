package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SafeDeal/internal/models"
	"SafeDeal/internal/services"
)

// PaymentInitializer starts a checkout with the payment provider.
type PaymentInitializer interface {
	InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference, callbackURL string) (*services.InitializePaymentResponse, error)
}

type FundEscrowRequest struct {
	Reference string `json:"reference"`
}

type InitializeFundingRequest struct {
	CallbackURL string `json:"callback_url"`
}

type ApproveMilestoneRequest struct {
	Approved *bool  `json:"approved"`
	Notes    string `json:"notes"`
}

type ReleaseMilestoneRequest struct {
	Notes string `json:"notes"`
}

type EscrowHandler struct {
	escrow   *services.EscrowService
	payments PaymentInitializer
}

// NewEscrowHandler wires the handler. payments may be nil when no payment
// provider is configured.
func NewEscrowHandler(escrow *services.EscrowService, payments PaymentInitializer) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, payments: payments}
}

// GetEscrowByID returns an account to one of its parties
func (h *EscrowHandler) GetEscrowByID(c *fiber.Ctx) error {
	account, err := h.escrow.GetAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if !canView(c, account) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this escrow",
		})
	}
	return c.JSON(fiber.Map{
		"escrow_account": account,
	})
}

func (h *EscrowHandler) GetEscrowByOffer(c *fiber.Ctx) error {
	account, err := h.escrow.GetAccountByOffer(c.UserContext(), c.Params("offerId"))
	if err != nil {
		return respondError(c, err)
	}
	if !canView(c, account) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this escrow",
		})
	}
	return c.JSON(fiber.Map{
		"escrow_account": account,
	})
}

// InitializeFunding starts a Paystack checkout for the account's total. The
// returned reference is later passed to FundEscrow.
func (h *EscrowHandler) InitializeFunding(c *fiber.Ctx) error {
	if h.payments == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Payment provider is not configured",
		})
	}
	req := new(InitializeFundingRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return badBody(c)
		}
	}

	email, _ := c.Locals("email").(string)
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "An email address is required to start a payment",
		})
	}

	reference := "SD-" + uuid.NewString()
	account, err := h.escrow.RecordCheckout(c.UserContext(), c.Params("id"), currentUser(c), reference)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := h.payments.InitializePayment(c.UserContext(), email, account.TotalAmount, reference, req.CallbackURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to initialize payment",
		})
	}

	return c.JSON(fiber.Map{
		"message":           "Payment initialized",
		"reference":         resp.Data.Reference,
		"authorization_url": resp.Data.AuthorizationURL,
		"access_code":       resp.Data.AccessCode,
	})
}

// FundEscrow verifies the payment reference and marks the account funded
func (h *EscrowHandler) FundEscrow(c *fiber.Ctx) error {
	req := new(FundEscrowRequest)
	if err := c.BodyParser(req); err != nil {
		return badBody(c)
	}

	account, err := h.escrow.Fund(c.UserContext(), c.Params("id"), currentUser(c), req.Reference)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Escrow funded successfully",
		"escrow_account": account,
	})
}

// ApproveMilestone records the buyer's verdict (approved defaults to true)
func (h *EscrowHandler) ApproveMilestone(c *fiber.Ctx) error {
	req := new(ApproveMilestoneRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return badBody(c)
		}
	}
	approved := req.Approved == nil || *req.Approved

	milestone, err := h.escrow.ApproveMilestone(c.UserContext(), c.Params("id"), currentUser(c), approved, req.Notes)
	if err != nil {
		return respondError(c, err)
	}

	message := "Milestone approved"
	if !approved {
		message = "Milestone rejected"
	}
	return c.JSON(fiber.Map{
		"message":   message,
		"milestone": milestone,
	})
}

// ReleaseMilestone pays out an approved milestone to the seller
func (h *EscrowHandler) ReleaseMilestone(c *fiber.Ctx) error {
	req := new(ReleaseMilestoneRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return badBody(c)
		}
	}

	result, err := h.escrow.ReleaseFunds(c.UserContext(), c.Params("id"), currentUser(c), req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Funds released successfully",
		"milestone":      result.Milestone,
		"escrow_account": result.Account,
	})
}

func (h *EscrowHandler) DisputeEscrow(c *fiber.Ctx) error {
	account, err := h.escrow.Dispute(c.UserContext(), c.Params("id"), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Dispute raised. Releases are paused until an admin resolves it.",
		"escrow_account": account,
	})
}

func canView(c *fiber.Ctx, account *models.EscrowAccount) bool {
	userID := currentUser(c)
	if role, _ := c.Locals("role").(string); role == "admin" {
		return true
	}
	return account.BuyerID == userID || account.SellerID == userID
}
