package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/services"
)

// SweepRunner triggers an expiration sweep on demand.
type SweepRunner interface {
	RunOnce(ctx context.Context) (int64, error)
}

type BlockOfferRequest struct {
	Blocked *bool `json:"blocked"`
}

type ResolveDisputeRequest struct {
	Outcome services.DisputeOutcome `json:"outcome"`
}

type AdminHandler struct {
	offers  *services.OfferService
	escrow  *services.EscrowService
	sweeper SweepRunner
}

func NewAdminHandler(offers *services.OfferService, escrow *services.EscrowService, sweeper SweepRunner) *AdminHandler {
	return &AdminHandler{offers: offers, escrow: escrow, sweeper: sweeper}
}

// BlockOffer sets or clears the moderation flag (blocked defaults to true)
func (h *AdminHandler) BlockOffer(c *fiber.Ctx) error {
	req := new(BlockOfferRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return badBody(c)
		}
	}
	blocked := req.Blocked == nil || *req.Blocked

	offer, err := h.offers.SetBlocked(c.UserContext(), c.Params("id"), blocked)
	if err != nil {
		return respondError(c, err)
	}

	message := "Offer blocked"
	if !blocked {
		message = "Offer unblocked"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"offer":   offer,
	})
}

// ResolveDispute ends a dispute by resuming or refunding the account
func (h *AdminHandler) ResolveDispute(c *fiber.Ctx) error {
	req := new(ResolveDisputeRequest)
	if err := c.BodyParser(req); err != nil {
		return badBody(c)
	}

	account, err := h.escrow.ResolveDispute(c.UserContext(), c.Params("id"), req.Outcome)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Dispute resolved successfully",
		"escrow_account": account,
	})
}

func (h *AdminHandler) RefundEscrow(c *fiber.Ctx) error {
	account, err := h.escrow.Refund(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Escrow refunded successfully",
		"escrow_account": account,
	})
}

// RunSweep closes expired buyer requests now instead of waiting for the ticker
func (h *AdminHandler) RunSweep(c *fiber.Ctx) error {
	closed, err := h.sweeper.RunOnce(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Expired buyer requests closed",
		"closed":  closed,
	})
}
