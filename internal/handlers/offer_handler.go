package handlers

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/services"
)

type AcceptOfferRequest struct {
	Milestones []services.MilestoneInput `json:"milestones"`
}

type OfferHandler struct {
	offers     *services.OfferService
	negotiator *services.Negotiator
}

func NewOfferHandler(offers *services.OfferService, negotiator *services.Negotiator) *OfferHandler {
	return &OfferHandler{offers: offers, negotiator: negotiator}
}

func (h *OfferHandler) GetOffer(c *fiber.Ctx) error {
	offer, err := h.offers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"offer": offer,
	})
}

// AcceptOffer closes the negotiation and opens the escrow account. The body is
// optional; without milestones the full price is held in a single milestone.
func (h *OfferHandler) AcceptOffer(c *fiber.Ctx) error {
	req := new(AcceptOfferRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return badBody(c)
		}
	}

	result, err := h.negotiator.Accept(c.UserContext(), c.Params("id"), currentUser(c), req.Milestones)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Offer accepted successfully",
		"offer":           result.Offer,
		"buyer_request":   result.BuyerRequest,
		"escrow_account":  result.Account,
		"rejected_offers": len(result.Rejected),
	})
}

func (h *OfferHandler) RejectOffer(c *fiber.Ctx) error {
	offer, err := h.negotiator.Reject(c.UserContext(), c.Params("id"), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Offer rejected",
		"offer":   offer,
	})
}
