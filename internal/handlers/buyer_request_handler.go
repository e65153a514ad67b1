package handlers

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/services"
)

type BuyerRequestHandler struct {
	requests   *services.BuyerRequestService
	offers     *services.OfferService
	negotiator *services.Negotiator
}

func NewBuyerRequestHandler(requests *services.BuyerRequestService, offers *services.OfferService, negotiator *services.Negotiator) *BuyerRequestHandler {
	return &BuyerRequestHandler{requests: requests, offers: offers, negotiator: negotiator}
}

// CreateBuyerRequest opens a new request for the authenticated buyer
func (h *BuyerRequestHandler) CreateBuyerRequest(c *fiber.Ctx) error {
	req := new(services.CreateBuyerRequestInput)
	if err := c.BodyParser(req); err != nil {
		return badBody(c)
	}

	request, err := h.requests.Create(c.UserContext(), currentUser(c), *req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Buyer request created successfully",
		"buyer_request": request,
	})
}

func (h *BuyerRequestHandler) GetBuyerRequest(c *fiber.Ctx) error {
	request, err := h.requests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"buyer_request": request,
	})
}

// CloseBuyerRequest withdraws the request (owner only)
func (h *BuyerRequestHandler) CloseBuyerRequest(c *fiber.Ctx) error {
	request, err := h.negotiator.Close(c.UserContext(), c.Params("id"), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":       "Buyer request closed",
		"buyer_request": request,
	})
}

func (h *BuyerRequestHandler) DeleteBuyerRequest(c *fiber.Ctx) error {
	if err := h.requests.Delete(c.UserContext(), c.Params("id"), currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Buyer request deleted successfully",
	})
}

// GetOffers lists every offer made on the request
func (h *BuyerRequestHandler) GetOffers(c *fiber.Ctx) error {
	offers, err := h.offers.ListForRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"offers": offers,
		"count":  len(offers),
	})
}

// SubmitOffer places the authenticated seller's offer on the request
func (h *BuyerRequestHandler) SubmitOffer(c *fiber.Ctx) error {
	req := new(services.SubmitOfferInput)
	if err := c.BodyParser(req); err != nil {
		return badBody(c)
	}

	offer, err := h.negotiator.Submit(c.UserContext(), c.Params("id"), currentUser(c), *req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Offer submitted successfully",
		"offer":   offer,
	})
}
