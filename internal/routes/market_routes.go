package routes

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/handlers"
)

func SetupMarketRoutes(app *fiber.App, requests *handlers.BuyerRequestHandler, offers *handlers.OfferHandler, auth fiber.Handler) {
	br := app.Group("/api/buyer-requests", auth)

	// Buyer posts a request
	br.Post("/", requests.CreateBuyerRequest)
	br.Get("/:id", requests.GetBuyerRequest)
	br.Post("/:id/close", requests.CloseBuyerRequest)
	br.Delete("/:id", requests.DeleteBuyerRequest)

	// Sellers respond with offers
	br.Get("/:id/offers", requests.GetOffers)
	br.Post("/:id/offers", requests.SubmitOffer)

	offer := app.Group("/api/offers", auth)
	offer.Get("/:id", offers.GetOffer)

	// Accept (opens the escrow) or reject (buyer)
	offer.Post("/:id/accept", offers.AcceptOffer)
	offer.Post("/:id/reject", offers.RejectOffer)
}
