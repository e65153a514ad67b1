package routes

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/handlers"
)

func SetupEscrowRoutes(app *fiber.App, h *handlers.EscrowHandler, auth fiber.Handler) {
	escrow := app.Group("/api/escrow", auth)

	escrow.Get("/offer/:offerId", h.GetEscrowByOffer)
	escrow.Get("/:id", h.GetEscrowByID)

	// Funding (buyer)
	escrow.Post("/:id/initialize-payment", h.InitializeFunding)
	escrow.Post("/:id/fund", h.FundEscrow)

	// Either party may raise a dispute
	escrow.Post("/:id/dispute", h.DisputeEscrow)

	// Milestones: buyer approves, seller releases
	escrow.Post("/milestones/:id/approve", h.ApproveMilestone)
	escrow.Post("/milestones/:id/release", h.ReleaseMilestone)
}
