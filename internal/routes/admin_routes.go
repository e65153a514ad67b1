package routes

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/handlers"
	"SafeDeal/internal/middleware"
)

func SetupAdminRoutes(app *fiber.App, h *handlers.AdminHandler, auth fiber.Handler) {
	// Protected admin routes
	admin := app.Group("/api/admin", auth, middleware.AdminOnly())

	// Moderation
	admin.Post("/offers/:id/block", h.BlockOffer)

	// Dispute Management
	admin.Post("/escrow/:id/resolve", h.ResolveDispute)
	admin.Post("/escrow/:id/refund", h.RefundEscrow)

	// Maintenance
	admin.Post("/sweep", h.RunSweep)
}
