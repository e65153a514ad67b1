package routes

import (
	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/handlers"
)

// Handlers groups everything the API mounts.
type Handlers struct {
	BuyerRequests *handlers.BuyerRequestHandler
	Offers        *handlers.OfferHandler
	Escrow        *handlers.EscrowHandler
	Notifications *handlers.NotificationHandler
	Admin         *handlers.AdminHandler
}

// SetupRoutes mounts every group. auth is the middleware.Protected handler.
func SetupRoutes(app *fiber.App, h Handlers, auth fiber.Handler) {
	api := app.Group("/api")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "SafeDeal",
		})
	})

	SetupMarketRoutes(app, h.BuyerRequests, h.Offers, auth)
	SetupEscrowRoutes(app, h.Escrow, auth)
	SetupNotificationRoutes(app, h.Notifications, auth)
	SetupAdminRoutes(app, h.Admin, auth)
}
