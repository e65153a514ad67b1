// Package server assembles the services, jobs and HTTP routes into one
// runnable unit.
package server

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"SafeDeal/internal/config"
	"SafeDeal/internal/handlers"
	"SafeDeal/internal/jobs"
	"SafeDeal/internal/middleware"
	"SafeDeal/internal/routes"
	"SafeDeal/internal/services"
)

// Server owns everything started by serve.
type Server struct {
	App        *fiber.App
	Sweeper    *jobs.ExpirySweeper
	Dispatcher *services.Dispatcher

	Requests      *services.BuyerRequestService
	Offers        *services.OfferService
	Escrow        *services.EscrowService
	Negotiator    *services.Negotiator
	Notifications *services.NotificationService

	cfg config.Config
}

// Options lets callers replace the wall clock and the external collaborators.
type Options struct {
	Clock    services.Clock
	Payments services.PaymentVerifier
	Checkout handlers.PaymentInitializer
	// Channels are extra notifiers added next to the in-app one.
	Channels []services.Notifier
}

// New wires the services over db. Paystack and Resend are enabled when their
// keys are configured unless opts already supplies replacements.
func New(cfg config.Config, db *gorm.DB, opts Options) *Server {
	clock := opts.Clock
	if clock == nil {
		clock = services.SystemClock
	}

	contacts := services.NewContactDirectory(db)
	notifications := services.NewNotificationService(db)

	channels := services.FanOut{notifications}
	channels = append(channels, opts.Channels...)
	if cfg.ResendAPIKey != "" {
		channels = append(channels, services.NewEmailService(cfg.ResendAPIKey, cfg.FromEmail, contacts))
	}
	dispatcher := services.NewDispatcher(channels, cfg.NotifyWorkers, cfg.NotifyQueue)

	payments, checkout := opts.Payments, opts.Checkout
	if cfg.PaystackSecretKey != "" {
		paystack := services.NewPaystackService(cfg.PaystackSecretKey, cfg.PaystackBaseURL)
		if payments == nil {
			payments = paystack
		}
		if checkout == nil {
			checkout = paystack
		}
	} else if payments == nil {
		log.Println("⚠️  PAYSTACK_SECRET_KEY not set, escrow funding is disabled")
	}

	requests := services.NewBuyerRequestService(db, clock, cfg.RequestExpiry)
	offers := services.NewOfferService(db, clock, requests)
	escrow := services.NewEscrowService(db, clock, dispatcher, payments)
	negotiator := services.NewNegotiator(db, requests, offers, escrow, dispatcher)
	sweeper := jobs.NewExpirySweeper(requests, clock, cfg.SweepInterval)

	app := fiber.New(fiber.Config{
		AppName: "SafeDeal API v1.0",
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to SafeDeal API",
			"status":  "running",
			"version": "1.0",
		})
	})

	routes.SetupRoutes(app, routes.Handlers{
		BuyerRequests: handlers.NewBuyerRequestHandler(requests, offers, negotiator),
		Offers:        handlers.NewOfferHandler(offers, negotiator),
		Escrow:        handlers.NewEscrowHandler(escrow, checkout),
		Notifications: handlers.NewNotificationHandler(notifications),
		Admin:         handlers.NewAdminHandler(offers, escrow, sweeper),
	}, middleware.Protected(cfg.JWTSecret, contacts))

	return &Server{
		App:           app,
		Sweeper:       sweeper,
		Dispatcher:    dispatcher,
		Requests:      requests,
		Offers:        offers,
		Escrow:        escrow,
		Negotiator:    negotiator,
		Notifications: notifications,
		cfg:           cfg,
	}
}

// Run serves HTTP and sweeps until ctx is cancelled, then shuts down in order:
// stop accepting requests, stop the sweeper, flush pending notifications.
func (s *Server) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.Sweeper.Run(sweepCtx)
	}()

	errc := make(chan error, 1)
	go func() {
		log.Printf("🚀 SafeDeal server starting on http://localhost:%s", s.cfg.Port)
		errc <- s.App.Listen(":" + s.cfg.Port)
	}()

	var err error
	select {
	case <-ctx.Done():
		log.Println("🛑 Shutting down...")
		err = s.App.Shutdown()
	case err = <-errc:
	}

	stopSweep()
	<-sweepDone
	s.Dispatcher.Close()
	return err
}

// Close releases background workers without serving.
func (s *Server) Close() {
	s.Dispatcher.Close()
}
