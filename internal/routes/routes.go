// Package routes wires repositories, services and handlers onto the
// fiber app. It owns construction order: ledger and escrow first, then
// the orchestrators that compose them.
package routes

import (
	"relist/internal/config"
	"relist/internal/handlers"
	"relist/internal/middleware"
	"relist/internal/models"
	"relist/internal/repositories"
	"relist/internal/services/appointment"
	"relist/internal/services/auth"
	"relist/internal/services/deposit"
	"relist/internal/services/escrow"
	"relist/internal/services/gateway"
	"relist/internal/services/ledger"
	"relist/internal/services/listing"
	"relist/internal/services/notification"
	"relist/internal/services/settlement"
	"relist/internal/services/sweeper"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/sirupsen/logrus"
)

// Core holds the long-lived collaborators the server entrypoint needs
// beyond request handling, most notably the sweeper.
type Core struct {
	Sweeper *sweeper.Sweeper
}

// SetupRoutes builds the full service graph and registers every route.
func SetupRoutes(app *fiber.App, log *logrus.Logger) *Core {
	// Repositories
	walletRepo := repositories.NewWalletRepository(repositories.DB)
	userRepo := repositories.NewUserRepository(repositories.DB)
	depositRepo := repositories.NewDepositRepository(repositories.DB)
	appointmentRepo := repositories.NewAppointmentRepository(repositories.DB)
	escrowRepo := repositories.NewEscrowRepository(repositories.DB)
	paymentRepo := repositories.NewPaymentRepository(repositories.DB)
	listingRepo := repositories.NewListingRepository(repositories.DB)

	// Leaf services
	authService := auth.NewService(userRepo)
	ledgerService := ledger.NewService(walletRepo, repositories.CacheService, log)
	escrowService := escrow.NewService(escrowRepo)
	listingService := listing.NewService(listingRepo)
	notifier := notification.NewService(log)

	// Orchestrators
	depositService := deposit.NewService(
		depositRepo, appointmentRepo, ledgerService, escrowService,
		listingService, notifier, log,
	)
	settlementService := settlement.NewService(
		appointmentRepo, depositRepo, paymentRepo, ledgerService,
		escrowService, listingService, notifier,
		settlement.Config{PlatformShareCap: config.GetInt64Env("PLATFORM_SHARE_CAP", settlement.DefaultPlatformShareCap)},
		log,
	)
	appointmentService := appointment.NewService(appointmentRepo, settlementService, notifier, log)
	gatewayService := gateway.NewService(
		gateway.Config{
			PayURL:       config.GetEnv("GATEWAY_PAY_URL", "https://pay.example/checkout"),
			MerchantCode: config.GetEnv("GATEWAY_MERCHANT_CODE", ""),
			Secret:       config.GetEnv("GATEWAY_SECRET", ""),
			ReturnURL:    config.GetEnv("GATEWAY_RETURN_URL", ""),
		},
		paymentRepo, appointmentRepo, depositRepo, listingRepo,
		settlementService, notifier, log,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(ledgerService, paymentRepo)
	depositHandler := handlers.NewDepositHandler(depositService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	paymentHandler := handlers.NewPaymentHandler(gatewayService)
	adminHandler := handlers.NewAdminHandler(depositRepo, appointmentRepo, walletRepo, ledgerService)

	authMiddleware := middleware.NewAuthMiddleware(authService, log)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")

	// Auth, rate limited to slow credential stuffing.
	authLimiter := limiter.New(limiter.Config{Max: 10})
	api.Post("/register", authLimiter, authHandler.Register)
	api.Post("/login", authLimiter, authHandler.Login)
	api.Post("/refresh", authLimiter, authHandler.Refresh)

	// Gateway callbacks carry their own HMAC; they stay outside the
	// session middleware.
	api.Get("/payments/callback", paymentHandler.Callback)
	api.Post("/payments/ipn", paymentHandler.IPN)

	authed := api.Use(authMiddleware.Handler)
	authed.Post("/logout", authHandler.Logout)

	wallet := authed.Group("/wallet", middleware.RequirePermission(models.PermissionWalletRead))
	wallet.Get("/", walletHandler.GetWallet)
	wallet.Post("/topup", middleware.RequirePermission(models.PermissionWalletWrite), walletHandler.TopUp)
	wallet.Get("/transactions", walletHandler.ListPayments)

	deposits := authed.Group("/deposits", middleware.RequirePermission(models.PermissionDepositRead))
	deposits.Post("/", middleware.RequirePermission(models.PermissionDepositWrite), depositHandler.Create)
	deposits.Get("/:id", depositHandler.Get)
	deposits.Post("/:id/confirm", middleware.RequirePermission(models.PermissionDepositWrite), depositHandler.SellerConfirm)
	deposits.Post("/:id/cancel", middleware.RequirePermission(models.PermissionDepositWrite), depositHandler.Cancel)

	appointments := authed.Group("/appointments")
	appointments.Get("/:id", appointmentHandler.Get)
	appointments.Post("/:id/confirm", appointmentHandler.Confirm)
	appointments.Post("/:id/reject", appointmentHandler.Reject)
	appointments.Post("/:id/cancel", appointmentHandler.Cancel)

	authed.Post("/payments/:appointmentID/url", paymentHandler.CreatePaymentURL)

	admin := authed.Group("/admin", middleware.AdminOnly)
	admin.Get("/deposits", adminHandler.ListDeposits)
	admin.Get("/appointments", adminHandler.ListAppointments)
	admin.Get("/platform-wallet", adminHandler.GetPlatformWallet)
	admin.Get("/platform-wallet/transactions", adminHandler.ListPlatformTransactions)

	return &Core{
		Sweeper: sweeper.New(
			sweeper.Config{
				Interval:        config.GetDurationEnv("SWEEP_INTERVAL", sweeper.DefaultInterval),
				PaymentDeadline: config.GetDurationEnv("PAYMENT_DEADLINE", sweeper.DefaultPaymentDeadline),
				ReminderWindow:  config.GetDurationEnv("REMINDER_WINDOW", sweeper.DefaultReminderWindow),
			},
			appointmentRepo, settlementService, depositService, notifier, log,
		),
	}
}
