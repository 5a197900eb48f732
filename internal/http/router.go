package http

import (
	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/http/handlers"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	dealHandler *handlers.DealHandler,
	walletHandler *handlers.WalletHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/telegram", authHandler.TelegramAuth)

	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// User
	protected.Get("/me", userHandler.GetMe)
	protected.Post("/me/ping", userHandler.Ping)

	// User wallets
	protected.Post("/me/wallets", walletHandler.AddWallet)
	protected.Get("/me/wallets", walletHandler.ListWallets)
	protected.Delete("/me/wallets/:id", walletHandler.RemoveWallet)

	// Deals
	protected.Post("/deals", dealHandler.CreateDeal)
	protected.Get("/deals", dealHandler.ListDeals)
	protected.Get("/deals/by-number/:number", dealHandler.GetDealByNumber)
	protected.Get("/deals/:id", dealHandler.GetDeal)
	protected.Post("/deals/:id/wallet", dealHandler.BindWallet)
	protected.Post("/deals/:id/escrow", dealHandler.GenerateEscrow)
	protected.Get("/deals/:id/payment", dealHandler.GetPaymentInfo)
	protected.Post("/deals/:id/release", dealHandler.Release)
	protected.Post("/deals/:id/cancel", dealHandler.Cancel)
	protected.Post("/deals/:id/dispute", dealHandler.OpenDispute)
	protected.Post("/deals/:id/extend", dealHandler.Extend)
	protected.Get("/deals/:id/transactions", dealHandler.ListTransactions)

	// Admin
	admin := protected.Group("/admin", middleware.AdminMiddleware(cfg))
	admin.Post("/deals/:id/release", dealHandler.AdminRelease)
	admin.Post("/deals/:id/resolve-dispute", dealHandler.ResolveDispute)
	admin.Get("/deals/:id/audit", dealHandler.AuditTrail)
	admin.Post("/payout-wallets", walletHandler.AddPayoutWallet)
	admin.Get("/payout-wallets", walletHandler.ListPayoutWallets)
	admin.Post("/payout-wallets/:id/default", walletHandler.SetDefaultPayoutWallet)
	admin.Delete("/payout-wallets/:id", walletHandler.DeactivatePayoutWallet)
	admin.Post("/referral-groups", adminHandler.CreateReferralGroup)
	admin.Get("/referral-groups", adminHandler.ListReferralGroups)
	admin.Put("/referral-groups/:id/payout-address", adminHandler.UpdateReferralPayout)
	admin.Get("/stats", adminHandler.GetStats)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
