package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/escrowdesk/backend/internal/chain"
	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/db"
	"github.com/escrowdesk/backend/internal/events"
	apphttp "github.com/escrowdesk/backend/internal/http"
	"github.com/escrowdesk/backend/internal/http/handlers"
	"github.com/escrowdesk/backend/internal/keycustody"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/escrowdesk/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, int32(cfg.PostgresMaxConns), log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Key custody
	custody, err := keycustody.NewService(cfg.MasterEncryptionKey)
	if err != nil {
		log.Fatal("failed to init key custody", zap.Error(err))
	}

	// Chain gateway
	gateway := chain.NewRPCClient(map[models.Asset]string{
		models.AssetBTC: cfg.ChainRPCBTC,
		models.AssetLTC: cfg.ChainRPCLTC,
	}, cfg.ChainRPCAPIKey, cfg.ChainRPCTimeout, log)

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	dealRepo := repositories.NewDealRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	txRepo := repositories.NewTransactionRepo(pool)
	payoutRepo := repositories.NewPayoutRepo(pool)
	referralRepo := repositories.NewReferralRepo(pool)
	statsRepo := repositories.NewStatsRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	escrowService := services.NewEscrowService(dealRepo, walletRepo, txRepo, payoutRepo, referralRepo, auditRepo, custody, gateway, publisher, cfg, log)
	walletService := services.NewWalletService(walletRepo, payoutRepo, auditRepo, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	userHandler := handlers.NewUserHandler(userRepo, log)
	dealHandler := handlers.NewDealHandler(escrowService, auditRepo, log)
	walletHandler := handlers.NewWalletHandler(walletService, log)
	adminHandler := handlers.NewAdminHandler(referralRepo, statsRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, userHandler, dealHandler, walletHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
