package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escrowdesk/backend/internal/chain"
	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/db"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/keycustody"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/escrowdesk/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, int32(cfg.PostgresMaxConns), log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	custody, err := keycustody.NewService(cfg.MasterEncryptionKey)
	if err != nil {
		log.Fatal("failed to init key custody", zap.Error(err))
	}

	gateway := chain.NewRPCClient(map[models.Asset]string{
		models.AssetBTC: cfg.ChainRPCBTC,
		models.AssetLTC: cfg.ChainRPCLTC,
	}, cfg.ChainRPCAPIKey, cfg.ChainRPCTimeout, log)

	// Repos
	dealRepo := repositories.NewDealRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	txRepo := repositories.NewTransactionRepo(pool)
	payoutRepo := repositories.NewPayoutRepo(pool)
	referralRepo := repositories.NewReferralRepo(pool)
	statsRepo := repositories.NewStatsRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	escrowService := services.NewEscrowService(dealRepo, walletRepo, txRepo, payoutRepo, referralRepo, auditRepo, custody, gateway, publisher, cfg, log)
	sweeper := services.NewSweeper(escrowService, dealRepo, txRepo, gateway, publisher, cfg, log)

	log.Info("worker started")

	paymentTicker := time.NewTicker(cfg.PaymentSweepInterval)
	expiryTicker := time.NewTicker(cfg.ExpirySweepInterval)
	reminderTicker := time.NewTicker(cfg.ReminderInterval)
	rollupTicker := time.NewTicker(cfg.StatsRollupInterval)
	defer paymentTicker.Stop()
	defer expiryTicker.Stop()
	defer reminderTicker.Stop()
	defer rollupTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-paymentTicker.C:
			if err := sweeper.SweepPayments(ctx); err != nil {
				log.Error("payment sweep failed", zap.Error(err))
			}
			if err := sweeper.RefreshTransactions(ctx); err != nil {
				log.Error("transaction refresh failed", zap.Error(err))
			}
		case <-expiryTicker.C:
			if err := sweeper.SweepExpiries(ctx); err != nil {
				log.Error("expiry sweep failed", zap.Error(err))
			}
		case <-reminderTicker.C:
			if err := sweeper.SweepReminders(ctx); err != nil {
				log.Error("reminder sweep failed", zap.Error(err))
			}
		case <-rollupTicker.C:
			runStatsRollup(ctx, statsRepo, auditRepo, cfg, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runStatsRollup recomputes yesterday's and today's daily aggregates, then
// prunes audit and stats rows past retention.
func runStatsRollup(ctx context.Context, statsRepo *repositories.StatsRepo, auditRepo *repositories.AuditRepo, cfg *config.Config, log *zap.Logger) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		if err := statsRepo.RollupDay(ctx, day); err != nil {
			log.Error("stats rollup failed", zap.Time("day", day), zap.Error(err))
		}
	}

	if cfg.AuditRetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.AuditRetentionDays)
		if n, err := auditRepo.Prune(ctx, cutoff); err != nil {
			log.Error("audit prune failed", zap.Error(err))
		} else if n > 0 {
			log.Info("pruned audit entries", zap.Int64("count", n))
		}
	}
	if cfg.StatsRetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.StatsRetentionDays)
		if n, err := statsRepo.Prune(ctx, cutoff); err != nil {
			log.Error("stats prune failed", zap.Error(err))
		} else if n > 0 {
			log.Info("pruned stats rows", zap.Int64("count", n))
		}
	}
}
