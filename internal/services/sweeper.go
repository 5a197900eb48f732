package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/escrowdesk/backend/internal/chain"
	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/models"
)

const (
	sweepBatchSize = 200
	reminderLead   = 30 * time.Minute
)

// Sweeper runs the periodic reconciliation passes: payment detection, expiry,
// payment reminders and confirmation refresh. Each pass tolerates individual
// deal failures; a broken deal is retried on the next cycle.
type Sweeper struct {
	escrow    *EscrowService
	deals     DealStore
	txs       TransactionStore
	gateway   chain.Gateway
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewSweeper(escrow *EscrowService, deals DealStore, txs TransactionStore, gateway chain.Gateway, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *Sweeper {
	return &Sweeper{
		escrow:    escrow,
		deals:     deals,
		txs:       txs,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// forEachDeal fans deals out over a bounded worker group, pacing provider
// calls with the configured delay.
func (s *Sweeper) forEachDeal(ctx context.Context, deals []models.Deal, fn func(ctx context.Context, deal models.Deal) error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SweepConcurrency)
	for _, deal := range deals {
		deal := deal
		g.Go(func() error {
			if err := fn(ctx, deal); err != nil {
				s.log.Warn("sweep item failed",
					zap.String("deal_id", deal.ID.String()),
					zap.Error(err),
				)
			}
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.SweepCallDelay):
			}
			return nil
		})
	}
	_ = g.Wait()
}

// SweepPayments polls every deal waiting for payment.
func (s *Sweeper) SweepPayments(ctx context.Context) error {
	deals, err := s.deals.ListByStatus(ctx, models.DealStatusWaitingPayment, sweepBatchSize)
	if err != nil {
		return err
	}
	s.forEachDeal(ctx, deals, func(ctx context.Context, deal models.Deal) error {
		_, err := s.escrow.CheckPayment(ctx, deal.ID)
		return err
	})
	return nil
}

// SweepExpiries closes payment windows past their deadline.
func (s *Sweeper) SweepExpiries(ctx context.Context) error {
	deals, err := s.deals.ListExpired(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return err
	}
	s.forEachDeal(ctx, deals, func(ctx context.Context, deal models.Deal) error {
		return s.escrow.ExpireDeal(ctx, deal.ID)
	})
	return nil
}

// SweepReminders nudges buyers whose payment window closes soon.
func (s *Sweeper) SweepReminders(ctx context.Context) error {
	deals, err := s.deals.ListNeedingReminder(ctx, time.Now(), reminderLead, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, deal := range deals {
		payload := map[string]any{
			"deal_id":     deal.ID.String(),
			"deal_number": deal.DealNumber,
			"status":      deal.Status,
		}
		if deal.ExpiresAt != nil {
			payload["expires_at"] = deal.ExpiresAt.UTC().Format(time.RFC3339)
		}
		if err := s.publisher.Publish(ctx, events.DealStream, events.Event{
			Type:    events.EventPaymentReminder,
			Payload: payload,
		}); err != nil {
			s.log.Warn("reminder publish failed", zap.String("deal_id", deal.ID.String()), zap.Error(err))
			continue
		}
		if err := s.deals.SetReminded(ctx, deal.ID); err != nil {
			s.log.Warn("reminder mark failed", zap.String("deal_id", deal.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// RefreshTransactions advances confirmation counts on broadcast transactions
// and marks them confirmed once the per-asset threshold is met.
func (s *Sweeper) RefreshTransactions(ctx context.Context) error {
	pending, err := s.txs.ListPending(ctx, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, tx := range pending {
		if tx.TxHash == nil {
			continue
		}
		confirmations, err := s.gateway.GetConfirmations(ctx, *tx.TxHash, tx.Asset)
		if err != nil {
			s.log.Debug("confirmation poll failed",
				zap.String("tx_hash", *tx.TxHash),
				zap.Error(err),
			)
			continue
		}
		if confirmations == tx.Confirmations {
			continue
		}
		status := tx.Status
		required := s.cfg.ConfirmationsBTC
		if tx.Asset == models.AssetLTC {
			required = s.cfg.ConfirmationsLTC
		}
		if confirmations >= required {
			status = models.TxStatusConfirmed
		}
		if err := s.txs.UpdateConfirmations(ctx, tx.ID, confirmations, status); err != nil {
			s.log.Warn("confirmation update failed", zap.String("tx_hash", *tx.TxHash), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.SweepCallDelay):
		}
	}
	return nil
}
