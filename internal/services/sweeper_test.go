package services

import (
	"context"
	"testing"
	"time"

	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/models"
)

func newTestSweeper(e *testEnv) *Sweeper {
	return NewSweeper(e.svc, e.deals, e.txs, e.gateway, e.publisher, e.cfg, e.svc.log)
}

func TestSweepPayments(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	funded, _, _ := e.newWaitingDeal(t, "100")
	empty, _, _ := e.newWaitingDeal(t, "100")
	e.gateway.fund(*funded.EscrowAddress, funded.Amount)

	if err := newTestSweeper(e).SweepPayments(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, _ := e.svc.GetDeal(ctx, funded.ID)
	if got.Status != models.DealStatusFunded {
		t.Errorf("credited deal status = %s, want funded", got.Status)
	}
	got, _ = e.svc.GetDeal(ctx, empty.ID)
	if got.Status != models.DealStatusWaitingPayment {
		t.Errorf("empty deal status = %s, want waiting_payment", got.Status)
	}
}

func TestSweepExpiries(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	overdue, _, _ := e.newWaitingDeal(t, "100")
	fresh, _, _ := e.newWaitingDeal(t, "100")

	past := time.Now().Add(-time.Minute)
	e.deals.mu.Lock()
	e.deals.deals[overdue.ID].ExpiresAt = &past
	e.deals.mu.Unlock()

	if err := newTestSweeper(e).SweepExpiries(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, _ := e.svc.GetDeal(ctx, overdue.ID)
	if got.Status != models.DealStatusExpired {
		t.Errorf("overdue deal status = %s, want expired", got.Status)
	}
	got, _ = e.svc.GetDeal(ctx, fresh.ID)
	if got.Status != models.DealStatusWaitingPayment {
		t.Errorf("fresh deal status = %s, want waiting_payment", got.Status)
	}
}

func TestSweepReminders(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	soon, _, _ := e.newWaitingDeal(t, "100")
	closing := time.Now().Add(10 * time.Minute)
	e.deals.mu.Lock()
	e.deals.deals[soon.ID].ExpiresAt = &closing
	e.deals.mu.Unlock()

	sweeper := newTestSweeper(e)
	if err := sweeper.SweepReminders(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n := len(e.publisher.byType(events.EventPaymentReminder)); n != 1 {
		t.Fatalf("reminder events = %d, want 1", n)
	}

	// Reminded deals are not nudged twice.
	if err := sweeper.SweepReminders(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n := len(e.publisher.byType(events.EventPaymentReminder)); n != 1 {
		t.Errorf("reminder events after second sweep = %d, want 1", n)
	}
}

func TestRefreshTransactions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	deal, buyer, _ := e.newFundedDeal(t, "200")

	if _, err := e.svc.ReleaseFunds(ctx, deal.ID, buyer, ActorUser); err != nil {
		t.Fatalf("release: %v", err)
	}

	pending, err := e.txs.ListPending(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %d (%v), want 1", len(pending), err)
	}
	e.gateway.mu.Lock()
	e.gateway.confirms[*pending[0].TxHash] = 3
	e.gateway.mu.Unlock()

	if err := newTestSweeper(e).RefreshTransactions(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	txs, _ := e.txs.ListByDeal(ctx, deal.ID)
	for _, tx := range txs {
		if tx.Type != models.TxTypeRelease {
			continue
		}
		if tx.Confirmations != 3 {
			t.Errorf("confirmations = %d, want 3", tx.Confirmations)
		}
		if tx.Status != models.TxStatusConfirmed {
			t.Errorf("status = %s, want confirmed", tx.Status)
		}
	}
}
