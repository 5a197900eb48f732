package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/escrowdesk/backend/internal/chain"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
)

// In-memory store fakes mirroring the conditional-update semantics of the
// pgx repositories. The deal store mutex stands in for the row lock: it is
// held across ReleaseWithBroadcast just like the database transaction.

type fakeTransactionStore struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (f *fakeTransactionStore) Create(ctx context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	f.txs = append(f.txs, *t)
	return nil
}

func (f *fakeTransactionStore) append(t *models.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	f.txs = append(f.txs, *t)
}

func (f *fakeTransactionStore) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.txs {
		if t.DealID == dealID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) ListPending(ctx context.Context, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.txs {
		if t.Status == models.TxStatusPending && t.TxHash != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) UpdateConfirmations(ctx context.Context, id uuid.UUID, confirmations int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.txs {
		if f.txs[i].ID == id {
			f.txs[i].Confirmations = confirmations
			f.txs[i].Status = status
		}
	}
	return nil
}

func (f *fakeTransactionStore) countByType(dealID uuid.UUID, txType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.txs {
		if t.DealID == dealID && t.Type == txType {
			n++
		}
	}
	return n
}

type fakeDealStore struct {
	mu    sync.Mutex
	deals map[uuid.UUID]*models.Deal
	users map[uuid.UUID]*models.User
	txs   *fakeTransactionStore
}

func newFakeDealStore(txs *fakeTransactionStore) *fakeDealStore {
	return &fakeDealStore{
		deals: map[uuid.UUID]*models.Deal{},
		users: map[uuid.UUID]*models.User{},
		txs:   txs,
	}
}

func (f *fakeDealStore) seedUser(id uuid.UUID) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: id}
	f.users[id] = u
	return u
}

func (f *fakeDealStore) Create(ctx context.Context, d *models.Deal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	f.deals[d.ID] = &cp
	return nil
}

func (f *fakeDealStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDealStore) GetByNumber(ctx context.Context, number string) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deals {
		if d.DealNumber == number {
			cp := *d
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeDealStore) List(ctx context.Context, filter repositories.DealFilter) ([]models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deal
	for _, d := range f.deals {
		if filter.UserID != nil && !isParticipant(d, *filter.UserID) {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDealStore) ClaimRole(ctx context.Context, id uuid.UUID, role string, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok {
		return false, nil
	}
	holder, other := &d.BuyerID, d.SellerID
	if role == models.RoleSeller {
		holder, other = &d.SellerID, d.BuyerID
	}
	if *holder != nil {
		return false, nil
	}
	if other != nil && *other == userID {
		return false, nil
	}
	uid := userID
	*holder = &uid
	return true, nil
}

func (f *fakeDealStore) SetEscrow(ctx context.Context, id uuid.UUID, address, privateKeyEnc string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || d.EscrowAddress != nil {
		return false, nil
	}
	d.EscrowAddress = &address
	d.EscrowPrivateKeyEnc = &privateKeyEnc
	return true, nil
}

func (f *fakeDealStore) MarkWaitingPayment(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || d.Status != models.DealStatusPending {
		return false, nil
	}
	d.Status = models.DealStatusWaitingPayment
	d.ExpiresAt = &expiresAt
	return true, nil
}

func (f *fakeDealStore) MarkFunded(ctx context.Context, id uuid.UUID, confirmations int, deposit *models.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || d.Status != models.DealStatusWaitingPayment {
		return false, nil
	}
	d.Status = models.DealStatusFunded
	d.ConfirmationsRec = confirmations
	f.txs.append(deposit)
	return true, nil
}

func (f *fakeDealStore) Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || (d.Status != models.DealStatusPending && d.Status != models.DealStatusWaitingPayment) {
		return false, nil
	}
	now := time.Now()
	d.Status = models.DealStatusCancelled
	d.CancelReason = reason
	d.CancelledAt = &now
	return true, nil
}

func (f *fakeDealStore) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || d.Status != models.DealStatusWaitingPayment {
		return false, nil
	}
	d.Status = models.DealStatusExpired
	return true, nil
}

func (f *fakeDealStore) SetDisputed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || d.IsDisputed || (d.Status != models.DealStatusWaitingPayment && d.Status != models.DealStatusFunded) {
		return false, nil
	}
	d.IsDisputed = true
	d.DisputeReason = &reason
	return true, nil
}

func (f *fakeDealStore) ClearDisputed(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || !d.IsDisputed {
		return false, nil
	}
	d.IsDisputed = false
	d.DisputeReason = nil
	return true, nil
}

func (f *fakeDealStore) ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time, timeoutMinutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[id]
	if !ok || d.Status != models.DealStatusWaitingPayment {
		return false, nil
	}
	d.ExpiresAt = &expiresAt
	d.TimeoutMinutes = timeoutMinutes
	d.RemindedAt = nil
	return true, nil
}

func (f *fakeDealStore) SetReminded(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.deals[id]; ok {
		now := time.Now()
		d.RemindedAt = &now
	}
	return nil
}

func (f *fakeDealStore) ListByStatus(ctx context.Context, status string, limit int) ([]models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deal
	for _, d := range f.deals {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDealStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deal
	for _, d := range f.deals {
		if d.Status == models.DealStatusWaitingPayment && d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDealStore) ListNeedingReminder(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Deal
	for _, d := range f.deals {
		if d.Status != models.DealStatusWaitingPayment || d.RemindedAt != nil || d.ExpiresAt == nil {
			continue
		}
		if d.ExpiresAt.After(now) && d.ExpiresAt.Before(now.Add(lead)) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDealStore) ReleaseWithBroadcast(ctx context.Context, p repositories.ReleaseParams, broadcast func(ctx context.Context) (string, error)) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deals[p.DealID]
	if !ok || d.Status != models.DealStatusFunded || d.IsDisputed {
		return false, nil
	}

	txHash, err := broadcast(ctx)
	if err != nil {
		return false, err
	}

	now := time.Now()
	d.Status = models.DealStatusReleased
	d.ReleasedAt = &now
	p.Release.TxHash = &txHash
	f.txs.append(p.Release)

	for _, userID := range []*uuid.UUID{p.BuyerID, p.SellerID} {
		if userID == nil {
			continue
		}
		u, ok := f.users[*userID]
		if !ok {
			continue
		}
		u.SuccessfulDeals++
		u.Reputation++
		if p.Asset == models.AssetLTC {
			u.TotalVolumeLTC = u.TotalVolumeLTC.Add(p.Amount)
		} else {
			u.TotalVolumeBTC = u.TotalVolumeBTC.Add(p.Amount)
		}
	}
	return true, nil
}

type fakeWalletStore struct {
	mu          sync.Mutex
	wallets     map[uuid.UUID]*models.Wallet
	dealWallets map[uuid.UUID]map[string]*models.DealWalletWithAddress
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{
		wallets:     map[uuid.UUID]*models.Wallet{},
		dealWallets: map[uuid.UUID]map[string]*models.DealWalletWithAddress{},
	}
}

func (f *fakeWalletStore) Add(ctx context.Context, w *models.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.ID = uuid.New()
	w.IsActive = true
	w.CreatedAt = time.Now()
	cp := *w
	f.wallets[w.ID] = &cp
	return nil
}

func (f *fakeWalletStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletStore) ListByUser(ctx context.Context, userID uuid.UUID, asset *models.Asset) ([]models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Wallet
	for _, w := range f.wallets {
		if w.UserID != userID || !w.IsActive {
			continue
		}
		if asset != nil && w.Asset != *asset {
			continue
		}
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeWalletStore) Deactivate(ctx context.Context, userID, walletID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.wallets[walletID]; ok && w.UserID == userID {
		w.IsActive = false
	}
	return nil
}

func (f *fakeWalletStore) BindDealWallet(ctx context.Context, dw *models.DealWallet) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byRole, ok := f.dealWallets[dw.DealID]
	if !ok {
		byRole = map[string]*models.DealWalletWithAddress{}
		f.dealWallets[dw.DealID] = byRole
	}
	if _, taken := byRole[dw.Role]; taken {
		return false, nil
	}
	w, ok := f.wallets[dw.WalletID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	dw.ID = uuid.New()
	dw.BoundAt = time.Now()
	byRole[dw.Role] = &models.DealWalletWithAddress{
		DealWallet: *dw,
		Address:    w.Address,
		UserID:     w.UserID,
	}
	return true, nil
}

func (f *fakeWalletStore) GetDealWallet(ctx context.Context, dealID uuid.UUID, role string) (*models.DealWalletWithAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dw, ok := f.dealWallets[dealID][role]; ok {
		cp := *dw
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeWalletStore) ListDealWallets(ctx context.Context, dealID uuid.UUID) ([]models.DealWalletWithAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DealWalletWithAddress
	for _, dw := range f.dealWallets[dealID] {
		out = append(out, *dw)
	}
	return out, nil
}

type fakePayoutStore struct {
	mu       sync.Mutex
	defaults map[models.Asset]*models.PayoutWallet
}

func newFakePayoutStore() *fakePayoutStore {
	return &fakePayoutStore{defaults: map[models.Asset]*models.PayoutWallet{}}
}

func (f *fakePayoutStore) GetDefault(ctx context.Context, asset models.Asset) (*models.PayoutWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.defaults[asset]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePayoutStore) setDefault(asset models.Asset, address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults[asset] = &models.PayoutWallet{
		ID:        uuid.New(),
		Asset:     asset,
		Address:   address,
		IsActive:  true,
		IsDefault: true,
	}
}

type fakeReferralStore struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*models.ReferralGroup
}

func newFakeReferralStore() *fakeReferralStore {
	return &fakeReferralStore{groups: map[uuid.UUID]*models.ReferralGroup{}}
}

func (f *fakeReferralStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferralGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReferralStore) GetByCode(ctx context.Context, code string) (*models.ReferralGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Code == code {
			cp := *g
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReferralStore) add(code string, feePercentage decimal.Decimal, payoutAddress *string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &models.ReferralGroup{
		ID:            uuid.New(),
		Title:         code,
		Code:          code,
		FeePercentage: feePercentage,
		PayoutAddress: payoutAddress,
	}
	f.groups[g.ID] = g
	return g.ID
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAuditStore) Log(ctx context.Context, entry models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) byType(eventType string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	mu           sync.Mutex
	balances     map[string]chain.Balance
	utxos        map[string][]chain.UTXO
	confirms     map[string]int
	broadcasts   []string
	broadcastErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		balances: map[string]chain.Balance{},
		utxos:    map[string][]chain.UTXO{},
		confirms: map[string]int{},
	}
}

func (f *fakeGateway) GetBalance(ctx context.Context, address string, asset models.Asset) (chain.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeGateway) ListUTXOs(ctx context.Context, address string, asset models.Asset) ([]chain.UTXO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.utxos[address], nil
}

func (f *fakeGateway) Broadcast(ctx context.Context, rawTxHex string, asset models.Asset) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	f.broadcasts = append(f.broadcasts, rawTxHex)
	return fmt.Sprintf("txhash-%d", len(f.broadcasts)), nil
}

func (f *fakeGateway) GetConfirmations(ctx context.Context, txHash string, asset models.Asset) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirms[txHash], nil
}

func (f *fakeGateway) broadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.broadcasts)
}

// fund credits the escrow address with a confirmed balance and a matching
// spendable output.
func (f *fakeGateway) fund(address string, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[address] = chain.Balance{Confirmed: amount}
	f.utxos[address] = []chain.UTXO{{
		TxID:  "aa00000000000000000000000000000000000000000000000000000000000011",
		Vout:  0,
		Value: amount.Shift(8).IntPart(),
	}}
}
