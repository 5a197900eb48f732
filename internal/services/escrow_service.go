package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/chain"
	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/fees"
	"github.com/escrowdesk/backend/internal/keycustody"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
)

// Actor types for audit trail entries.
const (
	ActorUser   = "user"
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// EscrowService drives the deal lifecycle. All status transitions go through
// conditional store updates, so concurrent callers race on the database row,
// not on in-process state.
type EscrowService struct {
	deals     DealStore
	wallets   WalletStore
	txs       TransactionStore
	payouts   PayoutStore
	referrals ReferralStore
	audit     AuditStore
	custody   *keycustody.Service
	gateway   chain.Gateway
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger

	now func() time.Time
}

func NewEscrowService(
	deals DealStore,
	wallets WalletStore,
	txs TransactionStore,
	payouts PayoutStore,
	referrals ReferralStore,
	audit AuditStore,
	custody *keycustody.Service,
	gateway chain.Gateway,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		deals:     deals,
		wallets:   wallets,
		txs:       txs,
		payouts:   payouts,
		referrals: referrals,
		audit:     audit,
		custody:   custody,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func (s *EscrowService) auditLog(ctx context.Context, actorID *uuid.UUID, actorType, action string, dealID uuid.UUID, meta map[string]any) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      action,
		EntityType:  "deal",
		EntityID:    &dealID,
		Meta:        meta,
	})
}

func (s *EscrowService) publish(ctx context.Context, eventType string, deal *models.Deal, extra map[string]any) {
	payload := map[string]any{
		"deal_id":     deal.ID.String(),
		"deal_number": deal.DealNumber,
		"status":      deal.Status,
	}
	for k, v := range extra {
		payload[k] = v
	}
	_ = s.publisher.Publish(ctx, events.DealStream, events.Event{Type: eventType, Payload: payload})
}

func (s *EscrowService) getDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return deal, nil
}

func (s *EscrowService) requiredConfirmations(asset models.Asset) int {
	if asset == models.AssetLTC {
		return s.cfg.ConfirmationsLTC
	}
	return s.cfg.ConfirmationsBTC
}

// --- Creation ---

type CreateDealParams struct {
	CreatorID      uuid.UUID
	CreatorRole    string // buyer or seller
	CounterpartyID *uuid.UUID
	Asset          models.Asset
	Amount         decimal.Decimal
	Terms          *string
	ReferralCode   *string
	TimeoutMinutes int
}

func (s *EscrowService) CreateDeal(ctx context.Context, p CreateDealParams) (*models.Deal, error) {
	if !p.Asset.Valid() {
		return nil, ErrInvalidAsset
	}
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if p.CreatorRole != models.RoleBuyer && p.CreatorRole != models.RoleSeller {
		return nil, ErrInvalidRole
	}
	if p.CounterpartyID != nil && *p.CounterpartyID == p.CreatorID {
		return nil, ErrInvalidParticipants
	}

	breakdown := fees.Calculate(p.Amount)
	// A deal whose net payout is zero or negative could be funded but never
	// released; the transaction builder rejects non-positive outputs.
	if !breakdown.NetAmount.IsPositive() {
		return nil, ErrAmountBelowFee
	}

	deal := &models.Deal{
		DealNumber:       GenerateDealNumber(),
		Asset:            p.Asset,
		Amount:           p.Amount.RoundBank(fees.Precision),
		FeePercentage:    breakdown.FeePercentage,
		FeeAmount:        breakdown.FeeAmount,
		Terms:            p.Terms,
		Status:           models.DealStatusPending,
		ConfirmationsReq: s.requiredConfirmations(p.Asset),
		TimeoutMinutes:   p.TimeoutMinutes,
	}
	if deal.TimeoutMinutes <= 0 {
		deal.TimeoutMinutes = s.cfg.DefaultTimeoutMinutes
	}
	if p.CreatorRole == models.RoleBuyer {
		deal.BuyerID = &p.CreatorID
		deal.SellerID = p.CounterpartyID
	} else {
		deal.SellerID = &p.CreatorID
		deal.BuyerID = p.CounterpartyID
	}

	if p.ReferralCode != nil && *p.ReferralCode != "" {
		group, err := s.referrals.GetByCode(ctx, *p.ReferralCode)
		if err == nil {
			deal.ReferralGroupID = &group.ID
		} else if !repositories.IsNotFound(err) {
			return nil, err
		}
	}

	if err := s.deals.Create(ctx, deal); err != nil {
		return nil, err
	}

	s.auditLog(ctx, &p.CreatorID, ActorUser, "deal_created", deal.ID, map[string]any{
		"deal_number": deal.DealNumber,
		"asset":       deal.Asset,
		"amount":      deal.Amount.String(),
		"fee_amount":  deal.FeeAmount.String(),
	})
	s.publish(ctx, events.EventDealStatusChanged, deal, map[string]any{"old_status": "", "new_status": deal.Status})

	s.log.Info("deal created",
		zap.String("deal_id", deal.ID.String()),
		zap.String("deal_number", deal.DealNumber),
		zap.String("asset", string(deal.Asset)),
		zap.String("amount", deal.Amount.String()),
	)
	return deal, nil
}

// --- Party wallets ---

// SetPartyWallet claims a role for the user (if still vacant) and binds one
// of their wallets to it. Once both roles hold a wallet the escrow address is
// generated and the payment window opens.
func (s *EscrowService) SetPartyWallet(ctx context.Context, dealID, userID, walletID uuid.UUID, role string) (*models.Deal, error) {
	if role != models.RoleBuyer && role != models.RoleSeller {
		return nil, ErrInvalidRole
	}

	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealStatusPending {
		return nil, ErrInvalidState
	}

	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if wallet.UserID != userID || !wallet.IsActive {
		return nil, ErrNotAuthorized
	}
	if wallet.Asset != deal.Asset {
		return nil, ErrWalletAssetMismatch
	}

	holder := deal.BuyerID
	other := deal.SellerID
	if role == models.RoleSeller {
		holder, other = deal.SellerID, deal.BuyerID
	}
	switch {
	case holder != nil && *holder != userID:
		return nil, ErrNotAuthorized
	case holder == nil:
		if other != nil && *other == userID {
			return nil, ErrInvalidParticipants
		}
		ok, err := s.deals.ClaimRole(ctx, dealID, role, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost the race; whoever claimed first keeps the role.
			return nil, ErrRoleAlreadyBound
		}
	}

	bound, err := s.wallets.BindDealWallet(ctx, &models.DealWallet{
		DealID:   dealID,
		WalletID: walletID,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	if !bound {
		return nil, ErrRoleAlreadyBound
	}

	s.auditLog(ctx, &userID, ActorUser, "deal_wallet_bound", dealID, map[string]any{
		"role":      role,
		"wallet_id": walletID.String(),
		"address":   wallet.Address,
	})

	dealWallets, err := s.wallets.ListDealWallets(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if len(dealWallets) == 2 {
		if err := s.activateEscrow(ctx, dealID, &userID, ActorUser); err != nil && err != ErrEscrowAlreadyAssigned {
			return nil, err
		}
	}

	return s.getDeal(ctx, dealID)
}

// --- Escrow assignment ---

// GenerateEscrowAddress assigns the deal's deposit address. Callable at most
// once per deal; both party wallets must already be bound.
func (s *EscrowService) GenerateEscrowAddress(ctx context.Context, dealID uuid.UUID, actorID *uuid.UUID, actorType string) (*models.Deal, error) {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.EscrowAddress != nil {
		return nil, ErrEscrowAlreadyAssigned
	}
	if deal.Status != models.DealStatusPending {
		return nil, ErrInvalidState
	}

	dealWallets, err := s.wallets.ListDealWallets(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if len(dealWallets) < 2 {
		return nil, ErrWalletsNotBound
	}

	if err := s.activateEscrow(ctx, dealID, actorID, actorType); err != nil {
		return nil, err
	}
	return s.getDeal(ctx, dealID)
}

// activateEscrow generates the keypair, stores the key as ciphertext and
// opens the payment window. The plaintext key lives only on this stack frame.
func (s *EscrowService) activateEscrow(ctx context.Context, dealID uuid.UUID, actorID *uuid.UUID, actorType string) error {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return err
	}

	keypair, err := s.custody.GenerateKeypair(deal.Asset)
	if err != nil {
		return err
	}
	encKey, err := s.custody.Encrypt([]byte(keypair.PrivateKeyHex))
	if err != nil {
		return err
	}

	ok, err := s.deals.SetEscrow(ctx, dealID, keypair.Address, encKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEscrowAlreadyAssigned
	}

	expiresAt := s.now().Add(time.Duration(deal.TimeoutMinutes) * time.Minute)
	if _, err := s.deals.MarkWaitingPayment(ctx, dealID, expiresAt); err != nil {
		return err
	}

	s.auditLog(ctx, actorID, actorType, "escrow_address_assigned", dealID, map[string]any{
		"address": keypair.Address,
	})
	deal.Status = models.DealStatusWaitingPayment
	deal.EscrowAddress = &keypair.Address
	s.publish(ctx, events.EventDealStatusChanged, deal, map[string]any{
		"old_status":     models.DealStatusPending,
		"new_status":     models.DealStatusWaitingPayment,
		"escrow_address": keypair.Address,
	})

	s.log.Info("escrow address assigned",
		zap.String("deal_id", dealID.String()),
		zap.String("address", keypair.Address),
	)
	return nil
}

// --- Payment detection ---

type PaymentStatus struct {
	DealID      uuid.UUID       `json:"deal_id"`
	Status      string          `json:"status"`
	Confirmed   decimal.Decimal `json:"confirmed"`
	Unconfirmed decimal.Decimal `json:"unconfirmed"`
	Funded      bool            `json:"funded"`
}

// CheckPayment polls the escrow address balance and, on full confirmed
// funding, performs the funded transition together with the deposit ledger
// insert. Repeated calls after funding are no-ops.
func (s *EscrowService) CheckPayment(ctx context.Context, dealID uuid.UUID) (*PaymentStatus, error) {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if deal.Status == models.DealStatusFunded || deal.Status == models.DealStatusReleased {
		return &PaymentStatus{DealID: dealID, Status: deal.Status, Confirmed: deal.Amount, Funded: true}, nil
	}
	if deal.Status != models.DealStatusWaitingPayment {
		return nil, ErrInvalidState
	}
	if deal.EscrowAddress == nil {
		return nil, ErrEscrowNotAssigned
	}

	balance, err := s.gateway.GetBalance(ctx, *deal.EscrowAddress, deal.Asset)
	if err != nil {
		return nil, fmt.Errorf("check escrow balance: %w", err)
	}

	status := &PaymentStatus{
		DealID:      dealID,
		Status:      deal.Status,
		Confirmed:   balance.Confirmed,
		Unconfirmed: balance.Unconfirmed,
	}

	if balance.Confirmed.LessThan(deal.Amount) {
		return status, nil
	}

	deposit := &models.Transaction{
		DealID:        dealID,
		Type:          models.TxTypeDeposit,
		Asset:         deal.Asset,
		Amount:        balance.Confirmed,
		ToAddress:     *deal.EscrowAddress,
		Confirmations: deal.ConfirmationsReq,
		Status:        models.TxStatusConfirmed,
	}
	ok, err := s.deals.MarkFunded(ctx, dealID, deal.ConfirmationsReq, deposit)
	if err != nil {
		return nil, err
	}
	status.Funded = true
	status.Status = models.DealStatusFunded
	if !ok {
		// A concurrent sweep already funded the deal.
		return status, nil
	}

	s.auditLog(ctx, nil, ActorSystem, "deal_funded", dealID, map[string]any{
		"confirmed_balance": balance.Confirmed.String(),
	})
	deal.Status = models.DealStatusFunded
	s.publish(ctx, events.EventDealFunded, deal, map[string]any{
		"confirmed": balance.Confirmed.String(),
	})

	s.log.Info("deal funded",
		zap.String("deal_id", dealID.String()),
		zap.String("confirmed", balance.Confirmed.String()),
	)
	return status, nil
}

// --- Release ---

// ReleaseFunds pays the seller from escrow. Authorized for the buyer or an
// admin. The funded -> released transition, ledger writes and counters commit
// atomically with a successful broadcast; a failed broadcast leaves the deal
// funded and retryable.
func (s *EscrowService) ReleaseFunds(ctx context.Context, dealID uuid.UUID, actorID uuid.UUID, actorType string) (*models.Transaction, error) {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealStatusFunded {
		return nil, ErrInvalidState
	}
	if deal.IsDisputed {
		// Admin resolution clears the flag explicitly before funds move.
		return nil, ErrDealDisputed
	}
	if actorType != ActorAdmin {
		if deal.BuyerID == nil || *deal.BuyerID != actorID {
			return nil, ErrNotAuthorized
		}
	}
	if deal.EscrowAddress == nil || deal.EscrowPrivateKeyEnc == nil {
		return nil, ErrEscrowNotAssigned
	}

	sellerWallet, err := s.wallets.GetDealWallet(ctx, dealID, models.RoleSeller)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrWalletsNotBound
		}
		return nil, err
	}

	keyMaterial, err := s.custody.Decrypt(*deal.EscrowPrivateKeyEnc)
	if err != nil {
		return nil, err
	}
	privateKeyHex := string(keyMaterial)

	utxos, err := s.gateway.ListUTXOs(ctx, *deal.EscrowAddress, deal.Asset)
	if err != nil {
		return nil, fmt.Errorf("list escrow utxos: %w", err)
	}

	netAmount := deal.Amount.Sub(deal.FeeAmount)
	netSats := netAmount.Shift(8).IntPart()
	signed, err := chain.BuildSignedTransfer(privateKeyHex, *deal.EscrowAddress, utxos, []chain.Output{
		{Address: sellerWallet.Address, ValueSats: netSats},
	}, s.cfg.NetworkFeeSats, deal.Asset)
	if err != nil {
		return nil, fmt.Errorf("build release transaction: %w", err)
	}

	var referralGroup *models.ReferralGroup
	referralShare := decimal.Zero
	if deal.ReferralGroupID != nil {
		referralGroup, err = s.referrals.GetByID(ctx, *deal.ReferralGroupID)
		if err != nil && !repositories.IsNotFound(err) {
			return nil, err
		}
		if referralGroup != nil {
			referralShare = fees.ReferralShare(deal.FeeAmount, referralGroup.FeePercentage)
		}
	}

	release := &models.Transaction{
		DealID:      dealID,
		Type:        models.TxTypeRelease,
		Asset:       deal.Asset,
		Amount:      netAmount,
		FromAddress: deal.EscrowAddress,
		ToAddress:   sellerWallet.Address,
		Status:      models.TxStatusPending,
	}
	released, err := s.deals.ReleaseWithBroadcast(ctx, repositories.ReleaseParams{
		DealID:          dealID,
		BuyerID:         deal.BuyerID,
		SellerID:        deal.SellerID,
		Asset:           deal.Asset,
		Amount:          deal.Amount,
		ReferralGroupID: deal.ReferralGroupID,
		ReferralShare:   referralShare,
		Release:         release,
	}, func(ctx context.Context) (string, error) {
		return s.gateway.Broadcast(ctx, signed.RawHex, deal.Asset)
	})
	if err != nil {
		s.log.Error("release failed, deal stays funded",
			zap.String("deal_id", dealID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if !released {
		return nil, ErrInvalidState
	}

	s.auditLog(ctx, &actorID, actorType, "deal_released", dealID, map[string]any{
		"tx_hash":    release.TxHash,
		"net_amount": netAmount.String(),
	})
	deal.Status = models.DealStatusReleased
	s.publish(ctx, events.EventDealReleased, deal, map[string]any{
		"tx_hash": release.TxHash,
	})
	s.log.Info("deal released",
		zap.String("deal_id", dealID.String()),
		zap.String("net_amount", netAmount.String()),
	)

	// Fee payout rides on the change output of the release transaction. It is
	// best-effort: the platform can re-collect fees, the seller cannot be
	// paid twice.
	s.payoutFees(ctx, deal, referralGroup, referralShare, signed)

	return release, nil
}

// payoutFees moves the collected fee from the escrow change output to the
// platform payout wallet and, when applicable, the referral group address.
func (s *EscrowService) payoutFees(ctx context.Context, deal *models.Deal, group *models.ReferralGroup, referralShare decimal.Decimal, released *chain.SignedTransfer) {
	if released.ChangeIndex < 0 {
		s.log.Warn("no change output on release, fee payout skipped",
			zap.String("deal_id", deal.ID.String()))
		return
	}

	payout, err := s.payouts.GetDefault(ctx, deal.Asset)
	if err != nil {
		s.log.Warn("fee payout skipped",
			zap.String("deal_id", deal.ID.String()),
			zap.Error(err))
		return
	}

	// Both network fees come out of the platform's cut; the referral group
	// receives its share in full.
	available := released.ChangeSats - s.cfg.NetworkFeeSats
	var referralSats int64
	if group != nil && group.PayoutAddress != nil && referralShare.IsPositive() {
		referralSats = referralShare.Shift(8).IntPart()
	}
	platformSats := available - referralSats

	var outputs []chain.Output
	if platformSats > chain.DustLimitSats {
		outputs = append(outputs, chain.Output{Address: payout.Address, ValueSats: platformSats})
	}
	if referralSats > chain.DustLimitSats && referralSats <= available {
		outputs = append(outputs, chain.Output{Address: *group.PayoutAddress, ValueSats: referralSats})
	}
	if len(outputs) == 0 {
		s.log.Warn("change too small for fee payout", zap.String("deal_id", deal.ID.String()))
		return
	}

	keyMaterial, err := s.custody.Decrypt(*deal.EscrowPrivateKeyEnc)
	if err != nil {
		s.log.Error("fee payout key decryption failed", zap.String("deal_id", deal.ID.String()), zap.Error(err))
		return
	}

	change := []chain.UTXO{{TxID: released.TxID, Vout: uint32(released.ChangeIndex), Value: released.ChangeSats}}
	signed, err := chain.BuildSignedTransfer(string(keyMaterial), *deal.EscrowAddress, change, outputs, s.cfg.NetworkFeeSats, deal.Asset)
	if err != nil {
		s.log.Warn("fee payout build failed",
			zap.String("deal_id", deal.ID.String()),
			zap.Error(err))
		return
	}

	txHash, err := s.gateway.Broadcast(ctx, signed.RawHex, deal.Asset)
	if err != nil {
		s.log.Warn("fee payout broadcast failed",
			zap.String("deal_id", deal.ID.String()),
			zap.Error(err))
		return
	}

	for _, out := range outputs {
		toAddr := out.Address
		_ = s.txs.Create(ctx, &models.Transaction{
			DealID:      deal.ID,
			Type:        models.TxTypeFee,
			Asset:       deal.Asset,
			Amount:      decimal.New(out.ValueSats, -8),
			FromAddress: deal.EscrowAddress,
			ToAddress:   toAddr,
			TxHash:      &txHash,
			Status:      models.TxStatusPending,
		})
	}
	s.log.Info("fees paid out",
		zap.String("deal_id", deal.ID.String()),
		zap.String("tx_hash", txHash),
	)
}

// --- Cancellation, disputes, expiry ---

func (s *EscrowService) CancelDeal(ctx context.Context, dealID, actorID uuid.UUID, actorType string, reason *string) (*models.Deal, error) {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == models.DealStatusFunded {
		return nil, ErrCannotCancelFunded
	}
	if models.IsTerminalStatus(deal.Status) {
		return nil, ErrInvalidState
	}
	if actorType != ActorAdmin && !isParticipant(deal, actorID) {
		return nil, ErrNotAuthorized
	}

	ok, err := s.deals.Cancel(ctx, dealID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	s.auditLog(ctx, &actorID, actorType, "deal_cancelled", dealID, map[string]any{"reason": reason})
	deal.Status = models.DealStatusCancelled
	s.publish(ctx, events.EventDealStatusChanged, deal, map[string]any{
		"new_status": models.DealStatusCancelled,
	})
	return s.getDeal(ctx, dealID)
}

func (s *EscrowService) OpenDispute(ctx context.Context, dealID, actorID uuid.UUID, reason string) (*models.Deal, error) {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(deal, actorID) {
		return nil, ErrNotAuthorized
	}
	if deal.IsDisputed {
		return nil, ErrAlreadyDisputed
	}
	if deal.Status != models.DealStatusWaitingPayment && deal.Status != models.DealStatusFunded {
		return nil, ErrInvalidState
	}

	ok, err := s.deals.SetDisputed(ctx, dealID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyDisputed
	}

	s.auditLog(ctx, &actorID, ActorUser, "dispute_opened", dealID, map[string]any{"reason": reason})
	s.publish(ctx, events.EventDealDisputed, deal, map[string]any{"reason": reason})
	s.log.Info("dispute opened", zap.String("deal_id", dealID.String()))
	return s.getDeal(ctx, dealID)
}

// ResolveDispute clears the dispute flag so an admin can then release or
// cancel the deal.
func (s *EscrowService) ResolveDispute(ctx context.Context, dealID, adminID uuid.UUID, actorType string) (*models.Deal, error) {
	if actorType != ActorAdmin {
		return nil, ErrNotAuthorized
	}
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsDisputed {
		return nil, ErrInvalidState
	}

	ok, err := s.deals.ClearDisputed(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	s.auditLog(ctx, &adminID, ActorAdmin, "dispute_resolved", dealID, nil)
	return s.getDeal(ctx, dealID)
}

// ExpireDeal closes an overdue payment window. The escrow balance is checked
// one last time: a payment that confirmed after the deadline still funds the
// deal instead of expiring it.
func (s *EscrowService) ExpireDeal(ctx context.Context, dealID uuid.UUID) error {
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return err
	}
	if deal.Status != models.DealStatusWaitingPayment {
		if deal.Status == models.DealStatusExpired {
			return nil
		}
		return ErrInvalidState
	}

	if deal.EscrowAddress != nil {
		if status, err := s.CheckPayment(ctx, dealID); err == nil && status.Funded {
			return nil
		}
	}

	ok, err := s.deals.Expire(ctx, dealID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.auditLog(ctx, nil, ActorSystem, "deal_expired", dealID, nil)
	deal.Status = models.DealStatusExpired
	s.publish(ctx, events.EventDealExpired, deal, nil)
	s.log.Info("deal expired", zap.String("deal_id", dealID.String()))
	return nil
}

func (s *EscrowService) ExtendDeal(ctx context.Context, dealID, actorID uuid.UUID, actorType string, extraMinutes int) (*models.Deal, error) {
	if extraMinutes <= 0 {
		return nil, ErrInvalidAmount
	}
	deal, err := s.getDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealStatusWaitingPayment {
		return nil, ErrInvalidState
	}
	if actorType != ActorAdmin && !isParticipant(deal, actorID) {
		return nil, ErrNotAuthorized
	}

	base := s.now()
	if deal.ExpiresAt != nil && deal.ExpiresAt.After(base) {
		base = *deal.ExpiresAt
	}
	newExpiry := base.Add(time.Duration(extraMinutes) * time.Minute)

	ok, err := s.deals.ExtendExpiry(ctx, dealID, newExpiry, deal.TimeoutMinutes+extraMinutes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}

	s.auditLog(ctx, &actorID, actorType, "deal_extended", dealID, map[string]any{
		"extra_minutes": extraMinutes,
		"expires_at":    newExpiry,
	})
	return s.getDeal(ctx, dealID)
}

// --- Reads ---

func (s *EscrowService) GetDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	return s.getDeal(ctx, dealID)
}

func (s *EscrowService) GetDealByNumber(ctx context.Context, number string) (*models.Deal, error) {
	deal, err := s.deals.GetByNumber(ctx, number)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return deal, nil
}

func (s *EscrowService) ListDeals(ctx context.Context, f repositories.DealFilter) ([]models.Deal, error) {
	return s.deals.List(ctx, f)
}

func (s *EscrowService) ListDealTransactions(ctx context.Context, dealID uuid.UUID) ([]models.Transaction, error) {
	return s.txs.ListByDeal(ctx, dealID)
}

func isParticipant(deal *models.Deal, userID uuid.UUID) bool {
	if deal.BuyerID != nil && *deal.BuyerID == userID {
		return true
	}
	if deal.SellerID != nil && *deal.SellerID == userID {
		return true
	}
	return false
}
