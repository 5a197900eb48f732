package handlers

import (
	"strconv"
	"time"

	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/escrowdesk/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DealHandler struct {
	escrow    *services.EscrowService
	auditRepo *repositories.AuditRepo
	log       *zap.Logger
}

func NewDealHandler(escrow *services.EscrowService, auditRepo *repositories.AuditRepo, log *zap.Logger) *DealHandler {
	return &DealHandler{escrow: escrow, auditRepo: auditRepo, log: log}
}

func (h *DealHandler) CreateDeal(c *fiber.Ctx) error {
	var req dto.CreateDealRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	asset, err := models.ParseAsset(req.Asset)
	if err != nil {
		return badRequest(c, "asset must be BTC or LTC")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}

	var counterpartyID *uuid.UUID
	if req.CounterpartyID != nil && *req.CounterpartyID != "" {
		id, err := uuid.Parse(*req.CounterpartyID)
		if err != nil {
			return badRequest(c, "invalid counterparty_id")
		}
		counterpartyID = &id
	}

	deal, err := h.escrow.CreateDeal(c.Context(), services.CreateDealParams{
		CreatorID:      middleware.GetUserID(c),
		CreatorRole:    req.Role,
		CounterpartyID: counterpartyID,
		Asset:          asset,
		Amount:         amount,
		Terms:          req.Terms,
		ReferralCode:   req.ReferralCode,
		TimeoutMinutes: req.TimeoutMinutes,
	})
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) ListDeals(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.DealFilter{
		UserID: &userID,
		Limit:  20,
		Offset: 0,
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("asset"); v != "" {
		asset, err := models.ParseAsset(v)
		if err != nil {
			return badRequest(c, "asset must be BTC or LTC")
		}
		filter.Asset = &asset
	}

	deals, err := h.escrow.ListDeals(c.Context(), filter)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deals})
}

func (h *DealHandler) GetDeal(c *fiber.Ctx) error {
	deal, err := h.dealFromParam(c)
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) GetDealByNumber(c *fiber.Ctx) error {
	deal, err := h.escrow.GetDealByNumber(c.Context(), c.Params("number"))
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) BindWallet(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	var req dto.BindWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		return badRequest(c, "invalid wallet_id")
	}

	deal, err := h.escrow.SetPartyWallet(c.Context(), dealID, middleware.GetUserID(c), walletID, req.Role)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) GenerateEscrow(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	actorID := middleware.GetUserID(c)
	deal, err := h.escrow.GenerateEscrowAddress(c.Context(), dealID, &actorID, services.ActorUser)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) GetPaymentInfo(c *fiber.Ctx) error {
	deal, err := h.dealFromParam(c)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	status, err := h.escrow.CheckPayment(c.Context(), deal.ID)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	resp := dto.PaymentInfoResponse{
		DealID:      deal.ID.String(),
		Asset:       string(deal.Asset),
		Amount:      deal.Amount.String(),
		Status:      status.Status,
		Confirmed:   status.Confirmed.String(),
		Unconfirmed: status.Unconfirmed.String(),
		Funded:      status.Funded,
	}
	if deal.EscrowAddress != nil {
		resp.EscrowAddress = *deal.EscrowAddress
	}
	if deal.ExpiresAt != nil {
		resp.ExpiresAt = deal.ExpiresAt.UTC().Format(time.RFC3339)
	}

	return c.JSON(resp)
}

func (h *DealHandler) Release(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	tx, err := h.escrow.ReleaseFunds(c.Context(), dealID, middleware.GetUserID(c), services.ActorUser)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *DealHandler) AdminRelease(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	tx, err := h.escrow.ReleaseFunds(c.Context(), dealID, middleware.GetUserID(c), services.ActorAdmin)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: tx})
}

func (h *DealHandler) Cancel(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	var req dto.CancelDealRequest
	_ = c.BodyParser(&req)

	deal, err := h.escrow.CancelDeal(c.Context(), dealID, middleware.GetUserID(c), services.ActorUser, req.Reason)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) OpenDispute(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	var req dto.OpenDisputeRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return badRequest(c, "reason is required")
	}

	deal, err := h.escrow.OpenDispute(c.Context(), dealID, middleware.GetUserID(c), req.Reason)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) ResolveDispute(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	deal, err := h.escrow.ResolveDispute(c.Context(), dealID, middleware.GetUserID(c), services.ActorAdmin)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) Extend(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	var req dto.ExtendDealRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	deal, err := h.escrow.ExtendDeal(c.Context(), dealID, middleware.GetUserID(c), services.ActorUser, req.ExtraMinutes)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) ListTransactions(c *fiber.Ctx) error {
	deal, err := h.dealFromParam(c)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	txs, err := h.escrow.ListDealTransactions(c.Context(), deal.ID)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

func (h *DealHandler) AuditTrail(c *fiber.Ctx) error {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid deal id")
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.auditRepo.GetByEntity(c.Context(), "deal", dealID, limit, offset)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *DealHandler) dealFromParam(c *fiber.Ctx) (*models.Deal, error) {
	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, services.ErrDealNotFound
	}
	return h.escrow.GetDeal(c.Context(), dealID)
}
