package handlers

import (
	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// AddWallet registers a payout address for the user.
// POST /me/wallets
func (h *WalletHandler) AddWallet(c *fiber.Ctx) error {
	var req dto.AddWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Address == "" {
		return badRequest(c, "address is required")
	}

	asset, err := models.ParseAsset(req.Asset)
	if err != nil {
		return badRequest(c, "asset must be BTC or LTC")
	}

	wallet, err := h.walletService.AddWallet(c.Context(), middleware.GetUserID(c), asset, req.Address)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: wallet})
}

// ListWallets returns the user's active wallets, optionally filtered by asset.
// GET /me/wallets
func (h *WalletHandler) ListWallets(c *fiber.Ctx) error {
	var asset *models.Asset
	if v := c.Query("asset"); v != "" {
		a, err := models.ParseAsset(v)
		if err != nil {
			return badRequest(c, "asset must be BTC or LTC")
		}
		asset = &a
	}

	wallets, err := h.walletService.ListWallets(c.Context(), middleware.GetUserID(c), asset)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: wallets})
}

// RemoveWallet deactivates one of the user's wallets.
// DELETE /me/wallets/:id
func (h *WalletHandler) RemoveWallet(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}

	if err := h.walletService.RemoveWallet(c.Context(), middleware.GetUserID(c), walletID); err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

// --- Admin: platform payout wallets ---

func (h *WalletHandler) AddPayoutWallet(c *fiber.Ctx) error {
	var req dto.AddPayoutWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Address == "" {
		return badRequest(c, "address is required")
	}

	asset, err := models.ParseAsset(req.Asset)
	if err != nil {
		return badRequest(c, "asset must be BTC or LTC")
	}

	wallet, err := h.walletService.AddPayoutWallet(c.Context(), middleware.GetUserID(c), asset, req.Address, req.Label, req.IsDefault)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: wallet})
}

func (h *WalletHandler) ListPayoutWallets(c *fiber.Ctx) error {
	wallets, err := h.walletService.ListPayoutWallets(c.Context())
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: wallets})
}

func (h *WalletHandler) SetDefaultPayoutWallet(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}

	if err := h.walletService.SetDefaultPayoutWallet(c.Context(), middleware.GetUserID(c), walletID); err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *WalletHandler) DeactivatePayoutWallet(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid wallet id")
	}

	if err := h.walletService.DeactivatePayoutWallet(c.Context(), middleware.GetUserID(c), walletID); err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}
