package handlers

import (
	"time"

	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AdminHandler struct {
	referralRepo *repositories.ReferralRepo
	statsRepo    *repositories.StatsRepo
	log          *zap.Logger
}

func NewAdminHandler(referralRepo *repositories.ReferralRepo, statsRepo *repositories.StatsRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{referralRepo: referralRepo, statsRepo: statsRepo, log: log}
}

func (h *AdminHandler) CreateReferralGroup(c *fiber.Ctx) error {
	var req dto.CreateReferralGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Title == "" || req.Code == "" {
		return badRequest(c, "title and code are required")
	}

	share, err := decimal.NewFromString(req.FeePercentage)
	if err != nil || share.IsNegative() || share.GreaterThan(decimal.NewFromInt(100)) {
		return badRequest(c, "fee_percentage must be between 0 and 100")
	}

	group := &models.ReferralGroup{
		Title:         req.Title,
		Code:          req.Code,
		FeePercentage: share,
		PayoutAddress: req.PayoutAddress,
	}
	if err := h.referralRepo.Create(c.Context(), group); err != nil {
		return serviceError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: group})
}

func (h *AdminHandler) ListReferralGroups(c *fiber.Ctx) error {
	groups, err := h.referralRepo.List(c.Context())
	if err != nil {
		return serviceError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: groups})
}

func (h *AdminHandler) UpdateReferralPayout(c *fiber.Ctx) error {
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid group id")
	}

	var req dto.UpdateReferralPayoutRequest
	if err := c.BodyParser(&req); err != nil || req.PayoutAddress == "" {
		return badRequest(c, "payout_address is required")
	}

	if err := h.referralRepo.UpdatePayoutAddress(c.Context(), groupID, req.PayoutAddress); err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

// GetStats returns daily platform rollups for a date range. Defaults to the
// last 30 days.
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return badRequest(c, "from must be YYYY-MM-DD")
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return badRequest(c, "to must be YYYY-MM-DD")
		}
		to = t
	}
	if from.After(to) {
		return badRequest(c, "from must not be after to")
	}

	stats, err := h.statsRepo.GetRange(c.Context(), from, to)
	if err != nil {
		return serviceError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}
