package handlers

import (
	"crypto/rand"
	"encoding/json"

	"github.com/escrowdesk/backend/internal/auth"
	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userRepo *repositories.UserRepo
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthHandler(userRepo *repositories.UserRepo, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, cfg: cfg, log: log}
}

func (h *AuthHandler) TelegramAuth(c *fiber.Ctx) error {
	var req dto.AuthTelegramRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.InitData == "" {
		return badRequest(c, "init_data is required")
	}

	vals, err := auth.ValidateTelegramWebAppData(req.InitData, h.cfg.TelegramBotToken, h.cfg.InitDataMaxAge)
	if err != nil {
		h.log.Debug("telegram auth validation failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error(), Code: "unauthorized"})
	}

	userJSON := vals.Get("user")
	if userJSON == "" {
		return badRequest(c, "user data missing from init_data")
	}

	var tgUser struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.Unmarshal([]byte(userJSON), &tgUser); err != nil {
		return badRequest(c, "invalid user data")
	}

	var username, firstName, lastName *string
	if tgUser.Username != "" {
		username = &tgUser.Username
	}
	if tgUser.FirstName != "" {
		firstName = &tgUser.FirstName
	}
	if tgUser.LastName != "" {
		lastName = &tgUser.LastName
	}

	// Personal invite codes only apply when the row is first inserted; the
	// upsert leaves existing users untouched.
	var referredByID *uuid.UUID
	if req.ReferralCode != nil && *req.ReferralCode != "" {
		if inviter, err := h.userRepo.GetByReferralCode(c.Context(), *req.ReferralCode); err == nil {
			referredByID = &inviter.ID
		}
	}

	user, err := h.userRepo.UpsertByTelegramID(c.Context(), tgUser.ID, username, firstName, lastName, generateReferralCode(), referredByID)
	if err != nil {
		h.log.Error("failed to upsert user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error", Code: "internal"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, user.TelegramUserID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error", Code: "internal"})
	}

	return c.JSON(dto.AuthResponse{
		Token: token,
		User:  user,
	})
}

const referralCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

func generateReferralCode() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf)
}
