package handlers

import (
	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// serviceError translates a service error into a JSON error response with a
// stable code. Internal errors are logged and hidden from the client.
func serviceError(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := services.Kind(err)

	status := fiber.StatusBadRequest
	message := err.Error()
	switch kind {
	case "not_found":
		status = fiber.StatusNotFound
	case "not_authorized":
		status = fiber.StatusForbidden
	case "invalid_state", "disputed", "cannot_cancel_funded",
		"role_already_bound", "escrow_already_assigned":
		status = fiber.StatusConflict
	case "broadcast_failed":
		status = fiber.StatusBadGateway
		log.Error("chain broadcast failed", zap.Error(err))
	case "internal":
		status = fiber.StatusInternalServerError
		message = "internal server error"
		log.Error("request failed", zap.Error(err))
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:     message,
		Code:      kind,
		RequestID: middleware.GetRequestID(c),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:     message,
		Code:      "validation",
		RequestID: middleware.GetRequestID(c),
	})
}
