package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/application/scan"
	"github.com/jhoicas/scanner-agent/internal/domain"
)

var errCompanyMismatch = errors.New("token is limited to another company")

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid body"})
}

// writeError maps domain and controller errors onto dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errCompanyMismatch):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "COMPANY_MISMATCH", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNoCompany):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_COMPANY", Message: "select a company first"})
	case errors.Is(err, domain.ErrNoPending):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "no pending confirmation with that id"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "BACKEND_UNAUTHORIZED", Message: err.Error()})
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "BACKEND_ERROR", Message: err.Error()})
	case errors.Is(err, scan.ErrControllerStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STOPPED", Message: "scan controller stopped"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: "operation timed out"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
