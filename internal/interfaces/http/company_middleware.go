package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// sessionReader is the minimal view the middleware needs of the controller.
type sessionReader interface {
	Session(ctx context.Context) (entity.ScanSession, error)
}

// RequireSelectedCompany rejects scan input from a token pinned to a company
// other than the one currently selected. Tokens without a company pass.
// It must run after AuthMiddleware.
//
//   - 403 COMPANY_MISMATCH: the session is on another (or no) company.
//   - 503 SESSION_UNAVAILABLE: the controller is stopped or busy.
func RequireSelectedCompany(sessions sessionReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pinned := GetCompanyID(c)
		if pinned == 0 {
			return c.Next()
		}
		s, err := sessions.Session(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "SESSION_UNAVAILABLE",
				Message: "scan session unavailable, try again",
			})
		}
		if s.CompanyID != pinned {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "COMPANY_MISMATCH",
				Message: "token is limited to company " + strconv.FormatInt(pinned, 10),
			})
		}
		return c.Next()
	}
}
