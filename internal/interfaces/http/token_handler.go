package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	pkgjwt "github.com/jhoicas/scanner-agent/pkg/jwt"
)

// TokenConfig signing settings and the station PIN hashes (bcrypt).
type TokenConfig struct {
	Secret            string
	Issuer            string
	ExpMinutes        int
	OperatorPINHash   string
	SupervisorPINHash string
}

// Enabled reports whether PIN exchange can issue tokens.
func (c TokenConfig) Enabled() bool {
	return c.Secret != "" && (c.OperatorPINHash != "" || c.SupervisorPINHash != "")
}

// TokenHandler exchanges a station PIN for an operator API token.
type TokenHandler struct {
	cfg TokenConfig
}

// NewTokenHandler builds the handler.
func NewTokenHandler(cfg TokenConfig) *TokenHandler {
	return &TokenHandler{cfg: cfg}
}

// HashPIN returns the bcrypt hash stored in JWT_OPERATOR_PIN_HASH / JWT_SUPERVISOR_PIN_HASH.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Issue godoc
// @Summary      Exchange a station PIN for a token
// @Description  The supervisor PIN yields a supervisor token, the operator PIN an operator token. company_id pins the token (0 = any).
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TokenRequest  true  "username + PIN"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/token [post]
func (h *TokenHandler) Issue(c *fiber.Ctx) error {
	var in dto.TokenRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.PIN == "" || in.CompanyID < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "username and pin are required"})
	}
	role := h.roleFor(in.PIN)
	if role == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_CREDENTIALS", Message: "invalid pin"})
	}
	tok, err := pkgjwt.Generate(h.cfg.Secret, 0, in.Username, in.CompanyID, role, h.cfg.Issuer, h.cfg.ExpMinutes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TokenResponse{Token: tok, Role: role, ExpiresIn: h.cfg.ExpMinutes * 60})
}

// roleFor checks the supervisor hash first so a shared PIN grants the higher role.
func (h *TokenHandler) roleFor(pin string) string {
	if matches(h.cfg.SupervisorPINHash, pin) {
		return pkgjwt.RoleSupervisor
	}
	if matches(h.cfg.OperatorPINHash, pin) {
		return pkgjwt.RoleOperator
	}
	return ""
}

func matches(hash, pin string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
