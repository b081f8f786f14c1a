package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// Loginer forces a backend login with the configured credentials.
type Loginer interface {
	Login(ctx context.Context) (*entity.Operator, error)
}

// SessionHandler company selection, arming, mode and backend login.
type SessionHandler struct {
	ctrl  ScanController
	login Loginer
}

// NewSessionHandler builds the handler. login may be nil (static token).
func NewSessionHandler(ctrl ScanController, login Loginer) *SessionHandler {
	return &SessionHandler{ctrl: ctrl, login: login}
}

// SelectCompany godoc
// @Summary      Select the active company
// @Description  Switching company disables scanning and resets the counters.
// @Tags         session
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SelectCompanyRequest  true  "company_id"
// @Success      200   {object}  dto.StatusView
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/session/company [put]
func (h *SessionHandler) SelectCompany(c *fiber.Ctx) error {
	var in dto.SelectCompanyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if pinned := GetCompanyID(c); pinned != 0 && pinned != in.CompanyID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:    "COMPANY_MISMATCH",
			Message: "token is limited to company " + strconv.FormatInt(pinned, 10),
		})
	}
	if err := h.ctrl.SelectCompany(c.UserContext(), in.CompanyID); err != nil {
		return writeError(c, err)
	}
	return h.status(c)
}

// Enable godoc
// @Summary      Arm scanning
// @Tags         session
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StatusView
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/session/enable [post]
func (h *SessionHandler) Enable(c *fiber.Ctx) error {
	if err := h.ctrl.SetEnabled(c.UserContext(), true); err != nil {
		return writeError(c, err)
	}
	return h.status(c)
}

// Disable godoc
// @Summary      Disarm scanning
// @Tags         session
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StatusView
// @Router       /api/session/disable [post]
func (h *SessionHandler) Disable(c *fiber.Ctx) error {
	if err := h.ctrl.SetEnabled(c.UserContext(), false); err != nil {
		return writeError(c, err)
	}
	return h.status(c)
}

// SetMode godoc
// @Summary      Switch classification mode
// @Tags         session
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ModeRequest  true  "stock | produce"
// @Success      200   {object}  dto.StatusView
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/session/mode [put]
func (h *SessionHandler) SetMode(c *fiber.Ctx) error {
	var in dto.ModeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.ctrl.SetMode(c.UserContext(), in.Mode); err != nil {
		return writeError(c, err)
	}
	return h.status(c)
}

// Logout godoc
// @Summary      End the session
// @Description  Clears the company, the counters and the cached backend token.
// @Tags         session
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StatusView
// @Router       /api/session/logout [post]
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := h.ctrl.Logout(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	return h.status(c)
}

// Login godoc
// @Summary      Log in to the backend
// @Description  Logs in with the configured credentials. With no company selected, the operator's company becomes the active one.
// @Tags         session
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.UserResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Failure      501  {object}  dto.ErrorResponse
// @Router       /api/session/login [post]
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	if h.login == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NO_LOGIN", Message: "agent runs with a static token"})
	}
	op, err := h.login.Login(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	s, err := h.ctrl.Session(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if !s.HasCompany() && op.CompanyID > 0 {
		if err := h.ctrl.SelectCompany(c.UserContext(), op.CompanyID); err != nil {
			return writeError(c, err)
		}
	}
	return c.JSON(dto.UserResponse{ID: op.ID, Username: op.Username, CompanyID: op.CompanyID})
}

func (h *SessionHandler) status(c *fiber.Ctx) error {
	view, err := h.ctrl.Snapshot(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}
