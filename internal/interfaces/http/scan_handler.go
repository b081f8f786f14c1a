package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// ScanController is the controller surface driven by the operator API.
// *scan.Controller implements it.
type ScanController interface {
	Keys(ctx context.Context, text string, submit bool) error
	Decoded(ctx context.Context, code string, at time.Time) error
	SelectCompany(ctx context.Context, id int64) error
	SetEnabled(ctx context.Context, on bool) error
	SetMode(ctx context.Context, mode string) error
	Logout(ctx context.Context) error
	Confirm(ctx context.Context, id string, accept bool) error
	Snapshot(ctx context.Context) (dto.StatusView, error)
	Session(ctx context.Context) (entity.ScanSession, error)
	Pending(ctx context.Context) ([]entity.Confirmation, error)
}

// ScanHandler status and scan input.
type ScanHandler struct {
	ctrl ScanController
}

// NewScanHandler builds the handler.
func NewScanHandler(ctrl ScanController) *ScanHandler {
	return &ScanHandler{ctrl: ctrl}
}

// Status godoc
// @Summary      Operator status view
// @Description  Count label, last result, status line and pending confirmations.
// @Tags         scan
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.StatusView
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/status [get]
func (h *ScanHandler) Status(c *fiber.Ctx) error {
	view, err := h.ctrl.Snapshot(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

// Keys godoc
// @Summary      Feed wedge keystrokes
// @Description  Every character goes through the aggregator; CR/LF terminate a scan.
// @Tags         scan
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.KeysRequest  true  "text, submit"
// @Success      202   {object}  dto.StatusView
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/scan/keys [post]
func (h *ScanHandler) Keys(c *fiber.Ctx) error {
	var in dto.KeysRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.ctrl.Keys(c.UserContext(), in.Text, in.Submit); err != nil {
		return writeError(c, err)
	}
	return h.accepted(c)
}

// Decoded godoc
// @Summary      Feed a camera decode
// @Tags         scan
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DecodedRequest  true  "code, decoded_at"
// @Success      202   {object}  dto.StatusView
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/scan/decoded [post]
func (h *ScanHandler) Decoded(c *fiber.Ctx) error {
	var in dto.DecodedRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var at time.Time
	if in.DecodedAt != nil {
		at = *in.DecodedAt
	}
	if err := h.ctrl.Decoded(c.UserContext(), in.Code, at); err != nil {
		return writeError(c, err)
	}
	return h.accepted(c)
}

// accepted answers 202 with the status right after the input was handled;
// network outcomes land later.
func (h *ScanHandler) accepted(c *fiber.Ctx) error {
	view, err := h.ctrl.Snapshot(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(view)
}
