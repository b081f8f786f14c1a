package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
)

// ConfirmationHandler lists and answers create-then-adjust prompts.
type ConfirmationHandler struct {
	ctrl ScanController
}

// NewConfirmationHandler builds the handler.
func NewConfirmationHandler(ctrl ScanController) *ConfirmationHandler {
	return &ConfirmationHandler{ctrl: ctrl}
}

// List godoc
// @Summary      Pending confirmations
// @Tags         confirmations
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ConfirmationResponse
// @Router       /api/confirmations [get]
func (h *ConfirmationHandler) List(c *fiber.Ctx) error {
	pending, err := h.ctrl.Pending(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ConfirmationResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, dto.NewConfirmationResponse(p))
	}
	return c.JSON(out)
}

// Answer godoc
// @Summary      Accept or decline a confirmation
// @Description  Accepting creates the item and adds +1; declining leaves the inventory untouched.
// @Tags         confirmations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "confirmation id"
// @Param        body  body  dto.ConfirmRequest   true  "accept"
// @Success      200   {object}  dto.StatusView
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/confirmations/{id} [post]
func (h *ConfirmationHandler) Answer(c *fiber.Ctx) error {
	var in dto.ConfirmRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.ctrl.Confirm(c.UserContext(), c.Params("id"), in.Accept); err != nil {
		return writeError(c, err)
	}
	view, err := h.ctrl.Snapshot(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}
