package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/refresh"
)

// InventoryView is the list the refresher keeps current.
type InventoryView interface {
	Show(ctx context.Context, companyID int64, query string) (refresh.View, error)
	Hide()
}

// InventoryHandler inventory list view.
type InventoryHandler struct {
	ctrl ScanController
	view InventoryView
}

// NewInventoryHandler builds the handler.
func NewInventoryHandler(ctrl ScanController, view InventoryView) *InventoryHandler {
	return &InventoryHandler{ctrl: ctrl, view: view}
}

// List godoc
// @Summary      Inventory list of the active company
// @Description  Opens the list view: further scan outcomes reload it until DELETE /api/inventory/view.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        q  query  string  false  "name or barcode filter"
// @Success      200  {object}  dto.InventoryListResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	s, err := h.ctrl.Session(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if !s.HasCompany() {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_COMPANY", Message: "select a company first"})
	}
	v, err := h.view.Show(c.UserContext(), s.CompanyID, c.Query("q"))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.InventoryListResponse{
		CompanyID: v.CompanyID,
		Query:     v.Query,
		Total:     len(v.Items),
		Items:     make([]dto.ItemResponse, 0, len(v.Items)),
		FetchedAt: v.FetchedAt,
	}
	for _, it := range v.Items {
		out.Items = append(out.Items, dto.NewItemResponse(it))
	}
	return c.JSON(out)
}

// Hide godoc
// @Summary      Close the inventory list view
// @Tags         inventory
// @Security     Bearer
// @Success      204
// @Router       /api/inventory/view [delete]
func (h *InventoryHandler) Hide(c *fiber.Ctx) error {
	h.view.Hide()
	return c.SendStatus(fiber.StatusNoContent)
}
