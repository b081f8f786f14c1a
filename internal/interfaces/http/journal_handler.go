package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/domain/repository"
)

// reportLimit caps the records rendered into one shift report.
const reportLimit = 500

// ReportGenerator renders the shift report PDF.
type ReportGenerator interface {
	GenerateShiftReport(ctx context.Context, companyID int64, records []*entity.ScanRecord, generatedAt time.Time) ([]byte, error)
}

// JournalHandler scan journal and shift report.
type JournalHandler struct {
	ctrl    ScanController
	journal repository.ScanJournalRepository
	report  ReportGenerator
}

// NewJournalHandler builds the handler.
func NewJournalHandler(ctrl ScanController, journal repository.ScanJournalRepository, report ReportGenerator) *JournalHandler {
	return &JournalHandler{ctrl: ctrl, journal: journal, report: report}
}

// List godoc
// @Summary      Recent scans
// @Description  Newest first. company_id defaults to the token's company, then to the active one.
// @Tags         journal
// @Security     Bearer
// @Produce      json
// @Param        company_id  query  int  false  "company (0 = every company)"
// @Param        limit       query  int  false  "page size (default 20, max 200)"
// @Param        offset      query  int  false  "offset"
// @Success      200  {object}  dto.ScanListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/scans [get]
func (h *JournalHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	companyID, err := h.companyFor(c)
	if err != nil {
		return writeError(c, err)
	}
	records, err := h.journal.Recent(c.UserContext(), companyID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ScanListResponse{Total: len(records), Scans: make([]dto.ScanRecordResponse, 0, len(records))}
	for _, r := range records {
		out.Scans = append(out.Scans, dto.NewScanRecordResponse(r))
	}
	return c.JSON(out)
}

// Report godoc
// @Summary      Shift report PDF
// @Tags         journal
// @Security     Bearer
// @Produce      application/pdf
// @Param        company_id  query  int  false  "company (defaults as in /api/scans)"
// @Success      200
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/scans/report.pdf [get]
func (h *JournalHandler) Report(c *fiber.Ctx) error {
	companyID, err := h.companyFor(c)
	if err != nil {
		return writeError(c, err)
	}
	records, err := h.journal.Recent(c.UserContext(), companyID, reportLimit, 0)
	if err != nil {
		return writeError(c, err)
	}
	now := time.Now()
	pdf, err := h.report.GenerateShiftReport(c.UserContext(), companyID, records, now)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="scans-%d-%s.pdf"`, companyID, now.Format("20060102-1504")))
	return c.Send(pdf)
}

// companyFor resolves the company filter: the token's company, then the
// query, then the active session.
func (h *JournalHandler) companyFor(c *fiber.Ctx) (int64, error) {
	pinned := GetCompanyID(c)
	requested := int64(c.QueryInt("company_id", -1))
	switch {
	case pinned != 0 && requested >= 0 && requested != pinned:
		return 0, errCompanyMismatch
	case pinned != 0:
		return pinned, nil
	case requested >= 0:
		return requested, nil
	}
	s, err := h.ctrl.Session(c.UserContext())
	if err != nil {
		return 0, err
	}
	return s.CompanyID, nil
}
