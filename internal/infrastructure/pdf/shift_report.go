// Package pdf renders the shift report: every resolved scan of a company
// for a period, with per-outcome totals.
//
// Layout of the A4 page:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Company + period      │  Generated at               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  SUMMARY: scans / ok / errors / declined / invalid / new    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLE: Time | Barcode | Source | Outcome | Item | Qty       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR with the summary line                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// ── Palette ───────────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorError   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Summary ───────────────────────────────────────────────────────────────────

// Summary counts journal records per outcome.
type Summary struct {
	Total    int
	OK       int
	Errors   int
	Declined int
	Invalid  int
	Created  int
	From, To time.Time
}

// Summarize folds records into a Summary. From/To span the scan times.
func Summarize(records []*entity.ScanRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		switch r.Outcome {
		case entity.OutcomeOK:
			s.OK++
		case entity.OutcomeError:
			s.Errors++
		case entity.OutcomeDeclined:
			s.Declined++
		case entity.OutcomeInvalid:
			s.Invalid++
		}
		if r.Created {
			s.Created++
		}
		if s.From.IsZero() || r.ScannedAt.Before(s.From) {
			s.From = r.ScannedAt
		}
		if r.ScannedAt.After(s.To) {
			s.To = r.ScannedAt
		}
	}
	return s
}

// Line is the one-line form encoded in the footer QR.
func (s Summary) Line(companyID int64) string {
	return fmt.Sprintf("company=%d scans=%d ok=%d error=%d declined=%d invalid=%d created=%d",
		companyID, s.Total, s.OK, s.Errors, s.Declined, s.Invalid, s.Created)
}

// ── Generator ─────────────────────────────────────────────────────────────────

// ShiftReportGenerator renders journal records with Maroto v2.
type ShiftReportGenerator struct {
	loc *time.Location
}

// NewShiftReportGenerator builds the generator. A nil loc means local time.
func NewShiftReportGenerator(loc *time.Location) *ShiftReportGenerator {
	if loc == nil {
		loc = time.Local
	}
	return &ShiftReportGenerator{loc: loc}
}

// GenerateShiftReport renders records (newest first, as the journal returns
// them) and returns the PDF bytes.
func (g *ShiftReportGenerator) GenerateShiftReport(
	_ context.Context,
	companyID int64,
	records []*entity.ScanRecord,
	generatedAt time.Time,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Scan shift report", true).
		Build()

	m := maroto.New(cfg)
	sum := Summarize(records)

	m.AddRows(g.headerRow(companyID, sum, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(sum))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range g.tableRows(records) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(sum.Line(companyID)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generate shift report: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Sections ──────────────────────────────────────────────────────────────────

func (g *ShiftReportGenerator) headerRow(companyID int64, s Summary, generatedAt time.Time) core.Row {
	period := "no scans"
	if s.Total > 0 {
		period = s.From.In(g.loc).Format("02/01/2006 15:04") + " to " + s.To.In(g.loc).Format("15:04")
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(fmt.Sprintf("Company #%d", companyID), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Period: "+period, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("SCAN SHIFT REPORT", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Generated: "+generatedAt.In(g.loc).Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func summaryRow(s Summary) core.Row {
	cell := func(label string, n int) core.Col {
		return col.New(2).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(fmt.Sprint(n), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Center, Top: 5}),
		)
	}
	return row.New(14).Add(
		cell("SCANS", s.Total),
		cell("OK", s.OK),
		cell("ERRORS", s.Errors),
		cell("DECLINED", s.Declined),
		cell("INVALID", s.Invalid),
		cell("CREATED", s.Created),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Time", 2, align.Left),
		h("Barcode", 3, align.Left),
		h("Source", 1, align.Center),
		h("Outcome", 2, align.Center),
		h("Item", 3, align.Left),
		h("Qty", 1, align.Right),
	)
}

func (g *ShiftReportGenerator) tableRows(records []*entity.ScanRecord) []core.Row {
	result := make([]core.Row, 0, len(records))
	for _, r := range records {
		outcome := props.Text{Size: 8, Align: align.Center, Top: 1}
		if r.Outcome == entity.OutcomeError || r.Outcome == entity.OutcomeInvalid {
			outcome.Color = colorError
		}
		result = append(result, row.New(6).Add(
			col.New(2).Add(text.New(r.ScannedAt.In(g.loc).Format("15:04:05"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(3).Add(text.New(nonEmpty(r.Barcode, nonEmpty(r.Raw, "-")), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(r.Source, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(outcomeLabel(r), outcome)),
			col.New(3).Add(text.New(itemLabel(r), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(qtyLabel(r), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func footerRow(summary string) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(summary, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New(summary, props.Text{Size: 7, Top: 4, Left: 3, Color: colorGray}),
			text.New("Quantities are the backend snapshot after each adjustment.", props.Text{
				Size: 7, Top: 12, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func outcomeLabel(r *entity.ScanRecord) string {
	if r.Outcome == entity.OutcomeError && r.ErrorKind != "" {
		return "error: " + r.ErrorKind
	}
	return r.Outcome
}

func itemLabel(r *entity.ScanRecord) string {
	if r.ItemName == "" {
		return nonEmpty(r.Message, "-")
	}
	if r.Created {
		return r.ItemName + " (new)"
	}
	return r.ItemName
}

func qtyLabel(r *entity.ScanRecord) string {
	if r.Outcome != entity.OutcomeOK {
		return "-"
	}
	return fmt.Sprint(r.Qty)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
