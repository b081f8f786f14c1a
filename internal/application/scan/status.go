package scan

import (
	"errors"
	"strconv"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

const noLastLabel = "—"

// Render projects the session and the most recent outcome onto the operator
// labels. It is pure.
func Render(s entity.ScanSession, last Outcome) dto.StatusView {
	return dto.StatusView{
		CountLabel: "Scanned: " + strconv.Itoa(s.Count),
		LastLabel:  "Last: " + lastLabel(s, last),
		StatusLine: statusLine(s.Status, last),
		Count:      s.Count,
		CompanyID:  s.CompanyID,
		Enabled:    s.Enabled,
		Status:     string(s.Status.Kind),
	}
}

func lastLabel(s entity.ScanSession, last Outcome) string {
	if s.LastResult != "" {
		return s.LastResult
	}
	if last.Code != "" && last.Kind != OutcomeInvalid {
		return last.Code
	}
	return noLastLabel
}

func statusLine(st entity.Status, last Outcome) string {
	if st.Kind == entity.StatusError && last.Kind == OutcomeInvalid && errors.Is(last.Err, domain.ErrInvalidCode) {
		return "Invalid/empty scan"
	}
	switch st.Kind {
	case entity.StatusReady:
		return "Ready"
	case entity.StatusSending:
		return "Sending…"
	case entity.StatusOk:
		return "OK"
	case entity.StatusError:
		return "Error: " + st.Reason
	}
	return "Scanning disabled"
}
