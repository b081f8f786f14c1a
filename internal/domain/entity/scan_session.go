package entity

// StatusKind is the pipeline-facing state of a scan session.
type StatusKind string

const (
	StatusIdle    StatusKind = "idle"
	StatusReady   StatusKind = "ready"
	StatusSending StatusKind = "sending"
	StatusOk      StatusKind = "ok"
	StatusError   StatusKind = "error"
)

// Status carries a reason only for StatusError.
type Status struct {
	Kind   StatusKind
	Reason string
}

// ErrorStatus builds an Error(reason) status.
func ErrorStatus(reason string) Status {
	return Status{Kind: StatusError, Reason: reason}
}

// ScanSession is one operator's active scanning session.
// CompanyID zero means no company is selected.
type ScanSession struct {
	CompanyID  int64
	Enabled    bool
	Count      int
	LastResult string
	Status     Status
}

// HasCompany reports whether a company partition is selected.
func (s ScanSession) HasCompany() bool {
	return s.CompanyID > 0
}

// Reset zeroes counters and returns the session to Idle, keeping the company.
func (s *ScanSession) Reset() {
	s.Enabled = false
	s.Count = 0
	s.LastResult = ""
	s.Status = Status{Kind: StatusIdle}
}
