package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scan sources.
const (
	SourceWedge  = "wedge"
	SourceCamera = "camera"
)

// Scan outcomes recorded in the journal.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDeclined = "declined"
	OutcomeInvalid  = "invalid"
)

// ScanRecord is one journal line: the terminal outcome of a resolved scan.
type ScanRecord struct {
	ID        string
	CompanyID int64
	Barcode   string
	Raw       string
	Source    string
	Mode      string
	Outcome   string
	ErrorKind string
	Message   string
	ItemName  string
	Qty       int
	Price     decimal.Decimal
	Created   bool
	ScannedAt time.Time
}
