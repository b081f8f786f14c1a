package entity

import "github.com/shopspring/decimal"

// CatalogSource classifies the outcome of a catalog lookup.
type CatalogSource string

const (
	CatalogLocal        CatalogSource = "local"
	CatalogExternalStub CatalogSource = "external_stub"
	CatalogNotFound     CatalogSource = "not_in_catalog"
)

// Scan modes accepted by the classification endpoint.
const (
	ModeStock   = "stock"
	ModeProduce = "produce"
)

// ValidMode reports whether m is a known scan mode.
func ValidMode(m string) bool {
	return m == ModeStock || m == ModeProduce
}

// CatalogLookup is the result of classifying a barcode.
// Item is set for Local; CandidateName/CandidatePrice are set for ExternalStub
// and, when the backend proposes one, for NotFound.
type CatalogLookup struct {
	Source         CatalogSource
	Item           *Item
	CandidateName  string
	CandidatePrice decimal.Decimal
}

// NeedsConfirmation is true when the item must be created before adjusting.
func (c CatalogLookup) NeedsConfirmation() bool {
	return c.Source != CatalogLocal
}
