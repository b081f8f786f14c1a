package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Item is the backend's inventory snapshot for one barcode inside a company.
// Qty is clamped server-side to never go below zero.
type Item struct {
	ID      int64
	Name    string
	Barcode string
	Price   decimal.Decimal
	Qty     int
}

// Label is the operator-facing "last scanned" text, e.g. "Widget (qty 5)".
func (i Item) Label() string {
	name := i.Name
	if name == "" {
		name = i.Barcode
	}
	return fmt.Sprintf("%s (qty %d)", name, i.Qty)
}
