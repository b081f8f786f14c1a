package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confirmation is an operator prompt raised before a create-then-adjust.
type Confirmation struct {
	ID          string          `json:"id"`
	CompanyID   int64           `json:"company_id"`
	Barcode     string          `json:"barcode"`
	Source      CatalogSource   `json:"source"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	RequestedAt time.Time       `json:"requested_at"`
}

// Prompt is the question shown to the operator.
func (c Confirmation) Prompt() string {
	if c.Source == CatalogExternalStub {
		return "Create " + c.Name + " and add +1?"
	}
	return "Barcode " + c.Barcode + " not in catalog. Create it and add +1 now?"
}
