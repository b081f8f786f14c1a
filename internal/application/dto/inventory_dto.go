package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// AdjustRequest body for POST /api/inventory/adjust.
// ScanID travels as the Idempotency-Key header, not in the body.
type AdjustRequest struct {
	CompanyID int64  `json:"company_id"`
	Barcode   string `json:"barcode"`
	Delta     int    `json:"delta"`
	ScanID    string `json:"-"`
}

// AdjustResponse {ok, item} or {ok:false, error}.
type AdjustResponse struct {
	OK    bool     `json:"ok"`
	Item  *ItemDTO `json:"item,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ScanRequest body for POST /api/scan.
type ScanRequest struct {
	Barcode string `json:"barcode"`
	Mode    string `json:"mode"`
}

// ScanResponse {source, item} or {error}.
type ScanResponse struct {
	Source string   `json:"source,omitempty"`
	Item   *ItemDTO `json:"item,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// UpsertItemRequest body for POST /api/inventory.
type UpsertItemRequest struct {
	CompanyID int64           `json:"company_id"`
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	ScanID    string          `json:"-"`
}

// UpsertItemResponse accepts both a bare item and an {item} envelope.
type UpsertItemResponse struct {
	ItemDTO
	Item  *ItemDTO `json:"item,omitempty"`
	Error string   `json:"error,omitempty"`
}

// InventoryQuery parameters for GET /api/inventory.
type InventoryQuery struct {
	CompanyID int64
	Q         string
	Limit     int
}

// ItemDTO item snapshot as returned by the backend. The list endpoint returns
// raw rows (item_name, quantity), the adjust endpoint returns name/qty.
type ItemDTO struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name,omitempty"`
	ItemName string          `json:"item_name,omitempty"`
	Barcode  string          `json:"barcode"`
	Price    decimal.Decimal `json:"price"`
	Qty      *int            `json:"qty,omitempty"`
	Quantity *int            `json:"quantity,omitempty"`
}

// ToEntity maps the wire shape onto the domain item.
func (d ItemDTO) ToEntity() *entity.Item {
	item := &entity.Item{
		ID:      d.ID,
		Name:    d.Name,
		Barcode: d.Barcode,
		Price:   d.Price,
	}
	if item.Name == "" {
		item.Name = d.ItemName
	}
	switch {
	case d.Qty != nil:
		item.Qty = *d.Qty
	case d.Quantity != nil:
		item.Qty = *d.Quantity
	}
	return item
}

// ItemResponse item as served by the operator API.
type ItemResponse struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Barcode string          `json:"barcode"`
	Price   decimal.Decimal `json:"price"`
	Qty     int             `json:"qty"`
}

// NewItemResponse maps a domain item.
func NewItemResponse(i *entity.Item) ItemResponse {
	return ItemResponse{ID: i.ID, Name: i.Name, Barcode: i.Barcode, Price: i.Price, Qty: i.Qty}
}
