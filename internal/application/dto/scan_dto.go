package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// StatusView operator-facing projection of the scan session.
type StatusView struct {
	CountLabel string                 `json:"count_label"`
	LastLabel  string                 `json:"last_label"`
	StatusLine string                 `json:"status_line"`
	Count      int                    `json:"count"`
	CompanyID  int64                  `json:"company_id,omitempty"`
	Enabled    bool                   `json:"enabled"`
	Status     string                 `json:"status"`
	Mode       string                 `json:"mode,omitempty"`
	Pending    []ConfirmationResponse `json:"pending,omitempty"`
}

// KeysRequest body for POST /api/scan/keys (wedge keystrokes).
type KeysRequest struct {
	Text   string `json:"text"`
	Submit bool   `json:"submit"`
}

// DecodedRequest body for POST /api/scan/decoded (camera decoder output).
type DecodedRequest struct {
	Code      string     `json:"code"`
	DecodedAt *time.Time `json:"decoded_at,omitempty"`
}

// SelectCompanyRequest body for PUT /api/session/company.
type SelectCompanyRequest struct {
	CompanyID int64 `json:"company_id"`
}

// ModeRequest body for PUT /api/session/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ConfirmRequest body for POST /api/confirmations/:id.
type ConfirmRequest struct {
	Accept bool `json:"accept"`
}

// ConfirmationResponse pending operator confirmation.
type ConfirmationResponse struct {
	ID          string          `json:"id"`
	Barcode     string          `json:"barcode"`
	Source      string          `json:"source"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Prompt      string          `json:"prompt"`
	RequestedAt time.Time       `json:"requested_at"`
}

// NewConfirmationResponse maps a domain confirmation.
func NewConfirmationResponse(c entity.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{
		ID:          c.ID,
		Barcode:     c.Barcode,
		Source:      string(c.Source),
		Name:        c.Name,
		Price:       c.Price,
		Prompt:      c.Prompt(),
		RequestedAt: c.RequestedAt,
	}
}

// ScanRecordResponse journal entry.
type ScanRecordResponse struct {
	ID        string          `json:"id"`
	CompanyID int64           `json:"company_id"`
	Barcode   string          `json:"barcode"`
	Source    string          `json:"source"`
	Mode      string          `json:"mode,omitempty"`
	Outcome   string          `json:"outcome"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Message   string          `json:"message,omitempty"`
	ItemName  string          `json:"item_name,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Created   bool            `json:"created"`
	ScannedAt time.Time       `json:"scanned_at"`
}

// NewScanRecordResponse maps a journal record.
func NewScanRecordResponse(r *entity.ScanRecord) ScanRecordResponse {
	return ScanRecordResponse{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		Barcode:   r.Barcode,
		Source:    r.Source,
		Mode:      r.Mode,
		Outcome:   r.Outcome,
		ErrorKind: r.ErrorKind,
		Message:   r.Message,
		ItemName:  r.ItemName,
		Qty:       r.Qty,
		Price:     r.Price,
		Created:   r.Created,
		ScannedAt: r.ScannedAt,
	}
}

// InventoryListResponse GET /api/inventory.
type InventoryListResponse struct {
	CompanyID int64          `json:"company_id"`
	Query     string         `json:"q,omitempty"`
	Total     int            `json:"total"`
	Items     []ItemResponse `json:"items"`
	FetchedAt time.Time      `json:"fetched_at"`
	Error     string         `json:"error,omitempty"`
}

// ScanListResponse GET /api/scans.
type ScanListResponse struct {
	Total int                  `json:"total"`
	Scans []ScanRecordResponse `json:"scans"`
}
