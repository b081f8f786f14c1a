package ports

import (
	"context"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// InventoryBackend is the outbound port to the inventory REST backend.
// Implementations return errors that satisfy errors.Is against the domain
// taxonomy (ErrUnauthorized, ErrNotInCatalog, ErrValidation, ErrTransport).
type InventoryBackend interface {
	// Adjust applies delta to the item's quantity and returns the updated snapshot.
	Adjust(ctx context.Context, req dto.AdjustRequest) (*entity.Item, error)
	// Classify looks the barcode up. A "not_in_catalog" answer is a lookup
	// outcome (Source CatalogNotFound), not an error.
	Classify(ctx context.Context, barcode, mode string) (*entity.CatalogLookup, error)
	// UpsertItem creates or updates the item record.
	UpsertItem(ctx context.Context, req dto.UpsertItemRequest) (*entity.Item, error)
	// ListInventory returns the company's items for the list view.
	ListInventory(ctx context.Context, q dto.InventoryQuery) ([]*entity.Item, error)
}

// Authenticator exchanges operator credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*dto.LoginResponse, error)
}
