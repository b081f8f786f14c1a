package ports

import (
	"context"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// TokenSource is the read-only credential view used before each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ActiveCompanyID() (int64, bool)
}

// Credentials is the credential provider as seen by the session owner.
type Credentials interface {
	TokenSource
	Invalidate()
}

// SessionExpiry receives unauthorized outcomes (re-login flow).
type SessionExpiry interface {
	SessionExpired(reason string)
}

// Confirmer surfaces a create-then-adjust prompt to the operator. It must not
// block; the answer comes back through the controller.
type Confirmer interface {
	RequestConfirmation(c entity.Confirmation)
}

// Refresher is told to reload the inventory list after a terminal outcome.
// It must not block and is a no-op while the list is not visible.
type Refresher interface {
	Reload(companyID int64)
}
