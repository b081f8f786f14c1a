package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jhoicas/scanner-agent/internal/domain"
)

// Kind is the failure class of a backend call.
type Kind int

const (
	KindTransport Kind = iota
	KindUnauthorized
	KindNotInCatalog
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotInCatalog:
		return "not_in_catalog"
	case KindValidation:
		return "validation"
	}
	return "transport"
}

// Error is a classified backend failure. Errors.Is matches the domain
// sentinel of its kind.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() []error {
	errs := []error{sentinel(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinel(k Kind) error {
	switch k {
	case KindUnauthorized:
		return domain.ErrUnauthorized
	case KindNotInCatalog:
		return domain.ErrNotInCatalog
	case KindValidation:
		return domain.ErrValidation
	}
	return domain.ErrTransport
}

// classify maps an HTTP status and the body's error text onto a Kind. The
// error text wins: the backend reports some failures as 200 {ok:false}.
func classify(status int, msg string) Kind {
	switch strings.ToLower(strings.TrimSpace(msg)) {
	case "unauthorized", "invalid token", "token expired":
		return KindUnauthorized
	case "not_in_catalog", "not found", "item not found":
		return KindNotInCatalog
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotInCatalog
	case status >= 400 && status < 500:
		return KindValidation
	case status >= 500:
		return KindTransport
	}
	return KindValidation
}
