// Package refresh keeps the operator's inventory list view current after
// each scan outcome.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/application/ports"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

var _ ports.Refresher = (*Refresher)(nil)

// Lister is the slice of the backend the refresher needs.
type Lister interface {
	ListInventory(ctx context.Context, q dto.InventoryQuery) ([]*entity.Item, error)
}

// View is the last fetched list.
type View struct {
	Visible   bool
	CompanyID int64
	Query     string
	Items     []*entity.Item
	FetchedAt time.Time
	Err       error
}

// Refresher reloads the list, debounced, while it is visible. Reload never
// blocks the caller.
type Refresher struct {
	lister   Lister
	debounce time.Duration
	limit    int
	timeout  time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	view  View
	timer *time.Timer
	seq   uint64
}

// New builds a hidden refresher.
func New(lister Lister, debounce time.Duration, limit int, log zerolog.Logger) *Refresher {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Refresher{
		lister:   lister,
		debounce: debounce,
		limit:    limit,
		timeout:  10 * time.Second,
		log:      log.With().Str("component", "refresher").Logger(),
	}
}

// Show makes the list visible for companyID and fetches it now.
func (r *Refresher) Show(ctx context.Context, companyID int64, query string) (View, error) {
	r.mu.Lock()
	if r.view.CompanyID != companyID {
		r.view.Items = nil
		r.view.FetchedAt = time.Time{}
	}
	r.view.Visible = true
	r.view.CompanyID = companyID
	r.view.Query = query
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	items, err := r.lister.ListInventory(ctx, dto.InventoryQuery{CompanyID: companyID, Q: query, Limit: r.limit})
	r.store(seq, items, err)
	return r.Snapshot(), err
}

// Hide stops reloads until the next Show.
func (r *Refresher) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.Visible = false
	r.seq++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Reload schedules a fetch for companyID. It is a no-op while the list is
// hidden or shows another company; bursts collapse into one fetch.
func (r *Refresher) Reload(companyID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.view.Visible || r.view.CompanyID != companyID {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.fetch)
}

func (r *Refresher) fetch() {
	r.mu.Lock()
	if !r.view.Visible {
		r.mu.Unlock()
		return
	}
	q := dto.InventoryQuery{CompanyID: r.view.CompanyID, Q: r.view.Query, Limit: r.limit}
	seq := r.seq
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	items, err := r.lister.ListInventory(ctx, q)
	if err != nil {
		r.log.Warn().Err(err).Int64("company_id", q.CompanyID).Msg("inventory reload failed")
	}
	r.store(seq, items, err)
}

// store keeps a result unless Show/Hide ran since the fetch started.
func (r *Refresher) store(seq uint64, items []*entity.Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return
	}
	r.view.Err = err
	if err == nil {
		r.view.Items = items
		r.view.FetchedAt = time.Now()
	}
}

// Snapshot returns a copy of the current view.
func (r *Refresher) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.view
	v.Items = append([]*entity.Item(nil), r.view.Items...)
	return v
}
