// Package memory holds in-process adapters used when no database is
// configured.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/domain/repository"
)

var _ repository.ScanJournalRepository = (*ScanJournal)(nil)

// DefaultCapacity is used for non-positive capacities.
const DefaultCapacity = 1000

// ScanJournal keeps the most recent records in a fixed-size ring.
type ScanJournal struct {
	mu   sync.RWMutex
	buf  []entity.ScanRecord
	next int
	full bool
	seen map[string]struct{}
}

// NewScanJournal builds a ring holding up to capacity records.
func NewScanJournal(capacity int) *ScanJournal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ScanJournal{
		buf:  make([]entity.ScanRecord, capacity),
		seen: make(map[string]struct{}, capacity),
	}
}

// Append stores a copy of rec, evicting the oldest record when full.
// Re-appending a retained ID is a no-op.
func (j *ScanJournal) Append(_ context.Context, rec *entity.ScanRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, dup := j.seen[rec.ID]; dup {
		return nil
	}
	if j.full {
		delete(j.seen, j.buf[j.next].ID)
	}
	j.buf[j.next] = *rec
	j.seen[rec.ID] = struct{}{}
	j.next = (j.next + 1) % len(j.buf)
	if j.next == 0 {
		j.full = true
	}
	return nil
}

// Recent returns newest first. companyID 0 matches every company.
func (j *ScanJournal) Recent(_ context.Context, companyID int64, limit, offset int) ([]*entity.ScanRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	n := j.next
	if j.full {
		n = len(j.buf)
	}
	var out []*entity.ScanRecord
	skipped := 0
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (j.next - 1 - i + len(j.buf)) % len(j.buf)
		rec := j.buf[idx]
		if companyID != 0 && rec.CompanyID != companyID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// Len is the number of retained records.
func (j *ScanJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.full {
		return len(j.buf)
	}
	return j.next
}
