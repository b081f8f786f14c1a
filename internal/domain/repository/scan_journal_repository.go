package repository

import (
	"context"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// ScanJournalRepository persists terminal scan outcomes (DIP).
type ScanJournalRepository interface {
	Append(ctx context.Context, record *entity.ScanRecord) error
	// Recent returns newest first; companyID 0 means every company.
	Recent(ctx context.Context, companyID int64, limit, offset int) ([]*entity.ScanRecord, error)
}
