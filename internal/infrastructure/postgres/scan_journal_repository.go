package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/domain/repository"
)

var _ repository.ScanJournalRepository = (*ScanJournalRepo)(nil)

// ScanJournalRepo stores scan outcomes in PostgreSQL.
type ScanJournalRepo struct {
	q Querier
}

// NewScanJournalRepository builds the adapter over a pool or a tx.
func NewScanJournalRepository(q Querier) *ScanJournalRepo {
	return &ScanJournalRepo{q: q}
}

// Append inserts one record. Re-appending the same scan ID is a no-op.
func (r *ScanJournalRepo) Append(ctx context.Context, rec *entity.ScanRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("scan id %q: %w", rec.ID, err)
	}
	query := `
		INSERT INTO scan_journal (id, company_id, barcode, raw, source, mode, outcome, error_kind, message, item_name, qty, price, created, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.q.Exec(ctx, query,
		id, rec.CompanyID, rec.Barcode, rec.Raw, rec.Source, rec.Mode, rec.Outcome,
		rec.ErrorKind, rec.Message, rec.ItemName, rec.Qty, rec.Price, rec.Created, rec.ScannedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

// Recent lists records newest first. companyID 0 lists every company.
func (r *ScanJournalRepo) Recent(ctx context.Context, companyID int64, limit, offset int) ([]*entity.ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, company_id, barcode, raw, source, mode, outcome, error_kind, message, item_name, qty, price, created, scanned_at
		FROM scan_journal
		WHERE ($1::bigint = 0 OR company_id = $1::bigint)
		ORDER BY scanned_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list scan records: %w", err)
	}
	defer rows.Close()

	var list []*entity.ScanRecord
	for rows.Next() {
		var (
			rec entity.ScanRecord
			id  uuid.UUID
		)
		if err := rows.Scan(
			&id, &rec.CompanyID, &rec.Barcode, &rec.Raw, &rec.Source, &rec.Mode, &rec.Outcome,
			&rec.ErrorKind, &rec.Message, &rec.ItemName, &rec.Qty, &rec.Price, &rec.Created, &rec.ScannedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec.ID = id.String()
		list = append(list, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan record rows: %w", err)
	}
	return list, nil
}
