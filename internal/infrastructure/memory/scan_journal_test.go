package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/memory"
)

func appendN(t *testing.T, j *memory.ScanJournal, companyID int64, from, to int) {
	t.Helper()
	for i := from; i < to; i++ {
		require.NoError(t, j.Append(context.Background(), &entity.ScanRecord{
			ID:        fmt.Sprintf("scan-%d", i),
			CompanyID: companyID,
			Barcode:   fmt.Sprint(i),
		}))
	}
}

func ids(recs []*entity.ScanRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestScanJournal_NewestFirst(t *testing.T) {
	j := memory.NewScanJournal(10)
	appendN(t, j, 1, 0, 3)

	got, err := j.Recent(context.Background(), 0, 10, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"scan-2", "scan-1", "scan-0"}, ids(got))
}

func TestScanJournal_EvictsOldest(t *testing.T) {
	j := memory.NewScanJournal(3)
	appendN(t, j, 1, 0, 5)

	got, _ := j.Recent(context.Background(), 0, 10, 0)

	assert.Equal(t, []string{"scan-4", "scan-3", "scan-2"}, ids(got))
	assert.Equal(t, 3, j.Len())

	// An evicted ID may be appended again.
	appendN(t, j, 1, 0, 1)
	got, _ = j.Recent(context.Background(), 0, 1, 0)
	assert.Equal(t, []string{"scan-0"}, ids(got))
}

func TestScanJournal_FilterAndPage(t *testing.T) {
	j := memory.NewScanJournal(20)
	appendN(t, j, 1, 0, 4)
	appendN(t, j, 2, 4, 6)

	got, _ := j.Recent(context.Background(), 1, 2, 1)

	assert.Equal(t, []string{"scan-2", "scan-1"}, ids(got))
}

func TestScanJournal_DuplicateIgnored(t *testing.T) {
	j := memory.NewScanJournal(5)
	appendN(t, j, 1, 0, 1)
	appendN(t, j, 1, 0, 1)
	assert.Equal(t, 1, j.Len())
}
