package refresh_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/refresh"
)

type countingLister struct {
	mu    sync.Mutex
	calls []dto.InventoryQuery
	qty   int
	err   error
}

func (l *countingLister) ListInventory(_ context.Context, q dto.InventoryQuery) ([]*entity.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, q)
	if l.err != nil {
		return nil, l.err
	}
	l.qty++
	return []*entity.Item{{ID: 1, Name: "Widget", Qty: l.qty}}, nil
}

func (l *countingLister) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func TestRefresher_HiddenReloadIsNoop(t *testing.T) {
	l := &countingLister{}
	r := refresh.New(l, 10*time.Millisecond, 50, zerolog.Nop())

	r.Reload(1)

	assert.Never(t, func() bool { return l.count() > 0 }, 60*time.Millisecond, 5*time.Millisecond)
}

func TestRefresher_ShowFetchesAndBurstCollapses(t *testing.T) {
	l := &countingLister{}
	r := refresh.New(l, 20*time.Millisecond, 50, zerolog.Nop())

	v, err := r.Show(context.Background(), 1, "wid")
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 1, v.Items[0].Qty)
	assert.True(t, v.Visible)

	for i := 0; i < 5; i++ {
		r.Reload(1)
	}

	require.Eventually(t, func() bool { return l.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return l.count() > 2 }, 80*time.Millisecond, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return r.Snapshot().Items[0].Qty == 2 }, time.Second, 5*time.Millisecond)

	l.mu.Lock()
	assert.Equal(t, dto.InventoryQuery{CompanyID: 1, Q: "wid", Limit: 50}, l.calls[1])
	l.mu.Unlock()
}

func TestRefresher_OtherCompanyIgnored(t *testing.T) {
	l := &countingLister{}
	r := refresh.New(l, 10*time.Millisecond, 0, zerolog.Nop())
	_, err := r.Show(context.Background(), 1, "")
	require.NoError(t, err)

	r.Reload(2)

	assert.Never(t, func() bool { return l.count() > 1 }, 60*time.Millisecond, 5*time.Millisecond)
}

func TestRefresher_HideCancelsPending(t *testing.T) {
	l := &countingLister{}
	r := refresh.New(l, 30*time.Millisecond, 0, zerolog.Nop())
	_, err := r.Show(context.Background(), 1, "")
	require.NoError(t, err)

	r.Reload(1)
	r.Hide()

	assert.Never(t, func() bool { return l.count() > 1 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.False(t, r.Snapshot().Visible)
}

func TestRefresher_ErrorKeepsLastItems(t *testing.T) {
	l := &countingLister{}
	r := refresh.New(l, 10*time.Millisecond, 0, zerolog.Nop())
	_, err := r.Show(context.Background(), 1, "")
	require.NoError(t, err)

	boom := errors.New("backend down")
	l.mu.Lock()
	l.err = boom
	l.mu.Unlock()
	r.Reload(1)

	require.Eventually(t, func() bool { return r.Snapshot().Err != nil }, time.Second, 5*time.Millisecond)
	v := r.Snapshot()
	assert.ErrorIs(t, v.Err, boom)
	require.Len(t, v.Items, 1)
}

func TestRefresher_OtherCompanyDropsOldItems(t *testing.T) {
	l := &countingLister{}
	r := refresh.New(l, 10*time.Millisecond, 0, zerolog.Nop())
	_, err := r.Show(context.Background(), 1, "")
	require.NoError(t, err)

	l.mu.Lock()
	l.err = errors.New("backend down")
	l.mu.Unlock()

	v, err := r.Show(context.Background(), 2, "")
	require.Error(t, err)
	assert.Equal(t, int64(2), v.CompanyID)
	assert.Empty(t, v.Items)
}
