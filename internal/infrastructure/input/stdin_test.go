package input_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-agent/internal/infrastructure/input"
)

type recorder struct {
	mu    sync.Mutex
	keys  []rune
	codes []string
	err   error
}

func (r *recorder) Key(_ context.Context, ch rune) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, ch)
	return r.err
}

func (r *recorder) Decoded(_ context.Context, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at.IsZero() {
		return errors.New("zero decode time")
	}
	r.codes = append(r.codes, code)
	return r.err
}

func TestWedge_ForwardsEveryRune(t *testing.T) {
	rec := &recorder{}
	err := input.Wedge(context.Background(), strings.NewReader("12é\n"), rec)
	require.NoError(t, err)
	assert.Equal(t, []rune{'1', '2', 'é', '\n'}, rec.keys)
}

func TestWedge_SinkErrorStops(t *testing.T) {
	boom := errors.New("stopped")
	rec := &recorder{err: boom}
	err := input.Wedge(context.Background(), strings.NewReader("123"), rec)
	require.ErrorIs(t, err, boom)
	assert.Len(t, rec.keys, 1)
}

func TestWedge_ContextCancelReturns(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- input.Wedge(ctx, pr, &recorder{}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wedge did not return after cancel")
	}
}

func TestDecoder_OneDecodePerLine(t *testing.T) {
	rec := &recorder{}
	err := input.Decoder(context.Background(), strings.NewReader("012345678905\r\n\n  \n4011\n"), rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"012345678905", "4011"}, rec.codes)
}
