package scan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-agent/internal/application/scan"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func feed(a *scan.Aggregator, s string, at time.Time) []scan.Resolution {
	var out []scan.Resolution
	for _, r := range s {
		if res, ok := a.Key(r, at); ok {
			out = append(out, res)
		}
		at = at.Add(5 * time.Millisecond)
	}
	return out
}

func TestAggregator_TerminatorResolvesOnce(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{})

	got := feed(a, "012345678905\r\n", t0)

	require.Len(t, got, 1, "CR/LF pair must produce exactly one scan")
	assert.Equal(t, "012345678905", got[0].Raw)
	assert.Equal(t, entity.SourceWedge, got[0].Source)
	assert.Equal(t, scan.AggregatorResolving, a.State())
	assert.Empty(t, a.Pending())

	a.Release()
	assert.Equal(t, scan.AggregatorIdle, a.State())
}

func TestAggregator_KeystrokesAccumulate(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{})
	assert.Equal(t, scan.AggregatorIdle, a.State())

	got := feed(a, "1234", t0)

	assert.Empty(t, got)
	assert.Equal(t, scan.AggregatorAccumulating, a.State())
	assert.Equal(t, "1234", a.Pending())
	assert.Equal(t, t0.Add(15*time.Millisecond), a.LastActivity())
}

func TestAggregator_IdleElapsedResolvesBuffer(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{IdleTimeout: 50 * time.Millisecond})
	feed(a, "4011", t0)
	gen := a.Generation()

	res, ok := a.IdleElapsed(gen, t0.Add(200*time.Millisecond))

	require.True(t, ok)
	assert.Equal(t, "4011", res.Raw)

	_, again := a.IdleElapsed(gen, t0.Add(300*time.Millisecond))
	assert.False(t, again, "a fired timer on a cleared buffer is a no-op")
}

func TestAggregator_StaleIdleTimerIsNoop(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{})
	feed(a, "12", t0)
	stale := a.Generation()
	feed(a, "3", t0.Add(50*time.Millisecond))

	_, ok := a.IdleElapsed(stale, t0.Add(time.Second))
	assert.False(t, ok, "a newer keystroke supersedes the armed timer")
	assert.Equal(t, "123", a.Pending())

	res, ok := a.IdleElapsed(a.Generation(), t0.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, "123", res.Raw)
}

func TestAggregator_SubmitResolvesEmptyBuffer(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{})

	res := a.Submit(t0)

	assert.Equal(t, "", res.Raw)
	assert.Equal(t, scan.AggregatorResolving, a.State())
}

func TestAggregator_CustomTerminator(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{Terminators: "\t"})

	got := feed(a, "55\n66\t", t0)

	require.Len(t, got, 1)
	assert.Equal(t, "55\n66", got[0].Raw)
}

func TestAggregator_DecodeCooldown(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{Cooldown: time.Second})

	res, ok := a.Decoded("ABC", t0)
	require.True(t, ok)
	assert.Equal(t, entity.SourceCamera, res.Source)

	_, ok = a.Decoded("XYZ", t0.Add(500*time.Millisecond))
	assert.False(t, ok, "cooldown applies to any code")

	_, ok = a.Decoded("ABC", t0.Add(999*time.Millisecond))
	assert.False(t, ok)

	_, ok = a.Decoded("XYZ", t0.Add(time.Second))
	assert.True(t, ok)
}

func TestAggregator_ResetClearsBufferAndCooldown(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{})
	feed(a, "99", t0)
	gen := a.Generation()
	_, ok := a.Decoded("ABC", t0)
	require.True(t, ok)

	a.Reset()

	assert.Empty(t, a.Pending())
	assert.Equal(t, scan.AggregatorIdle, a.State())
	assert.NotEqual(t, gen, a.Generation())
	_, ok = a.IdleElapsed(gen, t0.Add(time.Second))
	assert.False(t, ok)
	_, ok = a.Decoded("ABC", t0.Add(10*time.Millisecond))
	assert.True(t, ok, "reset drops the cooldown window")
}

func TestAggregator_Defaults(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{})
	assert.Equal(t, scan.DefaultIdleTimeout, a.IdleTimeout())
	assert.Equal(t, scan.DefaultCooldown, a.Cooldown())
	assert.Equal(t, "accumulating", scan.AggregatorAccumulating.String())

	_, ok := a.Decoded("A", t0)
	require.True(t, ok)
	_, ok = a.Decoded("A", t0.Add(10*time.Millisecond))
	assert.False(t, ok, "duplicate decode inside the default cooldown")
	_, ok = a.Decoded("A", t0.Add(scan.DefaultCooldown))
	assert.True(t, ok)
}

func TestAggregator_NegativeCooldownDisables(t *testing.T) {
	a := scan.NewAggregator(scan.AggregatorConfig{Cooldown: -1})
	assert.Zero(t, a.Cooldown())

	_, ok := a.Decoded("A", t0)
	require.True(t, ok)
	_, ok = a.Decoded("A", t0)
	assert.True(t, ok)
}
