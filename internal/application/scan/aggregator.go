package scan

import (
	"strings"
	"time"

	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// AggregatorState is the input aggregator's state.
type AggregatorState int

const (
	AggregatorIdle AggregatorState = iota
	AggregatorAccumulating
	AggregatorResolving
)

func (s AggregatorState) String() string {
	switch s {
	case AggregatorAccumulating:
		return "accumulating"
	case AggregatorResolving:
		return "resolving"
	}
	return "idle"
}

// Defaults for wedge and camera input.
const (
	DefaultIdleTimeout = 120 * time.Millisecond
	DefaultCooldown    = 1200 * time.Millisecond
	DefaultTerminators = "\r\n"
)

// AggregatorConfig tunes boundary detection. Zero values take the defaults;
// a negative Cooldown disables the camera cooldown.
type AggregatorConfig struct {
	IdleTimeout time.Duration
	Cooldown    time.Duration
	Terminators string
}

func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	switch {
	case c.Cooldown == 0:
		c.Cooldown = DefaultCooldown
	case c.Cooldown < 0:
		c.Cooldown = 0
	}
	if c.Terminators == "" {
		c.Terminators = DefaultTerminators
	}
	return c
}

// Resolution is one complete raw scan handed to normalization.
type Resolution struct {
	Raw    string
	Source string
	At     time.Time
}

// Aggregator groups wedge keystrokes into scan events and throttles camera
// decodes. It is not safe for concurrent use; the controller owns it.
type Aggregator struct {
	cfg          AggregatorConfig
	state        AggregatorState
	pending      []rune
	lastActivity time.Time
	gen          uint64
	lastDecode   time.Time
	decoded      bool
}

// NewAggregator builds an aggregator in the Idle state.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	return &Aggregator{cfg: cfg.withDefaults()}
}

// State returns the current state.
func (a *Aggregator) State() AggregatorState { return a.state }

// Pending returns the characters buffered so far.
func (a *Aggregator) Pending() string { return string(a.pending) }

// Generation identifies the current idle deadline. Every keystroke and every
// resolution advances it so that a timer armed earlier becomes stale.
func (a *Aggregator) Generation() uint64 { return a.gen }

// IdleTimeout is the inter-keystroke gap that ends a scan.
func (a *Aggregator) IdleTimeout() time.Duration { return a.cfg.IdleTimeout }

// Cooldown is the minimum gap between accepted camera decodes.
func (a *Aggregator) Cooldown() time.Duration { return a.cfg.Cooldown }

// LastActivity is the time of the last buffered keystroke.
func (a *Aggregator) LastActivity() time.Time { return a.lastActivity }

// Key feeds one wedge character. A terminator resolves the pending buffer
// immediately; a terminator with nothing pending is ignored so that CR/LF
// pairs do not produce empty scans.
func (a *Aggregator) Key(r rune, now time.Time) (Resolution, bool) {
	if strings.ContainsRune(a.cfg.Terminators, r) {
		if len(a.pending) == 0 {
			return Resolution{}, false
		}
		return a.resolve(now), true
	}
	a.pending = append(a.pending, r)
	a.lastActivity = now
	a.state = AggregatorAccumulating
	a.gen++
	return Resolution{}, false
}

// Submit is the explicit keyboard "submit" event. Unlike a terminator
// character it resolves even an empty buffer; normalization rejects it.
func (a *Aggregator) Submit(now time.Time) Resolution {
	return a.resolve(now)
}

// IdleElapsed resolves the buffer when the idle timer armed for gen fires.
// Stale generations and already cleared buffers are no-ops.
func (a *Aggregator) IdleElapsed(gen uint64, now time.Time) (Resolution, bool) {
	if gen != a.gen || a.state != AggregatorAccumulating || len(a.pending) == 0 {
		return Resolution{}, false
	}
	return a.resolve(now), true
}

// Decoded accepts a camera decode unless another decode was accepted within
// the cooldown window. The window applies to any code.
func (a *Aggregator) Decoded(code string, at time.Time) (Resolution, bool) {
	if a.decoded && at.Sub(a.lastDecode) < a.cfg.Cooldown {
		return Resolution{}, false
	}
	a.decoded = true
	a.lastDecode = at
	a.state = AggregatorResolving
	return Resolution{Raw: code, Source: entity.SourceCamera, At: at}, true
}

// Release returns to Idle once the pipeline accepted or rejected the hand-off.
// Keystrokes that arrived meanwhile keep the aggregator accumulating.
func (a *Aggregator) Release() {
	if a.state == AggregatorResolving {
		a.state = AggregatorIdle
	}
}

// Reset drops the buffer and the cooldown; any armed idle timer goes stale.
func (a *Aggregator) Reset() {
	a.pending = nil
	a.state = AggregatorIdle
	a.gen++
	a.decoded = false
	a.lastDecode = time.Time{}
}

func (a *Aggregator) resolve(now time.Time) Resolution {
	res := Resolution{Raw: string(a.pending), Source: entity.SourceWedge, At: now}
	a.pending = nil
	a.state = AggregatorResolving
	a.gen++
	return res
}
