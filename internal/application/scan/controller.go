package scan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/application/ports"
	"github.com/jhoicas/scanner-agent/internal/domain/barcode"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/domain/repository"
)

// ErrControllerStopped is returned once Run has returned.
var ErrControllerStopped = errors.New("scan controller stopped")

const eventBuffer = 256

// Config wires the aggregator, normalization and pipeline settings.
type Config struct {
	Aggregator   AggregatorConfig
	Pipeline     PipelineConfig
	WedgeFlow    Flow
	CameraFlow   Flow
	WedgePolicy  barcode.Policy
	CameraPolicy barcode.Policy
	Mode         string
}

// DefaultConfig is wedge→direct/strict, camera→classify/lenient.
func DefaultConfig() Config {
	return Config{
		WedgeFlow:    FlowDirect,
		CameraFlow:   FlowClassify,
		WedgePolicy:  barcode.PolicyStrict,
		CameraPolicy: barcode.PolicyLenient,
		Mode:         entity.ModeStock,
	}
}

// Deps are the controller's collaborators.
type Deps struct {
	Backend     ports.InventoryBackend
	Credentials ports.Credentials
	Confirmer   ports.Confirmer
	Refresher   ports.Refresher
	Expiry      ports.SessionExpiry
	Journal     repository.ScanJournalRepository
	Logger      zerolog.Logger
}

// Controller is the scan event controller: one goroutine owns the
// aggregator, the session and the pipeline, and every input event, timer
// and network completion is a closure run on it.
type Controller struct {
	cfg      Config
	log      zerolog.Logger
	creds    ports.Credentials
	agg      *Aggregator
	session  *SessionContext
	pipeline *Pipeline
	events   chan func()
	done     chan struct{}
	idle     *time.Timer
	now      func() time.Time
}

// NewController builds a controller. Run must be called to start it.
func NewController(cfg Config, deps Deps) *Controller {
	c := &Controller{
		cfg:     cfg,
		log:     deps.Logger.With().Str("component", "scan_controller").Logger(),
		creds:   deps.Credentials,
		agg:     NewAggregator(cfg.Aggregator),
		session: NewSessionContext(cfg.Mode),
		events:  make(chan func(), eventBuffer),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	c.pipeline = newPipeline(cfg.Pipeline, PipelineDeps{
		Backend:   deps.Backend,
		Confirmer: deps.Confirmer,
		Refresher: deps.Refresher,
		Expiry:    deps.Expiry,
		Journal:   deps.Journal,
		Logger:    deps.Logger,
	}, c.session, c)
	c.pipeline.onTerminal = c.rearm
	return c
}

// Run processes events until ctx is cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	c.pipeline.baseCtx = ctx
	c.log.Info().
		Dur("idle_timeout", c.agg.IdleTimeout()).
		Str("wedge_flow", c.cfg.WedgeFlow.String()).
		Str("camera_flow", c.cfg.CameraFlow.String()).
		Msg("scan controller started")
	for {
		select {
		case <-ctx.Done():
			c.cancelSession()
			close(c.done)
			c.log.Info().Msg("scan controller stopped")
			return nil
		case fn := <-c.events:
			fn()
		}
	}
}

// Post queues fn onto the event loop. It reports false once stopped.
func (c *Controller) Post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

// call runs fn on the event loop and waits for it.
func (c *Controller) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !c.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrControllerStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrControllerStopped
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Input
// ──────────────────────────────────────────────────────────────────────────────

// Key feeds one wedge character.
func (c *Controller) Key(ctx context.Context, r rune) error {
	return c.call(ctx, func() { c.onKey(r, c.now()) })
}

// Keys feeds a burst of wedge characters, optionally followed by an explicit
// submit event.
func (c *Controller) Keys(ctx context.Context, text string, submit bool) error {
	return c.call(ctx, func() {
		for _, r := range text {
			c.onKey(r, c.now())
		}
		if submit {
			c.onSubmit()
		}
	})
}

// Submit is the keyboard "submit" event.
func (c *Controller) Submit(ctx context.Context) error {
	return c.call(ctx, c.onSubmit)
}

// Decoded feeds one camera decode. A zero at means now.
func (c *Controller) Decoded(ctx context.Context, code string, at time.Time) error {
	return c.call(ctx, func() {
		if !c.accepting() {
			return
		}
		if at.IsZero() {
			at = c.now()
		}
		res, ok := c.agg.Decoded(code, at)
		if !ok {
			c.log.Debug().Str("raw", code).Msg("decode within cooldown, ignored")
			return
		}
		c.resolve(res)
	})
}

// accepting reports whether input may reach the aggregator. Input while
// disabled is dropped so it neither fills the buffer nor starts a cooldown.
func (c *Controller) accepting() bool {
	return c.session.Session().Enabled
}

func (c *Controller) onKey(r rune, now time.Time) {
	if !c.accepting() {
		return
	}
	res, ok := c.agg.Key(r, now)
	if ok {
		c.resolve(res)
		return
	}
	if c.agg.State() == AggregatorAccumulating {
		c.armIdle(c.agg.Generation())
	}
}

func (c *Controller) onSubmit() {
	if !c.accepting() {
		return
	}
	c.resolve(c.agg.Submit(c.now()))
}

func (c *Controller) armIdle(gen uint64) {
	c.stopIdle()
	c.idle = time.AfterFunc(c.agg.IdleTimeout(), func() {
		c.Post(func() {
			if res, ok := c.agg.IdleElapsed(gen, c.now()); ok {
				c.resolve(res)
			}
		})
	})
}

func (c *Controller) stopIdle() {
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}
}

// resolve normalizes a resolved buffer and hands it to the pipeline.
func (c *Controller) resolve(res Resolution) {
	c.stopIdle()
	defer c.agg.Release()

	flow, policy := c.cfg.WedgeFlow, c.cfg.WedgePolicy
	if res.Source == entity.SourceCamera {
		flow, policy = c.cfg.CameraFlow, c.cfg.CameraPolicy
	}
	code, err := barcode.Normalize(res.Raw, policy)
	if err != nil {
		c.pipeline.Reject(res, err)
		return
	}
	job := &Job{
		ID:     uuid.NewString(),
		Code:   code,
		Raw:    res.Raw,
		Source: res.Source,
		Flow:   flow,
		Mode:   c.session.Mode(),
		At:     res.At,
	}
	if r := c.pipeline.Submit(job); r != Accepted {
		c.log.Debug().Str("barcode", code.String()).Str("result", r.String()).Msg("scan not submitted")
	}
}

// rearm runs after every terminal pipeline outcome.
func (c *Controller) rearm() {
	if c.session.Session().Enabled {
		c.agg.Release()
	}
}

// cancelSession tears down transient state: buffer, timers, in-flight work.
func (c *Controller) cancelSession() {
	c.stopIdle()
	c.agg.Reset()
	c.pipeline.Reset()
}

// ──────────────────────────────────────────────────────────────────────────────
// Session
// ──────────────────────────────────────────────────────────────────────────────

// SelectCompany switches the active company. A change disables scanning.
func (c *Controller) SelectCompany(ctx context.Context, id int64) error {
	var err error
	callErr := c.call(ctx, func() {
		var changed bool
		changed, err = c.session.SelectCompany(id)
		if changed {
			c.cancelSession()
			c.log.Info().Int64("company_id", id).Msg("company selected, scanning disabled")
		}
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// SetEnabled arms or disarms scanning.
func (c *Controller) SetEnabled(ctx context.Context, on bool) error {
	var err error
	callErr := c.call(ctx, func() {
		if err = c.session.SetEnabled(on); err != nil {
			return
		}
		if !on {
			c.cancelSession()
		}
		c.log.Info().Bool("enabled", on).Int64("company_id", c.session.Session().CompanyID).Msg("scanning toggled")
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// SetMode switches the classification mode for subsequent scans.
func (c *Controller) SetMode(ctx context.Context, mode string) error {
	var err error
	callErr := c.call(ctx, func() { err = c.session.SetMode(mode) })
	if callErr != nil {
		return callErr
	}
	return err
}

// Logout destroys the session and invalidates the credential.
func (c *Controller) Logout(ctx context.Context) error {
	return c.call(ctx, func() {
		c.session.Logout()
		c.cancelSession()
		if c.creds != nil {
			c.creds.Invalidate()
		}
		c.log.Info().Msg("session logged out")
	})
}

// Confirm answers a pending create-then-adjust confirmation.
func (c *Controller) Confirm(ctx context.Context, id string, accept bool) error {
	var err error
	callErr := c.call(ctx, func() { err = c.pipeline.Resolve(id, accept) })
	if callErr != nil {
		return callErr
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Views
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot renders the operator status view.
func (c *Controller) Snapshot(ctx context.Context) (dto.StatusView, error) {
	var view dto.StatusView
	err := c.call(ctx, func() {
		view = Render(c.session.Session(), c.pipeline.Last())
		view.Mode = c.session.Mode()
		for _, p := range c.pipeline.Pending() {
			view.Pending = append(view.Pending, dto.NewConfirmationResponse(p))
		}
	})
	if err != nil {
		return dto.StatusView{}, err
	}
	return view, nil
}

// Session returns a copy of the current session.
func (c *Controller) Session(ctx context.Context) (entity.ScanSession, error) {
	var s entity.ScanSession
	if err := c.call(ctx, func() { s = c.session.Session() }); err != nil {
		return entity.ScanSession{}, err
	}
	return s, nil
}

// Pending lists the confirmations awaiting an answer.
func (c *Controller) Pending(ctx context.Context) ([]entity.Confirmation, error) {
	var out []entity.Confirmation
	if err := c.call(ctx, func() { out = c.pipeline.Pending() }); err != nil {
		return nil, err
	}
	return out, nil
}
