package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/application/ports"
	"github.com/jhoicas/scanner-agent/internal/domain"
	"github.com/jhoicas/scanner-agent/internal/domain/barcode"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/domain/repository"
)

// Flow selects how a resolved code reaches the backend.
type Flow int

const (
	// FlowDirect adjusts by +1 straight away (wedge/trigger mode).
	FlowDirect Flow = iota
	// FlowClassify looks the code up first and confirms before creating.
	FlowClassify
)

func (f Flow) String() string {
	if f == FlowClassify {
		return "classify"
	}
	return "direct"
}

// ParseFlow parses "direct" or "classify".
func ParseFlow(s string) (Flow, error) {
	switch s {
	case "direct", "":
		return FlowDirect, nil
	case "classify":
		return FlowClassify, nil
	}
	return FlowDirect, fmt.Errorf("flow %q: %w", s, domain.ErrInvalidInput)
}

// Scope selects the single-flight key.
type Scope int

const (
	// ScopeSession allows one outstanding request per session.
	ScopeSession Scope = iota
	// ScopeCode allows one outstanding request per (company, code).
	ScopeCode
)

// ParseScope parses "session" or "code".
func ParseScope(s string) (Scope, error) {
	switch s {
	case "session", "":
		return ScopeSession, nil
	case "code":
		return ScopeCode, nil
	}
	return ScopeSession, fmt.Errorf("single-flight scope %q: %w", s, domain.ErrInvalidInput)
}

// DefaultConfirmTimeout declines an unanswered confirmation.
const DefaultConfirmTimeout = 30 * time.Second

// adjustDelta is the quantity change applied by one scan.
const adjustDelta = 1

// newItemName is used when a not-in-catalog code has no candidate name.
const newItemName = "New Item"

// SubmitResult reports what the pipeline did with a hand-off.
type SubmitResult int

const (
	Accepted SubmitResult = iota
	DroppedDisabled
	DroppedNoCompany
	DroppedInFlight
)

func (r SubmitResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case DroppedDisabled:
		return "dropped_disabled"
	case DroppedNoCompany:
		return "dropped_no_company"
	case DroppedInFlight:
		return "dropped_in_flight"
	}
	return "unknown"
}

// Job is one resolved, normalized scan travelling through the pipeline.
type Job struct {
	ID        string
	Code      barcode.Code
	Raw       string
	Source    string
	Flow      Flow
	Mode      string
	At        time.Time
	CompanyID int64
	gen       uint64
}

// OutcomeKind classifies the most recent pipeline outcome.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeOK
	OutcomeFailed
	OutcomeDeclined
	OutcomeInvalid
)

// Outcome is the most recent terminal result, input to the status reporter.
type Outcome struct {
	Kind    OutcomeKind
	Code    string
	Item    *entity.Item
	Created bool
	Err     error
}

// PipelineConfig tunes the submission pipeline.
type PipelineConfig struct {
	Scope          Scope
	ConfirmTimeout time.Duration
	AutoConfirm    bool
	RequestTimeout time.Duration
}

// PipelineDeps are the pipeline's collaborators. Only Backend is required.
type PipelineDeps struct {
	Backend   ports.InventoryBackend
	Confirmer ports.Confirmer
	Refresher ports.Refresher
	Expiry    ports.SessionExpiry
	Journal   repository.ScanJournalRepository
	Logger    zerolog.Logger
}

// scheduler serializes closures onto the controller's event loop.
type scheduler interface {
	Post(fn func()) bool
}

type flightKey struct {
	companyID int64
	code      barcode.Code
}

type pendingConfirmation struct {
	conf  entity.Confirmation
	job   *Job
	key   flightKey
	timer *time.Timer
}

// stepResult is what a network worker hands back to the event loop.
type stepResult struct {
	item    *entity.Item
	lookup  *entity.CatalogLookup
	created bool
	err     error
}

// Pipeline turns normalized codes into backend adjustments. All methods run
// on the controller's event loop; network calls run on worker goroutines and
// post their completion back.
type Pipeline struct {
	cfg      PipelineConfig
	deps     PipelineDeps
	log      zerolog.Logger
	session  *SessionContext
	sched    scheduler
	baseCtx  context.Context
	inFlight map[flightKey]*Job
	pending  map[string]*pendingConfirmation
	last     Outcome
	// onTerminal runs after every terminal outcome (re-arm hook).
	onTerminal func()
}

func newPipeline(cfg PipelineConfig, deps PipelineDeps, session *SessionContext, sched scheduler) *Pipeline {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	return &Pipeline{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger.With().Str("component", "pipeline").Logger(),
		session:  session,
		sched:    sched,
		baseCtx:  context.Background(),
		inFlight: make(map[flightKey]*Job),
		pending:  make(map[string]*pendingConfirmation),
	}
}

// Last returns the most recent terminal outcome.
func (p *Pipeline) Last() Outcome { return p.last }

// InFlight returns the number of outstanding submissions.
func (p *Pipeline) InFlight() int { return len(p.inFlight) }

// Pending returns the confirmations awaiting an operator answer.
func (p *Pipeline) Pending() []entity.Confirmation {
	out := make([]entity.Confirmation, 0, len(p.pending))
	for _, pc := range p.pending {
		out = append(out, pc.conf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

func (p *Pipeline) key(companyID int64, code barcode.Code) flightKey {
	if p.cfg.Scope == ScopeSession {
		return flightKey{companyID: companyID}
	}
	return flightKey{companyID: companyID, code: code}
}

// Submit hands one normalized code to the pipeline. It never blocks: the
// network work runs on a worker goroutine.
func (p *Pipeline) Submit(job *Job) SubmitResult {
	s := p.session.Session()
	if !s.Enabled {
		return DroppedDisabled
	}
	if !s.HasCompany() {
		return DroppedNoCompany
	}
	key := p.key(s.CompanyID, job.Code)
	if _, busy := p.inFlight[key]; busy {
		p.log.Debug().Str("barcode", job.Code.String()).Str("scan_id", job.ID).Msg("submission in flight, scan dropped")
		return DroppedInFlight
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CompanyID = s.CompanyID
	job.gen = p.session.Generation()
	p.inFlight[key] = job
	p.session.setStatus(entity.Status{Kind: entity.StatusSending})

	p.log.Info().
		Str("scan_id", job.ID).
		Int64("company_id", job.CompanyID).
		Str("barcode", job.Code.String()).
		Str("source", job.Source).
		Str("flow", job.Flow.String()).
		Msg("submitting scan")

	if job.Flow == FlowClassify {
		p.spawn(job, key, p.classifyThenAdjust)
	} else {
		p.spawn(job, key, p.directAdjust)
	}
	return Accepted
}

// Reject records a scan whose raw text failed normalization. It never
// reaches the network.
func (p *Pipeline) Reject(res Resolution, err error) {
	s := p.session.Session()
	if !s.Enabled {
		return
	}
	p.session.setStatus(entity.ErrorStatus(err.Error()))
	p.last = Outcome{Kind: OutcomeInvalid, Code: res.Raw, Err: err}
	p.log.Warn().Str("raw", res.Raw).Str("source", res.Source).Msg("invalid scan rejected")
	p.journal(&entity.ScanRecord{
		ID:        uuid.NewString(),
		CompanyID: s.CompanyID,
		Raw:       res.Raw,
		Source:    res.Source,
		Mode:      p.session.Mode(),
		Outcome:   entity.OutcomeInvalid,
		ErrorKind: errorKind(err),
		Message:   err.Error(),
		ScannedAt: res.At,
	})
	p.terminal()
}

// Resolve answers a pending confirmation. Accepting runs the compound
// create-with-zero-then-adjust; declining leaves inventory unchanged.
func (p *Pipeline) Resolve(id string, accept bool) error {
	pc, ok := p.pending[id]
	if !ok {
		return domain.ErrNoPending
	}
	delete(p.pending, id)
	if pc.timer != nil {
		pc.timer.Stop()
	}
	if !accept {
		p.decline(pc)
		return nil
	}
	p.session.setStatus(entity.Status{Kind: entity.StatusSending})
	p.log.Info().Str("scan_id", pc.job.ID).Str("barcode", pc.job.Code.String()).Msg("confirmation accepted, creating item")
	conf := pc.conf
	p.spawn(pc.job, pc.key, func(ctx context.Context, job *Job) stepResult {
		return p.createThenAdjust(ctx, job, conf)
	})
	return nil
}

// Reset abandons every outstanding submission and confirmation. Results that
// arrive later carry an old generation and are discarded.
func (p *Pipeline) Reset() {
	for id, pc := range p.pending {
		if pc.timer != nil {
			pc.timer.Stop()
		}
		delete(p.pending, id)
	}
	p.inFlight = make(map[flightKey]*Job)
	p.last = Outcome{}
}

type work func(ctx context.Context, job *Job) stepResult

// spawn runs w on a worker goroutine. Posting the completion is deferred and
// recovers panics, so the in-flight slot is always released.
func (p *Pipeline) spawn(job *Job, key flightKey, w work) {
	ctx := p.baseCtx
	go func() {
		var res stepResult
		defer func() {
			if r := recover(); r != nil {
				res = stepResult{err: fmt.Errorf("scan worker panic: %v", r)}
			}
			p.sched.Post(func() { p.complete(job, key, res) })
		}()
		if p.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
			defer cancel()
		}
		res = w(ctx, job)
	}()
}

func (p *Pipeline) directAdjust(ctx context.Context, job *Job) stepResult {
	item, err := p.deps.Backend.Adjust(ctx, p.adjustRequest(job))
	if errors.Is(err, domain.ErrNotInCatalog) {
		// Not a hard error: the item must be created first.
		return stepResult{lookup: &entity.CatalogLookup{Source: entity.CatalogNotFound}}
	}
	return stepResult{item: item, err: err}
}

func (p *Pipeline) classifyThenAdjust(ctx context.Context, job *Job) stepResult {
	lookup, err := p.deps.Backend.Classify(ctx, job.Code.String(), job.Mode)
	if err != nil {
		if errors.Is(err, domain.ErrNotInCatalog) {
			return stepResult{lookup: &entity.CatalogLookup{Source: entity.CatalogNotFound}}
		}
		return stepResult{err: err}
	}
	if lookup.NeedsConfirmation() {
		return stepResult{lookup: lookup}
	}
	return p.directAdjust(ctx, job)
}

func (p *Pipeline) createThenAdjust(ctx context.Context, job *Job, conf entity.Confirmation) stepResult {
	_, err := p.deps.Backend.UpsertItem(ctx, dto.UpsertItemRequest{
		CompanyID: job.CompanyID,
		Barcode:   job.Code.String(),
		Name:      conf.Name,
		Price:     conf.Price,
		Qty:       0,
		ScanID:    job.ID,
	})
	if err != nil {
		return stepResult{err: err}
	}
	item, err := p.deps.Backend.Adjust(ctx, p.adjustRequest(job))
	return stepResult{item: item, created: true, err: err}
}

func (p *Pipeline) adjustRequest(job *Job) dto.AdjustRequest {
	return dto.AdjustRequest{
		CompanyID: job.CompanyID,
		Barcode:   job.Code.String(),
		Delta:     adjustDelta,
		ScanID:    job.ID,
	}
}

// complete applies a worker result on the event loop.
func (p *Pipeline) complete(job *Job, key flightKey, res stepResult) {
	if job.gen != p.session.Generation() {
		p.log.Info().Str("scan_id", job.ID).Msg("result for a torn-down session discarded")
		return
	}
	switch {
	case res.err != nil:
		delete(p.inFlight, key)
		p.fail(job, res.err)
	case res.item == nil && res.lookup != nil && res.lookup.NeedsConfirmation():
		// The slot stays held until the operator answers.
		p.askConfirmation(job, key, res.lookup)
	default:
		delete(p.inFlight, key)
		p.succeed(job, res.item, res.created)
	}
}

func (p *Pipeline) succeed(job *Job, item *entity.Item, created bool) {
	label := job.Code.String()
	if item != nil {
		label = item.Label()
	}
	p.session.recordSuccess(label)
	p.last = Outcome{Kind: OutcomeOK, Code: job.Code.String(), Item: item, Created: created}

	ev := p.log.Info().Str("scan_id", job.ID).Str("barcode", job.Code.String()).Bool("created", created)
	if item != nil {
		ev = ev.Int("qty", item.Qty)
	}
	ev.Msg("scan applied")

	rec := p.record(job, entity.OutcomeOK)
	rec.Created = created
	if item != nil {
		rec.ItemName = item.Name
		rec.Qty = item.Qty
		rec.Price = item.Price
	}
	p.journal(rec)
	p.reload(job.CompanyID)
	p.terminal()
}

func (p *Pipeline) fail(job *Job, err error) {
	reason := err.Error()
	p.session.recordFailure(reason, job.Code.String())
	p.last = Outcome{Kind: OutcomeFailed, Code: job.Code.String(), Err: err}

	kind := errorKind(err)
	ev := p.log.Warn()
	if kind == "validation" {
		ev = p.log.Error()
	}
	if kind == "unauthorized" && p.deps.Expiry != nil {
		p.deps.Expiry.SessionExpired(reason)
	}
	ev = ev.Str("error_kind", kind)
	ev.Err(err).Str("scan_id", job.ID).Str("barcode", job.Code.String()).Msg("scan failed, not retried")

	rec := p.record(job, entity.OutcomeError)
	rec.ErrorKind = kind
	rec.Message = reason
	p.journal(rec)
	p.reload(job.CompanyID)
	p.terminal()
}

func (p *Pipeline) askConfirmation(job *Job, key flightKey, lookup *entity.CatalogLookup) {
	name := lookup.CandidateName
	price := lookup.CandidatePrice
	if lookup.Item != nil {
		if name == "" {
			name = lookup.Item.Name
		}
		if price.IsZero() {
			price = lookup.Item.Price
		}
	}
	if name == "" {
		name = newItemName
	}
	conf := entity.Confirmation{
		ID:          uuid.NewString(),
		CompanyID:   job.CompanyID,
		Barcode:     job.Code.String(),
		Source:      lookup.Source,
		Name:        name,
		Price:       price.Round(2),
		RequestedAt: time.Now(),
	}
	pc := &pendingConfirmation{conf: conf, job: job, key: key}
	p.pending[conf.ID] = pc

	p.log.Info().
		Str("scan_id", job.ID).
		Str("confirmation_id", conf.ID).
		Str("barcode", conf.Barcode).
		Str("source", string(conf.Source)).
		Msg("confirmation required")

	if p.cfg.AutoConfirm {
		_ = p.Resolve(conf.ID, true)
		return
	}
	id := conf.ID
	pc.timer = time.AfterFunc(p.cfg.ConfirmTimeout, func() {
		p.sched.Post(func() {
			if _, ok := p.pending[id]; ok {
				p.log.Info().Str("confirmation_id", id).Msg("confirmation timed out")
				_ = p.Resolve(id, false)
			}
		})
	})
	if p.deps.Confirmer != nil {
		p.deps.Confirmer.RequestConfirmation(conf)
	}
}

func (p *Pipeline) decline(pc *pendingConfirmation) {
	delete(p.inFlight, pc.key)
	p.session.setStatus(entity.Status{Kind: entity.StatusReady})
	p.last = Outcome{Kind: OutcomeDeclined, Code: pc.job.Code.String()}
	p.log.Info().Str("scan_id", pc.job.ID).Str("barcode", pc.job.Code.String()).Msg("confirmation declined, inventory unchanged")
	rec := p.record(pc.job, entity.OutcomeDeclined)
	rec.ItemName = pc.conf.Name
	rec.Price = pc.conf.Price
	p.journal(rec)
	p.terminal()
}

func (p *Pipeline) record(job *Job, outcome string) *entity.ScanRecord {
	return &entity.ScanRecord{
		ID:        job.ID,
		CompanyID: job.CompanyID,
		Barcode:   job.Code.String(),
		Raw:       job.Raw,
		Source:    job.Source,
		Mode:      job.Mode,
		Outcome:   outcome,
		Price:     decimal.Zero,
		ScannedAt: job.At,
	}
}

// journal writes off the event loop; a slow database must not stall input.
func (p *Pipeline) journal(rec *entity.ScanRecord) {
	if p.deps.Journal == nil {
		return
	}
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.deps.Journal.Append(ctx, rec); err != nil {
			p.log.Error().Err(err).Str("scan_id", rec.ID).Msg("journal append")
		}
	}()
}

func (p *Pipeline) reload(companyID int64) {
	if p.deps.Refresher != nil {
		p.deps.Refresher.Reload(companyID)
	}
}

func (p *Pipeline) terminal() {
	if p.onTerminal != nil {
		p.onTerminal()
	}
}

// errorKind names the taxonomy bucket of err for the journal.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotInCatalog):
		return "not_in_catalog"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	}
	return "unknown"
}
