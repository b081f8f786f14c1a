package scan

import (
	"fmt"

	"github.com/jhoicas/scanner-agent/internal/domain"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

// SessionContext holds the single active company selection, the enabled
// flag and the session counters. One field means one active company.
// Every reset advances the generation so in-flight results from an older
// session are discarded on arrival.
type SessionContext struct {
	session entity.ScanSession
	gen     uint64
	mode    string
}

// NewSessionContext builds an empty (no company, disabled) context.
func NewSessionContext(mode string) *SessionContext {
	if !entity.ValidMode(mode) {
		mode = entity.ModeStock
	}
	return &SessionContext{
		session: entity.ScanSession{Status: entity.Status{Kind: entity.StatusIdle}},
		mode:    mode,
	}
}

// Session returns a copy of the current session.
func (c *SessionContext) Session() entity.ScanSession { return c.session }

// Generation identifies the current session incarnation.
func (c *SessionContext) Generation() uint64 { return c.gen }

// Mode returns the classification mode (stock|produce).
func (c *SessionContext) Mode() string { return c.mode }

// SetMode switches the classification mode.
func (c *SessionContext) SetMode(mode string) error {
	if !entity.ValidMode(mode) {
		return fmt.Errorf("mode %q: %w", mode, domain.ErrInvalidInput)
	}
	c.mode = mode
	return nil
}

// SelectCompany makes id the active company. A change disables scanning and
// resets the counters; selecting the current company is a no-op.
func (c *SessionContext) SelectCompany(id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("company %d: %w", id, domain.ErrInvalidInput)
	}
	if id == c.session.CompanyID {
		return false, nil
	}
	c.session.CompanyID = id
	c.reset()
	return true, nil
}

// SetEnabled arms or disarms scanning. Enabling requires a company;
// disabling resets the counters.
func (c *SessionContext) SetEnabled(on bool) error {
	if !on {
		c.reset()
		return nil
	}
	if !c.session.HasCompany() {
		return domain.ErrNoCompany
	}
	if !c.session.Enabled {
		c.session.Enabled = true
		c.session.Status = entity.Status{Kind: entity.StatusReady}
	}
	return nil
}

// Logout destroys the session, company selection included.
func (c *SessionContext) Logout() {
	c.session = entity.ScanSession{Status: entity.Status{Kind: entity.StatusIdle}}
	c.gen++
}

func (c *SessionContext) reset() {
	c.session.Reset()
	c.gen++
}

func (c *SessionContext) setStatus(s entity.Status) {
	c.session.Status = s
}

func (c *SessionContext) recordSuccess(label string) {
	c.session.Count++
	c.session.LastResult = label
	c.session.Status = entity.Status{Kind: entity.StatusOk}
}

func (c *SessionContext) recordFailure(reason, code string) {
	c.session.LastResult = code
	c.session.Status = entity.ErrorStatus(reason)
}
