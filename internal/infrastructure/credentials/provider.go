// Package credentials is the bearer-token provider used before every backend
// request. Tokens come from a configured static value or from logging in
// with configured credentials, and are cached until shortly before expiry.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/scanner-agent/internal/application/ports"
	"github.com/jhoicas/scanner-agent/internal/domain"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/cache"
	pkgjwt "github.com/jhoicas/scanner-agent/pkg/jwt"
)

var (
	_ ports.Credentials   = (*Provider)(nil)
	_ ports.SessionExpiry = (*Provider)(nil)
)

// expirySkew renews a token this long before its exp claim.
const expirySkew = 30 * time.Second

// Config provider settings.
type Config struct {
	Username    string
	Password    string
	StaticToken string
	TTL         time.Duration
}

// Provider implements ports.Credentials. Concurrent misses share one login.
type Provider struct {
	cfg   Config
	auth  ports.Authenticator
	cache cache.Cache
	log   zerolog.Logger
	group singleflight.Group

	// stale makes Token skip the cache until the next login, so a dropped
	// token is never served while its cache delete is still in flight.
	stale atomic.Bool

	mu       sync.RWMutex
	operator *entity.Operator
	expired  func(reason string)
}

// NewProvider builds the provider. auth may be nil when StaticToken is set.
func NewProvider(cfg Config, auth ports.Authenticator, c cache.Cache, log zerolog.Logger) *Provider {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Provider{
		cfg:   cfg,
		auth:  auth,
		cache: c,
		log:   log.With().Str("component", "credentials").Logger(),
	}
}

// OnExpired registers a hook called from SessionExpired.
func (p *Provider) OnExpired(fn func(reason string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = fn
}

func (p *Provider) key() string {
	return "token:" + p.cfg.Username
}

// Token returns a cached token or logs in.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if p.cfg.StaticToken != "" {
		return p.cfg.StaticToken, nil
	}
	if !p.stale.Load() {
		if v, err := p.cache.Get(ctx, p.key()); err == nil {
			return string(v), nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			p.log.Warn().Err(err).Msg("token cache read failed, logging in")
		}
	}

	v, err, _ := p.group.Do(p.key(), func() (any, error) {
		if !p.stale.Load() {
			if v, err := p.cache.Get(ctx, p.key()); err == nil {
				return string(v), nil
			}
		}
		return p.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Login forces a fresh login and returns the authenticated operator.
func (p *Provider) Login(ctx context.Context) (*entity.Operator, error) {
	if _, err := p.login(ctx); err != nil {
		return nil, err
	}
	op, ok := p.Operator()
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return op, nil
}

func (p *Provider) login(ctx context.Context) (string, error) {
	if p.auth == nil || p.cfg.Username == "" {
		return "", fmt.Errorf("credentials: no login configured: %w", domain.ErrUnauthorized)
	}
	resp, err := p.auth.Login(ctx, p.cfg.Username, p.cfg.Password)
	if err != nil {
		p.log.Warn().Err(err).Str("username", p.cfg.Username).Msg("login failed")
		return "", err
	}
	ttl := p.ttlFor(resp.Token)
	if ttl > 0 {
		if err := p.cache.Set(ctx, p.key(), []byte(resp.Token), ttl); err != nil {
			p.log.Warn().Err(err).Msg("token cache write failed")
		}
		p.stale.Store(false)
	} else {
		p.log.Debug().Msg("token expires within the renewal skew, not caching")
	}
	op := resp.User.ToEntity()
	p.mu.Lock()
	p.operator = op
	p.mu.Unlock()

	p.log.Info().
		Int64("operator_id", op.ID).
		Int64("company_id", op.CompanyID).
		Dur("ttl", ttl).
		Msg("logged in")
	return resp.Token, nil
}

// ttlFor bounds the configured TTL by the token's own exp claim. A result
// <= 0 means the token must not be cached.
func (p *Provider) ttlFor(token string) time.Duration {
	ttl := p.cfg.TTL
	exp, err := pkgjwt.ExpiresAt(token)
	if err != nil {
		return ttl
	}
	if left := time.Until(exp) - expirySkew; left < ttl {
		ttl = left
	}
	return ttl
}

// Operator returns the operator from the last login.
func (p *Provider) Operator() (*entity.Operator, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.operator == nil {
		return nil, false
	}
	op := *p.operator
	return &op, true
}

// ActiveCompanyID is the login's company, used as the default selection.
func (p *Provider) ActiveCompanyID() (int64, bool) {
	op, ok := p.Operator()
	if !ok || op.CompanyID <= 0 {
		return 0, false
	}
	return op.CompanyID, true
}

// Invalidate drops the cached token and the operator (logout).
func (p *Provider) Invalidate() {
	p.drop()
	p.mu.Lock()
	p.operator = nil
	p.mu.Unlock()
}

// SessionExpired drops the cached token so the next request logs in again.
func (p *Provider) SessionExpired(reason string) {
	p.log.Warn().Str("reason", reason).Msg("backend rejected the session token")
	p.drop()
	p.mu.RLock()
	fn := p.expired
	p.mu.RUnlock()
	if fn != nil {
		fn(reason)
	}
}

// drop marks the cached token stale and deletes it in the background.
// Callers run on the scan event loop and must not wait on the cache.
func (p *Provider) drop() {
	p.stale.Store(true)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.cache.Delete(ctx, p.key()); err != nil {
			p.log.Warn().Err(err).Msg("token cache delete failed")
		}
	}()
}
