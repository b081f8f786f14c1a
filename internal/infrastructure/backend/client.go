// Package backend is the REST adapter for the inventory backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/application/ports"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
)

var (
	_ ports.InventoryBackend = (*Client)(nil)
	_ ports.Authenticator    = (*Client)(nil)
)

const (
	// IdempotencyHeader carries the scan UUID. The backend may ignore it.
	IdempotencyHeader = "Idempotency-Key"

	maxBody = 1 << 20
)

// Client calls the inventory REST backend with net/http. Every authenticated
// call asks the TokenSource for a token first; the client never stores one.
type Client struct {
	baseURL    string
	tokens     ports.TokenSource
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds the adapter. tokens may be nil for Login-only use.
func NewClient(baseURL string, timeout time.Duration, tokens ports.TokenSource, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "backend").Logger(),
	}
}

// SetTokenSource installs the credential provider after construction (the
// provider itself logs in through this client).
func (c *Client) SetTokenSource(tokens ports.TokenSource) {
	c.tokens = tokens
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	scanID string
	auth   bool
}

// do performs one request and returns the status and the raw body. Only
// transport and credential failures are returned as errors.
func (c *Client) do(ctx context.Context, in call) (int, []byte, error) {
	var rdr io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return 0, nil, &Error{Kind: KindValidation, Message: "encode request: " + err.Error(), Err: err}
		}
		rdr = bytes.NewReader(payload)
	}
	u := c.baseURL + in.path
	if len(in.query) > 0 {
		u += "?" + in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, u, rdr)
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.scanID != "" {
		req.Header.Set(IdempotencyHeader, in.scanID)
	}
	if in.auth {
		if c.tokens == nil {
			return 0, nil, &Error{Kind: KindUnauthorized, Message: "unauthorized"}
		}
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			var be *Error
			if errors.As(err, &be) {
				return 0, nil, be
			}
			return 0, nil, &Error{Kind: KindUnauthorized, Message: "unauthorized", Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return 0, nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.log.Debug().
		Str("method", in.method).
		Str("path", in.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend call")
	return resp.StatusCode, raw, nil
}

func ok(status int) bool { return status >= 200 && status < 300 }

// failure builds the classified error for a non-success answer.
func failure(status int, msg string, raw []byte) *Error {
	if msg == "" {
		var env struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil {
			msg = env.Error
		}
	}
	return &Error{Kind: classify(status, msg), Status: status, Message: msg}
}

func decode(status int, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		if !ok(status) {
			return failure(status, "", raw)
		}
		return &Error{Kind: KindValidation, Status: status, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

// Adjust calls POST /api/inventory/adjust.
func (c *Client) Adjust(ctx context.Context, in dto.AdjustRequest) (*entity.Item, error) {
	status, raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/inventory/adjust",
		body:   in,
		scanID: in.ScanID,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	var out dto.AdjustResponse
	if err := decode(status, raw, &out); err != nil {
		return nil, err
	}
	if !ok(status) || !out.OK {
		return nil, failure(status, out.Error, raw)
	}
	if out.Item == nil {
		return nil, &Error{Kind: KindValidation, Status: status, Message: "adjust response without item"}
	}
	return out.Item.ToEntity(), nil
}

// Classify calls POST /api/scan. A not_in_catalog answer becomes a lookup
// with Source CatalogNotFound, carrying any stub name/price the backend sent.
func (c *Client) Classify(ctx context.Context, barcode, mode string) (*entity.CatalogLookup, error) {
	status, raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/scan",
		body:   dto.ScanRequest{Barcode: barcode, Mode: mode},
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	var out dto.ScanResponse
	if err := decode(status, raw, &out); err != nil {
		return nil, err
	}
	if !ok(status) || out.Error != "" {
		fail := failure(status, out.Error, raw)
		if fail.Kind != KindNotInCatalog {
			return nil, fail
		}
		lookup := &entity.CatalogLookup{Source: entity.CatalogNotFound}
		if out.Item != nil {
			lookup.CandidateName = out.Item.ToEntity().Name
			lookup.CandidatePrice = out.Item.Price
		}
		return lookup, nil
	}

	switch entity.CatalogSource(out.Source) {
	case entity.CatalogLocal:
		lookup := &entity.CatalogLookup{Source: entity.CatalogLocal}
		if out.Item != nil {
			lookup.Item = out.Item.ToEntity()
		}
		return lookup, nil
	case entity.CatalogExternalStub:
		lookup := &entity.CatalogLookup{Source: entity.CatalogExternalStub}
		if out.Item != nil {
			lookup.CandidateName = out.Item.ToEntity().Name
			lookup.CandidatePrice = out.Item.Price
		}
		return lookup, nil
	}
	return nil, &Error{Kind: KindValidation, Status: status, Message: fmt.Sprintf("unknown catalog source %q", out.Source)}
}

// UpsertItem calls POST /api/inventory.
func (c *Client) UpsertItem(ctx context.Context, in dto.UpsertItemRequest) (*entity.Item, error) {
	status, raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/inventory",
		body:   in,
		scanID: in.ScanID,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	var out dto.UpsertItemResponse
	if err := decode(status, raw, &out); err != nil {
		return nil, err
	}
	if !ok(status) || out.Error != "" {
		return nil, failure(status, out.Error, raw)
	}
	if out.Item != nil {
		return out.Item.ToEntity(), nil
	}
	item := out.ItemDTO.ToEntity()
	if item.Barcode == "" {
		item.Barcode = in.Barcode
	}
	return item, nil
}

// ListInventory calls GET /api/inventory.
func (c *Client) ListInventory(ctx context.Context, q dto.InventoryQuery) ([]*entity.Item, error) {
	params := url.Values{}
	params.Set("company_id", strconv.FormatInt(q.CompanyID, 10))
	if q.Q != "" {
		params.Set("q", q.Q)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	status, raw, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/inventory",
		query:  params,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, failure(status, "", raw)
	}
	var rows []dto.ItemDTO
	if err := decode(status, raw, &rows); err != nil {
		return nil, err
	}
	items := make([]*entity.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.ToEntity())
	}
	return items, nil
}

// Login calls POST /api/login.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	status, raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/login",
		body:   dto.LoginRequest{Username: username, Password: password},
	})
	if err != nil {
		return nil, err
	}
	var out dto.LoginResponse
	if err := decode(status, raw, &out); err != nil {
		return nil, err
	}
	if !ok(status) || out.Error != "" {
		fail := failure(status, out.Error, raw)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			fail.Kind = KindUnauthorized
		}
		return nil, fail
	}
	if out.Token == "" {
		return nil, &Error{Kind: KindUnauthorized, Status: status, Message: "login response without token"}
	}
	return &out, nil
}
