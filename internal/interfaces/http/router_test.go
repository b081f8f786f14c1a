package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scanner-agent/internal/application/dto"
	"github.com/jhoicas/scanner-agent/internal/application/scan"
	"github.com/jhoicas/scanner-agent/internal/domain"
	"github.com/jhoicas/scanner-agent/internal/domain/entity"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/memory"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/refresh"
	apphttp "github.com/jhoicas/scanner-agent/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/scanner-agent/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeController struct {
	mu      sync.Mutex
	session entity.ScanSession
	mode    string
	keys    []string
	decoded []string
	answers map[string]bool
	pending []entity.Confirmation
	stopped bool
}

func newFakeController() *fakeController {
	return &fakeController{mode: entity.ModeStock, answers: map[string]bool{}}
}

func (f *fakeController) err() error {
	if f.stopped {
		return scan.ErrControllerStopped
	}
	return nil
}

func (f *fakeController) Keys(_ context.Context, text string, submit bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return scan.ErrControllerStopped
	}
	if submit {
		text += "⏎"
	}
	f.keys = append(f.keys, text)
	return nil
}

func (f *fakeController) Decoded(_ context.Context, code string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decoded = append(f.decoded, code)
	return f.err()
}

func (f *fakeController) SelectCompany(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id <= 0 {
		return domain.ErrInvalidInput
	}
	if id != f.session.CompanyID {
		f.session = entity.ScanSession{CompanyID: id, Status: entity.Status{Kind: entity.StatusIdle}}
	}
	return nil
}

func (f *fakeController) SetEnabled(_ context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on && !f.session.HasCompany() {
		return domain.ErrNoCompany
	}
	f.session.Enabled = on
	if on {
		f.session.Status = entity.Status{Kind: entity.StatusReady}
	} else {
		f.session.Status = entity.Status{Kind: entity.StatusIdle}
	}
	return nil
}

func (f *fakeController) SetMode(_ context.Context, mode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !entity.ValidMode(mode) {
		return domain.ErrInvalidInput
	}
	f.mode = mode
	return nil
}

func (f *fakeController) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = entity.ScanSession{Status: entity.Status{Kind: entity.StatusIdle}}
	return nil
}

func (f *fakeController) Confirm(_ context.Context, id string, accept bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.pending {
		if p.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			f.answers[id] = accept
			return nil
		}
	}
	return domain.ErrNoPending
}

func (f *fakeController) Snapshot(context.Context) (dto.StatusView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return dto.StatusView{}, scan.ErrControllerStopped
	}
	view := scan.Render(f.session, scan.Outcome{})
	view.Mode = f.mode
	for _, p := range f.pending {
		view.Pending = append(view.Pending, dto.NewConfirmationResponse(p))
	}
	return view, nil
}

func (f *fakeController) Session(context.Context) (entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err()
}

func (f *fakeController) Pending(context.Context) ([]entity.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Confirmation(nil), f.pending...), f.err()
}

type fakeLister struct {
	items []*entity.Item
	err   error
}

func (l *fakeLister) ListInventory(_ context.Context, q dto.InventoryQuery) ([]*entity.Item, error) {
	return l.items, l.err
}

type fakeLogin struct {
	op *entity.Operator
}

func (l *fakeLogin) Login(context.Context) (*entity.Operator, error) {
	return l.op, nil
}

type fakeReport struct {
	companyID int64
	records   int
}

func (r *fakeReport) GenerateShiftReport(_ context.Context, companyID int64, records []*entity.ScanRecord, _ time.Time) ([]byte, error) {
	r.companyID = companyID
	r.records = len(records)
	return []byte("%PDF-1.3 fake"), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Harness
// ──────────────────────────────────────────────────────────────────────────────

type harness struct {
	app     *fiber.App
	ctrl    *fakeController
	journal *memory.ScanJournal
	report  *fakeReport
	lister  *fakeLister
	view    *refresh.Refresher
}

func newHarness(t *testing.T, secret string) *harness {
	t.Helper()
	h := &harness{
		ctrl:    newFakeController(),
		journal: memory.NewScanJournal(100),
		report:  &fakeReport{},
		lister:  &fakeLister{items: []*entity.Item{{ID: 1, Name: "Widget", Barcode: "012345678905", Price: decimal.RequireFromString("2.50"), Qty: 4}}},
	}
	h.view = refresh.New(h.lister, time.Hour, 0, zerolog.Nop())
	h.app = fiber.New()
	apphttp.Router(h.app, apphttp.RouterDeps{
		Controller: h.ctrl,
		Login:      &fakeLogin{op: &entity.Operator{ID: 3, Username: "op", CompanyID: 9}},
		Inventory:  h.view,
		Journal:    h.journal,
		Report:     h.report,
		JWTSecret:  secret,
	})
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, auth string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decodeView(t *testing.T, b []byte) dto.StatusView {
	t.Helper()
	var v dto.StatusView
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

// ──────────────────────────────────────────────────────────────────────────────
// Open API (no JWT secret)
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SessionLifecycle(t *testing.T) {
	h := newHarness(t, "")

	resp, body := h.do(t, http.MethodPost, "/api/session/enable", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "NO_COMPANY")

	resp, body = h.do(t, http.MethodPut, "/api/session/company", dto.SelectCompanyRequest{CompanyID: 7}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Scanning disabled", decodeView(t, body).StatusLine)

	resp, body = h.do(t, http.MethodPost, "/api/session/enable", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, body)
	assert.Equal(t, "Ready", v.StatusLine)
	assert.Equal(t, "Scanned: 0", v.CountLabel)
	assert.Equal(t, int64(7), v.CompanyID)

	resp, body = h.do(t, http.MethodPut, "/api/session/mode", dto.ModeRequest{Mode: "produce"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "produce", decodeView(t, body).Mode)

	resp, _ = h.do(t, http.MethodPut, "/api/session/mode", dto.ModeRequest{Mode: "bogus"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/session/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decodeView(t, body).CompanyID)
}

func TestRouter_ScanInput(t *testing.T) {
	h := newHarness(t, "")

	resp, body := h.do(t, http.MethodPost, "/api/scan/keys", dto.KeysRequest{Text: "012345678905\n"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, decodeView(t, body).StatusLine)

	resp, _ = h.do(t, http.MethodPost, "/api/scan/keys", dto.KeysRequest{Text: "4011", Submit: true}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/scan/decoded", dto.DecodedRequest{Code: "4011"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, []string{"012345678905\n", "4011⏎"}, h.ctrl.keys)
	assert.Equal(t, []string{"4011"}, h.ctrl.decoded)
}

func TestRouter_ScanInputInvalidBody(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/scan/keys", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_ControllerStopped(t *testing.T) {
	h := newHarness(t, "")
	h.ctrl.stopped = true

	resp, body := h.do(t, http.MethodGet, "/api/status", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "STOPPED")
}

func TestRouter_Confirmations(t *testing.T) {
	h := newHarness(t, "")
	h.ctrl.pending = []entity.Confirmation{{ID: "c1", CompanyID: 7, Barcode: "4011", Source: entity.CatalogNotFound, RequestedAt: time.Now()}}

	resp, body := h.do(t, http.MethodGet, "/api/confirmations", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []dto.ConfirmationResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Barcode 4011 not in catalog. Create it and add +1 now?", list[0].Prompt)

	resp, _ = h.do(t, http.MethodPost, "/api/confirmations/c1", dto.ConfirmRequest{Accept: true}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, h.ctrl.answers["c1"])

	resp, body = h.do(t, http.MethodPost, "/api/confirmations/c1", dto.ConfirmRequest{Accept: false}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestRouter_InventoryView(t *testing.T) {
	h := newHarness(t, "")

	resp, _ := h.do(t, http.MethodGet, "/api/inventory", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, h.ctrl.SelectCompany(context.Background(), 7))
	resp, body := h.do(t, http.MethodGet, "/api/inventory?q=wid", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.InventoryListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, int64(7), list.CompanyID)
	assert.Equal(t, "wid", list.Query)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Widget", list.Items[0].Name)
	assert.True(t, h.view.Snapshot().Visible)

	resp, _ = h.do(t, http.MethodDelete, "/api/inventory/view", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, h.view.Snapshot().Visible)
}

func TestRouter_InventoryBackendError(t *testing.T) {
	h := newHarness(t, "")
	h.lister.err = domain.ErrTransport
	require.NoError(t, h.ctrl.SelectCompany(context.Background(), 7))

	resp, body := h.do(t, http.MethodGet, "/api/inventory", nil, "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "BACKEND_ERROR")
}

func TestRouter_LoginSelectsOperatorCompany(t *testing.T) {
	h := newHarness(t, "")

	resp, body := h.do(t, http.MethodPost, "/api/session/login", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, int64(9), user.CompanyID)
	assert.Equal(t, int64(9), h.ctrl.session.CompanyID)
}

func TestRouter_JournalAndReport(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	base := time.Now()
	require.NoError(t, h.journal.Append(ctx, &entity.ScanRecord{ID: "a", CompanyID: 7, Barcode: "1", Outcome: entity.OutcomeOK, ScannedAt: base}))
	require.NoError(t, h.journal.Append(ctx, &entity.ScanRecord{ID: "b", CompanyID: 8, Barcode: "2", Outcome: entity.OutcomeOK, ScannedAt: base.Add(time.Second)}))
	require.NoError(t, h.journal.Append(ctx, &entity.ScanRecord{ID: "c", CompanyID: 7, Barcode: "3", Outcome: entity.OutcomeError, ScannedAt: base.Add(2 * time.Second)}))

	resp, body := h.do(t, http.MethodGet, "/api/scans?company_id=7", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ScanListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "c", list.Scans[0].ID)

	resp, body = h.do(t, http.MethodGet, "/api/scans?company_id=0&limit=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Total)

	resp, body = h.do(t, http.MethodGet, "/api/scans/report.pdf?company_id=7", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "scans-7-")
	assert.Equal(t, "%PDF", string(body[:4]))
	assert.Equal(t, int64(7), h.report.companyID)
	assert.Equal(t, 2, h.report.records)
}

// ──────────────────────────────────────────────────────────────────────────────
// Protected API (JWT secret set)
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_RequiresToken(t *testing.T) {
	h := newHarness(t, testJWTSecret)

	resp, _ := h.do(t, http.MethodGet, "/api/status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/status", nil, tokenFor(t, pkgjwt.RoleOperator, 0))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_JournalRequiresSupervisor(t *testing.T) {
	h := newHarness(t, testJWTSecret)

	resp, _ := h.do(t, http.MethodGet, "/api/scans", nil, tokenFor(t, pkgjwt.RoleOperator, 0))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/scans", nil, tokenFor(t, pkgjwt.RoleSupervisor, 0))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_PinnedCompany(t *testing.T) {
	h := newHarness(t, testJWTSecret)
	pinned := tokenFor(t, pkgjwt.RoleOperator, testCompanyID)

	resp, body := h.do(t, http.MethodPut, "/api/session/company", dto.SelectCompanyRequest{CompanyID: 8}, pinned)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), "COMPANY_MISMATCH")

	resp, _ = h.do(t, http.MethodPost, "/api/scan/keys", dto.KeysRequest{Text: "1"}, pinned)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "no company selected yet")

	resp, _ = h.do(t, http.MethodPut, "/api/session/company", dto.SelectCompanyRequest{CompanyID: testCompanyID}, pinned)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/scan/keys", dto.KeysRequest{Text: "1"}, pinned)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	supervisor := tokenFor(t, pkgjwt.RoleSupervisor, testCompanyID)
	resp, _ = h.do(t, http.MethodGet, "/api/scans?company_id=8", nil, supervisor)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
