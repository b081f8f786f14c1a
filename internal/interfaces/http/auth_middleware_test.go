package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/scanner-agent/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/scanner-agent/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Test helpers
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret  = "test-secret-key-for-unit-tests"
	testOperatorID = int64(11)
	testUsername   = "station-1"
	testCompanyID  = int64(7)
	testIssuer     = "scanner-agent-test"
	testExpMin     = 60
)

// buildTestApp builds a minimal Fiber app with:
//   - AuthMiddleware parsing the JWT into locals
//   - RequireRole authorizing the request
//   - a dummy handler answering 200 when both pass
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"ok":   true,
				"role": apphttp.GetRole(c),
			})
		},
	)
	return app
}

// tokenForRole signs a token with the given role, pinned to testCompanyID.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	return tokenFor(t, role, testCompanyID)
}

func tokenFor(t *testing.T, role string, companyID int64) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testOperatorID, testUsername, companyID, role, testIssuer, testExpMin)
	require.NoError(t, err, "a valid JWT must be generated")
	return "Bearer " + tok
}

// doRequest sends GET /protected and returns the response.
func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// RequireRole
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_SupervisorOnSupervisorRoute(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, tokenForRole(t, pkgjwt.RoleSupervisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, pkgjwt.RoleSupervisor, body["role"])
}

func TestRequireRole_OperatorOnSharedRoute(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleOperator, pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, tokenForRole(t, pkgjwt.RoleOperator))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireRole_OperatorBlockedOnSupervisorRoute(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, tokenForRole(t, pkgjwt.RoleOperator))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FORBIDDEN")
}

func TestRequireRole_TokenWithoutRole_Returns401(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, tokenForRole(t, ""))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_ROLE")
}

func TestRequireRole_NoAuthHeader_Returns401(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_TOKEN")
}

func TestRequireRole_MalformedToken_Returns401(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, "Bearer not.a.token")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_TOKEN")
}

func TestRequireRole_WrongScheme_Returns401(t *testing.T) {
	app := buildTestApp(pkgjwt.RoleSupervisor)
	resp := doRequest(t, app, "Basic dXNlcjpwYXNz")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware: claims extraction
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_ExtractsClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"operator_id": apphttp.GetOperatorID(c),
			"username":    apphttp.GetUsername(c),
			"company_id":  apphttp.GetCompanyID(c),
			"role":        apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleOperator))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		OperatorID int64  `json:"operator_id"`
		Username   string `json:"username"`
		CompanyID  int64  `json:"company_id"`
		Role       string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testOperatorID, body.OperatorID)
	assert.Equal(t, testUsername, body.Username)
	assert.Equal(t, testCompanyID, body.CompanyID)
	assert.Equal(t, pkgjwt.RoleOperator, body.Role)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testOperatorID, testUsername, testCompanyID, pkgjwt.RoleOperator, testIssuer, -1)
	require.NoError(t, err)

	resp := doRequest(t, buildTestApp(pkgjwt.RoleOperator), "Bearer "+tok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	tok, err := pkgjwt.Generate("another-secret-entirely", testOperatorID, testUsername, testCompanyID, pkgjwt.RoleOperator, testIssuer, testExpMin)
	require.NoError(t, err)

	resp := doRequest(t, buildTestApp(pkgjwt.RoleOperator), "Bearer "+tok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
