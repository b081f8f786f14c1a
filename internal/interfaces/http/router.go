package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/scanner-agent/internal/domain/repository"
	pkgjwt "github.com/jhoicas/scanner-agent/pkg/jwt"
)

// RouterDeps dependencies for the router.
type RouterDeps struct {
	Controller ScanController
	Login      Loginer
	Inventory  InventoryView
	Journal    repository.ScanJournalRepository
	Report     ReportGenerator
	JWTSecret  string // empty leaves the API open (loopback deployments)
	Tokens     TokenConfig
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

// Router registers the operator API routes.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	authn, operator, supervisor := fiber.Handler(passThrough), fiber.Handler(passThrough), fiber.Handler(passThrough)
	if deps.JWTSecret != "" {
		authn = AuthMiddleware(deps.JWTSecret)
		operator = RequireRole(pkgjwt.RoleOperator, pkgjwt.RoleSupervisor)
		supervisor = RequireRole(pkgjwt.RoleSupervisor)
	}

	// Public: PIN exchange, only when a secret and a PIN hash are configured
	if deps.Tokens.Enabled() {
		api.Post("/token", NewTokenHandler(deps.Tokens).Issue)
	}

	// Every route requires an operator or supervisor token
	protected := api.Group("/", authn, operator)

	scanHandler := NewScanHandler(deps.Controller)
	protected.Get("/status", scanHandler.Status)
	pinned := RequireSelectedCompany(deps.Controller)
	protected.Post("/scan/keys", pinned, scanHandler.Keys)
	protected.Post("/scan/decoded", pinned, scanHandler.Decoded)

	session := protected.Group("/session")
	sessionHandler := NewSessionHandler(deps.Controller, deps.Login)
	session.Put("/company", sessionHandler.SelectCompany)
	session.Post("/enable", sessionHandler.Enable)
	session.Post("/disable", sessionHandler.Disable)
	session.Put("/mode", sessionHandler.SetMode)
	session.Post("/logout", sessionHandler.Logout)
	session.Post("/login", sessionHandler.Login)

	confirmations := protected.Group("/confirmations")
	confirmationHandler := NewConfirmationHandler(deps.Controller)
	confirmations.Get("/", confirmationHandler.List)
	confirmations.Post("/:id", confirmationHandler.Answer)

	inventory := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Controller, deps.Inventory)
	inventory.Get("/", inventoryHandler.List)
	inventory.Delete("/view", inventoryHandler.Hide)

	// Journal (supervisor)
	journalHandler := NewJournalHandler(deps.Controller, deps.Journal, deps.Report)
	protected.Get("/scans", supervisor, journalHandler.List)
	protected.Get("/scans/report.pdf", supervisor, journalHandler.Report)
}
