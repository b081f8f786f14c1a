package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/scanner-agent/docs"
	"github.com/jhoicas/scanner-agent/internal/application/scan"
	"github.com/jhoicas/scanner-agent/internal/domain/barcode"
	"github.com/jhoicas/scanner-agent/internal/domain/repository"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/backend"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/cache"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/confirm"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/credentials"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/input"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/scanner-agent/internal/infrastructure/pdf"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/postgres"
	"github.com/jhoicas/scanner-agent/internal/infrastructure/refresh"
	httpRouter "github.com/jhoicas/scanner-agent/internal/interfaces/http"
	"github.com/jhoicas/scanner-agent/pkg/config"
	pkgjwt "github.com/jhoicas/scanner-agent/pkg/jwt"
	"github.com/jhoicas/scanner-agent/pkg/logger"
)

// @title                       Scanner Agent API
// @version                     1.0
// @description                 Operator API of the scanner agent: scan input, session control, confirmations, inventory view and scan journal.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	mintRole := flag.String("mint-token", "", "print an operator API token for this role (operator|supervisor) and exit")
	mintUser := flag.String("mint-user", "operator", "username claim of the minted token")
	mintCompany := flag.Int64("mint-company", 0, "company the minted token is limited to (0 = any)")
	hashPIN := flag.String("hash-pin", "", "print the bcrypt hash of a station PIN and exit")
	flag.Parse()

	if *hashPIN != "" {
		hash, err := httpRouter.HashPIN(*hashPIN)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	if *mintRole != "" {
		if err := mintToken(cfg.JWT, *mintRole, *mintUser, *mintCompany); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("backend", cfg.Backend.URL).
		Msg("starting scanner agent")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokenCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("token cache")
	}
	defer tokenCache.Close()

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, nil, log.Component("backend"))
	creds := credentials.NewProvider(credentials.Config{
		Username:    cfg.Auth.Username,
		Password:    cfg.Auth.Password,
		StaticToken: cfg.Auth.StaticToken,
		TTL:         cfg.Auth.TokenTTL,
	}, client, tokenCache, log.Zerolog())
	client.SetTokenSource(creds)
	creds.OnExpired(func(reason string) {
		log.Warn().Str("reason", reason).Msg("backend session expired, next request logs in again")
	})

	journal, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("scan journal")
	}
	defer closeJournal()

	refresher := refresh.New(client, cfg.Refresh.Debounce, cfg.Refresh.Limit, log.Zerolog())
	notifier := confirm.NewNotifier(log.Zerolog())

	scanCfg, err := controllerConfig(cfg.Scan, cfg.Backend.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("scan config")
	}
	ctrl := scan.NewController(scanCfg, scan.Deps{
		Backend:     client,
		Credentials: creds,
		Confirmer:   notifier,
		Refresher:   refresher,
		Expiry:      creds,
		Journal:     journal,
		Logger:      log.Zerolog(),
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI at http://<addr>/docs when the OpenAPI file ships with the binary
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Scanner Agent API",
		}))
	}
	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(docs.SwaggerInfo.ReadDoc())
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		s, err := ctrl.Session(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "stopped", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "scan": string(s.Status.Kind)})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Controller: ctrl,
		Login:      creds,
		Inventory:  refresher,
		Journal:    journal,
		Report:     infrapdf.NewShiftReportGenerator(nil),
		JWTSecret:  cfg.JWT.Secret,
		Tokens: httpRouter.TokenConfig{
			Secret:            cfg.JWT.Secret,
			Issuer:            cfg.JWT.Issuer,
			ExpMinutes:        cfg.JWT.Expiration,
			OperatorPINHash:   cfg.JWT.OperatorPINHash,
			SupervisorPINHash: cfg.JWT.SupervisorPINHash,
		},
	})
	if cfg.JWT.Secret == "" {
		log.Warn().Str("addr", cfg.HTTP.Addr()).Msg("JWT_SECRET not set, operator API is open")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error {
		bootstrap(gctx, ctrl, creds, cfg, log)
		return nil
	})
	switch cfg.Scan.Stdin {
	case "wedge":
		g.Go(func() error { return input.Wedge(gctx, os.Stdin, ctrl) })
	case "camera":
		g.Go(func() error { return input.Decoder(gctx, os.Stdin, ctrl) })
	}
	g.Go(func() error {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received, closing server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("scanner agent stopped with error")
	}
	log.Info().Msg("scanner agent stopped")
}

// bootstrap logs in, selects the default company and optionally arms
// scanning. Failures are logged; the operator can retry through the API.
func bootstrap(ctx context.Context, ctrl *scan.Controller, creds *credentials.Provider, cfg *config.Config, log *logger.Logger) {
	companyID := cfg.Scan.CompanyID
	if cfg.Auth.StaticToken == "" && cfg.Auth.Username != "" {
		op, err := creds.Login(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("initial login failed")
		} else if companyID == 0 {
			companyID = op.CompanyID
		}
	}
	if companyID <= 0 {
		log.Info().Msg("no default company, waiting for PUT /api/session/company")
		return
	}
	if err := ctrl.SelectCompany(ctx, companyID); err != nil {
		log.Warn().Err(err).Int64("company_id", companyID).Msg("select default company")
		return
	}
	if cfg.Scan.AutoEnable {
		if err := ctrl.SetEnabled(ctx, true); err != nil {
			log.Warn().Err(err).Msg("auto-enable scanning")
		}
	}
}

func controllerConfig(sc config.ScanConfig, requestTimeout time.Duration) (scan.Config, error) {
	cfg := scan.DefaultConfig()
	var err error
	if cfg.WedgeFlow, err = scan.ParseFlow(sc.WedgeFlow); err != nil {
		return cfg, fmt.Errorf("SCAN_WEDGE_FLOW: %w", err)
	}
	if cfg.CameraFlow, err = scan.ParseFlow(sc.CameraFlow); err != nil {
		return cfg, fmt.Errorf("SCAN_CAMERA_FLOW: %w", err)
	}
	if cfg.WedgePolicy, err = barcode.ParsePolicy(sc.WedgePolicy); err != nil {
		return cfg, fmt.Errorf("SCAN_WEDGE_POLICY: %w", err)
	}
	if cfg.CameraPolicy, err = barcode.ParsePolicy(sc.CameraPolicy); err != nil {
		return cfg, fmt.Errorf("SCAN_CAMERA_POLICY: %w", err)
	}
	if cfg.Pipeline.Scope, err = scan.ParseScope(sc.SingleFlight); err != nil {
		return cfg, fmt.Errorf("SCAN_SINGLE_FLIGHT: %w", err)
	}
	cfg.Mode = sc.Mode
	cfg.Aggregator = scan.AggregatorConfig{
		IdleTimeout: sc.IdleTimeout,
		Cooldown:    sc.Cooldown,
		Terminators: sc.Terminators,
	}
	cfg.Pipeline.ConfirmTimeout = sc.ConfirmTimeout
	cfg.Pipeline.AutoConfirm = sc.AutoConfirm
	cfg.Pipeline.RequestTimeout = requestTimeout
	return cfg, nil
}

func openCache(ctx context.Context, cc config.CacheConfig) (cache.Cache, error) {
	if cc.RedisAddr == "" {
		return cache.NewMemoryCache(), nil
	}
	return cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cc.RedisAddr,
		Password: cc.RedisPassword,
		DB:       cc.RedisDB,
	})
}

// openJournal returns the PostgreSQL journal when a database is configured,
// otherwise the in-memory ring.
func openJournal(ctx context.Context, cfg *config.Config) (repository.ScanJournalRepository, func(), error) {
	if !cfg.DB.Enabled() {
		return memory.NewScanJournal(cfg.Journal.Capacity), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.NewTxRunner(pool).MigrateTx(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewScanJournalRepository(pool), pool.Close, nil
}

func mintToken(jc config.JWTConfig, role, username string, companyID int64) error {
	if role != pkgjwt.RoleOperator && role != pkgjwt.RoleSupervisor {
		return fmt.Errorf("mint-token: role must be %s or %s", pkgjwt.RoleOperator, pkgjwt.RoleSupervisor)
	}
	tok, err := pkgjwt.Generate(jc.Secret, 0, username, companyID, role, jc.Issuer, jc.Expiration)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
