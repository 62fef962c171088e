package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"truckbooks/internal/domain/audit"
	"truckbooks/internal/domain/auth"
	"truckbooks/internal/domain/fleet"
	"truckbooks/internal/domain/notifications"
	"truckbooks/internal/domain/payroll"
	"truckbooks/internal/domain/reports"
	"truckbooks/internal/domain/retention"
	"truckbooks/internal/platform/clock"
	"truckbooks/internal/platform/config"
	"truckbooks/internal/platform/crypto"
	"truckbooks/internal/platform/db"
	"truckbooks/internal/platform/email"
	"truckbooks/internal/platform/jobs"
	"truckbooks/internal/platform/metrics"
	audithandler "truckbooks/internal/transport/http/handlers/audit"
	authhandler "truckbooks/internal/transport/http/handlers/auth"
	fleethandler "truckbooks/internal/transport/http/handlers/fleet"
	notificationshandler "truckbooks/internal/transport/http/handlers/notifications"
	payrollhandler "truckbooks/internal/transport/http/handlers/payroll"
	reportshandler "truckbooks/internal/transport/http/handlers/reports"
	"truckbooks/internal/transport/http/middleware"
)

const (
	backfillInterval = 10 * time.Minute
	backfillBatch    = 50
)

type App struct {
	Config     config.Config
	DB         *pgxpool.Pool
	Router     http.Handler
	Jobs       *jobs.Service
	Metrics    *metrics.Collector
	Statements *payroll.Service
	cancel     context.CancelFunc
}

// New connects to Postgres, prepares the schema and wires every handler.
// Background jobs start immediately and stop on Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sealer, err := crypto.NewSealer(cfg.DataEncryptionKey)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	collector := metrics.New()
	jobService := jobs.New(pool)
	jobService.Observer = collector

	fleetStore := fleet.NewStore(pool)
	inbox := notifications.New(notifications.NewStore(pool))
	statements := payroll.NewService(payroll.NewStore(pool), fleetStore, payroll.Options{
		Sealer:      sealer,
		DocumentDir: cfg.DocumentDir,
		Jobs:        jobService,
		Mailer:      email.New(cfg),
		MailFrom:    cfg.EmailFrom,
		Notifier:    inbox,
		Metrics:     collector,
	})
	manual := map[string]reportshandler.JobFunc{
		payroll.JobDocumentBackfill: func(ctx context.Context) (any, error) {
			rendered, err := statements.BackfillDocuments(ctx, backfillBatch)
			return map[string]int{"rendered": rendered}, err
		},
		retention.JobSweep: func(ctx context.Context) (any, error) {
			return retention.Sweep(ctx, pool, time.Now(), cfg.RetentionDays)
		},
	}
	jobService.Every(payroll.JobDocumentBackfill, backfillInterval, manual[payroll.JobDocumentBackfill])
	jobService.Every(retention.JobSweep, cfg.RetentionInterval, manual[retention.JobSweep])

	auditService := audit.New(pool)
	perms := middleware.StaticPermissions{}
	reportsHandler := reportshandler.NewHandler(reports.NewService(reports.NewStore(pool), clock.System{}), perms).
		WithManualJobs(jobService, manual)
	router := buildRouter(routes{
		cfg:           cfg,
		ready:         pool.Ping,
		metrics:       collector,
		auth:          authhandler.NewHandler(auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, clock.System{}).WithMFA(sealer)),
		fleet:         fleethandler.NewHandler(fleetStore, statements, auditService, perms),
		statements:    payrollhandler.NewHandler(statements, auditService, middleware.NewIdempotencyStore(pool), perms),
		audit:         audithandler.NewHandler(auditService, perms),
		notifications: notificationshandler.NewHandler(inbox, perms),
		reports:       reportsHandler,
	})

	jobCtx, cancel := context.WithCancel(context.Background())
	jobService.Start(jobCtx)

	return &App{
		Config:     cfg,
		DB:         pool,
		Router:     router,
		Jobs:       jobService,
		Metrics:    collector,
		Statements: statements,
		cancel:     cancel,
	}, nil
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

type routes struct {
	cfg           config.Config
	ready         func(context.Context) error
	metrics       *metrics.Collector
	auth          *authhandler.Handler
	fleet         *fleethandler.Handler
	statements    *payrollhandler.Handler
	audit         *audithandler.Handler
	notifications *notificationshandler.Handler
	reports       *reportshandler.Handler
}

func buildRouter(rt routes) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics(rt.metrics))
	router.Use(middleware.SecureHeaders)
	router.Use(middleware.BodyLimit(rt.cfg.MaxBodyBytes))
	router.Use(middleware.Auth(rt.cfg.JWTSecret))
	router.Use(middleware.RateLimit(rt.cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(rt.cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if rt.ready == nil || rt.ready(ctx) != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if rt.cfg.MetricsEnabled && rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", rt.auth.HandleLogin)
		r.Get("/auth/me", rt.auth.HandleMe)
		r.Post("/auth/refresh", rt.auth.HandleRefresh)
		r.Post("/auth/logout", rt.auth.HandleLogout)
		r.Post("/auth/mfa/setup", rt.auth.HandleMFASetup)
		r.Post("/auth/mfa/enable", rt.auth.HandleMFAEnable)
		r.Post("/auth/mfa/disable", rt.auth.HandleMFADisable)
		rt.fleet.RegisterRoutes(r)
		rt.statements.RegisterRoutes(r)
		rt.audit.RegisterRoutes(r)
		rt.notifications.RegisterRoutes(r)
		rt.reports.RegisterRoutes(r)
	})

	return router
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("truckbooks server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "err", err)
		}
	}
}
