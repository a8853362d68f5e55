// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krodit/krodit-server/internal/config"
	"github.com/krodit/krodit-server/internal/identity"
	identitypostgres "github.com/krodit/krodit-server/internal/identity/postgres"
	"github.com/krodit/krodit-server/internal/notifier"
	"github.com/krodit/krodit-server/internal/notifier/email"
	"github.com/krodit/krodit-server/internal/pkg/ctxlog"
	"github.com/krodit/krodit-server/internal/pkg/httputil"
	"github.com/krodit/krodit-server/internal/pkg/metrics"
	"github.com/krodit/krodit-server/internal/pkg/postgres"
	"github.com/krodit/krodit-server/internal/push"
	pushpostgres "github.com/krodit/krodit-server/internal/push/postgres"
	"github.com/krodit/krodit-server/internal/reminders"
	reminderspostgres "github.com/krodit/krodit-server/internal/reminders/postgres"
	"github.com/krodit/krodit-server/internal/scheduler"
	"github.com/krodit/krodit-server/internal/subscriptions"
	subscriptionspostgres "github.com/krodit/krodit-server/internal/subscriptions/postgres"
	"github.com/krodit/krodit-server/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	scheduler     *scheduler.Scheduler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, sched, err := app.setupRouter()
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.scheduler = sched

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers and, when enabled, the background scheduler.
func (a *App) Run() error {
	if a.config.Scheduler.Enabled {
		a.scheduler.Start()
		a.logger.Info("scheduler started",
			"reminder_cron", a.config.Scheduler.ReminderCron,
			"advancement_cron", a.config.Scheduler.AdvancementCron,
		)
	}

	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop the scheduler first so no new job run starts mid-shutdown. Stop
	// returns a context that is done once running jobs finish.
	if a.config.Scheduler.Enabled {
		select {
		case <-a.scheduler.Stop().Done():
		case <-ctx.Done():
			a.logger.Warn("scheduler jobs did not finish before shutdown deadline")
		}
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Scheduler returns the job scheduler. Used in tests to trigger runs directly.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

func (a *App) setupRouter() (*chi.Mux, *scheduler.Scheduler, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	loc := a.config.Location()

	verifier, err := identity.NewVerifier(identity.Config{
		SecretKey: a.config.JWT.SecretKey,
		Issuer:    a.config.JWT.Issuer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create token verifier: %w", err)
	}

	userRepo := identitypostgres.NewRepository(a.db)
	profileHandler := identity.NewHandler(userRepo)
	subscriptionsRepo := subscriptionspostgres.NewRepository(a.db)
	ledger := reminderspostgres.NewLedger(a.db)
	pushRepo := pushpostgres.NewRepository(a.db)

	subscriptionsService := subscriptions.NewService(subscriptionsRepo, nil)
	subscriptionsHandler := subscriptions.NewHandler(subscriptionsService)

	remindersService := reminders.NewService(subscriptionsRepo, loc)
	remindersHandler := reminders.NewHandler(remindersService, reminders.ClientSettings{
		DailyDisplayLimit: a.config.Reminders.DailyDisplayLimit,
		AlarmMinSeconds:   a.config.Reminders.AlarmMinSeconds,
	})

	pushService := push.NewService(pushRepo)
	pushHandler := push.NewHandler(pushService, a.config.Push.VAPIDPublicKey)

	pushSender := push.NewSender(push.SenderConfig{
		VAPIDPublicKey:  a.config.Push.VAPIDPublicKey,
		VAPIDPrivateKey: a.config.Push.VAPIDPrivateKey,
		Subject:         a.config.Push.Subject,
		SendTimeout:     a.config.Push.SendTimeout,
		RatePerSecond:   a.config.Push.RateLimit,
	})
	if !pushSender.Enabled() {
		slog.Warn("push sender is disabled: VAPID keys are not configured")
	}

	emailSender, err := email.NewSender(email.Config{
		Enabled:      a.config.Email.Enabled,
		SMTPHost:     a.config.Email.SMTPHost,
		SMTPPort:     a.config.Email.SMTPPort,
		SMTPUser:     a.config.Email.SMTPUser,
		SMTPPassword: a.config.Email.SMTPPassword,
		FromAddress:  a.config.Email.FromAddress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create email sender: %w", err)
	}
	if !emailSender.Enabled() {
		slog.Warn("email sender is disabled: email reminders will not be sent")
	}

	deliverer := notifier.NewNotifier(ledger, pushRepo, userRepo, pushSender, emailSender, a.config.Reminders.BaseURL)

	jobs := scheduler.NewJobs(remindersService, deliverer, subscriptionsRepo, loc, a.logger)
	sched := scheduler.NewScheduler(jobs, a.logger, scheduler.Config{
		ReminderCron:    a.config.Scheduler.ReminderCron,
		AdvancementCron: a.config.Scheduler.AdvancementCron,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(verifier))

			profileHandler.RegisterRoutes(r)
			subscriptionsHandler.RegisterRoutes(r)
			remindersHandler.RegisterRoutes(r)
			pushHandler.RegisterRoutes(r)
		})
	})

	return r, sched, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
