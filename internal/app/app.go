package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"taskManager/internal/auth"
	"taskManager/internal/config"
	"taskManager/internal/directory"
	dirinmemory "taskManager/internal/directory/inmemory"
	dirpostgres "taskManager/internal/directory/postgres"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/notify"
	"taskManager/internal/repository/pgpool"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/repository/task/sqlite"
	"taskManager/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const notifyConcurrency = 8

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	pool       *pgxpool.Pool
	repository service.TaskRepository
	directory  service.UserDirectory
	shutdowns  []func(context.Context) error
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(context.Context) error, 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) error {
		logger.Info("App: flushing logs")
		logger.Sync()
		return nil
	})

	if err := a.initRepository(ctx); err != nil {
		return nil, err
	}
	if err := a.initDirectory(ctx); err != nil {
		return nil, err
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(a.directory, notifier, notifyConcurrency)

	verifier, err := auth.NewVerifier(a.config.Auth.JWTSecret, a.config.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	taskService := service.NewTaskService(a.repository, a.directory, dispatcher)
	userService := service.NewUserService(a.directory)

	a.router = chi.NewRouter()
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logging)
	a.router.Use(middleware.Recover)
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	a.router.Use(middleware.RateLimit(a.config.RateLimit.RPM))
	a.router.Use(middleware.Authenticate(verifier))

	handlers.Mount(a.router, handlers.NewTaskHandler(taskService), handlers.NewUserHandler(userService))

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "task-manager"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: initialized",
		zap.String("repository", a.config.Repository.Type),
		zap.String("directory", a.config.Directory.Type),
		zap.String("notify", a.config.Notify.Transport))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		pool, err := a.postgresPool(ctx)
		if err != nil {
			return err
		}
		a.repository = postgres.New(pool)
	case "sqlite":
		store, err := sqlite.Open(a.config.Repository.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func(context.Context) error {
			logger.Info("App: closing sqlite store")
			return store.Close()
		})
		a.repository = store
	default:
		a.repository = inmemory.NewTaskStorage()
	}
	return nil
}

func (a *App) initDirectory(ctx context.Context) error {
	seed, err := a.loadSeed()
	if err != nil {
		return err
	}

	if a.config.Directory.Type != "postgres" {
		if seed == nil {
			seed = dirinmemory.New()
		}
		a.directory = seed
		return nil
	}

	pool, err := a.postgresPool(ctx)
	if err != nil {
		return err
	}
	dir := dirpostgres.New(pool)
	if seed != nil {
		added, err := directory.Import(ctx, seed, dir)
		if err != nil {
			return fmt.Errorf("seed postgres directory: %w", err)
		}
		logger.Info("App: directory seeded", zap.Int("added", added))
	}
	a.directory = dir
	return nil
}

// loadSeed reads the YAML user seed; a missing file yields no seed.
func (a *App) loadSeed() (*dirinmemory.Directory, error) {
	path := a.config.Directory.SeedFile
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("App: user seed file not found", zap.String("path", path))
		return nil, nil
	}
	seed, err := dirinmemory.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load user seed: %w", err)
	}
	return seed, nil
}

// postgresPool opens and migrates the shared pool once; the task store and
// the directory reuse it.
func (a *App) postgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}

	db := a.config.Database
	if err := pgpool.Migrate(db.URL); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	pool, err := pgpool.New(ctx, db.URL,
		pgpool.WithMaxConns(db.MaxConnections),
		pgpool.WithMinConns(db.MinConnections),
		pgpool.WithIdleTimeout(db.IdleTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) error {
		logger.Info("App: closing database pool")
		pool.Close()
		return nil
	})
	a.pool = pool
	return pool, nil
}

func (a *App) newNotifier() (notify.Notifier, error) {
	n := a.config.Notify
	if n.Transport != "smtp" {
		return notify.NewLogNotifier(), nil
	}
	smtp, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     n.SMTPHost,
		Port:     n.SMTPPort,
		Username: n.SMTPUsername,
		Password: n.SMTPPassword,
		From:     n.From,
	})
	if err != nil {
		return nil, fmt.Errorf("init notifier: %w", err)
	}
	return smtp, nil
}

// Handler exposes the fully wrapped HTTP stack.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// OnConfigChange applies the settings that can change without a restart.
func (a *App) OnConfigChange(cfg *config.Config, err error) {
	if err != nil {
		logger.Warn("App: ignoring invalid config reload", zap.Error(err))
		return
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		logger.Warn("App: invalid log level", zap.String("level", cfg.Logging.Level), zap.Error(err))
		return
	}
	logger.Info("App: log level reloaded", zap.String("level", cfg.Logging.Level))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("App: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return multierr.Append(fmt.Errorf("serve: %w", err), a.Shutdown(context.Background()))
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the server and releases resources in reverse order.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		logger.Info("App: stopping server")
		err = multierr.Append(err, a.server.Shutdown(ctx))
	}
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.shutdowns[i](ctx))
	}
	a.shutdowns = nil
	return err
}
