// Package pgpool opens the shared PostgreSQL pool used by the task store and
// the user directory, and applies the embedded schema migrations.
package pgpool

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskManager/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SlowQuery is the threshold above which repositories log a warning.
const SlowQuery = 100 * time.Millisecond

type Option func(*pgxpool.Config)

func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

func WithMinConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n >= 0 {
			c.MinConns = n
		}
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnIdleTime = d
		}
	}
}

func New(ctx context.Context, connString string, options ...Option) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse connection string", err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	for _, opt := range options {
		opt(config)
	}
	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL",
		zap.Int32("max_conns", config.MaxConns),
		zap.Int32("min_conns", config.MinConns))
	return pool, nil
}

// Migrate applies every pending up migration.
func Migrate(connString string) error {
	m, err := newMigrator(connString)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: migrations failed", err)
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Repository: migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Down rolls back every migration.
func Down(connString string) error {
	m, err := newMigrator(connString)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: rollback failed", err)
		return fmt.Errorf("migrate down: %w", err)
	}
	logger.Info("Repository: migrations rolled back")
	return nil
}

func newMigrator(connString string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(connString))
	if err != nil {
		logger.Error("Repository: failed to create migrator", err)
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		logger.Warn("Repository: failed to close migrator", zap.Error(err))
	}
}

// migrateURL swaps the scheme for the one the pgx/v5 migrate driver registers.
func migrateURL(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}

// Observe logs a warning when an operation took longer than SlowQuery.
func Observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > SlowQuery {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
