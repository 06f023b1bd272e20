package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultDSN keeps timestamps in sortable text form and sets pragmas on every pooled connection
const DefaultDSN = "file:feedroll.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite&_txlock=immediate"

// dsnParam is a connection parameter the stores rely on
type dsnParam struct {
	key   string
	name  string // pragma name, empty for plain parameters
	value string
}

// requiredParams are added to a DSN that doesn't set them. Foreign keys enforce post ownership
// and cascade, sqlite time format keeps stored timestamps comparable as text.
var requiredParams = []dsnParam{
	{key: "_pragma", name: "foreign_keys", value: "foreign_keys(1)"},
	{key: "_pragma", name: "busy_timeout", value: "busy_timeout(5000)"},
	{key: "_time_format", value: "sqlite"},
	{key: "_txlock", value: "immediate"},
}

// Config represents database configuration
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Repositories contains all repository instances
type Repositories struct {
	Feed *FeedRepository
	Post *PostRepository
	DB   *sqlx.DB
}

// NewRepositories opens the database, applies migrations and creates all repositories
// with a shared connection pool
func NewRepositories(ctx context.Context, cfg Config) (*Repositories, error) {
	if cfg.DSN == "" {
		cfg.DSN = DefaultDSN
	}
	dsn, err := withRequiredParams(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repositories{
		Feed: NewFeedRepository(db),
		Post: NewPostRepository(db),
		DB:   db,
	}, nil
}

// Close closes the database connection
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// Ping verifies the database connection
func (r *Repositories) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// withRequiredParams appends required parameters missing from dsn. Disabling foreign keys
// explicitly is an error.
func withRequiredParams(dsn string) (string, error) {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parse dsn parameters: %w", err)
	}

	pragmas := lo.Map(query["_pragma"], func(p string, _ int) string {
		return strings.ToLower(strings.ReplaceAll(p, " ", ""))
	})
	for _, p := range pragmas {
		if v, ok := strings.CutPrefix(p, "foreign_keys"); ok && !lo.Contains([]string{"(1)", "(on)", "(true)", "(yes)"}, v) {
			return "", fmt.Errorf("dsn pragma %s is not allowed, foreign keys are required", p)
		}
	}

	missing := lo.Filter(requiredParams, func(p dsnParam, _ int) bool {
		if p.name == "" {
			return !query.Has(p.key)
		}
		return !lo.ContainsBy(pragmas, func(v string) bool { return strings.HasPrefix(v, p.name) })
	})
	if len(missing) == 0 {
		return dsn, nil
	}

	params := lo.Map(missing, func(p dsnParam, _ int) string { return p.key + "=" + p.value })
	if rawQuery != "" {
		params = append([]string{rawQuery}, params...)
	}
	return base + "?" + strings.Join(params, "&"), nil
}

// runMigrations applies embedded migrations on top of the given connection pool.
// The migrate instance is not closed, closing it would close the shared db.
func runMigrations(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if version, dirty, err := m.Version(); err == nil {
		log.Printf("[DEBUG] database schema at version %d, dirty=%v", version, dirty)
	}
	return nil
}
