package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

//go:embed schema.sql
var schema string

// Options describes the PostgreSQL connection.
type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the options as a lib/pq URL.
func (o Options) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.User, o.Password),
		Host:   o.Host + ":" + o.Port,
		Path:   "/" + o.Name,
	}
	q := url.Values{}
	if o.SSLMode != "" {
		q.Set("sslmode", o.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect creates a connection to PostgreSQL with OpenTelemetry instrumentation
func Connect(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.Host == "" || opts.User == "" || opts.Name == "" {
		return nil, fmt.Errorf("missing required database settings")
	}
	if opts.Port == "" {
		opts.Port = "5432"
	}
	return Open(ctx, opts.DSN(), opts.Name)
}

// Open opens and pings an instrumented connection pool for dsn.
func Open(ctx context.Context, dsn, dbName string) (*sql.DB, error) {
	attrs := otelsql.WithAttributes(
		semconv.DBSystemPostgreSQL,
		semconv.DBName(dbName),
	)

	db, err := otelsql.Open("postgres", dsn, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		log.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("database", dbName).Msg("✓ connected to PostgreSQL (OpenTelemetry enabled)")
	return db, nil
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Msg("✓ schema applied")
	return nil
}
