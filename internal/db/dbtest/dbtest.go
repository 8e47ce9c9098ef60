// Package dbtest connects integration tests to a disposable Postgres database.
// Tests are skipped unless DB_HOST_TEST is set.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

var (
	once    sync.Once
	pool    *pgxpool.Pool
	initErr error
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func migrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations")
}

// Config returns the test database settings read from DB_*_TEST variables.
func Config() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            os.Getenv("DB_HOST_TEST"),
		Port:            envOr("DB_PORT_TEST", "5432"),
		User:            envOr("DB_USER_TEST", "postgres"),
		Password:        envOr("DB_PASSWORD_TEST", "123456"),
		DBName:          envOr("DB_NAME_TEST", "storefront_test"),
		SSLMode:         envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MigrationsPath:  migrationsPath(),
	}
}

// Pool returns a shared, migrated pool and truncates every table when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DB_HOST_TEST") == "" {
		t.Skip("DB_HOST_TEST is not set, skipping integration test")
	}

	once.Do(func() {
		cfg := Config()
		if initErr = db.ApplyMigrations(cfg); initErr != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var pg *db.Postgres
		pg, initErr = db.New(ctx, cfg)
		if initErr == nil {
			pool = pg.Pool
		}
	})
	require.NoError(t, initErr, "failed to prepare test database")

	Truncate(t, pool)
	t.Cleanup(func() { Truncate(t, pool) })
	return pool
}

func Truncate(tb testing.TB, p *pgxpool.Pool) {
	tb.Helper()
	_, err := p.Exec(context.Background(),
		"TRUNCATE TABLE payment_transactions, order_details, orders, addresses, products, users RESTART IDENTITY CASCADE")
	require.NoError(tb, err, "failed to truncate tables")
}
