// Package dbtest starts a migrated Postgres container for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// New starts a PostgreSQL container, applies migrations and returns its pool.
// The test is skipped in short mode.
func New(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := database.Connect(ctx, connStr, config.DatabaseConfig{MaxConnections: 10, MinConnections: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProduct inserts a product at list price.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, id, price string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO products (id, name, price) VALUES ($1, $2, $3::numeric)",
		id, "Product "+id, price,
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", id, err)
	}
}

// SeedLocation inserts a delivery location.
func SeedLocation(t *testing.T, pool *pgxpool.Pool, id, fee, status string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO delivery_locations (id, city_name, shipping_amount, pickup_location, pickup_phone, status)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6)`,
		id, "City "+id, fee, "Main St", "+233000000", status,
	)
	if err != nil {
		t.Fatalf("failed to seed delivery location %s: %v", id, err)
	}
}

// Cleanup deletes all rows from every table.
func Cleanup(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	tables := []string{"order_items", "orders", "accounts", "coupons", "delivery_locations", "products"}
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
