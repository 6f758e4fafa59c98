package test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/storefront/internal/telemetry"
)

type PostgresSetup struct {
	ConnStr string
	cleanup func()
}

func (p *PostgresSetup) Cleanup() {
	p.cleanup()
}

func SetupPostgres(ctx context.Context, t *testing.T) *PostgresSetup {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}

	return &PostgresSetup{ConnStr: connStr, cleanup: cleanup}
}

func runMigrations(connStr string) error {
	migrationsPath := getMigrationsPath()

	m, err := migrate.New(migrationsPath, connStr)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func getMigrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	testDir := filepath.Dir(filename)
	projectRoot := filepath.Dir(testDir)
	migrationsDir := filepath.Join(projectRoot, "migrations")
	return "file://" + migrationsDir
}

func SetupKafka(ctx context.Context, t *testing.T) ([]string, func()) {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers, cleanup
}

// DBWithSchema opens an instrumented handle whose connections resolve
// unqualified table names in schema.
func DBWithSchema(connStr, schema string) (*sql.DB, error) {
	db, err := telemetry.OpenDB(connStr, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return db, nil
}

// SeedVariant inserts a product with one variant and returns the variant id.
func SeedVariant(ctx context.Context, t *testing.T, db *sql.DB, name string, volumeML int, price int64, stock int) string {
	t.Helper()

	productID := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO products (id, name) VALUES ($1, $2)`, productID, name); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	variantID := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO product_variants (id, product_id, volume_ml, price, stock_quantity) VALUES ($1, $2, $3, $4, $5)`,
		variantID, productID, volumeML, price, stock); err != nil {
		t.Fatalf("failed to seed variant: %v", err)
	}
	return variantID
}

// SeedDiscount inserts an active, undated discount and returns its id.
func SeedDiscount(ctx context.Context, t *testing.T, db *sql.DB, code, percentage string, maxAmount int64, remainingUses int) string {
	t.Helper()

	id := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO discounts (id, code, percentage, max_amount, remaining_uses) VALUES ($1, $2, $3, $4, $5)`,
		id, code, percentage, maxAmount, remainingUses); err != nil {
		t.Fatalf("failed to seed discount: %v", err)
	}
	return id
}

// StockOf reads the current stock of a variant.
func StockOf(ctx context.Context, t *testing.T, db *sql.DB, variantID string) int {
	t.Helper()

	var stock int
	if err := db.QueryRowContext(ctx,
		`SELECT stock_quantity FROM product_variants WHERE id = $1`, variantID).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}
