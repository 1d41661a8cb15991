package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
	// testDBUnavailable records why the PostgreSQL suite is skipped
	testDBUnavailable string
)

// TestMain sets up the test database before running tests. Without TEST_DB_HOST and without a
// container runtime the PostgreSQL tests are skipped and the in-memory tests still run.
func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn, err := testDSN(ctx)
	if err != nil {
		testDBUnavailable = err.Error()
		fmt.Printf("PostgreSQL tests disabled: %v\n", err)
		os.Exit(m.Run())
	}

	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err == nil {
		err = Migrate(ctx, testDB)
	}
	if err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		terminateContainer(ctx)
		os.Exit(1)
	}

	code := m.Run()

	terminateContainer(ctx)
	os.Exit(code)
}

// testDSN returns the DSN of an external database (for CI or local development) or of a started container
func testDSN(ctx context.Context) (string, error) {
	if dbHost := os.Getenv("TEST_DB_HOST"); dbHost != "" {
		dbPort := envOr("TEST_DB_PORT", "5432")
		dbUser := envOr("TEST_DB_USER", "postgres")
		dbPassword := envOr("TEST_DB_PASSWORD", "postgres")
		dbName := envOr("TEST_DB_NAME", "test_db")

		fmt.Printf("Using external database: %s:%s/%s\n", dbHost, dbPort, dbName)
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPassword, dbName), nil
	}

	var err error
	pgContainer, err = postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		pgContainer = nil
		return "", fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminateContainer(ctx)
		return "", fmt.Errorf("failed to get connection string: %w", err)
	}

	fmt.Printf("Started PostgreSQL container\n")
	return dsn, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func terminateContainer(ctx context.Context) {
	if pgContainer == nil {
		return
	}
	if err := pgContainer.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
	}
	pgContainer = nil
}

func requireTestDB(t *testing.T) {
	if testDB == nil {
		t.Skipf("PostgreSQL unavailable: %s", testDBUnavailable)
	}
}

// initPGTestDB returns a store scoped to a transaction that is rolled back after the test
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

// cleanupPGTestDB is a no-op: the t.Cleanup rollback restores the state
func cleanupPGTestDB(t *testing.T) {}

// truncateTables removes committed rows left by tests that cannot run inside one transaction
func truncateTables(t *testing.T) {
	require.NoError(t, testDB.Exec("TRUNCATE TABLE nfts, transactions, user_aggregates RESTART IDENTITY").Error)
}

// TestPostgreSQLStore runs all store tests against PostgreSQL
func TestPostgreSQLStore(t *testing.T) {
	requireTestDB(t)
	RunStoreTests(t, initPGTestDB, cleanupPGTestDB)
}

// TestPostgreSQLStore_ConcurrentCreateMint races writers on separate connections, exercising ON CONFLICT
func TestPostgreSQLStore_ConcurrentCreateMint(t *testing.T) {
	requireTestDB(t)
	truncateTables(t)
	t.Cleanup(func() { truncateTables(t) })

	testConcurrentCreateMint(t, NewPGStore(testDB))
}

func TestNormalizeConnectionPoolSettings(t *testing.T) {
	maxOpen, maxIdle, lifetime, idleTime := NormalizeConnectionPoolSettings(0, 0, 0, 0)
	require.Equal(t, 20, maxOpen)
	require.Equal(t, 5, maxIdle)
	require.Equal(t, 5*time.Minute, lifetime)
	require.Equal(t, 10*time.Minute, idleTime)

	maxOpen, maxIdle, _, _ = NormalizeConnectionPoolSettings(4, 10, time.Minute, time.Minute)
	require.Equal(t, 4, maxOpen)
	require.Equal(t, 4, maxIdle)
}
