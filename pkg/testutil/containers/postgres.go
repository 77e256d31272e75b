//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"folio/migrations"
)

const postgresImage = "postgres:18-alpine"

// healthTables lists every table the garmin schema creates.
var healthTables = []string{"vo2_max", "activities", "sleep_summary", "race_predictions", "heart_rate_zones"}

// PostgresContainer is a migrated Postgres instance shared by a test binary.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies every embedded up
// migration. Ryuk removes the container when the test process exits.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("folio_test"),
		postgres.WithUsername("folio"),
		postgres.WithPassword("folio_test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	pc, err := connect(ctx, container)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("prepare postgres container: %v", err)
	}
	return pc
}

func connect(ctx context.Context, container *postgres.PostgresContainer) (*PostgresContainer, error) {
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("connection string: %w", err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}, nil
}

// migrate applies *.up.sql files in lexical order. fs.Glob returns them
// sorted, which matches the numeric prefixes.
func migrate(ctx context.Context, db *sql.DB) error {
	files, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, file := range files {
		body, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// TruncateTables empties the named tables in one statement.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("truncate %v: %w", tables, err)
	}
	return nil
}

// TruncateHealthTables empties every health data table.
func (p *PostgresContainer) TruncateHealthTables(ctx context.Context) error {
	return p.TruncateTables(ctx, healthTables...)
}

// Exec runs a statement and fails the test on error.
func (p *PostgresContainer) Exec(ctx context.Context, t testing.TB, query string, args ...any) {
	t.Helper()
	if _, err := p.DB.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
