// Package testutil provides shared database plumbing for integration tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pgOnce sync.Once
	pgURL  string
	pgErr  error
)

// PostgresURL returns a connection string for integration tests: the
// external database from CI_DATABASE_URL when set, otherwise a
// process-shared testcontainers PostgreSQL instance. The test is skipped
// when neither is available.
func PostgresURL(t *testing.T) string {
	t.Helper()

	if ciURL := os.Getenv("CI_DATABASE_URL"); ciURL != "" {
		t.Log("Using external PostgreSQL from CI_DATABASE_URL")
		return ciURL
	}

	pgOnce.Do(startPostgres)
	if pgErr != nil {
		t.Skipf("PostgreSQL unavailable (set CI_DATABASE_URL or start Docker): %v", pgErr)
	}
	return pgURL
}

// The shared container is reclaimed by the testcontainers reaper when the
// test process exits.
func startPostgres() {
	// testcontainers panics (MustExtractDockerHost) when no Docker host
	// exists at all; convert that into the error PostgresURL already
	// handles so the documented skip applies.
	defer func() {
		if r := recover(); r != nil {
			pgErr = fmt.Errorf("starting postgres container: %v", r)
		}
	}()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("neethi_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		pgErr = err
		return
	}

	pgURL, pgErr = container.ConnectionString(ctx, "sslmode=disable")
}

// FreshSchemaURL creates a uniquely named schema on the shared database and
// returns a connection string whose search_path points at it. The schema is
// dropped when the test finishes, so tests stay isolated while sharing one
// container.
func FreshSchemaURL(t *testing.T) string {
	t.Helper()

	base := PostgresURL(t)
	schema := "t" + strings.ReplaceAll(uuid.New().String(), "-", "")

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, base)
	if err != nil {
		t.Fatalf("connecting for schema setup: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %q", schema)); err != nil {
		t.Fatalf("creating schema %s: %v", schema, err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		conn, err := pgx.Connect(ctx, base)
		if err != nil {
			t.Logf("schema cleanup connect failed: %v", err)
			return
		}
		defer conn.Close(ctx)
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP SCHEMA %q CASCADE", schema)); err != nil {
			t.Logf("schema cleanup failed: %v", err)
		}
	})

	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parsing base url: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
