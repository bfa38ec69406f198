//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// evidence schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	Pool      *pgxpool.Pool
}

// schema is the evidence persistence DDL.
const schema = `
CREATE TABLE IF NOT EXISTS evidence_drafts (
    id         UUID PRIMARY KEY,
    tenant_id  UUID NOT NULL,
    status     TEXT NOT NULL,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS evidence_drafts_tenant_idx ON evidence_drafts (tenant_id, status);

CREATE TABLE IF NOT EXISTS evidence_records (
    id                    UUID PRIMARY KEY,
    tenant_id             UUID NOT NULL,
    display_id            TEXT NOT NULL,
    external_reference_id TEXT,
    sealed_at             TIMESTAMPTZ NOT NULL,
    doc                   JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS evidence_records_idempotency_idx
    ON evidence_records (tenant_id, external_reference_id)
    WHERE external_reference_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS evidence_display_sequences (
    tenant_id UUID NOT NULL,
    year      INT NOT NULL,
    last_seq  BIGINT NOT NULL,
    PRIMARY KEY (tenant_id, year)
);
`

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("evigate_test"),
		tcpostgres.WithUsername("evigate"),
		tcpostgres.WithPassword("evigate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		URL:       url,
		Pool:      pool,
	}
}
