package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
)

// PostgresStore persists sealed records via pgx. Idempotency is enforced by
// a partial unique index, so concurrent seals of the same external
// reference resolve in the database, never in application code.
//
// Schema:
//
//	CREATE TABLE evidence_records (
//	    id                    UUID PRIMARY KEY,
//	    tenant_id             UUID NOT NULL,
//	    display_id            TEXT NOT NULL,
//	    external_reference_id TEXT,
//	    sealed_at             TIMESTAMPTZ NOT NULL,
//	    doc                   JSONB NOT NULL
//	);
//	CREATE UNIQUE INDEX evidence_records_idempotency_idx
//	    ON evidence_records (tenant_id, external_reference_id)
//	    WHERE external_reference_id IS NOT NULL;
//	CREATE TABLE evidence_display_sequences (
//	    tenant_id UUID NOT NULL,
//	    year      INT NOT NULL,
//	    last_seq  BIGINT NOT NULL,
//	    PRIMARY KEY (tenant_id, year)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func (s *PostgresStore) SealUnique(ctx context.Context, r *models.EvidenceRecord) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seal tx: %w", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	// Display sequence and record insert commit together, so a lost
	// idempotency race never burns a display number.
	year := r.SealedAtUtc.Year()
	var seq int64
	err = pgTx.QueryRow(ctx, `
		INSERT INTO evidence_display_sequences (tenant_id, year, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, year) DO UPDATE SET last_seq = evidence_display_sequences.last_seq + 1
		RETURNING last_seq`,
		r.TenantID.String(), year,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("advance display sequence: %w", err)
	}
	r.DisplayID = fmt.Sprintf("EV-%d-%06d", year, seq)

	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	var extRef *string
	if r.ExternalReferenceID != "" {
		extRef = &r.ExternalReferenceID
	}
	_, err = pgTx.Exec(ctx, `
		INSERT INTO evidence_records (id, tenant_id, display_id, external_reference_id, sealed_at, doc)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID.String(), r.TenantID.String(), r.DisplayID, extRef, r.SealedAtUtc, doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert record: %w", err)
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seal tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.EvidenceRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `
		SELECT doc FROM evidence_records WHERE id = $1 AND tenant_id = $2`,
		recordID.String(), tenantID.String(),
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return decodeRecord(doc)
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.EvidenceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc FROM evidence_records WHERE tenant_id = $1 ORDER BY sealed_at DESC`,
		tenantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*models.EvidenceRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func decodeRecord(doc []byte) (*models.EvidenceRecord, error) {
	var r models.EvidenceRecord
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}
