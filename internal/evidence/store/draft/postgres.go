package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
	"evigate/pkg/platform/tx"
)

// PostgresStore persists drafts in PostgreSQL. The draft document travels
// as JSONB; the columns that queries filter on (tenant, status) are
// projected out.
//
// Schema:
//
//	CREATE TABLE evidence_drafts (
//	    id         UUID PRIMARY KEY,
//	    tenant_id  UUID NOT NULL,
//	    status     TEXT NOT NULL,
//	    doc        JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX evidence_drafts_tenant_idx ON evidence_drafts (tenant_id, status);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, d *models.EvidenceDraft) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	_, err = s.exec(ctx, `
		INSERT INTO evidence_drafts (id, tenant_id, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID.String(), d.TenantID.String(), string(d.Status), doc, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, draftID id.DraftID) (*models.EvidenceDraft, error) {
	row := s.queryRow(ctx, `
		SELECT doc FROM evidence_drafts WHERE id = $1 AND tenant_id = $2`,
		draftID.String(), tenantID.String(),
	)
	return scanDraft(row)
}

// Execute runs validate-then-mutate under SELECT ... FOR UPDATE so a second
// writer blocks until the first commits.
func (s *PostgresStore) Execute(ctx context.Context, tenantID id.TenantID, draftID id.DraftID,
	validate func(*models.EvidenceDraft) error,
	mutate func(*models.EvidenceDraft)) (*models.EvidenceDraft, error) {

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin draft tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	txCtx := tx.WithTx(ctx, dbTx)

	row := s.queryRow(txCtx, `
		SELECT doc FROM evidence_drafts WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		draftID.String(), tenantID.String(),
	)
	d, err := scanDraft(row)
	if err != nil {
		return nil, err
	}

	if err := validate(d); err != nil {
		return nil, err
	}
	mutate(d)

	doc, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	if _, err := s.exec(txCtx, `
		UPDATE evidence_drafts SET status = $1, doc = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5`,
		string(d.Status), doc, d.UpdatedAt, draftID.String(), tenantID.String(),
	); err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit draft tx: %w", err)
	}
	return d, nil
}

func scanDraft(row *sql.Row) (*models.EvidenceDraft, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan draft: %w", err)
	}
	var d models.EvidenceDraft
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *PostgresStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx.QueryRowContext(ctx, query, args...)
	}
	return s.db.QueryRowContext(ctx, query, args...)
}
