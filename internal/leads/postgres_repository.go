package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	if q == nil {
		panic("leads: querier required")
	}
	return &PostgresRepository{pool: q}
}

// FindOrCreateByPhone performs an atomic insert-on-conflict-do-nothing followed
// by a re-fetch, so concurrent first messages from the same number cannot
// produce duplicate rows.
func (r *PostgresRepository) FindOrCreateByPhone(ctx context.Context, phoneNumber string) (*Lead, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, ErrMissingPhone
	}

	insert := `
		INSERT INTO leads (id, phone_number, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone_number) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, uuid.New(), phoneNumber, StatusNew); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	query := `
		SELECT id, phone_number, status, created_at, updated_at
		FROM leads
		WHERE phone_number = $1
	`
	var lead Lead
	if err := r.pool.QueryRow(ctx, query, phoneNumber).Scan(
		&lead.ID,
		&lead.PhoneNumber,
		&lead.Status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("leads: select after upsert failed: %w", err)
	}
	return &lead, nil
}

// GetByID fetches a lead by its identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, phone_number, status, created_at, updated_at
		FROM leads
		WHERE id = $1
	`
	var lead Lead
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&lead.ID,
		&lead.PhoneNumber,
		&lead.Status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}

// UpdateStatus sets a lead's status; used by dashboard/agent flows, not the pipeline.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("leads: update status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
