package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muachung/tracker/internal/domain/status"
)

const (
	listStatusesSQL = `SELECT status_code, display_name, description, is_active, view_order
		FROM statuses WHERE is_active = TRUE
		ORDER BY view_order, status_code`

	getStatusSQL = `SELECT status_code, display_name, description, is_active, view_order
		FROM statuses WHERE status_code = $1`

	upsertStatusSQL = `INSERT INTO statuses (status_code, display_name, description, is_active, view_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (status_code) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description  = EXCLUDED.description,
			is_active    = EXCLUDED.is_active,
			view_order   = EXCLUDED.view_order`
)

var _ status.Repository = (*StatusRepository)(nil)

// StatusRepository implements status.Repository backed by PostgreSQL.
type StatusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository returns a StatusRepository that uses the given pool.
func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{pool: pool}
}

// List returns the active statuses in display order.
func (r *StatusRepository) List(ctx context.Context) ([]status.Status, error) {
	rows, err := r.pool.Query(ctx, listStatusesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	statuses, err := pgx.CollectRows(rows, scanStatus)
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	return statuses, nil
}

// GetByCode returns one status. Returns status.ErrNotFound when the code is
// not in the reference table.
func (r *StatusRepository) GetByCode(ctx context.Context, code string) (*status.Status, error) {
	rows, err := r.pool.Query(ctx, getStatusSQL, code)
	if err != nil {
		return nil, fmt.Errorf("getting status %q: %w", code, err)
	}
	st, err := pgx.CollectExactlyOneRow(rows, scanStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, status.ErrNotFound
		}
		return nil, fmt.Errorf("getting status %q: %w", code, err)
	}
	return &st, nil
}

// Upsert inserts or refreshes a status row. Used by the seeding tool.
func (r *StatusRepository) Upsert(ctx context.Context, st status.Status) error {
	_, err := r.pool.Exec(ctx, upsertStatusSQL,
		st.Code, st.DisplayName, st.Description, st.IsActive, st.ViewOrder,
	)
	if err != nil {
		return fmt.Errorf("upserting status %q: %w", st.Code, err)
	}
	return nil
}

func scanStatus(row pgx.CollectableRow) (status.Status, error) {
	var st status.Status
	err := row.Scan(&st.Code, &st.DisplayName, &st.Description, &st.IsActive, &st.ViewOrder)
	return st, err
}
