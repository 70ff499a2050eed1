package settings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newsroom-cms/newsroom/internal/platform/db"
)

// Repository persists settings.
type Repository interface {
	List(ctx context.Context, publicOnly bool) ([]Setting, error)
	Get(ctx context.Context, key string) (Setting, error)
	UpdateValue(ctx context.Context, key, value string, at time.Time) (Setting, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const settingColumns = `key, value, type, is_public, updated_at`

// List returns settings ordered by key.
func (r *PGRepository) List(ctx context.Context, publicOnly bool) ([]Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings`
	if publicOnly {
		query += ` WHERE is_public`
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY key`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Setting])
}

// Get returns one setting.
func (r *PGRepository) Get(ctx context.Context, key string) (Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+settingColumns+` FROM settings WHERE key = $1`, key)
	if err != nil {
		return Setting{}, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Setting])
	if err != nil {
		return Setting{}, db.Classify(err)
	}
	return s, nil
}

// UpdateValue replaces the value of an existing key.
func (r *PGRepository) UpdateValue(ctx context.Context, key, value string, at time.Time) (Setting, error) {
	rows, err := r.pool.Query(ctx, `UPDATE settings SET value = $2, updated_at = $3 WHERE key = $1
RETURNING `+settingColumns, key, value, at)
	if err != nil {
		return Setting{}, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Setting])
	if err != nil {
		return Setting{}, db.Classify(err)
	}
	return s, nil
}

var _ Repository = (*PGRepository)(nil)
