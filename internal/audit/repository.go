package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
	All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineSelect = `SELECT a.id, a.occurred_at, a.actor_id, COALESCE(u.username, ''), a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id`

// Window returns one page ordered newest first.
func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	where, args := buildWhere(filters)
	args = append(args, limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY a.occurred_at DESC, a.id DESC LIMIT $%d OFFSET $%d",
		timelineSelect, where, len(args)-1, len(args))
	return r.collect(ctx, query, args)
}

// All returns every matching row ordered newest first.
func (r *PGRepository) All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	where, args := buildWhere(filters)
	return r.collect(ctx, timelineSelect+where+" ORDER BY a.occurred_at DESC, a.id DESC", args)
}

func (r *PGRepository) collect(ctx context.Context, query string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[TimelineRow])
}

func buildWhere(filters TimelineFilters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if !filters.From.IsZero() {
		add("a.occurred_at >= ?", filters.From)
	}
	if !filters.To.IsZero() {
		add("a.occurred_at < ?", filters.To)
	}
	if filters.ActorID > 0 {
		add("a.actor_id = ?", filters.ActorID)
	}
	if v := strings.TrimSpace(filters.Entity); v != "" {
		add("a.entity = ?", v)
	}
	if v := strings.TrimSpace(filters.EntityID); v != "" {
		add("a.entity_id = ?", v)
	}
	if v := strings.TrimSpace(filters.Action); v != "" {
		add("a.action = ?", v)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var _ Repository = (*PGRepository)(nil)
