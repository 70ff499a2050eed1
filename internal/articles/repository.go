package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newsroom-cms/newsroom/internal/platform/db"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Repository is the persistence port of the article workflow.
type Repository interface {
	Create(ctx context.Context, a Article) (Article, error)
	Get(ctx context.Context, id int64) (Article, error)
	GetBySlug(ctx context.Context, slug string) (Article, error)
	List(ctx context.Context, filter ListFilter) ([]Article, int, error)
	Update(ctx context.Context, id int64, in UpdateInput, now time.Time) (Article, error)
	// UpdateStatus moves the article from -> to only if its stored status still equals from.
	// Zero matched rows yield shared.ErrConflict. published_at is stamped with now on the
	// first move into published and kept afterwards.
	UpdateStatus(ctx context.Context, id int64, from, to Status, now time.Time) (TransitionResult, error)
	RecordTransition(ctx context.Context, t Transition) error
	ListIDsByStatus(ctx context.Context, status Status) ([]int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const articleColumns = `
	a.id, a.slug, a.headline, a.summary, a.body, a.status, a.author_id,
	COALESCE(NULLIF(u.display_name, ''), u.username, ''),
	a.is_featured, a.is_breaking, a.published_at, a.created_at, a.updated_at`

const articleFrom = `
	FROM articles a
	LEFT JOIN users u ON u.id = a.author_id`

func scanArticle(row pgx.Row) (Article, error) {
	var a Article
	err := row.Scan(
		&a.ID, &a.Slug, &a.Headline, &a.Summary, &a.Body, &a.Status, &a.AuthorID,
		&a.AuthorName, &a.IsFeatured, &a.IsBreaking, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// Create inserts a new article in draft.
func (r *PGRepository) Create(ctx context.Context, a Article) (Article, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO articles (slug, headline, summary, body, status, author_id, is_featured, is_breaking)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		a.Slug, a.Headline, a.Summary, a.Body, a.Status, a.AuthorID, a.IsFeatured, a.IsBreaking,
	).Scan(&id)
	if err != nil {
		return Article{}, db.Classify(err)
	}
	return r.Get(ctx, id)
}

// Get retrieves an article by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (Article, error) {
	a, err := scanArticle(r.pool.QueryRow(ctx, `SELECT `+articleColumns+articleFrom+` WHERE a.id = $1`, id))
	if err != nil {
		return Article{}, db.Classify(err)
	}
	return a, nil
}

// GetBySlug retrieves an article by slug.
func (r *PGRepository) GetBySlug(ctx context.Context, slug string) (Article, error) {
	a, err := scanArticle(r.pool.QueryRow(ctx, `SELECT `+articleColumns+articleFrom+` WHERE a.slug = $1`, slug))
	if err != nil {
		return Article{}, db.Classify(err)
	}
	return a, nil
}

// List returns one page of articles matching filter, newest publication first, with the
// total number of matches.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Article, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("a.is_featured = $%d", argPos))
		args = append(args, *filter.Featured)
		argPos++
	}
	if filter.Breaking != nil {
		conditions = append(conditions, fmt.Sprintf("a.is_breaking = $%d", argPos))
		args = append(args, *filter.Breaking)
		argPos++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(a.headline) LIKE $%d OR LOWER(a.summary) LIKE $%d)", argPos, argPos,
		))
		args = append(args, pattern)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles a`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("articles: count: %w", err)
	}

	query := `SELECT ` + articleColumns + articleFrom + whereClause + fmt.Sprintf(`
		ORDER BY a.published_at DESC NULLS LAST, a.created_at DESC, a.id DESC
		LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, filter.Page.Limit, filter.Page.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("articles: list: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update applies the non-nil fields of in.
func (r *PGRepository) Update(ctx context.Context, id int64, in UpdateInput, now time.Time) (Article, error) {
	cmdTag, err := r.pool.Exec(ctx, `
		UPDATE articles SET
			headline    = COALESCE($2, headline),
			summary     = COALESCE($3, summary),
			body        = COALESCE($4, body),
			is_featured = COALESCE($5, is_featured),
			is_breaking = COALESCE($6, is_breaking),
			updated_at  = $7
		WHERE id = $1`,
		id, in.Headline, in.Summary, in.Body, in.IsFeatured, in.IsBreaking, now,
	)
	if err != nil {
		return Article{}, fmt.Errorf("articles: update %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return Article{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// UpdateStatus performs the guarded single-row status change.
func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, from, to Status, now time.Time) (TransitionResult, error) {
	res := TransitionResult{ArticleID: id}
	err := r.pool.QueryRow(ctx, `
		UPDATE articles SET
			status       = $3::text,
			published_at = CASE WHEN $3::text = 'published' THEN COALESCE(published_at, $4) ELSE published_at END,
			updated_at   = $4
		WHERE id = $1 AND status = $2
		RETURNING status, published_at`,
		id, from, to, now,
	).Scan(&res.Status, &res.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransitionResult{}, fmt.Errorf("%w: article %d is no longer %s", shared.ErrConflict, id, from)
		}
		return TransitionResult{}, fmt.Errorf("articles: update status %d: %w", id, err)
	}
	return res, nil
}

// RecordTransition appends to article_transitions.
func (r *PGRepository) RecordTransition(ctx context.Context, t Transition) error {
	var actor *int64
	if t.ActorID > 0 {
		actor = &t.ActorID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO article_transitions (article_id, from_status, to_status, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ArticleID, t.From, t.To, actor, t.At,
	)
	return err
}

// ListIDsByStatus returns the ids of articles currently in status, oldest first.
func (r *PGRepository) ListIDsByStatus(ctx context.Context, status Status) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM articles WHERE status = $1 ORDER BY updated_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("articles: list %s: %w", status, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

var _ Repository = (*PGRepository)(nil)
