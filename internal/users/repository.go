package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newsroom-cms/newsroom/internal/platform/db"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const listUsersQuery = `
SELECT u.id, u.username, u.email, u.display_name, u.is_active, u.created_at, u.updated_at,
       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id`

// ListUsers returns one page of users ordered by username.
func (r *Repository) ListUsers(ctx context.Context, page shared.Page) ([]User, error) {
	rows, err := r.pool.Query(ctx, listUsersQuery+`
GROUP BY u.id
ORDER BY u.username
LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser fetches a user with role names.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, listUsersQuery+`
WHERE u.id = $1
GROUP BY u.id`, id)
	u, err := scanUser(row)
	if err != nil {
		return User{}, db.Classify(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Roles)
	return u, err
}

// CreateUser inserts the account and its role links in one transaction.
func (r *Repository) CreateUser(ctx context.Context, in NewUser) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, display_name, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, in.Username, in.Email, in.DisplayName, in.PasswordHash).Scan(&id)
		if err != nil {
			return db.Classify(err)
		}
		if len(in.Roles) == 0 {
			return nil
		}
		cmd, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, r.id FROM roles r WHERE r.name = ANY($2)
			ON CONFLICT DO NOTHING`, id, in.Roles)
		if err != nil {
			return err
		}
		if int(cmd.RowsAffected()) != len(in.Roles) {
			return fmt.Errorf("%w: unknown role in %v", shared.ErrValidation, in.Roles)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetActive toggles the account flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
