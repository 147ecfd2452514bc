package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, username, email, password_hash, status, is_active, is_deleted, deleted_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		u      domain.User
		status string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &status, &u.IsActive, &u.IsDeleted, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	return &u, nil
}

// Create inserts the user and its role assignments in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, roles []domain.UserRole) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (`+userColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			u.ID, u.Username, u.Email, u.PasswordHash, string(u.Status), u.IsActive, u.IsDeleted, u.DeletedAt, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrUserExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if len(roles) == 0 {
			return nil
		}

		rows := make([][]any, 0, len(roles))
		for _, a := range roles {
			rows = append(rows, []any{u.ID, a.RoleID, a.ExpiresAt, a.CreatedAt})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"user_roles"},
			[]string{"user_id", "role_id", "expires_at", "created_at"}, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("insert user roles: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1 AND NOT is_deleted`, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *UserRepository) List(ctx context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	var w where
	w.fixed("NOT is_deleted")
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.Search != "" {
		w.add("(username ILIKE $%[1]d OR email ILIKE $%[1]d)", likePattern(f.Search))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY created_at DESC, id`
	query += w.paginate(f.Page, f.Limit)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
SET username = $2, email = $3, password_hash = $4, status = $5, is_active = $6, updated_at = $7
WHERE id = $1 AND NOT is_deleted`,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Status), u.IsActive, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET is_deleted = TRUE, deleted_at = $2, updated_at = $2
WHERE id = $1 AND NOT is_deleted`, id, at)
		if err != nil {
			return fmt.Errorf("soft delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("drop user roles: %w", err)
		}
		return nil
	})
}
