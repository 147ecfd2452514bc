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

const roleColumns = `id, role_key, name, description, is_active, is_system, is_default, is_deleted, deleted_at, created_at, updated_at`

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func scanRole(row scanner) (*domain.Role, error) {
	var r domain.Role
	if err := row.Scan(&r.ID, &r.Key, &r.Name, &r.Description, &r.IsActive, &r.IsSystem, &r.IsDefault, &r.IsDeleted, &r.DeletedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO roles (`+roleColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		role.ID, role.Key, role.Name, role.Description, role.IsActive, role.IsSystem, role.IsDefault, role.IsDeleted, role.DeletedAt, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *RoleRepository) findOne(ctx context.Context, column, value string) (*domain.Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE `+column+` = $1 AND NOT is_deleted`, value)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, value)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.findOne(ctx, "id", id)
}

func (r *RoleRepository) FindByKey(ctx context.Context, key string) (*domain.Role, error) {
	return r.findOne(ctx, "role_key", key)
}

func (r *RoleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Role, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ANY($1) AND NOT is_deleted`, ids)
}

func (r *RoleRepository) FindByKeys(ctx context.Context, keys []string) ([]*domain.Role, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_key = ANY($1) AND NOT is_deleted`, keys)
}

func (r *RoleRepository) FindDefaults(ctx context.Context) ([]*domain.Role, error) {
	return r.query(ctx, `SELECT `+roleColumns+` FROM roles WHERE is_default AND is_active AND NOT is_deleted`)
}

func (r *RoleRepository) List(ctx context.Context, f ports.RoleFilter) ([]*domain.Role, int64, error) {
	var w where
	w.fixed("NOT is_deleted")
	if f.Active != nil {
		w.add("is_active = $%d", *f.Active)
	}
	if f.Search != "" {
		w.add("(role_key ILIKE $%[1]d OR name ILIKE $%[1]d)", likePattern(f.Search))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	query := `SELECT ` + roleColumns + ` FROM roles` + w.String() + ` ORDER BY created_at, id`
	query += w.paginate(f.Page, f.Limit)
	roles, err := r.query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles
SET role_key = $2, name = $3, description = $4, is_active = $5, is_system = $6, is_default = $7, updated_at = $8
WHERE id = $1 AND NOT is_deleted`,
		role.ID, role.Key, role.Name, role.Description, role.IsActive, role.IsSystem, role.IsDefault, role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRoleNotFound, role.ID)
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string, at time.Time) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// The row lock conflicts with the KEY SHARE lock taken by the
		// user_roles foreign key, so a concurrent assignment waits until the
		// in-use check below has committed.
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 AND NOT is_deleted FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", domain.ErrRoleNotFound, id)
			}
			return fmt.Errorf("lock role: %w", err)
		}

		var inUse bool
		err = tx.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM user_roles WHERE role_id = $1 AND (expires_at IS NULL OR expires_at > $2))`, id, at).Scan(&inUse)
		if err != nil {
			return fmt.Errorf("count role assignments: %w", err)
		}
		if inUse {
			return domain.ErrRoleInUse
		}

		for _, stmt := range []string{
			`DELETE FROM user_roles WHERE role_id = $1`,
			`DELETE FROM role_permissions WHERE role_id = $1`,
			`DELETE FROM role_menus WHERE role_id = $1`,
		} {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("drop role links: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `UPDATE roles SET is_deleted = TRUE, deleted_at = $2, updated_at = $2 WHERE id = $1`, id, at); err != nil {
			return fmt.Errorf("soft delete role: %w", err)
		}
		return nil
	})
}
