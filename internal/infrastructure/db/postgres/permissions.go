package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

const permissionColumns = `id, permission_key, name, type, description, created_at, updated_at`

type PermissionRepository struct {
	pool *pgxpool.Pool
}

func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

func scanPermission(row scanner) (*domain.Permission, error) {
	var (
		p   domain.Permission
		typ string
	)
	if err := row.Scan(&p.ID, &p.Key, &p.Name, &typ, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Type = domain.PermissionType(typ)
	return &p, nil
}

func (r *PermissionRepository) Create(ctx context.Context, p *domain.Permission) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO permissions (`+permissionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Key, p.Name, string(p.Type), p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPermissionExists
		}
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}

func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*domain.Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, id)
		}
		return nil, fmt.Errorf("find permission: %w", err)
	}
	return p, nil
}

func (r *PermissionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	defer rows.Close()

	var perms []*domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = ANY($1)`, ids)
}

func (r *PermissionRepository) FindByKeys(ctx context.Context, keys []string) ([]*domain.Permission, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE permission_key = ANY($1)`, keys)
}

func (r *PermissionRepository) List(ctx context.Context, f ports.PermissionFilter) ([]*domain.Permission, int64, error) {
	var w where
	if f.Type != "" {
		w.add("type = $%d", string(f.Type))
	}
	if f.Search != "" {
		w.add("(permission_key ILIKE $%[1]d OR name ILIKE $%[1]d)", likePattern(f.Search))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count permissions: %w", err)
	}

	query := `SELECT ` + permissionColumns + ` FROM permissions` + w.String() + ` ORDER BY permission_key`
	query += w.paginate(f.Page, f.Limit)
	perms, err := r.query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	return perms, total, nil
}

func (r *PermissionRepository) Update(ctx context.Context, p *domain.Permission) error {
	tag, err := r.pool.Exec(ctx, `UPDATE permissions
SET permission_key = $2, name = $3, type = $4, description = $5, updated_at = $6
WHERE id = $1`,
		p.ID, p.Key, p.Name, string(p.Type), p.Description, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPermissionExists
		}
		return fmt.Errorf("update permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, p.ID)
	}
	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return fmt.Errorf("drop role permissions: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete permission: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrPermissionNotFound, id)
		}
		return nil
	})
}
