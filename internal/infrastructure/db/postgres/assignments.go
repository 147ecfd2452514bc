package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

type AssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

func (r *AssignmentRepository) UserRoles(ctx context.Context, userID string) ([]domain.UserRole, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, role_id, expires_at, created_at FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("find user roles: %w", err)
	}
	return scanUserRoles(rows)
}

func (r *AssignmentRepository) UserRolesBatch(ctx context.Context, userIDs []string) ([]domain.UserRole, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT user_id, role_id, expires_at, created_at FROM user_roles WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("find batch user roles: %w", err)
	}
	return scanUserRoles(rows)
}

func scanUserRoles(rows pgx.Rows) ([]domain.UserRole, error) {
	defer rows.Close()

	var out []domain.UserRole
	for rows.Next() {
		var a domain.UserRole
		if err := rows.Scan(&a.UserID, &a.RoleID, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AssignmentRepository) ReplaceUserRoles(ctx context.Context, userID string, assignments []domain.UserRole) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		if len(assignments) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(assignments))
		for _, a := range assignments {
			rows = append(rows, []any{userID, a.RoleID, a.ExpiresAt, a.CreatedAt})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"user_roles"},
			[]string{"user_id", "role_id", "expires_at", "created_at"}, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("insert user roles: %w", err)
		}
		return nil
	})
}

func (r *AssignmentRepository) AssignUserRole(ctx context.Context, a domain.UserRole) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, expires_at, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, role_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		a.UserID, a.RoleID, a.ExpiresAt, created)
	if err != nil {
		return fmt.Errorf("assign user role: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) UnassignUserRole(ctx context.Context, userID, roleID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID); err != nil {
		return fmt.Errorf("unassign user role: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) RolePermissions(ctx context.Context, roleIDs []string) ([]domain.RolePermission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT role_id, permission_id, created_at FROM role_permissions WHERE role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("find role permissions: %w", err)
	}
	defer rows.Close()

	var out []domain.RolePermission
	for rows.Next() {
		var rp domain.RolePermission
		if err := rows.Scan(&rp.RoleID, &rp.PermissionID, &rp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AssignmentRepository) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		return insertRolePermissions(ctx, tx, roleID, permissionIDs)
	})
}

func (r *AssignmentRepository) AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return insertRolePermissions(ctx, tx, roleID, permissionIDs)
	})
}

func insertRolePermissions(ctx context.Context, tx pgx.Tx, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id, created_at)
SELECT $1, p, $3 FROM UNNEST($2::text[]) AS p
ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionIDs, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert role permissions: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) RemoveRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = ANY($2)`, roleID, permissionIDs)
	if err != nil {
		return fmt.Errorf("remove role permissions: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) RoleMenus(ctx context.Context, roleIDs []string) ([]domain.RoleMenu, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT role_id, menu_id, created_at FROM role_menus WHERE role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("find role menus: %w", err)
	}
	defer rows.Close()

	var out []domain.RoleMenu
	for rows.Next() {
		var rm domain.RoleMenu
		if err := rows.Scan(&rm.RoleID, &rm.MenuID, &rm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AssignmentRepository) ReplaceRoleMenus(ctx context.Context, roleID string, menuIDs []string) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_menus WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("clear role menus: %w", err)
		}
		if len(menuIDs) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `INSERT INTO role_menus (role_id, menu_id, created_at)
SELECT $1, m, $3 FROM UNNEST($2::text[]) AS m
ON CONFLICT (role_id, menu_id) DO NOTHING`, roleID, menuIDs, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert role menus: %w", err)
		}
		return nil
	})
}
