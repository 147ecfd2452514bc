package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

const menuColumns = `id, name, path, icon, permission_key, parent_id, sort, is_visible, is_enabled, is_deleted, deleted_at, created_at, updated_at`

type MenuRepository struct {
	pool *pgxpool.Pool
}

func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func scanMenu(row scanner) (*domain.Menu, error) {
	var m domain.Menu
	if err := row.Scan(&m.ID, &m.Name, &m.Path, &m.Icon, &m.PermissionKey, &m.ParentID, &m.Sort, &m.IsVisible, &m.IsEnabled, &m.IsDeleted, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MenuRepository) Create(ctx context.Context, m *domain.Menu) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO menus (`+menuColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.Name, m.Path, m.Icon, m.PermissionKey, m.ParentID, m.Sort, m.IsVisible, m.IsEnabled, m.IsDeleted, m.DeletedAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert menu: %w", err)
	}
	return nil
}

func (r *MenuRepository) FindByID(ctx context.Context, id string) (*domain.Menu, error) {
	m, err := scanMenu(r.pool.QueryRow(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = $1 AND NOT is_deleted`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMenuNotFound, id)
		}
		return nil, fmt.Errorf("find menu: %w", err)
	}
	return m, nil
}

func (r *MenuRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Menu, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find menus: %w", err)
	}
	defer rows.Close()

	var menus []*domain.Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return menus, nil
}

func (r *MenuRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Menu, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = ANY($1) AND NOT is_deleted ORDER BY sort, id`, ids)
}

func (r *MenuRepository) FindAll(ctx context.Context) ([]*domain.Menu, error) {
	return r.query(ctx, `SELECT `+menuColumns+` FROM menus WHERE NOT is_deleted ORDER BY sort, id`)
}

func (r *MenuRepository) CountChildren(ctx context.Context, id string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM menus WHERE parent_id = $1 AND NOT is_deleted`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count child menus: %w", err)
	}
	return n, nil
}

func (r *MenuRepository) Update(ctx context.Context, m *domain.Menu) error {
	tag, err := r.pool.Exec(ctx, `UPDATE menus
SET name = $2, path = $3, icon = $4, permission_key = $5, parent_id = $6, sort = $7, is_visible = $8, is_enabled = $9, updated_at = $10
WHERE id = $1 AND NOT is_deleted`,
		m.ID, m.Name, m.Path, m.Icon, m.PermissionKey, m.ParentID, m.Sort, m.IsVisible, m.IsEnabled, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMenuNotFound, m.ID)
	}
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, id string, at time.Time) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE menus SET is_deleted = TRUE, deleted_at = $2, updated_at = $2
WHERE id = $1 AND NOT is_deleted`, id, at)
		if err != nil {
			return fmt.Errorf("soft delete menu: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrMenuNotFound, id)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_menus WHERE menu_id = $1`, id); err != nil {
			return fmt.Errorf("drop role menus: %w", err)
		}
		return nil
	})
}

func (r *MenuRepository) UpdateSort(ctx context.Context, items []domain.MenuSort) error {
	now := time.Now().UTC()
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(`UPDATE menus SET sort = $2, updated_at = $3 WHERE id = $1 AND NOT is_deleted`, it.ID, it.Sort, now)
		}
		results := tx.SendBatch(ctx, batch)
		for _, it := range items {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return fmt.Errorf("update menu sort: %w", err)
			}
			if tag.RowsAffected() == 0 {
				_ = results.Close()
				return fmt.Errorf("%w: %s", domain.ErrMenuNotFound, it.ID)
			}
		}
		return results.Close()
	})
}
