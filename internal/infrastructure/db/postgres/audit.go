package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// snapshotJSON encodes an audit snapshot, keeping nil as SQL NULL.
func snapshotJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (r *AuditRepository) Insert(ctx context.Context, l *domain.AuditLog) error {
	before, err := snapshotJSON(l.Before)
	if err != nil {
		return fmt.Errorf("encode audit before: %w", err)
	}
	after, err := snapshotJSON(l.After)
	if err != nil {
		return fmt.Errorf("encode audit after: %w", err)
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs
(id, timestamp, actor_id, actor_name, action, resource_type, resource_id, before, after, result, error, request_id, client_ip)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.Timestamp, l.ActorID, l.ActorName, string(l.Action), string(l.ResourceType), l.ResourceID,
		before, after, string(l.Result), l.Error, l.RequestID, l.ClientIP)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, f ports.AuditFilter) ([]*domain.AuditLog, int64, error) {
	var w where
	if f.ActorID != "" {
		w.add("actor_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		w.add("action = $%d", string(f.Action))
	}
	if f.ResourceType != "" {
		w.add("resource_type = $%d", string(f.ResourceType))
	}
	if f.ResourceID != "" {
		w.add("resource_id = $%d", f.ResourceID)
	}
	if f.Result != "" {
		w.add("result = $%d", string(f.Result))
	}
	if !f.From.IsZero() {
		w.add("timestamp >= $%d", f.From)
	}
	if !f.To.IsZero() {
		w.add("timestamp <= $%d", f.To)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	query := `SELECT id, timestamp, actor_id, actor_name, action, resource_type, resource_id, before, after, result, error, request_id, client_ip
FROM audit_logs` + w.String() + ` ORDER BY timestamp DESC, id DESC`
	query += w.paginate(f.Page, f.Limit)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			l                        domain.AuditLog
			action, resource, result string
			before, after            []byte
		)
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.ActorID, &l.ActorName, &action, &resource, &l.ResourceID,
			&before, &after, &result, &l.Error, &l.RequestID, &l.ClientIP); err != nil {
			return nil, 0, err
		}
		l.Action = domain.AuditAction(action)
		l.ResourceType = domain.ResourceType(resource)
		l.Result = domain.AuditResult(result)
		if len(before) > 0 {
			if err := json.Unmarshal(before, &l.Before); err != nil {
				return nil, 0, fmt.Errorf("decode audit before: %w", err)
			}
		}
		if len(after) > 0 {
			if err := json.Unmarshal(after, &l.After); err != nil {
				return nil, 0, fmt.Errorf("decode audit after: %w", err)
			}
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
