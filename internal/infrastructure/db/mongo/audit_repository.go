package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// AuditRepository is append-only.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAuditLogs)}
}

type auditDoc struct {
	ID           string    `bson:"_id"`
	Timestamp    time.Time `bson:"timestamp"`
	ActorID      string    `bson:"actor_id,omitempty"`
	ActorName    string    `bson:"actor_name,omitempty"`
	Action       string    `bson:"action"`
	ResourceType string    `bson:"resource_type"`
	ResourceID   string    `bson:"resource_id,omitempty"`
	Before       bson.M    `bson:"before,omitempty"`
	After        bson.M    `bson:"after,omitempty"`
	Result       string    `bson:"result"`
	Error        string    `bson:"error,omitempty"`
	RequestID    string    `bson:"request_id,omitempty"`
	ClientIP     string    `bson:"client_ip,omitempty"`
}

func (r *AuditRepository) Insert(ctx context.Context, l *domain.AuditLog) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := auditDoc{
		ID:           l.ID,
		Timestamp:    l.Timestamp,
		ActorID:      l.ActorID,
		ActorName:    l.ActorName,
		Action:       string(l.Action),
		ResourceType: string(l.ResourceType),
		ResourceID:   l.ResourceID,
		Before:       l.Before,
		After:        l.After,
		Result:       string(l.Result),
		Error:        l.Error,
		RequestID:    l.RequestID,
		ClientIP:     l.ClientIP,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, f ports.AuditFilter) ([]*domain.AuditLog, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ActorID != "" {
		filter["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		filter["action"] = string(f.Action)
	}
	if f.ResourceType != "" {
		filter["resource_type"] = string(f.ResourceType)
	}
	if f.ResourceID != "" {
		filter["resource_id"] = f.ResourceID
	}
	if f.Result != "" {
		filter["result"] = string(f.Result)
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		span := bson.M{}
		if !f.From.IsZero() {
			span["$gte"] = f.From
		}
		if !f.To.IsZero() {
			span["$lte"] = f.To
		}
		filter["timestamp"] = span
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	docs, err := findAll[auditDoc](ctx, r.col, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	logs := make([]*domain.AuditLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, &domain.AuditLog{
			ID:           d.ID,
			Timestamp:    d.Timestamp,
			ActorID:      d.ActorID,
			ActorName:    d.ActorName,
			Action:       domain.AuditAction(d.Action),
			ResourceType: domain.ResourceType(d.ResourceType),
			ResourceID:   d.ResourceID,
			Before:       d.Before,
			After:        d.After,
			Result:       domain.AuditResult(d.Result),
			Error:        d.Error,
			RequestID:    d.RequestID,
			ClientIP:     d.ClientIP,
		})
	}
	return logs, total, nil
}
