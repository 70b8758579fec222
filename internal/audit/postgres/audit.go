package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/report-management/internal/audit"
	datamodel "github.com/frahmantamala/report-management/internal/core/datamodel/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	model := toModel(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	entry.ID = model.ID
	entry.CreatedAt = model.CreatedAt
	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]*audit.Entry, error) {
	var models []datamodel.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for entity: %w", err)
	}
	return toDomainSlice(models), nil
}

func (r *AuditRepository) ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]*audit.Entry, error) {
	var models []datamodel.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for actor: %w", err)
	}
	return toDomainSlice(models), nil
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit, offset int) ([]*audit.Entry, error) {
	var models []datamodel.AuditLogEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent audit entries: %w", err)
	}
	return toDomainSlice(models), nil
}

func toModel(entry *audit.Entry) *datamodel.AuditLogEntry {
	return &datamodel.AuditLogEntry{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
	}
}

func toDomain(model *datamodel.AuditLogEntry) *audit.Entry {
	return &audit.Entry{
		ID:         model.ID,
		ActorID:    model.ActorID,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		OldValue:   model.OldValue,
		NewValue:   model.NewValue,
		CreatedAt:  model.CreatedAt,
	}
}

func toDomainSlice(models []datamodel.AuditLogEntry) []*audit.Entry {
	entries := make([]*audit.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, toDomain(&models[i]))
	}
	return entries
}
