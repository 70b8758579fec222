package audit

import "time"

// AuditLogEntry rows are append-only; there is no update path.
type AuditLogEntry struct {
	ID         int64     `gorm:"primaryKey"`
	ActorID    *int64    `gorm:"column:actor_id;index"`
	Action     string    `gorm:"column:action;not null"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   *int64    `gorm:"column:entity_id"`
	OldValue   string    `gorm:"column:old_value"`
	NewValue   string    `gorm:"column:new_value"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
