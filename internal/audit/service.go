package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/frahmantamala/report-management/internal/core/events"
)

type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	ListByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]*Entry, error)
	ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]*Entry, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*Entry, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record writes a single audit entry. Audit failures are logged but never
// propagated, a failed write must not roll back the action it describes.
func (s *Service) Record(ctx context.Context, entry *Entry) {
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err)
	}
}

func (s *Service) ForEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]*Entry, error) {
	return s.repo.ListByEntity(ctx, entityType, entityID, normalizeLimit(limit), offset)
}

func (s *Service) ForActor(ctx context.Context, actorID int64, limit, offset int) ([]*Entry, error) {
	return s.repo.ListByActor(ctx, actorID, normalizeLimit(limit), offset)
}

func (s *Service) Recent(ctx context.Context, limit, offset int) ([]*Entry, error) {
	return s.repo.ListRecent(ctx, normalizeLimit(limit), offset)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// RegisterSubscribers attaches audit trail handlers to the domain event bus.
func (s *Service) RegisterSubscribers(bus *events.EventBus) {
	bus.Subscribe(events.EventReportSubmitted, s.onReportEvent(ActionReportSubmitted, "submitted_by"))
	bus.Subscribe(events.EventReportApproved, s.onReportEvent(ActionReportApproved, "approver_id"))
	bus.Subscribe(events.EventReportRejected, s.onReportEvent(ActionReportRejected, "approver_id"))
	bus.Subscribe(events.EventRoleAssigned, s.onRoleAssigned)
	bus.Subscribe(events.EventUserDeactivated, s.onUserStatus(ActionUserDeactivated))
	bus.Subscribe(events.EventUserActivated, s.onUserStatus(ActionUserActivated))
}

func (s *Service) onReportEvent(action, actorKey string) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		data, ok := event.Payload().(map[string]interface{})
		if !ok {
			return nil
		}

		entry := &Entry{
			Action:     action,
			EntityType: EntityReport,
			EntityID:   payloadID(data, "report_id"),
			ActorID:    payloadID(data, actorKey),
			NewValue:   payloadJSON(data),
		}
		s.Record(ctx, entry)
		return nil
	}
}

func (s *Service) onRoleAssigned(ctx context.Context, event events.Event) error {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return nil
	}

	entry := &Entry{
		Action:     ActionRoleAssigned,
		EntityType: EntityUser,
		EntityID:   payloadID(data, "user_id"),
		ActorID:    payloadID(data, "assigned_by"),
		NewValue:   payloadJSON(data),
	}
	s.Record(ctx, entry)
	return nil
}

func (s *Service) onUserStatus(action string) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		data, ok := event.Payload().(map[string]interface{})
		if !ok {
			return nil
		}

		entry := &Entry{
			Action:     action,
			EntityType: EntityUser,
			EntityID:   payloadID(data, "user_id"),
			ActorID:    payloadID(data, "actor_id"),
			NewValue:   payloadJSON(data),
		}
		s.Record(ctx, entry)
		return nil
	}
}

func payloadID(data map[string]interface{}, key string) *int64 {
	switch v := data[key].(type) {
	case int64:
		return &v
	case int:
		id := int64(v)
		return &id
	case float64:
		id := int64(v)
		return &id
	default:
		return nil
	}
}

func payloadJSON(data map[string]interface{}) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(raw)
}
