package audit

import (
	"errors"
	"time"
)

var ErrEntryNotFound = errors.New("audit entry not found")

// Entity types recorded in the log.
const (
	EntityReport     = "report"
	EntityUser       = "user"
	EntityDepartment = "department"
	EntityRole       = "role"
)

// Actions recorded in the log.
const (
	ActionReportSubmitted = "report_submitted"
	ActionReportApproved  = "report_approved"
	ActionReportRejected  = "report_rejected"
	ActionRoleAssigned    = "role_assigned"
	ActionUserDeactivated = "user_deactivated"
	ActionUserActivated   = "user_activated"
	ActionDeptCreated     = "department_created"
	ActionDeptUpdated     = "department_updated"
)

type Entry struct {
	ID         int64     `json:"id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
