package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventReportSubmitted = "report.submitted"
	EventReportApproved  = "report.approved"
	EventReportRejected  = "report.rejected"
	EventRoleAssigned    = "user.role_assigned"
	EventUserDeactivated = "user.deactivated"
	EventUserActivated   = "user.activated"
)

func NewReportSubmittedEvent(reportID, submitterID int64, departmentID *int64) BaseEvent {
	data := map[string]interface{}{
		"report_id":    reportID,
		"submitted_by": submitterID,
	}
	if departmentID != nil {
		data["department_id"] = *departmentID
	}
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventReportSubmitted,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewReportDecisionEvent(eventType string, reportID, approverID int64, comment string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"report_id":   reportID,
			"approver_id": approverID,
			"comment":     comment,
		},
	}
}

func NewRoleAssignedEvent(userID, roleID, assignerID int64, departmentID *int64) BaseEvent {
	data := map[string]interface{}{
		"user_id":     userID,
		"role_id":     roleID,
		"assigned_by": assignerID,
	}
	if departmentID != nil {
		data["department_id"] = *departmentID
	}
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventRoleAssigned,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewUserStatusEvent(eventType string, userID, actorID int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"user_id":  userID,
			"actor_id": actorID,
		},
	}
}
