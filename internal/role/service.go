package role

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/report-management/internal/core/events"
)

// Repository defines the data access methods for the role catalog and
// user-role assignments.
type Repository interface {
	GetRoleByName(name string) (*Role, error)
	GetRoleByID(id int64) (*Role, error)
	ListRoles() ([]Role, error)
	PrimaryAssignment(userID int64) (*Assignment, error)
	AssignmentsForUser(userID int64) ([]Assignment, error)
	Upsert(userID, roleID int64, departmentID *int64, assignedBy int64, isPrimary bool) (*Assignment, error)
	ClearPrimary(userID int64) error
	Revoke(userID, roleID int64) error
}

// AssignmentAuthorizer decides whether an assigner may grant a role of the
// given rank in the given department. Granting the admin role is a separate
// decision because no rank sits above it.
type AssignmentAuthorizer interface {
	CanAssignRole(assignerID int64, targetLevel int, departmentID *int64) error
	CanGrantAdmin(assignerID int64) error
}

type Service struct {
	repo       Repository
	authorizer AssignmentAuthorizer
	eventBus   *events.EventBus
	logger     *slog.Logger
}

func NewService(repo Repository, authorizer AssignmentAuthorizer, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Assign grants a role to a user. A duplicate assignment for the same
// user/role/department is reactivated in place rather than rejected.
func (s *Service) Assign(assignerID int64, dto AssignRoleDTO) (*Assignment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	target, err := s.repo.GetRoleByName(dto.RoleName)
	if err != nil {
		s.logger.Error("role lookup failed", "error", err, "role_name", dto.RoleName)
		return nil, ErrRoleNotFound
	}

	if err := s.authorizer.CanAssignRole(assignerID, target.Level, dto.DepartmentID); err != nil {
		s.logger.Warn("role assignment denied",
			"assigner_id", assignerID,
			"user_id", dto.UserID,
			"role_name", dto.RoleName,
			"error", err)
		return nil, err
	}

	if dto.IsPrimary {
		if err := s.repo.ClearPrimary(dto.UserID); err != nil {
			s.logger.Error("failed to clear primary assignments", "error", err, "user_id", dto.UserID)
			return nil, err
		}
	}

	assignment, err := s.repo.Upsert(dto.UserID, target.ID, dto.DepartmentID, assignerID, dto.IsPrimary)
	if err != nil {
		s.logger.Error("failed to assign role", "error", err, "user_id", dto.UserID, "role_id", target.ID)
		return nil, err
	}

	s.logger.Info("role assigned",
		"user_id", dto.UserID,
		"role_name", dto.RoleName,
		"assigner_id", assignerID,
		"is_primary", dto.IsPrimary)

	if s.eventBus != nil {
		event := events.NewRoleAssignedEvent(dto.UserID, target.ID, assignerID, dto.DepartmentID)
		_ = s.eventBus.Publish(context.Background(), event)
	}

	return assignment, nil
}

// GrantAdmin promotes a user to administrator. Assign cannot do this, its
// strict lower-rank rule rejects grants at the assigner's own level, so the
// admin role gets its own path gated on the assigner being an admin.
func (s *Service) GrantAdmin(assignerID, targetID int64) (*Assignment, error) {
	if err := s.authorizer.CanGrantAdmin(assignerID); err != nil {
		s.logger.Warn("admin grant denied", "assigner_id", assignerID, "user_id", targetID, "error", err)
		return nil, err
	}

	target, err := s.repo.GetRoleByName(RoleAdmin)
	if err != nil {
		s.logger.Error("admin role lookup failed", "error", err)
		return nil, ErrRoleNotFound
	}

	if err := s.repo.ClearPrimary(targetID); err != nil {
		s.logger.Error("failed to clear primary assignments", "error", err, "user_id", targetID)
		return nil, err
	}

	// Admins are not scoped to a department.
	assignment, err := s.repo.Upsert(targetID, target.ID, nil, assignerID, true)
	if err != nil {
		s.logger.Error("failed to grant admin role", "error", err, "user_id", targetID)
		return nil, err
	}

	s.logger.Info("admin role granted", "user_id", targetID, "assigner_id", assignerID)

	if s.eventBus != nil {
		event := events.NewRoleAssignedEvent(targetID, target.ID, assignerID, nil)
		_ = s.eventBus.Publish(context.Background(), event)
	}

	return assignment, nil
}

// Enroll grants the employee role in the chosen department during
// self-service registration, so no assigner check applies. A user who
// already holds an assignment keeps it.
func (s *Service) Enroll(userID, departmentID int64) (*Assignment, error) {
	if existing, err := s.repo.PrimaryAssignment(userID); err == nil && existing != nil {
		return nil, ErrAlreadyEnrolled
	}

	target, err := s.repo.GetRoleByName(RoleEmployee)
	if err != nil {
		s.logger.Error("employee role lookup failed", "error", err)
		return nil, ErrRoleNotFound
	}

	assignment, err := s.repo.Upsert(userID, target.ID, &departmentID, userID, true)
	if err != nil {
		s.logger.Error("failed to enroll user", "error", err, "user_id", userID, "department_id", departmentID)
		return nil, err
	}

	s.logger.Info("user enrolled", "user_id", userID, "department_id", departmentID)

	if s.eventBus != nil {
		event := events.NewRoleAssignedEvent(userID, target.ID, userID, &departmentID)
		_ = s.eventBus.Publish(context.Background(), event)
	}

	return assignment, nil
}

// Revoke soft-deactivates an assignment.
func (s *Service) Revoke(assignerID int64, dto RevokeRoleDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	target, err := s.repo.GetRoleByID(dto.RoleID)
	if err != nil {
		return ErrRoleNotFound
	}

	if err := s.authorizer.CanAssignRole(assignerID, target.Level, nil); err != nil {
		s.logger.Warn("role revocation denied", "assigner_id", assignerID, "user_id", dto.UserID, "error", err)
		return err
	}

	if err := s.repo.Revoke(dto.UserID, dto.RoleID); err != nil {
		s.logger.Error("failed to revoke role", "error", err, "user_id", dto.UserID, "role_id", dto.RoleID)
		return err
	}

	s.logger.Info("role revoked", "user_id", dto.UserID, "role_id", dto.RoleID, "assigner_id", assignerID)
	return nil
}

// PrimaryRole resolves the authoritative assignment for a user: the active
// assignment with the highest rank.
func (s *Service) PrimaryRole(userID int64) (*Assignment, error) {
	return s.repo.PrimaryAssignment(userID)
}

func (s *Service) AssignmentsForUser(userID int64) ([]Assignment, error) {
	return s.repo.AssignmentsForUser(userID)
}

func (s *Service) Catalog() ([]Role, error) {
	return s.repo.ListRoles()
}
