package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/report-management/internal/core/events"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	Upsert(u *User) error
	GetByID(id int64) (*User, error)
	List(limit, offset int) ([]*User, error)
	ListActiveByRole(roleName string) ([]*User, error)
	SetActive(id int64, active bool) error
	SetCredentials(id int64, email, passwordHash string) error
}

// Authorizer gates the administrative user operations.
type Authorizer interface {
	CanManageUsers(actorID int64) error
}

type Service struct {
	repo       Repository
	authorizer Authorizer
	eventBus   *events.EventBus
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, authorizer Authorizer, eventBus *events.EventBus, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		eventBus:   eventBus,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates the user on first contact or refreshes the identity
// fields on repeat contact. Never fails on a duplicate id.
func (s *Service) Register(dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := &User{
		ID:        dto.ID,
		Username:  dto.Username,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Email:     dto.Email,
		Phone:     dto.Phone,
		IsActive:  true,
	}

	if err := s.repo.Upsert(u); err != nil {
		s.logger.Error("failed to register user", "error", err, "user_id", dto.ID)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *Service) GetByID(id int64) (*User, error) {
	return s.repo.GetByID(id)
}

func (s *Service) List(actorID int64, limit, offset int) ([]*User, error) {
	if err := s.authorizer.CanManageUsers(actorID); err != nil {
		s.logger.Warn("user list denied", "actor_id", actorID, "error", err)
		return nil, err
	}
	return s.repo.List(limit, offset)
}

func (s *Service) Deactivate(actorID, userID int64) error {
	if err := s.authorizer.CanManageUsers(actorID); err != nil {
		s.logger.Warn("user deactivation denied", "actor_id", actorID, "user_id", userID, "error", err)
		return err
	}

	if _, err := s.repo.GetByID(userID); err != nil {
		return err
	}

	if err := s.repo.SetActive(userID, false); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "user_id", userID)
		return err
	}

	s.logger.Info("user deactivated", "user_id", userID, "actor_id", actorID)
	if s.eventBus != nil {
		_ = s.eventBus.Publish(context.Background(), events.NewUserStatusEvent(events.EventUserDeactivated, userID, actorID))
	}
	return nil
}

func (s *Service) Activate(actorID, userID int64) error {
	if err := s.authorizer.CanManageUsers(actorID); err != nil {
		s.logger.Warn("user activation denied", "actor_id", actorID, "user_id", userID, "error", err)
		return err
	}

	if _, err := s.repo.GetByID(userID); err != nil {
		return err
	}

	if err := s.repo.SetActive(userID, true); err != nil {
		s.logger.Error("failed to activate user", "error", err, "user_id", userID)
		return err
	}

	s.logger.Info("user activated", "user_id", userID, "actor_id", actorID)
	if s.eventBus != nil {
		_ = s.eventBus.Publish(context.Background(), events.NewUserStatusEvent(events.EventUserActivated, userID, actorID))
	}
	return nil
}

// SetCredentials hashes and stores web panel login credentials for a user.
func (s *Service) SetCredentials(actorID int64, dto SetCredentialsDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	if actorID != dto.UserID {
		if err := s.authorizer.CanManageUsers(actorID); err != nil {
			s.logger.Warn("credential update denied", "actor_id", actorID, "user_id", dto.UserID, "error", err)
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.repo.SetCredentials(dto.UserID, dto.Email, string(hash)); err != nil {
		s.logger.Error("failed to set credentials", "error", err, "user_id", dto.UserID)
		return err
	}

	s.logger.Info("credentials updated", "user_id", dto.UserID)
	return nil
}

// ListActiveByRole returns the active holders of a role, used by the bot's
// admin listing commands.
func (s *Service) ListActiveByRole(actorID int64, roleName string) ([]*User, error) {
	if err := s.authorizer.CanManageUsers(actorID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveByRole(roleName)
}
