package department

import (
	"log/slog"
)

type Repository interface {
	Create(d *Department) error
	GetByID(id int64) (*Department, error)
	ListActive() ([]*Department, error)
	Children(parentID int64) ([]*Department, error)
	Update(d *Department) error
	SetActive(id int64, active bool) error
	Count() (int64, error)
}

// Authorizer gates department management operations.
type Authorizer interface {
	CanManageDepartments(actorID int64) error
}

type Service struct {
	repo       Repository
	authorizer Authorizer
	logger     *slog.Logger
}

func NewService(repo Repository, authorizer Authorizer, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		logger:     logger,
	}
}

// Create inserts a department, deriving its depth level from the parent.
func (s *Service) Create(actorID int64, dto CreateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.authorizer.CanManageDepartments(actorID); err != nil {
		s.logger.Warn("department creation denied", "actor_id", actorID, "error", err)
		return nil, err
	}

	level := 0
	if dto.ParentDepartmentID != nil {
		parent, err := s.repo.GetByID(*dto.ParentDepartmentID)
		if err != nil {
			return nil, ErrParentNotFound
		}
		level = parent.Level + 1
	}

	d := &Department{
		Name:               dto.Name,
		NameEn:             dto.NameEn,
		ParentDepartmentID: dto.ParentDepartmentID,
		ManagerID:          dto.ManagerID,
		Level:              level,
		IsActive:           true,
	}

	if err := s.repo.Create(d); err != nil {
		s.logger.Error("failed to create department", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("department created",
		"department_id", d.ID,
		"name", d.Name,
		"level", d.Level,
		"actor_id", actorID)

	return d, nil
}

func (s *Service) GetByID(id int64) (*Department, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListActive() ([]*Department, error) {
	return s.repo.ListActive()
}

func (s *Service) Update(actorID, id int64, dto UpdateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.authorizer.CanManageDepartments(actorID); err != nil {
		s.logger.Warn("department update denied", "actor_id", actorID, "department_id", id, "error", err)
		return nil, err
	}

	d, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		d.Name = *dto.Name
	}
	if dto.NameEn != nil {
		d.NameEn = *dto.NameEn
	}
	if dto.ManagerID != nil {
		d.ManagerID = dto.ManagerID
	}

	if err := s.repo.Update(d); err != nil {
		s.logger.Error("failed to update department", "error", err, "department_id", id)
		return nil, err
	}

	s.logger.Info("department updated", "department_id", id, "actor_id", actorID)
	return d, nil
}

func (s *Service) Deactivate(actorID, id int64) error {
	if err := s.authorizer.CanManageDepartments(actorID); err != nil {
		s.logger.Warn("department deactivation denied", "actor_id", actorID, "department_id", id, "error", err)
		return err
	}

	if err := s.repo.SetActive(id, false); err != nil {
		s.logger.Error("failed to deactivate department", "error", err, "department_id", id)
		return err
	}

	s.logger.Info("department deactivated", "department_id", id, "actor_id", actorID)
	return nil
}

// Hierarchy assembles the active departments into a forest of nodes. The
// parent index is built in one pass so orphaned rows surface as extra roots
// instead of being dropped.
func (s *Service) Hierarchy() ([]*Node, error) {
	departments, err := s.repo.ListActive()
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*Node, len(departments))
	for _, d := range departments {
		nodes[d.ID] = &Node{Department: *d}
	}

	var roots []*Node
	for _, n := range nodes {
		if n.ParentDepartmentID != nil {
			if parent, ok := nodes[*n.ParentDepartmentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots, nil
}
