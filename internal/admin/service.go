package admin

import (
	"log/slog"

	"github.com/frahmantamala/report-management/internal/report"
)

// Stats is the dashboard snapshot for the admin panel landing page.
type Stats struct {
	TotalUsers       int64            `json:"total_users"`
	ActiveUsers      int64            `json:"active_users"`
	TotalDepartments int64            `json:"total_departments"`
	ReportsByStatus  map[string]int64 `json:"reports_by_status"`
	PendingApprovals int64            `json:"pending_approvals"`
}

type UserCounter interface {
	CountUsers() (total int64, active int64, err error)
}

type DepartmentCounter interface {
	Count() (int64, error)
}

type ReportCounter interface {
	CountByStatus() (map[string]int64, error)
}

type Service struct {
	users       UserCounter
	departments DepartmentCounter
	reports     ReportCounter
	logger      *slog.Logger
}

func NewService(users UserCounter, departments DepartmentCounter, reports ReportCounter, logger *slog.Logger) *Service {
	return &Service{
		users:       users,
		departments: departments,
		reports:     reports,
		logger:      logger,
	}
}

func (s *Service) Snapshot() (*Stats, error) {
	total, active, err := s.users.CountUsers()
	if err != nil {
		s.logger.Error("failed to count users", "error", err)
		return nil, err
	}

	deptCount, err := s.departments.Count()
	if err != nil {
		s.logger.Error("failed to count departments", "error", err)
		return nil, err
	}

	byStatus, err := s.reports.CountByStatus()
	if err != nil {
		s.logger.Error("failed to count reports", "error", err)
		return nil, err
	}

	return &Stats{
		TotalUsers:       total,
		ActiveUsers:      active,
		TotalDepartments: deptCount,
		ReportsByStatus:  byStatus,
		PendingApprovals: byStatus[report.StatusSubmitted],
	}, nil
}
