package access

import (
	"log/slog"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/department"
	"github.com/frahmantamala/report-management/internal/role"
	"github.com/frahmantamala/report-management/internal/user"
)

// Sentinels live in the internal root so handler packages can match on
// them without importing this package.
var (
	ErrNotAuthorized = internal.ErrNotAuthorized
	ErrInactiveUser  = internal.ErrUserInactive
	ErrOwnReport     = internal.ErrOwnReportDecision
)

// ReportInfo carries the report fields visibility decisions depend on. The
// report package converts into this shape to keep the dependency one-way.
type ReportInfo struct {
	ID           int64
	SubmittedBy  int64
	DepartmentID *int64
	Visibility   string
	Status       string
}

type UserStore interface {
	GetByID(id int64) (*user.User, error)
}

type RoleStore interface {
	PrimaryAssignment(userID int64) (*role.Assignment, error)
}

type DepartmentStore interface {
	ListActive() ([]*department.Department, error)
	Children(parentID int64) ([]*department.Department, error)
	Count() (int64, error)
}

// AccessControl answers "can user X do Y to entity Z" from role rank and
// department-tree reachability. It holds no state beyond its stores.
type AccessControl struct {
	users       UserStore
	roles       RoleStore
	departments DepartmentStore
	logger      *slog.Logger
}

func New(users UserStore, roles RoleStore, departments DepartmentStore, logger *slog.Logger) *AccessControl {
	return &AccessControl{
		users:       users,
		roles:       roles,
		departments: departments,
		logger:      logger,
	}
}

// activeActor loads the user and rejects inactive or unknown accounts. Every
// gate goes through this first.
func (a *AccessControl) activeActor(userID int64) (*user.User, error) {
	u, err := a.users.GetByID(userID)
	if err != nil {
		return nil, ErrNotAuthorized
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

// primaryRole resolves the actor's authoritative role. A user with no active
// assignment gets a nil role, which grants nothing.
func (a *AccessControl) primaryRole(userID int64) *role.Role {
	assignment, err := a.roles.PrimaryAssignment(userID)
	if err != nil {
		return nil
	}
	return &assignment.Role
}

// AccessibleDepartments computes the set of department ids the user may see
// reports from. The subtree walk is bounded by the total department count so
// it terminates even if the parent links form a cycle.
func (a *AccessControl) AccessibleDepartments(userID int64) ([]int64, error) {
	u, err := a.users.GetByID(userID)
	if err != nil || !u.IsActive {
		return nil, nil
	}

	assignment, err := a.roles.PrimaryAssignment(userID)
	if err != nil {
		return nil, nil
	}
	r := assignment.Role

	if r.IsAdmin() || r.Has(role.PermViewAll) {
		departments, err := a.departments.ListActive()
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(departments))
		for _, d := range departments {
			ids = append(ids, d.ID)
		}
		return ids, nil
	}

	if assignment.DepartmentID == nil {
		return nil, nil
	}
	root := *assignment.DepartmentID

	if r.Has(role.PermViewSubdepartments) {
		return a.subtree(root)
	}

	if r.Has(role.PermViewDepartment) {
		return []int64{root}, nil
	}

	return nil, nil
}

// subtree walks child links breadth-first from root. Visited tracking plus
// the total-count bound guarantee termination on malformed data.
func (a *AccessControl) subtree(root int64) ([]int64, error) {
	total, err := a.departments.Count()
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{root: true}
	result := []int64{root}
	queue := []int64{root}

	for len(queue) > 0 && int64(len(result)) <= total {
		current := queue[0]
		queue = queue[1:]

		children, err := a.departments.Children(current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			result = append(result, child.ID)
			queue = append(queue, child.ID)
			if int64(len(result)) > total {
				break
			}
		}
	}
	return result, nil
}

// CanViewReport: the submitter always sees their own report; public reports
// are visible to any active user; otherwise the report's department must be
// in the viewer's accessible set. A report without a department is only
// visible to its submitter and admins.
func (a *AccessControl) CanViewReport(userID int64, rep ReportInfo) bool {
	u, err := a.users.GetByID(userID)
	if err != nil || !u.IsActive {
		return false
	}

	if rep.SubmittedBy == userID {
		return true
	}

	if rep.Visibility == "public" {
		return true
	}

	if rep.DepartmentID == nil {
		r := a.primaryRole(userID)
		return r.IsAdmin()
	}

	accessible, err := a.AccessibleDepartments(userID)
	if err != nil {
		a.logger.Error("failed to compute accessible departments", "error", err, "user_id", userID)
		return false
	}
	for _, id := range accessible {
		if id == *rep.DepartmentID {
			return true
		}
	}
	return false
}

// CanApproveReport requires the approve capability, department reachability,
// and that the approver is not the submitter.
func (a *AccessControl) CanApproveReport(userID int64, rep ReportInfo) error {
	if _, err := a.activeActor(userID); err != nil {
		return err
	}

	r := a.primaryRole(userID)
	if !r.Has(role.PermApprove) {
		return ErrNotAuthorized
	}

	if rep.SubmittedBy == userID {
		return ErrOwnReport
	}

	if rep.DepartmentID == nil {
		if r.IsAdmin() {
			return nil
		}
		return ErrNotAuthorized
	}

	accessible, err := a.AccessibleDepartments(userID)
	if err != nil {
		return err
	}
	for _, id := range accessible {
		if id == *rep.DepartmentID {
			return nil
		}
	}
	return ErrNotAuthorized
}

func (a *AccessControl) CanCreateReport(userID int64) error {
	return a.requireFlag(userID, role.PermCreateReport)
}

func (a *AccessControl) CanCreateCumulative(userID int64) error {
	return a.requireFlag(userID, role.PermCreateCumulative)
}

func (a *AccessControl) CanManageUsers(actorID int64) error {
	return a.requireFlag(actorID, role.PermManageUsers)
}

func (a *AccessControl) CanManageDepartments(actorID int64) error {
	return a.requireFlag(actorID, role.PermManageDepartments)
}

func (a *AccessControl) requireFlag(userID int64, flag string) error {
	if _, err := a.activeActor(userID); err != nil {
		return err
	}
	if !a.primaryRole(userID).Has(flag) {
		return ErrNotAuthorized
	}
	return nil
}

// ValidateReportCreation restricts non-admins to filing into their own
// department.
func (a *AccessControl) ValidateReportCreation(userID int64, departmentID *int64) error {
	if err := a.CanCreateReport(userID); err != nil {
		return err
	}

	r := a.primaryRole(userID)
	if r.IsAdmin() {
		return nil
	}

	if departmentID == nil {
		return nil
	}

	assignment, err := a.roles.PrimaryAssignment(userID)
	if err != nil {
		return ErrNotAuthorized
	}
	if assignment.DepartmentID == nil || *assignment.DepartmentID != *departmentID {
		return ErrNotAuthorized
	}
	return nil
}

// CanAssignRole: the assigner needs manage-users, may only grant strictly
// lower ranks than their own, and unless admin may only grant within their
// own department.
func (a *AccessControl) CanAssignRole(assignerID int64, targetLevel int, departmentID *int64) error {
	if _, err := a.activeActor(assignerID); err != nil {
		return err
	}

	assignment, err := a.roles.PrimaryAssignment(assignerID)
	if err != nil {
		return ErrNotAuthorized
	}
	r := assignment.Role

	if !r.Has(role.PermManageUsers) {
		return ErrNotAuthorized
	}

	if targetLevel >= r.Level {
		return role.ErrRankTooHigh
	}

	if r.IsAdmin() {
		return nil
	}

	if departmentID == nil || assignment.DepartmentID == nil || *departmentID != *assignment.DepartmentID {
		return role.ErrDepartmentScope
	}
	return nil
}

// CanGrantAdmin allows an existing admin to grant the admin role itself.
// The strict lower-rank rule in CanAssignRole would otherwise leave the
// top rank ungrantable.
func (a *AccessControl) CanGrantAdmin(assignerID int64) error {
	if _, err := a.activeActor(assignerID); err != nil {
		return err
	}
	if !a.primaryRole(assignerID).IsAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

// PrimaryDepartment resolves the department of the user's primary role
// assignment, nil when the user has none.
func (a *AccessControl) PrimaryDepartment(userID int64) *int64 {
	assignment, err := a.roles.PrimaryAssignment(userID)
	if err != nil {
		return nil
	}
	return assignment.DepartmentID
}

// ActorLevel exposes the actor's rank for callers that present rank-scoped
// listings, for example the web login gate.
func (a *AccessControl) ActorLevel(userID int64) int {
	r := a.primaryRole(userID)
	if r == nil {
		return 0
	}
	return r.Level
}
