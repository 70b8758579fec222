package role

import (
	"encoding/json"
	"errors"
	"time"

	roleDatamodel "github.com/frahmantamala/report-management/internal/core/datamodel/role"
)

// Role catalog names, ordered by rank.
const (
	RoleEmployee     = "employee"
	RoleManager      = "manager"
	RoleUpperManager = "upper_manager"
	RoleAdmin        = "admin"
)

// Rank levels carried by the catalog rows. Assignment checks compare these,
// never the role names.
const (
	LevelEmployee     = 10
	LevelManager      = 50
	LevelUpperManager = 70
	LevelAdmin        = 99
)

// Capability flag names stored in the roles.permissions JSON object.
const (
	PermCreateReport       = "can_create_report"
	PermViewOwn            = "can_view_own"
	PermViewDepartment     = "can_view_department"
	PermViewSubdepartments = "can_view_subdepartments"
	PermViewAll            = "can_view_all"
	PermApprove            = "can_approve"
	PermCreateCumulative   = "can_create_cumulative"
	PermManageUsers        = "can_manage_users"
	PermManageDepartments  = "can_manage_departments"
)

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrAssignmentNotFound = errors.New("role assignment not found")
	ErrRankTooHigh        = errors.New("cannot assign a role of equal or higher rank")
	ErrDepartmentScope    = errors.New("cannot assign roles outside own department")
	ErrNotAllowed         = errors.New("not allowed to manage user roles")
	ErrAlreadyEnrolled    = errors.New("user already holds a role assignment")
)

type Role struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Level       int             `json:"level"`
	Permissions map[string]bool `json:"permissions"`
}

func (r *Role) Has(flag string) bool {
	return r != nil && r.Permissions[flag]
}

func (r *Role) IsAdmin() bool {
	return r != nil && r.Name == RoleAdmin
}

// Assignment is a user-role link resolved together with its catalog row.
type Assignment struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Role         Role      `json:"role"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	AssignedBy   *int64    `json:"assigned_by,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
	IsActive     bool      `json:"is_active"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// FromDatamodel decodes a catalog row, tolerating a broken permissions blob
// by treating it as an empty flag set.
func FromDatamodel(m *roleDatamodel.Role) Role {
	perms := map[string]bool{}
	if m.Permissions != "" {
		_ = json.Unmarshal([]byte(m.Permissions), &perms)
	}
	return Role{
		ID:          m.ID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Level:       m.Level,
		Permissions: perms,
	}
}

// EnabledFlags lists the capability flags that are set, used to populate the
// authenticated user context.
func (r *Role) EnabledFlags() []string {
	if r == nil {
		return nil
	}
	flags := make([]string, 0, len(r.Permissions))
	for name, on := range r.Permissions {
		if on {
			flags = append(flags, name)
		}
	}
	return flags
}

// DefaultCatalog returns the four fixed roles with their capability sets, as
// installed by the seeder.
func DefaultCatalog() []Role {
	return []Role{
		{
			Name:        RoleEmployee,
			DisplayName: "Employee",
			Level:       LevelEmployee,
			Permissions: map[string]bool{
				PermCreateReport: true,
				PermViewOwn:      true,
			},
		},
		{
			Name:        RoleManager,
			DisplayName: "Manager",
			Level:       LevelManager,
			Permissions: map[string]bool{
				PermCreateReport:   true,
				PermViewOwn:        true,
				PermViewDepartment: true,
				PermApprove:        true,
			},
		},
		{
			Name:        RoleUpperManager,
			DisplayName: "Upper Manager",
			Level:       LevelUpperManager,
			Permissions: map[string]bool{
				PermCreateReport:       true,
				PermViewOwn:            true,
				PermViewDepartment:     true,
				PermViewSubdepartments: true,
				PermApprove:            true,
				PermCreateCumulative:   true,
			},
		},
		{
			Name:        RoleAdmin,
			DisplayName: "Administrator",
			Level:       LevelAdmin,
			Permissions: map[string]bool{
				PermCreateReport:       true,
				PermViewOwn:            true,
				PermViewDepartment:     true,
				PermViewSubdepartments: true,
				PermViewAll:            true,
				PermApprove:            true,
				PermCreateCumulative:   true,
				PermManageUsers:        true,
				PermManageDepartments:  true,
			},
		},
	}
}
