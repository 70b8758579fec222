package postgres

import (
	"time"

	roleDatamodel "github.com/frahmantamala/report-management/internal/core/datamodel/role"
	"github.com/frahmantamala/report-management/internal/role"
	"gorm.io/gorm"
)

// RoleRepository implements the role.Repository interface using GORM
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.Repository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetRoleByName(name string) (*role.Role, error) {
	var m roleDatamodel.Role
	err := r.db.Where("name = ?", name).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, role.ErrRoleNotFound
		}
		return nil, err
	}
	d := role.FromDatamodel(&m)
	return &d, nil
}

func (r *RoleRepository) GetRoleByID(id int64) (*role.Role, error) {
	var m roleDatamodel.Role
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, role.ErrRoleNotFound
		}
		return nil, err
	}
	d := role.FromDatamodel(&m)
	return &d, nil
}

func (r *RoleRepository) ListRoles() ([]role.Role, error) {
	var models []roleDatamodel.Role
	if err := r.db.Order("level ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]role.Role, 0, len(models))
	for i := range models {
		roles = append(roles, role.FromDatamodel(&models[i]))
	}
	return roles, nil
}

// PrimaryAssignment returns the active assignment carrying the highest role
// rank for the user.
func (r *RoleRepository) PrimaryAssignment(userID int64) (*role.Assignment, error) {
	var links []roleDatamodel.UserRole
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&links).Error
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, role.ErrAssignmentNotFound
	}

	var best *role.Assignment
	for i := range links {
		ri, err := r.GetRoleByID(links[i].RoleID)
		if err != nil {
			if err == role.ErrRoleNotFound {
				continue
			}
			return nil, err
		}
		a := toAssignment(&links[i], *ri)
		if best == nil || a.Role.Level > best.Role.Level {
			best = &a
		}
	}
	if best == nil {
		return nil, role.ErrAssignmentNotFound
	}
	return best, nil
}

func (r *RoleRepository) AssignmentsForUser(userID int64) ([]role.Assignment, error) {
	var links []roleDatamodel.UserRole
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("assigned_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	assignments := make([]role.Assignment, 0, len(links))
	for i := range links {
		ri, err := r.GetRoleByID(links[i].RoleID)
		if err != nil {
			if err == role.ErrRoleNotFound {
				continue
			}
			return nil, err
		}
		assignments = append(assignments, toAssignment(&links[i], *ri))
	}
	return assignments, nil
}

// Upsert creates the assignment, or reactivates and restamps an existing row
// for the same user/role/department instead of failing on the unique index.
func (r *RoleRepository) Upsert(userID, roleID int64, departmentID *int64, assignedBy int64, isPrimary bool) (*role.Assignment, error) {
	query := r.db.Where("user_id = ? AND role_id = ?", userID, roleID)
	if departmentID != nil {
		query = query.Where("department_id = ?", *departmentID)
	} else {
		query = query.Where("department_id IS NULL")
	}

	var existing roleDatamodel.UserRole
	err := query.First(&existing).Error
	switch {
	case err == nil:
		existing.IsActive = true
		existing.IsPrimary = isPrimary
		existing.AssignedBy = &assignedBy
		existing.AssignedAt = time.Now()
		if err := r.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return r.resolve(&existing)
	case err == gorm.ErrRecordNotFound:
		link := roleDatamodel.UserRole{
			UserID:       userID,
			RoleID:       roleID,
			DepartmentID: departmentID,
			AssignedBy:   &assignedBy,
			IsPrimary:    isPrimary,
			IsActive:     true,
			AssignedAt:   time.Now(),
		}
		if err := r.db.Create(&link).Error; err != nil {
			return nil, err
		}
		return r.resolve(&link)
	default:
		return nil, err
	}
}

func (r *RoleRepository) ClearPrimary(userID int64) error {
	return r.db.Model(&roleDatamodel.UserRole{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}

func (r *RoleRepository) Revoke(userID, roleID int64) error {
	result := r.db.Model(&roleDatamodel.UserRole{}).
		Where("user_id = ? AND role_id = ? AND is_active = ?", userID, roleID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"is_primary": false,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return role.ErrAssignmentNotFound
	}
	return nil
}

func (r *RoleRepository) resolve(link *roleDatamodel.UserRole) (*role.Assignment, error) {
	ri, err := r.GetRoleByID(link.RoleID)
	if err != nil {
		return nil, err
	}
	a := toAssignment(link, *ri)
	return &a, nil
}

func toAssignment(link *roleDatamodel.UserRole, ri role.Role) role.Assignment {
	return role.Assignment{
		ID:           link.ID,
		UserID:       link.UserID,
		Role:         ri,
		DepartmentID: link.DepartmentID,
		AssignedBy:   link.AssignedBy,
		IsPrimary:    link.IsPrimary,
		IsActive:     link.IsActive,
		AssignedAt:   link.AssignedAt,
	}
}
