package role

import "time"

// Role rows are a fixed catalog installed by the seeder; Permissions holds a
// JSON object of boolean capability flags.
type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	DisplayName string    `gorm:"column:display_name"`
	Level       int       `gorm:"column:level;not null"`
	Permissions string    `gorm:"column:permissions;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Role) TableName() string {
	return "roles"
}

type UserRole struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"column:user_id;not null;uniqueIndex:idx_user_role_dept"`
	RoleID       int64     `gorm:"column:role_id;not null;uniqueIndex:idx_user_role_dept"`
	DepartmentID *int64    `gorm:"column:department_id;uniqueIndex:idx_user_role_dept"`
	AssignedBy   *int64    `gorm:"column:assigned_by"`
	IsPrimary    bool      `gorm:"column:is_primary;default:false"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	AssignedAt   time.Time `gorm:"column:assigned_at;autoCreateTime"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
