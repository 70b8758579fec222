package department

import (
	"errors"
	"time"
)

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrParentNotFound     = errors.New("parent department not found")
	ErrNotAllowed         = errors.New("not allowed to manage departments")
)

type Department struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	NameEn             string    `json:"name_en,omitempty"`
	ParentDepartmentID *int64    `json:"parent_department_id,omitempty"`
	Level              int       `json:"level"`
	ManagerID          *int64    `json:"manager_id,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Node is a department with its resolved children, used for hierarchy views.
type Node struct {
	Department
	Children []*Node `json:"children,omitempty"`
}
