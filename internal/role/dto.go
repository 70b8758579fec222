package role

// AssignRoleDTO is the transport shape for role assignment requests.
type AssignRoleDTO struct {
	UserID       int64  `json:"user_id"`
	RoleName     string `json:"role_name"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	IsPrimary    bool   `json:"is_primary"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d AssignRoleDTO) Validate() error {
	if d.UserID == 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.RoleName == "" {
		return ValidationError{Msg: "role_name is required"}
	}
	switch d.RoleName {
	case RoleEmployee, RoleManager, RoleUpperManager, RoleAdmin:
	default:
		return ValidationError{Msg: "unknown role name"}
	}
	return nil
}

type RevokeRoleDTO struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

func (d RevokeRoleDTO) Validate() error {
	if d.UserID == 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	if d.RoleID == 0 {
		return ValidationError{Msg: "role_id is required"}
	}
	return nil
}
