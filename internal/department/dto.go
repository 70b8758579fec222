package department

// CreateDepartmentDTO carries a bilingual department name and an optional
// parent link.
type CreateDepartmentDTO struct {
	Name               string `json:"name"`
	NameEn             string `json:"name_en"`
	ParentDepartmentID *int64 `json:"parent_department_id,omitempty"`
	ManagerID          *int64 `json:"manager_id,omitempty"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d CreateDepartmentDTO) Validate() error {
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	if len(d.Name) > 120 {
		return ValidationError{Msg: "name must not exceed 120 characters"}
	}
	if len(d.NameEn) > 120 {
		return ValidationError{Msg: "name_en must not exceed 120 characters"}
	}
	return nil
}

type UpdateDepartmentDTO struct {
	Name      *string `json:"name,omitempty"`
	NameEn    *string `json:"name_en,omitempty"`
	ManagerID *int64  `json:"manager_id,omitempty"`
}

func (d UpdateDepartmentDTO) Validate() error {
	if d.Name != nil && *d.Name == "" {
		return ValidationError{Msg: "name cannot be empty"}
	}
	return nil
}
