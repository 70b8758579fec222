package department

import "time"

type Department struct {
	ID                 int64     `gorm:"primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	NameEn             string    `gorm:"column:name_en"`
	ParentDepartmentID *int64    `gorm:"column:parent_department_id;index"`
	Level              int       `gorm:"column:level;default:0"`
	ManagerID          *int64    `gorm:"column:manager_id"`
	IsActive           bool      `gorm:"column:is_active;default:true"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Department) TableName() string {
	return "departments"
}
