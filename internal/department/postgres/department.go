package postgres

import (
	"time"

	departmentDatamodel "github.com/frahmantamala/report-management/internal/core/datamodel/department"
	"github.com/frahmantamala/report-management/internal/department"
	"gorm.io/gorm"
)

// DepartmentRepository implements the department.Repository interface using GORM
type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.Repository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(d *department.Department) error {
	m := toModel(d)
	if err := r.db.Create(&m).Error; err != nil {
		return err
	}
	*d = toDomain(&m)
	return nil
}

func (r *DepartmentRepository) GetByID(id int64) (*department.Department, error) {
	var m departmentDatamodel.Department
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, department.ErrDepartmentNotFound
		}
		return nil, err
	}
	d := toDomain(&m)
	return &d, nil
}

func (r *DepartmentRepository) ListActive() ([]*department.Department, error) {
	var models []departmentDatamodel.Department
	err := r.db.Where("is_active = ?", true).
		Order("level ASC, name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *DepartmentRepository) Children(parentID int64) ([]*department.Department, error) {
	var models []departmentDatamodel.Department
	err := r.db.Where("parent_department_id = ? AND is_active = ?", parentID, true).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *DepartmentRepository) Update(d *department.Department) error {
	d.UpdatedAt = time.Now()
	m := toModel(d)
	return r.db.Save(&m).Error
}

func (r *DepartmentRepository) SetActive(id int64, active bool) error {
	result := r.db.Model(&departmentDatamodel.Department{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return department.ErrDepartmentNotFound
	}
	return nil
}

func (r *DepartmentRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&departmentDatamodel.Department{}).Count(&count).Error
	return count, err
}

func toModel(d *department.Department) departmentDatamodel.Department {
	return departmentDatamodel.Department{
		ID:                 d.ID,
		Name:               d.Name,
		NameEn:             d.NameEn,
		ParentDepartmentID: d.ParentDepartmentID,
		Level:              d.Level,
		ManagerID:          d.ManagerID,
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func toDomain(m *departmentDatamodel.Department) department.Department {
	return department.Department{
		ID:                 m.ID,
		Name:               m.Name,
		NameEn:             m.NameEn,
		ParentDepartmentID: m.ParentDepartmentID,
		Level:              m.Level,
		ManagerID:          m.ManagerID,
		IsActive:           m.IsActive,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toDomainSlice(models []departmentDatamodel.Department) []*department.Department {
	out := make([]*department.Department, 0, len(models))
	for i := range models {
		d := toDomain(&models[i])
		out = append(out, &d)
	}
	return out
}
