package postgres

import (
	userDatamodel "github.com/frahmantamala/report-management/internal/core/datamodel/user"
	"github.com/frahmantamala/report-management/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the user or refreshes identity fields on conflict. The
// active flag and credentials are deliberately left untouched on update so a
// deactivated user cannot reactivate themselves by messaging the bot.
func (r *UserRepository) Upsert(u *user.User) error {
	m := userDatamodel.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "phone", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return err
	}

	var saved userDatamodel.User
	if err := r.db.Where("id = ?", u.ID).First(&saved).Error; err != nil {
		return err
	}
	*u = toDomain(&saved)
	return nil
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var m userDatamodel.User
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	u := toDomain(&m)
	return &u, nil
}

func (r *UserRepository) List(limit, offset int) ([]*user.User, error) {
	var models []userDatamodel.User
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(models))
	for i := range models {
		u := toDomain(&models[i])
		users = append(users, &u)
	}
	return users, nil
}

func (r *UserRepository) ListActiveByRole(roleName string) ([]*user.User, error) {
	var models []userDatamodel.User
	err := r.db.
		Joins("JOIN user_roles ur ON ur.user_id = users.id AND ur.is_active = ?", true).
		Joins("JOIN roles ro ON ro.id = ur.role_id AND ro.name = ?", roleName).
		Where("users.is_active = ?", true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(models))
	for i := range models {
		u := toDomain(&models[i])
		users = append(users, &u)
	}
	return users, nil
}

func (r *UserRepository) SetActive(id int64, active bool) error {
	result := r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetCredentials(id int64, email, passwordHash string) error {
	result := r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email":         email,
			"password_hash": passwordHash,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountUsers() (int64, int64, error) {
	var total int64
	if err := r.db.Model(&userDatamodel.User{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var active int64
	if err := r.db.Model(&userDatamodel.User{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

func toDomain(m *userDatamodel.User) user.User {
	return user.User{
		ID:        m.ID,
		Username:  m.Username,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
		Phone:     m.Phone,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
