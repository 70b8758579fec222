package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/report-management/internal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPasswordForEmail(email string) (string, int64, error) {
	var row struct {
		ID           int64          `db:"id"`
		PasswordHash sql.NullString `db:"password_hash"`
	}

	query := `SELECT id, password_hash FROM users WHERE email = $1 AND is_active = true`
	if err := r.db.Get(&row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, fmt.Errorf("user not found")
		}
		return "", 0, err
	}
	if !row.PasswordHash.Valid || row.PasswordHash.String == "" {
		return "", 0, fmt.Errorf("user has no credentials")
	}
	return row.PasswordHash.String, row.ID, nil
}

// GetUserWithPermissions loads the principal and the flag set of its
// primary role. The primary role is the active assignment with the
// highest role level.
func (r *Repository) GetUserWithPermissions(userID int64) (*internal.SessionUser, error) {
	var row struct {
		ID        int64          `db:"id"`
		Email     sql.NullString `db:"email"`
		FirstName sql.NullString `db:"first_name"`
		Username  sql.NullString `db:"username"`
	}

	userQuery := `SELECT id, email, first_name, username FROM users WHERE id = $1 AND is_active = true`
	if err := r.db.Get(&row, userQuery, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}

	user := &internal.SessionUser{
		ID:    row.ID,
		Email: row.Email.String,
	}
	if row.FirstName.Valid && row.FirstName.String != "" {
		user.DisplayName = row.FirstName.String
	} else {
		user.DisplayName = row.Username.String
	}

	var roleRow struct {
		Name         string         `db:"name"`
		Level        int            `db:"level"`
		Permissions  sql.NullString `db:"permissions"`
		DepartmentID sql.NullInt64  `db:"department_id"`
	}

	roleQuery := `SELECT r.name, r.level, r.permissions, ur.department_id
	              FROM user_roles ur
	              JOIN roles r ON r.id = ur.role_id
	              WHERE ur.user_id = $1 AND ur.is_active = true
	              ORDER BY r.level DESC
	              LIMIT 1`
	if err := r.db.Get(&roleRow, roleQuery, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Registered but unassigned users have no panel permissions.
			return user, nil
		}
		return nil, err
	}

	user.RoleName = roleRow.Name
	user.Level = roleRow.Level
	if roleRow.DepartmentID.Valid {
		deptID := roleRow.DepartmentID.Int64
		user.DepartmentID = &deptID
	}
	user.Permissions = decodeFlags(roleRow.Permissions)

	return user, nil
}

func decodeFlags(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}

	var flags map[string]bool
	if err := json.Unmarshal([]byte(raw.String), &flags); err != nil {
		return nil
	}

	enabled := make([]string, 0, len(flags))
	for name, on := range flags {
		if on {
			enabled = append(enabled, name)
		}
	}
	return enabled
}
