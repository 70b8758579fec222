package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/role"
)

type RBACAuthorization struct {
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{logger: logger}
}

func (ra *RBACAuthorization) requireFlag(flag string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := internal.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.HasPermission(flag) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required_permission", flag,
					"user_permissions", user.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireApprove() func(http.Handler) http.Handler {
	return ra.requireFlag(role.PermApprove)
}

func (ra *RBACAuthorization) RequireManageUsers() func(http.Handler) http.Handler {
	return ra.requireFlag(role.PermManageUsers)
}

func (ra *RBACAuthorization) RequireManageDepartments() func(http.Handler) http.Handler {
	return ra.requireFlag(role.PermManageDepartments)
}

func (ra *RBACAuthorization) RequireCreateCumulative() func(http.Handler) http.Handler {
	return ra.requireFlag(role.PermCreateCumulative)
}

func (ra *RBACAuthorization) requireLevel(level int, label string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := internal.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if user.Level < level {
				ra.logger.WarnContext(r.Context(), "access denied: rank too low",
					"user_id", user.ID,
					"user_level", user.Level,
					"required", label)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireManager() func(http.Handler) http.Handler {
	return ra.requireLevel(role.LevelManager, "manager")
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.requireLevel(role.LevelAdmin, "admin")
}
