package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserIDKey ctxKey = "userID"
	ContextUserKey   ctxKey = "user"
)

// SessionUser is the authenticated principal carried through request
// contexts. Permissions holds the enabled flag names of the primary role.
type SessionUser struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	DisplayName  string   `json:"display_name"`
	Level        int      `json:"level"`
	RoleName     string   `json:"role_name"`
	DepartmentID *int64   `json:"department_id,omitempty"`
	Permissions  []string `json:"permissions"`
}

// HasPermission reports whether the session carries the named flag.
func (u *SessionUser) HasPermission(name string) bool {
	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if userID, ok := ctx.Value(ContextUserIDKey).(int64); ok {
		return userID
	}
	if user, ok := ctx.Value(ContextUserKey).(*SessionUser); ok && user != nil {
		return user.ID
	}
	return 0
}

func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(ContextUserKey).(*SessionUser)
	return user, ok && user != nil
}

func ContextWithUser(ctx context.Context, user *SessionUser) context.Context {
	ctx = context.WithValue(ctx, ContextUserKey, user)
	if user != nil {
		ctx = context.WithValue(ctx, ContextUserIDKey, user.ID)
	}
	return ctx
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
