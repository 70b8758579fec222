package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/transport"
	"github.com/frahmantamala/report-management/pkg/logger"
)

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (SessionToken, *internal.SessionUser, error)
	ValidateAccessToken(token string) (*Claims, error)
	GetUserWithPermissions(userID int64) (*internal.SessionUser, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.Service.Authenticate(dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err, "email", dto.Email)

		switch err {
		case internal.ErrInvalidCredentials:
			h.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		case internal.ErrUserInactive:
			h.WriteError(w, http.StatusUnauthorized, "user is inactive")
		case internal.ErrUnauthorizedAccess:
			h.WriteError(w, http.StatusForbidden, "admin panel requires manager rank or above")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}
		return
	}

	http.SetCookie(w, SessionCookie(token))
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
		"user":       user,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, ExpiredSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}

// sessionToken reads the session from the cookie, falling back to the
// Authorization header for API clients.
func (h *Handler) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return h.ExtractTokenFromHeader(r)
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("session token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			h.Logger.Warn("failed to parse user id from token claims", "value", claims.UserID, "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := h.Service.GetUserWithPermissions(userID)
		if err != nil {
			h.Logger.Error("failed to load session user", "user_id", userID, "error", err)
			h.WriteError(w, http.StatusUnauthorized, "user not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(internal.ContextWithUser(r.Context(), user)))
	})
}
