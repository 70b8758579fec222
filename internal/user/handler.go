package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/transport"
	"github.com/frahmantamala/report-management/pkg/logger"
)

type ServiceAPI interface {
	GetByID(id int64) (*User, error)
	List(actorID int64, limit, offset int) ([]*User, error)
	Deactivate(actorID, userID int64) error
	Activate(actorID, userID int64) error
	SetCredentials(actorID int64, dto SetCredentialsDTO) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	users, err := h.Service.List(actor.ID, limit, offset)
	if err != nil {
		h.Logger.Error("ListUsers: service error", "error", err, "actor_id", actor.ID)
		h.writeUserError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetByID(userID)
	if err != nil {
		h.writeUserError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, false)
}

func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, true)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, active bool) {
	actor, ok := internal.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var err error
	if active {
		err = h.Service.Activate(actor.ID, userID)
	} else {
		err = h.Service.Deactivate(actor.ID, userID)
	}
	if err != nil {
		h.Logger.Error("user status change failed", "error", err, "user_id", userID, "actor_id", actor.ID)
		h.writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto SetCredentialsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dto.UserID = userID

	if err := h.Service.SetCredentials(actor.ID, dto); err != nil {
		h.Logger.Error("SetCredentials: service error", "error", err, "user_id", userID, "actor_id", actor.ID)
		h.writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		h.WriteError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, internal.ErrNotAuthorized), errors.Is(err, internal.ErrUserInactive):
		h.WriteError(w, http.StatusForbidden, "insufficient permissions")
	default:
		var validation ValidationError
		if errors.As(err, &validation) {
			h.WriteError(w, http.StatusBadRequest, validation.Error())
			return
		}
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
