package role

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
	Assign(assignerID int64, dto AssignRoleDTO) (*Assignment, error)
	Revoke(assignerID int64, dto RevokeRoleDTO) error
	AssignmentsForUser(userID int64) ([]Assignment, error)
	Catalog() ([]Role, error)
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

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.Catalog()
	if err != nil {
		h.Logger.Error("ListRoles: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load roles")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"roles": roles})
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.Service.Assign(actor.ID, dto)
	if err != nil {
		h.Logger.Error("AssignRole: service error", "error", err, "actor_id", actor.ID, "target_id", dto.UserID)
		h.writeRoleError(w, err)
		return
	}

	h.Logger.Info("AssignRole: role assigned",
		"actor_id", actor.ID,
		"target_id", dto.UserID,
		"role", dto.RoleName)

	h.WriteJSON(w, http.StatusCreated, assignment)
}

func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.UserFromContext(r.Context())
	if !ok || actor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto RevokeRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.Revoke(actor.ID, dto); err != nil {
		h.Logger.Error("RevokeRole: service error", "error", err, "actor_id", actor.ID, "target_id", dto.UserID)
		h.writeRoleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UserAssignments(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	assignments, err := h.Service.AssignmentsForUser(userID)
	if err != nil {
		h.writeRoleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"assignments": assignments})
}

func (h *Handler) writeRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoleNotFound):
		h.WriteError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, ErrAssignmentNotFound):
		h.WriteError(w, http.StatusNotFound, "role assignment not found")
	case errors.Is(err, ErrRankTooHigh):
		h.WriteError(w, http.StatusForbidden, "can only assign roles below your own rank")
	case errors.Is(err, ErrDepartmentScope):
		h.WriteError(w, http.StatusForbidden, "can only assign roles within your own department")
	case errors.Is(err, ErrNotAllowed), errors.Is(err, internal.ErrNotAuthorized), errors.Is(err, internal.ErrUserInactive):
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
