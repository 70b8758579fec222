package department

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
	Create(actorID int64, dto CreateDepartmentDTO) (*Department, error)
	GetByID(id int64) (*Department, error)
	ListActive() ([]*Department, error)
	Update(actorID, id int64, dto UpdateDepartmentDTO) (*Department, error)
	Deactivate(actorID, id int64) error
	Hierarchy() ([]*Node, error)
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

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateDepartment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dept, err := h.Service.Create(user.ID, dto)
	if err != nil {
		h.Logger.Error("CreateDepartment: service error", "error", err, "user_id", user.ID)
		h.writeDepartmentError(w, err)
		return
	}

	h.Logger.Info("CreateDepartment: department created", "department_id", dept.ID, "user_id", user.ID)
	h.WriteJSON(w, http.StatusCreated, dept)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	deptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	dept, err := h.Service.GetByID(deptID)
	if err != nil {
		h.writeDepartmentError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dept)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("tree") == "true" {
		nodes, err := h.Service.Hierarchy()
		if err != nil {
			h.Logger.Error("ListDepartments: hierarchy error", "error", err)
			h.WriteError(w, http.StatusInternalServerError, "failed to load departments")
			return
		}
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": nodes})
		return
	}

	departments, err := h.Service.ListActive()
	if err != nil {
		h.Logger.Error("ListDepartments: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load departments")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": departments})
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto UpdateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dept, err := h.Service.Update(user.ID, deptID, dto)
	if err != nil {
		h.Logger.Error("UpdateDepartment: service error", "error", err, "department_id", deptID)
		h.writeDepartmentError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dept)
}

func (h *Handler) DeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	deptID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Deactivate(user.ID, deptID); err != nil {
		h.Logger.Error("DeactivateDepartment: service error", "error", err, "department_id", deptID)
		h.writeDepartmentError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid department ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeDepartmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDepartmentNotFound):
		h.WriteError(w, http.StatusNotFound, "department not found")
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
