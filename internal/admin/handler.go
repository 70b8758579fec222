package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/audit"
	"github.com/frahmantamala/report-management/internal/transport"
	"github.com/frahmantamala/report-management/pkg/logger"
)

type ServiceAPI interface {
	Snapshot() (*Stats, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Audit   *audit.Service
}

func NewHandler(service ServiceAPI, auditSvc *audit.Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Audit:       auditSvc,
	}
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := internal.UserFromContext(r.Context()); !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.Service.Snapshot()
	if err != nil {
		h.Logger.Error("GetStats: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := internal.UserFromContext(r.Context()); !ok {
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

	entries, err := h.Audit.Recent(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("GetAuditLog: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
