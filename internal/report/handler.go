package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/access"
	"github.com/frahmantamala/report-management/internal/textgen"
	"github.com/frahmantamala/report-management/internal/transport"
	"github.com/frahmantamala/report-management/pkg/logger"
)

type ServiceAPI interface {
	Create(userID int64, dto CreateReportDTO) (*Report, error)
	Submit(userID, reportID int64) (*Report, error)
	Get(userID, reportID int64) (*Report, error)
	ListAccessible(userID int64, limit int) ([]*Report, error)
	Search(userID int64, query string, limit int) ([]*Report, error)
	Approve(approverID, reportID int64, comment string) error
	Reject(approverID, reportID int64, comment string) error
	CreateCumulative(ctx context.Context, userID int64, dto CreateCumulativeDTO) (*Report, error)
	AddComment(userID, reportID int64, dto AddCommentDTO) (*Comment, error)
	Comments(userID, reportID int64) ([]*Comment, error)
	Approvals(userID, reportID int64) ([]*Approval, error)
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

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateReportDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateReport: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep, err := h.Service.Create(user.ID, dto)
	if err != nil {
		h.Logger.Error("CreateReport: service error", "error", err, "user_id", user.ID)
		h.writeReportError(w, err)
		return
	}

	h.Logger.Info("CreateReport: report created",
		"report_id", rep.ID,
		"user_id", user.ID,
		"status", rep.Status)

	h.WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	rep, err := h.Service.Get(user.ID, reportID)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if query := r.URL.Query().Get("q"); query != "" {
		reports, err := h.Service.Search(user.ID, query, limit)
		if err != nil {
			h.Logger.Error("ListReports: search error", "error", err, "user_id", user.ID)
			h.writeReportError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{"reports": reports, "limit": limit})
		return
	}

	reports, err := h.Service.ListAccessible(user.ID, limit)
	if err != nil {
		h.Logger.Error("ListReports: service error", "error", err, "user_id", user.ID)
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"reports": reports, "limit": limit})
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	rep, err := h.Service.Submit(user.ID, reportID)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) RejectReport(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto DecisionDTO
	if r.Body != nil {
		// The comment body is optional for approvals.
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	var err error
	if approve {
		err = h.Service.Approve(user.ID, reportID, dto.Comment)
	} else {
		err = h.Service.Reject(user.ID, reportID, dto.Comment)
	}
	if err != nil {
		h.Logger.Error("decision failed", "error", err, "report_id", reportID, "approver_id", user.ID)
		h.writeReportError(w, err)
		return
	}

	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) CreateCumulative(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateCumulativeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateCumulative: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep, err := h.Service.CreateCumulative(r.Context(), user.ID, dto)
	if err != nil {
		h.Logger.Error("CreateCumulative: service error", "error", err, "user_id", user.ID)

		var blocked *textgen.PolicyBlockError
		if errors.As(err, &blocked) {
			h.WriteError(w, http.StatusUnprocessableEntity, blocked.Message)
			return
		}
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto AddCommentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.Service.AddComment(user.ID, reportID, dto)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, comment)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	comments, err := h.Service.Comments(user.ID, reportID)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	approvals, err := h.Service.Approvals(user.ID, reportID)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"approvals": approvals})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid report ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrReportNotFound):
		h.WriteError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, ErrNotViewable):
		h.WriteError(w, http.StatusForbidden, "no access to this report")
	case errors.Is(err, ErrInvalidStatus):
		h.WriteError(w, http.StatusBadRequest, "report status does not allow this action")
	case errors.Is(err, ErrSourceNotReady):
		h.WriteError(w, http.StatusBadRequest, "all source reports must be approved")
	case errors.Is(err, ErrNoSources):
		h.WriteError(w, http.StatusBadRequest, "no source reports found")
	case errors.Is(err, access.ErrOwnReport):
		h.WriteError(w, http.StatusForbidden, "cannot decide on your own report")
	case errors.Is(err, access.ErrNotAuthorized), errors.Is(err, access.ErrInactiveUser):
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
