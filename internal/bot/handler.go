package bot

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/report-management/internal/transport"
	"github.com/frahmantamala/report-management/pkg/logger"
)

const secretTokenHeader = "X-Bot-Api-Secret-Token"

type Handler struct {
	*transport.BaseHandler
	router        *Router
	webhookSecret string
}

func NewHandler(router *Router, webhookSecret string) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:   transport.NewBaseHandler(lg),
		router:        router,
		webhookSecret: webhookSecret,
	}
}

// Webhook receives updates pushed by the chat platform. It always
// acknowledges with 200 once the update is parsed so the platform does
// not redeliver, processing failures surface as chat replies.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			h.Logger.Warn("webhook request with bad secret token", "remote_addr", r.RemoteAddr)
			h.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.Logger.Warn("failed to decode webhook update", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid update payload")
		return
	}

	h.router.HandleUpdate(r.Context(), &update)

	w.WriteHeader(http.StatusOK)
}
