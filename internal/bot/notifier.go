package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/report-management/internal/core/events"
	"github.com/frahmantamala/report-management/internal/report"
)

// ReportStore is the read access the notifier needs to resolve a report's
// submitter from a decision event.
type ReportStore interface {
	GetByID(id int64) (*report.Report, error)
}

// Notifier pushes chat messages to report submitters when a decision is
// made on their report.
type Notifier struct {
	reports ReportStore
	sender  Sender
	logger  *slog.Logger
}

func NewNotifier(reports ReportStore, sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{reports: reports, sender: sender, logger: logger}
}

func (n *Notifier) RegisterSubscribers(bus *events.EventBus) {
	bus.Subscribe(events.EventReportApproved, n.onDecision("approved"))
	bus.Subscribe(events.EventReportRejected, n.onDecision("rejected"))
}

func (n *Notifier) onDecision(verb string) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		data, ok := event.Payload().(map[string]interface{})
		if !ok {
			return nil
		}
		reportID, ok := payloadInt64(data, "report_id")
		if !ok {
			return nil
		}

		rep, err := n.reports.GetByID(reportID)
		if err != nil {
			n.logger.Warn("cannot notify submitter, report lookup failed",
				"report_id", reportID, "error", err)
			return nil
		}

		text := fmt.Sprintf("Your report #%d \"%s\" was %s.", rep.ID, rep.Title, verb)
		if comment, _ := data["comment"].(string); comment != "" {
			text += "\nComment: " + comment
		}

		if err := n.sender.Enqueue(rep.SubmittedBy, text); err != nil {
			n.logger.Error("failed to queue decision notification",
				"report_id", reportID, "user_id", rep.SubmittedBy, "error", err)
		}
		return nil
	}
}

func payloadInt64(data map[string]interface{}, key string) (int64, bool) {
	switch v := data[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
