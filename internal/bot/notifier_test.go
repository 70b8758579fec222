package bot_test

import (
	"context"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/report-management/internal/bot"
	"github.com/frahmantamala/report-management/internal/core/events"
	"github.com/frahmantamala/report-management/internal/report"
)

type mockReportStore struct {
	reports map[int64]*report.Report
}

func (m *mockReportStore) GetByID(id int64) (*report.Report, error) {
	rep, ok := m.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	return rep, nil
}

var _ = Describe("Notifier", func() {
	var (
		bus    *events.EventBus
		sender *mockSender
		store  *mockReportStore
		ctx    context.Context
	)

	BeforeEach(func() {
		sender = &mockSender{}
		store = &mockReportStore{reports: map[int64]*report.Report{
			42: {ID: 42, Title: "Weekly status", SubmittedBy: 10},
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		bot.NewNotifier(store, sender, logger).RegisterSubscribers(bus)
		ctx = context.Background()
	})

	It("should notify the submitter when their report is approved", func() {
		err := bus.PublishSync(ctx, events.NewReportDecisionEvent(events.EventReportApproved, 42, 50, "well done"))

		Expect(err).ToNot(HaveOccurred())
		Expect(sender.sent).To(HaveLen(1))
		Expect(sender.sent[0].ChatID).To(Equal(int64(10)))
		Expect(sender.sent[0].Text).To(ContainSubstring("approved"))
		Expect(sender.sent[0].Text).To(ContainSubstring("well done"))
	})

	It("should notify on rejection without a comment line when none was given", func() {
		err := bus.PublishSync(ctx, events.NewReportDecisionEvent(events.EventReportRejected, 42, 50, ""))

		Expect(err).ToNot(HaveOccurred())
		Expect(sender.sent).To(HaveLen(1))
		Expect(sender.sent[0].Text).To(ContainSubstring("rejected"))
		Expect(sender.sent[0].Text).ToNot(ContainSubstring("Comment:"))
	})

	It("should stay silent when the report cannot be resolved", func() {
		err := bus.PublishSync(ctx, events.NewReportDecisionEvent(events.EventReportApproved, 99, 50, ""))

		Expect(err).ToNot(HaveOccurred())
		Expect(sender.sent).To(BeEmpty())
	})
})
