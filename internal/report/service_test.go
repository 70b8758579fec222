package report_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/report-management/internal/access"
	"github.com/frahmantamala/report-management/internal/report"
)

func TestReportService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Report Service Suite")
}

// Mock repository for testing
type mockReportRepository struct {
	reports     map[int64]*report.Report
	approvals   map[int64][]*report.Approval
	comments    map[int64][]*report.Comment
	createError error
	nextID      int64
}

func newMockReportRepository() *mockReportRepository {
	return &mockReportRepository{
		reports:   make(map[int64]*report.Report),
		approvals: make(map[int64][]*report.Approval),
		comments:  make(map[int64][]*report.Comment),
		nextID:    1,
	}
}

func (m *mockReportRepository) Create(rep *report.Report) error {
	if m.createError != nil {
		return m.createError
	}
	rep.ID = m.nextID
	m.nextID++
	rep.CreatedAt = time.Now()
	rep.UpdatedAt = time.Now()
	m.reports[rep.ID] = rep
	return nil
}

func (m *mockReportRepository) GetByID(id int64) (*report.Report, error) {
	rep, exists := m.reports[id]
	if !exists {
		return nil, errors.New("report not found")
	}
	return rep, nil
}

func (m *mockReportRepository) GetManyByIDs(ids []int64) ([]*report.Report, error) {
	var result []*report.Report
	for _, id := range ids {
		if rep, exists := m.reports[id]; exists {
			result = append(result, rep)
		}
	}
	return result, nil
}

func (m *mockReportRepository) ListByDepartments(departmentIDs []int64, limit int) ([]*report.Report, error) {
	wanted := make(map[int64]bool)
	for _, id := range departmentIDs {
		wanted[id] = true
	}
	var result []*report.Report
	for _, rep := range m.reports {
		if rep.DepartmentID != nil && wanted[*rep.DepartmentID] {
			result = append(result, rep)
		}
	}
	return result, nil
}

func (m *mockReportRepository) ListApprovedByDepartmentsAndRange(departmentIDs []int64, start, end time.Time) ([]*report.Report, error) {
	wanted := make(map[int64]bool)
	for _, id := range departmentIDs {
		wanted[id] = true
	}
	var result []*report.Report
	for _, rep := range m.reports {
		if rep.Status != report.StatusApproved || rep.DepartmentID == nil || !wanted[*rep.DepartmentID] {
			continue
		}
		if rep.SubmittedAt == nil || rep.SubmittedAt.Before(start) || rep.SubmittedAt.After(end) {
			continue
		}
		result = append(result, rep)
	}
	return result, nil
}

func (m *mockReportRepository) ListByUser(userID int64, limit int) ([]*report.Report, error) {
	var result []*report.Report
	for _, rep := range m.reports {
		if rep.SubmittedBy == userID {
			result = append(result, rep)
		}
	}
	return result, nil
}

func (m *mockReportRepository) Search(departmentIDs []int64, userID int64, query string, limit int) ([]*report.Report, error) {
	return nil, nil
}

func (m *mockReportRepository) UpdateStatus(id int64, status string, submittedAt *time.Time) error {
	if rep, exists := m.reports[id]; exists {
		rep.Status = status
		rep.SubmittedAt = submittedAt
	}
	return nil
}

func (m *mockReportRepository) AddApproval(a *report.Approval) error {
	a.ID = m.nextID
	m.nextID++
	m.approvals[a.ReportID] = append(m.approvals[a.ReportID], a)
	return nil
}

func (m *mockReportRepository) ApprovalsForReport(reportID int64) ([]*report.Approval, error) {
	return m.approvals[reportID], nil
}

func (m *mockReportRepository) AddComment(c *report.Comment) error {
	c.ID = m.nextID
	m.nextID++
	m.comments[c.ReportID] = append(m.comments[c.ReportID], c)
	return nil
}

func (m *mockReportRepository) CommentsForReport(reportID int64) ([]*report.Comment, error) {
	return m.comments[reportID], nil
}

func (m *mockReportRepository) CountByStatus() (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, rep := range m.reports {
		counts[rep.Status]++
	}
	return counts, nil
}

// Mock access checker for testing
type mockAccessChecker struct {
	viewable       bool
	approveError   error
	creationError  error
	cumulativeErr  error
	departmentIDs  []int64
	departmentsErr error
	primaryDept    *int64
}

func newMockAccessChecker() *mockAccessChecker {
	return &mockAccessChecker{viewable: true}
}

func (m *mockAccessChecker) CanViewReport(userID int64, rep access.ReportInfo) bool {
	return m.viewable
}

func (m *mockAccessChecker) CanApproveReport(userID int64, rep access.ReportInfo) error {
	if userID == rep.SubmittedBy {
		return access.ErrOwnReport
	}
	return m.approveError
}

func (m *mockAccessChecker) ValidateReportCreation(userID int64, departmentID *int64) error {
	return m.creationError
}

func (m *mockAccessChecker) CanCreateCumulative(userID int64) error {
	return m.cumulativeErr
}

func (m *mockAccessChecker) AccessibleDepartments(userID int64) ([]int64, error) {
	return m.departmentIDs, m.departmentsErr
}

func (m *mockAccessChecker) PrimaryDepartment(userID int64) *int64 {
	return m.primaryDept
}

// Mock summarizer for testing
type mockSummarizer struct {
	output string
	err    error
	calls  int
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

var _ = Describe("ReportService", func() {
	var (
		service    *report.Service
		mockRepo   *mockReportRepository
		checker    *mockAccessChecker
		summarizer *mockSummarizer
		logger     *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = newMockReportRepository()
		checker = newMockAccessChecker()
		summarizer = &mockSummarizer{output: "synthesized summary"}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = report.NewService(mockRepo, checker, summarizer, nil, logger)
	})

	Describe("Create", func() {
		Context("when creating without submit_now", func() {
			It("should leave the report in draft status", func() {
				result, err := service.Create(10, report.CreateReportDTO{
					Title:   "Weekly status",
					Content: "All systems nominal",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Status).To(Equal(report.StatusDraft))
				Expect(result.SubmittedAt).To(BeNil())
				Expect(result.ReportType).To(Equal(report.TypeCustom))
			})
		})

		Context("when creating with submit_now", func() {
			It("should create the report already submitted", func() {
				result, err := service.Create(10, report.CreateReportDTO{
					Title:     "Weekly status",
					Content:   "All systems nominal",
					SubmitNow: true,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Status).To(Equal(report.StatusSubmitted))
				Expect(result.SubmittedAt).ToNot(BeNil())
			})
		})

		Context("when the title is too short", func() {
			It("should reject the report without persisting", func() {
				_, err := service.Create(10, report.CreateReportDTO{
					Title:   "ab",
					Content: "content",
				})

				Expect(err).To(HaveOccurred())
				Expect(mockRepo.reports).To(BeEmpty())
			})
		})

		Context("when no department is given", func() {
			It("should fall back to the submitter's primary department", func() {
				d := int64(2)
				checker.primaryDept = &d

				result, err := service.Create(10, report.CreateReportDTO{
					Title:     "Weekly status",
					Content:   "body",
					SubmitNow: true,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.DepartmentID).ToNot(BeNil())
				Expect(*result.DepartmentID).To(Equal(int64(2)))
			})

			It("should make the report reachable through the department listing", func() {
				d := int64(2)
				checker.primaryDept = &d
				checker.departmentIDs = []int64{d}

				rep, err := service.Create(10, report.CreateReportDTO{
					Title:     "Weekly status",
					Content:   "body",
					SubmitNow: true,
				})
				Expect(err).ToNot(HaveOccurred())

				listed, err := service.ListAccessible(20, 20)
				Expect(err).ToNot(HaveOccurred())
				Expect(listed).To(HaveLen(1))
				Expect(listed[0].ID).To(Equal(rep.ID))
			})

			It("should keep an explicit department untouched", func() {
				primary, explicit := int64(2), int64(3)
				checker.primaryDept = &primary

				result, err := service.Create(10, report.CreateReportDTO{
					Title:        "Weekly status",
					Content:      "body",
					DepartmentID: &explicit,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(*result.DepartmentID).To(Equal(int64(3)))
			})
		})

		Context("when access control denies creation", func() {
			It("should propagate the denial", func() {
				checker.creationError = access.ErrNotAuthorized

				_, err := service.Create(10, report.CreateReportDTO{
					Title:   "Weekly status",
					Content: "content",
				})

				Expect(err).To(MatchError(access.ErrNotAuthorized))
			})
		})
	})

	Describe("Submit", func() {
		It("should move an own draft to submitted", func() {
			rep, _ := service.Create(10, report.CreateReportDTO{Title: "Draft", Content: "body"})

			result, err := service.Submit(10, rep.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(report.StatusSubmitted))
		})

		It("should refuse to submit another user's draft", func() {
			rep, _ := service.Create(10, report.CreateReportDTO{Title: "Draft", Content: "body"})

			_, err := service.Submit(11, rep.ID)

			Expect(err).To(MatchError(access.ErrNotAuthorized))
		})

		It("should refuse to submit twice", func() {
			rep, _ := service.Create(10, report.CreateReportDTO{Title: "Draft", Content: "body", SubmitNow: true})

			_, err := service.Submit(10, rep.ID)

			Expect(err).To(MatchError(report.ErrInvalidStatus))
		})
	})

	Describe("Approve and Reject", func() {
		var submitted *report.Report

		BeforeEach(func() {
			submitted, _ = service.Create(10, report.CreateReportDTO{
				Title:     "Submitted",
				Content:   "body",
				SubmitNow: true,
			})
		})

		It("should record an approval with the decision action", func() {
			err := service.Approve(20, submitted.ID, "looks good")

			Expect(err).ToNot(HaveOccurred())
			Expect(submitted.Status).To(Equal(report.StatusApproved))
			Expect(mockRepo.approvals[submitted.ID]).To(HaveLen(1))
			Expect(mockRepo.approvals[submitted.ID][0].Action).To(Equal(report.ActionApproved))
			Expect(mockRepo.approvals[submitted.ID][0].Comment).To(Equal("looks good"))
		})

		It("should record a rejection", func() {
			err := service.Reject(20, submitted.ID, "needs numbers")

			Expect(err).ToNot(HaveOccurred())
			Expect(submitted.Status).To(Equal(report.StatusRejected))
		})

		It("should refuse a decision on the approver's own report", func() {
			err := service.Approve(10, submitted.ID, "")

			Expect(err).To(MatchError(access.ErrOwnReport))
		})

		It("should refuse to decide a draft", func() {
			draft, _ := service.Create(10, report.CreateReportDTO{Title: "Draft", Content: "body"})

			err := service.Approve(20, draft.ID, "")

			Expect(err).To(MatchError(report.ErrInvalidStatus))
		})

		It("should refuse a second decision on the same report", func() {
			Expect(service.Approve(20, submitted.ID, "")).To(Succeed())

			err := service.Reject(21, submitted.ID, "")

			Expect(err).To(MatchError(report.ErrInvalidStatus))
		})
	})

	Describe("CreateCumulative", func() {
		var sourceIDs []int64

		BeforeEach(func() {
			sourceIDs = nil
			for i := 0; i < 2; i++ {
				rep, _ := service.Create(10, report.CreateReportDTO{
					Title:     "Source report",
					Content:   "source content",
					SubmitNow: true,
				})
				Expect(service.Approve(20, rep.ID, "")).To(Succeed())
				sourceIDs = append(sourceIDs, rep.ID)
			}
		})

		It("should synthesize content from the summarizer and persist as submitted", func() {
			result, err := service.CreateCumulative(context.Background(), 20, report.CreateCumulativeDTO{
				Title:           "Monthly rollup",
				SourceReportIDs: sourceIDs,
				AggregationType: report.AggregationMonthly,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Content).To(Equal("synthesized summary"))
			Expect(result.Status).To(Equal(report.StatusSubmitted))
			Expect(result.IsCumulative).To(BeTrue())
			Expect(result.ReportType).To(Equal(report.TypeCumulative))
			Expect(summarizer.calls).To(Equal(1))
		})

		It("should refuse unapproved sources", func() {
			draft, _ := service.Create(10, report.CreateReportDTO{Title: "Draft source", Content: "body"})

			_, err := service.CreateCumulative(context.Background(), 20, report.CreateCumulativeDTO{
				Title:           "Monthly rollup",
				SourceReportIDs: append(sourceIDs, draft.ID),
				AggregationType: report.AggregationMonthly,
			})

			Expect(err).To(MatchError(report.ErrSourceNotReady))
		})

		It("should refuse missing sources", func() {
			_, err := service.CreateCumulative(context.Background(), 20, report.CreateCumulativeDTO{
				Title:           "Monthly rollup",
				SourceReportIDs: []int64{9999},
				AggregationType: report.AggregationMonthly,
			})

			Expect(err).To(MatchError(report.ErrReportNotFound))
		})

		It("should persist nothing when the summarizer fails", func() {
			summarizer.err = errors.New("generation service unavailable")
			before := len(mockRepo.reports)

			_, err := service.CreateCumulative(context.Background(), 20, report.CreateCumulativeDTO{
				Title:           "Monthly rollup",
				SourceReportIDs: sourceIDs,
				AggregationType: report.AggregationMonthly,
			})

			Expect(err).To(HaveOccurred())
			Expect(mockRepo.reports).To(HaveLen(before))
		})

		It("should require the cumulative permission", func() {
			checker.cumulativeErr = access.ErrNotAuthorized

			_, err := service.CreateCumulative(context.Background(), 20, report.CreateCumulativeDTO{
				Title:           "Monthly rollup",
				SourceReportIDs: sourceIDs,
				AggregationType: report.AggregationMonthly,
			})

			Expect(err).To(MatchError(access.ErrNotAuthorized))
			Expect(summarizer.calls).To(BeZero())
		})
	})

	Describe("CreateCumulativeForPeriod", func() {
		var deptID int64

		BeforeEach(func() {
			deptID = 2
			checker.departmentIDs = []int64{deptID}
			checker.primaryDept = &deptID

			for i := 0; i < 2; i++ {
				rep, err := service.Create(10, report.CreateReportDTO{
					Title:     "Weekly field report",
					Content:   "observations",
					SubmitNow: true,
				})
				Expect(err).ToNot(HaveOccurred())
				Expect(service.Approve(20, rep.ID, "")).To(Succeed())
			}
		})

		It("should gather the period's approved reports without explicit ids", func() {
			result, err := service.CreateCumulativeForPeriod(context.Background(), 20, "Weekly rollup", report.AggregationWeekly)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.SourceReportIDs).To(HaveLen(2))
			Expect(result.Content).To(Equal("synthesized summary"))
			Expect(result.PeriodStart).ToNot(BeNil())
			Expect(result.PeriodEnd).ToNot(BeNil())
			Expect(*result.DepartmentID).To(Equal(deptID))
		})

		It("should default the title from the period", func() {
			result, err := service.CreateCumulativeForPeriod(context.Background(), 20, "", report.AggregationMonthly)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Title).To(ContainSubstring("monthly"))
		})

		It("should skip unapproved and out-of-period reports", func() {
			_, err := service.Create(10, report.CreateReportDTO{
				Title: "Still a draft", Content: "body",
			})
			Expect(err).ToNot(HaveOccurred())

			old := time.Now().AddDate(0, 0, -45)
			stale := &report.Report{
				Title: "Old report", Content: "body", ReportType: report.TypeCustom,
				Status: report.StatusApproved, DepartmentID: &deptID,
				SubmittedBy: 10, SubmittedAt: &old,
			}
			Expect(mockRepo.Create(stale)).To(Succeed())

			result, err := service.CreateCumulativeForPeriod(context.Background(), 20, "Weekly rollup", report.AggregationWeekly)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.SourceReportIDs).To(HaveLen(2))
			Expect(result.SourceReportIDs).ToNot(ContainElement(stale.ID))
		})

		It("should report when the period holds no approved reports", func() {
			checker.departmentIDs = []int64{99}

			_, err := service.CreateCumulativeForPeriod(context.Background(), 20, "Rollup", report.AggregationWeekly)

			Expect(err).To(MatchError(report.ErrNoSources))
		})

		It("should reject unknown periods", func() {
			_, err := service.CreateCumulativeForPeriod(context.Background(), 20, "Rollup", "fortnightly")

			Expect(err).To(HaveOccurred())
			Expect(summarizer.calls).To(BeZero())
		})
	})

	Describe("Comments", func() {
		It("should attach and list comments on a viewable report", func() {
			rep, _ := service.Create(10, report.CreateReportDTO{Title: "Report", Content: "body", SubmitNow: true})

			comment, err := service.AddComment(20, rep.ID, report.AddCommentDTO{Content: "please add metrics"})
			Expect(err).ToNot(HaveOccurred())
			Expect(comment.ID).To(BeNumerically(">", 0))

			comments, err := service.Comments(20, rep.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(comments).To(HaveLen(1))
		})

		It("should deny comments on an invisible report", func() {
			rep, _ := service.Create(10, report.CreateReportDTO{Title: "Report", Content: "body"})
			checker.viewable = false

			_, err := service.AddComment(20, rep.ID, report.AddCommentDTO{Content: "hello"})

			Expect(err).To(MatchError(access.ErrNotAuthorized))
		})
	})

	Describe("ListAccessible", func() {
		It("should merge department reports with own reports without duplicates", func() {
			deptID := int64(5)
			checker.departmentIDs = []int64{deptID}

			mine, _ := service.Create(10, report.CreateReportDTO{
				Title: "Mine in dept", Content: "body", DepartmentID: &deptID, SubmitNow: true,
			})
			_, _ = service.Create(11, report.CreateReportDTO{
				Title: "Colleague's", Content: "body", DepartmentID: &deptID, SubmitNow: true,
			})

			result, err := service.ListAccessible(10, 20)

			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(HaveLen(2))
			ids := []int64{result[0].ID, result[1].ID}
			Expect(ids).To(ContainElement(mine.ID))
		})
	})
})
