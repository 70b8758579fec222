package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/report-management/internal/report"
)

func TestReportRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ReportRepository Suite")
}

type SQLiteReport struct {
	ID              int64      `gorm:"primaryKey"`
	Title           string     `gorm:"column:title;not null"`
	Content         string     `gorm:"column:content;not null"`
	ReportType      string     `gorm:"column:report_type;default:custom"`
	Status          string     `gorm:"column:status;default:draft"`
	Priority        string     `gorm:"column:priority;default:normal"`
	Visibility      string     `gorm:"column:visibility;default:department"`
	DepartmentID    *int64     `gorm:"column:department_id"`
	SubmittedBy     int64      `gorm:"column:submitted_by;not null"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at"`
	IsCumulative    bool       `gorm:"column:is_cumulative;default:false"`
	SourceReportIDs string     `gorm:"column:source_report_ids"`
	AggregationType string     `gorm:"column:aggregation_type"`
	PeriodStart     *time.Time `gorm:"column:period_start"`
	PeriodEnd       *time.Time `gorm:"column:period_end"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (SQLiteReport) TableName() string {
	return "reports"
}

type SQLiteReportApproval struct {
	ID         int64     `gorm:"primaryKey"`
	ReportID   int64     `gorm:"column:report_id;not null"`
	ApproverID int64     `gorm:"column:approver_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	Comment    string    `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (SQLiteReportApproval) TableName() string {
	return "report_approvals"
}

type SQLiteReportComment struct {
	ID              int64     `gorm:"primaryKey"`
	ReportID        int64     `gorm:"column:report_id;not null"`
	AuthorID        int64     `gorm:"column:author_id;not null"`
	ParentCommentID *int64    `gorm:"column:parent_comment_id"`
	Content         string    `gorm:"column:content;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (SQLiteReportComment) TableName() string {
	return "report_comments"
}

var _ = Describe("ReportRepository", func() {
	var (
		db   *gorm.DB
		repo report.Repository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteReport{}, &SQLiteReportApproval{}, &SQLiteReportComment{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewReportRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	newReport := func(submittedBy int64, deptID *int64, status string) *report.Report {
		return &report.Report{
			Title:        "Weekly status",
			Content:      "All systems nominal.",
			ReportType:   report.TypeWeekly,
			Status:       status,
			Priority:     "normal",
			Visibility:   report.VisibilityDepartment,
			DepartmentID: deptID,
			SubmittedBy:  submittedBy,
		}
	}

	Describe("Create", func() {
		It("should create a report and assign an id", func() {
			rep := newReport(1, nil, report.StatusDraft)

			err := repo.Create(rep)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.ID).To(BeNumerically(">", 0))
		})

		It("should round-trip the source report ids of a cumulative report", func() {
			rep := newReport(1, nil, report.StatusSubmitted)
			rep.IsCumulative = true
			rep.SourceReportIDs = []int64{4, 8, 15}
			rep.AggregationType = report.AggregationMonthly

			err := repo.Create(rep)
			Expect(err).NotTo(HaveOccurred())

			retrieved, err := repo.GetByID(rep.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.IsCumulative).To(BeTrue())
			Expect(retrieved.SourceReportIDs).To(Equal([]int64{4, 8, 15}))
			Expect(retrieved.AggregationType).To(Equal(report.AggregationMonthly))
		})
	})

	Describe("GetByID", func() {
		It("should return ErrReportNotFound for a non-existent id", func() {
			retrieved, err := repo.GetByID(99999)
			Expect(err).To(Equal(report.ErrReportNotFound))
			Expect(retrieved).To(BeNil())
		})
	})

	Describe("GetManyByIDs", func() {
		It("should fetch only the requested reports", func() {
			first := newReport(1, nil, report.StatusApproved)
			second := newReport(1, nil, report.StatusApproved)
			third := newReport(1, nil, report.StatusApproved)
			for _, rep := range []*report.Report{first, second, third} {
				Expect(repo.Create(rep)).To(Succeed())
			}

			found, err := repo.GetManyByIDs([]int64{first.ID, third.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
		})
	})

	Describe("ListByDepartments", func() {
		var deptA, deptB int64

		BeforeEach(func() {
			deptA, deptB = 1, 2

			submitted := newReport(1, &deptA, report.StatusSubmitted)
			draft := newReport(1, &deptA, report.StatusDraft)
			other := newReport(2, &deptB, report.StatusSubmitted)
			for _, rep := range []*report.Report{submitted, draft, other} {
				Expect(repo.Create(rep)).To(Succeed())
			}
		})

		It("should return non-draft reports of the given departments", func() {
			found, err := repo.ListByDepartments([]int64{deptA}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].Status).To(Equal(report.StatusSubmitted))
			Expect(*found[0].DepartmentID).To(Equal(deptA))
		})
	})

	Describe("ListApprovedByDepartmentsAndRange", func() {
		It("should return only approved in-range reports of the given departments", func() {
			d1, d2 := int64(1), int64(2)
			now := time.Now()
			weekAgo := now.AddDate(0, 0, -7)

			inRange := newReport(1, &d1, report.StatusApproved)
			t1 := now.AddDate(0, 0, -2)
			inRange.SubmittedAt = &t1
			Expect(repo.Create(inRange)).To(Succeed())

			tooOld := newReport(1, &d1, report.StatusApproved)
			t2 := now.AddDate(0, 0, -20)
			tooOld.SubmittedAt = &t2
			Expect(repo.Create(tooOld)).To(Succeed())

			unapproved := newReport(1, &d1, report.StatusSubmitted)
			unapproved.SubmittedAt = &t1
			Expect(repo.Create(unapproved)).To(Succeed())

			foreign := newReport(2, &d2, report.StatusApproved)
			foreign.SubmittedAt = &t1
			Expect(repo.Create(foreign)).To(Succeed())

			result, err := repo.ListApprovedByDepartmentsAndRange([]int64{d1}, weekAgo, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].ID).To(Equal(inRange.ID))
		})

		It("should order the gathered reports by submission time", func() {
			d := int64(1)
			now := time.Now()

			later := newReport(1, &d, report.StatusApproved)
			t1 := now.AddDate(0, 0, -1)
			later.SubmittedAt = &t1
			Expect(repo.Create(later)).To(Succeed())

			earlier := newReport(1, &d, report.StatusApproved)
			t2 := now.AddDate(0, 0, -5)
			earlier.SubmittedAt = &t2
			Expect(repo.Create(earlier)).To(Succeed())

			result, err := repo.ListApprovedByDepartmentsAndRange([]int64{d}, now.AddDate(0, 0, -7), now)

			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(2))
			Expect(result[0].ID).To(Equal(earlier.ID))
			Expect(result[1].ID).To(Equal(later.ID))
		})
	})

	Describe("ListByUser", func() {
		It("should include the user's own drafts", func() {
			Expect(repo.Create(newReport(7, nil, report.StatusDraft))).To(Succeed())
			Expect(repo.Create(newReport(7, nil, report.StatusSubmitted))).To(Succeed())
			Expect(repo.Create(newReport(8, nil, report.StatusSubmitted))).To(Succeed())

			found, err := repo.ListByUser(7, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			deptA := int64(1)

			mine := newReport(7, &deptA, report.StatusSubmitted)
			mine.Title = "Database incident postmortem"
			theirs := newReport(8, &deptA, report.StatusSubmitted)
			theirs.Title = "Database index rebuild"
			hidden := newReport(8, &deptA, report.StatusDraft)
			hidden.Title = "Database draft notes"
			for _, rep := range []*report.Report{mine, theirs, hidden} {
				Expect(repo.Create(rep)).To(Succeed())
			}
		})

		It("should match departments and own reports but not foreign drafts", func() {
			found, err := repo.Search([]int64{1}, 7, "Database", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
		})

		It("should fall back to own reports when no departments are visible", func() {
			found, err := repo.Search(nil, 7, "Database", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].SubmittedBy).To(Equal(int64(7)))
		})
	})

	Describe("UpdateStatus", func() {
		It("should update the status and submitted_at", func() {
			rep := newReport(1, nil, report.StatusDraft)
			Expect(repo.Create(rep)).To(Succeed())

			now := time.Now()
			err := repo.UpdateStatus(rep.ID, report.StatusSubmitted, &now)
			Expect(err).NotTo(HaveOccurred())

			retrieved, err := repo.GetByID(rep.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Status).To(Equal(report.StatusSubmitted))
			Expect(retrieved.SubmittedAt).NotTo(BeNil())
			Expect(retrieved.SubmittedAt.Unix()).To(Equal(now.Unix()))
		})

		It("should return ErrReportNotFound for a non-existent id", func() {
			now := time.Now()
			err := repo.UpdateStatus(99999, report.StatusApproved, &now)
			Expect(err).To(Equal(report.ErrReportNotFound))
		})
	})

	Describe("approvals", func() {
		It("should record and list decisions in order", func() {
			rep := newReport(1, nil, report.StatusSubmitted)
			Expect(repo.Create(rep)).To(Succeed())

			Expect(repo.AddApproval(&report.Approval{
				ReportID:   rep.ID,
				ApproverID: 50,
				Action:     report.ActionApproved,
				Comment:    "looks good",
			})).To(Succeed())

			approvals, err := repo.ApprovalsForReport(rep.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(approvals).To(HaveLen(1))
			Expect(approvals[0].ID).To(BeNumerically(">", 0))
			Expect(approvals[0].Action).To(Equal(report.ActionApproved))
			Expect(approvals[0].Comment).To(Equal("looks good"))
		})
	})

	Describe("comments", func() {
		It("should record threaded comments", func() {
			rep := newReport(1, nil, report.StatusSubmitted)
			Expect(repo.Create(rep)).To(Succeed())

			root := &report.Comment{ReportID: rep.ID, AuthorID: 7, Content: "First question"}
			Expect(repo.AddComment(root)).To(Succeed())

			reply := &report.Comment{ReportID: rep.ID, AuthorID: 1, ParentCommentID: &root.ID, Content: "An answer"}
			Expect(repo.AddComment(reply)).To(Succeed())

			comments, err := repo.CommentsForReport(rep.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(2))
			Expect(comments[1].ParentCommentID).To(HaveValue(Equal(root.ID)))
		})
	})

	Describe("CountByStatus", func() {
		It("should group the totals by status", func() {
			Expect(repo.Create(newReport(1, nil, report.StatusDraft))).To(Succeed())
			Expect(repo.Create(newReport(1, nil, report.StatusSubmitted))).To(Succeed())
			Expect(repo.Create(newReport(2, nil, report.StatusSubmitted))).To(Succeed())

			counts, err := repo.CountByStatus()
			Expect(err).NotTo(HaveOccurred())
			Expect(counts[report.StatusDraft]).To(Equal(int64(1)))
			Expect(counts[report.StatusSubmitted]).To(Equal(int64(2)))
		})
	})
})
