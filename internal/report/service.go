package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/report-management/internal/access"
	"github.com/frahmantamala/report-management/internal/core/events"
)

// Repository defines the data access methods for reports, approvals and
// comments.
type Repository interface {
	Create(rep *Report) error
	GetByID(id int64) (*Report, error)
	GetManyByIDs(ids []int64) ([]*Report, error)
	ListByDepartments(departmentIDs []int64, limit int) ([]*Report, error)
	ListByUser(userID int64, limit int) ([]*Report, error)
	Search(departmentIDs []int64, userID int64, query string, limit int) ([]*Report, error)
	ListApprovedByDepartmentsAndRange(departmentIDs []int64, start, end time.Time) ([]*Report, error)
	UpdateStatus(id int64, status string, submittedAt *time.Time) error
	AddApproval(a *Approval) error
	ApprovalsForReport(reportID int64) ([]*Approval, error)
	AddComment(c *Comment) error
	CommentsForReport(reportID int64) ([]*Comment, error)
	CountByStatus() (map[string]int64, error)
}

// AccessChecker is the slice of the access control surface the report
// workflow needs.
type AccessChecker interface {
	CanViewReport(userID int64, rep access.ReportInfo) bool
	CanApproveReport(userID int64, rep access.ReportInfo) error
	ValidateReportCreation(userID int64, departmentID *int64) error
	CanCreateCumulative(userID int64) error
	AccessibleDepartments(userID int64) ([]int64, error)
	PrimaryDepartment(userID int64) *int64
}

// Summarizer condenses concatenated source reports into cumulative content.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Service struct {
	repo       Repository
	checker    AccessChecker
	summarizer Summarizer
	eventBus   *events.EventBus
	logger     *slog.Logger
}

func NewService(repo Repository, checker AccessChecker, summarizer Summarizer, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		checker:    checker,
		summarizer: summarizer,
		eventBus:   eventBus,
		logger:     logger,
	}
}

func (r *Report) accessInfo() access.ReportInfo {
	return access.ReportInfo{
		ID:           r.ID,
		SubmittedBy:  r.SubmittedBy,
		DepartmentID: r.DepartmentID,
		Visibility:   r.Visibility,
		Status:       r.Status,
	}
}

// Create files a new individual report, as a draft or submitted immediately.
func (s *Service) Create(userID int64, dto CreateReportDTO) (*Report, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("report validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	// A report filed without an explicit department lands in the
	// submitter's own, otherwise it would be invisible to their manager.
	departmentID := dto.DepartmentID
	if departmentID == nil {
		departmentID = s.checker.PrimaryDepartment(userID)
	}

	if err := s.checker.ValidateReportCreation(userID, departmentID); err != nil {
		s.logger.Warn("report creation denied", "user_id", userID, "error", err)
		return nil, err
	}

	reportType := dto.ReportType
	if reportType == "" {
		reportType = TypeCustom
	}
	priority := dto.Priority
	if priority == "" {
		priority = "normal"
	}
	visibility := dto.Visibility
	if visibility == "" {
		visibility = VisibilityDepartment
	}

	rep := &Report{
		Title:        dto.Title,
		Content:      dto.Content,
		ReportType:   reportType,
		Status:       StatusDraft,
		Priority:     priority,
		Visibility:   visibility,
		DepartmentID: departmentID,
		SubmittedBy:  userID,
	}

	if dto.SubmitNow {
		if err := rep.Submit(); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(rep); err != nil {
		s.logger.Error("failed to create report", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("report created",
		"report_id", rep.ID,
		"user_id", userID,
		"status", rep.Status,
		"report_type", rep.ReportType)

	if rep.Status == StatusSubmitted && s.eventBus != nil {
		_ = s.eventBus.Publish(context.Background(), events.NewReportSubmittedEvent(rep.ID, userID, rep.DepartmentID))
	}

	return rep, nil
}

// Submit moves the caller's own draft into the submitted state.
func (s *Service) Submit(userID, reportID int64) (*Report, error) {
	rep, err := s.repo.GetByID(reportID)
	if err != nil {
		return nil, ErrReportNotFound
	}

	if rep.SubmittedBy != userID {
		s.logger.Warn("submit denied: not the owner", "report_id", reportID, "user_id", userID)
		return nil, access.ErrNotAuthorized
	}

	if err := rep.Submit(); err != nil {
		s.logger.Warn("cannot submit report in current status",
			"report_id", reportID,
			"current_status", rep.Status)
		return nil, err
	}

	if err := s.repo.UpdateStatus(rep.ID, rep.Status, rep.SubmittedAt); err != nil {
		s.logger.Error("failed to update report status", "error", err, "report_id", reportID)
		return nil, err
	}

	s.logger.Info("report submitted", "report_id", reportID, "user_id", userID)
	if s.eventBus != nil {
		_ = s.eventBus.Publish(context.Background(), events.NewReportSubmittedEvent(rep.ID, userID, rep.DepartmentID))
	}

	return rep, nil
}

// Get retrieves a report the caller may view.
func (s *Service) Get(userID, reportID int64) (*Report, error) {
	rep, err := s.repo.GetByID(reportID)
	if err != nil {
		return nil, ErrReportNotFound
	}

	if !s.checker.CanViewReport(userID, rep.accessInfo()) {
		s.logger.Warn("report access denied", "report_id", reportID, "user_id", userID)
		return nil, access.ErrNotAuthorized
	}

	return rep, nil
}

// ListAccessible merges department-visible reports with the caller's own,
// deduplicated, newest first.
func (s *Service) ListAccessible(userID int64, limit int) ([]*Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	departmentIDs, err := s.checker.AccessibleDepartments(userID)
	if err != nil {
		return nil, err
	}

	var fromDepartments []*Report
	if len(departmentIDs) > 0 {
		fromDepartments, err = s.repo.ListByDepartments(departmentIDs, limit)
		if err != nil {
			return nil, err
		}
	}

	own, err := s.repo.ListByUser(userID, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	merged := make([]*Report, 0, len(fromDepartments)+len(own))
	for _, rep := range append(fromDepartments, own...) {
		if seen[rep.ID] {
			continue
		}
		seen[rep.ID] = true
		merged = append(merged, rep)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Search matches title and content substrings within the accessible set.
func (s *Service) Search(userID int64, query string, limit int) ([]*Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ValidationError{Msg: "search query is required"}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	departmentIDs, err := s.checker.AccessibleDepartments(userID)
	if err != nil {
		return nil, err
	}

	return s.repo.Search(departmentIDs, userID, query, limit)
}

// Approve records an approval decision on a submitted report.
func (s *Service) Approve(approverID, reportID int64, comment string) error {
	return s.decide(approverID, reportID, comment, StatusApproved, ActionApproved, events.EventReportApproved)
}

// Reject records a rejection decision on a submitted report.
func (s *Service) Reject(approverID, reportID int64, comment string) error {
	return s.decide(approverID, reportID, comment, StatusRejected, ActionRejected, events.EventReportRejected)
}

func (s *Service) decide(approverID, reportID int64, comment, status, action, eventType string) error {
	rep, err := s.repo.GetByID(reportID)
	if err != nil {
		s.logger.Error("report not found for decision", "error", err, "report_id", reportID)
		return ErrReportNotFound
	}

	if err := s.checker.CanApproveReport(approverID, rep.accessInfo()); err != nil {
		s.logger.Warn("decision denied",
			"report_id", reportID,
			"approver_id", approverID,
			"error", err)
		return err
	}

	if !rep.CanBeDecided() {
		s.logger.Warn("cannot decide report in current status",
			"report_id", reportID,
			"current_status", rep.Status)
		return ErrInvalidStatus
	}

	if err := s.repo.UpdateStatus(reportID, status, rep.SubmittedAt); err != nil {
		s.logger.Error("failed to update report status", "error", err, "report_id", reportID)
		return err
	}

	approval := &Approval{
		ReportID:   reportID,
		ApproverID: approverID,
		Action:     action,
		Comment:    comment,
	}
	if err := s.repo.AddApproval(approval); err != nil {
		s.logger.Error("failed to record approval", "error", err, "report_id", reportID)
		return err
	}

	s.logger.Info("report decision recorded",
		"report_id", reportID,
		"approver_id", approverID,
		"action", action)

	if s.eventBus != nil {
		_ = s.eventBus.Publish(context.Background(), events.NewReportDecisionEvent(eventType, reportID, approverID, comment))
	}
	return nil
}

// CreateCumulative synthesizes a new report from approved sources. The
// summarizer output becomes the content; any summarizer failure aborts the
// creation so no fabricated or empty report is ever persisted.
func (s *Service) CreateCumulative(ctx context.Context, userID int64, dto CreateCumulativeDTO) (*Report, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.checker.CanCreateCumulative(userID); err != nil {
		s.logger.Warn("cumulative creation denied", "user_id", userID, "error", err)
		return nil, err
	}

	sources, err := s.repo.GetManyByIDs(dto.SourceReportIDs)
	if err != nil {
		return nil, err
	}
	if len(sources) != len(dto.SourceReportIDs) {
		return nil, ErrReportNotFound
	}

	var parts []string
	for _, src := range sources {
		if src.Status != StatusApproved {
			s.logger.Warn("cumulative source not approved", "source_id", src.ID, "status", src.Status)
			return nil, ErrSourceNotReady
		}
		if !s.checker.CanViewReport(userID, src.accessInfo()) {
			s.logger.Warn("cumulative source not accessible", "source_id", src.ID, "user_id", userID)
			return nil, access.ErrNotAuthorized
		}
		parts = append(parts, fmt.Sprintf("%s\n%s", src.Title, src.Content))
	}
	if len(parts) == 0 {
		return nil, ErrNoSources
	}

	summary, err := s.summarizer.Summarize(ctx, strings.Join(parts, "\n\n---\n\n"))
	if err != nil {
		s.logger.Error("summarization failed, cumulative report not persisted",
			"error", err,
			"user_id", userID,
			"source_count", len(sources))
		return nil, err
	}

	departmentID := dto.DepartmentID
	if departmentID == nil {
		departmentID = s.checker.PrimaryDepartment(userID)
	}

	now := time.Now()
	rep := &Report{
		Title:           dto.Title,
		Content:         summary,
		ReportType:      TypeCumulative,
		Status:          StatusSubmitted,
		Priority:        "normal",
		Visibility:      VisibilityDepartment,
		DepartmentID:    departmentID,
		SubmittedBy:     userID,
		SubmittedAt:     &now,
		IsCumulative:    true,
		SourceReportIDs: dto.SourceReportIDs,
		AggregationType: dto.AggregationType,
		PeriodStart:     dto.PeriodStart,
		PeriodEnd:       dto.PeriodEnd,
	}

	if err := s.repo.Create(rep); err != nil {
		s.logger.Error("failed to create cumulative report", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("cumulative report created",
		"report_id", rep.ID,
		"user_id", userID,
		"source_count", len(sources),
		"aggregation_type", dto.AggregationType)

	if s.eventBus != nil {
		_ = s.eventBus.Publish(context.Background(), events.NewReportSubmittedEvent(rep.ID, userID, rep.DepartmentID))
	}
	return rep, nil
}

// CreateCumulativeForPeriod gathers the approved reports submitted in the
// caller's accessible departments during the named period and synthesizes
// them, without the caller picking sources by hand.
func (s *Service) CreateCumulativeForPeriod(ctx context.Context, userID int64, title, aggregation string) (*Report, error) {
	switch aggregation {
	case AggregationWeekly, AggregationMonthly, AggregationQuarterly:
	default:
		return nil, ValidationError{Msg: "unknown aggregation period"}
	}

	if err := s.checker.CanCreateCumulative(userID); err != nil {
		s.logger.Warn("cumulative creation denied", "user_id", userID, "error", err)
		return nil, err
	}

	departmentIDs, err := s.checker.AccessibleDepartments(userID)
	if err != nil {
		return nil, err
	}
	if len(departmentIDs) == 0 {
		return nil, ErrNoSources
	}

	start, end := PeriodRange(aggregation, time.Now())
	sources, err := s.repo.ListApprovedByDepartmentsAndRange(departmentIDs, start, end)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	ids := make([]int64, 0, len(sources))
	for _, src := range sources {
		ids = append(ids, src.ID)
	}

	if title == "" {
		title = fmt.Sprintf("Cumulative %s report", aggregation)
	}

	return s.CreateCumulative(ctx, userID, CreateCumulativeDTO{
		Title:           title,
		SourceReportIDs: ids,
		AggregationType: aggregation,
		PeriodStart:     &start,
		PeriodEnd:       &end,
	})
}

// AddComment attaches a threaded comment to a report the caller may view.
func (s *Service) AddComment(userID, reportID int64, dto AddCommentDTO) (*Comment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rep, err := s.repo.GetByID(reportID)
	if err != nil {
		return nil, ErrReportNotFound
	}

	if !s.checker.CanViewReport(userID, rep.accessInfo()) {
		return nil, access.ErrNotAuthorized
	}

	comment := &Comment{
		ReportID:        reportID,
		AuthorID:        userID,
		ParentCommentID: dto.ParentCommentID,
		Content:         dto.Content,
	}
	if err := s.repo.AddComment(comment); err != nil {
		s.logger.Error("failed to add comment", "error", err, "report_id", reportID)
		return nil, err
	}

	s.logger.Info("comment added", "report_id", reportID, "comment_id", comment.ID, "author_id", userID)
	return comment, nil
}

func (s *Service) Comments(userID, reportID int64) ([]*Comment, error) {
	rep, err := s.repo.GetByID(reportID)
	if err != nil {
		return nil, ErrReportNotFound
	}
	if !s.checker.CanViewReport(userID, rep.accessInfo()) {
		return nil, access.ErrNotAuthorized
	}
	return s.repo.CommentsForReport(reportID)
}

func (s *Service) Approvals(userID, reportID int64) ([]*Approval, error) {
	rep, err := s.repo.GetByID(reportID)
	if err != nil {
		return nil, ErrReportNotFound
	}
	if !s.checker.CanViewReport(userID, rep.accessInfo()) {
		return nil, access.ErrNotAuthorized
	}
	return s.repo.ApprovalsForReport(reportID)
}

func (s *Service) CountByStatus() (map[string]int64, error) {
	return s.repo.CountByStatus()
}
