package report

import (
	"errors"
	"time"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

const (
	TypeDaily      = "daily"
	TypeWeekly     = "weekly"
	TypeMonthly    = "monthly"
	TypeIncident   = "incident"
	TypeCustom     = "custom"
	TypeCumulative = "cumulative"
)

const (
	VisibilityDepartment = "department"
	VisibilityPublic     = "public"
)

const (
	AggregationWeekly    = "weekly"
	AggregationMonthly   = "monthly"
	AggregationQuarterly = "quarterly"
	AggregationCustom    = "custom"
)

const (
	ActionApproved = "approved"
	ActionRejected = "rejected"
)

// PeriodRange maps an aggregation period to the concrete date range ending
// at the given time.
func PeriodRange(aggregation string, now time.Time) (start, end time.Time) {
	switch aggregation {
	case AggregationMonthly:
		return now.AddDate(0, 0, -30), now
	case AggregationQuarterly:
		return now.AddDate(0, 0, -90), now
	default:
		return now.AddDate(0, 0, -7), now
	}
}

var (
	ErrReportNotFound   = errors.New("report not found")
	ErrInvalidStatus    = errors.New("invalid report status for this operation")
	ErrNotViewable      = errors.New("report is not accessible")
	ErrSourceNotReady   = errors.New("source report is not approved")
	ErrNoSources        = errors.New("no source reports for aggregation")
	ErrCommentNotFound  = errors.New("comment not found")
)

type Report struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	ReportType      string     `json:"report_type"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Visibility      string     `json:"visibility"`
	DepartmentID    *int64     `json:"department_id,omitempty"`
	SubmittedBy     int64      `json:"submitted_by"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	IsCumulative    bool       `json:"is_cumulative"`
	SourceReportIDs []int64    `json:"source_report_ids,omitempty"`
	AggregationType string     `json:"aggregation_type,omitempty"`
	PeriodStart     *time.Time `json:"period_start,omitempty"`
	PeriodEnd       *time.Time `json:"period_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *Report) CanBeSubmitted() bool {
	return r.Status == StatusDraft
}

func (r *Report) CanBeDecided() bool {
	return r.Status == StatusSubmitted
}

// Submit moves a draft into the submitted state and stamps the submission
// time.
func (r *Report) Submit() error {
	if !r.CanBeSubmitted() {
		return ErrInvalidStatus
	}
	now := time.Now()
	r.Status = StatusSubmitted
	r.SubmittedAt = &now
	return nil
}

func (r *Report) Approve() error {
	if !r.CanBeDecided() {
		return ErrInvalidStatus
	}
	r.Status = StatusApproved
	return nil
}

func (r *Report) Reject() error {
	if !r.CanBeDecided() {
		return ErrInvalidStatus
	}
	r.Status = StatusRejected
	return nil
}

type Approval struct {
	ID         int64     `json:"id"`
	ReportID   int64     `json:"report_id"`
	ApproverID int64     `json:"approver_id"`
	Action     string    `json:"action"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Comment struct {
	ID              int64     `json:"id"`
	ReportID        int64     `json:"report_id"`
	AuthorID        int64     `json:"author_id"`
	ParentCommentID *int64    `json:"parent_comment_id,omitempty"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
}

func ValidType(t string) bool {
	switch t {
	case TypeDaily, TypeWeekly, TypeMonthly, TypeIncident, TypeCustom:
		return true
	}
	return false
}
