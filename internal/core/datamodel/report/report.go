package report

import "time"

type Report struct {
	ID              int64      `gorm:"primaryKey"`
	Title           string     `gorm:"column:title;not null"`
	Content         string     `gorm:"column:content;not null"`
	ReportType      string     `gorm:"column:report_type;default:custom"`
	Status          string     `gorm:"column:status;default:draft;index"`
	Priority        string     `gorm:"column:priority;default:normal"`
	Visibility      string     `gorm:"column:visibility;default:department"`
	DepartmentID    *int64     `gorm:"column:department_id;index"`
	SubmittedBy     int64      `gorm:"column:submitted_by;not null;index"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at"`
	IsCumulative    bool       `gorm:"column:is_cumulative;default:false"`
	SourceReportIDs string     `gorm:"column:source_report_ids"`
	AggregationType string     `gorm:"column:aggregation_type"`
	PeriodStart     *time.Time `gorm:"column:period_start"`
	PeriodEnd       *time.Time `gorm:"column:period_end"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Report) TableName() string {
	return "reports"
}

type ReportApproval struct {
	ID         int64     `gorm:"primaryKey"`
	ReportID   int64     `gorm:"column:report_id;not null;index"`
	ApproverID int64     `gorm:"column:approver_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	Comment    string    `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ReportApproval) TableName() string {
	return "report_approvals"
}

type ReportComment struct {
	ID              int64     `gorm:"primaryKey"`
	ReportID        int64     `gorm:"column:report_id;not null;index"`
	AuthorID        int64     `gorm:"column:author_id;not null"`
	ParentCommentID *int64    `gorm:"column:parent_comment_id"`
	Content         string    `gorm:"column:content;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ReportComment) TableName() string {
	return "report_comments"
}
