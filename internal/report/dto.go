package report

import (
	"time"

	"github.com/frahmantamala/report-management/internal/core/common/validation"
)

// CreateReportDTO creates an individual report, either left as a draft or
// submitted immediately.
type CreateReportDTO struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	ReportType   string `json:"report_type"`
	Priority     string `json:"priority"`
	Visibility   string `json:"visibility"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	SubmitNow    bool   `json:"submit_now"`
}

func (d CreateReportDTO) Validate() error {
	if err := validation.ValidateReportTitle(d.Title); err != nil {
		return err
	}
	if err := validation.ValidateReportContent(d.Content); err != nil {
		return err
	}
	if d.ReportType != "" && !ValidType(d.ReportType) {
		return ErrInvalidStatus
	}
	return nil
}

// CreateCumulativeDTO creates an aggregated report synthesized from approved
// source reports.
type CreateCumulativeDTO struct {
	Title           string     `json:"title"`
	SourceReportIDs []int64    `json:"source_report_ids"`
	AggregationType string     `json:"aggregation_type"`
	PeriodStart     *time.Time `json:"period_start,omitempty"`
	PeriodEnd       *time.Time `json:"period_end,omitempty"`
	DepartmentID    *int64     `json:"department_id,omitempty"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d CreateCumulativeDTO) Validate() error {
	if err := validation.ValidateReportTitle(d.Title); err != nil {
		return err
	}
	if len(d.SourceReportIDs) == 0 {
		return ValidationError{Msg: "source_report_ids is required"}
	}
	switch d.AggregationType {
	case AggregationWeekly, AggregationMonthly, AggregationQuarterly, AggregationCustom:
	default:
		return ValidationError{Msg: "unknown aggregation type"}
	}
	if d.PeriodStart != nil && d.PeriodEnd != nil && d.PeriodEnd.Before(*d.PeriodStart) {
		return ValidationError{Msg: "period_end must not precede period_start"}
	}
	return nil
}

type DecisionDTO struct {
	Comment string `json:"comment"`
}

type AddCommentDTO struct {
	Content         string `json:"content"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

func (d AddCommentDTO) Validate() error {
	if d.Content == "" {
		return ValidationError{Msg: "content is required"}
	}
	if len(d.Content) > 2000 {
		return ValidationError{Msg: "content must not exceed 2000 characters"}
	}
	return nil
}
