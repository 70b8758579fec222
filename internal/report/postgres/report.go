package postgres

import (
	"encoding/json"
	"time"

	reportDatamodel "github.com/frahmantamala/report-management/internal/core/datamodel/report"
	"github.com/frahmantamala/report-management/internal/report"
	"gorm.io/gorm"
)

// ReportRepository implements the report.Repository interface using GORM
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) report.Repository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(rep *report.Report) error {
	m := toModel(rep)
	if err := r.db.Create(&m).Error; err != nil {
		return err
	}
	*rep = toDomain(&m)
	return nil
}

func (r *ReportRepository) GetByID(id int64) (*report.Report, error) {
	var m reportDatamodel.Report
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, report.ErrReportNotFound
		}
		return nil, err
	}
	rep := toDomain(&m)
	return &rep, nil
}

func (r *ReportRepository) GetManyByIDs(ids []int64) ([]*report.Report, error) {
	var models []reportDatamodel.Report
	err := r.db.Where("id IN ?", ids).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *ReportRepository) ListByDepartments(departmentIDs []int64, limit int) ([]*report.Report, error) {
	var models []reportDatamodel.Report
	err := r.db.Where("department_id IN ? AND status <> ?", departmentIDs, report.StatusDraft).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *ReportRepository) ListApprovedByDepartmentsAndRange(departmentIDs []int64, start, end time.Time) ([]*report.Report, error) {
	var models []reportDatamodel.Report
	err := r.db.Where(
		"department_id IN ? AND status = ? AND submitted_at >= ? AND submitted_at <= ?",
		departmentIDs, report.StatusApproved, start, end,
	).
		Order("submitted_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *ReportRepository) ListByUser(userID int64, limit int) ([]*report.Report, error) {
	var models []reportDatamodel.Report
	err := r.db.Where("submitted_by = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *ReportRepository) Search(departmentIDs []int64, userID int64, query string, limit int) ([]*report.Report, error) {
	pattern := "%" + query + "%"

	tx := r.db.Where(
		"(submitted_by = ? OR (department_id IN ? AND status <> ?)) AND (title LIKE ? OR content LIKE ?)",
		userID, departmentIDs, report.StatusDraft, pattern, pattern,
	)
	if len(departmentIDs) == 0 {
		tx = r.db.Where(
			"submitted_by = ? AND (title LIKE ? OR content LIKE ?)",
			userID, pattern, pattern,
		)
	}

	var models []reportDatamodel.Report
	err := tx.Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainSlice(models), nil
}

func (r *ReportRepository) UpdateStatus(id int64, status string, submittedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if submittedAt != nil {
		updates["submitted_at"] = *submittedAt
	}

	result := r.db.Model(&reportDatamodel.Report{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return report.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) AddApproval(a *report.Approval) error {
	m := reportDatamodel.ReportApproval{
		ReportID:   a.ReportID,
		ApproverID: a.ApproverID,
		Action:     a.Action,
		Comment:    a.Comment,
	}
	if err := r.db.Create(&m).Error; err != nil {
		return err
	}
	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	return nil
}

func (r *ReportRepository) ApprovalsForReport(reportID int64) ([]*report.Approval, error) {
	var models []reportDatamodel.ReportApproval
	err := r.db.Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	approvals := make([]*report.Approval, 0, len(models))
	for i := range models {
		m := models[i]
		approvals = append(approvals, &report.Approval{
			ID:         m.ID,
			ReportID:   m.ReportID,
			ApproverID: m.ApproverID,
			Action:     m.Action,
			Comment:    m.Comment,
			CreatedAt:  m.CreatedAt,
		})
	}
	return approvals, nil
}

func (r *ReportRepository) AddComment(c *report.Comment) error {
	m := reportDatamodel.ReportComment{
		ReportID:        c.ReportID,
		AuthorID:        c.AuthorID,
		ParentCommentID: c.ParentCommentID,
		Content:         c.Content,
	}
	if err := r.db.Create(&m).Error; err != nil {
		return err
	}
	c.ID = m.ID
	c.CreatedAt = m.CreatedAt
	return nil
}

func (r *ReportRepository) CommentsForReport(reportID int64) ([]*report.Comment, error) {
	var models []reportDatamodel.ReportComment
	err := r.db.Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	comments := make([]*report.Comment, 0, len(models))
	for i := range models {
		m := models[i]
		comments = append(comments, &report.Comment{
			ID:              m.ID,
			ReportID:        m.ReportID,
			AuthorID:        m.AuthorID,
			ParentCommentID: m.ParentCommentID,
			Content:         m.Content,
			CreatedAt:       m.CreatedAt,
		})
	}
	return comments, nil
}

func (r *ReportRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.db.Model(&reportDatamodel.Report{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Total
	}
	return counts, nil
}

func toModel(rep *report.Report) reportDatamodel.Report {
	var sources string
	if len(rep.SourceReportIDs) > 0 {
		if b, err := json.Marshal(rep.SourceReportIDs); err == nil {
			sources = string(b)
		}
	}
	return reportDatamodel.Report{
		ID:              rep.ID,
		Title:           rep.Title,
		Content:         rep.Content,
		ReportType:      rep.ReportType,
		Status:          rep.Status,
		Priority:        rep.Priority,
		Visibility:      rep.Visibility,
		DepartmentID:    rep.DepartmentID,
		SubmittedBy:     rep.SubmittedBy,
		SubmittedAt:     rep.SubmittedAt,
		IsCumulative:    rep.IsCumulative,
		SourceReportIDs: sources,
		AggregationType: rep.AggregationType,
		PeriodStart:     rep.PeriodStart,
		PeriodEnd:       rep.PeriodEnd,
		CreatedAt:       rep.CreatedAt,
		UpdatedAt:       rep.UpdatedAt,
	}
}

func toDomain(m *reportDatamodel.Report) report.Report {
	var sources []int64
	if m.SourceReportIDs != "" {
		_ = json.Unmarshal([]byte(m.SourceReportIDs), &sources)
	}
	return report.Report{
		ID:              m.ID,
		Title:           m.Title,
		Content:         m.Content,
		ReportType:      m.ReportType,
		Status:          m.Status,
		Priority:        m.Priority,
		Visibility:      m.Visibility,
		DepartmentID:    m.DepartmentID,
		SubmittedBy:     m.SubmittedBy,
		SubmittedAt:     m.SubmittedAt,
		IsCumulative:    m.IsCumulative,
		SourceReportIDs: sources,
		AggregationType: m.AggregationType,
		PeriodStart:     m.PeriodStart,
		PeriodEnd:       m.PeriodEnd,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toDomainSlice(models []reportDatamodel.Report) []*report.Report {
	out := make([]*report.Report, 0, len(models))
	for i := range models {
		rep := toDomain(&models[i])
		out = append(out, &rep)
	}
	return out
}
