package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/report-management/internal/access"
	"github.com/frahmantamala/report-management/internal/department"
	"github.com/frahmantamala/report-management/internal/report"
	"github.com/frahmantamala/report-management/internal/role"
	"github.com/frahmantamala/report-management/internal/user"
)

func (rt *Router) startReportWizard(userID int64) string {
	if err := rt.access.CanCreateReport(userID); err != nil {
		return accessErrorText(err)
	}

	rt.wizards.Start(userID, WizardReport, StepReportTitle)
	return "Let's create a report. What is the title? (Send /cancel to abort.)"
}

func (rt *Router) startDepartmentWizard(userID int64) string {
	if err := rt.access.CanManageDepartments(userID); err != nil {
		return accessErrorText(err)
	}

	rt.wizards.Start(userID, WizardDepartment, StepDeptName)
	return "Creating a department. What is its name? (Send /cancel to abort.)"
}

func (rt *Router) advanceWizard(ctx context.Context, userID int64, state *WizardState, input string) string {
	input = strings.TrimSpace(input)

	switch state.Kind {
	case WizardReport:
		return rt.advanceReportWizard(userID, state, input)
	case WizardDepartment:
		return rt.advanceDepartmentWizard(userID, state, input)
	case WizardRegister:
		return rt.advanceRegisterWizard(userID, input)
	default:
		rt.wizards.Clear(userID)
		return "Something went wrong, the dialog was reset."
	}
}

func (rt *Router) advanceReportWizard(userID int64, state *WizardState, input string) string {
	switch state.Step {
	case StepReportTitle:
		if len(input) < 3 {
			return "The title is too short, it needs at least 3 characters. Try again."
		}
		state.Title = input
		state.Step = StepReportContent
		return "Got it. Now send the report content."

	case StepReportContent:
		if input == "" {
			return "The content cannot be empty. Try again."
		}
		state.Content = input
		state.Step = StepReportType
		return "What kind of report is it? (daily, weekly, monthly, incident, custom)"

	case StepReportType:
		kind := strings.ToLower(input)
		if !report.ValidType(kind) {
			return "Unknown type. Choose one of: daily, weekly, monthly, incident, custom."
		}
		state.ReportType = kind
		state.Step = StepReportConfirm
		return fmt.Sprintf("Submit this report?\n\nTitle: %s\nType: %s\n\nSend \"yes\" to submit or /cancel to abort.",
			state.Title, state.ReportType)

	case StepReportConfirm:
		if !IsConfirmation(input) {
			return "Send \"yes\" to submit or /cancel to abort."
		}
		rt.wizards.Clear(userID)

		rep, err := rt.reports.Create(userID, report.CreateReportDTO{
			Title:      state.Title,
			Content:    state.Content,
			ReportType: state.ReportType,
			SubmitNow:  true,
		})
		if err != nil {
			rt.logger.Error("wizard report creation failed", "user_id", userID, "error", err)
			return reportErrorText(err)
		}
		return fmt.Sprintf("Report #%d submitted for approval.", rep.ID)

	default:
		rt.wizards.Clear(userID)
		return "Something went wrong, the dialog was reset."
	}
}

func (rt *Router) advanceRegisterWizard(userID int64, input string) string {
	deptID, ok := parseID(input)
	if !ok {
		return "Send the numeric id of your department, or /cancel to abort."
	}

	departments, err := rt.departments.ListActive()
	if err != nil {
		rt.logger.Error("failed to list departments for enrollment", "user_id", userID, "error", err)
		return "Something went wrong, please try again later."
	}

	var chosen *department.Department
	for _, d := range departments {
		if d.ID == deptID {
			chosen = d
			break
		}
	}
	if chosen == nil {
		return "That id is not in the list. Pick one of the departments shown."
	}

	rt.wizards.Clear(userID)

	if _, err := rt.roles.Enroll(userID, deptID); err != nil {
		if errors.Is(err, role.ErrAlreadyEnrolled) {
			return "You are already registered. Send /my_role to see your role."
		}
		rt.logger.Error("enrollment failed", "user_id", userID, "department_id", deptID, "error", err)
		return roleErrorText(err)
	}

	return fmt.Sprintf("You are registered in %s as an employee.\n\nYou can now:\n/create_report - file a report\n/my_reports - list your reports\n/my_role - show your permissions", chosen.Name)
}

func (rt *Router) advanceDepartmentWizard(userID int64, state *WizardState, input string) string {
	switch state.Step {
	case StepDeptName:
		if len(input) < 2 {
			return "The name is too short. Try again."
		}
		state.DeptName = input
		state.Step = StepDeptNameEn
		return "Now the English name (or \"skip\")."

	case StepDeptNameEn:
		if !strings.EqualFold(input, "skip") {
			state.DeptNameEn = input
		}
		state.Step = StepDeptParent
		return "Parent department id? Send the id, or \"skip\" for a top-level department."

	case StepDeptParent:
		parentID, ok := ParseParentChoice(input)
		if !ok {
			return "Could not read that. Send a department id or \"skip\"."
		}
		state.ParentID = parentID
		state.Step = StepDeptConfirm

		parent := "none (top level)"
		if parentID != nil {
			parent = fmt.Sprintf("#%d", *parentID)
		}
		return fmt.Sprintf("Create this department?\n\nName: %s\nEnglish name: %s\nParent: %s\n\nSend \"yes\" to confirm or /cancel to abort.",
			state.DeptName, state.DeptNameEn, parent)

	case StepDeptConfirm:
		if !IsConfirmation(input) {
			return "Send \"yes\" to confirm or /cancel to abort."
		}
		rt.wizards.Clear(userID)

		dept, err := rt.departments.Create(userID, department.CreateDepartmentDTO{
			Name:               state.DeptName,
			NameEn:             state.DeptNameEn,
			ParentDepartmentID: state.ParentID,
		})
		if err != nil {
			rt.logger.Error("wizard department creation failed", "user_id", userID, "error", err)
			return departmentErrorText(err)
		}
		return fmt.Sprintf("Department \"%s\" created with id %d.", dept.Name, dept.ID)

	default:
		rt.wizards.Clear(userID)
		return "Something went wrong, the dialog was reset."
	}
}

func accessErrorText(err error) string {
	switch {
	case errors.Is(err, access.ErrInactiveUser):
		return "Your account is deactivated. Contact an administrator."
	case errors.Is(err, access.ErrNotAuthorized):
		return "You do not have permission to do that."
	default:
		return "You do not have permission to do that."
	}
}

func reportErrorText(err error) string {
	switch {
	case errors.Is(err, report.ErrReportNotFound):
		return "I could not find that report."
	case errors.Is(err, report.ErrNotViewable):
		return "You do not have access to that report."
	case errors.Is(err, report.ErrInvalidStatus):
		return "That report is not in a state that allows this action."
	case errors.Is(err, report.ErrSourceNotReady):
		return "All source reports must be approved before they can be summarized."
	case errors.Is(err, report.ErrNoSources):
		return "No source reports were found."
	case errors.Is(err, access.ErrOwnReport):
		return "You cannot approve or reject your own report."
	case errors.Is(err, access.ErrInactiveUser), errors.Is(err, access.ErrNotAuthorized):
		return accessErrorText(err)
	default:
		var validation report.ValidationError
		if errors.As(err, &validation) {
			return validation.Error()
		}
		return "Something went wrong, please try again later."
	}
}

func roleErrorText(err error) string {
	switch {
	case errors.Is(err, role.ErrRankTooHigh):
		return "You can only assign roles below your own rank."
	case errors.Is(err, role.ErrDepartmentScope):
		return "You can only assign roles within your own department."
	case errors.Is(err, role.ErrNotAllowed), errors.Is(err, access.ErrNotAuthorized):
		return "You do not have permission to manage roles."
	case errors.Is(err, role.ErrRoleNotFound):
		return "Unknown role."
	case errors.Is(err, user.ErrUserNotFound):
		return "I could not find that user."
	case errors.Is(err, access.ErrInactiveUser):
		return accessErrorText(err)
	default:
		var validation role.ValidationError
		if errors.As(err, &validation) {
			return validation.Error()
		}
		return "Something went wrong, please try again later."
	}
}

func userErrorText(err error) string {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return "I could not find that user."
	case errors.Is(err, access.ErrNotAuthorized), errors.Is(err, access.ErrInactiveUser):
		return accessErrorText(err)
	default:
		return "Something went wrong, please try again later."
	}
}

func departmentErrorText(err error) string {
	switch {
	case errors.Is(err, department.ErrDepartmentNotFound):
		return "I could not find the parent department."
	case errors.Is(err, access.ErrNotAuthorized), errors.Is(err, access.ErrInactiveUser):
		return accessErrorText(err)
	default:
		var validation department.ValidationError
		if errors.As(err, &validation) {
			return validation.Error()
		}
		return "Something went wrong, please try again later."
	}
}
