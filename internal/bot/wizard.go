package bot

import (
	"strconv"
	"strings"
	"sync"
)

// Wizard kinds.
const (
	WizardReport     = "report"
	WizardDepartment = "department"
	WizardRegister   = "register"
)

// Wizard steps.
const (
	StepReportTitle   = "report_title"
	StepReportContent = "report_content"
	StepReportType    = "report_type"
	StepReportConfirm = "report_confirm"

	StepRegisterDept = "register_dept"

	StepDeptName    = "dept_name"
	StepDeptNameEn  = "dept_name_en"
	StepDeptParent  = "dept_parent"
	StepDeptConfirm = "dept_confirm"
)

// WizardState is one user's in-progress multi-step dialog. Only one
// wizard can be active per user; starting a new one replaces it.
type WizardState struct {
	Kind string
	Step string

	Title      string
	Content    string
	ReportType string

	DeptName   string
	DeptNameEn string
	ParentID   *int64
}

// WizardStore keeps the active dialogs in memory, keyed by user id.
type WizardStore struct {
	mu     sync.Mutex
	states map[int64]*WizardState
}

func NewWizardStore() *WizardStore {
	return &WizardStore{states: make(map[int64]*WizardState)}
}

func (s *WizardStore) Get(userID int64) (*WizardState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	return state, ok
}

func (s *WizardStore) Start(userID int64, kind, step string) *WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &WizardState{Kind: kind, Step: step}
	s.states[userID] = state
	return state
}

func (s *WizardStore) Clear(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[userID]
	delete(s.states, userID)
	return ok
}

// ParseParentChoice interprets the parent department step input. "skip"
// or "-" means a root department.
func ParseParentChoice(input string) (*int64, bool) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" || input == "skip" || input == "-" || input == "none" {
		return nil, true
	}
	id, err := strconv.ParseInt(input, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

// IsConfirmation accepts the confirm step answers.
func IsConfirmation(input string) bool {
	switch strings.TrimSpace(strings.ToLower(input)) {
	case "yes", "y", "confirm", "ok", "نعم":
		return true
	}
	return false
}
