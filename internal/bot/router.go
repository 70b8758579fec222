package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/frahmantamala/report-management/internal/department"
	"github.com/frahmantamala/report-management/internal/report"
	"github.com/frahmantamala/report-management/internal/role"
	"github.com/frahmantamala/report-management/internal/textgen"
	"github.com/frahmantamala/report-management/internal/user"
)

type UserService interface {
	Register(dto user.RegisterDTO) (*user.User, error)
	GetByID(id int64) (*user.User, error)
	List(actorID int64, limit, offset int) ([]*user.User, error)
	ListActiveByRole(actorID int64, roleName string) ([]*user.User, error)
	Deactivate(actorID, userID int64) error
	Activate(actorID, userID int64) error
}

type ReportService interface {
	Create(userID int64, dto report.CreateReportDTO) (*report.Report, error)
	Get(userID, reportID int64) (*report.Report, error)
	ListAccessible(userID int64, limit int) ([]*report.Report, error)
	Search(userID int64, query string, limit int) ([]*report.Report, error)
	Approve(approverID, reportID int64, comment string) error
	Reject(approverID, reportID int64, comment string) error
	CreateCumulativeForPeriod(ctx context.Context, userID int64, title, aggregation string) (*report.Report, error)
}

type DepartmentService interface {
	Create(actorID int64, dto department.CreateDepartmentDTO) (*department.Department, error)
	ListActive() ([]*department.Department, error)
}

type RoleService interface {
	Assign(assignerID int64, dto role.AssignRoleDTO) (*role.Assignment, error)
	GrantAdmin(assignerID, targetID int64) (*role.Assignment, error)
	Enroll(userID, departmentID int64) (*role.Assignment, error)
	Revoke(assignerID int64, dto role.RevokeRoleDTO) error
	AssignmentsForUser(userID int64) ([]role.Assignment, error)
}

// Access answers the pre-checks the dialog flow needs before starting a
// wizard or exposing a command.
type Access interface {
	CanCreateReport(userID int64) error
	CanCreateCumulative(userID int64) error
	CanManageUsers(actorID int64) error
	CanManageDepartments(actorID int64) error
	ActorLevel(userID int64) int
}

// ChatService produces conversational replies for free-form messages.
type ChatService interface {
	Generate(ctx context.Context, userID int64, prompt string, opts *textgen.Options) (string, error)
	ClearHistory(userID int64)
}

// Router maps incoming updates to command handlers and wizard steps.
type Router struct {
	users       UserService
	reports     ReportService
	departments DepartmentService
	roles       RoleService
	access      Access
	chat        ChatService
	sender      Sender
	wizards     *WizardStore
	logger      *slog.Logger

	muMu      sync.Mutex
	userLocks map[int64]*sync.Mutex
}

func NewRouter(
	users UserService,
	reports ReportService,
	departments DepartmentService,
	roles RoleService,
	access Access,
	chat ChatService,
	sender Sender,
	logger *slog.Logger,
) *Router {
	return &Router{
		users:       users,
		reports:     reports,
		departments: departments,
		roles:       roles,
		access:      access,
		chat:        chat,
		sender:      sender,
		wizards:     NewWizardStore(),
		logger:      logger,
		userLocks:   make(map[int64]*sync.Mutex),
	}
}

// userLock serializes update handling per user. Wizard state is read and
// mutated across a whole dispatch, so two deliveries for the same user must
// not interleave.
func (rt *Router) userLock(userID int64) *sync.Mutex {
	rt.muMu.Lock()
	defer rt.muMu.Unlock()
	mu, ok := rt.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		rt.userLocks[userID] = mu
	}
	return mu
}

// HandleUpdate routes one webhook update. It always resolves to a reply,
// errors become apologetic messages rather than silence.
func (rt *Router) HandleUpdate(ctx context.Context, update *Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	if msg.From.IsBot {
		return
	}

	mu := rt.userLock(msg.From.ID)
	mu.Lock()
	reply := rt.dispatch(ctx, msg)
	mu.Unlock()
	if reply == "" {
		return
	}

	if err := rt.sender.Enqueue(msg.Chat.ID, reply); err != nil {
		rt.logger.Error("failed to queue reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (rt *Router) dispatch(ctx context.Context, msg *Message) string {
	userID := msg.From.ID
	name, args := Command(msg.Text)

	if name == "" {
		if state, ok := rt.wizards.Get(userID); ok {
			return rt.advanceWizard(ctx, userID, state, msg.Text)
		}
		return rt.freeformReply(ctx, userID, msg.Text)
	}

	// A command always interrupts an active wizard, except /cancel which
	// ends it explicitly.
	if name != "/cancel" {
		rt.wizards.Clear(userID)
	}

	switch name {
	case "/start":
		return rt.handleStart(msg.From)
	case "/register":
		return rt.handleRegister(msg.From)
	case "/help":
		return rt.helpText(userID)
	case "/my_role":
		return rt.handleMyRole(userID)
	case "/cancel":
		if rt.wizards.Clear(userID) {
			return "Cancelled."
		}
		return "Nothing to cancel."
	case "/create_report":
		return rt.startReportWizard(userID)
	case "/my_reports":
		return rt.handleMyReports(userID)
	case "/report":
		return rt.handleShowReport(userID, args)
	case "/approve_report":
		return rt.handleDecision(userID, args, true)
	case "/reject_report":
		return rt.handleDecision(userID, args, false)
	case "/create_department":
		return rt.startDepartmentWizard(userID)
	case "/create_cumulative":
		return rt.handleCreateCumulative(ctx, userID, args)
	case "/search":
		return rt.handleSearch(userID, args)
	case "/createadmin":
		return rt.handleCreateAdmin(userID, args)
	case "/removeadmin":
		return rt.handleRemoveAdmin(userID, args)
	case "/listadmins":
		return rt.handleListByRole(userID, role.RoleAdmin)
	case "/promote":
		return rt.handlePromote(userID, args)
	case "/removeuser":
		return rt.handleUserStatus(userID, args, false)
	case "/activateuser":
		return rt.handleUserStatus(userID, args, true)
	case "/listusers":
		return rt.handleListUsers(userID)
	default:
		return "Unknown command. Send /help for the list of commands."
	}
}

func (rt *Router) handleStart(from *From) string {
	reply := rt.handleRegister(from)
	if reply == "" {
		return ""
	}
	return reply + "\n\nSend /help to see what I can do."
}

// handleRegister upserts the user record and, unless the user already holds
// a role, walks them through picking their department so they come out of
// registration as an employee able to file reports.
func (rt *Router) handleRegister(from *From) string {
	u, err := rt.users.Register(user.RegisterDTO{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		rt.logger.Error("registration failed", "user_id", from.ID, "error", err)
		return "Registration failed, please try again later."
	}

	if assignments, err := rt.roles.AssignmentsForUser(from.ID); err == nil {
		for _, a := range assignments {
			if a.IsActive {
				return fmt.Sprintf("You are already registered, %s. Send /my_role to see your role.", u.DisplayName())
			}
		}
	}

	departments, err := rt.departments.ListActive()
	if err != nil {
		rt.logger.Error("failed to list departments for registration", "user_id", from.ID, "error", err)
		return "Registration failed, please try again later."
	}
	if len(departments) == 0 {
		return fmt.Sprintf("Welcome, %s. No departments exist yet, ask an administrator to assign you a role.", u.DisplayName())
	}

	rt.wizards.Start(from.ID, WizardRegister, StepRegisterDept)

	var b strings.Builder
	fmt.Fprintf(&b, "Welcome, %s. Which department do you work in? Send its id:\n\n", u.DisplayName())
	for _, d := range departments {
		fmt.Fprintf(&b, "%d - %s\n", d.ID, d.Name)
	}
	b.WriteString("\nSend /cancel to abort.")
	return b.String()
}

func (rt *Router) handleMyRole(userID int64) string {
	assignments, err := rt.roles.AssignmentsForUser(userID)
	if err != nil {
		return userErrorText(err)
	}

	deptNames := make(map[int64]string)
	if departments, err := rt.departments.ListActive(); err == nil {
		for _, d := range departments {
			deptNames[d.ID] = d.Name
		}
	}

	var b strings.Builder
	b.WriteString("Your roles:\n")
	active := 0
	for _, a := range assignments {
		if !a.IsActive {
			continue
		}
		active++
		fmt.Fprintf(&b, "%s (level %d)", a.Role.DisplayName, a.Role.Level)
		if a.DepartmentID != nil {
			name := deptNames[*a.DepartmentID]
			if name == "" {
				name = fmt.Sprintf("department #%d", *a.DepartmentID)
			}
			fmt.Fprintf(&b, " in %s", name)
		}
		b.WriteString("\n")

		flags := a.Role.EnabledFlags()
		sort.Strings(flags)
		if len(flags) > 0 {
			fmt.Fprintf(&b, "Permissions: %s\n", strings.Join(flags, ", "))
		}
	}
	if active == 0 {
		return "No role assigned yet. Use /register to join a department."
	}
	return strings.TrimRight(b.String(), "\n")
}

func (rt *Router) helpText(userID int64) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("/register - register with the system\n")
	b.WriteString("/my_role - show your role and permissions\n")
	b.WriteString("/my_reports - list reports you can see\n")
	b.WriteString("/report <id> - show one report\n")
	b.WriteString("/search <text> - search reports\n")

	if rt.access.CanCreateReport(userID) == nil {
		b.WriteString("/create_report - start a new report\n")
	}
	if rt.access.ActorLevel(userID) >= role.LevelManager {
		b.WriteString("/approve_report <id> [comment] - approve a submitted report\n")
		b.WriteString("/reject_report <id> [comment] - reject a submitted report\n")
	}
	if rt.access.CanCreateCumulative(userID) == nil {
		b.WriteString("/create_cumulative <weekly|monthly|quarterly> [title] - summarize the period's approved reports\n")
	}
	if rt.access.CanManageDepartments(userID) == nil {
		b.WriteString("/create_department - create a department\n")
	}
	if rt.access.CanManageUsers(userID) == nil {
		b.WriteString("/promote <user_id> <role> [department_id] - assign a role\n")
		b.WriteString("/listusers - list registered users\n")
		b.WriteString("/removeuser <user_id> - deactivate a user\n")
		b.WriteString("/activateuser <user_id> - reactivate a user\n")
	}
	b.WriteString("/cancel - abort the current dialog\n")
	b.WriteString("/help - this message")
	return b.String()
}

func (rt *Router) freeformReply(ctx context.Context, userID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if rt.chat == nil {
		return "Send /help for the list of commands."
	}

	reply, err := rt.chat.Generate(ctx, userID, text, nil)
	if err != nil {
		var blocked *textgen.PolicyBlockError
		if errors.As(err, &blocked) {
			return blocked.Message
		}
		rt.logger.Error("chat generation failed", "user_id", userID, "error", err)
		return textgen.MsgUnavailable
	}
	return reply
}

func (rt *Router) handleMyReports(userID int64) string {
	reports, err := rt.reports.ListAccessible(userID, 10)
	if err != nil {
		rt.logger.Error("failed to list reports", "user_id", userID, "error", err)
		return "Could not load your reports."
	}
	if len(reports) == 0 {
		return "No reports yet. Use /create_report to start one."
	}

	var b strings.Builder
	b.WriteString("Your reports:\n")
	for _, rep := range reports {
		fmt.Fprintf(&b, "#%d [%s] %s\n", rep.ID, rep.Status, rep.Title)
	}
	b.WriteString("\nSend /report <id> to read one.")
	return b.String()
}

func (rt *Router) handleShowReport(userID int64, args string) string {
	reportID, ok := parseID(args)
	if !ok {
		return "Usage: /report <id>"
	}

	rep, err := rt.reports.Get(userID, reportID)
	if err != nil {
		return reportErrorText(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Report #%d\n", rep.ID)
	fmt.Fprintf(&b, "Title: %s\n", rep.Title)
	fmt.Fprintf(&b, "Status: %s\n", rep.Status)
	fmt.Fprintf(&b, "Type: %s\n", rep.ReportType)
	if rep.SubmittedAt != nil {
		fmt.Fprintf(&b, "Submitted: %s\n", rep.SubmittedAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")
	b.WriteString(rep.Content)
	return b.String()
}

func (rt *Router) handleDecision(userID int64, args string, approve bool) string {
	parts := strings.SplitN(args, " ", 2)
	reportID, ok := parseID(parts[0])
	if !ok {
		if approve {
			return "Usage: /approve_report <id> [comment]"
		}
		return "Usage: /reject_report <id> [comment]"
	}

	comment := ""
	if len(parts) > 1 {
		comment = strings.TrimSpace(parts[1])
	}

	var err error
	if approve {
		err = rt.reports.Approve(userID, reportID, comment)
	} else {
		err = rt.reports.Reject(userID, reportID, comment)
	}
	if err != nil {
		return reportErrorText(err)
	}

	if approve {
		return fmt.Sprintf("Report #%d approved.", reportID)
	}
	return fmt.Sprintf("Report #%d rejected.", reportID)
}

func (rt *Router) handleSearch(userID int64, args string) string {
	query := strings.TrimSpace(args)
	if query == "" {
		return "Usage: /search <text>"
	}

	reports, err := rt.reports.Search(userID, query, 10)
	if err != nil {
		rt.logger.Error("search failed", "user_id", userID, "error", err)
		return "Search failed, please try again later."
	}
	if len(reports) == 0 {
		return "No reports matched."
	}

	var b strings.Builder
	b.WriteString("Found:\n")
	for _, rep := range reports {
		fmt.Fprintf(&b, "#%d [%s] %s\n", rep.ID, rep.Status, rep.Title)
	}
	return b.String()
}

// handleCreateCumulative gathers the approved reports for the period
// automatically; the REST API keeps the explicit source-id variant.
func (rt *Router) handleCreateCumulative(ctx context.Context, userID int64, args string) string {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return "Usage: /create_cumulative <weekly|monthly|quarterly> [title]"
	}

	aggregation := strings.ToLower(parts[0])
	title := ""
	if len(parts) > 1 {
		title = strings.TrimSpace(parts[1])
	}

	rep, err := rt.reports.CreateCumulativeForPeriod(ctx, userID, title, aggregation)
	if err != nil {
		var blocked *textgen.PolicyBlockError
		if errors.As(err, &blocked) {
			return blocked.Message
		}
		return reportErrorText(err)
	}

	return fmt.Sprintf("Cumulative report #%d created from %d reports.", rep.ID, len(rep.SourceReportIDs))
}

func (rt *Router) handleCreateAdmin(actorID int64, args string) string {
	targetID, ok := parseID(args)
	if !ok {
		return "Usage: /createadmin <user_id>"
	}

	if _, err := rt.users.GetByID(targetID); err != nil {
		return fmt.Sprintf("User %d not found. They must send /start to the bot first.", targetID)
	}

	if _, err := rt.roles.GrantAdmin(actorID, targetID); err != nil {
		return roleErrorText(err)
	}
	return fmt.Sprintf("User %d is now an administrator. They can verify with /my_role.", targetID)
}

func (rt *Router) handleRemoveAdmin(actorID int64, args string) string {
	targetID, ok := parseID(args)
	if !ok {
		return "Usage: /removeadmin <user_id>"
	}

	assignments, err := rt.roles.AssignmentsForUser(targetID)
	if err != nil {
		return roleErrorText(err)
	}

	for _, a := range assignments {
		if a.IsActive && a.Role.Name == role.RoleAdmin {
			if err := rt.roles.Revoke(actorID, role.RevokeRoleDTO{UserID: targetID, RoleID: a.Role.ID}); err != nil {
				return roleErrorText(err)
			}
			return fmt.Sprintf("Admin role removed from user %d.", targetID)
		}
	}
	return fmt.Sprintf("User %d is not an admin.", targetID)
}

func (rt *Router) handleListByRole(actorID int64, roleName string) string {
	users, err := rt.users.ListActiveByRole(actorID, roleName)
	if err != nil {
		return userErrorText(err)
	}
	if len(users) == 0 {
		return "No users hold that role."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Users with role %s:\n", roleName)
	for _, u := range users {
		fmt.Fprintf(&b, "%d - %s\n", u.ID, u.DisplayName())
	}
	return b.String()
}

func (rt *Router) handlePromote(actorID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return "Usage: /promote <user_id> <employee|manager|upper_manager|admin> [department_id]"
	}

	targetID, ok := parseID(parts[0])
	if !ok {
		return "Could not read the user id."
	}

	dto := role.AssignRoleDTO{
		UserID:    targetID,
		RoleName:  strings.ToLower(parts[1]),
		IsPrimary: true,
	}
	if len(parts) > 2 {
		deptID, ok := parseID(parts[2])
		if !ok {
			return "Could not read the department id."
		}
		dto.DepartmentID = &deptID
	}

	if _, err := rt.roles.Assign(actorID, dto); err != nil {
		return roleErrorText(err)
	}
	return fmt.Sprintf("User %d is now %s.", targetID, dto.RoleName)
}

func (rt *Router) handleUserStatus(actorID int64, args string, activate bool) string {
	targetID, ok := parseID(args)
	if !ok {
		return "Usage: send the target user id."
	}

	var err error
	if activate {
		err = rt.users.Activate(actorID, targetID)
	} else {
		err = rt.users.Deactivate(actorID, targetID)
	}
	if err != nil {
		return userErrorText(err)
	}

	if activate {
		return fmt.Sprintf("User %d reactivated.", targetID)
	}
	return fmt.Sprintf("User %d deactivated.", targetID)
}

func (rt *Router) handleListUsers(actorID int64) string {
	users, err := rt.users.List(actorID, 50, 0)
	if err != nil {
		return userErrorText(err)
	}
	if len(users) == 0 {
		return "No registered users."
	}

	var b strings.Builder
	b.WriteString("Registered users:\n")
	for _, u := range users {
		status := "active"
		if !u.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(&b, "%d - %s (%s)\n", u.ID, u.DisplayName(), status)
	}
	return b.String()
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
