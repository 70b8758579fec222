package bot_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/report-management/internal/access"
	"github.com/frahmantamala/report-management/internal/bot"
	"github.com/frahmantamala/report-management/internal/department"
	"github.com/frahmantamala/report-management/internal/report"
	"github.com/frahmantamala/report-management/internal/role"
	"github.com/frahmantamala/report-management/internal/textgen"
	"github.com/frahmantamala/report-management/internal/user"
)

func TestBot(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bot Suite")
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockSender) Send(ctx context.Context, chatID int64, text string) error {
	return m.Enqueue(chatID, text)
}

func (m *mockSender) Enqueue(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *mockSender) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

type mockUserService struct {
	registered  []user.RegisterDTO
	users       map[int64]*user.User
	statusCalls []string
}

func (m *mockUserService) Register(dto user.RegisterDTO) (*user.User, error) {
	m.registered = append(m.registered, dto)
	u := &user.User{ID: dto.ID, Username: dto.Username, FirstName: dto.FirstName, LastName: dto.LastName, IsActive: true}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserService) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserService) List(actorID int64, limit, offset int) ([]*user.User, error) {
	var result []*user.User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, nil
}

func (m *mockUserService) ListActiveByRole(actorID int64, roleName string) ([]*user.User, error) {
	return nil, nil
}

func (m *mockUserService) Deactivate(actorID, userID int64) error {
	m.statusCalls = append(m.statusCalls, "deactivate")
	return nil
}

func (m *mockUserService) Activate(actorID, userID int64) error {
	m.statusCalls = append(m.statusCalls, "activate")
	return nil
}

type periodRequest struct {
	Title       string
	Aggregation string
}

type mockReportService struct {
	reports       map[int64]*report.Report
	created       []report.CreateReportDTO
	decided       []string
	periodReqs    []periodRequest
	cumulativeErr error
	nextID        int64
}

func newMockReportService() *mockReportService {
	return &mockReportService{reports: make(map[int64]*report.Report), nextID: 1}
}

func (m *mockReportService) Create(userID int64, dto report.CreateReportDTO) (*report.Report, error) {
	m.created = append(m.created, dto)
	rep := &report.Report{ID: m.nextID, Title: dto.Title, Content: dto.Content, Status: report.StatusSubmitted, SubmittedBy: userID}
	m.nextID++
	m.reports[rep.ID] = rep
	return rep, nil
}

func (m *mockReportService) Get(userID, reportID int64) (*report.Report, error) {
	rep, ok := m.reports[reportID]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	return rep, nil
}

func (m *mockReportService) ListAccessible(userID int64, limit int) ([]*report.Report, error) {
	var result []*report.Report
	for _, rep := range m.reports {
		result = append(result, rep)
	}
	return result, nil
}

func (m *mockReportService) Search(userID int64, query string, limit int) ([]*report.Report, error) {
	return nil, nil
}

func (m *mockReportService) Approve(approverID, reportID int64, comment string) error {
	if _, ok := m.reports[reportID]; !ok {
		return report.ErrReportNotFound
	}
	m.decided = append(m.decided, "approve")
	return nil
}

func (m *mockReportService) Reject(approverID, reportID int64, comment string) error {
	if _, ok := m.reports[reportID]; !ok {
		return report.ErrReportNotFound
	}
	m.decided = append(m.decided, "reject")
	return nil
}

func (m *mockReportService) CreateCumulativeForPeriod(ctx context.Context, userID int64, title, aggregation string) (*report.Report, error) {
	m.periodReqs = append(m.periodReqs, periodRequest{Title: title, Aggregation: aggregation})
	if m.cumulativeErr != nil {
		return nil, m.cumulativeErr
	}
	rep := &report.Report{
		ID:              m.nextID,
		Title:           title,
		Status:          report.StatusSubmitted,
		IsCumulative:    true,
		SourceReportIDs: []int64{4, 8},
	}
	m.nextID++
	m.reports[rep.ID] = rep
	return rep, nil
}

type mockDepartmentService struct {
	created []department.CreateDepartmentDTO
	active  []*department.Department
}

func (m *mockDepartmentService) Create(actorID int64, dto department.CreateDepartmentDTO) (*department.Department, error) {
	m.created = append(m.created, dto)
	return &department.Department{ID: int64(len(m.created)), Name: dto.Name}, nil
}

func (m *mockDepartmentService) ListActive() ([]*department.Department, error) {
	return m.active, nil
}

type mockRoleService struct {
	assigned    []role.AssignRoleDTO
	granted     [][2]int64
	enrolled    [][2]int64
	assignments []role.Assignment
	grantErr    error
	enrollErr   error
}

func (m *mockRoleService) Assign(assignerID int64, dto role.AssignRoleDTO) (*role.Assignment, error) {
	m.assigned = append(m.assigned, dto)
	return &role.Assignment{UserID: dto.UserID, Role: role.Role{Name: dto.RoleName}}, nil
}

func (m *mockRoleService) GrantAdmin(assignerID, targetID int64) (*role.Assignment, error) {
	if m.grantErr != nil {
		return nil, m.grantErr
	}
	m.granted = append(m.granted, [2]int64{assignerID, targetID})
	return &role.Assignment{UserID: targetID, Role: role.Role{Name: role.RoleAdmin}}, nil
}

func (m *mockRoleService) Enroll(userID, departmentID int64) (*role.Assignment, error) {
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	m.enrolled = append(m.enrolled, [2]int64{userID, departmentID})
	d := departmentID
	return &role.Assignment{UserID: userID, Role: role.Role{Name: role.RoleEmployee}, DepartmentID: &d}, nil
}

func (m *mockRoleService) Revoke(assignerID int64, dto role.RevokeRoleDTO) error {
	return nil
}

func (m *mockRoleService) AssignmentsForUser(userID int64) ([]role.Assignment, error) {
	return m.assignments, nil
}

type mockAccess struct {
	createErr     error
	cumulativeErr error
	manageUsers   error
	manageDepts   error
	level         int
}

func (m *mockAccess) CanCreateReport(userID int64) error       { return m.createErr }
func (m *mockAccess) CanCreateCumulative(userID int64) error   { return m.cumulativeErr }
func (m *mockAccess) CanManageUsers(actorID int64) error       { return m.manageUsers }
func (m *mockAccess) CanManageDepartments(actorID int64) error { return m.manageDepts }
func (m *mockAccess) ActorLevel(userID int64) int              { return m.level }

type mockChat struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (m *mockChat) Generate(ctx context.Context, userID int64, prompt string, opts *textgen.Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockChat) ClearHistory(userID int64) {}

var _ = Describe("Router", func() {
	var (
		router      *bot.Router
		sender      *mockSender
		users       *mockUserService
		reports     *mockReportService
		departments *mockDepartmentService
		roles       *mockRoleService
		checker     *mockAccess
		chat        *mockChat
	)

	send := func(userID int64, text string) {
		router.HandleUpdate(context.Background(), &bot.Update{
			Message: &bot.Message{
				From: &bot.From{ID: userID, FirstName: "Test"},
				Chat: bot.Chat{ID: userID},
				Text: text,
			},
		})
	}

	BeforeEach(func() {
		sender = &mockSender{}
		users = &mockUserService{users: make(map[int64]*user.User)}
		reports = newMockReportService()
		departments = &mockDepartmentService{active: []*department.Department{
			{ID: 1, Name: "Engineering", IsActive: true},
			{ID: 2, Name: "Operations", IsActive: true},
		}}
		roles = &mockRoleService{}
		checker = &mockAccess{level: role.LevelManager}
		chat = &mockChat{reply: "chat reply"}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		router = bot.NewRouter(users, reports, departments, roles, checker, chat, sender, logger)
	})

	Describe("Command", func() {
		It("should split the name from the arguments", func() {
			name, args := bot.Command("/report 42")
			Expect(name).To(Equal("/report"))
			Expect(args).To(Equal("42"))
		})

		It("should strip the bot mention", func() {
			name, _ := bot.Command("/help@reporting_bot")
			Expect(name).To(Equal("/help"))
		})

		It("should treat plain text as no command", func() {
			name, args := bot.Command("hello there")
			Expect(name).To(BeEmpty())
			Expect(args).To(Equal("hello there"))
		})
	})

	Describe("registration", func() {
		It("should register on /start and point to /help", func() {
			send(10, "/start")

			Expect(users.registered).To(HaveLen(1))
			Expect(users.registered[0].ID).To(Equal(int64(10)))
			Expect(sender.lastText()).To(ContainSubstring("/help"))
		})

		It("should enroll as employee in the chosen department", func() {
			send(10, "/register")
			Expect(sender.lastText()).To(ContainSubstring("Engineering"))
			Expect(sender.lastText()).To(ContainSubstring("Operations"))

			send(10, "2")

			Expect(roles.enrolled).To(ConsistOf([][2]int64{{10, 2}}))
			Expect(sender.lastText()).To(ContainSubstring("Operations"))
			Expect(sender.lastText()).To(ContainSubstring("employee"))
		})

		It("should re-ask on a department id outside the list", func() {
			send(10, "/register")
			send(10, "99")

			Expect(roles.enrolled).To(BeEmpty())
			Expect(sender.lastText()).To(ContainSubstring("not in the list"))

			send(10, "1")
			Expect(roles.enrolled).To(ConsistOf([][2]int64{{10, 1}}))
		})

		It("should not restart enrollment for a user who already holds a role", func() {
			d := int64(1)
			roles.assignments = []role.Assignment{
				{UserID: 10, Role: role.Role{Name: role.RoleManager}, DepartmentID: &d, IsActive: true},
			}

			send(10, "/register")

			Expect(sender.lastText()).To(ContainSubstring("already registered"))
			Expect(roles.enrolled).To(BeEmpty())
		})

		It("should point to an administrator when no departments exist", func() {
			departments.active = nil

			send(10, "/register")

			Expect(users.registered).To(HaveLen(1))
			Expect(sender.lastText()).To(ContainSubstring("administrator"))
		})

		It("should ignore messages from other bots", func() {
			router.HandleUpdate(context.Background(), &bot.Update{
				Message: &bot.Message{
					From: &bot.From{ID: 10, IsBot: true},
					Chat: bot.Chat{ID: 10},
					Text: "/register",
				},
			})

			Expect(users.registered).To(BeEmpty())
			Expect(sender.sent).To(BeEmpty())
		})
	})

	Describe("report wizard", func() {
		It("should walk title, content, type and confirmation", func() {
			send(10, "/create_report")
			Expect(sender.lastText()).To(ContainSubstring("title"))

			send(10, "Weekly infrastructure status")
			Expect(sender.lastText()).To(ContainSubstring("content"))

			send(10, "Everything held together this week.")
			Expect(sender.lastText()).To(ContainSubstring("kind of report"))

			send(10, "weekly")
			Expect(sender.lastText()).To(ContainSubstring("Submit this report?"))

			send(10, "yes")
			Expect(sender.lastText()).To(ContainSubstring("submitted for approval"))
			Expect(reports.created).To(HaveLen(1))
			Expect(reports.created[0].SubmitNow).To(BeTrue())
			Expect(reports.created[0].ReportType).To(Equal("weekly"))
		})

		It("should re-ask on a too-short title", func() {
			send(10, "/create_report")
			send(10, "ab")

			Expect(sender.lastText()).To(ContainSubstring("too short"))
			Expect(reports.created).To(BeEmpty())
		})

		It("should abort on /cancel without creating anything", func() {
			send(10, "/create_report")
			send(10, "A decent title")
			send(10, "/cancel")

			Expect(sender.lastText()).To(Equal("Cancelled."))
			Expect(reports.created).To(BeEmpty())

			// The next plain text goes to chat, not the wizard.
			send(10, "hello")
			Expect(sender.lastText()).To(Equal("chat reply"))
		})

		It("should create exactly one report when the confirmation arrives multiple times at once", func() {
			send(10, "/create_report")
			send(10, "Weekly infrastructure status")
			send(10, "Everything held together this week.")
			send(10, "weekly")

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					send(10, "yes")
				}()
			}
			wg.Wait()

			Expect(reports.created).To(HaveLen(1))
		})

		It("should refuse to start without the create permission", func() {
			checker.createErr = access.ErrNotAuthorized

			send(10, "/create_report")

			Expect(sender.lastText()).ToNot(ContainSubstring("title"))
			send(10, "A decent title")
			Expect(sender.lastText()).To(Equal("chat reply"))
		})
	})

	Describe("decisions", func() {
		It("should approve by id", func() {
			_, err := reports.Create(11, report.CreateReportDTO{Title: "Report", Content: "body"})
			Expect(err).ToNot(HaveOccurred())

			send(10, "/approve_report 1 looks fine")

			Expect(reports.decided).To(ConsistOf("approve"))
			Expect(sender.lastText()).To(ContainSubstring("approved"))
		})

		It("should explain a missing report", func() {
			send(10, "/approve_report 99")

			Expect(sender.lastText()).To(ContainSubstring("not found"))
		})

		It("should show usage on a malformed id", func() {
			send(10, "/approve_report abc")

			Expect(sender.lastText()).To(ContainSubstring("Usage"))
		})
	})

	Describe("cumulative reports", func() {
		It("should gather the period's reports from the aggregation and title", func() {
			send(10, "/create_cumulative monthly March rollup")

			Expect(reports.periodReqs).To(HaveLen(1))
			Expect(reports.periodReqs[0].Aggregation).To(Equal("monthly"))
			Expect(reports.periodReqs[0].Title).To(Equal("March rollup"))
			Expect(sender.lastText()).To(ContainSubstring("Cumulative report"))
			Expect(sender.lastText()).To(ContainSubstring("2 reports"))
		})

		It("should accept a bare period without a title", func() {
			send(10, "/create_cumulative weekly")

			Expect(reports.periodReqs).To(HaveLen(1))
			Expect(reports.periodReqs[0].Title).To(BeEmpty())
		})

		It("should show usage without arguments", func() {
			send(10, "/create_cumulative")

			Expect(reports.periodReqs).To(BeEmpty())
			Expect(sender.lastText()).To(ContainSubstring("Usage"))
		})

		It("should relay the policy block message verbatim", func() {
			reports.cumulativeErr = &textgen.PolicyBlockError{
				Reason:  textgen.FinishReasonSafety,
				Message: textgen.MsgBlockedSafety,
			}

			send(10, "/create_cumulative monthly Rollup")

			Expect(sender.lastText()).To(Equal(textgen.MsgBlockedSafety))
		})
	})

	Describe("free-form chat", func() {
		It("should answer plain text through the chat service", func() {
			send(10, "what reports are due this week?")

			Expect(chat.calls).To(Equal(1))
			Expect(sender.lastText()).To(Equal("chat reply"))
		})

		It("should relay policy blocks with their fixed message", func() {
			chat.err = &textgen.PolicyBlockError{
				Reason:  textgen.FinishReasonRecitation,
				Message: textgen.MsgBlockedRecitation,
			}

			send(10, "recite something")

			Expect(sender.lastText()).To(Equal(textgen.MsgBlockedRecitation))
		})

		It("should apologize on transport failures", func() {
			chat.err = context.DeadlineExceeded

			send(10, "hello")

			Expect(sender.lastText()).To(Equal(textgen.MsgUnavailable))
		})
	})

	Describe("help", func() {
		It("should hide privileged commands from unprivileged users", func() {
			checker.level = role.LevelEmployee
			checker.manageUsers = access.ErrNotAuthorized
			checker.manageDepts = access.ErrNotAuthorized
			checker.cumulativeErr = access.ErrNotAuthorized

			send(10, "/help")

			text := sender.lastText()
			Expect(text).To(ContainSubstring("/create_report"))
			Expect(text).ToNot(ContainSubstring("/approve_report"))
			Expect(text).ToNot(ContainSubstring("/promote"))
			Expect(text).ToNot(ContainSubstring("/create_department"))
		})

		It("should show management commands to admins", func() {
			checker.level = role.LevelAdmin

			send(10, "/help")

			text := sender.lastText()
			Expect(text).To(ContainSubstring("/promote"))
			Expect(text).To(ContainSubstring("/approve_report"))
		})
	})

	Describe("role administration", func() {
		It("should promote with role and department", func() {
			send(1, "/promote 10 manager 2")

			Expect(roles.assigned).To(HaveLen(1))
			Expect(roles.assigned[0].UserID).To(Equal(int64(10)))
			Expect(roles.assigned[0].RoleName).To(Equal(role.RoleManager))
			Expect(roles.assigned[0].DepartmentID).ToNot(BeNil())
			Expect(*roles.assigned[0].DepartmentID).To(Equal(int64(2)))
		})

		It("should grant admin via /createadmin to a registered user", func() {
			users.users[10] = &user.User{ID: 10, FirstName: "Target", IsActive: true}

			send(1, "/createadmin 10")

			Expect(roles.granted).To(ConsistOf([][2]int64{{1, 10}}))
			Expect(sender.lastText()).To(ContainSubstring("administrator"))
		})

		It("should require the admin target to have started the bot", func() {
			send(1, "/createadmin 10")

			Expect(roles.granted).To(BeEmpty())
			Expect(sender.lastText()).To(ContainSubstring("/start"))
		})

		It("should relay a rank denial from the role service", func() {
			users.users[10] = &user.User{ID: 10, IsActive: true}
			roles.grantErr = role.ErrNotAllowed

			send(5, "/createadmin 10")

			Expect(sender.lastText()).To(ContainSubstring("permission"))
		})
	})

	Describe("/my_role", func() {
		It("should show the active role, department and permissions", func() {
			d := int64(1)
			manager := role.Role{Name: role.RoleManager, DisplayName: "Manager", Level: role.LevelManager,
				Permissions: map[string]bool{role.PermApprove: true, role.PermCreateReport: true}}
			roles.assignments = []role.Assignment{
				{UserID: 10, Role: manager, DepartmentID: &d, IsActive: true},
			}

			send(10, "/my_role")

			text := sender.lastText()
			Expect(text).To(ContainSubstring("Manager"))
			Expect(text).To(ContainSubstring("Engineering"))
			Expect(text).To(ContainSubstring(role.PermApprove))
		})

		It("should point unassigned users to /register", func() {
			send(10, "/my_role")

			Expect(sender.lastText()).To(ContainSubstring("/register"))
		})

		It("should skip revoked assignments", func() {
			roles.assignments = []role.Assignment{
				{UserID: 10, Role: role.Role{Name: role.RoleAdmin, DisplayName: "Administrator"}, IsActive: false},
			}

			send(10, "/my_role")

			Expect(sender.lastText()).ToNot(ContainSubstring("Administrator"))
			Expect(sender.lastText()).To(ContainSubstring("/register"))
		})
	})

	Describe("unknown commands", func() {
		It("should point to /help", func() {
			send(10, "/frobnicate")

			Expect(strings.ToLower(sender.lastText())).To(ContainSubstring("/help"))
		})
	})
})
