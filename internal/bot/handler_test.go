package bot_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/report-management/internal/bot"
	"github.com/frahmantamala/report-management/internal/user"
)

var _ = Describe("Webhook Handler", func() {
	var (
		handler *bot.Handler
		sender  *mockSender
		users   *mockUserService
	)

	BeforeEach(func() {
		sender = &mockSender{}
		users = &mockUserService{users: make(map[int64]*user.User)}
		reports := newMockReportService()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		router := bot.NewRouter(users, reports, &mockDepartmentService{}, &mockRoleService{}, &mockAccess{}, &mockChat{reply: "hi"}, sender, logger)
		handler = bot.NewHandler(router, "topsecret")
	})

	post := func(body, secret string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/webhook", strings.NewReader(body))
		if secret != "" {
			req.Header.Set("X-Bot-Api-Secret-Token", secret)
		}
		rec := httptest.NewRecorder()
		handler.Webhook(rec, req)
		return rec
	}

	It("should reject a missing secret token", func() {
		rec := post(`{}`, "")

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(sender.sent).To(BeEmpty())
	})

	It("should reject a wrong secret token", func() {
		rec := post(`{}`, "wrong")

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("should reject a malformed payload", func() {
		rec := post(`{not json`, "topsecret")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should process a valid update and acknowledge", func() {
		body := `{"update_id":1,"message":{"message_id":5,"from":{"id":10,"first_name":"Test"},"chat":{"id":10,"type":"private"},"text":"/register"}}`

		rec := post(body, "topsecret")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(users.registered).To(HaveLen(1))
		Expect(sender.sent).To(HaveLen(1))
		Expect(sender.sent[0].ChatID).To(Equal(int64(10)))
	})

	It("should acknowledge an update without a message", func() {
		rec := post(`{"update_id":2}`, "topsecret")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sender.sent).To(BeEmpty())
	})
})
