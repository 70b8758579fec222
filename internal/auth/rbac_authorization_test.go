package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/role"
)

var _ = ginkgo.Describe("RBACAuthorization", func() {
	var (
		ra        *RBACAuthorization
		nextCalls int
		next      http.Handler
	)

	ginkgo.BeforeEach(func() {
		ra = NewRBACAuthorization(slog.New(slog.NewTextHandler(ginkgo.GinkgoWriter, nil)))
		nextCalls = 0
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalls++
			w.WriteHeader(http.StatusOK)
		})
	})

	serve := func(mw func(http.Handler) http.Handler, user *internal.SessionUser) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		if user != nil {
			req = req.WithContext(internal.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec
	}

	ginkgo.Describe("RequireManager", func() {
		ginkgo.It("should reject requests without a session user", func() {
			rec := serve(ra.RequireManager(), nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(nextCalls).To(gomega.Equal(0))
		})

		ginkgo.It("should reject users below the manager rank", func() {
			rec := serve(ra.RequireManager(), &internal.SessionUser{
				ID:    1,
				Level: role.LevelEmployee,
			})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(nextCalls).To(gomega.Equal(0))
		})

		ginkgo.It("should pass managers and above through", func() {
			rec := serve(ra.RequireManager(), &internal.SessionUser{
				ID:    2,
				Level: role.LevelManager,
			})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(nextCalls).To(gomega.Equal(1))

			rec = serve(ra.RequireManager(), &internal.SessionUser{
				ID:    3,
				Level: role.LevelAdmin,
			})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Describe("RequireApprove", func() {
		ginkgo.It("should reject users without the approve permission", func() {
			rec := serve(ra.RequireApprove(), &internal.SessionUser{
				ID:          4,
				Level:       role.LevelEmployee,
				Permissions: []string{role.PermCreateReport},
			})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should pass users holding the approve permission", func() {
			rec := serve(ra.RequireApprove(), &internal.SessionUser{
				ID:          5,
				Level:       role.LevelManager,
				Permissions: []string{role.PermApprove},
			})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
