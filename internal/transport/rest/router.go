package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/report-management/internal/admin"
	"github.com/frahmantamala/report-management/internal/auth"
	"github.com/frahmantamala/report-management/internal/bot"
	"github.com/frahmantamala/report-management/internal/department"
	"github.com/frahmantamala/report-management/internal/report"
	"github.com/frahmantamala/report-management/internal/role"
	"github.com/frahmantamala/report-management/internal/transport/middleware"
	"github.com/frahmantamala/report-management/internal/transport/swagger"
	"github.com/frahmantamala/report-management/internal/user"
)

type Handlers struct {
	Auth       *auth.Handler
	RBAC       *auth.RBACAuthorization
	User       *user.Handler
	Department *department.Handler
	Role       *role.Handler
	Report     *report.Handler
	Admin      *admin.Handler
	Bot        *bot.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi3.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match the OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Chat platform pushes updates here; authenticated by the webhook
		// secret header, not by a session.
		if h.Bot != nil {
			r.Post("/bot/webhook", h.Bot.Webhook)
		}

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/logout", h.Auth.Logout)
			})

			// Protected routes that require a panel session
			r.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)

				pr.Get("/auth/me", h.Auth.Me)

				if h.Admin != nil {
					pr.Group(func(sr chi.Router) {
						sr.Use(h.RBAC.RequireManager())
						sr.Get("/stats", h.Admin.GetStats)
					})
					pr.Group(func(ar chi.Router) {
						ar.Use(h.RBAC.RequireAdmin())
						ar.Get("/audit", h.Admin.GetAuditLog)
					})
				}

				if h.Report != nil {
					pr.Route("/reports", func(rr chi.Router) {
						rr.Post("/", h.Report.CreateReport)
						rr.Get("/", h.Report.ListReports)
						rr.Get("/{id}", h.Report.GetReport)
						rr.Post("/{id}/submit", h.Report.SubmitReport)
						rr.Get("/{id}/comments", h.Report.ListComments)
						rr.Post("/{id}/comments", h.Report.AddComment)
						rr.Get("/{id}/approvals", h.Report.ListApprovals)

						rr.Group(func(mr chi.Router) {
							mr.Use(h.RBAC.RequireApprove())
							mr.Patch("/{id}/approve", h.Report.ApproveReport)
							mr.Patch("/{id}/reject", h.Report.RejectReport)
						})

						rr.Group(func(cr chi.Router) {
							cr.Use(h.RBAC.RequireCreateCumulative())
							cr.Post("/cumulative", h.Report.CreateCumulative)
						})
					})
				}

				if h.Department != nil {
					pr.Route("/departments", func(dr chi.Router) {
						dr.Get("/", h.Department.ListDepartments)
						dr.Get("/{id}", h.Department.GetDepartment)

						dr.Group(func(mr chi.Router) {
							mr.Use(h.RBAC.RequireManageDepartments())
							mr.Post("/", h.Department.CreateDepartment)
							mr.Patch("/{id}", h.Department.UpdateDepartment)
							mr.Delete("/{id}", h.Department.DeactivateDepartment)
						})
					})
				}

				if h.User != nil {
					pr.Route("/users", func(ur chi.Router) {
						ur.Use(h.RBAC.RequireManageUsers())
						ur.Get("/", h.User.ListUsers)
						ur.Get("/{id}", h.User.GetUser)
						ur.Post("/{id}/deactivate", h.User.DeactivateUser)
						ur.Post("/{id}/activate", h.User.ActivateUser)
						ur.Post("/{id}/credentials", h.User.SetCredentials)
						if h.Role != nil {
							ur.Get("/{id}/roles", h.Role.UserAssignments)
						}
					})
				}

				if h.Role != nil {
					pr.Route("/roles", func(rr chi.Router) {
						rr.Get("/", h.Role.ListRoles)
						rr.Group(func(mr chi.Router) {
							mr.Use(h.RBAC.RequireManageUsers())
							mr.Post("/assign", h.Role.AssignRole)
							mr.Post("/revoke", h.Role.RevokeRole)
						})
					})
				}
			})
		}
	})
}
