package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/report-management/internal"
	"github.com/frahmantamala/report-management/internal/access"
	"github.com/frahmantamala/report-management/internal/admin"
	"github.com/frahmantamala/report-management/internal/audit"
	auditPostgres "github.com/frahmantamala/report-management/internal/audit/postgres"
	"github.com/frahmantamala/report-management/internal/auth"
	authPostgres "github.com/frahmantamala/report-management/internal/auth/postgres"
	"github.com/frahmantamala/report-management/internal/bot"
	"github.com/frahmantamala/report-management/internal/core/events"
	"github.com/frahmantamala/report-management/internal/department"
	departmentPostgres "github.com/frahmantamala/report-management/internal/department/postgres"
	"github.com/frahmantamala/report-management/internal/report"
	reportPostgres "github.com/frahmantamala/report-management/internal/report/postgres"
	"github.com/frahmantamala/report-management/internal/role"
	rolePostgres "github.com/frahmantamala/report-management/internal/role/postgres"
	"github.com/frahmantamala/report-management/internal/textgen"
	"github.com/frahmantamala/report-management/internal/transport/rest"
	"github.com/frahmantamala/report-management/internal/transport/swagger"
	"github.com/frahmantamala/report-management/internal/user"
	userPostgres "github.com/frahmantamala/report-management/internal/user/postgres"
	"github.com/frahmantamala/report-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server for the bot webhook and the admin panel API`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger

	EventBus  *events.EventBus
	BotSender *bot.Client

	Handlers rest.Handlers
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.BotSender.Shutdown()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	if err := swagger.ValidateSpec("./api/openapi3.yml"); err != nil {
		lg.Warn("OpenAPI spec validation failed, Swagger UI may be broken", "error", err)
	}

	sqlxDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGormDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	// Repositories
	userRepo := userPostgres.NewUserRepository(gormDB)
	roleRepo := rolePostgres.NewRoleRepository(gormDB)
	departmentRepo := departmentPostgres.NewDepartmentRepository(gormDB)
	reportRepo := reportPostgres.NewReportRepository(gormDB)
	auditRepo := auditPostgres.NewAuditRepository(gormDB)
	authRepo := authPostgres.NewRepository(sqlxDB)

	// Access control sits under every service
	accessControl := access.New(userRepo, roleRepo, departmentRepo, lg)

	// Audit trail consumes domain events
	auditService := audit.NewService(auditRepo, lg)
	auditService.RegisterSubscribers(eventBus)

	// Domain services
	userService := user.NewService(userRepo, accessControl, eventBus, config.Security.BCryptCost, lg)
	roleService := role.NewService(roleRepo, accessControl, eventBus, lg)
	departmentService := department.NewService(departmentRepo, accessControl, lg)

	textgenClient := textgen.NewClient(textgen.Config{
		BaseURL:     config.TextGen.BaseURL,
		APIKey:      config.TextGen.APIKey,
		Model:       config.TextGen.Model,
		Timeout:     config.TextGen.Timeout,
		Temperature: config.TextGen.Temperature,
		MaxTokens:   config.TextGen.MaxTokens,
		HistorySize: config.TextGen.HistorySize,
	}, lg)

	reportService := report.NewService(reportRepo, accessControl, textgenClient, eventBus, lg)

	adminService := admin.NewService(userRepo, departmentRepo, reportRepo, lg)

	// Auth for the admin panel
	tokenGen := auth.NewJWTTokenGenerator(config.Security.SessionSecret, config.Security.SessionDuration)
	authService := auth.NewService(authRepo, tokenGen, config.Security.BCryptCost)
	rbac := auth.NewRBACAuthorization(lg)

	// Bot front-end
	botSender := bot.NewClient(bot.ClientConfig{
		APIURL:         config.Bot.APIURL,
		Token:          config.Bot.Token,
		SendTimeout:    config.Bot.SendTimeout,
		MaxWorkers:     config.Bot.MaxWorkers,
		JobQueueSize:   config.Bot.JobQueueSize,
		WorkerPoolSize: config.Bot.WorkerPoolSize,
	}, lg)
	botRouter := bot.NewRouter(userService, reportService, departmentService, roleService, accessControl, textgenClient, botSender, lg)

	// Decision outcomes are pushed back to submitters over chat
	bot.NewNotifier(reportRepo, botSender, lg).RegisterSubscribers(eventBus)

	handlers := rest.Handlers{
		Auth:       auth.NewHandler(authService),
		RBAC:       rbac,
		User:       user.NewHandler(userService),
		Department: department.NewHandler(departmentService),
		Role:       role.NewHandler(roleService),
		Report:     report.NewHandler(reportService),
		Admin:      admin.NewHandler(adminService, auditService),
		Bot:        bot.NewHandler(botRouter, config.Bot.WebhookSecret),
	}

	return &Dependencies{
		Config:    config,
		Logger:    lg,
		DB:        sqlxDB,
		GormDB:    gormDB,
		Router:    chi.NewRouter(),
		EventBus:  eventBus,
		BotSender: botSender,
		Handlers:  handlers,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGormDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Source), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}
