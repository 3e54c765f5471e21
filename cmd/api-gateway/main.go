package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-finance-api/api/swagger"
	"github.com/noah-isme/school-finance-api/internal/bulk"
	"github.com/noah-isme/school-finance-api/internal/handler"
	"github.com/noah-isme/school-finance-api/internal/middleware"
	"github.com/noah-isme/school-finance-api/internal/models"
	"github.com/noah-isme/school-finance-api/internal/repository"
	"github.com/noah-isme/school-finance-api/internal/service"
	"github.com/noah-isme/school-finance-api/pkg/cache"
	"github.com/noah-isme/school-finance-api/pkg/config"
	"github.com/noah-isme/school-finance-api/pkg/database"
	"github.com/noah-isme/school-finance-api/pkg/export"
	"github.com/noah-isme/school-finance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-finance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-finance-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-finance-api/pkg/storage"
)

// @title School Finance API
// @version 1.0.0
// @description Fee structures, payments, payroll ledger and bulk finance operations
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	salaryRepo := repository.NewSalaryRepository(db)
	statementRepo := repository.NewStatementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Fees.SummaryCacheTTL, logr, redisClient != nil)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-finance-api",
		SingleSession:      cfg.JWT.SingleSession,
	})

	feePlanSvc := service.NewFeePlanService(service.FeePlanServiceParams{
		Structures: feeRepo,
		Classes:    classRepo,
		Cache:      cacheSvc,
		Logger:     logr,
		Config: service.FeePlanServiceConfig{
			MaxComponentAmount: cfg.Fees.MaxComponentAmount,
			CategoryMaxima:     cfg.Fees.CategoryMaxima,
		},
	})

	feeSvc := service.NewFeeService(service.FeeServiceParams{
		Records:  feeRepo,
		Payments: paymentRepo,
		Cache:    cacheSvc,
		Metrics:  metricsSvc,
		Logger:   logr,
		Config:   service.FeeServiceConfig{SummaryCacheTTL: cfg.Fees.SummaryCacheTTL},
	})

	payrollSvc := service.NewPayrollService(service.PayrollServiceParams{
		Salaries: salaryRepo,
		Metrics:  metricsSvc,
		Logger:   logr,
		Config:   service.PayrollServiceConfig{MaxMonthlySalary: cfg.Payroll.MaxMonthlySalary},
	})

	bulkSvc := service.NewBulkOpsService(service.BulkOpsServiceParams{
		Runner:     bulk.NewRunner(cfg.Bulk.Concurrency, logr),
		Students:   studentRepo,
		Users:      userRepo,
		Classes:    classRepo,
		Structures: feeRepo,
		Records:    feeRepo,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		Logger:     logr,
	})

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Classes: classRepo,
		Fees:    feeSvc,
		Payroll: payrollSvc,
		Cache:   cacheSvc,
		Logger:  logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:              cfg.Dashboard.CacheTTL,
			LowCollectionAlertPct: cfg.Dashboard.LowCollectionAlertPct,
		},
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var statementSvc *service.StatementService
	if cfg.Statements.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Statements.StorageDir)
		if err != nil {
			sugar.Fatalw("failed to init statement storage", "error", err)
		}
		exportSvc := service.NewExportService(service.ExportServiceParams{
			Records:  feeRepo,
			Payments: paymentRepo,
			Salaries: salaryRepo,
			Storage:  fileStore,
			Signer:   storage.NewSignedURLSigner(cfg.Statements.SignedURLSecret, cfg.Statements.SignedURLTTL),
			CSV:      export.NewCSVExporter(),
			PDF:      export.NewPDFExporter(),
			Logger:   logr,
			Config: service.ExportConfig{
				APIPrefix: cfg.APIPrefix,
				ResultTTL: cfg.Statements.SignedURLTTL,
			},
		})
		statementSvc = service.NewStatementService(service.StatementServiceParams{
			Repo:    statementRepo,
			Export:  exportSvc,
			Metrics: metricsSvc,
			Logger:  logr,
			Config: service.StatementServiceConfig{
				WorkerConcurrency: cfg.Statements.WorkerConcurrency,
				WorkerRetries:     cfg.Statements.WorkerRetries,
				CleanupInterval:   cfg.Statements.CleanupInterval,
				ResultTTL:         cfg.Statements.SignedURLTTL,
			},
		})
		statementSvc.Start(rootCtx)
		defer statementSvc.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	feeHandler := handler.NewFeeHandler(feePlanSvc, feeSvc)
	payrollHandler := handler.NewPayrollHandler(payrollSvc)
	bulkHandler := handler.NewBulkHandler(bulkSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	fees := api.Group("/fees", middleware.JWT(authSvc))
	{
		fees.POST("/structures", middleware.FinanceStaff(), feeHandler.UpsertStructure)
		fees.GET("/structures", middleware.RequireRoles(models.RolePrincipal, models.RoleBursar, models.RoleTeacher), feeHandler.ActiveStructure)
		fees.GET("/records", feeHandler.ListRecords)
		fees.GET("/records/:id", feeHandler.RecordDetail)
		fees.POST("/records/:id/payments", middleware.FinanceStaff(), feeHandler.Pay)
		fees.GET("/classes/:id/summary", middleware.RequireRoles(models.RolePrincipal, models.RoleBursar, models.RoleTeacher), feeHandler.ClassSummary)
	}

	payroll := api.Group("/payroll", middleware.JWT(authSvc), middleware.FinanceStaff())
	{
		payroll.GET("/summary", payrollHandler.Summary)
		payroll.GET("/salaries", payrollHandler.List)
		payroll.POST("/salaries", payrollHandler.Add)
		payroll.PUT("/salaries/:id", payrollHandler.EditSalary)
		payroll.POST("/salaries/:id/process", payrollHandler.ProcessOne)
		payroll.POST("/salaries/:id/undo", payrollHandler.UndoOne)
		payroll.POST("/process", payrollHandler.ProcessAll)
		payroll.POST("/undo", payrollHandler.UndoAll)
	}

	bulkRoutes := api.Group("/bulk", middleware.JWT(authSvc), middleware.FinanceStaff())
	{
		bulkRoutes.POST("/students/activate", bulkHandler.ActivateStudents)
		bulkRoutes.POST("/fees/generate", bulkHandler.GenerateFees)
		bulkRoutes.POST("/users/active", middleware.RequireRoles(models.RolePrincipal), bulkHandler.SetUsersActive)
	}

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard/finance", middleware.JWT(authSvc), middleware.FinanceStaff(), dashboardHandler.Finance)
	}

	if statementSvc != nil {
		statementHandler := handler.NewStatementHandler(statementSvc)
		statements := api.Group("/statements")
		{
			// Download is token-authenticated, the rest requires a session.
			statements.GET("/download/:token", statementHandler.Download)
			statements.POST("", middleware.JWT(authSvc), middleware.FinanceStaff(), statementHandler.Queue)
			statements.GET("", middleware.JWT(authSvc), statementHandler.List)
			statements.GET("/:id", middleware.JWT(authSvc), statementHandler.Status)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}
