package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/helix-hms/helix-hms/internal/app"
	"github.com/helix-hms/helix-hms/internal/appointments"
	"github.com/helix-hms/helix-hms/internal/auth"
	"github.com/helix-hms/helix-hms/internal/departments"
	"github.com/helix-hms/helix-hms/internal/medrecords"
	"github.com/helix-hms/helix-hms/internal/observability"
	"github.com/helix-hms/helix-hms/internal/patients"
	"github.com/helix-hms/helix-hms/internal/platform/db"
	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
	"github.com/helix-hms/helix-hms/internal/users"
	"github.com/helix-hms/helix-hms/jobs"
)

type patientDirectory struct {
	repo *patients.Repository
}

func (d patientDirectory) PatientExists(ctx context.Context, id int64) (bool, error) {
	_, err := d.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type doctorDirectory struct {
	repo *users.Repository
}

func (d doctorDirectory) DoctorExists(ctx context.Context, id int64) (bool, error) {
	_, err := d.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacRepo := rbac.NewRepository(dbpool)
	permCache := rbac.NewCache(rbacRepo, redisClient, cfg.PermissionCacheTTL)
	rbacService := rbac.NewService(rbacRepo, permCache)
	evaluator := rbac.NewEvaluator(permCache)
	rbacMiddleware := rbac.Middleware{Evaluator: evaluator, Logger: logger, Metrics: metrics}

	usersRepo := users.NewRepository(dbpool)

	seeder := rbac.NewSeeder(rbacRepo, usersRepo, logger)
	if err := seeder.EnsureInitialized(ctx); err != nil {
		logger.Error("bootstrap seed", slog.Any("error", err))
		os.Exit(1)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, rbacService, tokens)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := &auth.Middleware{Service: authService, Tokens: tokens, Logger: logger}

	usersService := users.NewService(usersRepo, rbacService, evaluator)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware, auditLogger)

	patientsRepo := patients.NewRepository(dbpool)
	patientsService := patients.NewService(patientsRepo)
	patientsHandler := patients.NewHandler(logger, patientsService, rbacMiddleware)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	appointmentsRepo := appointments.NewRepository(dbpool)
	appointmentsService := appointments.NewService(
		appointmentsRepo,
		patientDirectory{repo: patientsRepo},
		doctorDirectory{repo: usersRepo},
		jobClient,
		logger,
	)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService, rbacMiddleware)

	recordsRepo := medrecords.NewRepository(dbpool)
	recordsService := medrecords.NewService(recordsRepo, patientDirectory{repo: patientsRepo}, evaluator)
	recordsHandler := medrecords.NewHandler(logger, recordsService, rbacMiddleware, auditLogger)

	departmentsRepo := departments.NewRepository(dbpool)
	departmentsService := departments.NewService(departmentsRepo)
	departmentsHandler := departments.NewHandler(logger, departmentsService, rbacMiddleware)

	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware, auditLogger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AuthMiddleware:      authMiddleware,
		AuthHandler:         authHandler,
		UsersHandler:        usersHandler,
		PatientsHandler:     patientsHandler,
		AppointmentsHandler: appointmentsHandler,
		RecordsHandler:      recordsHandler,
		DepartmentsHandler:  departmentsHandler,
		RBACHandler:         rbacHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
