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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nav-in27/timetable-generator/api/swagger"
	"github.com/nav-in27/timetable-generator/internal/engine"
	"github.com/nav-in27/timetable-generator/internal/handler"
	"github.com/nav-in27/timetable-generator/internal/middleware"
	"github.com/nav-in27/timetable-generator/internal/repository"
	"github.com/nav-in27/timetable-generator/internal/service"
	"github.com/nav-in27/timetable-generator/pkg/cache"
	"github.com/nav-in27/timetable-generator/pkg/config"
	"github.com/nav-in27/timetable-generator/pkg/database"
	"github.com/nav-in27/timetable-generator/pkg/logger"
	corsmiddleware "github.com/nav-in27/timetable-generator/pkg/middleware/cors"
	reqidmiddleware "github.com/nav-in27/timetable-generator/pkg/middleware/requestid"
	"github.com/nav-in27/timetable-generator/pkg/storage"
)

// @title Timetable Generator API
// @version 1.0.0
// @description Automated weekly timetable generation, substitution matching and exports
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Views fall back to direct reads without Redis.
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	cohortRepo := repository.NewCohortRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	basketRepo := repository.NewElectiveBasketRepository(db)
	fixedSlotRepo := repository.NewFixedSlotRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	runRepo := repository.NewGenerationRunRepository(db)
	substitutionRepo := repository.NewSubstitutionRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, true)
	}

	engineCfg := engine.Config{
		Days:          cfg.Engine.Days,
		PeriodsPerDay: cfg.Engine.PeriodsPerDay,
		LabBlocks:     cfg.Engine.LabBlocks,
		OverflowRatio: cfg.Engine.OverflowRatio,
		Seed:          cfg.Engine.Seed,
	}
	matchWeights := engine.MatchWeights{
		SubjectMatch:  cfg.Substitution.SubjectMatchWeight,
		LoadBalance:   cfg.Substitution.LoadBalanceWeight,
		Effectiveness: cfg.Substitution.EffectivenessWeight,
		Experience:    cfg.Substitution.ExperienceWeight,
	}

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	teacherSvc := service.NewTeacherService(teacherRepo, subjectRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, basketRepo, nil, logr)
	cohortSvc := service.NewCohortService(cohortRepo, nil, logr)
	roomSvc := service.NewRoomService(roomRepo, nil, logr)
	basketSvc := service.NewElectiveBasketService(basketRepo, subjectRepo, nil, logr)

	generationSvc := service.NewGenerationService(
		teacherRepo,
		subjectRepo,
		cohortRepo,
		roomRepo,
		basketRepo,
		fixedSlotRepo,
		assignmentRepo,
		allocationRepo,
		runRepo,
		db,
		engineCfg,
		cacheSvc,
		metricsSvc,
		nil,
		logr,
	)
	fixedSlotSvc := service.NewFixedSlotService(fixedSlotRepo, generationSvc, engineCfg, nil, logr)
	substitutionSvc := service.NewSubstitutionService(
		substitutionRepo,
		allocationRepo,
		teacherRepo,
		engineCfg,
		matchWeights,
		metricsSvc,
		nil,
		logr,
	)
	timetableSvc := service.NewTimetableService(
		allocationRepo,
		subjectRepo,
		teacherRepo,
		roomRepo,
		substitutionRepo,
		cacheSvc,
		cfg.Timetable.CacheTTL,
		logr,
	)

	exportStore, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.JWT.Secret, 24*time.Hour)
	exportSvc := service.NewExportService(timetableSvc, exportStore, exportSigner, service.ExportConfig{}, nil, logr)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	exportSvc.Start(workerCtx)
	defer stopWorkers()
	defer exportSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Subjects:      handler.NewSubjectHandler(subjectSvc),
		Cohorts:       handler.NewCohortHandler(cohortSvc),
		Rooms:         handler.NewRoomHandler(roomSvc),
		Baskets:       handler.NewElectiveBasketHandler(basketSvc),
		Generation:    handler.NewGenerationHandler(generationSvc),
		FixedSlots:    handler.NewFixedSlotHandler(fixedSlotSvc),
		Timetables:    handler.NewTimetableHandler(timetableSvc),
		Substitutions: handler.NewSubstitutionHandler(substitutionSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	}, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
