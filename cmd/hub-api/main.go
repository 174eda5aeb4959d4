package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-hub-api/api/swagger"
	"github.com/noah-isme/student-hub-api/internal/handler"
	"github.com/noah-isme/student-hub-api/internal/repository"
	"github.com/noah-isme/student-hub-api/internal/router"
	"github.com/noah-isme/student-hub-api/internal/service"
	"github.com/noah-isme/student-hub-api/pkg/cache"
	"github.com/noah-isme/student-hub-api/pkg/config"
	"github.com/noah-isme/student-hub-api/pkg/database"
	"github.com/noah-isme/student-hub-api/pkg/docstore"
	"github.com/noah-isme/student-hub-api/pkg/jobs"
	"github.com/noah-isme/student-hub-api/pkg/logger"
	"github.com/noah-isme/student-hub-api/pkg/storage"
)

// @title Smart Student Hub API
// @version 1.0.0
// @description Student records, extracurricular activity approvals and admin analytics
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	activityStore, docProbe := openActivityStore(ctx, cfg, logr)
	activityStore = service.InstrumentActivityStore(activityStore, metricsSvc)

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	academicRepo := repository.NewAcademicRepository(db)

	authSvc := service.NewAuthService(userRepo, cacheSvc, validate, logr, service.AuthConfig{
		Secret:            cfg.JWT.Secret,
		Algorithm:         cfg.JWT.Algorithm,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	activitySvc := service.NewActivityService(activityStore, userRepo, files, cacheSvc, metricsSvc, validate, logr, service.ActivityConfig{
		EnforceDecisionDepartment: cfg.Activities.EnforceDecisionDepartment,
		MaxProofBytes:             cfg.Uploads.MaxFileSizeBytes,
	})
	academicSvc := service.NewAcademicService(academicRepo, userRepo, validate, logr)
	analyticsSvc := service.NewAnalyticsService(userRepo, activityStore, cacheSvc, metricsSvc, logr)

	auditTrail := service.NewAuditTrail(userRepo, logr, jobs.Config{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	})
	auditTrail.Start(context.Background())

	checks := []handler.ReadinessCheck{
		{Name: "postgres", Probe: db.PingContext},
		{Name: "redis", Optional: true, Probe: cacheRepo.Ping},
	}
	if docProbe != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "elasticsearch", Probe: docProbe})
	}

	engine := router.New(router.Options{
		Env:            cfg.Env,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logr,
		MetricsService: metricsSvc,
		Resolver:       authSvc,
		Audit:          auditTrail,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Academic:  handler.NewAcademicHandler(academicSvc),
		Activity:  handler.NewActivityHandler(activitySvc, cfg.Uploads.MaxFileSizeBytes),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc, checks...),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	auditTrail.Stop()
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// openActivityStore prefers Elasticsearch and falls back to the process-local store so the API
// still serves when the document store is down. The returned probe is nil for the fallback.
func openActivityStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.ActivityStore, func(context.Context) error) {
	client, err := docstore.NewElasticsearch(ctx, cfg.DocStore)
	if err != nil {
		logr.Warn("elasticsearch unavailable, using in-memory activity store", zap.Error(err))
		return repository.NewMemoryActivityRepository(), nil
	}

	store := repository.NewElasticActivityRepository(client, cfg.DocStore.Index)
	if err := store.EnsureIndex(ctx); err != nil {
		logr.Warn("activity index setup failed, using in-memory activity store", zap.Error(err))
		return repository.NewMemoryActivityRepository(), nil
	}

	probe := func(ctx context.Context) error {
		res, err := client.Ping(client.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close() //nolint:errcheck
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping: %s", res.Status())
		}
		return nil
	}
	return store, probe
}
