package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/repository"
	"github.com/noah-isme/student-hub-api/internal/service"
	"github.com/noah-isme/student-hub-api/pkg/cache"
	"github.com/noah-isme/student-hub-api/pkg/config"
	"github.com/noah-isme/student-hub-api/pkg/database"
	"github.com/noah-isme/student-hub-api/pkg/docstore"
	"github.com/noah-isme/student-hub-api/pkg/logger"
	"github.com/noah-isme/student-hub-api/pkg/storage"
)

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

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	// Registrations change the student totals the API caches.
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, analytics cache not invalidated", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), nil, cfg.Analytics.CacheTTL, logr, redisClient != nil)

	users := repository.NewUserRepository(db)
	validate := validator.New()
	authSvc := service.NewAuthService(users, cacheSvc, validate, logr, service.AuthConfig{
		Secret:            cfg.JWT.Secret,
		Algorithm:         cfg.JWT.Algorithm,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	cli := &commandLine{
		users:    authSvc,
		accounts: users,
		migrate: func(ctx context.Context) error {
			return database.Migrate(ctx, db)
		},
		out: os.Stdout,
	}
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		cli.activities = seedActivities(ctx, cfg, db, cacheSvc, logr)
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logr.Fatal("command failed", zap.Error(err))
	}
}

// seedActivities returns nil when Elasticsearch is unreachable; seeding then covers users only.
func seedActivities(ctx context.Context, cfg *config.Config, db *sqlx.DB, cacheSvc *service.CacheService, logr *zap.Logger) activitySubmitter {
	client, err := docstore.NewElasticsearch(ctx, cfg.DocStore)
	if err != nil {
		logr.Warn("elasticsearch unavailable, skipping sample activity", zap.Error(err))
		return nil
	}
	store := repository.NewElasticActivityRepository(client, cfg.DocStore.Index)
	if err := store.EnsureIndex(ctx); err != nil {
		logr.Warn("activity index setup failed, skipping sample activity", zap.Error(err))
		return nil
	}
	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Warn("upload directory unavailable, skipping sample activity", zap.Error(err))
		return nil
	}
	return service.NewActivityService(store, repository.NewUserRepository(db), files, cacheSvc, nil, validator.New(), logr, service.ActivityConfig{
		MaxProofBytes: cfg.Uploads.MaxFileSizeBytes,
	})
}
