package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brightpost/brightpost-backend/internal/config"
	"github.com/brightpost/brightpost-backend/internal/domain"
	"github.com/brightpost/brightpost-backend/internal/handler"
	"github.com/brightpost/brightpost-backend/internal/middleware"
	"github.com/brightpost/brightpost-backend/internal/repository"
	"github.com/brightpost/brightpost-backend/internal/routes"
	"github.com/brightpost/brightpost-backend/internal/service"
	pkgcache "github.com/brightpost/brightpost-backend/pkg/cache"
	pkgjwt "github.com/brightpost/brightpost-backend/pkg/jwt"
	pkglogger "github.com/brightpost/brightpost-backend/pkg/logger"
	pkgredis "github.com/brightpost/brightpost-backend/pkg/redis"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	logger := pkglogger.GetLogger()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Redis is optional: without it client caching and dispatch locks
	// degrade gracefully
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache")
		redisClient = nil
	}
	cacheService := pkgcache.NewService(redisClient)

	// Repositories
	contentRepo := repository.NewContentRepository(db)
	clientRepo := repository.NewClientRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Adapters
	textGen := service.NewTextGenerator(
		cfg.TextGen.BaseURL, cfg.TextGen.APIKey, cfg.TextGen.Model,
		time.Duration(cfg.TextGen.TimeoutSeconds)*time.Second)
	imageGen := service.NewImageGenerator(
		cfg.ImageGen.TemplateURL, cfg.ImageGen.TemplateAPIKey, cfg.ImageGen.DefaultTemplateID,
		cfg.ImageGen.PromptURL, cfg.ImageGen.PromptAPIKey,
		time.Duration(cfg.ImageGen.TimeoutSeconds)*time.Second)
	schedulerClient := service.NewSchedulerClient(
		cfg.Scheduler.BaseURL, time.Duration(cfg.Scheduler.TimeoutSeconds)*time.Second)
	outcomeLogger := service.NewOutcomeLogger(
		cfg.PublishLog.RemoteURL, cfg.PublishLog.APIKey, cfg.PublishLog.LocalPath)
	exportWriter := service.NewExportWriter(cfg.Pipeline.ExportDir)

	// Services
	notifier := service.NewNotifier(notificationRepo)
	resolver := service.NewSourceResolver(contentRepo, cfg.Pipeline.MediaUsageThreshold)
	dispatcher := service.NewDispatcher(
		contentRepo, clientRepo, schedulerClient, exportWriter, outcomeLogger,
		notifier, cacheService,
		service.SchedulerCredentials{
			APIKey:      cfg.Scheduler.APIKey,
			WorkspaceID: cfg.Scheduler.WorkspaceID,
		},
		cfg.Pipeline.MaxRetries, cfg.RetryDelay())
	pipeline := service.NewPipeline(
		contentRepo, clientRepo, resolver, textGen, imageGen, notifier, dispatcher,
		cfg.Pipeline.MaxRetries, cfg.Pipeline.ImageRetries, cfg.RetryDelay(),
		cfg.ImageGen.FallbackImage)
	clientService := service.NewClientService(clientRepo, cacheService)
	notificationService := service.NewNotificationService(notificationRepo)
	recycler := service.NewRecycler(
		contentRepo, clientRepo, pipeline, notifier,
		cfg.RecycleAfter(), cfg.Pipeline.RecycleBatchLimit, cfg.ApprovalTimeout())

	tokenManager := pkgjwt.NewManager(
		cfg.Approval.LinkSecret,
		time.Duration(cfg.Approval.LinkTTLHours)*time.Hour)

	// Background sweeps
	scheduler := cron.New()
	if err := recycler.RegisterCron(scheduler); err != nil {
		log.Fatalf("failed to register cron jobs: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	router.Use(cors.New(corsConfig))
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	routes.Setup(router,
		handler.NewContentHandler(pipeline),
		handler.NewApprovalHandler(pipeline, tokenManager),
		handler.NewClientHandler(clientService),
		handler.NewNotificationHandler(notificationService),
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info().Str("addr", addr).Str("env", env).Msg("starting server")
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&domain.Client{},
		&domain.Content{},
		&domain.Notification{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
