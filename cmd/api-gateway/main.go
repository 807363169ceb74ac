package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/classtalk-api/api/swagger"
	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/handler"
	"github.com/noah-isme/classtalk-api/internal/middleware"
	"github.com/noah-isme/classtalk-api/internal/models"
	"github.com/noah-isme/classtalk-api/internal/repository"
	"github.com/noah-isme/classtalk-api/internal/service"
	"github.com/noah-isme/classtalk-api/pkg/cache"
	"github.com/noah-isme/classtalk-api/pkg/config"
	"github.com/noah-isme/classtalk-api/pkg/database"
	"github.com/noah-isme/classtalk-api/pkg/export"
	"github.com/noah-isme/classtalk-api/pkg/gotrue"
	"github.com/noah-isme/classtalk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classtalk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classtalk-api/pkg/middleware/requestid"
	"github.com/noah-isme/classtalk-api/pkg/storage"
)

// @title ClassTalk API
// @version 1.0.0
// @description Classroom messaging backend with deadline reminder workflow
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	redisClient, err := cache.NewRedis(cfg.Redis)
	cacheEnabled := err == nil
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	var cacheRepo service.CacheRepository
	if cacheEnabled {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Rooms.CacheTTL, logr, cacheEnabled)

	validate := validator.New()

	profileRepo := repository.NewProfileRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	gotrueClient := gotrue.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Bot.HTTPTimeout)
	signer := storage.NewAttachmentSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	authSvc := service.NewAuthService(profileRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "classtalk-api",
	})
	roomSvc := service.NewRoomService(roomRepo, profileRepo, cacheSvc, validate, logr, cfg.Rooms.CacheTTL)
	messageSvc := service.NewMessageService(messageRepo, signer, cacheSvc, validate, logr)
	classworkSvc := service.NewClassworkService(messageRepo, cacheSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr, cfg.Rooms.CacheTTL)
	botSvc := service.NewBotService(profileRepo, roomRepo, messageRepo, gotrueClient, metricsSvc, logr, service.BotServiceConfig{
		BotEmail:       cfg.Bot.Email,
		BotName:        cfg.Bot.Name,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
	})

	// The scan calls the notifier over HTTP when a separate notify
	// deployment is configured, otherwise in process.
	var notifier interface {
		NotifyOverdue(ctx context.Context, req dto.NotifyRequest) (*dto.NotifyResponse, error)
	}
	if cfg.Bot.NotifyURL != "" {
		notifier = service.NewNotifyClient(cfg.Bot.NotifyURL, cfg.Bot.HTTPTimeout)
	} else {
		notifier = botSvc
	}
	deadlineSvc := service.NewDeadlineService(messageRepo, roomRepo, notifier, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	messageHandler := handler.NewMessageHandler(messageSvc, roomSvc)
	classworkHandler := handler.NewClassworkHandler(classworkSvc, roomSvc, cfg.Classwork.ExportEnabled)
	botHandler := handler.NewBotHandler(botSvc)
	deadlineHandler := handler.NewDeadlineHandler(deadlineSvc, roomSvc)
	attachmentHandler := handler.NewAttachmentHandler(signer, cfg.Supabase.URL)
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
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
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
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	// The notify endpoint carries its own contract and is gated by the
	// service-role credential, not a user token.
	api.POST("/bot/notify", botHandler.Notify)

	api.GET("/attachments/:token", attachmentHandler.Download)

	rooms := api.Group("/rooms", middleware.JWT(authSvc))
	rooms.POST("", roomHandler.Create)
	rooms.GET("", roomHandler.List)
	rooms.POST("/:id/members", roomHandler.AddMember)
	rooms.GET("/:id/messages", messageHandler.List)
	rooms.POST("/:id/messages", messageHandler.Send)
	rooms.GET("/:id/classwork", classworkHandler.Summary)
	rooms.GET("/:id/classwork/export", classworkHandler.Export)
	rooms.POST("/:id/deadline-check", middleware.RequireRoles(models.RoleTeacher), deadlineHandler.Run)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
