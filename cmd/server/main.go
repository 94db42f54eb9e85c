// Package main runs the donation platform HTTP server with the live feed
// WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/givehub/backend/config"
	"github.com/givehub/backend/internal/auth"
	"github.com/givehub/backend/internal/devtools"
	"github.com/givehub/backend/internal/donations"
	"github.com/givehub/backend/internal/middleware"
	"github.com/givehub/backend/internal/programs"
	"github.com/givehub/backend/internal/realtime"
	"github.com/givehub/backend/internal/reports"
	"github.com/givehub/backend/internal/volunteers"
	"github.com/givehub/backend/pkg/database"
	"github.com/givehub/backend/pkg/queue"
	"github.com/givehub/backend/pkg/redis"
	"github.com/givehub/backend/pkg/response"
	"github.com/givehub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Fatal("mongodb", zap.Error(err))
	}
	defer db.Close(context.Background())

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.AccessKeyID != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			UploadsBucket:        cfg.AWS.UploadsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	userRepo := auth.NewRepository(db.Database)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("user indexes", zap.Error(err))
	}
	codeStore := auth.NewRedisCodeStore(rdb.Client)
	otpService := auth.NewOTPService(codeStore, jobQueue, logger)
	var googleVerifier *auth.GoogleVerifier
	if cfg.Google.ClientID != "" {
		googleVerifier = auth.NewGoogleVerifier(cfg.Google.Issuer, cfg.Google.ClientID)
	}
	authHandler := auth.NewHandler(userRepo, jwtService, otpService, googleVerifier, s3Client, logger)

	// Programs
	programRepo := programs.NewRepository(db.Database)
	if err := programRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("program indexes", zap.Error(err))
	}
	programHandler := programs.NewHandler(programRepo, s3Client, logger)

	// Donations
	donationRepo := donations.NewRepository(db.Database)
	if err := donationRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("donation indexes", zap.Error(err))
	}
	donationService := donations.NewService(donationRepo, programRepo, userRepo, db, hub, logger)
	donationHandler := donations.NewHandler(donationService, donationRepo, logger)

	// Volunteers
	volunteerRepo := volunteers.NewRepository(db.Database)
	if err := volunteerRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("volunteer indexes", zap.Error(err))
	}
	volunteerService := volunteers.NewService(volunteerRepo, programRepo, db, logger)
	volunteerHandler := volunteers.NewHandler(volunteerService, volunteerRepo, userRepo, logger)

	// Reports
	reportService := reports.NewService(donationRepo, programRepo, volunteerRepo)
	reportHandler := reports.NewHandler(reportService, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Registration handshake (public)
	apiAuth := router.Group("/api/auth")
	{
		apiAuth.POST("/check-email", authHandler.CheckEmail)
		apiAuth.POST("/send-otp", authHandler.SendOTP)
		apiAuth.POST("/verify-otp", authHandler.VerifyOTP)
		apiAuth.POST("/register", authHandler.Register)
	}

	// Sessions (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/google", authHandler.GoogleSignIn)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// Public browsing
	router.GET("/programs", programHandler.List)
	router.GET("/programs/:id", programHandler.GetByID)
	router.GET("/donations/recent", donationHandler.ListRecent)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users/me", authHandler.Me)
		api.PATCH("/users/me/onboarding", authHandler.UpdateOnboarding)
		api.POST("/users/me/avatar", authHandler.UploadAvatar)
		api.GET("/users/me/donations", donationHandler.MyDonations)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Programs (admin writes)
		api.POST("/programs", middleware.RequireRole("admin"), programHandler.Create)
		api.PATCH("/programs/:id", middleware.RequireRole("admin"), programHandler.Update)
		api.DELETE("/programs/:id", middleware.RequireRole("admin"), programHandler.Delete)
		api.POST("/programs/:id/image", middleware.RequireRole("admin"), programHandler.UploadImage)

		// Donations
		api.POST("/donations", donationHandler.Create)
		api.GET("/donations", middleware.RequireRole("admin"), donationHandler.List)
		api.GET("/donations/:id", donationHandler.GetByID)
		api.PATCH("/donations/:id", middleware.RequireRole("admin"), donationHandler.Update)
		api.DELETE("/donations/:id", middleware.RequireRole("admin"), donationHandler.Delete)

		// Volunteers
		api.POST("/programs/:id/volunteers", volunteerHandler.SelfSignup)
		api.POST("/volunteers", middleware.RequireRole("admin"), volunteerHandler.Create)
		api.GET("/volunteers", middleware.RequireRole("admin"), volunteerHandler.List)
		api.GET("/volunteers/:id", middleware.RequireRole("admin"), volunteerHandler.GetByID)
		api.PATCH("/volunteers/:id", middleware.RequireRole("admin"), volunteerHandler.Update)
		api.DELETE("/volunteers/:id", middleware.RequireRole("admin"), volunteerHandler.Delete)

		// Reports (admin)
		api.GET("/reports/donations", middleware.RequireRole("admin"), reportHandler.Donations)
		api.GET("/reports/programs", middleware.RequireRole("admin"), reportHandler.Programs)
		api.GET("/reports/volunteers", middleware.RequireRole("admin"), reportHandler.Volunteers)

		// Dev tools (admin + config flag)
		if cfg.DevTools.Enabled {
			devHandler := devtools.NewHandler(programRepo, donationService, volunteerService, logger)
			api.POST("/dev/seed", middleware.RequireRole("admin"), devHandler.Seed)
			api.POST("/dev/recompute", middleware.RequireRole("admin"), devHandler.Recompute)
			logger.Info("dev tools enabled")
		}
	}

	// WebSocket live donation feed (public; optional token in query)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
