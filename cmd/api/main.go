package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hijabpoint/accounts-api/internal/config"
	"github.com/hijabpoint/accounts-api/internal/handler"
	"github.com/hijabpoint/accounts-api/internal/middleware"
	pgRepo "github.com/hijabpoint/accounts-api/internal/repository/postgres"
	"github.com/hijabpoint/accounts-api/internal/service"
	"github.com/hijabpoint/accounts-api/pkg/auth"
	"github.com/hijabpoint/accounts-api/pkg/auth/manager"
	"github.com/hijabpoint/accounts-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Repositories
	userRepo := pgRepo.NewUserRepo(db)
	profileRepo := pgRepo.NewUserProfileRepo(db)
	otpRepo := pgRepo.NewOTPRepo(db)
	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	if err != nil {
		log.Printf("Failed to initialize RefreshTokenRepo: %v", err)
		os.Exit(1)
	}

	// Token stack
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenMins)*time.Minute)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	tokenManager, err := manager.NewTokenManager(jwtService, refreshTokenRepo, userRepo)
	if err != nil {
		log.Printf("Failed to initialize TokenManager: %v", err)
		os.Exit(1)
	}
	tokenManager.SetRefreshTokenExpiry(time.Duration(cfg.Auth.RefreshTokenLifetimeHrs) * time.Hour)

	// Email provider
	var emailService service.EmailService
	switch cfg.Email.Provider {
	case "resend":
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
	case "smtp":
		emailService, err = service.NewSMTPEmailService(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.From)
	default:
		log.Println("Email provider not configured, OTP emails will be logged only")
		emailService = &service.NoopEmailService{}
	}
	if err != nil {
		log.Printf("Failed to initialize email service: %v", err)
		os.Exit(1)
	}

	// Services
	passwordPolicy := service.NewPasswordPolicy(cfg.Password.MinLength)

	otpService, err := service.NewOTPService(otpRepo, userRepo, emailService, passwordPolicy,
		cfg.OTP.OTPTTL(), cfg.OTP.MaxAttempts, cfg.OTP.CodePepper)
	if err != nil {
		log.Printf("Failed to initialize OTPService: %v", err)
		os.Exit(1)
	}

	authService, err := service.NewAuthService(userRepo, profileRepo, tokenManager, passwordPolicy)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	// Root context controls background goroutines.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hourly cleanup of expired and revoked refresh tokens.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := tokenManager.CleanupExpiredTokens(); err != nil {
					log.Printf("Failed to clean up expired refresh tokens: %v", err)
				}
			case <-ctx.Done():
				log.Println("Stopping refresh token cleanup goroutine")
				return
			}
		}
	}()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, otpService, tokenManager)
	otpHandler := handler.NewOTPHandler(otpService, authService, tokenManager)
	passwordHandler := handler.NewPasswordHandler(otpService, authService)
	profileHandler := handler.NewProfileHandler(authService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	defaultLimit := rateLimiter.Limit(middleware.DefaultRateLimitConfig())
	strictLimit := rateLimiter.Limit(middleware.StrictRateLimitConfig())

	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.POST("/register", strictLimit, authHandler.Register)
		api.POST("/login", strictLimit, authHandler.Login)
		api.POST("/token/refresh", defaultLimit, authHandler.RefreshToken)
		api.POST("/logout", defaultLimit, authMiddleware.RequireAuth(), authHandler.Logout)
		api.GET("/users", authMiddleware.RequireAuth(), authMiddleware.AdminOnly(), authHandler.ListUsers)

		otpGroup := api.Group("/otp")
		{
			otpGroup.POST("/create_otp", defaultLimit, otpHandler.CreateOTP)
			otpGroup.POST("/verify_otp", defaultLimit, otpHandler.VerifyOTP)
		}

		passwordGroup := api.Group("/password")
		{
			passwordGroup.POST("/reset/request", strictLimit, passwordHandler.RequestReset)
			passwordGroup.POST("/reset/verify", strictLimit, passwordHandler.VerifyReset)
			passwordGroup.POST("/reset", strictLimit, passwordHandler.Reset)
			passwordGroup.POST("/change", authMiddleware.RequireAuth(), passwordHandler.Change)
		}

		profileGroup := api.Group("/profile")
		profileGroup.Use(authMiddleware.RequireAuth())
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("", profileHandler.UpdateProfile)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
