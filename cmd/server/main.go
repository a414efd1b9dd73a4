package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "frs/docs" // swagger docs

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"frs/internal/auth"
	"frs/internal/cache"
	"frs/internal/config"
	"frs/internal/db"
	"frs/internal/handler"
	"frs/internal/jobs"
	"frs/internal/mail"
	"frs/internal/recognition"
	"frs/internal/repository"
	"frs/internal/router"
	"frs/internal/service"
)

// @title Face Recognition Service API
// @version 1.0
// @description User registration with email confirmation, JWT authentication, and face recognition backed by an external engine.
// @host localhost:5000
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Fatalf("reset database: %v", err)
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("%v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		logger.Warn("redis unavailable, running without cache", "error", err)
	}

	sender, closeSender := newMailSender(cfg, logger)
	defer closeSender()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	embeddingRepo := repository.NewEmbeddingRepository(gormDB)

	// Initialize auth components
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	userService := service.NewUserService(userRepo, hasher, sender,
		service.UserServiceConfig{BaseURL: cfg.BaseURL},
		service.WithCache(cacheClient),
		service.WithLogger(logger),
	)
	authService := service.NewAuthService(userService, hasher, jwtService, tokenStore)
	recognitionService := service.NewRecognitionService(
		recognition.NewClient(cfg.Engine.URL, cfg.Engine.Timeout),
		embeddingRepo,
		logger,
	)
	defer recognitionService.Close()
	embeddingService := service.NewEmbeddingService(embeddingRepo)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userService)
	authHandler := handler.NewAuthHandler(authService)
	recognitionHandler := handler.NewRecognitionHandler(recognitionService, embeddingService)

	router.Register(e, cfg, userHandler, authHandler, recognitionHandler)

	logger.Info("swagger documentation available", "url", swaggerURL(cfg.SwaggerHost))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server start: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
}

// newMailSender picks the confirmation mail transport. The returned func
// releases the transport's resources.
func newMailSender(cfg *config.Config, logger *slog.Logger) (mail.EmailSender, func()) {
	switch cfg.Mail.Transport {
	case "smtp":
		return mail.NewSMTPSender(cfg.Mail.SMTP()), func() {}
	case "queue":
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		return jobs.NewQueueSender(client, cfg.Mail.Queue), func() {
			if err := client.Close(); err != nil {
				logger.Error("close asynq client", "error", err)
			}
		}
	default:
		return mail.NewLogSender(logger), func() {}
	}
}

func swaggerURL(host string) string {
	switch {
	case host == "":
		// container listens on 8080, mapped to 5000 externally
		return "http://localhost:5000/swagger/index.html"
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return host + "/swagger/index.html"
	default:
		return "http://" + host + "/swagger/index.html"
	}
}
