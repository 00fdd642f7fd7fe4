package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/background"
	"github.com/akumi07/RoleMaster21/internal/config"
	"github.com/akumi07/RoleMaster21/internal/database"
	"github.com/akumi07/RoleMaster21/internal/handlers"
	"github.com/akumi07/RoleMaster21/internal/metrics"
	middlewareCustom "github.com/akumi07/RoleMaster21/internal/middleware"
	"github.com/akumi07/RoleMaster21/internal/repositories"
	"github.com/akumi07/RoleMaster21/internal/routes"
	"github.com/akumi07/RoleMaster21/internal/services"
	pkglogger "github.com/akumi07/RoleMaster21/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	metrics.MustRegister()

	// Initialize database
	connectCtx, connectCancel := context.WithTimeout(context.Background(), time.Minute)
	db, err := database.NewConnection(connectCtx, &cfg.Database, logger)
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)

	challenges, closeChallenges, err := newChallengeStore(cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize challenge store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeChallenges()

	mailer, err := services.NewMailer(cfg.Mail, logger)
	if err != nil {
		logger.Error("failed to initialize mail transport", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Live directory subscription
	listener := repositories.NewDirectoryListener(
		cfg.Database.DSN(),
		cfg.Sync.Channel,
		userRepo,
		cfg.Sync.MinReconnectInterval,
		cfg.Sync.MaxReconnectInterval,
		logger,
	)
	directorySync := services.NewDirectorySync(listener, logger)

	syncCtx, syncCancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = directorySync.Start(syncCtx)
	syncCancel()
	if err != nil {
		logger.Error("failed to start directory sync", slog.Any("error", err))
		os.Exit(1)
	}
	defer directorySync.Stop()

	// Initialize services
	otpService := services.NewOTPService(userRepo, challenges, mailer, cfg.OTP.TTL, cfg.OTP.MaxAttempts, auditLogger, logger)
	selections := services.NewSelectionStore()
	bulkService := services.NewBulkService(userRepo, directorySync, selections, cfg.Sync.BulkConcurrency, auditLogger, logger)

	sessionManager := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionExpiry, cfg.Auth.RememberMeExpiry).
		WithProvider(cfg.Auth.ProviderSecret, cfg.Auth.ProviderIssuer)
	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Auth.CookieDomain,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: auth.ParseSameSite(cfg.Auth.CookieSameSite),
	}

	cleanupManager := background.NewCleanupManager(otpService, logger, cfg.OTP.CleanupInterval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(cfg.Server.AllowedOrigins))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)

	// Register routes
	routes.RegisterRoutes(router, routes.Handlers{
		Health:    handlers.NewHealthHandler(db, directorySync),
		Session:   handlers.NewSessionHandler(sessionManager, cookieConfig, auditLogger),
		AddUser:   handlers.NewAddUserHandler(otpService),
		Users:     handlers.NewUserHandler(directorySync, userRepo, bulkService),
		Stream:    handlers.NewStreamHandler(directorySync, logger),
		Selection: handlers.NewSelectionHandler(selections),
		Bulk:      handlers.NewBulkHandler(bulkService),
	}, routes.Options{
		Sessions:        sessionManager,
		Requesters:      userRepo,
		OTPRateLimit:    middlewareCustom.RateLimitConfig{Requests: cfg.OTP.RequestsPerMin, Window: time.Minute},
		VerifyRateLimit: middlewareCustom.RateLimitConfig{Requests: cfg.OTP.VerifiesPerMin, Window: time.Minute},
		RequestTimeout:  cfg.Server.WriteTimeout,
		Logger:          logger,
	})

	// No server WriteTimeout: it would cut the snapshot stream. Other
	// routes are bounded by RequestTimeout.
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()
	directorySync.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newChallengeStore selects where OTP challenges live
func newChallengeStore(cfg *config.Config, db *database.DB, logger *slog.Logger) (services.ChallengeStore, func(), error) {
	switch cfg.OTP.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}

		logger.Info("using redis challenge store", slog.String("addr", cfg.Redis.Addr))
		return repositories.NewRedisChallengeRepository(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		logger.Info("using postgres challenge store")
		return repositories.NewOTPChallengeRepository(db), func() {}, nil
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
