package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tmorvan/bankdesk/internal/auth"
	"github.com/tmorvan/bankdesk/internal/background"
	"github.com/tmorvan/bankdesk/internal/config"
	"github.com/tmorvan/bankdesk/internal/database"
	"github.com/tmorvan/bankdesk/internal/handlers"
	middlewareCustom "github.com/tmorvan/bankdesk/internal/middleware"
	"github.com/tmorvan/bankdesk/internal/models"
	"github.com/tmorvan/bankdesk/internal/repositories"
	"github.com/tmorvan/bankdesk/internal/routes"
	"github.com/tmorvan/bankdesk/internal/services"
	pkgauth "github.com/tmorvan/bankdesk/pkg/auth"
	pkghttp "github.com/tmorvan/bankdesk/pkg/http"
	pkglogger "github.com/tmorvan/bankdesk/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	configRepo := repositories.NewSystemConfigRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	ticketRepo := repositories.NewTicketRepository(db)
	articleRepo := repositories.NewArticleRepository(db)

	// Token manager with the fallback expiry; the effective session length
	// comes from the system configuration at issuance time.
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Services
	auditService := services.NewAuditService(auditRepo, logger)
	lockoutService := services.NewLockoutService(userRepo, configRepo, logger, auditLogger)
	authService := services.NewAuthService(userRepo, lockoutService, configRepo, tokenManager, auditService, logger, auditLogger)
	userService := services.NewUserService(userRepo, configRepo, auditService, logger)
	configService := services.NewSystemConfigService(configRepo, lockoutService, auditService, logger, auditLogger)
	ticketService := services.NewTicketService(ticketRepo, auditService, logger)
	articleService := services.NewArticleService(articleRepo, auditService, logger)

	// Handlers
	ipConfig := pkghttp.DefaultIPConfig(cfg.Server.Env)
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	userHandler := handlers.NewUserHandler(userService)
	configHandler := handlers.NewSystemConfigHandler(configService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	kbHandler := handlers.NewKnowledgeBaseHandler(articleService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Bootstrap first admin user if configured
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootCancel()

	// Audit retention pruner
	retentionManager := background.NewRetentionManager(auditRepo, logger, cfg.Audit.RetentionDays, cfg.Audit.PruneInterval)

	// Router
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, userHandler, configHandler, ticketHandler, kbHandler, auditHandler, tokenManager, userRepo, middlewareCustom.DefaultLoginRateLimit())
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	defer pruneCancel()

	if cfg.Audit.RetentionDays > 0 {
		go retentionManager.Start(pruneCtx)
	}

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	pruneCancel()
	if cfg.Audit.RetentionDays > 0 {
		retentionManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no account with that email exists yet.
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Administrator",
		Role:         models.RoleAdmin,
		Department:   "IT",
		IsActive:     true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(adminEmail)))
	return nil
}
