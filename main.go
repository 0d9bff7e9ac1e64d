package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"shepherd-api/internal/config"
	"shepherd-api/internal/container"
	"shepherd-api/internal/handler"
	"shepherd-api/internal/middleware"
	"shepherd-api/internal/repository"
	"shepherd-api/internal/service"
	"shepherd-api/pkg/database"
	"shepherd-api/pkg/logger"
	"shepherd-api/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Close Redis connection with health check
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.redisClient.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Redis health check failed before closing")
		}
		healthCancel()

		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool with health check
	if r.db != nil {
		r.log.Info("Closing database connection pool...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.db.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Database health check failed before closing")
		}
		healthCancel()

		r.db.Close()
		r.log.Info("Database connection pool closed successfully")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"flag_policy": string(cfg.FlaggedActivityPolicy),
	}).Info("Starting shepherd-api server")

	// Create dependency injection container
	deps, err := container.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	redisClient := deps.GetRedisClient()

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceTokenRepository(db)

	// Push notifications are optional; without FCM credentials decisions and
	// assignments are simply not announced.
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.FCMProjectID != "" && cfg.FCMCredentialsJSON != "" {
		fcmNotifier, err := service.NewFCMNotifier(ctx, cfg.FCMProjectID, cfg.FCMCredentialsJSON, deviceRepo, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize FCM notifier, proceeding without push notifications")
		} else {
			notifier = fcmNotifier
			log.Info("FCM notifier initialized successfully")
		}
	}

	// Initialize services
	actorService := service.NewActorService(userRepo, redisClient, log.Logger)
	requestService := service.NewRequestService(requestRepo, userRepo, redisClient, notifier, cfg, log.Logger)
	boardService := service.NewBoardService(taskRepo, userRepo, redisClient, notifier, log.Logger)

	// Setup router
	router := setupRouter(deps, actorService, requestService, boardService, deviceRepo, db)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:          db,
		redisClient: redisClient,
		server:      server,
		log:         log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(
	deps *container.Container,
	actorService *service.ActorService,
	requestService *service.RequestService,
	boardService *service.BoardService,
	deviceRepo service.DeviceTokenStore,
	db *database.PostgresDB,
) *chi.Mux {
	cfg := deps.GetConfig()
	log := deps.GetLogger()
	authService := deps.GetAuthService()

	r := chi.NewRouter()

	// Setup CORS middleware
	corsConfig := &middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	// Setup middlewares
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(db, deps.GetRedisClient(), log)
	requestHandler := handler.NewRequestHandler(requestService)
	boardHandler := handler.NewBoardHandler(boardService)
	notificationHandler := handler.NewNotificationHandler(deviceRepo)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	// All API routes require an authenticated actor
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(authService, actorService, log))

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requestHandler.List)
			r.Post("/", requestHandler.Create)
			r.Get("/{id}", requestHandler.Get)
			r.Put("/{id}/decision", requestHandler.Decide)
		})

		r.Route("/groups/{groupId}", func(r chi.Router) {
			r.Get("/board", boardHandler.GetBoard)
			r.Get("/members", boardHandler.GetMembers)
			r.Post("/tasks", boardHandler.CreateTask)
		})

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Patch("/status", boardHandler.MoveTask)
			r.Put("/", boardHandler.UpdateTask)
		})

		r.Post("/notifications/register", notificationHandler.Register)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
