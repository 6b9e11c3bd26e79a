package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartnshine/interview/internal/config"
	"smartnshine/interview/internal/handlers"
	"smartnshine/interview/internal/interview"
	"smartnshine/interview/internal/jobs"
	"smartnshine/interview/internal/llm"
	_ "smartnshine/interview/internal/llm/gemini"
	"smartnshine/interview/internal/metrics"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/prompts"
	"smartnshine/interview/internal/quota"
	"smartnshine/interview/internal/repositories"
	"smartnshine/interview/internal/routers"
	"smartnshine/interview/internal/utils"
	"smartnshine/interview/internal/voice"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func registerRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler, voiceHandler *handlers.VoiceHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, interviewHandler)
	routers.VoiceRoutes(router, voiceHandler)
	router.Get("/metrics", metrics.Handler().ServeHTTP)
}

// initDatabase initializes the PostgreSQL database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.InterviewSession{},
		&models.Question{},
		&models.Answer{},
		&models.InterviewResult{},
		&models.QuotaRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	utils.Logger = logger

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("port", cfg.Port))

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// AI provider based on configuration
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	sessionRepo := &repositories.SessionRepository{DB: db}
	resultRepo := &repositories.ResultRepository{DB: db}

	quotaGuard := quota.NewGuard(rdb, db, logger)
	aiClient := interview.NewAIClient(aiProvider, promptManager, cfg.AITimeout, logger)
	manager := interview.NewManager(sessionRepo, resultRepo, quotaGuard, aiClient, aiClient, logger)
	pipeline := voice.NewPipeline(cfg.STTServiceURL, cfg.TTSServiceURL, cfg.VoiceTimeout, logger)

	interviewHandler := handlers.NewInterviewHandler(manager, pipeline, logger)
	voiceHandler := handlers.NewVoiceHandler(pipeline, quotaGuard, logger)
	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, cfg, db, rdb)

	sweeper := jobs.NewSessionSweeperJob(manager, &jobs.SweeperConfig{
		Schedule: cfg.SweepSchedule,
		MaxIdle:  cfg.SessionMaxIdle,
	}, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error("Failed to start session sweeper", zap.Error(err))
	}

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Logger, chimiddleware.Recoverer, chimiddleware.Timeout(2*time.Minute))
	router.Use(metrics.Middleware("interview"))

	registerRoutes(router, interviewHandler, voiceHandler, healthHandler)

	serverAddr := ":" + cfg.Port

	// http server with timeouts sized for voice uploads
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	sweeper.Stop()

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("Interview service exited")
}
