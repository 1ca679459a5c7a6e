package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"crisp/internal/ai"
	"crisp/internal/config"
	"crisp/internal/events"
	"crisp/internal/handlers"
	"crisp/internal/jobs"
	"crisp/internal/llm"
	_ "crisp/internal/llm/gemini"
	"crisp/internal/metrics"
	"crisp/internal/models"
	"crisp/internal/prompts"
	"crisp/internal/questions"
	"crisp/internal/repositories"
	mongorepo "crisp/internal/repositories/mongo"
	"crisp/internal/routers"
	"crisp/internal/session"
	"crisp/internal/store"
	"crisp/internal/tokens"
	"crisp/internal/utils"
)

type appHandlers struct {
	health    *handlers.HealthHandler
	candidate *handlers.CandidateHandler
	auth      *handlers.AuthHandler
	dashboard *handlers.DashboardHandler
	admin     *handlers.AdminHandler
}

func registerRoutes(router *chi.Mux, h appHandlers, jwtSecret string) {
	routers.HealthRoutes(router, h.health, metrics.Handler())
	routers.CandidateRoutes(router, h.candidate, jwtSecret)
	routers.AuthRoutes(router, h.auth)
	routers.DashboardRoutes(router, h.dashboard, jwtSecret)
	routers.AdminRoutes(router, h.admin, jwtSecret)
}

// initDatabase opens the relational store: postgres normally, sqlite for the memory backend.
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	dialector := postgres.Open(cfg.PostgresDSN)
	if cfg.StoreBackend == "memory" {
		dialector = sqlite.Open(cfg.SQLitePath)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.InterviewToken{}, &models.AllowedDomain{}, &models.Interviewer{}, &models.OutboxEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// initRedis returns nil when redis is not reachable; resume-by-token and
// cross-instance events are then disabled.
func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, session resume and event relay disabled", zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// documentStore holds the candidate records and the question bank.
type documentStore struct {
	records store.RecordRepository
	bank    handlers.QuestionBank
	client  *mongorepo.Client
}

func initDocumentStore(ctx context.Context, cfg *config.Config) (*documentStore, error) {
	if cfg.StoreBackend == "memory" {
		return &documentStore{records: store.NewMemoryRepository(), bank: questions.NewMemoryBank()}, nil
	}

	client, err := mongorepo.NewClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	candidates, err := mongorepo.NewCandidateRepo(ctx, client)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	bank, err := mongorepo.NewQuestionRepo(ctx, client)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &documentStore{records: candidates, bank: bank, client: client}, nil
}

// newSourceFactory loads the bank once per session. A bank that cannot be
// read leaves every question to the generator.
func newSourceFactory(loader questions.BankLoader, gen questions.Generator, topic string, logger *zap.Logger) session.SourceFactory {
	return func(ctx context.Context) (session.QuestionSource, error) {
		bank, err := questions.LoadBank(ctx, loader)
		if err != nil {
			logger.Warn("Question bank unavailable, generating every question", zap.Error(err))
			bank = questions.NewBank(nil)
		}
		return questions.NewSource(bank, gen, topic, questions.WithLogger(logger)), nil
	}
}

func readinessChecks(db *gorm.DB, docs *documentStore, rdb *redis.Client, outboxRepo *repositories.OutboxRepository, maxAttempts int) []handlers.DependencyCheck {
	checks := []handlers.DependencyCheck{
		{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "outbox", Check: func(ctx context.Context) error {
			stuck, err := outboxRepo.CountStuck(ctx, maxAttempts)
			if err != nil {
				return err
			}
			if stuck > 0 {
				return fmt.Errorf("%d candidate writes exceeded the retry limit", stuck)
			}
			return nil
		}},
	}
	if docs.client != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "mongo", Check: docs.client.Ping})
	}
	if rdb != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	utils.SetLogger(logger)

	config.LoadDotEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Int("slots", cfg.Schedule.Len()))

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

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
	docs, err := initDocumentStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize document store", zap.Error(err))
	}
	rdb := initRedis(ctx, cfg, logger)

	outboxRepo := &repositories.OutboxRepository{DB: db}
	outbox := store.NewOutbox(docs.records, outboxRepo, logger)
	outbox.Start(ctx)
	records := store.New(docs.records, outbox, logger)

	var tokenOpts []tokens.Option
	if utils.SMTPConfigured() {
		tokenOpts = append(tokenOpts, tokens.WithMailer(utils.SendEmail))
	}
	tokenService := tokens.NewService(&repositories.TokenRepository{DB: db}, logger, tokenOpts...)

	hub := events.NewHub(logger)
	var notifier session.Notifier = hub
	var local store.LocalState
	if rdb != nil {
		relay := events.NewRedisRelay(rdb, hub, logger)
		go relay.Run(ctx)
		notifier = relay
		local = store.NewRedisLocalState(rdb, cfg.SessionTTL)
	}

	generator := ai.NewQuestionGenerator(aiProvider, promptManager, cfg.Role, logger)
	sessions := session.NewManager(records, session.Deps{
		Schedule:   cfg.Schedule,
		Sources:    newSourceFactory(docs.bank, generator, cfg.Topic, logger),
		Summarizer: ai.NewSummarizer(aiProvider, promptManager, cfg.Role, logger),
		Tokens:     tokenService,
		Notifier:   notifier,
		Logger:     logger,
	})

	retryJob := jobs.NewOutboxRetryJob(outbox, &jobs.OutboxRetryConfig{
		Schedule:    cfg.OutboxSchedule,
		MaxAttempts: cfg.OutboxMaxAttempts,
		BatchSize:   50,
		Enabled:     true,
	}, logger)
	if err := retryJob.Start(); err != nil {
		logger.Error("Failed to start outbox retry job", zap.Error(err))
	}
	sweepJob := jobs.NewSessionSweepJob(sessions, records, "@every 5m", logger)
	if err := sweepJob.Start(); err != nil {
		logger.Error("Failed to start session sweep job", zap.Error(err))
	}

	domains := &repositories.DomainRepository{DB: db}
	h := appHandlers{
		health: handlers.NewHealthHandler(aiProvider, promptManager, cfg,
			readinessChecks(db, docs, rdb, outboxRepo, cfg.OutboxMaxAttempts)...),
		candidate: handlers.NewCandidateHandler(handlers.CandidateDeps{
			Records:    records,
			Tokens:     tokenService,
			Local:      local,
			Sessions:   sessions,
			Resumes:    ai.NewResumeParser(aiProvider, promptManager, logger),
			Hub:        hub,
			JWTSecret:  cfg.JWTSecret,
			SessionTTL: cfg.SessionTTL,
			Logger:     logger,
		}),
		auth:      handlers.NewAuthHandler(&repositories.InterviewerRepository{DB: db}, domains, cfg.JWTSecret, cfg.SessionTTL, cfg.IsAdmin, logger),
		dashboard: handlers.NewDashboardHandler(records, sessions, tokenService, logger),
		admin: handlers.NewAdminHandler(docs.bank,
			ai.NewQuestionSetGenerator(aiProvider, promptManager, cfg.Role, logger),
			domains, cfg.Schedule, logger),
	}

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware)

	registerRoutes(router, h, cfg.JWTSecret)

	serverAddr := ":" + cfg.Port

	// answers wait on question generation and scoring, so writes get a long timeout
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	retryJob.Stop()
	sweepJob.Stop()
	sessions.CloseAll()
	outbox.Stop(shutdownCtx)
	stopBackground()

	if docs.client != nil {
		if err := docs.client.Disconnect(shutdownCtx); err != nil {
			logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("Interview service exited")
}
