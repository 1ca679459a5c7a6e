package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crisp/internal/config"
	"crisp/internal/handlers"
	"crisp/internal/models"
	"crisp/internal/questions"
	"crisp/internal/repositories"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreBackend: "memory",
		SQLitePath:   "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		Schedule:     models.DefaultSchedule,
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	registerRoutes(router, appHandlers{
		health:    handlers.NewHealthHandler(nil, nil, nil),
		candidate: handlers.NewCandidateHandler(handlers.CandidateDeps{}),
		auth:      handlers.NewAuthHandler(nil, nil, "secret", time.Hour, nil, nil),
		dashboard: handlers.NewDashboardHandler(nil, nil, nil, nil),
		admin:     handlers.NewAdminHandler(nil, nil, nil, models.DefaultSchedule, nil),
	}, "secret")

	paths := map[string]bool{}
	if err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("failed walking routes: %v", err)
	}
	for _, route := range []string{"GET /healthz", "GET /metrics", "POST /api/v1/candidate/login", "POST /api/v1/interview/answer", "GET /api/v1/candidates"} {
		if !paths[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func TestInitDatabaseMemoryBackend(t *testing.T) {
	db, err := initDatabase(memoryConfig(t))
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, table := range []any{&models.InterviewToken{}, &models.AllowedDomain{}, &models.Interviewer{}, &models.OutboxEntry{}} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected %T to be migrated", table)
		}
	}
}

func TestInitDocumentStoreMemoryBackend(t *testing.T) {
	docs, err := initDocumentStore(context.Background(), memoryConfig(t))
	if err != nil {
		t.Fatalf("initDocumentStore: %v", err)
	}
	if docs.client != nil {
		t.Fatal("memory backend should not connect to MongoDB")
	}
	if _, ok := docs.bank.(*questions.MemoryBank); !ok {
		t.Fatalf("expected a memory bank, got %T", docs.bank)
	}
}

func TestInitRedis(t *testing.T) {
	logger := zap.NewNop()
	if rdb := initRedis(context.Background(), &config.Config{}, logger); rdb != nil {
		t.Fatal("expected nil client without an address")
	}

	mr := miniredis.RunT(t)
	rdb := initRedis(context.Background(), &config.Config{RedisAddr: mr.Addr()}, logger)
	if rdb == nil {
		t.Fatal("expected a client for a reachable redis")
	}
	_ = rdb.Close()

	addr := mr.Addr()
	mr.Close()
	if rdb := initRedis(context.Background(), &config.Config{RedisAddr: addr}, logger); rdb != nil {
		t.Fatal("expected nil client for an unreachable redis")
	}
}

type brokenLoader struct{}

func (brokenLoader) ListQuestions(context.Context, models.Difficulty) ([]models.BankQuestion, error) {
	return nil, errors.New("mongo down")
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, d models.Difficulty, topic string, _ []string) (string, error) {
	return string(d) + " question about " + topic + "?", nil
}

func TestSourceFactoryFallsBackToGenerator(t *testing.T) {
	factory := newSourceFactory(brokenLoader{}, echoGenerator{}, "React", zap.NewNop())
	src, err := factory(context.Background())
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	q, err := src.Next(context.Background(), models.Medium, nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if q.Source != models.SourceGenerated || !strings.Contains(q.Text, "React") {
		t.Fatalf("expected a generated question, got %+v", q)
	}

	bank := questions.NewMemoryBank()
	if _, err := bank.Create(context.Background(), "What does useEffect do in React?", models.Easy); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
	src, _ = newSourceFactory(bank, echoGenerator{}, "React", zap.NewNop())(context.Background())
	q, _ = src.Next(context.Background(), models.Easy, nil)
	if q.Source != models.SourceBank {
		t.Fatalf("expected the bank question, got %+v", q)
	}
}

func TestReadinessChecksReportStuckOutbox(t *testing.T) {
	cfg := memoryConfig(t)
	db, err := initDatabase(cfg)
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	docs, _ := initDocumentStore(context.Background(), cfg)
	outboxRepo := &repositories.OutboxRepository{DB: db}

	checks := readinessChecks(db, docs, nil, outboxRepo, 2)
	if len(checks) != 2 {
		t.Fatalf("expected database and outbox checks, got %d", len(checks))
	}
	for _, c := range checks {
		if err := c.Check(context.Background()); err != nil {
			t.Fatalf("%s: unexpected error %v", c.Name, err)
		}
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := outboxRepo.Record(ctx, "cand-1", []byte(`{}`), errors.New("timeout")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	for _, c := range checks {
		if c.Name == "outbox" && c.Check(ctx) == nil {
			t.Fatal("expected the outbox check to fail once an entry is stuck")
		}
	}
}
