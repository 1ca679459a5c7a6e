package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"crisp/internal/config"
	"crisp/internal/models"
	"crisp/internal/prompts"
)

type stubProvider struct{}

func (stubProvider) GenerateContent(context.Context, string, string) (*models.GenerationResponse, error) {
	return &models.GenerationResponse{}, nil
}

func (stubProvider) GetProviderName() string { return "stub" }

func TestReadyzReportsDependencies(t *testing.T) {
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	ok := NewHealthHandler(stubProvider{}, pm, &config.Config{},
		DependencyCheck{Name: "mongo", Check: func(context.Context) error { return nil }})
	rec := do(t, http.HandlerFunc(ok.ReadyzHandler), http.MethodGet, "/readyz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	down := NewHealthHandler(stubProvider{}, pm, &config.Config{},
		DependencyCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("connection refused") }})
	rec = do(t, http.HandlerFunc(down.ReadyzHandler), http.MethodGet, "/readyz", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decode[ReadinessResponse](t, rec)
	if resp.Status != "not_ready" || resp.Checks["postgres"].Message != "connection refused" {
		t.Fatalf("unexpected readiness: %+v", resp)
	}
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	rec := do(t, http.HandlerFunc(h.HealthzHandler), http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
