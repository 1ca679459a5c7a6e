package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"crisp/internal/config"
	"crisp/internal/handlers"
	"crisp/internal/middleware"
	"crisp/internal/models"
)

const testSecret = "test-secret"

func newRouter() *chi.Mux {
	router := chi.NewRouter()
	HealthRoutes(router, handlers.NewHealthHandler(nil, nil, &config.Config{}), http.NotFoundHandler())
	CandidateRoutes(router, handlers.NewCandidateHandler(handlers.CandidateDeps{}), testSecret)
	AuthRoutes(router, handlers.NewAuthHandler(nil, nil, testSecret, time.Hour, nil, nil))
	DashboardRoutes(router, handlers.NewDashboardHandler(nil, nil, nil, nil), testSecret)
	AdminRoutes(router, handlers.NewAdminHandler(nil, nil, nil, models.DefaultSchedule, nil), testSecret)
	return router
}

func TestHealthRoutes(t *testing.T) {
	router := newRouter()

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz route not registered correctly, got status %d", rec.Code)
	}
}

func TestRoutesRegisterEndpoints(t *testing.T) {
	router := newRouter()

	paths := map[string]bool{}
	if err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("failed walking routes: %v", err)
	}

	expected := []string{
		"GET /readyz",
		"GET /metrics",
		"POST /api/v1/candidate/login",
		"GET /api/v1/interview/ws",
		"PUT /api/v1/interview/profile",
		"POST /api/v1/interview/resume",
		"POST /api/v1/interview/start",
		"POST /api/v1/interview/answer",
		"POST /api/v1/interview/next-question",
		"POST /api/v1/interview/finalize",
		"POST /api/v1/interview/start-over",
		"POST /api/v1/interview/reset",
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/candidates",
		"GET /api/v1/candidates/{id}",
		"DELETE /api/v1/candidates/{id}",
		"POST /api/v1/tokens",
		"GET /api/v1/tokens",
		"GET /api/v1/admin/questions",
		"POST /api/v1/admin/questions",
		"POST /api/v1/admin/questions/generate",
		"DELETE /api/v1/admin/questions/{id}",
		"GET /api/v1/admin/domains",
		"POST /api/v1/admin/domains",
		"DELETE /api/v1/admin/domains/{id}",
	}

	for _, route := range expected {
		if !paths[route] {
			t.Errorf("expected route %s to be registered", route)
		}
	}
}

func TestProtectedRoutesRequireRole(t *testing.T) {
	router := newRouter()

	candidateToken, err := middleware.SignPrincipal(testSecret, middleware.Principal{
		Subject: "cand-1",
		Role:    middleware.RoleCandidate,
	}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"dashboard without token", http.MethodGet, "/api/v1/candidates", "", http.StatusUnauthorized},
		{"interview without token", http.MethodGet, "/api/v1/interview/", "", http.StatusUnauthorized},
		{"candidate on dashboard", http.MethodGet, "/api/v1/candidates", candidateToken, http.StatusForbidden},
		{"candidate on admin", http.MethodGet, "/api/v1/admin/domains", candidateToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
