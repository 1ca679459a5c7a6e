package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crisp/internal/middleware"
	"crisp/internal/models"
	"crisp/internal/repositories"
	"crisp/internal/testhelpers"
	"crisp/internal/tokens"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *repositories.DomainRepository) {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	domains := &repositories.DomainRepository{DB: db}
	if _, err := domains.Create(context.Background(), "acme.io"); err != nil {
		t.Fatalf("seed domain: %v", err)
	}
	isAdmin := func(email string) bool { return email == "root@crisp.dev" }
	return NewAuthHandler(&repositories.InterviewerRepository{DB: db}, domains, testSecret, time.Hour, isAdmin, zap.NewNop()), domains
}

func TestRegisterRequiresAllowedDomain(t *testing.T) {
	h, _ := newAuthHandler(t)
	register := withBody[*models.RegisterRequest](h.RegisterHandler)

	rec := do(t, register, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "eve@evil.io", "password": "s3cret!pass"}, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unlisted domain, got %d", rec.Code)
	}

	rec = do(t, register, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "bob@acme.io", "password": "plainpassword"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", rec.Code)
	}

	rec = do(t, register, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "Bob@Acme.io", "password": "s3cret!pass"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	resp := decode[models.AuthResponse](t, rec)
	if resp.Email != "bob@acme.io" || resp.Role != models.RoleInterviewer || resp.Token == "" {
		t.Fatalf("unexpected auth response: %+v", resp)
	}

	rec = do(t, register, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "bob@acme.io", "password": "s3cret!pass"}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	rec = do(t, register, http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "root@crisp.dev", "password": "s3cret!pass"}, "")
	if rec.Code != http.StatusCreated || decode[models.AuthResponse](t, rec).Role != models.RoleAdmin {
		t.Fatalf("admin email should register as admin, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginChecksPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	register := withBody[*models.RegisterRequest](h.RegisterHandler)
	login := withBody[*models.LoginRequest](h.LoginHandler)

	if rec := do(t, register, http.MethodPost, "/", map[string]string{"email": "bob@acme.io", "password": "s3cret!pass"}, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	rec := do(t, login, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "bob@acme.io", "password": "wrong!pass"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
	rec = do(t, login, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nobody@acme.io", "password": "s3cret!pass"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown account, got %d", rec.Code)
	}

	rec = do(t, login, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "BOB@acme.io", "password": "s3cret!pass"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[models.AuthResponse](t, rec)

	// the issued token opens interviewer routes scoped to the company
	var seen middleware.Principal
	probe := authed(middleware.RoleInterviewer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = middleware.PrincipalFrom(r)
	}))
	do(t, probe, http.MethodGet, "/", nil, resp.Token)
	if seen.Email != "bob@acme.io" || seen.CompanyDomain == nil || *seen.CompanyDomain != "acme.io" {
		t.Fatalf("unexpected principal: %+v", seen)
	}
}

type dashboardFixture struct {
	handler     *DashboardHandler
	interviewer string
	admin       string
}

func newDashboardFixture(t *testing.T) (*dashboardFixture, map[string]models.Candidate) {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	records := newRecords()
	sessions := newManager(t, records, nil)
	svc := tokens.NewService(&repositories.TokenRepository{DB: db}, zap.NewNop())

	acme, other := "acme.io", "other.io"
	byName := map[string]models.Candidate{}
	seed := []struct {
		name, email string
		domain      *string
		score       *int
	}{
		{"Ada", "ada@acme.io", &acme, intPtr(55)},
		{"Grace", "grace@acme.io", &acme, intPtr(90)},
		{"Linus", "linus@acme.io", &acme, nil},
		{"Ken", "ken@other.io", &other, intPtr(99)},
	}
	for _, s := range seed {
		c := records.Create(s.email, s.domain)
		var err error
		c, err = records.UpdateInfo(c.ID, models.CandidateInfo{Name: s.name, Email: s.email, Phone: "5551234567"})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		if s.score != nil {
			c, _, err = records.Complete(c.ID, "done", *s.score)
			if err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		byName[s.name] = c
	}

	return &dashboardFixture{
		handler:     NewDashboardHandler(records, sessions, svc, zap.NewNop()),
		interviewer: signFor(t, middleware.Principal{Subject: "1", Role: middleware.RoleInterviewer, Email: "bob@acme.io", CompanyDomain: &acme}),
		admin:       signFor(t, middleware.Principal{Subject: "2", Role: middleware.RoleAdmin, Email: "root@crisp.dev"}),
	}, byName
}

func intPtr(v int) *int { return &v }

func names(items []models.Candidate) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.Name)
	}
	return out
}

func TestListCandidatesScopedAndSorted(t *testing.T) {
	f, _ := newDashboardFixture(t)
	list := authed(middleware.RoleInterviewer, http.HandlerFunc(f.handler.ListCandidatesHandler))

	rec := do(t, list, http.MethodGet, "/api/v1/candidates", nil, f.interviewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := names(decode[models.CandidatesResponse](t, rec).Items)
	want := []string{"Grace", "Ada", "Linus"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	rec = do(t, list, http.MethodGet, "/api/v1/candidates?search=GRA&status=completed", nil, f.interviewer)
	if got := names(decode[models.CandidatesResponse](t, rec).Items); len(got) != 1 || got[0] != "Grace" {
		t.Fatalf("expected only Grace, got %v", got)
	}

	rec = do(t, list, http.MethodGet, "/api/v1/candidates", nil, f.admin)
	if resp := decode[models.CandidatesResponse](t, rec); resp.Total != 4 || resp.Items[0].Name != "Ken" {
		t.Fatalf("admin should see every company, got %v", names(resp.Items))
	}

	rec = do(t, list, http.MethodGet, "/api/v1/candidates?status=sleeping", nil, f.interviewer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func withID(h http.HandlerFunc, id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		h(w, r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx)))
	}
}

func TestGetAndDeleteCandidateRespectCompany(t *testing.T) {
	f, byName := newDashboardFixture(t)
	ken := byName["Ken"].ID
	ada := byName["Ada"].ID

	get := authed(middleware.RoleInterviewer, withID(f.handler.GetCandidateHandler, ken))
	if rec := do(t, get, http.MethodGet, "/", nil, f.interviewer); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another company's candidate, got %d", rec.Code)
	}
	if rec := do(t, get, http.MethodGet, "/", nil, f.admin); rec.Code != http.StatusOK {
		t.Fatalf("admin should read any candidate, got %d", rec.Code)
	}

	del := authed(middleware.RoleInterviewer, withID(f.handler.DeleteCandidateHandler, ken))
	if rec := do(t, del, http.MethodDelete, "/", nil, f.interviewer); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting another company's candidate, got %d", rec.Code)
	}

	del = authed(middleware.RoleInterviewer, withID(f.handler.DeleteCandidateHandler, ada))
	if rec := do(t, del, http.MethodDelete, "/", nil, f.interviewer); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	get = authed(middleware.RoleInterviewer, withID(f.handler.GetCandidateHandler, ada))
	if rec := do(t, get, http.MethodGet, "/", nil, f.interviewer); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted candidate should be gone, got %d", rec.Code)
	}
}

func TestIssueAndListTokens(t *testing.T) {
	f, _ := newDashboardFixture(t)
	issue := authed(middleware.RoleInterviewer, withBody[*models.IssueTokensRequest](f.handler.IssueTokensHandler))
	list := authed(middleware.RoleInterviewer, http.HandlerFunc(f.handler.ListTokensHandler))

	rec := do(t, issue, http.MethodPost, "/api/v1/tokens", map[string]any{"emails": []string{"new@acme.io", "NEW@acme.io", "two@acme.io"}}, f.interviewer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if resp := decode[models.IssueTokensResponse](t, rec); len(resp.Issued) != 2 || len(resp.Skipped) != 0 {
		t.Fatalf("unexpected issue result: %+v", resp)
	}

	rec = do(t, issue, http.MethodPost, "/api/v1/tokens", map[string]any{"emails": []string{"new@acme.io"}}, f.interviewer)
	if resp := decode[models.IssueTokensResponse](t, rec); len(resp.Issued) != 0 || len(resp.Skipped) != 1 {
		t.Fatalf("an email only ever gets one token, got %+v", resp)
	}

	rec = do(t, issue, http.MethodPost, "/api/v1/tokens", map[string]any{"emails": []string{"not-an-email"}}, f.interviewer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}

	rec = do(t, list, http.MethodGet, "/api/v1/tokens", nil, f.interviewer)
	if got := decode[[]models.InterviewToken](t, rec); len(got) != 2 {
		t.Fatalf("expected 2 tokens for acme.io, got %d", len(got))
	}
}
