package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crisp/internal/middleware"
	"crisp/internal/models"
	"crisp/internal/session"
	"crisp/internal/store"
	"crisp/internal/tokens"
	"crisp/internal/utils"
)

// DashboardHandler serves the interviewer views of candidates and tokens.
// Interviewers only see their own company domain; admins see everything.
type DashboardHandler struct {
	records  *store.Store
	sessions *session.Manager
	tokens   *tokens.Service
	logger   *zap.Logger
}

func NewDashboardHandler(records *store.Store, sessions *session.Manager, tokenService *tokens.Service, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{records: records, sessions: sessions, tokens: tokenService, logger: logger}
}

// scope is the company domain the caller may see, nil meaning every domain.
func scope(p middleware.Principal) *string {
	if p.Role == middleware.RoleAdmin {
		return nil
	}
	if p.CompanyDomain != nil {
		return p.CompanyDomain
	}
	// an interviewer without a domain sees nothing
	none := ""
	return &none
}

func visible(c models.Candidate, domain *string) bool {
	if domain == nil {
		return true
	}
	return c.CompanyDomain != nil && *c.CompanyDomain == *domain
}

func (h *DashboardHandler) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r)
	filter := models.CandidateFilter{CompanyDomain: scope(p)}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := models.ParseInterviewStatus(raw)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
		filter.Status = status
	}

	candidates, err := h.records.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list candidates", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "list_error", "Failed to load candidates")
		return
	}

	items := filterBySearch(candidates, r.URL.Query().Get("search"))
	sortByScore(items)
	utils.JSON(w, http.StatusOK, models.CandidatesResponse{Total: len(items), Items: items})
}

func filterBySearch(candidates []models.Candidate, search string) []models.Candidate {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if search == "" ||
			strings.Contains(strings.ToLower(c.Name), search) ||
			strings.Contains(strings.ToLower(c.Email), search) {
			out = append(out, c)
		}
	}
	return out
}

// sortByScore orders by score descending; unscored candidates go last, newest first.
func sortByScore(items []models.Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Interview.Score, items[j].Interview.Score
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func (h *DashboardHandler) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r)
	c, err := h.records.Load(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !visible(c, scope(p)) {
		err = store.ErrNotFound
	}
	if err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

func (h *DashboardHandler) DeleteCandidateHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r)
	id := chi.URLParam(r, "id")
	c, err := h.records.Load(r.Context(), id)
	if err == nil && !visible(c, scope(p)) {
		err = store.ErrNotFound
	}
	if err != nil {
		writeSessionError(w, h.logger, err)
		return
	}

	h.sessions.Remove(id)
	if err := h.records.Delete(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete candidate", zap.String("candidate_id", id), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "delete_error", "Failed to delete candidate")
		return
	}
	h.logger.Info("Candidate deleted", zap.String("candidate_id", id), zap.String("by", p.Email))
	w.WriteHeader(http.StatusNoContent)
}

// IssueTokensHandler issues one token per new email, bound to the caller's company.
func (h *DashboardHandler) IssueTokensHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.IssueTokensRequest](r)
	p, _ := middleware.PrincipalFrom(r)

	domain := p.CompanyDomain
	if domain == nil {
		d := utils.EmailDomain(p.Email)
		domain = &d
	}
	resp, err := h.tokens.IssueBatch(r.Context(), req.Emails, domain)
	if err != nil {
		h.logger.Error("Failed to issue tokens", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "issue_error", "Failed to issue tokens")
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

func (h *DashboardHandler) ListTokensHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r)
	list, err := h.tokens.List(r.Context(), scope(p))
	if err != nil {
		h.logger.Error("Failed to list tokens", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "list_error", "Failed to load tokens")
		return
	}
	utils.JSON(w, http.StatusOK, list)
}
