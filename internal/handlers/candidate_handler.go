package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crisp/internal/events"
	"crisp/internal/middleware"
	"crisp/internal/models"
	"crisp/internal/session"
	"crisp/internal/store"
	"crisp/internal/tokens"
	"crisp/internal/utils"
)

type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.InterviewToken, error)
}

type ResumeParser interface {
	Parse(ctx context.Context, text string) (models.MissingInfo, error)
}

// CandidateDeps wires the candidate-facing endpoints.
type CandidateDeps struct {
	Records    *store.Store
	Tokens     TokenValidator
	Local      store.LocalState // optional
	Sessions   *session.Manager
	Resumes    ResumeParser
	Hub        *events.Hub
	JWTSecret  string
	SessionTTL time.Duration
	Logger     *zap.Logger
}

// CandidateHandler serves token login, onboarding and the interview itself.
type CandidateHandler struct {
	records    *store.Store
	tokens     TokenValidator
	local      store.LocalState
	sessions   *session.Manager
	resumes    ResumeParser
	hub        *events.Hub
	jwtSecret  string
	sessionTTL time.Duration
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

func NewCandidateHandler(deps CandidateDeps) *CandidateHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandidateHandler{
		records:    deps.Records,
		tokens:     deps.Tokens,
		local:      deps.Local,
		sessions:   deps.Sessions,
		resumes:    deps.Resumes,
		hub:        deps.Hub,
		jwtSecret:  deps.JWTSecret,
		sessionTTL: deps.SessionTTL,
		logger:     logger,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// LoginHandler exchanges a one-time interview token for a candidate session,
// resuming the candidate already bound to the token when there is one.
func (h *CandidateHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.CandidateLoginRequest](r)
	ctx := r.Context()

	tok, err := h.tokens.Validate(ctx, req.Token)
	if errors.Is(err, tokens.ErrInvalidToken) {
		utils.JSONError(w, http.StatusUnauthorized, "invalid_token", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to validate interview token", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "token_error", "Failed to validate token")
		return
	}

	candidate, resumed, err := h.resumeCandidate(ctx, tok.Token)
	if err != nil {
		h.logger.Error("Failed to load candidate for token", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "candidate_error", "Failed to load your interview")
		return
	}
	if !resumed {
		candidate = h.records.Create(tok.Email, tok.CompanyDomain)
		if h.local != nil {
			if err := h.local.Save(ctx, store.ActiveSession{CandidateID: candidate.ID, Token: tok.Token}); err != nil {
				h.logger.Warn("Failed to remember active session", zap.Error(err))
			}
		}
	}

	access, err := middleware.SignPrincipal(h.jwtSecret, middleware.Principal{
		Subject:        candidate.ID,
		Role:           middleware.RoleCandidate,
		Email:          candidate.Email,
		CompanyDomain:  candidate.CompanyDomain,
		InterviewToken: tok.Token,
	}, h.sessionTTL)
	if err != nil {
		h.logger.Error("Failed to sign candidate token", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "token_error", "Failed to start session")
		return
	}

	h.logger.Info("Candidate logged in",
		zap.String("candidate_id", candidate.ID),
		zap.Bool("resumed", resumed))
	utils.JSON(w, http.StatusOK, models.CandidateLoginResponse{
		AccessToken: access,
		Resumed:     resumed,
		Candidate:   candidate,
	})
}

func (h *CandidateHandler) resumeCandidate(ctx context.Context, token string) (models.Candidate, bool, error) {
	if h.local == nil {
		return models.Candidate{}, false, nil
	}
	active, found, err := h.local.Load(ctx, token)
	if err != nil {
		h.logger.Warn("Failed to read active session", zap.Error(err))
		return models.Candidate{}, false, nil
	}
	if !found {
		return models.Candidate{}, false, nil
	}
	c, err := h.records.Load(ctx, active.CandidateID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Candidate{}, false, nil
	}
	if err != nil {
		return models.Candidate{}, false, err
	}
	if c.Interview.Status == models.StatusCompleted {
		return models.Candidate{}, false, nil
	}
	return c, true, nil
}

// controller resolves the caller's session controller, writing the error response on failure.
func (h *CandidateHandler) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	p, ok := middleware.PrincipalFrom(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "missing_token", "Authentication required")
		return nil, false
	}
	ctrl, err := h.sessions.Get(r.Context(), p.Subject, p.InterviewToken)
	if err != nil {
		writeSessionError(w, h.logger, err)
		return nil, false
	}
	return ctrl, true
}

func (h *CandidateHandler) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	utils.JSON(w, http.StatusOK, ctrl.Snapshot())
}

// ProfileHandler saves onboarding details and marks the candidate ready to start.
func (h *CandidateHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.ProfileRequest](r)
	p, _ := middleware.PrincipalFrom(r)

	c, err := h.records.Load(r.Context(), p.Subject)
	if err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	if c.Interview.Status != models.StatusCollectingInfo && c.Interview.Status != models.StatusReadyToStart {
		utils.JSONError(w, http.StatusConflict, "profile_locked", "Your profile can no longer be changed")
		return
	}

	c, err = h.records.UpdateInfo(c.ID, req.Info())
	if err == nil && c.Interview.Status == models.StatusCollectingInfo {
		c, err = h.records.SetStatus(c.ID, models.StatusReadyToStart)
	}
	if err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// ResumeHandler extracts contact details from resume text and says what is missing.
func (h *CandidateHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.ResumeRequest](r)

	info, err := h.resumes.Parse(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("AI provider error", zap.Error(err), zap.String("file", req.FileName))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "ai_error",
			Message: "Failed to read your resume, please fill in your details manually",
		})
		return
	}
	utils.JSON(w, http.StatusOK, info)
}

func (h *CandidateHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.Start(r.Context()); err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *CandidateHandler) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.AnswerRequest](r)
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var err error
	if req.Index != nil {
		err = ctrl.SubmitAnswerAt(r.Context(), *req.Index, req.Answer)
	} else {
		err = ctrl.SubmitAnswer(r.Context(), req.Answer)
	}
	if err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ctrl.Snapshot())
}

// NextQuestionHandler retries a question fetch that failed.
func (h *CandidateHandler) NextQuestionHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.RequestNextQuestion(r.Context()); err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ctrl.Snapshot())
}

// FinalizeHandler retries scoring when every slot is answered but completion failed.
func (h *CandidateHandler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.Finalize(r.Context()); err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ctrl.Snapshot())
}

func (h *CandidateHandler) StartOverHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.StartOver(r.Context()); err != nil {
		writeSessionError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, ctrl.Snapshot())
}

// ResetHandler forgets the locally remembered session; the record itself is kept.
func (h *CandidateHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r)
	if h.local != nil && p.InterviewToken != "" {
		if err := h.local.Clear(r.Context(), p.InterviewToken); err != nil {
			h.logger.Error("Failed to clear active session", zap.Error(err))
			utils.JSONError(w, http.StatusInternalServerError, "reset_failed", "Failed to reset your session")
			return
		}
	}
	h.sessions.Remove(p.Subject)
	w.WriteHeader(http.StatusNoContent)
}

// EventsHandler streams session events over a websocket.
func (h *CandidateHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := ctrl.CandidateID()
	client := events.NewClient(conn)
	h.hub.Join(id, client)
	defer func() {
		h.hub.Leave(id, client)
		client.Close()
	}()

	client.Send(session.Event{Type: session.EventSnapshot, CandidateID: id, Data: ctrl.Snapshot(), At: time.Now()})
	go func() {
		if err := client.WritePump(); err != nil {
			h.logger.Debug("websocket write failed", zap.String("candidate_id", id), zap.Error(err))
			_ = conn.Close()
		}
	}()

	// inbound frames are ignored; reading detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
