package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"crisp/internal/middleware"
	"crisp/internal/models"
	"crisp/internal/repositories"
	"crisp/internal/utils"
)

// AuthHandler manages interviewer and admin authentication endpoints.
type AuthHandler struct {
	Interviewers *repositories.InterviewerRepository
	Domains      *repositories.DomainRepository
	JWTSecret    string
	TokenTTL     time.Duration
	IsAdmin      func(email string) bool
	Logger       *zap.Logger
}

func NewAuthHandler(interviewers *repositories.InterviewerRepository, domains *repositories.DomainRepository, secret string, ttl time.Duration, isAdmin func(string) bool, logger *zap.Logger) *AuthHandler {
	if secret == "" {
		secret = "dev"
	}
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		Interviewers: interviewers,
		Domains:      domains,
		JWTSecret:    secret,
		TokenTTL:     ttl,
		IsAdmin:      isAdmin,
		Logger:       logger,
	}
}

// RegisterHandler creates a dashboard account. Only emails on an allowed
// company domain, or listed admins, may register.
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.RegisterRequest](r)
	ctx := r.Context()

	if !utils.IsPasswordValid(req.Password) {
		utils.JSONError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters and contain a special character")
		return
	}

	role := models.RoleInterviewer
	if h.IsAdmin(req.Email) {
		role = models.RoleAdmin
	} else {
		allowed, err := h.Domains.IsAllowed(ctx, utils.EmailDomain(req.Email))
		if err != nil {
			h.Logger.Error("Failed to check allowed domains", zap.Error(err))
			utils.JSONError(w, http.StatusInternalServerError, "domain_error", "Failed to check your company domain")
			return
		}
		if !allowed {
			utils.JSONError(w, http.StatusForbidden, "domain_not_allowed", "Your company domain is not allowed to register")
			return
		}
	}

	if existing, _ := h.Interviewers.GetByEmail(ctx, req.Email); existing != nil {
		utils.JSONError(w, http.StatusConflict, "email_taken", "An account already exists for this email")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "hash_error", "Failed to hash password")
		return
	}
	account := &models.Interviewer{Email: req.Email, PasswordHash: string(hash), Role: role}
	if err := h.Interviewers.Create(ctx, account); err != nil {
		h.Logger.Error("Failed to create interviewer", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "create_error", "Failed to create account")
		return
	}

	h.respondWithToken(w, http.StatusCreated, account)
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.LoginRequest](r)

	account, err := h.Interviewers.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, repositories.ErrInterviewerNotFound) {
		utils.JSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}
	if err != nil {
		h.Logger.Error("Failed to load interviewer", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "login_error", "Failed to log in")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		utils.JSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}
	// ADMIN_EMAILS may change after the account was created
	if h.IsAdmin(account.Email) {
		account.Role = models.RoleAdmin
	}

	h.respondWithToken(w, http.StatusOK, account)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, account *models.Interviewer) {
	domain := utils.EmailDomain(account.Email)
	signed, err := middleware.SignPrincipal(h.JWTSecret, middleware.Principal{
		Subject:       strconv.FormatUint(uint64(account.ID), 10),
		Role:          string(account.Role),
		Email:         account.Email,
		CompanyDomain: &domain,
	}, h.TokenTTL)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "token_error", "Failed to sign token")
		return
	}
	utils.JSON(w, status, models.AuthResponse{Token: signed, Email: account.Email, Role: account.Role})
}
