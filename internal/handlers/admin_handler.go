package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crisp/internal/middleware"
	"crisp/internal/models"
	"crisp/internal/questions"
	"crisp/internal/repositories"
	"crisp/internal/utils"
)

// QuestionBank is the admin view of the stored question bank.
type QuestionBank interface {
	ListQuestions(ctx context.Context, difficulty models.Difficulty) ([]models.BankQuestion, error)
	Create(ctx context.Context, text string, difficulty models.Difficulty) (*models.BankQuestion, error)
	CreateMany(ctx context.Context, qs []models.Question) (int, error)
	Delete(ctx context.Context, id string) error
}

type QuestionSetGenerator interface {
	GenerateSet(ctx context.Context, topic string, schedule models.Schedule) ([]models.Question, error)
}

type AdminHandler struct {
	bank      QuestionBank
	generator QuestionSetGenerator
	domains   *repositories.DomainRepository
	schedule  models.Schedule
	logger    *zap.Logger
}

func NewAdminHandler(bank QuestionBank, generator QuestionSetGenerator, domains *repositories.DomainRepository, schedule models.Schedule, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{bank: bank, generator: generator, domains: domains, schedule: schedule, logger: logger}
}

func (h *AdminHandler) ListQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	var difficulty models.Difficulty
	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		d, err := models.ParseDifficulty(raw)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid_difficulty", err.Error())
			return
		}
		difficulty = d
	}

	items, err := h.bank.ListQuestions(r.Context(), difficulty)
	if err != nil {
		h.logger.Error("Failed to list questions", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "list_error", "Failed to load questions")
		return
	}
	utils.JSON(w, http.StatusOK, models.QuestionsResponse{Total: len(items), Items: items})
}

func (h *AdminHandler) CreateQuestionHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.CreateQuestionRequest](r)

	q, err := h.bank.Create(r.Context(), req.Question, req.ParsedDifficulty())
	if errors.Is(err, questions.ErrQuestionExists) {
		utils.JSONError(w, http.StatusConflict, "question_exists", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to create question", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "create_error", "Failed to save question")
		return
	}
	utils.JSON(w, http.StatusCreated, q)
}

func (h *AdminHandler) DeleteQuestionHandler(w http.ResponseWriter, r *http.Request) {
	err := h.bank.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, questions.ErrQuestionNotFound) {
		utils.JSONError(w, http.StatusNotFound, "question_not_found", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete question", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "delete_error", "Failed to delete question")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateQuestionSetHandler asks the AI for one question per schedule slot,
// optionally saving them to the bank.
func (h *AdminHandler) GenerateQuestionSetHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.GenerateQuestionSetRequest](r)

	set, err := h.generator.GenerateSet(r.Context(), req.Topic, h.schedule)
	if err != nil {
		h.logger.Error("AI provider error", zap.Error(err), zap.String("topic", req.Topic))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "ai_error",
			Message: "Failed to generate questions",
		})
		return
	}

	resp := models.GeneratedQuestionSet{Topic: req.Topic, Questions: set}
	if req.Save {
		saved, err := h.bank.CreateMany(r.Context(), set)
		if err != nil {
			h.logger.Error("Failed to save generated questions", zap.Error(err))
			utils.JSONError(w, http.StatusInternalServerError, "create_error", "Failed to save generated questions")
			return
		}
		resp.Saved = saved
	}
	h.logger.Info("Question set generated",
		zap.String("topic", req.Topic),
		zap.Int("count", len(set)),
		zap.Int("saved", resp.Saved))
	utils.JSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) ListDomainsHandler(w http.ResponseWriter, r *http.Request) {
	domains, err := h.domains.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list domains", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "list_error", "Failed to load domains")
		return
	}
	utils.JSON(w, http.StatusOK, domains)
}

func (h *AdminHandler) CreateDomainHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.DomainRequest](r)

	d, err := h.domains.Create(r.Context(), utils.NormalizeDomain(req.Domain))
	if errors.Is(err, repositories.ErrDomainExists) {
		utils.JSONError(w, http.StatusConflict, "domain_exists", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to create domain", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "create_error", "Failed to save domain")
		return
	}
	utils.JSON(w, http.StatusCreated, d)
}

func (h *AdminHandler) DeleteDomainHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_id", "Domain id must be a number")
		return
	}
	err = h.domains.Delete(r.Context(), uint(id))
	if errors.Is(err, repositories.ErrDomainNotFound) {
		utils.JSONError(w, http.StatusNotFound, "domain_not_found", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete domain", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "delete_error", "Failed to delete domain")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
