package ai

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"crisp/internal/llm"
	"crisp/internal/models"
	"crisp/internal/prompts"
)

var ErrEmptyQuestion = errors.New("generated question is empty")

// QuestionGenerator asks the LLM for a single interview question.
type QuestionGenerator struct {
	engine
	role string
}

func NewQuestionGenerator(provider llm.Provider, pm prompts.PromptProvider, role string, logger *zap.Logger) *QuestionGenerator {
	return &QuestionGenerator{engine: newEngine(provider, pm, logger), role: role}
}

// Generate returns the question text. avoid lists texts that must not be repeated.
func (g *QuestionGenerator) Generate(ctx context.Context, difficulty models.Difficulty, topic string, avoid []string) (string, error) {
	if topic == "" {
		topic = models.DefaultTopic
	}
	asked := "(none)"
	if len(avoid) > 0 {
		asked = "- " + strings.Join(avoid, "\n- ")
	}

	var out struct {
		Question string `json:"question"`
	}
	err := g.generateJSON(ctx, "question", strings.ToLower(string(difficulty)), map[string]string{
		"Role":       g.role,
		"Topic":      topic,
		"Difficulty": string(difficulty),
		"Asked":      asked,
	}, &out)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(out.Question)
	if text == "" {
		return "", ErrEmptyQuestion
	}
	return text, nil
}
