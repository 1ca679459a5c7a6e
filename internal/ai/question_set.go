package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"crisp/internal/llm"
	"crisp/internal/models"
	"crisp/internal/prompts"
)

// QuestionSetGenerator drafts a full question set for a schedule in one call.
type QuestionSetGenerator struct {
	engine
	role string
}

func NewQuestionSetGenerator(provider llm.Provider, pm prompts.PromptProvider, role string, logger *zap.Logger) *QuestionSetGenerator {
	return &QuestionSetGenerator{engine: newEngine(provider, pm, logger), role: role}
}

// GenerateSet returns one generated question per slot. Entries with an unknown
// difficulty take the difficulty of their slot; duplicates are dropped.
func (g *QuestionSetGenerator) GenerateSet(ctx context.Context, topic string, schedule models.Schedule) ([]models.Question, error) {
	if topic == "" {
		topic = models.DefaultTopic
	}
	lines := make([]string, 0, len(schedule))
	for i, slot := range schedule {
		lines = append(lines, fmt.Sprintf("%d. %s (%ds)", i+1, slot.Difficulty, slot.Duration))
	}

	var out struct {
		Questions []struct {
			Question   string `json:"question"`
			Difficulty string `json:"difficulty"`
		} `json:"questions"`
	}
	err := g.generateJSON(ctx, "question_set", prompts.DefaultVariant, map[string]string{
		"Role":     g.role,
		"Topic":    topic,
		"Schedule": strings.Join(lines, "\n"),
	}, &out)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	questions := make([]models.Question, 0, len(out.Questions))
	for i, item := range out.Questions {
		text := strings.TrimSpace(item.Question)
		if text == "" {
			continue
		}
		difficulty, err := models.ParseDifficulty(item.Difficulty)
		if err != nil && i < len(schedule) {
			difficulty = schedule[i].Difficulty
		} else if err != nil {
			continue
		}
		q := models.NewQuestion(text, difficulty, models.SourceGenerated)
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, &llm.ProviderError{
			Provider: g.provider.GetProviderName(),
			Code:     llm.ErrCodeBadOutput,
			Message:  "No questions generated",
		}
	}
	return questions, nil
}
