package ai

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"crisp/internal/llm"
	"crisp/internal/models"
	"crisp/internal/prompts"
)

// Summarizer scores a finished interview transcript.
type Summarizer struct {
	engine
	role string
}

func NewSummarizer(provider llm.Provider, pm prompts.PromptProvider, role string, logger *zap.Logger) *Summarizer {
	return &Summarizer{engine: newEngine(provider, pm, logger), role: role}
}

// summaryReply is the model's answer; scores may come back fractional.
type summaryReply struct {
	FinalScore float64 `json:"finalScore"`
	Summary    string  `json:"summary"`
}

func (s *Summarizer) Summarize(ctx context.Context, transcript string) (models.PerformanceSummary, error) {
	var out summaryReply
	err := s.generateJSON(ctx, "summary", prompts.DefaultVariant, map[string]string{
		"Role":       s.role,
		"Transcript": transcript,
	}, &out)
	if err != nil {
		return models.PerformanceSummary{}, err
	}
	return models.PerformanceSummary{
		FinalScore: RoundScore(out.FinalScore),
		Summary:    strings.TrimSpace(out.Summary),
	}, nil
}

// RoundScore rounds a model score to the nearest whole point within 0..100.
func RoundScore(score float64) int {
	return int(math.Round(math.Max(0, math.Min(100, score))))
}
