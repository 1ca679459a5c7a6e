package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crisp/internal/llm"
	"crisp/internal/prompts"
	"crisp/internal/utils"
)

// engine is shared by every AI-backed component: build a prompt, call the
// provider, decode the JSON answer.
type engine struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	logger   *zap.Logger
}

func newEngine(provider llm.Provider, pm prompts.PromptProvider, logger *zap.Logger) engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return engine{provider: provider, prompts: pm, logger: logger}
}

func (e engine) generateJSON(ctx context.Context, mode, variant string, data map[string]string, out any) error {
	prompt, err := e.prompts.BuildPrompt(mode, variant, data)
	if err != nil {
		return fmt.Errorf("build %s prompt: %w", mode, err)
	}

	requestID := uuid.NewString()
	resp, err := e.provider.GenerateContent(ctx, prompt, requestID)
	if err != nil {
		e.logger.Warn("AI provider error",
			zap.String("mode", mode),
			zap.String("request_id", requestID),
			zap.Error(err))
		return err
	}

	if err := decodeJSON(resp.Content, out); err != nil {
		e.logger.Warn("AI returned malformed output",
			zap.String("mode", mode),
			zap.String("request_id", requestID),
			zap.Error(err))
		return &llm.ProviderError{
			Provider: e.provider.GetProviderName(),
			Code:     llm.ErrCodeBadOutput,
			Message:  "Could not decode " + mode + " response",
			Err:      err,
		}
	}

	e.logger.Debug("AI content generated",
		zap.String("mode", mode),
		zap.String("request_id", requestID),
		zap.String("provider", resp.Metadata.Provider),
		zap.Int("processing_time_ms", resp.Metadata.ProcessingTime))
	return nil
}

// decodeJSON tolerates code fences and leading chatter around the object.
func decodeJSON(raw string, out any) error {
	text := utils.StripFences(raw)
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), out)
}
