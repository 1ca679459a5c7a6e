package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"crisp/internal/llm"
	"crisp/internal/models"
	"crisp/internal/prompts"
)

// ResumeParser extracts contact details from resume text and drafts a
// follow-up prompt for anything missing.
type ResumeParser struct {
	engine
	cache *ResultCache
}

func NewResumeParser(provider llm.Provider, pm prompts.PromptProvider, logger *zap.Logger) *ResumeParser {
	return &ResumeParser{
		engine: newEngine(provider, pm, logger),
		cache:  NewResultCache(30 * time.Minute),
	}
}

func (p *ResumeParser) Parse(ctx context.Context, resumeText string) (models.MissingInfo, error) {
	key := resumeKey(resumeText)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	var parsed models.ParsedResume
	if err := p.generateJSON(ctx, "resume", prompts.DefaultVariant, map[string]string{
		"Resume": resumeText,
	}, &parsed); err != nil {
		return models.MissingInfo{}, err
	}
	parsed.Name = strings.TrimSpace(parsed.Name)
	parsed.Email = strings.ToLower(strings.TrimSpace(parsed.Email))
	parsed.Phone = strings.TrimSpace(parsed.Phone)

	result := models.MissingInfo{ParsedResume: parsed}
	missing := MissingFields(parsed)
	if len(missing) > 0 {
		var out struct {
			MissingFieldsPrompt string `json:"missingFieldsPrompt"`
		}
		err := p.generateJSON(ctx, "missing_info", prompts.DefaultVariant, map[string]string{
			"Name":    parsed.Name,
			"Email":   parsed.Email,
			"Phone":   parsed.Phone,
			"Missing": strings.Join(missing, ", "),
		}, &out)
		if err != nil || strings.TrimSpace(out.MissingFieldsPrompt) == "" {
			// the parsed fields are still useful without the friendly wording
			out.MissingFieldsPrompt = "Please provide your " + strings.Join(missing, ", ") + "."
		}
		result.MissingFieldsPrompt = strings.TrimSpace(out.MissingFieldsPrompt)
	}

	p.cache.Set(key, result)
	return result, nil
}

// MissingFields lists the contact fields that could not be extracted.
func MissingFields(r models.ParsedResume) []string {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.Phone == "" {
		missing = append(missing, "phone")
	}
	return missing
}

func resumeKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
