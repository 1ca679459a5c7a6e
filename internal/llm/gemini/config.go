package gemini

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// holds Gemini-specific configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	Timeout     time.Duration
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash" // default model
	}

	cfg := &Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: os.Getenv("GEMINI_BASE_URL"),
		Timeout: 30 * time.Second,
	}

	if raw := os.Getenv("GEMINI_TEMPERATURE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, errors.New("GEMINI_TEMPERATURE must be a number")
		}
		t := float32(v)
		cfg.Temperature = &t
	}

	if raw := os.Getenv("GEMINI_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.New("GEMINI_TIMEOUT must be a duration such as 30s")
		}
		cfg.Timeout = d
	}

	return cfg, nil
}
