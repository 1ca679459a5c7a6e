package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"crisp/internal/llm"
	"crisp/internal/models"
)

// app config
type Config struct {
	Port           string
	AllowedOrigins []string

	Provider string
	Role     string
	Topic    string
	Schedule models.Schedule

	// StoreBackend is "mongo" or "memory"; memory also swaps postgres for sqlite.
	StoreBackend string
	MongoURI     string
	MongoDB      string
	SQLitePath   string

	PostgresDSN string
	RedisAddr   string

	JWTSecret   string
	SessionTTL  time.Duration
	AdminEmails []string

	OutboxSchedule    string
	OutboxMaxAttempts int
}

// LoadDotEnv reads .env files when they exist; missing files are not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),

		Provider: getEnvOrDefault("AI_PROVIDER", "gemini"),
		Role:     getEnvOrDefault("INTERVIEW_ROLE", "full stack developer using React and Node.js"),
		Topic:    getEnvOrDefault("INTERVIEW_TOPIC", models.DefaultTopic),
		Schedule: models.DefaultSchedule,

		StoreBackend: strings.ToLower(getEnvOrDefault("STORE_BACKEND", "mongo")),
		MongoURI:     getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnvOrDefault("MONGO_DB", "crisp"),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "file:crisp?mode=memory&cache=shared"),

		PostgresDSN: postgresDSN(),
		RedisAddr:   getEnvOrDefault("REDIS_ADDR", "localhost:6379"),

		JWTSecret:   getEnvOrDefault("JWT_SECRET", "dev"),
		AdminEmails: splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),

		OutboxSchedule: getEnvOrDefault("OUTBOX_RETRY_SCHEDULE", "@every 30s"),
	}

	if raw := os.Getenv("INTERVIEW_SCHEDULE"); raw != "" {
		schedule, err := models.ParseSchedule(raw)
		if err != nil {
			return nil, fmt.Errorf("INTERVIEW_SCHEDULE: %w", err)
		}
		config.Schedule = schedule
	}

	ttl, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	config.SessionTTL = ttl

	attempts, err := strconv.Atoi(getEnvOrDefault("OUTBOX_MAX_ATTEMPTS", "10"))
	if err != nil {
		return nil, fmt.Errorf("OUTBOX_MAX_ATTEMPTS: %w", err)
	}
	config.OutboxMaxAttempts = attempts

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	supported := llm.Registered()
	if len(supported) > 0 && !contains(supported, config.Provider) {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: " + strings.Join(supported, ", "))
	}
	if config.StoreBackend != "mongo" && config.StoreBackend != "memory" {
		return errors.New("STORE_BACKEND must be mongo or memory, got " + config.StoreBackend)
	}
	if config.Schedule.Len() == 0 {
		return errors.New("interview schedule must have at least one slot")
	}
	if config.OutboxMaxAttempts <= 0 {
		return errors.New("OUTBOX_MAX_ATTEMPTS must be positive")
	}
	if config.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	// Gemini validation is handled by gemini.NewConfig()
	return nil
}

// IsAdmin reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdmin(email string) bool {
	return contains(c.AdminEmails, strings.ToLower(strings.TrimSpace(email)))
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_USER", "postgres"),
		getEnvOrDefault("DB_PASSWORD", "postgres"),
		getEnvOrDefault("DB_NAME", "crisp"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
