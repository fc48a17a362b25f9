package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string

	JWTSecret              string
	JWTTTL                 time.Duration
	AllowAdminRegistration bool

	LLMProvider     string
	LLMAPIKey       string
	LLMBaseURL      string
	LLMModel        string
	AnthropicAPIKey string
	AnthropicModel  string

	EmbeddingAPIURL string
	EmbeddingAPIKey string
	EmbeddingModel  string

	PineconeAPIKey    string
	PineconeIndexName string
	PineconeNamespace string

	GenerationTimeout time.Duration
	GradingTimeout    time.Duration
	EmbeddingTimeout  time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8000"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL: getEnv("DB_URL", ""),

		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTTTL:                 getEnvDuration("JWT_TTL", 24*time.Hour),
		AllowAdminRegistration: getEnvBool("ALLOW_ADMIN_REGISTRATION", false),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMAPIKey:       getEnv("LLM_API_KEY", os.Getenv("OPENROUTER_API_KEY")),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:        getEnv("LLM_MODEL", "tngtech/deepseek-r1t2-chimera:free"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),

		EmbeddingAPIURL: getEnv("EMBEDDING_API_URL", ""),
		EmbeddingAPIKey: getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),

		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "coursequiz-questions"),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "question-bank"),

		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 120*time.Second),
		GradingTimeout:    getEnvDuration("GRADING_TIMEOUT", 60*time.Second),
		EmbeddingTimeout:  getEnvDuration("EMBEDDING_TIMEOUT", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// EmbeddingsEnabled reports whether semantic deduplication can run.
func (c *Config) EmbeddingsEnabled() bool {
	return c.EmbeddingAPIURL != "" && c.EmbeddingAPIKey != ""
}

func (c *Config) PineconeEnabled() bool {
	return c.PineconeAPIKey != ""
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func ConfigureLogging(cfg *Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, falling back to info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Errorf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Errorf("Error converting environment variable %s to bool: %v", key, err)
		return defaultValue
	}
	return boolValue
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds := getEnvInt(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
