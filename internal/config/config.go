// Package config loads the gateway's configuration from the environment,
// following the getEnv/getEnvAsX helper pattern used throughout this
// codebase.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/upb/llm-gateway/internal/domain"
)

// Config is the complete gateway configuration.
type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Events        EventsConfig
	Providers     []domain.ProviderDescriptor
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection configuration. When
// ConnectionString (from DATABASE_URL) is set, it takes precedence over the
// individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
	MetricsPort    int
}

// EventsConfig controls telemetry-event persistence and its retention
// window.
type EventsConfig struct {
	Enabled       bool
	RetentionDays int
}

// Load builds a Config from the environment, loading a .env file first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Events: EventsConfig{
			Enabled:       getEnvAsBool("EVENTS_ENABLED", true),
			RetentionDays: getEnvAsInt("RETENTION_DAYS", 2),
		},
		Providers: loadProviders(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	if c.Events.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be at least 1")
	}
	return nil
}

// IsProduction reports whether the gateway is running in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Address returns the HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadDatabaseConfig() DatabaseConfig {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "gateway"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "llm_gateway"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// providerSpec holds one closed-set provider's built-in defaults; its
// settings are read from env vars prefixed with the upper-cased id.
type providerSpec struct {
	id              string
	name            string
	baseURLDefault  string
	completionsPath string
	defaultModel    string
}

var providerSpecs = []providerSpec{
	{"cerebras", "Cerebras", "https://api.cerebras.ai/v1", "/chat/completions", "llama3.1-8b"},
	{"cohere", "Cohere", "https://api.cohere.com", "/v2/chat", "command-r"},
	{"openrouter", "OpenRouter", "https://openrouter.ai/api/v1", "/chat/completions", "openrouter/auto"},
	{"gemini", "Gemini", "https://generativelanguage.googleapis.com/v1beta", "/models/{model}:generateContent", "gemini-1.5-flash"},
	{"huggingface", "Hugging Face", "https://api-inference.huggingface.co", "/models/{model_id}", "meta-llama/Llama-3.1-8B-Instruct"},
}

// loadProviders builds the closed-set provider descriptor list, priority
// ordered by PROVIDER_PRIORITY (a comma-separated list of provider IDs).
// Providers named there come first, in the given order; any provider not
// named falls back to its position in providerSpecs.
func loadProviders() []domain.ProviderDescriptor {
	priority := make(map[string]int, len(providerSpecs))
	for i, id := range strings.Split(getEnv("PROVIDER_PRIORITY", "cerebras,openrouter,gemini,cohere,huggingface"), ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		priority[id] = i
	}

	providers := make([]domain.ProviderDescriptor, 0, len(providerSpecs))
	for i, spec := range providerSpecs {
		envPrefix := strings.ToUpper(spec.id)
		p := domain.ProviderDescriptor{
			ID:                  spec.id,
			Name:                spec.name,
			BaseURL:             getEnv(envPrefix+"_BASE_URL", spec.baseURLDefault),
			ChatCompletionsPath: getEnv(envPrefix+"_CHAT_PATH", spec.completionsPath),
			Models: map[string]string{
				"default": getEnv(envPrefix+"_DEFAULT_MODEL", spec.defaultModel),
			},
		}
		if pr, ok := priority[spec.id]; ok {
			p.Priority = pr
		} else {
			p.Priority = len(priority) + i
		}
		providers = append(providers, p)
	}
	return providers
}

// SeedAPIKey returns the API key configured in the environment for a given
// provider ID, following the PROVIDER_API_KEY convention, e.g.
// CEREBRAS_API_KEY. Used only to seed the credential store on first boot;
// subsequent updates go through the admin API.
func SeedAPIKey(providerID string) string {
	return getEnv(strings.ToUpper(providerID)+"_API_KEY", "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
