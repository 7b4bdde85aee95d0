package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Generation GenerationConfig
	Search     SearchConfig
	Similarity SimilarityConfig
	Media      MediaConfig
	Logging    LoggingConfig

	// Warnings lists environment values that could not be parsed and
	// were replaced by their defaults
	Warnings []string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	StaticDir      string
}

// DatabaseConfig selects and parameterizes the search backend.
// Credentials are checked when the backend is first used, not here.
type DatabaseConfig struct {
	Backend            string // sqlserver, postgres, sqlite, cloudsql-api
	Driver             string // postgres only: postgres (lib/pq) or pgx
	DSN                string // full connection string, overrides the fields below
	Instance           string // host for direct drivers, project:region:instance for cloudsql-api, file for sqlite
	Port               int
	User               string
	Password           string
	Name               string
	SSLMode            string
	ServiceAccountJSON string
	APIEndpoint        string
	Timeout            int
	MaxConnections     int
	MaxIdleConnections int
	Seed               bool
}

// GenerationConfig holds text-generation model configuration
type GenerationConfig struct {
	Provider    string // gemini, openai, ollama
	APIKey      string
	APIBase     string
	Model       string
	Temperature float64
	Timeout     int
}

// SearchConfig holds search endpoint behaviour
type SearchConfig struct {
	ExposeSQL        bool
	SQLGuard         bool
	PlaceholderImage string
}

// SimilarityConfig holds embedding similarity configuration
type SimilarityConfig struct {
	Enabled     bool
	Provider    string // openai, ollama
	APIBase     string
	APIKey      string
	Model       string
	Dimensions  int
	BatchSize   int
	Timeout     int
	Index       string // memory, pgvector
	PgvectorDSN string
	DefaultTopK int
}

// MediaConfig holds the optional realty photo feed
type MediaConfig struct {
	RealtyAPIURL   string
	RealtyAPIToken string
	Timeout        int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	env := &envReader{}

	cfg := &Config{
		Server: ServerConfig{
			Port:           env.getInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			StaticDir:      getEnv("STATIC_DIR", ""),
		},
		Database: DatabaseConfig{
			Backend:            strings.ToLower(getEnv("DB_BACKEND", "sqlserver")),
			Driver:             strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:                getEnv("DB_DSN", getEnv("DATABASE_URL", "")),
			Instance:           getEnv("DB_INSTANCE", getEnv("CLOUD_SQL_INSTANCE_CONNECTION_NAME", "")),
			Port:               env.getInt("DB_PORT", 0),
			User:               getEnv("DB_USER", getEnv("CLOUD_SQL_DB_USER", "")),
			Password:           getEnv("DB_PASSWORD", getEnv("CLOUD_SQL_DB_PASSWORD", "")),
			Name:               getEnv("DB_NAME", getEnv("CLOUD_SQL_DB_NAME", "")),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			ServiceAccountJSON: getEnv("DB_SERVICE_ACCOUNT_JSON", getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", "")),
			APIEndpoint:        getEnv("DB_API_ENDPOINT", "https://sqladmin.googleapis.com"),
			Timeout:            env.getInt("DB_TIMEOUT", 30),
			MaxConnections:     env.getInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: env.getInt("DB_MAX_IDLE_CONNECTIONS", 5),
			Seed:               env.getBool("DB_SEED", false),
		},
		Generation: GenerationConfig{
			Provider:    strings.ToLower(getEnv("GENERATION_PROVIDER", "gemini")),
			APIKey:      getEnv("GENERATION_API_KEY", getEnv("GEMINI_API_KEY", "")),
			APIBase:     getEnv("GENERATION_API_BASE", ""),
			Model:       getEnv("GENERATION_MODEL", ""),
			Temperature: env.getFloat("GENERATION_TEMPERATURE", 0),
			Timeout:     env.getInt("GENERATION_TIMEOUT", 30),
		},
		Search: SearchConfig{
			ExposeSQL:        env.getBool("SEARCH_EXPOSE_SQL", false),
			SQLGuard:         env.getBool("SEARCH_SQL_GUARD", true),
			PlaceholderImage: getEnv("SEARCH_PLACEHOLDER_IMAGE", "https://via.placeholder.com/400x300?text=Property+Image"),
		},
		Similarity: SimilarityConfig{
			Enabled:     env.getBool("SIMILARITY_ENABLED", false),
			Provider:    strings.ToLower(getEnv("SIMILARITY_PROVIDER", "openai")),
			APIBase:     getEnv("SIMILARITY_API_BASE", ""),
			APIKey:      getEnv("SIMILARITY_API_KEY", getEnv("OPENAI_API_KEY", "")),
			Model:       getEnv("SIMILARITY_MODEL", ""),
			Dimensions:  env.getInt("SIMILARITY_DIMENSIONS", 0),
			BatchSize:   env.getInt("SIMILARITY_BATCH_SIZE", 100),
			Timeout:     env.getInt("SIMILARITY_TIMEOUT", 30),
			Index:       strings.ToLower(getEnv("SIMILARITY_INDEX", "memory")),
			PgvectorDSN: getEnv("SIMILARITY_PGVECTOR_DSN", ""),
			DefaultTopK: env.getInt("SIMILARITY_TOP_K", 5),
		},
		Media: MediaConfig{
			RealtyAPIURL:   getEnv("REALTY_API_URL", ""),
			RealtyAPIToken: getEnv("REALTY_API_TOKEN", ""),
			Timeout:        env.getInt("REALTY_TIMEOUT", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Generation.APIBase == "" {
		cfg.Generation.APIBase = defaultAPIBase(cfg.Generation.Provider)
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaultModel(cfg.Generation.Provider)
	}
	if cfg.Similarity.APIBase == "" {
		cfg.Similarity.APIBase = defaultAPIBase(cfg.Similarity.Provider)
	}
	if cfg.Similarity.Model == "" {
		cfg.Similarity.Model = defaultEmbeddingModel(cfg.Similarity.Provider)
	}
	cfg.Warnings = env.warnings

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Backend {
	case "sqlserver", "postgres", "sqlite", "cloudsql-api":
	default:
		return fmt.Errorf("unsupported DB_BACKEND %q", c.Database.Backend)
	}
	if c.Database.Backend == "postgres" && c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Generation.Provider {
	case "gemini", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported GENERATION_PROVIDER %q", c.Generation.Provider)
	}
	if c.Similarity.Enabled {
		if c.Similarity.Provider != "openai" && c.Similarity.Provider != "ollama" {
			return fmt.Errorf("unsupported SIMILARITY_PROVIDER %q", c.Similarity.Provider)
		}
		if c.Similarity.Index != "memory" && c.Similarity.Index != "pgvector" {
			return fmt.Errorf("unsupported SIMILARITY_INDEX %q", c.Similarity.Index)
		}
		if c.Similarity.Index == "pgvector" && c.Similarity.PgvectorDSN == "" {
			return fmt.Errorf("SIMILARITY_PGVECTOR_DSN is required for the pgvector index")
		}
		if c.Similarity.Timeout <= 0 {
			return fmt.Errorf("SIMILARITY_TIMEOUT must be positive")
		}
	}
	if c.Media.RealtyAPIURL != "" && c.Media.Timeout <= 0 {
		return fmt.Errorf("REALTY_TIMEOUT must be positive")
	}
	if c.Generation.Timeout <= 0 || c.Database.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func defaultAPIBase(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "ollama":
		return "http://localhost:11434"
	default:
		return "https://generativelanguage.googleapis.com"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "ollama":
		return "llama3.1"
	default:
		return "gemini-2.0-flash"
	}
}

func defaultEmbeddingModel(provider string) string {
	if provider == "ollama" {
		return "nomic-embed-text"
	}
	return "text-embedding-3-small"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// envReader parses typed values and collects a warning for each value
// that falls back to its default
type envReader struct {
	warnings []string
}

func (r *envReader) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *envReader) getInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		r.warn("invalid integer value %q for %s, using default %d", valueStr, key, defaultValue)
		return defaultValue
	}
	return value
}

func (r *envReader) getFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		r.warn("invalid float value %q for %s, using default %g", valueStr, key, defaultValue)
		return defaultValue
	}
	return value
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		r.warn("invalid boolean value %q for %s, using default %t", valueStr, key, defaultValue)
		return defaultValue
	}
	return value
}
