package config

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Backend names accepted for GRAPH_STORE
const (
	BackendNeo4j  = "neo4j"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Graph store
	GraphStore string // neo4j or sqlite

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// SQLite
	SQLitePath string

	// LLM (OpenAI-compatible endpoint, e.g. LiteLLM)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Embeddings
	EmbeddingModel string
	EmbeddingDims  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		GraphStore:     getEnv("GRAPH_STORE", BackendNeo4j),
		Neo4jURI:       getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:      getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:  getEnv("NEO4J_PASSWORD", "password"),
		SQLitePath:     getEnv("SQLITE_PATH", "graphmem.db"),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:  getEnvInt("EMBEDDING_DIMS", 1536),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are consistent
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.GraphStore, validation.Required, validation.In(BackendNeo4j, BackendSQLite)),
		validation.Field(&c.LLMBaseURL, validation.Required),
		validation.Field(&c.LLMModel, validation.Required),
		validation.Field(&c.EmbeddingModel, validation.Required),
		validation.Field(&c.EmbeddingDims, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}

	switch c.GraphStore {
	case BackendNeo4j:
		return validation.ValidateStruct(c,
			validation.Field(&c.Neo4jURI, validation.Required),
			validation.Field(&c.Neo4jUser, validation.Required),
			validation.Field(&c.Neo4jPassword, validation.Required),
		)
	case BackendSQLite:
		return validation.ValidateStruct(c,
			validation.Field(&c.SQLitePath, validation.Required),
		)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
