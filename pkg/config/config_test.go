package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSQLiteConfig() *Config {
	return &Config{
		Port:           "8080",
		Env:            "development",
		GraphStore:     BackendSQLite,
		SQLitePath:     "graphmem.db",
		LLMBaseURL:     "http://localhost:4000",
		LLMModel:       "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDims:  1536,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validSQLiteConfig().Validate())
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := validSQLiteConfig()
	cfg.GraphStore = "redis"
	assert.Error(t, cfg.Validate())
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := validSQLiteConfig()
	cfg.SQLitePath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_Neo4jRequiresCredentials(t *testing.T) {
	cfg := validSQLiteConfig()
	cfg.GraphStore = BackendNeo4j
	cfg.Neo4jURI = "bolt://localhost:7687"
	cfg.Neo4jUser = "neo4j"
	cfg.Neo4jPassword = ""
	assert.Error(t, cfg.Validate())

	cfg.Neo4jPassword = "password"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EmbeddingDims(t *testing.T) {
	cfg := validSQLiteConfig()
	cfg.EmbeddingDims = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("GRAPH_STORE", BackendSQLite)
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("EMBEDDING_DIMS", "64")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.GraphStore)
	assert.Equal(t, "/tmp/test.db", cfg.SQLitePath)
	assert.Equal(t, 64, cfg.EmbeddingDims)
	assert.Equal(t, "8080", cfg.Port)
}

func TestEnvHelpers(t *testing.T) {
	cfg := validSQLiteConfig()
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.True(t, cfg.IsProduction())
}
