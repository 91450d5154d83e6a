package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longformai/longmem-go/pkg/core"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("MEMORY_TOP_K", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Database.Provider)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, "openai", config.Embedder.Provider)
	assert.Equal(t, "text-embedding-3-small", config.Embedder.Model)
	assert.Equal(t, "memories", config.VectorIndex.Collection)
	assert.Nil(t, config.Retrieval)
}

func TestLoadConfigFromEnvPostgres(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "longmem")
	t.Setenv("POSTGRES_DATABASE", "memories_db")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Database.Provider)
	assert.Equal(t, "db.internal", config.Database.Config["host"])
	assert.Equal(t, 5433, config.Database.Config["port"])
	assert.Equal(t, "longmem", config.Database.Config["user"])
	assert.Equal(t, "memories_db", config.Database.Config["db_name"])
}

func TestLoadConfigFromEnvRetrievalOverride(t *testing.T) {
	t.Setenv("MEMORY_TOP_K", "8")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	require.NotNil(t, config.Retrieval)
	assert.Equal(t, 8, config.Retrieval.TopK)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"llm": {"provider": "openai", "api_key": "sk-test", "model": "gpt-4o-mini"},
		"embedder": {"provider": "openai", "api_key": "sk-test", "dimensions": 1536},
		"database": {"provider": "sqlite", "config": {"db_path": "./test.db"}},
		"vector_index": {"collection": "memories"},
		"retrieval": {"top_k": 10, "confidence_threshold": 0.6}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, 1536, config.Embedder.Dimensions)
	assert.Equal(t, "sqlite", config.Database.Provider)
	assert.Equal(t, "./test.db", config.Database.Config["db_path"])
	require.NotNil(t, config.Retrieval)
	assert.Equal(t, 10, config.Retrieval.TopK)
	assert.Equal(t, 0.6, config.Retrieval.ConfidenceThreshold)

	require.NoError(t, config.Validate())
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	config := &core.Config{
		LLM:      core.LLMConfig{Provider: "openai"},
		Embedder: core.EmbedderConfig{Provider: "openai"},
		Database: core.DatabaseConfig{Provider: "sqlite"},
	}
	assert.NoError(t, config.Validate())

	config.LLM.Provider = ""
	assert.ErrorIs(t, config.Validate(), core.ErrInvalidConfig)

	config.LLM.Provider = "openai"
	config.Database.Provider = ""
	assert.ErrorIs(t, config.Validate(), core.ErrInvalidConfig)
}
