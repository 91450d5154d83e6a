package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a LongMem client.
//
// It covers the language model provider (response generation and
// extraction), the embedding provider, the memory record store, and the
// vector index.
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	        Model:    "gpt-4o-mini",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	    },
//	    Database: core.DatabaseConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./longmem.db",
//	        },
//	    },
//	}
type Config struct {
	// LLM contains language model provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Database contains memory record store configuration.
	Database DatabaseConfig `json:"database"`

	// VectorIndex contains vector index configuration.
	VectorIndex VectorIndexConfig `json:"vector_index"`

	// Retrieval tunes the retrieval and scoring parameters (optional,
	// defaults apply when omitted).
	Retrieval *RetrievalConfig `json:"retrieval,omitempty"`
}

// LLMConfig contains configuration for the language model provider.
//
// Supported providers: openai (and OpenAI-compatible endpoints via BaseURL).
type LLMConfig struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the chat model name (e.g. "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL is the API base URL (optional, provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai (and OpenAI-compatible endpoints via BaseURL).
type EmbedderConfig struct {
	// Provider is the provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g. "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL is the API base URL (optional, provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension (e.g. 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// DatabaseConfig contains configuration for the memory record store.
//
// Supported providers: sqlite, postgres, mysql.
type DatabaseConfig struct {
	// Provider is the record store provider name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config"`
}

// VectorIndexConfig contains configuration for the chromem vector index.
type VectorIndexConfig struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path string `json:"path,omitempty"`

	// Collection is the collection name. Defaults to "memories".
	Collection string `json:"collection,omitempty"`

	// Compress enables gzip compression for persisted entries.
	Compress bool `json:"compress,omitempty"`
}

// RetrievalConfig tunes retrieval without pulling the retrieval package into
// caller configuration files. Zero fields keep their defaults.
type RetrievalConfig struct {
	// TopK is the number of memories injected into the prompt.
	TopK int `json:"top_k,omitempty"`

	// ConfidenceThreshold gates the semantic strategy.
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`

	// RecencyTau is the recency decay constant in turns.
	RecencyTau float64 `json:"recency_tau,omitempty"`

	// ImportanceWeight scales importance into the final score.
	ImportanceWeight float64 `json:"importance_weight,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, etc.
//   - VECTOR_INDEX_PATH, VECTOR_INDEX_COLLECTION, VECTOR_INDEX_COMPRESS
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL
//   - MEMORY_TOP_K
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	databaseConfig := make(map[string]interface{})
	switch provider {
	case "sqlite":
		databaseConfig = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./longmem.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "memories"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		databaseConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "longmem"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "memories"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		databaseConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "longmem"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "memories"),
		}
	}

	config := &Config{
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "openai"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		Embedder: EmbedderConfig{
			Provider: getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:   os.Getenv("EMBEDDING_API_KEY"),
			Model:    getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:  os.Getenv("EMBEDDING_BASE_URL"),
		},
		Database: DatabaseConfig{
			Provider: provider,
			Config:   databaseConfig,
		},
		VectorIndex: VectorIndexConfig{
			Path:       os.Getenv("VECTOR_INDEX_PATH"),
			Collection: getEnvOrDefault("VECTOR_INDEX_COLLECTION", "memories"),
			Compress:   os.Getenv("VECTOR_INDEX_COMPRESS") == "true",
		},
	}

	if topK, err := strconv.Atoi(os.Getenv("MEMORY_TOP_K")); err == nil && topK > 0 {
		config.Retrieval = &RetrievalConfig{TopK: topK}
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Database.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files, checking the current
// directory first and then up to 5 directory levels up.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
