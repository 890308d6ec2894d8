package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig selects and configures the vector store backend. Dimension
// must match the embedding model's output size (postgres only; chromem
// infers it from the first stored vector).
type StoreConfig struct {
	Type       string `yaml:"type"` // "chromem" or "postgres"
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	DSN        string `yaml:"dsn"`
	Dimension  int    `yaml:"dimension"`
	Debug      bool   `yaml:"debug"`
}

// RAGConfig configures chunking geometry and retrieval depth.
type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// LLMConfig describes one model endpoint. The API key is never stored in the
// yaml file; KeyEnv names the environment variable it is read from.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	KeyEnv   string `yaml:"key_env"`
	Key      string `yaml:"-"`
}

type Config struct {
	Server     ServerConfig `yaml:"server"`
	Store      StoreConfig  `yaml:"store"`
	RAG        RAGConfig    `yaml:"rag"`
	Embedding  LLMConfig    `yaml:"embedding"`
	Generation LLMConfig    `yaml:"generation"`
}

// Load reads a config from path. A missing file yields the defaults, so the
// service starts with no configuration file at all.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	cfg.Embedding.Key = os.Getenv(cfg.Embedding.KeyEnv)
	cfg.Generation.Key = os.Getenv(cfg.Generation.KeyEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on settings that would only break at request time.
// A non-positive stride (overlap >= chunk_size) would make chunking loop
// without advancing, so it is rejected here.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap <= 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in (0, chunk_size), got %d with chunk_size %d",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	switch c.Store.Type {
	case "chromem", "postgres":
	default:
		return fmt.Errorf("store.type must be chromem or postgres, got %q", c.Store.Type)
	}
	if c.Store.Type == "postgres" && c.Store.DSN == "" {
		return errors.New("store.dsn is required for the postgres store")
	}
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("store.dimension must be positive, got %d", c.Store.Dimension)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("embedding.provider must be ollama or openai, got %q", c.Embedding.Provider)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "chromem"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./chromem_db"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}
	if cfg.Store.Dimension == 0 {
		cfg.Store.Dimension = 768 // nomic-embed-text
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 50
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.KeyEnv == "" {
		cfg.Embedding.KeyEnv = "OPENROUTER_API_KEY"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "mistralai/mistral-7b-instruct"
	}
	if cfg.Generation.KeyEnv == "" {
		cfg.Generation.KeyEnv = "OPENROUTER_API_KEY"
	}
}
