package domain

import (
	"fmt"
	"sort"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGroq is Groq's OpenAI-compatible API.
	AIProviderGroq AIProvider = "groq"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGroq, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// Store types understood by the storage factory.
const (
	StoreTypeSQLite = "sqlite"
	StoreTypeMemory = "memory"
	StoreTypeSqvect = "sqvect"
)

// Source types understood by the connector factory.
const (
	SourceTypeNotion     = "notion"
	SourceTypeFilesystem = "filesystem"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultDataDir             = "~/.notesync"
	DefaultTargetTokens        = 500
	DefaultOverlapTokens       = 75
	DefaultMinChunkTokens      = 100
	DefaultEmbeddingModel      = "nomic-embed-text"
	DefaultEmbeddingDimensions = 768
	DefaultEmbeddingCacheSize  = 4096
	DefaultNotionRPS           = 3.0
	DefaultMaxRetries          = 3
	DefaultInitialDelaySeconds = 1.0
	DefaultMaxDelaySeconds     = 16.0
	DefaultStoreName           = "graph"
)

// DefaultModels maps each provider to the model used when none is configured.
func DefaultModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "mistral:7b",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderGroq:      "qwen-2.5-32b",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// Config is the full application configuration.
type Config struct {
	DataDir                string                 `toml:"data_dir" yaml:"data_dir"`
	Source                 SourceSettings         `toml:"source" yaml:"source"`
	Model                  ModelSettings          `toml:"model" yaml:"model"`
	Embedding              EmbeddingSettings      `toml:"embedding" yaml:"embedding"`
	RelationshipExtraction RelationshipSettings   `toml:"relationship_extraction" yaml:"relationship_extraction"`
	RateLimits             map[string]float64     `toml:"rate_limits" yaml:"rate_limits"`
	Chunking               ChunkingSettings       `toml:"chunking" yaml:"chunking"`
	Retry                  RetrySettings          `toml:"retry" yaml:"retry"`
	Stores                 map[string]StoreConfig `toml:"stores" yaml:"stores"`
}

// SourceSettings selects and configures the document source.
type SourceSettings struct {
	Type       string             `toml:"type" yaml:"type"`
	Notion     NotionSettings     `toml:"notion" yaml:"notion"`
	Filesystem FilesystemSettings `toml:"filesystem" yaml:"filesystem"`
}

// NotionSettings configures the Notion connector.
type NotionSettings struct {
	Token             string  `toml:"token" yaml:"token"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
}

// FilesystemSettings configures the markdown directory connector.
type FilesystemSettings struct {
	Path string `toml:"path" yaml:"path"`
}

// ModelSettings configures the language model.
type ModelSettings struct {
	Provider AIProvider `toml:"provider" yaml:"provider"`
	BaseURL  string     `toml:"base_url" yaml:"base_url"`
	APIKey   string     `toml:"api_key" yaml:"api_key"`

	// Models maps provider name to model name.
	Models map[string]string `toml:"models" yaml:"models"`

	// SummaryModel is a smaller model for per-chunk fallback summaries.
	// Empty uses the main model.
	SummaryModel string `toml:"summary_model" yaml:"summary_model"`
}

// ModelName returns the configured model for the active provider.
func (m ModelSettings) ModelName() string {
	if name := m.Models[string(m.Provider)]; name != "" {
		return name
	}
	return DefaultModels()[m.Provider]
}

// IsConfigured returns true if the LLM provider is set up.
func (m ModelSettings) IsConfigured() bool {
	if !m.Provider.IsValid() {
		return false
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider. Empty disables embeddings.
	Provider AIProvider `toml:"provider" yaml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model" yaml:"model"`

	// BaseURL is the API endpoint.
	BaseURL string `toml:"base_url" yaml:"base_url"`

	// APIKey is the API key (for OpenAI).
	APIKey string `toml:"api_key" yaml:"api_key"`

	// Dimensions is the vector size.
	Dimensions int `toml:"dimensions" yaml:"dimensions"`

	// CacheSize is the number of embeddings kept in the LRU cache.
	CacheSize int `toml:"cache_size" yaml:"cache_size"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RelationshipSettings toggles knowledge graph extraction.
type RelationshipSettings struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// ChunkingSettings configures the token window fallback.
type ChunkingSettings struct {
	TargetTokens   int `toml:"target_tokens" yaml:"target_tokens"`
	OverlapTokens  int `toml:"overlap_tokens" yaml:"overlap_tokens"`
	MinChunkTokens int `toml:"min_chunk_tokens" yaml:"min_chunk_tokens"`
}

// RetrySettings configures backoff for transient failures.
type RetrySettings struct {
	MaxRetries          int     `toml:"max_retries" yaml:"max_retries"`
	InitialDelaySeconds float64 `toml:"initial_delay_seconds" yaml:"initial_delay_seconds"`
	MaxDelaySeconds     float64 `toml:"max_delay_seconds" yaml:"max_delay_seconds"`
}

// InitialDelay returns the first backoff delay.
func (r RetrySettings) InitialDelay() time.Duration {
	return seconds(r.InitialDelaySeconds)
}

// MaxDelay returns the backoff ceiling.
func (r RetrySettings) MaxDelay() time.Duration {
	return seconds(r.MaxDelaySeconds)
}

// StoreConfig configures one persistence backend.
type StoreConfig struct {
	Type                  string            `toml:"type" yaml:"type"`
	Enabled               bool              `toml:"enabled" yaml:"enabled"`
	SupportsRelationships bool              `toml:"supports_relationships" yaml:"supports_relationships"`
	Settings              map[string]string `toml:"settings" yaml:"settings"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Source.Notion.RequestsPerSecond <= 0 {
		c.Source.Notion.RequestsPerSecond = DefaultNotionRPS
	}
	if c.Model.Provider == "" {
		c.Model.Provider = AIProviderOllama
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = DefaultEmbeddingModel
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = DefaultEmbeddingDimensions
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = DefaultEmbeddingCacheSize
	}
	if c.Chunking.TargetTokens <= 0 {
		c.Chunking.TargetTokens = DefaultTargetTokens
	}
	if c.Chunking.OverlapTokens <= 0 {
		c.Chunking.OverlapTokens = DefaultOverlapTokens
	}
	if c.Chunking.MinChunkTokens <= 0 {
		c.Chunking.MinChunkTokens = DefaultMinChunkTokens
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = DefaultMaxRetries
	}
	if c.Retry.InitialDelaySeconds <= 0 {
		c.Retry.InitialDelaySeconds = DefaultInitialDelaySeconds
	}
	if c.Retry.MaxDelaySeconds <= 0 {
		c.Retry.MaxDelaySeconds = DefaultMaxDelaySeconds
	}
	if len(c.Stores) == 0 {
		c.Stores = map[string]StoreConfig{
			DefaultStoreName: {Type: StoreTypeSQLite, Enabled: true, SupportsRelationships: true},
		}
	}
}

// Validate reports configuration errors that must stop startup.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceTypeNotion:
		if c.Source.Notion.Token == "" {
			return fmt.Errorf("%w: source.notion.token is required", ErrConfiguration)
		}
	case SourceTypeFilesystem:
		if c.Source.Filesystem.Path == "" {
			return fmt.Errorf("%w: source.filesystem.path is required", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrConfiguration, c.Source.Type)
	}

	if !c.Model.Provider.IsValid() {
		return fmt.Errorf("%w: unknown model provider %q", ErrConfiguration, c.Model.Provider)
	}
	if !c.Model.IsConfigured() {
		return fmt.Errorf("%w: model.api_key is required for %s", ErrConfiguration, c.Model.Provider)
	}
	if c.Embedding.Provider != "" && !c.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not usable", ErrConfiguration, c.Embedding.Provider)
	}
	if c.Chunking.OverlapTokens >= c.Chunking.TargetTokens {
		return fmt.Errorf("%w: chunking.overlap_tokens must be below target_tokens", ErrConfiguration)
	}

	enabled := 0
	for name, store := range c.Stores {
		if !store.Enabled {
			continue
		}
		enabled++
		switch store.Type {
		case StoreTypeSQLite, StoreTypeMemory:
		case StoreTypeSqvect:
			if !c.Embedding.IsConfigured() {
				return fmt.Errorf("%w: store %q needs an embedding provider", ErrConfiguration, name)
			}
		default:
			return fmt.Errorf("%w: store %q has unknown type %q", ErrConfiguration, name, store.Type)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w: no document store is enabled", ErrConfiguration)
	}
	return nil
}

// EnabledStores returns enabled store names in a stable order.
func (c *Config) EnabledStores() []string {
	names := make([]string, 0, len(c.Stores))
	for name, store := range c.Stores {
		if store.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RateLimit returns the minimum delay between calls to a provider.
func (c *Config) RateLimit(provider string) time.Duration {
	return seconds(c.RateLimits[provider])
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
