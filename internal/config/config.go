// Package config loads the ragsync TOML configuration, overlays
// environment secrets and validates the result before any pipeline is
// wired. Validation failures here are startup errors; nothing retries
// a bad configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// DefaultFile is the configuration path used when --config is not set.
const DefaultFile = "ragsync.toml"

// Environment variables overlaid onto the file at load time. Secrets
// belong in the environment (or a .env file), not in the TOML.
const (
	// EnvOpenAIAPIKey supplies the embedding API key.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// EnvDatabaseURL supplies a postgres DSN and switches the store
	// driver to postgres when the file does not choose one.
	EnvDatabaseURL = "DATABASE_URL"

	// EnvRunMode set to "single" makes `ragsync watch` run one cycle
	// and exit, which is how container schedulers invoke the binary.
	EnvRunMode = "RUN_MODE"
)

// Defaults applied to absent fields.
const (
	// DefaultCheckInterval is the pause between sync cycles.
	DefaultCheckInterval = 60 * time.Second

	// DefaultChunkSizeLocal is the chunk size for local directory
	// sources. Local corpora tend to be prose documents, so chunks
	// are larger.
	DefaultChunkSizeLocal = 1000

	// DefaultChunkSizeDrive is the chunk size for Google Drive
	// sources.
	DefaultChunkSizeDrive = 400

	// DefaultEmbedBatchSize caps chunks per embedding request.
	DefaultEmbedBatchSize = 100

	// DefaultListenAddr is the status server bind address.
	DefaultListenAddr = "127.0.0.1:8089"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default embedding models per provider.
const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaModel = "nomic-embed-text"
)

// Duration is a time.Duration that unmarshals from TOML strings such
// as "90s" or "5m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full ragsync configuration.
type Config struct {
	// Verbose enables debug logging; the --verbose flag also sets it.
	Verbose bool `toml:"verbose"`

	Store     StoreConfig      `toml:"store"`
	Embedding EmbeddingConfig  `toml:"embedding"`
	Server    ServerConfig     `toml:"server"`
	Pipelines []PipelineConfig `toml:"pipelines"`
}

// StoreConfig selects and configures the index/state store backend.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `toml:"driver"`

	// DataDir holds the sqlite database; empty means ~/.ragsync/data.
	DataDir string `toml:"data_dir"`

	// DSN is the postgres connection string. DATABASE_URL overrides it.
	DSN string `toml:"dsn"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`

	// Model is the embedding model name; defaulted per provider.
	Model string `toml:"model"`

	// APIKey authenticates hosted providers. OPENAI_API_KEY overrides
	// an empty value, so the key can stay out of the file.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Dimensions overrides the model's default vector size. Required
	// when the model is not a known one and the store is postgres.
	Dimensions int `toml:"dimensions"`

	// BatchSize caps chunks per embedding request.
	BatchSize int `toml:"batch_size"`

	// RequestsPerMinute caps the request rate, 0 means provider default.
	RequestsPerMinute float64 `toml:"requests_per_minute"`
}

// Settings converts the section into the domain settings consumed by
// the embedding factory.
func (e EmbeddingConfig) Settings() *domain.EmbeddingSettings {
	return &domain.EmbeddingSettings{
		Provider:          domain.AIProvider(e.Provider),
		Model:             e.Model,
		APIKey:            e.APIKey,
		BaseURL:           e.BaseURL,
		Dimensions:        e.Dimensions,
		RequestsPerMinute: e.RequestsPerMinute,
	}
}

// EffectiveDimensions resolves the vector width: the explicit value
// when set, otherwise the known default for the model. Zero means the
// model is unknown and no override was given.
func (e EmbeddingConfig) EffectiveDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return domain.EmbeddingDimensions()[e.Model]
}

// ServerConfig configures the read-only status HTTP server.
type ServerConfig struct {
	// Enabled starts the server in continuous mode.
	Enabled bool `toml:"enabled"`

	// Listen is the bind address.
	Listen string `toml:"listen"`
}

// PipelineConfig configures one watched source.
type PipelineConfig struct {
	// ID identifies the pipeline; persisted state is keyed by it.
	ID string `toml:"id"`

	// Type is "local_files" or "google_drive".
	Type string `toml:"type"`

	// CheckInterval is the pause between sync cycles.
	CheckInterval Duration `toml:"check_interval"`

	// ChunkSize caps chunk length in characters; defaulted per type.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the character overlap between adjacent chunks.
	ChunkOverlap int `toml:"chunk_overlap"`

	// MIMETypes restricts which types this source ingests. Empty means
	// every type an extractor is registered for.
	MIMETypes []string `toml:"mime_types"`

	// Directory is the root of a local_files source.
	Directory string `toml:"directory"`

	// FolderID is the watched folder of a google_drive source.
	FolderID string `toml:"folder_id"`

	// Recursive includes Drive subfolders; unset means true.
	Recursive *bool `toml:"recursive"`

	// CredentialsFile is the OAuth client credentials JSON path.
	CredentialsFile string `toml:"credentials_file"`

	// TokenFile is the stored OAuth token JSON path.
	TokenFile string `toml:"token_file"`

	// ServiceAccountFile is a service account key JSON path; it takes
	// precedence over the OAuth credential pair.
	ServiceAccountFile string `toml:"service_account_file"`
}

// PipelineType returns the typed pipeline kind.
func (p PipelineConfig) PipelineType() domain.PipelineType {
	return domain.PipelineType(p.Type)
}

// RecursiveEnabled reports whether Drive listing descends into
// subfolders. Unset means true.
func (p PipelineConfig) RecursiveEnabled() bool {
	return p.Recursive == nil || *p.Recursive
}

// Load reads, overlays and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals, overlays and validates raw TOML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunModeSingle reports whether RUN_MODE requests one cycle per start.
func RunModeSingle() bool {
	return strings.EqualFold(os.Getenv(EnvRunMode), "single")
}

// applyEnv overlays environment secrets onto the file values.
func (c *Config) applyEnv() {
	if key := os.Getenv(EnvOpenAIAPIKey); key != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = key
	}
	if dsn := os.Getenv(EnvDatabaseURL); dsn != "" {
		c.Store.DSN = dsn
		if c.Store.Driver == "" {
			c.Store.Driver = DriverPostgres
		}
	}
}

// applyDefaults fills absent fields.
func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}

	if c.Embedding.Model == "" {
		switch domain.AIProvider(c.Embedding.Provider) {
		case domain.AIProviderOpenAI:
			c.Embedding.Model = defaultOpenAIModel
		case domain.AIProviderOllama:
			c.Embedding.Model = defaultOllamaModel
		}
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = DefaultEmbedBatchSize
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListenAddr
	}

	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		if p.CheckInterval <= 0 {
			p.CheckInterval = Duration(DefaultCheckInterval)
		}
		if p.ChunkSize <= 0 {
			if p.PipelineType() == domain.PipelineGoogleDrive {
				p.ChunkSize = DefaultChunkSizeDrive
			} else {
				p.ChunkSize = DefaultChunkSizeLocal
			}
		}
		if p.ChunkOverlap < 0 {
			p.ChunkOverlap = 0
		}
	}
}

// Validate checks the configuration is complete enough to start.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store driver is postgres but no dsn is set (config dsn or %s)", EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q (want %s or %s)", c.Store.Driver, DriverSQLite, DriverPostgres)
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}

	if len(c.Pipelines) == 0 {
		return fmt.Errorf("config: no pipelines configured")
	}
	seen := make(map[string]struct{}, len(c.Pipelines))
	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		if err := p.validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("config: duplicate pipeline id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch domain.AIProvider(c.Embedding.Provider) {
	case domain.AIProviderOpenAI:
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("config: embedding provider openai needs an api key (config api_key or %s)", EnvOpenAIAPIKey)
		}
	case domain.AIProviderOllama:
	case "":
		return fmt.Errorf("config: embedding provider is required (openai or ollama)")
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}

	// The postgres vector column is sized at schema creation, so the
	// width has to be known up front.
	if c.Store.Driver == DriverPostgres && c.EffectiveDimensions() == 0 {
		return fmt.Errorf("config: embedding dimensions required for model %q with the postgres store", c.Embedding.Model)
	}
	return nil
}

// EffectiveDimensions resolves the embedding vector width for the
// whole configuration.
func (c *Config) EffectiveDimensions() int {
	return c.Embedding.EffectiveDimensions()
}

func (p *PipelineConfig) validate() error {
	if p.ID == "" {
		return fmt.Errorf("config: pipeline id is required")
	}
	if !p.PipelineType().IsValid() {
		return fmt.Errorf("config: pipeline %q: unknown type %q (want %s or %s)",
			p.ID, p.Type, domain.PipelineLocalFiles, domain.PipelineGoogleDrive)
	}

	switch p.PipelineType() {
	case domain.PipelineLocalFiles:
		if p.Directory == "" {
			return fmt.Errorf("config: pipeline %q: directory is required for local_files", p.ID)
		}
	case domain.PipelineGoogleDrive:
		if p.FolderID == "" {
			return fmt.Errorf("config: pipeline %q: folder_id is required for google_drive", p.ID)
		}
		if p.ServiceAccountFile == "" && p.CredentialsFile == "" {
			return fmt.Errorf("config: pipeline %q: either service_account_file or credentials_file is required", p.ID)
		}
	}
	return nil
}
