package domain

// AIProvider identifies an embedding backend.
type AIProvider string

const (
	// AIProviderOpenAI is the OpenAI API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	// Provider selects the backend.
	Provider AIProvider
	// Model is the embedding model name.
	Model string
	// APIKey authenticates hosted providers.
	APIKey string
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// Dimensions overrides the model's default vector size.
	Dimensions int
	// RequestsPerMinute caps the request rate, 0 means provider default.
	RequestsPerMinute float64
}

// IsConfigured reports whether a provider has been selected.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// EmbeddingDimensions returns the default vector sizes of known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"nomic-embed-text":       768,
		"all-minilm":             384,
	}
}
