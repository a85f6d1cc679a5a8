// Package embedding provides factory functions for creating embedding
// service adapters from pipeline settings.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/quarrylabs/ragsync/internal/adapters/driven/embedding/ollama"
	"github.com/quarrylabs/ragsync/internal/adapters/driven/embedding/openai"
	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidate creates an embedding service and validates
// connectivity. Embeddings are mandatory for ingestion, so an
// unconfigured or unreachable provider is a startup error rather than a
// degraded mode.
func CreateAndValidate(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := Create(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable: %w", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// Create builds the embedding service for the configured provider.
func Create(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider is not configured")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllama(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAI(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// createOllama creates an Ollama embedding service.
func createOllama(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollama.DefaultDimensions
	}

	return ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAI creates an OpenAI embedding service.
func createOpenAI(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return openai.NewEmbeddingService(openai.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        dimensions,
		RequestsPerMinute: settings.RequestsPerMinute,
	})
}
