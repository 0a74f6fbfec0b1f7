package adapter

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"graphmem/pkg/errors"
	"graphmem/pkg/logger"
)

// EmbeddingAdapter converts text into fixed-length vectors via an
// OpenAI-compatible embeddings endpoint.
type EmbeddingAdapter struct {
	client *openai.Client
	model  string
	dims   int
	logger *zap.Logger
}

// NewEmbeddingAdapter creates a new embedding adapter
func NewEmbeddingAdapter(baseURL, apiKey, model string, dims int) *EmbeddingAdapter {
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &EmbeddingAdapter{
		client: openai.NewClientWithConfig(config),
		model:  model,
		dims:   dims,
		logger: logger.Get(),
	}
}

// Embed returns the embedding vector for a single string
func (a *EmbeddingAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(a.model),
		Dimensions: a.dims,
	})
	if err != nil {
		a.logger.Error("Embedding request failed",
			zap.Error(err),
			zap.String("model", a.model),
		)
		return nil, errors.NewEmbeddingFailed(text, err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.NewEmbeddingFailed(text, fmt.Errorf("empty embeddings response"))
	}

	return resp.Data[0].Embedding, nil
}
