// Package embedding wraps an OpenAI-compatible embeddings endpoint behind
// the small interface the query pipeline consumes.
package embedding

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/qanoon-labs/qanoon-cli/internal/resilience"
)

// Client turns text into a fixed-length vector.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds the embedding endpoint settings. BaseURL may point at any
// OpenAI-compatible server, including a local sentence-transformers shim.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

type openaiClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewClient creates an embedding client for an OpenAI-compatible endpoint.
func NewClient(cfg Config) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
	}
}

func (c *openaiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("embedding", "embed")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		resp, err := c.client.CreateEmbeddings(ctx, req)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode) {
				return resp, resilience.NewTransientError(err, apiErr.HTTPStatusCode)
			}
			return resp, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "embedding: create embeddings")
	}

	if len(resp.Data) == 0 {
		return nil, eris.New("embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}
