// Package generation wraps the Anthropic API behind the small interface the
// query pipeline consumes: one prompt in, one answer out, with an ordered
// list of interchangeable models tried in turn on failure or rate limit.
package generation

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/resilience"
)

// Client produces an answer from a system prompt and a user message.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Config holds the Anthropic settings.
type Config struct {
	APIKey string

	// Models is the fallback rotation, tried in order. The first entry is
	// the primary model.
	Models []string

	MaxTokens int64
}

type sdkClient struct {
	client    sdk.Client
	models    []string
	maxTokens int64
}

// NewClient creates a generation client backed by the official SDK.
func NewClient(cfg Config) Client {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	models := cfg.Models
	if len(models) == 0 {
		models = []string{"claude-haiku-4-5-20251001"}
	}
	return &sdkClient{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		models:    models,
		maxTokens: maxTokens,
	}
}

func (c *sdkClient) Generate(ctx context.Context, system, user string) (string, error) {
	answer, err := resilience.Rotate(ctx, c.models, func(ctx context.Context, model string) (string, error) {
		return c.generateWith(ctx, model, system, user)
	})
	if err != nil {
		return "", eris.Wrap(err, "generation: all models failed")
	}
	return answer, nil
}

func (c *sdkClient) generateWith(ctx context.Context, model, system, user string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", tagAPIError(err, model)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", eris.Errorf("generation: empty completion from %s", model)
	}

	zap.L().Debug("generation: completion",
		zap.String("model", model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return sb.String(), nil
}

// tagAPIError classifies SDK errors so the rotation can tell rate limits
// apart from hard failures.
func tagAPIError(err error, model string) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(
			eris.Wrapf(err, "generation: %s", model), apiErr.StatusCode)
	}
	return eris.Wrapf(err, "generation: %s", model)
}
