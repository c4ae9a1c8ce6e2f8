// internal/llm/openai.go
//
// Collaborator backed by the official openai-go SDK (chat completions).
// Providers with OpenAI-compatible endpoints work through BaseURL.

package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client using chat completions.
type OpenAIClient struct {
	model string
	opts  []option.RequestOption
}

// NewOpenAIClient validates settings and builds the client.
func NewOpenAIClient(cfg Settings) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{model: cfg.Model, opts: opts}, nil
}

// Invoke sends one system+user exchange and returns the raw completion text.
// Transport failures come back as TransientError so callers can retry; blank
// completions come back as ErrEmptyCompletion.
func (c *OpenAIClient) Invoke(ctx context.Context, system, user string, maxTokens int) (string, error) {
	client := openai.NewClient(c.opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &TransientError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
