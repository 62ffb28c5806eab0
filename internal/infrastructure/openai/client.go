package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/skinlens/backend/internal/domain"
)

const (
	// DefaultModel matches the model the analyzer was tuned against
	DefaultModel = "gpt-4-turbo-preview"

	maxTokens = 1024
)

// Config holds language model credentials and endpoint overrides
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client structures retrieved passages into ingredient records via chat completions
type Client struct {
	*openai.Client
	Model string
}

// NewClient creates a new structuring client
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(oc), Model: model}
}

// Structure asks the model to summarize passages for ingredient and parses the answer
func (c *Client) Structure(ctx context.Context, ingredient string, passages []string) (*domain.IngredientRecord, error) {
	prompt, err := BuildPrompt(ingredient, passages)
	if err != nil {
		return nil, fmt.Errorf("%w: render prompt: %v", domain.ErrStructuring, err)
	}

	start := time.Now()
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	record, err := ParseRecord(ingredient, content)
	if err != nil {
		log.Warn().
			Str("ingredient", ingredient).
			Str("model", c.Model).
			Err(err).
			Msg("model response did not match record schema")
		return nil, err
	}

	log.Debug().
		Str("ingredient", ingredient).
		Int("safety_level", record.SafetyLevel).
		Dur("duration", time.Since(start)).
		Msg("structured ingredient record")
	return record, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		// A literal zero is dropped by omitempty and the API would fall back to its default
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
		req.Temperature = 0
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", domain.ErrStructuring, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", domain.ErrStructuring)
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
