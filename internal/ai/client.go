// Package ai adapts the DeepSeek chat-completion API (OpenAI-compatible) to
// the pipeline's classify/complete contract.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/leadflow-ai/leadflow/internal/conversation"
	"github.com/leadflow-ai/leadflow/pkg/logging"
)

const classificationPrompt = "Classify the following message into one of these intents: " +
	"greeting, question, complaint, feedback, purchase_intent, human_agent_request, other. " +
	"Return only the intent name without any explanation."

const (
	classifyTemperature = 0.3
	classifyMaxTokens   = 50
	completeTemperature = 0.7

	defaultMaxHistory = 10
	defaultMaxTokens  = 2000
	defaultTimeout    = 30 * time.Second
)

// Config describes how to reach the chat-completion endpoint.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxHistory   int
	MaxTokens    int
	Timeout      time.Duration
}

// Client is the intent & response generator adapter.
type Client struct {
	api          *openai.Client
	model        string
	systemPrompt string
	maxHistory   int
	maxTokens    int
	logger       *logging.Logger
}

var _ conversation.LLMClient = (*Client)(nil)

// NewClient validates the configuration and returns a ready-to-use client.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai: API key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ai: model required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		apiCfg.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		api:          openai.NewClientWithConfig(apiCfg),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxHistory:   maxHistory,
		maxTokens:    maxTokens,
		logger:       logger,
	}, nil
}

// Classify labels a message with a single lower-cased intent token.
// Transport errors fail open to "other" so classification can never abort
// the pipeline.
func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classificationPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		c.logger.Warn("intent classification request failed", "error", err)
		return conversation.IntentOther, nil
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("intent classification returned no choices")
		return conversation.IntentOther, nil
	}

	intent := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	if intent == "" {
		return conversation.IntentOther, nil
	}
	return intent, nil
}

// Complete generates a free-form reply: system persona prompt, the most
// recent history window in chronological order, then the current text.
// Errors propagate to the pipeline's failure path.
func (c *Client) Complete(ctx context.Context, text string, history []conversation.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.systemPrompt,
	})

	if len(history) > c.maxHistory {
		history = history[len(history)-c.maxHistory:]
	}
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: completeTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ai: completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
