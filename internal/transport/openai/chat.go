package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/metrics"
)

const (
	modeStructured = "structured"
	modeText       = "text"
)

// ChatConfig holds the chat completion settings.
type ChatConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// ChatModel implements domain.LanguageModel over the OpenAI-compatible chat API.
type ChatModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	user        string
	provider    string
	logger      *zap.Logger
}

// NewChatModel creates an OpenAI-compatible language model.
func NewChatModel(cfg *ChatConfig) *ChatModel {
	return &ChatModel{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Structured requests output constrained to schema (strict JSON schema mode).
func (m *ChatModel) Structured(ctx context.Context, prompt domain.Prompt, schema domain.Schema) (domain.Completion, error) {
	if schema.Name == "" || len(schema.Definition) == 0 {
		return domain.Completion{}, errors.New("structured output requires a named schema")
	}
	req := m.request(prompt)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schema.Name,
			Schema: schema.Definition,
			Strict: true,
		},
	}
	return m.call(ctx, req, modeStructured)
}

// Complete requests free text.
func (m *ChatModel) Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error) {
	return m.call(ctx, m.request(prompt), modeText)
}

func (m *ChatModel) request(prompt domain.Prompt) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(prompt.Messages))
	for _, msg := range prompt.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    msgs,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		User:        m.user,
	}
}

func (m *ChatModel) call(ctx context.Context, req openai.ChatCompletionRequest, mode string) (domain.Completion, error) {
	start := time.Now()

	resp, err := m.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		wrapped := parseAPIError(err, "chat", domain.ErrLLMProviderError)
		metrics.LLMRequestsTotal.WithLabelValues(m.provider, m.model, mode, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(m.provider, m.model, errorType(wrapped)).Inc()
		m.logger.Warn("Chat completion failed",
			zap.String("provider", m.provider),
			zap.String("mode", mode),
			zap.Duration("duration", duration),
			zap.Error(wrapped),
		)
		return domain.Completion{}, wrapped
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(m.provider, m.model, mode, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(m.provider, m.model, "empty_response").Inc()
		return domain.Completion{}, fmt.Errorf("empty chat response: %w", domain.ErrLLMProviderError)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		metrics.LLMRequestsTotal.WithLabelValues(m.provider, m.model, mode, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(m.provider, m.model, "refusal").Inc()
		return domain.Completion{}, fmt.Errorf("model refused: %s: %w", choice.Message.Refusal, domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(m.provider, m.model, mode, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(m.provider, m.model, mode).Observe(duration.Seconds())
	metrics.LLMTokensTotal.WithLabelValues(m.provider, m.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(m.provider, m.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	domain.UsageFromContext(ctx).AddCompletion(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	m.logger.Debug("Chat completion finished",
		zap.String("provider", m.provider),
		zap.String("mode", mode),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return domain.Completion{
		Content:          choice.Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
