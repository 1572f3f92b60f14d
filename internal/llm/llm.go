// Package llm оборачивает OpenAI-совместимый chat completion API (по умолчанию Groq).
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sashabaranov/go-openai"

	"todo-chat/internal/logger"
	"todo-chat/internal/models"
)

var ErrEmptyResponse = errors.New("llm returned no choices")

var completionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "todoapp_llm_completion_duration_seconds",
		Help:    "Latency of LLM chat completions",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"status"},
)

// CompletionOptions: параметры одного запроса
type CompletionOptions struct {
	SystemPrompt string
	// History: предыдущие реплики, идут между системным промптом и Prompt
	History     []models.ChatMessage
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer: всё, что агенту нужно от модели
type Completer interface {
	Complete(ctx context.Context, opts CompletionOptions) (string, error)
}

type Client struct {
	client *openai.Client
	model  string
}

// New создаёт клиента. Пустой apiKey: nil: LLM выключен.
func New(apiKey, baseURL, model string) *Client {
	if apiKey == "" {
		logger.Warn(context.Background(), "LLM_API_KEY не задан, LLM отключён")
		return nil
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	logger.Info(context.Background(), "LLM инициализирован", "model", model, "base_url", clientConfig.BaseURL)
	return &Client{client: openai.NewClientWithConfig(clientConfig), model: model}
}

func (c *Client) Complete(ctx context.Context, opts CompletionOptions) (string, error) {
	messages := BuildMessages(opts)

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		completionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		logger.Error(ctx, err, "Ошибка запроса к LLM")
		return "", fmt.Errorf("chat completion: %w", err)
	}
	completionDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	logger.Debug(ctx, "Ответ LLM", "tokens", resp.Usage.TotalTokens, "finish", string(resp.Choices[0].FinishReason))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildMessages раскладывает опции в сообщения: system, история, prompt.
func BuildMessages(opts CompletionOptions) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	for _, m := range opts.History {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if opts.Prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: opts.Prompt,
		})
	}
	return messages
}
