// Package deepseek implements the reasoner on the DeepSeek chat completions
// API (OpenAI-compatible wire format).
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"llm-scanner-bot/internal/api"
	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/llm"
	"llm-scanner-bot/internal/store"
	"llm-scanner-bot/internal/trace"
)

type Reasoner struct {
	cfg    *store.Config
	apiKey string
	client *api.Client
}

var _ interfaces.Reasoner = (*Reasoner)(nil)

func New(cfg *store.Config, apiKey string) *Reasoner {
	client := api.NewClient(
		api.WithBaseURL(cfg.LLM.BaseURL),
		api.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		api.WithLogging(true),
	)
	return &Reasoner{cfg: cfg, apiKey: apiKey, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Decide sends the payload to the chat API and returns the raw response text.
func (r *Reasoner) Decide(ctx context.Context, symbol string, payloadJSON []byte, extra map[string]any) (string, error) {
	ctx, span := trace.StartSpan(ctx, "deepseek-api-call")
	defer span.End()

	if r.apiKey == "" {
		return "", errors.New("DEEPSEEK_API_KEY missing")
	}

	headlines, _ := extra["headlines"].([]string)
	body := chatRequest{
		Model: r.cfg.LLM.Model,
		Messages: []chatMessage{
			{Role: "system", Content: llm.SystemPrompt()},
			{Role: "user", Content: llm.UserMessage(payloadJSON, headlines)},
		},
		Temperature: r.cfg.LLM.Temperature,
		MaxTokens:   r.cfg.LLM.MaxTokens,
	}

	req := api.NewRequest(http.MethodPost, "/chat/completions").
		WithContext(ctx).
		WithBody(body).
		WithHeader("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.DoWithRetry(req, nil)
	if err != nil {
		return "", fmt.Errorf("deepseek chat completion for %s: %w", symbol, err)
	}

	var parsed chatResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("no choices in deepseek response")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
