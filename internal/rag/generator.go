package rag

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/merazka/telvoice/internal/persona"
)

// Generator produces an assistant reply for an assembled context. It has no
// structured failure channel: degraded output surfaces as an empty string or
// a failure phrase, which the escalation policy handles downstream.
type Generator interface {
	Generate(ctx context.Context, contextText, langCode string, p persona.Persona) (string, error)
}

// ChatClient is the narrow slice of the OpenAI client we call, kept as an
// interface so tests can substitute a canned completion.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates replies through an OpenAI-compatible chat completion API
// (Groq in production).
type Client struct {
	chat  ChatClient
	model string
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{chat: openai.NewClientWithConfig(cfg), model: model}
}

// NewClientWith wires a custom chat backend, used by tests.
func NewClientWith(chat ChatClient, model string) *Client {
	return &Client{chat: chat, model: model}
}

func (c *Client) Generate(ctx context.Context, contextText, langCode string, p persona.Persona) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(langCode, p),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: contextText,
			},
		},
		Temperature: 0.4,
	}

	res, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

func systemPrompt(langCode string, p persona.Persona) string {
	var b strings.Builder
	b.WriteString(p.SystemPrompt(langCode))
	b.WriteString("\nAnswer in the caller's language. Keep replies short enough to speak aloud.")
	b.WriteString("\nOnly discuss Ooredoo products, plans and support topics.")
	return b.String()
}
