package rag

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/merazka/telvoice/internal/persona"
)

type cannedChat struct {
	lastReq openai.ChatCompletionRequest
	reply   string
}

func (c *cannedChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.lastReq = req
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.reply}},
		},
	}, nil
}

func TestGenerateUsesPersonaPrompt(t *testing.T) {
	chat := &cannedChat{reply: "  Your plan renews on the 1st.  "}
	c := NewClientWith(chat, "test-model")
	amira, _ := persona.PersonaByID(2)

	got, err := c.Generate(context.Background(), "what is my plan?", "fr-FR", amira)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Your plan renews on the 1st." {
		t.Fatalf("reply = %q", got)
	}
	if chat.lastReq.Model != "test-model" {
		t.Fatalf("model = %q", chat.lastReq.Model)
	}
	if len(chat.lastReq.Messages) != 2 {
		t.Fatalf("messages = %d, want system+user", len(chat.lastReq.Messages))
	}
	if !strings.Contains(chat.lastReq.Messages[0].Content, "Amira") {
		t.Fatalf("system prompt should name the persona: %q", chat.lastReq.Messages[0].Content)
	}
	if !strings.Contains(chat.lastReq.Messages[0].Content, "conseillère") {
		t.Fatalf("french female-grammar prompt expected: %q", chat.lastReq.Messages[0].Content)
	}
}

type emptyChat struct{}

func (emptyChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}

func TestGenerateNoChoices(t *testing.T) {
	c := NewClientWith(emptyChat{}, "m")
	got, err := c.Generate(context.Background(), "hi", "en-US", persona.DefaultPersona())
	if err != nil || got != "" {
		t.Fatalf("want empty reply without error, got %q, %v", got, err)
	}
}
