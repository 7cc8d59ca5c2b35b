package rag

import (
	"context"
	"sync"

	"github.com/merazka/telvoice/internal/persona"
)

// MockGenerator returns canned replies and records the contexts it saw.
type MockGenerator struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Contexts []string
}

func (m *MockGenerator) Generate(_ context.Context, contextText, _ string, _ persona.Persona) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Contexts = append(m.Contexts, contextText)
	return m.Reply, m.Err
}

// CallCount reports how many times Generate ran.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Contexts)
}
