package tts

import (
	"context"
	"sync"
)

// MockSynthesizer records requests and returns fixed audio bytes.
type MockSynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Texts []string
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Audio != nil {
		return m.Audio, nil
	}
	return []byte("audio"), nil
}

func (m *MockSynthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Texts)
}
