package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Synthesizer turns assistant text into audio bytes. Failures are caught and
// logged by the sidecar pipeline, never propagated to the caller.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// HTTPSynthesizer calls an edge-tts-compatible speech service.
type HTTPSynthesizer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSynthesizer(baseURL string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *HTTPSynthesizer) Configured() bool { return s.baseURL != "" }

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("speech service not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"text":  text,
		"voice": voiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("speech service status %d: %s", res.StatusCode, string(body))
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech service returned no audio")
	}
	return audio, nil
}
