package escalate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Ticketer opens a human-support ticket and returns its URL.
// An empty URL with nil error means ticketing is not configured.
type Ticketer interface {
	CreateTicket(ctx context.Context, title, description string) (string, error)
}

// TrelloClient creates support tickets as Trello cards.
type TrelloClient struct {
	apiKey  string
	token   string
	listID  string
	baseURL string
	client  *http.Client
}

func NewTrelloClient(apiKey, token, listID string) *TrelloClient {
	return &TrelloClient{
		apiKey:  strings.TrimSpace(apiKey),
		token:   strings.TrimSpace(token),
		listID:  strings.TrimSpace(listID),
		baseURL: "https://api.trello.com/1",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *TrelloClient) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

func (c *TrelloClient) Configured() bool {
	return c.apiKey != "" && c.token != "" && c.listID != ""
}

func (c *TrelloClient) CreateTicket(ctx context.Context, title, description string) (string, error) {
	if !c.Configured() {
		return "", nil
	}

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("token", c.token)
	form.Set("idList", c.listID)
	form.Set("name", title)
	form.Set("desc", description)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cards", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("trello status %d: %s", res.StatusCode, string(body))
	}

	var card struct {
		ShortURL string `json:"shortUrl"`
		URL      string `json:"url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&card); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if card.ShortURL != "" {
		return card.ShortURL, nil
	}
	return card.URL, nil
}
