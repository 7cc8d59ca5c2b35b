package memory

import (
	"context"
	"time"
)

// TurnRecord is one persisted request/response exchange. Audio references
// are attached after insertion by the sidecar pipeline.
type TurnRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	UserMessage  string    `json:"user_message"`
	AIResponse   string    `json:"ai_response"`
	Language     string    `json:"language"`
	UserAudioRef string    `json:"user_audio_path,omitempty"`
	AIAudioRef   string    `json:"ai_audio_path,omitempty"`
	CreatedAt    time.Time `json:"timestamp"`
}

// SessionMeta is the per-session metadata row, upserted on every turn.
// Last writer wins.
type SessionMeta struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
	PersonaID int    `json:"assistant_id"`
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	IssueType string `json:"issue_type,omitempty"`
}

// Caller is a known user matched by phone number.
type Caller struct {
	UserID   string
	FullName string
}

// Stats aggregates stored conversations for the dashboard.
type Stats struct {
	Sessions int            `json:"total_sessions"`
	Turns    int            `json:"total_conversations"`
	Issues   map[string]int `json:"issue_types"`
}

// Store persists dialogue turns and session metadata.
type Store interface {
	SaveSessionMeta(ctx context.Context, meta SessionMeta) error
	// SaveTurn records the text fields of a turn and returns its id.
	SaveTurn(ctx context.Context, rec TurnRecord) (string, error)
	// RecentTurns returns up to limit most recent turns for the session,
	// in ascending chronological order.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	// History returns every turn for the session ascending, audio refs included.
	History(ctx context.Context, sessionID string) ([]TurnRecord, error)
	AttachUserAudio(ctx context.Context, turnID, ref string) error
	AttachAIAudio(ctx context.Context, turnID, ref string) error
	// CallerByPhone resolves a registered user; unknown callers return nil, not an error.
	CallerByPhone(ctx context.Context, normalizedPhone string) (*Caller, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
