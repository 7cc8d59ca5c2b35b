package dialogue

import (
	"encoding/json"
	"time"
)

// Turn is one user-message/assistant-reply exchange. Audio references are
// attached after the fact by the sidecar pipeline and may be empty.
type Turn struct {
	User         string
	AI           string
	Timestamp    time.Time
	UserAudioRef string
	AIAudioRef   string
}

type turnJSON struct {
	User         string     `json:"user,omitempty"`
	AI           string     `json:"ai,omitempty"`
	UserMessage  string     `json:"user_message,omitempty"`
	AIResponse   string     `json:"ai_response,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	UserAudioRef string     `json:"user_audio_path,omitempty"`
	AIAudioRef   string     `json:"ai_audio_path,omitempty"`
}

// UnmarshalJSON normalizes the two history shapes clients send
// ({user, ai} and {user_message, ai_response}) into one value type.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.User = raw.User
	if t.User == "" {
		t.User = raw.UserMessage
	}
	t.AI = raw.AI
	if t.AI == "" {
		t.AI = raw.AIResponse
	}
	if raw.Timestamp != nil {
		t.Timestamp = *raw.Timestamp
	}
	t.UserAudioRef = raw.UserAudioRef
	t.AIAudioRef = raw.AIAudioRef
	return nil
}

// MarshalJSON emits both key styles so existing clients keep working.
func (t Turn) MarshalJSON() ([]byte, error) {
	raw := turnJSON{
		User:         t.User,
		AI:           t.AI,
		UserMessage:  t.User,
		AIResponse:   t.AI,
		UserAudioRef: t.UserAudioRef,
		AIAudioRef:   t.AIAudioRef,
	}
	if !t.Timestamp.IsZero() {
		ts := t.Timestamp
		raw.Timestamp = &ts
	}
	return json.Marshal(raw)
}
