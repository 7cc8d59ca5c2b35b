package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	turns   map[string][]*TurnRecord // keyed by session id
	byID    map[string]*TurnRecord
	metas   map[string]SessionMeta
	callers map[string]Caller // keyed by normalized phone
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		turns:   make(map[string][]*TurnRecord),
		byID:    make(map[string]*TurnRecord),
		metas:   make(map[string]SessionMeta),
		callers: make(map[string]Caller),
	}
}

// RegisterCaller seeds a known user for phone identity resolution.
func (s *InMemoryStore) RegisterCaller(normalizedPhone, userID, fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callers[normalizedPhone] = Caller{UserID: userID, FullName: fullName}
}

func (s *InMemoryStore) SaveSessionMeta(_ context.Context, meta SessionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.metas[meta.SessionID]
	if ok {
		// Last writer wins for language/persona; never blank out identity fields.
		if meta.UserID == "" {
			meta.UserID = prev.UserID
		}
		if meta.UserName == "" {
			meta.UserName = prev.UserName
		}
		if meta.IssueType == "" {
			meta.IssueType = prev.IssueType
		}
	}
	s.metas[meta.SessionID] = meta
	return nil
}

func (s *InMemoryStore) SaveTurn(_ context.Context, rec TurnRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	stored := &rec
	s.turns[rec.SessionID] = append(s.turns[rec.SessionID], stored)
	s.byID[rec.ID] = stored
	return rec.ID, nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]TurnRecord, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, *arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) History(_ context.Context, sessionID string) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	out := make([]TurnRecord, 0, len(arr))
	for _, rec := range arr {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *InMemoryStore) AttachUserAudio(_ context.Context, turnID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byID[turnID]; ok {
		rec.UserAudioRef = ref
	}
	return nil
}

func (s *InMemoryStore) AttachAIAudio(_ context.Context, turnID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byID[turnID]; ok {
		rec.AIAudioRef = ref
	}
	return nil
}

func (s *InMemoryStore) CallerByPhone(_ context.Context, normalizedPhone string) (*Caller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.callers[normalizedPhone]; ok {
		out := c
		return &out, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Sessions: len(s.metas), Issues: make(map[string]int)}
	for _, arr := range s.turns {
		st.Turns += len(arr)
	}
	for _, m := range s.metas {
		if m.IssueType != "" {
			st.Issues[m.IssueType]++
		}
	}
	return st, nil
}

func (s *InMemoryStore) Close() error { return nil }
