package session

import (
	"sync"
	"time"

	"github.com/merazka/telvoice/internal/persona"
)

// CallerInfo is the identity resolved for a phone-originated session.
// It is looked up once at call start and never changes afterwards.
type CallerInfo struct {
	IsRegistered bool
	FullName     string
	UserID       string
}

// Session is one live call or chat session. Instances are owned by the
// Store; turn processing on one session is serialized through Lock/Unlock.
type Session struct {
	mu sync.Mutex

	Key            string
	Origin         string // caller phone or client identity hint
	Language       string
	PersonaID      int
	Caller         *CallerInfo
	TurnCount      int
	EmptyGathers   int // consecutive empty speech gathers on the phone path
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Lock serializes turn processing for this session. Two concurrent turns on
// the same key must not race on history construction or state mutation.
func (s *Session) Lock() { s.mu.Lock() }

func (s *Session) Unlock() { s.mu.Unlock() }

// Store is the live session table: the only shared mutable structure in the
// conversational core. It holds no durable state; a restart loses only the
// identity-to-session mapping, never persisted history.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the live session for key, constructing it with the
// default language and persona on first contact. The returned bool reports
// whether a new session was created. Repeated calls with the same key return
// the identical instance until Remove intervenes.
func (st *Store) GetOrCreate(key, origin string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[key]; ok {
		s.LastActivityAt = time.Now().UTC()
		return s, false
	}

	now := time.Now().UTC()
	s := &Session{
		Key:            key,
		Origin:         origin,
		Language:       persona.DefaultLanguage().Code,
		PersonaID:      persona.DefaultPersona().ID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	st.sessions[key] = s
	return s, true
}

// Get returns the live session for key if one exists.
func (st *Store) Get(key string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	return s, ok
}

// Remove evicts the session on a terminal call signal. A later GetOrCreate
// with the same key legitimately builds a fresh session with default state.
func (st *Store) Remove(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[key]; !ok {
		return false
	}
	delete(st.sessions, key)
	return true
}

func (st *Store) ActiveCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
