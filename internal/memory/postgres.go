package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions and conversations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			phone_number TEXT UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			language TEXT NOT NULL,
			assistant_id INT NOT NULL,
			user_id TEXT,
			user_name TEXT,
			issue_type TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT,
			user_message TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			language TEXT NOT NULL,
			user_audio_path TEXT,
			ai_audio_path TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_session_ts ON conversations (session_id, timestamp);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveSessionMeta(ctx context.Context, meta SessionMeta) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, language, assistant_id, user_id, user_name, issue_type, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), now())
		 ON CONFLICT (session_id) DO UPDATE SET
			language = EXCLUDED.language,
			assistant_id = EXCLUDED.assistant_id,
			user_id = COALESCE(EXCLUDED.user_id, sessions.user_id),
			user_name = COALESCE(EXCLUDED.user_name, sessions.user_name),
			issue_type = COALESCE(EXCLUDED.issue_type, sessions.issue_type),
			updated_at = now()`,
		meta.SessionID, meta.Language, meta.PersonaID, meta.UserID, meta.UserName, meta.IssueType,
	)
	if err != nil {
		return fmt.Errorf("save session meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, rec TurnRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, session_id, user_id, user_message, ai_response, language, timestamp)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		 RETURNING id`,
		rec.ID, rec.SessionID, rec.UserID, rec.UserMessage, rec.AIResponse, rec.Language, rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save turn: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, COALESCE(user_id, ''), user_message, ai_response, language,
		        COALESCE(user_audio_path, ''), COALESCE(ai_audio_path, ''), timestamp
		 FROM conversations WHERE session_id=$1 ORDER BY timestamp DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	items, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *PostgresStore) History(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, COALESCE(user_id, ''), user_message, ai_response, language,
		        COALESCE(user_audio_path, ''), COALESCE(ai_audio_path, ''), timestamp
		 FROM conversations WHERE session_id=$1 ORDER BY timestamp ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return scanTurns(rows)
}

func scanTurns(rows pgx.Rows) ([]TurnRecord, error) {
	defer rows.Close()

	var items []TurnRecord
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.UserMessage, &r.AIResponse,
			&r.Language, &r.UserAudioRef, &r.AIAudioRef, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) AttachUserAudio(ctx context.Context, turnID, ref string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE conversations SET user_audio_path=$2 WHERE id=$1`, turnID, ref)
	if err != nil {
		return fmt.Errorf("attach user audio: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttachAIAudio(ctx context.Context, turnID, ref string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE conversations SET ai_audio_path=$2 WHERE id=$1`, turnID, ref)
	if err != nil {
		return fmt.Errorf("attach ai audio: %w", err)
	}
	return nil
}

func (s *PostgresStore) CallerByPhone(ctx context.Context, normalizedPhone string) (*Caller, error) {
	var c Caller
	err := s.pool.QueryRow(ctx,
		`SELECT id, full_name FROM users WHERE phone_number=$1`, normalizedPhone,
	).Scan(&c.UserID, &c.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup caller: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Issues: make(map[string]int)}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM sessions`).Scan(&st.Sessions); err != nil {
		return Stats{}, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM conversations`).Scan(&st.Turns); err != nil {
		return Stats{}, fmt.Errorf("count conversations: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT issue_type, count(*) FROM sessions WHERE issue_type IS NOT NULL GROUP BY issue_type`)
	if err != nil {
		return Stats{}, fmt.Errorf("query issue types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var issue string
		var n int
		if err := rows.Scan(&issue, &n); err != nil {
			return Stats{}, fmt.Errorf("scan issue row: %w", err)
		}
		st.Issues[issue] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate issue rows: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
