package memory

import (
	"context"
	"fmt"
	"testing"
)

func TestSaveAndRecentTurnsOrdering(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, err := s.SaveTurn(ctx, TurnRecord{
			SessionID:   "s1",
			UserMessage: fmt.Sprintf("q%d", i),
			AIResponse:  fmt.Sprintf("a%d", i),
			Language:    "en-US",
		})
		if err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}

	recent, err := s.RecentTurns(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("len = %d, want 10", len(recent))
	}
	if recent[0].UserMessage != "q3" || recent[9].UserMessage != "q12" {
		t.Fatalf("window wrong: first=%q last=%q", recent[0].UserMessage, recent[9].UserMessage)
	}
}

func TestAttachAudioAfterSave(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	id, err := s.SaveTurn(ctx, TurnRecord{SessionID: "s1", UserMessage: "q", AIResponse: "a"})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}
	// Later appends must not detach the stored record.
	if _, err := s.SaveTurn(ctx, TurnRecord{SessionID: "s1", UserMessage: "q2", AIResponse: "a2"}); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	if err := s.AttachAIAudio(ctx, id, "abc_ai.mp3"); err != nil {
		t.Fatalf("AttachAIAudio() error = %v", err)
	}
	if err := s.AttachUserAudio(ctx, id, "abc_user.webm"); err != nil {
		t.Fatalf("AttachUserAudio() error = %v", err)
	}

	hist, err := s.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if hist[0].AIAudioRef != "abc_ai.mp3" || hist[0].UserAudioRef != "abc_user.webm" {
		t.Fatalf("audio refs not attached: %+v", hist[0])
	}
	if hist[0].UserMessage != "q" {
		t.Fatalf("text fields must not be revised: %+v", hist[0])
	}
}

func TestCallerByPhone(t *testing.T) {
	s := NewInMemoryStore()
	s.RegisterCaller("+21620123456", "u1", "Sami Ben Salah")

	c, err := s.CallerByPhone(context.Background(), "+21620123456")
	if err != nil || c == nil || c.FullName != "Sami Ben Salah" {
		t.Fatalf("CallerByPhone = %+v, err %v", c, err)
	}

	unknown, err := s.CallerByPhone(context.Background(), "+21699999999")
	if err != nil || unknown != nil {
		t.Fatalf("unknown caller should be nil, nil; got %+v, %v", unknown, err)
	}
}

func TestStatsAggregation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_ = s.SaveSessionMeta(ctx, SessionMeta{SessionID: "s1", Language: "en-US", PersonaID: 2, IssueType: "internet"})
	_ = s.SaveSessionMeta(ctx, SessionMeta{SessionID: "s2", Language: "fr-FR", PersonaID: 1, IssueType: "internet"})
	_ = s.SaveSessionMeta(ctx, SessionMeta{SessionID: "s3", Language: "en-US", PersonaID: 2, IssueType: "billing"})
	_, _ = s.SaveTurn(ctx, TurnRecord{SessionID: "s1", UserMessage: "q", AIResponse: "a"})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Sessions != 3 || st.Turns != 1 {
		t.Fatalf("Stats = %+v", st)
	}
	if st.Issues["internet"] != 2 || st.Issues["billing"] != 1 {
		t.Fatalf("issue breakdown = %+v", st.Issues)
	}
}

func TestSessionMetaPreservesIdentityFields(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_ = s.SaveSessionMeta(ctx, SessionMeta{SessionID: "s1", Language: "en-US", PersonaID: 2, UserName: "John", IssueType: "billing"})
	_ = s.SaveSessionMeta(ctx, SessionMeta{SessionID: "s1", Language: "fr-FR", PersonaID: 1})

	st, _ := s.Stats(ctx)
	if st.Issues["billing"] != 1 {
		t.Fatalf("issue type should survive a meta update without one: %+v", st.Issues)
	}
}
