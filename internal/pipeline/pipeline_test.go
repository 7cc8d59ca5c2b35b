package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/merazka/telvoice/internal/audio"
	"github.com/merazka/telvoice/internal/dialogue"
	"github.com/merazka/telvoice/internal/memory"
	"github.com/merazka/telvoice/internal/rag"
	"github.com/merazka/telvoice/internal/session"
	"github.com/merazka/telvoice/internal/sidecar"
	"github.com/merazka/telvoice/internal/tts"
)

type fakeTicketer struct {
	mu     sync.Mutex
	url    string
	err    error
	titles []string
}

func (f *fakeTicketer) CreateTicket(_ context.Context, title, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return f.url, f.err
}

func TestGeneratedTurn(t *testing.T) {
	store := memory.NewInMemoryStore()
	gen := &rag.MockGenerator{Reply: "Sure, let me check your connection."}
	svc := New(session.NewStore(), store, gen, nil, nil, nil, nil, nil)

	res, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-1",
		Utterance:  "Hi, I'm John, my internet is very slow",
	})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.Outcome != OutcomeGenerated || res.Reply != gen.Reply {
		t.Fatalf("outcome = %q, reply = %q", res.Outcome, res.Reply)
	}
	if res.Extracted.Name != "John" || res.Extracted.Issue != "internet" {
		t.Fatalf("extracted = %+v", res.Extracted)
	}
	if len(res.History) != 1 || res.History[0].AI != gen.Reply {
		t.Fatalf("history = %+v", res.History)
	}

	saved, err := store.RecentTurns(context.Background(), "sess-1", 10)
	if err != nil || len(saved) != 1 {
		t.Fatalf("saved turns = %v, %v", saved, err)
	}
	if saved[0].Language != "en-US" {
		t.Fatalf("saved language = %q", saved[0].Language)
	}
}

func TestEmptyUtteranceRejected(t *testing.T) {
	svc := New(session.NewStore(), nil, nil, nil, nil, nil, nil, nil)
	if _, err := svc.ProcessTurn(context.Background(), TurnRequest{Utterance: "   "}); !errors.Is(err, ErrEmptyUtterance) {
		t.Fatalf("err = %v", err)
	}
}

func TestClientHistoryOverridesPersisted(t *testing.T) {
	store := memory.NewInMemoryStore()
	if _, err := store.SaveTurn(context.Background(), memory.TurnRecord{
		SessionID:   "sess-2",
		UserMessage: "stored question",
		AIResponse:  "stored answer",
	}); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	gen := &rag.MockGenerator{Reply: "ok"}
	svc := New(session.NewStore(), store, gen, nil, nil, nil, nil, nil)

	_, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-2",
		Utterance:  "and now?",
		History:    []dialogue.Turn{{User: "client question", AI: "client answer"}},
	})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if len(gen.Contexts) != 1 {
		t.Fatalf("generator calls = %d", len(gen.Contexts))
	}
	ctxText := gen.Contexts[0]
	if !strings.Contains(ctxText, "client question") || strings.Contains(ctxText, "stored question") {
		t.Fatalf("context = %q", ctxText)
	}
}

func TestExplicitTicketBypassesGeneration(t *testing.T) {
	gen := &rag.MockGenerator{Reply: "should not be used"}
	tick := &fakeTicketer{url: "https://trello.example/c/abc"}
	svc := New(session.NewStore(), memory.NewInMemoryStore(), gen, nil, tick, nil, nil, nil)

	res, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-3",
		Utterance:  "Can you open a ticket about my bill?",
		UserLabel:  "john@example.com",
	})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if gen.CallCount() != 0 {
		t.Fatalf("generator was called %d times", gen.CallCount())
	}
	if res.Outcome != OutcomeTicketExplicit || !strings.Contains(res.Reply, tick.url) {
		t.Fatalf("outcome = %q, reply = %q", res.Outcome, res.Reply)
	}
	if len(tick.titles) != 1 || !strings.HasPrefix(tick.titles[0], "[MANUAL] Amira - john@example.com") {
		t.Fatalf("titles = %v", tick.titles)
	}
}

func TestFallbackTicketOnEmptyReply(t *testing.T) {
	gen := &rag.MockGenerator{Reply: ""}
	tick := &fakeTicketer{url: "https://trello.example/c/xyz"}
	svc := New(session.NewStore(), nil, gen, nil, tick, nil, nil, nil)

	res, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-4",
		Utterance:  "anything at all",
	})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.Outcome != OutcomeTicketFallback || !strings.Contains(res.Reply, tick.url) {
		t.Fatalf("outcome = %q, reply = %q", res.Outcome, res.Reply)
	}
	if len(tick.titles) != 1 || !strings.HasPrefix(tick.titles[0], "[AUTO-FALLBACK]") {
		t.Fatalf("titles = %v", tick.titles)
	}
}

func TestApologyWhenGenerationAndTicketingFail(t *testing.T) {
	gen := &rag.MockGenerator{Err: errors.New("upstream down")}
	tick := &fakeTicketer{err: errors.New("trello down")}
	svc := New(session.NewStore(), nil, gen, nil, tick, nil, nil, nil)

	res, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-5",
		Utterance:  "help me please",
	})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.Outcome != OutcomeApology || strings.TrimSpace(res.Reply) == "" {
		t.Fatalf("outcome = %q, reply = %q", res.Outcome, res.Reply)
	}
}

func TestLanguageOverrideSticks(t *testing.T) {
	svc := New(session.NewStore(), nil, &rag.MockGenerator{Reply: "d'accord"}, nil, nil, nil, nil, nil)

	if _, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-6",
		Utterance:  "bonjour",
		Language:   "fr-FR",
	}); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	sess, ok := svc.Sessions().Get("sess-6")
	if !ok || sess.Language != "fr-FR" {
		t.Fatalf("session language = %+v, %v", sess, ok)
	}

	// A later turn without an override keeps the chosen language.
	if _, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-6",
		Utterance:  "merci",
	}); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if sess.Language != "fr-FR" {
		t.Fatalf("language after second turn = %q", sess.Language)
	}
}

func TestReplyAvailableBeforeSidecarRuns(t *testing.T) {
	store := memory.NewInMemoryStore()
	audioStore, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("audio.NewStore() error = %v", err)
	}
	synth := &tts.MockSynthesizer{}
	queue := sidecar.NewQueue(1, 8)
	// Workers deliberately not started: the reply must not depend on them.
	svc := New(session.NewStore(), store, &rag.MockGenerator{Reply: "here you go"}, synth, nil, audioStore, queue, nil)

	res, err := svc.ProcessTurn(context.Background(), TurnRequest{
		SessionKey: "sess-7",
		Utterance:  "read me my balance",
		AudioData:  []byte("caller-audio"),
	})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.Reply != "here you go" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if synth.CallCount() != 0 {
		t.Fatalf("synthesizer ran before workers started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		turns, err := store.History(context.Background(), "sess-7")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) == 1 && turns[0].UserAudioRef != "" && turns[0].AIAudioRef != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("audio refs never attached: %+v", turns)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEvictSession(t *testing.T) {
	svc := New(session.NewStore(), nil, &rag.MockGenerator{Reply: "ok"}, nil, nil, nil, nil, nil)
	if _, err := svc.ProcessTurn(context.Background(), TurnRequest{SessionKey: "sess-8", Utterance: "hello"}); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	svc.EvictSession("sess-8")
	if _, ok := svc.Sessions().Get("sess-8"); ok {
		t.Fatalf("session survived eviction")
	}
}
