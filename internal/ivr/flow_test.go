package ivr

import (
	"context"
	"strings"
	"testing"

	"github.com/merazka/telvoice/internal/memory"
	"github.com/merazka/telvoice/internal/pipeline"
	"github.com/merazka/telvoice/internal/rag"
	"github.com/merazka/telvoice/internal/session"
)

func newTestFlow(store *memory.InMemoryStore, reply string) *Flow {
	pipe := pipeline.New(session.NewStore(), store, &rag.MockGenerator{Reply: reply}, nil, nil, nil, nil, nil)
	return NewFlow(pipe, store, 5, 2)
}

func renderOrFail(t *testing.T, r Response) string {
	t.Helper()
	out, err := Render(r)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return out
}

func TestIncomingCallGreetsAndGathersLanguage(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	out := renderOrFail(t, f.IncomingCall(context.Background(), "CA100", "+21622123456"))

	if !strings.Contains(out, "Welcome to Ooredoo") {
		t.Fatalf("missing greeting: %s", out)
	}
	if !strings.Contains(out, `action="`+ActionLanguage+`"`) || !strings.Contains(out, `numDigits="1"`) {
		t.Fatalf("missing language gather: %s", out)
	}
	if !strings.Contains(out, "<Redirect") || !strings.Contains(out, ActionLanguage+"?Digits=1") {
		t.Fatalf("missing default redirect: %s", out)
	}
}

func TestIncomingCallRecognizesKnownCaller(t *testing.T) {
	store := memory.NewInMemoryStore()
	store.RegisterCaller("+21622123456", "user-9", "Sami Ben Ali")
	f := newTestFlow(store, "ok")

	out := renderOrFail(t, f.IncomingCall(context.Background(), "CA101", "22123456"))
	if !strings.Contains(out, "Hello Sami Ben Ali!") {
		t.Fatalf("known caller not greeted by full name: %s", out)
	}

	sess, ok := f.pipe.Sessions().Get("CA101")
	if !ok || sess.Caller == nil || sess.Caller.UserID != "user-9" {
		t.Fatalf("caller not resolved: %+v", sess)
	}
}

func TestLanguageSelectionSetsSessionLanguage(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	f.IncomingCall(context.Background(), "CA102", "")

	out := renderOrFail(t, f.LanguageSelection("CA102", "3"))
	if !strings.Contains(out, `action="`+ActionAssistant+`"`) {
		t.Fatalf("missing assistant gather: %s", out)
	}
	sess, _ := f.pipe.Sessions().Get("CA102")
	if sess.Language != "fr-FR" {
		t.Fatalf("language = %q", sess.Language)
	}
}

func TestLanguageSelectionInvalidDigitFallsBack(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	f.IncomingCall(context.Background(), "CA103", "")
	f.LanguageSelection("CA103", "9")

	sess, _ := f.pipe.Sessions().Get("CA103")
	if sess.Language != "en-US" {
		t.Fatalf("language = %q", sess.Language)
	}
}

func TestAssistantSelectionThenStart(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	f.IncomingCall(context.Background(), "CA104", "")
	f.LanguageSelection("CA104", "1")

	out := renderOrFail(t, f.AssistantSelection("CA104", "1"))
	if !strings.Contains(out, ActionStart) {
		t.Fatalf("missing start redirect: %s", out)
	}
	sess, _ := f.pipe.Sessions().Get("CA104")
	if sess.PersonaID != 1 {
		t.Fatalf("persona = %d", sess.PersonaID)
	}

	out = renderOrFail(t, f.StartConversation("CA104"))
	if !strings.Contains(out, "Slah") || !strings.Contains(out, `input="speech"`) {
		t.Fatalf("start response = %s", out)
	}
}

func TestProcessSpeechSpeaksReplyAndGathersAgain(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "Your balance is 12 dinars.")
	f.IncomingCall(context.Background(), "CA105", "")

	out := renderOrFail(t, f.ProcessSpeech(context.Background(), "CA105", "what is my balance"))
	if !strings.Contains(out, "Your balance is 12 dinars.") {
		t.Fatalf("reply not spoken: %s", out)
	}
	if !strings.Contains(out, `action="`+ActionSpeech+`"`) {
		t.Fatalf("missing follow-up gather: %s", out)
	}
}

func TestEmptySpeechRepromptsThenHangsUp(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	f.IncomingCall(context.Background(), "CA106", "")

	first := renderOrFail(t, f.ProcessSpeech(context.Background(), "CA106", ""))
	if strings.Contains(first, "<Hangup") {
		t.Fatalf("hung up on first empty gather: %s", first)
	}
	if !strings.Contains(first, "didn't catch") {
		t.Fatalf("missing reprompt: %s", first)
	}

	second := renderOrFail(t, f.ProcessSpeech(context.Background(), "CA106", "   "))
	if !strings.Contains(second, "<Hangup") || !strings.Contains(second, "Goodbye") {
		t.Fatalf("expected goodbye and hangup: %s", second)
	}
}

func TestSpeechAfterEmptyGatherResetsCounter(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	f.IncomingCall(context.Background(), "CA107", "")

	f.ProcessSpeech(context.Background(), "CA107", "")
	f.ProcessSpeech(context.Background(), "CA107", "hello there")

	// Counter reset: the next empty gather reprompts instead of hanging up.
	out := renderOrFail(t, f.ProcessSpeech(context.Background(), "CA107", ""))
	if strings.Contains(out, "<Hangup") {
		t.Fatalf("counter did not reset: %s", out)
	}
}

func TestStatusCallbackEvictsOnTerminalStatus(t *testing.T) {
	f := newTestFlow(memory.NewInMemoryStore(), "ok")
	f.IncomingCall(context.Background(), "CA108", "")

	if f.StatusCallback("CA108", "in-progress") {
		t.Fatalf("in-progress treated as terminal")
	}
	if _, ok := f.pipe.Sessions().Get("CA108"); !ok {
		t.Fatalf("session evicted early")
	}

	if !f.StatusCallback("CA108", "completed") {
		t.Fatalf("completed not treated as terminal")
	}
	if _, ok := f.pipe.Sessions().Get("CA108"); ok {
		t.Fatalf("session survived terminal status")
	}
}
