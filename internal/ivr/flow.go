package ivr

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/merazka/telvoice/internal/memory"
	"github.com/merazka/telvoice/internal/persona"
	"github.com/merazka/telvoice/internal/phone"
	"github.com/merazka/telvoice/internal/pipeline"
	"github.com/merazka/telvoice/internal/session"
)

// Webhook actions referenced from the emitted TwiML. They must match the
// routes the HTTP layer mounts.
const (
	ActionLanguage  = "/api/twilio/language-selection"
	ActionAssistant = "/api/twilio/assistant-selection"
	ActionStart     = "/api/twilio/start-conversation"
	ActionSpeech    = "/api/twilio/process-speech"
)

var languageMenu = "For English, press 1. للغة العربية، اضغط على الرقم 2. Pour le français, appuyez sur le 3."

var assistantMenus = map[string]string{
	"en-US": "To speak with Slah, our business assistant, press 1. To speak with Amira, our customer assistant, press 2.",
	"ar-SA": "للتحدث مع صلاح، مساعد الشركات، اضغط 1. للتحدث مع أميرة، مساعدة العملاء، اضغط 2.",
	"fr-FR": "Pour parler avec Slah, notre assistant entreprises, appuyez sur le 1. Pour parler avec Amira, notre assistante clientèle, appuyez sur le 2.",
}

var conversationGreetings = map[string]string{
	"en-US": "Hi! I'm %s from Ooredoo customer service. How can I help you today?",
	"ar-SA": "مرحباً! أنا %s من خدمة عملاء أوريدو. كيف يمكنني مساعدتك اليوم؟",
	"fr-FR": "Bonjour ! Je suis %s du service client Ooredoo. Comment puis-je vous aider ?",
}

var reprompts = map[string]string{
	"en-US": "I didn't catch that. Could you say it again?",
	"ar-SA": "لم أسمعك جيداً. هل يمكنك إعادة ما قلته؟",
	"fr-FR": "Je n'ai pas compris. Pouvez-vous répéter ?",
}

var goodbyes = map[string]string{
	"en-US": "Thank you for calling Ooredoo. Goodbye!",
	"ar-SA": "شكراً لاتصالك بأوريدو. إلى اللقاء!",
	"fr-FR": "Merci d'avoir appelé Ooredoo. Au revoir !",
}

// Call statuses that end the session. Any of these evicts the live state;
// the durable transcript is unaffected.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// Flow drives the phone conversation as a webhook-per-state machine. Each
// method consumes one provider callback and answers with the TwiML for the
// next state. The call SID is the session key.
type Flow struct {
	pipe             *pipeline.Service
	store            memory.Store
	gatherTimeout    int // seconds of silence before a speech gather gives up
	emptyGatherLimit int // consecutive empty gathers before hanging up
}

func NewFlow(pipe *pipeline.Service, store memory.Store, gatherTimeout, emptyGatherLimit int) *Flow {
	if gatherTimeout <= 0 {
		gatherTimeout = 5
	}
	if emptyGatherLimit <= 0 {
		emptyGatherLimit = 2
	}
	return &Flow{pipe: pipe, store: store, gatherTimeout: gatherTimeout, emptyGatherLimit: emptyGatherLimit}
}

// IncomingCall answers a new call: greet, then gather one digit for the
// language menu. A silent caller is redirected into the English default.
func (f *Flow) IncomingCall(ctx context.Context, callSID, from string) Response {
	sess, created := f.pipe.Sessions().GetOrCreate(callSID, from)
	if created {
		f.resolveCaller(ctx, sess, from)
	}

	greeting := "Hello! Welcome to Ooredoo customer service."
	sess.Lock()
	if sess.Caller != nil && sess.Caller.FullName != "" {
		greeting = fmt.Sprintf("Hello %s! Welcome back to Ooredoo customer service.", sess.Caller.FullName)
	}
	lang := sess.Language
	sess.Unlock()

	return Response{Verbs: []any{
		Say{Voice: sayVoice(lang), Text: greeting},
		Gather{
			Input:     "dtmf",
			Action:    ActionLanguage,
			Method:    "POST",
			Timeout:   f.gatherTimeout,
			NumDigits: 1,
			Verbs:     []any{Say{Voice: sayVoice(lang), Text: languageMenu}},
		},
		Redirect{Method: "POST", URL: ActionLanguage + "?Digits=" + persona.DefaultLanguage().Digit},
	}}
}

// LanguageSelection applies the digit choice and moves to the assistant menu.
// Unknown digits fall back to the default language rather than reprompting.
func (f *Flow) LanguageSelection(callSID, digits string) Response {
	sess, _ := f.pipe.Sessions().GetOrCreate(callSID, "")

	lang, ok := persona.LanguageByDigit(digits)
	if !ok {
		lang = persona.DefaultLanguage()
	}
	sess.Lock()
	sess.Language = lang.Code
	sess.Unlock()

	return Response{Verbs: []any{
		Gather{
			Input:     "dtmf",
			Action:    ActionAssistant,
			Method:    "POST",
			Timeout:   f.gatherTimeout,
			NumDigits: 1,
			Verbs:     []any{Say{Voice: sayVoice(lang.Code), Language: lang.Code, Text: localized(assistantMenus, lang.Code)}},
		},
		Redirect{Method: "POST", URL: ActionAssistant + "?Digits=" + persona.DefaultPersona().Digit},
	}}
}

// AssistantSelection applies the persona choice and hands off to the
// conversation greeting.
func (f *Flow) AssistantSelection(callSID, digits string) Response {
	sess, _ := f.pipe.Sessions().GetOrCreate(callSID, "")

	p, ok := persona.PersonaByDigit(digits)
	if !ok {
		p = persona.DefaultPersona()
	}
	sess.Lock()
	sess.PersonaID = p.ID
	sess.Unlock()

	return Response{Verbs: []any{
		Redirect{Method: "POST", URL: ActionStart},
	}}
}

// StartConversation speaks the persona introduction and opens the first
// speech gather.
func (f *Flow) StartConversation(callSID string) Response {
	sess, _ := f.pipe.Sessions().GetOrCreate(callSID, "")

	sess.Lock()
	lang := sess.Language
	p, _ := persona.PersonaByID(sess.PersonaID)
	sess.Unlock()

	greeting := fmt.Sprintf(localized(conversationGreetings, lang), p.Name)
	return Response{Verbs: []any{
		Say{Voice: sayVoice(lang), Language: lang, Text: greeting},
		f.speechGather(lang),
	}}
}

// ProcessSpeech handles one transcribed utterance. Empty transcriptions are
// reprompted; on the second consecutive empty gather the call is closed with
// a goodbye instead of looping forever.
func (f *Flow) ProcessSpeech(ctx context.Context, callSID, speech string) Response {
	sess, _ := f.pipe.Sessions().GetOrCreate(callSID, "")

	if strings.TrimSpace(speech) == "" {
		sess.Lock()
		sess.EmptyGathers++
		empties := sess.EmptyGathers
		lang := sess.Language
		sess.Unlock()

		if empties >= f.emptyGatherLimit {
			return Response{Verbs: []any{
				Say{Voice: sayVoice(lang), Language: lang, Text: localized(goodbyes, lang)},
				Hangup{},
			}}
		}
		return Response{Verbs: []any{
			Say{Voice: sayVoice(lang), Language: lang, Text: localized(reprompts, lang)},
			f.speechGather(lang),
		}}
	}

	sess.Lock()
	sess.EmptyGathers = 0
	lang := sess.Language
	userLabel := "caller"
	if sess.Caller != nil && sess.Caller.FullName != "" {
		userLabel = sess.Caller.FullName
	}
	userID := ""
	if sess.Caller != nil {
		userID = sess.Caller.UserID
	}
	sess.Unlock()

	res, err := f.pipe.ProcessTurn(ctx, pipeline.TurnRequest{
		SessionKey: callSID,
		Channel:    "ivr",
		Utterance:  speech,
		UserID:     userID,
		UserLabel:  userLabel,
	})
	if err != nil {
		log.Printf("ivr: process turn for %s failed: %v", callSID, err)
		return Response{Verbs: []any{
			Say{Voice: sayVoice(lang), Language: lang, Text: localized(reprompts, lang)},
			f.speechGather(lang),
		}}
	}

	return Response{Verbs: []any{
		Say{Voice: sayVoice(lang), Language: lang, Text: res.Reply},
		f.speechGather(lang),
	}}
}

// StatusCallback evicts the live session once the call reaches a terminal
// status. Returns whether the status was terminal.
func (f *Flow) StatusCallback(callSID, status string) bool {
	if !terminalStatuses[strings.ToLower(status)] {
		return false
	}
	f.pipe.EvictSession(callSID)
	return true
}

func (f *Flow) speechGather(lang string) Gather {
	return Gather{
		Input:         "speech",
		Action:        ActionSpeech,
		Method:        "POST",
		Timeout:       f.gatherTimeout,
		SpeechTimeout: "auto",
		Language:      lang,
	}
}

// resolveCaller looks the caller up by normalized phone number once, at call
// start. Lookup failures leave the session anonymous.
func (f *Flow) resolveCaller(ctx context.Context, sess *session.Session, from string) {
	if f.store == nil || strings.TrimSpace(from) == "" {
		return
	}
	caller, err := f.store.CallerByPhone(ctx, phone.Normalize(from))
	if err != nil {
		log.Printf("ivr: caller lookup for %s failed: %v", from, err)
		return
	}
	if caller == nil {
		return
	}
	sess.Lock()
	sess.Caller = &session.CallerInfo{IsRegistered: true, FullName: caller.FullName, UserID: caller.UserID}
	sess.Unlock()
}

func sayVoice(lang string) string {
	if l, ok := persona.LanguageByCode(lang); ok {
		return l.SayVoice
	}
	return persona.DefaultLanguage().SayVoice
}

func localized(m map[string]string, lang string) string {
	if s, ok := m[lang]; ok {
		return s
	}
	return m["en-US"]
}
