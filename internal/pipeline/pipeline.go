package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/merazka/telvoice/internal/audio"
	"github.com/merazka/telvoice/internal/dialogue"
	"github.com/merazka/telvoice/internal/escalate"
	"github.com/merazka/telvoice/internal/extract"
	"github.com/merazka/telvoice/internal/memory"
	"github.com/merazka/telvoice/internal/observability"
	"github.com/merazka/telvoice/internal/persona"
	"github.com/merazka/telvoice/internal/rag"
	"github.com/merazka/telvoice/internal/session"
	"github.com/merazka/telvoice/internal/sidecar"
	"github.com/merazka/telvoice/internal/tts"
)

// ErrEmptyUtterance is returned when a turn arrives with no message text.
var ErrEmptyUtterance = errors.New("empty utterance")

// TurnRequest is one inbound utterance entering the pipeline.
type TurnRequest struct {
	SessionKey string
	Channel    string // "ivr", "api" or "ws", for metrics
	Utterance  string
	Language   string // optional override of the session language
	PersonaID  int    // optional override of the session persona
	History    []dialogue.Turn
	AudioData  []byte // raw caller audio, persisted by the sidecar
	UserID     string
	UserLabel  string // email or "guest", used in ticket titles
}

// TurnResult is the caller-facing outcome. Reply is always non-empty.
type TurnResult struct {
	SessionID string
	Reply     string
	History   []dialogue.Turn
	Extracted extract.Extraction
	Outcome   string
	TicketURL string
}

// Turn outcomes recorded in metrics and surfaced to handlers.
const (
	OutcomeGenerated      = "generated"
	OutcomeTicketExplicit = "ticket_explicit"
	OutcomeTicketFallback = "ticket_fallback"
	OutcomeApology        = "apology"
)

var apologies = map[string]string{
	"en-US": "I'm sorry, I wasn't able to help with that right now. Please try again later or call us back.",
	"fr-FR": "Je suis désolée, je ne peux pas vous aider pour le moment. Veuillez réessayer plus tard.",
	"ar-SA": "عذراً، لا أستطيع مساعدتك الآن. يرجى المحاولة مرة أخرى لاحقاً.",
}

// Service coordinates one dialogue turn end to end: session state, context
// assembly, escalation, generation, durable recording and sidecar audio.
// Every collaborator except the session store may be absent; the pipeline
// degrades rather than failing the turn.
type Service struct {
	sessions  *session.Store
	store     memory.Store
	generator rag.Generator
	synth     tts.Synthesizer
	tickets   escalate.Ticketer
	audio     *audio.Store
	queue     *sidecar.Queue
	metrics   *observability.Metrics
}

func New(
	sessions *session.Store,
	store memory.Store,
	generator rag.Generator,
	synth tts.Synthesizer,
	tickets escalate.Ticketer,
	audioStore *audio.Store,
	queue *sidecar.Queue,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		sessions:  sessions,
		store:     store,
		generator: generator,
		synth:     synth,
		tickets:   tickets,
		audio:     audioStore,
		queue:     queue,
		metrics:   metrics,
	}
}

// Sessions exposes the live session table to the IVR layer.
func (s *Service) Sessions() *session.Store { return s.sessions }

// ProcessTurn runs one utterance through the full pipeline and returns the
// reply plus updated history. The reply is available before any sidecar job
// completes.
func (s *Service) ProcessTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return TurnResult{}, ErrEmptyUtterance
	}

	key := strings.TrimSpace(req.SessionKey)
	if key == "" {
		key = uuid.NewString()
	}

	sess, created := s.sessions.GetOrCreate(key, req.UserID)
	if created {
		s.countSessionEvent("created")
	}

	// Serialize turn processing per session so concurrent turns on one key
	// cannot race on history construction or session mutation.
	sess.Lock()
	defer sess.Unlock()

	if _, ok := persona.LanguageByCode(req.Language); ok {
		sess.Language = req.Language
	}
	if _, ok := persona.PersonaByID(req.PersonaID); ok {
		sess.PersonaID = req.PersonaID
	}
	p, _ := persona.PersonaByID(sess.PersonaID)
	lang := sess.Language

	ext := extract.Annotate(req.Utterance)

	persisted := s.loadRecent(ctx, key)
	history := dialogue.SelectHistory(req.History, persisted)
	contextText := dialogue.BuildContext(history, req.Utterance)

	result := TurnResult{SessionID: key, Extracted: ext}

	userLabel := req.UserLabel
	if userLabel == "" {
		userLabel = "guest"
	}

	if escalate.Decide(req.Utterance) == escalate.TicketExplicit {
		url := s.createTicket(ctx,
			fmt.Sprintf("[MANUAL] %s - %s", p.Name, userLabel),
			ticketDescription("User explicitly asked to open a ticket.", key, lang, req.Utterance),
			"explicit",
		)
		result.Outcome = OutcomeTicketExplicit
		result.TicketURL = url
		if url != "" {
			result.Reply = "A support ticket has been created: " + url
		} else {
			result.Reply = "I'll create a support ticket for you right away."
		}
	} else {
		reply := s.generate(ctx, contextText, lang, p)
		if escalate.DecideAfter(reply) == escalate.Accept {
			result.Outcome = OutcomeGenerated
			result.Reply = reply
		} else {
			url := s.createTicket(ctx,
				fmt.Sprintf("[AUTO-FALLBACK] %s - %s", p.Name, userLabel),
				ticketDescription("AI failed to respond properly.", key, lang, req.Utterance),
				"fallback",
			)
			switch {
			case url != "":
				result.Outcome = OutcomeTicketFallback
				result.TicketURL = url
				result.Reply = "I'm having technical issues. A support ticket was created: " + url
			case strings.TrimSpace(reply) != "":
				// Degraded generator output, no ticket. Keep the reply.
				result.Outcome = OutcomeApology
				result.Reply = reply
			default:
				result.Outcome = OutcomeApology
				result.Reply = apology(lang)
			}
		}
	}

	turnID := s.recordTurn(ctx, sess, req, ext, result.Reply)
	sess.TurnCount++

	s.scheduleSidecar(key, turnID, req.AudioData, result.Reply, lang, p)

	now := time.Now().UTC()
	result.History = append(append([]dialogue.Turn{}, history...), dialogue.Turn{
		User:      req.Utterance,
		AI:        result.Reply,
		Timestamp: now,
	})

	s.countTurn(req.Channel, result.Outcome)
	return result, nil
}

// EvictSession removes a live session on a terminal call signal.
func (s *Service) EvictSession(key string) {
	if s.sessions.Remove(key) {
		s.countSessionEvent("evicted")
	}
}

// History returns the persisted transcript for a session, audio refs included.
func (s *Service) History(ctx context.Context, sessionID string) []dialogue.Turn {
	if s.store == nil {
		return nil
	}
	records, err := s.store.History(ctx, sessionID)
	if err != nil {
		log.Printf("pipeline: load full history for %s failed: %v", sessionID, err)
		return nil
	}
	return toTurns(records)
}

func (s *Service) loadRecent(ctx context.Context, sessionID string) []dialogue.Turn {
	if s.store == nil {
		return nil
	}
	records, err := s.store.RecentTurns(ctx, sessionID, dialogue.HistoryWindow)
	if err != nil {
		log.Printf("pipeline: load history for %s failed: %v", sessionID, err)
		return nil
	}
	return toTurns(records)
}

func (s *Service) generate(ctx context.Context, contextText, lang string, p persona.Persona) string {
	if s.generator == nil {
		return ""
	}
	start := time.Now()
	reply, err := s.generator.Generate(ctx, contextText, lang, p)
	if s.metrics != nil {
		s.metrics.ObserveGenerationLatency(time.Since(start))
	}
	if err != nil {
		log.Printf("pipeline: generation failed: %v", err)
		return ""
	}
	return reply
}

func (s *Service) createTicket(ctx context.Context, title, description, trigger string) string {
	if s.tickets == nil {
		s.countEscalation(trigger, "unconfigured")
		return ""
	}
	url, err := s.tickets.CreateTicket(ctx, title, description)
	if err != nil {
		log.Printf("pipeline: ticket creation failed: %v", err)
		s.countEscalation(trigger, "failed")
		return ""
	}
	if url == "" {
		s.countEscalation(trigger, "failed")
		return ""
	}
	s.countEscalation(trigger, "created")
	return url
}

// recordTurn durably stores the turn's text fields and the session metadata.
// Returns the turn id, or "" when persistence is absent or failed.
func (s *Service) recordTurn(ctx context.Context, sess *session.Session, req TurnRequest, ext extract.Extraction, reply string) string {
	if s.store == nil {
		return ""
	}

	meta := memory.SessionMeta{
		SessionID: sess.Key,
		Language:  sess.Language,
		PersonaID: sess.PersonaID,
		UserID:    req.UserID,
		UserName:  ext.Name,
		IssueType: ext.Issue,
	}
	if sess.Caller != nil && meta.UserID == "" {
		meta.UserID = sess.Caller.UserID
	}
	if sess.Caller != nil && meta.UserName == "" {
		meta.UserName = sess.Caller.FullName
	}
	if err := s.store.SaveSessionMeta(ctx, meta); err != nil {
		log.Printf("pipeline: save session meta failed: %v", err)
	}

	turnID, err := s.store.SaveTurn(ctx, memory.TurnRecord{
		SessionID:   sess.Key,
		UserID:      meta.UserID,
		UserMessage: req.Utterance,
		AIResponse:  reply,
		Language:    sess.Language,
	})
	if err != nil {
		log.Printf("pipeline: save turn failed: %v", err)
		return ""
	}
	return turnID
}

// scheduleSidecar enqueues the two fire-and-forget audio jobs for a turn.
// Neither blocks the reply; each tolerates the turn already being returned
// to the client without audio references.
func (s *Service) scheduleSidecar(sessionID, turnID string, userAudio []byte, reply, lang string, p persona.Persona) {
	if s.queue == nil || turnID == "" || s.audio == nil || s.store == nil {
		return
	}

	if len(userAudio) > 0 {
		data := userAudio
		s.queue.Schedule(sidecar.Job{
			Name: "save_user_audio",
			Run: func(ctx context.Context) error {
				ref, err := s.audio.Save(sessionID, "user", "webm", data)
				if err != nil {
					return fmt.Errorf("save user audio: %w", err)
				}
				return s.store.AttachUserAudio(ctx, turnID, ref)
			},
		})
	}

	if s.synth != nil && strings.TrimSpace(reply) != "" {
		s.queue.Schedule(sidecar.Job{
			Name: "generate_ai_audio",
			Run: func(ctx context.Context) error {
				spoken := tts.FixPronunciation(reply, lang, p)
				data, err := s.synth.Synthesize(ctx, spoken, p.Voice(lang))
				if err != nil {
					return fmt.Errorf("synthesize reply: %w", err)
				}
				ref, err := s.audio.Save(sessionID, "ai", "mp3", data)
				if err != nil {
					return fmt.Errorf("save ai audio: %w", err)
				}
				return s.store.AttachAIAudio(ctx, turnID, ref)
			},
		})
	}
}

func (s *Service) countTurn(channel, outcome string) {
	if s.metrics == nil {
		return
	}
	if channel == "" {
		channel = "api"
	}
	s.metrics.Turns.WithLabelValues(channel, outcome).Inc()
}

func (s *Service) countEscalation(trigger, result string) {
	if s.metrics != nil {
		s.metrics.Escalations.WithLabelValues(trigger, result).Inc()
	}
}

func (s *Service) countSessionEvent(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SessionEvents.WithLabelValues(event).Inc()
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
}

func apology(lang string) string {
	if msg, ok := apologies[lang]; ok {
		return msg
	}
	return apologies["en-US"]
}

func ticketDescription(reason, sessionID, lang, message string) string {
	return fmt.Sprintf("%s\nSession: %s\nLanguage: %s\nMessage: %s", reason, sessionID, lang, message)
}

func toTurns(records []memory.TurnRecord) []dialogue.Turn {
	out := make([]dialogue.Turn, 0, len(records))
	for _, r := range records {
		out = append(out, dialogue.Turn{
			User:         r.UserMessage,
			AI:           r.AIResponse,
			Timestamp:    r.CreatedAt,
			UserAudioRef: r.UserAudioRef,
			AIAudioRef:   r.AIAudioRef,
		})
	}
	return out
}
