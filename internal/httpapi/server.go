package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/merazka/telvoice/internal/audio"
	"github.com/merazka/telvoice/internal/config"
	"github.com/merazka/telvoice/internal/ivr"
	"github.com/merazka/telvoice/internal/memory"
	"github.com/merazka/telvoice/internal/observability"
	"github.com/merazka/telvoice/internal/pipeline"
	"github.com/merazka/telvoice/internal/tts"
)

type Server struct {
	cfg      config.Config
	pipe     *pipeline.Service
	flow     *ivr.Flow
	store    memory.Store
	synth    tts.Synthesizer
	audio    *audio.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, pipe *pipeline.Service, flow *ivr.Flow, store memory.Store, synth tts.Synthesizer, audioStore *audio.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		pipe:    pipe,
		flow:    flow,
		store:   store,
		synth:   synth,
		audio:   audioStore,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same origin
				// unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/twilio/incoming-call", s.handleIncomingCall)
	r.Post("/api/twilio/language-selection", s.handleLanguageSelection)
	r.Post("/api/twilio/assistant-selection", s.handleAssistantSelection)
	r.Post("/api/twilio/start-conversation", s.handleStartConversation)
	r.Post("/api/twilio/process-speech", s.handleProcessSpeech)
	r.Post("/api/twilio/status-callback", s.handleStatusCallback)

	r.Post("/api/voice-pipeline", s.handleVoicePipeline)
	r.Get("/api/chat/ws", s.handleChatWS)
	r.Post("/api/tts", s.handleTTS)
	r.Get("/api/voices", s.handleVoices)
	r.Get("/api/sessions/{id}/history", s.handleSessionHistory)
	r.Get("/api/dashboard/stats", s.handleDashboardStats)
	r.Get("/recordings/{ref}", s.handleRecording)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.pipe.Sessions().ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"database":   s.store != nil,
		"tts":        s.synth != nil,
		"recordings": s.audio != nil,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
