package httpapi

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/merazka/telvoice/internal/dialogue"
	"github.com/merazka/telvoice/internal/persona"
	"github.com/merazka/telvoice/internal/pipeline"
	"github.com/merazka/telvoice/internal/tts"
)

type voiceRequest struct {
	SessionID   string          `json:"session_id"`
	Message     string          `json:"message"`
	Language    string          `json:"language"`
	AssistantID int             `json:"assistant_id"`
	History     []dialogue.Turn `json:"conversation_history"`
	UserID      string          `json:"user_id"`
	UserEmail   string          `json:"user_email"`
	AudioBase64 string          `json:"audio_base64"`
}

type voiceResponse struct {
	SessionID string          `json:"session_id"`
	Response  string          `json:"response"`
	History   []dialogue.Turn `json:"conversation_history"`
	UserName  string          `json:"user_name,omitempty"`
	IssueType string          `json:"issue_type,omitempty"`
	TicketURL string          `json:"ticket_url,omitempty"`
}

// handleVoicePipeline runs one turn for API/web clients. Client-supplied
// history takes precedence over the stored transcript.
func (s *Server) handleVoicePipeline(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	var audioData []byte
	if req.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_audio", "audio_base64 is not valid base64")
			return
		}
		audioData = data
	}

	res, err := s.pipe.ProcessTurn(r.Context(), pipeline.TurnRequest{
		SessionKey: req.SessionID,
		Channel:    "api",
		Utterance:  req.Message,
		Language:   req.Language,
		PersonaID:  req.AssistantID,
		History:    req.History,
		AudioData:  audioData,
		UserID:     req.UserID,
		UserLabel:  req.UserEmail,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyUtterance) {
			respondError(w, http.StatusBadRequest, "missing_message", "message is required")
			return
		}
		respondError(w, http.StatusInternalServerError, "pipeline_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, voiceResponse{
		SessionID: res.SessionID,
		Response:  res.Reply,
		History:   res.History,
		UserName:  res.Extracted.Name,
		IssueType: res.Extracted.Issue,
		TicketURL: res.TicketURL,
	})
}

type ttsRequest struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	AssistantID int    `json:"assistant_id"`
}

// handleTTS synthesizes a single phrase and streams it back as MP3.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		respondError(w, http.StatusNotImplemented, "tts_unavailable", "speech synthesis not configured")
		return
	}
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}

	p, ok := persona.PersonaByID(req.AssistantID)
	if !ok {
		p = persona.DefaultPersona()
	}
	lang := req.Language
	if _, ok := persona.LanguageByCode(lang); !ok {
		lang = persona.DefaultLanguage().Code
	}

	spoken := tts.FixPronunciation(req.Text, lang, p)
	data, err := s.synth.Synthesize(r.Context(), spoken, p.Voice(lang))
	if err != nil {
		log.Printf("httpapi: tts failed: %v", err)
		respondError(w, http.StatusBadGateway, "tts_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type voiceInfo struct {
	AssistantID int    `json:"assistant_id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Voice       string `json:"voice"`
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	var out []voiceInfo
	for _, p := range persona.Personas() {
		for _, l := range persona.Languages() {
			out = append(out, voiceInfo{
				AssistantID: p.ID,
				Name:        p.Name,
				Language:    l.Code,
				Voice:       p.Voice(l.Code),
			})
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"voices": out})
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "missing session id")
		return
	}
	turns := s.pipe.History(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":           id,
		"conversation_history": turns,
	})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "stats_unavailable", "no durable store configured")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "stats_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_sessions":      stats.Sessions,
		"total_conversations": stats.Turns,
		"issue_types":         stats.Issues,
		"active_sessions":     s.pipe.Sessions().ActiveCount(),
	})
}

// handleRecording serves a stored audio file by reference. The audio store
// rejects path traversal.
func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	if s.audio == nil {
		respondError(w, http.StatusNotImplemented, "recordings_unavailable", "no recordings directory configured")
		return
	}
	ref := chi.URLParam(r, "ref")
	path, err := s.audio.Path(ref)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_reference", err.Error())
		return
	}
	http.ServeFile(w, r, path)
}
