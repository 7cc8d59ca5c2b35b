package httpapi

import (
	"log"
	"net/http"
	"strings"

	"github.com/merazka/telvoice/internal/ivr"
)

// Telephony webhooks. The provider posts form-encoded state; every handler
// answers with the TwiML for the next call state. CallSid keys the session.

func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	callSID, ok := formCallSID(w, r)
	if !ok {
		return
	}
	from := strings.TrimSpace(r.PostFormValue("From"))
	s.respondTwiML(w, s.flow.IncomingCall(r.Context(), callSID, from))
}

func (s *Server) handleLanguageSelection(w http.ResponseWriter, r *http.Request) {
	callSID, ok := formCallSID(w, r)
	if !ok {
		return
	}
	s.respondTwiML(w, s.flow.LanguageSelection(callSID, digits(r)))
}

func (s *Server) handleAssistantSelection(w http.ResponseWriter, r *http.Request) {
	callSID, ok := formCallSID(w, r)
	if !ok {
		return
	}
	s.respondTwiML(w, s.flow.AssistantSelection(callSID, digits(r)))
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	callSID, ok := formCallSID(w, r)
	if !ok {
		return
	}
	s.respondTwiML(w, s.flow.StartConversation(callSID))
}

func (s *Server) handleProcessSpeech(w http.ResponseWriter, r *http.Request) {
	callSID, ok := formCallSID(w, r)
	if !ok {
		return
	}
	speech := r.PostFormValue("SpeechResult")
	s.respondTwiML(w, s.flow.ProcessSpeech(r.Context(), callSID, speech))
}

func (s *Server) handleStatusCallback(w http.ResponseWriter, r *http.Request) {
	callSID, ok := formCallSID(w, r)
	if !ok {
		return
	}
	status := r.PostFormValue("CallStatus")
	s.flow.StatusCallback(callSID, status)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondTwiML(w http.ResponseWriter, resp ivr.Response) {
	body, err := ivr.Render(resp)
	if err != nil {
		log.Printf("httpapi: twiml render failed: %v", err)
		respondError(w, http.StatusInternalServerError, "twiml_render", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func formCallSID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_form", err.Error())
		return "", false
	}
	callSID := strings.TrimSpace(r.PostFormValue("CallSid"))
	if callSID == "" {
		respondError(w, http.StatusBadRequest, "missing_call_sid", "form field CallSid is required")
		return "", false
	}
	return callSID, true
}

// digits reads the pressed digit from the form body, falling back to the
// query string used by the gather-timeout redirects.
func digits(r *http.Request) string {
	if d := strings.TrimSpace(r.PostFormValue("Digits")); d != "" {
		return d
	}
	return strings.TrimSpace(r.URL.Query().Get("Digits"))
}
