package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/merazka/telvoice/internal/dialogue"
	"github.com/merazka/telvoice/internal/pipeline"
)

type wsClientMessage struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"session_id"`
	Message     string          `json:"message"`
	Language    string          `json:"language"`
	AssistantID int             `json:"assistant_id"`
	History     []dialogue.Turn `json:"conversation_history"`
}

type wsServerMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Response  string          `json:"response,omitempty"`
	History   []dialogue.Turn `json:"conversation_history,omitempty"`
	UserName  string          `json:"user_name,omitempty"`
	IssueType string          `json:"issue_type,omitempty"`
	Code      string          `json:"code,omitempty"`
	Detail    string          `json:"detail,omitempty"`
}

// handleChatWS serves a text chat over one websocket. Each inbound message
// is one turn; replies are written back on the same connection in order.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	// Tell the client which session key the server settled on.
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(wsServerMessage{Type: "session", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var msg wsClientMessage
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		if msg.Type != "" && msg.Type != "user_message" {
			s.writeWS(conn, wsServerMessage{
				Type: "error", SessionID: sessionID,
				Code: "unknown_type", Detail: "unsupported message type " + msg.Type,
			})
			continue
		}

		key := sessionID
		if strings.TrimSpace(msg.SessionID) != "" {
			key = strings.TrimSpace(msg.SessionID)
		}

		res, err := s.pipe.ProcessTurn(ctx, pipeline.TurnRequest{
			SessionKey: key,
			Channel:    "ws",
			Utterance:  msg.Message,
			Language:   msg.Language,
			PersonaID:  msg.AssistantID,
			History:    msg.History,
		})
		if err != nil {
			s.writeWS(conn, wsServerMessage{
				Type: "error", SessionID: key,
				Code: "empty_message", Detail: "message is required",
			})
			continue
		}

		s.writeWS(conn, wsServerMessage{
			Type:      "ai_response",
			SessionID: res.SessionID,
			Response:  res.Reply,
			History:   res.History,
			UserName:  res.Extracted.Name,
			IssueType: res.Extracted.Issue,
		})
	}

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg wsServerMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteJSON(msg)
}
