package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"alchemy/internal/logging"
	"alchemy/internal/progress"
)

const (
	defaultStreamSession = "default"
	heartbeatInterval    = 15 * time.Second
	streamBuffer         = 64
)

type pushRequest struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

type ackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleProgressStream serves a session's progress messages as
// server-sent events. Each message arrives as one `data:` line of JSON;
// comment lines keep the connection alive and carry no payload.
func (s *apiServer) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	session := strings.TrimSpace(r.URL.Query().Get("session"))
	if session == "" {
		session = defaultStreamSession
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()

	// The bus already bounds and drops per subscriber; the bridge into
	// the writer loop blocks instead of dropping a second time.
	events := make(chan progress.Message, streamBuffer)
	unsubscribe := s.daemon.bus.Subscribe(session, func(msg progress.Message) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	hello := struct {
		Text string `json:"text"`
	}{Text: "SSE connected for session: " + session}
	if err := writeEvent(w, hello); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-events:
			if err := writeEvent(w, msg); err != nil {
				s.log().Debug("progress stream write failed", logging.Error(err))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", encoded)
	return err
}

// handleProgressPush accepts a message for a session. Whitespace-only
// messages are rejected.
func (s *apiServer) handleProgressPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ackResponse{OK: false, Error: "invalid request body"})
		return
	}
	session := strings.TrimSpace(req.Session)
	if session == "" {
		session = defaultStreamSession
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.writeJSON(w, http.StatusBadRequest, ackResponse{OK: false, Error: "Empty message"})
		return
	}
	s.daemon.bus.Publish(session, progress.NewMessage(message))
	s.writeJSON(w, http.StatusOK, ackResponse{OK: true})
}
