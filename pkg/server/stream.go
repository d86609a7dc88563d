package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// streamFrame is one SSE event on /api/chat/stream. Delta frames carry
// incremental content; the final frame carries the assembled answer and
// usage.
type streamFrame struct {
	Delta  string `json:"delta,omitempty"`
	Done   bool   `json:"done,omitempty"`
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
	Usage  any    `json:"usage,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sendFrame := func(frame streamFrame) {
		raw, err := json.Marshal(frame)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", raw)
		flusher.Flush()
	}

	turn, err := s.agent.StreamTurn(r.Context(), req.Message, func(chunk string) {
		sendFrame(streamFrame{Delta: chunk})
	})
	if err != nil {
		// Headers are already out; the error rides a terminal frame.
		if s.log != nil {
			s.log.Errorf("stream turn failed: %v", err)
		}
		sendFrame(streamFrame{Done: true, Error: err.Error()})
		return
	}

	sendFrame(streamFrame{Done: true, Answer: turn.Answer, Usage: turn.Usage})
}
