package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"docqa/internal/models"
)

// streamEvent is one SSE payload on the ask stream. The grammar is
// zero or more token events, exactly one sources event, one terminal
// done event; an error event replaces everything after the point of
// failure and is always last.
type streamEvent struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Sources []models.Source `json:"sources,omitempty"`
	Message string          `json:"message,omitempty"`
}

// eventStream frames streamEvents as Server-Sent Events: one JSON
// object per "data:" line, events separated by a blank line, flushed
// immediately so the client renders tokens as they arrive.
type eventStream struct {
	w       io.Writer
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(event streamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
