package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"docqa/internal/models"
	"docqa/internal/parser"
)

type askRequest struct {
	Question string `json:"question"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleUpload accepts a multipart upload, persists the raw file to
// the uploads directory and runs ingestion, replacing the corpus.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	filePath := filepath.Join(s.uploadsDir, filename)
	dst, err := os.Create(filePath)
	if err != nil {
		log.Error().Err(err).Str("path", filePath).Msg("Failed to create upload file")
		writeError(w, http.StatusInternalServerError, "Failed to save uploaded file.")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "Failed to save uploaded file.")
		return
	}
	dst.Close()

	chunks, err := s.pipeline.ProcessDocument(r.Context(), filePath)
	if err != nil {
		log.Error().Err(err).Str("file", filename).Msg("Failed to process document")
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process document: "+err.Error())
		return
	}

	log.Info().Str("file", filename).Int("chunks", chunks).Msg("Document processed")
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Document processed successfully.",
		"chunks":  chunks,
	})
}

// handleAsk answers a question over the ingested corpus as an SSE
// stream. Requests are rejected with a JSON error before any stream
// bytes are written when the body is malformed, the question is empty
// or no document has been ingested yet.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "Question is required.")
		return
	}
	if !s.pipeline.Ready() {
		writeError(w, http.StatusBadRequest, "No document loaded. Please upload a document first.")
		return
	}

	stream, ok := newEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported.")
		return
	}

	ctx := r.Context()
	sources, err := s.pipeline.AskStream(ctx, question, func(token string) error {
		return stream.send(streamEvent{Type: models.EventToken, Content: token})
	})
	if err != nil {
		if ctx.Err() != nil {
			// Client went away; generation was canceled, nobody is
			// listening for an error event.
			log.Debug().Str("question", question).Msg("Ask canceled by client")
			return
		}
		log.Error().Err(err).Msg("Ask failed")
		stream.send(streamEvent{Type: models.EventError, Message: err.Error()})
		return
	}

	if err := stream.send(streamEvent{Type: models.EventSources, Sources: sources}); err != nil {
		return
	}
	stream.send(streamEvent{Type: models.EventDone})
}
