package server

import (
	"encoding/json"
	"net/http"

	"github.com/hyperjump/kotae/internal/ragerr"
	"go.uber.org/zap"
)

// errorBody is the JSON error shape. Detail mirrors Error for clients written
// against FastAPI-style {"detail": ...} responses.
type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail"`
}

// publicMessages are returned instead of raw error text unless server.expose_errors is set.
var publicMessages = map[ragerr.Kind]string{
	ragerr.KindFetch:      "failed to fetch the document",
	ragerr.KindEmbedding:  "failed to embed the content",
	ragerr.KindEmptyIndex: "the document has no indexable text",
	ragerr.KindGeneration: "failed to generate an answer",
	ragerr.KindTimeout:    "the request timed out",
}

func statusFor(err error) int {
	if ragerr.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondPipelineError maps a tagged pipeline error to a status and body.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	kind := ragerr.KindOf(err)
	status := statusFor(err)
	msg := err.Error()
	switch {
	case kind == ragerr.KindNotReady:
		msg = notReadyMessage
	case kind == ragerr.KindInvalidInput, s.config.Server.ExposeErrors:
	default:
		if m, ok := publicMessages[kind]; ok {
			msg = m
		} else {
			msg = "internal error"
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	s.respondJSON(w, status, errorBody{Error: msg, Kind: string(kind), Detail: msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorBody{Error: message, Detail: message})
}
