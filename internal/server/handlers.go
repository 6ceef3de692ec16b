package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/session"
	"go.uber.org/zap"
)

const (
	processedMessage = "URL processed successfully"
	notReadyMessage  = "Please process a URL first"
	excerptLength    = 200
	defaultHistory   = 50
)

func (s *Server) handleProcessURL(w http.ResponseWriter, r *http.Request) {
	s.ingest(w, r, s.sessions.Default(), false)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, s.sessions.Default(), false)
}

func (s *Server) handleSessionIngest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.ingest(w, r, sess, true)
}

func (s *Server) handleSessionQuery(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.query(w, r, sess, true)
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request, sess *session.Session, detailed bool) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.logger.Debug("ingest request", zap.String("session_id", sess.ID()), zap.String("url", req.URL))
	res, err := s.pipeline.Ingest(r.Context(), sess, req.URL)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	resp := &models.IngestResponse{Message: processedMessage}
	if detailed {
		resp.SessionID = sess.ID()
		resp.Title = res.Title
		resp.Chunks = res.Chunks
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, sess *session.Session, detailed bool) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.logger.Debug("query request", zap.String("session_id", sess.ID()), zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	res, err := s.pipeline.Query(r.Context(), sess, req.Query, req.TopK)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	resp := &models.QueryResponse{Answer: res.Answer.Text}
	if detailed {
		resp.SessionID = sess.ID()
		resp.Sources = search.Sources(res.Sources, excerptLength)
		resp.QueryTime = res.Elapsed.Milliseconds()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.respondJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	infos := make([]*models.SessionInfo, len(list))
	for i, sess := range list {
		infos[i] = sess.Info()
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": infos})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			s.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, session.ErrDefaultSession):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if s.storage != nil {
		if err := s.storage.DeleteSession(r.Context(), id); err != nil {
			s.logger.Warn("failed to delete session history", zap.String("session_id", id), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

func (s *Server) handleListIngestions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "ingestion history not enabled")
		return
	}
	id := sess.ID()
	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := s.storage.ListIngestions(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("list ingestions failed", zap.String("session_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to read ingestion history")
		return
	}
	if list == nil {
		list = []*models.Ingestion{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "ingestions": list})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.config
	resp := map[string]interface{}{
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"sessions":       s.sessions.Len(),
		"ready":          s.sessions.Default().Ready(),
	}
	resp["config"] = map[string]interface{}{
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"generation_provider":  cfg.Generation.Provider,
		"generation_model":     cfg.Generation.Model,
		"chunk_max_length":     cfg.Chunking.MaxLength,
		"chunk_overlap":        cfg.Chunking.Overlap,
		"top_k":                cfg.Retrieval.TopK,
		"history_enabled":      s.storage != nil,
	}
	if s.storage != nil {
		if n, err := s.storage.CountIngestions(r.Context()); err == nil {
			resp["ingestions"] = n
		} else {
			s.logger.Warn("status: count ingestions failed", zap.Error(err))
		}
		if du, ok := s.storage.(interface{ DiskUsage() (int64, error) }); ok {
			if bytes, err := du.DiskUsage(); err == nil {
				resp["disk_usage_bytes"] = bytes
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}
