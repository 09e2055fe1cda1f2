package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/embedding"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/ranking"
	"github.com/hyperjump/osusume/internal/recommend"
)

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	raw, err := s.svc.ListItems(r.Context())
	if err != nil {
		s.logger.Error("list items failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, raw)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("recommend request", zap.Ints("history", req.History))
	resp, err := s.svc.Recommend(r.Context(), &req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("recommend failed", zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrecompute(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Precompute(r.Context())
	if err != nil {
		s.logger.Error("precompute failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	cfg := s.config
	configInfo := map[string]interface{}{
		"embedding_backend":  cfg.Embedding.Backend,
		"embedding_model":    cfg.Embedding.Model,
		"embedding_provider": cfg.Embedding.Provider,
		"retries":            cfg.Embedding.Retries,
		"backoff":            cfg.Embedding.Backoff.String(),
		"default_top":        cfg.Recommend.DefaultTop,
		"max_top":            cfg.Recommend.MaxTop,
	}
	if cfg.Precompute.Delay != nil {
		configInfo["precompute_delay"] = cfg.Precompute.Delay.String()
	}
	s.respondJSON(w, http.StatusOK, statusResponse{Status: st, Config: configInfo})
}

type statusResponse struct {
	*recommend.Status
	Config map[string]interface{} `json:"config"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recommend.ErrInvalidRequest),
		errors.Is(err, ranking.ErrEmptyHistory),
		errors.Is(err, ranking.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrCatalogMissing), errors.Is(err, catalog.ErrCatalogInvalid):
		return http.StatusInternalServerError
	case embedding.IsProviderError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
