package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/logger"
)

// maxJSONBody bounds decoded request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"text is required"`
	Path  string `json:"path,omitempty" example:"text"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports dependency health
// @Description Readiness status with per-dependency checks
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings PostgreSQL and, when configured, Redis
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK

	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			logger.FromContext(r.Context(), s.logger).Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "ok"
	}
	check("postgres", s.db)
	check("redis", s.redis)

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.cfg.Version})
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON decodes a bounded request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("", "invalid request body")
	}
	return nil
}

// writeServiceError maps service errors to status codes. Unexpected errors
// are logged and reported without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		transitionErr *domain.TransitionError
		oauthErr      *driving.OAuthError
		apiErr        *domain.ExternalAPIError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validationErr.Message, Path: validationErr.Path})
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrMediaUploadDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &oauthErr):
		writeError(w, http.StatusBadRequest, oauthErr.Error())
	case errors.Is(err, domain.ErrOAuthStateMismatch), errors.Is(err, domain.ErrMissingOAuthSession):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenDecryptFailed):
		writeError(w, http.StatusConflict, "stored credentials are unreadable: reconnection required")
	case errors.As(err, &apiErr):
		logger.FromContext(r.Context(), s.logger).Warn("provider request failed", "error", err)
		writeError(w, http.StatusBadGateway, apiErr.Error())
	default:
		logger.FromContext(r.Context(), s.logger).Error("request failed", slog.String("path", r.URL.Path), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
