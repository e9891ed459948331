package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
)

// maxMediaBody bounds media upload reads; the service enforces the real limit.
const maxMediaBody = 8 << 20

// ScheduleBody is the request body for scheduling a post.
// @Description Request to schedule a post
type ScheduleBody struct {
	Text         string          `json:"text" validate:"required" example:"Shipping the new release today"`
	ScheduledFor string          `json:"scheduled_for,omitempty" example:"2026-01-15T10:00:00Z"`
	Media        json.RawMessage `json:"media,omitempty" swaggertype:"array,string"`
}

// mediaPayload stores media as submitted: a JSON string is unwrapped, any
// other JSON value is kept verbatim.
func mediaPayload(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// handleSchedulePost godoc
// @Summary      Schedule a post
// @Description  Queues a post for immediate or deferred publication
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Param        request  body      ScheduleBody  true  "Post"
// @Success      201      {object}  domain.ScheduledPost
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Router       /posts [post]
func (s *Server) handleSchedulePost(w http.ResponseWriter, r *http.Request) {
	var body ScheduleBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.validator.Struct(body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	post, err := s.postService.Schedule(r.Context(), driving.ScheduleRequest{
		OwnerID:      ownerID(r),
		Text:         body.Text,
		ScheduledFor: body.ScheduledFor,
		Media:        mediaPayload(body.Media),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// handleListPosts godoc
// @Summary      List posts
// @Description  Returns the caller's posts, newest first
// @Tags         Posts
// @Produce      json
// @Param        limit  query     int  false  "Maximum results (default 50, max 200)"
// @Success      200    {array}   domain.ScheduledPost
// @Router       /posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := s.postService.List(r.Context(), ownerID(r), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handlePostStats godoc
// @Summary      Post statistics
// @Description  Counts the caller's posts per status
// @Tags         Posts
// @Produce      json
// @Success      200  {object}  domain.PostStats
// @Router       /posts/stats [get]
func (s *Server) handlePostStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.postService.Stats(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetPost godoc
// @Summary      Get post
// @Tags         Posts
// @Produce      json
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  domain.ScheduledPost
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.postService.Get(r.Context(), r.PathValue("id"), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleRetryPost godoc
// @Summary      Retry post
// @Description  Re-queues a failed or scheduled post, due now
// @Tags         Posts
// @Produce      json
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  domain.ScheduledPost
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Post is processing or posted"
// @Router       /posts/{id}/retry [post]
func (s *Server) handleRetryPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.postService.Retry(r.Context(), r.PathValue("id"), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleCancelPost godoc
// @Summary      Cancel post
// @Description  Removes a scheduled or failed post
// @Tags         Posts
// @Param        id   path  string  true  "Post ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Post is processing or posted"
// @Router       /posts/{id} [delete]
func (s *Server) handleCancelPost(w http.ResponseWriter, r *http.Request) {
	if err := s.postService.Cancel(r.Context(), r.PathValue("id"), ownerID(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadMedia godoc
// @Summary      Upload media
// @Description  Uploads the raw request body to the provider and returns its media ID
// @Tags         Media
// @Accept       octet-stream
// @Produce      json
// @Param        category  query     string  false  "Provider media category"
// @Success      201       {object}  driving.MediaUploadResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse  "Media upload disabled"
// @Failure      502       {object}  ErrorResponse
// @Router       /media [post]
func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxMediaBody))
	if err != nil {
		s.writeServiceError(w, r, domain.NewValidationError("media", "could not read upload"))
		return
	}

	mimeType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	resp, err := s.mediaService.Upload(r.Context(), driving.MediaUploadRequest{
		OwnerID:  ownerID(r),
		Data:     data,
		MimeType: mimeType,
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleWorkerRun godoc
// @Summary      Run worker
// @Description  Runs one worker cycle: recover stale posts, publish a batch of due posts, clean up
// @Tags         Worker
// @Produce      json
// @Param        X-Worker-Secret  header    string  true  "Shared trigger secret"
// @Success      200              {object}  domain.RunSummary
// @Failure      401              {object}  ErrorResponse
// @Router       /worker/run [post]
func (s *Server) handleWorkerRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.RunOnce(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
