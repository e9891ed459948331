package http

import (
	"net/http"

	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
)

// handleOAuthAuthorize godoc
// @Summary      Start account connection
// @Description  Issues a PKCE authorization URL. Redirects by default; pass redirect=false for JSON.
// @Tags         OAuth
// @Produce      json
// @Param        redirect  query     bool  false  "Return JSON instead of redirecting"
// @Success      200       {object}  driving.AuthorizeResponse
// @Success      302       "Redirect to provider"
// @Failure      401       {object}  ErrorResponse
// @Router       /oauth/authorize [get]
func (s *Server) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	resp, err := s.oauthService.Authorize(r.Context(), driving.AuthorizeRequest{OwnerID: ownerID(r)})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("redirect") == "false" {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, resp.AuthorizationURL, http.StatusFound)
}

// handleOAuthCallback godoc
// @Summary      OAuth callback
// @Description  Completes the authorization started by /oauth/authorize and redirects onward
// @Tags         OAuth
// @Produce      json
// @Param        code               query  string  false  "Authorization code"
// @Param        state              query  string  false  "State token"
// @Param        error              query  string  false  "Provider error"
// @Param        error_description  query  string  false  "Provider error description"
// @Success      302  "Redirect to the post-connect page"
// @Failure      400  {object}  ErrorResponse  "State mismatch, missing session or provider error"
// @Failure      502  {object}  ErrorResponse  "Provider rejected the code exchange"
// @Router       /oauth/callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, err := s.oauthService.Callback(r.Context(), driving.CallbackRequest{
		OwnerID:          ownerID(r),
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, s.cfg.PostConnectRedirect, http.StatusFound)
}

// handleConnectionStatus godoc
// @Summary      Connection status
// @Description  Reports whether the caller has a connected account. Never returns tokens.
// @Tags         OAuth
// @Produce      json
// @Success      200  {object}  domain.ConnectionStatus
// @Failure      401  {object}  ErrorResponse
// @Router       /connection [get]
func (s *Server) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.oauthService.Status(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleDisconnect godoc
// @Summary      Disconnect account
// @Description  Deletes the caller's stored credential
// @Tags         OAuth
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /connection [delete]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.oauthService.Disconnect(r.Context(), ownerID(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
