package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
)

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	Codigo string `json:"codigo" example:"abc123"`
}

// TokenResponse carries the provider issued access token.
type TokenResponse struct {
	Status string `json:"status" example:"ok"`
	Token  string `json:"token"`
}

// TokenHandler serves POST /token. It trades a one-time authorization code
// for the provider's access token and hands it back untouched.
type TokenHandler struct {
	Provider Provider
	Reporter events.Reporter
}

// ServeHTTP godoc
//
//	@Summary		Exchange authorization code
//	@Description	Exchanges a one-time authorization code with the identity provider for an RS256 signed access token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TokenRequest		true	"Authorization code"
//	@Success		200		{object}	TokenResponse		"status, token"
//	@Failure		400		{object}	httpx.ErrorBody		"missing code"
//	@Failure		403		{object}	httpx.ErrorBody		"provider rejected the code"
//	@Failure		429		{object}	httpx.ErrorBody		"rate limited"
//	@Failure		502		{object}	httpx.ErrorBody		"provider error"
//	@Failure		504		{object}	httpx.ErrorBody		"provider unreachable"
//	@Header			200		{string}	Cache-Control		"no-store"
//	@Router			/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code := strings.TrimSpace(req.Codigo)
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing codigo")
		return
	}

	var token string
	err := timed(r.Context(), h.Reporter, "exchange", func() error {
		var err error
		token, err = h.Provider.ExchangeCode(r.Context(), code)
		return err
	})
	if err != nil {
		writeFailure(w, r, "code exchange failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TokenResponse{Status: httpx.StatusOK, Token: token})
}
