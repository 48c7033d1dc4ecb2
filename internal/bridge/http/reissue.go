package http

import (
	"net/http"

	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
)

// ReissueResponse carries the re-issued token.
type ReissueResponse struct {
	Status     string `json:"status" example:"ok"`
	NuevoToken string `json:"nuevoToken"`
}

// ReissueHandler serves GET /nuevo-token. The caller's token is sent back to
// the provider together with the local account id, role and area, and the
// provider answers with a token carrying them.
type ReissueHandler struct {
	Provider   Provider
	Reconciler *service.Reconciler
	Reporter   events.Reporter
}

// ServeHTTP godoc
//
//	@Summary		Re-issue token with local claims
//	@Description	Asks the provider for a fresh token that carries the caller's local account id, role and area.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ReissueResponse	"status, nuevoToken"
//	@Failure		401	{object}	httpx.ErrorBody	"missing bearer token"
//	@Failure		403	{object}	httpx.ErrorBody	"invalid token, account not found, account inactive"
//	@Failure		502	{object}	httpx.ErrorBody	"provider error"
//	@Failure		504	{object}	httpx.ErrorBody	"provider unreachable"
//	@Header			200	{string}	Cache-Control	"no-store"
//	@Router			/nuevo-token [get].
func (h *ReissueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decision, _ := DecisionFromContext(ctx)
	if decision.Kind != service.DecisionAuthenticated {
		httpx.WriteError(w, http.StatusForbidden, reasonNoProviderIdentity)
		return
	}

	acct, err := h.Reconciler.LookupAccount(ctx, decision.Identity.Document,
		store.FieldRoleID,
		store.FieldAreaID,
	)
	if err != nil {
		writeFailure(w, r, "account lookup failed", err)
		return
	}

	supplement := providersdk.Supplement{
		AccountID: acct.ID,
		RoleID:    acct.RoleID,
		AreaID:    acct.AreaID,
	}

	var token string
	err = timed(ctx, h.Reporter, "reissue", func() error {
		var err error
		token, err = h.Provider.ReissueToken(ctx, TokenFromContext(ctx), supplement)
		return err
	})
	if err != nil {
		writeFailure(w, r, "token reissue failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ReissueResponse{Status: httpx.StatusOK, NuevoToken: token})
}
