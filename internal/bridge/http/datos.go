package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/aussiebroadwan/idbridge/pkg/slogx"
)

// reasonNoProviderIdentity is returned when the service credential is used on
// a route that needs a provider issued token.
const reasonNoProviderIdentity = "superadmin has no provider identity"

// DatosResponse is the profile returned by GET /datos/{permiso_id}.
type DatosResponse struct {
	Status        string         `json:"status" example:"ok"`
	Datos         map[string]any `json:"datos"`
	TipoUsuarioID int            `json:"tipo_usuario_id" example:"4"`
	ID            int64          `json:"id" example:"42"`
}

// DatosHandler serves GET /datos/{permiso_id}: it pulls the richer profile for
// a permission from the provider and reconciles it against the local account.
type DatosHandler struct {
	Provider   Provider
	Reconciler *service.Reconciler
	Reporter   events.Reporter
}

// ServeHTTP godoc
//
//	@Summary		Fetch profile for a permission
//	@Description	Fetches the profile the provider releases for a permission id, reconciles it with the local account and records the login.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Param			permiso_id	path		string			true	"Permission id"
//	@Success		200			{object}	DatosResponse	"status, datos, tipo_usuario_id, id"
//	@Failure		401			{object}	httpx.ErrorBody	"missing bearer token"
//	@Failure		403			{object}	httpx.ErrorBody	"invalid token, account not found, account inactive, not verified"
//	@Failure		502			{object}	httpx.ErrorBody	"provider error"
//	@Failure		504			{object}	httpx.ErrorBody	"provider unreachable"
//	@Router			/datos/{permiso_id} [get].
func (h *DatosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decision, _ := DecisionFromContext(ctx)
	if decision.Kind != service.DecisionAuthenticated {
		httpx.WriteError(w, http.StatusForbidden, reasonNoProviderIdentity)
		return
	}

	permisoID := strings.TrimSpace(r.PathValue("permiso_id"))
	if permisoID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing permiso_id")
		return
	}

	var profile *providersdk.Profile
	err := timed(ctx, h.Reporter, "profile", func() error {
		var err error
		profile, err = h.Provider.FetchProfile(ctx, TokenFromContext(ctx), permisoID)
		return err
	})
	if err != nil {
		writeFailure(w, r, "profile fetch failed", err)
		return
	}

	acct, err := h.Reconciler.Reconcile(ctx, *profile)
	if err != nil {
		writeFailure(w, r, "reconcile failed", err)
		return
	}

	slogx.FromContext(ctx).Info("profile released", "permiso_id", permisoID, "account_id", acct.ID)

	httpx.WriteJSON(w, http.StatusOK, DatosResponse{
		Status:        httpx.StatusOK,
		Datos:         profile.Attributes,
		TipoUsuarioID: acct.RoleID,
		ID:            acct.ID,
	})
}
