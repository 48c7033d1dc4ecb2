package http

import (
	"net/http"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/pkg/cryptox"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
	"github.com/aussiebroadwan/idbridge/pkg/slogx"
)

// Guard runs the gate once before the wrapped handler. On success the decision
// and the raw bearer token are in the request context; otherwise the request
// ends here with a 401 or 403 envelope.
func Guard(gate *service.Gate, allowed domain.RoleSet, required bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			decision, err := gate.Authorize(r.Context(), header, allowed, required)
			if err != nil {
				writeFailure(w, r, "request denied", err)
				return
			}

			token := service.ExtractToken(header)
			ctx := withDecision(r.Context(), decision)
			ctx = withToken(ctx, token)
			if id := decision.Identity; id != nil {
				ctx = httpx.WithSubject(ctx, id.Document)
				ctx = slogx.With(ctx,
					"decision", decision.Kind.String(),
					"document", id.Document,
					"role_id", id.RoleID,
				)
			}
			if decision.Kind == service.DecisionAuthenticated {
				ctx = slogx.With(ctx, "token_fp", cryptox.FingerprintToken(token))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
