package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
	"github.com/aussiebroadwan/idbridge/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/aussiebroadwan/idbridge/api/bridge" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultPrefix is where the bridge routes are mounted unless configured.
const DefaultPrefix = "/v1/auth"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	gate         *service.Gate
	reconciler   *service.Reconciler
	provider     Provider
	store        store.Store
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// Prefix the bridge routes are mounted under. Probes, metrics and docs
	// stay at the root.
	Prefix string

	// DatosRoles restricts GET /datos; nil lets any active account through.
	DatosRoles domain.RoleSet

	// Reporter receives provider call timings.
	Reporter events.Reporter

	// Metrics is exposed on /metrics when set.
	Metrics prometheus.Gatherer

	// TokenLimit applies per client IP to POST /token, CallerLimit per
	// authenticated subject to the guarded routes.
	TokenLimit  httpx.Limit
	CallerLimit httpx.Limit
}

func NewRouter(
	gate *service.Gate,
	reconciler *service.Reconciler,
	provider Provider,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		gate:         gate,
		reconciler:   reconciler,
		provider:     provider,
		store:        st,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Prefix:       DefaultPrefix,
		TokenLimit:   httpx.StrictLimit,
		CallerLimit:  httpx.ModerateLimit,
	}

	// Recover sits inside the logger so a panic shows up as a logged 500
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Identity Bridge API
//	@version		0.1.0
//	@description	Bridges an external identity provider to local accounts. Authorization codes are exchanged for RS256 signed tokens,
//	@description	which are verified on every protected request and reconciled against the local account before access is granted.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/idbridge
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/v1/auth
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Provider issued access token. Format: "Bearer {token}" or the bare token.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) path(p string) string {
	return strings.TrimRight(r.Prefix, "/") + p
}

func (r *Router) registerAuth() {
	// POST /token - strict rate limit by IP, the only unauthenticated call
	// that reaches the provider
	tokenHandler := &TokenHandler{Provider: r.provider, Reporter: r.Reporter}
	r.Mux.Handle("POST "+r.path("/token"),
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(r.TokenLimit),
		),
	)

	// GET /nuevo-token - any active account
	reissueHandler := &ReissueHandler{
		Provider:   r.provider,
		Reconciler: r.reconciler,
		Reporter:   r.Reporter,
	}
	r.Mux.Handle("GET "+r.path("/nuevo-token"),
		httpx.Chain(reissueHandler,
			Guard(r.gate, nil, true),
			httpx.RateLimitBySubject(r.CallerLimit),
		),
	)

	// GET /datos/{permiso_id} - restricted to the configured roles
	datosHandler := &DatosHandler{
		Provider:   r.provider,
		Reconciler: r.reconciler,
		Reporter:   r.Reporter,
	}
	r.Mux.Handle("GET "+r.path("/datos/{permiso_id}"),
		httpx.Chain(datosHandler,
			Guard(r.gate, r.DatosRoles, true),
			httpx.RateLimitBySubject(r.CallerLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.gate.Verifier))

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.Metrics, promhttp.HandlerOpts{}))
	}
}
