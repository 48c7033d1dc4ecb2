package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	bridgehttp "github.com/aussiebroadwan/idbridge/internal/bridge/http"
	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store/drivers/sqlite"
	"github.com/aussiebroadwan/idbridge/pkg/httpx"
	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk/providertest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const superadminSecret = "s3rvice-to-service"

var juana = providersdk.Person{
	Document:   "20123456",
	GivenName:  "Juana",
	FamilyName: "Pérez",
	Verified:   true,
}

type harness struct {
	t        *testing.T
	provider *providertest.Provider
	upstream *httptest.Server
	store    *sqlite.Store
	registry *prometheus.Registry
	server   *httptest.Server
}

func newHarness(t *testing.T, opts ...func(*bridgehttp.Router)) *harness {
	t.Helper()

	provider, upstream := providertest.Start(t)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	registry := prometheus.NewRegistry()
	reporter := events.NewPrometheus(registry)

	gate := &service.Gate{
		Verifier:         jwtx.NewVerifierRS256(provider.Signer.Public()),
		Store:            st,
		SuperadminSecret: superadminSecret,
		Reporter:         reporter,
	}
	reconciler := &service.Reconciler{
		Store:           st,
		RequireVerified: true,
		SyncDisplayName: true,
		Reporter:        reporter,
	}
	client := providersdk.NewClient(upstream.URL, providertest.ClientID, providertest.ClientSecret)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := bridgehttp.NewRouter(gate, reconciler, client, st, "test", logger)
	router.DatosRoles = domain.NewRoleSet(3, 4)
	router.Reporter = reporter
	router.Metrics = registry
	for _, opt := range opts {
		opt(router)
	}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &harness{
		t:        t,
		provider: provider,
		upstream: upstream,
		store:    st,
		registry: registry,
		server:   server,
	}
}

func (h *harness) seed(a domain.Account) domain.Account {
	h.t.Helper()
	id, err := h.store.Accounts().CreateAccount(context.Background(), a)
	require.NoError(h.t, err)
	a.ID = id
	return a
}

func (h *harness) do(method, path, auth string, body any) (int, map[string]any) {
	h.t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.server.URL+path, rdr)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (h *harness) exchange(code string) string {
	h.t.Helper()
	status, body := h.do(http.MethodPost, "/v1/auth/token", "", map[string]string{"codigo": code})
	require.Equal(h.t, http.StatusOK, status, body)
	require.Equal(h.t, "ok", body["status"])
	token, _ := body["token"].(string)
	require.NotEmpty(h.t, token)
	return token
}

func TestDatosScenario(t *testing.T) {
	h := newHarness(t)
	h.provider.AddPerson("abc123", juana)
	acct := h.seed(domain.Account{Document: juana.Document, RoleID: 4, Active: true})

	token := h.exchange("abc123")

	t.Run("active account in allow-list", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/v1/auth/datos/1", token, nil)
		require.Equal(t, http.StatusOK, status, body)
		require.Equal(t, "ok", body["status"])
		require.EqualValues(t, 4, body["tipo_usuario_id"])
		require.EqualValues(t, acct.ID, body["id"])

		datos, ok := body["datos"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "1", datos["permiso"])

		got, err := h.store.Accounts().GetAccountByDocument(context.Background(), juana.Document)
		require.NoError(t, err)
		require.Equal(t, "PÉREZ, JUANA", got.DisplayName)
		require.NotNil(t, got.LastLogin)
	})

	t.Run("bearer scheme accepted", func(t *testing.T) {
		status, _ := h.do(http.MethodGet, "/v1/auth/datos/1", "Bearer "+token, nil)
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("no header", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/v1/auth/datos/1", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "error", body["status"])
		require.Equal(t, "missing bearer token", body["mensaje"])
	})

	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, h.store.Accounts().SetActive(context.Background(), acct.ID, false))
		t.Cleanup(func() {
			_ = h.store.Accounts().SetActive(context.Background(), acct.ID, true)
		})

		before := h.provider.Calls("datos")
		status, body := h.do(http.MethodGet, "/v1/auth/datos/1", token, nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "account inactive", body["mensaje"])
		require.Equal(t, before, h.provider.Calls("datos"))
	})
}

func TestDatosRoleNotAllowed(t *testing.T) {
	h := newHarness(t)
	h.seed(domain.Account{Document: juana.Document, RoleID: 7, Active: true})
	h.provider.AddPerson("abc123", juana)

	status, body := h.do(http.MethodGet, "/v1/auth/datos/1", h.exchange("abc123"), nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "role not permitted", body["mensaje"])
}

func TestDatosUnverifiedProfile(t *testing.T) {
	h := newHarness(t)
	unverified := juana
	unverified.Verified = false
	h.provider.AddPerson("abc123", unverified)
	h.seed(domain.Account{Document: juana.Document, RoleID: 4, Active: true})

	status, body := h.do(http.MethodGet, "/v1/auth/datos/1", h.exchange("abc123"), nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "identity not verified by provider", body["mensaje"])

	got, err := h.store.Accounts().GetAccountByDocument(context.Background(), juana.Document)
	require.NoError(t, err)
	require.Nil(t, got.LastLogin)
}

func TestGuardRejectsBadTokens(t *testing.T) {
	h := newHarness(t)
	h.seed(domain.Account{Document: juana.Document, RoleID: 4, Active: true})
	h.provider.AddPerson("abc123", juana)
	token := h.exchange("abc123")

	t.Run("garbage", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/v1/auth/datos/1", "abc.def.ghi", nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "invalid token", body["mensaje"])
	})

	t.Run("foreign key", func(t *testing.T) {
		other := providertest.New(t)
		status, _ := h.do(http.MethodGet, "/v1/auth/datos/1", other.Token(t, juana.Document), nil)
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unknown account", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/v1/auth/nuevo-token", h.provider.Token(t, "99999999"), nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "account not found", body["mensaje"])
	})

	t.Run("superadmin has no provider identity", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/v1/auth/nuevo-token", superadminSecret, nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "superadmin has no provider identity", body["mensaje"])
	})

	t.Run("prefix of the superadmin secret", func(t *testing.T) {
		status, body := h.do(http.MethodGet, "/v1/auth/nuevo-token", superadminSecret[:5], nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "invalid token", body["mensaje"])
	})

	// the good token still works after all of the above
	status, _ := h.do(http.MethodGet, "/v1/auth/nuevo-token", token, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestGuardedRoutesLimitPerSubject(t *testing.T) {
	h := newHarness(t, func(r *bridgehttp.Router) {
		r.CallerLimit = httpx.Limit{Requests: 1, Window: time.Hour, Burst: 1}
	})

	pedro := providersdk.Person{Document: "30999888", GivenName: "Pedro", FamilyName: "Gómez", Verified: true}
	h.provider.AddPerson("abc123", juana)
	h.provider.AddPerson("def456", pedro)
	h.seed(domain.Account{Document: juana.Document, RoleID: 4, Active: true})
	h.seed(domain.Account{Document: pedro.Document, RoleID: 3, Active: true})

	juanaToken := h.exchange("abc123")
	pedroToken := h.exchange("def456")

	status, _ := h.do(http.MethodGet, "/v1/auth/datos/1", juanaToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := h.do(http.MethodGet, "/v1/auth/datos/1", juanaToken, nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "too many requests, try again later", body["mensaje"])

	// same client address, different subject
	status, _ = h.do(http.MethodGet, "/v1/auth/datos/1", pedroToken, nil)
	require.Equal(t, http.StatusOK, status)

	// the gate runs first, anonymous calls are refused before they spend anything
	status, _ = h.do(http.MethodGet, "/v1/auth/datos/1", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestTokenLimitPerIP(t *testing.T) {
	h := newHarness(t, func(r *bridgehttp.Router) {
		r.TokenLimit = httpx.Limit{Requests: 1, Window: time.Hour, Burst: 1}
	})
	h.provider.AddPerson("abc123", juana)

	h.exchange("abc123")

	before := h.provider.Calls("token")
	status, _ := h.do(http.MethodPost, "/v1/auth/token", "", map[string]string{"codigo": "abc123"})
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, before, h.provider.Calls("token"))
}

func TestTokenEndpoint(t *testing.T) {
	h := newHarness(t)
	h.provider.AddPerson("abc123", juana)

	t.Run("missing codigo", func(t *testing.T) {
		status, body := h.do(http.MethodPost, "/v1/auth/token", "", map[string]string{})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "error", body["status"])
		require.Equal(t, 0, h.provider.Calls("token"))
	})

	t.Run("code used twice", func(t *testing.T) {
		h.exchange("abc123")

		status, body := h.do(http.MethodPost, "/v1/auth/token", "", map[string]string{"codigo": "abc123"})
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "código vencido o ya utilizado", body["mensaje"])
	})

	t.Run("provider down", func(t *testing.T) {
		h.upstream.Close()

		status, body := h.do(http.MethodPost, "/v1/auth/token", "", map[string]string{"codigo": "abc123"})
		require.Equal(t, http.StatusGatewayTimeout, status)
		require.Equal(t, "provider unreachable", body["mensaje"])
	})
}

func TestReissue(t *testing.T) {
	h := newHarness(t)
	area := int64(12)
	acct := h.seed(domain.Account{Document: juana.Document, RoleID: 3, AreaID: &area, Active: true})
	code := h.provider.NewCode(juana)

	status, body := h.do(http.MethodGet, "/v1/auth/nuevo-token", "Bearer "+h.exchange(code), nil)
	require.Equal(t, http.StatusOK, status, body)

	fresh, _ := body["nuevoToken"].(string)
	require.NotEmpty(t, fresh)

	claims, err := jwtx.NewVerifierRS256(h.provider.Signer.Public()).Verify(fresh)
	require.NoError(t, err)
	require.Equal(t, acct.ID, claims.AccountID)
	require.Equal(t, 3, claims.RoleID)
	require.NotNil(t, claims.AreaID)
	require.Equal(t, area, *claims.AreaID)

	// reissue is not a login
	got, err := h.store.Accounts().GetAccountByDocument(context.Background(), juana.Document, store.FieldLastLogin)
	require.NoError(t, err)
	require.Nil(t, got.LastLogin)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "test", body["version"])

	status, body = h.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, status)
	checks, _ := body["checks"].(map[string]any)
	require.Equal(t, "ok", checks["database"])
	require.Equal(t, "ok", checks["verifier"])

	// one denied decision so the gate counter exists
	h.do(http.MethodGet, "/v1/auth/nuevo-token", "", nil)

	resp, err := http.Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "idbridge_gate_decisions_total")
}

func TestReadyzDegradedWhenStoreClosed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Close())

	status, body := h.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "degraded", body["status"])
}
