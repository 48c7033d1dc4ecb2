// Package providertest runs an in-process identity provider for tests. It
// issues RS256 tokens with a generated key and serves the same endpoints the
// real provider does.
package providertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/idbridge/pkg/cryptox"
	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
)

const (
	ClientID     = "bridge-test"
	ClientSecret = "bridge-test-secret"
)

// Provider is a fake upstream. Codes are single use, like the real thing.
type Provider struct {
	Signer *jwtx.RS256Signer
	TTL    time.Duration

	mu     sync.Mutex
	codes  map[string]string // code -> document
	people map[string]providersdk.Person
	calls  map[string]int
}

// New builds a provider with a fresh 2048-bit key.
func New(t testing.TB) *Provider {
	t.Helper()
	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	signer, err := jwtx.NewSignerRS256FromPEM(pemKey)
	require.NoError(t, err)

	return &Provider{
		Signer: signer,
		TTL:    5 * time.Minute,
		codes:  map[string]string{},
		people: map[string]providersdk.Person{},
		calls:  map[string]int{},
	}
}

// Start serves the provider on a loopback httptest server closed at cleanup.
func Start(t testing.TB) (*Provider, *httptest.Server) {
	t.Helper()
	p := New(t)
	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)
	return p, srv
}

// AddPerson registers a persona and an authorization code that logs it in.
func (p *Provider) AddPerson(code string, person providersdk.Person) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = person.Document
	p.people[person.Document] = person
}

// NewCode registers person under a fresh random authorization code.
func (p *Provider) NewCode(person providersdk.Person) string {
	code := cryptox.MustGenerateToken(cryptox.TokenSize128)
	p.AddPerson(code, person)
	return code
}

// Calls reports how many times an endpoint ("token", "datos", "nuevo-token") was hit.
func (p *Provider) Calls(endpoint string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[endpoint]
}

// Token signs a token for document directly, skipping the code exchange.
func (p *Provider) Token(t testing.TB, document string) string {
	t.Helper()
	token, err := p.Signer.Sign(p.claimsFor(document))
	require.NoError(t, err)
	return token
}

func (p *Provider) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", p.handleToken)
	mux.HandleFunc("GET /datos/{permiso_id}", p.handleDatos)
	mux.HandleFunc("POST /nuevo-token", p.handleNuevoToken)
	mux.HandleFunc("GET /public-key.pem", p.handlePEM)
	mux.HandleFunc("GET /jwks.json", p.handleJWKS)
	return mux
}

func (p *Provider) hit(endpoint string) {
	p.mu.Lock()
	p.calls[endpoint]++
	p.mu.Unlock()
}

func (p *Provider) claimsFor(document string) jwtx.Claims {
	p.mu.Lock()
	person := p.people[document]
	p.mu.Unlock()

	claims := jwtx.NewClaims(document, p.TTL, time.Now().UTC())
	claims.GivenName = person.GivenName
	claims.FamilyName = person.FamilyName
	return claims
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.hit("token")
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_client",
			"error_description": "cliente desconocido",
		})
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	p.mu.Lock()
	document, ok := p.codes[r.PostForm.Get("code")]
	delete(p.codes, r.PostForm.Get("code"))
	p.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "código vencido o ya utilizado",
		})
		return
	}

	token, err := p.Signer.Sign(p.claimsFor(document))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(p.TTL.Seconds()),
	})
}

// verify checks the bearer the way the real provider does and returns the claims.
func (p *Provider) verify(w http.ResponseWriter, r *http.Request) (jwtx.Claims, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := jwtx.NewVerifierRS256(p.Signer.Public()).Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "mensaje": "token inválido"})
		return jwtx.Claims{}, false
	}
	return claims, true
}

func (p *Provider) handleDatos(w http.ResponseWriter, r *http.Request) {
	p.hit("datos")
	claims, ok := p.verify(w, r)
	if !ok {
		return
	}

	p.mu.Lock()
	person, known := p.people[claims.Document]
	p.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "mensaje": "persona desconocida"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"datos": map[string]any{
			"persona":  person,
			"permiso":  r.PathValue("permiso_id"),
			"telefono": "+54 11 5555-0100",
		},
	})
}

func (p *Provider) handleNuevoToken(w http.ResponseWriter, r *http.Request) {
	p.hit("nuevo-token")
	claims, ok := p.verify(w, r)
	if !ok {
		return
	}

	var body struct {
		Datos providersdk.Supplement `json:"datos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "mensaje": "cuerpo inválido"})
		return
	}

	fresh := p.claimsFor(claims.Document)
	fresh.AccountID = body.Datos.AccountID
	fresh.RoleID = body.Datos.RoleID
	fresh.AreaID = body.Datos.AreaID

	token, err := p.Signer.Sign(fresh)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "mensaje": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "token": token})
}

func (p *Provider) handlePEM(w http.ResponseWriter, r *http.Request) {
	raw, err := jwtx.EncodePublicKeyPEM(p.Signer.Public())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	_, _ = w.Write(raw)
}

func (p *Provider) handleJWKS(w http.ResponseWriter, r *http.Request) {
	key, err := jwk.Import(p.Signer.Public())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = key.Set(jwk.KeyIDKey, "provider-1")
	_ = key.Set(jwk.AlgorithmKey, "RS256")

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
