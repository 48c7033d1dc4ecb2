//go:build e2e

package bridge_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk/providertest"
	"github.com/stretchr/testify/require"
)

var juana = providersdk.Person{
	Document:   "20123456",
	GivenName:  "Juana",
	FamilyName: "Pérez",
	Verified:   true,
}

// TestBridgeLoginFlow walks a login from code exchange to the profile and
// the re-issued token, against the built image.
func TestBridgeLoginFlow(t *testing.T) {
	provider := providertest.New(t)
	provider.AddPerson("abc123", juana)
	inactiveCode := provider.NewCode(providersdk.Person{Document: "30999888", GivenName: "Ana", FamilyName: "Gil", Verified: true})

	db := seedDatabase(t,
		domain.Account{Document: juana.Document, RoleID: 4, Active: true},
		domain.Account{Document: "30999888", RoleID: 2, Active: false},
	)
	baseURL := setupBridgeContainer(t, provider, db)
	api := baseURL + "/v1/auth"

	status, body := call(t, http.MethodPost, api+"/token", "", map[string]string{"codigo": "abc123"})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	t.Run("datos", func(t *testing.T) {
		status, body := call(t, http.MethodGet, api+"/datos/1", token, nil)
		require.Equal(t, http.StatusOK, status, body)
		require.EqualValues(t, 4, body["tipo_usuario_id"])
	})

	t.Run("datos without header", func(t *testing.T) {
		status, body := call(t, http.MethodGet, api+"/datos/1", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "error", body["status"])
	})

	t.Run("nuevo-token", func(t *testing.T) {
		status, body := call(t, http.MethodGet, api+"/nuevo-token", "Bearer "+token, nil)
		require.Equal(t, http.StatusOK, status, body)

		fresh, _ := body["nuevoToken"].(string)
		claims, err := jwtx.NewVerifierRS256(provider.Signer.Public()).Verify(fresh)
		require.NoError(t, err)
		require.Equal(t, 4, claims.RoleID)
	})

	t.Run("inactive account", func(t *testing.T) {
		status, body := call(t, http.MethodPost, api+"/token", "", map[string]string{"codigo": inactiveCode})
		require.Equal(t, http.StatusOK, status, body)
		inactive, _ := body["token"].(string)

		status, body = call(t, http.MethodGet, api+"/datos/1", inactive, nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "account inactive", body["mensaje"])
	})

	t.Run("superadmin bypass", func(t *testing.T) {
		status, body := call(t, http.MethodGet, api+"/nuevo-token", superadminSecret, nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "superadmin has no provider identity", body["mensaje"])
	})
}

func TestBridgeHealth(t *testing.T) {
	provider := providertest.New(t)
	baseURL := setupBridgeContainer(t, provider, seedDatabase(t))

	status, body := call(t, http.MethodGet, baseURL+"/readyz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])

	status, body = call(t, http.MethodGet, baseURL+"/livez", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["uptime"])
}
