package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"BRIDGE_REQUIRE_VERIFIED", "BRIDGE_SYNC_DISPLAY_NAME", "BRIDGE_ROUTE_PREFIX",
		"BRIDGE_UPSTREAM_TIMEOUT", "BRIDGE_TOKEN_LEEWAY", "BRIDGE_DATOS_ROLES", "PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.True(t, cfg.RequireVerified)
	require.True(t, cfg.SyncDisplayName)
	require.Equal(t, "/v1/auth", cfg.RoutePrefix)
	require.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	require.Zero(t, cfg.TokenLeeway)
	require.Empty(t, cfg.DatosRoles)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BRIDGE_PROVIDER_URL", "https://idp.example")
	t.Setenv("BRIDGE_REQUIRE_VERIFIED", "false")
	t.Setenv("BRIDGE_SYNC_DISPLAY_NAME", "no-idea")
	t.Setenv("BRIDGE_UPSTREAM_TIMEOUT", "3")
	t.Setenv("BRIDGE_TOKEN_LEEWAY", "30s")
	t.Setenv("BRIDGE_DATOS_ROLES", "3, 4")
	t.Setenv("PORT", "not-a-port")

	cfg := LoadConfig()
	require.Equal(t, "https://idp.example", cfg.ProviderURL)
	require.False(t, cfg.RequireVerified)
	require.True(t, cfg.SyncDisplayName, "unparseable bools keep the default")
	require.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 30*time.Second, cfg.TokenLeeway)
	require.Equal(t, "3, 4", cfg.DatosRoles)
	require.Equal(t, 8080, cfg.Port)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		ProviderURL:     "https://idp.example",
		ClientID:        "bridge",
		ClientSecret:    "secret",
		PublicKeyFile:   "provider.pem",
		UpstreamTimeout: time.Second,
	}
	require.NoError(t, valid.Validate())

	broken := valid
	broken.ProviderURL = ""
	broken.ClientSecret = ""
	broken.DatosRoles = "3,x"

	err := broken.Validate()
	require.ErrorContains(t, err, "BRIDGE_PROVIDER_URL")
	require.ErrorContains(t, err, "BRIDGE_CLIENT_SECRET")
	require.ErrorContains(t, err, `invalid role id "x"`)
}
