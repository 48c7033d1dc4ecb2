//go:build e2e

package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store/drivers/sqlite"
	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk/providertest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup for the bridge end-to-end tests. The fake provider runs in
 * the test process and the container reaches it through the host port
 * forwarding testcontainers sets up.
 */

const (
	testImageName    = "idbridge-test:latest"
	superadminSecret = "e2e-superadmin-secret"
)

// TestMain builds the Docker image once before all tests and removes it
// after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building identity bridge Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up identity bridge Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/bridge/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// seedDatabase builds a migrated SQLite file on the host holding accounts.
func seedDatabase(t *testing.T, accounts ...domain.Account) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bridge.db")
	st, err := sqlite.NewStore("file:" + path)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())

	for _, a := range accounts {
		_, err := st.Accounts().CreateAccount(context.Background(), a)
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())

	return path
}

// setupBridgeContainer starts the bridge against provider and returns its base URL.
func setupBridgeContainer(t *testing.T, provider *providertest.Provider, dbPath string) string {
	t.Helper()
	ctx := context.Background()

	// The provider listens on the host, the container dials it through the
	// forwarded port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	upstream := &http.Server{Handler: provider.Handler(), ReadHeaderTimeout: 3 * time.Second}
	go func() { _ = upstream.Serve(listener) }()
	t.Cleanup(func() { _ = upstream.Close() })

	port := listener.Addr().(*net.TCPAddr).Port

	pemKey, err := jwtx.EncodePublicKeyPEM(provider.Signer.Public())
	require.NoError(t, err)

	db, err := os.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	req := testcontainers.ContainerRequest{
		Image:           testImageName,
		ExposedPorts:    []string{"8080/tcp"},
		HostAccessPorts: []int{port},
		Files: []testcontainers.ContainerFile{
			{Reader: bytes.NewReader(pemKey), ContainerFilePath: "/keys/provider.pem", FileMode: 0o644},
			{Reader: db, ContainerFilePath: "/data/bridge.db", FileMode: 0o666},
		},
		Env: map[string]string{
			"BRIDGE_PROVIDER_URL":      "http://" + testcontainers.HostInternal + ":" + strconv.Itoa(port),
			"BRIDGE_CLIENT_ID":         providertest.ClientID,
			"BRIDGE_CLIENT_SECRET":     providertest.ClientSecret,
			"BRIDGE_SUPERADMIN_SECRET": superadminSecret,
			"BRIDGE_DATOS_ROLES":       "3,4",
			"ENV":                      "test",
			"LOG_LEVEL":                "info",
			"LOG_FORMAT":               "json",
			// Tests make many rapid requests which would otherwise hit the strict production limits
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// call sends a request and decodes the JSON envelope.
func call(t *testing.T, method, url, auth string, body any) (int, map[string]any) {
	t.Helper()

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, url, payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}
