// Command keyfetch downloads the provider's RSA public key and writes it as
// PEM where the bridge expects it. Run it before starting the bridge and
// whenever the provider rotates its key.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/app"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/aussiebroadwan/idbridge/pkg/slogx"
	"github.com/cenkalti/backoff/v5"
)

func main() {
	cfg := app.LoadConfig()
	logger := slogx.New(slogx.Config{
		Service: "idbridge-keyfetch",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("keyfetch: %v", err)
	}
}

func run(ctx context.Context, cfg app.Config, logger *slog.Logger) error {
	if cfg.PublicKeyURL == "" {
		return errors.New("BRIDGE_PUBLIC_KEY_URL is required")
	}
	if cfg.PublicKeyFile == "" {
		return errors.New("BRIDGE_PUBLIC_KEY_FILE is required")
	}

	client := providersdk.NewClient(cfg.ProviderURL, cfg.ClientID, cfg.ClientSecret)
	client.HTTPClient.Timeout = cfg.UpstreamTimeout

	attempts := max(cfg.KeyFetchAttempts, 1)

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond

	pemKey, err := backoff.Retry(ctx, func() ([]byte, error) {
		raw, err := client.FetchPublicKey(ctx, cfg.PublicKeyURL)
		// a 4xx with a reason will not fix itself
		if errors.Is(err, providersdk.ErrRejected) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(attempts)), // #nosec G115 -- clamped to >= 1 above
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("public key download failed, retrying", "error", err, "wait", wait)
		}),
	)
	if err != nil {
		return fmt.Errorf("download public key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.PublicKeyFile), 0o755); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(cfg.PublicKeyFile, pemKey, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	logger.Info("provider public key written", "url", cfg.PublicKeyURL, "path", cfg.PublicKeyFile)
	return nil
}
