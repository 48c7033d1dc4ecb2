package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
)

// LoadVerifier reads the provider's public key from disk and binds a verifier
// to it. The key is not reloaded while the process runs; rotating it means
// re-running keyfetch and restarting.
func LoadVerifier(cfg Config, logger *slog.Logger) (*jwtx.RS256Verifier, error) {
	pub, err := jwtx.LoadPublicKeyFile(cfg.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider public key: %w", err)
	}

	logger.Info("provider public key loaded",
		"path", cfg.PublicKeyFile,
		"bits", pub.N.BitLen(),
		"leeway", cfg.TokenLeeway,
	)

	var opts []jwtx.VerifierOption
	if cfg.TokenLeeway > 0 {
		opts = append(opts, jwtx.WithLeeway(cfg.TokenLeeway))
	}
	return jwtx.NewVerifierRS256(pub, opts...), nil
}
