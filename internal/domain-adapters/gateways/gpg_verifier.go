package gateways

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/external-adapters/gpg"
)

// gpgVerifier wraps the external GPG adapter to implement the domain gateway interface
type gpgVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a signature gateway loaded with the keys named in cfg
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier(ctx context.Context, cfg entities.SignatureConfig, client *http.Client) (*gpgVerifier, error) {
	g := &gpgVerifier{verifier: gpg.NewVerifier(client)}

	if cfg.KeyFile != "" {
		if err := g.verifier.ImportKeyFromFile(cfg.KeyFile); err != nil {
			return nil, fmt.Errorf("%w: failed to import GPG key from file: %w", entities.ErrConfig, err)
		}
	}
	if cfg.KeysURL != "" {
		if err := g.verifier.ImportKeysFromURL(ctx, cfg.KeysURL); err != nil {
			return nil, fmt.Errorf("%w: failed to import GPG keys from URL: %w", entities.ErrFetch, err)
		}
	}
	return g, nil
}

// VerifyGPGSignature verifies a detached GPG signature downloaded from a URL
func (g *gpgVerifier) VerifyGPGSignature(ctx context.Context, filePath, sigURL string) error {
	if err := g.verifier.VerifySignature(ctx, filePath, sigURL); err != nil {
		return fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return nil
}

// KeyringSize returns the number of keys loaded
func (g *gpgVerifier) KeyringSize() int {
	return g.verifier.KeyringSize()
}
