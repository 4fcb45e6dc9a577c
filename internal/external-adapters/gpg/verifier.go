// Package gpg provides OpenPGP detached signature verification for source archives.
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	armoredSignaturePrefix = "-----BEGIN PGP SIGNATURE-----"

	maxKeysSize      = 10 << 20
	maxSignatureSize = 64 << 10
)

// ErrNoKeys is returned when verification is attempted with an empty keyring
var ErrNoKeys = errors.New("no GPG keys imported")

// Verifier checks detached signatures against an in-memory keyring.
// It wraps ProtonMail's maintained fork of golang.org/x/crypto/openpgp.
type Verifier struct {
	keyring    openpgp.EntityList
	httpClient *http.Client
}

// NewVerifier creates a verifier. A nil client means http.DefaultClient.
func NewVerifier(client *http.Client) *Verifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Verifier{
		keyring:    make(openpgp.EntityList, 0),
		httpClient: client,
	}
}

// ImportKeyFromFile imports armored or binary public keys from a file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath comes from the release manifest
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}

	entities, err := readKeyRing(data)
	if err != nil {
		return fmt.Errorf("failed to read key %s: %w", keyPath, err)
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// ImportKeysFromURL imports all keys from a KEYS file URL
func (v *Verifier) ImportKeysFromURL(ctx context.Context, keysURL string) error {
	data, err := v.get(ctx, keysURL, maxKeysSize)
	if err != nil {
		return fmt.Errorf("failed to download KEYS file: %w", err)
	}

	entities, err := readKeyRing(data)
	if err != nil {
		return fmt.Errorf("failed to parse KEYS file: %w", err)
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifySignature verifies filePath against a detached signature served at sigURL
func (v *Verifier) VerifySignature(ctx context.Context, filePath, sigURL string) error {
	if len(v.keyring) == 0 {
		return ErrNoKeys
	}

	sig, err := v.get(ctx, sigURL, maxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to download signature: %w", err)
	}

	return v.verify(filePath, sig)
}

// VerifySignatureFromFile verifies filePath against a detached signature on disk
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return ErrNoKeys
	}

	//nolint:gosec // G304: sigPath is operator supplied
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}

	return v.verify(filePath, sig)
}

// KeyringSize returns the number of keys loaded
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}

func (v *Verifier) verify(filePath string, sig []byte) error {
	//nolint:gosec // G304: filePath is the downloaded archive
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if bytes.HasPrefix(bytes.TrimSpace(sig), []byte(armoredSignaturePrefix)) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

func (v *Verifier) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func readKeyRing(data []byte) (openpgp.EntityList, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	}
	if len(entities) == 0 {
		return nil, errors.New("no keys found")
	}
	return entities, nil
}
