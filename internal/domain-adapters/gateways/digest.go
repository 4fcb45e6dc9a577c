package gateways

import (
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
)

// DigestFile computes the canonical (sha256) digest of a file
func DigestFile(filePath string) (digest.Digest, error) {
	//nolint:gosec // G304: filePath is a pipeline-owned file
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return d, nil
}

// VerifyDigest checks that a file matches an expected digest
func VerifyDigest(filePath string, expected digest.Digest) error {
	if err := expected.Validate(); err != nil {
		return fmt.Errorf("invalid expected digest %q: %w", expected, err)
	}

	//nolint:gosec // G304: filePath is a pipeline-owned file
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	actual, err := expected.Algorithm().FromReader(f)
	if err != nil {
		return fmt.Errorf("failed to hash file: %w", err)
	}
	if actual != expected {
		return fmt.Errorf("digest mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
