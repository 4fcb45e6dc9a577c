package gateways

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/tincture/internal/domain/entities"
)

func writePublicKey(t *testing.T, entity *openpgp.Entity) string {
	t.Helper()

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "upstream.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestNewGPGVerifier_MissingKeyFile(t *testing.T) {
	_, err := NewGPGVerifier(context.Background(), entities.SignatureConfig{
		KeyFile: filepath.Join(t.TempDir(), "missing.asc"),
	}, nil)
	assert.ErrorIs(t, err, entities.ErrConfig)
}

func TestFetcher_WithGPGVerifier(t *testing.T) {
	signer, err := openpgp.NewEntity("wasp release", "", "release@example.com", nil)
	require.NoError(t, err)
	stranger, err := openpgp.NewEntity("someone else", "", "other@example.com", nil)
	require.NoError(t, err)

	archive := gzipTar(t, upstreamTree("abc123"))
	var sig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&sig, signer, bytes.NewReader(archive), nil))

	srv := newArchiveServer(t)
	srv.serve("abc123", archive)
	srv.mu.Lock()
	srv.archives["/wasp-ws/wasp/archive/abc123.tar.gz.asc"] = sig.Bytes()
	srv.mu.Unlock()

	fetch := func(t *testing.T, key *openpgp.Entity) (string, error) {
		cfg := entities.SignatureConfig{KeyFile: writePublicKey(t, key)}
		verifier, err := NewGPGVerifier(context.Background(), cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, verifier.KeyringSize())

		workDir := t.TempDir()
		f := NewFetcher(FetcherConfig{
			Source: entities.SourceConfig{
				ArchiveHost: srv.URL,
				Project:     "wasp-ws/wasp",
				Signature:   cfg,
			},
			WorkDir: workDir,
		}, verifier, nil)
		_, err = f.Fetch(context.Background(), "abc123")
		return workDir, err
	}

	t.Run("trusted key", func(t *testing.T) {
		workDir, err := fetch(t, signer)
		require.NoError(t, err)
		assert.DirExists(t, filepath.Join(workDir, "abc123", "src"))
	})

	t.Run("untrusted key", func(t *testing.T) {
		workDir, err := fetch(t, stranger)
		assert.ErrorIs(t, err, entities.ErrFetch)
		assert.NoDirExists(t, filepath.Join(workDir, "abc123"))
	})
}
