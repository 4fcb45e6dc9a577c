package gateways

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/testutil"
)

func TestVerifyStripped_NotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0600))

	err := VerifyStripped(path)
	assert.ErrorIs(t, err, entities.ErrStrip)
	assert.Contains(t, err.Error(), "not a recognized executable format")
}

func TestVerifyStripped_DetectsSymbols(t *testing.T) {
	err := VerifyStripped(testutil.UnstrippedBinary(t, "wasp"))
	assert.ErrorIs(t, err, entities.ErrStrip)
	assert.Contains(t, err.Error(), "still contains")
}

func TestToolStripper_Strip(t *testing.T) {
	testutil.RequireStrip(t)
	binary := testutil.UnstrippedBinary(t, "wasp")

	stripper := NewToolStripper(nil, entities.StripConfig{Command: "strip"})
	require.NoError(t, stripper.Strip(context.Background(), binary))
	assert.NoError(t, VerifyStripped(binary))
}

func TestToolStripper_ToolFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wasp")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	stripper := NewToolStripper(nil, entities.StripConfig{
		Command: "sh",
		Args:    []string{"-c", "echo 'strip: file format not recognized' >&2; exit 1", "strip"},
	})
	err := stripper.Strip(context.Background(), path)
	assert.ErrorIs(t, err, entities.ErrStrip)
	assert.Contains(t, err.Error(), "file format not recognized")
}

func TestToolStripper_NoOpToolIsCaught(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wasp")
	require.NoError(t, os.WriteFile(path, []byte("not a binary"), 0600))

	stripper := NewToolStripper(nil, entities.StripConfig{Command: "true"})
	assert.ErrorIs(t, stripper.Strip(context.Background(), path), entities.ErrStrip)
}

func TestIsDebugSection(t *testing.T) {
	for name, want := range map[string]bool{
		".debug_info":    true,
		".zdebug_line":   true,
		"__debug_str":    true,
		".text":          false,
		".rodata":        false,
		"__text":         false,
		".gnu_debuglink": false,
	} {
		if got := isDebugSection(name); got != want {
			t.Errorf("isDebugSection(%q) = %v, want %v", name, got, want)
		}
	}
}
