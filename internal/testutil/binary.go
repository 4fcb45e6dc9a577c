// Package testutil holds fixtures shared by tests across packages
package testutil

import (
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureMain = `package main

func main() {}
`

// UnstrippedBinary compiles a minimal Go program into a fresh temp dir and
// returns its path. The binary keeps its .symtab so strip has work to do.
// Skips when not on linux or the go tool is missing.
func UnstrippedBinary(t *testing.T, name string) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("ELF strip fixtures run on linux only")
	}
	goTool, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not installed")
	}

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "go.mod"), []byte("module fixture\n\ngo 1.21\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.go"), []byte(fixtureMain), 0600))

	out := filepath.Join(t.TempDir(), name)
	cmd := exec.Command(goTool, "build", "-o", out, ".")
	cmd.Dir = src
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOFLAGS=", "GOOS=", "GOARCH=")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "building fixture binary: %s", output)

	f, err := elf.Open(out)
	require.NoError(t, err)
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()
	require.NotNil(t, f.Section(".symtab"), "fixture binary has no symbol table")
	return out
}

// RequireStrip skips the test when the strip tool is not installed
func RequireStrip(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("strip"); err != nil {
		t.Skip("strip not installed")
	}
}
