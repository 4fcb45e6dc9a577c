// Package entities defines core domain models and data structures.
package entities

import "path/filepath"

// BuildArtifact is the binary produced by the toolchain inside a workspace.
// It is owned by the build stage and read-only to the packager.
type BuildArtifact struct {
	Revision Revision
	Path     string // absolute path inside the workspace build output
	Size     int64
	Output   string // combined toolchain output
}

// ReleaseDirectory is the final output location for a packaged binary
type ReleaseDirectory struct {
	Path       string
	BinaryName string
}

// BinaryPath returns the fixed location of the packaged binary
func (d ReleaseDirectory) BinaryPath() string {
	return filepath.Join(d.Path, d.BinaryName)
}

// PackagedBinary is the stripped binary published into the release directory
type PackagedBinary struct {
	Revision Revision
	Path     string
	Size     int64
	Digest   string // sha256:<hex>
}
