package gateways

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/domain/interfaces"
	"github.com/ochairo/tincture/internal/paths"
)

// Stripper removes debug and symbol information from a binary in place
type Stripper interface {
	Strip(ctx context.Context, binaryPath string) error
}

// Packager publishes a build artifact into the release directory.
//
// The binary is copied and stripped in a staging directory next to the
// release directory. Only after the strip succeeds is the old release
// directory removed and the staging directory renamed into its place, so a
// failed package run leaves the previous release intact.
type Packager struct {
	stripper Stripper
	logger   interfaces.Logger
}

// NewPackager creates a new packager
func NewPackager(stripper Stripper, logger interfaces.Logger) *Packager {
	return &Packager{
		stripper: stripper,
		logger:   interfaces.OrNop(logger),
	}
}

// Package copies artifact into dir under its fixed binary name and strips it
func (p *Packager) Package(
	ctx context.Context,
	artifact *entities.BuildArtifact,
	dir entities.ReleaseDirectory,
) (*entities.PackagedBinary, error) {
	if dir.Path == "" || dir.BinaryName == "" || strings.ContainsAny(dir.BinaryName, `/\`) {
		return nil, fmt.Errorf("%w: invalid release directory %q / binary name %q", entities.ErrConfig, dir.Path, dir.BinaryName)
	}

	releasePath := filepath.Clean(dir.Path)
	parent := filepath.Dir(releasePath)
	if err := os.MkdirAll(parent, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create release parent directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(releasePath)+".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	//nolint:errcheck // Staging is gone after a successful swap
	defer os.RemoveAll(staging)

	stagedBinary := filepath.Join(staging, dir.BinaryName)
	if err := copyFile(artifact.Path, stagedBinary, paths.DefaultBinaryMode); err != nil {
		return nil, fmt.Errorf("failed to copy artifact: %w", err)
	}

	p.logger.Debug("stripping binary", interfaces.F("path", stagedBinary))
	if err := p.stripper.Strip(ctx, stagedBinary); err != nil {
		return nil, err
	}

	info, err := os.Stat(stagedBinary)
	if err != nil {
		return nil, fmt.Errorf("failed to stat stripped binary: %w", err)
	}
	d, err := DigestFile(stagedBinary)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G302: release directory is meant to be world-readable
	if err := os.Chmod(staging, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to set release directory mode: %w", err)
	}

	if err := os.RemoveAll(releasePath); err != nil {
		return nil, fmt.Errorf("failed to clear release directory: %w", err)
	}
	if err := os.Rename(staging, releasePath); err != nil {
		return nil, fmt.Errorf("failed to publish release directory: %w", err)
	}

	p.logger.Info("release published",
		interfaces.F("path", dir.BinaryPath()),
		interfaces.F("size", info.Size()),
		interfaces.F("digest", d.String()),
	)

	return &entities.PackagedBinary{
		Revision: artifact.Revision,
		Path:     filepath.Join(releasePath, dir.BinaryName),
		Size:     info.Size(),
		Digest:   d.String(),
	}, nil
}

// copyFile copies src to dst, creating dst with the given mode
func copyFile(src, dst string, mode os.FileMode) error {
	//nolint:gosec // G304: src is the build artifact path
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	//nolint:gosec // G304: dst is inside the staging directory
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile mode is subject to umask
	return os.Chmod(dst, mode)
}
