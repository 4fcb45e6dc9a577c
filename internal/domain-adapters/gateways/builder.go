package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/domain/interfaces"
)

// Builder invokes the external toolchain in release mode against a workspace
type Builder struct {
	executor  *CommandExecutor
	toolchain entities.ToolchainConfig
	logger    interfaces.Logger
}

// NewBuilder creates a builder for the given toolchain
func NewBuilder(executor *CommandExecutor, toolchain entities.ToolchainConfig, logger interfaces.Logger) *Builder {
	if executor == nil {
		executor = NewCommandExecutor()
	}
	return &Builder{
		executor:  executor,
		toolchain: toolchain,
		logger:    interfaces.OrNop(logger),
	}
}

// ArtifactPath returns where the toolchain leaves the primary artifact for ws.
// The location is a fixed convention of the toolchain, never discovered.
func (b *Builder) ArtifactPath(ws *entities.Workspace) string {
	return filepath.Join(ws.SourceDir, filepath.FromSlash(b.toolchain.Artifact))
}

// Build runs the toolchain with the workspace source tree as working directory.
// Any failure is terminal: there are no retries.
func (b *Builder) Build(ctx context.Context, ws *entities.Workspace) (*entities.BuildArtifact, error) {
	config := ExecuteCommandConfig{
		Command:    b.toolchain.Command,
		Args:       b.toolchain.Args,
		WorkingDir: ws.SourceDir,
		Env:        b.toolchain.Env,
	}

	b.logger.Info("running toolchain",
		interfaces.F("command", config.CommandLine()),
		interfaces.F("dir", ws.SourceDir),
	)

	result := b.executor.Execute(ctx, config)
	if !result.Success {
		return nil, &entities.BuildError{
			Command:  config.CommandLine(),
			ExitCode: result.ExitCode,
			Output:   result.Output,
			Err:      result.Error,
		}
	}

	b.logger.Info("toolchain finished", interfaces.F("duration", result.Duration))

	path := b.ArtifactPath(ws)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: expected artifact %s: %w", entities.ErrBuild, b.toolchain.Artifact, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: artifact %s is not a regular file", entities.ErrBuild, b.toolchain.Artifact)
	}

	return &entities.BuildArtifact{
		Revision: ws.Revision,
		Path:     path,
		Size:     info.Size(),
		Output:   result.Output,
	}, nil
}
