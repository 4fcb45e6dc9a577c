package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/tincture/internal/domain-orchestrators"
	"github.com/ochairo/tincture/internal/domain/entities"
)

func newReleaseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Fetch, build and package the pinned revision (default)",
		Long: `Run the whole pipeline for the pinned revision:

  fetch    download <archive_host>/<project>/archive/<revision>.tar.gz and
           stage it as <workdir>/<revision>/src (skipped when already staged)
  build    run the toolchain in release mode inside the workspace
  package  replace the release directory with the stripped binary

The first failing stage stops the run and the process exits with status 1.`,
		Example: `  tincture release
  tincture release --revision abc123
  TINCTURE_REVISION=abc123 tincture release --release-dir dist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runThrough(cmd.Context(), entities.StagePackage)
		},
	}
}

// newStageCmd creates a command that runs the pipeline up to and including stage
func newStageCmd(c *cli, stage entities.Stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(stage),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runThrough(cmd.Context(), stage)
		},
	}
}

func (c *cli) runThrough(ctx context.Context, through entities.Stage) error {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return err
	}

	orch, err := c.newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, through)
	if err != nil {
		return err
	}

	c.reportResult(result)
	return nil
}

func (c *cli) reportResult(result *orchestrators.ReleaseResult) {
	if c.opts.quiet {
		return
	}
	p := c.printer()

	switch result.Through {
	case entities.StageResolve:
		p.Success("resolved %s", result.Revision)
	case entities.StageFetch:
		p.Success("staged %s at %s", result.Revision.Short(), result.Workspace.SourceDir)
	case entities.StageBuild:
		p.Success("built %s (%s)", result.Artifact.Path, formatSize(result.Artifact.Size))
	case entities.StagePackage:
		p.Success("released %s to %s", result.Revision.Short(), result.Binary.Path)
		p.Detail("%s, %s", formatSize(result.Binary.Size), result.Binary.Digest)
	}

	if c.opts.debug {
		p.Info("%s", result.Summary())
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
