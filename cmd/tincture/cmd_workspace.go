package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ochairo/tincture/internal/domain-adapters/gateways"
	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/domain/services"
)

func newRevisionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "revision",
		Short: "Print the pinned revision and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fetcher, err := c.newFetcher(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}

			rev := cfg.resolver.CurrentRevision()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "revision:  %s\n", rev)
			fmt.Fprintf(out, "source:    %s\n", cfg.resolver.Source())
			fmt.Fprintf(out, "archive:   %s\n", fetcher.ArchiveURL(rev))
			fmt.Fprintf(out, "workspace: %s\n", fetcher.Workspace(rev).SourceDir)
			fmt.Fprintf(out, "release:   %s\n", cfg.releaseDir.BinaryPath())
			return nil
		},
	}
}

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the staged workspace and the release directory",
		Long: `Re-hash the files fetched into the workspace of the pinned revision and
compare them with the hash recorded at fetch time. Files the toolchain added
later are ignored. Then check that the release directory holds exactly one
stripped executable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fetcher, err := c.newFetcher(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}

			p := c.printer()
			rev := cfg.resolver.CurrentRevision()

			ws, ok := fetcher.Lookup(rev)
			if !ok {
				return fmt.Errorf("no workspace for revision %s (run tincture fetch)", rev)
			}
			if err := fetcher.Verify(ws); err != nil {
				return err
			}
			if !c.opts.quiet {
				p.Success("workspace %s matches %s", ws.SourceDir, ws.Stamp.TreeHash)
			}

			return c.verifyRelease(cfg.releaseDir)
		},
	}
}

// verifyRelease checks the release directory layout and the binary itself
func (c *cli) verifyRelease(dir entities.ReleaseDirectory) error {
	p := c.printer()

	entries, err := listRelease(dir.Path)
	if err != nil {
		return err
	}

	validation := services.NewReleaseService().ValidateRelease(dir, entries)
	if validation.Status == services.StatusNoRelease {
		p.Warning("%s", validation.ErrorMessage())
		return nil
	}
	if !validation.IsReady() {
		return errors.New(validation.ErrorMessage())
	}

	if err := gateways.VerifyStripped(dir.BinaryPath()); err != nil {
		return err
	}
	d, err := gateways.DigestFile(dir.BinaryPath())
	if err != nil {
		return err
	}

	if !c.opts.quiet {
		p.Success("release %s is a stripped executable", dir.BinaryPath())
		p.Detail("%s", d)
	}
	return nil
}

// listRelease returns nil entries when the directory does not exist
func listRelease(path string) ([]services.ReleaseEntry, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("release path %s is not a directory", path)
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read release directory: %w", err)
	}

	entries := make([]services.ReleaseEntry, 0, len(dirEntries))
	for _, e := range dirEntries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, services.ReleaseEntry{Name: e.Name(), Mode: info.Mode()})
	}
	return entries, nil
}

func newCleanCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the workspace of the pinned revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fetcher, err := c.newFetcher(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}

			rev := cfg.resolver.CurrentRevision()
			ws := fetcher.Workspace(rev)
			if err := fetcher.Discard(rev); err != nil {
				return err
			}
			if !c.opts.quiet {
				c.printer().Success("removed %s", ws.Root)
			}
			return nil
		},
	}
}
