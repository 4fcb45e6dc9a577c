package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/tincture/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/tincture/internal/domain-orchestrators"
	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/domain/interfaces"
	igateways "github.com/ochairo/tincture/internal/domain/interfaces/gateways"
	"github.com/ochairo/tincture/internal/domain/interfaces/repositories"
	"github.com/ochairo/tincture/internal/external-adapters/console"
	"github.com/ochairo/tincture/internal/external-adapters/logging"
	"github.com/ochairo/tincture/internal/external-adapters/yaml"
	"github.com/ochairo/tincture/internal/paths"
)

type buildInfo struct {
	Version         string
	Commit          string
	DefaultRevision string
}

// options holds the global flags
type options struct {
	manifestPath string
	revision     string
	workDir      string
	releaseDir   string
	quiet        bool
	debug        bool
	noColor      bool
}

// cli carries state shared by all subcommands of one invocation
type cli struct {
	info   buildInfo
	opts   options
	stdout io.Writer
	stderr io.Writer

	out *console.Printer
}

// config is the resolved configuration for one run
type config struct {
	manifest   *entities.Manifest
	resolver   *gateways.RevisionResolver
	workDir    string
	releaseDir entities.ReleaseDirectory
	logger     interfaces.Logger
}

func newRootCmd(info buildInfo, stdout, stderr io.Writer) (*cobra.Command, *cli) {
	c := &cli{info: info, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "tincture",
		Short: "Reproducible release builder for a pinned upstream revision",
		Long: `tincture fetches the source archive of one pinned upstream revision,
builds it with the project toolchain in release mode, and publishes a single
stripped executable into the release directory.

The pinned revision comes from --revision, then ` + gateways.RevisionEnvVar + `, then the
manifest (tincture.yml), then the default compiled into the binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runThrough(cmd.Context(), entities.StagePackage)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.opts.manifestPath, "manifest", "m", "", "manifest file (default "+entities.DefaultManifestFile+" if present)")
	flags.StringVarP(&c.opts.revision, "revision", "r", "", "pinned revision to release (overrides "+gateways.RevisionEnvVar+")")
	flags.StringVar(&c.opts.workDir, "workdir", "", "workspace root (default "+paths.Workspaces()+")")
	flags.StringVar(&c.opts.releaseDir, "release-dir", "", "release output directory (default "+entities.DefaultReleaseDir+")")
	flags.BoolVarP(&c.opts.quiet, "quiet", "q", false, "only print errors")
	flags.BoolVarP(&c.opts.debug, "debug", "d", false, "verbose logging and live toolchain output")
	flags.BoolVar(&c.opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newReleaseCmd(c),
		newStageCmd(c, entities.StageFetch, "Download and stage the source tree for the pinned revision"),
		newStageCmd(c, entities.StageBuild, "Fetch if needed, then run the release build"),
		newStageCmd(c, entities.StagePackage, "Run the full pipeline up to packaging"),
		newRevisionCmd(c),
		newVerifyCmd(c),
		newCleanCmd(c),
		newVersionCmd(c),
	)
	return root, c
}

// printer returns the console printer, created on first use so that it
// sees the parsed --no-color flag
func (c *cli) printer() *console.Printer {
	if c.out == nil {
		c.out = console.NewPrinter(c.stdout, c.stderr, c.opts.noColor)
	}
	return c.out
}

// loadConfig reads the manifest, applies flag overrides and resolves the revision
func (c *cli) loadConfig(ctx context.Context) (*config, error) {
	var repo repositories.ManifestRepository = yaml.NewManifestRepository(c.opts.manifestPath)
	manifest, err := repo.LoadManifest(ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := gateways.NewRevisionResolver(gateways.RevisionConfig{
		Flag:     c.opts.revision,
		Manifest: manifest.Revision,
		Default:  c.info.DefaultRevision,
	})
	if err != nil {
		return nil, err
	}

	workDir := c.opts.workDir
	if workDir == "" {
		workDir = manifest.WorkDir
	}

	releaseDir := manifest.ReleaseDirectory()
	if c.opts.releaseDir != "" {
		releaseDir.Path = c.opts.releaseDir
	}

	logger := logging.NewTextLogger(c.stderr, logging.Level(c.opts.quiet, c.opts.debug))

	return &config{
		manifest:   manifest,
		resolver:   resolver,
		workDir:    paths.WorkDir(workDir),
		releaseDir: releaseDir,
		logger:     logger.With(interfaces.F("revision", resolver.CurrentRevision())),
	}, nil
}

// newFetcher creates the fetcher, loading signature keys when withSignatures is set
func (c *cli) newFetcher(ctx context.Context, cfg *config, withSignatures bool) (*gateways.Fetcher, error) {
	var signatures igateways.SignatureGateway
	if withSignatures && cfg.manifest.Source.Signature.Enabled() {
		verifier, err := gateways.NewGPGVerifier(ctx, cfg.manifest.Source.Signature, nil)
		if err != nil {
			return nil, err
		}
		signatures = verifier
	}

	return gateways.NewFetcher(gateways.FetcherConfig{
		Source:  cfg.manifest.Source,
		WorkDir: cfg.workDir,
	}, signatures, cfg.logger), nil
}

func (c *cli) newOrchestrator(ctx context.Context, cfg *config) (*orchestrators.ReleaseOrchestrator, error) {
	fetcher, err := c.newFetcher(ctx, cfg, true)
	if err != nil {
		return nil, &entities.StageError{Stage: entities.StageFetch, Err: err}
	}

	executor := gateways.NewCommandExecutor()
	if c.opts.debug {
		executor.Tee = c.stderr
	}

	builder := gateways.NewBuilder(executor, cfg.manifest.Toolchain, cfg.logger)
	stripper := gateways.NewToolStripper(executor, cfg.manifest.Strip)
	packager := gateways.NewPackager(stripper, cfg.logger)

	return orchestrators.NewReleaseOrchestrator(
		cfg.resolver,
		fetcher,
		builder,
		packager,
		orchestrators.ReleaseOrchestratorConfig{
			ReleaseDir: cfg.releaseDir,
			Observer:   &stageReporter{printer: c.printer(), quiet: c.opts.quiet},
			Logger:     cfg.logger,
		},
	), nil
}

// stageReporter prints stage progress lines
type stageReporter struct {
	printer *console.Printer
	quiet   bool
}

func (r *stageReporter) StageStarted(stage entities.Stage, detail string) {
	if r.quiet {
		return
	}
	r.printer.Stage(string(stage), "%s", detail)
}

func (r *stageReporter) StageFinished(_ entities.Stage, detail string, elapsed time.Duration) {
	if r.quiet || elapsed == 0 {
		return
	}
	r.printer.Detail("%s (%s)", detail, elapsed.Round(time.Millisecond))
}
