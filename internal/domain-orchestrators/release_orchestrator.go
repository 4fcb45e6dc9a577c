// Package orchestrators coordinates the release pipeline across the stage gateways.
package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/domain/interfaces"
)

// RevisionSource supplies the pinned revision
type RevisionSource interface {
	CurrentRevision() entities.Revision
}

// Fetcher stages the source tree for a revision
type Fetcher interface {
	Fetch(ctx context.Context, revision entities.Revision) (*entities.Workspace, error)
}

// Builder compiles a workspace in release mode
type Builder interface {
	Build(ctx context.Context, ws *entities.Workspace) (*entities.BuildArtifact, error)
}

// Packager publishes a build artifact into the release directory
type Packager interface {
	Package(ctx context.Context, artifact *entities.BuildArtifact, dir entities.ReleaseDirectory) (*entities.PackagedBinary, error)
}

// StageObserver is notified as stages start and finish
type StageObserver interface {
	StageStarted(stage entities.Stage, detail string)
	StageFinished(stage entities.Stage, detail string, elapsed time.Duration)
}

// ReleaseOrchestrator runs Resolver -> Fetcher -> Builder -> Packager.
// Stages run strictly in order and the first failure halts the run.
type ReleaseOrchestrator struct {
	revisions  RevisionSource
	fetcher    Fetcher
	builder    Builder
	packager   Packager
	releaseDir entities.ReleaseDirectory
	observer   StageObserver
	logger     interfaces.Logger
}

// ReleaseOrchestratorConfig holds configuration for the orchestrator
type ReleaseOrchestratorConfig struct {
	ReleaseDir entities.ReleaseDirectory
	Observer   StageObserver
	Logger     interfaces.Logger
}

// NewReleaseOrchestrator creates a new release orchestrator
func NewReleaseOrchestrator(
	revisions RevisionSource,
	fetcher Fetcher,
	builder Builder,
	packager Packager,
	config ReleaseOrchestratorConfig,
) *ReleaseOrchestrator {
	return &ReleaseOrchestrator{
		revisions:  revisions,
		fetcher:    fetcher,
		builder:    builder,
		packager:   packager,
		releaseDir: config.ReleaseDir,
		observer:   config.Observer,
		logger:     interfaces.OrNop(config.Logger),
	}
}

// ReleaseResult contains the outcome of a pipeline run
type ReleaseResult struct {
	RunID       string
	Revision    entities.Revision
	Through     entities.Stage
	Workspace   *entities.Workspace
	Artifact    *entities.BuildArtifact
	Binary      *entities.PackagedBinary
	FailedStage entities.Stage

	FetchDuration   time.Duration
	BuildDuration   time.Duration
	PackageDuration time.Duration
	TotalDuration   time.Duration

	Success bool
	Error   error
}

// Release runs the full pipeline
func (o *ReleaseOrchestrator) Release(ctx context.Context) (*ReleaseResult, error) {
	return o.Run(ctx, entities.StagePackage)
}

// Run executes the pipeline up to and including the through stage.
// Errors are returned as *entities.StageError naming the failing stage.
func (o *ReleaseOrchestrator) Run(ctx context.Context, through entities.Stage) (*ReleaseResult, error) {
	startTime := time.Now()
	result := &ReleaseResult{
		RunID:   uuid.NewString(),
		Through: through,
	}
	logger := o.logger.With(interfaces.F("run_id", result.RunID))

	fail := func(stage entities.Stage, err error) (*ReleaseResult, error) {
		result.FailedStage = stage
		result.Error = &entities.StageError{Stage: stage, Err: err}
		result.TotalDuration = time.Since(startTime)
		logger.Error("release pipeline failed", interfaces.F("stage", stage), interfaces.Err(err))
		return result, result.Error
	}
	done := func() (*ReleaseResult, error) {
		result.Success = true
		result.TotalDuration = time.Since(startTime)
		logger.Info("release pipeline finished",
			interfaces.F("through", through),
			interfaces.F("duration", result.TotalDuration),
		)
		return result, nil
	}

	if _, err := entities.ParseStage(string(through)); err != nil {
		return fail(entities.StageResolve, err)
	}

	// Step 1: Resolve the pinned revision
	result.Revision = o.revisions.CurrentRevision()
	logger = logger.With(interfaces.F("revision", result.Revision))
	o.started(entities.StageResolve, result.Revision.String())
	o.finished(entities.StageResolve, result.Revision.String(), 0)
	if !entities.StageResolve.Before(through) {
		return done()
	}

	// Step 2: Fetch and stage the source tree
	if err := ctx.Err(); err != nil {
		return fail(entities.StageFetch, err)
	}
	o.started(entities.StageFetch, result.Revision.String())
	fetchStart := time.Now()
	ws, err := o.fetcher.Fetch(ctx, result.Revision)
	if err != nil {
		return fail(entities.StageFetch, err)
	}
	if ws.Revision != result.Revision {
		return fail(entities.StageFetch, fmt.Errorf("workspace is for revision %s, expected %s", ws.Revision, result.Revision))
	}
	result.Workspace = ws
	result.FetchDuration = time.Since(fetchStart)
	o.finished(entities.StageFetch, fetchDetail(ws), result.FetchDuration)
	if !entities.StageFetch.Before(through) {
		return done()
	}

	// Step 3: Release build
	if err := ctx.Err(); err != nil {
		return fail(entities.StageBuild, err)
	}
	o.started(entities.StageBuild, ws.SourceDir)
	buildStart := time.Now()
	artifact, err := o.builder.Build(ctx, ws)
	if err != nil {
		return fail(entities.StageBuild, err)
	}
	result.Artifact = artifact
	result.BuildDuration = time.Since(buildStart)
	o.finished(entities.StageBuild, artifact.Path, result.BuildDuration)
	if !entities.StageBuild.Before(through) {
		return done()
	}

	// Step 4: Package and strip
	if err := ctx.Err(); err != nil {
		return fail(entities.StagePackage, err)
	}
	o.started(entities.StagePackage, o.releaseDir.BinaryPath())
	packageStart := time.Now()
	binary, err := o.packager.Package(ctx, artifact, o.releaseDir)
	if err != nil {
		return fail(entities.StagePackage, err)
	}
	result.Binary = binary
	result.PackageDuration = time.Since(packageStart)
	o.finished(entities.StagePackage, binary.Path, result.PackageDuration)

	return done()
}

func (o *ReleaseOrchestrator) started(stage entities.Stage, detail string) {
	if o.observer != nil {
		o.observer.StageStarted(stage, detail)
	}
}

func (o *ReleaseOrchestrator) finished(stage entities.Stage, detail string, elapsed time.Duration) {
	if o.observer != nil {
		o.observer.StageFinished(stage, detail, elapsed)
	}
}

func fetchDetail(ws *entities.Workspace) string {
	if ws.Reused {
		return ws.SourceDir + " (cached)"
	}
	return ws.SourceDir
}

// Summary returns a human-readable summary of the run
func (r *ReleaseResult) Summary() string {
	if !r.Success {
		return fmt.Sprintf("Release failed in %s stage: %v", r.FailedStage, r.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Release successful!\nRun: %s\nRevision: %s\n", r.RunID, r.Revision)
	if r.Workspace != nil {
		fmt.Fprintf(&b, "Workspace: %s\n", r.Workspace.SourceDir)
		if r.Workspace.Reused {
			b.WriteString("Fetch: cached\n")
		} else {
			fmt.Fprintf(&b, "Fetch: %v\n", r.FetchDuration.Round(time.Millisecond))
		}
	}
	if r.Artifact != nil {
		fmt.Fprintf(&b, "Build: %v\n", r.BuildDuration.Round(time.Millisecond))
	}
	if r.Binary != nil {
		fmt.Fprintf(&b, "Binary: %s (%d bytes)\nDigest: %s\n", r.Binary.Path, r.Binary.Size, r.Binary.Digest)
	}
	fmt.Fprintf(&b, "Total: %v", r.TotalDuration.Round(time.Millisecond))
	return b.String()
}
