package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// Mock implementations for testing
type mockRevisionSource struct {
	revision entities.Revision
}

func (m *mockRevisionSource) CurrentRevision() entities.Revision {
	return m.revision
}

type mockFetcher struct {
	workspace *entities.Workspace
	err       error
	calls     int
}

func (m *mockFetcher) Fetch(_ context.Context, revision entities.Revision) (*entities.Workspace, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.workspace != nil {
		return m.workspace, nil
	}
	return &entities.Workspace{Revision: revision, Root: "/work/" + revision.String(), SourceDir: "/work/" + revision.String() + "/src"}, nil
}

type mockBuilder struct {
	artifact *entities.BuildArtifact
	err      error
	calls    int
}

func (m *mockBuilder) Build(_ context.Context, ws *entities.Workspace) (*entities.BuildArtifact, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.artifact != nil {
		return m.artifact, nil
	}
	return &entities.BuildArtifact{Revision: ws.Revision, Path: ws.SourceDir + "/target/release/wasp", Size: 42}, nil
}

type mockPackager struct {
	err   error
	calls int
	dir   entities.ReleaseDirectory
}

func (m *mockPackager) Package(_ context.Context, artifact *entities.BuildArtifact, dir entities.ReleaseDirectory) (*entities.PackagedBinary, error) {
	m.calls++
	m.dir = dir
	if m.err != nil {
		return nil, m.err
	}
	return &entities.PackagedBinary{
		Revision: artifact.Revision,
		Path:     dir.BinaryPath(),
		Size:     21,
		Digest:   "sha256:0000000000000000000000000000000000000000000000000000000000000000",
	}, nil
}

type recordingObserver struct {
	events []string
}

func (r *recordingObserver) StageStarted(stage entities.Stage, _ string) {
	r.events = append(r.events, "start "+string(stage))
}

func (r *recordingObserver) StageFinished(stage entities.Stage, _ string, _ time.Duration) {
	r.events = append(r.events, "done "+string(stage))
}

func newTestOrchestrator(f *mockFetcher, b *mockBuilder, p *mockPackager, obs StageObserver) *ReleaseOrchestrator {
	return NewReleaseOrchestrator(
		&mockRevisionSource{revision: "abc123"},
		f, b, p,
		ReleaseOrchestratorConfig{
			ReleaseDir: entities.ReleaseDirectory{Path: "release", BinaryName: "wasp"},
			Observer:   obs,
		},
	)
}

// Test successful release workflow
func TestReleaseOrchestrator_Release_Success(t *testing.T) {
	f, b, p := &mockFetcher{}, &mockBuilder{}, &mockPackager{}
	obs := &recordingObserver{}

	result, err := newTestOrchestrator(f, b, p, obs).Release(context.Background())
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if !result.Success {
		t.Error("expected Success")
	}
	if result.RunID == "" {
		t.Error("expected a run ID")
	}
	if result.Revision != "abc123" {
		t.Errorf("Revision = %s", result.Revision)
	}
	if result.Binary == nil || result.Binary.Path != "release/wasp" {
		t.Errorf("Binary = %+v, want release/wasp", result.Binary)
	}
	if p.dir.BinaryName != "wasp" {
		t.Errorf("packager got dir %+v", p.dir)
	}
	if f.calls != 1 || b.calls != 1 || p.calls != 1 {
		t.Errorf("calls fetch=%d build=%d package=%d, want 1 each", f.calls, b.calls, p.calls)
	}

	want := []string{
		"start resolve", "done resolve",
		"start fetch", "done fetch",
		"start build", "done build",
		"start package", "done package",
	}
	if strings.Join(obs.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", obs.events, want)
	}

	summary := result.Summary()
	for _, s := range []string{"Release successful!", "abc123", "release/wasp"} {
		if !strings.Contains(summary, s) {
			t.Errorf("Summary() missing %q:\n%s", s, summary)
		}
	}
}

// Test that each failure halts the pipeline and names the stage
func TestReleaseOrchestrator_Release_StageFailures(t *testing.T) {
	tests := []struct {
		name         string
		fetchErr     error
		buildErr     error
		packageErr   error
		wantStage    entities.Stage
		wantSentinel error
		wantBuilds   int
		wantPackages int
	}{
		{
			name:         "fetch failure",
			fetchErr:     errors.New("fetch failed: 404"),
			wantStage:    entities.StageFetch,
			wantBuilds:   0,
			wantPackages: 0,
		},
		{
			name:         "build failure",
			buildErr:     &entities.BuildError{Command: "cargo build --release", ExitCode: 101, Output: "error[E0308]"},
			wantStage:    entities.StageBuild,
			wantSentinel: entities.ErrBuild,
			wantBuilds:   1,
			wantPackages: 0,
		},
		{
			name:         "strip failure",
			packageErr:   entities.ErrStrip,
			wantStage:    entities.StagePackage,
			wantSentinel: entities.ErrStrip,
			wantBuilds:   1,
			wantPackages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{err: tt.fetchErr}
			b := &mockBuilder{err: tt.buildErr}
			p := &mockPackager{err: tt.packageErr}

			result, err := newTestOrchestrator(f, b, p, nil).Release(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if result.Success {
				t.Error("expected Success = false")
			}
			if result.FailedStage != tt.wantStage {
				t.Errorf("FailedStage = %s, want %s", result.FailedStage, tt.wantStage)
			}

			var stageErr *entities.StageError
			if !errors.As(err, &stageErr) || stageErr.Stage != tt.wantStage {
				t.Errorf("error %v is not a StageError for %s", err, tt.wantStage)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantSentinel)
			}
			if b.calls != tt.wantBuilds || p.calls != tt.wantPackages {
				t.Errorf("builds=%d packages=%d, want %d/%d", b.calls, p.calls, tt.wantBuilds, tt.wantPackages)
			}
			if !strings.Contains(result.Summary(), string(tt.wantStage)) {
				t.Errorf("Summary() = %q", result.Summary())
			}
		})
	}
}

// Test partial runs stop after the requested stage
func TestReleaseOrchestrator_Run_Through(t *testing.T) {
	tests := []struct {
		through              entities.Stage
		fetches, builds, pkg int
	}{
		{entities.StageResolve, 0, 0, 0},
		{entities.StageFetch, 1, 0, 0},
		{entities.StageBuild, 1, 1, 0},
		{entities.StagePackage, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.through), func(t *testing.T) {
			f, b, p := &mockFetcher{}, &mockBuilder{}, &mockPackager{}
			result, err := newTestOrchestrator(f, b, p, nil).Run(context.Background(), tt.through)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !result.Success || result.Through != tt.through {
				t.Errorf("result = %+v", result)
			}
			if f.calls != tt.fetches || b.calls != tt.builds || p.calls != tt.pkg {
				t.Errorf("calls = %d/%d/%d, want %d/%d/%d", f.calls, b.calls, p.calls, tt.fetches, tt.builds, tt.pkg)
			}
		})
	}
}

// Test the fetched workspace must match the pinned revision
func TestReleaseOrchestrator_Release_WorkspaceRevisionMismatch(t *testing.T) {
	f := &mockFetcher{workspace: &entities.Workspace{Revision: "other", SourceDir: "/work/other/src"}}
	b := &mockBuilder{}

	result, err := newTestOrchestrator(f, b, &mockPackager{}, nil).Release(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if result.FailedStage != entities.StageFetch || b.calls != 0 {
		t.Errorf("FailedStage = %s, builds = %d", result.FailedStage, b.calls)
	}
}

// Test cancellation before a stage starts
func TestReleaseOrchestrator_Release_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &mockFetcher{}
	result, err := newTestOrchestrator(f, &mockBuilder{}, &mockPackager{}, nil).Release(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if f.calls != 0 || result.FailedStage != entities.StageFetch {
		t.Errorf("fetches = %d, FailedStage = %s", f.calls, result.FailedStage)
	}
}

// Test summary for cached workspaces
func TestReleaseResult_Summary_Cached(t *testing.T) {
	result := &ReleaseResult{
		RunID:     "run",
		Revision:  "abc123",
		Workspace: &entities.Workspace{SourceDir: "/work/abc123/src", Reused: true},
		Success:   true,
	}
	if !strings.Contains(result.Summary(), "Fetch: cached") {
		t.Errorf("Summary() = %q", result.Summary())
	}
}

// Test an unknown stage is rejected before anything runs
func TestReleaseOrchestrator_Run_UnknownStage(t *testing.T) {
	f := &mockFetcher{}
	_, err := newTestOrchestrator(f, &mockBuilder{}, &mockPackager{}, nil).Run(context.Background(), "deploy")
	if !errors.Is(err, entities.ErrConfig) {
		t.Fatalf("error = %v, want ErrConfig", err)
	}
	if f.calls != 0 {
		t.Errorf("fetches = %d", f.calls)
	}
}
