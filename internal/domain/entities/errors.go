package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig  = errors.New("configuration error")
	ErrFetch   = errors.New("fetch failed")
	ErrExtract = errors.New("extract failed")
	ErrBuild   = errors.New("build failed")
	ErrStrip   = errors.New("strip failed")
)

// Stage identifies a pipeline stage
type Stage string

const (
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageBuild   Stage = "build"
	StagePackage Stage = "package"
)

// Stages lists the pipeline stages in execution order
var Stages = []Stage{StageResolve, StageFetch, StageBuild, StagePackage}

// ParseStage converts a stage name into a Stage
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrConfig, name)
}

// Before reports whether s runs before other in the pipeline
func (s Stage) Before(other Stage) bool {
	return s.index() < other.index()
}

func (s Stage) index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return len(Stages)
}

// StageError tags an error with the stage that produced it
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// BuildError carries the toolchain diagnostics verbatim
type BuildError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ErrBuild, e.Command)
	// A negative exit code means the toolchain never exited on its own
	// (killed by a signal or never started), so the cause says more
	switch {
	case e.ExitCode > 0:
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimRight(e.Output, "\n"); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBuild}
	}
	return []error{ErrBuild, e.Err}
}
