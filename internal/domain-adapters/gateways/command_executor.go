// Package gateways provides adapter implementations for the release pipeline stages.
package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// CommandExecutor runs external tools (toolchain, strip) as subprocesses
type CommandExecutor struct {
	// Tee, when set, receives a live copy of the command output
	Tee io.Writer
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{}
}

// ExecuteCommandConfig contains configuration for a subprocess invocation
type ExecuteCommandConfig struct {
	Command    string
	Args       []string
	WorkingDir string
	Env        map[string]string
}

// ExecuteResult contains the result of a command execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Output   string // interleaved stdout and stderr
	Duration time.Duration
	Error    error
}

// CommandLine renders the invocation for diagnostics
func (c ExecuteCommandConfig) CommandLine() string {
	return strings.Join(append([]string{c.Command}, c.Args...), " ")
}

// Execute runs the command to completion.
// There is no timeout: cancellation comes only from ctx, which the CLI ties
// to SIGINT/SIGTERM.
func (ce *CommandExecutor) Execute(ctx context.Context, config ExecuteCommandConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{ExitCode: -1}

	//nolint:gosec // G204: command comes from the release manifest
	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.Dir = config.WorkingDir
	cmd.Env = mergeEnv(os.Environ(), config.Env)

	var output bytes.Buffer
	var w io.Writer = &output
	if ce.Tee != nil {
		w = io.MultiWriter(&output, ce.Tee)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Output = output.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			result.Error = fmt.Errorf("%w (%w)", err, ctx.Err())
		}
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// mergeEnv appends overrides to base in a stable order
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := append([]string(nil), base...)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
