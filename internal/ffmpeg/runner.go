package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fastslice/internal/services"
)

// Result captures the observable outcome of one process invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes an external binary with an argument list. A non-zero exit
// is reported as a *services.ToolError alongside the captured Result.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// strippedEnvKeys are removed from the child environment so bundled runtimes
// cannot redirect the media tools' dynamic libraries.
var strippedEnvKeys = map[string]struct{}{
	"LD_LIBRARY_PATH":             {},
	"DYLD_LIBRARY_PATH":           {},
	"DYLD_FALLBACK_LIBRARY_PATH":  {},
	"DYLD_FRAMEWORK_PATH":         {},
	"DYLD_VERSIONED_LIBRARY_PATH": {},
	"PYTHONHOME":                  {},
	"PYTHONPATH":                  {},
}

// SanitizeEnv returns env without the library-path variables that would
// interfere with the media tools.
func SanitizeEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if _, drop := strippedEnvKeys[key]; drop {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ExecRunner runs binaries with os/exec and a sanitized environment.
type ExecRunner struct {
	// Env overrides the base environment; nil uses os.Environ.
	Env []string
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes binary and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	base := r.Env
	if base == nil {
		base = os.Environ()
	}
	cmd.Env = SanitizeEnv(base)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}

	tool := filepath.Base(binary)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &services.ToolError{Tool: tool, ExitCode: result.ExitCode, Stderr: result.Stderr, Err: ctx.Err()}
	}
	result.ExitCode = -1
	return result, &services.ToolError{Tool: tool, ExitCode: -1, Stderr: result.Stderr, Err: err}
}
