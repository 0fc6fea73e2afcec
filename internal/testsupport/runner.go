package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"fastslice/internal/ffmpeg"
	"fastslice/internal/services"
)

// Call records one FakeRunner invocation.
type Call struct {
	Binary string
	Args   []string
}

// Response scripts the outcome of one invocation.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err replaces the error derived from ExitCode.
	Err error
}

// FakeRunner records invocations instead of spawning processes. Responses
// are matched by binary base name; the first queued response is consumed,
// the last one is sticky. Successful ffmpeg calls create their destination.
type FakeRunner struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string][]Response
	// Before runs ahead of each invocation, letting tests cancel mid-batch.
	Before func(Call)
}

// NewFakeRunner returns a runner reporting success for every call.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: map[string][]Response{}}
}

// Script queues responses for binary (base name, e.g. "ffprobe").
func (f *FakeRunner) Script(binary string, responses ...Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[binary] = append(f.responses[binary], responses...)
	return f
}

// Calls returns a snapshot of recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo filters recorded invocations by binary base name.
func (f *FakeRunner) CallsTo(binary string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if toolName(c.Binary) == binary {
			out = append(out, c)
		}
	}
	return out
}

// Run implements ffmpeg.Runner.
func (f *FakeRunner) Run(_ context.Context, binary string, args []string) (ffmpeg.Result, error) {
	call := Call{Binary: binary, Args: slices.Clone(args)}
	if f.Before != nil {
		f.Before(call)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	name := toolName(binary)
	var resp Response
	if queue := f.responses[name]; len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[name] = queue[1:]
		}
	}
	f.mu.Unlock()

	result := ffmpeg.Result{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}
	if resp.Err != nil {
		return result, resp.Err
	}
	if resp.ExitCode != 0 {
		return result, &services.ToolError{Tool: name, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	if name == "ffmpeg" && len(args) > 0 && !strings.HasPrefix(args[len(args)-1], "-") {
		dest := args[len(args)-1]
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err == nil {
			_ = os.WriteFile(dest, []byte("clip"), 0o644)
		}
	}
	return result, nil
}

func toolName(binary string) string {
	return strings.TrimSuffix(filepath.Base(binary), ".exe")
}
