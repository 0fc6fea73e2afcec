package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"fastslice/internal/services"
)

// Requirement defines an external dependency fastslice relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Locator resolves ffmpeg-family binaries. Lookup order: explicit override,
// configured directories, ./bin next to the executable, ./bin in the working
// directory, then PATH.
type Locator struct {
	Overrides map[string]string
	BinDirs   []string
	// Executable returns the running binary path; nil uses os.Executable.
	Executable func() (string, error)
	// WorkDir returns the working directory; nil uses os.Getwd.
	WorkDir func() (string, error)
}

// Find returns the resolved path for name or an error marked ErrToolMissing.
func (l Locator) Find(name string) (string, error) {
	if override := strings.TrimSpace(l.Overrides[name]); override != "" {
		if isExecutableFile(override) {
			return override, nil
		}
		if resolved, err := exec.LookPath(override); err == nil {
			return resolved, nil
		}
	}

	for _, candidate := range l.candidates(name) {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, nil
	}
	return "", fmt.Errorf("%w: %s not found; install it or place it in ./bin", services.ErrToolMissing, name)
}

func (l Locator) candidates(name string) []string {
	file := executableName(name)
	var out []string
	for _, dir := range l.BinDirs {
		if strings.TrimSpace(dir) != "" {
			out = append(out, filepath.Join(dir, file))
		}
	}
	exe := l.Executable
	if exe == nil {
		exe = os.Executable
	}
	if path, err := exe(); err == nil && path != "" {
		out = append(out, filepath.Join(filepath.Dir(path), "bin", file))
	}
	wd := l.WorkDir
	if wd == nil {
		wd = os.Getwd
	}
	if dir, err := wd(); err == nil && dir != "" {
		out = append(out, filepath.Join(dir, "bin", file))
	}
	return out
}

// Tools holds the resolved media tool paths.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// FindTools resolves ffmpeg and ffprobe, failing on the first missing binary.
func (l Locator) FindTools() (Tools, error) {
	ffmpeg, err := l.Find("ffmpeg")
	if err != nil {
		return Tools{}, err
	}
	ffprobe, err := l.Find("ffprobe")
	if err != nil {
		return Tools{}, err
	}
	return Tools{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

// Requirements describes the media tools for status reporting, using resolved
// paths when discovery succeeded.
func (l Locator) Requirements() []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "Cuts and re-encodes clips"},
		{Name: "FFprobe", Command: "ffprobe", Description: "Reports source duration"},
	}
	for i := range reqs {
		if resolved, err := l.Find(reqs[i].Command); err == nil {
			reqs[i].Command = resolved
		}
	}
	return reqs
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
