package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"fastslice/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTools resolves ffmpeg and ffprobe through locator. Both are required.
func CheckTools(ctx context.Context, locator deps.Locator) []Result {
	var results []Result
	for _, status := range CheckSystemDeps(ctx, locator) {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = status.Command
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// CheckSystemDeps evaluates the media tool requirements for locator. Both the
// serve command and the status command use this list.
func CheckSystemDeps(_ context.Context, locator deps.Locator) []deps.Status {
	return deps.CheckBinaries(locator.Requirements())
}
