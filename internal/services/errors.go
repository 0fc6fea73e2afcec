package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormat           = errors.New("format error")
	ErrRange            = errors.New("range error")
	ErrTitle            = errors.New("title error")
	ErrDuplicateTitle   = errors.New("duplicate title")
	ErrSubtitleFormat   = errors.New("subtitle format error")
	ErrFile             = errors.New("file error")
	ErrToolMissing      = errors.New("tool missing")
	ErrToolExecution    = errors.New("tool execution error")
	ErrConflict         = errors.New("output conflict")
	ErrDurationExceeded = errors.New("duration exceeded")
	ErrCancelled        = errors.New("cancelled")
)

// ToolError records a non-zero exit of an external tool together with its
// captured diagnostic output.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("%s failed: %s", e.Tool, detail)
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolExecution}
	}
	return []error{ErrToolExecution, e.Err}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrToolExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsValidation reports whether err stems from user input rather than from
// running the external tools.
func IsValidation(err error) bool {
	for _, marker := range []error{ErrFormat, ErrRange, ErrTitle, ErrDuplicateTitle, ErrSubtitleFormat, ErrFile} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// ExitCode maps a pipeline error to the CLI exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return 130
	case IsValidation(err):
		return 2
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
