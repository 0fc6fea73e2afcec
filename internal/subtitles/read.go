package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"fastslice/internal/fileutil"
	"fastslice/internal/services"
)

// Extension is the only subtitle dialect accepted and produced.
const Extension = ".srt"

// Decode validates data as UTF-8 and strips a leading byte-order mark.
func Decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: subtitle is not UTF-8; convert it before slicing", services.ErrFile)
	}
	decoded, _, err := transform.Bytes(xunicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("%w: decode subtitle: %v", services.ErrFile, err)
	}
	return string(decoded), nil
}

// ReadFile loads and parses an SRT file.
func ReadFile(path string) ([]Cue, error) {
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		return nil, fmt.Errorf("%w: unsupported subtitle format %q (only %s)", services.ErrFile, filepath.Ext(path), Extension)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read subtitle %s: %v", services.ErrFile, path, err)
	}
	text, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cues, err := Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cues, nil
}

// WriteFile renders cues and writes them atomically to path.
func WriteFile(path string, cues []Cue) error {
	return WriteText(path, Format(cues))
}

// WriteText writes caller-supplied SRT text (for example a hand-edited
// override), normalized to a single trailing newline.
func WriteText(path string, text string) error {
	text = strings.TrimSpace(text) + "\n"
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write subtitle %s: %w", path, err)
	}
	return nil
}
