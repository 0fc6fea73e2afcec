// Package manifest reads and writes YAML batch files: one source video, its
// subtitles, and the ranges to cut from it.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fastslice/internal/fileutil"
	"fastslice/internal/ranges"
	"fastslice/internal/services"
)

// Entry is one range in a batch. Spec takes precedence over Title/Start/End.
type Entry struct {
	Spec     string `yaml:"spec,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Start    string `yaml:"start,omitempty"`
	End      string `yaml:"end,omitempty"`
	Precise  *bool  `yaml:"precise,omitempty"`
	Subtitle string `yaml:"subtitle,omitempty"`
}

// Manifest describes a batch.
type Manifest struct {
	Video         string  `yaml:"video"`
	Subtitles     string  `yaml:"subtitles"`
	OutputDir     string  `yaml:"output_dir,omitempty"`
	Precise       *bool   `yaml:"precise,omitempty"`
	CheckDuration *bool   `yaml:"check_duration,omitempty"`
	Ranges        []Entry `yaml:"ranges"`
}

// Load reads a manifest from path. Relative media paths resolve against the
// manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest %s: %v", services.ErrFile, path, err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Decode parses manifest YAML without resolving paths.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", services.ErrFormat, err)
	}
	if strings.TrimSpace(m.Video) == "" {
		return nil, fmt.Errorf("%w: manifest is missing video", services.ErrFormat)
	}
	if strings.TrimSpace(m.Subtitles) == "" {
		return nil, fmt.Errorf("%w: manifest is missing subtitles", services.ErrFormat)
	}
	if len(m.Ranges) == 0 {
		return nil, fmt.Errorf("%w: manifest lists no ranges", services.ErrFormat)
	}
	return &m, nil
}

func (m *Manifest) resolve(base string) {
	for _, p := range []*string{&m.Video, &m.Subtitles, &m.OutputDir} {
		value := strings.TrimSpace(*p)
		if value != "" && !filepath.IsAbs(value) {
			value = filepath.Join(base, value)
		}
		*p = value
	}
}

// TimeRange parses e. A spec line wins over the separate fields.
func (e Entry) TimeRange() (ranges.TimeRange, error) {
	if spec := strings.TrimSpace(e.Spec); spec != "" {
		return ranges.Parse(spec)
	}
	return ranges.FromParts(e.Title, e.Start, e.End)
}

// TimeRanges parses every entry. Per-entry precise flags override the
// manifest default; an unset default means stream copy.
func (m *Manifest) TimeRanges() ([]ranges.TimeRange, error) {
	out := make([]ranges.TimeRange, 0, len(m.Ranges))
	var errs []error
	for i, entry := range m.Ranges {
		rng, err := entry.TimeRange()
		if err != nil {
			errs = append(errs, fmt.Errorf("range %d: %w", i+1, err))
			continue
		}
		rng.Precise = m.Precise != nil && *m.Precise
		if entry.Precise != nil {
			rng.Precise = *entry.Precise
		}
		rng.SubtitleOverride = entry.Subtitle
		out = append(out, rng)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// FromSpecs builds a manifest from raw range specifications.
func FromSpecs(video, subtitles string, specs []string, precise bool) *Manifest {
	m := &Manifest{Video: video, Subtitles: subtitles, Precise: &precise}
	for _, spec := range specs {
		m.Ranges = append(m.Ranges, Entry{Spec: strings.TrimSpace(spec)})
	}
	return m
}

// Marshal encodes m as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// Save writes m to path atomically.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
