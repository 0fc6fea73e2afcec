package ranges

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"fastslice/internal/services"
	"fastslice/internal/timecode"
)

var separatorPattern = regexp.MustCompile(`\s*->\s*`)

// TimeRange is one validated clip interval. Start < End always holds.
type TimeRange struct {
	Start     float64
	End       float64
	Label     string
	Title     string
	SafeTitle string

	// Precise requests frame-accurate re-encoding instead of stream copy.
	Precise bool
	// SubtitleOverride, when non-empty, replaces the sliced subtitles.
	SubtitleOverride string
}

// Duration returns End - Start in seconds.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// HasTitle reports whether the range carries a user title.
func (r TimeRange) HasTitle() bool {
	return r.SafeTitle != ""
}

// Parse converts "[title,]HH:MM:SS -> HH:MM:SS" into a TimeRange. The label
// keeps the text verbatim for diagnostics.
func Parse(text string) (TimeRange, error) {
	raw := strings.TrimSpace(text)
	var title string
	if head, rest, ok := strings.Cut(raw, ","); ok {
		title = strings.TrimSpace(head)
		if title == "" {
			return TimeRange{}, fmt.Errorf("%w: empty title in %q; expected title,HH:MM:SS -> HH:MM:SS", services.ErrFormat, text)
		}
		raw = rest
	}

	parts := separatorPattern.Split(raw, -1)
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("%w: range %q must be HH:MM:SS -> HH:MM:SS", services.ErrFormat, text)
	}
	return build(title, parts[0], parts[1], text)
}

// FromParts builds a TimeRange from separately submitted fields. The title
// is taken whole, commas included; a blank title means untitled.
func FromParts(title, start, end string) (TimeRange, error) {
	return build(strings.TrimSpace(title), start, end, Spec(title, start, end))
}

func build(title, startText, endText, label string) (TimeRange, error) {
	start, err := timecode.ParseClock(startText)
	if err != nil {
		return TimeRange{}, fmt.Errorf("range %q: %w", label, err)
	}
	end, err := timecode.ParseClock(endText)
	if err != nil {
		return TimeRange{}, fmt.Errorf("range %q: %w", label, err)
	}
	if start >= end {
		return TimeRange{}, fmt.Errorf("%w: range %q must satisfy start < end", services.ErrRange, label)
	}

	rng := TimeRange{Start: start, End: end, Label: label}
	if title != "" {
		safe, err := SanitizeTitle(title)
		if err != nil {
			return TimeRange{}, err
		}
		rng.Title = title
		rng.SafeTitle = safe
	}
	return rng, nil
}

// Spec renders the range text a front end would submit for the given parts.
func Spec(title, start, end string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Sprintf("%s -> %s", strings.TrimSpace(start), strings.TrimSpace(end))
	}
	return fmt.Sprintf("%s,%s -> %s", title, strings.TrimSpace(start), strings.TrimSpace(end))
}

// SanitizeTitle maps a raw title to a filename component. Letters, digits,
// underscore, hyphen, period, and space survive; everything else becomes an
// underscore. Spaces become underscores, runs of underscores collapse, and
// leading or trailing underscores and periods are trimmed.
func SanitizeTitle(raw string) (string, error) {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(raw) {
		if !allowedTitleRune(r) || r == ' ' {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "", fmt.Errorf("%w: title %q has no usable characters", services.ErrTitle, raw)
	}
	return cleaned, nil
}

func allowedTitleRune(r rune) bool {
	switch r {
	case '_', '-', '.', ' ':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// EnforceUniqueTitles fails on the first range whose sanitized title was
// already used earlier in the batch. Untitled ranges never collide.
func EnforceUniqueTitles(ranges []TimeRange) error {
	seen := make(map[string]string, len(ranges))
	for _, rng := range ranges {
		if rng.SafeTitle == "" {
			continue
		}
		if first, ok := seen[rng.SafeTitle]; ok {
			return fmt.Errorf("%w: title %q collides with %q (both become %q)", services.ErrDuplicateTitle, rng.Title, first, rng.SafeTitle)
		}
		seen[rng.SafeTitle] = rng.Title
	}
	return nil
}

// BaseName returns the output file stem for the range at 1-based position
// index: the sanitized title when present, otherwise clip_NNN, optionally
// suffixed with the file-safe start and end clocks.
func BaseName(rng TimeRange, index int, appendTime bool) string {
	if rng.SafeTitle != "" {
		return rng.SafeTitle
	}
	base := fmt.Sprintf("clip_%03d", index)
	if !appendTime {
		return base
	}
	start := timecode.FileSafeClock(clockText(rng.Start))
	end := timecode.FileSafeClock(clockText(rng.End))
	return fmt.Sprintf("%s__%s__%s", base, start, end)
}

func clockText(seconds float64) string {
	h, m, s, _ := timecode.Split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
