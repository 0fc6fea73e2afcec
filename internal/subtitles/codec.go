package subtitles

import (
	"fmt"
	"regexp"
	"strings"

	"fastslice/internal/services"
	"fastslice/internal/timecode"
)

const byteOrderMark = "\ufeff"

var (
	blockSeparator = regexp.MustCompile(`\n{2,}`)
	timingPattern  = regexp.MustCompile(`^(.*?)\s*-->\s*(.*)$`)
	lineEndings    = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Parse splits an SRT document into cues in file order. Blocks with fewer than
// two lines are skipped; a malformed timing line fails the whole parse.
func Parse(text string) ([]Cue, error) {
	text = strings.TrimLeft(text, byteOrderMark)
	text = strings.TrimSpace(lineEndings.Replace(text))
	if text == "" {
		return nil, nil
	}

	blocks := blockSeparator.Split(text, -1)
	cues := make([]Cue, 0, len(blocks))
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		for i := range lines {
			lines[i] = strings.TrimLeft(lines[i], byteOrderMark)
		}
		if len(lines) < 2 {
			continue
		}
		timing, body := lines[0], lines[1:]
		if isIndexLine(lines[0]) {
			timing, body = lines[1], lines[2:]
		}
		start, end, err := parseTimingLine(timing)
		if err != nil {
			return nil, err
		}
		cues = append(cues, Cue{Start: start, End: end, Lines: append([]string(nil), body...)})
	}
	return cues, nil
}

// Format renders cues as an SRT document numbered 1..N with exactly one
// trailing newline.
func Format(cues []Cue) string {
	var b strings.Builder
	for idx, cue := range cues {
		fmt.Fprintf(&b, "%d\n", idx+1)
		fmt.Fprintf(&b, "%s --> %s\n", timecode.Subtitle(cue.Start), timecode.Subtitle(cue.End))
		for _, line := range cue.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func parseTimingLine(line string) (float64, float64, error) {
	match := timingPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return 0, 0, fmt.Errorf("%w: invalid timing line %q", services.ErrSubtitleFormat, line)
	}
	start, err := timecode.ParseSubtitle(match[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid start time in %q: %v", services.ErrSubtitleFormat, line, err)
	}
	end, err := timecode.ParseSubtitle(match[2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid end time in %q: %v", services.ErrSubtitleFormat, line, err)
	}
	return start, end, nil
}

func isIndexLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
