package subtitles

import (
	"slices"
	"strings"
)

// Cue is one subtitle entry. Times are seconds with millisecond resolution.
type Cue struct {
	Start float64
	End   float64
	Lines []string
}

// Text joins the cue body with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

func (c Cue) shifted(start, end float64) Cue {
	return Cue{Start: start, End: end, Lines: slices.Clone(c.Lines)}
}
