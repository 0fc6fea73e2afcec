package subtitles

// Slice returns the cues overlapping [start, end), clipped to the interval and
// shifted so that start becomes zero. Cues that only touch an edge are
// excluded. A cue is never split; input order is preserved.
func Slice(cues []Cue, start, end float64) []Cue {
	out := make([]Cue, 0)
	for _, cue := range cues {
		if cue.End <= start || cue.Start >= end {
			continue
		}
		clippedStart := max(cue.Start, start)
		clippedEnd := min(cue.End, end)
		out = append(out, cue.shifted(clippedStart-start, clippedEnd-start))
	}
	return out
}

// CueAt returns the first cue active at the given time, if any.
func CueAt(cues []Cue, at float64) (Cue, bool) {
	for _, cue := range cues {
		if cue.Start <= at && at <= cue.End {
			return cue, true
		}
	}
	return Cue{}, false
}
