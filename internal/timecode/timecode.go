package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"fastslice/internal/services"
)

// Hours take two digits, or more without a leading zero, so each second count
// has one spelling and matches what the formatters emit.
var (
	clockPattern    = regexp.MustCompile(`^(\d{2}|[1-9]\d{2,}):(\d{2}):(\d{2})$`)
	subtitlePattern = regexp.MustCompile(`^(\d{2}|[1-9]\d{2,}):(\d{2}):(\d{2}),(\d{3})$`)
)

// ParseClock converts HH:MM:SS into seconds. Minutes and seconds must be below 60.
func ParseClock(text string) (float64, error) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM:SS", services.ErrFormat, text)
	}
	h, m, s := atoi(match[1]), atoi(match[2]), atoi(match[3])
	if m >= 60 || s >= 60 {
		return 0, fmt.Errorf("%w: time %q: minutes and seconds must be 00-59", services.ErrFormat, text)
	}
	return float64(h*3600 + m*60 + s), nil
}

// ParseSubtitle converts HH:MM:SS,mmm into seconds.
func ParseSubtitle(text string) (float64, error) {
	match := subtitlePattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, fmt.Errorf("%w: subtitle time %q must be HH:MM:SS,mmm", services.ErrFormat, text)
	}
	h, m, s, ms := atoi(match[1]), atoi(match[2]), atoi(match[3]), atoi(match[4])
	if m >= 60 || s >= 60 || ms >= 1000 {
		return 0, fmt.Errorf("%w: subtitle time %q out of range", services.ErrFormat, text)
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000, nil
}

// Subtitle formats seconds as HH:MM:SS,mmm.
func Subtitle(seconds float64) string {
	h, m, s, ms := Split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Tool formats seconds as HH:MM:SS.mmm for ffmpeg -ss/-to/-t arguments.
func Tool(seconds float64) string {
	h, m, s, ms := Split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// Split rounds seconds to the nearest millisecond and decomposes the result.
// Negative input clamps to zero.
func Split(seconds float64) (hours, minutes, secs, millis int) {
	totalMS := int64(math.Round(seconds * 1000))
	if totalMS < 0 {
		totalMS = 0
	}
	millis = int(totalMS % 1000)
	totalSeconds := totalMS / 1000
	secs = int(totalSeconds % 60)
	totalMinutes := totalSeconds / 60
	minutes = int(totalMinutes % 60)
	hours = int(totalMinutes / 60)
	return hours, minutes, secs, millis
}

// FileSafeClock rewrites a clock label for use inside a filename (00:01:10 -> 00-01-10).
func FileSafeClock(text string) string {
	r := strings.NewReplacer(":", "-", ".", "-")
	return r.Replace(strings.TrimSpace(text))
}

func atoi(value string) int {
	n, _ := strconv.Atoi(value)
	return n
}
