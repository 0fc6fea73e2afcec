package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fastslice/internal/logging"
	"fastslice/internal/services"
	"fastslice/internal/timecode"
)

// EncodeSettings holds the fixed precise-mode presets.
type EncodeSettings struct {
	SoftwareCodec   string
	SoftwarePreset  string
	SoftwareCRF     int
	ScaleHeight     int
	AudioCodec      string
	AudioBitrate    string
	AudioChannels   int
	HardwareBitrate string
}

// DefaultEncodeSettings returns libx264 ultrafast CRF 20 at 360p with stereo
// 96k AAC, and 8M for hardware encoders.
func DefaultEncodeSettings() EncodeSettings {
	return EncodeSettings{
		SoftwareCodec:   "libx264",
		SoftwarePreset:  "ultrafast",
		SoftwareCRF:     20,
		ScaleHeight:     360,
		AudioCodec:      "aac",
		AudioBitrate:    "96k",
		AudioChannels:   2,
		HardwareBitrate: "8M",
	}
}

// FastArgs builds the stream-copy invocation. The trim arguments precede -i.
func FastArgs(source, dest string, start, end float64) []string {
	return []string{
		"-y",
		"-ss", timecode.Tool(start),
		"-to", timecode.Tool(end),
		"-i", source,
		"-c", "copy",
		dest,
	}
}

// PreciseArgs builds the re-encode invocation. The seek precedes -i and the
// output is bounded by duration.
func PreciseArgs(source, dest string, start, end float64, settings EncodeSettings, encoder HWAccelConfig) []string {
	if encoder.VideoCodec == "" {
		encoder = SoftwareConfig(settings)
	}
	args := make([]string, 0, 32)
	args = append(args, "-y")
	args = append(args, encoder.HWAccelArgs...)
	args = append(args,
		"-ss", timecode.Tool(start),
		"-i", source,
		"-t", timecode.Tool(end-start),
		"-c:v", encoder.VideoCodec,
	)
	args = append(args, encoder.VideoOptions...)

	filter := "scale=-2:" + itoa(settings.ScaleHeight)
	if encoder.FilterSuffix != "" {
		filter += "," + encoder.FilterSuffix
	}
	args = append(args,
		"-vf", filter,
		"-c:a", settings.AudioCodec,
		"-ac", itoa(settings.AudioChannels),
		"-b:a", settings.AudioBitrate,
		"-movflags", "+faststart",
		dest,
	)
	return args
}

// Job describes one range extraction.
type Job struct {
	Source      string
	Destination string
	Start       float64
	End         float64
	Precise     bool
	// AllowOverwrite skips the existing-destination refusal. The caller is
	// responsible for removing stale output first.
	AllowOverwrite bool
}

// Extractor runs extraction jobs through a Runner.
type Extractor struct {
	Binary   string
	Runner   Runner
	Settings EncodeSettings
	// Encoder is the precise-mode variant; zero value means software.
	Encoder HWAccelConfig
	Verbose bool
	Logger  *slog.Logger
}

// Extract synthesizes and runs the command for job. An existing destination is
// an ErrConflict unless AllowOverwrite is set; a non-zero exit surfaces as a
// *services.ToolError carrying ffmpeg's stderr.
func (e *Extractor) Extract(ctx context.Context, job Job) error {
	if !job.AllowOverwrite {
		if _, err := os.Stat(job.Destination); err == nil {
			return services.Wrap(services.ErrConflict, "extract", "check destination", fmt.Sprintf("output already exists, refusing to overwrite: %s", job.Destination), nil)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: stat %s: %v", services.ErrFile, job.Destination, err)
		}
	}

	var args []string
	mode := "fast"
	if job.Precise {
		mode = "precise"
		args = PreciseArgs(job.Source, job.Destination, job.Start, job.End, e.Settings, e.Encoder)
	} else {
		args = FastArgs(job.Source, job.Destination, job.Start, job.End)
	}

	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "ffmpeg"))
	level := slog.LevelDebug
	if e.Verbose {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "running ffmpeg",
		logging.String("mode", mode),
		logging.String("command", e.Binary+" "+strings.Join(args, " ")),
	)

	if _, err := e.Runner.Run(ctx, e.Binary, args); err != nil {
		return fmt.Errorf("extract %s: %w", job.Destination, err)
	}
	return nil
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
