package ffmpeg

import (
	"bufio"
	"context"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"fastslice/internal/logging"
)

// Kind tags an encoder variant.
type Kind string

const (
	KindSoftware     Kind = "software"
	KindVideoToolbox Kind = "videotoolbox"
	KindNVENC        Kind = "nvenc"
	KindQSV          Kind = "qsv"
	KindVAAPI        Kind = "vaapi"
	KindAMF          Kind = "amf"
)

// HWAccelConfig describes the video encoder used by precise mode. It is
// immutable once returned by the prober.
type HWAccelConfig struct {
	Kind         Kind
	Name         string
	VideoCodec   string
	VideoOptions []string
	// HWAccelArgs precede -ss and -i.
	HWAccelArgs []string
	// FilterSuffix is appended to the scale filter, for encoders that need
	// frames uploaded to device memory.
	FilterSuffix string
}

// IsHardware reports whether the config names an accelerated encoder.
func (c HWAccelConfig) IsHardware() bool {
	return c.Kind != "" && c.Kind != KindSoftware
}

// SoftwareConfig returns the software encoder variant for the given presets.
func SoftwareConfig(settings EncodeSettings) HWAccelConfig {
	return HWAccelConfig{
		Kind:         KindSoftware,
		Name:         "software (" + settings.SoftwareCodec + ")",
		VideoCodec:   settings.SoftwareCodec,
		VideoOptions: []string{"-preset", settings.SoftwarePreset, "-crf", itoa(settings.SoftwareCRF)},
	}
}

// hardwareCandidates lists accelerated variants in preference order for goos.
func hardwareCandidates(goos, bitrate string) []HWAccelConfig {
	videotoolbox := HWAccelConfig{
		Kind:         KindVideoToolbox,
		Name:         "VideoToolbox",
		VideoCodec:   "h264_videotoolbox",
		VideoOptions: []string{"-b:v", bitrate, "-pix_fmt", "yuv420p"},
		HWAccelArgs:  []string{"-hwaccel", "videotoolbox"},
	}
	nvenc := HWAccelConfig{
		Kind:         KindNVENC,
		Name:         "NVIDIA NVENC",
		VideoCodec:   "h264_nvenc",
		VideoOptions: []string{"-preset", "p1", "-b:v", bitrate, "-pix_fmt", "yuv420p"},
		HWAccelArgs:  []string{"-hwaccel", "cuda"},
	}
	qsv := HWAccelConfig{
		Kind:         KindQSV,
		Name:         "Intel Quick Sync",
		VideoCodec:   "h264_qsv",
		VideoOptions: []string{"-preset", "veryfast", "-b:v", bitrate},
		HWAccelArgs:  []string{"-hwaccel", "qsv"},
	}
	vaapi := HWAccelConfig{
		Kind:         KindVAAPI,
		Name:         "VA-API",
		VideoCodec:   "h264_vaapi",
		VideoOptions: []string{"-b:v", bitrate},
		HWAccelArgs:  []string{"-vaapi_device", "/dev/dri/renderD128"},
		FilterSuffix: "format=nv12,hwupload",
	}
	amf := HWAccelConfig{
		Kind:         KindAMF,
		Name:         "AMD AMF",
		VideoCodec:   "h264_amf",
		VideoOptions: []string{"-quality", "speed", "-b:v", bitrate},
	}

	switch goos {
	case "darwin":
		return []HWAccelConfig{videotoolbox}
	case "windows":
		return []HWAccelConfig{nvenc, qsv, amf}
	default:
		return []HWAccelConfig{nvenc, qsv, vaapi}
	}
}

// ParseEncoders extracts video encoder names from `ffmpeg -encoders` output.
func ParseEncoders(output string) []string {
	var names []string
	pastHeader := false
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "---") {
			pastHeader = true
			continue
		}
		if !pastHeader {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "V") {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}

// SelectAccelerator returns the first hardware variant for goos whose encoder
// appears in encoders.
func SelectAccelerator(encoders []string, goos, bitrate string) (HWAccelConfig, bool) {
	for _, candidate := range hardwareCandidates(goos, bitrate) {
		if slices.Contains(encoders, candidate.VideoCodec) {
			return candidate, true
		}
	}
	return HWAccelConfig{}, false
}

// Prober inspects ffmpeg's encoder list and memoizes the outcome. Probing
// never fails: any problem falls back to the software variant. A probe cut
// short by its caller's context is not memoized.
type Prober struct {
	binary   string
	runner   Runner
	settings EncodeSettings
	goos     string
	logger   *slog.Logger

	mu     sync.Mutex
	probed bool
	result HWAccelConfig
}

// NewProber builds a prober for the given ffmpeg binary.
func NewProber(binary string, runner Runner, settings EncodeSettings, logger *slog.Logger) *Prober {
	return &Prober{
		binary:   binary,
		runner:   runner,
		settings: settings,
		goos:     runtime.GOOS,
		logger:   logging.NewComponentLogger(logger, "hwaccel"),
	}
}

// Probe returns the best available encoder variant. The first completed probe
// is cached; later calls return it without running ffmpeg.
func (p *Prober) Probe(ctx context.Context) HWAccelConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.probed {
		return p.result
	}
	result := p.probe(ctx)
	if ctx.Err() != nil {
		return result
	}
	p.result, p.probed = result, true
	return result
}

func (p *Prober) probe(ctx context.Context) HWAccelConfig {
	software := SoftwareConfig(p.settings)
	if p.runner == nil || strings.TrimSpace(p.binary) == "" {
		return software
	}
	res, err := p.runner.Run(ctx, p.binary, []string{"-hide_banner", "-encoders"})
	if err != nil {
		p.logger.Warn("encoder probe failed; using software encoder",
			logging.Error(err),
			logging.String(logging.FieldEventType, "hwaccel_probe_failed"),
			logging.String(logging.FieldErrorHint, "check that ffmpeg runs"),
		)
		return software
	}
	accel, ok := SelectAccelerator(ParseEncoders(res.Stdout), p.goos, p.settings.HardwareBitrate)
	if !ok {
		p.logger.Info("no hardware encoder available; using software encoder", logging.String("encoder", software.VideoCodec))
		return software
	}
	p.logger.Info("hardware encoder selected", logging.String("encoder", accel.VideoCodec), logging.String("name", accel.Name))
	return accel
}
