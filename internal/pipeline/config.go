package pipeline

import (
	"log/slog"

	"fastslice/internal/config"
	"fastslice/internal/deps"
	"fastslice/internal/ffmpeg"
)

// EncodeSettings converts the [encode] section.
func EncodeSettings(cfg *config.Config) ffmpeg.EncodeSettings {
	e := cfg.Encode
	return ffmpeg.EncodeSettings{
		SoftwareCodec:   e.SoftwareCodec,
		SoftwarePreset:  e.SoftwarePreset,
		SoftwareCRF:     e.SoftwareCRF,
		ScaleHeight:     e.ScaleHeight,
		AudioCodec:      e.AudioCodec,
		AudioBitrate:    e.AudioBitrate,
		AudioChannels:   e.AudioChannels,
		HardwareBitrate: e.HardwareBitrate,
	}
}

// NewFromConfig builds a pipeline for resolved tools. history may be nil.
func NewFromConfig(cfg *config.Config, tools deps.Tools, runner ffmpeg.Runner, history Recorder, logger *slog.Logger) *Pipeline {
	if runner == nil {
		runner = ffmpeg.NewExecRunner()
	}
	settings := EncodeSettings(cfg)
	return New(Options{
		Tools:          tools,
		Runner:         runner,
		Settings:       settings,
		Prober:         ffmpeg.NewProber(tools.FFmpeg, runner, settings, logger),
		VideoExtension: cfg.Slice.VideoExtension,
		AllowedVideo:   cfg.IsAllowedVideo,
		PreviewDir:     cfg.Paths.PreviewDir,
		History:        history,
		Logger:         logger,
		Verbose:        cfg.Logging.Verbose,
	})
}

// RequestDefaults fills the batch switches of req from cfg.
func RequestDefaults(cfg *config.Config, req Request) Request {
	if req.OutputDir == "" {
		req.OutputDir = cfg.Paths.OutputDir
	}
	req.CheckDuration = cfg.Slice.CheckDuration
	req.AppendTime = cfg.Slice.AppendTimeToFilename
	req.UseHWAccel = cfg.Slice.UseHWAccel
	req.Overwrite = cfg.Slice.Overwrite
	return req
}
