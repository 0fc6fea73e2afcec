package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeSlice()
	c.normalizeEncode()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PreviewDir) == "" {
		c.Paths.PreviewDir = defaultPreviewDir()
	}
	if c.Paths.PreviewDir, err = expandPath(strings.TrimSpace(c.Paths.PreviewDir)); err != nil {
		return fmt.Errorf("paths.preview_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		if value, ok := os.LookupEnv("FVS_FFMPEG"); ok {
			c.Tools.FFmpeg = strings.TrimSpace(value)
		}
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		if value, ok := os.LookupEnv("FVS_FFPROBE"); ok {
			c.Tools.FFprobe = strings.TrimSpace(value)
		}
	}
	dirs := make([]string, 0, len(c.Tools.BinDirs))
	for _, dir := range c.Tools.BinDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("tools.bin_dirs: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.Tools.BinDirs = dirs
	return nil
}

func (c *Config) normalizeSlice() {
	c.Slice.VideoExtension = normalizeExtension(c.Slice.VideoExtension)
	if c.Slice.VideoExtension == "" {
		c.Slice.VideoExtension = defaultVideoExtension
	}
	exts := make([]string, 0, len(c.Slice.AllowedVideoExtensions))
	seen := make(map[string]struct{}, len(c.Slice.AllowedVideoExtensions))
	for _, ext := range c.Slice.AllowedVideoExtensions {
		normalized := normalizeExtension(ext)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Slice.AllowedVideoExtensions = exts
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (c *Config) normalizeEncode() {
	c.Encode.SoftwareCodec = strings.TrimSpace(c.Encode.SoftwareCodec)
	if c.Encode.SoftwareCodec == "" {
		c.Encode.SoftwareCodec = defaultSoftwareCodec
	}
	c.Encode.SoftwarePreset = strings.TrimSpace(c.Encode.SoftwarePreset)
	if c.Encode.SoftwarePreset == "" {
		c.Encode.SoftwarePreset = defaultSoftwarePreset
	}
	c.Encode.AudioCodec = strings.TrimSpace(c.Encode.AudioCodec)
	if c.Encode.AudioCodec == "" {
		c.Encode.AudioCodec = defaultAudioCodec
	}
	c.Encode.AudioBitrate = strings.TrimSpace(c.Encode.AudioBitrate)
	if c.Encode.AudioBitrate == "" {
		c.Encode.AudioBitrate = defaultAudioBitrate
	}
	c.Encode.HardwareBitrate = strings.TrimSpace(c.Encode.HardwareBitrate)
	if c.Encode.HardwareBitrate == "" {
		c.Encode.HardwareBitrate = defaultHardwareBitrate
	}
	if c.Encode.ScaleHeight == 0 {
		c.Encode.ScaleHeight = defaultScaleHeight
	}
	if c.Encode.AudioChannels == 0 {
		c.Encode.AudioChannels = defaultAudioChannels
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("FASTSLICE_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
