package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSlice(); err != nil {
		return err
	}
	if err := c.validateEncode(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSlice() error {
	if c.Slice.VideoExtension == ".srt" {
		return errors.New("slice.video_extension must differ from the subtitle extension .srt")
	}
	return nil
}

func (c *Config) validateEncode() error {
	if c.Encode.SoftwareCRF < 0 || c.Encode.SoftwareCRF > 51 {
		return fmt.Errorf("encode.software_crf must be between 0 and 51 (got %d)", c.Encode.SoftwareCRF)
	}
	if c.Encode.ScaleHeight < 0 {
		return errors.New("encode.scale_height must be positive")
	}
	if c.Encode.AudioChannels < 0 {
		return errors.New("encode.audio_channels must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q: %w", c.API.Bind, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
