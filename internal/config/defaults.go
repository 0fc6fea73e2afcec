package config

const (
	defaultConfigPath      = "~/.config/fastslice/config.toml"
	defaultOutputDir       = "clips"
	defaultLogDir          = "~/.local/share/fastslice/logs"
	defaultStateDir        = "~/.local/share/fastslice"
	defaultVideoExtension  = ".mp4"
	defaultSoftwareCodec   = "libx264"
	defaultSoftwarePreset  = "ultrafast"
	defaultSoftwareCRF     = 20
	defaultScaleHeight     = 360
	defaultAudioCodec      = "aac"
	defaultAudioBitrate    = "96k"
	defaultAudioChannels   = 2
	defaultHardwareBitrate = "8M"
	defaultAPIBind         = "127.0.0.1:7488"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

var defaultAllowedVideoExtensions = []string{".mp4", ".mov", ".mkv", ".m4v", ".avi", ".webm", ".ts"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
			PreviewDir: defaultPreviewDir(),
		},
		Slice: Slice{
			CheckDuration:          true,
			UseHWAccel:             true,
			VideoExtension:         defaultVideoExtension,
			AllowedVideoExtensions: append([]string(nil), defaultAllowedVideoExtensions...),
		},
		Encode: Encode{
			SoftwareCodec:   defaultSoftwareCodec,
			SoftwarePreset:  defaultSoftwarePreset,
			SoftwareCRF:     defaultSoftwareCRF,
			ScaleHeight:     defaultScaleHeight,
			AudioCodec:      defaultAudioCodec,
			AudioBitrate:    defaultAudioBitrate,
			AudioChannels:   defaultAudioChannels,
			HardwareBitrate: defaultHardwareBitrate,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
