package config

const (
	defaultReviewsDir    = "~/.local/share/reviewhub/reviews"
	defaultDataDir       = "~/.local/share/reviewhub"
	defaultLogDir        = "~/.local/share/reviewhub/logs"
	defaultPortMin       = 3737
	defaultPortMax       = 3787
	defaultLockPath      = "~/.local/share/reviewhub/server.lock"
	defaultGapMs         = 300
	defaultFFmpegBinary  = "ffmpeg"
	defaultBitrate       = "96k"
	defaultPythonBinary  = "python3"
	defaultDiskFloorGiB  = 12
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultNotifyTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ReviewsDir: defaultReviewsDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			PortMin:  defaultPortMin,
			PortMax:  defaultPortMax,
			LockPath: defaultLockPath,
		},
		Audio: Audio{
			GapMs:        defaultGapMs,
			FFmpegBinary: defaultFFmpegBinary,
			Bitrate:      defaultBitrate,
			PythonBinary: defaultPythonBinary,
			DiskFloorGiB: defaultDiskFloorGiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Errors:         true,
			Review:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
