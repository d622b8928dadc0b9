package config

const (
	defaultDataDir                = "~/.local/share/reprint"
	defaultLogDir                 = "~/.local/share/reprint/logs"
	defaultRegisterSubject        = "reprint.task.register"
	defaultVerifySubject          = "reprint.task.verify"
	defaultDurable                = "reprint-worker"
	defaultTaskStatusPrefix       = "reprint.status.task"
	defaultVideoStatusPrefix      = "reprint.status.video"
	defaultExtractFPS             = 1.0
	defaultChunkSeconds           = 60
	defaultEmbedderTimeoutSeconds = 120
	defaultEmbedderDimension      = 2048
	defaultImageThreshold         = 0.85
	defaultAudioThreshold         = 0.80
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Storage: Storage{
			Region:       "us-east-1",
			Bucket:       "videos",
			UsePathStyle: true,
		},
		Broker: Broker{
			RegisterSubject:   defaultRegisterSubject,
			VerifySubject:     defaultVerifySubject,
			Durable:           defaultDurable,
			TaskStatusPrefix:  defaultTaskStatusPrefix,
			VideoStatusPrefix: defaultVideoStatusPrefix,
		},
		Media: Media{
			ExtractFPS:   defaultExtractFPS,
			ChunkSeconds: defaultChunkSeconds,
		},
		Embedder: Embedder{
			TimeoutSeconds: defaultEmbedderTimeoutSeconds,
			Dimension:      defaultEmbedderDimension,
		},
		Thresholds: Thresholds{
			Image: defaultImageThreshold,
			Audio: defaultAudioThreshold,
		},
		Notifications: Notifications{
			TimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
