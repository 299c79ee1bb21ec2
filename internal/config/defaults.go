package config

const (
	defaultMediaDir          = "~/.local/share/alchemy/media"
	defaultLogDir            = "~/.local/share/alchemy/logs"
	defaultStatePath         = "~/.local/share/alchemy/studio_state.json"
	defaultAPIBind           = "127.0.0.1:7417"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiVisionModel = "gemini-2.5-flash"
	defaultGeminiImageModel  = "imagen-4.0-generate-001"
	defaultGeminiVideoModel  = "veo-3.0-generate-001"
	defaultGeminiTimeout     = 60
	defaultQlooBaseURL       = "https://hackathon.api.qloo.com"
	defaultQlooTimeout       = 30
	defaultQlooCacheTTL      = 60
	defaultPollMaxAttempts   = 36
	defaultPollInitialMS     = 2000
	defaultPollStepMS        = 1000
	defaultPollCapMS         = 8000
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir:  defaultMediaDir,
			LogDir:    defaultLogDir,
			StatePath: defaultStatePath,
			APIBind:   defaultAPIBind,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			VisionModel:    defaultGeminiVisionModel,
			ImageModel:     defaultGeminiImageModel,
			VideoModel:     defaultGeminiVideoModel,
			TimeoutSeconds: defaultGeminiTimeout,
		},
		Qloo: Qloo{
			BaseURL:         defaultQlooBaseURL,
			TimeoutSeconds:  defaultQlooTimeout,
			CacheTTLMinutes: defaultQlooCacheTTL,
		},
		Campaign: Campaign{
			PollMaxAttempts: defaultPollMaxAttempts,
			PollInitialMS:   defaultPollInitialMS,
			PollStepMS:      defaultPollStepMS,
			PollCapMS:       defaultPollCapMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
