package config

const (
	EngineAssemblyAI = "assemblyai"
	EngineLocal      = "local"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Capture: CaptureConfig{
			SampleRate:         48000,
			FallbackSampleRate: 16000,
			MaxDurationMS:      10000,
			FlushIntervalMS:    100,
			StopGraceMS:        50,
			EchoCancellation:   true,
			NoiseSuppression:   true,
			AutoGainControl:    true,
		},
		VAD: VADConfig{
			Enable:            true,
			SilenceThreshold:  15,
			SilenceDurationMS: 1500,
			FFTSize:           256,
			FrameIntervalMS:   16,
		},
		Transcription: TranscriptionConfig{
			Engine:        EngineAssemblyAI,
			MinAudioBytes: 1024,
		},
		AssemblyAI: AssemblyAIConfig{
			LanguageCode:    "pt",
			SafetyTimeoutMS: 30000,
		},
		Local: LocalEngineConfig{
			Endpoint:          "127.0.0.1:50061",
			LanguageCode:      "pt-BR",
			DialTimeoutMS:     3000,
			SafetyTimeoutMS:   10000,
			FallbackTimeoutMS: 7000,
		},
		Catalog: CatalogConfig{
			TimeoutMS:   15000,
			EnableHTTP2: true,
		},
		Indicator: IndicatorConfig{
			Enable:      true,
			AppName:     "voxsearch",
			SoundEnable: true,
			CuePlayer:   mustParseCommand("pw-play --media-role Notification {file}"),
		},
		Output: OutputConfig{Clipboard: false},
		History: HistoryConfig{
			Enable: true,
		},
		Debug: DebugConfig{LogLevel: "info"},
	}
}
