// Package config resolves, parses, validates, and defaults voxsearch configuration.
package config

// Config is the fully materialized runtime configuration used by voxsearch.
type Config struct {
	Audio         AudioConfig
	Capture       CaptureConfig
	VAD           VADConfig
	Transcription TranscriptionConfig
	AssemblyAI    AssemblyAIConfig
	Local         LocalEngineConfig
	Catalog       CatalogConfig
	Indicator     IndicatorConfig
	Output        OutputConfig
	History       HistoryConfig
	Debug         DebugConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// CaptureConfig controls recorder format and recording lifecycle timeouts.
type CaptureConfig struct {
	SampleRate         int
	FallbackSampleRate int
	MaxDurationMS      int
	FlushIntervalMS    int
	StopGraceMS        int
	EchoCancellation   bool
	NoiseSuppression   bool
	AutoGainControl    bool
}

// VADConfig controls silence detection during an active recording.
type VADConfig struct {
	Enable            bool
	SilenceThreshold  float64
	SilenceDurationMS int
	FFTSize           int
	FrameIntervalMS   int
}

// TranscriptionConfig selects the transcription strategy and shared guards.
type TranscriptionConfig struct {
	Engine        string
	MinAudioBytes int
}

// AssemblyAIConfig configures the external transcription service.
type AssemblyAIConfig struct {
	APIKey          string
	BaseURL         string
	LanguageCode    string
	SafetyTimeoutMS int
}

// LocalEngineConfig configures the local gRPC speech engine.
type LocalEngineConfig struct {
	Endpoint          string
	LanguageCode      string
	DialTimeoutMS     int
	SafetyTimeoutMS   int
	FallbackTimeoutMS int
}

// CatalogConfig points at the product REST API and AI search webhook.
type CatalogConfig struct {
	APIBaseURL  string
	AISearchURL string
	TimeoutMS   int
	EnableHTTP2 bool
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	AppName           string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundErrorFile    string
	CuePlayer         CommandConfig
}

// OutputConfig controls transcript side effects.
type OutputConfig struct {
	Clipboard bool
}

// HistoryConfig controls the local search history database.
type HistoryConfig struct {
	Enable bool
	Path   string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	LogLevel        string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
