package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Capture.SampleRate <= 0 {
		return nil, fmt.Errorf("capture.sample_rate must be > 0")
	}
	if cfg.Capture.FallbackSampleRate <= 0 {
		return nil, fmt.Errorf("capture.fallback_sample_rate must be > 0")
	}
	if cfg.Capture.MaxDurationMS <= 0 {
		return nil, fmt.Errorf("capture.max_duration_ms must be > 0")
	}
	if cfg.Capture.FlushIntervalMS <= 0 {
		return nil, fmt.Errorf("capture.flush_interval_ms must be > 0")
	}
	if cfg.Capture.StopGraceMS < 0 {
		return nil, fmt.Errorf("capture.stop_grace_ms must be >= 0")
	}

	if cfg.VAD.SilenceThreshold < 0 || cfg.VAD.SilenceThreshold > 255 {
		return nil, fmt.Errorf("vad.silence_threshold must be within 0..255")
	}
	if cfg.VAD.SilenceDurationMS <= 0 {
		return nil, fmt.Errorf("vad.silence_duration_ms must be > 0")
	}
	if cfg.VAD.FFTSize < 32 || cfg.VAD.FFTSize&(cfg.VAD.FFTSize-1) != 0 {
		return nil, fmt.Errorf("vad.fft_size must be a power of two >= 32")
	}
	if cfg.VAD.FrameIntervalMS <= 0 {
		return nil, fmt.Errorf("vad.frame_interval_ms must be > 0")
	}
	if cfg.VAD.Enable && cfg.VAD.SilenceDurationMS >= cfg.Capture.MaxDurationMS {
		warnings = append(warnings, Warning{Message: "vad.silence_duration_ms >= capture.max_duration_ms; silence auto-stop will never fire"})
	}

	engine := strings.ToLower(strings.TrimSpace(cfg.Transcription.Engine))
	if engine != EngineAssemblyAI && engine != EngineLocal {
		return nil, fmt.Errorf("transcription.engine must be one of: %s, %s", EngineAssemblyAI, EngineLocal)
	}
	if cfg.Transcription.MinAudioBytes < 0 {
		return nil, fmt.Errorf("transcription.min_audio_bytes must be >= 0")
	}

	if strings.TrimSpace(cfg.AssemblyAI.LanguageCode) == "" {
		return nil, fmt.Errorf("assemblyai.language_code must not be empty")
	}
	if cfg.AssemblyAI.SafetyTimeoutMS <= 0 {
		return nil, fmt.Errorf("assemblyai.safety_timeout_ms must be > 0")
	}
	if base := strings.TrimSpace(cfg.AssemblyAI.BaseURL); base != "" {
		if err := validateHTTPURL(base); err != nil {
			return nil, fmt.Errorf("assemblyai.base_url: %w", err)
		}
	}

	if strings.TrimSpace(cfg.Local.Endpoint) == "" {
		return nil, fmt.Errorf("local.endpoint must not be empty")
	}
	if strings.TrimSpace(cfg.Local.LanguageCode) == "" {
		return nil, fmt.Errorf("local.language_code must not be empty")
	}
	if cfg.Local.SafetyTimeoutMS <= 0 {
		return nil, fmt.Errorf("local.safety_timeout_ms must be > 0")
	}
	if cfg.Local.FallbackTimeoutMS <= 0 {
		return nil, fmt.Errorf("local.fallback_timeout_ms must be > 0")
	}
	if cfg.Local.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("local.dial_timeout_ms must be > 0")
	}

	if base := strings.TrimSpace(cfg.Catalog.APIBaseURL); base != "" {
		if err := validateHTTPURL(base); err != nil {
			return nil, fmt.Errorf("catalog.api_base_url: %w", err)
		}
	}
	if search := strings.TrimSpace(cfg.Catalog.AISearchURL); search != "" {
		if err := validateHTTPURL(search); err != nil {
			return nil, fmt.Errorf("catalog.ai_search_url: %w", err)
		}
	}
	if cfg.Catalog.TimeoutMS <= 0 {
		return nil, fmt.Errorf("catalog.timeout_ms must be > 0")
	}

	if cfg.Indicator.SoundEnable && strings.TrimSpace(cfg.Indicator.CuePlayer.Raw) != "" && cfg.Indicator.CuePlayer.Empty() {
		return nil, fmt.Errorf("indicator.cue_player_cmd is configured but empty")
	}
	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.AppName) == "" {
		return nil, fmt.Errorf("indicator.app_name must not be empty when indicator.enable=true")
	}

	switch cfg.Debug.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("debug.log_level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
