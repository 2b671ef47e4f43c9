package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Audio         *jsoncAudio         `json:"audio"`
	Capture       *jsoncCapture       `json:"capture"`
	VAD           *jsoncVAD           `json:"vad"`
	Transcription *jsoncTranscription `json:"transcription"`
	AssemblyAI    *jsoncAssemblyAI    `json:"assemblyai"`
	Local         *jsoncLocal         `json:"local"`
	Catalog       *jsoncCatalog       `json:"catalog"`
	Indicator     *jsoncIndicator     `json:"indicator"`
	Output        *jsoncOutput        `json:"output"`
	History       *jsoncHistory       `json:"history"`
	Debug         *jsoncDebug         `json:"debug"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncCapture struct {
	SampleRate         *int  `json:"sample_rate"`
	FallbackSampleRate *int  `json:"fallback_sample_rate"`
	MaxDurationMS      *int  `json:"max_duration_ms"`
	FlushIntervalMS    *int  `json:"flush_interval_ms"`
	StopGraceMS        *int  `json:"stop_grace_ms"`
	EchoCancellation   *bool `json:"echo_cancellation"`
	NoiseSuppression   *bool `json:"noise_suppression"`
	AutoGainControl    *bool `json:"auto_gain_control"`
}

type jsoncVAD struct {
	Enable            *bool    `json:"enable"`
	SilenceThreshold  *float64 `json:"silence_threshold"`
	SilenceDurationMS *int     `json:"silence_duration_ms"`
	FFTSize           *int     `json:"fft_size"`
	FrameIntervalMS   *int     `json:"frame_interval_ms"`
}

type jsoncTranscription struct {
	Engine        *string `json:"engine"`
	MinAudioBytes *int    `json:"min_audio_bytes"`
}

type jsoncAssemblyAI struct {
	APIKey          *string `json:"api_key"`
	BaseURL         *string `json:"base_url"`
	LanguageCode    *string `json:"language_code"`
	SafetyTimeoutMS *int    `json:"safety_timeout_ms"`
}

type jsoncLocal struct {
	Endpoint          *string `json:"endpoint"`
	LanguageCode      *string `json:"language_code"`
	DialTimeoutMS     *int    `json:"dial_timeout_ms"`
	SafetyTimeoutMS   *int    `json:"safety_timeout_ms"`
	FallbackTimeoutMS *int    `json:"fallback_timeout_ms"`
}

type jsoncCatalog struct {
	APIBaseURL  *string `json:"api_base_url"`
	AISearchURL *string `json:"ai_search_url"`
	TimeoutMS   *int    `json:"timeout_ms"`
	EnableHTTP2 *bool   `json:"http2"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	AppName           *string `json:"app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundErrorFile    *string `json:"sound_error_file"`
	CuePlayerCmd      *string `json:"cue_player_cmd"`
}

type jsoncOutput struct {
	Clipboard *bool `json:"clipboard"`
}

type jsoncHistory struct {
	Enable *bool   `json:"enable"`
	Path   *string `json:"path"`
}

type jsoncDebug struct {
	AudioDump *bool   `json:"audio_dump"`
	LogLevel  *string `json:"log_level"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if c := payload.Capture; c != nil {
		setInt(&cfg.Capture.SampleRate, c.SampleRate)
		setInt(&cfg.Capture.FallbackSampleRate, c.FallbackSampleRate)
		setInt(&cfg.Capture.MaxDurationMS, c.MaxDurationMS)
		setInt(&cfg.Capture.FlushIntervalMS, c.FlushIntervalMS)
		setInt(&cfg.Capture.StopGraceMS, c.StopGraceMS)
		setBool(&cfg.Capture.EchoCancellation, c.EchoCancellation)
		setBool(&cfg.Capture.NoiseSuppression, c.NoiseSuppression)
		setBool(&cfg.Capture.AutoGainControl, c.AutoGainControl)
	}

	if v := payload.VAD; v != nil {
		setBool(&cfg.VAD.Enable, v.Enable)
		if v.SilenceThreshold != nil {
			cfg.VAD.SilenceThreshold = *v.SilenceThreshold
		}
		setInt(&cfg.VAD.SilenceDurationMS, v.SilenceDurationMS)
		setInt(&cfg.VAD.FFTSize, v.FFTSize)
		setInt(&cfg.VAD.FrameIntervalMS, v.FrameIntervalMS)
	}

	if t := payload.Transcription; t != nil {
		if t.Engine != nil {
			cfg.Transcription.Engine = strings.ToLower(strings.TrimSpace(*t.Engine))
		}
		setInt(&cfg.Transcription.MinAudioBytes, t.MinAudioBytes)
	}

	if a := payload.AssemblyAI; a != nil {
		if a.APIKey != nil && strings.TrimSpace(*a.APIKey) != "" {
			warnings = append(warnings, Warning{Message: "assemblyai.api_key is stored in the config file; prefer ASSEMBLYAI_API_KEY in the environment or .env"})
		}
		setString(&cfg.AssemblyAI.APIKey, a.APIKey)
		setString(&cfg.AssemblyAI.BaseURL, a.BaseURL)
		setString(&cfg.AssemblyAI.LanguageCode, a.LanguageCode)
		setInt(&cfg.AssemblyAI.SafetyTimeoutMS, a.SafetyTimeoutMS)
	}

	if l := payload.Local; l != nil {
		setString(&cfg.Local.Endpoint, l.Endpoint)
		setString(&cfg.Local.LanguageCode, l.LanguageCode)
		setInt(&cfg.Local.DialTimeoutMS, l.DialTimeoutMS)
		setInt(&cfg.Local.SafetyTimeoutMS, l.SafetyTimeoutMS)
		setInt(&cfg.Local.FallbackTimeoutMS, l.FallbackTimeoutMS)
	}

	if c := payload.Catalog; c != nil {
		setString(&cfg.Catalog.APIBaseURL, c.APIBaseURL)
		setString(&cfg.Catalog.AISearchURL, c.AISearchURL)
		setInt(&cfg.Catalog.TimeoutMS, c.TimeoutMS)
		setBool(&cfg.Catalog.EnableHTTP2, c.EnableHTTP2)
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.AppName, i.AppName)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundErrorFile, i.SoundErrorFile)
		if i.CuePlayerCmd != nil {
			cmd, err := ParseCommand(*i.CuePlayerCmd)
			if err != nil {
				return nil, fmt.Errorf("invalid indicator.cue_player_cmd: %w", err)
			}
			cfg.Indicator.CuePlayer = cmd
		}
	}

	if o := payload.Output; o != nil {
		setBool(&cfg.Output.Clipboard, o.Clipboard)
	}

	if h := payload.History; h != nil {
		setBool(&cfg.History.Enable, h.Enable)
		setString(&cfg.History.Path, h.Path)
	}

	if d := payload.Debug; d != nil {
		setBool(&cfg.Debug.EnableAudioDump, d.AudioDump)
		if d.LogLevel != nil {
			cfg.Debug.LogLevel = strings.ToLower(strings.TrimSpace(*d.LogLevel))
		}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
