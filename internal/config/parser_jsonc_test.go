package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"indicator":{"cue_player_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid indicator.cue_player_cmd")
}

func TestParseJSONCAppliesSections(t *testing.T) {
	cfg, warnings, err := parseJSONC(`{
  // query capture
  "capture": {"max_duration_ms": 8000, "echo_cancellation": false},
  "vad": {"silence_threshold": 12.5, "silence_duration_ms": 1200},
  "transcription": {"engine": " LOCAL "},
  "local": {"endpoint": "127.0.0.1:6000"},
  "catalog": {
    "api_base_url": " http://localhost:3000/api ",
    "ai_search_url": "https://hooks.example.com/search",
    "http2": false,
  },
  "output": {"clipboard": true},
  "history": {"enable": false, "path": "/tmp/h.db"},
  "debug": {"audio_dump": true, "log_level": "DEBUG"},
}`, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 8000, cfg.Capture.MaxDurationMS)
	require.False(t, cfg.Capture.EchoCancellation)
	require.True(t, cfg.Capture.NoiseSuppression)
	require.Equal(t, 12.5, cfg.VAD.SilenceThreshold)
	require.Equal(t, 1200, cfg.VAD.SilenceDurationMS)
	require.Equal(t, EngineLocal, cfg.Transcription.Engine)
	require.Equal(t, "127.0.0.1:6000", cfg.Local.Endpoint)
	require.Equal(t, "http://localhost:3000/api", cfg.Catalog.APIBaseURL)
	require.Equal(t, "https://hooks.example.com/search", cfg.Catalog.AISearchURL)
	require.False(t, cfg.Catalog.EnableHTTP2)
	require.True(t, cfg.Output.Clipboard)
	require.False(t, cfg.History.Enable)
	require.Equal(t, "/tmp/h.db", cfg.History.Path)
	require.True(t, cfg.Debug.EnableAudioDump)
	require.Equal(t, "debug", cfg.Debug.LogLevel)
}

func TestParseJSONCWarnsOnInlineAPIKey(t *testing.T) {
	cfg, warnings, err := parseJSONC(`{"assemblyai":{"api_key":"secret"}}`, Default())
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.AssemblyAI.APIKey)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "ASSEMBLYAI_API_KEY")
}

func TestParseJSONCTrimsIndicatorFields(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "indicator": {
    "app_name": "  voxsearch-dev  ",
    "sound_start_file": " /tmp/start.wav "
  }
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "voxsearch-dev", cfg.Indicator.AppName)
	require.Equal(t, "/tmp/start.wav", cfg.Indicator.SoundStartFile)
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := parseJSONC(`{"local":{"grpc":"127.0.0.1:50061"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"output":{"clipboard":false}}{"output":{"clipboard":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "local": {"endpoint": 123}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
	require.Contains(t, err.Error(), "column")
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("engine = local", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")

	cfg, _, err := Parse("   ", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
