// Package assembly transcribes audio through the AssemblyAI service.
package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	assemblyai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/rbright/voxsearch/internal/transcribe"
)

const name = "assemblyai"

// Config carries the credential and request options for one strategy.
type Config struct {
	APIKey        string
	BaseURL       string
	LanguageCode  string
	SafetyTimeout time.Duration
	HTTPClient    *http.Client
}

// transcriber is the slice of the SDK used here.
type transcriber interface {
	TranscribeFromReader(ctx context.Context, reader io.Reader, params *assemblyai.TranscriptOptionalParams) (assemblyai.Transcript, error)
}

// Strategy uploads one blob per attempt and waits for the finished transcript.
type Strategy struct {
	cfg    Config
	api    transcriber
	logger *slog.Logger
}

// New builds a Strategy. A missing key is reported by Available, not here.
func New(cfg Config, logger *slog.Logger) *Strategy {
	opts := []assemblyai.ClientOption{assemblyai.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, assemblyai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, assemblyai.WithHTTPClient(cfg.HTTPClient))
	}
	client := assemblyai.NewClientWithOptions(opts...)
	return newWithTranscriber(cfg, client.Transcripts, logger)
}

func newWithTranscriber(cfg Config, api transcriber, logger *slog.Logger) *Strategy {
	if cfg.SafetyTimeout <= 0 {
		cfg.SafetyTimeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = "pt"
	}
	return &Strategy{cfg: cfg, api: api, logger: logger}
}

func (s *Strategy) Name() string { return name }

// Available fails with a SetupError when no API key is configured.
func (s *Strategy) Available() error {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return &transcribe.SetupError{Setting: "ASSEMBLYAI_API_KEY"}
	}
	return nil
}

func (s *Strategy) SafetyTimeout() time.Duration { return s.cfg.SafetyTimeout }

// Transcribe makes exactly one service call. Empty text is a no-speech failure.
func (s *Strategy) Transcribe(ctx context.Context, audio transcribe.Audio) transcribe.Outcome {
	if err := s.Available(); err != nil {
		return transcribe.Failed(err)
	}

	started := time.Now()
	result, err := s.api.TranscribeFromReader(ctx, bytes.NewReader(audio.Data), &assemblyai.TranscriptOptionalParams{
		LanguageCode: assemblyai.TranscriptLanguageCode(s.cfg.LanguageCode),
	})
	if err != nil {
		s.log(slog.LevelWarn, "assemblyai request failed", "error", err.Error(), "bytes", audio.Size())
		return transcribe.Failed(fmt.Errorf("assemblyai transcribe: %w", err))
	}
	if result.Status == assemblyai.TranscriptStatusError {
		detail := "transcript failed"
		if result.Error != nil {
			detail = *result.Error
		}
		s.log(slog.LevelWarn, "assemblyai transcript error", "error", detail)
		return transcribe.Failed(errors.New(detail))
	}

	text := ""
	if result.Text != nil {
		text = strings.TrimSpace(*result.Text)
	}
	if text == "" {
		return transcribe.Failed(transcribe.ErrNoSpeech)
	}

	confidence := transcribe.UnknownConfidence
	if result.Confidence != nil {
		confidence = *result.Confidence
	}

	s.log(slog.LevelInfo, "assemblyai transcript ready",
		"chars", len(text),
		"confidence", confidence,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return transcribe.Succeeded(text, confidence)
}

func (s *Strategy) log(level slog.Level, msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Log(context.Background(), level, msg, attrs...)
}
