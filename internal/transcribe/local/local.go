// Package local transcribes audio with a speech engine running on this host,
// reached over gRPC.
package local

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/transcribe"
	"github.com/rbright/voxsearch/internal/transcript"
)

const name = "local"

// Config controls the engine endpoint and recognition attempts.
type Config struct {
	Endpoint        string
	LanguageCode    string
	DialTimeout     time.Duration
	SafetyTimeout   time.Duration
	FallbackTimeout time.Duration
	DialOptions     []grpc.DialOption
}

// attempt is one recognition request configuration.
type attempt struct {
	label           string
	continuous      bool
	maxAlternatives int
}

var (
	primaryAttempt  = attempt{label: "primary", continuous: false, maxAlternatives: 3}
	fallbackAttempt = attempt{label: "fallback", continuous: true, maxAlternatives: 5}
)

// Strategy sends a finished capture to the local engine. A no-speech or
// aborted primary result triggers exactly one permissive fallback attempt.
type Strategy struct {
	cfg    Config
	logger *slog.Logger
	guard  transcribe.StartGuard

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// New builds a Strategy. The connection is dialled on first use.
func New(cfg Config, logger *slog.Logger) *Strategy {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.SafetyTimeout <= 0 {
		cfg.SafetyTimeout = 10 * time.Second
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 7 * time.Second
	}
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = "pt-BR"
	}
	return &Strategy{cfg: cfg, logger: logger}
}

func (s *Strategy) Name() string { return name }

// Available requires only an endpoint; reachability is checked per attempt.
func (s *Strategy) Available() error {
	if strings.TrimSpace(s.cfg.Endpoint) == "" {
		return &transcribe.SetupError{Setting: "local.endpoint"}
	}
	return nil
}

// SafetyTimeout covers the primary attempt plus the fallback bound.
func (s *Strategy) SafetyTimeout() time.Duration {
	return s.cfg.SafetyTimeout + s.cfg.FallbackTimeout
}

// Transcribe runs the primary attempt and, when warranted, the fallback.
func (s *Strategy) Transcribe(ctx context.Context, in transcribe.Audio) transcribe.Outcome {
	pcm, rate, err := pcmFor(in)
	if err != nil {
		return transcribe.Failed(err)
	}

	outcome, err := s.attempt(ctx, primaryAttempt, pcm, rate, s.cfg.SafetyTimeout)
	if err == nil {
		return outcome
	}
	if !shouldFallback(err) {
		return transcribe.Failed(err)
	}

	s.log(slog.LevelInfo, "local engine primary attempt empty; retrying", "reason", string(transcribe.Classify(err)))
	outcome, err = s.attempt(ctx, fallbackAttempt, pcm, rate, s.cfg.FallbackTimeout)
	if err != nil {
		return transcribe.Failed(err)
	}
	return outcome
}

// Release frees the start guard and closes the engine connection.
func (s *Strategy) Release() {
	s.guard.Release()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// shouldFallback limits the retry to no-speech and aborted engine signals.
func shouldFallback(err error) bool {
	if errors.Is(err, transcribe.ErrRecognizerBusy) || errors.Is(err, context.Canceled) {
		return false
	}
	switch transcribe.Classify(err) {
	case transcribe.ReasonNoSpeech, transcribe.ReasonAborted:
		return true
	default:
		return false
	}
}

func (s *Strategy) attempt(ctx context.Context, a attempt, pcm []byte, rate int, bound time.Duration) (transcribe.Outcome, error) {
	if !s.guard.Acquire() {
		return transcribe.Outcome{}, transcribe.ErrRecognizerBusy
	}
	defer s.guard.Release()

	attemptCtx, cancel := context.WithTimeout(ctx, bound)
	defer cancel()

	conn, err := s.connect(attemptCtx)
	if err != nil {
		return transcribe.Outcome{}, err
	}

	req, err := structpb.NewStruct(map[string]any{
		"audio":             base64.StdEncoding.EncodeToString(pcm),
		"encoding":          "LINEAR16",
		"sample_rate_hertz": float64(rate),
		"language_code":     s.cfg.LanguageCode,
		"continuous":        a.continuous,
		"interim_results":   false,
		"max_alternatives":  float64(a.maxAlternatives),
	})
	if err != nil {
		return transcribe.Outcome{}, fmt.Errorf("build recognize request: %w", err)
	}

	started := time.Now()
	resp := new(structpb.Struct)
	if err := conn.Invoke(attemptCtx, recognizeMethod, req, resp); err != nil {
		return transcribe.Outcome{}, fmt.Errorf("local recognize (%s): %w", a.label, err)
	}

	text, confidence, err := parseResponse(resp)
	if err != nil {
		return transcribe.Outcome{}, err
	}

	s.log(slog.LevelInfo, "local engine transcript ready",
		"attempt", a.label,
		"chars", len(text),
		"confidence", confidence,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return transcribe.Succeeded(text, confidence), nil
}

// parseResponse takes the best alternative of each final result and merges
// them into one transcript. The reported confidence is the lowest seen.
func parseResponse(resp *structpb.Struct) (string, float64, error) {
	fields := resp.GetFields()
	if code := strings.TrimSpace(fields["error"].GetStringValue()); code != "" {
		return "", 0, &transcribe.RecognitionError{Code: code, Detail: fields["message"].GetStringValue()}
	}

	var segments []string
	confidence := transcribe.UnknownConfidence
	for _, item := range fields["results"].GetListValue().GetValues() {
		result := item.GetStructValue().GetFields()
		if isFinal, ok := result["is_final"]; ok && !isFinal.GetBoolValue() {
			continue
		}
		alternatives := result["alternatives"].GetListValue().GetValues()
		if len(alternatives) == 0 {
			continue
		}
		best := alternatives[0].GetStructValue().GetFields()
		segments = append(segments, best["transcript"].GetStringValue())
		if c, ok := best["confidence"]; ok {
			value := c.GetNumberValue()
			if confidence < 0 || value < confidence {
				confidence = value
			}
		}
	}

	text := transcript.Assemble(segments, transcript.QueryOptions)
	if text == "" {
		return "", 0, transcribe.ErrNoSpeech
	}
	return text, confidence, nil
}

// pcmFor extracts mono s16le samples from captured or imported audio.
func pcmFor(in transcribe.Audio) ([]byte, int, error) {
	if len(in.PCM) > 0 && in.SampleRate > 0 {
		return in.PCM, in.SampleRate, nil
	}
	pcm, rate, err := audio.DecodeWAV(in.Data)
	if err != nil {
		if errors.Is(err, audio.ErrNotWAV) {
			return nil, 0, fmt.Errorf("%w: local engine accepts WAV only, got %q", transcribe.ErrUnsupportedAudio, in.ContentType)
		}
		return nil, 0, fmt.Errorf("%w: %v", transcribe.ErrUnsupportedAudio, err)
	}
	return pcm, rate, nil
}

func (s *Strategy) log(level slog.Level, msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Log(context.Background(), level, msg, attrs...)
}
