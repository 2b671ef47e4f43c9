package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/config"
	"github.com/rbright/voxsearch/internal/vad"
)

// Input opens a fresh recorder for each recording attempt.
type Input interface {
	Open(ctx context.Context) (Recorder, error)
}

// Recorder is one live capture stream.
type Recorder interface {
	// Chunks yields buffered PCM and closes after Stop.
	Chunks() <-chan []byte
	Format() audio.Format
	// Flush requests that any partially buffered audio be emitted now.
	Flush() error
	Stop() error
	// BytesCaptured counts PCM bytes accepted from the source.
	BytesCaptured() int64
	// Analyser opens an independent analysis tap on the same source.
	Analyser(ctx context.Context, window int) (vad.Source, error)
}

// PulseInput opens recorders on the configured Pulse source.
type PulseInput struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewPulseInput constructs the production Input.
func NewPulseInput(cfg config.Config, logger *slog.Logger) *PulseInput {
	return &PulseInput{cfg: cfg, logger: logger}
}

// Open resolves the device and starts capture in the preferred format.
func (p *PulseInput) Open(ctx context.Context) (Recorder, error) {
	selection, err := audio.SelectDevice(ctx, p.cfg.Audio.Input, p.cfg.Audio.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && p.logger != nil {
		p.logger.Warn(selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device, captureOptions(p.cfg.Capture))
	if err != nil {
		return nil, err
	}
	if p.logger != nil {
		p.logger.Info("capture started",
			"device", describeDevice(selection.Device),
			"sample_rate", capture.Format().SampleRate,
		)
	}
	return pulseRecorder{Capture: capture}, nil
}

func captureOptions(cfg config.CaptureConfig) audio.CaptureOptions {
	preferred := audio.Format{
		SampleRate:       cfg.SampleRate,
		EchoCancellation: cfg.EchoCancellation,
		NoiseSuppression: cfg.NoiseSuppression,
		AutoGainControl:  cfg.AutoGainControl,
	}
	return audio.CaptureOptions{
		Preferred:     preferred,
		Fallback:      audio.Format{SampleRate: cfg.FallbackSampleRate},
		FlushInterval: time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
	}
}

type pulseRecorder struct {
	*audio.Capture
}

func (r pulseRecorder) Analyser(ctx context.Context, window int) (vad.Source, error) {
	tap, err := audio.OpenTap(ctx, r.Device(), r.Format().SampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("open analysis tap: %w", err)
	}
	return tap, nil
}

// describeDevice formats device metadata for logs.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
