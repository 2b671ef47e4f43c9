// Package vad detects sustained silence during a recording and requests an
// automatic stop.
package vad

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Source yields the latest analysis window of normalized samples.
type Source interface {
	Window(dst []float64)
	Close()
}

// Config controls silence detection.
type Config struct {
	Threshold       float64
	SilenceDuration time.Duration
	FFTSize         int
	FrameInterval   time.Duration
}

// DefaultConfig matches the shipped configuration defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:       15,
		SilenceDuration: 1500 * time.Millisecond,
		FFTSize:         256,
		FrameInterval:   16 * time.Millisecond,
	}
}

// Monitor polls a Source once per frame. When the level stays below
// Threshold for longer than SilenceDuration it calls stop exactly once. If
// recording reports false first, it releases the source without calling stop.
type Monitor struct {
	cfg       Config
	source    Source
	clock     clockwork.Clock
	recording func() bool
	stop      func()
	logger    *slog.Logger

	spectrum *Spectrum
	window   []float64

	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once
}

// Start launches the frame loop and returns immediately.
func Start(ctx context.Context, cfg Config, source Source, clock clockwork.Clock, recording func() bool, stop func(), logger *slog.Logger) *Monitor {
	defaults := DefaultConfig()
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = defaults.FFTSize
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaults.FrameInterval
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = defaults.SilenceDuration
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	m := &Monitor{
		cfg:       cfg,
		source:    source,
		clock:     clock,
		recording: recording,
		stop:      stop,
		logger:    logger,
		spectrum:  NewSpectrum(cfg.FFTSize),
		window:    make([]float64, cfg.FFTSize),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	ticker := clock.NewTicker(cfg.FrameInterval)
	go m.loop(runCtx, ticker)
	return m
}

// Close stops the loop and releases the source. Safe to call repeatedly.
func (m *Monitor) Close() {
	m.cancel()
	<-m.done
}

// Done is closed once the loop has exited and the source is released.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer close(m.done)
	defer m.releaseSource()
	defer ticker.Stop()

	var silenceStart time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.Chan():
			if !m.recording() {
				return
			}

			level := m.level()
			if level >= m.cfg.Threshold {
				silenceStart = time.Time{}
				continue
			}
			if silenceStart.IsZero() {
				silenceStart = now
				continue
			}
			if now.Sub(silenceStart) > m.cfg.SilenceDuration {
				if m.logger != nil {
					m.logger.Info("silence detected; stopping recording",
						"silence_ms", now.Sub(silenceStart).Milliseconds(),
						"level", level,
					)
				}
				m.releaseSource()
				// stop may wait on Close, which waits on this loop.
				go m.stop()
				return
			}
		}
	}
}

func (m *Monitor) level() float64 {
	m.source.Window(m.window)
	return m.spectrum.Level(m.window)
}

func (m *Monitor) releaseSource() {
	m.release.Do(m.source.Close)
}
