package vad

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	loud   bool
	rng    *rand.Rand
	closed atomic.Int32
}

func newFakeSource(loud bool) *fakeSource {
	return &fakeSource{loud: loud, rng: rand.New(rand.NewSource(7))}
}

func (f *fakeSource) setLoud(loud bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loud = loud
}

func (f *fakeSource) Window(dst []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range dst {
		if f.loud {
			dst[i] = f.rng.Float64() - 0.5
		} else {
			dst[i] = 0
		}
	}
}

func (f *fakeSource) Close() { f.closed.Add(1) }

type harness struct {
	clock     *clockwork.FakeClock
	source    *fakeSource
	recording atomic.Bool
	stops     atomic.Int32
	monitor   *Monitor
}

func newHarness(t *testing.T, loud bool) *harness {
	t.Helper()
	h := &harness{clock: clockwork.NewFakeClock(), source: newFakeSource(loud)}
	h.recording.Store(true)
	h.monitor = Start(t.Context(), DefaultConfig(), h.source, h.clock, h.recording.Load, func() { h.stops.Add(1) }, nil)
	t.Cleanup(h.monitor.Close)
	return h
}

// frames advances the fake clock one frame at a time.
func (h *harness) frames(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.monitor.Done():
			return
		default:
		}
		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		err := h.clock.BlockUntilContext(ctx, 1)
		cancel()
		if err != nil {
			// The loop exited and stopped its ticker.
			return
		}
		h.clock.Advance(DefaultConfig().FrameInterval)
		// Let the loop consume the tick before the next advance.
		time.Sleep(time.Millisecond)
	}
}

func TestSpectrumSilenceIsZero(t *testing.T) {
	s := NewSpectrum(256)
	require.Equal(t, 0.0, s.Level(make([]float64, 256)))
	require.Len(t, s.Bins(make([]float64, 256)), 128)
	require.Equal(t, 256, s.Size())
}

func TestSpectrumNoiseIsAboveDefaultThreshold(t *testing.T) {
	s := NewSpectrum(256)
	src := newFakeSource(true)
	window := make([]float64, 256)
	src.Window(window)

	level := s.Level(window)
	require.Greater(t, level, DefaultConfig().Threshold)
	for _, b := range s.Bins(window) {
		require.GreaterOrEqual(t, b, 0.0)
		require.LessOrEqual(t, b, 255.0)
	}
}

func TestMonitorStopsOnceAfterSustainedSilence(t *testing.T) {
	h := newHarness(t, false)

	// 1500ms of silence at 16ms frames needs just under 100 frames past the first quiet one.
	h.frames(t, 120)

	require.Eventually(t, func() bool { return h.stops.Load() == 1 }, time.Second, time.Millisecond)
	<-h.monitor.Done()
	require.Equal(t, int32(1), h.source.closed.Load())

	h.monitor.Close()
	require.Equal(t, int32(1), h.stops.Load())
	require.Equal(t, int32(1), h.source.closed.Load())
}

func TestMonitorSoundResetsSilenceTimer(t *testing.T) {
	h := newHarness(t, false)

	h.frames(t, 80)
	h.source.setLoud(true)
	h.frames(t, 5)
	h.source.setLoud(false)
	h.frames(t, 80)

	require.Zero(t, h.stops.Load())
}

func TestMonitorReleasesWithoutStopWhenRecordingEnds(t *testing.T) {
	h := newHarness(t, false)

	h.frames(t, 10)
	h.recording.Store(false)
	h.frames(t, 1)

	select {
	case <-h.monitor.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not exit")
	}
	require.Zero(t, h.stops.Load())
	require.Equal(t, int32(1), h.source.closed.Load())
}

func TestMonitorCloseReleasesSource(t *testing.T) {
	h := newHarness(t, true)
	h.monitor.Close()
	h.monitor.Close()
	require.Zero(t, h.stops.Load())
	require.Equal(t, int32(1), h.source.closed.Load())
}
