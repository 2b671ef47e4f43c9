// Package progress simulates transcription progress while a strategy runs.
package progress

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	TickInterval = 200 * time.Millisecond
	HoldDuration = time.Second
	Ceiling      = 95.0
	Complete     = 100.0
)

// Next returns the simulated value following current on a decelerating
// curve that never exceeds Ceiling.
func Next(current float64) float64 {
	var step float64
	switch {
	case current < 30:
		step = 3
	case current < 60:
		step = 2
	case current < 90:
		step = 0.5
	case current < Ceiling:
		step = 0.2
	default:
		return current
	}
	next := current + step
	if next > Ceiling {
		next = Ceiling
	}
	return next
}

// Simulator publishes progress values through report. Values never decrease
// within a run; a run ends at exactly Complete and then resets to zero.
// report must not call back into the Simulator.
type Simulator struct {
	clock  clockwork.Clock
	report func(float64)

	// emitMu orders reports so a late tick can never follow Complete.
	emitMu sync.Mutex

	mu      sync.Mutex
	value   float64
	running bool
	gen     uint64
	ticker  clockwork.Ticker
	stop    chan struct{}
	hold    clockwork.Timer
}

// NewSimulator builds a Simulator driven by clock.
func NewSimulator(clock clockwork.Clock, report func(float64)) *Simulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if report == nil {
		report = func(float64) {}
	}
	return &Simulator{clock: clock, report: report}
}

// Start begins a run at zero. Starting a running simulator is a no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.cancelHoldLocked()
	s.running = true
	s.gen++
	s.value = 0
	s.ticker = s.clock.NewTicker(TickInterval)
	s.stop = make(chan struct{})
	ticker, stop, gen := s.ticker, s.stop, s.gen
	s.mu.Unlock()

	s.emitMu.Lock()
	s.report(0)
	s.emitMu.Unlock()
	go s.loop(ticker, stop, gen)
}

func (s *Simulator) loop(ticker clockwork.Ticker, stop chan struct{}, gen uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !s.tick(gen) {
				return
			}
		}
	}
}

func (s *Simulator) tick(gen uint64) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return false
	}
	next := Next(s.value)
	changed := next != s.value
	s.value = next
	s.mu.Unlock()

	if changed {
		s.report(next)
	}
	return true
}

// Complete forces Complete, holds it for HoldDuration, then resets to zero.
// done, if non-nil, runs after the reset.
func (s *Simulator) Complete(done func()) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.stopLoopLocked()
	s.cancelHoldLocked()
	s.value = Complete
	gen := s.gen
	s.mu.Unlock()

	s.report(Complete)

	s.mu.Lock()
	s.hold = s.clock.AfterFunc(HoldDuration, func() {
		s.emitMu.Lock()
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			s.emitMu.Unlock()
			return
		}
		s.value = 0
		s.hold = nil
		s.mu.Unlock()
		s.report(0)
		s.emitMu.Unlock()
		if done != nil {
			done()
		}
	})
	s.mu.Unlock()
}

// Reset stops any run or hold and returns to zero without reporting. A
// pending hold never reports after Reset returns.
func (s *Simulator) Reset() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLoopLocked()
	s.cancelHoldLocked()
	s.gen++
	s.value = 0
}

// Value returns the last published value.
func (s *Simulator) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Simulator) stopLoopLocked() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
	s.ticker = nil
}

func (s *Simulator) cancelHoldLocked() {
	if s.hold != nil {
		s.hold.Stop()
		s.hold = nil
	}
}
