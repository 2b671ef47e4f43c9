// Package capture owns the recording lifecycle: it opens the microphone,
// buffers audio, stops on request or timeout, and hands the result to a
// transcription strategy exactly once per session.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/config"
	"github.com/rbright/voxsearch/internal/fsm"
	"github.com/rbright/voxsearch/internal/indicator"
	"github.com/rbright/voxsearch/internal/progress"
	"github.com/rbright/voxsearch/internal/transcribe"
	"github.com/rbright/voxsearch/internal/vad"
)

var (
	// ErrSessionActive rejects a start while another session is in flight.
	ErrSessionActive = errors.New("a recording session is already active")
	// ErrClosed rejects operations on a closed controller.
	ErrClosed = errors.New("capture controller closed")
	// ErrNotAudio rejects imports whose content type is not audio/*.
	ErrNotAudio = errors.New("not an audio file")
)

// Options tunes session timing and the shared transcription guards.
type Options struct {
	MaxDuration   time.Duration
	StopGrace     time.Duration
	MinAudioBytes int
	VADEnable     bool
	VAD           vad.Config
	// DumpDir receives a WAV copy of every capture when non-empty.
	DumpDir string
}

// DefaultOptions matches the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxDuration:   10 * time.Second,
		StopGrace:     50 * time.Millisecond,
		MinAudioBytes: 1024,
		VADEnable:     true,
		VAD:           vad.DefaultConfig(),
	}
}

// OptionsFromConfig maps runtime configuration onto controller options.
func OptionsFromConfig(cfg config.Config, dumpDir string) Options {
	opts := Options{
		MaxDuration:   time.Duration(cfg.Capture.MaxDurationMS) * time.Millisecond,
		StopGrace:     time.Duration(cfg.Capture.StopGraceMS) * time.Millisecond,
		MinAudioBytes: cfg.Transcription.MinAudioBytes,
		VADEnable:     cfg.VAD.Enable,
		VAD: vad.Config{
			Threshold:       cfg.VAD.SilenceThreshold,
			SilenceDuration: time.Duration(cfg.VAD.SilenceDurationMS) * time.Millisecond,
			FFTSize:         cfg.VAD.FFTSize,
			FrameInterval:   time.Duration(cfg.VAD.FrameIntervalMS) * time.Millisecond,
		},
	}
	if cfg.Debug.EnableAudioDump {
		opts.DumpDir = dumpDir
	}
	return opts
}

// Deps are the collaborators of a Controller. Input and Strategy are required.
type Deps struct {
	Input     Input
	Strategy  transcribe.Strategy
	Host      Host
	Indicator indicator.Controller
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// session is one record, stop, transcribe cycle.
type session struct {
	id        string
	startedAt time.Time
	deadline  time.Time

	recorder Recorder
	format   audio.Format
	chunks   [][]byte
	drained  chan struct{}

	maxTimer clockwork.Timer
	monitor  *vad.Monitor

	done       chan struct{}
	finishOnce sync.Once
}

// Controller manages at most one session at a time. All exported methods
// are safe for concurrent use.
type Controller struct {
	opts      Options
	input     Input
	strategy  transcribe.Strategy
	host      Host
	indicator indicator.Controller
	clock     clockwork.Clock
	logger    *slog.Logger
	progress  *progress.Simulator

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    fsm.State
	starting bool
	closed   bool
	current  *session
	last     Outcome

	// hostMu keeps status snapshots in emission order.
	hostMu sync.Mutex
}

// Outcome is the terminal record of one session.
type Outcome struct {
	SessionID string
	transcribe.Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// New constructs an idle controller.
func New(opts Options, deps Deps) (*Controller, error) {
	if deps.Input == nil {
		return nil, errors.New("capture input is required")
	}
	if deps.Strategy == nil {
		return nil, errors.New("transcription strategy is required")
	}
	if deps.Host == nil {
		deps.Host = HostFuncs{}
	}
	if deps.Indicator == nil {
		deps.Indicator = indicator.Noop{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	defaults := DefaultOptions()
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = defaults.MaxDuration
	}
	if opts.StopGrace < 0 {
		opts.StopGrace = 0
	}
	if opts.MinAudioBytes < 0 {
		opts.MinAudioBytes = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:      opts,
		input:     deps.Input,
		strategy:  deps.Strategy,
		host:      deps.Host,
		indicator: deps.Indicator,
		clock:     deps.Clock,
		logger:    deps.Logger,
		ctx:       ctx,
		cancel:    cancel,
		state:     fsm.StateIdle,
	}
	c.progress = progress.NewSimulator(deps.Clock, c.reportProgress)
	return c, nil
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the current host-visible snapshot.
func (c *Controller) Status() StatusSnapshot {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	return StatusSnapshot{
		IsRecording:    state.Recording(),
		IsTranscribing: state.Transcribing(),
		Progress:       c.progress.Value(),
	}
}

// Last returns the outcome of the most recently finished session.
func (c *Controller) Last() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Done is closed when the current session finishes. With no session in
// flight it returns an already closed channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.current.done
}

// remaining is the time left before the max-duration stop, or zero when
// not recording.
func (c *Controller) remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.state != fsm.StateRecording {
		return 0
	}
	left := c.current.deadline.Sub(c.clock.Now())
	if left < 0 {
		return 0
	}
	return left.Round(time.Millisecond)
}

// Wait blocks until the current session finishes or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartRecording opens the microphone and begins a session. Failures are
// reported to the host as error notifications; the returned error is for
// logging only.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.starting || c.state != fsm.StateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if err := c.strategy.Available(); err != nil {
		c.reportFailure(ctx, transcribe.Failed(err))
		return err
	}

	recorder, err := c.input.Open(c.ctx)
	if err != nil {
		c.logWarn("capture start failed", "error", err.Error())
		c.reportFailure(ctx, transcribe.Failed(err))
		return fmt.Errorf("open capture: %w", err)
	}

	now := c.clock.Now()
	sess := &session{
		id:        uuid.NewString(),
		startedAt: now,
		deadline:  now.Add(c.opts.MaxDuration),
		recorder:  recorder,
		format:    recorder.Format(),
		drained:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = recorder.Stop()
		return ErrClosed
	}
	if err := c.transitionLocked(fsm.EventStart); err != nil {
		c.mu.Unlock()
		_ = recorder.Stop()
		return err
	}
	c.current = sess
	sess.maxTimer = c.clock.AfterFunc(c.opts.MaxDuration, func() {
		c.logInfo("max recording duration reached", "session_id", sess.id)
		c.StopRecording()
	})
	c.mu.Unlock()

	go c.drain(sess)

	c.progress.Reset()
	c.logInfo("recording started", "session_id", sess.id, "sample_rate", sess.format.SampleRate)
	c.pushStatus()
	c.indicator.ShowRecording(ctx)

	if c.opts.VADEnable {
		c.startMonitor(sess)
	}
	return nil
}

// drain appends recorder chunks to the session until the stream closes.
func (c *Controller) drain(sess *session) {
	defer close(sess.drained)
	for chunk := range sess.recorder.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		c.mu.Lock()
		sess.chunks = append(sess.chunks, chunk)
		c.mu.Unlock()
	}
}

func (c *Controller) startMonitor(sess *session) {
	source, err := sess.recorder.Analyser(c.ctx, c.opts.VAD.FFTSize)
	if err != nil {
		c.logWarn("voice activity monitor unavailable", "error", err.Error())
		return
	}
	recording := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.current == sess && c.state == fsm.StateRecording
	}
	stop := func() {
		c.logInfo("silence detected", "session_id", sess.id)
		c.StopRecording()
	}
	monitor := vad.Start(c.ctx, c.opts.VAD, source, c.clock, recording, stop, c.logger)

	c.mu.Lock()
	sess.monitor = monitor
	c.mu.Unlock()
}

// StopRecording ends the active recording and starts transcription of the
// buffered audio. Calling it in any state other than recording is a no-op.
func (c *Controller) StopRecording() {
	c.mu.Lock()
	sess := c.current
	if c.closed || sess == nil || c.state != fsm.StateRecording {
		c.mu.Unlock()
		return
	}
	if err := c.transitionLocked(fsm.EventStop); err != nil {
		c.mu.Unlock()
		return
	}
	sess.maxTimer.Stop()
	c.mu.Unlock()

	c.logInfo("recording stopping", "session_id", sess.id)
	c.progress.Start()
	c.indicator.ShowTranscribing(c.ctx)

	go c.finishRecording(sess)
}

// finishRecording flushes, stops the stream after the grace delay, and
// invokes the strategy with whatever was buffered.
func (c *Controller) finishRecording(sess *session) {
	if err := sess.recorder.Flush(); err != nil {
		c.logWarn("final flush failed", "session_id", sess.id, "error", err.Error())
	}
	if c.opts.StopGrace > 0 {
		select {
		case <-c.clock.After(c.opts.StopGrace):
		case <-c.ctx.Done():
		}
	}
	if err := sess.recorder.Stop(); err != nil {
		c.logWarn("capture stop failed", "session_id", sess.id, "error", err.Error())
	}
	<-sess.drained

	c.mu.Lock()
	pcm := bytes.Join(sess.chunks, nil)
	sess.chunks = nil
	err := c.transitionLocked(fsm.EventStopped)
	c.mu.Unlock()
	c.logInfo("recording stopped",
		"session_id", sess.id,
		"captured_bytes", sess.recorder.BytesCaptured(),
		"buffered_bytes", len(pcm),
	)
	if err != nil {
		c.finish(sess, transcribe.Failed(err))
		return
	}
	c.pushStatus()

	blob, err := audio.EncodeWAV(pcm, sess.format.SampleRate)
	if err != nil {
		c.finish(sess, transcribe.Failed(err))
		return
	}
	c.dump(sess, blob)

	c.transcribe(sess, transcribe.Audio{
		Name:        sess.id + ".wav",
		ContentType: "audio/wav",
		Data:        blob,
		PCM:         pcm,
		SampleRate:  sess.format.SampleRate,
	})
}

// ImportAudio transcribes an existing audio file without touching the
// microphone.
func (c *Controller) ImportAudio(ctx context.Context, name string, contentType string, data []byte) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "audio/") {
		c.notify(Notification{
			Kind:    KindError,
			Message: "Please select a valid audio file.",
			Reason:  string(transcribe.ReasonNoDeviceSupport),
		})
		c.indicator.ShowError(ctx, "Please select a valid audio file.")
		return fmt.Errorf("%w: %q", ErrNotAudio, contentType)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.starting || c.state != fsm.StateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.mu.Unlock()

	if err := c.strategy.Available(); err != nil {
		c.reportFailure(ctx, transcribe.Failed(err))
		return err
	}

	now := c.clock.Now()
	sess := &session{
		id:        uuid.NewString(),
		startedAt: now,
		deadline:  now,
		done:      make(chan struct{}),
	}

	c.mu.Lock()
	if c.state != fsm.StateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	if err := c.transitionLocked(fsm.EventImport); err != nil {
		c.mu.Unlock()
		return err
	}
	c.current = sess
	c.mu.Unlock()

	c.logInfo("importing audio", "session_id", sess.id, "name", name, "bytes", len(data))
	c.progress.Start()
	c.indicator.ShowTranscribing(ctx)

	audioIn := transcribe.Audio{Name: name, ContentType: contentType, Data: data}
	if pcm, rate, err := audio.DecodeWAV(data); err == nil {
		audioIn.PCM = pcm
		audioIn.SampleRate = rate
	}
	go c.transcribe(sess, audioIn)
	return nil
}

// transcribe runs the strategy bounded by its safety timeout.
func (c *Controller) transcribe(sess *session, in transcribe.Audio) {
	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	results := make(chan transcribe.Outcome, 1)
	go func() {
		results <- transcribe.Run(ctx, c.strategy, in, c.opts.MinAudioBytes)
	}()

	var outcome transcribe.Outcome
	safety := c.clock.NewTimer(c.strategy.SafetyTimeout())
	select {
	case outcome = <-results:
		safety.Stop()
	case <-safety.Chan():
		c.logWarn("transcription safety timeout", "session_id", sess.id, "strategy", c.strategy.Name())
		cancel()
		outcome = transcribe.Failed(transcribe.ErrTimeout)
	}
	c.finish(sess, outcome)
}

// finish moves the session to idle and reports the outcome exactly once.
func (c *Controller) finish(sess *session, outcome transcribe.Outcome) {
	sess.finishOnce.Do(func() {
		c.mu.Lock()
		if c.current != sess {
			c.mu.Unlock()
			return
		}
		if outcome.Success && strings.TrimSpace(outcome.Text) != "" {
			_ = c.transitionLocked(fsm.EventTranscribed)
		} else {
			if outcome.Success {
				outcome = transcribe.Failed(transcribe.ErrNoSpeech)
			}
			_ = c.transitionLocked(fsm.EventFail)
			_ = c.transitionLocked(fsm.EventReset)
		}
		c.current = nil
		closed := c.closed
		c.last = Outcome{
			SessionID:  sess.id,
			Outcome:    outcome,
			StartedAt:  sess.startedAt,
			FinishedAt: c.clock.Now(),
		}
		c.mu.Unlock()

		if closed {
			close(sess.done)
			return
		}

		c.logInfo("session finished",
			"session_id", sess.id,
			"success", outcome.Success,
			"reason", string(outcome.Reason),
			"error", outcome.Err,
			"confidence", outcome.Confidence,
		)

		c.progress.Complete(nil)
		if outcome.Success {
			c.host.OnTranscription(outcome.Text)
			c.notify(Notification{Kind: KindSuccess, Message: "Transcription complete: " + outcome.Text})
			c.indicator.ShowComplete(c.ctx, outcome.Text)
		} else {
			c.notify(Notification{Kind: KindError, Message: outcome.Message, Reason: string(outcome.Reason)})
			c.indicator.ShowError(c.ctx, outcome.Message)
		}
		close(sess.done)
	})
}

// Close tears down every timer, stream, and guard regardless of phase.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sess := c.current
	var monitor *vad.Monitor
	if sess != nil {
		if sess.maxTimer != nil {
			sess.maxTimer.Stop()
		}
		monitor = sess.monitor
	}
	recording := c.state == fsm.StateRecording
	if recording {
		_ = c.transitionLocked(fsm.EventFail)
		_ = c.transitionLocked(fsm.EventReset)
		c.current = nil
	}
	c.mu.Unlock()

	c.cancel()
	if monitor != nil {
		monitor.Close()
	}
	if sess != nil && sess.recorder != nil {
		_ = sess.recorder.Stop()
	}
	if recording {
		sess.finishOnce.Do(func() { close(sess.done) })
	}
	c.progress.Reset()
	if releaser, ok := c.strategy.(transcribe.Releaser); ok {
		releaser.Release()
	}
	c.pushStatus()
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// reportFailure surfaces a failure that never reached a session.
func (c *Controller) reportFailure(ctx context.Context, outcome transcribe.Outcome) {
	c.mu.Lock()
	c.last = Outcome{Outcome: outcome, FinishedAt: c.clock.Now()}
	c.mu.Unlock()
	c.notify(Notification{Kind: KindError, Message: outcome.Message, Reason: string(outcome.Reason)})
	c.indicator.ShowError(ctx, outcome.Message)
	c.pushStatus()
}

func (c *Controller) reportProgress(value float64) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	c.emitStatus(StatusSnapshot{
		IsRecording:    state.Recording(),
		IsTranscribing: state.Transcribing(),
		Progress:       value,
	})
}

// pushStatus reads progress under hostMu so it can never publish a value
// older than one a concurrent tick already delivered.
func (c *Controller) pushStatus() {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	c.host.OnStatusChange(c.Status())
}

func (c *Controller) emitStatus(snapshot StatusSnapshot) {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	c.host.OnStatusChange(snapshot)
}

func (c *Controller) notify(n Notification) {
	c.hostMu.Lock()
	defer c.hostMu.Unlock()
	c.host.OnNotification(n)
}

func (c *Controller) dump(sess *session, blob []byte) {
	if c.opts.DumpDir == "" {
		return
	}
	path, err := audio.WriteDebugDump(c.opts.DumpDir, sess.id, blob)
	if err != nil {
		c.logWarn("unable to write debug audio dump", "error", err.Error())
		return
	}
	c.logInfo("debug audio dump written", "path", path)
}

func (c *Controller) logInfo(msg string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, attrs...)
}

func (c *Controller) logWarn(msg string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, attrs...)
}
