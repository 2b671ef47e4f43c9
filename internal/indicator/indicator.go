// Package indicator handles desktop notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/rbright/voxsearch/internal/config"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowComplete(context.Context, string)
	ShowError(context.Context, string)
}

// Desktop raises freedesktop notifications and plays audio cues.
type Desktop struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	notify func(title, message string) error
	alert  func(title, message string) error
	cue    func(context.Context, cueKind, config.IndicatorConfig) error

	soundMu sync.Mutex
	cues    sync.WaitGroup
}

// NewDesktop creates an indicator controller from config.
func NewDesktop(cfg config.IndicatorConfig, logger *slog.Logger) *Desktop {
	return &Desktop{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
		cue: emitCue,
	}
}

// ShowRecording emits the start cue and a recording notification.
func (d *Desktop) ShowRecording(ctx context.Context) {
	d.playCue(ctx, cueStart)
	d.send(d.notify, d.messages.recording)
}

// ShowTranscribing emits the stop cue and a transcribing notification.
func (d *Desktop) ShowTranscribing(ctx context.Context) {
	d.playCue(ctx, cueStop)
	d.send(d.notify, d.messages.transcribing)
}

// ShowComplete emits the completion cue and the recognized text.
func (d *Desktop) ShowComplete(ctx context.Context, text string) {
	d.playCue(ctx, cueComplete)
	if strings.TrimSpace(text) == "" {
		text = d.messages.complete
	}
	d.send(d.notify, text)
}

// ShowError emits the error cue and an alert with text.
func (d *Desktop) ShowError(ctx context.Context, text string) {
	d.playCue(ctx, cueError)
	if strings.TrimSpace(text) == "" {
		text = d.messages.errorText
	}
	d.send(d.alert, text)
}

// Wait blocks until queued cues finish or timeout elapses.
func (d *Desktop) Wait(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		d.cues.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func (d *Desktop) send(fn func(title, message string) error, message string) {
	if !d.cfg.Enable || fn == nil {
		return
	}
	title := strings.TrimSpace(d.cfg.AppName)
	if title == "" {
		title = d.messages.title
	}
	if err := fn(title, message); err != nil {
		d.log("indicator notification failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (d *Desktop) playCue(ctx context.Context, kind cueKind) {
	if !d.cfg.SoundEnable || d.cue == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.cues.Add(1)
	go func() {
		defer d.cues.Done()
		d.soundMu.Lock()
		defer d.soundMu.Unlock()
		if err := d.cue(ctx, kind, d.cfg); err != nil {
			d.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (d *Desktop) log(message string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(message, "error", err.Error())
}

// Noop satisfies Controller without side effects.
type Noop struct{}

func (Noop) ShowRecording(context.Context)        {}
func (Noop) ShowTranscribing(context.Context)     {}
func (Noop) ShowComplete(context.Context, string) {}
func (Noop) ShowError(context.Context, string)    {}
