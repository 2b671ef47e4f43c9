package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/voxsearch/internal/capture"
	"github.com/rbright/voxsearch/internal/catalog"
	"github.com/rbright/voxsearch/internal/config"
	"github.com/rbright/voxsearch/internal/fsm"
	"github.com/rbright/voxsearch/internal/history"
	"github.com/rbright/voxsearch/internal/indicator"
	"github.com/rbright/voxsearch/internal/ipc"
	"github.com/rbright/voxsearch/internal/logging"
	"github.com/rbright/voxsearch/internal/output"
	"github.com/rbright/voxsearch/internal/transcribe"
	"github.com/rbright/voxsearch/internal/transcribe/assembly"
	"github.com/rbright/voxsearch/internal/transcribe/local"
)

const cueDrainTimeout = 2 * time.Second

// newStrategy builds the configured transcription strategy.
func newStrategy(cfg config.Config, logger *slog.Logger) (transcribe.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transcription.Engine)) {
	case config.EngineAssemblyAI:
		return assembly.New(assembly.Config{
			APIKey:        cfg.AssemblyAI.APIKey,
			BaseURL:       cfg.AssemblyAI.BaseURL,
			LanguageCode:  cfg.AssemblyAI.LanguageCode,
			SafetyTimeout: time.Duration(cfg.AssemblyAI.SafetyTimeoutMS) * time.Millisecond,
		}, logger), nil
	case config.EngineLocal:
		return local.New(local.Config{
			Endpoint:        cfg.Local.Endpoint,
			LanguageCode:    cfg.Local.LanguageCode,
			DialTimeout:     time.Duration(cfg.Local.DialTimeoutMS) * time.Millisecond,
			SafetyTimeout:   time.Duration(cfg.Local.SafetyTimeoutMS) * time.Millisecond,
			FallbackTimeout: time.Duration(cfg.Local.FallbackTimeoutMS) * time.Millisecond,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", cfg.Transcription.Engine)
	}
}

// terminalHost renders controller callbacks on stderr. Progress is printed
// in 25% steps so piped output stays readable.
type terminalHost struct {
	w      io.Writer
	styles styles
	logger *slog.Logger

	lastKey string
}

func newTerminalHost(w io.Writer, logger *slog.Logger) *terminalHost {
	return &terminalHost{w: w, styles: newStyles(w), logger: logger}
}

func (h *terminalHost) OnTranscription(text string) {
	h.logger.Debug("transcription delivered", "chars", len([]rune(text)))
}

func (h *terminalHost) OnStatusChange(status capture.StatusSnapshot) {
	line := h.styles.renderStatus(status)
	key := line
	if status.IsTranscribing {
		key = fmt.Sprintf("transcribing:%d", int(status.Progress)/25)
	}
	if key == h.lastKey {
		return
	}
	if h.lastKey == "" && !status.IsRecording && !status.IsTranscribing {
		return
	}
	h.lastKey = key
	fmt.Fprintln(h.w, line)
}

func (h *terminalHost) OnNotification(n capture.Notification) {
	fmt.Fprintln(h.w, h.styles.renderNotification(n))
}

// sessionRun carries the collaborators one listen or transcribe command needs.
type sessionRun struct {
	cfg      config.Config
	logger   *slog.Logger
	noSearch bool
	source   history.Source
}

// newController wires the capture controller to the configured strategy,
// Pulse input, desktop indicator, and terminal host.
func (r Runner) newController(cfg config.Config, logger *slog.Logger) (*capture.Controller, *indicator.Desktop, error) {
	strategy, err := newStrategy(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	dumpDir := ""
	if stateDir, err := logging.StateDir(); err == nil {
		dumpDir = filepath.Join(stateDir, "debug")
	}

	desktop := indicator.NewDesktop(cfg.Indicator, logger)
	controller, err := capture.New(capture.OptionsFromConfig(cfg, dumpDir), capture.Deps{
		Input:     capture.NewPulseInput(cfg, logger),
		Strategy:  strategy,
		Host:      newTerminalHost(r.Stderr, logger),
		Indicator: desktop,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return controller, desktop, nil
}

// commandListen owns the control socket while recording a spoken query.
// When another process owns the socket, toggle forwards to it and listen fails.
func (r Runner) commandListen(ctx context.Context, run sessionRun, forward bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if forward {
		if code, handled := r.forwardIfActive(ctx, socketPath, ipc.CommandToggle); handled {
			return code
		}
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) && forward {
			code, _ := r.forwardIfActive(ctx, socketPath, ipc.CommandToggle)
			return code
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, desktop, err := r.newController(run.cfg, run.logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer controller.Close()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	if err := controller.StartRecording(ctx); err != nil {
		run.logger.Warn("start recording failed", "error", err.Error())
	}
	code := r.awaitOutcome(ctx, controller, run)

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		code = 1
	}
	desktop.Wait(cueDrainTimeout)
	return code
}

// commandTranscribe imports an audio file through the same controller path
// as a recording, without touching the microphone.
func (r Runner) commandTranscribe(ctx context.Context, run sessionRun, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	controller, desktop, err := r.newController(run.cfg, run.logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer controller.Close()

	run.source = history.SourceImport
	if err := controller.ImportAudio(ctx, filepath.Base(path), detectContentType(path, data), data); err != nil {
		run.logger.Warn("import audio failed", "error", err.Error())
	}
	code := r.awaitOutcome(ctx, controller, run)
	desktop.Wait(cueDrainTimeout)
	return code
}

// awaitOutcome blocks until the session finishes, then applies the
// transcript side effects. Cancelling ctx while recording stops the session
// and transcribes what was captured; a second interrupt discards it.
func (r Runner) awaitOutcome(ctx context.Context, controller *capture.Controller, run sessionRun) int {
	if err := controller.Wait(ctx); err != nil {
		if controller.State() != fsm.StateRecording {
			controller.Close()
			fmt.Fprintln(r.Stderr, "cancelled")
			return 1
		}

		next, stop := r.nextInterrupt(context.WithoutCancel(ctx))
		defer stop()
		ctx = next
		fmt.Fprintln(r.Stderr, "stopping; interrupt again to discard")
		controller.StopRecording()
		if err := controller.Wait(ctx); err != nil {
			controller.Close()
			fmt.Fprintln(r.Stderr, "cancelled")
			return 1
		}
	}

	outcome := controller.Last()
	logSessionOutcome(run.logger, outcome)
	r.recordHistory(ctx, run, outcome)

	if !outcome.Success {
		return 1
	}

	text := strings.TrimSpace(outcome.Text)
	fmt.Fprintln(r.Stdout, text)

	if err := output.NewCommitter(run.cfg.Output, run.logger).Commit(ctx, text); err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	}
	if run.noSearch {
		return 0
	}
	return r.search(ctx, run.cfg, run.logger, text)
}

func (r Runner) nextInterrupt(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Interrupts != nil {
		return r.Interrupts(ctx)
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (r Runner) recordHistory(ctx context.Context, run sessionRun, outcome capture.Outcome) {
	if !run.cfg.History.Enable || outcome.SessionID == "" {
		return
	}
	store, err := openHistory(ctx, run.cfg.History)
	if err != nil {
		run.logger.Warn("open history failed", "error", err.Error())
		return
	}
	defer store.Close()

	entry := history.Entry{
		SessionID: outcome.SessionID,
		Source:    run.source,
		Engine:    run.cfg.Transcription.Engine,
		Text:      strings.TrimSpace(outcome.Text),
		Success:   outcome.Success,
		Reason:    string(outcome.Reason),
		Error:     outcome.Err,
		CreatedAt: outcome.FinishedAt,
	}
	if outcome.Success && outcome.Confidence != transcribe.UnknownConfidence {
		confidence := outcome.Confidence
		entry.Confidence = &confidence
	}
	if _, err := store.Record(ctx, entry); err != nil {
		run.logger.Warn("record history failed", "error", err.Error())
	}
}

func openHistory(ctx context.Context, cfg config.HistoryConfig) (*history.Store, error) {
	path := cfg.Path
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return history.Open(ctx, path)
}

// search runs the AI product search for query and renders the result.
func (r Runner) search(ctx context.Context, cfg config.Config, logger *slog.Logger, query string) int {
	client := catalog.NewClient(cfg.Catalog, logger)
	result, err := client.AISearch(ctx, query)
	if err != nil {
		if errors.Is(err, catalog.ErrNotConfigured) {
			fmt.Fprintln(r.Stderr, "error: AI search is not configured (set AI_SEARCH_URL)")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: ai search: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, newStyles(r.Stdout).renderSearch(query, result))
	return 0
}

var audioExtensions = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// detectContentType prefers the file extension and falls back to sniffing.
func detectContentType(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if known, ok := audioExtensions[ext]; ok {
		return known
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
		return byExt
	}
	return http.DetectContentType(data)
}

func logSessionOutcome(logger *slog.Logger, outcome capture.Outcome) {
	fields := []any{
		"session_id", outcome.SessionID,
		"started_at", outcome.StartedAt.Format(time.RFC3339Nano),
		"finished_at", outcome.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", outcome.FinishedAt.Sub(outcome.StartedAt).Milliseconds(),
		"transcript_length", len(outcome.Text),
	}
	if !outcome.Success {
		logger.Error("session failed", append(fields, "reason", string(outcome.Reason), "error", outcome.Err)...)
		return
	}
	logger.Info("session complete", append(fields, "confidence", outcome.Confidence)...)
}
