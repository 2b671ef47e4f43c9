// Package app wires configuration, logging, and the voxsearch commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/cli"
	"github.com/rbright/voxsearch/internal/config"
	"github.com/rbright/voxsearch/internal/doctor"
	"github.com/rbright/voxsearch/internal/history"
	"github.com/rbright/voxsearch/internal/ipc"
	"github.com/rbright/voxsearch/internal/logging"
	"github.com/rbright/voxsearch/internal/version"
)

const binaryName = "voxsearch"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Interrupts returns a context cancelled by the next interrupt signal.
	// Nil listens for SIGINT and SIGTERM.
	Interrupts func(context.Context) (context.Context, context.CancelFunc)
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Debug.LogLevel)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"engine", cfgLoaded.Config.Transcription.Engine,
		"log", logRuntime.Path,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, doctor.Options{})
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandListen:
		return r.commandListen(ctx, sessionRun{cfg: cfg, logger: logger, noSearch: parsed.NoSearch, source: history.SourceMicrophone}, false)
	case cli.CommandToggle:
		return r.commandListen(ctx, sessionRun{cfg: cfg, logger: logger, noSearch: parsed.NoSearch, source: history.SourceMicrophone}, true)
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, sessionRun{cfg: cfg, logger: logger, noSearch: parsed.NoSearch}, parsed.Args[0])
	case cli.CommandSearch:
		return r.search(ctx, cfg, logger, strings.Join(parsed.Args, " "))
	case cli.CommandProducts:
		return r.commandProducts(ctx, cfg, logger, parsed.Args)
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfg, parsed.Limit)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	fmt.Fprintln(r.Stdout, newStyles(r.Stdout).renderDevices(devices))
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, formatStatus(resp))
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// formatStatus renders a status response as "state", with progress while
// transcribing and the time left while recording.
func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		return "idle"
	}
	switch state {
	case "recording":
		if resp.Remaining != "" && resp.Remaining != "0s" {
			return fmt.Sprintf("%s (%s left)", state, resp.Remaining)
		}
	case "stopping", "transcribing":
		return fmt.Sprintf("%s (%.0f%%)", state, resp.Progress)
	}
	return state
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	code, handled := r.forwardIfActive(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voxsearch session\n")
		return 1
	}
	return code
}

// forwardIfActive sends command to a running session owner. handled is false
// when no owner is listening.
func (r Runner) forwardIfActive(ctx context.Context, socketPath string, command string) (int, bool) {
	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		return 0, false
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1, true
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0, true
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unavailable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
