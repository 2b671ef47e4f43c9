// Package doctor runs readiness diagnostics for config, speech engines,
// the product catalog, audio, and desktop integrations.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/catalog"
	"github.com/rbright/voxsearch/internal/config"
	"github.com/rbright/voxsearch/internal/history"
	"github.com/rbright/voxsearch/internal/output"
	"github.com/rbright/voxsearch/internal/transcribe/local"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Options overrides how remote dependencies are reached.
type Options struct {
	// LocalDialOptions are appended when dialling the local engine.
	LocalDialOptions []grpc.DialOption
	// ProbeTimeout bounds each network probe.
	ProbeTimeout time.Duration
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, opts Options) Report {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 3 * time.Second
	}

	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkTranscription(ctx, cfg.Config, opts))
	checks = append(checks, checkCatalog(ctx, cfg.Config.Catalog, opts.ProbeTimeout))
	checks = append(checks, checkAISearch(cfg.Config.Catalog))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))

	if cfg.Config.Output.Clipboard {
		checks = append(checks, checkClipboard(output.NewCommitter(cfg.Config.Output, nil)))
	}
	if cfg.Config.Indicator.Enable && cfg.Config.Indicator.SoundEnable {
		checks = append(checks, checkCommand(cfg.Config.Indicator.CuePlayer.Argv, "cue_player"))
	}
	if cfg.Config.History.Enable {
		checks = append(checks, checkHistory(ctx, cfg.Config.History))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	if n := len(cfg.Warnings); n > 0 {
		message += fmt.Sprintf(", %d warning(s)", n)
	}
	if len(cfg.EnvFiles) > 0 {
		message += fmt.Sprintf(", env from %s", strings.Join(cfg.EnvFiles, ", "))
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkTranscription verifies the selected engine can be used.
func checkTranscription(ctx context.Context, cfg config.Config, opts Options) Check {
	switch cfg.Transcription.Engine {
	case config.EngineAssemblyAI:
		if strings.TrimSpace(cfg.AssemblyAI.APIKey) == "" {
			return Check{Name: "transcription.assemblyai", Pass: false, Message: "ASSEMBLYAI_API_KEY is not set"}
		}
		return Check{Name: "transcription.assemblyai", Pass: true, Message: "api key configured"}
	case config.EngineLocal:
		return checkLocalEngine(ctx, cfg.Local, opts)
	default:
		return Check{Name: "transcription", Pass: false, Message: fmt.Sprintf("unknown engine %q", cfg.Transcription.Engine)}
	}
}

// checkLocalEngine dials the local engine and queries its health service.
func checkLocalEngine(ctx context.Context, cfg config.LocalEngineConfig, opts Options) Check {
	strategy := local.New(local.Config{
		Endpoint:    cfg.Endpoint,
		DialTimeout: opts.ProbeTimeout,
		DialOptions: opts.LocalDialOptions,
	}, nil)
	defer strategy.Release()

	probeCtx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
	defer cancel()

	message, err := strategy.Health(probeCtx)
	if err != nil {
		return Check{Name: "transcription.local", Pass: false, Message: err.Error()}
	}
	return Check{Name: "transcription.local", Pass: true, Message: fmt.Sprintf("%s at %s", message, cfg.Endpoint)}
}

// checkCatalog probes the product API with a list request.
func checkCatalog(ctx context.Context, cfg config.CatalogConfig, timeout time.Duration) Check {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Check{Name: "catalog.api", Pass: false, Message: "API_BASE_URL is not set"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := catalog.NewClient(cfg, nil).Ping(probeCtx)
	if err != nil {
		var apiErr *catalog.APIError
		if errors.As(err, &apiErr) {
			return Check{Name: "catalog.api", Pass: false, Message: fmt.Sprintf("HTTP %d: %s", apiErr.Status, apiErr.Message)}
		}
		return Check{Name: "catalog.api", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	return Check{Name: "catalog.api", Pass: true, Message: fmt.Sprintf("reachable at %s", cfg.APIBaseURL)}
}

func checkAISearch(cfg config.CatalogConfig) Check {
	if strings.TrimSpace(cfg.AISearchURL) == "" {
		return Check{Name: "catalog.ai_search", Pass: false, Message: "AI_SEARCH_URL is not set"}
	}
	return Check{Name: "catalog.ai_search", Pass: true, Message: fmt.Sprintf("webhook %s", cfg.AISearchURL)}
}

func checkClipboard(committer *output.Committer) Check {
	if err := committer.Ready(); err != nil {
		return Check{Name: "clipboard", Pass: false, Message: err.Error()}
	}
	return Check{Name: "clipboard", Pass: true, Message: "clipboard utility available"}
}

// checkHistory opens the history database to surface permission issues.
func checkHistory(ctx context.Context, cfg config.HistoryConfig) Check {
	path := cfg.Path
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			return Check{Name: "history", Pass: false, Message: err.Error()}
		}
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}
	}
	_ = store.Close()
	return Check{Name: "history", Pass: true, Message: fmt.Sprintf("database at %s", path)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
