// Package output applies transcript side effects after a successful search query.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/rbright/voxsearch/internal/config"
)

// ErrClipboardUnsupported reports that no clipboard utility is installed.
var ErrClipboardUnsupported = errors.New("no clipboard utility available (install wl-clipboard, xclip, or xsel)")

// Committer copies transcripts to the system clipboard when enabled.
type Committer struct {
	enabled     bool
	logger      *slog.Logger
	write       func(string) error
	unsupported func() bool
}

// NewCommitter constructs a transcript committer from runtime config.
func NewCommitter(cfg config.OutputConfig, logger *slog.Logger) *Committer {
	return &Committer{
		enabled:     cfg.Clipboard,
		logger:      logger,
		write:       clipboard.WriteAll,
		unsupported: func() bool { return clipboard.Unsupported },
	}
}

// Ready reports whether Commit can reach a clipboard utility.
func (c *Committer) Ready() error {
	if c.enabled && c.unsupported != nil && c.unsupported() {
		return ErrClipboardUnsupported
	}
	return nil
}

// Commit writes transcript text to the clipboard. Empty transcripts and a
// disabled committer are no-ops.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	transcript = strings.TrimSpace(transcript)
	if !c.enabled || transcript == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.unsupported != nil && c.unsupported() {
		return ErrClipboardUnsupported
	}

	if err := c.write(transcript); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("transcript copied to clipboard", "chars", len([]rune(transcript)))
	}
	return nil
}
