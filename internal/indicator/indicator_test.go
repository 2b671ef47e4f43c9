package indicator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voxsearch/internal/config"
)

type capture struct {
	mu      sync.Mutex
	notices []string
	alerts  []string
	cues    []cueKind
}

func newTestDesktop(cfg config.IndicatorConfig) (*Desktop, *capture) {
	c := &capture{}
	d := NewDesktop(cfg, nil)
	d.messages = indicatorMessages(localeEnglish)
	d.notify = func(title, message string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.notices = append(c.notices, title+": "+message)
		return nil
	}
	d.alert = func(title, message string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.alerts = append(c.alerts, title+": "+message)
		return errors.New("no notification daemon")
	}
	d.cue = func(_ context.Context, kind cueKind, _ config.IndicatorConfig) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cues = append(c.cues, kind)
		return nil
	}
	return d, c
}

func TestDesktopDispatchesNotificationsAndCues(t *testing.T) {
	cfg := config.Default().Indicator
	d, c := newTestDesktop(cfg)

	ctx := context.Background()
	d.ShowRecording(ctx)
	d.Wait(time.Second)
	d.ShowTranscribing(ctx)
	d.Wait(time.Second)
	d.ShowComplete(ctx, "Whey Protein")
	d.Wait(time.Second)
	d.ShowError(ctx, "")
	d.Wait(time.Second)

	require.Equal(t, []string{
		"voxsearch: Recording… Say what you want to search for.",
		"voxsearch: Transcribing…",
		"voxsearch: Whey Protein",
	}, c.notices)
	require.Equal(t, []string{"voxsearch: Speech recognition error"}, c.alerts)
	require.Equal(t, []cueKind{cueStart, cueStop, cueComplete, cueError}, c.cues)
}

func TestDesktopDisabledSkipsNotificationsButPlaysCues(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	d, c := newTestDesktop(cfg)

	d.ShowRecording(context.Background())
	d.ShowError(context.Background(), "ignored")
	d.Wait(time.Second)

	require.Empty(t, c.notices)
	require.Empty(t, c.alerts)
	require.Len(t, c.cues, 2)
}

func TestDesktopSoundDisabledSkipsCues(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	d, c := newTestDesktop(cfg)

	d.ShowComplete(context.Background(), "")
	d.Wait(time.Second)

	require.Equal(t, []string{"voxsearch: Transcription complete"}, c.notices)
	require.Empty(t, c.cues)
}

func TestNoopController(t *testing.T) {
	var c Controller = Noop{}
	c.ShowRecording(context.Background())
	c.ShowError(context.Background(), "x")
}
