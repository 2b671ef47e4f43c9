package indicator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/jfreymuth/pulse"

	"github.com/rbright/voxsearch/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueError
)

const (
	cueSampleRate  = 16000
	cueVolume      = 0.18
	cueGap         = 22 * time.Millisecond
	cueRamp        = 5 * time.Millisecond
	cuePlayTimeout = 4 * time.Second
)

// note is one tone of a synthesized cue.
type note struct {
	hz  float64
	dur time.Duration
}

// cue pairs a cue's configured sound file with its built-in melody.
type cue struct {
	file   func(config.IndicatorConfig) string
	melody []note
	pcm    []int16
}

var cues = map[cueKind]*cue{
	cueStart: {
		file:   func(c config.IndicatorConfig) string { return c.SoundStartFile },
		melody: []note{{880, 70 * time.Millisecond}, {1175, 70 * time.Millisecond}},
	},
	cueStop: {
		file:   func(c config.IndicatorConfig) string { return c.SoundStopFile },
		melody: []note{{620, 120 * time.Millisecond}},
	},
	cueComplete: {
		file:   func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
		melody: []note{{740, 65 * time.Millisecond}, {988, 90 * time.Millisecond}},
	},
	cueError: {
		file:   func(c config.IndicatorConfig) string { return c.SoundErrorFile },
		melody: []note{{480, 75 * time.Millisecond}, {360, 90 * time.Millisecond}},
	},
}

func init() {
	for _, c := range cues {
		c.pcm = renderMelody(c.melody, cueVolume)
	}
}

// emitCue plays the cue's sound file through the configured player and falls
// back to the built-in melody over Pulse.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := cues[kind]
	if !ok {
		return nil
	}
	if path := config.ExpandHome(c.file(cfg)); path != "" {
		if err := playCueFile(ctx, cfg.CuePlayer, path); err == nil {
			return nil
		}
	}
	return playPCM(ctx, c.pcm)
}

func playCueFile(ctx context.Context, player config.CommandConfig, path string) error {
	if player.Empty() {
		return errors.New("no cue player configured")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cuePlayTimeout)
	defer cancel()

	argv := player.WithFile(path)
	if err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playPCM(ctx context.Context, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voxsearch"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || len(remaining) == 0 {
			return 0, pulse.EndOfData
		}
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voxsearch cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// renderMelody renders notes back to back with a short silence between them.
func renderMelody(notes []note, volume float64) []int16 {
	var pcm []int16
	for i, n := range notes {
		if i > 0 {
			pcm = append(pcm, make([]int16, sampleCount(cueGap))...)
		}
		pcm = append(pcm, renderNote(n, volume)...)
	}
	return pcm
}

// renderNote renders a sine tone with raised-cosine attack and release ramps.
func renderNote(n note, volume float64) []int16 {
	total := sampleCount(n.dur)
	if total == 0 || n.hz <= 0 || volume <= 0 {
		return nil
	}
	ramp := min(max(total/10, 1), sampleCount(cueRamp))

	pcm := make([]int16, total)
	step := 2 * math.Pi * n.hz / cueSampleRate
	for i := range pcm {
		gain := volume
		if edge := min(i, total-1-i); edge < ramp {
			gain *= 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(ramp))
		}
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * gain * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
