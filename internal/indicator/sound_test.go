package indicator

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voxsearch/internal/config"
)

func TestEveryCueHasMelody(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueComplete, cueError} {
		require.NotEmpty(t, cues[kind].pcm, "cue %d", kind)
	}
	require.NotContains(t, cues, cueKind(99))
}

func TestRenderMelodyInsertsGap(t *testing.T) {
	notes := []note{{440, 50 * time.Millisecond}, {660, 50 * time.Millisecond}}
	pcm := renderMelody(notes, 0.2)
	require.Len(t, pcm, 2*sampleCount(50*time.Millisecond)+sampleCount(cueGap))

	gapStart := sampleCount(50 * time.Millisecond)
	for _, s := range pcm[gapStart : gapStart+sampleCount(cueGap)] {
		require.Zero(t, s)
	}
}

func TestRenderNoteRampsAndPeak(t *testing.T) {
	pcm := renderNote(note{440, 100 * time.Millisecond}, 0.2)
	require.Len(t, pcm, sampleCount(100*time.Millisecond))
	require.Zero(t, pcm[0])
	require.Zero(t, pcm[len(pcm)-1])

	peak := 0
	for _, s := range pcm {
		peak = max(peak, int(math.Abs(float64(s))))
	}
	require.InDelta(t, 0.2*math.MaxInt16, peak, 0.01*math.MaxInt16)
}

func TestRenderNoteRejectsEmptyNotes(t *testing.T) {
	require.Empty(t, renderNote(note{0, 100 * time.Millisecond}, 0.2))
	require.Empty(t, renderNote(note{440, 0}, 0.2))
	require.Empty(t, renderNote(note{440, 100 * time.Millisecond}, 0))
	require.Zero(t, sampleCount(-time.Second))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, emitCue(ctx, cueStart, config.Default().Indicator), context.Canceled)
}

func TestEmitCuePlaysConfiguredFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, "cues"), 0o700))
	cueFile := filepath.Join(home, "cues", "done.wav")
	require.NoError(t, os.WriteFile(cueFile, []byte("RIFF"), 0o600))

	out := filepath.Join(home, "args.log")
	script := filepath.Join(home, "player.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nprintf '%s\\n' \"$*\" > \""+out+"\"\n"), 0o700))

	player, err := config.ParseCommand(script + " --input {file} --volume 0.5")
	require.NoError(t, err)
	cfg := config.IndicatorConfig{CuePlayer: player, SoundCompleteFile: "~/cues/done.wav"}

	require.NoError(t, emitCue(context.Background(), cueComplete, cfg))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "--input "+cueFile+" --volume 0.5\n", string(data))
}

func TestPlayCueFileErrors(t *testing.T) {
	dir := t.TempDir()
	cueFile := filepath.Join(dir, "start.wav")
	require.NoError(t, os.WriteFile(cueFile, []byte("RIFF"), 0o600))

	require.ErrorContains(t, playCueFile(context.Background(), config.CommandConfig{}, cueFile), "no cue player")

	player, err := config.ParseCommand("true")
	require.NoError(t, err)
	require.ErrorContains(t, playCueFile(context.Background(), player, filepath.Join(dir, "missing.wav")), "stat cue file")

	failing, err := config.ParseCommand("false")
	require.NoError(t, err)
	require.ErrorContains(t, playCueFile(context.Background(), failing, cueFile), "play cue file")
}
