package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "  ", want: nil},
		{name: "commented out", input: "# pw-play --volume 0.5", want: nil},
		{name: "words", input: "pw-play --media-role Notification", want: []string{"pw-play", "--media-role", "Notification"}},
		{name: "double quotes", input: `paplay --client-name "vox search"`, want: []string{"paplay", "--client-name", "vox search"}},
		{name: "single quotes", input: `aplay -D 'hw:1,0'`, want: []string{"aplay", "-D", "hw:1,0"}},
		{name: "escaped space", input: `play ~/My\ Cues/{file}`, want: []string{"play", "~/My Cues/{file}"}},
		{name: "empty quoted word", input: `cmd "" last`, want: []string{"cmd", "", "last"}},
		{name: "unterminated quote", input: `cmd "oops`, wantErr: `unterminated " quote`},
		{name: "trailing backslash", input: `cmd oops\`, wantErr: "trailing backslash"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommand(tc.input)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.input, got.Raw)
			require.Equal(t, tc.want, got.Argv)
			require.Equal(t, len(tc.want) == 0, got.Empty())
		})
	}
}

func TestMustParseCommandPanics(t *testing.T) {
	require.Panics(t, func() { _ = mustParseCommand(`cmd 'open`) })
}

func TestCommandWithFile(t *testing.T) {
	appended := mustParseCommand("pw-play --volume 0.4")
	require.Equal(t, []string{"pw-play", "--volume", "0.4", "/tmp/a.wav"}, appended.WithFile("/tmp/a.wav"))
	require.Equal(t, []string{"pw-play", "--volume", "0.4"}, appended.Argv)

	placed := mustParseCommand("ffplay -nodisp -autoexit -i {file} -loglevel quiet")
	require.Equal(t,
		[]string{"ffplay", "-nodisp", "-autoexit", "-i", "/tmp/a.wav", "-loglevel", "quiet"},
		placed.WithFile("/tmp/a.wav"),
	)

	inline := mustParseCommand("player --in={file}")
	require.Equal(t, []string{"player", "--in=/tmp/a.wav"}, inline.WithFile("/tmp/a.wav"))
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, home, ExpandHome("~"))
	require.Equal(t, filepath.Join(home, "cues", "start.wav"), ExpandHome(" ~/cues/start.wav "))
	require.Equal(t, "/abs/start.wav", ExpandHome("/abs/start.wav"))
	require.Equal(t, "~other/x", ExpandHome("~other/x"))
	require.Empty(t, ExpandHome(""))
}
