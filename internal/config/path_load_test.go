package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolateEnv clears overlay variables and moves into an empty working directory.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, binding := range envBindings {
		for _, name := range binding.names {
			t.Setenv(name, "")
		}
	}
	t.Chdir(t.TempDir())
}

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "voxsearch", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "voxsearch", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
	require.Empty(t, loaded.EnvFiles)
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "transcription": {"engine": "local"},
  "local": {"endpoint": "127.0.0.1:50099"},
  "audio": {
    "input": "default",
    "fallback": "default"
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, EngineLocal, loaded.Config.Transcription.Engine)
	require.Equal(t, "127.0.0.1:50099", loaded.Config.Local.Endpoint)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadOverlaysDotEnvBesideConfig(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"VITE_API_BASE_URL=http://localhost:3000/api\nASSEMBLYAI_API_KEY=from-file\n",
	), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, ".env")}, loaded.EnvFiles)
	require.Equal(t, "http://localhost:3000/api", loaded.Config.Catalog.APIBaseURL)
	require.Equal(t, "from-file", loaded.Config.AssemblyAI.APIKey)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "VITE_API_BASE_URL is deprecated")
}

func TestLoadProcessEnvBeatsDotEnv(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ASSEMBLYAI_API_KEY=from-file\n"), 0o600))
	t.Setenv("ASSEMBLYAI_API_KEY", "from-env")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", loaded.Config.AssemblyAI.APIKey)
}

func TestLoadRejectsInvalidEnvOverlay(t *testing.T) {
	isolateEnv(t)
	t.Setenv("VOXSEARCH_ENGINE", "whisper")

	_, err := Load(filepath.Join(t.TempDir(), "config.jsonc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "environment overlay")
}

func TestReadDotEnvEarlierFilesWin(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("A=1\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("A=2\nB=3\n"), 0o600))

	values, used, err := ReadDotEnv(first, filepath.Join(dir, "missing.env"), second)
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, used)
	require.Equal(t, map[string]string{"A": "1", "B": "3"}, values)
}

func TestApplyEnvPrefersCanonicalName(t *testing.T) {
	cfg := Default()
	values := map[string]string{
		"ASSEMBLYAI_API_KEY":    "canonical",
		"VITE_ASSEMBLY_API_KEY": "legacy",
		"VOXSEARCH_ENGINE":      "LOCAL",
	}
	warnings := ApplyEnv(&cfg, func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
	require.Empty(t, warnings)
	require.Equal(t, "canonical", cfg.AssemblyAI.APIKey)
	require.Equal(t, EngineLocal, cfg.Transcription.Engine)
}
