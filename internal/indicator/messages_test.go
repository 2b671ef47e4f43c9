package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocale(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
	require.Equal(t, localePortuguese, resolveLocale("pt_BR.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale(""))
}

func TestIndicatorMessages(t *testing.T) {
	en := indicatorMessages(localeEnglish)
	require.Equal(t, "Transcribing…", en.transcribing)
	require.Equal(t, "Speech recognition error", en.errorText)

	pt := indicatorMessages(localePortuguese)
	require.Equal(t, "Erro no reconhecimento de fala", pt.errorText)
	require.NotEqual(t, en.recording, pt.recording)
}

func TestIndicatorMessagesFromEnvPrefersLCMessages(t *testing.T) {
	t.Setenv("LANG", "en_US.UTF-8")
	t.Setenv("LC_MESSAGES", "pt_BR.UTF-8")
	require.Equal(t, indicatorMessages(localePortuguese), indicatorMessagesFromEnv())
}
