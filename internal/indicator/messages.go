package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish    locale = "en"
	localePortuguese locale = "pt"
)

type messages struct {
	title        string
	recording    string
	transcribing string
	complete     string
	errorText    string
}

func indicatorMessagesFromEnv() messages {
	lang := os.Getenv("LC_MESSAGES")
	if strings.TrimSpace(lang) == "" {
		lang = os.Getenv("LANG")
	}
	return indicatorMessages(resolveLocale(lang))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "pt") {
		return localePortuguese
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localePortuguese:
		return messages{
			title:        "Busca por voz",
			recording:    "Gravando… Fale o que você deseja buscar.",
			transcribing: "Transcrevendo áudio…",
			complete:     "Transcrição concluída",
			errorText:    "Erro no reconhecimento de fala",
		}
	case localeEnglish:
		fallthrough
	default:
		return messages{
			title:        "Voice search",
			recording:    "Recording… Say what you want to search for.",
			transcribing: "Transcribing…",
			complete:     "Transcription complete",
			errorText:    "Speech recognition error",
		}
	}
}
