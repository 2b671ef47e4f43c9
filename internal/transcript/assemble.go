// Package transcript assembles recognized segments into a search query.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options controls transcript assembly formatting behavior.
type Options struct {
	// TrimTerminalPunctuation drops trailing sentence punctuation the engine
	// adds to short utterances ("Whey protein." becomes "Whey protein").
	TrimTerminalPunctuation bool
	CapitalizeFirst         bool
}

// QueryOptions are the options used for catalog search queries.
var QueryOptions = Options{TrimTerminalPunctuation: true}

// Assemble merges continuation segments, joins them, and applies normalization.
func Assemble(segments []string, opts Options) string {
	merged := MergeSegments(segments)
	if len(merged) == 0 {
		return ""
	}

	normalized := cleanSegment(strings.Join(merged, " "))
	if normalized == "" {
		return ""
	}

	if opts.TrimTerminalPunctuation {
		normalized = strings.TrimRightFunc(normalized, func(r rune) bool {
			return r == '.' || r == '!' || r == '?' || r == ',' || r == ';' || r == '…'
		})
		normalized = strings.TrimSpace(normalized)
	}
	if opts.CapitalizeFirst {
		normalized = capitalizeFirst(normalized)
	}
	return normalized
}

func capitalizeFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}
