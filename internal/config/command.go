package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// FilePlaceholder marks where a command takes its file operand. Commands
// without it get the file appended.
const FilePlaceholder = "{file}"

// ParseCommand splits a shell-like command line into argv. Single and double
// quotes group words and a backslash escapes the next rune. A line starting
// with '#' is treated as commented out and yields an empty command.
func ParseCommand(raw string) (CommandConfig, error) {
	cmd := CommandConfig{Raw: raw}
	line := strings.TrimSpace(raw)
	if line == "" || line[0] == '#' {
		return cmd, nil
	}

	var (
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped, inWord = true, true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				cmd.Argv = append(cmd.Argv, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return CommandConfig{}, fmt.Errorf("trailing backslash in command %q", raw)
	case quote != 0:
		return CommandConfig{}, fmt.Errorf("unterminated %c quote in command %q", quote, raw)
	}
	if inWord {
		cmd.Argv = append(cmd.Argv, word.String())
	}
	return cmd, nil
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

// Empty reports whether the command has nothing to run.
func (c CommandConfig) Empty() bool {
	return len(c.Argv) == 0
}

// WithFile returns the argv to run against file, substituting every
// FilePlaceholder or appending file when there is none.
func (c CommandConfig) WithFile(file string) []string {
	argv := make([]string, 0, len(c.Argv)+1)
	substituted := false
	for _, arg := range c.Argv {
		if strings.Contains(arg, FilePlaceholder) {
			arg = strings.ReplaceAll(arg, FilePlaceholder, file)
			substituted = true
		}
		argv = append(argv, arg)
	}
	if !substituted {
		argv = append(argv, file)
	}
	return argv
}

// ExpandHome resolves a leading "~" against the user's home directory.
func ExpandHome(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
