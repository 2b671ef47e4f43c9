// Package cli parses voxsearch argv into a command and its operands.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandListen     Command = "listen"
	CommandTranscribe Command = "transcribe"
	CommandToggle     Command = "toggle"
	CommandStop       Command = "stop"
	CommandStatus     Command = "status"
	CommandSearch     Command = "search"
	CommandProducts   Command = "products"
	CommandHistory    Command = "history"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// arity is the accepted operand count range for a command. max < 0 means
// unbounded.
type arity struct {
	min int
	max int
}

var validCommands = map[Command]arity{
	CommandListen:     {0, 0},
	CommandTranscribe: {1, 1},
	CommandToggle:     {0, 0},
	CommandStop:       {0, 0},
	CommandStatus:     {0, 0},
	CommandSearch:     {1, -1},
	CommandProducts:   {1, 3},
	CommandHistory:    {0, 0},
	CommandDevices:    {0, 0},
	CommandDoctor:     {0, 0},
	CommandVersion:    {0, 0},
	CommandHelp:       {0, 0},
}

// Product subcommands and their operand counts.
const (
	ProductsList   = "list"
	ProductsGet    = "get"
	ProductsCreate = "create"
	ProductsUpdate = "update"
	ProductsDelete = "delete"
)

var productSubcommands = map[string]int{
	ProductsList:   0,
	ProductsGet:    1,
	ProductsCreate: 1,
	ProductsUpdate: 2,
	ProductsDelete: 1,
}

// DefaultHistoryLimit is the number of history rows shown without --limit.
const DefaultHistoryLimit = 20

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
	NoSearch   bool
	Limit      int
}

// Parse accepts flags anywhere on the command line. The first operand names
// the command; the rest are its arguments. A literal "--" ends flag parsing.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, Limit: DefaultHistoryLimit}
	var operands []string
	helpFlag := false
	versionFlag := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			helpFlag = true
		case "--version":
			versionFlag = true
		case "--no-search":
			parsed.NoSearch = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--limit":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--limit requires a number")
			}
			limit, err := strconv.Atoi(args[i])
			if err != nil || limit <= 0 {
				return Parsed{}, fmt.Errorf("--limit must be a positive integer, got %q", args[i])
			}
			parsed.Limit = limit
		case "--":
			operands = append(operands, args[i+1:]...)
			i = len(args)
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			operands = append(operands, arg)
		}
	}

	if helpFlag {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		return parsed, nil
	}
	if versionFlag {
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
		return parsed, nil
	}
	if len(operands) == 0 {
		return parsed, nil
	}

	cmd := Command(operands[0])
	want, ok := validCommands[cmd]
	if !ok {
		return Parsed{}, fmt.Errorf("unknown command: %s", operands[0])
	}
	rest := operands[1:]
	if len(rest) < want.min {
		return Parsed{}, fmt.Errorf("command %q requires %s", cmd, operandHint(cmd))
	}
	if want.max >= 0 && len(rest) > want.max {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", cmd)
	}
	if cmd == CommandProducts {
		if err := validateProducts(rest); err != nil {
			return Parsed{}, err
		}
	}

	parsed.Command = cmd
	parsed.Args = rest
	parsed.ShowHelp = cmd == CommandHelp
	return parsed, nil
}

func validateProducts(args []string) error {
	sub := args[0]
	want, ok := productSubcommands[sub]
	if !ok {
		return fmt.Errorf("unknown products subcommand: %s", sub)
	}
	if got := len(args) - 1; got != want {
		return fmt.Errorf("products %s expects %d argument(s), got %d", sub, want, got)
	}
	return nil
}

func operandHint(cmd Command) string {
	switch cmd {
	case CommandTranscribe:
		return "an audio FILE"
	case CommandSearch:
		return "query TEXT"
	case CommandProducts:
		return "a subcommand (list|get|create|update|delete)"
	default:
		return "arguments"
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] <command> [args]

Commands:
  listen                  Record a spoken query, transcribe it, and run AI search
  transcribe FILE         Transcribe an existing audio file
  toggle                  Start listening, or stop the running session
  stop                    Stop the running session's recording
  status                  Print the running session's state and progress
  search TEXT...          Run AI search for a typed product name
  products list           List catalog products
  products get ID         Show one product
  products create FILE    Create a product from a JSON file
  products update ID FILE Update a product from a JSON file
  products delete ID      Delete a product
  history                 Show recent queries
  devices                 List available input devices
  doctor                  Run configuration and environment checks
  version                 Print version information
  help                    Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voxsearch/config.jsonc)
  --no-search     Print the transcript without running AI search
  --limit N       Number of history entries to show (default: %[2]d)
  -h, --help      Show help
  --version       Show version
`, binaryName, DefaultHistoryLimit)
}
