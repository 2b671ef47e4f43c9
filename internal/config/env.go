package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// envBinding maps accepted environment names (first wins) onto one config field.
type envBinding struct {
	names []string
	apply func(*Config, string)
}

var envBindings = []envBinding{
	{
		names: []string{"API_BASE_URL", "VITE_API_BASE_URL"},
		apply: func(c *Config, v string) { c.Catalog.APIBaseURL = v },
	},
	{
		names: []string{"AI_SEARCH_URL", "VITE_AI_SEARCH_URL"},
		apply: func(c *Config, v string) { c.Catalog.AISearchURL = v },
	},
	{
		names: []string{"ASSEMBLYAI_API_KEY", "VITE_ASSEMBLY_API_KEY"},
		apply: func(c *Config, v string) { c.AssemblyAI.APIKey = v },
	},
	{
		names: []string{"VOXSEARCH_ENGINE"},
		apply: func(c *Config, v string) { c.Transcription.Engine = strings.ToLower(v) },
	},
	{
		names: []string{"VOXSEARCH_LOCAL_ENDPOINT"},
		apply: func(c *Config, v string) { c.Local.Endpoint = v },
	},
}

// ReadDotEnv merges the given .env files without touching the process
// environment. Missing files are skipped; earlier files win.
func ReadDotEnv(paths ...string) (map[string]string, []string, error) {
	merged := make(map[string]string)
	var used []string

	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, nil, fmt.Errorf("stat env file %q: %w", path, err)
		}

		values, err := godotenv.Read(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read env file %q: %w", path, err)
		}
		for key, value := range values {
			if _, exists := merged[key]; !exists {
				merged[key] = value
			}
		}
		used = append(used, path)
	}

	return merged, used, nil
}

// ApplyEnv overlays environment values onto cfg. Process environment beats
// .env files because lookup is expected to consult it first.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) []Warning {
	var warnings []Warning
	for _, binding := range envBindings {
		for i, name := range binding.names {
			value, ok := lookup(name)
			value = strings.TrimSpace(value)
			if !ok || value == "" {
				continue
			}
			binding.apply(cfg, value)
			if i > 0 {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("%s is deprecated; use %s", name, binding.names[0])})
			}
			break
		}
	}
	return warnings
}

// envLookup consults the process environment, then the merged .env values.
func envLookup(fileValues map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return value, true
		}
		value, ok := fileValues[name]
		return value, ok
	}
}
