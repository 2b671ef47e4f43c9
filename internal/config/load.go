package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
	EnvFiles []string
}

// Load resolves, reads, parses, and validates the runtime configuration, then
// overlays process environment and .env files.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded, err := loadFile(resolvedPath)
	if err != nil {
		return Loaded{}, err
	}

	env, envFiles, err := ReadDotEnv(dotEnvCandidates(resolvedPath)...)
	if err != nil {
		return Loaded{}, err
	}
	loaded.EnvFiles = envFiles

	loaded.Warnings = append(loaded.Warnings, ApplyEnv(&loaded.Config, envLookup(env))...)
	if _, err := Validate(loaded.Config); err != nil {
		return Loaded{}, fmt.Errorf("config after environment overlay: %w", err)
	}
	return loaded, nil
}

func loadFile(resolvedPath string) (Loaded, error) {
	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// dotEnvCandidates lists .env files beside the config file and in the working directory.
func dotEnvCandidates(configPath string) []string {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env")}
	if wd, err := os.Getwd(); err == nil {
		local := filepath.Join(wd, ".env")
		if local != candidates[0] {
			candidates = append(candidates, local)
		}
	}
	return candidates
}
