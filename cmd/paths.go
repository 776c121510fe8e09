package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/shieldsec/shield-cli/internal/shared/constants"
)

const (
	appDirName = "shield-cli"

	// dataDirEnvVar overrides every other data directory source.
	dataDirEnvVar = "SHIELD_DATA_DIR"
)

// getDataDir returns the appropriate data directory for the current OS
// following the XDG Base Directory layout on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	if override := os.Getenv(dataDirEnvVar); override != "" {
		baseDir = override
	} else {
		switch runtime.GOOS {
		case "windows":
			// Windows: %LOCALAPPDATA%\shield-cli
			baseDir = os.Getenv("LOCALAPPDATA")
			if baseDir == "" {
				baseDir = os.Getenv("APPDATA")
			}
			if baseDir == "" {
				return "", fmt.Errorf("could not determine Windows data directory")
			}
			baseDir = filepath.Join(baseDir, appDirName)

		case "darwin":
			// macOS: ~/Library/Application Support/shield-cli
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)

		default:
			// Priority: $XDG_DATA_HOME/shield-cli > ~/.local/share/shield-cli
			xdgDataHome := os.Getenv("XDG_DATA_HOME")
			if xdgDataHome != "" {
				baseDir = filepath.Join(xdgDataHome, appDirName)
			} else {
				homeDir, err := os.UserHomeDir()
				if err != nil {
					return "", fmt.Errorf("could not determine home directory: %w", err)
				}
				baseDir = filepath.Join(homeDir, ".local", "share", appDirName)
			}
		}
	}

	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// resolveDataDir prefers an explicitly configured directory over the
// platform default.
func resolveDataDir(configured string) (string, error) {
	if configured == "" || os.Getenv(dataDirEnvVar) != "" {
		return getDataDir()
	}
	if err := os.MkdirAll(configured, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	abs, err := filepath.Abs(configured)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return abs, nil
}

// configFilePath returns the default config location.
func configFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".shield-cli.yaml"
	}
	return filepath.Join(homeDir, ".shield-cli.yaml")
}
