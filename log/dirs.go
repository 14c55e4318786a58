package log

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "whisper-flow"

// platformDir returns the conventional log directory for goos:
// ~/Library/Logs on macOS, %LOCALAPPDATA% on Windows and the XDG config
// home elsewhere.
func platformDir(goos, home string, getenv func(string) string) (string, error) {
	switch goos {
	case "darwin":
		if home == "" {
			return "", errors.New("no home directory")
		}
		return filepath.Join(home, "Library", "Logs", appDir), nil
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			if home == "" {
				return "", errors.New("neither LOCALAPPDATA nor a home directory is set")
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, appDir, "logs"), nil
	}
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		if home == "" {
			return "", errors.New("neither XDG_CONFIG_HOME nor a home directory is set")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDir, "logs"), nil
}

func defaultDir() (string, error) {
	home, _ := os.UserHomeDir()
	return platformDir(runtime.GOOS, home, os.Getenv)
}
