// Package xdg locates per-user pgmembed settings following the XDG Base
// Directory specification.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "pgmembed"

// ConfigHome returns $XDG_CONFIG_HOME, or ~/.config when unset.
func ConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// ConfigDir returns ConfigHome()/pgmembed.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), appName)
}

// ConfigFile returns the user-level defaults file. It may not exist.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
