//go:build linux

package steamuser

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocateLoginUsers finds the loginusers.vdf for the current user's Steam
// install.
func LocateLoginUsers() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	candidates := []string{
		filepath.Join(home, ".steam", "steam", "config", "loginusers.vdf"),
		filepath.Join(home, ".local", "share", "Steam", "config", "loginusers.vdf"),
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("loginusers.vdf not found under %s", home)
}
