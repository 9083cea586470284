//go:build linux

package steamcache

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocateCacheDir finds the Steam HTTP cache directory for the current user.
// Only the classic ~/.steam layout is probed; Flatpak and Snap installs keep
// their cache elsewhere and are reported as not found.
func LocateCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	candidates := []string{
		filepath.Join(home, ".steam", "steam", "appcache", "httpcache"),
		filepath.Join(home, ".local", "share", "Steam", "appcache", "httpcache"),
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("steam http cache not found under %s", home)
}
