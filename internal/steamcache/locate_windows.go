//go:build windows

package steamcache

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// LocateCacheDir finds the Steam HTTP cache directory. The registry knows the
// install path for non-default installs; the Program Files locations cover
// the default ones.
func LocateCacheDir() (string, error) {
	var roots []string

	if path, err := steamPathFromRegistry(); err == nil {
		roots = append(roots, path)
	}
	if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
		roots = append(roots, filepath.Join(pf, "Steam"))
	}
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		roots = append(roots, filepath.Join(pf, "Steam"))
	}

	for _, root := range roots {
		dir := filepath.Join(root, "appcache", "httpcache")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("steam http cache not found in %d candidate locations", len(roots))
}

func steamPathFromRegistry() (string, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, `Software\Valve\Steam`, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer key.Close()

	path, _, err := key.GetStringValue("SteamPath")
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(path), nil
}
