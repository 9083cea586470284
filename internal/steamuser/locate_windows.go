//go:build windows

package steamuser

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

// LocateLoginUsers finds the loginusers.vdf for the local Steam install
func LocateLoginUsers() (string, error) {
	var roots []string

	if key, err := registry.OpenKey(registry.CURRENT_USER, `Software\Valve\Steam`, registry.QUERY_VALUE); err == nil {
		if path, _, err := key.GetStringValue("SteamPath"); err == nil {
			roots = append(roots, filepath.FromSlash(path))
		}
		key.Close()
	}
	if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
		roots = append(roots, filepath.Join(pf, "Steam"))
	}
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		roots = append(roots, filepath.Join(pf, "Steam"))
	}

	for _, root := range roots {
		path := filepath.Join(root, "config", "loginusers.vdf")
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("loginusers.vdf not found in %d candidate locations", len(roots))
}
