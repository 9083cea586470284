// Package steamcache recovers replay URLs from Steam's on-disk HTTP cache.
//
// Steam keeps downloaded HTTP responses under appcache/httpcache, with the
// original request URL embedded somewhere in each cache file. Scanning those
// files catches replay downloads the live capture missed, for example when
// the sensor started after the download, and it works without any capture
// driver at all. Files are binary; the scanner looks for the replay host
// marker and carves a bounded URL around it rather than parsing the format.
package steamcache

import (
	"bytes"
	"os"
)

const (
	hostMarker = ".valve.net"
	hostPrefix = "replay"

	// Bounds on the carved pieces. Real hosts are "replay<digits>.valve.net"
	// and real paths are "/<depot>/<match>_<salt>.<kind>.bz2", both far
	// below these.
	maxHostLen = 64
	maxPathLen = 300

	// Cache files over this size are not replay downloads worth scanning
	maxScanFileSize = 8 * 1024 * 1024
)

// ScanBytes extracts candidate replay URLs from one cache file's raw
// contents. Results carry the http:// scheme and still need to pass
// identifier parsing; the carve is deliberately loose.
func ScanBytes(data []byte) []string {
	var urls []string

	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], []byte(hostMarker))
		if i < 0 {
			break
		}
		markerStart := off + i
		off = markerStart + len(hostMarker)

		host, ok := carveHost(data, markerStart)
		if !ok {
			continue
		}
		path, ok := carvePath(data, markerStart+len(hostMarker))
		if !ok {
			continue
		}
		urls = append(urls, "http://"+host+path)
	}

	return urls
}

// ScanFile reads one cache file and extracts candidate replay URLs from it.
// Oversized and unreadable files yield nothing.
func ScanFile(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() || info.Size() > maxScanFileSize {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ScanBytes(data), nil
}

// carveHost walks backward from the ".valve.net" marker over hostname bytes
// and checks the result starts with the replay prefix.
func carveHost(data []byte, markerStart int) (string, bool) {
	start := markerStart
	for start > 0 && isHostByte(data[start-1]) {
		start--
		if markerStart-start > maxHostLen {
			return "", false
		}
	}

	host := data[start : markerStart+len(hostMarker)]
	if !bytes.HasPrefix(host, []byte(hostPrefix)) {
		return "", false
	}
	return string(host), true
}

// carvePath walks forward from the end of the host, expecting a '/' and
// collecting path bytes up to a terminator.
func carvePath(data []byte, pathStart int) (string, bool) {
	if pathStart >= len(data) || data[pathStart] != '/' {
		return "", false
	}

	end := pathStart
	for end < len(data) && isPathByte(data[end]) {
		end++
		if end-pathStart > maxPathLen {
			return "", false
		}
	}
	if end == pathStart+1 {
		// A bare "/" is the host root, not a replay file
		return "", false
	}
	return string(data[pathStart:end]), true
}

func isHostByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '.' || b == '-'
}

func isPathByte(b byte) bool {
	switch b {
	case 0, '\r', '\n', ' ', '\t', '"', '\'', '<', '>':
		return false
	}
	return b >= 0x21 && b <= 0x7E
}
