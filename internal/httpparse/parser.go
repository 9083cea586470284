// Package httpparse locates and parses HTTP GET requests inside reassembled
// packet payloads.
//
// The input is an untrusted byte blob: the request may start anywhere in the
// buffer, may be truncated mid-header, and may use obsolete line folding
// (RFC 7230 section 3.2.4) where a header value continues on the next line
// behind leading whitespace. Parsing is heuristic and total: anything that
// does not look like a GET request simply yields no result.
package httpparse

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

const (
	// scanCap bounds the "GET " search window. Buffers are attacker-influenced
	// and may be large; scanning must stay cheap per packet.
	scanCap = 4096

	// partialCap bounds the region returned when the terminating blank line
	// has not arrived yet.
	partialCap = 1024
)

var (
	getPrefix  = []byte("GET ")
	headersEnd = []byte("\r\n\r\n")
)

// ExtractURL locates a GET request in data and resolves its absolute URL.
// It returns false when no complete-enough request is present; the caller is
// expected to wait for more bytes or discard the buffer.
func ExtractURL(data []byte) (string, bool) {
	region, ok := FindRequest(data)
	if !ok {
		return "", false
	}
	return ResolveURL(region)
}

// FindRequest returns the request region inside data as a string: everything
// from "GET " up to and including the header-terminating CRLFCRLF. When the
// header block has not fully arrived, a best-effort prefix capped at
// partialCap bytes is returned instead. Invalid UTF-8 is replaced, never
// rejected.
func FindRequest(data []byte) (string, bool) {
	window := data
	if len(window) > scanCap {
		window = window[:scanCap]
	}

	pos := bytes.Index(window, getPrefix)
	if pos < 0 {
		return "", false
	}

	region := data[pos:]
	if end := bytes.Index(region, headersEnd); end >= 0 {
		region = region[:end+len(headersEnd)]
	} else if len(region) > partialCap {
		region = region[:partialCap]
	}

	s := string(region)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return s, true
}

// ResolveURL resolves the effective absolute URL of a request region. This is
// the single canonical resolution rule: an absolute http(s) request target
// wins outright; otherwise the URL is composed from the first Host header and
// the target with its leading slashes stripped. Targets and hosts may contain
// a space injected by header unfolding; that is legal here and stripped only
// at the identifier-parsing stage.
func ResolveURL(httpData string) (string, bool) {
	unfolded := UnfoldHeaders(httpData)
	lines := splitLines(unfolded)
	if len(lines) == 0 {
		return "", false
	}

	fields := strings.Fields(strings.TrimSpace(lines[0]))
	if len(fields) < 2 {
		return "", false
	}

	target := strings.TrimLeft(fields[1], "/")
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target, true
	}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			break // end of headers
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "host") {
			return "http://" + strings.TrimSpace(value) + "/" + target, true
		}
	}

	return "", false
}

// UnfoldHeaders rewrites obsolete line folding: any line beginning with a
// space or tab is a continuation of the previous header value and is joined
// to it with exactly one space. The request line is never folded.
func UnfoldHeaders(httpData string) string {
	lines := splitLines(httpData)
	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(httpData))
	b.WriteString(lines[0])
	b.WriteString("\r\n")

	var current string
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			current += " " + strings.TrimSpace(line)
			continue
		}
		if current != "" {
			b.WriteString(current)
			b.WriteString("\r\n")
		}
		current = line
	}
	if current != "" {
		b.WriteString(current)
		b.WriteString("\r\n")
	}

	return b.String()
}

// splitLines splits on LF and drops a trailing CR from each line, mirroring
// how HTTP header blocks are conventionally walked. A trailing empty segment
// after the final newline is dropped.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
