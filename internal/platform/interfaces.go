// Package platform abstracts the packet capture backend across operating
// systems. The capture loop is written once against CaptureProvider; each
// platform supplies one implementation (libpcap on Linux, Npcap on Windows).
package platform

import "errors"

// ErrReadTimeout signals that no frame arrived within the backend's read
// timeout. It means "no data yet", not failure; callers just poll again.
var ErrReadTimeout = errors.New("packet read timed out")

// CaptureProvider yields raw frame payloads from a capture backend.
//
// ReadFrame blocks up to the backend's read timeout and returns the next raw
// frame exactly as captured (link-layer framed or raw IP, depending on the
// backend). It returns ErrReadTimeout when no frame arrived; any other error
// means the source has failed and the whole capture loop must be restarted.
type CaptureProvider interface {
	// Open initializes capture on the interface. An empty name selects a
	// device automatically.
	Open(interfaceName string, promiscuous bool, filter string) error

	// ReadFrame returns the next raw frame payload
	ReadFrame() ([]byte, error)

	// Close releases capture resources
	Close() error

	// Stats returns capture statistics
	Stats() (CaptureStats, error)
}

// CaptureStats contains capture statistics
type CaptureStats struct {
	FramesCaptured uint64
	FramesDropped  uint64
}
