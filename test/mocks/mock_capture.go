// Package mocks provides test doubles for the platform interfaces.
package mocks

import (
	"errors"
	"sync"

	"github.com/deadlock-api/deadlock-ingest/internal/platform"
)

// ErrSourceClosed is returned once a MockCaptureProvider runs out of frames,
// ending the capture session the way a failed real source would.
var ErrSourceClosed = errors.New("mock capture source closed")

// MockCaptureProvider implements platform.CaptureProvider over a fixed list
// of frames. Nil frames in the list are reported as read timeouts.
type MockCaptureProvider struct {
	mu      sync.Mutex
	frames  [][]byte
	pos     int
	opened  bool
	OpenErr error
}

// NewMockCaptureProvider creates a provider that yields the given frames in
// order and then fails with ErrSourceClosed.
func NewMockCaptureProvider(frames [][]byte) *MockCaptureProvider {
	return &MockCaptureProvider{frames: frames}
}

// Open records the open; it fails with OpenErr when set
func (m *MockCaptureProvider) Open(interfaceName string, promiscuous bool, filter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.opened = true
	return nil
}

// ReadFrame returns the next queued frame
func (m *MockCaptureProvider) ReadFrame() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return nil, errors.New("mock capture provider not open")
	}
	if m.pos >= len(m.frames) {
		return nil, ErrSourceClosed
	}
	frame := m.frames[m.pos]
	m.pos++
	if frame == nil {
		return nil, platform.ErrReadTimeout
	}
	return frame, nil
}

// Close marks the provider closed
func (m *MockCaptureProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}

// Stats reports how many frames have been read so far
func (m *MockCaptureProvider) Stats() (platform.CaptureStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return platform.CaptureStats{FramesCaptured: uint64(m.pos)}, nil
}
