//go:build linux

// Package desktop_linux implements packet capture for Linux desktops using
// libpcap via gopacket.
package desktop_linux

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/deadlock-api/deadlock-ingest/internal/platform"
)

const (
	snapshotLen = 65536
	readTimeout = 100 * time.Millisecond
)

// LinuxPacketCapture implements platform.CaptureProvider on top of libpcap
type LinuxPacketCapture struct {
	handle   *pcap.Handle
	captured uint64
}

// NewLinuxPacketCapture creates a Linux packet capture provider
func NewLinuxPacketCapture() *LinuxPacketCapture {
	return &LinuxPacketCapture{}
}

// Open initializes capture. An empty interface name picks the first usable
// non-loopback device with an address.
func (l *LinuxPacketCapture) Open(interfaceName string, promiscuous bool, filter string) error {
	if interfaceName == "" {
		name, err := lookupDevice()
		if err != nil {
			return err
		}
		interfaceName = name
	}

	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, readTimeout)
	if err != nil {
		return fmt.Errorf("failed to open interface %s: %w", interfaceName, err)
	}

	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return fmt.Errorf("failed to set BPF filter %q: %w", filter, err)
		}
	}

	l.handle = handle
	return nil
}

// ReadFrame returns the next raw frame payload
func (l *LinuxPacketCapture) ReadFrame() ([]byte, error) {
	data, _, err := l.handle.ReadPacketData()
	if err != nil {
		if err == pcap.NextErrorTimeoutExpired {
			return nil, platform.ErrReadTimeout
		}
		return nil, fmt.Errorf("failed to read packet: %w", err)
	}
	l.captured++
	return data, nil
}

// Close releases the pcap handle
func (l *LinuxPacketCapture) Close() error {
	if l.handle != nil {
		l.handle.Close()
		l.handle = nil
	}
	return nil
}

// Stats returns capture statistics
func (l *LinuxPacketCapture) Stats() (platform.CaptureStats, error) {
	stats := platform.CaptureStats{FramesCaptured: l.captured}
	if l.handle != nil {
		if hs, err := l.handle.Stats(); err == nil {
			stats.FramesDropped = uint64(hs.PacketsDropped)
		}
	}
	return stats, nil
}

// lookupDevice picks the first non-loopback device that carries an address
func lookupDevice() (string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return "", fmt.Errorf("failed to list capture devices: %w", err)
	}

	for _, dev := range devices {
		if strings.HasPrefix(dev.Name, "lo") || len(dev.Addresses) == 0 {
			continue
		}
		return dev.Name, nil
	}
	return "", fmt.Errorf("no usable capture device found")
}
