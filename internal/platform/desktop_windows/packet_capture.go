//go:build windows

// Package desktop_windows implements packet capture for Windows using Npcap
// via gopacket. Depending on the driver configuration frames may arrive
// link-layer framed or as raw IP packets; the stream identifier downstream
// handles both framings.
package desktop_windows

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/deadlock-api/deadlock-ingest/internal/platform"
)

const (
	snapshotLen = 65536
	readTimeout = 100 * time.Millisecond
)

// WindowsPacketCapture implements platform.CaptureProvider on top of Npcap
type WindowsPacketCapture struct {
	handle   *pcap.Handle
	captured uint64
}

// NewWindowsPacketCapture creates a Windows packet capture provider
func NewWindowsPacketCapture() *WindowsPacketCapture {
	return &WindowsPacketCapture{}
}

// IsNpcapInstalled checks for the Npcap service
func IsNpcapInstalled() bool {
	output, err := exec.Command("sc", "query", "npcap").CombinedOutput()
	if err != nil {
		return false
	}
	return strings.Contains(string(output), "SERVICE_NAME: npcap")
}

// NpcapInstallationGuidance returns instructions for installing Npcap
func NpcapInstallationGuidance() string {
	return `Npcap is required for packet capture on Windows.

Download and install it from https://npcap.com/#download, keep
"WinPcap API-compatible Mode" enabled during installation, then restart
the application.`
}

// Open initializes capture. An empty interface name picks the first usable
// device with an address.
func (w *WindowsPacketCapture) Open(interfaceName string, promiscuous bool, filter string) error {
	if !IsNpcapInstalled() {
		return fmt.Errorf("npcap is not installed: %s", NpcapInstallationGuidance())
	}

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

	w.handle = handle
	return nil
}

// ReadFrame returns the next raw frame payload
func (w *WindowsPacketCapture) ReadFrame() ([]byte, error) {
	data, _, err := w.handle.ReadPacketData()
	if err != nil {
		if err == pcap.NextErrorTimeoutExpired {
			return nil, platform.ErrReadTimeout
		}
		return nil, fmt.Errorf("failed to read packet: %w", err)
	}
	w.captured++
	return data, nil
}

// Close releases the pcap handle
func (w *WindowsPacketCapture) Close() error {
	if w.handle != nil {
		w.handle.Close()
		w.handle = nil
	}
	return nil
}

// Stats returns capture statistics
func (w *WindowsPacketCapture) Stats() (platform.CaptureStats, error) {
	stats := platform.CaptureStats{FramesCaptured: w.captured}
	if w.handle != nil {
		if hs, err := w.handle.Stats(); err == nil {
			stats.FramesDropped = uint64(hs.PacketsDropped)
		}
	}
	return stats, nil
}

func lookupDevice() (string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return "", fmt.Errorf("failed to list capture devices: %w", err)
	}

	for _, dev := range devices {
		if len(dev.Addresses) == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Description), "loopback") {
			continue
		}
		return dev.Name, nil
	}
	return "", fmt.Errorf("no usable capture device found")
}
