//go:build linux

package main

import (
	"github.com/deadlock-api/deadlock-ingest/internal/platform"
	"github.com/deadlock-api/deadlock-ingest/internal/platform/desktop_linux"
)

func newCaptureProvider() platform.CaptureProvider {
	return desktop_linux.NewLinuxPacketCapture()
}

func captureGuidance() string {
	return "packet capture requires libpcap and CAP_NET_RAW (or root)"
}
