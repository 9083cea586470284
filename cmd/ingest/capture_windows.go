//go:build windows

package main

import (
	"github.com/deadlock-api/deadlock-ingest/internal/platform"
	"github.com/deadlock-api/deadlock-ingest/internal/platform/desktop_windows"
)

func newCaptureProvider() platform.CaptureProvider {
	return desktop_windows.NewWindowsPacketCapture()
}

func captureGuidance() string {
	return desktop_windows.NpcapInstallationGuidance()
}
