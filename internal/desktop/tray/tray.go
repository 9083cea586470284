// Package tray provides the system tray shell for the sensor.
//
// The tray is the only user-facing surface of the desktop build: a status
// line with live pipeline counters, a pause toggle, and quit. systray.Run
// must own the main goroutine on every platform, so the rest of the sensor
// runs in the background and the tray drives shutdown through the OnQuit
// callback.
package tray

import (
	"fmt"
	"time"

	"github.com/getlantern/systray"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/sniffer"
)

const statusRefreshInterval = 5 * time.Second

// Options wires the tray to the running sensor
type Options struct {
	Sniffer *sniffer.Sniffer
	Version string
	OnQuit  func()
}

type trayUI struct {
	opts Options
	log  *logger.Logger

	statusItem *systray.MenuItem
	pauseItem  *systray.MenuItem
	quitItem   *systray.MenuItem
}

// Run starts the tray event loop. It blocks until quit and must be called
// from the main goroutine.
func Run(opts Options) {
	ui := &trayUI{opts: opts, log: logger.NewComponentLogger("Tray")}
	systray.Run(ui.onReady, ui.onExit)
}

func (ui *trayUI) onReady() {
	systray.SetTitle("Deadlock Ingest")
	systray.SetTooltip(fmt.Sprintf("Deadlock replay ingest sensor %s", ui.opts.Version))

	ui.statusItem = systray.AddMenuItem("Starting...", "Pipeline status")
	ui.statusItem.Disable()
	systray.AddSeparator()
	ui.pauseItem = systray.AddMenuItem("Pause capture", "Suspend frame processing")
	systray.AddSeparator()
	ui.quitItem = systray.AddMenuItem("Quit", "Stop the sensor")

	go ui.loop()
}

func (ui *trayUI) loop() {
	ticker := time.NewTicker(statusRefreshInterval)
	defer ticker.Stop()

	ui.refreshStatus()
	for {
		select {
		case <-ticker.C:
			ui.refreshStatus()
		case <-ui.pauseItem.ClickedCh:
			ui.togglePause()
		case <-ui.quitItem.ClickedCh:
			ui.log.Info("Quit requested from tray")
			systray.Quit()
			return
		}
	}
}

func (ui *trayUI) refreshStatus() {
	stats := ui.opts.Sniffer.Stats()
	state := "capturing"
	if ui.opts.Sniffer.Paused() {
		state = "paused"
	}
	ui.statusItem.SetTitle(fmt.Sprintf("%s: %d frames, %d URLs",
		state, stats.FramesSeen, stats.URLsRecovered))
}

func (ui *trayUI) togglePause() {
	paused := !ui.opts.Sniffer.Paused()
	ui.opts.Sniffer.SetPaused(paused)
	if paused {
		ui.pauseItem.SetTitle("Resume capture")
		ui.log.Info("Capture paused from tray")
	} else {
		ui.pauseItem.SetTitle("Pause capture")
		ui.log.Info("Capture resumed from tray")
	}
	ui.refreshStatus()
}

func (ui *trayUI) onExit() {
	if ui.opts.OnQuit != nil {
		ui.opts.OnQuit()
	}
}
