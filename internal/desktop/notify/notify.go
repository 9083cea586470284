// Package notify shows desktop notifications for events the user should see
// without opening a log file. Notification failures are logged and ignored;
// some desktops have no notification daemon at all.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
)

const appTitle = "Deadlock Ingest"

// The component logger is resolved on first use, after logger.Initialize
// has run, so it inherits the configured level and log file.
var componentLog = sync.OnceValue(func() *logger.Logger {
	return logger.NewComponentLogger("Notify")
})

// Info shows an informational desktop notification
func Info(message string) {
	if err := beeep.Notify(appTitle, message, ""); err != nil {
		componentLog().Debug("Desktop notification failed: %v", err)
	}
}

// Alert shows an attention-demanding desktop notification
func Alert(message string) {
	if err := beeep.Alert(appTitle, message, ""); err != nil {
		componentLog().Debug("Desktop alert failed: %v", err)
	}
}
