// Package systemd reports service state to systemd via sd_notify.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends state changes to the service manager. Outside systemd
// (no NOTIFY_SOCKET) every call is a no-op.
type Notifier struct {
	logger   *slog.Logger
	notify   func(state string) (bool, error)
	watchdog func() (time.Duration, error)
}

// NewNotifier creates a notifier bound to the NOTIFY_SOCKET of this process.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		watchdog: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
}

// Ready tells systemd the listener is accepting scrapes.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Reloading marks the start of a configuration reload; call Ready when done.
func (n *Notifier) Reloading() {
	n.send(daemon.SdNotifyReloading)
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
	case sent:
		n.logger.Debug("Notified systemd", "state", state)
	}
}

// RunWatchdog pings the watchdog at half of WatchdogSec until ctx is done.
// It returns immediately when the watchdog is not enabled for this unit.
func (n *Notifier) RunWatchdog(ctx context.Context) {
	interval, err := n.watchdog()
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
