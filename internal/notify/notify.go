// Package notify sends hevsound's own desktop notifications through the
// org.freedesktop.Notifications service.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
)

const (
	notificationsName   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsMethod = notificationsName + ".Notify"

	appName = "hevsound"
)

// Level indicates the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notification is a desktop notification.
type Notification struct {
	AppName       string
	AppIcon       string
	Summary       string
	Body          string
	Hints         map[string]godbus.Variant
	ExpireTimeout int32 // milliseconds, -1 for the server default
}

// Sender delivers a notification and returns its server ID.
type Sender interface {
	Send(n *Notification) (uint32, error)
}

// BusSender sends notifications over a D-Bus connection.
type BusSender struct {
	conn *godbus.Conn
}

// NewBusSender connects to the session bus.
func NewBusSender() (*BusSender, error) {
	conn, err := godbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &BusSender{conn: conn}, nil
}

// Send calls Notify on the notification server.
func (s *BusSender) Send(n *Notification) (uint32, error) {
	obj := s.conn.Object(notificationsName, notificationsPath)
	call := obj.Call(notificationsMethod, 0,
		n.AppName,
		uint32(0),
		n.AppIcon,
		n.Summary,
		n.Body,
		[]string{},
		n.Hints,
		n.ExpireTimeout,
	)
	if call.Err != nil {
		return 0, fmt.Errorf("notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to read notification id: %w", err)
	}
	return id, nil
}

// Close closes the bus connection.
func (s *BusSender) Close() error {
	return s.conn.Close()
}

// Notifier sends rate-limited notifications. A nil sender or a disabled
// notifier only logs.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender Sender
	now    func() time.Time

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
}

// NewNotifier creates a new Notifier.
func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		sender:         sender,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the same key.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless one with the same key was sent
// within the minimum interval. It reports whether a notification was sent.
func (n *Notifier) Notify(key, summary, body string, level Level) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return false
	}
	if n.sender == nil {
		n.logger.Debug("notification skipped: no sender", "summary", summary)
		return false
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.logger.Debug("notification rate-limited", "key", key, "summary", summary)
		return false
	}
	n.lastNotifyTime[key] = now

	urgency := byte(1)
	icon := "dialog-warning"
	switch level {
	case LevelInfo:
		urgency = 0
		icon = "dialog-information"
	case LevelError:
		urgency = 2
		icon = "dialog-error"
	}

	notification := &Notification{
		AppName: appName,
		AppIcon: icon,
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(urgency),
			"transient":     godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant(appName),
		},
		ExpireTimeout: 5000,
	}

	n.logger.Debug("sending notification", "key", key, "summary", summary, "level", level)
	if _, err := n.sender.Send(notification); err != nil {
		n.logger.Warn("failed to send notification", "key", key, "error", err)
		return false
	}
	return true
}

// NotifyDependencyMissing tells the user a required player is not installed.
func (n *Notifier) NotifyDependencyMissing(tool, remediation string) {
	body := fmt.Sprintf("HEV System: '%s' is required for sounds.", tool)
	if remediation != "" {
		body += " How to install? " + remediation
	}
	n.Notify("dependency-missing", "Missing sound player", body, LevelError)
}

// NotifyWelcome shows the one-time welcome message.
func (n *Notifier) NotifyWelcome() {
	n.Notify("welcome", "HEV System online",
		"Editor sounds are active. Run 'hevsound settings' to choose which events play.",
		LevelInfo)
}

// NotifySounds reports a change of the master switch.
func (n *Notifier) NotifySounds(enabled bool) {
	n.Notify("sounds", SoundsMessage(enabled), "", LevelInfo)
}

// NotifyConfigError reports a configuration that failed to load.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(), LevelWarning)
}

// SoundsMessage is the text shown when all sounds are switched on or off.
func SoundsMessage(enabled bool) string {
	if enabled {
		return "HEV System sounds ACTIVATED."
	}
	return "HEV System sounds DEACTIVATED."
}
