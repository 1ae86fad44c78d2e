package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/hevsound/internal/model"
)

// Client talks to a running hevsoundd.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{conn: conn, obj: conn.Object(BusName, Path)}, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Running reports whether the daemon owns its bus name.
func (c *Client) Running() bool {
	var has bool
	err := c.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&has)
	return err == nil && has
}

// Emit asks the daemon to play the sound for kind.
func (c *Client) Emit(ctx context.Context, kind model.EventKind, source string) (bool, error) {
	var accepted bool
	call := c.obj.CallWithContext(ctx, Interface+".EmitFrom", 0, string(kind), source)
	if err := call.Store(&accepted); err != nil {
		return false, fmt.Errorf("emit %s: %w", kind, err)
	}
	return accepted, nil
}

// SetEnabled sets the daemon's master switch.
func (c *Client) SetEnabled(ctx context.Context, enabled bool) error {
	if err := c.obj.CallWithContext(ctx, Interface+".SetEnabled", 0, enabled).Err; err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	return nil
}

// GetStatus returns the daemon status.
func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	var (
		st           Status
		lastEvent    string
		lastPriority int32
	)
	call := c.obj.CallWithContext(ctx, Interface+".GetStatus", 0)
	if err := call.Store(&st.Enabled, &lastEvent, &st.LastPlayedAt, &st.Pending, &lastPriority); err != nil {
		return Status{}, fmt.Errorf("get status: %w", err)
	}
	st.LastEvent = model.EventKind(lastEvent)
	st.LastPriority = int(lastPriority)
	return st, nil
}

// WatchPlayed calls fn for every SoundPlayed signal until ctx is done.
func (c *Client) WatchPlayed(ctx context.Context, fn func(model.EventKind)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SoundPlayedSignal),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SoundPlayedSignal, err)
	}
	defer func() { _ = c.conn.RemoveMatchSignal(opts...) }()

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if kind, ok := parseSoundPlayed(sig); ok {
				fn(kind)
			}
		}
	}
}

// parseSoundPlayed extracts the event from a SoundPlayed signal.
func parseSoundPlayed(sig *dbus.Signal) (model.EventKind, bool) {
	if sig == nil || sig.Name != Interface+"."+SoundPlayedSignal || len(sig.Body) < 1 {
		return "", false
	}
	event, ok := sig.Body[0].(string)
	if !ok {
		return "", false
	}
	kind := model.EventKind(event)
	return kind, kind.Valid()
}
