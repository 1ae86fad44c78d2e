package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/hevsound/internal/model"
)

// Service implements the hevsound D-Bus interface.
type Service struct {
	mu      sync.RWMutex
	conn    *dbus.Conn
	logger  *slog.Logger
	handler Handler
	running bool
}

// methods is the object exported on the bus. Only its methods are
// callable remotely.
type methods struct {
	s *Service
}

// NewService creates a new Service backed by handler.
func NewService(handler Handler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger,
		handler: handler,
	}
}

// Start connects to the session bus, exports the service and claims the
// bus name.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("service already running")
	}
	s.mu.Unlock()

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(&methods{s: s}, Path, Interface); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: serviceMethods(),
				Signals: serviceSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("bus name %s already taken (is hevsoundd already running?)", BusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus service started", "name", BusName, "path", Path)
	return nil
}

// Stop releases the bus name and closes the connection.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	err := s.conn.Close()
	s.conn = nil

	s.logger.Info("D-Bus service stopped")
	return err
}

// Emit requests the sound for an event.
// D-Bus method: Emit(s) -> b
func (m *methods) Emit(event string) (bool, *dbus.Error) {
	accepted, err := m.s.emit(event, SourceDBus)
	if err != nil {
		return false, failed(err)
	}
	return accepted, nil
}

// EmitFrom is Emit with the caller naming its source, e.g. "vscode".
// D-Bus method: EmitFrom(ss) -> b
func (m *methods) EmitFrom(event, source string) (bool, *dbus.Error) {
	accepted, err := m.s.emit(event, source)
	if err != nil {
		return false, failed(err)
	}
	return accepted, nil
}

// SetEnabled sets the master switch.
// D-Bus method: SetEnabled(b)
func (m *methods) SetEnabled(enabled bool) *dbus.Error {
	m.s.logger.Debug("SetEnabled called", "enabled", enabled)
	if err := m.s.handler.SetSoundsEnabled(enabled, SourceDBus); err != nil {
		return failed(err)
	}
	return nil
}

// GetStatus returns the master switch, the last played event, when it
// played in Unix milliseconds, whether a sound is pending in the arbiter
// and the arbiter's last scheduled priority.
// D-Bus method: GetStatus() -> (bsxbi)
func (m *methods) GetStatus() (bool, string, int64, bool, int32, *dbus.Error) {
	st := m.s.handler.Status()
	return st.Enabled, string(st.LastEvent), st.LastPlayedAt, st.Pending, int32(st.LastPriority), nil
}

func (s *Service) emit(event, source string) (bool, error) {
	kind, err := model.ParseEventKind(event)
	if err != nil {
		return false, err
	}
	if source == "" {
		source = SourceDBus
	}

	s.logger.Debug("Emit called", "event", kind, "source", source)
	return s.handler.Dispatch(kind, source)
}

// serviceMethods returns the D-Bus method introspection data.
func serviceMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Emit",
			Args: []introspect.Arg{
				{Name: "event", Type: "s", Direction: "in"},
				{Name: "accepted", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "EmitFrom",
			Args: []introspect.Arg{
				{Name: "event", Type: "s", Direction: "in"},
				{Name: "source", Type: "s", Direction: "in"},
				{Name: "accepted", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "SetEnabled",
			Args: []introspect.Arg{
				{Name: "enabled", Type: "b", Direction: "in"},
			},
		},
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "enabled", Type: "b", Direction: "out"},
				{Name: "last_event", Type: "s", Direction: "out"},
				{Name: "last_played_at", Type: "x", Direction: "out"},
				{Name: "pending", Type: "b", Direction: "out"},
				{Name: "last_priority", Type: "i", Direction: "out"},
			},
		},
	}
}

// serviceSignals returns the D-Bus signal introspection data.
func serviceSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SoundPlayedSignal,
			Args: []introspect.Arg{
				{Name: "event", Type: "s"},
			},
		},
	}
}
