package dbus

import (
	"fmt"

	"github.com/jmylchreest/hevsound/internal/model"
)

// EmitSoundPlayed emits the SoundPlayed signal.
func (s *Service) EmitSoundPlayed(kind model.EventKind) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(Path, Interface+"."+SoundPlayedSignal, string(kind)); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", SoundPlayedSignal, err)
	}

	s.logger.Debug("emitted SoundPlayed signal", "event", kind)
	return nil
}
