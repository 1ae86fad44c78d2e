package dbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hevsound/internal/model"
)

type dispatched struct {
	kind   model.EventKind
	source string
}

type fakeHandler struct {
	calls   []dispatched
	accept  bool
	enabled bool
	setErr  error
	status  Status
}

func (h *fakeHandler) Dispatch(kind model.EventKind, source string) (bool, error) {
	h.calls = append(h.calls, dispatched{kind, source})
	return h.accept, nil
}

func (h *fakeHandler) SetSoundsEnabled(enabled bool, _ string) error {
	if h.setErr != nil {
		return h.setErr
	}
	h.enabled = enabled
	return nil
}

func (h *fakeHandler) Status() Status { return h.status }

func newTestMethods(h Handler) *methods {
	return &methods{s: NewService(h, nil)}
}

func TestEmit(t *testing.T) {
	h := &fakeHandler{accept: true}
	m := newTestMethods(h)

	accepted, derr := m.Emit("file_save")
	require.Nil(t, derr)
	assert.True(t, accepted)

	accepted, derr = m.Emit("tabSwitch")
	require.Nil(t, derr)
	assert.True(t, accepted)

	require.Len(t, h.calls, 2)
	assert.Equal(t, dispatched{model.EventFileSave, SourceDBus}, h.calls[0])
	assert.Equal(t, model.EventTabSwitch, h.calls[1].kind)
}

func TestEmit_Rejected(t *testing.T) {
	m := newTestMethods(&fakeHandler{accept: false})
	accepted, derr := m.Emit("startup")
	require.Nil(t, derr)
	assert.False(t, accepted)
}

func TestEmit_UnknownEvent(t *testing.T) {
	h := &fakeHandler{accept: true}
	m := newTestMethods(h)

	_, derr := m.Emit("explosion")
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.DBus.Error.Failed", derr.Name)
	assert.Empty(t, h.calls)
}

func TestEmitFrom(t *testing.T) {
	h := &fakeHandler{accept: true}
	m := newTestMethods(h)

	_, derr := m.EmitFrom("terminal_error", "vscode")
	require.Nil(t, derr)
	_, derr = m.EmitFrom("terminal", "")
	require.Nil(t, derr)

	assert.Equal(t, dispatched{model.EventTerminalError, "vscode"}, h.calls[0])
	assert.Equal(t, SourceDBus, h.calls[1].source)
}

func TestSetEnabled(t *testing.T) {
	h := &fakeHandler{}
	m := newTestMethods(h)

	require.Nil(t, m.SetEnabled(true))
	assert.True(t, h.enabled)

	h.setErr = errors.New("disk full")
	assert.NotNil(t, m.SetEnabled(false))
}

func TestGetStatus(t *testing.T) {
	h := &fakeHandler{status: Status{
		Enabled:      true,
		LastEvent:    model.EventFileOpen,
		LastPlayedAt: 1234,
		Pending:      true,
		LastPriority: 2,
	}}
	m := newTestMethods(h)

	enabled, last, at, pending, priority, derr := m.GetStatus()
	require.Nil(t, derr)
	assert.True(t, enabled)
	assert.Equal(t, "file_open", last)
	assert.Equal(t, int64(1234), at)
	assert.True(t, pending)
	assert.Equal(t, int32(2), priority)
}

func TestEmitSoundPlayed_NotConnected(t *testing.T) {
	s := NewService(&fakeHandler{}, nil)
	assert.Error(t, s.EmitSoundPlayed(model.EventStartup))
	assert.NoError(t, s.Stop())
}

func TestParseSoundPlayed(t *testing.T) {
	tests := []struct {
		name   string
		sig    *dbus.Signal
		want   model.EventKind
		wantOK bool
	}{
		{"valid", &dbus.Signal{Name: Interface + ".SoundPlayed", Body: []any{"file_save"}}, model.EventFileSave, true},
		{"nil", nil, "", false},
		{"other member", &dbus.Signal{Name: Interface + ".Other", Body: []any{"file_save"}}, "", false},
		{"empty body", &dbus.Signal{Name: Interface + ".SoundPlayed"}, "", false},
		{"wrong type", &dbus.Signal{Name: Interface + ".SoundPlayed", Body: []any{uint32(1)}}, "", false},
		{"unknown event", &dbus.Signal{Name: Interface + ".SoundPlayed", Body: []any{"boom"}}, "boom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSoundPlayed(tt.sig)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntrospection(t *testing.T) {
	names := make([]string, 0)
	for _, m := range serviceMethods() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Emit", "EmitFrom", "SetEnabled", "GetStatus"}, names)
	assert.Equal(t, SoundPlayedSignal, serviceSignals()[0].Name)
}
