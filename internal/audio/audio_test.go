package audio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend records every Play call.
type fakeBackend struct {
	mu    sync.Mutex
	plays []fakePlay
	err   error
}

type fakePlay struct {
	path   string
	volume float64
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Play(path string, volume float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays = append(b.plays, fakePlay{path, volume})
	return b.err
}

func (b *fakeBackend) Plays() []fakePlay {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fakePlay(nil), b.plays...)
}

// fakeInvalidator records invalidated paths.
type fakeInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeInvalidator) Invalidate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeInvalidator) Has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.paths {
		if p == path {
			return true
		}
	}
	return false
}

func TestCommand(t *testing.T) {
	tests := []struct {
		goos     string
		volume   float64
		wantName string
		wantArgs []string
	}{
		{"linux", 0.1, "mpg123", []string{"-q", "-f", "3276", "/s/a.mp3"}},
		{"linux", 1, "mpg123", []string{"-q", "-f", "32768", "/s/a.mp3"}},
		{"linux", 0, "mpg123", []string{"-q", "-f", "0", "/s/a.mp3"}},
		{"darwin", 0.125, "afplay", []string{"-v", "0.125", "/s/a.mp3"}},
		{"darwin", 2, "afplay", []string{"-v", "1", "/s/a.mp3"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := Command(tt.goos, "/s/a.mp3", tt.volume)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCommand_Windows(t *testing.T) {
	name, args, err := Command("windows", `C:\hev\it's.mp3`, 0.75)
	require.NoError(t, err)
	assert.Equal(t, "powershell", name)
	require.Len(t, args, 2)
	assert.Equal(t, "-c", args[0])
	assert.Contains(t, args[1], "$wmp.settings.volume = 75;")
	assert.Contains(t, args[1], `$wmp.URL = 'C:\hev\it''s.mp3'`)
	assert.Contains(t, args[1], "playState")
}

func TestCommand_UnsupportedPlatform(t *testing.T) {
	_, _, err := Command("plan9", "/s/a.mp3", 1)
	assert.Error(t, err)
	assert.Empty(t, CommandTool("plan9"))
}

func TestCommandBackend_Play(t *testing.T) {
	b, err := NewCommandBackend("linux", nil)
	require.NoError(t, err)

	var gotName string
	var gotArgs []string
	b.SetRunner(func(name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	})

	require.NoError(t, b.Play("/s/medic_shot.mp3", 0.5))
	assert.Equal(t, "mpg123", gotName)
	assert.Equal(t, []string{"-q", "-f", "16384", "/s/medic_shot.mp3"}, gotArgs)
	assert.Equal(t, "command", b.Name())
}

func TestCommandBackend_WindowsPlayStateIgnored(t *testing.T) {
	b, err := NewCommandBackend("windows", nil)
	require.NoError(t, err)

	b.SetRunner(func(string, ...string) error {
		return errors.New("powershell: exit status 1: The property 'playState' cannot be found")
	})
	assert.NoError(t, b.Play(`C:\a.mp3`, 1))

	b.SetRunner(func(string, ...string) error {
		return errors.New("powershell: exit status 1: access denied")
	})
	assert.Error(t, b.Play(`C:\a.mp3`, 1))
}

func TestCommandBackend_ErrorsPropagateOnLinux(t *testing.T) {
	b, err := NewCommandBackend("linux", nil)
	require.NoError(t, err)
	b.SetRunner(func(string, ...string) error { return errors.New("playState") })
	assert.Error(t, b.Play("/a.mp3", 1))
}

func TestNewBackend(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/mpg123", nil }
	missing := func(string) (string, error) { return "", errors.New("not found") }

	tests := []struct {
		name     string
		kind     string
		goos     string
		lookPath LookPathFunc
		want     string
		wantErr  bool
	}{
		{"auto with player", config.BackendAuto, "linux", found, "command", false},
		{"auto without player", config.BackendAuto, "linux", missing, "native", false},
		{"auto unknown platform", config.BackendAuto, "plan9", found, "native", false},
		{"native", config.BackendNative, "linux", found, "native", false},
		{"command", config.BackendCommand, "darwin", missing, "command", false},
		{"command unknown platform", config.BackendCommand, "plan9", found, "", true},
		{"bogus", "alsa", "linux", found, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.kind, tt.goos, tt.lookPath, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Name())
		})
	}
}

func TestNativeBackend_DecodeErrors(t *testing.T) {
	b := NewNativeBackend(nil)

	err := b.Play(filepath.Join(t.TempDir(), "missing.mp3"), 1)
	assert.ErrorContains(t, err, "failed to open sound file")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))
	err = b.Play(path, 1)
	assert.ErrorContains(t, err, "unsupported audio format")
	assert.False(t, b.Cached(path))

	assert.NoError(t, b.Play("", 1))
}

func TestVolumeToExponent(t *testing.T) {
	assert.InDelta(t, -1.0, volumeToExponent(0.5), 1e-9)
	assert.InDelta(t, -2.0, volumeToExponent(0.25), 1e-9)
	assert.InDelta(t, 0.0, volumeToExponent(1), 1e-9)
	assert.Equal(t, -10.0, volumeToExponent(0))
}

func TestManager_RequestResolvesSound(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.SoundDir = "/snd"
	cfg.Sounds.Volume = 50
	backend := &fakeBackend{}
	m := NewManager(cfg, backend, nil)

	var mu sync.Mutex
	var records []model.PlayRecord
	m.SetPlayedCallback(func(r model.PlayRecord) {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, r)
	})

	req, err := m.Request(model.EventStartup, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, req.Priority)
	assert.NotEmpty(t, req.ID)

	req.Play()
	m.Wait()

	plays := backend.Plays()
	require.Len(t, plays, 1)
	assert.Equal(t, "/snd/hev_logon.mp3", plays[0].path)
	assert.InDelta(t, 0.4, plays[0].volume, 1e-9)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, records, 1)
	assert.Equal(t, req.ID, records[0].ID)
	assert.Equal(t, model.EventStartup, records[0].Event)
	assert.Equal(t, "test", records[0].Source)
	assert.Equal(t, "fake", records[0].Backend)
	assert.NoError(t, records[0].Validate())
}

func TestManager_RequestUnknownEvent(t *testing.T) {
	m := NewManager(config.DefaultConfig(), &fakeBackend{}, nil)
	_, err := m.Request("explosion", "test")
	assert.ErrorIs(t, err, model.ErrUnknownEvent)
}

func TestManager_PlaybackErrorsAreSwallowed(t *testing.T) {
	backend := &fakeBackend{err: errors.New("no audio device")}
	m := NewManager(config.DefaultConfig(), backend, nil)

	req, err := m.Request(model.EventFileSave, "test")
	require.NoError(t, err)
	require.NotPanics(t, req.Play)
	m.Wait()
	assert.Len(t, backend.Plays(), 1)
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager(config.DefaultConfig(), &fakeBackend{}, nil)

	cfg := config.DefaultConfig()
	cfg.Events[model.EventFileSave] = config.EventConfig{Enabled: true, File: "/x/save.wav", Volume: 1, Priority: 3}
	m.UpdateConfig(cfg)

	sound, err := m.Resolve(model.EventFileSave)
	require.NoError(t, err)
	assert.Equal(t, "/x/save.wav", sound.File)
	assert.Equal(t, 3, sound.Priority)
}

func TestWatcher_InvalidatesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	inv := &fakeInvalidator{}
	w := NewWatcher(inv, nil)

	require.NoError(t, w.Start(t.Context(), dir))
	defer w.Stop()
	assert.True(t, w.IsRunning())

	path := filepath.Join(dir, "medic_shot.mp3")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	assert.Eventually(t, func() bool { return inv.Has(path) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(&fakeInvalidator{}, nil)
	require.NoError(t, w.Start(t.Context(), filepath.Join(t.TempDir(), "nope")))
	w.Stop()
	w.Stop()
	assert.False(t, w.IsRunning())
}

func TestManager_StartWatchesNativeCache(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.SoundDir = t.TempDir()
	native := NewNativeBackend(nil)
	m := NewManager(cfg, native, nil)

	require.NoError(t, m.Start(t.Context()))
	m.Stop()
}

// preloadBackend is a fakeBackend that also records preloads.
type preloadBackend struct {
	fakeBackend
	mu      sync.Mutex
	loaded  []string
	missing string
}

func (b *preloadBackend) Preload(path string) error {
	if filepath.Base(path) == b.missing {
		return os.ErrNotExist
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = append(b.loaded, path)
	return nil
}

func TestManager_Preload(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.SoundDir = "/opt/hev/audio"
	cfg.SetEventEnabled(model.EventTabSwitch, false)

	backend := &preloadBackend{missing: "medic_shot.mp3"}
	m := NewManager(cfg, backend, nil)

	// Every event but the disabled one and the missing file.
	assert.Equal(t, len(model.AllEvents())-2, m.Preload())
	assert.Contains(t, backend.loaded, "/opt/hev/audio/hev_logon.mp3")
	assert.NotContains(t, backend.loaded, "/opt/hev/audio/button_roll_over.mp3")
}

func TestManager_PreloadUnsupported(t *testing.T) {
	m := NewManager(config.DefaultConfig(), &fakeBackend{}, nil)
	assert.Zero(t, m.Preload())
}

// gateBackend blocks every Play until release is closed.
type gateBackend struct {
	fakeBackend
	started chan struct{}
	release chan struct{}
}

func (b *gateBackend) Play(path string, volume float64) error {
	b.started <- struct{}{}
	<-b.release
	return b.fakeBackend.Play(path, volume)
}

func TestManager_StopWaitsForPlayingAndDropsLaterFires(t *testing.T) {
	backend := &gateBackend{started: make(chan struct{}, 1), release: make(chan struct{})}
	m := NewManager(config.DefaultConfig(), backend, nil)

	playing, err := m.Request(model.EventStartup, "test")
	require.NoError(t, err)
	late, err := m.Request(model.EventFileSave, "test")
	require.NoError(t, err)

	playing.Play()
	<-backend.started

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.stopped
	}, time.Second, time.Millisecond)

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sound was playing")
	case <-time.After(20 * time.Millisecond):
	}

	// A fire that raced past the arbiter while Stop is waiting.
	late.Play()

	close(backend.release)
	<-stopped

	plays := backend.Plays()
	require.Len(t, plays, 1)
	assert.Equal(t, "hev_logon.mp3", filepath.Base(plays[0].path))

	// And one that fires after Stop has returned.
	late.Play()
	m.Wait()
	assert.Len(t, backend.Plays(), 1)
}
