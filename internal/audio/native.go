package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// NativeBackend decodes sounds in-process and plays them through the
// speaker. Decoded sounds are cached by path.
type NativeBackend struct {
	mu     sync.Mutex
	logger *slog.Logger

	initialized bool
	sampleRate  beep.SampleRate

	cacheMu sync.RWMutex
	cache   map[string]*beep.Buffer
}

// NewNativeBackend creates a native backend. The speaker is initialized
// lazily on the first decoded sound.
func NewNativeBackend(logger *slog.Logger) *NativeBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &NativeBackend{
		logger:     logger,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// Name implements Backend.
func (b *NativeBackend) Name() string {
	return "native"
}

// Play plays path at volume and returns once the sound has finished.
func (b *NativeBackend) Play(path string, volume float64) error {
	if path == "" {
		return nil
	}

	buffer, err := b.buffer(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	sampleRate := b.sampleRate
	b.mu.Unlock()

	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())

	if buffer.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buffer.Format().SampleRate, sampleRate, streamer)
	}

	volume = clampVolume(volume)
	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeToExponent(volume),
			Silent:   volume == 0,
		}
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() { close(done) })))
	<-done

	return nil
}

// Preload decodes path into the cache.
func (b *NativeBackend) Preload(path string) error {
	_, err := b.buffer(path)
	if err == nil {
		b.logger.Debug("preloaded sound", "path", path)
	}
	return err
}

func (b *NativeBackend) buffer(path string) (*beep.Buffer, error) {
	b.cacheMu.RLock()
	cached, ok := b.cache[path]
	b.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	buffer, err := b.decode(path)
	if err != nil {
		return nil, err
	}

	b.cacheMu.Lock()
	b.cache[path] = buffer
	b.cacheMu.Unlock()

	return buffer, nil
}

// decode loads and decodes a sound file into a buffer.
func (b *NativeBackend) decode(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	if err := b.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	return buffer, nil
}

// ensureInitialized initializes the speaker if not already done.
func (b *NativeBackend) ensureInitialized(sampleRate beep.SampleRate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	b.sampleRate = sampleRate
	b.initialized = true
	b.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

// Invalidate removes path from the cache.
func (b *NativeBackend) Invalidate(path string) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	delete(b.cache, path)
}

// ClearCache empties the cache.
func (b *NativeBackend) ClearCache() {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	b.cache = make(map[string]*beep.Buffer)
}

// Cached reports whether path is in the cache.
func (b *NativeBackend) Cached(path string) bool {
	b.cacheMu.RLock()
	defer b.cacheMu.RUnlock()
	_, ok := b.cache[path]
	return ok
}

// Close stops all playback and releases the speaker.
func (b *NativeBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		speaker.Close()
		b.initialized = false
	}
	b.ClearCache()
}

func clampVolume(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// volumeToExponent converts a linear volume to a base-2 exponent for
// effects.Volume, so 0.5 is one halving of amplitude.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}
