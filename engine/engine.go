// Package engine is a typed Go wrapper over the audio engine's C exports.
//
// An Engine is created from a binding produced by native.Loader:
//
//	binding, err := loader.EnsureLoaded()
//	if err != nil {
//		return err
//	}
//	eng, err := engine.New(binding)
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//
//	if err := eng.LoadFile("track.flac"); err != nil {
//		return err
//	}
//	return eng.Play()
package engine

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contextune/nativeload/native"
)

// Engine owns one native engine instance. Methods are safe for concurrent use.
type Engine struct {
	api    *api
	logger *zap.Logger

	mu          sync.RWMutex
	handle      uintptr
	hasCallback bool
}

// New registers the binding's exports and creates a native engine instance.
func New(b *native.Binding) (*Engine, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: binding is nil", ErrNullPointer)
	}
	a, err := loadAPI(b)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(a, native.Logger())
	if err != nil {
		return nil, err
	}
	e.logger.Debug("audio engine created", zap.String("library", b.Path()), zap.String("strategy", b.Strategy()))
	return e, nil
}

func newEngine(a *api, logger *zap.Logger) (*Engine, error) {
	handle := a.create()
	if handle == 0 {
		return nil, fmt.Errorf("audio_engine_create: %w", ErrInternal)
	}
	return &Engine{
		api:    a,
		logger: logger.Named("engine"),
		handle: handle,
	}, nil
}

// call runs fn with the live handle under the read lock.
func (e *Engine) call(op string, fn func(handle uintptr) int32) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.handle == 0 {
		return ErrClosed
	}
	return check(op, fn(e.handle))
}

// LoadFile opens an audio file for playback.
func (e *Engine) LoadFile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	cpath, err := cString(path)
	if err != nil {
		return err
	}
	err = e.call("audio_engine_load_file", func(h uintptr) int32 {
		return e.api.loadFile(h, cpath)
	})
	runtime.KeepAlive(cpath)
	return err
}

func (e *Engine) Play() error {
	return e.call("audio_engine_play", e.api.play)
}

func (e *Engine) Pause() error {
	return e.call("audio_engine_pause", e.api.pause)
}

func (e *Engine) Stop() error {
	return e.call("audio_engine_stop", e.api.stop)
}

// Seek moves the playback position. Negative positions are rejected.
func (e *Engine) Seek(position time.Duration) error {
	if position < 0 {
		return fmt.Errorf("%w: negative seek position %s", ErrInvalidArgument, position)
	}
	return e.call("audio_engine_seek", func(h uintptr) int32 {
		return e.api.seek(h, position.Seconds())
	})
}

// SetVolume sets the linear gain in [0, 1].
func (e *Engine) SetVolume(volume float64) error {
	if err := validateVolume(volume); err != nil {
		return err
	}
	return e.call("audio_engine_set_volume", func(h uintptr) int32 {
		return e.api.setVolume(h, volume)
	})
}

// SetVolumeRamped moves the gain to volume over ramp.
func (e *Engine) SetVolumeRamped(volume float64, ramp time.Duration) error {
	if err := validateVolume(volume); err != nil {
		return err
	}
	if ramp < 0 || ramp.Milliseconds() > math.MaxUint32 {
		return fmt.Errorf("%w: ramp duration %s out of range", ErrInvalidArgument, ramp)
	}
	millis := uint32(ramp.Milliseconds())
	return e.call("audio_engine_set_volume_ramped", func(h uintptr) int32 {
		return e.api.setVolumeRamped(h, volume, millis)
	})
}

func (e *Engine) Volume() (float64, error) {
	var volume float64
	err := e.call("audio_engine_get_volume", func(h uintptr) int32 {
		return e.api.getVolume(h, &volume)
	})
	return volume, err
}

// Mute silences output without changing the configured volume.
func (e *Engine) Mute() error {
	return e.call("audio_engine_mute", e.api.mute)
}

func (e *Engine) Unmute() error {
	return e.call("audio_engine_unmute", e.api.unmute)
}

func (e *Engine) IsMuted() (bool, error) {
	var muted uint8
	err := e.call("audio_engine_is_muted", func(h uintptr) int32 {
		return e.api.isMuted(h, &muted)
	})
	return muted != 0, err
}

// Position returns the playback position.
func (e *Engine) Position() (time.Duration, error) {
	var seconds float64
	err := e.call("audio_engine_get_position", func(h uintptr) int32 {
		return e.api.getPosition(h, &seconds)
	})
	return secondsToDuration(seconds), err
}

// Duration returns the length of the loaded track, or zero when unknown.
func (e *Engine) Duration() (time.Duration, error) {
	var seconds float64
	err := e.call("audio_engine_get_duration", func(h uintptr) int32 {
		return e.api.getDuration(h, &seconds)
	})
	return secondsToDuration(seconds), err
}

func (e *Engine) IsPlaying() (bool, error) {
	var playing uint8
	err := e.call("audio_engine_is_playing", func(h uintptr) int32 {
		return e.api.isPlaying(h, &playing)
	})
	return playing != 0, err
}

// SetCallback registers cb for engine events, replacing any previous
// callback. cb stays referenced until ClearCallback or Close.
func (e *Engine) SetCallback(cb Callback) error {
	if cb == nil {
		return fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}
	fn, err := nativeTrampoline()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == 0 {
		return ErrClosed
	}

	prev, hadPrev := callbacks.Retain(e.handle, cb)
	if err := check("audio_engine_set_callback", e.api.setCallback(e.handle, fn, e.handle)); err != nil {
		if hadPrev {
			callbacks.Retain(e.handle, prev)
		} else {
			callbacks.Release(e.handle)
		}
		return err
	}
	e.hasCallback = true
	return nil
}

// ClearCallback unregisters the event callback.
func (e *Engine) ClearCallback() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == 0 {
		return ErrClosed
	}
	return e.clearCallbackLocked()
}

func (e *Engine) clearCallbackLocked() error {
	if err := check("audio_engine_clear_callback", e.api.clearCallback(e.handle)); err != nil {
		return err
	}
	callbacks.Release(e.handle)
	e.hasCallback = false
	return nil
}

// Close clears any callback and destroys the native instance. It is safe to
// call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == 0 {
		return nil
	}

	var err error
	if e.hasCallback {
		err = e.clearCallbackLocked()
	}
	if destroyErr := check("audio_engine_destroy", e.api.destroy(e.handle)); destroyErr != nil {
		err = errors.Join(err, destroyErr)
	}
	// The instance is gone either way; the callback must not outlive it.
	callbacks.Release(e.handle)
	e.handle = 0
	e.hasCallback = false
	if err != nil {
		e.logger.Warn("audio engine close reported errors", zap.Error(err))
	}
	return err
}

func validateVolume(volume float64) error {
	if math.IsNaN(volume) || volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume %v outside [0, 1]", ErrInvalidArgument, volume)
	}
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
