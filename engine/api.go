package engine

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/contextune/nativeload/native"
)

// api is the engine's C surface as Go funcs. Handles are opaque pointers.
type api struct {
	create          func() uintptr
	destroy         func(handle uintptr) int32
	loadFile        func(handle uintptr, path *byte) int32
	play            func(handle uintptr) int32
	pause           func(handle uintptr) int32
	stop            func(handle uintptr) int32
	seek            func(handle uintptr, seconds float64) int32
	setVolume       func(handle uintptr, volume float64) int32
	setVolumeRamped func(handle uintptr, volume float64, rampMillis uint32) int32
	getVolume       func(handle uintptr, volume *float64) int32
	mute            func(handle uintptr) int32
	unmute          func(handle uintptr) int32
	isMuted         func(handle uintptr, muted *uint8) int32
	getPosition     func(handle uintptr, seconds *float64) int32
	getDuration     func(handle uintptr, seconds *float64) int32
	isPlaying       func(handle uintptr, playing *uint8) int32
	setCallback     func(handle uintptr, callback uintptr, userData uintptr) int32
	clearCallback   func(handle uintptr) int32
}

// loadAPI registers every engine export from b as a Go function.
func loadAPI(b *native.Binding) (*api, error) {
	a := &api{}
	table := []struct {
		name string
		fptr any
	}{
		{"audio_engine_create", &a.create},
		{"audio_engine_destroy", &a.destroy},
		{"audio_engine_load_file", &a.loadFile},
		{"audio_engine_play", &a.play},
		{"audio_engine_pause", &a.pause},
		{"audio_engine_stop", &a.stop},
		{"audio_engine_seek", &a.seek},
		{"audio_engine_set_volume", &a.setVolume},
		{"audio_engine_set_volume_ramped", &a.setVolumeRamped},
		{"audio_engine_get_volume", &a.getVolume},
		{"audio_engine_mute", &a.mute},
		{"audio_engine_unmute", &a.unmute},
		{"audio_engine_is_muted", &a.isMuted},
		{"audio_engine_get_position", &a.getPosition},
		{"audio_engine_get_duration", &a.getDuration},
		{"audio_engine_is_playing", &a.isPlaying},
		{"audio_engine_set_callback", &a.setCallback},
		{"audio_engine_clear_callback", &a.clearCallback},
	}
	for _, entry := range table {
		addr, err := b.Symbol(entry.name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", entry.name, err)
		}
		purego.RegisterFunc(entry.fptr, addr)
	}
	return a, nil
}
