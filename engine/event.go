package engine

import (
	"fmt"
	"unsafe"
)

// EventType identifies what an Event reports.
type EventType int32

const (
	EventStateChanged EventType = iota
	EventPositionChanged
	EventTrackEnded
	EventError
	EventBufferUnderrun
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state-changed"
	case EventPositionChanged:
		return "position-changed"
	case EventTrackEnded:
		return "track-ended"
	case EventError:
		return "error"
	case EventBufferUnderrun:
		return "buffer-underrun"
	default:
		return fmt.Sprintf("event(%d)", int32(t))
	}
}

// PlaybackState is the engine's transport state.
type PlaybackState int32

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
	StateBuffering
	StateError
)

func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Event is an engine notification delivered to a Callback.
type Event struct {
	Type  EventType
	State PlaybackState
	// Position is in samples and only set for EventPositionChanged.
	Position uint64
	// Message is only set for EventError.
	Message string
}

// Callback receives engine events on a native audio thread. It must return
// quickly and must not call back into the Engine.
type Callback func(Event)

// ffiEvent mirrors the engine's C event struct.
type ffiEvent struct {
	eventType    int32
	state        int32
	position     uint64
	errorMessage uintptr
}

// dispatch converts a native event and hands it to the callback retained for
// handle. Events for handles without a callback are dropped.
func dispatch(raw *ffiEvent, handle uintptr) {
	if raw == nil {
		return
	}
	cb, ok := callbacks.Lookup(handle)
	if !ok {
		return
	}
	cb(Event{
		Type:     EventType(raw.eventType),
		State:    PlaybackState(raw.state),
		Position: raw.position,
		Message:  goString(raw.errorMessage),
	})
}

// eventFromPointer reads the event the native side passed by reference.
func eventFromPointer(ptr uintptr) *ffiEvent {
	if ptr == 0 {
		return nil
	}
	return (*ffiEvent)(unsafe.Pointer(ptr))
}
