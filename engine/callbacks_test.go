package engine

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackTableRetainRelease(t *testing.T) {
	table := newCallbackTable()
	var got []string

	_, replaced := table.Retain(1, func(Event) { got = append(got, "first") })
	assert.False(t, replaced)
	prev, replaced := table.Retain(1, func(Event) { got = append(got, "second") })
	require.True(t, replaced)
	prev(Event{})

	cb, ok := table.Lookup(1)
	require.True(t, ok)
	cb(Event{})
	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 1, table.Len())

	table.Release(1)
	_, ok = table.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
	table.Release(1)
}

func TestCallbackTableConcurrentAccess(t *testing.T) {
	table := newCallbackTable()
	var wg sync.WaitGroup
	for i := 1; i <= 32; i++ {
		wg.Add(1)
		go func(handle uintptr) {
			defer wg.Done()
			table.Retain(handle, func(Event) {})
			_, _ = table.Lookup(handle)
			if handle%2 == 0 {
				table.Release(handle)
			}
		}(uintptr(i))
	}
	wg.Wait()
	assert.Equal(t, 16, table.Len())
}

func TestDispatchConvertsNativeEvent(t *testing.T) {
	const handle = uintptr(0xdead)
	var got []Event
	callbacks.Retain(handle, func(e Event) { got = append(got, e) })
	t.Cleanup(func() { callbacks.Release(handle) })

	msg := append([]byte("decoder failed"), 0)
	raw := &ffiEvent{
		eventType:    int32(EventError),
		state:        int32(StateError),
		errorMessage: uintptr(unsafe.Pointer(&msg[0])),
	}
	dispatch(eventFromPointer(uintptr(unsafe.Pointer(raw))), handle)
	runtime.KeepAlive(msg)

	dispatch(&ffiEvent{eventType: int32(EventPositionChanged), position: 44100}, handle)

	require.Len(t, got, 2)
	assert.Equal(t, Event{Type: EventError, State: StateError, Message: "decoder failed"}, got[0])
	assert.Equal(t, Event{Type: EventPositionChanged, State: StateStopped, Position: 44100}, got[1])
}

func TestDispatchDropsUnknownHandleAndNilEvent(t *testing.T) {
	called := false
	callbacks.Retain(0xbeef, func(Event) { called = true })
	t.Cleanup(func() { callbacks.Release(0xbeef) })

	dispatch(&ffiEvent{}, 0xcafe)
	dispatch(nil, 0xbeef)
	dispatch(eventFromPointer(0), 0xbeef)
	assert.False(t, called)
}

func TestSetCallbackOwnership(t *testing.T) {
	e, fake := newTestEngine(t, 0x8000)

	if _, err := nativeTrampoline(); errors.Is(err, ErrCallbackUnsupported) {
		assert.ErrorIs(t, e.SetCallback(func(Event) {}), ErrCallbackUnsupported)
		_, ok := callbacks.Lookup(0x8000)
		assert.False(t, ok)
		return
	}

	var got []EventType
	require.NoError(t, e.SetCallback(func(ev Event) { got = append(got, ev.Type) }))
	assert.Equal(t, uintptr(0x8000), fake.userData, "the handle is the user data")
	assert.NotZero(t, fake.callbackFn)

	dispatch(&ffiEvent{eventType: int32(EventTrackEnded)}, fake.userData)
	assert.Equal(t, []EventType{EventTrackEnded}, got)

	// A rejected replacement keeps the previous callback registered.
	fake.failures["set_callback"] = int32(ResultInternal)
	assert.ErrorIs(t, e.SetCallback(func(Event) { t.Error("replacement must not be retained") }), ErrInternal)
	dispatch(&ffiEvent{eventType: int32(EventBufferUnderrun)}, 0x8000)
	assert.Equal(t, []EventType{EventTrackEnded, EventBufferUnderrun}, got)

	require.NoError(t, e.ClearCallback())
	_, ok := callbacks.Lookup(0x8000)
	assert.False(t, ok)
}

func TestCloseReleasesCallback(t *testing.T) {
	if _, err := nativeTrampoline(); err != nil {
		t.Skip("native callbacks unavailable on this platform")
	}
	e, fake := newTestEngine(t, 0x9000)
	require.NoError(t, e.SetCallback(func(Event) {}))

	require.NoError(t, e.Close())
	_, ok := callbacks.Lookup(0x9000)
	assert.False(t, ok)
	assert.Zero(t, fake.callbackFn)
}
