package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel. Data is *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// A watched shader file changed on disk. Data is *AssetEvent.
	EVENT_CODE_SHADER_RELOADED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path string
}

type FnOnEvent func(context EventContext)

// State structure.
type eventSystemState struct {
	mu sync.Mutex
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES][]FnOnEvent
	// Events queued off the frame loop, delivered by EventPump.
	deferred []EventContext
}

var onceEvent sync.Once
var eventState *eventSystemState

func EventInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
	return true
}

func EventShutdown() error {
	if eventState == nil {
		return nil
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	for i := 0; i < MAX_MESSAGE_CODES; i++ {
		eventState.registered[i] = nil
	}
	eventState.deferred = nil
	return nil
}

// EventRegister subscribes the callback to events fired with the given code.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventFire delivers the event to every listener registered for its code.
// Callbacks run on the caller's goroutine, outside the registry lock.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	listeners := make([]FnOnEvent, len(eventState.registered[context.Type]))
	copy(listeners, eventState.registered[context.Type])
	eventState.mu.Unlock()

	if len(listeners) == 0 {
		return false
	}
	for _, fn := range listeners {
		fn(context)
	}
	return true
}

// EventFireDeferred queues the event instead of delivering it. Watcher and
// other background goroutines must use this for events whose listeners touch
// render state; EventPump then runs those listeners on the frame loop, never
// concurrently with validation.
func EventFireDeferred(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	eventState.deferred = append(eventState.deferred, context)
	eventState.mu.Unlock()
	return true
}

// EventPump delivers every queued event on the calling goroutine, in the
// order they were queued.
func EventPump() {
	if eventState == nil {
		return
	}
	eventState.mu.Lock()
	pending := eventState.deferred
	eventState.deferred = nil
	eventState.mu.Unlock()

	for _, context := range pending {
		EventFire(context)
	}
}
