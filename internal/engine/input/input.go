// Package input turns SDL2 events into map viewer gestures: drags, wheel
// steps, clicks and key presses.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// clickSlop is how far in pixels the mouse may travel between press and
// release for the release to count as a click.
const clickSlop = 3

// EventType identifies a gesture.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventDrag
	EventWheel
	EventClick
)

// Event is one gesture.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Mod    sdl.Keymod
	Width  int
	Height int
	X, Y   int
	DX, DY int
	Wheel  float32
	Button uint8
}

// Input tracks button state across SDL events.
type Input struct {
	events []Event

	pressed      uint8
	pressX       int
	pressY       int
	moved        bool
	lastX, lastY int
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Update polls pending SDL events. It returns true when the window should
// close.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if i.Handle(event) {
			quit = true
		}
	}
	return quit
}

// Handle translates one SDL event and reports whether it asks to quit.
func (i *Input) Handle(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.events = append(i.events, Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			})
		}

	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN {
			i.events = append(i.events, Event{
				Type: EventKeyDown,
				Key:  e.Keysym.Scancode,
				Mod:  sdl.Keymod(e.Keysym.Mod),
			})
		}

	case *sdl.MouseButtonEvent:
		x, y := int(e.X), int(e.Y)
		switch e.Type {
		case sdl.MOUSEBUTTONDOWN:
			if i.pressed == 0 {
				i.pressed = e.Button
				i.pressX, i.pressY = x, y
				i.lastX, i.lastY = x, y
				i.moved = false
			}
		case sdl.MOUSEBUTTONUP:
			if e.Button != i.pressed {
				break
			}
			if !i.moved {
				i.events = append(i.events, Event{Type: EventClick, X: x, Y: y, Button: e.Button})
			}
			i.pressed = 0
		}

	case *sdl.MouseMotionEvent:
		if i.pressed == 0 {
			break
		}
		x, y := int(e.X), int(e.Y)
		if !i.moved && abs(x-i.pressX) <= clickSlop && abs(y-i.pressY) <= clickSlop {
			break
		}
		i.moved = true
		i.events = append(i.events, Event{
			Type:   EventDrag,
			X:      x,
			Y:      y,
			DX:     x - i.lastX,
			DY:     y - i.lastY,
			Button: i.pressed,
		})
		i.lastX, i.lastY = x, y

	case *sdl.MouseWheelEvent:
		dy := float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dy = -dy
		}
		if dy != 0 {
			i.events = append(i.events, Event{Type: EventWheel, Wheel: dy})
		}
	}
	return false
}

// Events returns the events gathered since the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
