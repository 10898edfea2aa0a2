package app

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/mapview/internal/mapdata"
)

type action int

const (
	actionNone action = iota
	actionQuit
	actionLayer
	actionVisibleLayers
	actionResetCamera
	actionCenter
	actionMove
	actionReload
	actionToggleIndex
	actionScreenshot
)

// keyAction maps a key to an action and its argument: a layer step, a
// visible layer delta or an exit direction.
func keyAction(key sdl.Scancode) (action, int) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		return actionQuit, 0
	case sdl.SCANCODE_PAGEUP:
		return actionLayer, 1
	case sdl.SCANCODE_PAGEDOWN:
		return actionLayer, -1
	case sdl.SCANCODE_EQUALS, sdl.SCANCODE_KP_PLUS:
		return actionVisibleLayers, 2
	case sdl.SCANCODE_MINUS, sdl.SCANCODE_KP_MINUS:
		return actionVisibleLayers, -2
	case sdl.SCANCODE_HOME:
		return actionResetCamera, 0
	case sdl.SCANCODE_C:
		return actionCenter, 0
	case sdl.SCANCODE_UP:
		return actionMove, int(mapdata.North)
	case sdl.SCANCODE_DOWN:
		return actionMove, int(mapdata.South)
	case sdl.SCANCODE_RIGHT:
		return actionMove, int(mapdata.East)
	case sdl.SCANCODE_LEFT:
		return actionMove, int(mapdata.West)
	case sdl.SCANCODE_U:
		return actionMove, int(mapdata.Up)
	case sdl.SCANCODE_D:
		return actionMove, int(mapdata.Down)
	case sdl.SCANCODE_R:
		return actionReload, 0
	case sdl.SCANCODE_F3:
		return actionToggleIndex, 0
	case sdl.SCANCODE_F12:
		return actionScreenshot, 0
	}
	return actionNone, 0
}
