package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/mapview/internal/mapdata"
)

func TestKeyAction(t *testing.T) {
	tests := []struct {
		key sdl.Scancode
		act action
		arg int
	}{
		{sdl.SCANCODE_ESCAPE, actionQuit, 0},
		{sdl.SCANCODE_PAGEUP, actionLayer, 1},
		{sdl.SCANCODE_PAGEDOWN, actionLayer, -1},
		{sdl.SCANCODE_EQUALS, actionVisibleLayers, 2},
		{sdl.SCANCODE_KP_MINUS, actionVisibleLayers, -2},
		{sdl.SCANCODE_UP, actionMove, int(mapdata.North)},
		{sdl.SCANCODE_D, actionMove, int(mapdata.Down)},
		{sdl.SCANCODE_R, actionReload, 0},
		{sdl.SCANCODE_F3, actionToggleIndex, 0},
		{sdl.SCANCODE_F12, actionScreenshot, 0},
		{sdl.SCANCODE_F1, actionNone, 0},
	}

	for _, tt := range tests {
		act, arg := keyAction(tt.key)
		assert.Equal(t, tt.act, act, "key %d", tt.key)
		assert.Equal(t, tt.arg, arg, "key %d", tt.key)
	}
}
