// Package viewer is the host-facing side of the map view. It decides when
// a frame is drawn and forwards picks, centring and camera gestures to the
// renderer.
package viewer

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/engine/renderer"
	"github.com/Faultbox/mapview/internal/logger"
)

const (
	// DefaultRedrawInterval is the periodic redraw tick, about 30 frames a second.
	DefaultRedrawInterval = 33 * time.Millisecond

	// DefaultBlockedRetry is how long to wait before redrawing after a frame
	// was skipped because the map was being edited.
	DefaultBlockedRetry = 500 * time.Millisecond
)

// Options controls redraw scheduling.
type Options struct {
	RedrawInterval time.Duration
	BlockedRetry   time.Duration
}

// Viewer schedules frames and exposes the host API.
type Viewer struct {
	r    *renderer.Renderer
	opts Options
	log  *zap.Logger

	dirty    bool
	retrying bool
	next     time.Time
	last     renderer.Frame
}

// New creates a viewer over the renderer. The first Frame always draws.
func New(r *renderer.Renderer, opts Options) *Viewer {
	if opts.RedrawInterval <= 0 {
		opts.RedrawInterval = DefaultRedrawInterval
	}
	if opts.BlockedRetry <= 0 {
		opts.BlockedRetry = DefaultBlockedRetry
	}
	return &Viewer{
		r:     r,
		opts:  opts,
		log:   logger.Named("viewer"),
		dirty: true,
	}
}

// Renderer returns the underlying renderer.
func (v *Viewer) Renderer() *renderer.Renderer {
	return v.r
}

// TriggerRedraw asks for a frame on the next Frame call.
func (v *Viewer) TriggerRedraw() {
	v.dirty = true
}

// Due reports whether Frame would draw at now.
func (v *Viewer) Due(now time.Time) bool {
	if v.retrying {
		return !now.Before(v.next)
	}
	return v.dirty || !now.Before(v.next)
}

// Frame draws when a redraw was triggered or the periodic tick elapsed. It
// returns false when nothing was drawn. A frame skipped because the map is
// blocked keeps the redraw pending and holds further attempts for the retry
// delay.
func (v *Viewer) Frame(now time.Time) (renderer.Frame, bool) {
	if !v.Due(now) {
		return v.last, false
	}

	f := v.r.Draw()
	v.last = f
	if f.Skipped {
		if !v.retrying {
			v.log.Debug("map blocked, retrying", zap.Duration("after", v.opts.BlockedRetry))
		}
		v.retrying = true
		v.dirty = true
		v.next = now.Add(v.opts.BlockedRetry)
		return f, true
	}

	v.retrying = false
	v.dirty = false
	v.next = now.Add(v.opts.RedrawInterval)
	return f, true
}

// LastFrame returns what the last drawn frame did.
func (v *Viewer) LastFrame() renderer.Frame {
	return v.last
}

// Pick resolves a window point to a room and makes it the selection. A miss
// clears the selection. A pick that could not run, for instance because the
// map is being edited, leaves the selection alone.
func (v *Viewer) Pick(x, y int) (bool, uint32) {
	res, err := v.r.Pick(x, y)
	if err != nil {
		if !errors.Is(err, renderer.ErrBlocked) {
			v.log.Warn("pick failed", zap.Error(err))
		}
		return false, 0
	}
	v.r.ClearSelection()
	if res.Found {
		v.r.Select(res.ID, true)
	}
	v.TriggerRedraw()
	return res.Found, res.ID
}

// CenterCameraOn pans the camera onto the room.
func (v *Viewer) CenterCameraOn(id uint32) bool {
	if !v.r.CenterOn(id) {
		return false
	}
	v.TriggerRedraw()
	return true
}

// SetMarkers replaces the current-position rooms.
func (v *Viewer) SetMarkers(ids []uint32) {
	v.r.SetMarkers(ids)
	v.TriggerRedraw()
}

// SetVisibleLayers changes how many layers are drawn around the current one.
func (v *Viewer) SetVisibleLayers(n int) {
	v.r.SetVisibleLayers(n)
	v.TriggerRedraw()
}

// ShiftLayer moves the current layer by n steps.
func (v *Viewer) ShiftLayer(n int) {
	v.r.Camera().ShiftLayer(n)
	v.TriggerRedraw()
}

// Rotate turns the camera by a drag delta in pixels.
func (v *Viewer) Rotate(dx, dy int) {
	v.r.Camera().HandleDrag(float32(dx), float32(dy))
	v.TriggerRedraw()
}

// Pan moves the view by a drag delta in pixels, scaled by how far the camera
// is from the map and by the scale the base room is drawn at.
func (v *Viewer) Pan(dx, dy int) {
	cam := v.r.Camera()
	k := -cam.UserZ / 400 * cam.EffectiveScale()
	cam.HandlePan(float32(dx)*k, float32(dy)*k)
	v.TriggerRedraw()
}

// Zoom moves the camera by wheel steps. Inside a scaled-down local space
// the steps shrink with it.
func (v *Viewer) Zoom(steps float32) {
	cam := v.r.Camera()
	cam.HandleZoom(steps * cam.EffectiveScale())
	v.TriggerRedraw()
}

// MapPoint returns the map coordinates under a window point on the
// current layer.
func (v *Viewer) MapPoint(x, y int) (mgl32.Vec2, bool) {
	return v.r.MapPoint(x, y)
}

// ResetCamera restores the default camera angles and offsets.
func (v *Viewer) ResetCamera() {
	v.r.Camera().Reset()
	v.TriggerRedraw()
}
