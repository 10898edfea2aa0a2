// Package camera provides the map viewer camera.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// BaseZ is the default distance from the camera to the current layer.
	BaseZ float32 = -12

	// FOV is the vertical field of view in degrees.
	FOV float32 = 60

	// NearClip is kept very close so the user can zoom deep into a layer.
	NearClip float32 = 0.01

	// LayerStep is the render-space distance between two map layers
	// used by the visible layer window.
	LayerStep = 2
)

// Base is a candidate for the camera's base coordinates: the render-space
// position of a current-position room and the scale it is drawn at.
type Base struct {
	ID    uint32
	Pos   mgl32.Vec3
	Scale float32
}

// Camera orbits the base coordinates (normally the player's room). The user
// rotates it with the angles, pans it with UserX/UserY, zooms with UserZ and
// moves between layers with the layer shift.
type Camera struct {
	AngleX, AngleY, AngleZ float32 // degrees
	UserX, UserY, UserZ    float32

	// DetailsVisibility bounds the far clip plane.
	DetailsVisibility float32
	FOV               float32

	cur        mgl32.Vec3
	layerShift int
	baseID     uint32
	hasBase    bool
	scale      float32
}

// New creates a camera at the origin looking straight down.
func New(detailsVisibility float32) *Camera {
	c := &Camera{DetailsVisibility: detailsVisibility, FOV: FOV}
	c.Reset()
	return c
}

// Reset restores the default pose. Base coordinates are kept.
func (c *Camera) Reset() {
	c.AngleX, c.AngleY, c.AngleZ = 0, 0, 0
	c.UserX, c.UserY = 0, 0
	c.UserZ = BaseZ
	c.cur[2] -= float32(c.layerShift)
	c.layerShift = 0
	c.scale = 1
}

// Current returns the base coordinates including the layer shift.
func (c *Camera) Current() mgl32.Vec3 {
	return c.cur
}

// CurrentZ returns the current layer as an integer.
func (c *Camera) CurrentZ() int {
	z := c.cur.Z()
	if z < 0 {
		return int(z - 0.5)
	}
	return int(z + 0.5)
}

// LayerShift returns how many layers the user moved away from the base room.
func (c *Camera) LayerShift() int {
	return c.layerShift
}

// BaseRoom returns the id of the room the camera is based on.
func (c *Camera) BaseRoom() (uint32, bool) {
	return c.baseID, c.hasBase
}

// EffectiveScale is the scale the base room is drawn at; 1 outside portals.
func (c *Camera) EffectiveScale() float32 {
	return c.scale
}

// ShiftLayer moves the view by n layers.
func (c *Camera) ShiftLayer(n int) {
	c.layerShift += n
	c.cur[2] += float32(n)
}

// UpdateBase picks the candidate nearest to the current base coordinates.
// With no candidates the camera stays where it is.
func (c *Camera) UpdateBase(candidates []Base) {
	var best *Base
	var bestDist float32
	shift := float32(c.layerShift)
	for i := range candidates {
		p := &candidates[i]
		d := mgl32.Vec3{
			c.cur.X() - p.Pos.X(),
			c.cur.Y() - p.Pos.Y(),
			c.cur.Z() - p.Pos.Z() + shift,
		}
		dist := d.Dot(d)
		if best == nil || dist < bestDist {
			best, bestDist = p, dist
		}
	}
	if best == nil {
		return
	}
	c.cur = mgl32.Vec3{best.Pos.X(), best.Pos.Y(), best.Pos.Z() + shift}
	c.baseID, c.hasBase = best.ID, true
	c.scale = best.Scale
	if c.scale <= 0 {
		c.scale = 1
	}
}

// CenterOn pans the view so pos is in the middle of the screen without
// moving the base coordinates.
func (c *Camera) CenterOn(pos mgl32.Vec3) {
	c.UserX = c.cur.X() - pos.X()
	c.UserY = c.cur.Y() - pos.Y()
	c.ShiftLayer(int(math.Round(float64(pos.Z()))) - c.CurrentZ())
}

// VisibleLayers returns the inclusive Z window drawn around the current
// layer for the given number of visible layers.
func (c *Camera) VisibleLayers(layers int) (lower, upper int) {
	curZ := c.CurrentZ()
	side := layers >> 1
	lower = curZ - side*LayerStep
	upper = curZ + side*LayerStep
	upper -= (1 - layers%2) << 1
	return lower, upper
}

// View returns the view matrix. World coordinates are relative to the
// base coordinates.
func (c *Camera) View() mgl32.Mat4 {
	m := mgl32.Translate3D(0, 0, c.UserZ)
	m = m.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(c.AngleX)))
	m = m.Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(c.AngleY)))
	m = m.Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(c.AngleZ)))
	m = m.Mul4(mgl32.Translate3D(c.UserX, c.UserY, 0))
	return m.Mul4(mgl32.Translate3D(-c.cur.X(), -c.cur.Y(), -c.cur.Z()))
}

// Projection returns the perspective projection for a viewport.
func (c *Camera) Projection(width, height int) mgl32.Mat4 {
	if height <= 0 {
		height = 1
	}
	far := c.DetailsVisibility * 1.1
	if far <= NearClip {
		far = 100
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), float32(width)/float32(height), NearClip, far)
}

// HandleDrag rotates the camera by a mouse drag delta in pixels.
func (c *Camera) HandleDrag(dx, dy float32) {
	c.AngleZ += dx * 0.5
	c.AngleX += dy * 0.5
}

// HandlePan moves the view by a mouse drag delta in map units.
func (c *Camera) HandlePan(dx, dy float32) {
	c.UserX += dx
	c.UserY -= dy
}

// HandleZoom moves the camera toward or away from the current layer.
func (c *Camera) HandleZoom(delta float32) {
	c.UserZ += delta
	if c.UserZ > -NearClip {
		c.UserZ = -NearClip
	}
}
