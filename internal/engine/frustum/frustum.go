// Package frustum culls quadtree squares and rooms against the view frustum.
package frustum

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mapview/internal/spatial"
)

const (
	// SquareMargin inflates square bounds before testing. It must exceed
	// spatial.Slack + RoomCullRadius so a room drawn slightly outside its
	// square is never lost with the square.
	SquareMargin = 5

	// RoomCullRadius is the bounding sphere radius of a room's geometry,
	// twice the room size plus the wall height.
	RoomCullRadius float32 = 2.8
)

type plane struct {
	a, b, c, d float32
}

func (p plane) distance(x, y, z float32) float32 {
	return p.a*x + p.b*y + p.c*z + p.d
}

// Stats counts tests performed since the last ResetStats.
type Stats struct {
	SquaresTested int
	SquaresCulled int
	RoomsTested   int
	RoomsCulled   int
}

// Culler holds the frustum planes of the current frame.
type Culler struct {
	planes [6]plane
	valid  bool
	stats  Stats
}

// New creates a culler that accepts everything until Recompute is called.
func New() *Culler {
	return &Culler{}
}

// Recompute extracts the six planes from proj*view. Call once per frame
// after the camera is updated.
func (c *Culler) Recompute(view, proj mgl32.Mat4) {
	c.planes = extractPlanes(proj.Mul4(view))
	c.valid = true
}

// IsSquareInFrustum tests the square's bounds, inflated by SquareMargin, at
// height z.
func (c *Culler) IsSquareInFrustum(sq *spatial.Square, z int) bool {
	c.stats.SquaresTested++
	const m = SquareMargin
	in := c.aabb(
		float32(sq.LeftX-m), float32(sq.BottomY-m), float32(z-m),
		float32(sq.RightX+m), float32(sq.TopY+m), float32(z+m),
	)
	if !in {
		c.stats.SquaresCulled++
	}
	return in
}

// IsPointInFrustum tests a sphere of RoomCullRadius around the point.
func (c *Culler) IsPointInFrustum(x, y, z float32) bool {
	c.stats.RoomsTested++
	in := c.sphere(x, y, z, RoomCullRadius)
	if !in {
		c.stats.RoomsCulled++
	}
	return in
}

// IsBoxInFrustum tests a render-space box, inflated by RoomCullRadius so
// rooms on its faces are kept. It counts as a square test.
func (c *Culler) IsBoxInFrustum(lo, hi mgl32.Vec3) bool {
	c.stats.SquaresTested++
	const m = RoomCullRadius
	in := c.aabb(lo.X()-m, lo.Y()-m, lo.Z()-m, hi.X()+m, hi.Y()+m, hi.Z()+m)
	if !in {
		c.stats.SquaresCulled++
	}
	return in
}

// Stats returns the counters accumulated since the last ResetStats.
func (c *Culler) Stats() Stats {
	return c.stats
}

// ResetStats zeroes the counters.
func (c *Culler) ResetStats() {
	c.stats = Stats{}
}

func (c *Culler) sphere(x, y, z, r float32) bool {
	if !c.valid {
		return true
	}
	for _, p := range c.planes {
		if p.distance(x, y, z) < -r {
			return false
		}
	}
	return true
}

// aabb tests the box against every plane using the positive vertex.
func (c *Culler) aabb(minx, miny, minz, maxx, maxy, maxz float32) bool {
	if !c.valid {
		return true
	}
	for _, p := range c.planes {
		px := maxx
		if p.a < 0 {
			px = minx
		}
		py := maxy
		if p.b < 0 {
			py = miny
		}
		pz := maxz
		if p.c < 0 {
			pz = minz
		}
		if p.distance(px, py, pz) < 0 {
			return false
		}
	}
	return true
}

// extractPlanes returns left, right, bottom, top, near, far.
func extractPlanes(clip mgl32.Mat4) [6]plane {
	// mgl32 is column-major
	m00, m01, m02, m03 := clip[0], clip[4], clip[8], clip[12]
	m10, m11, m12, m13 := clip[1], clip[5], clip[9], clip[13]
	m20, m21, m22, m23 := clip[2], clip[6], clip[10], clip[14]
	m30, m31, m32, m33 := clip[3], clip[7], clip[11], clip[15]

	return [6]plane{
		normalize(plane{m30 + m00, m31 + m01, m32 + m02, m33 + m03}),
		normalize(plane{m30 - m00, m31 - m01, m32 - m02, m33 - m03}),
		normalize(plane{m30 + m10, m31 + m11, m32 + m12, m33 + m13}),
		normalize(plane{m30 - m10, m31 - m11, m32 - m12, m33 - m13}),
		normalize(plane{m30 + m20, m31 + m21, m32 + m22, m33 + m23}),
		normalize(plane{m30 - m20, m31 - m21, m32 - m22, m33 - m23}),
	}
}

func normalize(p plane) plane {
	l := float32(math.Sqrt(float64(p.a*p.a + p.b*p.b + p.c*p.c)))
	if l == 0 {
		return p
	}
	return plane{p.a / l, p.b / l, p.c / l, p.d / l}
}
