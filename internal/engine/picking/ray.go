package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// ScreenToRay converts window coordinates (origin top-left) to a ray in the
// space the inverse view-projection maps back to.
func ScreenToRay(screenX, screenY float32, vp Viewport, invViewProj mgl32.Mat4) Ray {
	ndcX := 2*screenX/float32(vp.Width) - 1
	ndcY := 1 - 2*screenY/float32(vp.Height) // flip Y

	near := invViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := invViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})

	// Perspective divide
	if near.W() != 0 {
		near = near.Mul(1 / near.W())
	}
	if far.W() != 0 {
		far = far.Mul(1 / far.W())
	}

	origin := near.Vec3()
	dir := far.Vec3().Sub(origin)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: origin, Direction: dir}
}

// IntersectPlaneZ intersects the ray with the horizontal map plane at z.
func (r Ray) IntersectPlaneZ(z float32) (x, y float32, ok bool) {
	if math.Abs(float64(r.Direction.Z())) < 0.001 {
		return 0, 0, false // parallel to the layer
	}

	t := (z - r.Origin.Z()) / r.Direction.Z()
	if t < 0 {
		return 0, 0, false // behind the camera
	}

	return r.Origin.X() + t*r.Direction.X(), r.Origin.Y() + t*r.Direction.Y(), true
}
