// Package localspace maps rooms of a local space into the portal rectangle
// that shows the space inside its parent map.
package localspace

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mapview/internal/mapdata"
)

// Lookup resolves local spaces by id. *roommap.State satisfies it.
type Lookup interface {
	LocalSpace(id int) (*mapdata.LocalSpace, bool)
}

// Transform is a room's position in render space.
type Transform struct {
	Pos   mgl32.Vec3
	Scale float32
	// Portal is set when the room was mapped into a local space portal.
	Portal bool
}

// Identity returns the untransformed position of the room.
func Identity(room *mapdata.Room) Transform {
	return Transform{
		Pos:   mgl32.Vec3{float32(room.X), float32(room.Y), float32(room.Z)},
		Scale: 1,
	}
}

// Transformer computes render-space positions. Rendering, picking and the
// camera all go through it so a room is never placed in two different spots.
type Transformer struct {
	spaces Lookup
}

// New creates a transformer over the given lookup.
func New(spaces Lookup) *Transformer {
	return &Transformer{spaces: spaces}
}

// Space returns the local space the room is drawn through, if any. Spaces
// without both a portal and bounds are ignored.
func (t *Transformer) Space(room *mapdata.Room) (*mapdata.LocalSpace, bool) {
	if t == nil || t.spaces == nil || room == nil {
		return nil, false
	}
	reg := room.Region
	if reg == nil || !reg.HasLocalSpace {
		return nil, false
	}
	ls, ok := t.spaces.LocalSpace(reg.LocalSpaceID)
	if !ok || ls == nil || !ls.HasPortal || !ls.HasBounds {
		return nil, false
	}
	return ls, true
}

// Transform returns the room's render-space position. Rooms outside a usable
// local space, or in one with degenerate bounds or portal, keep their native
// coordinates at scale 1.
func (t *Transformer) Transform(room *mapdata.Room) Transform {
	ls, ok := t.Space(room)
	if !ok {
		return Identity(room)
	}
	s, ok := Scale(ls)
	if !ok {
		return Identity(room)
	}

	cx, cy, _ := ls.Center()
	pcx, pcy := ls.PortalCenter()
	x, y, z := float32(room.X), float32(room.Y), float32(room.Z)
	return Transform{
		Pos: mgl32.Vec3{
			pcx + (x-cx)*s,
			pcy + (y-cy)*s,
			scaleZ(ls, z, s),
		},
		Scale:  s,
		Portal: true,
	}
}

// scaleZ scales a layer about the space's centre. The portal is a flat
// rectangle, so it moves X and Y only and the space keeps its own height.
func scaleZ(ls *mapdata.LocalSpace, z, s float32) float32 {
	_, _, cz := ls.Center()
	return cz + (z-cz)*s
}

// Box returns the render-space box every room of the space is drawn in:
// the portal rectangle on X/Y and the scaled layer range on Z.
func Box(ls *mapdata.LocalSpace) (lo, hi mgl32.Vec3, ok bool) {
	if ls == nil || !ls.HasPortal || !ls.HasBounds {
		return lo, hi, false
	}
	s, ok := Scale(ls)
	if !ok {
		return lo, hi, false
	}
	lo = mgl32.Vec3{ls.PortalX, ls.PortalY, scaleZ(ls, ls.MinZ, s)}
	hi = mgl32.Vec3{ls.PortalX + ls.PortalW, ls.PortalY + ls.PortalH, scaleZ(ls, ls.MaxZ, s)}
	return lo, hi, true
}

// Scale returns the uniform factor fitting the space's bounds into its
// portal, preserving aspect ratio.
func Scale(ls *mapdata.LocalSpace) (float32, bool) {
	localW := ls.MaxX - ls.MinX
	localH := ls.MaxY - ls.MinY
	if localW <= 0 || localH <= 0 {
		return 0, false
	}
	s := min(ls.PortalW/localW, ls.PortalH/localH)
	if s <= 0 {
		return 0, false
	}
	return s, true
}
