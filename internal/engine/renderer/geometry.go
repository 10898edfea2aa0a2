package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/engine/localspace"
	"github.com/Faultbox/mapview/internal/engine/picking"
	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/roommap"
)

const (
	// RoomSize is half the side of a room's floor.
	RoomSize float32 = 0.5

	// WallHeight is the height of selection walls.
	WallHeight = RoomSize * 0.8

	markerSize = RoomSize / 1.85
	floorLift  = 0.01
)

// alphaTable fades planes by their distance from the current layer.
var alphaTable = [...]float32{0.95, 0.25, 0.20, 0.15, 0.10, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}

var (
	floorColor     = mgl32.Vec3{0.85, 0.85, 0.85}
	exitColor      = mgl32.Vec3{0.1, 0.8, 0.8}
	undefinedColor = mgl32.Vec3{1, 0.85, 0.1}
	deathColor     = mgl32.Vec3{0.9, 0.1, 0.1}
	selectColor    = mgl32.Vec4{0.2, 0.4, 1, 0.6}
	noteColor      = mgl32.Vec3{1, 1, 0.3}
	markerColor    = mgl32.Vec4{1, 0.2, 0.2, 0.9}
	coneColor      = mgl32.Vec4{1, 0.6, 0.1, 0.8}
	indexNodeColor = mgl32.Vec4{0.4, 0.4, 0.5, 0.5}
	indexLeafColor = mgl32.Vec4{0.3, 0.9, 0.3, 0.7}
)

func layerAlpha(dz int) float32 {
	if dz < 0 {
		dz = -dz
	}
	return alphaTable[min(dz, len(alphaTable)-1)]
}

// renderLayer rounds a transformed position to its layer.
func renderLayer(t localspace.Transform) int {
	return layerOf(t.Pos.Z())
}

func layerOf(z float32) int {
	return int(math.Round(float64(z)))
}

func withAlpha(c mgl32.Vec3, a float32) mgl32.Vec4 {
	return c.Vec4(a)
}

// floorCorners returns the room's floor quad, counter-clockwise from the
// lower-left corner.
func floorCorners(t localspace.Transform) (a, b, c, d mgl32.Vec3) {
	h := RoomSize * t.Scale
	x, y, z := t.Pos.Elem()
	z += floorLift
	return mgl32.Vec3{x - h, y - h, z}, mgl32.Vec3{x + h, y - h, z},
		mgl32.Vec3{x + h, y + h, z}, mgl32.Vec3{x - h, y + h, z}
}

// emitRoom appends a room's floor, exits, selection and note geometry.
func (r *Renderer) emitRoom(s *roommap.State, tr *localspace.Transformer, room *mapdata.Room, t localspace.Transform, alpha float32) {
	a, b, c, d := floorCorners(t)
	if room.Texture != 0 {
		r.batch.AppendTexturedQuad(a, b, c, d,
			mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{1, 1}, mgl32.Vec2{0, 1},
			mgl32.Vec4{1, 1, 1, alpha}, room.Texture)
	} else {
		r.batch.AppendQuad(a, b, c, d, withAlpha(floorColor, alpha))
	}

	r.emitExits(s, tr, room, t, alpha)

	if _, ok := r.selected[room.ID]; ok {
		h := RoomSize * t.Scale
		r.batch.AppendWallPrism(
			t.Pos.Sub(mgl32.Vec3{h, h, 0}),
			t.Pos.Add(mgl32.Vec3{h, h, WallHeight * t.Scale}),
			selectColor)
	}

	if r.config.ShowNotes && room.Note != "" {
		q := RoomSize * t.Scale * 0.3
		x, y, z := t.Pos.Elem()
		z += 2 * floorLift
		r.batch.AppendQuad(
			mgl32.Vec3{x - q, y - q, z}, mgl32.Vec3{x + q, y - q, z},
			mgl32.Vec3{x + q, y + q, z}, mgl32.Vec3{x - q, y + q, z},
			withAlpha(noteColor, alpha))
	}
}

// emitExits draws normal exits as lines between room centres, undefined
// exits as short stubs and death exits as red triangles. A two-way exit is
// drawn once, from the room with the lower id.
func (r *Renderer) emitExits(s *roommap.State, tr *localspace.Transformer, room *mapdata.Room, t localspace.Transform, alpha float32) {
	for i := range mapdata.NumExits {
		dir := mapdata.Direction(i)
		e := room.Exits[dir]
		dx, dy, dz := dir.Offset()
		step := mgl32.Vec3{float32(dx), float32(dy), float32(dz)}.Mul(RoomSize * t.Scale)
		edge := t.Pos.Add(step)

		switch e.Kind {
		case mapdata.ExitNormal:
			to := s.Neighbour(room, dir)
			if to == nil {
				continue
			}
			back := to.Exits[dir.Reverse()]
			if back.Kind == mapdata.ExitNormal && back.To == room.ID && to.ID < room.ID {
				continue
			}
			if dir == mapdata.Up || dir == mapdata.Down {
				r.batch.AppendLine(t.Pos, edge, withAlpha(exitColor, alpha))
				continue
			}
			r.batch.AppendLine(edge, tr.Transform(to).Pos.Sub(step), withAlpha(exitColor, alpha))

		case mapdata.ExitUndefined:
			r.batch.AppendLine(edge, edge.Add(step.Mul(0.6)), withAlpha(undefinedColor, alpha))

		case mapdata.ExitDeath:
			side := mgl32.Vec3{-step.Y(), step.X(), 0}.Mul(0.5)
			if dz != 0 {
				side = mgl32.Vec3{RoomSize * t.Scale * 0.5, 0, 0}
			}
			r.batch.AppendTriangles([]mgl32.Vec3{
				edge.Add(side), edge.Sub(side), edge.Add(step.Mul(0.6)),
			}, withAlpha(deathColor, alpha))
		}
	}
}

// emitMarkers draws the current-position markers: four arrows around the
// room and a cone above it.
func (r *Renderer) emitMarkers(s *roommap.State, tr *localspace.Transformer) {
	for _, id := range r.markers {
		room, ok := s.Room(id)
		if !ok {
			continue
		}
		t := tr.Transform(room)
		r.batch.AppendTriangles(markerTriangles(t), markerColor)
		r.batch.AppendCone(t.Pos.Add(mgl32.Vec3{0, 0, 2 * RoomSize * t.Scale}), markerSize*t.Scale, -RoomSize*t.Scale, 12, coneColor)
	}
}

func markerTriangles(t localspace.Transform) []mgl32.Vec3 {
	rs := RoomSize * t.Scale
	ms := markerSize * t.Scale
	x, y, z := t.Pos.Elem()
	z += 2 * floorLift
	return []mgl32.Vec3{
		// upper
		{x, y + rs + ms, z}, {x - ms, y + rs, z}, {x + ms, y + rs, z},
		// lower
		{x, y - rs - ms, z}, {x - ms, y - rs, z}, {x + ms, y - rs, z},
		// right
		{x + rs, y + ms, z}, {x + rs + ms, y, z}, {x + rs, y - ms, z},
		// left
		{x - rs, y + ms, z}, {x - rs - ms, y, z}, {x - rs, y - ms, z},
	}
}

// emitPickQuad draws the room's floor in its id colour.
func emitPickQuad(b *batch.Batch, room *mapdata.Room, t localspace.Transform) {
	a, bb, c, d := floorCorners(t)
	b.AppendQuad(a, bb, c, d, picking.Color(room.ID))
}
