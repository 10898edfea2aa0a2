package debug

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/spatial"
)

// OutlineSquares appends the outline of every square in the tree at height
// z, walking only into squares keep accepts. Leaves holding rooms use
// leafColor, everything else nodeColor. It returns the number of squares
// drawn.
func OutlineSquares(b *batch.Batch, root *spatial.Square, z float32, keep func(sq *spatial.Square) bool, nodeColor, leafColor mgl32.Vec4) int {
	if root == nil {
		return 0
	}
	n := 0
	root.Walk(func(sq *spatial.Square) bool {
		if keep != nil && !keep(sq) {
			return false
		}
		c := nodeColor
		if sq.IsLeaf() && len(sq.Rooms()) > 0 {
			c = leafColor
		}
		outline(b, sq, z, c)
		n++
		return true
	})
	return n
}

func outline(b *batch.Batch, sq *spatial.Square, z float32, c mgl32.Vec4) {
	l, t := float32(sq.LeftX), float32(sq.TopY)
	r, bt := float32(sq.RightX), float32(sq.BottomY)
	corners := [4]mgl32.Vec3{{l, t, z}, {r, t, z}, {r, bt, z}, {l, bt, z}}
	for i := range corners {
		b.AppendLine(corners[i], corners[(i+1)%4], c)
	}
}
