// Package spatial provides the per-plane quadtree index over room coordinates.
package spatial

import (
	"github.com/Faultbox/mapview/internal/mapdata"
)

const (
	// Capacity is the number of rooms a leaf holds before it splits.
	Capacity = 40

	// MaxSquareSize is the extent at which a leaf splits regardless of its count.
	MaxSquareSize = 40

	// Slack is how far (in map units) a room may sit outside its square's
	// bounds before the plane is re-rooted.
	Slack = 2
)

// Quadrant indexes a square's children.
type Quadrant int

const (
	LeftUpper Quadrant = iota
	RightUpper
	LeftLower
	RightLower
)

// Square is a quadtree node. It is either a leaf holding rooms or an internal
// node holding up to four children, never both.
type Square struct {
	LeftX, TopY     int
	RightX, BottomY int
	CX, CY          int

	rooms    []*mapdata.Room
	children [4]*Square
	internal bool
}

// NewSquare creates an empty leaf with the given bounds. topY must be
// greater than bottomY.
func NewSquare(leftX, topY, rightX, bottomY int) *Square {
	return &Square{
		LeftX:   leftX,
		TopY:    topY,
		RightX:  rightX,
		BottomY: bottomY,
		CX:      leftX + (rightX-leftX)/2,
		CY:      bottomY + (topY-bottomY)/2,
	}
}

// anchorSquare returns the fixed-size root placed around the first room of a plane.
func anchorSquare(x, y int) *Square {
	half := (MaxSquareSize - 1) / 2
	return NewSquare(x-half, y+half, x+half, y-half)
}

// IsLeaf reports whether the square holds rooms rather than children.
func (s *Square) IsLeaf() bool {
	return !s.internal
}

// Rooms returns the rooms of a leaf. The slice must not be modified.
func (s *Square) Rooms() []*mapdata.Room {
	return s.rooms
}

// Children returns the four child slots; absent children are nil.
func (s *Square) Children() [4]*Square {
	return s.children
}

// Extent returns the horizontal size of the square.
func (s *Square) Extent() int {
	return s.RightX - s.LeftX
}

// QuadrantOf returns the quadrant that owns (x, y).
func (s *Square) QuadrantOf(x, y int) Quadrant {
	if x < s.CX {
		if y < s.CY {
			return LeftLower
		}
		return LeftUpper
	}
	if y < s.CY {
		return RightLower
	}
	return RightUpper
}

// Contains reports whether (x, y) lies within the bounds grown by slack.
func (s *Square) Contains(x, y, slack int) bool {
	return x >= s.LeftX-slack && x <= s.RightX+slack &&
		y >= s.BottomY-slack && y <= s.TopY+slack
}

func (s *Square) child(q Quadrant) *Square {
	if c := s.children[q]; c != nil {
		return c
	}
	var c *Square
	switch q {
	case LeftUpper:
		c = NewSquare(s.LeftX, s.TopY, s.CX, s.CY)
	case RightUpper:
		c = NewSquare(s.CX, s.TopY, s.RightX, s.CY)
	case LeftLower:
		c = NewSquare(s.LeftX, s.CY, s.CX, s.BottomY)
	case RightLower:
		c = NewSquare(s.CX, s.CY, s.RightX, s.BottomY)
	}
	s.children[q] = c
	return c
}

func (s *Square) canSplit() bool {
	return s.Extent() >= 2 && s.TopY-s.BottomY >= 2
}

// Insert adds the room to the subtree.
func (s *Square) Insert(room *mapdata.Room) {
	p := s
	for p.internal {
		p = p.child(p.QuadrantOf(room.X, room.Y))
	}

	if (len(p.rooms) < Capacity && p.Extent() < MaxSquareSize) || !p.canSplit() {
		p.rooms = append(p.rooms, room)
		return
	}

	// Split: the leaf becomes internal and hands its rooms to the quadrants.
	moved := p.rooms
	p.rooms = nil
	p.internal = true
	for _, r := range moved {
		p.child(p.QuadrantOf(r.X, r.Y)).Insert(r)
	}
	p.child(p.QuadrantOf(room.X, room.Y)).Insert(room)
}

// Leaf returns the leaf that owns (x, y), or nil when the descent reaches a
// quadrant that was never created.
func (s *Square) Leaf(x, y int) *Square {
	p := s
	for p != nil && p.internal {
		p = p.children[p.QuadrantOf(x, y)]
	}
	return p
}

// Remove erases the room from the subtree. Removing an absent room is a no-op.
func (s *Square) Remove(room *mapdata.Room) bool {
	leaf := s.Leaf(room.X, room.Y)
	if leaf == nil {
		return false
	}
	for i, r := range leaf.rooms {
		if r.ID == room.ID {
			leaf.rooms = append(leaf.rooms[:i], leaf.rooms[i+1:]...)
			return true
		}
	}
	return false
}

// Walk visits the subtree in pre-order. When visit returns false the
// square's children are skipped.
func (s *Square) Walk(visit func(sq *Square) bool) {
	if !visit(s) {
		return
	}
	for _, c := range s.children {
		if c != nil {
			c.Walk(visit)
		}
	}
}

// collect appends every room in the subtree to dst.
func (s *Square) collect(dst []*mapdata.Room) []*mapdata.Room {
	s.Walk(func(sq *Square) bool {
		dst = append(dst, sq.rooms...)
		return true
	})
	return dst
}
