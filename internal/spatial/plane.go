package spatial

import (
	"github.com/Faultbox/mapview/internal/mapdata"
)

// Plane is one Z layer of the map together with its quadtree.
type Plane struct {
	Z    int
	Next *Plane
	Root *Square

	rooms int
}

// Rooms returns the number of rooms indexed on the plane.
func (p *Plane) Rooms() int {
	return p.rooms
}

// PlaneList keeps one plane per Z value in ascending Z order.
type PlaneList struct {
	head   *Plane
	count  int
	reroot int
}

// NewPlaneList creates an empty plane list.
func NewPlaneList() *PlaneList {
	return &PlaneList{}
}

// Head returns the lowest plane, or nil when the list is empty.
func (l *PlaneList) Head() *Plane {
	return l.head
}

// Len returns the number of planes.
func (l *PlaneList) Len() int {
	return l.count
}

// Reroots returns how many times a plane root was replaced by Expand.
func (l *PlaneList) Reroots() int {
	return l.reroot
}

// Reset drops every plane.
func (l *PlaneList) Reset() {
	l.head = nil
	l.count = 0
	l.reroot = 0
}

// Find returns the plane at z, or nil.
func (l *PlaneList) Find(z int) *Plane {
	for p := l.head; p != nil && p.Z <= z; p = p.Next {
		if p.Z == z {
			return p
		}
	}
	return nil
}

// Add indexes the room on the plane matching its Z, creating the plane if needed.
func (l *PlaneList) Add(room *mapdata.Room) {
	var prev *Plane
	p := l.head
	for p != nil && p.Z < room.Z {
		prev, p = p, p.Next
	}

	if p == nil || p.Z != room.Z {
		np := &Plane{Z: room.Z, Next: p, Root: anchorSquare(room.X, room.Y)}
		if prev == nil {
			l.head = np
		} else {
			prev.Next = np
		}
		l.count++
		p = np
	}

	if !p.Root.Contains(room.X, room.Y, Slack) {
		l.Expand(p, room)
	}
	p.Root.Insert(room)
	p.rooms++
}

// Remove drops the room from its plane. Unknown rooms are ignored.
func (l *PlaneList) Remove(room *mapdata.Room) bool {
	p := l.Find(room.Z)
	if p == nil {
		return false
	}
	if !p.Root.Remove(room) {
		return false
	}
	p.rooms--
	return true
}

// Expand grows the plane's root until it covers the room. The root extent is
// doubled toward the room and the existing rooms are reinserted into the new
// tree, so deep chains of splits around a stale anchor never form.
func (l *PlaneList) Expand(p *Plane, room *mapdata.Room) {
	old := p.Root
	left, top, right, bottom := old.LeftX, old.TopY, old.RightX, old.BottomY
	for !(room.X >= left-Slack && room.X <= right+Slack && room.Y >= bottom-Slack && room.Y <= top+Slack) {
		w := right - left
		h := top - bottom
		if room.X < left {
			left -= w
		} else {
			right += w
		}
		if room.Y < bottom {
			bottom -= h
		} else {
			top += h
		}
	}

	p.Root = NewSquare(left, top, right, bottom)
	for _, r := range old.collect(nil) {
		p.Root.Insert(r)
	}
	l.reroot++
}

// PlaneStats summarises one plane's tree.
type PlaneStats struct {
	Z       int `json:"z"`
	Rooms   int `json:"rooms"`
	Squares int `json:"squares"`
	Leaves  int `json:"leaves"`
	Depth   int `json:"depth"`
	Extent  int `json:"extent"`
}

// Stats returns per-plane tree statistics in Z order.
func (l *PlaneList) Stats() []PlaneStats {
	stats := make([]PlaneStats, 0, l.count)
	for p := l.head; p != nil; p = p.Next {
		st := PlaneStats{Z: p.Z, Rooms: p.rooms, Extent: p.Root.Extent()}
		measure(p.Root, 1, &st)
		stats = append(stats, st)
	}
	return stats
}

func measure(s *Square, depth int, st *PlaneStats) {
	st.Squares++
	if depth > st.Depth {
		st.Depth = depth
	}
	if s.IsLeaf() {
		st.Leaves++
		return
	}
	for _, c := range s.children {
		if c != nil {
			measure(c, depth+1, st)
		}
	}
}
