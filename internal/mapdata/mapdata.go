// Package mapdata defines the room map value types shared by the index,
// the room graph and the renderer.
package mapdata

// Direction indexes a room's exit slots.
type Direction int

const (
	North Direction = iota
	East
	South
	West
	Up
	Down
)

// NumExits is the number of exit slots per room.
const NumExits = 6

var directionNames = [NumExits]string{"north", "east", "south", "west", "up", "down"}

var directionOffsets = [NumExits][3]int{
	{0, 1, 0},
	{1, 0, 0},
	{0, -1, 0},
	{-1, 0, 0},
	{0, 0, 1},
	{0, 0, -1},
}

// String returns the direction name.
func (d Direction) String() string {
	if d < 0 || int(d) >= NumExits {
		return "unknown"
	}
	return directionNames[d]
}

// Offset returns the unit step for the direction.
func (d Direction) Offset() (dx, dy, dz int) {
	if d < 0 || int(d) >= NumExits {
		return 0, 0, 0
	}
	o := directionOffsets[d]
	return o[0], o[1], o[2]
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case North:
		return South
	case East:
		return West
	case South:
		return North
	case West:
		return East
	case Up:
		return Down
	default:
		return Up
	}
}

// ExitKind describes what occupies an exit slot.
type ExitKind uint8

const (
	ExitNone ExitKind = iota
	ExitNormal
	ExitUndefined
	ExitDeath
)

// Exit is one directional exit slot. To is only meaningful for ExitNormal.
type Exit struct {
	Kind ExitKind
	To   uint32
}

// Region groups rooms and optionally binds them to a local space.
type Region struct {
	Name          string
	LocalSpaceID  int
	HasLocalSpace bool
}

// Room is an atomic map node.
type Room struct {
	ID      uint32
	X, Y, Z int
	Exits   [NumExits]Exit
	Region  *Region
	Texture uint32 // sector texture handle, 0 = untextured
	Note    string
}

// SetExit links the room to another room in direction d.
func (r *Room) SetExit(d Direction, to uint32) {
	r.Exits[d] = Exit{Kind: ExitNormal, To: to}
}

// LocalSpace is a bounded sub-map rendered through a portal rectangle in its
// parent's render space.
type LocalSpace struct {
	ID   int
	Name string

	PortalX, PortalY float32
	PortalW, PortalH float32
	HasPortal        bool

	MinX, MaxX float32
	MinY, MaxY float32
	MinZ, MaxZ float32
	HasBounds  bool
}

// Center returns the midpoint of the local space bounds.
func (ls *LocalSpace) Center() (x, y, z float32) {
	return (ls.MinX + ls.MaxX) / 2, (ls.MinY + ls.MaxY) / 2, (ls.MinZ + ls.MaxZ) / 2
}

// PortalCenter returns the center of the portal rectangle in parent space.
func (ls *LocalSpace) PortalCenter() (x, y float32) {
	return ls.PortalX + ls.PortalW/2, ls.PortalY + ls.PortalH/2
}
