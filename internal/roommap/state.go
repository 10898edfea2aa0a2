package roommap

import (
	"sort"

	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/spatial"
)

// State is one consistent version of the room graph. Readers obtain it
// through Graph.View or Graph.Read and must not keep it past the callback.
type State struct {
	rooms       map[uint32]*mapdata.Room
	regions     map[string]*mapdata.Region
	localSpaces map[int]*mapdata.LocalSpace
	nextSpaceID int
	planes      *spatial.PlaneList

	// members lists the rooms drawn through each local space, by id.
	members map[int][]*mapdata.Room
}

func newState() *State {
	return &State{
		rooms:       make(map[uint32]*mapdata.Room),
		regions:     make(map[string]*mapdata.Region),
		localSpaces: make(map[int]*mapdata.LocalSpace),
		nextSpaceID: 1,
		planes:      spatial.NewPlaneList(),
		members:     make(map[int][]*mapdata.Room),
	}
}

// Size returns the number of rooms.
func (s *State) Size() int {
	return len(s.rooms)
}

// Room returns the room with the given id.
func (s *State) Room(id uint32) (*mapdata.Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

// Planes returns the lowest plane of the Z-ascending plane list.
func (s *State) Planes() *spatial.Plane {
	return s.planes.Head()
}

// PlaneList returns the plane list backing the index.
func (s *State) PlaneList() *spatial.PlaneList {
	return s.planes
}

// RegionOf returns the room's region, or nil.
func (s *State) RegionOf(room *mapdata.Room) *mapdata.Region {
	if room == nil {
		return nil
	}
	return room.Region
}

// LocalSpace returns a local space by id.
func (s *State) LocalSpace(id int) (*mapdata.LocalSpace, bool) {
	ls, ok := s.localSpaces[id]
	return ls, ok
}

// LocalSpaces returns every local space ordered by id.
func (s *State) LocalSpaces() []*mapdata.LocalSpace {
	out := make([]*mapdata.LocalSpace, 0, len(s.localSpaces))
	for _, ls := range s.localSpaces {
		out = append(out, ls)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Neighbour resolves a normal exit to its target room. Stale ids and
// non-normal exits resolve to nil.
func (s *State) Neighbour(room *mapdata.Room, d mapdata.Direction) *mapdata.Room {
	e := room.Exits[d]
	if e.Kind != mapdata.ExitNormal {
		return nil
	}
	return s.rooms[e.To]
}

// RoomsInLocalSpace returns the rooms whose region is bound to the local
// space, ordered by id. The slice is shared and must not be modified.
func (s *State) RoomsInLocalSpace(id int) []*mapdata.Room {
	return s.members[id]
}

func (s *State) addRoom(room *mapdata.Room) error {
	if _, dup := s.rooms[room.ID]; dup {
		return ErrDuplicateRoom
	}
	s.rooms[room.ID] = room
	s.planes.Add(room)
	return nil
}

func (s *State) region(name string) *mapdata.Region {
	if r, ok := s.regions[name]; ok {
		return r
	}
	r := &mapdata.Region{Name: name}
	s.regions[name] = r
	return r
}

func (s *State) addLocalSpace(ls *mapdata.LocalSpace) {
	if ls.ID <= 0 {
		ls.ID = s.nextSpaceID
	}
	if ls.ID >= s.nextSpaceID {
		s.nextSpaceID = ls.ID + 1
	}
	s.localSpaces[ls.ID] = ls
}

// reindexLocalSpaces rebuilds the member lists and bounds of every local
// space. Spaces without rooms lose their bounds. It runs after each
// mutation so frames never scan the whole room set.
func (s *State) reindexLocalSpaces() {
	clear(s.members)
	for _, ls := range s.localSpaces {
		ls.HasBounds = false
	}
	if len(s.localSpaces) == 0 {
		return
	}
	for _, r := range s.rooms {
		if r.Region == nil || !r.Region.HasLocalSpace {
			continue
		}
		ls, ok := s.localSpaces[r.Region.LocalSpaceID]
		if !ok {
			continue
		}
		s.members[ls.ID] = append(s.members[ls.ID], r)

		x, y, z := float32(r.X), float32(r.Y), float32(r.Z)
		if !ls.HasBounds {
			ls.MinX, ls.MaxX = x, x
			ls.MinY, ls.MaxY = y, y
			ls.MinZ, ls.MaxZ = z, z
			ls.HasBounds = true
			continue
		}
		ls.MinX, ls.MaxX = min(ls.MinX, x), max(ls.MaxX, x)
		ls.MinY, ls.MaxY = min(ls.MinY, y), max(ls.MaxY, y)
		ls.MinZ, ls.MaxZ = min(ls.MinZ, z), max(ls.MaxZ, z)
	}
	for _, rooms := range s.members {
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	}
}
