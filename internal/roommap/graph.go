// Package roommap owns the room graph: rooms, regions, local spaces and the
// plane index built over them.
package roommap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/logger"
	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/metrics"
)

var (
	// ErrUnknownRoom is returned for operations on a room id that is not in the graph.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrDuplicateRoom is returned when a room id is already taken.
	ErrDuplicateRoom = errors.New("duplicate room id")

	// ErrUnknownLocalSpace is returned for operations on a missing local space.
	ErrUnknownLocalSpace = errors.New("unknown local space")
)

// yieldEvery is how many rooms a load indexes between cancellation checks.
const yieldEvery = 256

// Graph is the room graph shared by the renderer, the picker and mutators.
//
// Mutations hold the write side of the gate and raise the blocked flag for
// their whole duration. The render path checks Blocked and then only
// try-locks the read side, so a frame never waits on a mutation and never
// observes a half-built graph.
type Graph struct {
	gate    sync.RWMutex
	blocked atomic.Bool
	state   *State
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{state: newState()}
}

// Blocked reports whether a mutation is in progress.
func (g *Graph) Blocked() bool {
	return g.blocked.Load()
}

// View runs fn with the current state unless a mutation is in progress.
// It returns false without calling fn when the graph is blocked.
func (g *Graph) View(fn func(s *State)) bool {
	if g.blocked.Load() {
		return false
	}
	if !g.gate.TryRLock() {
		return false
	}
	defer g.gate.RUnlock()
	fn(g.state)
	return true
}

// Read runs fn with the current state, waiting for any mutation to finish.
func (g *Graph) Read(fn func(s *State)) {
	g.gate.RLock()
	defer g.gate.RUnlock()
	fn(g.state)
}

// Block marks the graph as being edited and holds the write side of the
// gate until release is called. Frames are skipped in between. The other
// mutators must not be called while the block is held.
func (g *Graph) Block() (release func()) {
	g.blocked.Store(true)
	g.gate.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.gate.Unlock()
			g.blocked.Store(false)
		})
	}
}

func (g *Graph) mutate(fn func(s *State) error) error {
	g.blocked.Store(true)
	defer g.blocked.Store(false)
	g.gate.Lock()
	defer g.gate.Unlock()
	if err := fn(g.state); err != nil {
		return err
	}
	g.state.reindexLocalSpaces()
	metrics.MapSize(g.state.Size(), g.state.planes.Len())
	return nil
}

// AddRoom inserts the room into the graph and the plane index.
func (g *Graph) AddRoom(room *mapdata.Room) error {
	return g.mutate(func(s *State) error {
		if err := s.addRoom(room); err != nil {
			return fmt.Errorf("adding room %d: %w", room.ID, err)
		}
		return nil
	})
}

// DeleteRoom removes the room. Normal exits that led to it become undefined.
func (g *Graph) DeleteRoom(id uint32) error {
	return g.mutate(func(s *State) error {
		r, ok := s.rooms[id]
		if !ok {
			return fmt.Errorf("deleting room %d: %w", id, ErrUnknownRoom)
		}
		s.planes.Remove(r)
		delete(s.rooms, id)
		for _, other := range s.rooms {
			for d := range other.Exits {
				if other.Exits[d].Kind == mapdata.ExitNormal && other.Exits[d].To == id {
					other.Exits[d] = mapdata.Exit{Kind: mapdata.ExitUndefined}
				}
			}
		}
		return nil
	})
}

// MoveRoom changes the room's coordinates and reindexes it.
func (g *Graph) MoveRoom(id uint32, x, y, z int) error {
	return g.mutate(func(s *State) error {
		r, ok := s.rooms[id]
		if !ok {
			return fmt.Errorf("moving room %d: %w", id, ErrUnknownRoom)
		}
		s.planes.Remove(r)
		r.X, r.Y, r.Z = x, y, z
		s.planes.Add(r)
		return nil
	})
}

// SetRoomRegion assigns the room to the named region, creating it if needed.
func (g *Graph) SetRoomRegion(id uint32, name string) error {
	return g.mutate(func(s *State) error {
		r, ok := s.rooms[id]
		if !ok {
			return fmt.Errorf("setting region of room %d: %w", id, ErrUnknownRoom)
		}
		r.Region = s.region(name)
		return nil
	})
}

// AddLocalSpace creates a local space and returns its id.
func (g *Graph) AddLocalSpace(name string) int {
	var id int
	_ = g.mutate(func(s *State) error {
		ls := &mapdata.LocalSpace{Name: name}
		s.addLocalSpace(ls)
		id = ls.ID
		return nil
	})
	return id
}

// SetRegionLocalSpace binds the named region to a local space.
func (g *Graph) SetRegionLocalSpace(region string, spaceID int) error {
	return g.mutate(func(s *State) error {
		if _, ok := s.localSpaces[spaceID]; !ok {
			return fmt.Errorf("binding region %q: %w", region, ErrUnknownLocalSpace)
		}
		reg := s.region(region)
		reg.LocalSpaceID = spaceID
		reg.HasLocalSpace = true
		return nil
	})
}

// SetLocalSpacePortal places the local space's portal rectangle in the parent map.
func (g *Graph) SetLocalSpacePortal(id int, x, y, w, h float32) error {
	return g.mutate(func(s *State) error {
		ls, ok := s.localSpaces[id]
		if !ok {
			return fmt.Errorf("setting portal of local space %d: %w", id, ErrUnknownLocalSpace)
		}
		ls.PortalX, ls.PortalY = x, y
		ls.PortalW, ls.PortalH = w, h
		ls.HasPortal = true
		return nil
	})
}

// UpdateLocalSpaceBounds recomputes local space bounds from member rooms.
// Mutators already keep them current.
func (g *Graph) UpdateLocalSpaceBounds() {
	_ = g.mutate(func(*State) error { return nil })
}

// MapData is the input of a bulk load.
type MapData struct {
	Rooms       []*mapdata.Room
	Regions     []*mapdata.Region
	LocalSpaces []*mapdata.LocalSpace
}

// Load replaces the whole graph. The new state is built while the graph is
// blocked and swapped in at the end; a cancelled or failed load leaves the
// previous graph in place.
func (g *Graph) Load(ctx context.Context, data MapData) error {
	g.blocked.Store(true)
	defer g.blocked.Store(false)

	next := newState()
	for _, reg := range data.Regions {
		next.regions[reg.Name] = reg
	}
	for _, ls := range data.LocalSpaces {
		next.addLocalSpace(ls)
	}
	for i, r := range data.Rooms {
		if i%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				logger.Warn("map load cancelled",
					zap.Int("indexed", i),
					zap.Int("total", len(data.Rooms)),
				)
				return fmt.Errorf("loading map: %w", err)
			}
		}
		if r.Region != nil {
			if known, ok := next.regions[r.Region.Name]; ok {
				r.Region = known
			} else {
				next.regions[r.Region.Name] = r.Region
			}
		}
		if err := next.addRoom(r); err != nil {
			return fmt.Errorf("loading room %d: %w", r.ID, err)
		}
	}
	next.reindexLocalSpaces()

	g.gate.Lock()
	g.state = next
	g.gate.Unlock()

	metrics.MapSize(next.Size(), next.planes.Len())
	logger.Info("map loaded",
		zap.Int("rooms", next.Size()),
		zap.Int("planes", next.planes.Len()),
		zap.Int("local_spaces", len(next.localSpaces)),
	)
	return nil
}

// Clear drops every room, region and local space.
func (g *Graph) Clear() {
	_ = g.mutate(func(s *State) error {
		*s = *newState()
		return nil
	})
}
