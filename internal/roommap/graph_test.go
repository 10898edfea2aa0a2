package roommap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/mapview/internal/engine/localspace"
	"github.com/Faultbox/mapview/internal/mapdata"
)

func TestAddAndLookup(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1, X: 0, Y: 0, Z: 0}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 2, X: 1, Y: 0, Z: 1}))

	err := g.AddRoom(&mapdata.Room{ID: 2})
	require.ErrorIs(t, err, ErrDuplicateRoom)

	g.Read(func(s *State) {
		assert.Equal(t, 2, s.Size())
		r, ok := s.Room(2)
		require.True(t, ok)
		assert.Equal(t, 1, r.Z)
		require.NotNil(t, s.Planes())
		assert.Equal(t, 0, s.Planes().Z)
		assert.Equal(t, 1, s.Planes().Next.Z)
	})
}

func TestDeleteRoomTurnsExitsUndefined(t *testing.T) {
	g := New()
	a := &mapdata.Room{ID: 1}
	b := &mapdata.Room{ID: 2, X: 1}
	a.SetExit(mapdata.East, 2)
	b.SetExit(mapdata.West, 1)
	require.NoError(t, g.AddRoom(a))
	require.NoError(t, g.AddRoom(b))

	require.NoError(t, g.DeleteRoom(2))
	assert.Equal(t, mapdata.ExitUndefined, a.Exits[mapdata.East].Kind)
	require.ErrorIs(t, g.DeleteRoom(2), ErrUnknownRoom)

	g.Read(func(s *State) {
		p := s.PlaneList().Find(0)
		require.NotNil(t, p)
		assert.Equal(t, 1, p.Rooms())
	})
}

func TestNeighbourIgnoresStaleIDs(t *testing.T) {
	g := New()
	a := &mapdata.Room{ID: 1}
	a.SetExit(mapdata.North, 77)
	a.Exits[mapdata.Down] = mapdata.Exit{Kind: mapdata.ExitDeath}
	require.NoError(t, g.AddRoom(a))

	g.Read(func(s *State) {
		assert.Nil(t, s.Neighbour(a, mapdata.North))
		assert.Nil(t, s.Neighbour(a, mapdata.Down))
		assert.Nil(t, s.Neighbour(a, mapdata.East))
	})
}

func TestMoveRoomReindexes(t *testing.T) {
	g := New()
	r := &mapdata.Room{ID: 5, X: 0, Y: 0, Z: 0}
	require.NoError(t, g.AddRoom(r))
	require.NoError(t, g.MoveRoom(5, 3, 4, 2))

	g.Read(func(s *State) {
		assert.Equal(t, 0, s.PlaneList().Find(0).Rooms())
		p := s.PlaneList().Find(2)
		require.NotNil(t, p)
		assert.Contains(t, p.Root.Leaf(3, 4).Rooms(), r)
	})
}

func TestViewSkipsWhileBlocked(t *testing.T) {
	g := New()
	g.blocked.Store(true)
	called := false
	assert.False(t, g.View(func(*State) { called = true }))
	assert.False(t, called)

	g.blocked.Store(false)
	assert.True(t, g.View(func(*State) { called = true }))
	assert.True(t, called)
}

func TestViewSkipsWhileWriteLocked(t *testing.T) {
	g := New()
	g.gate.Lock()
	called := false
	assert.False(t, g.View(func(*State) { called = true }))
	g.gate.Unlock()
	assert.False(t, called)
}

func TestLoadReplacesState(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 999}))

	data := Grid(GridOptions{Width: 10, Height: 10, Layers: 2})
	require.NoError(t, g.Load(context.Background(), data))
	assert.False(t, g.Blocked())

	g.Read(func(s *State) {
		assert.Equal(t, 200, s.Size())
		_, ok := s.Room(999)
		assert.False(t, ok)
		assert.Equal(t, 2, s.PlaneList().Len())
	})
}

func TestCancelledLoadKeepsPreviousGraph(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 999}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Load(ctx, Grid(GridOptions{Width: 30, Height: 30, Layers: 1}))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, g.Blocked())

	g.Read(func(s *State) {
		assert.Equal(t, 1, s.Size())
		_, ok := s.Room(999)
		assert.True(t, ok)
	})
}

func TestLocalSpaceBindingAndBounds(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1, X: -10, Y: -10, Z: 0}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 2, X: 10, Y: 10, Z: 2}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 3, X: 50, Y: 50, Z: 0}))
	require.NoError(t, g.SetRoomRegion(1, "inner"))
	require.NoError(t, g.SetRoomRegion(2, "inner"))
	require.NoError(t, g.SetRoomRegion(3, "outer"))

	id := g.AddLocalSpace("inner space")
	require.ErrorIs(t, g.SetRegionLocalSpace("inner", id+1), ErrUnknownLocalSpace)
	require.NoError(t, g.SetRegionLocalSpace("inner", id))
	require.NoError(t, g.SetLocalSpacePortal(id, 100, 100, 4, 2))

	g.Read(func(s *State) {
		ls, ok := s.LocalSpace(id)
		require.True(t, ok)
		assert.True(t, ls.HasBounds)
		assert.True(t, ls.HasPortal)
		assert.Equal(t, float32(-10), ls.MinX)
		assert.Equal(t, float32(10), ls.MaxX)
		assert.Equal(t, float32(2), ls.MaxZ)

		rooms := s.RoomsInLocalSpace(id)
		require.Len(t, rooms, 2)
		assert.Equal(t, uint32(1), rooms[0].ID)
		assert.Equal(t, uint32(2), rooms[1].ID)
	})
}

func TestLocalSpaceBoundsFollowMutations(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 2, X: 10, Y: 10}))
	require.NoError(t, g.SetRoomRegion(1, "inner"))
	require.NoError(t, g.SetRoomRegion(2, "inner"))
	id := g.AddLocalSpace("inner space")
	require.NoError(t, g.SetRegionLocalSpace("inner", id))
	require.NoError(t, g.SetLocalSpacePortal(id, 100, 100, 4, 4))

	bounds := func() (minX, maxX float32, n int) {
		g.Read(func(s *State) {
			ls, ok := s.LocalSpace(id)
			require.True(t, ok)
			minX, maxX, n = ls.MinX, ls.MaxX, len(s.RoomsInLocalSpace(id))
		})
		return minX, maxX, n
	}

	require.NoError(t, g.MoveRoom(2, 30, 30, 0))
	minX, maxX, n := bounds()
	assert.Equal(t, float32(0), minX)
	assert.Equal(t, float32(30), maxX)
	assert.Equal(t, 2, n)

	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 3, X: 50, Y: 50}))
	require.NoError(t, g.SetRoomRegion(3, "inner"))
	_, maxX, n = bounds()
	assert.Equal(t, float32(50), maxX)
	assert.Equal(t, 3, n)

	g.Read(func(s *State) {
		tr := localspace.New(s)
		for _, room := range s.RoomsInLocalSpace(id) {
			p := tr.Transform(room).Pos
			assert.True(t, p.X() > 100-1e-4 && p.X() < 104+1e-4, "room %d at %v", room.ID, p)
			assert.True(t, p.Y() > 100-1e-4 && p.Y() < 104+1e-4, "room %d at %v", room.ID, p)
		}
	})

	require.NoError(t, g.DeleteRoom(3))
	require.NoError(t, g.SetRoomRegion(2, "outer"))
	g.UpdateLocalSpaceBounds()
	_, _, n = bounds()
	assert.Equal(t, 1, n)

	g.Read(func(s *State) {
		ls, _ := s.LocalSpace(id)
		assert.True(t, ls.HasBounds)
		assert.Equal(t, ls.MinX, ls.MaxX)
	})
}

func TestGridWithPortal(t *testing.T) {
	data := Grid(GridOptions{Width: 4, Height: 4, Layers: 1, Portal: true})
	g := New()
	require.NoError(t, g.Load(context.Background(), data))
	g.Read(func(s *State) {
		spaces := s.LocalSpaces()
		require.Len(t, spaces, 1)
		assert.True(t, spaces[0].HasBounds)
		assert.Len(t, s.RoomsInLocalSpace(spaces[0].ID), 16)
	})
}

func TestBlockHoldsFramesUntilReleased(t *testing.T) {
	g := New()
	release := g.Block()
	assert.True(t, g.Blocked())
	assert.False(t, g.View(func(*State) {}))

	release()
	release()
	assert.False(t, g.Blocked())
	assert.True(t, g.View(func(*State) {}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1}))
}
