package renderer

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/engine/picking"
	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/roommap"
)

type fakeBackend struct {
	w, h     int
	clears   int
	uploads  int
	draws    int
	vertices []batch.Vertex
}

func (f *fakeBackend) Upload(vertices []batch.Vertex, _ mgl32.Mat4) {
	f.uploads++
	f.vertices = append(f.vertices[:0], vertices...)
}
func (f *fakeBackend) BindTexture(uint32)            {}
func (f *fakeBackend) UnbindTexture()                {}
func (f *fakeBackend) Draw(batch.Topology, int, int) { f.draws++ }
func (f *fakeBackend) Clear()                        { f.clears++ }
func (f *fakeBackend) Size() (int, int)              { return f.w, f.h }

// pointTarget stands in for the GPU pick pass: it projects the centre of
// every submitted quad and colours that single pixel.
type pointTarget struct {
	w, h     int
	pixels   []byte
	binds    int
	restores int
}

func (p *pointTarget) BindOffscreenTarget(w, h int) error {
	p.binds++
	p.w, p.h = w, h
	p.pixels = make([]byte, w*h*4)
	return nil
}

func (p *pointTarget) SubmitBatch(b *batch.Batch, mvp mgl32.Mat4) {
	vs := b.Vertices()
	for _, c := range b.Commands() {
		if c.Topology != batch.Triangles {
			continue
		}
		for i := c.First; i+5 < c.First+c.Count; i += 6 {
			a, cc := mgl32.Vec3(vs[i].Pos), mgl32.Vec3(vs[i+2].Pos)
			mid := a.Add(cc).Mul(0.5)
			clip := mvp.Mul4x1(mid.Vec4(1))
			if clip.W() <= 0 {
				continue
			}
			x := int((clip.X()/clip.W() + 1) / 2 * float32(p.w))
			y := int((clip.Y()/clip.W() + 1) / 2 * float32(p.h))
			if x < 0 || y < 0 || x >= p.w || y >= p.h {
				continue
			}
			col := vs[i].Color
			j := (y*p.w + x) * 4
			p.pixels[j] = byte(col[0]*255 + 0.5)
			p.pixels[j+1] = byte(col[1]*255 + 0.5)
			p.pixels[j+2] = byte(col[2]*255 + 0.5)
			p.pixels[j+3] = 255
		}
	}
}

func (p *pointTarget) ReadPixels(x, y, w, h int) ([]byte, error) {
	out := make([]byte, 0, w*h*4)
	for row := y; row < y+h; row++ {
		start := (row*p.w + x) * 4
		out = append(out, p.pixels[start:start+w*4]...)
	}
	return out, nil
}

func (p *pointTarget) RestoreTarget() { p.restores++ }

func loadGrid(t *testing.T, opts roommap.GridOptions) *roommap.Graph {
	t.Helper()
	g := roommap.New()
	require.NoError(t, g.Load(context.Background(), roommap.Grid(opts)))
	return g
}

func newRenderer(g *roommap.Graph) (*Renderer, *fakeBackend, *pointTarget) {
	backend := &fakeBackend{w: 800, h: 600}
	target := &pointTarget{}
	r := New(Config{VisibleLayers: 1, DetailsVisibility: 500}, g, backend, target)
	return r, backend, target
}

func TestDrawSkipsWhileBlocked(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 5, Height: 5, Layers: 1})
	r, backend, target := newRenderer(g)

	release := g.Block()
	f := r.Draw()
	res, err := r.Pick(400, 300)
	centered := r.CenterOn(1)
	release()

	assert.True(t, f.Skipped)
	assert.Equal(t, 1, backend.clears)
	assert.Zero(t, backend.uploads)
	require.ErrorIs(t, err, ErrBlocked)
	assert.False(t, res.Found)
	assert.Zero(t, target.binds)
	assert.False(t, centered)

	f = r.Draw()
	assert.False(t, f.Skipped)
	assert.Equal(t, 1, backend.uploads)
}

func TestDrawVisibleRooms(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 5, Height: 5, Layers: 1})
	r, backend, _ := newRenderer(g)
	r.SetMarkers([]uint32{13}) // (4, 4)

	f := r.Draw()
	assert.Equal(t, 25, f.Rooms)
	assert.Zero(t, f.PortalRooms)
	assert.Equal(t, len(backend.vertices), f.Vertices)
	assert.Equal(t, f.Commands, backend.draws)

	id, ok := r.Camera().BaseRoom()
	require.True(t, ok)
	assert.Equal(t, uint32(13), id)
}

func TestDrawCullsFarRooms(t *testing.T) {
	g := roommap.New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 2, X: 500, Y: 500}))
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{1})

	f := r.Draw()
	assert.Equal(t, 1, f.Rooms)
	assert.Positive(t, f.Culling.SquaresCulled+f.Culling.RoomsCulled)
}

func TestDrawOnlyVisibleLayers(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 3, Height: 3, Layers: 4})
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{5}) // centre of layer 0

	assert.Equal(t, 9, r.Draw().Rooms)

	// three layers: z-2..z+2 covers layers 0, 1 and 2
	r.SetVisibleLayers(3)
	assert.Equal(t, 27, r.Draw().Rooms)
}

func TestPortalRoomsDrawnOnce(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 4, Height: 4, Layers: 1, Portal: true})
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{1})
	r.Camera().UserZ = -60

	f := r.Draw()
	assert.Equal(t, 16, f.Rooms)
	assert.Equal(t, 16, f.PortalRooms)
}

func TestPortalSpaceCulledAsWhole(t *testing.T) {
	g := roommap.New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 2, X: 1000, Y: 1000}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 3, X: 1010, Y: 1010}))
	require.NoError(t, g.SetRoomRegion(2, "vault"))
	require.NoError(t, g.SetRoomRegion(3, "vault"))
	id := g.AddLocalSpace("vault")
	require.NoError(t, g.SetRegionLocalSpace("vault", id))
	require.NoError(t, g.SetLocalSpacePortal(id, 500, 500, 4, 4))
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{1})

	f := r.Draw()
	assert.Equal(t, 1, f.Rooms)
	assert.Zero(t, f.PortalRooms)
	assert.Equal(t, 1, f.Culling.RoomsTested, "members of a culled space are never tested")

	require.NoError(t, g.SetLocalSpacePortal(id, -2, -2, 4, 4))
	f = r.Draw()
	assert.Equal(t, 2, f.PortalRooms)
}

func TestPickRoomAtScreenCentre(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 5, Height: 5, Layers: 1})
	r, _, target := newRenderer(g)
	r.SetMarkers([]uint32{13})

	res, err := r.Pick(400, 300)
	require.NoError(t, err)
	assert.Equal(t, picking.Result{Found: true, ID: 13}, res)
	assert.Equal(t, 1, target.restores)
}

func TestPickRespectsLayer(t *testing.T) {
	g := roommap.New()
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 1, Z: 0}))
	require.NoError(t, g.AddRoom(&mapdata.Room{ID: 2, Z: 2}))
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{1})
	r.SetVisibleLayers(3)

	// room 2 is stacked over room 1 on another layer and must not hide it
	res, err := r.Pick(400, 300)
	require.NoError(t, err)
	assert.Equal(t, picking.Result{Found: true, ID: 1}, res)

	r.config.SelectAnyLayer = true
	res, err = r.Pick(400, 300)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.ID)

	r.config.SelectAnyLayer = false
	r.Camera().ShiftLayer(2)
	res, err = r.Pick(400, 300)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.ID)
}

func TestCenterOn(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 5, Height: 5, Layers: 1})
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{1})
	r.Draw()

	assert.False(t, r.CenterOn(999))
	require.True(t, r.CenterOn(25)) // (8, 8)
	assert.Equal(t, float32(-8), r.Camera().UserX)
	assert.Equal(t, float32(-8), r.Camera().UserY)

	res, err := r.Pick(400, 300)
	require.NoError(t, err)
	assert.Equal(t, uint32(25), res.ID)
}

func TestMapPoint(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 5, Height: 5, Layers: 1})
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{13})
	r.Draw()

	p, ok := r.MapPoint(400, 300)
	require.True(t, ok)
	assert.InDelta(t, 4, p.X(), 0.05)
	assert.InDelta(t, 4, p.Y(), 0.05)
}

func TestLayerAlpha(t *testing.T) {
	assert.Equal(t, float32(0.95), layerAlpha(0))
	assert.Equal(t, float32(0.25), layerAlpha(-1))
	assert.Equal(t, float32(0.1), layerAlpha(40))
}

func TestIndexOverlay(t *testing.T) {
	g := loadGrid(t, roommap.GridOptions{Width: 5, Height: 5, Layers: 1})
	r, _, _ := newRenderer(g)
	r.SetMarkers([]uint32{13})

	plain := r.Draw()
	assert.Zero(t, plain.Squares)

	r.SetShowIndex(true)
	f := r.Draw()
	assert.Equal(t, 1, f.Squares)
	assert.Equal(t, plain.Vertices+8, f.Vertices)
	assert.Equal(t, plain.Rooms, f.Rooms)
}
