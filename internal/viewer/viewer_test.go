package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/engine/renderer"
	"github.com/Faultbox/mapview/internal/roommap"
)

type fakeBackend struct {
	uploads int
}

func (f *fakeBackend) Upload([]batch.Vertex, mgl32.Mat4) { f.uploads++ }
func (f *fakeBackend) BindTexture(uint32)                {}
func (f *fakeBackend) UnbindTexture()                    {}
func (f *fakeBackend) Draw(batch.Topology, int, int)     {}
func (f *fakeBackend) Clear()                            {}
func (f *fakeBackend) Size() (int, int)                  { return 800, 600 }

// solidTarget fills the whole pick target with the colour of the first
// submitted vertex.
type solidTarget struct {
	pixels []byte
}

func (s *solidTarget) BindOffscreenTarget(w, h int) error {
	s.pixels = make([]byte, w*h*4)
	return nil
}

func (s *solidTarget) SubmitBatch(b *batch.Batch, _ mgl32.Mat4) {
	vs := b.Vertices()
	if len(vs) == 0 {
		return
	}
	c := vs[0].Color
	for i := 0; i < len(s.pixels); i += 4 {
		s.pixels[i] = byte(c[0]*255 + 0.5)
		s.pixels[i+1] = byte(c[1]*255 + 0.5)
		s.pixels[i+2] = byte(c[2]*255 + 0.5)
		s.pixels[i+3] = 255
	}
}

func (s *solidTarget) ReadPixels(_, _, w, h int) ([]byte, error) {
	return s.pixels[:w*h*4], nil
}

func (s *solidTarget) RestoreTarget() {}

func newViewer(t *testing.T) (*Viewer, *roommap.Graph, *fakeBackend) {
	t.Helper()
	g := roommap.New()
	require.NoError(t, g.Load(context.Background(), roommap.Grid(roommap.GridOptions{Width: 3, Height: 3, Layers: 1})))
	backend := &fakeBackend{}
	r := renderer.New(renderer.Config{VisibleLayers: 1, DetailsVisibility: 500}, g, backend, &solidTarget{})
	v := New(r, Options{RedrawInterval: 33 * time.Millisecond, BlockedRetry: 500 * time.Millisecond})
	v.SetMarkers([]uint32{5})
	return v, g, backend
}

func TestFirstFrameDraws(t *testing.T) {
	v, _, backend := newViewer(t)
	now := time.Unix(1000, 0)

	f, drawn := v.Frame(now)
	require.True(t, drawn)
	assert.Equal(t, 9, f.Rooms)
	assert.Equal(t, 1, backend.uploads)

	_, drawn = v.Frame(now.Add(10 * time.Millisecond))
	assert.False(t, drawn)
}

func TestPeriodicTick(t *testing.T) {
	v, _, _ := newViewer(t)
	now := time.Unix(1000, 0)
	v.Frame(now)

	_, drawn := v.Frame(now.Add(32 * time.Millisecond))
	assert.False(t, drawn)
	_, drawn = v.Frame(now.Add(33 * time.Millisecond))
	assert.True(t, drawn)
}

func TestTriggerRedraw(t *testing.T) {
	v, _, _ := newViewer(t)
	now := time.Unix(1000, 0)
	v.Frame(now)

	v.TriggerRedraw()
	assert.True(t, v.Due(now.Add(time.Millisecond)))
	_, drawn := v.Frame(now.Add(time.Millisecond))
	assert.True(t, drawn)
}

func TestBlockedFrameRetries(t *testing.T) {
	v, g, backend := newViewer(t)
	now := time.Unix(1000, 0)

	release := g.Block()
	f, drawn := v.Frame(now)
	require.True(t, drawn)
	assert.True(t, f.Skipped)
	assert.Zero(t, backend.uploads)

	// triggers and ticks do not bypass the retry delay
	v.TriggerRedraw()
	_, drawn = v.Frame(now.Add(100 * time.Millisecond))
	assert.False(t, drawn)

	release()
	_, drawn = v.Frame(now.Add(499 * time.Millisecond))
	assert.False(t, drawn)

	f, drawn = v.Frame(now.Add(500 * time.Millisecond))
	require.True(t, drawn)
	assert.False(t, f.Skipped)
	assert.Equal(t, 1, backend.uploads)
	assert.False(t, v.Due(now.Add(501*time.Millisecond)))
}

func TestPickSelects(t *testing.T) {
	v, _, _ := newViewer(t)
	now := time.Unix(1000, 0)
	v.Frame(now)

	found, id := v.Pick(400, 300)
	require.True(t, found)
	assert.NotZero(t, id)
	assert.True(t, v.Due(now.Add(time.Millisecond)))
}

func TestCenterCameraOn(t *testing.T) {
	v, _, _ := newViewer(t)
	now := time.Unix(1000, 0)
	v.Frame(now)

	assert.False(t, v.CenterCameraOn(42))
	assert.False(t, v.Due(now.Add(time.Millisecond)))

	assert.True(t, v.CenterCameraOn(9))
	assert.True(t, v.Due(now.Add(time.Millisecond)))
}

func TestCameraGestures(t *testing.T) {
	v, _, _ := newViewer(t)
	cam := v.Renderer().Camera()

	v.Rotate(10, 0)
	assert.Equal(t, float32(5), cam.AngleZ)

	v.Zoom(2)
	assert.Equal(t, float32(-10), cam.UserZ)

	v.ShiftLayer(1)
	assert.Equal(t, 1, cam.LayerShift())

	v.ResetCamera()
	assert.Zero(t, cam.AngleZ)
	assert.Zero(t, cam.LayerShift())
}

func TestBlockedPickKeepsSelection(t *testing.T) {
	v, g, _ := newViewer(t)
	v.Frame(time.Unix(1000, 0))

	found, id := v.Pick(400, 300)
	require.True(t, found)
	require.Equal(t, []uint32{id}, v.Renderer().Selected())

	release := g.Block()
	found, _ = v.Pick(400, 300)
	release()

	assert.False(t, found)
	assert.Equal(t, []uint32{id}, v.Renderer().Selected())
}

func TestGesturesFollowEffectiveScale(t *testing.T) {
	g := roommap.New()
	require.NoError(t, g.Load(context.Background(), roommap.Grid(roommap.GridOptions{Width: 3, Height: 3, Layers: 1, Portal: true})))
	r := renderer.New(renderer.Config{VisibleLayers: 1, DetailsVisibility: 500}, g, &fakeBackend{}, &solidTarget{})
	v := New(r, Options{})
	v.SetMarkers([]uint32{10}) // first cellar room
	v.Frame(time.Unix(1000, 0))

	cam := r.Camera()
	scale := cam.EffectiveScale()
	require.InDelta(t, 8.0/30.0, scale, 1e-5)

	v.Zoom(2)
	assert.InDelta(t, -12+2*scale, cam.UserZ, 1e-5)

	k := -cam.UserZ / 400 * scale
	v.Pan(100, 0)
	assert.InDelta(t, 100*k, cam.UserX, 1e-5)
}

func TestMapPoint(t *testing.T) {
	v, _, _ := newViewer(t)
	v.Frame(time.Unix(1000, 0))

	p, ok := v.MapPoint(400, 300)
	require.True(t, ok)
	assert.InDelta(t, 2, p.X(), 0.05) // room 5 sits at (2, 2)
	assert.InDelta(t, 2, p.Y(), 0.05)
}
