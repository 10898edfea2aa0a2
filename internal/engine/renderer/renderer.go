// Package renderer builds each frame of the map: it walks the visible
// planes, culls quadtree squares and rooms against the frustum, emits room
// geometry into one batch and submits it to a Backend.
package renderer

import (
	"errors"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/engine/camera"
	"github.com/Faultbox/mapview/internal/engine/debug"
	"github.com/Faultbox/mapview/internal/engine/frustum"
	"github.com/Faultbox/mapview/internal/engine/localspace"
	"github.com/Faultbox/mapview/internal/engine/picking"
	"github.com/Faultbox/mapview/internal/logger"
	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/metrics"
	"github.com/Faultbox/mapview/internal/roommap"
	"github.com/Faultbox/mapview/internal/spatial"
)

// ErrBlocked is returned by Pick when the map is being edited.
var ErrBlocked = errors.New("map is blocked")

// Backend draws batches to the screen.
type Backend interface {
	batch.Sink
	// Clear clears the on-screen colour and depth buffers.
	Clear()
	// Size returns the drawable size in pixels.
	Size() (width, height int)
}

// Config holds renderer configuration.
type Config struct {
	VisibleLayers     int
	DetailsVisibility float32
	FOV               float32
	ShowNotes         bool
	SelectAnyLayer    bool
	PickTolerance     int
	ShowIndex         bool // outline the quadtree squares of visible planes
}

// Frame describes what the last Draw did.
type Frame struct {
	Skipped     bool
	Rooms       int
	PortalRooms int
	Vertices    int
	Commands    int
	Squares     int // index squares outlined when ShowIndex is set
	Culling     frustum.Stats
}

// Renderer owns the camera and per-frame state.
type Renderer struct {
	config  Config
	graph   *roommap.Graph
	backend Backend
	picker  *picking.Picker

	cam    *camera.Camera
	culler *frustum.Culler
	batch  *batch.Batch

	markers  []uint32
	selected map[uint32]struct{}
}

// New creates a renderer over the graph. target may be nil when picking is
// not needed.
func New(cfg Config, graph *roommap.Graph, backend Backend, target picking.Target) *Renderer {
	if cfg.VisibleLayers <= 0 {
		cfg.VisibleLayers = 1
	}
	r := &Renderer{
		config:   cfg,
		graph:    graph,
		backend:  backend,
		cam:      camera.New(cfg.DetailsVisibility),
		culler:   frustum.New(),
		batch:    batch.New(),
		selected: make(map[uint32]struct{}),
	}
	if cfg.FOV > 0 {
		r.cam.FOV = cfg.FOV
	}
	if target != nil {
		r.picker = picking.New(target)
		if cfg.PickTolerance > 0 {
			r.picker.Tolerance = cfg.PickTolerance
		}
	}
	return r
}

// Camera returns the renderer's camera.
func (r *Renderer) Camera() *camera.Camera {
	return r.cam
}

// Config returns the current configuration.
func (r *Renderer) Config() Config {
	return r.config
}

// SetVisibleLayers changes how many layers around the current one are drawn.
func (r *Renderer) SetVisibleLayers(n int) {
	r.config.VisibleLayers = max(n, 1)
}

// SetMarkers replaces the current-position rooms. The camera base follows
// the marker nearest to it.
func (r *Renderer) SetMarkers(ids []uint32) {
	r.markers = append(r.markers[:0], ids...)
}

// Select toggles the selection highlight of a room.
func (r *Renderer) Select(id uint32, on bool) {
	if on {
		r.selected[id] = struct{}{}
		return
	}
	delete(r.selected, id)
}

// Selected returns the highlighted rooms in ascending id order.
func (r *Renderer) Selected() []uint32 {
	out := make([]uint32, 0, len(r.selected))
	for id := range r.selected {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ClearSelection removes every highlight.
func (r *Renderer) ClearSelection() {
	clear(r.selected)
}

// Draw renders one frame. While the graph is blocked the screen is only
// cleared and the returned frame is marked skipped; nothing in the graph is
// touched.
func (r *Renderer) Draw() Frame {
	start := time.Now()
	r.backend.Clear()

	var f Frame
	ok := r.graph.View(func(s *roommap.State) {
		f = r.drawState(s)
	})
	if !ok {
		metrics.FrameSkipped()
		logger.Debug("map is blocked, frame skipped")
		return Frame{Skipped: true}
	}

	metrics.FrameDrawn(time.Since(start), f.Rooms, f.PortalRooms, f.Commands)
	metrics.Culled(f.Culling.SquaresCulled, f.Culling.RoomsCulled)
	return f
}

func (r *Renderer) drawState(s *roommap.State) Frame {
	tr := localspace.New(s)
	mvp := r.setupFrame(s, tr)

	r.batch.Reset()
	var f Frame
	r.traverse(s, tr, func(room *mapdata.Room, t localspace.Transform, alpha float32) {
		r.emitRoom(s, tr, room, t, alpha)
		if t.Portal {
			f.PortalRooms++
		} else {
			f.Rooms++
		}
	})
	r.emitMarkers(s, tr)
	f.Culling = r.culler.Stats()
	if r.config.ShowIndex {
		f.Squares = r.emitIndex(s)
	}

	r.batch.Flush(r.backend, mvp)
	f.Vertices = len(r.batch.Vertices())
	f.Commands = len(r.batch.Commands())
	return f
}

// emitIndex outlines the squares of the visible planes that pass the
// frustum test.
func (r *Renderer) emitIndex(s *roommap.State) int {
	lower, upper := r.cam.VisibleLayers(r.config.VisibleLayers)
	n := 0
	for p := s.Planes(); p != nil && p.Z <= upper; p = p.Next {
		if p.Z < lower {
			continue
		}
		z := p.Z
		n += debug.OutlineSquares(r.batch, p.Root, float32(z), func(sq *spatial.Square) bool {
			return r.culler.IsSquareInFrustum(sq, z)
		}, indexNodeColor, indexLeafColor)
	}
	return n
}

// SetShowIndex toggles the index overlay.
func (r *Renderer) SetShowIndex(on bool) {
	r.config.ShowIndex = on
}

// setupFrame updates the camera base from the markers, recomputes the
// frustum and returns the frame's model-view-projection matrix.
func (r *Renderer) setupFrame(s *roommap.State, tr *localspace.Transformer) mgl32.Mat4 {
	r.cam.UpdateBase(r.baseCandidates(s, tr))

	w, h := r.backend.Size()
	view := r.cam.View()
	proj := r.cam.Projection(w, h)
	r.culler.ResetStats()
	r.culler.Recompute(view, proj)
	return proj.Mul4(view)
}

func (r *Renderer) baseCandidates(s *roommap.State, tr *localspace.Transformer) []camera.Base {
	out := make([]camera.Base, 0, len(r.markers))
	for _, id := range r.markers {
		room, ok := s.Room(id)
		if !ok {
			continue
		}
		t := tr.Transform(room)
		out = append(out, camera.Base{ID: id, Pos: t.Pos, Scale: t.Scale})
	}
	return out
}

// traverse visits every room to draw this frame: first the rooms of the
// visible planes found through the quadtree, then the rooms drawn through
// local space portals whose transformed layer is visible. A portal space
// outside the layer window or the frustum is skipped as a whole. Rooms
// drawn through a portal are skipped in the plane pass so no room is
// visited twice.
func (r *Renderer) traverse(s *roommap.State, tr *localspace.Transformer, visit func(room *mapdata.Room, t localspace.Transform, alpha float32)) {
	lower, upper := r.cam.VisibleLayers(r.config.VisibleLayers)
	curZ := r.cam.CurrentZ()

	for p := s.Planes(); p != nil && p.Z <= upper; p = p.Next {
		if p.Z < lower {
			continue
		}
		alpha := layerAlpha(p.Z - curZ)
		z := p.Z
		p.Root.Walk(func(sq *spatial.Square) bool {
			if !r.culler.IsSquareInFrustum(sq, z) {
				return false
			}
			for _, room := range sq.Rooms() {
				if _, portal := tr.Space(room); portal {
					continue
				}
				t := localspace.Identity(room)
				if !r.culler.IsPointInFrustum(t.Pos.X(), t.Pos.Y(), t.Pos.Z()) {
					continue
				}
				visit(room, t, alpha)
			}
			return true
		})
	}

	for _, ls := range s.LocalSpaces() {
		lo, hi, ok := localspace.Box(ls)
		if !ok {
			continue
		}
		if layerOf(hi.Z()) < lower || layerOf(lo.Z()) > upper {
			continue
		}
		if !r.culler.IsBoxInFrustum(lo, hi) {
			continue
		}
		for _, room := range s.RoomsInLocalSpace(ls.ID) {
			t := tr.Transform(room)
			if !t.Portal {
				continue
			}
			z := renderLayer(t)
			if z < lower || z > upper {
				continue
			}
			if !r.culler.IsPointInFrustum(t.Pos.X(), t.Pos.Y(), t.Pos.Z()) {
				continue
			}
			visit(room, t, layerAlpha(z-curZ))
		}
	}
}

// CenterOn pans the camera onto a room. It returns false when the room is
// unknown or the graph is blocked.
func (r *Renderer) CenterOn(id uint32) bool {
	found := false
	ok := r.graph.View(func(s *roommap.State) {
		room, exists := s.Room(id)
		if !exists {
			return
		}
		t := localspace.New(s).Transform(room)
		r.cam.CenterOn(t.Pos)
		found = true
	})
	if !ok {
		logger.Debug("map is blocked, center skipped", zap.Uint32("room", id))
	}
	return found
}

// Pick resolves a window point (origin top-left) to a room id. The pick
// pass uses the same traversal as Draw with each selectable room drawn as a
// flat quad in its id colour. It returns ErrBlocked without touching the
// target while the map is being edited.
func (r *Renderer) Pick(x, y int) (picking.Result, error) {
	if r.picker == nil {
		return picking.Result{}, errors.New("picking: no target")
	}

	var res picking.Result
	var err error
	ok := r.graph.View(func(s *roommap.State) {
		tr := localspace.New(s)
		mvp := r.setupFrame(s, tr)
		curZ := r.cam.CurrentZ()

		r.picker.Accept = func(id uint32) bool {
			room, exists := s.Room(id)
			return exists && r.acceptPick(tr.Transform(room), curZ)
		}

		w, h := r.backend.Size()
		res, err = r.picker.Pick(x, y, picking.Viewport{Width: w, Height: h}, mvp, func(b *batch.Batch) {
			r.traverse(s, tr, func(room *mapdata.Room, t localspace.Transform, _ float32) {
				// rooms that cannot be selected must not hide the ones that can
				if r.acceptPick(t, curZ) {
					emitPickQuad(b, room, t)
				}
			})
		})
	})
	switch {
	case !ok:
		metrics.Pick(metrics.PickSkip)
		return picking.Result{}, ErrBlocked
	case err != nil:
		metrics.Pick(metrics.PickError)
		logger.Error("pick failed", zap.Error(err))
		return picking.Result{}, err
	case res.Found:
		metrics.Pick(metrics.PickHit)
		logger.Debug("picked room", zap.Uint32("room", res.ID), zap.Int("x", x), zap.Int("y", y))
	default:
		metrics.Pick(metrics.PickMiss)
	}
	return res, nil
}

// acceptPick limits pick candidates to the current layer unless picking on
// any layer is enabled. Rooms drawn through a portal are judged by their
// transformed layer.
func (r *Renderer) acceptPick(t localspace.Transform, curZ int) bool {
	if r.config.SelectAnyLayer {
		return true
	}
	return renderLayer(t) == curZ
}

// MapPoint returns the map coordinates under a window point on the current
// layer.
func (r *Renderer) MapPoint(x, y int) (mgl32.Vec2, bool) {
	w, h := r.backend.Size()
	if w <= 0 || h <= 0 {
		return mgl32.Vec2{}, false
	}
	inv := r.cam.Projection(w, h).Mul4(r.cam.View()).Inv()
	ray := picking.ScreenToRay(float32(x), float32(y), picking.Viewport{Width: w, Height: h}, inv)
	mx, my, ok := ray.IntersectPlaneZ(float32(r.cam.CurrentZ()))
	return mgl32.Vec2{mx, my}, ok
}
