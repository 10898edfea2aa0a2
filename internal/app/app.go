// Package app runs the interactive map viewer: window, input, GL backend
// and the redraw loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/config"
	"github.com/Faultbox/mapview/internal/engine/debug"
	"github.com/Faultbox/mapview/internal/engine/glbackend"
	"github.com/Faultbox/mapview/internal/engine/input"
	"github.com/Faultbox/mapview/internal/engine/renderer"
	"github.com/Faultbox/mapview/internal/engine/texture"
	"github.com/Faultbox/mapview/internal/engine/window"
	"github.com/Faultbox/mapview/internal/logger"
	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/roommap"
	"github.com/Faultbox/mapview/internal/viewer"
)

// App is the viewer process.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	window  *window.Window
	backend *glbackend.Backend
	input   *input.Input
	graph   *roommap.Graph
	viewer  *viewer.Viewer

	floorTexture uint32
	marker       uint32
	loads        chan error
	loading      bool

	// map coordinates of the last click on the current layer
	cursor    mgl32.Vec2
	hasCursor bool

	screenshots    *debug.Screenshots
	wantScreenshot bool
}

// New creates the window and GL backend and loads the demo map.
func New(ctx context.Context, cfg *config.Config, graph *roommap.Graph) (*App, error) {
	a := &App{
		cfg:   cfg,
		log:   logger.Named("app"),
		graph: graph,
		input: input.New(),
		loads: make(chan error, 1),

		screenshots: debug.NewScreenshots(cfg.Graphics.ScreenshotDir, "mapview"),
	}

	var err error
	a.window, err = window.New(window.Config{
		Title:      "mapview",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The backend needs the GL context created with the window.
	w, h := a.window.DrawableSize()
	a.backend, err = glbackend.New(w, h)
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create GL backend: %w", err)
	}

	a.floorTexture = a.backend.UploadTexture(a.loadFloorTexture())

	r := renderer.New(renderer.Config{
		VisibleLayers:     cfg.Renderer.VisibleLayers,
		DetailsVisibility: cfg.Renderer.DetailsVisibility,
		FOV:               cfg.Renderer.FOV,
		ShowNotes:         cfg.Renderer.ShowNotes,
		SelectAnyLayer:    cfg.Renderer.SelectAnyLayer,
		PickTolerance:     cfg.Picking.Tolerance,
		ShowIndex:         cfg.Renderer.ShowIndex,
	}, graph, a.backend, a.backend)
	a.viewer = viewer.New(r, viewer.Options{
		RedrawInterval: cfg.Renderer.RedrawInterval,
		BlockedRetry:   cfg.Renderer.BlockedRetry,
	})

	if err := graph.Load(ctx, a.mapData()); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load map: %w", err)
	}
	a.marker = 1
	a.viewer.SetMarkers([]uint32{a.marker})

	a.log.Info("viewer initialized")
	return a, nil
}

func (a *App) loadFloorTexture() *image.RGBA {
	if path := a.cfg.Map.TexturePath; path != "" {
		img, err := texture.Load(path)
		if err == nil {
			return img
		}
		a.log.Warn("falling back to checker floor", zap.String("path", path), zap.Error(err))
	}
	return texture.Checker(64, 8, color.RGBA{R: 150, G: 120, B: 90, A: 255}, color.RGBA{R: 110, G: 85, B: 60, A: 255})
}

// mapData builds the demo map. Rooms of regions bound to a local space get
// the floor texture.
func (a *App) mapData() roommap.MapData {
	data := roommap.Grid(roommap.GridOptions{
		Width:  a.cfg.Map.Width,
		Height: a.cfg.Map.Height,
		Layers: a.cfg.Map.Layers,
		Portal: a.cfg.Map.Portal,
	})
	for _, r := range data.Rooms {
		if r.Region != nil && r.Region.HasLocalSpace {
			r.Texture = a.floorTexture
		}
	}
	return data
}

// Run drives the viewer until the window is closed or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting viewer loop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-a.loads:
			a.loading = false
			a.finishReload(err)
		default:
		}

		if a.input.Update() {
			return nil
		}
		if quit := a.handleEvents(ctx); quit {
			return nil
		}

		now := time.Now()
		if f, drawn := a.viewer.Frame(now); drawn {
			if !f.Skipped {
				a.captureScreenshot()
				a.updateTitle(f)
			}
			a.window.SwapBuffers()
			continue
		}
		sdl.Delay(2)
	}
}

func (a *App) handleEvents(ctx context.Context) bool {
	for _, e := range a.input.Events() {
		switch e.Type {
		case input.EventQuit:
			return true
		case input.EventWindowResize:
			w, h := a.window.DrawableSize()
			a.backend.Resize(w, h)
			a.viewer.TriggerRedraw()
		case input.EventDrag:
			if e.Button == sdl.BUTTON_LEFT {
				a.viewer.Rotate(e.DX, e.DY)
			} else {
				a.viewer.Pan(e.DX, e.DY)
			}
		case input.EventWheel:
			a.viewer.Zoom(e.Wheel)
		case input.EventClick:
			a.click(e)
		case input.EventKeyDown:
			if a.key(ctx, e.Key) == actionQuit {
				return true
			}
		}
	}
	return false
}

// click picks the room under the cursor. The right button also centres on
// it. Mouse events are in window units and the pick pass in pixels.
func (a *App) click(e input.Event) {
	x, y := a.toPixels(e.X, e.Y)
	a.cursor, a.hasCursor = a.viewer.MapPoint(x, y)
	found, id := a.viewer.Pick(x, y)
	if !found {
		if a.hasCursor {
			a.log.Debug("no room under cursor",
				zap.Float32("map_x", a.cursor.X()),
				zap.Float32("map_y", a.cursor.Y()),
			)
		}
		return
	}
	a.log.Info("room selected", zap.Uint32("room", id))
	if e.Button == sdl.BUTTON_RIGHT {
		a.viewer.CenterCameraOn(id)
	}
}

func (a *App) toPixels(x, y int) (int, int) {
	ww, wh := a.window.Size()
	dw, dh := a.window.DrawableSize()
	if ww <= 0 || wh <= 0 {
		return x, y
	}
	return x * dw / ww, y * dh / wh
}

func (a *App) key(ctx context.Context, key sdl.Scancode) action {
	act, arg := keyAction(key)
	r := a.viewer.Renderer()
	switch act {
	case actionLayer:
		a.viewer.ShiftLayer(arg)
	case actionVisibleLayers:
		a.viewer.SetVisibleLayers(r.Config().VisibleLayers + arg)
	case actionResetCamera:
		a.viewer.ResetCamera()
	case actionCenter:
		a.viewer.CenterCameraOn(a.marker)
	case actionMove:
		a.moveMarker(mapdata.Direction(arg))
	case actionReload:
		a.reload(ctx)
	case actionToggleIndex:
		r.SetShowIndex(!r.Config().ShowIndex)
		a.viewer.TriggerRedraw()
	case actionScreenshot:
		a.wantScreenshot = true
		a.viewer.TriggerRedraw()
	}
	return act
}

// moveMarker walks the current-position marker through an exit.
func (a *App) moveMarker(dir mapdata.Direction) {
	var next uint32
	a.graph.Read(func(s *roommap.State) {
		room, ok := s.Room(a.marker)
		if !ok {
			return
		}
		if to := s.Neighbour(room, dir); to != nil {
			next = to.ID
		}
	})
	if next == 0 {
		return
	}
	a.marker = next
	a.viewer.SetMarkers([]uint32{next})
}

// reload rebuilds the map in the background. Frames drawn meanwhile keep
// showing the previous map.
func (a *App) reload(ctx context.Context) {
	if a.loading {
		return
	}
	a.loading = true
	data := a.mapData()
	go func() {
		a.loads <- a.graph.Load(ctx, data)
	}()
}

func (a *App) finishReload(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("map reload failed", zap.Error(err))
		return
	}
	a.viewer.TriggerRedraw()
}

// captureScreenshot saves the frame just drawn when one was requested.
func (a *App) captureScreenshot() {
	if !a.wantScreenshot {
		return
	}
	a.wantScreenshot = false

	pixels, w, h, err := a.backend.ReadScreen()
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	name, err := a.screenshots.Save(pixels, w, h)
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", name))
}

func (a *App) updateTitle(f renderer.Frame) {
	r := a.viewer.Renderer()
	title := fmt.Sprintf("mapview - room %d - layer %d - %d rooms",
		a.marker, r.Camera().CurrentZ(), f.Rooms+f.PortalRooms)
	if sel := r.Selected(); len(sel) > 0 {
		title += fmt.Sprintf(" - selected %d", sel[0])
	}
	if a.hasCursor {
		title += fmt.Sprintf(" - at %.1f, %.1f", a.cursor.X(), a.cursor.Y())
	}
	a.window.SetTitle(title)
}

// Close releases the GL backend and the window.
func (a *App) Close() {
	a.log.Info("closing viewer")

	if a.backend != nil {
		a.backend.Close()
		a.backend = nil
	}
	if a.window != nil {
		a.window.Close()
		a.window = nil
	}
}
