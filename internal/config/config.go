// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Renderer RendererConfig `yaml:"renderer"`
	Picking  PickingConfig  `yaml:"picking"`
	Map      MapConfig      `yaml:"map"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Fullscreen    bool   `yaml:"fullscreen"`
	VSync         bool   `yaml:"vsync"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// RendererConfig holds map drawing settings.
type RendererConfig struct {
	VisibleLayers     int           `yaml:"visible_layers"`
	DetailsVisibility float32       `yaml:"details_visibility"`
	FOV               float32       `yaml:"fov"`
	ShowNotes         bool          `yaml:"show_notes"`
	SelectAnyLayer    bool          `yaml:"select_any_layer"`
	RedrawInterval    time.Duration `yaml:"redraw_interval"`
	BlockedRetry      time.Duration `yaml:"blocked_retry"`
	ShowIndex         bool          `yaml:"show_index"`
}

// PickingConfig holds room picking settings.
type PickingConfig struct {
	Tolerance int `yaml:"tolerance"` // side of the searched square in pixels
}

// MapConfig describes the generated demo map.
type MapConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Layers      int    `yaml:"layers"`
	Portal      bool   `yaml:"portal"`
	TexturePath string `yaml:"texture_path"` // floor image for the local space rooms
}

// AdminConfig holds the admin HTTP server settings. An empty address
// disables the server.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:         1280,
			Height:        720,
			Fullscreen:    false,
			VSync:         true,
			ScreenshotDir: "screenshots",
		},
		Renderer: RendererConfig{
			VisibleLayers:     1,
			DetailsVisibility: 150,
			FOV:               60,
			ShowNotes:         true,
			SelectAnyLayer:    false,
			RedrawInterval:    33 * time.Millisecond,
			BlockedRetry:      500 * time.Millisecond,
		},
		Picking: PickingConfig{
			Tolerance: 50,
		},
		Map: MapConfig{
			Width:  20,
			Height: 20,
			Layers: 3,
			Portal: true,
		},
		Admin: AdminConfig{
			Addr: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = append(errs, fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height))
	}
	if c.Renderer.VisibleLayers < 1 {
		errs = append(errs, fmt.Errorf("renderer: visible_layers must be at least 1, got %d", c.Renderer.VisibleLayers))
	}
	if c.Renderer.FOV <= 0 || c.Renderer.FOV >= 180 {
		errs = append(errs, fmt.Errorf("renderer: fov must be in (0, 180), got %g", c.Renderer.FOV))
	}
	if c.Picking.Tolerance < 1 {
		errs = append(errs, fmt.Errorf("picking: tolerance must be at least 1, got %d", c.Picking.Tolerance))
	}
	if c.Map.Width < 0 || c.Map.Height < 0 || c.Map.Layers < 0 {
		errs = append(errs, fmt.Errorf("map: negative size %dx%dx%d", c.Map.Width, c.Map.Height, c.Map.Layers))
	}
	return errors.Join(errs...)
}
