package config

import (
	"flag"
	"io"
)

// Flags are command-line overrides. Zero values leave the config alone.
type Flags struct {
	ConfigPath string
	Debug      bool
	Width      int
	Height     int
	Layers     int
	Admin      string
}

// ParseFlags parses the arguments after the program name. Usage and parse
// errors are written to out.
func ParseFlags(args []string, out io.Writer) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("mapview", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Width, "width", 0, "Window width")
	fs.IntVar(&f.Height, "height", 0, "Window height")
	fs.IntVar(&f.Layers, "layers", 0, "Number of visible layers")
	fs.StringVar(&f.Admin, "admin", "", "Admin HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

func (f Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Width > 0 {
		cfg.Graphics.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Graphics.Height = f.Height
	}
	if f.Layers > 0 {
		cfg.Renderer.VisibleLayers = f.Layers
	}
	if f.Admin != "" {
		cfg.Admin.Addr = f.Admin
	}
}
