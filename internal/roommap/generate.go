package roommap

import (
	"fmt"

	"github.com/Faultbox/mapview/internal/mapdata"
)

// GridOptions describes a synthetic map used by the viewer demo and benchmarks.
type GridOptions struct {
	Width, Height int // rooms per side on each layer
	Layers        int
	Spacing       int // distance between neighbouring rooms
	Portal        bool
}

// Grid builds a rectangular map with rooms linked to their neighbours.
// With Portal set, one extra layer-0 region is bound to a local space whose
// portal sits just outside the grid.
func Grid(opts GridOptions) MapData {
	if opts.Spacing <= 0 {
		opts.Spacing = 2
	}
	var data MapData
	main := &mapdata.Region{Name: "main"}
	data.Regions = append(data.Regions, main)

	id := func(x, y, z int) uint32 {
		return uint32(1 + x + y*opts.Width + z*opts.Width*opts.Height)
	}
	for z := 0; z < opts.Layers; z++ {
		for y := 0; y < opts.Height; y++ {
			for x := 0; x < opts.Width; x++ {
				r := &mapdata.Room{
					ID:     id(x, y, z),
					X:      x * opts.Spacing,
					Y:      y * opts.Spacing,
					Z:      z,
					Region: main,
				}
				if y+1 < opts.Height {
					r.SetExit(mapdata.North, id(x, y+1, z))
				}
				if y > 0 {
					r.SetExit(mapdata.South, id(x, y-1, z))
				}
				if x+1 < opts.Width {
					r.SetExit(mapdata.East, id(x+1, y, z))
				} else {
					r.Exits[mapdata.East] = mapdata.Exit{Kind: mapdata.ExitUndefined}
				}
				if x > 0 {
					r.SetExit(mapdata.West, id(x-1, y, z))
				}
				if z+1 < opts.Layers && (x+y)%7 == 0 {
					r.SetExit(mapdata.Up, id(x, y, z+1))
				}
				data.Rooms = append(data.Rooms, r)
			}
		}
	}

	if opts.Portal {
		ls := &mapdata.LocalSpace{
			ID:        1,
			Name:      "cellar",
			PortalX:   float32(-6 * opts.Spacing),
			PortalY:   0,
			PortalW:   float32(4 * opts.Spacing),
			PortalH:   float32(4 * opts.Spacing),
			HasPortal: true,
		}
		cellar := &mapdata.Region{Name: "cellar", LocalSpaceID: ls.ID, HasLocalSpace: true}
		data.Regions = append(data.Regions, cellar)
		data.LocalSpaces = append(data.LocalSpaces, ls)
		base := id(0, 0, opts.Layers)
		for i := 0; i < 16; i++ {
			data.Rooms = append(data.Rooms, &mapdata.Room{
				ID:     base + uint32(i),
				X:      1000 + (i%4)*10,
				Y:      1000 + (i/4)*10,
				Z:      0,
				Region: cellar,
				Note:   fmt.Sprintf("cellar %d", i),
			})
		}
	}
	return data
}
