// Package batch accumulates a frame's geometry into one vertex buffer and a
// short list of merged draw commands.
package batch

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Topology is the primitive type of a draw command. Quads and strips are
// triangulated on append so they merge with plain triangles.
type Topology uint8

const (
	Triangles Topology = iota
	Lines
)

func (t Topology) String() string {
	switch t {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	}
	return "unknown"
}

// Vertex is one interleaved vertex.
type Vertex struct {
	Pos   [3]float32
	UV    [2]float32
	Color [4]float32
}

// VertexSize is the byte size of a Vertex.
const VertexSize = (3 + 2 + 4) * 4

// Command draws Count vertices starting at First.
type Command struct {
	Topology   Topology
	UseTexture bool
	Texture    uint32
	First      int
	Count      int
}

// Sink consumes a batch. The GL backend implements it; tests record calls.
type Sink interface {
	Upload(vertices []Vertex, mvp mgl32.Mat4)
	BindTexture(texture uint32)
	UnbindTexture()
	Draw(topology Topology, first, count int)
}

// Batch is reset at the start of every frame and flushed at the end.
type Batch struct {
	vertices []Vertex
	commands []Command
}

// New creates an empty batch.
func New() *Batch {
	return &Batch{}
}

// Reset clears geometry and commands but keeps the allocations.
func (b *Batch) Reset() {
	b.vertices = b.vertices[:0]
	b.commands = b.commands[:0]
}

// Vertices returns the accumulated vertices.
func (b *Batch) Vertices() []Vertex {
	return b.vertices
}

// Commands returns the merged draw commands.
func (b *Batch) Commands() []Command {
	return b.commands
}

// Empty reports whether nothing was appended since the last Reset.
func (b *Batch) Empty() bool {
	return len(b.commands) == 0
}

// Flush uploads the vertices once and issues one draw per command. A texture
// is bound only for commands that use one.
func (b *Batch) Flush(sink Sink, mvp mgl32.Mat4) {
	if b.Empty() {
		return
	}
	sink.Upload(b.vertices, mvp)
	bound := false
	for _, c := range b.commands {
		if c.UseTexture {
			sink.BindTexture(c.Texture)
			bound = true
		} else if bound {
			sink.UnbindTexture()
			bound = false
		}
		sink.Draw(c.Topology, c.First, c.Count)
	}
	if bound {
		sink.UnbindTexture()
	}
}

// push appends vertices and records them under a command, extending the
// previous command when state matches and the range is contiguous.
func (b *Batch) push(topo Topology, useTex bool, tex uint32, vs ...Vertex) {
	if len(vs) == 0 {
		return
	}
	if !useTex {
		tex = 0
	}
	first := len(b.vertices)
	b.vertices = append(b.vertices, vs...)

	if n := len(b.commands); n > 0 {
		last := &b.commands[n-1]
		if last.Topology == topo && last.UseTexture == useTex && last.Texture == tex &&
			last.First+last.Count == first {
			last.Count += len(vs)
			return
		}
	}
	b.commands = append(b.commands, Command{
		Topology:   topo,
		UseTexture: useTex,
		Texture:    tex,
		First:      first,
		Count:      len(vs),
	})
}

func vtx(p mgl32.Vec3, uv mgl32.Vec2, c mgl32.Vec4) Vertex {
	return Vertex{Pos: p, UV: uv, Color: c}
}

// AppendQuad appends an untextured quad a-b-c-d as two triangles.
func (b *Batch) AppendQuad(a, bb, c, d mgl32.Vec3, color mgl32.Vec4) {
	var uv mgl32.Vec2
	b.push(Triangles, false, 0,
		vtx(a, uv, color), vtx(bb, uv, color), vtx(c, uv, color),
		vtx(a, uv, color), vtx(c, uv, color), vtx(d, uv, color),
	)
}

// AppendTexturedQuad appends a textured quad a-b-c-d as two triangles.
func (b *Batch) AppendTexturedQuad(a, bb, c, d mgl32.Vec3, ta, tb, tc, td mgl32.Vec2, color mgl32.Vec4, texture uint32) {
	b.push(Triangles, texture != 0, texture,
		vtx(a, ta, color), vtx(bb, tb, color), vtx(c, tc, color),
		vtx(a, ta, color), vtx(c, tc, color), vtx(d, td, color),
	)
}

// AppendQuadStrip4 appends a four-vertex quad strip (one quad).
func (b *Batch) AppendQuadStrip4(v [4]mgl32.Vec3, t [4]mgl32.Vec2, color mgl32.Vec4, texture uint32) {
	b.push(Triangles, texture != 0, texture, stripTriangles(v[:], t[:], color)...)
}

// AppendQuadStrip6 appends a six-vertex quad strip (two quads).
func (b *Batch) AppendQuadStrip6(v [6]mgl32.Vec3, t [6]mgl32.Vec2, color mgl32.Vec4, texture uint32) {
	b.push(Triangles, texture != 0, texture, stripTriangles(v[:], t[:], color)...)
}

// stripTriangles converts a quad strip v0 v1 v2 v3 ... into triangles.
func stripTriangles(v []mgl32.Vec3, t []mgl32.Vec2, color mgl32.Vec4) []Vertex {
	out := make([]Vertex, 0, (len(v)/2-1)*6)
	for i := 0; i+3 < len(v); i += 2 {
		out = append(out,
			vtx(v[i], t[i], color), vtx(v[i+1], t[i+1], color), vtx(v[i+3], t[i+3], color),
			vtx(v[i], t[i], color), vtx(v[i+3], t[i+3], color), vtx(v[i+2], t[i+2], color),
		)
	}
	return out
}

// AppendLine appends a single line segment.
func (b *Batch) AppendLine(a, bb mgl32.Vec3, color mgl32.Vec4) {
	var uv mgl32.Vec2
	b.push(Lines, false, 0, vtx(a, uv, color), vtx(bb, uv, color))
}

// AppendTriangles appends a run of untextured triangles. len(pts) must be a
// multiple of three; a trailing partial triangle is dropped.
func (b *Batch) AppendTriangles(pts []mgl32.Vec3, color mgl32.Vec4) {
	n := len(pts) - len(pts)%3
	if n == 0 {
		return
	}
	vs := make([]Vertex, n)
	for i := range vs {
		vs[i] = Vertex{Pos: pts[i], Color: color}
	}
	b.push(Triangles, false, 0, vs...)
}

// AppendWallPrism appends the four side faces of a box from min to max,
// used for room walls.
func (b *Batch) AppendWallPrism(lo, hi mgl32.Vec3, color mgl32.Vec4) {
	x0, y0, z0 := lo.Elem()
	x1, y1, z1 := hi.Elem()
	b.AppendQuad(mgl32.Vec3{x0, y0, z0}, mgl32.Vec3{x1, y0, z0}, mgl32.Vec3{x1, y0, z1}, mgl32.Vec3{x0, y0, z1}, color)
	b.AppendQuad(mgl32.Vec3{x1, y0, z0}, mgl32.Vec3{x1, y1, z0}, mgl32.Vec3{x1, y1, z1}, mgl32.Vec3{x1, y0, z1}, color)
	b.AppendQuad(mgl32.Vec3{x1, y1, z0}, mgl32.Vec3{x0, y1, z0}, mgl32.Vec3{x0, y1, z1}, mgl32.Vec3{x1, y1, z1}, color)
	b.AppendQuad(mgl32.Vec3{x0, y1, z0}, mgl32.Vec3{x0, y0, z0}, mgl32.Vec3{x0, y0, z1}, mgl32.Vec3{x0, y1, z1}, color)
}

// AppendCone appends a cone with its base centred on base and its tip at
// base+height along Z.
func (b *Batch) AppendCone(base mgl32.Vec3, radius, height float32, segments int, color mgl32.Vec4) {
	if segments < 3 {
		segments = 3
	}
	tip := base.Add(mgl32.Vec3{0, 0, height})
	pts := make([]mgl32.Vec3, 0, segments*3)
	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / float64(segments)
		a1 := 2 * math.Pi * float64(i+1) / float64(segments)
		p0 := base.Add(mgl32.Vec3{radius * float32(math.Cos(a0)), radius * float32(math.Sin(a0)), 0})
		p1 := base.Add(mgl32.Vec3{radius * float32(math.Cos(a1)), radius * float32(math.Sin(a1)), 0})
		pts = append(pts, p0, p1, tip)
	}
	b.AppendTriangles(pts, color)
}
