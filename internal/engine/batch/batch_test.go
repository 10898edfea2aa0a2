package batch

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls    []string
	uploaded int
}

func (r *recorder) Upload(vertices []Vertex, _ mgl32.Mat4) {
	r.uploaded++
	r.calls = append(r.calls, fmt.Sprintf("upload %d", len(vertices)))
}

func (r *recorder) BindTexture(texture uint32) {
	r.calls = append(r.calls, fmt.Sprintf("bind %d", texture))
}

func (r *recorder) UnbindTexture() {
	r.calls = append(r.calls, "unbind")
}

func (r *recorder) Draw(topology Topology, first, count int) {
	r.calls = append(r.calls, fmt.Sprintf("draw %s %d+%d", topology, first, count))
}

var (
	white = mgl32.Vec4{1, 1, 1, 1}
	p0    = mgl32.Vec3{0, 0, 0}
	p1    = mgl32.Vec3{1, 0, 0}
	p2    = mgl32.Vec3{1, 1, 0}
	p3    = mgl32.Vec3{0, 1, 0}
)

func TestUntexturedQuadsMergeIntoOneCommand(t *testing.T) {
	b := New()
	for i := 0; i < 100; i++ {
		b.AppendQuad(p0, p1, p2, p3, white)
	}

	require.Len(t, b.Commands(), 1)
	assert.Equal(t, Command{Topology: Triangles, First: 0, Count: 600}, b.Commands()[0])
	assert.Len(t, b.Vertices(), 600)
}

func TestStateChangeStartsNewCommand(t *testing.T) {
	b := New()
	var uv mgl32.Vec2
	b.AppendQuad(p0, p1, p2, p3, white)
	b.AppendLine(p0, p1, white)
	b.AppendLine(p1, p2, white)
	b.AppendTexturedQuad(p0, p1, p2, p3, uv, uv, uv, uv, white, 7)
	b.AppendTexturedQuad(p0, p1, p2, p3, uv, uv, uv, uv, white, 7)
	b.AppendTexturedQuad(p0, p1, p2, p3, uv, uv, uv, uv, white, 8)
	b.AppendQuad(p0, p1, p2, p3, white)

	assert.Equal(t, []Command{
		{Topology: Triangles, First: 0, Count: 6},
		{Topology: Lines, First: 6, Count: 4},
		{Topology: Triangles, UseTexture: true, Texture: 7, First: 10, Count: 12},
		{Topology: Triangles, UseTexture: true, Texture: 8, First: 22, Count: 6},
		{Topology: Triangles, First: 28, Count: 6},
	}, b.Commands())
}

func TestZeroTextureIsUntextured(t *testing.T) {
	b := New()
	var uv mgl32.Vec2
	b.AppendQuad(p0, p1, p2, p3, white)
	b.AppendTexturedQuad(p0, p1, p2, p3, uv, uv, uv, uv, white, 0)

	require.Len(t, b.Commands(), 1)
	assert.False(t, b.Commands()[0].UseTexture)
}

func TestCommandsCoverVerticesContiguously(t *testing.T) {
	b := New()
	var t4 [4]mgl32.Vec2
	var t6 [6]mgl32.Vec2
	b.AppendQuadStrip4([4]mgl32.Vec3{p0, p1, p3, p2}, t4, white, 3)
	b.AppendQuadStrip6([6]mgl32.Vec3{p0, p1, p3, p2, p0, p1}, t6, white, 0)
	b.AppendLine(p0, p2, white)
	b.AppendCone(p0, 0.5, 1, 8, white)
	b.AppendWallPrism(p0, mgl32.Vec3{1, 1, 0.8}, white)
	b.AppendTriangles([]mgl32.Vec3{p0, p1, p2, p3}, white)

	next := 0
	for _, c := range b.Commands() {
		assert.Equal(t, next, c.First)
		next += c.Count
	}
	assert.Equal(t, len(b.Vertices()), next)
	assert.Equal(t, 6, b.Commands()[0].Count)
	assert.Equal(t, 12, b.Commands()[1].Count)
}

func TestFlushBindsTexturesOnlyWhenUsed(t *testing.T) {
	b := New()
	var uv mgl32.Vec2
	b.AppendQuad(p0, p1, p2, p3, white)
	b.AppendTexturedQuad(p0, p1, p2, p3, uv, uv, uv, uv, white, 5)
	b.AppendLine(p0, p1, white)

	r := &recorder{}
	b.Flush(r, mgl32.Ident4())

	assert.Equal(t, []string{
		"upload 14",
		"draw triangles 0+6",
		"bind 5",
		"draw triangles 6+6",
		"unbind",
		"draw lines 12+2",
	}, r.calls)
}

func TestFlushEmptyBatchDoesNothing(t *testing.T) {
	r := &recorder{}
	New().Flush(r, mgl32.Ident4())
	assert.Empty(t, r.calls)
}

func TestResetKeepsNoCommands(t *testing.T) {
	b := New()
	b.AppendQuad(p0, p1, p2, p3, white)
	b.Reset()
	assert.True(t, b.Empty())
	assert.Empty(t, b.Vertices())

	b.AppendLine(p0, p1, white)
	assert.Equal(t, []Command{{Topology: Lines, First: 0, Count: 2}}, b.Commands())
}
