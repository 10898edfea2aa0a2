package debug

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/mapdata"
	"github.com/Faultbox/mapview/internal/spatial"
)

// two rows, bottom row red and top row blue, as GL returns them
var glPixels = []byte{
	255, 0, 0, 255, 255, 0, 0, 255,
	0, 0, 255, 255, 0, 0, 255, 255,
}

func TestFlipRows(t *testing.T) {
	img, err := FlipRows(glPixels, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(1, 1))

	_, err = FlipRows(glPixels, 3, 2)
	assert.Error(t, err)
}

func TestScreenshotSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	s := NewScreenshots(dir, "mapview")
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	name, err := s.Save(glPixels, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mapview_2026-01-02_03-04-05.000.png"), name)

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Zero(t, r)
	assert.Equal(t, uint32(0xffff), b)
}

func TestOutlineSquares(t *testing.T) {
	root := spatial.NewSquare(-19, 19, 19, -19)
	root.Insert(&mapdata.Room{ID: 1})

	b := batch.New()
	node := mgl32.Vec4{1, 1, 1, 1}
	leaf := mgl32.Vec4{0, 1, 0, 1}
	n := OutlineSquares(b, root, 3, nil, node, leaf)
	assert.Equal(t, 1, n)
	require.Len(t, b.Vertices(), 8)
	assert.Equal(t, [3]float32{-19, 19, 3}, b.Vertices()[0].Pos)
	assert.Equal(t, [4]float32(leaf), b.Vertices()[0].Color)
	require.Len(t, b.Commands(), 1)
	assert.Equal(t, batch.Lines, b.Commands()[0].Topology)

	b.Reset()
	n = OutlineSquares(b, root, 0, func(*spatial.Square) bool { return false }, node, leaf)
	assert.Zero(t, n)
	assert.True(t, b.Empty())
}
