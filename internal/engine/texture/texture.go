// Package texture decodes sector texture images into RGBA pixels ready for
// upload.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
)

// ErrEmpty is returned for images with no pixels.
var ErrEmpty = errors.New("empty image")

// Decode reads a PNG, JPEG or BMP image and converts it to RGBA. Pure
// magenta (255, 0, 255) is treated as transparent, the colour key used by
// legacy sector tiles.
func Decode(r io.Reader) (*image.RGBA, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decoding texture: %w", err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, format, ErrEmpty
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	applyColorKey(rgba)
	return rgba, format, nil
}

// Load decodes the image file at path.
func Load(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func applyColorKey(img *image.RGBA) {
	p := img.Pix
	for i := 0; i+3 < len(p); i += 4 {
		if p[i] == 255 && p[i+1] == 0 && p[i+2] == 255 {
			p[i], p[i+1], p[i+2], p[i+3] = 0, 0, 0, 0
		}
	}
}

// Checker returns a size x size checkerboard of cells pixels per square,
// used for rooms whose sector image is missing.
func Checker(size, cells int, a, b color.RGBA) *image.RGBA {
	size = max(size, 1)
	cells = max(cells, 1)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (x/cells+y/cells)%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}
