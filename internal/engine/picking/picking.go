// Package picking resolves a screen point to a room id by drawing every
// pickable room in a unique flat colour to an off-screen target and reading
// the colours back around the cursor.
package picking

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mapview/internal/engine/batch"
)

// DefaultTolerance is the side of the square readback window in pixels.
const DefaultTolerance = 50

// MaxID is the largest id the 24-bit colour encoding can carry.
const MaxID = 0xFFFFFF - 1

// ErrBusy is returned when Pick is re-entered while a pick is in flight.
var ErrBusy = errors.New("pick already in progress")

// State is the picker's position in a pick cycle.
type State int

const (
	Idle State = iota
	PickPass
	Decode
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PickPass:
		return "pick-pass"
	case Decode:
		return "decode"
	}
	return "unknown"
}

// Target is the off-screen colour target the pick pass draws into.
type Target interface {
	// BindOffscreenTarget makes a cleared w*h colour+depth target current.
	// Blending, texturing and multisampling must be off so colours survive
	// exactly.
	BindOffscreenTarget(w, h int) error
	SubmitBatch(b *batch.Batch, mvp mgl32.Mat4)
	// ReadPixels returns w*h RGBA pixels starting at (x, y), rows bottom-up.
	ReadPixels(x, y, w, h int) ([]byte, error)
	// RestoreTarget rebinds the on-screen target and state.
	RestoreTarget()
}

// Viewport is the on-screen drawable size in pixels.
type Viewport struct {
	Width, Height int
}

// Window is the readback rectangle in GL coordinates (origin bottom-left).
type Window struct {
	X, Y, W, H int
}

// Result is the outcome of a pick.
type Result struct {
	Found bool
	ID    uint32
}

// FillFunc emits the pickable geometry into b using Color(id) as each
// room's flat colour.
type FillFunc func(b *batch.Batch)

// EncodeID returns the colour of a room id: id+1 as little-endian 24-bit RGB.
// Zero is reserved for the background.
func EncodeID(id uint32) ([3]byte, bool) {
	if id > MaxID {
		return [3]byte{}, false
	}
	v := id + 1
	return [3]byte{byte(v), byte(v >> 8), byte(v >> 16)}, true
}

// DecodePixel returns the room id encoded in a pixel colour. Background
// pixels decode to false.
func DecodePixel(r, g, b byte) (uint32, bool) {
	v := uint32(r) | uint32(g)<<8 | uint32(b)<<16
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}

// Color returns the encoded id as a normalized vertex colour. Ids that do
// not fit the encoding map to the background colour and are never picked.
func Color(id uint32) mgl32.Vec4 {
	c, ok := EncodeID(id)
	if !ok {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	return mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, 1}
}

// ReadWindow returns the tolerance square centred on the cursor, clamped to
// the viewport. x and y are window coordinates with origin top-left.
func ReadWindow(x, y int, vp Viewport, tolerance int) (Window, bool) {
	if vp.Width <= 0 || vp.Height <= 0 || tolerance <= 0 {
		return Window{}, false
	}
	glY := vp.Height - 1 - y
	x0 := max(x-tolerance/2, 0)
	y0 := max(glY-tolerance/2, 0)
	x1 := min(x-tolerance/2+tolerance, vp.Width)
	y1 := min(glY-tolerance/2+tolerance, vp.Height)
	if x1 <= x0 || y1 <= y0 {
		return Window{}, false
	}
	return Window{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, true
}

// Resolve scans the readback pixels and returns the candidate nearest to the
// cursor (cx, cy in GL coordinates). Ties keep the first candidate in scan
// order. accept may reject candidates; nil accepts all.
func Resolve(pixels []byte, win Window, cx, cy int, accept func(id uint32) bool) Result {
	var res Result
	best := -1
	for row := 0; row < win.H; row++ {
		for col := 0; col < win.W; col++ {
			i := (row*win.W + col) * 4
			if i+2 >= len(pixels) {
				return res
			}
			id, ok := DecodePixel(pixels[i], pixels[i+1], pixels[i+2])
			if !ok {
				continue
			}
			if accept != nil && !accept(id) {
				continue
			}
			dx := win.X + col - cx
			dy := win.Y + row - cy
			d := dx*dx + dy*dy
			if best < 0 || d < best {
				best = d
				res = Result{Found: true, ID: id}
			}
		}
	}
	return res
}

// Picker runs pick passes against a Target.
type Picker struct {
	Tolerance int
	// Accept filters candidates; nil accepts every decoded id.
	Accept func(id uint32) bool

	target Target
	batch  *batch.Batch
	state  State
}

// New creates a picker drawing into target.
func New(target Target) *Picker {
	return &Picker{
		Tolerance: DefaultTolerance,
		target:    target,
		batch:     batch.New(),
	}
}

// State returns the current pick cycle state.
func (p *Picker) State() State {
	return p.state
}

// Pick resolves the window point (x, y), origin top-left. The on-screen
// target is restored on every path out of the pick pass.
func (p *Picker) Pick(x, y int, vp Viewport, mvp mgl32.Mat4, fill FillFunc) (Result, error) {
	if p.state != Idle {
		return Result{}, ErrBusy
	}
	win, ok := ReadWindow(x, y, vp, p.Tolerance)
	if !ok {
		return Result{}, nil
	}

	p.state = PickPass
	defer func() { p.state = Idle }()
	defer p.target.RestoreTarget()

	if err := p.target.BindOffscreenTarget(vp.Width, vp.Height); err != nil {
		return Result{}, fmt.Errorf("binding pick target: %w", err)
	}

	p.batch.Reset()
	fill(p.batch)
	p.target.SubmitBatch(p.batch, mvp)

	p.state = Decode
	pixels, err := p.target.ReadPixels(win.X, win.Y, win.W, win.H)
	if err != nil {
		return Result{}, fmt.Errorf("reading pick pixels: %w", err)
	}
	return Resolve(pixels, win, x, vp.Height-1-y, p.Accept), nil
}
