// Package glbackend draws batches with OpenGL 4.1 core. It is both the
// renderer's on-screen backend and the picker's offscreen target.
package glbackend

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/mapview/internal/engine/batch"
	"github.com/Faultbox/mapview/internal/engine/framebuffer"
	"github.com/Faultbox/mapview/internal/engine/shader"
	"github.com/Faultbox/mapview/internal/logger"
)

const vertexShader = `#version 410 core
layout(location = 0) in vec3 aPos;
layout(location = 1) in vec2 aUV;
layout(location = 2) in vec4 aColor;

uniform mat4 uMVP;

out vec2 vUV;
out vec4 vColor;

void main() {
	vUV = aUV;
	vColor = aColor;
	gl_Position = uMVP * vec4(aPos, 1.0);
}
`

const fragmentShader = `#version 410 core
in vec2 vUV;
in vec4 vColor;

uniform sampler2D uTexture;
uniform bool uUseTexture;
uniform bool uPick;

out vec4 FragColor;

void main() {
	if (uPick) {
		FragColor = vec4(vColor.rgb, 1.0);
		return;
	}
	vec4 c = vColor;
	if (uUseTexture) {
		c *= texture(uTexture, vUV);
	}
	if (c.a < 0.01) {
		discard;
	}
	FragColor = c;
}
`

// ErrNoPickTarget is returned when pixels are read outside a pick pass.
var ErrNoPickTarget = errors.New("pick target not bound")

// Backend owns the GL program, the streaming vertex buffer and the pick
// framebuffer.
type Backend struct {
	program *shader.Program
	vao     uint32
	vbo     uint32
	vboCap  int

	width, height int
	background    [4]float32

	pick    *framebuffer.Framebuffer
	restore func()

	textures []uint32
	log      *zap.Logger
}

// New initializes GL and creates the backend for a drawable of the given
// size. A current GL context is required.
func New(width, height int) (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	log := logger.Named("gl")
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	program, err := shader.Compile(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("compiling batch shader: %w", err)
	}

	b := &Backend{
		program:    program,
		background: [4]float32{0.08, 0.08, 0.1, 1},
		log:        log,
	}

	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)

	var v batch.Vertex
	stride := int32(batch.VertexSize)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(v.Pos))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, unsafe.Offsetof(v.UV))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, stride, unsafe.Offsetof(v.Color))
	gl.BindVertexArray(0)

	program.Use()
	gl.Uniform1i(program.Uniform("uTexture"), 0)
	gl.Uniform1i(program.Uniform("uUseTexture"), 0)
	gl.Uniform1i(program.Uniform("uPick"), 0)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	b.Resize(width, height)
	return b, nil
}

// Resize updates the drawable size and the viewport.
func (b *Backend) Resize(width, height int) {
	b.width, b.height = max(width, 1), max(height, 1)
	gl.Viewport(0, 0, int32(b.width), int32(b.height))
	b.log.Debug("viewport resized", zap.Int("width", b.width), zap.Int("height", b.height))
}

// Size returns the drawable size in pixels.
func (b *Backend) Size() (int, int) {
	return b.width, b.height
}

// SetBackground sets the clear colour of the on-screen pass.
func (b *Backend) SetBackground(r, g, bl, a float32) {
	b.background = [4]float32{r, g, bl, a}
}

// Clear clears the current target with the background colour.
func (b *Backend) Clear() {
	gl.ClearColor(b.background[0], b.background[1], b.background[2], b.background[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Upload streams the vertices into the shared buffer and sets the matrix.
func (b *Backend) Upload(vertices []batch.Vertex, mvp mgl32.Mat4) {
	b.program.Use()
	gl.UniformMatrix4fv(b.program.Uniform("uMVP"), 1, false, &mvp[0])

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	if len(vertices) == 0 {
		return
	}
	size := len(vertices) * batch.VertexSize
	if size > b.vboCap {
		b.vboCap = size * 2
		gl.BufferData(gl.ARRAY_BUFFER, b.vboCap, nil, gl.STREAM_DRAW)
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(&vertices[0]))
}

// BindTexture binds a texture to unit 0 and enables sampling.
func (b *Backend) BindTexture(texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.Uniform1i(b.program.Uniform("uUseTexture"), 1)
}

// UnbindTexture disables sampling.
func (b *Backend) UnbindTexture() {
	gl.Uniform1i(b.program.Uniform("uUseTexture"), 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Draw issues one draw call from the uploaded buffer.
func (b *Backend) Draw(topology batch.Topology, first, count int) {
	mode := uint32(gl.TRIANGLES)
	if topology == batch.Lines {
		mode = gl.LINES
	}
	gl.DrawArrays(mode, int32(first), int32(count))
}

// ReadScreen reads the whole on-screen back buffer, rows bottom-up. Call it
// after drawing and before swapping.
func (b *Backend) ReadScreen() ([]byte, int, int, error) {
	pixels := make([]byte, b.width*b.height*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.BACK)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(b.width), int32(b.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, 0, 0, fmt.Errorf("reading screen: gl error 0x%x", code)
	}
	return pixels, b.width, b.height, nil
}

// UploadTexture uploads an RGBA image and returns its handle. Handles are
// what rooms carry in their Texture field.
func (b *Backend) UploadTexture(img *image.RGBA) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	bounds := img.Bounds()
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(bounds.Dx()), int32(bounds.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	b.textures = append(b.textures, tex)
	return tex
}

// BindOffscreenTarget starts a pick pass: the pick framebuffer is bound,
// cleared to zero and blending is turned off so ids are written exactly.
func (b *Backend) BindOffscreenTarget(width, height int) error {
	if b.pick == nil {
		fb, err := framebuffer.New(width, height)
		if err != nil {
			return err
		}
		b.pick = fb
	} else {
		b.pick.Resize(width, height)
	}

	b.restore = b.pick.Bind()
	b.pick.Clear()
	gl.Disable(gl.BLEND)
	b.program.Use()
	gl.Uniform1i(b.program.Uniform("uPick"), 1)
	return nil
}

// SubmitBatch draws a pick batch into the bound target.
func (b *Backend) SubmitBatch(bt *batch.Batch, mvp mgl32.Mat4) {
	bt.Flush(b, mvp)
}

// ReadPixels reads a window of the pick target, rows bottom-up.
func (b *Backend) ReadPixels(x, y, w, h int) ([]byte, error) {
	if b.restore == nil {
		return nil, ErrNoPickTarget
	}
	return b.pick.ReadRegion(x, y, w, h)
}

// RestoreTarget ends a pick pass and restores the on-screen state.
func (b *Backend) RestoreTarget() {
	if b.restore != nil {
		b.restore()
		b.restore = nil
	}
	gl.Uniform1i(b.program.Uniform("uPick"), 0)
	gl.Enable(gl.BLEND)
}

// Close releases every GL object owned by the backend.
func (b *Backend) Close() {
	if b.pick != nil {
		b.pick.Destroy()
	}
	if len(b.textures) > 0 {
		gl.DeleteTextures(int32(len(b.textures)), &b.textures[0])
		b.textures = nil
	}
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteVertexArrays(1, &b.vao)
	b.program.Delete()
}
