// Package render compiles flattened scene primitives into GPU draw
// batches and defines the frame-renderer contract shared by interactive
// preview and video export.
//
// The compiler is pure: it consumes a frame description and a texture
// registry and produces a DrawList, with no GPU or window present. This
// keeps the whole compilation path testable offline; only the execution
// of a DrawList (internal/gpu) needs a device.
package render

import (
	"fmt"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/internal/stroke"
	"github.com/gogpu/reel/scene"
)

// PipelineKind selects the GPU pipeline a batch is drawn with.
type PipelineKind int

const (
	// PipelineTextured samples a bound texture over a quad.
	PipelineTextured PipelineKind = iota

	// PipelineStroke draws solid-color triangle meshes from tessellated
	// strokes.
	PipelineStroke
)

// TexturedVertex is the vertex layout of the textured pipeline:
// clip-space position plus texture coordinates.
type TexturedVertex struct {
	Position [2]float32
	UV       [2]float32
}

// StrokeVertex is the vertex layout of the stroke pipeline:
// clip-space position plus linear RGB color.
type StrokeVertex struct {
	Position [2]float32
	Color    [3]float32
}

// Batch is one draw call: a contiguous run of geometry sharing a
// pipeline and, for textured batches, one texture binding.
//
// Indices are global over the pipeline kind's shared vertex buffer, so
// a renderer binds each buffer once and issues DrawIndexed with
// FirstIndex/IndexCount per batch. VertexByteOffset and VertexCount
// delimit the batch's slice of the vertex buffer for renderers that
// bind sub-ranges instead.
type Batch struct {
	Kind      PipelineKind
	TextureID uint32 // valid iff Kind == PipelineTextured

	VertexByteOffset int
	VertexCount      int
	FirstIndex       int
	IndexCount       int
}

// Resolution is the output size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// AspectRatio returns width over height.
func (r Resolution) AspectRatio() float64 {
	return float64(r.Width) / float64(r.Height)
}

// DefaultResolution matches the application default output size.
var DefaultResolution = Resolution{Width: 1920, Height: 1080}

// DrawList is a fully compiled frame: one vertex and one index buffer
// per pipeline kind, plus the ordered batches referencing sub-ranges of
// them. The buffer count is constant regardless of scene complexity.
//
// A DrawList is built fresh for each frame and discarded after the
// frame is rendered; nothing in it persists across frames.
type DrawList struct {
	Background reel.LinearRGB

	TexturedVertices []TexturedVertex
	TexturedIndices  []uint32
	StrokeVertices   []StrokeVertex
	StrokeIndices    []uint32

	Batches []Batch
}

// quadIndices is the triangulation of a quad's four corners.
var quadIndices = [6]uint32{0, 1, 2, 0, 2, 3}

const (
	texturedVertexSize = 16 // 4 float32
	strokeVertexSize   = 20 // 5 float32
)

// Compile turns a frame description into a DrawList.
//
// Primitives are flattened depth-ascending and compiled in that order;
// batch order is draw order. Adjacent primitives sharing a pipeline and
// texture binding are coalesced into one batch, which never reorders
// anything. A Bezier that fails tessellation or an Image whose id is
// absent from the registry aborts the whole frame.
func Compile(frame *scene.FrameDescription, reg *scene.Registry, res Resolution) (*DrawList, error) {
	dl := &DrawList{
		Background: frame.Settings.Background.Linearize(),
	}

	placed := scene.Flatten(frame)
	for i, p := range placed {
		switch obj := p.Object.(type) {
		case scene.Image:
			if err := dl.appendImage(obj, p.Transform, reg, res); err != nil {
				return nil, fmt.Errorf("primitive %d: %w", i, err)
			}
		case scene.Bezier:
			if err := dl.appendBezier(obj, p.Transform); err != nil {
				return nil, fmt.Errorf("primitive %d: %w", i, err)
			}
		case scene.Text:
			// Text is declared in the scene format but produces no
			// draw output.
		default:
			return nil, fmt.Errorf("primitive %d: unknown object %T", i, p.Object)
		}
	}

	reel.Logger().Debug("frame compiled",
		"primitives", len(placed),
		"batches", len(dl.Batches),
		"textured_vertices", len(dl.TexturedVertices),
		"stroke_vertices", len(dl.StrokeVertices))
	return dl, nil
}

// appendImage emits an aspect-corrected unit quad sampling the image's
// texture, and a textured batch referencing it.
func (dl *DrawList) appendImage(img scene.Image, m reel.Matrix, reg *scene.Registry, res Resolution) error {
	src, err := reg.Lookup(img.ID)
	if err != nil {
		return err
	}

	// The quad is one scene unit wide; its height corrects for the
	// source image's aspect ratio and for the output resolution's,
	// so a square image on a 16:9 output still shows square.
	b := src.Bounds()
	w := 1.0
	h := (float64(b.Dy()) / float64(b.Dx())) * res.AspectRatio()

	sub := scene.FullRect()
	if img.Subrect != nil {
		sub = *img.Subrect
	}
	u0, v0 := float32(sub.X), float32(sub.Y)
	u1, v1 := float32(sub.X+sub.W), float32(sub.Y+sub.H)

	// Corner order: bottom-left, bottom-right, top-right, top-left.
	// Texture v runs top to bottom, so the top corners take v0.
	corners := [4]reel.Point{
		{X: -w / 2, Y: -h / 2},
		{X: w / 2, Y: -h / 2},
		{X: w / 2, Y: h / 2},
		{X: -w / 2, Y: h / 2},
	}
	uvs := [4][2]float32{{u0, v1}, {u1, v1}, {u1, v0}, {u0, v0}}

	base := uint32(len(dl.TexturedVertices))
	for i, c := range corners {
		p := m.TransformPoint(c)
		dl.TexturedVertices = append(dl.TexturedVertices, TexturedVertex{
			Position: [2]float32{float32(p.X), float32(p.Y)},
			UV:       uvs[i],
		})
	}
	firstIndex := len(dl.TexturedIndices)
	for _, idx := range quadIndices {
		dl.TexturedIndices = append(dl.TexturedIndices, base+idx)
	}

	dl.pushBatch(Batch{
		Kind:             PipelineTextured,
		TextureID:        img.ID,
		VertexByteOffset: int(base) * texturedVertexSize,
		VertexCount:      4,
		FirstIndex:       firstIndex,
		IndexCount:       len(quadIndices),
	})
	return nil
}

// appendBezier tessellates the stroke and emits a solid-color batch.
func (dl *DrawList) appendBezier(bz scene.Bezier, m reel.Matrix) error {
	// Promote the three wire control points to a cubic through the
	// midpoints, then transform into clip space.
	p0 := bz.Points[0]
	p1 := bz.Points[0].Mid(bz.Points[1])
	p2 := bz.Points[1].Mid(bz.Points[2])
	p3 := bz.Points[2]

	tp := [4]reel.Point{
		m.TransformPoint(p0),
		m.TransformPoint(p1),
		m.TransformPoint(p2),
		m.TransformPoint(p3),
	}
	thickness := bz.Thickness * m.LinearScale()

	mesh, err := stroke.Tessellate(
		stroke.Point{X: tp[0].X, Y: tp[0].Y},
		stroke.Point{X: tp[1].X, Y: tp[1].Y},
		stroke.Point{X: tp[2].X, Y: tp[2].Y},
		stroke.Point{X: tp[3].X, Y: tp[3].Y},
		thickness, stroke.DefaultTolerance,
	)
	if err != nil {
		return &reel.TessellationError{Reason: err.Error()}
	}

	color := bz.Color.Linearize()
	base := uint32(len(dl.StrokeVertices))
	for _, v := range mesh.Vertices {
		dl.StrokeVertices = append(dl.StrokeVertices, StrokeVertex{
			Position: [2]float32{float32(v.X), float32(v.Y)},
			Color:    [3]float32{color.R, color.G, color.B},
		})
	}
	firstIndex := len(dl.StrokeIndices)
	for _, idx := range mesh.Indices {
		dl.StrokeIndices = append(dl.StrokeIndices, base+idx)
	}

	dl.pushBatch(Batch{
		Kind:             PipelineStroke,
		VertexByteOffset: int(base) * strokeVertexSize,
		VertexCount:      len(mesh.Vertices),
		FirstIndex:       firstIndex,
		IndexCount:       len(mesh.Indices),
	})
	return nil
}

// pushBatch appends a batch, coalescing into the previous one when both
// share a pipeline and texture binding. Coalescing only ever merges
// neighbors, so relative draw order is untouched.
func (dl *DrawList) pushBatch(b Batch) {
	if n := len(dl.Batches); n > 0 {
		prev := &dl.Batches[n-1]
		if prev.Kind == b.Kind && prev.TextureID == b.TextureID {
			prev.VertexCount += b.VertexCount
			prev.IndexCount += b.IndexCount
			return
		}
	}
	dl.Batches = append(dl.Batches, b)
}
