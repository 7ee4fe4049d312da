// Package scene defines the hierarchical 2D scene description, its JSON
// wire format, and the flattener that turns a scene tree into a
// depth-ordered list of drawable primitives.
//
// A scene is a forest of Nodes. Each Node carries a relative depth (z),
// a local affine transform, a visibility flag, and ordered children.
// A child is either another Node or a Leaf holding a drawable Object
// (Bezier stroke, Image quad, or Text). The tree is acyclic by
// construction: children are owned values, never shared references.
package scene

import (
	"math"

	"github.com/gogpu/reel"
)

// Transform is the wire representation of a node's local transform:
// independent position, non-uniform scale, and rotation in degrees.
type Transform struct {
	Pos   reel.Point
	Scale reel.Point
	Angle float64
}

// IdentityTransform returns the transform that leaves geometry unchanged.
func IdentityTransform() Transform {
	return Transform{Scale: reel.Pt(1, 1)}
}

// Matrix builds the single affine matrix for the transform. Components
// apply in the fixed order scale, then rotation, then translation.
func (t Transform) Matrix() reel.Matrix {
	return reel.Compose(t.Pos, t.Scale, t.Angle*math.Pi/180)
}

// Node is a group in the scene tree.
//
// An invisible node excludes its entire subtree from output, regardless
// of the children's own visibility flags.
type Node struct {
	Z         float64
	Transform Transform
	Visible   bool
	Children  []Container
}

// Container is a tagged union over Node and Leaf(Object).
// Exactly one of Node and Leaf is set.
type Container struct {
	Node *Node
	Leaf Object
}

// Object is a drawable primitive: Bezier, Image, or Text.
// The set is closed; consumers dispatch with an exhaustive type switch.
type Object interface {
	isObject()
}

// Bezier is a stroked curve defined by three control points. The points
// are promoted to a cubic at tessellation time (see internal/stroke).
type Bezier struct {
	Thickness float64
	Color     reel.RGB8
	Points    [3]reel.Point
}

func (Bezier) isObject() {}

// Rect is a normalized sub-rectangle of a texture, components in [0,1].
type Rect struct {
	X, Y, W, H float64
}

// FullRect covers the whole unit texture.
func FullRect() Rect {
	return Rect{X: 0, Y: 0, W: 1, H: 1}
}

// Image references a decoded texture by registry id. A nil Subrect maps
// texture coordinates over the full unit rect.
type Image struct {
	ID      uint32
	Subrect *Rect
}

func (Image) isObject() {}

// Alignment positions text relative to its anchor.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// Text is declared in the wire format but produces no draw output.
type Text struct {
	Content   string
	Alignment Alignment
	Width     float64
}

func (Text) isObject() {}

// Camera pans and zooms the whole frame. The view transform is
// Scale(zoom) applied after Translate(-pos).
type Camera struct {
	Pos  reel.Point
	Zoom float64
}

// Matrix returns the view matrix for the camera.
func (c Camera) Matrix() reel.Matrix {
	return reel.Scale(c.Zoom, c.Zoom).Multiply(reel.Translate(-c.Pos.X, -c.Pos.Y))
}

// Settings are the per-frame presentation parameters.
type Settings struct {
	Background reel.RGB8
	Camera     Camera
}

// DefaultSettings returns a black background and an identity camera.
func DefaultSettings() Settings {
	return Settings{
		Background: reel.RGB8{},
		Camera:     Camera{Zoom: 1},
	}
}

// FrameDescription describes exactly one raster frame.
type FrameDescription struct {
	Things   []Node
	Settings Settings
}

// AudioDescription schedules a sound over a frame range.
// Audio is carried on the wire but not rendered by this library.
type AudioDescription struct {
	ID      uint32
	Start   int
	End     *int
	Looping bool
}

// VideoDescription is a full clip: ordered frames plus timing.
type VideoDescription struct {
	Frames []FrameDescription
	Sounds []AudioDescription
	FPS    int
}
