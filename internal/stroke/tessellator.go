// Package stroke converts stroked cubic Bezier curves into triangle
// meshes suitable for GPU rasterization.
//
// The curve is flattened to a polyline within a flatness tolerance using
// recursive de Casteljau subdivision, then expanded to triangles: one
// quad per polyline segment plus a circular fan at every polyline point.
// The fans realize round caps at the curve ends and round joins at the
// interior joints; the fan step angle is derived from the same tolerance
// so the whole mesh stays within the requested deviation from the ideal
// stroke.
package stroke

import (
	"fmt"
	"math"
)

// Point is a 2D point or vector in scene units.
type Point struct {
	X, Y float64
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns the sum of two vectors.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns the vector scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Dot returns the dot product.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Length returns the Euclidean length.
func (p Point) Length() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Distance returns the distance between two points.
func (p Point) Distance(q Point) float64 {
	return p.Sub(q).Length()
}

// Lerp interpolates between p and q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
	}
}

// perp returns the vector rotated 90 degrees counter-clockwise.
func (p Point) perp() Point {
	return Point{X: -p.Y, Y: p.X}
}

// Mesh is the triangulated stroke: shared vertices plus triangle indices.
type Mesh struct {
	Vertices []Point
	Indices  []uint32
}

// DefaultTolerance is the flatness tolerance in normalized scene units.
const DefaultTolerance = 0.001

// minSegmentLength below which two polyline points are merged.
const minSegmentLength = 1e-9

// Tessellate strokes the cubic Bezier (p0, p1, p2, p3) with the given
// width and returns the triangle mesh. Degenerate input (non-finite
// coordinates, non-positive width, or a curve that collapses to a
// single point) is an error: callers must fail the frame rather than
// drop the primitive.
func Tessellate(p0, p1, p2, p3 Point, width, tolerance float64) (*Mesh, error) {
	if width <= 0 || !isFinite(width) {
		return nil, fmt.Errorf("invalid stroke width %v", width)
	}
	for _, p := range []Point{p0, p1, p2, p3} {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return nil, fmt.Errorf("non-finite control point (%v, %v)", p.X, p.Y)
		}
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	points := dedup(flattenCubic(p0, p1, p2, p3, tolerance))
	if len(points) < 2 {
		// The whole curve collapsed to one point. A round dot would be
		// an arbitrary invention; treat it as degenerate geometry.
		return nil, fmt.Errorf("degenerate curve: all control points coincide")
	}

	var m Mesh
	half := width / 2

	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		dir := b.Sub(a)
		norm := dir.perp().Scale(half / dir.Length())

		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices,
			a.Add(norm), a.Sub(norm),
			b.Add(norm), b.Sub(norm),
		)
		m.Indices = append(m.Indices,
			base, base+1, base+2,
			base+1, base+3, base+2,
		)
	}

	// Fans at every polyline point: caps at the ends, joins in between.
	steps := fanSteps(half, tolerance)
	for _, c := range points {
		appendFan(&m, c, half, steps)
	}
	return &m, nil
}

// fanSteps returns the number of segments needed so a circular fan of
// radius r deviates from the true circle by at most tol.
func fanSteps(r, tol float64) int {
	if tol >= r {
		return 4
	}
	// Chord sagitta: r*(1-cos(step/2)) <= tol.
	step := 2 * math.Acos(1-tol/r)
	n := int(math.Ceil(2 * math.Pi / step))
	if n < 4 {
		n = 4
	}
	if n > 256 {
		n = 256
	}
	return n
}

// appendFan emits a full disc of radius r centered at c as a triangle fan.
func appendFan(m *Mesh, c Point, r float64, steps int) {
	center := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, c)
	for i := 0; i < steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		m.Vertices = append(m.Vertices, Point{
			X: c.X + r*math.Cos(angle),
			Y: c.Y + r*math.Sin(angle),
		})
	}
	for i := 0; i < steps; i++ {
		next := (i + 1) % steps
		m.Indices = append(m.Indices,
			center,
			center+1+uint32(i),
			center+1+uint32(next),
		)
	}
}

// flattenCubic flattens a cubic Bezier curve to line segments within the
// flatness tolerance, using recursive de Casteljau subdivision.
func flattenCubic(p0, p1, p2, p3 Point, tolerance float64) []Point {
	points := []Point{p0}
	flattenCubicRec(p0, p1, p2, p3, tolerance, &points, 0)
	return points
}

// maxSubdivisionDepth bounds recursion for pathological control points.
const maxSubdivisionDepth = 24

func flattenCubicRec(p0, p1, p2, p3 Point, tolerance float64, points *[]Point, depth int) {
	d1 := distanceToLine(p1, p0, p3)
	d2 := distanceToLine(p2, p0, p3)
	dist := math.Max(d1, d2)

	if dist < tolerance || depth >= maxSubdivisionDepth {
		*points = append(*points, p3)
		return
	}

	q0 := p0.Lerp(p1, 0.5)
	q1 := p1.Lerp(p2, 0.5)
	q2 := p2.Lerp(p3, 0.5)
	r0 := q0.Lerp(q1, 0.5)
	r1 := q1.Lerp(q2, 0.5)
	s := r0.Lerp(r1, 0.5)

	flattenCubicRec(p0, q0, r0, s, tolerance, points, depth+1)
	flattenCubicRec(s, r1, q2, p3, tolerance, points, depth+1)
}

// distanceToLine calculates the perpendicular distance from point p to
// line segment (a, b).
func distanceToLine(p, a, b Point) float64 {
	ab := b.Sub(a)
	abLen := ab.Length()

	if abLen < 1e-10 {
		return p.Distance(a)
	}

	ap := p.Sub(a)
	t := ap.Dot(ab) / (abLen * abLen)

	if t < 0 {
		return p.Distance(a)
	}
	if t > 1 {
		return p.Distance(b)
	}

	closest := a.Add(ab.Scale(t))
	return p.Distance(closest)
}

// dedup merges consecutive polyline points closer than minSegmentLength.
func dedup(points []Point) []Point {
	out := points[:0]
	for _, p := range points {
		if len(out) == 0 || p.Distance(out[len(out)-1]) > minSegmentLength {
			out = append(out, p)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
