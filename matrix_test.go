package reel

import (
	"math"
	"testing"
)

func pointsClose(p, q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

func TestComposeOrder(t *testing.T) {
	// Compose applies scale first, then rotation, then translation.
	m := Compose(Pt(10, 20), Pt(2, 2), math.Pi/2)
	got := m.TransformPoint(Pt(1, 0))
	// (1,0) -> scale (2,0) -> rotate 90deg (0,2) -> translate (10,22)
	want := Pt(10, 22)
	if !pointsClose(got, want, 1e-9) {
		t.Errorf("Compose order: got %+v, want %+v", got, want)
	}
}

func TestComposeIdentity(t *testing.T) {
	m := Compose(Pt(0, 0), Pt(1, 1), 0)
	if !m.IsIdentity() {
		t.Errorf("Compose(0, 1, 0) = %+v, want identity", m)
	}
}

func TestMultiplyAssociative(t *testing.T) {
	a := Compose(Pt(3, -1), Pt(2, 0.5), math.Pi/6)
	b := Compose(Pt(-7, 4), Pt(1, 3), -math.Pi/3)
	c := Compose(Pt(0.5, 0.5), Pt(4, 4), 1.1)

	p := Pt(1.25, -2.5)
	left := a.Multiply(b).Multiply(c).TransformPoint(p)
	right := a.Multiply(b.Multiply(c)).TransformPoint(p)
	if !pointsClose(left, right, 1e-9) {
		t.Errorf("(ab)c and a(bc) disagree: %+v vs %+v", left, right)
	}
}

func TestNestedEqualsPrecomposed(t *testing.T) {
	// Applying transforms one level at a time must match applying the
	// precomposed product once.
	a := Compose(Pt(5, 0), Pt(2, 2), 0.3)
	b := Compose(Pt(0, -2), Pt(0.5, 1), -0.7)
	c := Compose(Pt(1, 1), Pt(3, 3), 2.0)

	p := Pt(0.1, 0.9)
	stepwise := a.TransformPoint(b.TransformPoint(c.TransformPoint(p)))
	composed := a.Multiply(b).Multiply(c).TransformPoint(p)
	if !pointsClose(stepwise, composed, 1e-5) {
		t.Errorf("stepwise %+v != precomposed %+v", stepwise, composed)
	}
}

func TestLinearScale(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		want float64
	}{
		{"identity", Identity(), 1.0},
		{"translation", Translate(100, -50), 1.0},
		{"uniform scale 3", Scale(3, 3), 3.0},
		{"rotation only", Rotate(math.Pi / 3), 1.0},
		{"scale 2 with rotation", Rotate(1.2).Multiply(Scale(2, 2)), 2.0},
		{"non-uniform 1,3", Scale(1, 3), 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.LinearScale()
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("LinearScale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvertRoundTrip(t *testing.T) {
	m := Compose(Pt(4, -9), Pt(1.5, 0.75), 0.8)
	p := Pt(-3, 7)
	back := m.Invert().TransformPoint(m.TransformPoint(p))
	if !pointsClose(back, p, 1e-9) {
		t.Errorf("Invert round trip: got %+v, want %+v", back, p)
	}
}

func TestInvertSingular(t *testing.T) {
	m := Scale(0, 0)
	if !m.Invert().IsIdentity() {
		t.Errorf("Invert of singular matrix should return identity")
	}
}
