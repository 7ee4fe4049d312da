package gpu

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/reel/render"
)

func TestSerializeStrokeVertices(t *testing.T) {
	verts := []render.StrokeVertex{
		{Position: [2]float32{1, 2}, Color: [3]float32{0.5, 0.25, 1}},
	}
	data := serializeStrokeVertices(verts)
	if len(data) != strokeVertexStride {
		t.Fatalf("len = %d, want %d", len(data), strokeVertexStride)
	}
	want := []float32{1, 2, 0.5, 0.25, 1}
	for i, f := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != f {
			t.Errorf("component %d = %v, want %v", i, got, f)
		}
	}
}

func TestSerializeTexturedVertices(t *testing.T) {
	verts := []render.TexturedVertex{
		{Position: [2]float32{-1, 1}, UV: [2]float32{0, 1}},
		{Position: [2]float32{1, 1}, UV: [2]float32{1, 1}},
	}
	data := serializeTexturedVertices(verts)
	if len(data) != 2*texturedVertexStride {
		t.Fatalf("len = %d, want %d", len(data), 2*texturedVertexStride)
	}
	got := math.Float32frombits(binary.LittleEndian.Uint32(data[texturedVertexStride:]))
	if got != 1 {
		t.Errorf("second vertex x = %v, want 1", got)
	}
}

func TestSerializeIndices(t *testing.T) {
	data := serializeIndices([]uint32{0, 1, 2, 70000})
	if len(data) != 16 {
		t.Fatalf("len = %d, want 16", len(data))
	}
	if binary.LittleEndian.Uint32(data[12:]) != 70000 {
		t.Errorf("last index = %d, want 70000", binary.LittleEndian.Uint32(data[12:]))
	}
}

func TestUnpadRows(t *testing.T) {
	// Two rows of 4 bytes each, padded to 8.
	src := []byte{
		1, 2, 3, 4, 0, 0, 0, 0,
		5, 6, 7, 8, 0, 0, 0, 0,
	}
	dst := make([]byte, 8)
	unpadRows(src, dst, 2, 4, 8)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(dst, want) {
		t.Errorf("unpadRows = %v, want %v", dst, want)
	}
}

func TestUnpadRowsNoPadding(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]byte, 8)
	unpadRows(src, dst, 2, 4, 4)
	if !bytes.Equal(dst, src) {
		t.Errorf("unpadRows = %v, want %v", dst, src)
	}
}

func TestSwapBGRAToRGBA(t *testing.T) {
	pix := []byte{10, 20, 30, 255, 1, 2, 3, 4}
	swapBGRAToRGBA(pix)
	want := []byte{30, 20, 10, 255, 3, 2, 1, 4}
	if !bytes.Equal(pix, want) {
		t.Errorf("swap = %v, want %v", pix, want)
	}
}

func TestVertexStridesMatchLayouts(t *testing.T) {
	sl := strokeVertexLayout()
	if sl[0].ArrayStride != strokeVertexStride {
		t.Errorf("stroke stride = %d, want %d", sl[0].ArrayStride, strokeVertexStride)
	}
	tl := texturedVertexLayout()
	if tl[0].ArrayStride != texturedVertexStride {
		t.Errorf("textured stride = %d, want %d", tl[0].ArrayStride, texturedVertexStride)
	}
}
