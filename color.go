package reel

import "math"

// RGB8 is an 8-bit-per-channel sRGB color as it appears on the wire.
type RGB8 struct {
	R, G, B uint8
}

// LinearRGB is a color in linear light, one float32 per channel.
// Vertex color attributes are always linear; the sRGB transfer function
// is applied exactly once, when a wire color enters the pipeline.
type LinearRGB struct {
	R, G, B float32
}

// SRGBToLinear converts an sRGB component to linear (EOTF).
// Formula: if s <= 0.04045: s/12.92; else: pow((s+0.055)/1.055, 2.4)
// Input and output are in range [0,1].
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64((s+0.055)/1.055), 2.4))
}

// LinearToSRGB converts a linear component to sRGB (OETF).
// Formula: if l <= 0.0031308: l*12.92; else: 1.055*pow(l, 1/2.4)-0.055
// Input and output are in range [0,1].
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*float32(math.Pow(float64(l), 1.0/2.4)) - 0.055
}

// Linearize converts a wire color to linear light.
// Each uint8 component [0,255] is normalized to [0,1] before the
// transfer function is applied.
func (c RGB8) Linearize() LinearRGB {
	return LinearRGB{
		R: SRGBToLinear(float32(c.R) / 255.0),
		G: SRGBToLinear(float32(c.G) / 255.0),
		B: SRGBToLinear(float32(c.B) / 255.0),
	}
}
