package render

import (
	"image"

	"github.com/gogpu/reel/scene"
)

// FrameRenderer renders one frame description to a raster image.
//
// This is the unit operation shared by interactive preview and video
// export: both compile the frame to a DrawList, execute it against an
// off-screen target at the configured resolution, and read the result
// back into host memory.
//
// Thread safety: a FrameRenderer is NOT safe for concurrent use. The
// GPU implementation owns device resources that must be driven from a
// single goroutine; callers serialize access (see the player package).
type FrameRenderer interface {
	// RenderFrame compiles and renders the frame, returning the raster
	// result. The returned image is owned by the caller.
	//
	// Errors from geometry compilation (missing texture id, failed
	// tessellation) abort the frame; no partial image is returned.
	RenderFrame(frame *scene.FrameDescription) (*image.RGBA, error)

	// Resolution returns the output size in pixels.
	Resolution() Resolution

	// RefreshTextures re-uploads registry textures to the GPU. Called
	// after the registry changes; a no-op for renderers without
	// GPU-side texture caches.
	RefreshTextures() error

	// Close releases all resources held by the renderer.
	Close() error
}

// BlackFrame returns an opaque black image at the given resolution.
// The interactive path presents it when nothing has been rendered yet.
func BlackFrame(res Resolution) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return img
}
