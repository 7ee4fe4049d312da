package video

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/render"
	"github.com/gogpu/reel/scene"
)

// ProgressFunc is invoked once per successfully encoded frame with that
// frame's index. It is the only externally observable side effect of an
// export besides the output file.
type ProgressFunc func(frameIndex int)

// Export renders every frame of the clip in strictly ascending index
// order and hands each raster frame to the encoder. Frame K's
// presentation timestamp is K/fps seconds, established by feeding the
// encoder a constant-rate stream in order.
//
// The encoder is always closed, even when rendering or encoding fails
// part way or the context is cancelled: a flushed, truncated file beats
// a corrupt one. The first error is returned, annotated with the frame
// index that failed.
func Export(ctx context.Context, desc *scene.VideoDescription, renderer render.FrameRenderer, enc Encoder, progress ProgressFunc) (err error) {
	jobID := uuid.New()
	res := renderer.Resolution()
	log := reel.Logger().With("job", jobID.String())
	log.Info("export started", "frames", len(desc.Frames), "fps", desc.FPS,
		"width", res.Width, "height", res.Height)

	if desc.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", desc.FPS)
	}
	if err := enc.Start(res.Width, res.Height, desc.FPS); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}
	defer func() {
		closeErr := enc.Close()
		if err == nil && closeErr != nil {
			err = &reel.EncoderError{Frame: len(desc.Frames) - 1, Err: closeErr}
		}
	}()

	for i := range desc.Frames {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("export cancelled", "frame", i)
			return fmt.Errorf("frame %d: %w", i, ctxErr)
		}

		img, renderErr := renderer.RenderFrame(&desc.Frames[i])
		if renderErr != nil {
			log.Error("frame render failed", "frame", i, "error", renderErr)
			return fmt.Errorf("frame %d: %w", i, renderErr)
		}

		if writeErr := enc.WriteFrame(rgbaToRGB(img)); writeErr != nil {
			log.Error("frame encode failed", "frame", i, "error", writeErr)
			return &reel.EncoderError{Frame: i, Err: writeErr}
		}

		if progress != nil {
			progress(i)
		}
	}

	log.Info("export finished", "frames", len(desc.Frames))
	return nil
}

// rgbaToRGB converts an RGBA image to tightly packed RGB24 by dropping
// every fourth byte.
func rgbaToRGB(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)

	di := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			out[di] = row[x*4]
			out[di+1] = row[x*4+1]
			out[di+2] = row[x*4+2]
			di += 3
		}
	}
	return out
}
