package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/render"
	"github.com/gogpu/reel/scene"
)

// Session renders compiled frames off-screen and reads them back.
// It implements render.FrameRenderer.
//
// The session owns the headless GPU context, both pipelines, the
// off-screen color target, and the registry texture cache. All methods
// must be called from the goroutine that owns the session.
type Session struct {
	ctx   *Context
	pipes *pipelines
	cache *textureCache
	reg   *scene.Registry
	res   render.Resolution

	targetTex  hal.Texture
	targetView hal.TextureView
}

// NewSession opens a headless GPU context and builds the render
// pipelines and the off-screen target at the given resolution.
func NewSession(res render.Resolution, reg *scene.Registry) (*Session, error) {
	ctx, err := NewContext()
	if err != nil {
		return nil, err
	}
	s := &Session{ctx: ctx, reg: reg, res: res}

	s.pipes, err = newPipelines(ctx.device)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	s.cache = newTextureCache(ctx, s.pipes)

	if err := s.createTarget(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) createTarget() error {
	w := uint32(s.res.Width)
	h := uint32(s.res.Height)

	tex, err := s.ctx.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen target: %w", err)
	}
	s.targetTex = tex

	view, err := s.ctx.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "offscreen_target_view",
	})
	if err != nil {
		return fmt.Errorf("create offscreen target view: %w", err)
	}
	s.targetView = view
	return nil
}

// Resolution returns the output size in pixels.
func (s *Session) Resolution() render.Resolution { return s.res }

// RefreshTextures drops the GPU texture cache so the next frame
// re-uploads current registry contents.
func (s *Session) RefreshTextures() error {
	s.cache.refresh()
	return nil
}

// Close releases all GPU resources.
func (s *Session) Close() error {
	if s.ctx == nil {
		return nil
	}
	s.cache.refresh()
	if s.targetView != nil {
		s.ctx.device.DestroyTextureView(s.targetView)
		s.targetView = nil
	}
	if s.targetTex != nil {
		s.ctx.device.DestroyTexture(s.targetTex)
		s.targetTex = nil
	}
	if s.pipes != nil {
		s.pipes.destroy()
		s.pipes = nil
	}
	s.ctx.Close()
	s.ctx = nil
	return nil
}

// RenderFrame compiles the frame, executes its batches against the
// off-screen target, and returns the raster result.
func (s *Session) RenderFrame(frame *scene.FrameDescription) (*image.RGBA, error) {
	dl, err := render.Compile(frame, s.reg, s.res)
	if err != nil {
		return nil, err
	}
	return s.execute(dl)
}

// frameBuffers are the per-frame GPU buffers for one draw list.
// Recreated every frame and destroyed after the GPU is done with them;
// nothing persists across frames.
type frameBuffers struct {
	strokeVerts   hal.Buffer
	strokeIndices hal.Buffer
	texVerts      hal.Buffer
	texIndices    hal.Buffer
}

func (fb *frameBuffers) destroy(device hal.Device) {
	for _, buf := range []hal.Buffer{fb.strokeVerts, fb.strokeIndices, fb.texVerts, fb.texIndices} {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}
}

func (s *Session) buildBuffers(dl *render.DrawList) (*frameBuffers, error) {
	fb := &frameBuffers{}
	var err error

	if len(dl.StrokeVertices) > 0 {
		fb.strokeVerts, err = s.ctx.createAndUploadBuffer("frame_stroke_verts",
			serializeStrokeVertices(dl.StrokeVertices),
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			return nil, err
		}
		fb.strokeIndices, err = s.ctx.createAndUploadBuffer("frame_stroke_indices",
			serializeIndices(dl.StrokeIndices),
			gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
		if err != nil {
			fb.destroy(s.ctx.device)
			return nil, err
		}
	}
	if len(dl.TexturedVertices) > 0 {
		fb.texVerts, err = s.ctx.createAndUploadBuffer("frame_textured_verts",
			serializeTexturedVertices(dl.TexturedVertices),
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			fb.destroy(s.ctx.device)
			return nil, err
		}
		fb.texIndices, err = s.ctx.createAndUploadBuffer("frame_textured_indices",
			serializeIndices(dl.TexturedIndices),
			gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
		if err != nil {
			fb.destroy(s.ctx.device)
			return nil, err
		}
	}
	return fb, nil
}

// execute encodes the draw list, submits it, waits for the fence, and
// reads the target back as RGBA.
func (s *Session) execute(dl *render.DrawList) (*image.RGBA, error) {
	// Resolve textures first so a missing upload fails before any
	// encoding starts.
	bindGroups := make(map[uint32]hal.BindGroup)
	for _, b := range dl.Batches {
		if b.Kind != render.PipelineTextured {
			continue
		}
		if _, ok := bindGroups[b.TextureID]; ok {
			continue
		}
		src, err := s.reg.Lookup(b.TextureID)
		if err != nil {
			return nil, err
		}
		t, err := s.cache.lookup(b.TextureID, src)
		if err != nil {
			return nil, err
		}
		bindGroups[b.TextureID] = t.bindGroup
	}

	fb, err := s.buildBuffers(dl)
	if err != nil {
		return nil, err
	}
	defer fb.destroy(s.ctx.device)

	encoder, err := s.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    s.targetView,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(dl.Background.R),
				G: float64(dl.Background.G),
				B: float64(dl.Background.B),
				A: 1,
			},
		}},
	})

	s.recordBatches(rp, dl, fb, bindGroups)
	rp.End()

	w := uint32(s.res.Width)
	h := uint32(s.res.Height)

	// The color attachment must be transitioned before the copy; the
	// barrier is a no-op on backends without explicit layouts.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.targetTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	// Copy pitch must be 256-byte aligned for WebGPU and DX12.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := s.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "frame_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer s.ctx.device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(s.targetTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: s.targetTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.targetTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer s.ctx.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.ctx.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer s.ctx.device.DestroyFence(fence)

	if err := s.ctx.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := s.ctx.device.Wait(fence, 1, 5*time.Second)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingSize)
	if err := s.ctx.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, s.res.Width, s.res.Height))
	unpadRows(readback, img.Pix, int(h), int(bytesPerRow), int(alignedBytesPerRow))
	swapBGRAToRGBA(img.Pix)

	reel.Logger().Debug("frame executed", "batches", len(dl.Batches))
	return img, nil
}

// recordBatches issues one draw per batch, switching pipelines and
// bindings as the batch kind changes. Batch order is draw order.
func (s *Session) recordBatches(rp hal.RenderPassEncoder, dl *render.DrawList, fb *frameBuffers, bindGroups map[uint32]hal.BindGroup) {
	for _, b := range dl.Batches {
		switch b.Kind {
		case render.PipelineStroke:
			rp.SetPipeline(s.pipes.stroke)
			rp.SetVertexBuffer(0, fb.strokeVerts, 0)
			rp.SetIndexBuffer(fb.strokeIndices, gputypes.IndexFormatUint32, 0)
		case render.PipelineTextured:
			rp.SetPipeline(s.pipes.textured)
			rp.SetBindGroup(0, bindGroups[b.TextureID], nil)
			rp.SetVertexBuffer(0, fb.texVerts, 0)
			rp.SetIndexBuffer(fb.texIndices, gputypes.IndexFormatUint32, 0)
		}
		rp.DrawIndexed(uint32(b.IndexCount), 1, uint32(b.FirstIndex), 0, 0)
	}
}

// serializeStrokeVertices packs stroke vertices as little-endian f32.
func serializeStrokeVertices(verts []render.StrokeVertex) []byte {
	out := make([]byte, len(verts)*strokeVertexStride)
	off := 0
	for _, v := range verts {
		for _, f := range []float32{v.Position[0], v.Position[1], v.Color[0], v.Color[1], v.Color[2]} {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(f))
			off += 4
		}
	}
	return out
}

// serializeTexturedVertices packs textured vertices as little-endian f32.
func serializeTexturedVertices(verts []render.TexturedVertex) []byte {
	out := make([]byte, len(verts)*texturedVertexStride)
	off := 0
	for _, v := range verts {
		for _, f := range []float32{v.Position[0], v.Position[1], v.UV[0], v.UV[1]} {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(f))
			off += 4
		}
	}
	return out
}

// serializeIndices packs indices as little-endian u32.
func serializeIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

// unpadRows copies the tight rows out of an aligned readback buffer.
func unpadRows(src, dst []byte, rows, bytesPerRow, alignedBytesPerRow int) {
	if bytesPerRow == alignedBytesPerRow {
		copy(dst, src[:rows*bytesPerRow])
		return
	}
	for row := 0; row < rows; row++ {
		copy(dst[row*bytesPerRow:(row+1)*bytesPerRow],
			src[row*alignedBytesPerRow:row*alignedBytesPerRow+bytesPerRow])
	}
}

// swapBGRAToRGBA converts pixels in place from the BGRA target format.
func swapBGRAToRGBA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

var _ render.FrameRenderer = (*Session)(nil)
