package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/reel"
)

// gpuTexture is an uploaded registry image: the texture, its view, and
// the bind group used by the textured pipeline.
type gpuTexture struct {
	tex       hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup
	width     uint32
	height    uint32
}

// textureCache keeps GPU-side copies of registry images keyed by id.
// Entries are uploaded lazily when a batch first references them and
// dropped on Refresh so registry changes become visible.
type textureCache struct {
	ctx      *Context
	pipes    *pipelines
	textures map[uint32]*gpuTexture
}

func newTextureCache(ctx *Context, pipes *pipelines) *textureCache {
	return &textureCache{
		ctx:      ctx,
		pipes:    pipes,
		textures: make(map[uint32]*gpuTexture),
	}
}

// lookup returns the uploaded texture for id, uploading from src if the
// cache has no entry yet.
func (tc *textureCache) lookup(id uint32, src *image.RGBA) (*gpuTexture, error) {
	if t, ok := tc.textures[id]; ok {
		return t, nil
	}
	t, err := tc.upload(id, src)
	if err != nil {
		return nil, err
	}
	tc.textures[id] = t
	return t, nil
}

func (tc *textureCache) upload(id uint32, src *image.RGBA) (*gpuTexture, error) {
	w := uint32(src.Bounds().Dx())
	h := uint32(src.Bounds().Dy())
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	tex, err := tc.ctx.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("registry_texture_%d", id),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %d: %w", id, err)
	}

	view, err := tc.ctx.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         fmt.Sprintf("registry_texture_%d_view", id),
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		tc.ctx.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %d: %w", id, err)
	}

	// The registry normalizes images to origin-based *image.RGBA, so
	// the pixel slice is tightly packed at w*4 bytes per row.
	tc.ctx.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		src.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&size,
	)

	bindGroup, err := tc.ctx.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("registry_texture_%d_bind", id),
		Layout: tc.pipes.texturedBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: tc.pipes.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		tc.ctx.device.DestroyTextureView(view)
		tc.ctx.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create bind group %d: %w", id, err)
	}

	reel.Logger().Debug("texture uploaded", "id", id, "width", w, "height", h)
	return &gpuTexture{tex: tex, view: view, bindGroup: bindGroup, width: w, height: h}, nil
}

// refresh drops every cached texture; the next frame re-uploads from the
// registry on demand.
func (tc *textureCache) refresh() {
	for id, t := range tc.textures {
		tc.destroyTexture(t)
		delete(tc.textures, id)
	}
}

func (tc *textureCache) destroyTexture(t *gpuTexture) {
	if t.bindGroup != nil {
		tc.ctx.device.DestroyBindGroup(t.bindGroup)
	}
	if t.view != nil {
		tc.ctx.device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		tc.ctx.device.DestroyTexture(t.tex)
	}
}
