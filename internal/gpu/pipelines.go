package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// targetFormat is the off-screen color format. BGRA8 matches the copy
// paths of every backend; readback swaps to RGBA on the CPU.
const targetFormat = gputypes.TextureFormatBGRA8Unorm

const (
	strokeVertexStride   = 20 // vec2 position + vec3 color
	texturedVertexStride = 16 // vec2 position + vec2 uv
)

// pipelines holds the two render pipelines and the shared resources of
// the textured one (bind group layout, sampler).
type pipelines struct {
	device hal.Device

	strokeShader     hal.ShaderModule
	strokePipeLayout hal.PipelineLayout
	stroke           hal.RenderPipeline

	texturedShader     hal.ShaderModule
	texturedBindLayout hal.BindGroupLayout
	texturedPipeLayout hal.PipelineLayout
	textured           hal.RenderPipeline
	sampler            hal.Sampler
}

func newPipelines(device hal.Device) (*pipelines, error) {
	p := &pipelines{device: device}
	if err := p.createStroke(); err != nil {
		p.destroy()
		return nil, err
	}
	if err := p.createTextured(); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *pipelines) createStroke() error {
	shader, err := createShaderModule(p.device, "stroke_shader", strokeShaderSource)
	if err != nil {
		return fmt.Errorf("compile stroke shader: %w", err)
	}
	p.strokeShader = shader

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "stroke_pipe_layout",
	})
	if err != nil {
		return fmt.Errorf("create stroke pipeline layout: %w", err)
	}
	p.strokePipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "stroke_pipeline",
		Layout: p.strokePipeLayout,
		Vertex: hal.VertexState{
			Module:     p.strokeShader,
			EntryPoint: "vs_main",
			Buffers:    strokeVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.strokeShader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create stroke pipeline: %w", err)
	}
	p.stroke = pipeline
	return nil
}

func (p *pipelines) createTextured() error {
	shader, err := createShaderModule(p.device, "textured_shader", texturedShaderSource)
	if err != nil {
		return fmt.Errorf("compile textured shader: %w", err)
	}
	p.texturedShader = shader

	// Bind group layout:
	//   Binding 0: source texture (texture_2d, fragment)
	//   Binding 1: sampler (fragment)
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "textured_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create textured bind layout: %w", err)
	}
	p.texturedBindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "textured_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.texturedBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create textured pipeline layout: %w", err)
	}
	p.texturedPipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "textured_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	p.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "textured_pipeline",
		Layout: p.texturedPipeLayout,
		Vertex: hal.VertexState{
			Module:     p.texturedShader,
			EntryPoint: "vs_main",
			Buffers:    texturedVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.texturedShader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create textured pipeline: %w", err)
	}
	p.textured = pipeline
	return nil
}

// strokeVertexLayout returns the vertex buffer layout for the stroke pipeline.
func strokeVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: strokeVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x3, Offset: 8, ShaderLocation: 1}, // color
			},
		},
	}
}

// texturedVertexLayout returns the vertex buffer layout for the textured pipeline.
func texturedVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: texturedVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // uv
			},
		},
	}
}

// destroy releases pipeline resources in reverse creation order.
func (p *pipelines) destroy() {
	if p.device == nil {
		return
	}
	if p.textured != nil {
		p.device.DestroyRenderPipeline(p.textured)
		p.textured = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.texturedPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.texturedPipeLayout)
		p.texturedPipeLayout = nil
	}
	if p.texturedBindLayout != nil {
		p.device.DestroyBindGroupLayout(p.texturedBindLayout)
		p.texturedBindLayout = nil
	}
	if p.texturedShader != nil {
		p.device.DestroyShaderModule(p.texturedShader)
		p.texturedShader = nil
	}
	if p.stroke != nil {
		p.device.DestroyRenderPipeline(p.stroke)
		p.stroke = nil
	}
	if p.strokePipeLayout != nil {
		p.device.DestroyPipelineLayout(p.strokePipeLayout)
		p.strokePipeLayout = nil
	}
	if p.strokeShader != nil {
		p.device.DestroyShaderModule(p.strokeShader)
		p.strokeShader = nil
	}
}
