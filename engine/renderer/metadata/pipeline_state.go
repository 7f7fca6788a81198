package metadata

// Platform-independent fixed-function pipeline state. The backend translates
// these into its own create-info structures when a pipeline is validated.

type PrimitiveTopology uint8

const (
	PrimitiveTopologyPointList PrimitiveTopology = iota
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyTriangleList
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyTriangleFan
	PrimitiveTopologyPatchList
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
	PolygonModePoint
)

type FaceCullMode uint8

const (
	FaceCullModeNone FaceCullMode = iota
	FaceCullModeFront
	FaceCullModeBack
	FaceCullModeFrontAndBack
)

type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type CompareOp uint8

const (
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

type ColorComponentFlags uint8

const (
	ColorComponentR ColorComponentFlags = 1 << iota
	ColorComponentG
	ColorComponentB
	ColorComponentA
)

const ColorComponentAll = ColorComponentR | ColorComponentG | ColorComponentB | ColorComponentA

// DynamicState marks a piece of pipeline state that is set by a command at
// record time rather than baked into the pipeline.
type DynamicState uint8

const (
	DynamicStateViewport DynamicState = iota
	DynamicStateScissor
	DynamicStateLineWidth
	DynamicStateDepthBias
	DynamicStateBlendConstants
	DynamicStateDepthBounds
	DynamicStateStencilCompareMask
	DynamicStateStencilWriteMask
	DynamicStateStencilReference
)

type VertexInputRate uint8

const (
	VertexInputRateVertex VertexInputRate = iota
	VertexInputRateInstance
)

type VertexFormat uint8

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
	VertexFormatUint32x2
	VertexFormatUint32x4
)

/** @brief A single attribute within a vertex input binding. */
type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   VertexFormat
}

/**
 * @brief Describes one vertex buffer binding: its stride, its input rate and
 * the attributes it feeds into the vertex stage.
 */
type VertexInputDefinition struct {
	Binding    uint32
	Stride     uint32
	InputRate  VertexInputRate
	Attributes []VertexAttribute
}

/** @brief Per-attachment blend configuration. */
type BlendAttachmentDefinition struct {
	BlendEnable         bool
	ColorWriteMask      ColorComponentFlags
	SrcColorBlendFactor BlendFactor
	DstColorBlendFactor BlendFactor
	ColorBlendOp        BlendOp
	SrcAlphaBlendFactor BlendFactor
	DstAlphaBlendFactor BlendFactor
	AlphaBlendOp        BlendOp
}

// NewBlendAttachment returns the straight pass-through configuration used by
// opaque geometry.
func NewBlendAttachment(blendEnable bool) BlendAttachmentDefinition {
	return BlendAttachmentDefinition{
		BlendEnable:         blendEnable,
		ColorWriteMask:      ColorComponentAll,
		SrcColorBlendFactor: BlendFactorOne,
		DstColorBlendFactor: BlendFactorZero,
		ColorBlendOp:        BlendOpAdd,
		SrcAlphaBlendFactor: BlendFactorOne,
		DstAlphaBlendFactor: BlendFactorZero,
		AlphaBlendOp:        BlendOpAdd,
	}
}

/** @brief Rasterizer configuration for a graphics pipeline. */
type RasterizationState struct {
	DepthClampEnable        bool
	RasterizerDiscardEnable bool
	PolygonMode             PolygonMode
	CullMode                FaceCullMode
	FrontFace               FrontFace
	DepthBiasEnable         bool
	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	LineWidth               float32
}

// NewRasterizationState returns the defaults for solid back-face-culled geometry.
func NewRasterizationState() RasterizationState {
	return RasterizationState{
		PolygonMode: PolygonModeFill,
		CullMode:    FaceCullModeBack,
		FrontFace:   FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}
}

/** @brief Depth and stencil configuration for a graphics pipeline. */
type DepthStencilState struct {
	DepthTestEnable       bool
	DepthWriteEnable      bool
	DepthCompareOp        CompareOp
	DepthBoundsTestEnable bool
	StencilTestEnable     bool
	MinDepthBounds        float32
	MaxDepthBounds        float32
}

func NewDepthStencilState() DepthStencilState {
	return DepthStencilState{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   CompareOpLessOrEqual,
	}
}

/** @brief Multisample configuration for a graphics pipeline. */
type MultisampleState struct {
	RasterizationSamples  uint32
	SampleShadingEnable   bool
	MinSampleShading      float32
	AlphaToCoverageEnable bool
	AlphaToOneEnable      bool
}

func NewMultisampleState() MultisampleState {
	return MultisampleState{RasterizationSamples: 1}
}

/** @brief A viewport rectangle with its depth range. */
type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

/** @brief An integer scissor rectangle. */
type Rect2D struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}
