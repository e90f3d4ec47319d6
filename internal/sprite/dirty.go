package sprite

import "github.com/ilnaes/downstream/internal/common"

var (
	ParentDirty   = common.NewUniqueDirtyState("parent")
	SizeDirty     = common.NewUniqueDirtyState("size")
	PositionDirty = common.NewUniqueDirtyState("position")
	RotationDirty = common.NewUniqueDirtyState("rotation")
	ScaleDirty    = common.NewUniqueDirtyState("scale")
	CenterDirty   = common.NewUniqueDirtyState("center")
	ColorDirty    = common.NewUniqueDirtyState("color")
	OpacityDirty  = common.NewUniqueDirtyState("opacity")
	BlendDirty    = common.NewUniqueDirtyState("blend")
	ClippingDirty = common.NewUniqueDirtyState("clipping")
	ShaderDirty   = common.NewUniqueDirtyState("shader")
	FlagsDirty    = common.NewUniqueDirtyState("flags")

	// Subclasses alias these for their own attributes.
	InternalADirty = common.NewUniqueDirtyState("internal_a")
	InternalBDirty = common.NewUniqueDirtyState("internal_b")
	InternalCDirty = common.NewUniqueDirtyState("internal_c")
	InternalDDirty = common.NewUniqueDirtyState("internal_d")
	InternalEDirty = common.NewUniqueDirtyState("internal_e")
	InternalFDirty = common.NewUniqueDirtyState("internal_f")
)

const (
	parentAtt byte = 2 + iota
	sizeAtt
	positionAtt
	rotationAtt
	scaleAtt
	centerAtt
	colorAtt
	opacityAtt
	blendAtt
	clippingAtt
	shaderAtt
	flagsAtt
)

// Subclass attribute ids start here.
const firstSubclassAtt byte = 80
