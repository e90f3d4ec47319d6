package sprite

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/touch"
)

// ID is the network key of a sprite.
type ID = uint64

const (
	EmptyID ID = 0
	RootID  ID = math.MaxUint64
)

var (
	ErrCycle    = errors.New("sprite would become its own ancestor")
	ErrReleased = errors.New("sprite released")
)

type BlendMode byte

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendAdd
	BlendSubtract
	BlendLighten
	BlendDarken
)

const (
	flagVisible uint32 = 1 << iota
	flagEnabled
	flagTransparent
)

// Sprite is one node of the replicated scene tree. The engine owns the id
// mapping; parents own their children.
type Sprite struct {
	engine   *Engine
	id       ID
	blobType byte
	self     any

	parent   *Sprite
	children []*Sprite
	dirty    common.BitMask
	queued   bool
	released bool
	snapshot bool
	part     int  // block being written, 0 for the first
	more     bool // a codec needs another block

	size     mgl32.Vec3
	position mgl32.Vec3
	rotation mgl32.Vec3 // degrees
	scale    mgl32.Vec3
	center   mgl32.Vec3 // normalized anchor
	color    mgl32.Vec3
	opacity  float32
	blend    BlendMode
	clipping bool
	shader   string
	flags    uint32

	codecs []Codec

	process            *touch.Process
	constraints        touch.Constraint
	touchScaleSizeMode bool
	dragTarget         bool
	onDrop             func(touch.DragDestinationInfo)
}

func newSprite(e *Engine, blobType byte) *Sprite {
	s := &Sprite{
		engine:   e,
		blobType: blobType,
		scale:    mgl32.Vec3{1, 1, 1},
		color:    mgl32.Vec3{1, 1, 1},
		opacity:  1,
		flags:    flagVisible | flagEnabled | flagTransparent,
	}
	s.self = s
	s.codecs = []Codec{s.baseCodec()}
	return s
}

func (s *Sprite) ID() ID                { return s.id }
func (s *Sprite) BlobType() byte        { return s.blobType }
func (s *Sprite) Engine() *Engine       { return s.engine }
func (s *Sprite) Parent() *Sprite       { return s.parent }
func (s *Sprite) Dirty() common.BitMask { return s.dirty }
func (s *Sprite) IsDirty() bool         { return !s.dirty.IsEmpty() }
func (s *Sprite) Released() bool        { return s.released }

// Children returns a copy of the child list.
func (s *Sprite) Children() []*Sprite { return append([]*Sprite{}, s.children...) }

// As returns the subclass wrapping s, such as *Circle.
func As[T any](s *Sprite) (T, bool) {
	t, ok := s.self.(T)
	return t, ok
}

// MarkAsDirty adds state to the pending changes. The engine learns about
// the sprite on its first pending change.
func (s *Sprite) MarkAsDirty(state common.DirtyState) {
	if s.released {
		return
	}
	s.dirty |= state
	if !s.queued && !s.dirty.IsEmpty() && s.engine != nil {
		s.queued = true
		s.engine.queueDirty(s)
	}
}

// MarkTreeAsDirty marks every attribute of s and its descendants.
func (s *Sprite) MarkTreeAsDirty() {
	var all common.BitMask
	all.Fill()
	s.MarkAsDirty(all)
	for _, c := range s.children {
		c.MarkTreeAsDirty()
	}
}

// AddChild reparents child under s.
func (s *Sprite) AddChild(child *Sprite) error {
	if child == nil {
		return nil
	}
	if s.released || child.released {
		return ErrReleased
	}
	for p := s; p != nil; p = p.parent {
		if p == child {
			return ErrCycle
		}
	}
	if child.parent == s {
		return nil
	}

	child.detach()
	child.parent = s
	s.children = append(s.children, child)
	child.MarkAsDirty(ParentDirty)
	return nil
}

// Remove detaches s from its parent without releasing it.
func (s *Sprite) Remove() {
	if s.parent == nil {
		return
	}
	s.detach()
	s.MarkAsDirty(ParentDirty)
}

func (s *Sprite) detach() {
	p := s.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == s {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	s.parent = nil
}

// Release detaches s and destroys it together with its subtree. The root
// only loses its children.
func (s *Sprite) Release() {
	if s.released {
		return
	}
	if s.engine != nil && s == s.engine.root {
		for _, c := range s.Children() {
			c.Release()
		}
		return
	}

	s.detach()
	if s.engine != nil {
		s.engine.recordDeleted(s.id)
	}
	s.releaseTree()
}

func (s *Sprite) releaseTree() {
	children := s.children
	s.children = nil
	for _, c := range children {
		c.parent = nil
		c.releaseTree()
	}

	if s.process != nil {
		s.process.Clear()
	}
	s.released = true
	s.dirty.Clear()
	if s.engine != nil {
		s.engine.unregister(s)
	}
}

func (s *Sprite) Size() mgl32.Vec3     { return s.size }
func (s *Sprite) Width() float32       { return s.size[0] }
func (s *Sprite) Height() float32      { return s.size[1] }
func (s *Sprite) Depth() float32       { return s.size[2] }
func (s *Sprite) Position() mgl32.Vec3 { return s.position }
func (s *Sprite) Rotation() mgl32.Vec3 { return s.rotation }
func (s *Sprite) Scale() mgl32.Vec3    { return s.scale }
func (s *Sprite) Center() mgl32.Vec3   { return s.center }
func (s *Sprite) Color() mgl32.Vec3    { return s.color }
func (s *Sprite) Opacity() float32     { return s.opacity }
func (s *Sprite) BlendMode() BlendMode { return s.blend }
func (s *Sprite) Clipping() bool       { return s.clipping }
func (s *Sprite) Shader() string       { return s.shader }
func (s *Sprite) Visible() bool        { return s.flags&flagVisible != 0 }
func (s *Sprite) Enabled() bool        { return s.flags&flagEnabled != 0 }
func (s *Sprite) Transparent() bool    { return s.flags&flagTransparent != 0 }

func (s *Sprite) SetSize(w, h float32) { s.SetSize3(mgl32.Vec3{w, h, s.size[2]}) }

func (s *Sprite) SetSize3(v mgl32.Vec3) {
	if s.size == v {
		return
	}
	s.size = v
	s.MarkAsDirty(SizeDirty)
}

func (s *Sprite) SetPosition(v mgl32.Vec3) {
	if s.position == v {
		return
	}
	s.position = v
	s.MarkAsDirty(PositionDirty)
}

func (s *Sprite) Move(delta mgl32.Vec3) { s.SetPosition(s.position.Add(delta)) }

func (s *Sprite) SetRotation(v mgl32.Vec3) {
	if s.rotation == v {
		return
	}
	s.rotation = v
	s.MarkAsDirty(RotationDirty)
}

func (s *Sprite) SetScale(v mgl32.Vec3) {
	if s.scale == v {
		return
	}
	s.scale = v
	s.MarkAsDirty(ScaleDirty)
}

func (s *Sprite) SetCenter(v mgl32.Vec3) {
	if s.center == v {
		return
	}
	s.center = v
	s.MarkAsDirty(CenterDirty)
}

func (s *Sprite) SetColor(v mgl32.Vec3) {
	if s.color == v {
		return
	}
	s.color = v
	s.MarkAsDirty(ColorDirty)
}

func (s *Sprite) SetOpacity(v float32) {
	if s.opacity == v {
		return
	}
	s.opacity = v
	s.MarkAsDirty(OpacityDirty)
}

func (s *Sprite) SetBlendMode(m BlendMode) {
	if s.blend == m {
		return
	}
	s.blend = m
	s.MarkAsDirty(BlendDirty)
}

func (s *Sprite) SetClipping(on bool) {
	if s.clipping == on {
		return
	}
	s.clipping = on
	s.MarkAsDirty(ClippingDirty)
}

func (s *Sprite) SetShader(name string) {
	if s.shader == name {
		return
	}
	s.shader = name
	s.MarkAsDirty(ShaderDirty)
}

func (s *Sprite) setFlag(bit uint32, on bool) {
	old := s.flags
	if on {
		s.flags |= bit
	} else {
		s.flags &^= bit
	}
	if old != s.flags {
		s.MarkAsDirty(FlagsDirty)
	}
}

func (s *Sprite) Show()                  { s.setFlag(flagVisible, true) }
func (s *Sprite) Hide()                  { s.setFlag(flagVisible, false) }
func (s *Sprite) Enable(on bool)         { s.setFlag(flagEnabled, on) }
func (s *Sprite) SetTransparent(on bool) { s.setFlag(flagTransparent, on) }
