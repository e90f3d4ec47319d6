package sprite

import (
	"github.com/ilnaes/downstream/internal/common"
)

var CircleBlob = common.BlobType("circle")

var (
	RadiusDirty    = InternalADirty
	FilledDirty    = InternalBDirty
	LineWidthDirty = InternalCDirty
)

const (
	radiusAtt = firstSubclassAtt + iota
	filledAtt
	lineWidthAtt
)

// Circle is a sprite drawn as a disc or ring inscribed in its size.
type Circle struct {
	*Sprite
	radius    float32
	filled    bool
	lineWidth float32
}

func (e *Engine) NewCircle(parent *Sprite, radius float32) *Circle {
	c, _ := As[*Circle](e.spawn(CircleBlob, parent))
	c.SetRadius(radius)
	return c
}

func wrapCircle(s *Sprite) {
	c := &Circle{Sprite: s, filled: true, lineWidth: 1}
	s.self = c
	s.AddCodec(Codec{Write: c.write, Read: c.read})
}

func (c *Circle) Radius() float32    { return c.radius }
func (c *Circle) Filled() bool       { return c.filled }
func (c *Circle) LineWidth() float32 { return c.lineWidth }

// SetRadius also resizes the sprite to the bounding square, so a new
// radius marks SizeDirty along with RadiusDirty.
func (c *Circle) SetRadius(r float32) {
	c.SetSize(2*r, 2*r)
	if c.radius == r {
		return
	}
	c.radius = r
	c.MarkAsDirty(RadiusDirty)
}

func (c *Circle) SetFilled(on bool) {
	if c.filled == on {
		return
	}
	c.filled = on
	c.MarkAsDirty(FilledDirty)
}

func (c *Circle) SetLineWidth(w float32) {
	if c.lineWidth == w {
		return
	}
	c.lineWidth = w
	c.MarkAsDirty(LineWidthDirty)
}

func (c *Circle) write(buf *common.Buffer, mask common.BitMask) {
	if mask.Has(RadiusDirty) {
		buf.AddByte(radiusAtt)
		buf.AddFloat32(c.radius)
	}
	if mask.Has(FilledDirty) {
		buf.AddByte(filledAtt)
		buf.AddBool(c.filled)
	}
	if mask.Has(LineWidthDirty) {
		buf.AddByte(lineWidthAtt)
		buf.AddFloat32(c.lineWidth)
	}
}

func (c *Circle) read(att byte, buf *common.Buffer) (bool, error) {
	var err error
	switch att {
	case radiusAtt:
		c.radius, err = buf.ReadFloat32()
	case filledAtt:
		c.filled, err = buf.ReadBool()
	case lineWidthAtt:
		c.lineWidth, err = buf.ReadFloat32()
	default:
		return false, nil
	}
	return true, err
}
