package sprite

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/common"
)

var CanvasBlob = common.BlobType("canvas")

var (
	CanvasClearDirty   = InternalADirty
	CanvasStrokesDirty = InternalBDirty
	CanvasBrushDirty   = InternalCDirty
)

const (
	canvasClearAtt = firstSubclassAtt + iota
	canvasStrokesAtt
	canvasBrushAtt
)

const MaxStrokePoints = 1024

type Stroke struct {
	Color  mgl32.Vec3
	Width  float32
	Points []mgl32.Vec2
}

// Canvas is a drawing surface. Strokes are shipped once each, as many per
// update as fit in one block, and replayed by the renderer.
type Canvas struct {
	*Sprite
	strokes    []Stroke
	sent       int // strokes the clients hold
	cursor     int // end of the strokes written by the current flush
	brushColor mgl32.Vec3
	brushSize  float32
}

func (e *Engine) NewCanvas(parent *Sprite, w, h float32) *Canvas {
	c, _ := As[*Canvas](e.spawn(CanvasBlob, parent))
	c.SetSize(w, h)
	return c
}

func wrapCanvas(s *Sprite) {
	c := &Canvas{Sprite: s, brushColor: mgl32.Vec3{0, 0, 0}, brushSize: 4}
	s.self = c
	s.AddCodec(Codec{Write: c.write, Read: c.read, Sent: c.written})
}

func (c *Canvas) Strokes() []Stroke      { return c.strokes }
func (c *Canvas) BrushColor() mgl32.Vec3 { return c.brushColor }
func (c *Canvas) BrushSize() float32     { return c.brushSize }

// Pending returns the number of strokes not sent yet.
func (c *Canvas) Pending() int { return len(c.strokes) - c.sent }

func (c *Canvas) SetBrush(color mgl32.Vec3, size float32) {
	if c.brushColor == color && c.brushSize == size {
		return
	}
	c.brushColor = color
	c.brushSize = size
	c.MarkAsDirty(CanvasBrushDirty)
}

// Draw appends a stroke with the current brush. Points beyond
// MaxStrokePoints are dropped.
func (c *Canvas) Draw(points ...mgl32.Vec2) {
	if len(points) == 0 {
		return
	}
	if len(points) > MaxStrokePoints {
		points = points[:MaxStrokePoints]
	}
	c.strokes = append(c.strokes, Stroke{
		Color:  c.brushColor,
		Width:  c.brushSize,
		Points: append([]mgl32.Vec2(nil), points...),
	})
	c.MarkAsDirty(CanvasStrokesDirty)
}

func (c *Canvas) Clear() {
	c.strokes = nil
	c.sent = 0
	c.MarkAsDirty(CanvasClearDirty)
}

func (c *Canvas) write(buf *common.Buffer, mask common.BitMask) {
	if c.part > 0 {
		if c.snapshot && c.cursor < len(c.strokes) {
			c.writeBatch(buf)
		}
		return
	}

	if mask.Has(CanvasBrushDirty) {
		buf.AddByte(canvasBrushAtt)
		buf.AddVec3(c.brushColor)
		buf.AddFloat32(c.brushSize)
	}

	c.cursor = c.sent
	switch {
	case c.snapshot || mask.Has(CanvasClearDirty):
		buf.AddByte(canvasClearAtt)
		c.cursor = 0
	case !mask.Has(CanvasStrokesDirty):
		return
	}
	c.writeBatch(buf)
}

// writeBatch writes strokes from the cursor until the block budget is
// spent. Snapshots continue in further blocks; live updates leave the rest
// for the next flush.
func (c *Canvas) writeBatch(buf *common.Buffer) {
	end, size := c.cursor, 0
	for end < len(c.strokes) {
		n := strokeSize(c.strokes[end])
		if end > c.cursor && size+n > blockBudget {
			break
		}
		size += n
		end++
	}
	writeStrokes(buf, c.strokes[c.cursor:end])
	c.cursor = end
	if c.snapshot && end < len(c.strokes) {
		c.continueInNextBlock()
	}
}

func (c *Canvas) written(mask common.BitMask) {
	if !mask.Has(CanvasStrokesDirty) && !mask.Has(CanvasClearDirty) {
		return
	}
	c.sent = c.cursor
	if c.sent < len(c.strokes) {
		c.MarkAsDirty(CanvasStrokesDirty)
	}
}

func strokeSize(s Stroke) int { return 12 + 4 + 2 + 8*len(s.Points) }

func writeStrokes(buf *common.Buffer, strokes []Stroke) {
	if len(strokes) == 0 {
		return
	}
	buf.AddByte(canvasStrokesAtt)
	buf.AddUint16(uint16(len(strokes)))
	for _, s := range strokes {
		buf.AddVec3(s.Color)
		buf.AddFloat32(s.Width)
		buf.AddUint16(uint16(len(s.Points)))
		for _, p := range s.Points {
			buf.AddVec2(p)
		}
	}
}

func (c *Canvas) read(att byte, buf *common.Buffer) (bool, error) {
	switch att {
	case canvasClearAtt:
		c.strokes = nil
		c.sent, c.cursor = 0, 0
	case canvasBrushAtt:
		color, err := buf.ReadVec3()
		if err != nil {
			return true, err
		}
		size, err := buf.ReadFloat32()
		if err != nil {
			return true, err
		}
		c.brushColor, c.brushSize = color, size
	case canvasStrokesAtt:
		strokes, err := readStrokes(buf)
		if err != nil {
			return true, err
		}
		c.strokes = append(c.strokes, strokes...)
		c.sent = len(c.strokes)
	default:
		return false, nil
	}
	return true, nil
}

func readStrokes(buf *common.Buffer) ([]Stroke, error) {
	n, err := buf.ReadUint16()
	if err != nil {
		return nil, err
	}
	out := make([]Stroke, 0, n)
	for i := 0; i < int(n); i++ {
		var s Stroke
		if s.Color, err = buf.ReadVec3(); err != nil {
			return nil, err
		}
		if s.Width, err = buf.ReadFloat32(); err != nil {
			return nil, err
		}
		np, err := buf.ReadUint16()
		if err != nil {
			return nil, err
		}
		if np > MaxStrokePoints || int(np)*8 > buf.Remaining() {
			return nil, common.ErrShortBuffer
		}
		s.Points = make([]mgl32.Vec2, np)
		for j := range s.Points {
			if s.Points[j], err = buf.ReadVec2(); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	return out, nil
}
