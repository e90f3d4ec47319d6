package sprite

import (
	"github.com/ilnaes/downstream/internal/common"
)

// Room a subclass may fill with bulk data in one block. The rest of the
// block size is left for the base attributes.
const blockBudget = 48 << 10

// Codec serializes one layer of a sprite. Read reports whether it owned
// the attribute id. Sent, when set, runs once every block written for a
// flush has made it into the packet.
type Codec struct {
	Write func(buf *common.Buffer, mask common.BitMask)
	Read  func(att byte, buf *common.Buffer) (bool, error)
	Sent  func(mask common.BitMask)
}

// AddCodec pushes a subclass layer in front of the existing ones.
func (s *Sprite) AddCodec(c Codec) {
	s.codecs = append([]Codec{c}, s.codecs...)
}

// WriteAttributesTo emits sprite blocks for every pending change and
// clears them. It returns false when nothing was pending. When a block
// cannot be written the buffer is left as it was and the changes stay
// pending.
func (s *Sprite) WriteAttributesTo(buf *common.Buffer) (bool, error) {
	mask := s.dirty
	s.dirty.Clear()
	s.queued = false
	if mask.IsEmpty() {
		return false, nil
	}
	if err := s.writeBlocks(buf, mask); err != nil {
		s.MarkAsDirty(mask)
		return false, err
	}
	for _, c := range s.codecs {
		if c.Sent != nil {
			c.Sent(mask)
		}
	}
	return true, nil
}

// WriteSnapshotTo emits every attribute without clearing anything.
func (s *Sprite) WriteSnapshotTo(buf *common.Buffer) error {
	var all common.BitMask
	all.Fill()
	s.snapshot = true
	defer func() { s.snapshot = false }()
	return s.writeBlocks(buf, all)
}

// writeBlocks writes the first block for mask, then continuation blocks
// for as long as a codec asks for more. Continuation blocks carry no mask.
func (s *Sprite) writeBlocks(buf *common.Buffer, mask common.BitMask) error {
	mark := buf.Len()
	for s.part = 0; ; s.part++ {
		s.more = false
		start := buf.BeginBlock(s.blobType)
		s.writeAttributes(buf, mask)
		if err := buf.EndBlock(start); err != nil {
			buf.Truncate(mark)
			return &common.EncodeError{SpriteID: s.id, Part: s.part, Err: err}
		}
		if !s.more {
			return nil
		}
		mask.Clear()
	}
}

// continueInNextBlock asks writeBlocks for another block after this one.
func (s *Sprite) continueInNextBlock() { s.more = true }

// writeAttributes emits attribute records for mask without touching the
// dirty bits. Base attributes come first.
func (s *Sprite) writeAttributes(buf *common.Buffer, mask common.BitMask) {
	buf.AddByte(common.SpriteIDAttribute)
	buf.AddUint64(s.id)
	for i := len(s.codecs) - 1; i >= 0; i-- {
		if w := s.codecs[i].Write; w != nil {
			w(buf, mask)
		}
	}
	buf.AddByte(common.Terminator)
}

// ReadAttributesFrom applies attribute records until the terminator.
// Values land directly in the fields; nothing is marked dirty.
func (s *Sprite) ReadAttributesFrom(buf *common.Buffer) error {
	for {
		att, err := buf.ReadByte()
		if err != nil {
			return &common.DecodeError{SpriteID: s.id, Err: err}
		}
		if att == common.Terminator {
			return nil
		}

		owned := false
		for _, c := range s.codecs {
			if c.Read == nil {
				continue
			}
			ok, err := c.Read(att, buf)
			if err != nil {
				return &common.DecodeError{SpriteID: s.id, Attribute: att, Err: err}
			}
			if ok {
				owned = true
				break
			}
		}
		if !owned {
			return &common.DecodeError{SpriteID: s.id, Attribute: att, Err: common.ErrUnknownAttribute}
		}
	}
}

func (s *Sprite) baseCodec() Codec {
	return Codec{Write: s.writeBase, Read: s.readBase}
}

func (s *Sprite) writeBase(buf *common.Buffer, mask common.BitMask) {
	if mask.Has(ParentDirty) {
		buf.AddByte(parentAtt)
		if s.parent != nil {
			buf.AddUint64(s.parent.id)
		} else {
			buf.AddUint64(EmptyID)
		}
	}
	if mask.Has(SizeDirty) {
		buf.AddByte(sizeAtt)
		buf.AddVec3(s.size)
	}
	if mask.Has(PositionDirty) {
		buf.AddByte(positionAtt)
		buf.AddVec3(s.position)
	}
	if mask.Has(RotationDirty) {
		buf.AddByte(rotationAtt)
		buf.AddVec3(s.rotation)
	}
	if mask.Has(ScaleDirty) {
		buf.AddByte(scaleAtt)
		buf.AddVec3(s.scale)
	}
	if mask.Has(CenterDirty) {
		buf.AddByte(centerAtt)
		buf.AddVec3(s.center)
	}
	if mask.Has(ColorDirty) {
		buf.AddByte(colorAtt)
		buf.AddVec3(s.color)
	}
	if mask.Has(OpacityDirty) {
		buf.AddByte(opacityAtt)
		buf.AddFloat32(s.opacity)
	}
	if mask.Has(BlendDirty) {
		buf.AddByte(blendAtt)
		buf.AddByte(byte(s.blend))
	}
	if mask.Has(ClippingDirty) {
		buf.AddByte(clippingAtt)
		buf.AddBool(s.clipping)
	}
	if mask.Has(ShaderDirty) {
		buf.AddByte(shaderAtt)
		buf.AddString(s.shader)
	}
	if mask.Has(FlagsDirty) {
		buf.AddByte(flagsAtt)
		buf.AddUint32(s.flags)
	}
}

func (s *Sprite) readBase(att byte, buf *common.Buffer) (bool, error) {
	var err error
	switch att {
	case parentAtt:
		var pid uint64
		if pid, err = buf.ReadUint64(); err == nil {
			err = s.engine.resolveParent(s, pid)
		}
	case sizeAtt:
		s.size, err = buf.ReadVec3()
	case positionAtt:
		s.position, err = buf.ReadVec3()
	case rotationAtt:
		s.rotation, err = buf.ReadVec3()
	case scaleAtt:
		s.scale, err = buf.ReadVec3()
	case centerAtt:
		s.center, err = buf.ReadVec3()
	case colorAtt:
		s.color, err = buf.ReadVec3()
	case opacityAtt:
		s.opacity, err = buf.ReadFloat32()
	case blendAtt:
		var b byte
		b, err = buf.ReadByte()
		s.blend = BlendMode(b)
	case clippingAtt:
		s.clipping, err = buf.ReadBool()
	case shaderAtt:
		s.shader, err = buf.ReadString()
	case flagsAtt:
		s.flags, err = buf.ReadUint32()
	default:
		return false, nil
	}
	return true, err
}
