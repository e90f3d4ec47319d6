package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Buffer is a positional binary codec. Values are read back in exactly the
// order they were added; nothing in the stream describes its own type.
type Buffer struct {
	data []byte
	pos  int
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the written data.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Len() int { return len(b.data) }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// Truncate discards everything written after the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < len(b.data) {
		b.data = b.data[:n]
	}
}

func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.pos = 0
}

func (b *Buffer) AddByte(v byte) { b.data = append(b.data, v) }

func (b *Buffer) AddBool(v bool) {
	if v {
		b.AddByte(1)
	} else {
		b.AddByte(0)
	}
}

func (b *Buffer) AddUint16(v uint16) { b.data = binary.LittleEndian.AppendUint16(b.data, v) }
func (b *Buffer) AddUint32(v uint32) { b.data = binary.LittleEndian.AppendUint32(b.data, v) }
func (b *Buffer) AddUint64(v uint64) { b.data = binary.LittleEndian.AppendUint64(b.data, v) }
func (b *Buffer) AddInt32(v int32)   { b.AddUint32(uint32(v)) }

func (b *Buffer) AddFloat32(v float32) { b.AddUint32(math.Float32bits(v)) }
func (b *Buffer) AddFloat64(v float64) { b.AddUint64(math.Float64bits(v)) }

func (b *Buffer) AddString(s string) {
	b.AddUint32(uint32(len(s)))
	b.data = append(b.data, s...)
}

// AddBlob writes a length prefixed byte slice.
func (b *Buffer) AddBlob(p []byte) {
	b.AddUint32(uint32(len(p)))
	b.data = append(b.data, p...)
}

// AddRaw appends p without a length prefix.
func (b *Buffer) AddRaw(p []byte) { b.data = append(b.data, p...) }

func (b *Buffer) AddVec2(v mgl32.Vec2) {
	b.AddFloat32(v[0])
	b.AddFloat32(v[1])
}

func (b *Buffer) AddVec3(v mgl32.Vec3) {
	for _, f := range v {
		b.AddFloat32(f)
	}
}

func (b *Buffer) AddVec4(v mgl32.Vec4) {
	for _, f := range v {
		b.AddFloat32(f)
	}
}

func (b *Buffer) take(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, ErrShortBuffer
	}
	p := b.data[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

// Skip advances the read position by n bytes.
func (b *Buffer) Skip(n int) error {
	_, err := b.take(n)
	return err
}

func (b *Buffer) ReadByte() (byte, error) {
	p, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadByte()
	return v != 0, err
}

func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

func (b *Buffer) ReadString() (string, error) {
	p, err := b.ReadBlob()
	return string(p), err
}

// ReadBlob returns a copy of a length prefixed byte slice.
func (b *Buffer) ReadBlob() ([]byte, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return nil, err
	}
	p, err := b.take(int(n))
	if err != nil {
		return nil, err
	}
	return append([]byte{}, p...), nil
}

// ReadRaw returns the next n bytes without copying.
func (b *Buffer) ReadRaw(n int) ([]byte, error) { return b.take(n) }

func (b *Buffer) ReadVec2() (mgl32.Vec2, error) {
	var v mgl32.Vec2
	for i := range v {
		f, err := b.ReadFloat32()
		if err != nil {
			return mgl32.Vec2{}, err
		}
		v[i] = f
	}
	return v, nil
}

func (b *Buffer) ReadVec3() (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := b.ReadFloat32()
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

func (b *Buffer) ReadVec4() (mgl32.Vec4, error) {
	var v mgl32.Vec4
	for i := range v {
		f, err := b.ReadFloat32()
		if err != nil {
			return mgl32.Vec4{}, err
		}
		v[i] = f
	}
	return v, nil
}
