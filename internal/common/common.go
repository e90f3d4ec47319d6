package common

import (
	"errors"

	"github.com/golang/snappy"
)

// Attribute ids shared by every sprite block. Base sprite attributes use
// 2..79, subclasses start at 80.
const (
	Terminator        byte = 0
	SpriteIDAttribute byte = 1
)

// Commands carried in a command block.
const (
	CmdSendWorld     byte = 1
	CmdRequestWorld  byte = 2
	CmdClientRunning byte = 3
	CmdInput         byte = 4
)

// Touch phases in an input command.
const (
	InputAdded   byte = 0
	InputMoved   byte = 1
	InputRemoved byte = 2
)

// mDNS service type and websocket route of a downstream server.
const (
	ServiceType   = "_downstream._tcp"
	WebsocketPath = "/ws"
)

const (
	packetHeaderSize = 8
	blockHeaderSize  = 3
	MaxBlockSize     = 0xffff

	// MaxPacketSize bounds a packet once decompressed.
	MaxPacketSize = 32 << 20
)

var (
	ErrBlockTooLarge  = errors.New("block exceeds 65535 bytes")
	ErrPacketTooLarge = errors.New("packet exceeds the size limit")
)

// Transport moves packets between processes. Implementations deliver
// packets in the order they were sent.
type Transport interface {
	Send(packet []byte) error
	Inbox() <-chan []byte
	Close() error
}

// EncodePacket frames body as {seq u32, length u32, body} and compresses
// the result.
func EncodePacket(seq uint32, body []byte) []byte {
	var b Buffer
	b.data = make([]byte, 0, packetHeaderSize+len(body))
	b.AddUint32(seq)
	b.AddUint32(uint32(len(body)))
	b.AddRaw(body)
	return snappy.Encode(nil, b.Bytes())
}

// DecodePacket reverses EncodePacket. Packets claiming more than
// MaxPacketSize bytes are refused before anything is allocated.
func DecodePacket(packet []byte) (uint32, []byte, error) {
	n, err := snappy.DecodedLen(packet)
	if err != nil {
		return 0, nil, errors.Join(ErrBadPacket, err)
	}
	if n > MaxPacketSize {
		return 0, nil, errors.Join(ErrBadPacket, ErrPacketTooLarge)
	}
	raw, err := snappy.Decode(nil, packet)
	if err != nil {
		return 0, nil, errors.Join(ErrBadPacket, err)
	}

	b := NewBuffer(raw)
	seq, err := b.ReadUint32()
	if err != nil {
		return 0, nil, ErrBadPacket
	}
	size, err := b.ReadUint32()
	if err != nil || int(size) != b.Remaining() {
		return seq, nil, ErrBadPacket
	}
	body, _ := b.ReadRaw(int(size))
	return seq, body, nil
}

// BeginBlock writes a block header with a placeholder length and returns
// the offset EndBlock needs.
func (b *Buffer) BeginBlock(blobType byte) int {
	b.AddByte(blobType)
	b.AddUint16(0)
	return len(b.data)
}

// EndBlock patches the length of the block started at start. An oversized
// block is removed from the buffer.
func (b *Buffer) EndBlock(start int) error {
	n := len(b.data) - start
	if n > MaxBlockSize {
		b.data = b.data[:start-blockHeaderSize]
		return ErrBlockTooLarge
	}
	b.data[start-2] = byte(n)
	b.data[start-1] = byte(n >> 8)
	return nil
}

// DropBlock removes a block that turned out to be empty.
func (b *Buffer) DropBlock(start int) {
	b.data = b.data[:start-blockHeaderSize]
}

// NextBlock reads a block header and returns the block type with a buffer
// over its payload. The outer buffer is always positioned at the next
// block afterwards, so a bad payload never desyncs the rest of the body.
func (b *Buffer) NextBlock() (byte, *Buffer, error) {
	t, err := b.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	n, err := b.ReadUint16()
	if err != nil {
		return t, nil, err
	}
	p, err := b.take(int(n))
	if err != nil {
		return t, nil, err
	}
	return t, NewBuffer(p), nil
}
