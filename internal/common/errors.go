package common

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer      = errors.New("buffer too short")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrUnknownBlobType  = errors.New("unknown blob type")
	ErrBadPacket        = errors.New("malformed packet")
)

// DecodeError reports a sprite update that could not be applied.
type DecodeError struct {
	SpriteID  uint64
	Attribute byte
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode sprite %d attribute %d: %v", e.SpriteID, e.Attribute, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a sprite block that did not fit in a packet. Part
// counts the continuation blocks written before it.
type EncodeError struct {
	SpriteID uint64
	Part     int
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode sprite %d block %d: %v", e.SpriteID, e.Part, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// OrphanSpriteError reports a sprite whose parent has not arrived yet.
type OrphanSpriteError struct {
	SpriteID uint64
	ParentID uint64
}

func (e *OrphanSpriteError) Error() string {
	return fmt.Sprintf("sprite %d waiting for parent %d", e.SpriteID, e.ParentID)
}

// CapacityExceededError is returned when a registry manifest outgrows its
// id space.
type CapacityExceededError struct {
	Kind  string
	Limit int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("too many %ss (limit %d)", e.Kind, e.Limit)
}
