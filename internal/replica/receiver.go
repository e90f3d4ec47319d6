package replica

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/sprite"
)

type block struct {
	blobType byte
	payload  *common.Buffer
}

// Frame is a decoded packet whose sprite blocks have not been applied.
type Frame struct {
	Seq      uint32
	Number   int32
	World    bool
	Commands []Command

	// Errors counts blocks that could not be decoded.
	Errors int

	blocks []block
}

// Decode unframes a packet and splits it into blocks. Header and command
// blocks are parsed right away; a bad command is counted and skipped.
func Decode(packet []byte) (*Frame, error) {
	seq, body, err := common.DecodePacket(packet)
	if err != nil {
		return nil, err
	}
	f, err := decodeBody(body)
	if f != nil {
		f.Seq = seq
	}
	return f, err
}

func decodeBody(body []byte) (*Frame, error) {
	f := &Frame{}
	buf := common.NewBuffer(body)
	for buf.Remaining() > 0 {
		t, payload, err := buf.NextBlock()
		if err != nil {
			return nil, errors.Join(common.ErrBadPacket, err)
		}

		switch t {
		case common.HeaderBlob:
			if f.Number, err = payload.ReadInt32(); err != nil {
				f.Errors++
			}
		case common.CommandBlob:
			c, err := readCommand(payload)
			if err != nil {
				f.Errors++
				continue
			}
			if c.Kind == common.CmdSendWorld {
				f.World = true
			}
			f.Commands = append(f.Commands, c)
		default:
			f.blocks = append(f.blocks, block{blobType: t, payload: payload})
		}
	}
	return f, nil
}

// Receiver applies frames to a mirrored engine.
type Receiver struct {
	engine *sprite.Engine
	log    *slog.Logger
}

func NewReceiver(e *sprite.Engine, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{engine: e, log: log}
}

// Apply replays the sprite and delete blocks of f. A world frame first
// clears the scene. Blocks that fail are logged and skipped; the count is
// added to f.Errors.
func (r *Receiver) Apply(f *Frame) {
	if f.World {
		r.engine.Reset()
	}

	for _, b := range f.blocks {
		if err := r.applyBlock(b); err != nil {
			f.Errors++
			r.log.Warn("skipping block", "frame", f.Number, "seq", f.Seq, "blob_type", b.blobType, "error", err)
		}
		r.engine.RetryOrphans()
	}
}

func (r *Receiver) applyBlock(b block) error {
	if b.blobType == common.DeleteBlob {
		return r.applyDelete(b.payload)
	}

	att, err := b.payload.ReadByte()
	if err != nil {
		return err
	}
	if att != common.SpriteIDAttribute {
		return &common.DecodeError{Attribute: att, Err: common.ErrUnknownAttribute}
	}
	id, err := b.payload.ReadUint64()
	if err != nil {
		return &common.DecodeError{Attribute: att, Err: err}
	}

	s, err := r.engine.Create(b.blobType, id)
	if err != nil {
		return &common.DecodeError{SpriteID: id, Err: err}
	}
	return s.ReadAttributesFrom(b.payload)
}

func (r *Receiver) applyDelete(buf *common.Buffer) error {
	n, err := buf.ReadUint32()
	if err != nil {
		return err
	}
	if int(n)*8 > buf.Remaining() {
		return fmt.Errorf("delete block of %d ids: %w", n, common.ErrShortBuffer)
	}
	for i := uint32(0); i < n; i++ {
		id, _ := buf.ReadUint64()
		r.engine.Release(id)
	}
	return nil
}

// Restore loads a snapshot body into e. Used to bring back a saved world
// on startup.
func Restore(e *sprite.Engine, body []byte, log *slog.Logger) error {
	f, err := decodeBody(body)
	if err != nil {
		return err
	}
	NewReceiver(e, log).Apply(f)
	if f.Errors > 0 {
		return fmt.Errorf("restore: %d bad blocks", f.Errors)
	}
	if n := e.Orphans(); n > 0 {
		return fmt.Errorf("restore: %d orphan sprites", n)
	}
	return nil
}
