package replica

import (
	"errors"
	"log/slog"

	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/sprite"
)

// Ids per delete block, keeping it under the block size limit.
const maxDeletesPerBlock = (common.MaxBlockSize - 4) / 8

type ServerState int

const (
	Running ServerState = iota
	SendingWorld
)

func (s ServerState) String() string {
	if s == SendingWorld {
		return "send-world"
	}
	return "running"
}

// Sender turns the pending changes of an engine into packets, one per
// tick.
type Sender struct {
	engine *sprite.Engine
	log    *slog.Logger

	state ServerState
	seq   uint32
	frame int32
}

func NewSender(e *sprite.Engine, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{engine: e, log: log}
}

func (s *Sender) State() ServerState { return s.state }
func (s *Sender) Frame() int32       { return s.frame }

// RequestWorld makes the next tick send a full world.
func (s *Sender) RequestWorld() {
	if s.state != SendingWorld {
		s.log.Info("world requested")
	}
	s.state = SendingWorld
}

// Tick builds the packet for the next frame. Every tick produces a packet
// so clients can detect sequence gaps.
func (s *Sender) Tick() []byte {
	s.frame++
	var buf common.Buffer
	s.writeHeader(&buf)

	if s.state == SendingWorld {
		s.writeWorld(&buf)
		s.state = Running
	} else {
		s.writeDiff(&buf)
	}

	s.seq++
	return common.EncodePacket(s.seq, buf.Bytes())
}

// Snapshot returns a world body without consuming any pending change. A
// sprite that cannot be encoded fails the whole snapshot.
func (s *Sender) Snapshot() ([]byte, error) {
	var buf common.Buffer
	s.writeHeader(&buf)
	if err := writeCommand(&buf, SendWorld()); err != nil {
		return nil, err
	}
	var errs []error
	s.engine.Walk(func(sp *sprite.Sprite) {
		if err := sp.WriteSnapshotTo(&buf); err != nil {
			errs = append(errs, err)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Sender) writeHeader(buf *common.Buffer) {
	start := buf.BeginBlock(common.HeaderBlob)
	buf.AddInt32(s.frame)
	buf.EndBlock(start)
}

func (s *Sender) writeWorld(buf *common.Buffer) {
	writeCommand(buf, SendWorld())

	// the world replaces whatever the clients hold
	s.engine.TakeDeleted()
	s.engine.MarkTreeAsDirty()
	s.engine.TakeDirty()

	n := 0
	s.engine.Walk(func(sp *sprite.Sprite) {
		s.writeSprite(buf, sp)
		n++
	})
	s.log.Info("sent world", "frame", s.frame, "sprites", n)
}

func (s *Sender) writeDiff(buf *common.Buffer) {
	deleted := s.engine.TakeDeleted()
	for len(deleted) > 0 {
		chunk := deleted[:min(len(deleted), maxDeletesPerBlock)]
		deleted = deleted[len(chunk):]

		start := buf.BeginBlock(common.DeleteBlob)
		buf.AddUint32(uint32(len(chunk)))
		for _, id := range chunk {
			buf.AddUint64(id)
		}
		if err := buf.EndBlock(start); err != nil {
			s.log.Warn("delete block dropped", "count", len(chunk), "error", err)
		}
	}

	for _, sp := range s.engine.TakeDirty() {
		s.writeSprite(buf, sp)
	}
}

// writeSprite flushes sp into buf. A sprite that does not fit keeps its
// changes and is tried again next tick.
func (s *Sender) writeSprite(buf *common.Buffer, sp *sprite.Sprite) {
	if _, err := sp.WriteAttributesTo(buf); err != nil {
		s.log.Error("sprite not sent", "sprite_id", sp.ID(), "frame", s.frame, "error", err)
	}
}
