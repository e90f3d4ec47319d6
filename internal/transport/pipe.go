package transport

import (
	"errors"
	"sync"

	"github.com/ilnaes/downstream/internal/common"
)

var (
	ErrClosed = errors.New("transport closed")
	ErrFull   = errors.New("transport buffer full")
)

const DefaultBuffer = 256

type pipeEnd struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
	peer *pipeEnd
	once sync.Once
}

// Pipe returns two connected in-memory transports. Send never blocks: a
// full buffer drops the packet with ErrFull, which the receiving side sees
// as a sequence gap.
func Pipe(buffer int) (common.Transport, common.Transport) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	a := &pipeEnd{in: ba, out: ab, done: make(chan struct{})}
	b := &pipeEnd{in: ab, out: ba, done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeEnd) Send(packet []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	case <-p.peer.done:
		return ErrClosed
	default:
	}

	cp := append([]byte(nil), packet...)
	select {
	case p.out <- cp:
		return nil
	default:
		return ErrFull
	}
}

func (p *pipeEnd) Inbox() <-chan []byte { return p.in }

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
