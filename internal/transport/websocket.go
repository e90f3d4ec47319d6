package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ilnaes/downstream/internal/common"
)

const (
	// time allowed to write one message to the peer
	writeWait = 10 * time.Second

	// packets queued for a peer before it counts as stalled
	sendQueue = 64
)

var ErrSlowPeer = errors.New("peer is not reading")

// Conn is a transport over one websocket connection. Packets travel as
// binary messages. Only the write pump writes to the socket, so Send never
// waits on the network.
type Conn struct {
	ws     *websocket.Conn
	log    *slog.Logger
	inbox  chan []byte
	outbox chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewConn wraps an established websocket and starts its pumps. Messages
// longer than readLimit close the connection.
func NewConn(ws *websocket.Conn, readLimit int64, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	ws.SetReadLimit(readLimit)
	c := &Conn{
		ws:     ws,
		log:    log,
		inbox:  make(chan []byte, DefaultBuffer),
		outbox: make(chan []byte, sendQueue),
		done:   make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c
}

// Dial connects to a downstream server, authenticating with a bearer
// token when one is given.
func Dial(ctx context.Context, url, token string, log *slog.Logger) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return NewConn(ws, common.MaxPacketSize, log), nil
}

func (c *Conn) readPump() {
	defer c.Close()
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Info("websocket closed", "remote", c.ws.RemoteAddr().String(), "error", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		select {
		case c.inbox <- msg:
		case <-c.done:
			return
		default:
			c.log.Warn("inbox full, dropping packet", "remote", c.ws.RemoteAddr().String())
		}
	}
}

func (c *Conn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case p := <-c.outbox:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
				c.log.Info("websocket write failed", "remote", c.ws.RemoteAddr().String(), "error", err)
				c.Close()
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues one packet. A peer that lets the queue fill up is
// disconnected. It is safe for concurrent use.
func (c *Conn) Send(packet []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outbox <- packet:
		return nil
	default:
		c.log.Warn("peer stalled, closing", "remote", c.ws.RemoteAddr().String(), "queued", len(c.outbox))
		c.Close()
		return ErrSlowPeer
	}
}

func (c *Conn) Inbox() <-chan []byte { return c.inbox }

// Done is closed once the connection is shutting down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close stops both pumps. The socket itself is closed by the write pump
// once any write in flight has finished or timed out.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
