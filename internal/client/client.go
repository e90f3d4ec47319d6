package client

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/config"
	"github.com/ilnaes/downstream/internal/replica"
	"github.com/ilnaes/downstream/internal/sprite"
	"golang.org/x/time/rate"
)

type State int

const (
	Blank State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "blank"
}

// Client mirrors the server scene. It starts Blank, asking for the world
// until one arrives, then applies diffs. Any gap or decode error sends it
// back to Blank.
type Client struct {
	id     string
	engine *sprite.Engine
	recv   *replica.Receiver
	tr     common.Transport
	log    *slog.Logger

	limiter   *rate.Limiter
	perUpdate int

	state   State
	lastSeq uint32
	frame   int32
	seq     uint32
}

func New(tr common.Transport, cfg config.ClientConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	log = log.With("client", id)
	e := sprite.NewReplica(log)
	return &Client{
		id:        id,
		engine:    e,
		recv:      replica.NewReceiver(e, log),
		tr:        tr,
		log:       log,
		limiter:   rate.NewLimiter(rate.Every(cfg.RequestWorldInterval), 1),
		perUpdate: max(cfg.PacketsPerUpdate, 1),
	}
}

func (c *Client) ID() string             { return c.id }
func (c *Client) Engine() *sprite.Engine { return c.engine }
func (c *Client) State() State           { return c.state }
func (c *Client) Frame() int32           { return c.frame }

// Update drains at most the configured number of packets and asks for the
// world while Blank.
func (c *Client) Update() error {
	inbox := c.tr.Inbox()
drain:
	for i := 0; i < c.perUpdate; i++ {
		select {
		case p := <-inbox:
			c.handle(p)
		default:
			break drain
		}
	}

	if c.state == Blank && c.limiter.Allow() {
		c.log.Debug("requesting world")
		return c.send(replica.RequestWorld(c.id))
	}
	return nil
}

func (c *Client) handle(packet []byte) {
	f, err := replica.Decode(packet)
	if err != nil {
		c.log.Warn("bad packet", "error", err)
		c.setState(Blank)
		return
	}

	switch {
	case f.World:
	case c.state == Blank:
		return
	case f.Seq != c.lastSeq+1:
		c.log.Warn("sequence gap", "seq", f.Seq, "expected", c.lastSeq+1)
		c.setState(Blank)
		return
	}

	c.recv.Apply(f)
	c.lastSeq = f.Seq
	c.frame = f.Number
	if f.Errors > 0 {
		c.setState(Blank)
		return
	}

	if f.World && c.state == Blank {
		c.setState(Running)
		if err := c.send(replica.ClientRunning(c.id, c.frame)); err != nil {
			c.log.Warn("could not acknowledge world", "error", err)
		}
	}
}

func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Info("client state", "from", c.state, "to", s, "frame", c.frame)
	c.state = s
	if s == Blank {
		// ask again right away
		c.limiter = rate.NewLimiter(c.limiter.Limit(), 1)
	}
}

// SendTouch forwards one finger event to the server.
func (c *Client) SendTouch(phase byte, finger int, x, y float32) error {
	return c.send(replica.TouchInput(phase, int32(finger), x, y))
}

func (c *Client) send(cmds ...replica.Command) error {
	c.seq++
	p, err := replica.EncodeCommands(c.seq, cmds...)
	if err != nil {
		return err
	}
	return c.tr.Send(p)
}

func (c *Client) Close() error { return c.tr.Close() }
