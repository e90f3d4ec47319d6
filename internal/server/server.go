package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/config"
	"github.com/ilnaes/downstream/internal/replica"
	"github.com/ilnaes/downstream/internal/sprite"
	"github.com/ilnaes/downstream/internal/store"
	"github.com/ilnaes/downstream/internal/work"
)

// Server owns the authoritative scene and ships it to every client once
// per tick.
type Server struct {
	cfg    *config.Config
	log    *slog.Logger
	engine *sprite.Engine
	sender *replica.Sender
	link   common.Transport
	work   *work.Manager
	store  store.Store

	// Update runs once per tick before the scene is sent.
	Update func(now time.Duration)

	start        time.Time
	lastSnapshot time.Duration
	saving       bool

	inputs []replica.Input // touches from the http bridge
	cl     sync.Mutex      // protects inputs

	acks map[string]int32 // client -> last acknowledged world frame
	al   sync.Mutex       // protects acks

	frame     atomic.Int32
	sprites   atomic.Int64
	bytesSent atomic.Uint64
}

// New creates a server sending on link. st may be nil.
func New(cfg *config.Config, engine *sprite.Engine, link common.Transport, st store.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		log:    log,
		engine: engine,
		sender: replica.NewSender(engine, log),
		link:   link,
		work:   work.New(cfg.Work.PoolSize, cfg.Work.QueueSize, cfg.Work.ResultsPerUpdate, log),
		store:  st,
		start:  time.Now(),
		acks:   make(map[string]int32),
	}
}

func (s *Server) Engine() *sprite.Engine  { return s.engine }
func (s *Server) Sender() *replica.Sender { return s.sender }

// Restore loads the saved world of the configured scene, if any.
func (s *Server) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snap, err := s.store.Load(ctx, s.cfg.Store.Scene)
	if err != nil || snap == nil {
		return err
	}
	if err := replica.Restore(s.engine, snap.Body, s.log); err != nil {
		return err
	}
	s.log.Info("restored world", "scene", snap.Scene, "frame", snap.Frame, "sprites", s.engine.Len(), "saved_at", snap.SavedAt)
	return nil
}

// Loop ticks at the configured rate until ctx ends.
func (s *Server) Loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()
	defer s.work.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(time.Since(s.start))
		}
	}
}

// Tick runs one frame: finished work, inbound commands, touches, the app
// update, touch timers, then the outgoing packet.
func (s *Server) Tick(now time.Duration) {
	s.work.Update()
	s.drainLink(now)

	s.cl.Lock()
	tmp := s.inputs
	s.inputs = nil
	s.cl.Unlock()
	for _, in := range tmp {
		s.handleInput(in, now)
	}

	if s.Update != nil {
		s.Update(now)
	}
	s.engine.Update(now)

	packet := s.sender.Tick()
	if err := s.link.Send(packet); err != nil {
		s.log.Warn("send failed", "frame", s.sender.Frame(), "error", err)
	}
	s.bytesSent.Add(uint64(len(packet)))
	s.frame.Store(s.sender.Frame())
	s.sprites.Store(int64(s.engine.Len()))

	s.maybeSnapshot(now)
}

func (s *Server) drainLink(now time.Duration) {
	inbox := s.link.Inbox()
	for {
		select {
		case p := <-inbox:
			s.handlePacket(p, now)
		default:
			return
		}
	}
}

func (s *Server) handlePacket(p []byte, now time.Duration) {
	f, err := replica.Decode(p)
	if err != nil {
		s.log.Warn("bad client packet", "error", err)
		return
	}
	for _, c := range f.Commands {
		switch c.Kind {
		case common.CmdRequestWorld:
			s.log.Info("client wants world", "client", c.Client)
			s.sender.RequestWorld()
		case common.CmdClientRunning:
			s.log.Debug("client running", "frame", c.Frame)
			s.al.Lock()
			s.acks[c.Client] = c.Frame
			s.al.Unlock()
		case common.CmdInput:
			s.handleInput(c.Input, now)
		default:
			s.log.Warn("unexpected command", "command", c.String())
		}
	}
}

// QueueInput hands a touch to the next tick. Safe for concurrent use.
func (s *Server) QueueInput(in replica.Input) {
	s.cl.Lock()
	s.inputs = append(s.inputs, in)
	s.cl.Unlock()
}

func (s *Server) handleInput(in replica.Input, now time.Duration) {
	tm := s.engine.Touches()
	pos := mgl32.Vec2{in.X, in.Y}
	switch in.Phase {
	case common.InputAdded:
		tm.Begin(int(in.Finger), pos, now)
	case common.InputMoved:
		tm.Move(int(in.Finger), pos, now)
	case common.InputRemoved:
		tm.End(int(in.Finger), pos, now)
	default:
		s.log.Warn("unknown touch phase", "phase", in.Phase, "finger", in.Finger)
	}
}

func (s *Server) maybeSnapshot(now time.Duration) {
	if s.store == nil || s.saving || now-s.lastSnapshot < s.cfg.Store.SnapshotInterval {
		return
	}

	body, err := s.sender.Snapshot()
	if err != nil {
		s.log.Error("snapshot not encoded", "error", err)
		s.lastSnapshot = now
		return
	}
	snap := &store.Snapshot{
		Scene:   s.cfg.Store.Scene,
		Frame:   s.sender.Frame(),
		Sprites: s.engine.Len(),
		Body:    body,
		SavedAt: time.Now(),
	}
	err = s.work.Send(work.Request{
		Name: "snapshot",
		Do: func(ctx context.Context) (any, error) {
			return nil, s.store.Save(ctx, snap)
		},
		Done: func(any, error) { s.saving = false },
	})
	if err != nil {
		s.log.Warn("snapshot skipped", "error", err)
		return
	}
	s.saving = true
	s.lastSnapshot = now
}
