package sprite

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/touch"
)

var SpriteBlob = common.BlobType("sprite")

// Engine owns every live sprite of one side of the connection.
type Engine struct {
	log      *slog.Logger
	touchCfg touch.Config

	sprites map[ID]*Sprite
	root    *Sprite
	nextID  ID

	dirty   []*Sprite
	deleted []ID
	orphans map[ID]ID

	factory map[byte]func(*Sprite)
	touches *touch.Manager

	// replica engines mirror a remote scene and never queue changes
	replica bool
}

// NewEngine creates the authoritative scene of a server.
func NewEngine(log *slog.Logger, touchCfg touch.Config) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		log:      log,
		touchCfg: touchCfg,
		sprites:  make(map[ID]*Sprite),
		nextID:   EmptyID + 1,
		orphans:  make(map[ID]ID),
		factory: map[byte]func(*Sprite){
			SpriteBlob: nil,
			CircleBlob: wrapCircle,
			VideoBlob:  wrapVideo,
			CanvasBlob: wrapCanvas,
			TextBlob:   wrapText,
		},
	}
	e.root = newSprite(e, SpriteBlob)
	e.root.id = RootID
	e.sprites[RootID] = e.root
	e.touches = touch.NewManager(e, log)
	return e
}

// NewReplica creates the mirrored scene of a client.
func NewReplica(log *slog.Logger) *Engine {
	e := NewEngine(log, touch.DefaultConfig())
	e.replica = true
	return e
}

func (e *Engine) Root() *Sprite             { return e.root }
func (e *Engine) Touches() *touch.Manager   { return e.touches }
func (e *Engine) TouchConfig() touch.Config { return e.touchCfg }
func (e *Engine) Len() int                  { return len(e.sprites) - 1 }
func (e *Engine) Logger() *slog.Logger      { return e.log }

func (e *Engine) Lookup(id ID) (*Sprite, bool) {
	s, ok := e.sprites[id]
	return s, ok
}

// RegisterFactory binds a blob type to the wrapper that turns a bare
// sprite into its subclass.
func (e *Engine) RegisterFactory(blobType byte, wrap func(*Sprite)) {
	e.factory[blobType] = wrap
}

// NewSprite creates a plain sprite under parent, or under the root when
// parent is nil.
func (e *Engine) NewSprite(parent *Sprite) *Sprite {
	return e.spawn(SpriteBlob, parent)
}

func (e *Engine) spawn(blobType byte, parent *Sprite) *Sprite {
	s := newSprite(e, blobType)
	s.id = e.nextID
	e.nextID++
	e.sprites[s.id] = s

	if wrap := e.factory[blobType]; wrap != nil {
		wrap(s)
	}
	if parent == nil {
		parent = e.root
	}
	if err := parent.AddChild(s); err != nil {
		e.log.Warn("parent refused new sprite, using root", "sprite_id", s.id, "parent_id", parent.id, "error", err)
		e.root.AddChild(s)
	}

	var all common.BitMask
	all.Fill()
	s.MarkAsDirty(all)
	return s
}

// Create returns the sprite with id, building it from the factory when it
// is new. Replicas use it for incoming blocks.
func (e *Engine) Create(blobType byte, id ID) (*Sprite, error) {
	if s, ok := e.sprites[id]; ok {
		if s.blobType != blobType {
			return nil, fmt.Errorf("sprite %d is blob type %d, got %d: %w", id, s.blobType, blobType, common.ErrUnknownBlobType)
		}
		return s, nil
	}
	wrap, ok := e.factory[blobType]
	if !ok || id == EmptyID {
		return nil, fmt.Errorf("blob type %d: %w", blobType, common.ErrUnknownBlobType)
	}

	s := newSprite(e, blobType)
	s.id = id
	e.sprites[id] = s
	if wrap != nil {
		wrap(s)
	}
	if id >= e.nextID && id != RootID {
		e.nextID = id + 1
	}
	return s, nil
}

// Release destroys the sprite with id. Unknown ids are ignored.
func (e *Engine) Release(id ID) {
	if s, ok := e.sprites[id]; ok {
		s.Release()
	}
	delete(e.orphans, id)
}

// Reset releases every sprite, attached or not, and forgets pending
// changes.
func (e *Engine) Reset() {
	for _, s := range e.Root().Children() {
		s.releaseTree()
	}
	e.root.children = nil
	for id, s := range e.sprites {
		if id != RootID {
			s.releaseTree()
		}
	}
	clear(e.orphans)
	e.dirty = e.dirty[:0]
	e.deleted = nil
}

func (e *Engine) queueDirty(s *Sprite) {
	if e.replica {
		return
	}
	e.dirty = append(e.dirty, s)
}

func (e *Engine) recordDeleted(id ID) {
	if e.replica {
		return
	}
	e.deleted = append(e.deleted, id)
}

func (e *Engine) unregister(s *Sprite) {
	delete(e.sprites, s.id)
	delete(e.orphans, s.id)
}

// TakeDirty hands over the sprites with pending changes in the order they
// first changed.
func (e *Engine) TakeDirty() []*Sprite {
	out := e.dirty[:0:0]
	for _, s := range e.dirty {
		if !s.released {
			out = append(out, s)
		}
	}
	e.dirty = e.dirty[:0]
	return out
}

func (e *Engine) TakeDeleted() []ID {
	out := e.deleted
	e.deleted = nil
	return out
}

// HasChanges reports whether a diff would carry anything.
func (e *Engine) HasChanges() bool { return len(e.dirty) > 0 || len(e.deleted) > 0 }

// Walk visits every sprite below the root, parents before children.
func (e *Engine) Walk(fn func(*Sprite)) {
	var visit func(*Sprite)
	visit = func(s *Sprite) {
		for _, c := range s.children {
			fn(c)
			visit(c)
		}
	}
	visit(e.root)
}

// MarkTreeAsDirty marks the whole scene for resending.
func (e *Engine) MarkTreeAsDirty() {
	e.Walk(func(s *Sprite) {
		var all common.BitMask
		all.Fill()
		s.MarkAsDirty(all)
	})
}

// resolveParent applies a replicated parent id. A parent that has not
// arrived yet leaves the sprite queued as an orphan.
func (e *Engine) resolveParent(s *Sprite, pid ID) error {
	switch {
	case pid == EmptyID:
		s.detach()
		delete(e.orphans, s.id)
		return nil
	case pid == s.id:
		return ErrCycle
	}

	p, ok := e.sprites[pid]
	if !ok {
		e.orphans[s.id] = pid
		e.log.Debug("orphan sprite", "error", &common.OrphanSpriteError{SpriteID: s.id, ParentID: pid})
		return nil
	}
	delete(e.orphans, s.id)
	return e.attach(p, s)
}

func (e *Engine) attach(p, s *Sprite) error {
	if s.parent == p {
		return nil
	}
	for a := p; a != nil; a = a.parent {
		if a == s {
			return ErrCycle
		}
	}
	s.detach()
	s.parent = p
	p.children = append(p.children, s)
	return nil
}

// RetryOrphans attaches queued orphans whose parent exists now and
// returns how many are still waiting.
func (e *Engine) RetryOrphans() int {
	if len(e.orphans) == 0 {
		return 0
	}
	ids := make([]ID, 0, len(e.orphans))
	for id := range e.orphans {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		s, ok := e.sprites[id]
		if !ok {
			delete(e.orphans, id)
			continue
		}
		p, ok := e.sprites[e.orphans[id]]
		if !ok {
			continue
		}
		delete(e.orphans, id)
		if err := e.attach(p, s); err != nil {
			e.log.Warn("could not attach orphan", "sprite_id", id, "error", err)
		}
	}
	return len(e.orphans)
}

func (e *Engine) Orphans() int { return len(e.orphans) }

// Pick returns the topmost visible, enabled sprite under point that
// listens to touches.
func (e *Engine) Pick(point mgl32.Vec3) touch.Receiver {
	if s := e.pick(e.root, point, func(s *Sprite) bool { return s.process != nil }); s != nil {
		return s
	}
	return nil
}

// DragDestination returns the topmost drop target under point, skipping
// dragged and its subtree.
func (e *Engine) DragDestination(point mgl32.Vec3, dragged touch.Target) touch.Target {
	s := e.pick(e.root, point, func(s *Sprite) bool {
		if !s.dragTarget {
			return false
		}
		for a := s; a != nil; a = a.parent {
			if touch.Target(a) == dragged {
				return false
			}
		}
		return true
	})
	if s == nil {
		return nil
	}
	return s
}

func (e *Engine) pick(s *Sprite, point mgl32.Vec3, accept func(*Sprite) bool) *Sprite {
	if !s.Visible() || !s.Enabled() {
		return nil
	}
	for i := len(s.children) - 1; i >= 0; i-- {
		if hit := e.pick(s.children[i], point, accept); hit != nil {
			return hit
		}
	}
	if s != e.root && accept(s) && s.Contains(point) {
		return s
	}
	return nil
}

func (e *Engine) ClearFingers(ids []int) { e.touches.ClearFingers(ids) }

// Update runs the touch timers of every sprite.
func (e *Engine) Update(now time.Duration) {
	var live []*Sprite
	e.Walk(func(s *Sprite) {
		if s.process != nil {
			live = append(live, s)
		}
	})
	for _, s := range live {
		if !s.released {
			s.process.Update(now)
		}
	}
}
