package touch

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Receiver consumes touch events for one sprite.
type Receiver interface {
	ProcessTouchInfo(Info) bool
}

// Picker hit tests the scene.
type Picker interface {
	Pick(point mgl32.Vec3) Receiver
}

// Manager routes raw finger events to the sprite each finger landed on.
// A finger is bound to at most one receiver from Added until Removed.
type Manager struct {
	picker Picker
	log    *slog.Logger

	dispatcher map[int]Receiver
	start      map[int]mgl32.Vec3
	previous   map[int]mgl32.Vec3

	// Pipe, when set, sees every event after dispatch.
	Pipe func(Info)
}

func NewManager(picker Picker, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		picker:     picker,
		log:        log,
		dispatcher: make(map[int]Receiver),
		start:      make(map[int]mgl32.Vec3),
		previous:   make(map[int]mgl32.Vec3),
	}
}

// Begin starts a finger. A second Begin for a live finger first removes
// it from its old receiver with a passed touch.
func (m *Manager) Begin(finger int, pos mgl32.Vec2, at time.Duration) {
	pt := pos.Vec3(0)
	ti := Info{FingerID: finger, Current: pt, Start: pt, Time: at}

	if prev, ok := m.dispatcher[finger]; ok {
		m.log.Warn("double touch added on the same finger, removing previous tracking", "finger", finger)
		stale := ti
		stale.Start = m.start[finger]
		stale.Phase = Removed
		stale.Passed = true
		stale.Picked = prev
		prev.ProcessTouchInfo(stale)
		delete(m.dispatcher, finger)
		m.pipe(stale)
	}

	m.start[finger] = pt
	m.previous[finger] = pt

	ti.Phase = Added
	if r := m.picker.Pick(pt); r != nil {
		ti.Picked = r
		m.dispatcher[finger] = r
		r.ProcessTouchInfo(ti)
	}
	m.pipe(ti)
}

func (m *Manager) Move(finger int, pos mgl32.Vec2, at time.Duration) {
	start, ok := m.start[finger]
	if !ok {
		return
	}
	pt := pos.Vec3(0)
	ti := Info{
		FingerID: finger,
		Phase:    Moved,
		Current:  pt,
		Start:    start,
		Delta:    pt.Sub(m.previous[finger]),
		Time:     at,
	}
	m.previous[finger] = pt

	if r, ok := m.dispatcher[finger]; ok {
		ti.Picked = r
		r.ProcessTouchInfo(ti)
	}
	m.pipe(ti)
}

func (m *Manager) End(finger int, pos mgl32.Vec2, at time.Duration) {
	start, ok := m.start[finger]
	if !ok {
		return
	}
	pt := pos.Vec3(0)
	ti := Info{
		FingerID: finger,
		Phase:    Removed,
		Current:  pt,
		Start:    start,
		Delta:    pt.Sub(m.previous[finger]),
		Time:     at,
	}

	if r, ok := m.dispatcher[finger]; ok {
		ti.Picked = r
		delete(m.dispatcher, finger)
		r.ProcessTouchInfo(ti)
	}
	delete(m.start, finger)
	delete(m.previous, finger)
	m.pipe(ti)
}

// ClearFingers forgets the given fingers without notifying anyone.
func (m *Manager) ClearFingers(ids []int) {
	for _, id := range ids {
		delete(m.dispatcher, id)
		delete(m.start, id)
		delete(m.previous, id)
	}
}

// Active returns the number of fingers bound to a receiver.
func (m *Manager) Active() int { return len(m.dispatcher) }

func (m *Manager) pipe(ti Info) {
	if m.Pipe != nil {
		m.Pipe(ti)
	}
}
