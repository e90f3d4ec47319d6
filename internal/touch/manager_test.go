package touch

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type recorder struct{ infos []Info }

func (r *recorder) ProcessTouchInfo(ti Info) bool {
	r.infos = append(r.infos, ti)
	return true
}

// halfPicker picks its receiver on the left half of the screen.
type halfPicker struct{ r Receiver }

func (h halfPicker) Pick(p mgl32.Vec3) Receiver {
	if p[0] < 100 {
		return h.r
	}
	return nil
}

func TestManagerRoutesFinger(t *testing.T) {
	r := &recorder{}
	m := NewManager(halfPicker{r}, nil)
	var piped int
	m.Pipe = func(Info) { piped++ }

	m.Begin(1, mgl32.Vec2{10, 10}, 0)
	// crossing out of the receiver keeps the binding
	m.Move(1, mgl32.Vec2{150, 10}, ms(10))
	m.End(1, mgl32.Vec2{150, 20}, ms(20))

	if len(r.infos) != 3 || piped != 3 {
		t.Fatalf("receiver got %d, pipe %d", len(r.infos), piped)
	}
	moved := r.infos[1]
	if moved.Phase != Moved || moved.Start != (mgl32.Vec3{10, 10, 0}) || moved.Delta != (mgl32.Vec3{140, 0, 0}) {
		t.Errorf("moved = %+v", moved)
	}
	if r.infos[2].Delta != (mgl32.Vec3{0, 10, 0}) || r.infos[2].Picked != Receiver(r) {
		t.Errorf("removed = %+v", r.infos[2])
	}
	if m.Active() != 0 {
		t.Errorf("%d fingers still bound", m.Active())
	}
}

func TestManagerMissStillPipes(t *testing.T) {
	r := &recorder{}
	m := NewManager(halfPicker{r}, nil)
	var piped []Phase
	m.Pipe = func(ti Info) { piped = append(piped, ti.Phase) }

	m.Begin(2, mgl32.Vec2{500, 0}, 0)
	m.Move(2, mgl32.Vec2{50, 0}, ms(5))
	m.End(2, mgl32.Vec2{50, 0}, ms(10))
	if len(r.infos) != 0 || len(piped) != 3 {
		t.Errorf("receiver %d pipe %v", len(r.infos), piped)
	}

	// events for unknown fingers are dropped
	m.Move(9, mgl32.Vec2{}, 0)
	m.End(9, mgl32.Vec2{}, 0)
	if len(piped) != 3 {
		t.Error("unknown finger reached the pipe")
	}
}

func TestManagerDoubleBegin(t *testing.T) {
	r := &recorder{}
	m := NewManager(halfPicker{r}, nil)

	m.Begin(1, mgl32.Vec2{10, 10}, 0)
	m.Begin(1, mgl32.Vec2{20, 20}, ms(5))

	if len(r.infos) != 3 {
		t.Fatalf("receiver got %d events", len(r.infos))
	}
	stale := r.infos[1]
	if stale.Phase != Removed || !stale.Passed || stale.Start != (mgl32.Vec3{10, 10, 0}) {
		t.Errorf("stale removal = %+v", stale)
	}
	if r.infos[2].Phase != Added || m.Active() != 1 {
		t.Errorf("restart = %+v, active %d", r.infos[2], m.Active())
	}
}

func TestManagerDrivesProcess(t *testing.T) {
	target := newTarget(CanPosition)
	p := NewProcess(DefaultConfig(), target, nil)
	taps := 0
	p.Tap = func(mgl32.Vec3) { taps++ }
	m := NewManager(halfPicker{p}, nil)

	m.Begin(1, mgl32.Vec2{10, 10}, 0)
	m.End(1, mgl32.Vec2{12, 10}, ms(30))
	if taps != 1 {
		t.Errorf("taps = %d", taps)
	}

	m.Begin(1, mgl32.Vec2{10, 10}, ms(100))
	m.ClearFingers([]int{1})
	m.End(1, mgl32.Vec2{10, 10}, ms(110))
	if taps != 1 || !p.HasTouches() {
		t.Error("cleared finger still delivered")
	}
}
