package sprite

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/touch"
)

func near(a, b mgl32.Vec3) bool { return a.ApproxEqualThreshold(b, 1e-3) }

func TestGlobalToLocal(t *testing.T) {
	e := newEngine()
	parent := e.NewSprite(nil)
	parent.SetPosition(mgl32.Vec3{100, 0, 0})
	child := e.NewSprite(parent)
	child.SetPosition(mgl32.Vec3{10, 10, 0})
	child.SetSize(20, 20)

	if got := child.GlobalToLocal(mgl32.Vec3{115, 15, 0}); !near(got, mgl32.Vec3{5, 5, 0}) {
		t.Errorf("local = %v", got)
	}
	if got := child.LocalToGlobal(mgl32.Vec3{0, 0, 0}); !near(got, mgl32.Vec3{110, 10, 0}) {
		t.Errorf("global = %v", got)
	}
	if !child.Contains(mgl32.Vec3{129, 29, 0}) || child.Contains(mgl32.Vec3{131, 15, 0}) {
		t.Error("contains disagrees with the rectangle")
	}
}

func TestCenterIsPivot(t *testing.T) {
	e := newEngine()
	s := e.NewSprite(nil)
	s.SetSize(10, 10)
	s.SetCenter(mgl32.Vec3{0.5, 0.5, 0})
	s.SetPosition(mgl32.Vec3{50, 50, 0})
	s.SetRotation(mgl32.Vec3{0, 0, 90})

	// the center stays at the position under rotation
	if got := s.LocalToGlobal(mgl32.Vec3{5, 5, 0}); !near(got, mgl32.Vec3{50, 50, 0}) {
		t.Errorf("center maps to %v", got)
	}
	if got := s.LocalToGlobal(mgl32.Vec3{10, 5, 0}); !near(got, mgl32.Vec3{50, 55, 0}) {
		t.Errorf("rotated edge maps to %v", got)
	}
}

func TestPickTopmost(t *testing.T) {
	e := newEngine()
	below := e.NewSprite(nil)
	below.SetSize(100, 100)
	below.SetTapCallback(func(mgl32.Vec3) {})
	above := e.NewSprite(nil)
	above.SetSize(50, 50)
	above.SetTapCallback(func(mgl32.Vec3) {})
	silent := e.NewSprite(nil)
	silent.SetSize(100, 100)

	if got := e.Pick(mgl32.Vec3{10, 10, 0}); got != touch.Receiver(above) {
		t.Errorf("picked %v, want the later sibling", got)
	}
	if got := e.Pick(mgl32.Vec3{80, 80, 0}); got != touch.Receiver(below) {
		t.Errorf("picked %v outside the top sprite", got)
	}
	above.Hide()
	if got := e.Pick(mgl32.Vec3{10, 10, 0}); got != touch.Receiver(below) {
		t.Error("hidden sprite picked")
	}
	if e.Pick(mgl32.Vec3{500, 500, 0}) != nil {
		t.Error("empty spot picked something")
	}
}
