package sprite

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/touch"
)

func newEngine() *Engine { return NewEngine(nil, touch.DefaultConfig()) }

// replay applies every sprite block of body to dst and returns the number
// of blocks.
func replay(t *testing.T, dst *Engine, body []byte) int {
	t.Helper()
	r := common.NewBuffer(body)
	n := 0
	for r.Remaining() > 0 {
		blobType, payload, err := r.NextBlock()
		if err != nil {
			t.Fatal(err)
		}
		payload.ReadByte()
		id, _ := payload.ReadUint64()
		s, err := dst.Create(blobType, id)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.ReadAttributesFrom(payload); err != nil {
			t.Fatal(err)
		}
		dst.RetryOrphans()
		n++
	}
	return n
}

// flush writes the pending changes of e into one body and replays it on
// dst.
func flush(t *testing.T, e, dst *Engine) int {
	t.Helper()
	var buf common.Buffer
	for _, s := range e.TakeDirty() {
		if _, err := s.WriteAttributesTo(&buf); err != nil {
			t.Fatal(err)
		}
	}
	return replay(t, dst, buf.Bytes())
}

func TestSetterMarksOneState(t *testing.T) {
	e := newEngine()
	s := e.NewSprite(nil)
	var buf common.Buffer
	s.WriteAttributesTo(&buf)

	tests := []struct {
		name  string
		set   func()
		state common.DirtyState
	}{
		{"position", func() { s.SetPosition(mgl32.Vec3{1, 2, 3}) }, PositionDirty},
		{"size", func() { s.SetSize(4, 5) }, SizeDirty},
		{"rotation", func() { s.SetRotation(mgl32.Vec3{0, 0, 90}) }, RotationDirty},
		{"scale", func() { s.SetScale(mgl32.Vec3{2, 2, 1}) }, ScaleDirty},
		{"center", func() { s.SetCenter(mgl32.Vec3{0.5, 0.5, 0}) }, CenterDirty},
		{"color", func() { s.SetColor(mgl32.Vec3{1, 0, 0}) }, ColorDirty},
		{"opacity", func() { s.SetOpacity(0.25) }, OpacityDirty},
		{"blend", func() { s.SetBlendMode(BlendAdd) }, BlendDirty},
		{"clipping", func() { s.SetClipping(true) }, ClippingDirty},
		{"shader", func() { s.SetShader("blur") }, ShaderDirty},
		{"flags", func() { s.Hide() }, FlagsDirty},
	}
	for _, tt := range tests {
		tt.set()
		if s.Dirty() != tt.state {
			t.Errorf("%s: dirty = %b, want %b", tt.name, s.Dirty(), tt.state)
		}
		buf.Reset()
		s.WriteAttributesTo(&buf)
	}
}

func TestFlushIsIdempotent(t *testing.T) {
	e := newEngine()
	s := e.NewSprite(nil)
	s.SetPosition(mgl32.Vec3{1, 1, 0})

	var first, second common.Buffer
	if ok, err := s.WriteAttributesTo(&first); !ok || err != nil {
		t.Fatalf("dirty sprite wrote nothing: %v", err)
	}
	if s.IsDirty() {
		t.Error("flush left dirty bits")
	}
	if ok, _ := s.WriteAttributesTo(&second); ok || second.Len() != 0 {
		t.Errorf("second flush wrote %d bytes", second.Len())
	}
}

func TestUnchangedSetterStaysClean(t *testing.T) {
	e := newEngine()
	s := e.NewSprite(nil)
	s.SetOpacity(0.5)
	e.TakeDirty()
	s.WriteAttributesTo(&common.Buffer{})

	s.SetOpacity(0.5)
	if s.IsDirty() || e.HasChanges() {
		t.Error("setting the same value marked the sprite")
	}
}

func TestDirtyQueueOrder(t *testing.T) {
	e := newEngine()
	a := e.NewSprite(nil)
	b := e.NewSprite(nil)
	for _, s := range e.TakeDirty() {
		s.WriteAttributesTo(&common.Buffer{})
	}

	b.SetOpacity(0)
	a.SetOpacity(0)
	b.SetShader("x") // already queued

	got := e.TakeDirty()
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("dirty order = %v", ids(got))
	}
	if len(e.TakeDirty()) != 0 {
		t.Error("TakeDirty did not reset the queue")
	}
}

func ids(ss []*Sprite) []ID {
	out := make([]ID, len(ss))
	for i, s := range ss {
		out[i] = s.ID()
	}
	return out
}

func TestAddChildRefusesCycles(t *testing.T) {
	e := newEngine()
	a := e.NewSprite(nil)
	b := e.NewSprite(a)
	c := e.NewSprite(b)

	if err := c.AddChild(a); !errors.Is(err, ErrCycle) {
		t.Errorf("ancestor as child: %v", err)
	}
	if err := a.AddChild(a); !errors.Is(err, ErrCycle) {
		t.Errorf("self as child: %v", err)
	}

	for _, s := range e.TakeDirty() {
		s.WriteAttributesTo(&common.Buffer{})
	}
	if err := a.AddChild(c); err != nil {
		t.Fatal(err)
	}
	if c.Parent() != a || len(b.Children()) != 0 || len(a.Children()) != 2 {
		t.Error("reparent did not move c")
	}
	if c.Dirty() != ParentDirty {
		t.Errorf("reparent marked %b", c.Dirty())
	}
}

func TestReleaseSubtree(t *testing.T) {
	e := newEngine()
	a := e.NewSprite(nil)
	b := e.NewSprite(a)
	c := e.NewSprite(b)
	keep := e.NewSprite(nil)

	a.Release()
	for _, s := range []*Sprite{a, b, c} {
		if !s.Released() {
			t.Errorf("sprite %d not released", s.ID())
		}
		if _, ok := e.Lookup(s.ID()); ok {
			t.Errorf("sprite %d still registered", s.ID())
		}
	}
	if _, ok := e.Lookup(keep.ID()); !ok {
		t.Error("sibling released")
	}
	if del := e.TakeDeleted(); len(del) != 1 || del[0] != a.ID() {
		t.Errorf("deleted = %v", del)
	}
	for _, s := range e.TakeDirty() {
		if s.Released() {
			t.Errorf("released sprite %d still queued", s.ID())
		}
	}

	e.Root().Release()
	if e.Len() != 0 || e.Root().Released() {
		t.Error("root release should only drop its children")
	}
}

func TestSpawnUnderReleasedParent(t *testing.T) {
	e := newEngine()
	gone := e.NewSprite(nil)
	gone.Release()

	s := e.NewSprite(gone)
	if s.Parent() != e.Root() {
		t.Fatalf("parent = %v", s.Parent())
	}
	replica := NewReplica(nil)
	flush(t, e, replica)
	if r, ok := replica.Lookup(s.ID()); !ok || r.Parent() != replica.Root() || replica.Orphans() != 0 {
		t.Error("sprite not attached under the replica root")
	}
}

func TestSetRadiusMarksSize(t *testing.T) {
	e := newEngine()
	c := e.NewCircle(nil, 1)
	c.WriteAttributesTo(&common.Buffer{})

	c.SetRadius(5)
	if c.Dirty() != RadiusDirty|SizeDirty {
		t.Errorf("dirty = %b", c.Dirty())
	}
}

func TestReadUnknownAttribute(t *testing.T) {
	e := newEngine()
	s := e.NewSprite(nil)

	var buf common.Buffer
	buf.AddByte(positionAtt)
	buf.AddVec3(mgl32.Vec3{1, 2, 3})
	buf.AddByte(0x7f)
	buf.AddByte(common.Terminator)

	err := s.ReadAttributesFrom(common.NewBuffer(buf.Bytes()))
	var de *common.DecodeError
	if !errors.As(err, &de) || de.Attribute != 0x7f || !errors.Is(err, common.ErrUnknownAttribute) {
		t.Errorf("got %v", err)
	}
	if s.Position() != (mgl32.Vec3{1, 2, 3}) {
		t.Error("attributes before the bad one were not applied")
	}
}

func TestSubclassAttributesRoundTrip(t *testing.T) {
	src := newEngine()
	c := src.NewCircle(nil, 12)
	c.SetFilled(false)
	c.SetLineWidth(3)
	c.SetColor(mgl32.Vec3{0, 1, 0})

	dst := NewReplica(nil)
	flush(t, src, dst)
	s, _ := dst.Lookup(c.ID())
	got, ok := As[*Circle](s)
	if !ok {
		t.Fatal("replica is not a circle")
	}
	if got.Radius() != 12 || got.Filled() || got.LineWidth() != 3 || got.Color() != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("circle = r%v filled %v width %v color %v", got.Radius(), got.Filled(), got.LineWidth(), got.Color())
	}
	if got.Size() != (mgl32.Vec3{24, 24, 0}) {
		t.Errorf("size = %v", got.Size())
	}
	if s.IsDirty() {
		t.Error("replicated reads marked the sprite dirty")
	}
}

func longStroke(x float32) []mgl32.Vec2 {
	points := make([]mgl32.Vec2, MaxStrokePoints)
	for i := range points {
		points[i] = mgl32.Vec2{x, float32(i)}
	}
	return points
}

func TestCanvasShipsStrokesInBatches(t *testing.T) {
	e := newEngine()
	c := e.NewCanvas(nil, 100, 100)
	// five full strokes fit in one block, the sixth does not
	for i := 0; i < 9; i++ {
		c.Draw(longStroke(float32(i))...)
	}

	replica := NewReplica(nil)
	flush(t, e, replica)
	if c.Pending() != 4 || !c.IsDirty() {
		t.Fatalf("after first flush pending = %d dirty = %v", c.Pending(), c.IsDirty())
	}
	flush(t, e, replica)
	if c.Pending() != 0 || c.IsDirty() {
		t.Fatalf("after second flush pending = %d", c.Pending())
	}

	got, _ := replica.Lookup(c.ID())
	rc, _ := As[*Canvas](got)
	if len(rc.Strokes()) != 9 || rc.Strokes()[8].Points[MaxStrokePoints-1] != (mgl32.Vec2{8, MaxStrokePoints - 1}) {
		t.Errorf("replica has %d strokes", len(rc.Strokes()))
	}

	c.Clear()
	c.Draw(mgl32.Vec2{1, 1})
	flush(t, e, replica)
	if len(rc.Strokes()) != 1 {
		t.Errorf("after clear replica has %d strokes", len(rc.Strokes()))
	}
}

func TestCanvasSnapshotContinues(t *testing.T) {
	e := newEngine()
	c := e.NewCanvas(nil, 100, 100)
	for i := 0; i < 12; i++ {
		c.Draw(longStroke(float32(i))...)
	}

	var buf common.Buffer
	if err := c.WriteSnapshotTo(&buf); err != nil {
		t.Fatal(err)
	}
	replica := NewReplica(nil)
	if n := replay(t, replica, buf.Bytes()); n != 3 {
		t.Errorf("snapshot used %d blocks", n)
	}
	got, _ := replica.Lookup(c.ID())
	rc, _ := As[*Canvas](got)
	if len(rc.Strokes()) != 12 {
		t.Errorf("restored %d strokes", len(rc.Strokes()))
	}
	if c.Pending() != 12 {
		t.Errorf("snapshot moved the sent mark to %d", len(c.strokes)-c.Pending())
	}
}

func TestOversizedBlockStaysPending(t *testing.T) {
	e := newEngine()
	s := e.NewSprite(nil)
	s.SetShader(strings.Repeat("s", common.MaxBlockSize))
	e.TakeDirty()

	var buf common.Buffer
	buf.AddByte(0xaa)
	ok, err := s.WriteAttributesTo(&buf)
	var ee *common.EncodeError
	if ok || !errors.As(err, &ee) || !errors.Is(err, common.ErrBlockTooLarge) {
		t.Fatalf("wrote %v, err %v", ok, err)
	}
	if buf.Len() != 1 {
		t.Errorf("failed block left %d bytes", buf.Len()-1)
	}
	if !s.IsDirty() || !s.Dirty().Has(ShaderDirty) || len(e.TakeDirty()) != 1 {
		t.Error("changes were dropped")
	}
}

func TestVideoPlayback(t *testing.T) {
	e := newEngine()
	v := e.NewVideo(nil, "intro.mp4")
	e.TakeDirty()
	v.WriteAttributesTo(&common.Buffer{})

	v.Play()
	if v.Dirty() != VideoStatusDirty || v.Status() != Playing {
		t.Errorf("play: dirty %b status %v", v.Dirty(), v.Status())
	}
	v.SetVolume(3)
	if v.Volume() != 1 {
		t.Errorf("volume not clamped: %v", v.Volume())
	}
	v.Stop()
	if v.Status() != Stopped || v.PlaybackPosition() != 0 {
		t.Error("stop did not rewind")
	}
}
