package sprite

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ilnaes/downstream/internal/common"
)

func TestApplyEdits(t *testing.T) {
	tests := []struct{ from, to string }{
		{"caeqwhdoqi", "scqoid"},
		{"", "hello"},
		{"hello", ""},
		{"sad", "esad"},
		{"same", "same"},
	}
	for _, tt := range tests {
		out, err := applyEdits([]byte(tt.from), diff([]byte(tt.from), []byte(tt.to)))
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != tt.to {
			t.Error(fmt.Sprintf("%s should be %s", out, tt.to))
		}
	}
}

func TestApplyEditsOutOfRange(t *testing.T) {
	_, err := applyEdits([]byte("abc"), []Edit{{Pos: 3}})
	if !errors.Is(err, common.ErrBadPacket) {
		t.Errorf("delete past the end: %v", err)
	}
	_, err = applyEdits([]byte("abc"), []Edit{{Insert: true, Pos: 2}, {Insert: true, Pos: 1}})
	if err == nil {
		t.Error("unordered edits accepted")
	}
}

// flushText writes t and applies its blocks to dst, returning the bytes
// written.
func flushText(t *testing.T, src *Text, dst *Engine) int {
	t.Helper()
	var buf common.Buffer
	if _, err := src.WriteAttributesTo(&buf); err != nil {
		t.Fatal(err)
	}
	replay(t, dst, buf.Bytes())
	return buf.Len()
}

func TestTextSendsEdits(t *testing.T) {
	e := newEngine()
	long := strings.Repeat("downstream ", 20)
	label := e.NewText(nil, long)
	replica := NewReplica(nil)
	full := flushText(t, label, replica)

	label.SetText(long + "!")
	small := flushText(t, label, replica)
	if small >= full/4 {
		t.Errorf("one byte change cost %d bytes, first send %d", small, full)
	}

	got, _ := replica.Lookup(label.ID())
	rt, _ := As[*Text](got)
	if rt.Text() != long+"!" {
		t.Errorf("replica text = %q", rt.Text())
	}

	label.SetText("short")
	flushText(t, label, replica)
	label.SetFont("mono", 12)
	flushText(t, label, replica)
	if rt.Text() != "short" || rt.Font() != "mono" || rt.FontSize() != 12 {
		t.Errorf("replica = %q %s %v", rt.Text(), rt.Font(), rt.FontSize())
	}
}

func TestTextEditsNeedMatchingBase(t *testing.T) {
	e := newEngine()
	label := e.NewText(nil, strings.Repeat("x", 64))
	replica := NewReplica(nil)
	flushText(t, label, replica)

	got, _ := replica.Lookup(label.ID())
	rt, _ := As[*Text](got)
	rt.text = ""

	label.SetText(strings.Repeat("x", 63))
	var buf common.Buffer
	label.WriteAttributesTo(&buf)
	_, r, _ := common.NewBuffer(buf.Bytes()).NextBlock()
	r.ReadByte()
	r.ReadUint64()
	if err := got.ReadAttributesFrom(r); err == nil {
		t.Error("edits applied to a diverged text")
	}
}

func TestLongTextSpansBlocks(t *testing.T) {
	e := newEngine()
	long := strings.Repeat("0123456789", 7000)
	label := e.NewText(nil, long)
	replica := NewReplica(nil)

	var buf common.Buffer
	for _, s := range e.TakeDirty() {
		if _, err := s.WriteAttributesTo(&buf); err != nil {
			t.Fatal(err)
		}
	}
	if n := replay(t, replica, buf.Bytes()); n != 2 {
		t.Errorf("%d byte text used %d blocks", len(long), n)
	}
	got, _ := replica.Lookup(label.ID())
	rt, _ := As[*Text](got)
	if rt.Text() != long {
		t.Fatalf("replica holds %d of %d bytes", len(rt.Text()), len(long))
	}
	if label.IsDirty() {
		t.Error("text still dirty after it was sent")
	}

	label.SetText(long + "!")
	if n := flushText(t, label, replica); n > 64 {
		t.Errorf("appending one byte cost %d bytes", n)
	}
	if rt.Text() != long+"!" {
		t.Error("edit against a long text was not applied")
	}

	var snap common.Buffer
	if err := label.WriteSnapshotTo(&snap); err != nil {
		t.Fatal(err)
	}
	restored := NewReplica(nil)
	replay(t, restored, snap.Bytes())
	rs, _ := restored.Lookup(label.ID())
	if txt, _ := As[*Text](rs); txt.Text() != long+"!" {
		t.Errorf("snapshot restored %d bytes", len(txt.Text()))
	}
}

func TestTextEditsSkipCommonEnds(t *testing.T) {
	from := []byte(strings.Repeat("a", 5000) + "xyz" + strings.Repeat("b", 5000))
	to := []byte(strings.Repeat("a", 5000) + "xz!" + strings.Repeat("b", 5000))
	edits, ok := textEdits(from, to)
	if !ok {
		t.Fatal("small change in a long text was not diffed")
	}
	out, err := applyEdits(from, edits)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(to) || len(edits) != 2 {
		t.Error(fmt.Sprintf("%d edits gave %d bytes", len(edits), len(out)))
	}

	if _, ok := textEdits([]byte(strings.Repeat("a", 2000)), []byte(strings.Repeat("b", 2000))); ok {
		t.Error("diffed a change past the table limit")
	}
}
