package sprite

import (
	"github.com/ilnaes/downstream/internal/common"
)

var TextBlob = common.BlobType("text")

var (
	TextDirty = InternalADirty
	FontDirty = InternalBDirty
)

const (
	textAtt = firstSubclassAtt + iota
	textEditsAtt
	fontAtt
	textAppendAtt
)

// Text is a label. Changes to the content travel as edit scripts against
// what the clients already hold, falling back to the whole string when
// that is shorter.
type Text struct {
	*Sprite
	text     string
	sent     string
	cursor   int // bytes of text written by the current flush
	font     string
	fontSize float32
}

func (e *Engine) NewText(parent *Sprite, text string) *Text {
	t, _ := As[*Text](e.spawn(TextBlob, parent))
	t.SetText(text)
	return t
}

func wrapText(s *Sprite) {
	t := &Text{Sprite: s, fontSize: 16}
	s.self = t
	s.AddCodec(Codec{Write: t.write, Read: t.read, Sent: t.written})
}

func (t *Text) Text() string      { return t.text }
func (t *Text) Font() string      { return t.font }
func (t *Text) FontSize() float32 { return t.fontSize }

func (t *Text) SetText(s string) {
	if t.text == s {
		return
	}
	t.text = s
	t.MarkAsDirty(TextDirty)
}

func (t *Text) SetFont(name string, size float32) {
	if t.font == name && t.fontSize == size {
		return
	}
	t.font, t.fontSize = name, size
	t.MarkAsDirty(FontDirty)
}

func (t *Text) write(buf *common.Buffer, mask common.BitMask) {
	if t.part > 0 {
		if t.cursor < len(t.text) {
			t.writeChunk(buf, textAppendAtt)
		}
		return
	}

	t.cursor = 0
	if mask.Has(FontDirty) {
		buf.AddByte(fontAtt)
		buf.AddString(t.font)
		buf.AddFloat32(t.fontSize)
	}
	if !mask.Has(TextDirty) {
		return
	}

	// a full mask means the receiver may not have anything yet
	var all common.BitMask
	all.Fill()
	if t.snapshot || mask == all {
		t.writeChunk(buf, textAtt)
		return
	}

	edits, ok := textEdits([]byte(t.sent), []byte(t.text))
	size := 2 + 6*len(edits)
	if !ok || size > blockBudget || size >= 4+len(t.text) {
		t.writeChunk(buf, textAtt)
		return
	}
	buf.AddByte(textEditsAtt)
	writeEdits(buf, edits)
	t.cursor = len(t.text)
}

// writeChunk writes the text from the cursor, at most one block budget of
// it, and asks for another block when some is left.
func (t *Text) writeChunk(buf *common.Buffer, att byte) {
	end := min(len(t.text), t.cursor+blockBudget)
	buf.AddByte(att)
	buf.AddString(t.text[t.cursor:end])
	t.cursor = end
	if end < len(t.text) {
		t.continueInNextBlock()
	}
}

func (t *Text) written(mask common.BitMask) {
	if mask.Has(TextDirty) {
		t.sent = t.text
	}
}

func (t *Text) read(att byte, buf *common.Buffer) (bool, error) {
	var err error
	switch att {
	case textAtt:
		t.text, err = buf.ReadString()
	case textAppendAtt:
		var more string
		if more, err = buf.ReadString(); err == nil {
			t.text += more
		}
	case textEditsAtt:
		var edits []Edit
		if edits, err = readEdits(buf); err != nil {
			return true, err
		}
		var out []byte
		if out, err = applyEdits([]byte(t.text), edits); err == nil {
			t.text = string(out)
		}
	case fontAtt:
		if t.font, err = buf.ReadString(); err != nil {
			return true, err
		}
		t.fontSize, err = buf.ReadFloat32()
	default:
		return false, nil
	}
	return true, err
}
