package sprite

import (
	"fmt"

	"github.com/ilnaes/downstream/internal/common"
)

// Edit inserts or deletes one byte of a text.
type Edit struct {
	Insert bool
	Pos    int
	Ch     byte
}

// maxDiffCells bounds the edit distance table; bigger changes are sent
// whole.
const maxDiffCells = 1 << 20

// textEdits diffs only what lies between the common prefix and suffix of
// from and to. It reports false when that span is too big to diff.
func textEdits(from, to []byte) ([]Edit, bool) {
	p := 0
	for p < len(from) && p < len(to) && from[p] == to[p] {
		p++
	}
	q := 0
	for q < len(from)-p && q < len(to)-p && from[len(from)-1-q] == to[len(to)-1-q] {
		q++
	}

	a, b := from[p:len(from)-q], to[p:len(to)-q]
	if (len(a)+1)*(len(b)+1) > maxDiffCells {
		return nil, false
	}
	edits := diff(a, b)
	for i := range edits {
		edits[i].Pos += p
	}
	return edits, true
}

// diff returns the edits that turn s1 into s2, in increasing position
// order.
func diff(s1, s2 []byte) []Edit {
	dp := make([][]int, len(s1)+1)
	dp[0] = make([]int, len(s2)+1)

	for j := 0; j < len(s2)+1; j++ {
		dp[0][j] = j
	}

	for i := 1; i < len(s1)+1; i++ {
		dp[i] = make([]int, len(s2)+1)
		dp[i][0] = i

		for j := 1; j < len(s2)+1; j++ {
			dp[i][j] = min(dp[i][j-1], dp[i-1][j]) + 1

			if s1[i-1] == s2[j-1] && dp[i-1][j-1] < dp[i][j] {
				dp[i][j] = dp[i-1][j-1]
			}
		}
	}

	i := len(s1)
	j := len(s2)
	res := []Edit{}

	// walk back from the corner
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			res = append(res, Edit{Insert: true, Pos: i, Ch: s2[j-1]})
			j--
		case j == 0:
			res = append(res, Edit{Pos: i - 1, Ch: s1[i-1]})
			i--
		case s1[i-1] == s2[j-1] && dp[i][j] == dp[i-1][j-1]:
			i--
			j--
		case dp[i][j] == dp[i][j-1]+1:
			res = append(res, Edit{Insert: true, Pos: i, Ch: s2[j-1]})
			j--
		default:
			res = append(res, Edit{Pos: i - 1, Ch: s1[i-1]})
			i--
		}
	}

	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// applyEdits replays edits made by diff against s. Positions refer to s.
func applyEdits(s []byte, edits []Edit) ([]byte, error) {
	res := make([]byte, 0, len(s)+len(edits))
	i := 0

	for _, e := range edits {
		if e.Pos < i || e.Pos > len(s) || (!e.Insert && e.Pos == len(s)) {
			return nil, fmt.Errorf("edit at %d of %d bytes: %w", e.Pos, len(s), common.ErrBadPacket)
		}
		res = append(res, s[i:e.Pos]...)
		i = e.Pos

		if e.Insert {
			res = append(res, e.Ch)
		} else {
			i++
		}
	}
	return append(res, s[i:]...), nil
}

func writeEdits(buf *common.Buffer, edits []Edit) {
	buf.AddUint16(uint16(len(edits)))
	for _, e := range edits {
		buf.AddBool(e.Insert)
		buf.AddUint32(uint32(e.Pos))
		buf.AddByte(e.Ch)
	}
}

func readEdits(buf *common.Buffer) ([]Edit, error) {
	n, err := buf.ReadUint16()
	if err != nil {
		return nil, err
	}
	if int(n)*6 > buf.Remaining() {
		return nil, common.ErrShortBuffer
	}
	edits := make([]Edit, n)
	for i := range edits {
		edits[i].Insert, _ = buf.ReadBool()
		pos, _ := buf.ReadUint32()
		edits[i].Pos = int(pos)
		edits[i].Ch, _ = buf.ReadByte()
	}
	return edits, nil
}
