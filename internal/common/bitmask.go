package common

import "math/bits"

// MaxDirtyStates is the number of distinct dirty states a process can hold.
const MaxDirtyStates = 64

// BitMask is a fixed 64 bit flag set.
type BitMask uint64

// DirtyState is a BitMask with exactly one bit set, naming one kind of
// attribute change.
type DirtyState = BitMask

func (m BitMask) Or(o BitMask) BitMask  { return m | o }
func (m BitMask) And(o BitMask) BitMask { return m & o }
func (m BitMask) Xor(o BitMask) BitMask { return m ^ o }
func (m BitMask) Not() BitMask          { return ^m }

// Has reports whether any bit of o is set in m.
func (m BitMask) Has(o BitMask) bool { return m&o != 0 }

func (m BitMask) IsEmpty() bool { return m == 0 }

func (m *BitMask) Clear() { *m = 0 }

func (m *BitMask) Fill() { *m = ^BitMask(0) }

// FirstIndex returns the index of the lowest set bit, or -1 when empty.
func (m BitMask) FirstIndex() int {
	if m == 0 {
		return -1
	}
	return bits.TrailingZeros64(uint64(m))
}

func (m BitMask) Count() int { return bits.OnesCount64(uint64(m)) }
