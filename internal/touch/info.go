package touch

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type Phase int

const (
	Added Phase = iota
	Moved
	Removed
)

func (p Phase) String() string {
	switch p {
	case Added:
		return "added"
	case Moved:
		return "moved"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Info describes one touch event as seen by a single sprite.
type Info struct {
	FingerID    int
	Phase       Phase
	Current     mgl32.Vec3
	Start       mgl32.Vec3
	Delta       mgl32.Vec3
	Fingers     int // fingers still down on the sprite
	FingerIndex int // arrival order, -1 when unknown
	Picked      Receiver
	Active      bool // one of the control fingers
	Passed      bool // synthesized, should not trigger buttons

	StartDistance   float32
	CurrentDistance float32
	CurrentScale    float32
	CurrentAngle    float32 // radians

	Time time.Duration
}

type TapState int

const (
	TapNull TapState = iota
	TapWaiting
	TapTapped
	TapDone
)

type TapInfo struct {
	State TapState
	Count int
	Point mgl32.Vec3
}

type DragPhase int

const (
	DragNull DragPhase = iota
	DragEntered
	DragUpdated
	DragExited
	DragReleased
)

// DragDestinationInfo is sent to both the dragged sprite and the sprite
// under the finger.
type DragDestinationInfo struct {
	Point       mgl32.Vec3
	Phase       DragPhase
	Dragged     Target
	Destination Target
}

// Constraint selects which transforms a multitouch gesture may apply.
type Constraint uint32

const (
	InfoOnly Constraint = 1 << iota
	CanScale
	CanRotate
	CanPositionX
	CanPositionY

	CanPosition            = CanPositionX | CanPositionY
	CanScaleRotatePosition = CanScale | CanRotate | CanPosition
)

func (c Constraint) Has(o Constraint) bool { return c&o == o }

// moves reports whether the constraint set allows any transform at all.
func (c Constraint) moves() bool { return c&^InfoOnly != 0 }
