package touch

import (
	"math"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-5

// Target is the sprite a Process drives.
type Target interface {
	Visible() bool
	Enabled() bool
	Constraints() Constraint
	TouchScaleSizeMode() bool

	Size() mgl32.Vec3
	SetSize(w, h float32)
	Position() mgl32.Vec3
	SetPosition(mgl32.Vec3)
	Move(mgl32.Vec3)
	Scale() mgl32.Vec3
	SetScale(mgl32.Vec3)
	Rotation() mgl32.Vec3
	SetRotation(mgl32.Vec3)
	Center() mgl32.Vec3
	SetCenter(mgl32.Vec3)

	GlobalToLocal(mgl32.Vec3) mgl32.Vec3
	ParentInverseTransform() mgl32.Mat4

	HandleDragDestination(DragDestinationInfo)
}

// Locator gives a Process access to the rest of the scene.
type Locator interface {
	// DragDestination returns the sprite under point that accepts drops,
	// never dragged itself.
	DragDestination(point mgl32.Vec3, dragged Target) Target
	ClearFingers(ids []int)
}

// Handlers are the gesture callbacks of one sprite. Nil handlers disable
// the matching gesture.
type Handlers struct {
	Tap             func(mgl32.Vec3)
	DoubleTap       func(mgl32.Vec3)
	TapInfo         func(TapInfo) bool
	Swipe           func(mgl32.Vec3)
	Touch           func(Info)
	DragDestination func(DragDestinationInfo)
}

// Process interprets the finger stream of one sprite: tap and double tap,
// tap info, swipe, two finger scale/rotate/pan and drag destinations.
type Process struct {
	Handlers

	cfg     Config
	target  Target
	locator Locator

	fingers     map[int]*Info
	fingerIndex []int
	control     [2]int

	swipe       swipeQueue
	swipeFinger int

	tappable      bool
	oneTap        bool
	firstTapPos   mgl32.Vec3
	doubleTapTime time.Duration
	lastUpdate    time.Duration
	tapInfo       TapInfo

	startDistance   float32
	currentDistance float32
	currentScale    float32
	currentAngle    float32

	startPosition mgl32.Vec3
	startRotation mgl32.Vec3
	startScale    mgl32.Vec3
	startWidth    float32
	startHeight   float32
	startAnchor   mgl32.Vec3

	dragDestination Target
}

func NewProcess(cfg Config, target Target, locator Locator) *Process {
	return &Process{
		cfg:          cfg,
		target:       target,
		locator:      locator,
		fingers:      make(map[int]*Info),
		swipe:        swipeQueue{size: cfg.SwipeQueueSize},
		currentScale: 1,
	}
}

func (p *Process) HasTouches() bool { return len(p.fingers) > 0 }

func (p *Process) multiTouch() bool { return p.target.Constraints() != 0 }

func (p *Process) infoOnly() bool { return !p.target.Constraints().moves() }

// ProcessTouchInfo advances every gesture with one finger event. It
// returns false when the event was ignored.
func (p *Process) ProcessTouchInfo(ti Info) bool {
	if !p.target.Visible() || !p.target.Enabled() {
		return false
	}

	p.processTap(ti)
	p.processTapInfo(ti)

	switch ti.Phase {
	case Added:
		f := ti
		p.fingers[ti.FingerID] = &f
		p.fingerIndex = append(p.fingerIndex, ti.FingerID)

		if len(p.fingers) == 1 {
			p.swipe.clear()
			p.swipeFinger = ti.FingerID
			p.swipe.add(ti.Current, ti.Time)
			p.startAnchor = p.target.Center()
		}

		p.initializeTouchPoints()
		p.send(ti)
		p.updateDragDestination(ti)

	case Moved:
		found, ok := p.fingers[ti.FingerID]
		if !ok {
			return false
		}
		found.Current = ti.Current

		if p.swipeFinger == ti.FingerID {
			p.swipe.add(ti.Current, ti.Time)
		}

		c0, ok0 := p.fingers[p.control[0]]
		c1, ok1 := p.fingers[p.control[1]]
		isControl := (ok0 && ti.FingerID == c0.FingerID) || (ok1 && ti.FingerID == c1.FingerID)
		if p.multiTouch() && isControl && ok0 {
			p.applyGesture(ti, c0, c1, ok1)
		}

		p.send(ti)
		p.updateDragDestination(ti)

	case Removed:
		p.send(ti)
		p.updateDragDestination(ti)

		delete(p.fingers, ti.FingerID)
		if i := slices.Index(p.fingerIndex, ti.FingerID); i >= 0 {
			p.fingerIndex = slices.Delete(p.fingerIndex, i, i+1)
		}

		if len(p.fingers) > 0 {
			p.initializeTouchPoints()
			return true
		}

		p.resetTouchAnchor()
		if v, ok := p.swipe.detect(ti.Time, p.cfg.SwipeMinSpeed, p.cfg.SwipeMaxTime); ok && p.Swipe != nil {
			p.Swipe(v)
		}
	}

	return true
}

// applyGesture moves the target from the control fingers. c0 is always
// present when this is called.
func (p *Process) applyGesture(ti Info, c0, c1 *Info, ok1 bool) {
	constraints := p.target.Constraints()
	parent := p.target.ParentInverseTransform()
	offset := parent.Mul4x1(c0.Current.Vec4(1)).Vec3().Sub(parent.Mul4x1(c0.Start.Vec4(1)).Vec3())

	if len(p.fingers) > 1 && ok1 {
		p.startDistance, p.currentDistance, p.currentScale, p.currentAngle =
			PinchRotate(c0.Start, c1.Start, c0.Current, c1.Current, p.cfg.MinTouchDistance)

		if constraints.Has(CanScale) {
			if p.target.TouchScaleSizeMode() {
				p.target.SetSize(p.startWidth*p.currentScale, p.startHeight*p.currentScale)
			} else {
				p.target.SetScale(p.startScale.Mul(p.currentScale))
			}
		}

		if constraints.Has(CanRotate) {
			rot := p.startRotation
			rot[2] = p.startRotation[2] - mgl32.RadToDeg(p.currentAngle)
			p.target.SetRotation(rot)
		}
	}

	if !p.infoOnly() && ti.FingerID == c0.FingerID {
		var move mgl32.Vec3
		if !p.tappable && constraints.Has(CanPositionX) {
			move[0] = offset[0]
		}
		if !p.tappable && constraints.Has(CanPositionY) {
			move[1] = offset[1]
		}
		p.target.SetPosition(p.startPosition.Add(move))
	}
}

// PinchRotate returns the clamped start and current distances between two
// fingers, their ratio and the signed angle (radians) between the start
// and current finger vectors.
func PinchRotate(start0, start1, cur0, cur1 mgl32.Vec3, minDistance float32) (startDist, curDist, scale, angle float32) {
	startDist = max(start0.Sub(start1).Len(), minDistance)
	curDist = max(cur0.Sub(cur1).Len(), minDistance)
	scale = curDist / startDist
	angle = float32(math.Atan2(float64(start1[1]-start0[1]), float64(start1[0]-start0[0])) -
		math.Atan2(float64(cur1[1]-cur0[1]), float64(cur1[0]-cur0[0])))
	return
}

// Update fires a pending single tap once the double tap window has passed.
func (p *Process) Update(now time.Duration) {
	p.lastUpdate = now
	if !p.target.Visible() || !p.target.Enabled() || !p.oneTap || p.DoubleTap == nil {
		return
	}
	if now-p.doubleTapTime >= p.cfg.DoubleTapWindow {
		p.oneTap = false
		p.doubleTapTime = now
		if p.Tap != nil {
			p.Tap(p.firstTapPos)
		}
	}
}

// Clear drops every finger, the tap state and the swipe queue.
func (p *Process) Clear() {
	ids := make([]int, 0, len(p.fingers))
	for id := range p.fingers {
		ids = append(ids, id)
	}
	if p.locator != nil && len(ids) > 0 {
		p.locator.ClearFingers(ids)
	}

	clear(p.fingers)
	p.fingerIndex = p.fingerIndex[:0]
	p.swipe.clear()
	p.tappable = false
	p.oneTap = false
	p.tapInfo = TapInfo{}
	p.dragDestination = nil
}

func (p *Process) send(ti Info) {
	if p.Touch == nil {
		return
	}

	t := ti
	t.CurrentAngle = p.currentAngle
	t.CurrentScale = p.currentScale
	t.CurrentDistance = p.currentDistance
	t.StartDistance = p.startDistance
	t.Fingers = len(p.fingers)
	if ti.Phase == Removed && t.Fingers > 0 {
		t.Fingers--
	}
	t.FingerIndex = slices.Index(p.fingerIndex, ti.FingerID)
	if f, ok := p.fingers[ti.FingerID]; ok {
		t.Active = f.Active
	}

	p.Touch(t)
}

func (p *Process) initializeFirstTouch() {
	f := p.fingers[p.control[0]]
	f.Active = true
	f.Start = f.Current

	size := p.target.Size()
	anchor := p.target.GlobalToLocal(f.Start)
	for i := range anchor {
		if size[i] != 0 {
			anchor[i] /= size[i]
		}
	}
	p.startAnchor = p.target.Center()

	if !p.infoOnly() {
		offset := p.anchorOffset(anchor.Sub(p.startAnchor))
		p.target.SetCenter(anchor)
		p.target.Move(offset)
	}

	p.startPosition = p.target.Position()
}

func (p *Process) initializeTouchPoints() {
	if !p.multiTouch() || len(p.fingers) == 0 {
		return
	}

	if len(p.fingers) == 1 {
		for id := range p.fingers {
			p.control[0] = id
		}
		p.resetTouchAnchor()
		p.initializeFirstTouch()
		return
	}

	ids := make([]int, 0, len(p.fingers))
	for id := range p.fingers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var far [2]int
	var farthest float32
	for _, a := range ids {
		p.fingers[a].Active = false
		for _, b := range ids {
			if a == b {
				continue
			}
			d := p.fingers[b].Current.Sub(p.fingers[a].Current).Len()
			if d > farthest {
				far = [2]int{b, a}
				farthest = d
			}
		}
	}

	if farthest < epsilon {
		return
	}

	p.resetTouchAnchor()
	p.control = far
	p.initializeFirstTouch()

	f1 := p.fingers[p.control[1]]
	f1.Active = true
	f1.Start = f1.Current

	size := p.target.Size()
	p.startPosition = p.target.Position()
	p.startRotation = p.target.Rotation()
	p.startScale = p.target.Scale()
	p.startWidth = size[0]
	p.startHeight = size[1]
}

func (p *Process) resetTouchAnchor() {
	if !p.multiTouch() || p.infoOnly() {
		return
	}
	offset := p.anchorOffset(p.startAnchor.Sub(p.target.Center()))
	p.target.SetCenter(p.startAnchor)
	p.target.Move(offset)
}

// anchorOffset converts a change of the normalized center into the world
// offset that keeps the sprite in place.
func (p *Process) anchorOffset(d mgl32.Vec3) mgl32.Vec3 {
	size := p.target.Size()
	scale := p.target.Scale()
	d[0] *= size[0] * scale[0]
	d[1] *= size[1] * scale[1]
	rot := mgl32.HomogRotate3DZ(mgl32.DegToRad(p.target.Rotation()[2]))
	return rot.Mul4x1(d.Vec4(1)).Vec3()
}

func (p *Process) updateDragDestination(ti Info) {
	if _, ok := p.fingers[ti.FingerID]; !ok || p.locator == nil {
		return
	}

	dest := p.locator.DragDestination(ti.Current, p.target)
	info := DragDestinationInfo{Point: ti.Current, Phase: DragNull, Dragged: p.target}
	cur := p.dragDestination

	switch {
	case cur == nil && dest != nil:
		info.Phase = DragEntered
		p.dragDestination = dest
	case cur != nil && cur == dest:
		info.Phase = DragUpdated
	case cur != nil && cur != dest:
		info.Phase = DragExited
	}

	if cur != nil && len(p.fingers) < 2 && ti.Phase == Removed {
		info.Phase = DragReleased
	}

	if info.Phase != DragNull {
		info.Destination = p.dragDestination
		if p.DragDestination != nil {
			p.DragDestination(info)
		}
		if p.dragDestination != nil {
			p.dragDestination.HandleDragDestination(info)
		}
	}

	if info.Phase == DragReleased || info.Phase == DragExited || info.Phase == DragNull {
		p.dragDestination = nil
	}
}

func (p *Process) processTap(ti Info) {
	if p.TapInfo != nil {
		return
	}
	if p.Tap == nil && p.DoubleTap == nil {
		p.tappable = false
		return
	}

	switch {
	case ti.Phase == Added && len(p.fingers) == 0:
		p.tappable = true
	case !p.tappable:
	case len(p.fingers) > 1 || ti.Passed || (ti.Phase != Added && p.movedTooFar(ti)):
		p.tappable = false
	case ti.Phase == Removed:
		switch {
		case p.Tap != nil && p.DoubleTap == nil:
			p.Tap(ti.Current)
			p.oneTap = false
		case p.oneTap && ti.Time-p.doubleTapTime < p.cfg.DoubleTapWindow:
			p.DoubleTap(ti.Current)
			p.oneTap = false
		default:
			// the previous tap ran out of time before Update saw it
			if p.oneTap && p.Tap != nil {
				p.Tap(p.firstTapPos)
			}
			p.firstTapPos = ti.Current
			p.oneTap = true
			p.doubleTapTime = ti.Time
		}

		if len(p.fingers) == 1 {
			p.tappable = false
		}
	}
}

func (p *Process) processTapInfo(ti Info) {
	if p.Tap != nil || p.DoubleTap != nil {
		return
	}
	if p.TapInfo == nil {
		p.tappable = false
		return
	}

	switch {
	case ti.Phase == Added && len(p.fingers) == 0:
		p.tappable = true
		p.sendTapInfo(TapWaiting, 0, mgl32.Vec3{})
	case !p.tappable:
	case p.tapInfo.State == TapDone:
		// cancelled by the handler
		p.tappable = false
	case len(p.fingers) > 1 || ti.Passed || (ti.Phase != Added && p.movedTooFar(ti)):
		p.tappable = false
		p.sendTapInfo(TapDone, 0, mgl32.Vec3{})
	case ti.Phase == Removed:
		p.sendTapInfo(TapTapped, 1, ti.Current)
		p.tappable = false
		p.tapInfo.Count = 0
		p.tapInfo.State = TapDone
	}
}

func (p *Process) sendTapInfo(s TapState, count int, pt mgl32.Vec3) {
	p.tapInfo = TapInfo{State: s, Count: count, Point: pt}
	if !p.TapInfo(p.tapInfo) {
		p.tapInfo.State = TapDone
	}
}

// movedTooFar reports a finger at or beyond the tap distance from where it
// touched down, whether it is still moving or lifting off.
func (p *Process) movedTooFar(ti Info) bool {
	return ti.Current.Sub(ti.Start).Len() >= p.cfg.MinTapDistance
}
