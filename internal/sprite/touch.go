package sprite

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/touch"
)

func (s *Sprite) Constraints() touch.Constraint { return s.constraints }
func (s *Sprite) TouchScaleSizeMode() bool      { return s.touchScaleSizeMode }

// SetTouchScaleSizeMode makes pinches resize instead of scale.
func (s *Sprite) SetTouchScaleSizeMode(on bool) { s.touchScaleSizeMode = on }

// Touches returns the gesture process of s, creating it on first use.
func (s *Sprite) Touches() *touch.Process {
	if s.process == nil {
		cfg := touch.DefaultConfig()
		var loc touch.Locator
		if s.engine != nil {
			cfg = s.engine.touchCfg
			loc = s.engine
		}
		s.process = touch.NewProcess(cfg, s, loc)
	}
	return s.process
}

// EnableMultiTouch lets two finger gestures move s within constraints.
func (s *Sprite) EnableMultiTouch(c touch.Constraint) {
	s.constraints = c
	s.Touches()
}

func (s *Sprite) DisableTouch() {
	if s.process != nil {
		s.process.Clear()
	}
	s.process = nil
	s.constraints = 0
}

func (s *Sprite) SetTapCallback(fn func(mgl32.Vec3))             { s.Touches().Tap = fn }
func (s *Sprite) SetDoubleTapCallback(fn func(mgl32.Vec3))       { s.Touches().DoubleTap = fn }
func (s *Sprite) SetTapInfoCallback(fn func(touch.TapInfo) bool) { s.Touches().TapInfo = fn }
func (s *Sprite) SetSwipeCallback(fn func(mgl32.Vec3))           { s.Touches().Swipe = fn }
func (s *Sprite) SetTouchCallback(fn func(touch.Info))           { s.Touches().Touch = fn }

// SetDragDestinationCallback reports drags of s over drop targets.
func (s *Sprite) SetDragDestinationCallback(fn func(touch.DragDestinationInfo)) {
	s.Touches().DragDestination = fn
}

// AcceptDrops makes s a drag destination. fn sees every drag phase over s.
func (s *Sprite) AcceptDrops(fn func(touch.DragDestinationInfo)) {
	s.dragTarget = fn != nil
	s.onDrop = fn
}

func (s *Sprite) HandleDragDestination(info touch.DragDestinationInfo) {
	if s.onDrop != nil {
		s.onDrop(info)
	}
}

// ProcessTouchInfo feeds one finger event into the gesture process.
func (s *Sprite) ProcessTouchInfo(ti touch.Info) bool {
	if s.process == nil || s.released {
		return false
	}
	return s.process.ProcessTouchInfo(ti)
}
