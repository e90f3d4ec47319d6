package main

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ilnaes/downstream/internal/sprite"
	"github.com/ilnaes/downstream/internal/touch"
)

var (
	red   = mgl32.Vec3{0.9, 0.2, 0.2}
	white = mgl32.Vec3{1, 1, 1}
)

// buildScene creates the demo content when nothing was restored, then
// binds the touch handlers. Restored sprites are found again by blob type
// since callbacks are never persisted.
func buildScene(e *sprite.Engine, log *slog.Logger) {
	if e.Len() == 0 {
		bin := e.NewSprite(nil)
		bin.SetSize(200, 200)
		bin.SetPosition(mgl32.Vec3{800, 400, 0})
		bin.SetColor(mgl32.Vec3{0.2, 0.2, 0.2})

		ball := e.NewCircle(nil, 40)
		ball.SetPosition(mgl32.Vec3{200, 200, 0})

		board := e.NewCanvas(nil, 600, 400)
		board.SetPosition(mgl32.Vec3{100, 400, 0})
		board.SetBrush(white, 4)

		clip := e.NewVideo(nil, "media/intro.mp4")
		clip.SetSize(320, 180)
		clip.SetPosition(mgl32.Vec3{800, 100, 0})
		clip.SetLooping(true)

		label := e.NewText(nil, "drop the ball into the bin")
		label.SetPosition(mgl32.Vec3{100, 50, 0})
		label.SetFont("sans", 24)
	}

	var label *sprite.Text
	e.Walk(func(s *sprite.Sprite) {
		if t, ok := sprite.As[*sprite.Text](s); ok {
			label = t
		}
	})

	e.Walk(func(s *sprite.Sprite) {
		switch s.BlobType() {
		case sprite.CircleBlob:
			ball, _ := sprite.As[*sprite.Circle](s)
			bindBall(ball)
		case sprite.CanvasBlob:
			board, _ := sprite.As[*sprite.Canvas](s)
			bindBoard(board)
		case sprite.VideoBlob:
			clip, _ := sprite.As[*sprite.Video](s)
			bindClip(clip)
		case sprite.SpriteBlob:
			bindBin(s, label, log)
		}
	})
}

func bindBall(ball *sprite.Circle) {
	ball.EnableMultiTouch(touch.CanScaleRotatePosition)
	ball.SetTapCallback(func(mgl32.Vec3) {
		if ball.Color() == red {
			ball.SetColor(white)
		} else {
			ball.SetColor(red)
		}
	})
	ball.SetSwipeCallback(func(dir mgl32.Vec3) {
		ball.Move(dir.Mul(10))
	})
}

func bindBoard(board *sprite.Canvas) {
	var stroke []mgl32.Vec2
	board.SetTouchCallback(func(ti touch.Info) {
		l := board.GlobalToLocal(ti.Current)
		stroke = append(stroke, l.Vec2())
		if ti.Phase == touch.Removed || len(stroke) == sprite.MaxStrokePoints {
			board.Draw(stroke...)
			stroke = stroke[:0]
		}
	})
	board.SetDoubleTapCallback(func(mgl32.Vec3) { board.Clear() })
}

func bindClip(clip *sprite.Video) {
	clip.SetTapCallback(func(mgl32.Vec3) {
		if clip.Status() == sprite.Playing {
			clip.Pause()
		} else {
			clip.Play()
		}
	})
}

func bindBin(bin *sprite.Sprite, label *sprite.Text, log *slog.Logger) {
	drops := 0
	bin.AcceptDrops(func(info touch.DragDestinationInfo) {
		switch info.Phase {
		case touch.DragEntered:
			bin.SetOpacity(0.6)
		case touch.DragExited:
			bin.SetOpacity(1)
		case touch.DragReleased:
			bin.SetOpacity(1)
			if s, ok := info.Dragged.(interface{ Release() }); ok {
				drops++
				log.Info("dropped into bin", "drops", drops)
				s.Release()
				if label != nil {
					label.SetText(fmt.Sprintf("%d in the bin", drops))
				}
			}
		}
	})
}
