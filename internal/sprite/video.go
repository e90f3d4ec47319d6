package sprite

import (
	"time"

	"github.com/ilnaes/downstream/internal/common"
)

var VideoBlob = common.BlobType("video")

type PlaybackStatus byte

const (
	Stopped PlaybackStatus = iota
	Playing
	Paused
)

func (p PlaybackStatus) String() string {
	switch p {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

var (
	VideoPathDirty     = InternalADirty
	VideoStatusDirty   = InternalBDirty
	VideoPositionDirty = InternalCDirty
	VideoVolumeDirty   = InternalDDirty
	VideoLoopingDirty  = InternalEDirty
	VideoSpeedDirty    = InternalFDirty
)

const (
	videoPathAtt = firstSubclassAtt + iota
	videoStatusAtt
	videoPositionAtt
	videoVolumeAtt
	videoLoopingAtt
	videoSpeedAtt
)

// Video replicates the playback state of a media sprite. Renderers decode
// the file themselves and seek when the position changes.
type Video struct {
	*Sprite
	path     string
	status   PlaybackStatus
	position float64 // seconds
	volume   float32
	looping  bool
	speed    float32
}

func (e *Engine) NewVideo(parent *Sprite, path string) *Video {
	v, _ := As[*Video](e.spawn(VideoBlob, parent))
	v.SetPath(path)
	return v
}

func wrapVideo(s *Sprite) {
	v := &Video{Sprite: s, volume: 1, speed: 1}
	s.self = v
	s.AddCodec(Codec{Write: v.write, Read: v.read})
}

func (v *Video) Path() string           { return v.path }
func (v *Video) Status() PlaybackStatus { return v.status }
func (v *Video) Volume() float32        { return v.volume }
func (v *Video) Looping() bool          { return v.looping }
func (v *Video) Speed() float32         { return v.speed }

func (v *Video) PlaybackPosition() time.Duration {
	return time.Duration(v.position * float64(time.Second))
}

func (v *Video) SetPath(p string) {
	if v.path == p {
		return
	}
	v.path = p
	v.MarkAsDirty(VideoPathDirty)
	v.Seek(0)
}

func (v *Video) setStatus(st PlaybackStatus) {
	if v.status == st {
		return
	}
	v.status = st
	v.MarkAsDirty(VideoStatusDirty)
}

func (v *Video) Play()  { v.setStatus(Playing) }
func (v *Video) Pause() { v.setStatus(Paused) }

func (v *Video) Stop() {
	v.setStatus(Stopped)
	v.Seek(0)
}

func (v *Video) Seek(at time.Duration) {
	pos := at.Seconds()
	if v.position == pos {
		return
	}
	v.position = pos
	v.MarkAsDirty(VideoPositionDirty)
}

func (v *Video) SetVolume(vol float32) {
	vol = min(max(vol, 0), 1)
	if v.volume == vol {
		return
	}
	v.volume = vol
	v.MarkAsDirty(VideoVolumeDirty)
}

func (v *Video) SetLooping(on bool) {
	if v.looping == on {
		return
	}
	v.looping = on
	v.MarkAsDirty(VideoLoopingDirty)
}

func (v *Video) SetSpeed(speed float32) {
	if v.speed == speed {
		return
	}
	v.speed = speed
	v.MarkAsDirty(VideoSpeedDirty)
}

func (v *Video) write(buf *common.Buffer, mask common.BitMask) {
	if mask.Has(VideoPathDirty) {
		buf.AddByte(videoPathAtt)
		buf.AddString(v.path)
	}
	if mask.Has(VideoStatusDirty) {
		buf.AddByte(videoStatusAtt)
		buf.AddByte(byte(v.status))
	}
	if mask.Has(VideoPositionDirty) {
		buf.AddByte(videoPositionAtt)
		buf.AddFloat64(v.position)
	}
	if mask.Has(VideoVolumeDirty) {
		buf.AddByte(videoVolumeAtt)
		buf.AddFloat32(v.volume)
	}
	if mask.Has(VideoLoopingDirty) {
		buf.AddByte(videoLoopingAtt)
		buf.AddBool(v.looping)
	}
	if mask.Has(VideoSpeedDirty) {
		buf.AddByte(videoSpeedAtt)
		buf.AddFloat32(v.speed)
	}
}

func (v *Video) read(att byte, buf *common.Buffer) (bool, error) {
	var err error
	switch att {
	case videoPathAtt:
		v.path, err = buf.ReadString()
	case videoStatusAtt:
		var b byte
		b, err = buf.ReadByte()
		v.status = PlaybackStatus(b)
	case videoPositionAtt:
		v.position, err = buf.ReadFloat64()
	case videoVolumeAtt:
		v.volume, err = buf.ReadFloat32()
	case videoLoopingAtt:
		v.looping, err = buf.ReadBool()
	case videoSpeedAtt:
		v.speed, err = buf.ReadFloat32()
	default:
		return false, nil
	}
	return true, err
}
