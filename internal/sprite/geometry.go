package sprite

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LocalTransform maps sprite space into parent space. The normalized
// center is the pivot for rotation and scale.
func (s *Sprite) LocalTransform() mgl32.Mat4 {
	pivot := mgl32.Vec3{
		s.center[0] * s.size[0],
		s.center[1] * s.size[1],
		s.center[2] * s.size[2],
	}
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(s.rotation[0]))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(s.rotation[1]))
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(s.rotation[2]))

	return mgl32.Translate3D(s.position[0], s.position[1], s.position[2]).
		Mul4(rx).Mul4(ry).Mul4(rz).
		Mul4(mgl32.Scale3D(s.scale[0], s.scale[1], s.scale[2])).
		Mul4(mgl32.Translate3D(-pivot[0], -pivot[1], -pivot[2]))
}

func (s *Sprite) GlobalTransform() mgl32.Mat4 {
	m := s.LocalTransform()
	for p := s.parent; p != nil; p = p.parent {
		m = p.LocalTransform().Mul4(m)
	}
	return m
}

// ParentInverseTransform maps world space into the parent's space.
func (s *Sprite) ParentInverseTransform() mgl32.Mat4 {
	if s.parent == nil {
		return mgl32.Ident4()
	}
	return s.parent.GlobalTransform().Inv()
}

func (s *Sprite) GlobalToLocal(p mgl32.Vec3) mgl32.Vec3 {
	return s.GlobalTransform().Inv().Mul4x1(p.Vec4(1)).Vec3()
}

func (s *Sprite) LocalToGlobal(p mgl32.Vec3) mgl32.Vec3 {
	return s.GlobalTransform().Mul4x1(p.Vec4(1)).Vec3()
}

// Contains hit tests a world point against the sprite rectangle.
func (s *Sprite) Contains(p mgl32.Vec3) bool {
	if s.size[0] == 0 || s.size[1] == 0 {
		return false
	}
	l := s.GlobalToLocal(p)
	return l[0] >= 0 && l[0] <= s.size[0] && l[1] >= 0 && l[1] <= s.size[1]
}
