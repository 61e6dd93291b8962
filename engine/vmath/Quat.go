package vmath

import (
	"fmt"
	"math"
)

// Quat is a rotation quaternion
type Quat struct {
	X float32
	Y float32
	Z float32
	W float32
}

// IdentityQuat is the rotation that does nothing
var IdentityQuat = Quat{0, 0, 0, 1}

func (q Quat) String() string {
	return fmt.Sprintf("quat(%.4f, %.4f, %.4f, %.4f)", q.X, q.Y, q.Z, q.W)
}

// Component returns the i-th component in x, y, z, w order
func (q Quat) Component(i int) float32 {
	switch i {
	case 0:
		return q.X
	case 1:
		return q.Y
	case 2:
		return q.Z
	default:
		return q.W
	}
}

// SetComponent sets the i-th component in x, y, z, w order
func (q *Quat) SetComponent(i int, v float32) {
	switch i {
	case 0:
		q.X = v
	case 1:
		q.Y = v
	case 2:
		q.Z = v
	default:
		q.W = v
	}
}

// Neg returns -q, which represents the same rotation
func (q Quat) Neg() Quat {
	return Quat{-q.X, -q.Y, -q.Z, -q.W}
}

// Dot returns the 4D dot product of two quaternions
func (q Quat) Dot(o Quat) float32 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Normalized returns the unit length copy of the quaternion
func (q Quat) Normalized() Quat {
	d := float32(math.Sqrt(float64(q.Dot(q))))
	if d == 0 {
		return IdentityQuat
	}
	return Quat{q.X / d, q.Y / d, q.Z / d, q.W / d}
}

// FromAxisAngle builds the rotation of angle radians around axis
func FromAxisAngle(axis Vector3, angle float64) Quat {
	axis.Normalize()
	s := float32(math.Sin(angle / 2))
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, float32(math.Cos(angle / 2))}
}

// SameRotation reports if two quaternions represent the same rotation within epsilon
func (q Quat) SameRotation(o Quat, epsilon float32) bool {
	d := q.Dot(o)
	if d < 0 {
		d = -d
	}
	return 1-d <= epsilon
}
