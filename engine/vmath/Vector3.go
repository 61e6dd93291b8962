package vmath

import (
	"fmt"
	"math"
)

// Vector3 is a position or direction in avatar space (x, y, z)
type Vector3 struct {
	X float32
	Y float32
	Z float32
}

func (p Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// DistanceTo calculates distance between two positions
func (p Vector3) DistanceTo(o Vector3) float32 {
	return p.Sub(o).Length()
}

// Length returns the length of the vector
func (p Vector3) Length() float32 {
	return float32(math.Sqrt(float64(p.X*p.X + p.Y*p.Y + p.Z*p.Z)))
}

// Sub calculates Vector3 p - Vector3 o
func (p Vector3) Sub(o Vector3) Vector3 {
	return Vector3{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// Add calculates Vector3 p + Vector3 o
func (p Vector3) Add(o Vector3) Vector3 {
	return Vector3{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

// Mul calculates Vector3 p * m
func (p Vector3) Mul(m float32) Vector3 {
	return Vector3{p.X * m, p.Y * m, p.Z * m}
}

// Normalize scales the vector to unit length, zero vectors are left alone
func (p *Vector3) Normalize() {
	d := p.Length()
	if d == 0 {
		return
	}
	p.X /= d
	p.Y /= d
	p.Z /= d
}

// Normalized returns the unit length copy of the vector
func (p Vector3) Normalized() Vector3 {
	p.Normalize()
	return p
}
