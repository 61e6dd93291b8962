package bitcodec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/goavatar/goavatar/engine/vmath"
)

const quatTolerance = 1.0 / 16384

func randomUnitQuat(r *rand.Rand) vmath.Quat {
	q := vmath.Quat{
		X: float32(r.NormFloat64()),
		Y: float32(r.NormFloat64()),
		Z: float32(r.NormFloat64()),
		W: float32(r.NormFloat64()),
	}
	return q.Normalized()
}

func closeQuat(a, b vmath.Quat, tolerance float64) bool {
	for i := 0; i < 4; i++ {
		if math.Abs(float64(a.Component(i)-b.Component(i))) > tolerance {
			return false
		}
	}
	return true
}

func TestSixByteQuatRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	buf := make([]byte, QUAT_SIX_BYTES)
	cases := []vmath.Quat{
		vmath.IdentityQuat,
		vmath.IdentityQuat.Neg(),
		{X: 1},
		{Y: -1},
		vmath.FromAxisAngle(vmath.Vector3{X: 1, Y: 1}, math.Pi/3),
	}
	for i := 0; i < 1000; i++ {
		cases = append(cases, randomUnitQuat(r))
	}

	for _, q := range cases {
		n := PackOrientationQuatToSixBytes(buf, q)
		assert.Equal(t, QUAT_SIX_BYTES, n)
		got, m := UnpackOrientationQuatFromSixBytes(buf)
		assert.Equal(t, QUAT_SIX_BYTES, m)
		assert.Tf(t, closeQuat(got, q, quatTolerance) || closeQuat(got, q.Neg(), quatTolerance), "%v decoded as %v", q, got)

		largest := 0
		for i := 1; i < 4; i++ {
			if math.Abs(float64(q.Component(i))) > math.Abs(float64(q.Component(largest))) {
				largest = i
			}
		}
		assert.Tf(t, got.Component(largest) <= 0, "dropped component of %v should be non-positive, got %v", q, got)
	}
}

func TestEightByteQuatRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	buf := make([]byte, QUAT_EIGHT_BYTES)
	for i := 0; i < 1000; i++ {
		q := randomUnitQuat(r)
		n := PackOrientationQuatToBytes(buf, q)
		assert.Equal(t, QUAT_EIGHT_BYTES, n)
		got, _ := UnpackOrientationQuatFromBytes(buf)
		assert.Tf(t, closeQuat(got, q, quatTolerance), "%v decoded as %v", q, got)
	}
}
