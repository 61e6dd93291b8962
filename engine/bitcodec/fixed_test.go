package bitcodec

import (
	"math"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/goavatar/goavatar/engine/vmath"
)

func TestFixedScalar(t *testing.T) {
	buf := make([]byte, 2)
	for _, v := range []float32{0, 0.5, -0.5, 1.25, -1.999} {
		PackFloatScalarToSignedTwoByteFixed(buf, v, 14)
		got, n := UnpackFloatScalarFromSignedTwoByteFixed(buf, 14)
		assert.Equal(t, 2, n)
		assert.Tf(t, math.Abs(float64(got-v)) <= 1.0/(1<<14), "%v decoded as %v", v, got)
	}

	// clamped to the int16 range
	PackFloatScalarToSignedTwoByteFixed(buf, 100, 14)
	got, _ := UnpackFloatScalarFromSignedTwoByteFixed(buf, 14)
	assert.Equal(t, float32(math.MaxInt16)/(1<<14), got)
	PackFloatScalarToSignedTwoByteFixed(buf, -100, 14)
	got, _ = UnpackFloatScalarFromSignedTwoByteFixed(buf, 14)
	assert.Equal(t, float32(-2), got)
}

func TestFixedVec3(t *testing.T) {
	buf := make([]byte, 6)
	v := vmath.Vector3{X: 0.25, Y: -1.5, Z: 1}
	assert.Equal(t, 6, PackFloatVec3ToSignedTwoByteFixed(buf, v, 12))
	got, n := UnpackFloatVec3FromSignedTwoByteFixed(buf, 12)
	assert.Equal(t, 6, n)
	assert.Equal(t, v, got)
}

func TestAngle(t *testing.T) {
	buf := make([]byte, 2)
	step := 360.0 / math.MaxUint16
	for _, d := range []float32{-180, -90, 0, 45.5, 179.9} {
		PackFloatAngleToTwoByte(buf, d)
		got, _ := UnpackFloatAngleFromTwoByte(buf)
		assert.Tf(t, math.Abs(float64(got-d)) <= step, "%v decoded as %v", d, got)
	}
	// 180 wraps to -180
	PackFloatAngleToTwoByte(buf, 180)
	got, _ := UnpackFloatAngleFromTwoByte(buf)
	assert.Tf(t, math.Abs(float64(got+180)) <= step, "180 decoded as %v", got)
}

func TestClipValue(t *testing.T) {
	buf := make([]byte, 2)
	for _, c := range []float32{0, 0.1, 1, 9.99} {
		PackClipValueToTwoByte(buf, c)
		got, _ := UnpackClipValueFromTwoByte(buf)
		assert.Tf(t, math.Abs(float64(got-c)) <= 0.001, "%v decoded as %v", c, got)
	}
	for _, c := range []float32{10, 250.7, 1000, 16384} {
		PackClipValueToTwoByte(buf, c)
		got, _ := UnpackClipValueFromTwoByte(buf)
		assert.Tf(t, math.Abs(float64(got-c)) < 1, "%v decoded as %v", c, got)
	}
}

func TestRatio(t *testing.T) {
	buf := make([]byte, 2)
	for _, r := range []float32{0, 0.005, 1, 5.5, 9.999} {
		PackFloatRatioToTwoByte(buf, r)
		got, _ := UnpackFloatRatioFromTwoByte(buf)
		assert.Tf(t, math.Abs(float64(got-r)) <= 0.001, "%v decoded as %v", r, got)
	}
	for _, r := range []float32{10, 100, 999, 1000} {
		PackFloatRatioToTwoByte(buf, r)
		got, _ := UnpackFloatRatioFromTwoByte(buf)
		assert.Tf(t, math.Abs(float64(got-r)) <= 0.05, "%v decoded as %v", r, got)
	}
	// never bounded below 1000:1
	PackFloatRatioToTwoByte(buf, 5000)
	got, _ := UnpackFloatRatioFromTwoByte(buf)
	assert.Tf(t, math.Abs(float64(got-LARGE_LIMIT)) <= 0.05, "5000 decoded as %v", got)
}
