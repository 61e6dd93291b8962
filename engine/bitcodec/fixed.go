package bitcodec

import (
	"encoding/binary"
	"math"

	"github.com/goavatar/goavatar/engine/vmath"
)

const (
	// SMALL_LIMIT is the magnitude below which clip values and ratios keep fine resolution
	SMALL_LIMIT = 10
	// LARGE_LIMIT is the largest ratio representable with coarse resolution
	LARGE_LIMIT = 1000
)

// PackFloatScalarToSignedTwoByteFixed stores value * 2^radix as an int16, clamped to its range
func PackFloatScalarToSignedTwoByteFixed(buf []byte, value float32, radix uint) int {
	fixed := math.Round(float64(value) * float64(uint32(1)<<radix))
	fixed = clampFloat(fixed, math.MinInt16, math.MaxInt16)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(int16(fixed)))
	return 2
}

// UnpackFloatScalarFromSignedTwoByteFixed reverses PackFloatScalarToSignedTwoByteFixed
func UnpackFloatScalarFromSignedTwoByteFixed(buf []byte, radix uint) (float32, int) {
	fixed := int16(binary.LittleEndian.Uint16(buf[0:2]))
	return float32(float64(fixed) / float64(uint32(1)<<radix)), 2
}

// PackFloatVec3ToSignedTwoByteFixed packs x, y, z at consecutive offsets
func PackFloatVec3ToSignedTwoByteFixed(buf []byte, v vmath.Vector3, radix uint) int {
	n := PackFloatScalarToSignedTwoByteFixed(buf, v.X, radix)
	n += PackFloatScalarToSignedTwoByteFixed(buf[n:], v.Y, radix)
	n += PackFloatScalarToSignedTwoByteFixed(buf[n:], v.Z, radix)
	return n
}

// UnpackFloatVec3FromSignedTwoByteFixed reverses PackFloatVec3ToSignedTwoByteFixed
func UnpackFloatVec3FromSignedTwoByteFixed(buf []byte, radix uint) (vmath.Vector3, int) {
	var v vmath.Vector3
	var n, m int
	v.X, m = UnpackFloatScalarFromSignedTwoByteFixed(buf, radix)
	n += m
	v.Y, m = UnpackFloatScalarFromSignedTwoByteFixed(buf[n:], radix)
	n += m
	v.Z, m = UnpackFloatScalarFromSignedTwoByteFixed(buf[n:], radix)
	n += m
	return v, n
}

// PackFloatAngleToTwoByte maps degrees in [-180, 180) linearly onto a uint16
func PackFloatAngleToTwoByte(buf []byte, degrees float32) int {
	d := math.Mod(float64(degrees)+180, 360)
	if d < 0 {
		d += 360
	}
	holder := math.Floor(d * (math.MaxUint16 / 360.0))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(holder))
	return 2
}

// UnpackFloatAngleFromTwoByte reverses PackFloatAngleToTwoByte
func UnpackFloatAngleFromTwoByte(buf []byte) (float32, int) {
	holder := binary.LittleEndian.Uint16(buf[0:2])
	return float32(float64(holder)/math.MaxUint16*360 - 180), 2
}

// PackClipValueToTwoByte packs a non-negative clip distance
//
// Values below SMALL_LIMIT are stored as positive fixed point over [0, SMALL_LIMIT]; larger
// values are stored negated with whole unit resolution.
func PackClipValueToTwoByte(buf []byte, clip float32) int {
	var holder int16
	c := clampFloat(float64(clip), 0, math.MaxInt16)
	if c < SMALL_LIMIT {
		holder = int16(math.Floor(c * (math.MaxInt16 / float64(SMALL_LIMIT))))
	} else {
		holder = -int16(math.Floor(c))
	}
	binary.LittleEndian.PutUint16(buf[0:2], uint16(holder))
	return 2
}

// UnpackClipValueFromTwoByte reverses PackClipValueToTwoByte
func UnpackClipValueFromTwoByte(buf []byte) (float32, int) {
	holder := int16(binary.LittleEndian.Uint16(buf[0:2]))
	if holder >= 0 {
		return float32(float64(holder) / (math.MaxInt16 / float64(SMALL_LIMIT))), 2
	}
	return float32(-int32(holder)), 2
}

// PackFloatRatioToTwoByte packs a non-negative ratio up to LARGE_LIMIT
//
// Ratios below SMALL_LIMIT are stored as positive fixed point; ratios in
// [SMALL_LIMIT, LARGE_LIMIT] are stored in the negative half with coarser steps.
func PackFloatRatioToTwoByte(buf []byte, ratio float32) int {
	var holder int16
	r := clampFloat(float64(ratio), 0, LARGE_LIMIT)
	if r < SMALL_LIMIT {
		holder = int16(math.Round(r / SMALL_LIMIT * math.MaxInt16))
		if holder < 0 {
			holder = 0
		}
	} else {
		holder = -1 - int16(math.Round((r-SMALL_LIMIT)/(LARGE_LIMIT-SMALL_LIMIT)*math.MaxInt16))
	}
	binary.LittleEndian.PutUint16(buf[0:2], uint16(holder))
	return 2
}

// UnpackFloatRatioFromTwoByte reverses PackFloatRatioToTwoByte
func UnpackFloatRatioFromTwoByte(buf []byte) (float32, int) {
	holder := int16(binary.LittleEndian.Uint16(buf[0:2]))
	if holder >= 0 {
		return float32(float64(holder) / math.MaxInt16 * SMALL_LIMIT), 2
	}
	steps := float64(-1 - int32(holder))
	return float32(SMALL_LIMIT + steps/math.MaxInt16*(LARGE_LIMIT-SMALL_LIMIT)), 2
}
