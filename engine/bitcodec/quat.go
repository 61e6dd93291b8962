package bitcodec

import (
	"encoding/binary"
	"math"

	"github.com/goavatar/goavatar/engine/vmath"
)

const (
	// QUAT_SIX_BYTES is the size of a smallest-three packed quaternion
	QUAT_SIX_BYTES = 6
	// QUAT_EIGHT_BYTES is the size of a component-wise packed quaternion
	QUAT_EIGHT_BYTES = 8

	_QUAT_BITS_PER_COMPONENT = 15
	_QUAT_COMPONENT_RANGE    = (1 << _QUAT_BITS_PER_COMPONENT) - 1
	_QUAT_PART_RATIO         = math.MaxUint16 / 2.0
)

var quatMagnitude = 1.0 / math.Sqrt2

// PackOrientationQuatToSixBytes packs a unit quaternion using the smallest three components
//
// The largest component is dropped and its index stored in the top bits of the first two words.
// The quaternion is negated when the dropped component is positive, so the decoder always
// rebuilds it as a non-positive value.
func PackOrientationQuatToSixBytes(buf []byte, q vmath.Quat) int {
	largest := 0
	for i := 1; i < 4; i++ {
		if math.Abs(float64(q.Component(i))) > math.Abs(float64(q.Component(largest))) {
			largest = i
		}
	}
	if q.Component(largest) > 0 {
		q = q.Neg()
	}

	var words [3]uint16
	j := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		v := (float64(q.Component(i)) + quatMagnitude) / (2 * quatMagnitude)
		words[j] = uint16(math.Round(clampFloat(v, 0, 1) * _QUAT_COMPONENT_RANGE))
		j++
	}

	words[0] = (0x7fff & words[0]) | uint16(0x01&largest)<<15
	words[1] = (0x7fff & words[1]) | uint16(0x02&largest)<<14

	binary.BigEndian.PutUint16(buf[0:2], words[0])
	binary.BigEndian.PutUint16(buf[2:4], words[1])
	binary.BigEndian.PutUint16(buf[4:6], words[2])
	return QUAT_SIX_BYTES
}

// UnpackOrientationQuatFromSixBytes reverses PackOrientationQuatToSixBytes
func UnpackOrientationQuatFromSixBytes(buf []byte) (vmath.Quat, int) {
	w0 := binary.BigEndian.Uint16(buf[0:2])
	w1 := binary.BigEndian.Uint16(buf[2:4])
	w2 := binary.BigEndian.Uint16(buf[4:6])

	largest := int(w0>>15) | int(w1>>15)<<1

	var values [3]float64
	var sumSquares float64
	for i, w := range [3]uint16{w0 & 0x7fff, w1 & 0x7fff, w2} {
		values[i] = float64(w)/_QUAT_COMPONENT_RANGE*(2*quatMagnitude) - quatMagnitude
		sumSquares += values[i] * values[i]
	}
	// the dropped component is always non-positive
	missing := -math.Sqrt(math.Max(0, 1-sumSquares))

	var q vmath.Quat
	j := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			q.SetComponent(i, float32(missing))
		} else {
			q.SetComponent(i, float32(values[j]))
			j++
		}
	}
	return q, QUAT_SIX_BYTES
}

// PackOrientationQuatToBytes packs each component of the quaternion from [-1, 1] to a uint16
func PackOrientationQuatToBytes(buf []byte, q vmath.Quat) int {
	for i := 0; i < 4; i++ {
		v := math.Floor((clampFloat(float64(q.Component(i)), -1, 1) + 1) * _QUAT_PART_RATIO)
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(v))
	}
	return QUAT_EIGHT_BYTES
}

// UnpackOrientationQuatFromBytes reverses PackOrientationQuatToBytes
func UnpackOrientationQuatFromBytes(buf []byte) (vmath.Quat, int) {
	var q vmath.Quat
	for i := 0; i < 4; i++ {
		part := binary.LittleEndian.Uint16(buf[i*2 : i*2+2])
		q.SetComponent(i, float32(float64(part)/_QUAT_PART_RATIO-1))
	}
	return q, QUAT_EIGHT_BYTES
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
