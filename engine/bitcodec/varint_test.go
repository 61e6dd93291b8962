package bitcodec

import (
	"math"
	"math/bits"
	"math/rand"
	"testing"

	"github.com/bmizerany/assert"
)

func TestVarUintRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 6, 7, 127, 128, 1<<33 - 1, math.MaxUint64} {
		buf := EncodeVarUint(n)
		assert.Tf(t, len(buf) == bits.Len64(n)/7+1, "%d encoded in %d bytes", n, len(buf))
		got, consumed, err := DecodeVarUint(buf)
		assert.T(t, err == nil, err)
		assert.Equal(t, n, got)
		assert.Equal(t, len(buf), consumed)
	}
	assert.Equal(t, MAX_VARUINT_BYTES, len(EncodeVarUint(math.MaxUint64)))
	assert.Equal(t, []byte{0x01}, EncodeVarUint(0))
}

func TestVarUintTrailingBytes(t *testing.T) {
	buf := append(EncodeVarUint(300), 0xff, 0xff)
	got, consumed, err := DecodeVarUint(buf)
	assert.T(t, err == nil, err)
	assert.Equal(t, uint64(300), got)
	assert.Equal(t, 2, consumed)
}

func TestVarUintErrors(t *testing.T) {
	_, _, err := DecodeVarUint(nil)
	assert.T(t, err != nil, "empty buffer should fail")
	_, _, err = DecodeVarUint([]byte{0x00})
	assert.T(t, err != nil, "missing prefix should fail")
	_, _, err = DecodeVarUint([]byte{0x07, 0x00})
	assert.T(t, err != nil, "3 byte prefix in 2 bytes should fail")
	_, _, err = DecodeVarUint([]byte{0xff})
	assert.T(t, err != nil, "unterminated prefix should fail")
}

func TestBitVectorRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	sets := []*BitSet{
		BitSetOf(),
		BitSetOf(0),
		BitSetOf(5),
		BitSetOf(6),
		BitSetOf(0, 1, 2, 63, 64, 200),
	}
	for i := 0; i < 100; i++ {
		bs := NewBitSet(512)
		for j := r.Intn(20); j > 0; j-- {
			assert.T(t, bs.Set(r.Intn(512)) == nil)
		}
		sets = append(sets, bs)
	}

	for _, bs := range sets {
		buf := EncodeBitVector(bs)
		assert.Equal(t, byteCountForPayloadBits(bs.Len()), len(buf))
		got, n, err := DecodeBitVector(buf, 512)
		assert.T(t, err == nil, err)
		assert.Equal(t, len(buf), n)
		assert.Tf(t, got.Equal(bs), "%s decoded as %s", bs, got)
	}
}

func TestBitVectorCapacity(t *testing.T) {
	buf := EncodeBitVector(BitSetOf(100))
	_, _, err := DecodeBitVector(buf, 64)
	assert.T(t, err != nil, "flag beyond capacity should fail")
}
