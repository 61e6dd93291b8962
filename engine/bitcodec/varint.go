package bitcodec

import (
	"math/bits"

	"github.com/pkg/errors"
)

// MAX_VARUINT_BYTES is the encoded size of the largest uint64
const MAX_VARUINT_BYTES = 10

var (
	// ErrTruncated is returned when a unary prefixed bitstream is longer than the buffer
	ErrTruncated = errors.New("bitstream truncated")
	// ErrMalformed is returned when a unary prefixed bitstream has no length prefix
	ErrMalformed = errors.New("bitstream has no length prefix")
)

// The byte-count coded bitstream:
//
//	bit 0 .. k-1   1-bits, k = number of bytes of the whole stream
//	bit k          0-bit terminator
//	bit k+1 ..     payload, least significant bit first, up to the byte aligned end
//
// Bit i of the stream is bit (i%8) of byte i/8. A stream of k bytes carries 7k-1 payload bits.

func byteCountForPayloadBits(payloadBits int) int {
	return payloadBits/7 + 1
}

func encodeUnaryPrefixed(payloadBits int, bitAt func(i int) bool) []byte {
	n := byteCountForPayloadBits(payloadBits)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i/8] |= 1 << uint(i%8)
	}
	// bit n is the terminator and already zero
	for i := 0; i < payloadBits; i++ {
		if bitAt(i) {
			pos := n + 1 + i
			out[pos/8] |= 1 << uint(pos%8)
		}
	}
	return out
}

// decodeUnaryPrefixed parses the length prefix and hands every set payload bit to consume
//
// It is shared by the integer and flag codecs, which only differ in how payload bits are
// accumulated.
func decodeUnaryPrefixed(buf []byte, consume func(payloadBit int) error) (int, error) {
	totalBits := len(buf) * 8
	n := 0
	for n < totalBits && buf[n/8]&(1<<uint(n%8)) != 0 {
		n++
	}
	if n == 0 {
		return 0, ErrMalformed
	}
	if n > len(buf) || n == totalBits {
		return 0, ErrTruncated
	}
	for pos := n + 1; pos < n*8; pos++ {
		if buf[pos/8]&(1<<uint(pos%8)) != 0 {
			if err := consume(pos - n - 1); err != nil {
				return 0, err
			}
		}
	}
	return n, nil
}

// EncodeVarUint encodes n as a byte-count coded integer
//
// A value needing v significant bits takes v/7+1 bytes.
func EncodeVarUint(n uint64) []byte {
	return encodeUnaryPrefixed(bits.Len64(n), func(i int) bool {
		return n&(1<<uint(i)) != 0
	})
}

// DecodeVarUint decodes a byte-count coded integer and returns the number of bytes consumed
func DecodeVarUint(buf []byte) (uint64, int, error) {
	var value uint64
	n, err := decodeUnaryPrefixed(buf, func(bit int) error {
		if bit >= 64 {
			return errors.Errorf("varuint payload bit %d overflows uint64", bit)
		}
		value |= 1 << uint(bit)
		return nil
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, "decode varuint")
	}
	return value, n, nil
}

// EncodeBitVector encodes the flags of bs as a byte-count coded bitstream
func EncodeBitVector(bs *BitSet) []byte {
	return encodeUnaryPrefixed(bs.Len(), bs.Test)
}

// DecodeBitVector decodes a bitstream written by EncodeBitVector into a BitSet of given capacity
func DecodeBitVector(buf []byte, capacity int) (*BitSet, int, error) {
	bs := NewBitSet(capacity)
	n, err := decodeUnaryPrefixed(buf, bs.Set)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decode bit vector")
	}
	return bs, n, nil
}
