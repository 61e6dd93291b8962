package bitcodec

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/goavatar/goavatar/engine/consts"
	"github.com/pkg/errors"
)

// BitSet is an ordered set of boolean flags indexed by small integers
//
// It grows on write up to an explicit capacity. It is used both as an in-memory "which fields
// are dirty/present" marker and as the payload of the bit vector codec.
type BitSet struct {
	words    []uint64
	capacity int
}

// NewBitSet creates an empty BitSet that can hold flags [0, capacity)
func NewBitSet(capacity int) *BitSet {
	if capacity <= 0 || capacity > consts.MAX_BITSET_CAPACITY {
		capacity = consts.MAX_BITSET_CAPACITY
	}
	return &BitSet{capacity: capacity}
}

// BitSetOf creates a BitSet of default capacity with the given flags set
func BitSetOf(indices ...int) *BitSet {
	bs := NewBitSet(consts.MAX_BITSET_CAPACITY)
	for _, i := range indices {
		if err := bs.Set(i); err != nil {
			panic(err)
		}
	}
	return bs
}

// Capacity returns the number of flags the BitSet can hold
func (bs *BitSet) Capacity() int {
	return bs.capacity
}

// Set sets flag i, growing the BitSet if needed
func (bs *BitSet) Set(i int) error {
	if i < 0 || i >= bs.capacity {
		return errors.Errorf("bit %d out of bitset capacity %d", i, bs.capacity)
	}
	w := i / 64
	if w >= len(bs.words) {
		grown := make([]uint64, w+1)
		copy(grown, bs.words)
		bs.words = grown
	}
	bs.words[w] |= 1 << uint(i%64)
	return nil
}

// Clear clears flag i
func (bs *BitSet) Clear(i int) {
	if i < 0 || i/64 >= len(bs.words) {
		return
	}
	bs.words[i/64] &^= 1 << uint(i%64)
}

// Test returns if flag i is set
func (bs *BitSet) Test(i int) bool {
	if bs == nil || i < 0 || i/64 >= len(bs.words) {
		return false
	}
	return bs.words[i/64]&(1<<uint(i%64)) != 0
}

// Reset clears all flags
func (bs *BitSet) Reset() {
	bs.words = bs.words[:0]
}

// Len returns the index of the highest set flag plus one
func (bs *BitSet) Len() int {
	if bs == nil {
		return 0
	}
	for w := len(bs.words) - 1; w >= 0; w-- {
		if bs.words[w] != 0 {
			return w*64 + 64 - bits.LeadingZeros64(bs.words[w])
		}
	}
	return 0
}

// Count returns the number of set flags
func (bs *BitSet) Count() int {
	if bs == nil {
		return 0
	}
	n := 0
	for _, w := range bs.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Any returns if any flag is set
func (bs *BitSet) Any() bool {
	return bs.Count() > 0
}

// Indices returns the set flags in ascending order
func (bs *BitSet) Indices() []int {
	var res []int
	bs.ForEach(func(i int) {
		res = append(res, i)
	})
	return res
}

// ForEach calls f for each set flag in ascending order
func (bs *BitSet) ForEach(f func(i int)) {
	if bs == nil {
		return
	}
	for w, word := range bs.words {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			f(w*64 + b)
			word &^= 1 << uint(b)
		}
	}
}

// Equal returns if both BitSets have the same flags set
func (bs *BitSet) Equal(o *BitSet) bool {
	if bs.Len() != o.Len() {
		return false
	}
	n := (bs.Len() + 63) / 64
	for w := 0; w < n; w++ {
		if bs.words[w] != o.words[w] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the BitSet
func (bs *BitSet) Clone() *BitSet {
	c := &BitSet{capacity: bs.capacity, words: make([]uint64, len(bs.words))}
	copy(c.words, bs.words)
	return c
}

func (bs *BitSet) String() string {
	var b bytes.Buffer
	b.WriteString("{")
	first := true
	bs.ForEach(func(i int) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%d", i)
	})
	b.WriteString("}")
	return b.String()
}
