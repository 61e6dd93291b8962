package bitcodec

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestBitSet(t *testing.T) {
	bs := NewBitSet(128)
	assert.Equal(t, 0, bs.Len())
	assert.T(t, !bs.Any())

	assert.T(t, bs.Set(3) == nil)
	assert.T(t, bs.Set(70) == nil)
	assert.T(t, bs.Test(3))
	assert.T(t, bs.Test(70))
	assert.T(t, !bs.Test(4))
	assert.T(t, !bs.Test(1000))
	assert.Equal(t, 71, bs.Len())
	assert.Equal(t, 2, bs.Count())
	assert.Equal(t, []int{3, 70}, bs.Indices())
	assert.Equal(t, "{3, 70}", bs.String())

	assert.T(t, bs.Set(128) != nil, "set beyond capacity should fail")
	assert.T(t, bs.Set(-1) != nil, "negative index should fail")

	c := bs.Clone()
	bs.Clear(70)
	assert.Equal(t, 4, bs.Len())
	assert.T(t, c.Test(70), "clone should be independent")
	assert.T(t, !bs.Equal(c))

	bs.Reset()
	assert.Equal(t, 0, bs.Count())
	assert.T(t, bs.Equal(NewBitSet(8)), "empty sets are equal regardless of capacity")
}
