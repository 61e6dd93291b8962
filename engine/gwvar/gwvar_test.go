package gwvar

import (
	"expvar"
	"testing"

	"github.com/bmizerany/assert"
)

func TestBool(t *testing.T) {
	b := NewBool("TestBool")
	assert.Equal(t, false, b.Value())
	b.Set(true)
	assert.Equal(t, true, b.Value())
	assert.Equal(t, "1", expvar.Get("TestBool").String())
	b.Set(false)
	assert.Equal(t, false, b.Value())
}
