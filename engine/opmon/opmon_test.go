package opmon

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bmizerany/assert"
)

func TestOperation(t *testing.T) {
	for i := 0; i < 3; i++ {
		op := StartOperation("test.op")
		op.Finish(time.Hour)
	}
	info := Snapshot()["test.op"]
	assert.Equal(t, uint64(3), info.Count)

	var buf bytes.Buffer
	Dump(&buf)
	assert.T(t, strings.Contains(buf.String(), "test.op"), "dump should contain operation name")
	_, ok := Snapshot()["test.op"]
	assert.T(t, !ok, "dump should reset operation infos")
}
