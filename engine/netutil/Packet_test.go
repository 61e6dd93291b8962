package netutil

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/goavatar/goavatar/engine/common"
)

func TestPacketRoundTrip(t *testing.T) {
	p := NewPacket()
	defer p.Release()

	id := common.GenSessionID()
	p.AppendByte(7)
	p.AppendBool(true)
	p.AppendUint16(0xfffe)
	p.AppendUint32(123456789)
	p.AppendUint64(1 << 40)
	p.AppendFloat32(3.25)
	p.AppendVarStr("avatar")
	p.AppendVarUint(300)
	p.AppendSessionID(id)
	assert.Equal(t, nil, p.AppendData([]string{"a", "b"}))
	assert.Equal(t, false, p.Overflowed())

	r := NewPacketFromPayload(p.Payload())
	defer r.Release()
	assert.Equal(t, byte(7), r.ReadOneByte())
	assert.Equal(t, true, r.ReadBool())
	assert.Equal(t, uint16(0xfffe), r.ReadUint16())
	assert.Equal(t, uint32(123456789), r.ReadUint32())
	assert.Equal(t, uint64(1<<40), r.ReadUint64())
	assert.Equal(t, float32(3.25), r.ReadFloat32())
	assert.Equal(t, "avatar", r.ReadVarStr())
	assert.Equal(t, uint64(300), r.ReadVarUint())
	assert.Equal(t, id, r.ReadSessionID())
	var strs []string
	assert.Equal(t, nil, r.ReadData(&strs))
	assert.Equal(t, []string{"a", "b"}, strs)
	assert.Equal(t, false, r.HasUnreadPayload())
	assert.Equal(t, nil, r.ReadError())
}

func TestPacketOverflow(t *testing.T) {
	p := NewBoundedPacket(6)
	defer p.Release()

	p.AppendUint32(1)
	assert.Equal(t, false, p.Overflowed())
	p.AppendUint32(2)
	assert.Equal(t, true, p.Overflowed())
	assert.Equal(t, 4, p.GetPayloadLen())
	// once overflowed, even a fitting write is dropped
	p.AppendByte(1)
	assert.Equal(t, 4, p.GetPayloadLen())

	p.ClearPayload()
	assert.Equal(t, false, p.Overflowed())
	p.AppendUint16(1)
	p.AppendUint32(2)
	assert.Equal(t, 6, p.GetPayloadLen())
	assert.Equal(t, false, p.Overflowed())
	p.Truncate(2)
	assert.Equal(t, 2, p.GetPayloadLen())
}

func TestPacketShortRead(t *testing.T) {
	r := NewPacketFromPayload([]byte{1, 2, 3})
	defer r.Release()

	assert.Equal(t, uint16(0x0201), r.ReadUint16())
	assert.Equal(t, uint32(0), r.ReadUint32())
	assert.Equal(t, ErrShortRead, r.ReadError())
	// sticky: the remaining byte is not readable either
	assert.Equal(t, byte(0), r.ReadOneByte())
	assert.Equal(t, false, r.HasUnreadPayload())
}

func TestPacketVarBytesTooLong(t *testing.T) {
	w := NewPacket()
	defer w.Release()
	w.AppendVarUint(1000)
	w.AppendBytes([]byte("short"))

	r := NewPacketFromPayload(w.Payload())
	defer r.Release()
	assert.Equal(t, 0, len(r.ReadVarBytes()))
	assert.NotEqual(t, nil, r.ReadError())
}

func TestPacketReleaseResets(t *testing.T) {
	p := NewBoundedPacket(1)
	p.AppendUint32(1)
	assert.Equal(t, true, p.Overflowed())
	p.Release()

	p = NewBoundedPacket(8)
	defer p.Release()
	assert.Equal(t, false, p.Overflowed())
	assert.Equal(t, 0, p.GetPayloadLen())
	assert.Equal(t, 8, p.Limit())
}
