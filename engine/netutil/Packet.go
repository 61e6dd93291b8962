package netutil

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/goavatar/goavatar/engine/bitcodec"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/pkg/errors"
)

const (
	_MIN_PAYLOAD_CAP = 128
)

var (
	packetEndian = binary.LittleEndian

	// ErrPacketOverflow is returned when writing beyond the payload limit of a packet
	ErrPacketOverflow = errors.New("packet payload overflow")
	// ErrShortRead is returned when reading beyond the end of a packet payload
	ErrShortRead = errors.New("packet payload too short")

	packetPool = sync.Pool{
		New: func() interface{} {
			p := &Packet{}
			p.bytes = p.initialBytes[:0]
			return p
		},
	}
)

// Packet is a payload buffer for writing and reading avatar messages
//
// Writes never grow the payload beyond the packet limit: a write that does not fit is dropped
// and the packet is marked as overflowed. Reads beyond the payload return zero values and
// record ErrShortRead. Both conditions are sticky so a codec can check them once at the end.
type Packet struct {
	readCursor int
	limit      int
	overflowed bool
	readErr    error

	bytes        []byte
	initialBytes [_MIN_PAYLOAD_CAP]byte
}

// NewPacket allocates a packet limited to consts.MAX_RELIABLE_PACKET_PAYLOAD_SIZE
func NewPacket() *Packet {
	return NewBoundedPacket(consts.MAX_RELIABLE_PACKET_PAYLOAD_SIZE)
}

// NewBoundedPacket allocates a packet whose payload can not exceed limit bytes
func NewBoundedPacket(limit int) *Packet {
	p := packetPool.Get().(*Packet)
	p.limit = limit
	return p
}

// NewPacketFromPayload wraps received bytes in a packet for reading
func NewPacketFromPayload(payload []byte) *Packet {
	p := NewBoundedPacket(len(payload))
	p.bytes = append(p.bytes, payload...)
	return p
}

// Release returns the packet to packet pool
func (p *Packet) Release() {
	if cap(p.bytes) > _MIN_PAYLOAD_CAP*64 {
		p.bytes = p.initialBytes[:0] // do not keep huge buffers in the pool
	}
	p.bytes = p.bytes[:0]
	p.readCursor = 0
	p.limit = 0
	p.overflowed = false
	p.readErr = nil
	packetPool.Put(p)
}

// Payload returns the written payload
func (p *Packet) Payload() []byte {
	return p.bytes
}

// GetPayloadLen returns the payload length
func (p *Packet) GetPayloadLen() int {
	return len(p.bytes)
}

// Limit returns the maximum payload length
func (p *Packet) Limit() int {
	return p.limit
}

// Overflowed returns if any write has been dropped for exceeding the limit
func (p *Packet) Overflowed() bool {
	return p.overflowed
}

// ReadError returns ErrShortRead if any read went beyond the payload
func (p *Packet) ReadError() error {
	return p.readErr
}

// ClearPayload clears packet payload and the overflow flag
func (p *Packet) ClearPayload() {
	p.bytes = p.bytes[:0]
	p.readCursor = 0
	p.overflowed = false
	p.readErr = nil
}

// Truncate cuts the payload back to n bytes and clears the overflow flag
func (p *Packet) Truncate(n int) {
	if n < len(p.bytes) {
		p.bytes = p.bytes[:n]
	}
	p.overflowed = false
}

// Reserve appends n zero bytes and returns them for in place packing, or nil on overflow
func (p *Packet) Reserve(n int) []byte {
	if p.overflowed || len(p.bytes)+n > p.limit {
		p.overflowed = true
		return nil
	}
	start := len(p.bytes)
	for i := 0; i < n; i++ {
		p.bytes = append(p.bytes, 0)
	}
	return p.bytes[start : start+n]
}

// AppendByte appends one byte to the end of payload
func (p *Packet) AppendByte(b byte) {
	if buf := p.Reserve(1); buf != nil {
		buf[0] = b
	}
}

// AppendBool appends one byte 1/0 to the end of payload
func (p *Packet) AppendBool(b bool) {
	if b {
		p.AppendByte(1)
	} else {
		p.AppendByte(0)
	}
}

// AppendUint16 appends one uint16 to the end of payload
func (p *Packet) AppendUint16(v uint16) {
	if buf := p.Reserve(2); buf != nil {
		packetEndian.PutUint16(buf, v)
	}
}

// AppendUint32 appends one uint32 to the end of payload
func (p *Packet) AppendUint32(v uint32) {
	if buf := p.Reserve(4); buf != nil {
		packetEndian.PutUint32(buf, v)
	}
}

// AppendUint64 appends one uint64 to the end of payload
func (p *Packet) AppendUint64(v uint64) {
	if buf := p.Reserve(8); buf != nil {
		packetEndian.PutUint64(buf, v)
	}
}

// AppendFloat32 appends one float32 to the end of payload
func (p *Packet) AppendFloat32(f float32) {
	p.AppendUint32(math.Float32bits(f))
}

// AppendBytes appends slice of bytes to the end of payload
func (p *Packet) AppendBytes(v []byte) {
	if buf := p.Reserve(len(v)); buf != nil {
		copy(buf, v)
	}
}

// AppendVarBytes appends varsize bytes to the end of payload
func (p *Packet) AppendVarBytes(v []byte) {
	p.AppendVarUint(uint64(len(v)))
	p.AppendBytes(v)
}

// AppendVarStr appends a varsize string to the end of payload
func (p *Packet) AppendVarStr(s string) {
	p.AppendVarBytes([]byte(s))
}

// AppendVarUint appends a byte-count coded integer
func (p *Packet) AppendVarUint(v uint64) {
	p.AppendBytes(bitcodec.EncodeVarUint(v))
}

// AppendSessionID appends the 16 byte form of a session id
func (p *Packet) AppendSessionID(id common.SessionID) {
	p.AppendBytes(id[:])
}

func (p *Packet) readSlice(n int) []byte {
	if p.readErr != nil || n < 0 || p.readCursor+n > len(p.bytes) {
		p.readErr = ErrShortRead
		return nil
	}
	b := p.bytes[p.readCursor : p.readCursor+n]
	p.readCursor += n
	return b
}

// UnreadPayload returns the unread payload
func (p *Packet) UnreadPayload() []byte {
	return p.bytes[p.readCursor:]
}

// HasUnreadPayload returns if any payload is left unread
func (p *Packet) HasUnreadPayload() bool {
	return p.readErr == nil && p.readCursor < len(p.bytes)
}

// Skip advances the read cursor by n bytes
func (p *Packet) Skip(n int) {
	p.readSlice(n)
}

// ReadOneByte reads one byte from the beginning of unread payload
func (p *Packet) ReadOneByte() byte {
	if b := p.readSlice(1); b != nil {
		return b[0]
	}
	return 0
}

// ReadBool reads one byte 1/0 from the beginning of unread payload
func (p *Packet) ReadBool() bool {
	return p.ReadOneByte() != 0
}

// ReadUint16 reads one uint16 from the beginning of unread payload
func (p *Packet) ReadUint16() uint16 {
	if b := p.readSlice(2); b != nil {
		return packetEndian.Uint16(b)
	}
	return 0
}

// ReadUint32 reads one uint32 from the beginning of unread payload
func (p *Packet) ReadUint32() uint32 {
	if b := p.readSlice(4); b != nil {
		return packetEndian.Uint32(b)
	}
	return 0
}

// ReadUint64 reads one uint64 from the beginning of unread payload
func (p *Packet) ReadUint64() uint64 {
	if b := p.readSlice(8); b != nil {
		return packetEndian.Uint64(b)
	}
	return 0
}

// ReadFloat32 reads one float32 from the beginning of unread payload
func (p *Packet) ReadFloat32() float32 {
	return math.Float32frombits(p.ReadUint32())
}

// ReadBytes reads bytes from the beginning of unread payload, the bytes are not copied
func (p *Packet) ReadBytes(size int) []byte {
	return p.readSlice(size)
}

// ReadVarUint reads a byte-count coded integer
func (p *Packet) ReadVarUint() uint64 {
	if p.readErr != nil {
		return 0
	}
	v, n, err := bitcodec.DecodeVarUint(p.UnreadPayload())
	if err != nil {
		p.readErr = errors.Wrap(ErrShortRead, err.Error())
		return 0
	}
	p.readCursor += n
	return v
}

// ReadVarBytes reads a varsize slice of bytes from the beginning of unread payload
func (p *Packet) ReadVarBytes() []byte {
	n := p.ReadVarUint()
	if n > uint64(len(p.bytes)) {
		p.readErr = ErrShortRead
		return nil
	}
	return p.readSlice(int(n))
}

// ReadVarStr reads a varsize string from the beginning of unread payload
func (p *Packet) ReadVarStr() string {
	return string(p.ReadVarBytes())
}

// ReadSessionID reads one session id from the beginning of unread payload
func (p *Packet) ReadSessionID() common.SessionID {
	var id common.SessionID
	if b := p.readSlice(common.SESSIONID_LENGTH); b != nil {
		copy(id[:], b)
	}
	return id
}

// AppendData appends one data of any type packed by MSG_PACKER
func (p *Packet) AppendData(msg interface{}) error {
	dataBytes, err := MSG_PACKER.PackMsg(msg, nil)
	if err != nil {
		return errors.Wrap(err, "pack data")
	}
	p.AppendVarBytes(dataBytes)
	return nil
}

// ReadData reads one data of any type packed by MSG_PACKER
func (p *Packet) ReadData(msg interface{}) error {
	b := p.ReadVarBytes()
	if p.readErr != nil {
		return p.readErr
	}
	return errors.Wrap(MSG_PACKER.UnpackMsg(b, msg), "unpack data")
}
