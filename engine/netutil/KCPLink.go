package netutil

import (
	"encoding/binary"
	"net"
	"sync"

	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwioutil"
	"github.com/pkg/errors"
	"github.com/xtaci/kcp-go"
)

const (
	_SIZE_FIELD_SIZE = 4
)

// KCPLink is a reliable ordered packet link upon a KCP session in stream mode
//
// Packets are framed with a little endian uint32 payload length.
type KCPLink struct {
	conn      *kcp.UDPSession
	sendLock  sync.Mutex
	recvHead  [_SIZE_FIELD_SIZE]byte
	sendFrame []byte
}

// DialKCP connects a KCPLink to the mixer at addr
func DialKCP(addr string, dataShards, parityShards int) (*KCPLink, error) {
	conn, err := kcp.DialWithOptions(addr, nil, dataShards, parityShards)
	if err != nil {
		return nil, errors.Wrapf(err, "dial kcp %s", addr)
	}
	return NewKCPLink(conn), nil
}

// NewKCPLink configures conn in turbo stream mode and wraps it
func NewKCPLink(conn *kcp.UDPSession) *KCPLink {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 10, 2, 1)
	return &KCPLink{conn: conn}
}

// Reliable returns true
func (l *KCPLink) Reliable() bool {
	return true
}

// SendPacket writes one length prefixed packet, safe for concurrent use
func (l *KCPLink) SendPacket(packet *Packet) error {
	payload := packet.Payload()
	if len(payload) > consts.MAX_RELIABLE_PACKET_PAYLOAD_SIZE {
		return errors.Wrapf(errPacketTooLarge, "%d bytes", len(payload))
	}

	l.sendLock.Lock()
	defer l.sendLock.Unlock()
	frame := l.sendFrame[:0]
	frame = append(frame, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	l.sendFrame = frame
	return gwioutil.WriteAll(l.conn, frame)
}

// RecvPacket reads the next length prefixed packet, must be called from one goroutine
func (l *KCPLink) RecvPacket() (*Packet, error) {
	if err := gwioutil.ReadAll(l.conn, l.recvHead[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(l.recvHead[:])
	if size > consts.MAX_RELIABLE_PACKET_PAYLOAD_SIZE {
		return nil, errors.Wrapf(errPacketTooLarge, "%d bytes", size)
	}
	packet := NewBoundedPacket(int(size))
	buf := packet.Reserve(int(size))
	if err := gwioutil.ReadAll(l.conn, buf); err != nil {
		packet.Release()
		return nil, err
	}
	return packet, nil
}

// Close closes the KCP session
func (l *KCPLink) Close() error {
	return l.conn.Close()
}

// RemoteAddr returns the mixer address
func (l *KCPLink) RemoteAddr() net.Addr {
	return l.conn.RemoteAddr()
}

func (l *KCPLink) String() string {
	return "KCPLink<" + l.RemoteAddr().String() + ">"
}
