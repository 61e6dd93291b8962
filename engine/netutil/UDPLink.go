package netutil

import (
	"net"

	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/pkg/errors"
)

var (
	errPacketTooLarge = errors.New("packet too large")
)

// UDPLink is an unreliable packet link upon a connected UDP socket
//
// Each packet is one datagram, so the payload of a packet must fit in consts.UDP_MAX_PACKET_PAYLOAD_SIZE.
type UDPLink struct {
	*net.UDPConn
}

// DialUDP connects a UDPLink to the mixer at addr
func DialUDP(addr string) (*UDPLink, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial udp %s", addr)
	}
	return NewUDPLink(conn), nil
}

// NewUDPLink wraps a connected UDP connection
func NewUDPLink(udpConn *net.UDPConn) *UDPLink {
	return &UDPLink{udpConn}
}

// Reliable returns false, datagrams may be lost or reordered
func (l *UDPLink) Reliable() bool {
	return false
}

// SendPacket sends a packet as one datagram
func (l *UDPLink) SendPacket(packet *Packet) error {
	payload := packet.Payload()
	if len(payload) > consts.UDP_MAX_PACKET_PAYLOAD_SIZE {
		return errors.Wrapf(errPacketTooLarge, "%d bytes", len(payload))
	}
	n, err := l.Write(payload)
	if err == nil && n != len(payload) {
		err = errPacketTooLarge
	}
	return err
}

// RecvPacket receives the next datagram
func (l *UDPLink) RecvPacket() (*Packet, error) {
	var buf [consts.UDP_MAX_PACKET_PAYLOAD_SIZE + 1]byte
	n, err := l.Read(buf[:])
	if err != nil {
		return nil, err
	}
	if n > consts.UDP_MAX_PACKET_PAYLOAD_SIZE {
		gwlog.Warnf("%s: dropping datagram larger than %d bytes", l, consts.UDP_MAX_PACKET_PAYLOAD_SIZE)
		return nil, errPacketTooLarge
	}
	return NewPacketFromPayload(buf[:n]), nil
}

func (l *UDPLink) String() string {
	return "UDPLink<" + l.RemoteAddr().String() + ">"
}
