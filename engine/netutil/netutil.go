package netutil

import (
	"io"
	"net"

	"github.com/pkg/errors"
)

// Link is a packet channel to one relay node
type Link interface {
	// SendPacket sends the payload of packet, the packet is not released
	SendPacket(packet *Packet) error
	// RecvPacket blocks until the next packet arrives, the caller releases it
	RecvPacket() (*Packet, error)
	Close() error
	RemoteAddr() net.Addr
	// Reliable returns if packets are delivered in order and without loss
	Reliable() bool
}

// IsConnectionError check if the error is a connection error (close)
func IsConnectionError(_err interface{}) bool {
	err, ok := _err.(error)
	if !ok {
		return false
	}

	err = errors.Cause(err)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}

	neterr, ok := err.(net.Error)
	if !ok {
		return false
	}
	if neterr.Timeout() {
		return false
	}

	return true
}
