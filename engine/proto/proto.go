package proto

import (
	"fmt"

	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/pkg/errors"
)

// MsgType is the type of message types
type MsgType uint8

const (
	// MT_INVALID is the invalid message type
	MT_INVALID MsgType = iota
	// MT_AVATAR_DATA is the local avatar data sent to avatar mixers
	MT_AVATAR_DATA
	// MT_BULK_AVATAR_DATA carries data of many avatars from the avatar mixer
	MT_BULK_AVATAR_DATA
	// MT_AVATAR_IDENTITY carries the identity of one avatar, in both directions
	MT_AVATAR_IDENTITY
	// MT_KILL_AVATAR tells that an avatar left the view of this client
	MT_KILL_AVATAR
	// MT_SET_AVATAR_TRAITS carries the changed traits of the local avatar
	MT_SET_AVATAR_TRAITS
	// MT_BULK_AVATAR_TRAITS carries trait updates of many avatars from the avatar mixer
	MT_BULK_AVATAR_TRAITS
	// MT_BULK_AVATAR_TRAITS_ACK acknowledges a MT_BULK_AVATAR_TRAITS message
	MT_BULK_AVATAR_TRAITS_ACK
	// MT_NODE_IGNORE_REQUEST asks the mixer to (stop) ignoring an avatar
	MT_NODE_IGNORE_REQUEST
	// MT_MAX is the upper bound of message types
	MT_MAX
)

var msgTypeNames = [...]string{
	MT_INVALID:                "MT_INVALID",
	MT_AVATAR_DATA:            "MT_AVATAR_DATA",
	MT_BULK_AVATAR_DATA:       "MT_BULK_AVATAR_DATA",
	MT_AVATAR_IDENTITY:        "MT_AVATAR_IDENTITY",
	MT_KILL_AVATAR:            "MT_KILL_AVATAR",
	MT_SET_AVATAR_TRAITS:      "MT_SET_AVATAR_TRAITS",
	MT_BULK_AVATAR_TRAITS:     "MT_BULK_AVATAR_TRAITS",
	MT_BULK_AVATAR_TRAITS_ACK: "MT_BULK_AVATAR_TRAITS_ACK",
	MT_NODE_IGNORE_REQUEST:    "MT_NODE_IGNORE_REQUEST",
}

func (mt MsgType) String() string {
	if mt < MT_MAX {
		return msgTypeNames[mt]
	}
	return fmt.Sprintf("MsgType<%d>", uint8(mt))
}

var (
	errUnknownMsgType = errors.New("unknown message type")
)

// InboundMessage is a decoded message from the avatar mixer
//
// It is one of *BulkAvatarData, *AvatarIdentity, *KillAvatar or *BulkAvatarTraits.
type InboundMessage interface {
	MsgType() MsgType
	inbound()
}

// OutboundMessage is a message sent to avatar mixers
type OutboundMessage interface {
	MsgType() MsgType
	encode(p *netutil.Packet)
}

// Encode writes msgtype and msg into packet
//
// It returns the number of bytes written, or 0 if msg does not fit and the packet was left unchanged.
func Encode(p *netutil.Packet, msg OutboundMessage) int {
	start := p.GetPayloadLen()
	p.AppendByte(byte(msg.MsgType()))
	msg.encode(p)
	if p.Overflowed() {
		p.Truncate(start)
		return 0
	}
	return p.GetPayloadLen() - start
}

// Decode reads one inbound message from packet
func Decode(p *netutil.Packet) (InboundMessage, error) {
	mt := MsgType(p.ReadOneByte())
	if err := p.ReadError(); err != nil {
		return nil, errors.Wrap(err, "read msgtype")
	}

	var msg InboundMessage
	var err error
	switch mt {
	case MT_BULK_AVATAR_DATA:
		msg, err = decodeBulkAvatarData(p)
	case MT_AVATAR_IDENTITY:
		msg, err = decodeAvatarIdentity(p)
	case MT_KILL_AVATAR:
		msg, err = decodeKillAvatar(p)
	case MT_BULK_AVATAR_TRAITS:
		msg, err = decodeBulkAvatarTraits(p)
	default:
		return nil, errors.Wrapf(errUnknownMsgType, "%s", mt)
	}

	if err == nil {
		err = p.ReadError()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", mt)
	}
	return msg, nil
}
