package netutil

import (
	"bytes"

	"github.com/goavatar/goavatar/engine/consts"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

var (
	// MSG_PACKER is used for packing and unpacking structured trait data
	MSG_PACKER MsgPacker = MessagePackMsgPacker{}
)

// MsgPacker is used to packs and unpacks messages
type MsgPacker interface {
	PackMsg(msg interface{}, buf []byte) ([]byte, error)
	UnpackMsg(data []byte, msg interface{}) error
}

// MessagePackMsgPacker packs trait blobs in MessagePack format
type MessagePackMsgPacker struct{}

// PackMsg appends the MessagePack encoding of msg to buf
func (mp MessagePackMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)
	if err := msgpack.NewEncoder(buffer).Encode(msg); err != nil {
		return buf, errors.Wrapf(err, "msgpack encode %T", msg)
	}
	if buffer.Len() > consts.MAX_RELIABLE_PACKET_PAYLOAD_SIZE {
		return buf, errors.Errorf("msgpack encode %T: %d bytes exceeds %d", msg, buffer.Len(), consts.MAX_RELIABLE_PACKET_PAYLOAD_SIZE)
	}
	return buffer.Bytes(), nil
}

// UnpackMsg decodes data into msg
func (mp MessagePackMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	if len(data) == 0 {
		return errors.Errorf("msgpack decode %T: empty data", msg)
	}
	return errors.Wrapf(msgpack.Unmarshal(data, msg), "msgpack decode %T", msg)
}
