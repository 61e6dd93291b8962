package proto

import (
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/pkg/errors"
)

// TraitType identifies an avatar trait
type TraitType int8

const (
	// NullTrait terminates the trait list of an avatar
	NullTrait TraitType = -1
	// SkeletonModelURL is the simple trait holding the avatar model url
	SkeletonModelURL TraitType = 0
	// SkeletonData is the simple trait holding the skeleton joint list
	SkeletonData TraitType = 1
	// FirstInstancedTrait is the first trait type that has instances
	FirstInstancedTrait TraitType = 2
	// AvatarEntity is an instanced trait: an entity attached to the avatar
	AvatarEntity TraitType = 2
	// Grab is an instanced trait: an object held by the avatar
	Grab TraitType = 3
	// TotalTraitTypes is the number of known trait types
	TotalTraitTypes = 4
)

// _NULL_TRAIT_BYTE is NullTrait on the wire
const _NULL_TRAIT_BYTE = 0xff

const (
	_DELETED_TRAIT_SIZE = 0xffff
)

// IsSimple returns if the trait has a single value per avatar
func (t TraitType) IsSimple() bool {
	return t >= 0 && t < FirstInstancedTrait
}

// IsInstanced returns if the trait may have many instances per avatar
func (t TraitType) IsInstanced() bool {
	return t >= FirstInstancedTrait && t < TotalTraitTypes
}

func (t TraitType) String() string {
	switch t {
	case NullTrait:
		return "NullTrait"
	case SkeletonModelURL:
		return "SkeletonModelURL"
	case SkeletonData:
		return "SkeletonData"
	case AvatarEntity:
		return "AvatarEntity"
	case Grab:
		return "Grab"
	}
	return "UnknownTrait"
}

// TraitVersion orders updates of one trait of one avatar
type TraitVersion int32

// TraitUpdate is one trait value
//
// Instanced traits carry InstanceID and may be Deleted.
type TraitUpdate struct {
	Type       TraitType
	Version    TraitVersion
	InstanceID common.SessionID
	Deleted    bool
	Data       []byte
}

func encodeTraitValue(p *netutil.Packet, t *TraitUpdate) {
	if t.Type.IsInstanced() {
		p.AppendSessionID(t.InstanceID)
		if t.Deleted {
			p.AppendUint16(_DELETED_TRAIT_SIZE)
			return
		}
	}
	if len(t.Data) >= _DELETED_TRAIT_SIZE {
		p.Reserve(p.Limit() + 1) // size does not fit in two bytes, mark overflow
		return
	}
	p.AppendUint16(uint16(len(t.Data)))
	p.AppendBytes(t.Data)
}

func decodeTraitValue(p *netutil.Packet, t *TraitUpdate) error {
	if t.Type.IsInstanced() {
		t.InstanceID = p.ReadSessionID()
	} else if !t.Type.IsSimple() {
		return errors.Errorf("unknown trait type %d", t.Type)
	}
	size := p.ReadUint16()
	if t.Type.IsInstanced() && size == _DELETED_TRAIT_SIZE {
		t.Deleted = true
		return p.ReadError()
	}
	if data := p.ReadBytes(int(size)); data != nil {
		t.Data = append([]byte(nil), data...)
	}
	return p.ReadError()
}

// SetAvatarTraits carries the traits of the local avatar, all sharing one version
type SetAvatarTraits struct {
	Version TraitVersion
	Traits  []TraitUpdate
}

// MsgType returns MT_SET_AVATAR_TRAITS
func (m *SetAvatarTraits) MsgType() MsgType { return MT_SET_AVATAR_TRAITS }

func (m *SetAvatarTraits) encode(p *netutil.Packet) {
	p.AppendUint32(uint32(m.Version))
	for i := range m.Traits {
		p.AppendByte(byte(m.Traits[i].Type))
		encodeTraitValue(p, &m.Traits[i])
	}
}

// DecodeSetAvatarTraits reads the payload of a MT_SET_AVATAR_TRAITS message, used by mixers and tests
func DecodeSetAvatarTraits(p *netutil.Packet) (*SetAvatarTraits, error) {
	m := &SetAvatarTraits{Version: TraitVersion(p.ReadUint32())}
	for p.HasUnreadPayload() {
		t := TraitUpdate{Type: TraitType(p.ReadOneByte()), Version: m.Version}
		if err := decodeTraitValue(p, &t); err != nil {
			return nil, errors.Wrap(err, "decode MT_SET_AVATAR_TRAITS")
		}
		m.Traits = append(m.Traits, t)
	}
	return m, p.ReadError()
}

// AvatarTraits is the trait updates of one avatar in a BulkAvatarTraits message
type AvatarTraits struct {
	ID     common.SessionID
	Traits []TraitUpdate
}

// BulkAvatarTraits carries trait updates of many avatars, acknowledged by Sequence
type BulkAvatarTraits struct {
	Sequence int64
	Avatars  []AvatarTraits
}

// MsgType returns MT_BULK_AVATAR_TRAITS
func (m *BulkAvatarTraits) MsgType() MsgType { return MT_BULK_AVATAR_TRAITS }

func (m *BulkAvatarTraits) inbound() {}

func (m *BulkAvatarTraits) encode(p *netutil.Packet) {
	p.AppendUint64(uint64(m.Sequence))
	for i := range m.Avatars {
		a := &m.Avatars[i]
		p.AppendSessionID(a.ID)
		for j := range a.Traits {
			t := &a.Traits[j]
			p.AppendByte(byte(t.Type))
			p.AppendUint32(uint32(t.Version))
			encodeTraitValue(p, t)
		}
		p.AppendByte(_NULL_TRAIT_BYTE)
	}
}

func decodeBulkAvatarTraits(p *netutil.Packet) (*BulkAvatarTraits, error) {
	m := &BulkAvatarTraits{Sequence: int64(p.ReadUint64())}
	for p.HasUnreadPayload() {
		a := AvatarTraits{ID: p.ReadSessionID()}
		for {
			tt := TraitType(p.ReadOneByte())
			if p.ReadError() != nil {
				return nil, errors.Wrapf(p.ReadError(), "traits of %s", a.ID)
			}
			if tt == NullTrait {
				break
			}
			t := TraitUpdate{Type: tt, Version: TraitVersion(p.ReadUint32())}
			if err := decodeTraitValue(p, &t); err != nil {
				return nil, errors.Wrapf(err, "trait %s of %s", tt, a.ID)
			}
			a.Traits = append(a.Traits, t)
		}
		m.Avatars = append(m.Avatars, a)
	}
	return m, nil
}

// BulkAvatarTraitsAck acknowledges a BulkAvatarTraits message
type BulkAvatarTraitsAck struct {
	Sequence int64
}

// MsgType returns MT_BULK_AVATAR_TRAITS_ACK
func (m *BulkAvatarTraitsAck) MsgType() MsgType { return MT_BULK_AVATAR_TRAITS_ACK }

func (m *BulkAvatarTraitsAck) encode(p *netutil.Packet) {
	p.AppendUint64(uint64(m.Sequence))
}
