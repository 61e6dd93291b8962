package proto

import (
	"fmt"

	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/netutil"
)

const (
	_IDENTITY_REPLICATED          = 0x01
	_IDENTITY_LOOK_AT_SNAPPING    = 0x02
	_IDENTITY_VERIFICATION_FAILED = 0x04
)

// IdentityState is the identity of an avatar, ordered by Sequence
type IdentityState struct {
	Sequence              uint16
	DisplayName           string
	SessionDisplayName    string
	IsReplicated          bool
	LookAtSnappingEnabled bool
	VerificationFailed    bool
}

func (s IdentityState) String() string {
	return fmt.Sprintf("Identity<#%d %q/%q>", s.Sequence, s.DisplayName, s.SessionDisplayName)
}

// AvatarIdentity carries the identity of one avatar
//
// A nil ID addresses the receiver's own avatar; outbound identities always carry a nil ID.
type AvatarIdentity struct {
	ID       common.SessionID
	Identity IdentityState
}

// MsgType returns MT_AVATAR_IDENTITY
func (m *AvatarIdentity) MsgType() MsgType { return MT_AVATAR_IDENTITY }

func (m *AvatarIdentity) inbound() {}

func (m *AvatarIdentity) encode(p *netutil.Packet) {
	p.AppendSessionID(m.ID)
	p.AppendUint16(m.Identity.Sequence)
	p.AppendVarStr(m.Identity.DisplayName)
	p.AppendVarStr(m.Identity.SessionDisplayName)
	var flags byte
	if m.Identity.IsReplicated {
		flags |= _IDENTITY_REPLICATED
	}
	if m.Identity.LookAtSnappingEnabled {
		flags |= _IDENTITY_LOOK_AT_SNAPPING
	}
	if m.Identity.VerificationFailed {
		flags |= _IDENTITY_VERIFICATION_FAILED
	}
	p.AppendByte(flags)
}

func decodeAvatarIdentity(p *netutil.Packet) (*AvatarIdentity, error) {
	m := &AvatarIdentity{ID: p.ReadSessionID()}
	m.Identity.Sequence = p.ReadUint16()
	m.Identity.DisplayName = p.ReadVarStr()
	m.Identity.SessionDisplayName = p.ReadVarStr()
	flags := p.ReadOneByte()
	m.Identity.IsReplicated = flags&_IDENTITY_REPLICATED != 0
	m.Identity.LookAtSnappingEnabled = flags&_IDENTITY_LOOK_AT_SNAPPING != 0
	m.Identity.VerificationFailed = flags&_IDENTITY_VERIFICATION_FAILED != 0
	return m, p.ReadError()
}

// KillAvatarReason tells why an avatar was removed
type KillAvatarReason uint8

const (
	// NoReason is used when the mixer gives no reason
	NoReason KillAvatarReason = iota
	// AvatarDisconnected means the avatar's session ended, or this client lost the mixer
	AvatarDisconnected
	// AvatarIgnored means this client ignored the avatar
	AvatarIgnored
	// TheirAvatarEnteredYourBubble means the avatar entered this client's space bubble
	TheirAvatarEnteredYourBubble
	// YourAvatarEnteredTheirBubble means this client's avatar entered the avatar's space bubble
	YourAvatarEnteredTheirBubble
)

func (r KillAvatarReason) String() string {
	switch r {
	case NoReason:
		return "NoReason"
	case AvatarDisconnected:
		return "AvatarDisconnected"
	case AvatarIgnored:
		return "AvatarIgnored"
	case TheirAvatarEnteredYourBubble:
		return "TheirAvatarEnteredYourBubble"
	case YourAvatarEnteredTheirBubble:
		return "YourAvatarEnteredTheirBubble"
	}
	return fmt.Sprintf("KillAvatarReason<%d>", uint8(r))
}

// KillAvatar tells that an avatar left the view of this client
type KillAvatar struct {
	ID     common.SessionID
	Reason KillAvatarReason
}

// MsgType returns MT_KILL_AVATAR
func (m *KillAvatar) MsgType() MsgType { return MT_KILL_AVATAR }

func (m *KillAvatar) inbound() {}

func (m *KillAvatar) encode(p *netutil.Packet) {
	p.AppendSessionID(m.ID)
	p.AppendByte(byte(m.Reason))
}

func decodeKillAvatar(p *netutil.Packet) (*KillAvatar, error) {
	m := &KillAvatar{ID: p.ReadSessionID()}
	m.Reason = KillAvatarReason(p.ReadOneByte())
	return m, p.ReadError()
}

// NodeIgnoreRequest asks the mixer to stop (or resume) sending an avatar to this client
type NodeIgnoreRequest struct {
	ID      common.SessionID
	Enabled bool
}

// MsgType returns MT_NODE_IGNORE_REQUEST
func (m *NodeIgnoreRequest) MsgType() MsgType { return MT_NODE_IGNORE_REQUEST }

func (m *NodeIgnoreRequest) encode(p *netutil.Packet) {
	p.AppendBool(m.Enabled)
	p.AppendSessionID(m.ID)
}
