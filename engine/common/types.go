package common

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SESSIONID_LENGTH is the length of session IDs on the wire
const SESSIONID_LENGTH = 16

// SessionID identifies one avatar's connection instance in a domain
type SessionID uuid.UUID

// NilSessionID is the wire's null id, which means "the receiver itself" in avatar messages
var NilSessionID SessionID

// GenSessionID generates a new random SessionID
func GenSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID parses the textual form of a SessionID
func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilSessionID, errors.Wrapf(err, "invalid session id %q", s)
	}
	return SessionID(id), nil
}

// SessionIDFromBytes reads a SessionID from its 16 byte wire form
func SessionIDFromBytes(b []byte) (SessionID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return NilSessionID, errors.Wrap(err, "invalid session id bytes")
	}
	return SessionID(id), nil
}

// IsNil returns if SessionID is the null id
func (id SessionID) IsNil() bool {
	return id == NilSessionID
}

// Bytes returns the 16 byte wire form of the SessionID
func (id SessionID) Bytes() []byte {
	b := make([]byte, SESSIONID_LENGTH)
	copy(b, id[:])
	return b
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// AvatarRef refers either to the local avatar or to a remote avatar by session id
//
// The zero value is not valid; use LocalAvatar or RemoteAvatar.
type AvatarRef struct {
	local bool
	id    SessionID
}

// LocalAvatar is the reference to the avatar owned by this client
var LocalAvatar = AvatarRef{local: true}

// RemoteAvatar returns the reference to a remote avatar
func RemoteAvatar(id SessionID) AvatarRef {
	return AvatarRef{id: id}
}

// RefFromWire maps a session id from an avatar message to a reference:
// the null id addresses the local avatar.
func RefFromWire(id SessionID) AvatarRef {
	if id.IsNil() {
		return LocalAvatar
	}
	return RemoteAvatar(id)
}

// IsLocal returns if the reference is the local avatar
func (ref AvatarRef) IsLocal() bool {
	return ref.local
}

// SessionID returns the session id of a remote reference, and false for the local avatar
func (ref AvatarRef) SessionID() (SessionID, bool) {
	if ref.local {
		return NilSessionID, false
	}
	return ref.id, true
}

func (ref AvatarRef) String() string {
	if ref.local {
		return "Avatar<local>"
	}
	return fmt.Sprintf("Avatar<%s>", ref.id)
}
