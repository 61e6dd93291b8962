package traits

import (
	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/pkg/errors"
)

// simpleTraitTypes are the traits serialized by LocalTraits, in wire order
var simpleTraitTypes = []proto.TraitType{proto.SkeletonModelURL, proto.SkeletonData}

// LocalTraits tracks whether the traits of the local avatar must be (re)sent
//
// All traits share one version, advanced on every send.
type LocalTraits struct {
	hasChanged  bool
	initialSend bool
	version     proto.TraitVersion
}

// NewLocalTraits creates the ledger of a newly constructed local avatar, which sends its traits once
func NewLocalTraits() *LocalTraits {
	lt := &LocalTraits{}
	lt.MarkInitialSend()
	return lt
}

// MarkTraitChanged records that a trait of the local avatar was modified
func (lt *LocalTraits) MarkTraitChanged(tt proto.TraitType) {
	if consts.DEBUG_TRAITS {
		gwlog.Debugf("LocalTraits: trait %s changed", tt)
	}
	lt.hasChanged = true
}

// MarkInitialSend makes the next SendChangedTraits send all traits even if none changed
func (lt *LocalTraits) MarkInitialSend() {
	lt.initialSend = true
}

// HasPending returns if traits will be sent by the next SendChangedTraits
func (lt *LocalTraits) HasPending() bool {
	return lt.hasChanged || lt.initialSend
}

// Version returns the version of the last sent traits
func (lt *LocalTraits) Version() proto.TraitVersion {
	return lt.version
}

// SendChangedTraits sends all simple traits of source if any changed or an initial send is pending
//
// send returns the number of bytes sent, 0 on failure. The pending flags are only cleared
// after a successful send. Returns the number of bytes sent.
func (lt *LocalTraits) SendChangedTraits(source *avatar.Avatar, send func(msg proto.OutboundMessage) int) int {
	if !lt.HasPending() {
		return 0
	}

	lt.version++
	msg := &proto.SetAvatarTraits{Version: lt.version}
	for _, tt := range simpleTraitTypes {
		data, err := EncodeSimpleTrait(source, tt)
		if err != nil {
			gwlog.Errorf("LocalTraits: encode trait %s of %s failed: %v", tt, source, err)
			continue
		}
		msg.Traits = append(msg.Traits, proto.TraitUpdate{Type: tt, Version: lt.version, Data: data})
	}

	n := send(msg)
	if n == 0 {
		if consts.DEBUG_TRAITS {
			gwlog.Debugf("LocalTraits: sending traits version %d failed", lt.version)
		}
		lt.version--
		return 0
	}
	lt.hasChanged = false
	lt.initialSend = false
	return n
}

// EncodeSimpleTrait serializes the current value of a simple trait
func EncodeSimpleTrait(a *avatar.Avatar, tt proto.TraitType) ([]byte, error) {
	switch tt {
	case proto.SkeletonModelURL:
		return []byte(a.SkeletonModelURL()), nil
	case proto.SkeletonData:
		skeleton := a.Skeleton()
		if skeleton == nil {
			skeleton = []avatar.JointInfo{}
		}
		data, err := netutil.MSG_PACKER.PackMsg(skeleton, nil)
		return data, errors.Wrap(err, "pack skeleton")
	}
	return nil, errors.Errorf("%s is not a simple trait", tt)
}

// DecodeSimpleTrait parses an inbound simple trait and returns the function committing it to an avatar
func DecodeSimpleTrait(t *proto.TraitUpdate) (func(a *avatar.Avatar), error) {
	switch t.Type {
	case proto.SkeletonModelURL:
		url := string(t.Data)
		return func(a *avatar.Avatar) {
			a.SetSkeletonModelURL(url)
		}, nil
	case proto.SkeletonData:
		var skeleton []avatar.JointInfo
		if err := netutil.MSG_PACKER.UnpackMsg(t.Data, &skeleton); err != nil {
			return nil, errors.Wrap(err, "unpack skeleton")
		}
		if len(skeleton) > consts.MAX_JOINTS {
			return nil, errors.Errorf("skeleton has %d joints", len(skeleton))
		}
		return func(a *avatar.Avatar) {
			a.SetSkeleton(skeleton)
		}, nil
	}
	return nil, errors.Errorf("%s is not a simple trait", t.Type)
}
