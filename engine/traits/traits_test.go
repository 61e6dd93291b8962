package traits

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/proto"
)

func TestRemoteLedgerIdempotence(t *testing.T) {
	rl := NewRemoteLedger()
	id := common.GenSessionID()
	applied := 0
	apply := func() { applied++ }

	assert.Equal(t, true, rl.Apply(id, proto.SkeletonModelURL, 3, apply))
	assert.Equal(t, false, rl.Apply(id, proto.SkeletonModelURL, 3, apply))
	assert.Equal(t, 1, applied)

	// older versions arriving late are ignored, newer always win
	assert.Equal(t, false, rl.Apply(id, proto.SkeletonModelURL, 2, apply))
	assert.Equal(t, true, rl.Apply(id, proto.SkeletonModelURL, 5, apply))
	assert.Equal(t, false, rl.Apply(id, proto.SkeletonModelURL, 4, apply))
	assert.Equal(t, 2, applied)
	v, ok := rl.Version(id, proto.SkeletonModelURL)
	assert.Equal(t, proto.TraitVersion(5), v)
	assert.Equal(t, true, ok)

	// versions are per trait type and per avatar
	assert.Equal(t, true, rl.Apply(id, proto.SkeletonData, 1, apply))
	other := common.GenSessionID()
	assert.Equal(t, true, rl.Apply(other, proto.SkeletonModelURL, 1, apply))
	assert.Equal(t, 2, rl.Len())

	rl.Forget(id)
	_, ok = rl.Version(id, proto.SkeletonModelURL)
	assert.Equal(t, false, ok)
	assert.Equal(t, true, rl.ShouldApply(id, proto.SkeletonModelURL, 1))
	rl.Clear()
	assert.Equal(t, 0, rl.Len())
}

func TestLocalTraitsSend(t *testing.T) {
	a := avatar.New(common.LocalAvatar)
	lt := NewLocalTraits()
	a.SetTraitHook(lt.MarkTraitChanged)

	var sent []*proto.SetAvatarTraits
	send := func(msg proto.OutboundMessage) int {
		sent = append(sent, msg.(*proto.SetAvatarTraits))
		return 10
	}

	// initial send happens even without changes
	assert.Equal(t, true, lt.HasPending())
	assert.Equal(t, 10, lt.SendChangedTraits(a, send))
	assert.Equal(t, 0, lt.SendChangedTraits(a, send))
	assert.Equal(t, 1, len(sent))
	assert.Equal(t, proto.TraitVersion(1), sent[0].Version)
	assert.Equal(t, 2, len(sent[0].Traits))

	a.SetSkeletonModelURL("http://models/b.fst")
	assert.Equal(t, true, lt.HasPending())
	lt.SendChangedTraits(a, send)
	assert.Equal(t, 2, len(sent))
	assert.Equal(t, proto.TraitVersion(2), sent[1].Version)
	assert.Equal(t, proto.SkeletonModelURL, sent[1].Traits[0].Type)
	assert.Equal(t, []byte("http://models/b.fst"), sent[1].Traits[0].Data)

	// a failed send keeps the traits pending
	a.SetSkeleton([]avatar.JointInfo{{Name: "Hips", Index: 0, ParentIndex: -1}})
	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, lt.SendChangedTraits(a, func(proto.OutboundMessage) int { return 0 }))
	}
	assert.Equal(t, true, lt.HasPending())
	assert.Equal(t, proto.TraitVersion(2), lt.Version())
	lt.SendChangedTraits(a, send)
	assert.Equal(t, proto.TraitVersion(3), lt.Version())
	assert.Equal(t, proto.TraitVersion(3), sent[2].Version)
	assert.Equal(t, false, lt.HasPending())
}

func TestSimpleTraitCodec(t *testing.T) {
	local := avatar.New(common.LocalAvatar)
	local.SetSkeletonModelURL("http://models/c.fst")
	skeleton := []avatar.JointInfo{{Name: "Hips", Index: 0, ParentIndex: -1}, {Name: "Spine", Index: 1, ParentIndex: 0}}
	local.SetSkeleton(skeleton)

	remote := avatar.New(common.RemoteAvatar(common.GenSessionID()))
	for _, tt := range []proto.TraitType{proto.SkeletonModelURL, proto.SkeletonData} {
		data, err := EncodeSimpleTrait(local, tt)
		assert.Equal(t, nil, err)
		commit, err := DecodeSimpleTrait(&proto.TraitUpdate{Type: tt, Data: data})
		assert.Equal(t, nil, err)
		commit(remote)
	}
	assert.Equal(t, "http://models/c.fst", remote.SkeletonModelURL())
	assert.Equal(t, skeleton, remote.Skeleton())
	assert.Equal(t, 2, remote.JointCount())

	_, err := DecodeSimpleTrait(&proto.TraitUpdate{Type: proto.SkeletonData, Data: []byte{0xc1}})
	assert.NotEqual(t, nil, err)
	_, err = DecodeSimpleTrait(&proto.TraitUpdate{Type: proto.Grab})
	assert.NotEqual(t, nil, err)
	_, err = EncodeSimpleTrait(local, proto.AvatarEntity)
	assert.NotEqual(t, nil, err)
}
