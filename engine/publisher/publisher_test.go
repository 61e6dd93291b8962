package publisher

import (
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/goavatar/goavatar/engine/nodelist"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/traits"
	"github.com/goavatar/goavatar/engine/vmath"
)

type sentPacket struct {
	node     uint16
	reliable bool
	payload  []byte
}

type fakeSender struct {
	sent []sentPacket
}

func (s *fakeSender) SendPacket(node *nodelist.Node, packet *netutil.Packet, reliable bool) error {
	payload := append([]byte(nil), packet.Payload()...)
	s.sent = append(s.sent, sentPacket{node.ID, reliable, payload})
	return nil
}

func (s *fakeSender) unreliable() []sentPacket {
	var res []sentPacket
	for _, sp := range s.sent {
		if !sp.reliable {
			res = append(res, sp)
		}
	}
	return res
}

func (s *fakeSender) reset() {
	s.sent = nil
}

func decodeData(t *testing.T, payload []byte) *proto.AvatarDataPacket {
	r := netutil.NewPacketFromPayload(payload)
	defer r.Release()
	assert.Equal(t, proto.MT_AVATAR_DATA, proto.MsgType(r.ReadOneByte()))
	pkt, err := proto.DecodeAvatarDataPacket(r)
	if err != nil {
		t.Fatal(err)
	}
	return pkt
}

type fixture struct {
	local  *avatar.Avatar
	traits *traits.LocalTraits
	nodes  *nodelist.NodeList
	sender *fakeSender
	pub    *Publisher
	now    time.Time
	clocks int
	dice   float64
}

func newFixture() *fixture {
	f := &fixture{
		local:  avatar.New(common.LocalAvatar),
		traits: traits.NewLocalTraits(),
		nodes:  nodelist.New(),
		sender: &fakeSender{},
		now:    time.Unix(1000, 0),
		dice:   0.5,
	}
	f.local.SetTraitHook(f.traits.MarkTraitChanged)
	f.nodes.Add(&nodelist.Node{ID: 1, Type: nodelist.AvatarMixer, Addr: "mixer-1"})
	f.pub = New(f.local, f.traits, f.nodes, f.sender)
	f.pub.SetClock(func() time.Time {
		f.clocks++
		return f.now
	})
	f.pub.SetRand(func() float64 {
		return f.dice
	})
	return f
}

func (f *fixture) pose(joints int, blendshapes int) {
	for i := 0; i < joints; i++ {
		f.local.SetJointRotation(i, vmath.FromAxisAngle(vmath.Vector3{X: 1}, float64(i+1)/100))
		f.local.SetJointTranslation(i, vmath.Vector3{Z: 0.2})
	}
	if blendshapes > 0 {
		f.local.SetFaceTracking(proto.FaceTracker{Blendshapes: make([]float32, blendshapes)})
	}
}

func TestThrottle(t *testing.T) {
	f := newFixture()
	t0 := f.now
	assert.T(t, f.pub.Tick(t0, false) > 0)
	assert.Equal(t, 0, f.pub.Tick(t0.Add(10*time.Millisecond), false))
	assert.T(t, f.pub.Tick(t0.Add(12*time.Millisecond), true) > 0)
	assert.Equal(t, 0, f.pub.Tick(t0.Add(30*time.Millisecond), false))
	assert.T(t, f.pub.Tick(t0.Add(40*time.Millisecond), false) > 0)
	assert.Equal(t, uint16(3), f.local.DataSequence())
	assert.Equal(t, 3, len(f.sender.unreliable()))
}

func TestFirstTickSendsTraitsAndIdentity(t *testing.T) {
	f := newFixture()
	f.local.SetDisplayName("Bot")
	f.local.SetSkeletonModelURL("http://models/bot.fst")
	f.pub.Tick(f.now, false)

	assert.Equal(t, 3, len(f.sender.sent))
	identity := f.sender.sent[0]
	assert.Equal(t, true, identity.reliable)
	assert.Equal(t, byte(proto.MT_AVATAR_IDENTITY), identity.payload[0])
	assert.Equal(t, byte(proto.MT_SET_AVATAR_TRAITS), f.sender.sent[1].payload[0])
	assert.Equal(t, false, f.sender.sent[2].reliable)
	assert.Equal(t, uint16(1), f.local.IdentityState().Sequence)
	assert.Equal(t, false, f.traits.HasPending())

	// nothing changed: only data is sent
	f.sender.reset()
	f.pub.Tick(f.now.Add(time.Second), false)
	assert.Equal(t, 1, len(f.sender.sent))

	f.local.SetDisplayName("Bot2")
	f.sender.reset()
	f.pub.Tick(f.now.Add(2*time.Second), false)
	assert.Equal(t, 2, len(f.sender.sent))
	assert.Equal(t, uint16(2), f.local.IdentityState().Sequence)
}

func TestNoMixerKeepsIdentityPending(t *testing.T) {
	f := newFixture()
	f.nodes.Remove(1)
	f.local.SetDisplayName("Bot")
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, f.pub.Tick(f.now.Add(time.Duration(i)*time.Second), false))
	}
	assert.Equal(t, 0, len(f.sender.sent))
	assert.Equal(t, uint16(1), f.local.IdentitySequence())
	assert.Equal(t, true, f.local.IdentityChanged())
	assert.Equal(t, true, f.traits.HasPending())
	assert.Equal(t, proto.TraitVersion(0), f.traits.Version())

	// resending to a new mixer reuses the sequence
	f.nodes.Add(&nodelist.Node{ID: 2, Type: nodelist.AvatarMixer})
	f.local.MarkIdentityChanged()
	f.pub.Tick(f.now.Add(200*time.Second), false)
	identity := f.sender.sent[0]
	assert.Equal(t, byte(proto.MT_AVATAR_IDENTITY), identity.payload[0])
	r := netutil.NewPacketFromPayload(identity.payload)
	defer r.Release()
	msg, err := proto.Decode(r)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(1), msg.(*proto.AvatarIdentity).Identity.Sequence)
	assert.Equal(t, "Bot", msg.(*proto.AvatarIdentity).Identity.DisplayName)
	assert.Equal(t, proto.TraitVersion(1), f.traits.Version())
	assert.Equal(t, uint16(1), f.local.IdentitySequence())
}

func TestBroadcastToAvatarMixers(t *testing.T) {
	f := newFixture()
	f.nodes.Add(&nodelist.Node{ID: 2, Type: nodelist.AvatarMixer})
	f.nodes.Add(&nodelist.Node{ID: 3, Type: nodelist.AudioMixer})
	size := f.pub.SendAvatarData(false)
	sent := f.sender.unreliable()
	assert.Equal(t, 2, len(sent))
	assert.Equal(t, uint16(1), sent[0].node)
	assert.Equal(t, uint16(2), sent[1].node)
	assert.Equal(t, size, len(sent[0].payload))
	assert.Equal(t, uint16(1), decodeData(t, sent[0].payload).Sequence)

	f.nodes.Remove(1)
	f.nodes.Remove(2)
	assert.Equal(t, 0, f.pub.SendAvatarData(false))
	assert.Equal(t, uint16(1), f.local.DataSequence())
}

func TestFullUpdateRatio(t *testing.T) {
	f := newFixture()
	f.pose(4, 0)
	f.pub.Tick(f.now, false)

	// nothing changed since: culled data carries no joint values
	f.pub.Tick(f.now.Add(time.Second), false)
	pkt := decodeData(t, f.sender.unreliable()[1].payload)
	for _, j := range pkt.Data.Joints {
		assert.T(t, !j.RotationValid)
	}

	f.dice = 0.01
	f.pub.Tick(f.now.Add(2*time.Second), false)
	pkt = decodeData(t, f.sender.unreliable()[2].payload)
	for _, j := range pkt.Data.Joints {
		assert.T(t, j.RotationValid && j.TranslationValid)
	}

	f.dice = 0.5
	f.pub.RequestFullSend()
	f.pub.Tick(f.now.Add(3*time.Second), false)
	pkt = decodeData(t, f.sender.unreliable()[3].payload)
	assert.T(t, pkt.Data.Joints[0].RotationValid)
	f.pub.Tick(f.now.Add(4*time.Second), false)
	pkt = decodeData(t, f.sender.unreliable()[4].payload)
	assert.T(t, !pkt.Data.Joints[0].RotationValid)
}

func TestLadderDropsFaceTracking(t *testing.T) {
	f := newFixture()
	f.pose(60, 200)
	size := f.pub.SendAvatarData(false)
	assert.T(t, size > 0 && size <= 1400)
	assert.Equal(t, 2, f.clocks)

	pkt := decodeData(t, f.sender.unreliable()[0].payload)
	assert.T(t, !pkt.Data.Has(proto.AD_FACE_TRACKER))
	assert.T(t, pkt.Data.Has(proto.AD_JOINT_DATA))
	assert.Equal(t, 60, len(pkt.Data.Joints))
}

func TestLadderFallsToMinimumData(t *testing.T) {
	f := newFixture()
	f.pose(120, 10)
	size := f.pub.SendAvatarData(false)
	assert.T(t, size > 0)
	assert.Equal(t, 3, f.clocks)

	pkt := decodeData(t, f.sender.unreliable()[0].payload)
	assert.Equal(t, []int{proto.AD_GLOBAL_POSITION, proto.AD_ORIENTATION, proto.AD_SCALE, proto.AD_ADDITIONAL_FLAGS}, pkt.Data.Present.Indices())
	// joints were not sent so they stay dirty
	assert.T(t, f.local.HasDirtyJoints())
}

func TestLadderExhausted(t *testing.T) {
	f := newFixture()
	f.pub.MaxDataSize = 20
	assert.Equal(t, 0, f.pub.SendAvatarData(false))
	assert.Equal(t, 3, f.clocks)
	assert.Equal(t, 0, len(f.sender.sent))
	assert.Equal(t, uint16(0), f.local.DataSequence())
}
