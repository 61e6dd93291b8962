package publisher

import (
	"math/rand"
	"time"

	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/goavatar/goavatar/engine/nodelist"
	"github.com/goavatar/goavatar/engine/opmon"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/traits"
)

// Sender sends encoded packets to relay nodes
//
// The packet stays owned by the caller.
type Sender interface {
	SendPacket(node *nodelist.Node, packet *netutil.Packet, reliable bool) error
}

type attempt struct {
	level    avatar.DetailLevel
	dropFace bool
}

// Publisher publishes the local avatar to every avatar mixer
type Publisher struct {
	// MinSendInterval throttles Tick unless the view changed
	MinSendInterval time.Duration
	// FullUpdateRatio is the chance that a publish sends all data
	FullUpdateRatio float64
	// MaxDataSize bounds the size of an avatar data packet
	MaxDataSize int

	local       *avatar.Avatar
	localTraits *traits.LocalTraits
	nodes       *nodelist.NodeList
	sender      Sender

	clock func() time.Time
	rand  func() float64

	lastPublish       time.Time
	fullSendRequested bool
}

// New creates a Publisher of the local avatar
func New(local *avatar.Avatar, localTraits *traits.LocalTraits, nodes *nodelist.NodeList, sender Sender) *Publisher {
	return &Publisher{
		MinSendInterval: consts.MIN_TIME_BETWEEN_AVATAR_DATA_SENDS,
		FullUpdateRatio: consts.AVATAR_SEND_FULL_UPDATE_RATIO,
		MaxDataSize:     consts.MAX_AVATAR_DATA_SIZE,
		local:           local,
		localTraits:     localTraits,
		nodes:           nodes,
		sender:          sender,
		clock:           time.Now,
		rand:            rand.Float64,
	}
}

// SetClock replaces the time source
func (p *Publisher) SetClock(clock func() time.Time) {
	p.clock = clock
}

// SetRand replaces the random source deciding full updates, it returns values in [0, 1)
func (p *Publisher) SetRand(rand func() float64) {
	p.rand = rand
}

// RequestFullSend makes the next publish send all data
func (p *Publisher) RequestFullSend() {
	p.fullSendRequested = true
}

func (p *Publisher) String() string {
	return "Publisher<" + p.local.String() + ">"
}

// Tick publishes identity, traits and avatar data if the send interval passed or the view changed
//
// It returns the size of the avatar data packet sent, or 0.
func (p *Publisher) Tick(now time.Time, viewChanged bool) int {
	if !viewChanged && now.Sub(p.lastPublish) < p.MinSendInterval {
		return 0
	}
	p.lastPublish = now

	// identity and traits stay pending until an avatar mixer can take them
	if p.nodes.First(nodelist.AvatarMixer) == nil {
		return 0
	}

	op := opmon.StartOperation("Publisher.Tick")
	defer op.Finish(consts.HANDLER_WARN_THRESHOLD)

	if p.local.ConsumeIdentityChanged() {
		if !p.SendIdentity() {
			p.local.MarkIdentityChanged()
		}
	}
	p.localTraits.SendChangedTraits(p.local, p.broadcastReliable)

	full := p.fullSendRequested || p.rand() < p.FullUpdateRatio
	return p.SendAvatarData(full)
}

// SendIdentity broadcasts the local identity with its current identity sequence
func (p *Publisher) SendIdentity() bool {
	msg := &proto.AvatarIdentity{Identity: p.local.IdentityState()}
	if consts.DEBUG_PUBLISH {
		gwlog.Debugf("%s: send identity %s", p, msg.Identity)
	}
	return p.broadcastReliable(msg) > 0
}

func (p *Publisher) broadcastReliable(msg proto.OutboundMessage) int {
	packet := netutil.NewPacket()
	defer packet.Release()

	size := proto.Encode(packet, msg)
	if size == 0 {
		gwlog.Warnf("%s: %s does not fit in a packet", p, msg.MsgType())
		return 0
	}
	sent := 0
	p.nodes.Each(nodelist.AvatarMixer, func(node *nodelist.Node) {
		if err := p.sender.SendPacket(node, packet, true); err != nil {
			gwlog.Warnf("%s: send %s to %s failed: %v", p, msg.MsgType(), node, err)
			return
		}
		sent++
	})
	if sent == 0 {
		return 0
	}
	return size
}

// SendAvatarData broadcasts the local avatar data to every avatar mixer
//
// The data is built at decreasing detail until it fits in MaxDataSize. It returns the size of the
// packet sent, or 0 if there is no avatar mixer or even minimum data does not fit.
func (p *Publisher) SendAvatarData(full bool) int {
	if p.nodes.First(nodelist.AvatarMixer) == nil {
		return 0
	}

	level := avatar.CullSmallData
	if full {
		level = avatar.SendAllData
	}
	attempts := [...]attempt{
		{level, false},
		{level, true},
		{avatar.MinimumData, true},
	}

	packet := netutil.NewBoundedPacket(p.MaxDataSize)
	defer packet.Release()

	for _, at := range attempts {
		now := p.clock()
		data := p.local.BuildDataPayload(at.level, at.dropFace, now)
		size := proto.Encode(packet, &proto.AvatarDataPacket{Sequence: p.local.DataSequence() + 1, Data: data})
		if size == 0 {
			if consts.DEBUG_PUBLISH {
				gwlog.Debugf("%s: avatar data at %s (drop face %v) exceeds %d bytes", p, at.level, at.dropFace, p.MaxDataSize)
			}
			continue
		}

		p.local.IncrementDataSequence()
		p.local.MarkDataSent(data, now)
		if full {
			p.fullSendRequested = false
		}
		p.nodes.Each(nodelist.AvatarMixer, func(node *nodelist.Node) {
			if err := p.sender.SendPacket(node, packet, false); err != nil {
				gwlog.Warnf("%s: send avatar data to %s failed: %v", p, node, err)
			}
		})
		return size
	}

	gwlog.Warnf("%s: avatar data does not fit in %d bytes even at %s, dropped", p, p.MaxDataSize, avatar.MinimumData)
	return 0
}
