package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/avatarmgr"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/config"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/gwutils"
	"github.com/goavatar/goavatar/engine/gwvar"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/goavatar/goavatar/engine/nodelist"
	"github.com/goavatar/goavatar/engine/opmon"
	"github.com/goavatar/goavatar/engine/post"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/publisher"
	"github.com/goavatar/goavatar/engine/traits"
	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	timer "github.com/xiaonanln/goTimer"
)

var (
	errNoAvatarMixer = errors.New("no avatar mixer")
	errClosed        = errors.New("session closed")
)

// mixerLinks are the links to one mixer node, stored in the node Tag
type mixerLinks struct {
	unreliable netutil.Link
	reliable   netutil.Link
}

func (ml *mixerLinks) pick(reliable bool) netutil.Link {
	if reliable && ml.reliable != nil {
		return ml.reliable
	}
	if ml.unreliable != nil {
		return ml.unreliable
	}
	return ml.reliable
}

func (ml *mixerLinks) close() {
	if ml.unreliable != nil {
		ml.unreliable.Close()
	}
	if ml.reliable != nil {
		ml.reliable.Close()
	}
}

// Session is the connection of the local avatar to a domain's relay nodes
//
// All avatar state is owned by the logic routine, which is the routine calling Run (or Tick).
// Receive goroutines only post packets into the session queue.
type Session struct {
	cfg         *config.GoAvatarConfig
	local       *avatar.Avatar
	localTraits *traits.LocalTraits
	directory   *avatarmgr.Directory
	publisher   *publisher.Publisher
	nodes       *nodelist.NodeList
	queue       *post.Queue

	nextNodeID  uint16
	viewChanged bool
	closed      xnsyncutil.AtomicBool
}

// New creates a session publishing a local avatar set up from cfg
func New(cfg *config.GoAvatarConfig, delegate avatarmgr.IDirectoryDelegate) *Session {
	s := &Session{
		cfg:         cfg,
		local:       avatar.New(common.LocalAvatar),
		localTraits: traits.NewLocalTraits(),
		nodes:       nodelist.New(),
		queue:       post.NewQueue(),
	}

	s.local.SetTraitHook(s.localTraits.MarkTraitChanged)
	s.local.SetDomainMinimumHeight(float32(cfg.Domain.MinAvatarHeight))
	s.local.SetDomainMaximumHeight(float32(cfg.Domain.MaxAvatarHeight))
	s.local.SetTargetScale(float32(cfg.Avatar.TargetScale))
	if cfg.Avatar.DisplayName != "" {
		s.local.SetDisplayName(cfg.Avatar.DisplayName)
	}
	if cfg.Avatar.SkeletonModelURL != "" {
		s.local.SetSkeletonModelURL(cfg.Avatar.SkeletonModelURL)
	}

	s.directory = avatarmgr.New(s.local, s, delegate)
	s.directory.SetRequestsDomainListData(cfg.Client.RequestsDomainListData)

	s.publisher = publisher.New(s.local, s.localTraits, s.nodes, s)
	s.publisher.MinSendInterval = cfg.Client.PublishInterval()
	s.publisher.FullUpdateRatio = cfg.Client.FullUpdateRatio
	s.publisher.MaxDataSize = cfg.Client.MaxAvatarDataSize
	return s
}

func (s *Session) String() string {
	return fmt.Sprintf("Session<%s>", s.local)
}

// LocalAvatar returns the avatar published by the session
func (s *Session) LocalAvatar() *avatar.Avatar {
	return s.local
}

// Directory returns the remote avatars of the session
func (s *Session) Directory() *avatarmgr.Directory {
	return s.directory
}

// Publisher returns the publisher of the local avatar
func (s *Session) Publisher() *publisher.Publisher {
	return s.publisher
}

// Nodes returns the relay nodes of the session
func (s *Session) Nodes() *nodelist.NodeList {
	return s.nodes
}

// Post runs f on the logic routine, it is safe to call from any goroutine
func (s *Session) Post(f post.PostCallback) {
	s.queue.Post(f)
}

// SetOwnerSessionID sets the session id the domain assigned to this client
//
// Data the mixer sends about that id is then not tracked as a remote avatar. Like every method
// touching avatars it must run on the logic routine, use Post from other routines.
func (s *Session) SetOwnerSessionID(id common.SessionID) {
	s.directory.SetLastOwnerSessionID(id)
}

// OwnerSessionID returns the session id the domain assigned to this client
func (s *Session) OwnerSessionID() common.SessionID {
	return s.directory.LastOwnerSessionID()
}

// SetViewChanged makes the next Tick publish regardless of the send interval
func (s *Session) SetViewChanged() {
	s.viewChanged = true
}

// Connect dials the mixer addresses of the config and attaches them as one avatar mixer
func (s *Session) Connect() (*nodelist.Node, error) {
	mc := &s.cfg.Mixer
	var unreliable, reliable netutil.Link
	if mc.UDPAddr != "" {
		udpLink, err := netutil.DialUDP(mc.UDPAddr)
		if err != nil {
			return nil, err
		}
		unreliable = udpLink
	}
	if mc.KCPAddr != "" {
		kcpLink, err := netutil.DialKCP(mc.KCPAddr, mc.KCPDataShards, mc.KCPParityShards)
		if err != nil {
			if unreliable != nil {
				unreliable.Close()
			}
			return nil, err
		}
		reliable = kcpLink
	}

	addr := mc.UDPAddr
	if addr == "" {
		addr = mc.KCPAddr
	}
	return s.AttachMixer(addr, unreliable, reliable), nil
}

// AttachMixer adds an avatar mixer reached through the links and starts receiving from them
//
// Either link may be nil, the other one is then used for all packets.
func (s *Session) AttachMixer(addr string, unreliable, reliable netutil.Link) *nodelist.Node {
	s.nextNodeID++
	node := &nodelist.Node{
		ID:   s.nextNodeID,
		Type: nodelist.AvatarMixer,
		Addr: addr,
		Tag:  &mixerLinks{unreliable: unreliable, reliable: reliable},
	}
	s.nodes.Add(node)
	gwvar.IsConnected.Set(true)
	gwlog.Infof("%s: avatar mixer %s attached", s, node)

	for _, link := range []netutil.Link{unreliable, reliable} {
		if link == nil {
			continue
		}
		link := link
		go gwutils.RunPanicless(func() {
			s.recvRoutine(node, link)
		})
	}

	// a new mixer knows nothing about the local avatar
	s.localTraits.MarkInitialSend()
	s.local.MarkIdentityChanged()
	s.publisher.RequestFullSend()
	return node
}

func (s *Session) recvRoutine(node *nodelist.Node, link netutil.Link) {
	for {
		packet, err := link.RecvPacket()
		if err != nil {
			if s.closed.Load() {
				return
			}
			// a reliable stream can not resync after a bad frame
			if netutil.IsConnectionError(err) || link.Reliable() {
				gwlog.Warnf("%s: link to %s lost: %v", s, node, err)
				s.queue.Post(func() {
					s.onMixerLost(node)
				})
				return
			}
			gwlog.Warnf("%s: recv from %s failed: %v", s, node, err)
			continue
		}

		if consts.DEBUG_PACKETS {
			gwlog.Debugf("%s: recv %d bytes from %s", s, packet.GetPayloadLen(), node)
		}
		s.queue.Post(func() {
			s.HandlePacket(packet)
			packet.Release()
		})
	}
}

func (s *Session) onMixerLost(node *nodelist.Node) {
	if s.nodes.Remove(node.ID) == nil {
		return
	}
	node.Tag.(*mixerLinks).close()
	if s.nodes.First(nodelist.AvatarMixer) == nil {
		gwvar.IsConnected.Set(false)
		gwlog.Warnf("%s: no avatar mixer left, clearing %d avatars", s, s.directory.Count())
		s.directory.ClearOtherAvatars()
	}
}

// HandlePacket decodes one inbound packet and applies it to the directory
func (s *Session) HandlePacket(packet *netutil.Packet) error {
	msg, err := proto.Decode(packet)
	if err != nil {
		gwlog.Warnf("%s: drop invalid packet: %v", s, err)
		return err
	}
	s.directory.Handle(msg)
	return nil
}

// SendReliable sends msg to every avatar mixer over the reliable links
func (s *Session) SendReliable(msg proto.OutboundMessage) error {
	if s.closed.Load() {
		return errClosed
	}
	packet := netutil.NewPacket()
	defer packet.Release()
	if proto.Encode(packet, msg) == 0 {
		return errors.Wrapf(netutil.ErrPacketOverflow, "encode %s", msg.MsgType())
	}

	var err error
	sent := 0
	s.nodes.Each(nodelist.AvatarMixer, func(node *nodelist.Node) {
		if e := s.SendPacket(node, packet, true); e != nil {
			err = e
			return
		}
		sent++
	})
	if sent == 0 {
		if err == nil {
			err = errNoAvatarMixer
		}
		return err
	}
	return nil
}

// SendPacket sends packet to node over the reliable or unreliable link
func (s *Session) SendPacket(node *nodelist.Node, packet *netutil.Packet, reliable bool) error {
	if s.closed.Load() {
		return errClosed
	}
	links, ok := node.Tag.(*mixerLinks)
	if !ok {
		return errors.Errorf("%s has no links", node)
	}
	link := links.pick(reliable)
	if link == nil {
		return errors.Errorf("%s has no links", node)
	}
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s: send %s (%d bytes, reliable=%v) to %s", s, proto.MsgType(packet.Payload()[0]), packet.GetPayloadLen(), reliable, node)
	}
	return errors.Wrapf(link.SendPacket(packet), "send to %s", node)
}

// Tick runs posted packets, timers and the publisher once
func (s *Session) Tick(now time.Time) {
	s.queue.Tick()
	timer.Tick()
	viewChanged := s.viewChanged
	s.viewChanged = false
	s.publisher.Tick(now, viewChanged)
}

// Run ticks the session until ctx is done, then disconnects
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Client.LoopInterval())
	defer ticker.Stop()
	statsTimer := timer.AddTimer(consts.SESSION_STATS_INTERVAL, s.logStats)
	defer statsTimer.Cancel()
	if consts.OPMON_DUMP_INTERVAL > 0 {
		dumpTimer := timer.AddTimer(consts.OPMON_DUMP_INTERVAL, func() {
			opmon.Dump(os.Stderr)
		})
		defer dumpTimer.Cancel()
	}

	for {
		select {
		case <-ctx.Done():
			s.queue.Tick()
			s.Disconnect()
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

func (s *Session) logStats() {
	gwlog.Infof("%s: %d avatars, %d mixers, data sequence %d", s, s.directory.Count(), s.nodes.Len(), s.local.DataSequence())
	gwvar.AvatarCount.Set(int64(s.directory.Count()))
	gwvar.MixerCount.Set(int64(s.nodes.Len()))
	gwvar.DataSequence.Set(int64(s.local.DataSequence()))
}

// Disconnect closes every link and clears the remote avatars
func (s *Session) Disconnect() {
	if s.closed.Load() {
		return
	}
	s.closed.Store(true)

	var ids []uint16
	s.nodes.Each(nodelist.AvatarMixer, func(node *nodelist.Node) {
		ids = append(ids, node.ID)
	})
	for _, id := range ids {
		node := s.nodes.Remove(id)
		node.Tag.(*mixerLinks).close()
	}
	s.directory.ClearOtherAvatars()
	gwvar.IsConnected.Set(false)
	gwlog.Infof("%s: disconnected", s)
}

// IsClosed returns if Disconnect was called
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}
