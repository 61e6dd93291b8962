package session

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/config"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/goavatar/goavatar/engine/proto"
)

type fakeLink struct {
	reliable bool
	in       chan *netutil.Packet
	closed   chan struct{}
	once     sync.Once

	lock sync.Mutex
	sent [][]byte
}

func newFakeLink(reliable bool) *fakeLink {
	return &fakeLink{
		reliable: reliable,
		in:       make(chan *netutil.Packet, 16),
		closed:   make(chan struct{}),
	}
}

func (l *fakeLink) SendPacket(packet *netutil.Packet) error {
	l.lock.Lock()
	l.sent = append(l.sent, append([]byte(nil), packet.Payload()...))
	l.lock.Unlock()
	return nil
}

func (l *fakeLink) RecvPacket() (*netutil.Packet, error) {
	select {
	case p := <-l.in:
		return p, nil
	case <-l.closed:
		return nil, io.EOF
	}
}

func (l *fakeLink) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *fakeLink) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 48000}
}

func (l *fakeLink) Reliable() bool {
	return l.reliable
}

func (l *fakeLink) deliver(msg proto.OutboundMessage) {
	p := netutil.NewPacket()
	proto.Encode(p, msg)
	l.in <- netutil.NewPacketFromPayload(append([]byte(nil), p.Payload()...))
	p.Release()
}

func (l *fakeLink) sentTypes() []proto.MsgType {
	l.lock.Lock()
	defer l.lock.Unlock()
	var types []proto.MsgType
	for _, payload := range l.sent {
		types = append(types, proto.MsgType(payload[0]))
	}
	return types
}

func (l *fakeLink) findSent(mt proto.MsgType) []byte {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, payload := range l.sent {
		if proto.MsgType(payload[0]) == mt {
			return payload
		}
	}
	return nil
}

type removal struct {
	id     common.SessionID
	reason proto.KillAvatarReason
}

type fakeDelegate struct {
	added   []common.SessionID
	removed []removal
}

func (d *fakeDelegate) OnAvatarAdded(id common.SessionID) {
	d.added = append(d.added, id)
}

func (d *fakeDelegate) OnAvatarRemoved(id common.SessionID, reason proto.KillAvatarReason) {
	d.removed = append(d.removed, removal{id, reason})
}

type fixture struct {
	s          *Session
	delegate   *fakeDelegate
	unreliable *fakeLink
	reliable   *fakeLink
}

func newFixture(t *testing.T) *fixture {
	cfg, err := config.LoadFile([]byte(`
[avatar]
display_name = Tester
skeleton_model_url = http://models/tester.fst
`))
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		delegate:   &fakeDelegate{},
		unreliable: newFakeLink(false),
		reliable:   newFakeLink(true),
	}
	f.s = New(cfg, f.delegate)
	f.s.AttachMixer("127.0.0.1:48000", f.unreliable, f.reliable)
	return f
}

// tickUntil ticks the session until cond holds
func (f *fixture) tickUntil(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(time.Second * 2)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached")
		}
		f.s.Tick(time.Now())
		time.Sleep(time.Millisecond)
	}
}

func TestAttachMixerPublishes(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	f.s.Tick(time.Now())
	assert.Equal(t, []proto.MsgType{proto.MT_AVATAR_IDENTITY, proto.MT_SET_AVATAR_TRAITS}, f.reliable.sentTypes())
	assert.Equal(t, []proto.MsgType{proto.MT_AVATAR_DATA}, f.unreliable.sentTypes())
	assert.Equal(t, uint16(1), f.s.LocalAvatar().DataSequence())
	assert.Equal(t, "Tester", f.s.LocalAvatar().DisplayName())
}

func TestViewChangedBypassesThrottle(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	now := time.Now()
	f.s.Tick(now)
	f.s.Tick(now.Add(time.Millisecond))
	assert.Equal(t, 1, len(f.unreliable.sentTypes()))
	f.s.SetViewChanged()
	f.s.Tick(now.Add(2 * time.Millisecond))
	assert.Equal(t, 2, len(f.unreliable.sentTypes()))
}

func TestInboundAvatarLifecycle(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	id := common.GenSessionID()
	f.reliable.deliver(&proto.AvatarIdentity{ID: id, Identity: proto.IdentityState{Sequence: 3, DisplayName: "Remote"}})
	f.tickUntil(t, func() bool { return f.s.Directory().Count() == 1 })

	a := f.s.Directory().Avatar(common.RemoteAvatar(id))
	assert.T(t, a != nil)
	assert.Equal(t, "Remote", a.DisplayName())
	assert.Equal(t, []common.SessionID{id}, f.delegate.added)

	f.reliable.deliver(&proto.KillAvatar{ID: id, Reason: proto.TheirAvatarEnteredYourBubble})
	f.tickUntil(t, func() bool { return f.s.Directory().Count() == 0 })
	assert.Equal(t, []removal{{id, proto.TheirAvatarEnteredYourBubble}}, f.delegate.removed)
}

func TestOwnerSessionIDFiltered(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	own, other := common.GenSessionID(), common.GenSessionID()
	done := make(chan struct{})
	f.s.Post(func() {
		f.s.SetOwnerSessionID(own)
		close(done)
	})
	f.tickUntil(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	})
	assert.Equal(t, own, f.s.OwnerSessionID())

	data := proto.NewAvatarDataState()
	data.Include(proto.AD_GLOBAL_POSITION)
	f.unreliable.deliver(&proto.BulkAvatarData{Entries: []proto.AvatarDataEntry{
		{ID: own, Sequence: 1, Data: data},
		{ID: other, Sequence: 1, Data: data},
	}})
	f.tickUntil(t, func() bool { return f.s.Directory().Count() == 1 })
	assert.T(t, f.s.Directory().Avatar(common.RemoteAvatar(own)) == nil)
	assert.Equal(t, []common.SessionID{other}, f.delegate.added)
}

func TestBulkTraitsAcked(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	id := common.GenSessionID()
	f.reliable.deliver(&proto.BulkAvatarTraits{Sequence: 7, Avatars: []proto.AvatarTraits{{
		ID:     id,
		Traits: []proto.TraitUpdate{{Type: proto.SkeletonModelURL, Version: 1, Data: []byte("http://models/remote.fst")}},
	}}})
	f.tickUntil(t, func() bool { return f.reliable.findSent(proto.MT_BULK_AVATAR_TRAITS_ACK) != nil })

	ack := netutil.NewPacketFromPayload(f.reliable.findSent(proto.MT_BULK_AVATAR_TRAITS_ACK))
	defer ack.Release()
	ack.Skip(1)
	assert.Equal(t, uint64(7), ack.ReadUint64())

	a := f.s.Directory().Avatar(common.RemoteAvatar(id))
	assert.T(t, a != nil)
	assert.Equal(t, "http://models/remote.fst", a.SkeletonModelURL())
}

func TestInvalidPacketDropped(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	p := netutil.NewPacketFromPayload([]byte{0xff, 1, 2})
	defer p.Release()
	assert.T(t, f.s.HandlePacket(p) != nil)
	assert.Equal(t, 0, f.s.Directory().Count())
}

func TestMixerLostClearsAvatars(t *testing.T) {
	f := newFixture(t)
	defer f.s.Disconnect()

	id := common.GenSessionID()
	f.unreliable.deliver(&proto.AvatarIdentity{ID: id, Identity: proto.IdentityState{Sequence: 1}})
	f.tickUntil(t, func() bool { return f.s.Directory().Count() == 1 })

	f.unreliable.Close()
	f.tickUntil(t, func() bool { return f.s.Nodes().Len() == 0 })
	assert.Equal(t, 0, f.s.Directory().Count())
	assert.Equal(t, proto.AvatarDisconnected, f.delegate.removed[0].reason)

	select {
	case <-f.reliable.closed:
	default:
		t.Errorf("reliable link should be closed with the mixer")
	}
	assert.Equal(t, errNoAvatarMixer, f.s.SendReliable(&proto.BulkAvatarTraitsAck{Sequence: 1}))
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	f.s.Disconnect()
	assert.T(t, f.s.IsClosed())
	assert.Equal(t, 0, f.s.Nodes().Len())
	assert.Equal(t, errClosed, f.s.SendReliable(&proto.BulkAvatarTraitsAck{Sequence: 1}))
	// disconnecting twice is harmless
	f.s.Disconnect()
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()

	err := f.s.Run(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.T(t, f.s.IsClosed())
	assert.T(t, len(f.unreliable.sentTypes()) > 0)
}
