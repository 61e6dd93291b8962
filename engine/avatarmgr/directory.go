package avatarmgr

import (
	"sort"
	"time"

	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/gwutils"
	"github.com/goavatar/goavatar/engine/opmon"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/traits"
)

// IDirectoryDelegate receives avatar lifecycle notifications of a Directory
type IDirectoryDelegate interface {
	OnAvatarAdded(id common.SessionID)
	OnAvatarRemoved(id common.SessionID, reason proto.KillAvatarReason)
}

// Sender sends reliable messages to the avatar mixer
type Sender interface {
	SendReliable(msg proto.OutboundMessage) error
}

// removedAvatar remembers the sequences of a removed avatar, so that late messages can not recreate it
type removedAvatar struct {
	removedAt     time.Time
	dataSeq       uint16
	hasData       bool
	identitySeq   uint16
	hasIdentity   bool
	traitVersions map[proto.TraitType]proto.TraitVersion
}

// Directory owns the avatar records of one session
//
// Directory is not safe for concurrent use. All methods must be called from the session logic loop.
type Directory struct {
	local        *avatar.Avatar
	avatars      map[common.SessionID]*avatar.Avatar
	removed      map[common.SessionID]*removedAvatar
	ignored      common.SessionIDSet
	remoteTraits *traits.RemoteLedger

	lastOwnerSessionID     common.SessionID
	requestsDomainListData bool

	delegate IDirectoryDelegate
	sender   Sender
	clock    func() time.Time
}

// New creates a Directory around the local avatar
func New(local *avatar.Avatar, sender Sender, delegate IDirectoryDelegate) *Directory {
	return &Directory{
		local:        local,
		avatars:      map[common.SessionID]*avatar.Avatar{},
		removed:      map[common.SessionID]*removedAvatar{},
		ignored:      common.SessionIDSet{},
		remoteTraits: traits.NewRemoteLedger(),
		delegate:     delegate,
		sender:       sender,
		clock:        time.Now,
	}
}

// SetClock replaces the time source
func (d *Directory) SetClock(clock func() time.Time) {
	d.clock = clock
}

// SetDelegate sets the receiver of lifecycle notifications
func (d *Directory) SetDelegate(delegate IDirectoryDelegate) {
	d.delegate = delegate
}

// LocalAvatar returns the local avatar record
func (d *Directory) LocalAvatar() *avatar.Avatar {
	return d.local
}

// Avatar returns the record of ref, or nil
func (d *Directory) Avatar(ref common.AvatarRef) *avatar.Avatar {
	id, ok := ref.SessionID()
	if !ok {
		return d.local
	}
	return d.avatars[id]
}

// Count returns the number of remote avatars
func (d *Directory) Count() int {
	return len(d.avatars)
}

// ForEach calls f for each remote avatar in session id order
func (d *Directory) ForEach(f func(a *avatar.Avatar)) {
	for _, id := range d.sortedIDs() {
		f(d.avatars[id])
	}
}

func (d *Directory) sortedIDs() []common.SessionID {
	ids := make([]common.SessionID, 0, len(d.avatars))
	for id := range d.avatars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// RemoteTraits returns the version ledger of remote avatar traits
func (d *Directory) RemoteTraits() *traits.RemoteLedger {
	return d.remoteTraits
}

// LastOwnerSessionID returns the session id the domain assigned to the local avatar
func (d *Directory) LastOwnerSessionID() common.SessionID {
	return d.lastOwnerSessionID
}

// SetLastOwnerSessionID sets the session id the domain assigned to the local avatar
func (d *Directory) SetLastOwnerSessionID(id common.SessionID) {
	d.lastOwnerSessionID = id
	if !id.IsNil() && !d.requestsDomainListData {
		if _, ok := d.avatars[id]; ok {
			d.removeAvatar(id, proto.NoReason)
		}
	}
}

// RequestsDomainListData returns if avatars of the local session and ignored avatars are kept
func (d *Directory) RequestsDomainListData() bool {
	return d.requestsDomainListData
}

// SetRequestsDomainListData sets if avatars of the local session and ignored avatars are kept
func (d *Directory) SetRequestsDomainListData(requests bool) {
	d.requestsDomainListData = requests
}

// IsIgnored returns if avatar id is ignored
func (d *Directory) IsIgnored(id common.SessionID) bool {
	return d.ignored.Contains(id)
}

// Ignore stops accepting messages about avatar id and removes its record
func (d *Directory) Ignore(id common.SessionID) {
	if id.IsNil() || d.ignored.Contains(id) {
		return
	}
	d.ignored.Add(id)
	if _, ok := d.avatars[id]; ok && !d.requestsDomainListData {
		d.removeAvatar(id, proto.AvatarIgnored)
		// the ignore list filters it from now on
		delete(d.removed, id)
	}
	d.send(&proto.NodeIgnoreRequest{ID: id, Enabled: true})
}

// Unignore accepts messages about avatar id again; its record comes back with the next message
func (d *Directory) Unignore(id common.SessionID) {
	if !d.ignored.Contains(id) {
		return
	}
	d.ignored.Del(id)
	delete(d.removed, id)
	d.send(&proto.NodeIgnoreRequest{ID: id, Enabled: false})
}

// Handle applies one inbound message
//
// Handle never fails: invalid or stale messages are logged and dropped.
func (d *Directory) Handle(msg proto.InboundMessage) {
	if msg == nil {
		gwlog.Warnf("%s: nil message", d)
		return
	}
	op := opmon.StartOperation(msg.MsgType().String())
	defer op.Finish(consts.HANDLER_WARN_THRESHOLD)

	gwutils.RunPanicless(func() {
		switch m := msg.(type) {
		case *proto.BulkAvatarData:
			d.handleBulkAvatarData(m)
		case *proto.AvatarIdentity:
			d.handleAvatarIdentity(m)
		case *proto.KillAvatar:
			d.handleKillAvatar(m)
		case *proto.BulkAvatarTraits:
			d.handleBulkAvatarTraits(m)
		default:
			gwlog.Errorf("%s: unexpected message %s", d, msg.MsgType())
		}
	})
}

func (d *Directory) String() string {
	return "AvatarDirectory"
}

// ClearOtherAvatars removes all remote avatars, used when the avatar mixer is lost
func (d *Directory) ClearOtherAvatars() {
	for _, id := range d.sortedIDs() {
		d.removeAvatar(id, proto.AvatarDisconnected)
	}
	d.removed = map[common.SessionID]*removedAvatar{}
	d.remoteTraits.Clear()
}

func (d *Directory) send(msg proto.OutboundMessage) {
	if d.sender == nil {
		return
	}
	if err := d.sender.SendReliable(msg); err != nil {
		gwlog.Warnf("%s: send %s failed: %v", d, msg.MsgType(), err)
	}
}

// isSelf returns if id is the session of the local avatar and should not be tracked as a remote avatar
func (d *Directory) isSelf(id common.SessionID) bool {
	return !d.lastOwnerSessionID.IsNil() && id == d.lastOwnerSessionID && !d.requestsDomainListData
}

func (d *Directory) isIgnored(id common.SessionID) bool {
	return d.ignored.Contains(id) && !d.requestsDomainListData
}

// findOrCreate returns the record of id, creating it unless id was removed recently
//
// A recently removed avatar is only recreated if allowed accepts its tombstone; nil accepts none.
func (d *Directory) findOrCreate(id common.SessionID, allowed func(ra *removedAvatar) bool) *avatar.Avatar {
	if a := d.avatars[id]; a != nil {
		return a
	}

	now := d.clock()
	ra := d.removed[id]
	if ra != nil && now.Sub(ra.removedAt) > consts.REMOVED_AVATAR_MEMORY {
		delete(d.removed, id)
		ra = nil
	}
	if ra != nil && (allowed == nil || !allowed(ra)) {
		if consts.DEBUG_AVATARS {
			gwlog.Debugf("%s: stale message for removed avatar %s", d, id)
		}
		return nil
	}

	a := avatar.New(common.RemoteAvatar(id))
	if ra != nil {
		delete(d.removed, id)
		if ra.hasIdentity {
			a.SeedIdentitySequence(ra.identitySeq)
		}
		if ra.hasData {
			a.NoteReceivedDataSequence(ra.dataSeq)
		}
		for tt, v := range ra.traitVersions {
			d.remoteTraits.Record(id, tt, v)
		}
	}
	d.avatars[id] = a
	if consts.DEBUG_AVATARS {
		gwlog.Debugf("%s: avatar %s added", d, id)
	}
	if d.delegate != nil {
		d.delegate.OnAvatarAdded(id)
	}
	return a
}

func (d *Directory) removeAvatar(id common.SessionID, reason proto.KillAvatarReason) {
	a := d.avatars[id]
	if a == nil {
		return
	}
	delete(d.avatars, id)

	ra := &removedAvatar{removedAt: d.clock()}
	ra.identitySeq, ra.hasIdentity = a.ReceivedIdentitySequence()
	ra.dataSeq, ra.hasData = a.ReceivedDataSequence()
	ra.traitVersions = d.remoteTraits.Versions(id)
	d.remoteTraits.Forget(id)
	d.removed[id] = ra
	d.pruneRemoved(ra.removedAt)

	if consts.DEBUG_AVATARS {
		gwlog.Debugf("%s: avatar %s removed: %s", d, id, reason)
	}
	if d.delegate != nil {
		d.delegate.OnAvatarRemoved(id, reason)
	}
}

func (d *Directory) pruneRemoved(now time.Time) {
	for id, ra := range d.removed {
		if now.Sub(ra.removedAt) > consts.REMOVED_AVATAR_MEMORY {
			delete(d.removed, id)
		}
	}
}
