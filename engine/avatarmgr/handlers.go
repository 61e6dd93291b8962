package avatarmgr

import (
	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/traits"
)

func (d *Directory) handleBulkAvatarData(m *proto.BulkAvatarData) {
	now := d.clock()
	for i := range m.Entries {
		e := &m.Entries[i]
		if e.Data == nil {
			gwlog.Warnf("%s: bulk data entry %d of %s has no data", d, i, e.ID)
			continue
		}

		var a *avatar.Avatar
		if e.ID.IsNil() {
			a = d.local
		} else if d.isSelf(e.ID) {
			continue
		} else if d.isIgnored(e.ID) {
			gwlog.Warnf("%s: discard data of ignored avatar %s", d, e.ID)
			continue
		} else {
			// data sent before a kill may arrive after it, so only an identity brings a removed avatar back
			a = d.findOrCreate(e.ID, nil)
			if a == nil {
				continue
			}
		}

		if !a.NoteReceivedDataSequence(e.Sequence) && consts.DEBUG_AVATARS {
			gwlog.Debugf("%s: data #%d of %s out of order", d, e.Sequence, a)
		}
		a.ApplyDataState(e.Data, now)
	}
}

func (d *Directory) handleAvatarIdentity(m *proto.AvatarIdentity) {
	incoming := m.Identity.Sequence

	var a *avatar.Avatar
	if m.ID.IsNil() || d.isSelf(m.ID) {
		a = d.local
	} else if d.isIgnored(m.ID) {
		gwlog.Warnf("%s: discard identity of ignored avatar %s", d, m.ID)
		return
	} else {
		a = d.findOrCreate(m.ID, func(ra *removedAvatar) bool {
			return !ra.hasIdentity || avatar.SequenceGreater(incoming, ra.identitySeq)
		})
		if a == nil {
			return
		}
	}

	if _, seeded := a.ReceivedIdentitySequence(); !seeded {
		a.SeedIdentitySequence(incoming - 1)
	}
	if last, _ := a.ReceivedIdentitySequence(); !avatar.SequenceGreater(incoming, last) {
		if consts.DEBUG_AVATARS {
			gwlog.Debugf("%s: stale identity #%d of %s, last is #%d", d, incoming, a, last)
		}
		return
	}
	a.ApplyIdentity(m.Identity)
}

func (d *Directory) handleKillAvatar(m *proto.KillAvatar) {
	if m.ID.IsNil() {
		gwlog.Warnf("%s: kill of null avatar id", d)
		return
	}
	if _, ok := d.avatars[m.ID]; !ok {
		gwlog.Warnf("%s: kill of unknown avatar %s (%s)", d, m.ID, m.Reason)
		return
	}
	d.removeAvatar(m.ID, m.Reason)
}

func (d *Directory) handleBulkAvatarTraits(m *proto.BulkAvatarTraits) {
	d.send(&proto.BulkAvatarTraitsAck{Sequence: m.Sequence})

	for i := range m.Avatars {
		entry := &m.Avatars[i]
		id := entry.ID
		if id.IsNil() || d.isSelf(id) {
			continue
		}
		if d.isIgnored(id) {
			gwlog.Warnf("%s: discard traits of ignored avatar %s", d, id)
			continue
		}

		// decode first so a malformed trait never leaves a half applied avatar
		commits := make([]func(a *avatar.Avatar), len(entry.Traits))
		for j := range entry.Traits {
			t := &entry.Traits[j]
			if !t.Type.IsSimple() {
				if consts.DEBUG_TRAITS {
					gwlog.Debugf("%s: skip instanced trait %s of %s", d, t.Type, id)
				}
				continue
			}
			commit, err := traits.DecodeSimpleTrait(t)
			if err != nil {
				gwlog.Warnf("%s: invalid trait %s of %s: %v", d, t.Type, id, err)
				continue
			}
			commits[j] = commit
		}

		a := d.findOrCreate(id, nil)
		if a == nil {
			continue
		}

		for j := range entry.Traits {
			if commit := commits[j]; commit != nil {
				d.remoteTraits.Apply(id, entry.Traits[j].Type, entry.Traits[j].Version, func() {
					commit(a)
				})
			}
		}
	}
}
