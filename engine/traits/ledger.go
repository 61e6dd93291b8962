package traits

import (
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/proto"
)

// RemoteLedger remembers the last applied version of each trait of each remote avatar
type RemoteLedger struct {
	versions map[common.SessionID]map[proto.TraitType]proto.TraitVersion
}

// NewRemoteLedger creates an empty RemoteLedger
func NewRemoteLedger() *RemoteLedger {
	return &RemoteLedger{
		versions: map[common.SessionID]map[proto.TraitType]proto.TraitVersion{},
	}
}

// Version returns the last applied version of trait tt of avatar id
func (rl *RemoteLedger) Version(id common.SessionID, tt proto.TraitType) (proto.TraitVersion, bool) {
	v, ok := rl.versions[id][tt]
	return v, ok
}

// Versions returns a copy of the last applied versions of avatar id
func (rl *RemoteLedger) Versions(id common.SessionID) map[proto.TraitType]proto.TraitVersion {
	traitVersions := rl.versions[id]
	if traitVersions == nil {
		return nil
	}
	res := make(map[proto.TraitType]proto.TraitVersion, len(traitVersions))
	for tt, v := range traitVersions {
		res[tt] = v
	}
	return res
}

// ShouldApply returns if version is newer than the last applied one
func (rl *RemoteLedger) ShouldApply(id common.SessionID, tt proto.TraitType, version proto.TraitVersion) bool {
	last, ok := rl.Version(id, tt)
	return !ok || version > last
}

// Record stores version as the last applied one
func (rl *RemoteLedger) Record(id common.SessionID, tt proto.TraitType, version proto.TraitVersion) {
	traitVersions := rl.versions[id]
	if traitVersions == nil {
		traitVersions = map[proto.TraitType]proto.TraitVersion{}
		rl.versions[id] = traitVersions
	}
	traitVersions[tt] = version
}

// Apply calls apply and records version only if it is newer than the last applied one
func (rl *RemoteLedger) Apply(id common.SessionID, tt proto.TraitType, version proto.TraitVersion, apply func()) bool {
	if !rl.ShouldApply(id, tt, version) {
		if consts.DEBUG_TRAITS {
			gwlog.Debugf("RemoteLedger: ignore trait %s of %s version %d", tt, id, version)
		}
		return false
	}
	apply()
	rl.Record(id, tt, version)
	return true
}

// Forget drops the versions of avatar id
func (rl *RemoteLedger) Forget(id common.SessionID) {
	delete(rl.versions, id)
}

// Clear drops all versions
func (rl *RemoteLedger) Clear() {
	rl.versions = map[common.SessionID]map[proto.TraitType]proto.TraitVersion{}
}

// Len returns the number of avatars with recorded versions
func (rl *RemoteLedger) Len() int {
	return len(rl.versions)
}
