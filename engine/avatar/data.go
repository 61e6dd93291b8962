package avatar

import (
	"time"

	"github.com/goavatar/goavatar/engine/bitcodec"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/vmath"
)

// DetailLevel selects how much of the avatar data is published
type DetailLevel int

const (
	// MinimumData sends position, orientation, scale and additional flags only
	MinimumData DetailLevel = iota
	// CullSmallData sends changed joints, skipping changes too small to notice
	CullSmallData
	// IncludeSmallData sends every changed joint
	IncludeSmallData
	// SendAllData sends every joint
	SendAllData
)

func (l DetailLevel) String() string {
	switch l {
	case MinimumData:
		return "MinimumData"
	case CullSmallData:
		return "CullSmallData"
	case IncludeSmallData:
		return "IncludeSmallData"
	case SendAllData:
		return "SendAllData"
	}
	return "UnknownDetailLevel"
}

// DataChanges tells which parts of a record changed when applying inbound data
type DataChanges int

const (
	// ChangedPosition means the world position changed
	ChangedPosition DataChanges = 1 << iota
	// ChangedOrientation means the world orientation changed
	ChangedOrientation
	// ChangedScale means the target scale changed
	ChangedScale
	// ChangedJoints means some joint override changed
	ChangedJoints
	// ChangedFace means the face tracking state was updated
	ChangedFace
)

// BuildDataPayload builds the avatar data to publish at the detail level
func (a *Avatar) BuildDataPayload(level DetailLevel, dropFaceTracking bool, now time.Time) *proto.AvatarDataState {
	s := proto.NewAvatarDataState()
	s.Include(proto.AD_GLOBAL_POSITION)
	s.GlobalPosition = a.position
	s.Include(proto.AD_ORIENTATION)
	s.Orientation = a.orientation
	s.Include(proto.AD_SCALE)
	s.Scale = a.DomainLimitedScale()
	s.Include(proto.AD_ADDITIONAL_FLAGS)
	s.Flags = a.flags
	if level == MinimumData {
		return s
	}

	s.Include(proto.AD_LOOK_AT)
	s.LookAt = a.lookAt
	s.Include(proto.AD_AUDIO_LOUDNESS)
	s.AudioLoudness = a.audioLoudness
	if a.hasFace && !dropFaceTracking {
		s.Include(proto.AD_FACE_TRACKER)
		s.Face = a.face
	}

	if len(a.joints) == 0 {
		return s
	}
	s.Include(proto.AD_JOINT_DATA)
	s.Joints = make([]proto.JointState, len(a.joints))
	for i := range a.joints {
		j := &a.joints[i]
		js := &s.Joints[i]
		if j.RotationSet && !j.RotationIsDefault && a.shouldSendRotation(level, i) {
			js.RotationValid = true
			js.Rotation = j.Rotation
		}
		if j.TranslationSet && !j.TranslationIsDefault && a.shouldSendTranslation(level, i) {
			js.TranslationValid = true
			js.Translation = j.Translation
		}
	}

	s.Include(proto.AD_JOINT_DEFAULT_POSE_FLAGS)
	s.DefaultRotations = bitcodec.NewBitSet(consts.MAX_JOINTS)
	s.DefaultTranslations = bitcodec.NewBitSet(consts.MAX_JOINTS)
	for i := range a.joints {
		if !a.joints[i].RotationSet || a.joints[i].RotationIsDefault {
			_ = s.DefaultRotations.Set(i)
		}
		if !a.joints[i].TranslationSet || a.joints[i].TranslationIsDefault {
			_ = s.DefaultTranslations.Set(i)
		}
	}
	return s
}

func (a *Avatar) shouldSendRotation(level DetailLevel, i int) bool {
	switch level {
	case SendAllData:
		return true
	case IncludeSmallData:
		return a.rotationsDirty.Test(i)
	}
	if !a.rotationsDirty.Test(i) {
		return false
	}
	if i >= len(a.lastSentJoints) || !a.lastSentJoints[i].RotationSet {
		return true
	}
	dot := a.joints[i].Rotation.Dot(a.lastSentJoints[i].Rotation)
	if dot < 0 {
		dot = -dot
	}
	return dot < consts.AVATAR_MIN_ROTATION_DOT
}

func (a *Avatar) shouldSendTranslation(level DetailLevel, i int) bool {
	switch level {
	case SendAllData:
		return true
	case IncludeSmallData:
		return a.translationsDirty.Test(i)
	}
	if !a.translationsDirty.Test(i) {
		return false
	}
	if i >= len(a.lastSentJoints) || !a.lastSentJoints[i].TranslationSet {
		return true
	}
	return a.joints[i].Translation.DistanceTo(a.lastSentJoints[i].Translation) >= consts.AVATAR_MIN_TRANSLATION
}

// MarkDataSent clears the dirty bits of the joints in a published payload
func (a *Avatar) MarkDataSent(s *proto.AvatarDataState, now time.Time) {
	a.lastSent = now
	if len(a.lastSentJoints) < len(a.joints) {
		grown := make([]JointData, len(a.joints))
		copy(grown, a.lastSentJoints)
		a.lastSentJoints = grown
	}
	for i, js := range s.Joints {
		if i >= len(a.joints) {
			break
		}
		if js.RotationValid {
			a.rotationsDirty.Clear(i)
			a.lastSentJoints[i].Rotation = js.Rotation
			a.lastSentJoints[i].RotationSet = true
		}
		if js.TranslationValid {
			a.translationsDirty.Clear(i)
			a.lastSentJoints[i].Translation = js.Translation
			a.lastSentJoints[i].TranslationSet = true
		}
	}
	if s.Has(proto.AD_JOINT_DEFAULT_POSE_FLAGS) {
		for i := range a.joints {
			if s.DefaultRotations.Test(i) {
				a.rotationsDirty.Clear(i)
			}
			if s.DefaultTranslations.Test(i) {
				a.translationsDirty.Clear(i)
			}
		}
	}
}

// HasDirtyJoints returns if any joint changed since it was last published
func (a *Avatar) HasDirtyJoints() bool {
	return a.rotationsDirty.Any() || a.translationsDirty.Any()
}

// ApplyDataState applies inbound avatar data, only sections present in s are applied
func (a *Avatar) ApplyDataState(s *proto.AvatarDataState, now time.Time) DataChanges {
	var changes DataChanges
	a.lastUpdated = now

	if s.Has(proto.AD_GLOBAL_POSITION) && s.GlobalPosition != a.position {
		a.position = s.GlobalPosition
		changes |= ChangedPosition
	}
	if s.Has(proto.AD_ORIENTATION) && s.Orientation != a.orientation {
		a.orientation = s.Orientation
		changes |= ChangedOrientation
	}
	if s.Has(proto.AD_SCALE) {
		old := a.targetScale
		a.SetTargetScale(s.Scale)
		if a.targetScale != old {
			changes |= ChangedScale
		}
	}
	if s.Has(proto.AD_LOOK_AT) {
		a.lookAt = s.LookAt
	}
	if s.Has(proto.AD_AUDIO_LOUDNESS) {
		a.audioLoudness = s.AudioLoudness
	}
	if s.Has(proto.AD_ADDITIONAL_FLAGS) {
		a.flags = s.Flags
	}
	if s.Has(proto.AD_FACE_TRACKER) {
		a.SetFaceTracking(s.Face)
		changes |= ChangedFace
	}

	if s.Has(proto.AD_JOINT_DATA) {
		if len(s.Joints) != len(a.joints) {
			a.resizeJoints(len(s.Joints))
			changes |= ChangedJoints
		}
		for i, js := range s.Joints {
			if i >= len(a.joints) {
				break
			}
			j := &a.joints[i]
			if js.RotationValid && (!j.RotationSet || j.RotationIsDefault || j.Rotation != js.Rotation) {
				j.Rotation = js.Rotation
				j.RotationSet = true
				j.RotationIsDefault = false
				changes |= ChangedJoints
			}
			if js.TranslationValid && (!j.TranslationSet || j.TranslationIsDefault || j.Translation != js.Translation) {
				j.Translation = js.Translation
				j.TranslationSet = true
				j.TranslationIsDefault = false
				changes |= ChangedJoints
			}
		}
	}

	if s.Has(proto.AD_JOINT_DEFAULT_POSE_FLAGS) {
		if len(s.Joints) > len(a.joints) {
			a.resizeJoints(len(s.Joints))
		}
		for i := range a.joints {
			j := &a.joints[i]
			if s.DefaultRotations.Test(i) && !j.RotationIsDefault {
				j.RotationIsDefault = true
				j.Rotation = vmath.IdentityQuat
				changes |= ChangedJoints
			}
			if s.DefaultTranslations.Test(i) && !j.TranslationIsDefault {
				j.TranslationIsDefault = true
				j.Translation = vmath.Vector3{}
				changes |= ChangedJoints
			}
		}
	}
	return changes
}
