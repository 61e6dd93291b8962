package avatar

import (
	"fmt"
	"math"
	"time"

	"github.com/goavatar/goavatar/engine/bitcodec"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/vmath"
)

type dirtyFlag int

const (
	dfIdentityChanged dirtyFlag = 1 << iota
)

// JointInfo describes one joint of the avatar skeleton
type JointInfo struct {
	Name        string `msgpack:"N"`
	Index       int    `msgpack:"I"`
	ParentIndex int    `msgpack:"P"`
}

// JointData is the override of one joint
//
// An override that is not set, or is flagged as default, means "use the default pose".
type JointData struct {
	Rotation             vmath.Quat
	RotationSet          bool
	RotationIsDefault    bool
	Translation          vmath.Vector3
	TranslationSet       bool
	TranslationIsDefault bool
}

// IAvatarChangeDelegate receives change notifications of one avatar
type IAvatarChangeDelegate interface {
	OnDisplayNameChanged(a *Avatar)
	OnSessionDisplayNameChanged(a *Avatar)
	OnSkeletonModelURLChanged(a *Avatar)
	OnSkeletonJointsChanged(a *Avatar)
	OnTargetScaleChanged(a *Avatar)
}

// Avatar is the state of one avatar, local or remote
type Avatar struct {
	Ref common.AvatarRef

	delegate  IAvatarChangeDelegate
	traitHook func(tt proto.TraitType)
	dirty     dirtyFlag

	displayName        string
	sessionDisplayName string
	isReplicated       bool
	lookAtSnapping     bool
	verificationFailed bool

	skeletonModelURL  string
	skeleton          []JointInfo
	joints            []JointData
	lastSentJoints    []JointData
	rotationsDirty    *bitcodec.BitSet
	translationsDirty *bitcodec.BitSet

	targetScale     float32
	unscaledHeight  float32
	domainMinHeight float32
	domainMaxHeight float32

	position      vmath.Vector3
	orientation   vmath.Quat
	lookAt        vmath.Vector3
	audioLoudness float32
	flags         proto.AdditionalFlags
	face          proto.FaceTracker
	hasFace       bool

	dataSequence        uint16
	identitySequence    uint16
	receivedIdentitySeq uint16
	identitySeeded      bool
	receivedDataSeq     uint16
	hasReceivedData     bool
	outOfOrderDataCount int
	lastUpdated         time.Time
	lastSent            time.Time
}

// New creates an avatar record with default scale and domain limits
func New(ref common.AvatarRef) *Avatar {
	return &Avatar{
		Ref:               ref,
		targetScale:       1.0,
		domainMinHeight:   consts.MIN_AVATAR_HEIGHT,
		domainMaxHeight:   consts.MAX_AVATAR_HEIGHT,
		orientation:       vmath.IdentityQuat,
		rotationsDirty:    bitcodec.NewBitSet(consts.MAX_JOINTS),
		translationsDirty: bitcodec.NewBitSet(consts.MAX_JOINTS),
	}
}

func (a *Avatar) String() string {
	if a.displayName != "" {
		return fmt.Sprintf("%s(%s)", a.Ref, a.displayName)
	}
	return a.Ref.String()
}

// SetChangeDelegate sets the receiver of change notifications, nil to stop notifying
func (a *Avatar) SetChangeDelegate(delegate IAvatarChangeDelegate) {
	a.delegate = delegate
}

// SetTraitHook sets the function called whenever a trait of the avatar is modified
func (a *Avatar) SetTraitHook(hook func(tt proto.TraitType)) {
	a.traitHook = hook
}

func (a *Avatar) traitChanged(tt proto.TraitType) {
	if a.traitHook != nil {
		a.traitHook(tt)
	}
}

// Identity

// DisplayName returns the display name chosen by the avatar's user
func (a *Avatar) DisplayName() string {
	return a.displayName
}

// SetDisplayName sets the display name
func (a *Avatar) SetDisplayName(name string) {
	if name == a.displayName {
		return
	}
	a.displayName = name
	a.identityChanged()
	if a.delegate != nil {
		a.delegate.OnDisplayNameChanged(a)
	}
}

// SessionDisplayName returns the unique display name assigned by the mixer
func (a *Avatar) SessionDisplayName() string {
	return a.sessionDisplayName
}

// SetSessionDisplayName sets the session display name
func (a *Avatar) SetSessionDisplayName(name string) {
	if name == a.sessionDisplayName {
		return
	}
	a.sessionDisplayName = name
	a.identityChanged()
	if a.delegate != nil {
		a.delegate.OnSessionDisplayNameChanged(a)
	}
}

// IsReplicated returns if the avatar is a replica of an avatar from another mixer
func (a *Avatar) IsReplicated() bool {
	return a.isReplicated
}

// SetReplicated sets the replicated flag
func (a *Avatar) SetReplicated(replicated bool) {
	if replicated != a.isReplicated {
		a.isReplicated = replicated
		a.identityChanged()
	}
}

// LookAtSnappingEnabled returns if other avatars' eyes snap to this avatar
func (a *Avatar) LookAtSnappingEnabled() bool {
	return a.lookAtSnapping
}

// SetLookAtSnappingEnabled sets the look-at snapping flag
func (a *Avatar) SetLookAtSnappingEnabled(enabled bool) {
	if enabled != a.lookAtSnapping {
		a.lookAtSnapping = enabled
		a.identityChanged()
	}
}

// VerificationFailed returns if the avatar's identity could not be verified
func (a *Avatar) VerificationFailed() bool {
	return a.verificationFailed
}

// SetVerificationFailed sets the verification failed flag
func (a *Avatar) SetVerificationFailed(failed bool) {
	if failed != a.verificationFailed {
		a.verificationFailed = failed
		a.identityChanged()
	}
}

// IdentityChanged returns if identity data changed since the last ConsumeIdentityChanged
func (a *Avatar) IdentityChanged() bool {
	return a.dirty&dfIdentityChanged != 0
}

// MarkIdentityChanged makes the identity be published again with the current identity sequence
func (a *Avatar) MarkIdentityChanged() {
	a.dirty |= dfIdentityChanged
}

// identityChanged advances the outbound identity sequence, once per changed identity field
func (a *Avatar) identityChanged() {
	a.identitySequence++
	a.dirty |= dfIdentityChanged
}

// ConsumeIdentityChanged returns and clears the identity changed flag
func (a *Avatar) ConsumeIdentityChanged() bool {
	changed := a.IdentityChanged()
	a.dirty &^= dfIdentityChanged
	return changed
}

// IdentitySequence returns the outbound identity sequence of the local avatar
func (a *Avatar) IdentitySequence() uint16 {
	return a.identitySequence
}

// IdentityState returns the current identity carrying the outbound identity sequence
func (a *Avatar) IdentityState() proto.IdentityState {
	return proto.IdentityState{
		Sequence:              a.identitySequence,
		DisplayName:           a.displayName,
		SessionDisplayName:    a.sessionDisplayName,
		IsReplicated:          a.isReplicated,
		LookAtSnappingEnabled: a.lookAtSnapping,
		VerificationFailed:    a.verificationFailed,
	}
}

// ReceivedIdentitySequence returns the sequence of the last applied inbound identity,
// and false if no identity has been received yet
func (a *Avatar) ReceivedIdentitySequence() (uint16, bool) {
	return a.receivedIdentitySeq, a.identitySeeded
}

// SeedIdentitySequence sets the inbound identity sequence before the first identity is applied
func (a *Avatar) SeedIdentitySequence(seq uint16) {
	a.receivedIdentitySeq = seq
	a.identitySeeded = true
}

// ApplyIdentity applies an inbound identity without marking the identity as changed
//
// The local avatar only takes the fields the mixer owns: session display name and verification result.
func (a *Avatar) ApplyIdentity(s proto.IdentityState) (changed bool) {
	a.receivedIdentitySeq = s.Sequence
	a.identitySeeded = true

	dirty, seq := a.dirty, a.identitySequence
	if !a.Ref.IsLocal() {
		if s.DisplayName != a.displayName {
			a.SetDisplayName(s.DisplayName)
			changed = true
		}
		if s.IsReplicated != a.isReplicated {
			a.SetReplicated(s.IsReplicated)
			changed = true
		}
		if s.LookAtSnappingEnabled != a.lookAtSnapping {
			a.SetLookAtSnappingEnabled(s.LookAtSnappingEnabled)
			changed = true
		}
	}
	if s.SessionDisplayName != a.sessionDisplayName {
		a.SetSessionDisplayName(s.SessionDisplayName)
		changed = true
	}
	if s.VerificationFailed != a.verificationFailed {
		a.SetVerificationFailed(s.VerificationFailed)
		changed = true
	}
	a.dirty, a.identitySequence = dirty, seq
	return
}

// Data sequence

// DataSequence returns the sequence of the last published avatar data
func (a *Avatar) DataSequence() uint16 {
	return a.dataSequence
}

// IncrementDataSequence advances the data sequence after a successful publish
func (a *Avatar) IncrementDataSequence() uint16 {
	a.dataSequence++
	return a.dataSequence
}

// NoteReceivedDataSequence records the sequence of inbound avatar data, returns false if it is out of order
func (a *Avatar) NoteReceivedDataSequence(seq uint16) bool {
	if a.hasReceivedData && !SequenceGreater(seq, a.receivedDataSeq) {
		a.outOfOrderDataCount++
		return false
	}
	a.receivedDataSeq = seq
	a.hasReceivedData = true
	return true
}

// ReceivedDataSequence returns the sequence of the last in order inbound data, and false if none was received
func (a *Avatar) ReceivedDataSequence() (uint16, bool) {
	return a.receivedDataSeq, a.hasReceivedData
}

// OutOfOrderDataCount returns how many inbound data packets arrived out of order
func (a *Avatar) OutOfOrderDataCount() int {
	return a.outOfOrderDataCount
}

// SequenceGreater compares two 16 bit sequences with wraparound
func SequenceGreater(a, b uint16) bool {
	return int16(a-b) > 0
}

// Skeleton

// SkeletonModelURL returns the url of the avatar model
func (a *Avatar) SkeletonModelURL() string {
	return a.skeletonModelURL
}

// SetSkeletonModelURL sets the model url
func (a *Avatar) SetSkeletonModelURL(url string) {
	if url == a.skeletonModelURL {
		return
	}
	a.skeletonModelURL = url
	a.traitChanged(proto.SkeletonModelURL)
	if a.delegate != nil {
		a.delegate.OnSkeletonModelURLChanged(a)
	}
}

// Skeleton returns the joint list of the avatar skeleton
func (a *Avatar) Skeleton() []JointInfo {
	return a.skeleton
}

// SetSkeleton replaces the joint list and resizes joint overrides to match it
func (a *Avatar) SetSkeleton(skeleton []JointInfo) {
	a.skeleton = append([]JointInfo(nil), skeleton...)
	a.resizeJoints(len(skeleton))
	a.traitChanged(proto.SkeletonData)
	if a.delegate != nil {
		a.delegate.OnSkeletonJointsChanged(a)
	}
}

func (a *Avatar) resizeJoints(n int) {
	if n > consts.MAX_JOINTS {
		n = consts.MAX_JOINTS
	}
	if n <= len(a.joints) {
		for i := n; i < len(a.joints); i++ {
			a.rotationsDirty.Clear(i)
			a.translationsDirty.Clear(i)
		}
		a.joints = a.joints[:n]
		if len(a.lastSentJoints) > n {
			a.lastSentJoints = a.lastSentJoints[:n]
		}
		return
	}
	grown := make([]JointData, n)
	copy(grown, a.joints)
	a.joints = grown
}

// JointCount returns the number of joint overrides
func (a *Avatar) JointCount() int {
	return len(a.joints)
}

// Joint returns the override of joint i
func (a *Avatar) Joint(i int) (JointData, bool) {
	if i < 0 || i >= len(a.joints) {
		return JointData{}, false
	}
	return a.joints[i], true
}

// SetJointRotation overrides the rotation of joint i, growing the overrides if needed
func (a *Avatar) SetJointRotation(i int, q vmath.Quat) bool {
	if i < 0 || i >= consts.MAX_JOINTS {
		return false
	}
	if i >= len(a.joints) {
		a.resizeJoints(i + 1)
	}
	j := &a.joints[i]
	if !j.RotationSet || j.RotationIsDefault || j.Rotation != q {
		j.Rotation = q
		j.RotationSet = true
		j.RotationIsDefault = false
		_ = a.rotationsDirty.Set(i)
	}
	return true
}

// SetJointTranslation overrides the translation of joint i, growing the overrides if needed
func (a *Avatar) SetJointTranslation(i int, v vmath.Vector3) bool {
	if i < 0 || i >= consts.MAX_JOINTS {
		return false
	}
	if i >= len(a.joints) {
		a.resizeJoints(i + 1)
	}
	j := &a.joints[i]
	if !j.TranslationSet || j.TranslationIsDefault || j.Translation != v {
		j.Translation = v
		j.TranslationSet = true
		j.TranslationIsDefault = false
		_ = a.translationsDirty.Set(i)
	}
	return true
}

// ClearJointData makes joint i use the default pose
func (a *Avatar) ClearJointData(i int) {
	if i < 0 || i >= len(a.joints) {
		return
	}
	j := &a.joints[i]
	if j.RotationSet && !j.RotationIsDefault {
		_ = a.rotationsDirty.Set(i)
	}
	if j.TranslationSet && !j.TranslationIsDefault {
		_ = a.translationsDirty.Set(i)
	}
	*j = JointData{Rotation: vmath.IdentityQuat, RotationIsDefault: true, TranslationIsDefault: true}
}

// Scale

// TargetScale returns the scale chosen by the avatar's user
func (a *Avatar) TargetScale() float32 {
	return a.targetScale
}

// SetTargetScale sets the scale clamped to [MIN_AVATAR_SCALE, MAX_AVATAR_SCALE]
func (a *Avatar) SetTargetScale(scale float32) {
	scale = clamp(scale, consts.MIN_AVATAR_SCALE, consts.MAX_AVATAR_SCALE)
	if scale == a.targetScale {
		return
	}
	a.targetScale = scale
	if a.delegate != nil {
		a.delegate.OnTargetScaleChanged(a)
	}
}

// UnscaledHeight returns the avatar height at scale 1
func (a *Avatar) UnscaledHeight() float32 {
	return a.unscaledHeight
}

// SetUnscaledHeight sets the avatar height at scale 1, zero when not measured yet
func (a *Avatar) SetUnscaledHeight(height float32) {
	a.unscaledHeight = height
}

// DomainMinimumHeight returns the smallest avatar height the domain allows
func (a *Avatar) DomainMinimumHeight() float32 {
	return a.domainMinHeight
}

// SetDomainMinimumHeight sets the smallest avatar height the domain allows
func (a *Avatar) SetDomainMinimumHeight(height float32) {
	a.domainMinHeight = clamp(height, consts.MIN_AVATAR_HEIGHT, consts.MAX_AVATAR_HEIGHT)
}

// DomainMaximumHeight returns the largest avatar height the domain allows
func (a *Avatar) DomainMaximumHeight() float32 {
	return a.domainMaxHeight
}

// SetDomainMaximumHeight sets the largest avatar height the domain allows
func (a *Avatar) SetDomainMaximumHeight(height float32) {
	a.domainMaxHeight = clamp(height, consts.MIN_AVATAR_HEIGHT, consts.MAX_AVATAR_HEIGHT)
}

// DomainLimitedScale returns the target scale clamped to the domain height limits
func (a *Avatar) DomainLimitedScale() float32 {
	height := a.unscaledHeight
	if math.Abs(float64(height)) < consts.AVATAR_HEIGHT_EPSILON {
		height = consts.DEFAULT_AVATAR_HEIGHT
	}
	return clamp(a.targetScale, a.domainMinHeight/height, a.domainMaxHeight/height)
}

// Transform and others

// Position returns the world position
func (a *Avatar) Position() vmath.Vector3 {
	return a.position
}

// SetPosition sets the world position
func (a *Avatar) SetPosition(pos vmath.Vector3) {
	a.position = pos
}

// Orientation returns the world orientation
func (a *Avatar) Orientation() vmath.Quat {
	return a.orientation
}

// SetOrientation sets the world orientation
func (a *Avatar) SetOrientation(q vmath.Quat) {
	a.orientation = q
}

// LookAt returns the position the avatar looks at
func (a *Avatar) LookAt() vmath.Vector3 {
	return a.lookAt
}

// SetLookAt sets the look-at position
func (a *Avatar) SetLookAt(pos vmath.Vector3) {
	a.lookAt = pos
}

// AudioLoudness returns the loudness of the avatar's voice
func (a *Avatar) AudioLoudness() float32 {
	return a.audioLoudness
}

// SetAudioLoudness sets the loudness of the avatar's voice
func (a *Avatar) SetAudioLoudness(loudness float32) {
	a.audioLoudness = loudness
}

// Flags returns the additional flags
func (a *Avatar) Flags() proto.AdditionalFlags {
	return a.flags
}

// SetFlags sets the additional flags
func (a *Avatar) SetFlags(flags proto.AdditionalFlags) {
	a.flags = flags
}

// FaceTracking returns the face tracking state, and false if the avatar has none
func (a *Avatar) FaceTracking() (proto.FaceTracker, bool) {
	return a.face, a.hasFace
}

// SetFaceTracking sets the face tracking state
func (a *Avatar) SetFaceTracking(face proto.FaceTracker) {
	if len(face.Blendshapes) > consts.MAX_BLENDSHAPE_COEFFICIENTS {
		face.Blendshapes = face.Blendshapes[:consts.MAX_BLENDSHAPE_COEFFICIENTS]
	}
	a.face = face
	a.hasFace = true
}

// ClearFaceTracking removes the face tracking state
func (a *Avatar) ClearFaceTracking() {
	a.face = proto.FaceTracker{}
	a.hasFace = false
}

// LastUpdated returns when inbound data was last applied
func (a *Avatar) LastUpdated() time.Time {
	return a.lastUpdated
}

// LastSent returns when avatar data was last published
func (a *Avatar) LastSent() time.Time {
	return a.lastSent
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
