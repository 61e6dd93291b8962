package proto

import (
	"github.com/goavatar/goavatar/engine/bitcodec"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/consts"
	"github.com/goavatar/goavatar/engine/netutil"
	"github.com/goavatar/goavatar/engine/vmath"
	"github.com/pkg/errors"
)

// Sections of an avatar data payload, in wire order
const (
	AD_GLOBAL_POSITION = iota
	AD_ORIENTATION
	AD_SCALE
	AD_LOOK_AT
	AD_AUDIO_LOUDNESS
	AD_ADDITIONAL_FLAGS
	AD_FACE_TRACKER
	AD_JOINT_DATA
	AD_JOINT_DEFAULT_POSE_FLAGS
	AD_NUM_SECTIONS
)

// Bits of AdditionalFlags
const (
	AF_KEY_STATE_MASK         = 0x03
	AF_HAND_STATE_SHIFT       = 2
	AF_HAND_STATE_MASK        = 0x0c
	AF_HAS_REPLICATED_AVATAR  = 0x10
	AF_COLLIDES_WITH_AVATARS  = 0x20
	AF_HAS_PROCEDURAL_BLINK   = 0x40
	AF_HAS_AUDIO_ENABLED_FACE = 0x80
)

var (
	errTooManyJoints = errors.New("too many joints")
)

// AdditionalFlags packs key state, hand state and avatar switches in one byte
type AdditionalFlags uint8

// KeyState returns the key state bits
func (f AdditionalFlags) KeyState() uint8 {
	return uint8(f & AF_KEY_STATE_MASK)
}

// HandState returns the hand state bits
func (f AdditionalFlags) HandState() uint8 {
	return uint8(f&AF_HAND_STATE_MASK) >> AF_HAND_STATE_SHIFT
}

// Has returns if all bits of flag are set
func (f AdditionalFlags) Has(flag AdditionalFlags) bool {
	return f&flag == flag
}

// MakeAdditionalFlags combines key state, hand state and switch bits
func MakeAdditionalFlags(keyState, handState uint8, switches AdditionalFlags) AdditionalFlags {
	f := AdditionalFlags(keyState) & AF_KEY_STATE_MASK
	f |= (AdditionalFlags(handState) << AF_HAND_STATE_SHIFT) & AF_HAND_STATE_MASK
	f |= switches &^ (AF_KEY_STATE_MASK | AF_HAND_STATE_MASK)
	return f
}

// FaceTracker is the face tracking section of avatar data
type FaceTracker struct {
	LeftEyeBlink  float32
	RightEyeBlink float32
	BrowAudioLift float32
	Blendshapes   []float32
}

// JointState is the wire state of one joint; a zero validity bit means "not sent"
type JointState struct {
	RotationValid    bool
	Rotation         vmath.Quat
	TranslationValid bool
	Translation      vmath.Vector3
}

// AvatarDataState is the structured avatar data payload
//
// Only sections with their bit set in Present are written or were read.
type AvatarDataState struct {
	Present *bitcodec.BitSet

	GlobalPosition vmath.Vector3
	Orientation    vmath.Quat
	Scale          float32
	LookAt         vmath.Vector3
	AudioLoudness  float32
	Flags          AdditionalFlags
	Face           FaceTracker

	// Joints has one entry per joint of the sender's skeleton
	Joints []JointState
	// DefaultRotations and DefaultTranslations flag joints that use the default pose
	DefaultRotations    *bitcodec.BitSet
	DefaultTranslations *bitcodec.BitSet
}

// NewAvatarDataState creates an empty state with no section present
func NewAvatarDataState() *AvatarDataState {
	return &AvatarDataState{
		Present: bitcodec.NewBitSet(AD_NUM_SECTIONS),
	}
}

// Has returns if section is present
func (s *AvatarDataState) Has(section int) bool {
	return s.Present.Test(section)
}

// Include marks section as present
func (s *AvatarDataState) Include(section int) {
	if s.Present == nil {
		s.Present = bitcodec.NewBitSet(AD_NUM_SECTIONS)
	}
	_ = s.Present.Set(section) // section < AD_NUM_SECTIONS
}

func appendBitVector(p *netutil.Packet, bs *bitcodec.BitSet) {
	p.AppendBytes(bitcodec.EncodeBitVector(bs))
}

func readBitVector(p *netutil.Packet, capacity int) (*bitcodec.BitSet, error) {
	bs, n, err := bitcodec.DecodeBitVector(p.UnreadPayload(), capacity)
	if err != nil {
		return nil, err
	}
	p.Skip(n)
	return bs, nil
}

func appendVector3(p *netutil.Packet, v vmath.Vector3) {
	p.AppendFloat32(v.X)
	p.AppendFloat32(v.Y)
	p.AppendFloat32(v.Z)
}

func readVector3(p *netutil.Packet) vmath.Vector3 {
	return vmath.Vector3{X: p.ReadFloat32(), Y: p.ReadFloat32(), Z: p.ReadFloat32()}
}

func appendSixByteQuat(p *netutil.Packet, q vmath.Quat) {
	if buf := p.Reserve(bitcodec.QUAT_SIX_BYTES); buf != nil {
		bitcodec.PackOrientationQuatToSixBytes(buf, q)
	}
}

func readSixByteQuat(p *netutil.Packet) vmath.Quat {
	buf := p.ReadBytes(bitcodec.QUAT_SIX_BYTES)
	if buf == nil {
		return vmath.IdentityQuat
	}
	q, _ := bitcodec.UnpackOrientationQuatFromSixBytes(buf)
	return q
}

func appendRatio(p *netutil.Packet, r float32) {
	if buf := p.Reserve(2); buf != nil {
		bitcodec.PackFloatRatioToTwoByte(buf, r)
	}
}

func readRatio(p *netutil.Packet) float32 {
	buf := p.ReadBytes(2)
	if buf == nil {
		return 0
	}
	r, _ := bitcodec.UnpackFloatRatioFromTwoByte(buf)
	return r
}

func appendFixedVec3(p *netutil.Packet, v vmath.Vector3) {
	if buf := p.Reserve(6); buf != nil {
		bitcodec.PackFloatVec3ToSignedTwoByteFixed(buf, v, consts.TRANSLATION_COMPRESSION_RADIX)
	}
}

func readFixedVec3(p *netutil.Packet) vmath.Vector3 {
	buf := p.ReadBytes(6)
	if buf == nil {
		return vmath.Vector3{}
	}
	v, _ := bitcodec.UnpackFloatVec3FromSignedTwoByteFixed(buf, consts.TRANSLATION_COMPRESSION_RADIX)
	return v
}

func encodeAvatarDataState(p *netutil.Packet, s *AvatarDataState) {
	appendBitVector(p, s.Present)

	if s.Has(AD_GLOBAL_POSITION) {
		appendVector3(p, s.GlobalPosition)
	}
	if s.Has(AD_ORIENTATION) {
		appendSixByteQuat(p, s.Orientation)
	}
	if s.Has(AD_SCALE) {
		appendRatio(p, s.Scale)
	}
	if s.Has(AD_LOOK_AT) {
		appendVector3(p, s.LookAt)
	}
	if s.Has(AD_AUDIO_LOUDNESS) {
		appendRatio(p, s.AudioLoudness/consts.AUDIO_LOUDNESS_SCALE)
	}
	if s.Has(AD_ADDITIONAL_FLAGS) {
		p.AppendByte(byte(s.Flags))
	}
	if s.Has(AD_FACE_TRACKER) {
		p.AppendFloat32(s.Face.LeftEyeBlink)
		p.AppendFloat32(s.Face.RightEyeBlink)
		p.AppendFloat32(s.Face.BrowAudioLift)
		n := len(s.Face.Blendshapes)
		if n > consts.MAX_BLENDSHAPE_COEFFICIENTS {
			n = consts.MAX_BLENDSHAPE_COEFFICIENTS
		}
		p.AppendByte(byte(n))
		for _, c := range s.Face.Blendshapes[:n] {
			p.AppendFloat32(c)
		}
	}
	if s.Has(AD_JOINT_DATA) {
		encodeJointData(p, s.Joints)
	}
	if s.Has(AD_JOINT_DEFAULT_POSE_FLAGS) {
		p.AppendByte(byte(len(s.Joints)))
		appendBitVector(p, s.DefaultRotations)
		appendBitVector(p, s.DefaultTranslations)
	}
}

func encodeJointData(p *netutil.Packet, joints []JointState) {
	if len(joints) > consts.MAX_JOINTS {
		joints = joints[:consts.MAX_JOINTS]
	}
	p.AppendByte(byte(len(joints)))

	valid := bitcodec.NewBitSet(consts.MAX_JOINTS)
	for i := range joints {
		if joints[i].RotationValid {
			_ = valid.Set(i)
		}
	}
	appendBitVector(p, valid)
	for i := range joints {
		if joints[i].RotationValid {
			appendSixByteQuat(p, joints[i].Rotation)
		}
	}

	valid.Reset()
	for i := range joints {
		if joints[i].TranslationValid {
			_ = valid.Set(i)
		}
	}
	appendBitVector(p, valid)
	for i := range joints {
		if joints[i].TranslationValid {
			appendFixedVec3(p, joints[i].Translation)
		}
	}
}

func decodeAvatarDataState(p *netutil.Packet) (*AvatarDataState, error) {
	present, err := readBitVector(p, AD_NUM_SECTIONS)
	if err != nil {
		return nil, errors.Wrap(err, "section flags")
	}
	s := &AvatarDataState{Present: present}

	if s.Has(AD_GLOBAL_POSITION) {
		s.GlobalPosition = readVector3(p)
	}
	if s.Has(AD_ORIENTATION) {
		s.Orientation = readSixByteQuat(p)
	}
	if s.Has(AD_SCALE) {
		s.Scale = readRatio(p)
	}
	if s.Has(AD_LOOK_AT) {
		s.LookAt = readVector3(p)
	}
	if s.Has(AD_AUDIO_LOUDNESS) {
		s.AudioLoudness = readRatio(p) * consts.AUDIO_LOUDNESS_SCALE
	}
	if s.Has(AD_ADDITIONAL_FLAGS) {
		s.Flags = AdditionalFlags(p.ReadOneByte())
	}
	if s.Has(AD_FACE_TRACKER) {
		s.Face.LeftEyeBlink = p.ReadFloat32()
		s.Face.RightEyeBlink = p.ReadFloat32()
		s.Face.BrowAudioLift = p.ReadFloat32()
		n := int(p.ReadOneByte())
		if p.ReadError() == nil && n > 0 {
			s.Face.Blendshapes = make([]float32, n)
			for i := range s.Face.Blendshapes {
				s.Face.Blendshapes[i] = p.ReadFloat32()
			}
		}
	}
	if s.Has(AD_JOINT_DATA) {
		if s.Joints, err = decodeJointData(p); err != nil {
			return nil, errors.Wrap(err, "joint data")
		}
	}
	if s.Has(AD_JOINT_DEFAULT_POSE_FLAGS) {
		n := int(p.ReadOneByte())
		if s.Has(AD_JOINT_DATA) && n != len(s.Joints) {
			return nil, errors.Errorf("default pose flags for %d joints, joint data has %d", n, len(s.Joints))
		}
		if s.Joints == nil && n > 0 {
			s.Joints = make([]JointState, n)
		}
		if s.DefaultRotations, err = readBitVector(p, consts.MAX_JOINTS); err != nil {
			return nil, errors.Wrap(err, "default rotation flags")
		}
		if s.DefaultTranslations, err = readBitVector(p, consts.MAX_JOINTS); err != nil {
			return nil, errors.Wrap(err, "default translation flags")
		}
		if s.DefaultRotations.Len() > n || s.DefaultTranslations.Len() > n {
			return nil, errors.Wrapf(errTooManyJoints, "default pose flags beyond %d joints", n)
		}
	}
	return s, p.ReadError()
}

func decodeJointData(p *netutil.Packet) ([]JointState, error) {
	n := int(p.ReadOneByte())
	if err := p.ReadError(); err != nil {
		return nil, err
	}
	joints := make([]JointState, n)

	valid, err := readBitVector(p, consts.MAX_JOINTS)
	if err != nil {
		return nil, errors.Wrap(err, "rotation validity")
	}
	if valid.Len() > n {
		return nil, errors.Wrapf(errTooManyJoints, "rotation %d of %d", valid.Len()-1, n)
	}
	valid.ForEach(func(i int) {
		joints[i].RotationValid = true
		joints[i].Rotation = readSixByteQuat(p)
	})

	if valid, err = readBitVector(p, consts.MAX_JOINTS); err != nil {
		return nil, errors.Wrap(err, "translation validity")
	}
	if valid.Len() > n {
		return nil, errors.Wrapf(errTooManyJoints, "translation %d of %d", valid.Len()-1, n)
	}
	valid.ForEach(func(i int) {
		joints[i].TranslationValid = true
		joints[i].Translation = readFixedVec3(p)
	})
	return joints, p.ReadError()
}

// AvatarDataPacket is the local avatar data sent to avatar mixers
type AvatarDataPacket struct {
	Sequence uint16
	Data     *AvatarDataState
}

// MsgType returns MT_AVATAR_DATA
func (m *AvatarDataPacket) MsgType() MsgType { return MT_AVATAR_DATA }

func (m *AvatarDataPacket) encode(p *netutil.Packet) {
	p.AppendUint16(m.Sequence)
	encodeAvatarDataState(p, m.Data)
}

// DecodeAvatarDataPacket reads the payload of a MT_AVATAR_DATA message, used by mixers and tests
func DecodeAvatarDataPacket(p *netutil.Packet) (*AvatarDataPacket, error) {
	m := &AvatarDataPacket{Sequence: p.ReadUint16()}
	data, err := decodeAvatarDataState(p)
	if err != nil {
		return nil, errors.Wrap(err, "decode MT_AVATAR_DATA")
	}
	m.Data = data
	return m, nil
}

// AvatarDataEntry is the data of one avatar in a BulkAvatarData message
type AvatarDataEntry struct {
	ID       common.SessionID
	Sequence uint16
	Data     *AvatarDataState
}

// BulkAvatarData carries data of the avatars in view
type BulkAvatarData struct {
	Entries []AvatarDataEntry
}

// MsgType returns MT_BULK_AVATAR_DATA
func (m *BulkAvatarData) MsgType() MsgType { return MT_BULK_AVATAR_DATA }

func (m *BulkAvatarData) inbound() {}

func (m *BulkAvatarData) encode(p *netutil.Packet) {
	for i := range m.Entries {
		e := &m.Entries[i]
		p.AppendSessionID(e.ID)
		p.AppendUint16(e.Sequence)
		encodeAvatarDataState(p, e.Data)
	}
}

func decodeBulkAvatarData(p *netutil.Packet) (*BulkAvatarData, error) {
	m := &BulkAvatarData{}
	for p.HasUnreadPayload() {
		e := AvatarDataEntry{
			ID:       p.ReadSessionID(),
			Sequence: p.ReadUint16(),
		}
		data, err := decodeAvatarDataState(p)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", len(m.Entries))
		}
		e.Data = data
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}
