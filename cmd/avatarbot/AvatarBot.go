package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/goavatar/goavatar/engine/avatar"
	"github.com/goavatar/goavatar/engine/common"
	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/proto"
	"github.com/goavatar/goavatar/engine/session"
	"github.com/goavatar/goavatar/engine/vmath"
	timer "github.com/xiaonanln/goTimer"
)

const (
	_WANDER_INTERVAL = time.Millisecond * 50
	_WANDER_RADIUS   = 10.0
	_WANDER_SPEED    = 1.2 // meters per second
	_NUM_JOINTS      = 24
)

var botSkeleton = func() []avatar.JointInfo {
	joints := make([]avatar.JointInfo, _NUM_JOINTS)
	for i := range joints {
		joints[i] = avatar.JointInfo{Name: "Joint" + string(rune('A'+i)), Index: i, ParentIndex: i - 1}
	}
	return joints
}()

// AvatarBot wanders around the origin and waves its joints
type AvatarBot struct {
	rand    *rand.Rand
	session *session.Session
	local   *avatar.Avatar

	heading float64
	phase   float64
	avatars common.SessionIDSet
}

func newAvatarBot(r *rand.Rand) *AvatarBot {
	return &AvatarBot{
		rand:    r,
		heading: r.Float64() * 2 * math.Pi,
		avatars: common.SessionIDSet{},
	}
}

func (bot *AvatarBot) String() string {
	if bot.local == nil {
		return "AvatarBot"
	}
	return "AvatarBot<" + bot.local.String() + ">"
}

func (bot *AvatarBot) attach(s *session.Session) {
	bot.session = s
	bot.local = s.LocalAvatar()
	bot.local.SetSkeleton(botSkeleton)
	bot.local.SetUnscaledHeight(1.8)

	timer.AddTimer(_WANDER_INTERVAL, func() {
		bot.wander(_WANDER_INTERVAL.Seconds())
	})
}

// wander moves the bot one step, it runs on the session logic routine
func (bot *AvatarBot) wander(dt float64) {
	pos := bot.local.Position()
	if pos.Length() > _WANDER_RADIUS {
		// turn back towards the origin
		bot.heading = math.Atan2(-float64(pos.Z), -float64(pos.X))
	} else {
		bot.heading += (bot.rand.Float64() - 0.5) * 0.5
	}

	step := float32(_WANDER_SPEED * dt)
	pos.X += step * float32(math.Cos(bot.heading))
	pos.Z += step * float32(math.Sin(bot.heading))
	bot.local.SetPosition(pos)
	bot.local.SetOrientation(vmath.FromAxisAngle(vmath.Vector3{Y: 1}, -bot.heading))
	bot.local.SetLookAt(pos.Add(vmath.Vector3{X: float32(math.Cos(bot.heading)), Y: 1.6, Z: float32(math.Sin(bot.heading))}))

	bot.phase += dt * 2 * math.Pi
	for i := 0; i < _NUM_JOINTS; i++ {
		angle := 0.3 * math.Sin(bot.phase+float64(i)*0.4)
		bot.local.SetJointRotation(i, vmath.FromAxisAngle(vmath.Vector3{X: 1}, angle))
	}
	bot.local.SetAudioLoudness(float32(bot.rand.Float64() * 100))
}

// OnAvatarAdded is called when an avatar enters the view of the bot
func (bot *AvatarBot) OnAvatarAdded(id common.SessionID) {
	bot.avatars.Add(id)
	if !quiet {
		gwlog.Infof("%s: avatar %s added, %d in view", bot, id, len(bot.avatars))
	}
}

// OnAvatarRemoved is called when an avatar leaves the view of the bot
func (bot *AvatarBot) OnAvatarRemoved(id common.SessionID, reason proto.KillAvatarReason) {
	bot.avatars.Del(id)
	if !quiet {
		gwlog.Infof("%s: avatar %s removed (%s), %d in view", bot, id, reason, len(bot.avatars))
	}
}
