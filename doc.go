/*
GoAvatar is a client library synchronizing avatar state with the avatar mixer of a virtual world domain.

The mixer relays avatar state between the users of a domain over a lossy datagram transport. GoAvatar keeps a
directory of the remote avatars in view and publishes the local avatar with compact bit-level codecs. Updates
are reconciled with monotonic counters instead of full state resends: avatar data carries a data sequence,
identities carry an identity sequence compared across wraparound, and traits carry versions that only apply
when strictly newer.

# Session

A session owns the local avatar, the avatar directory, the trait ledgers and the publisher. All of them are
driven by one logic routine:

	goavatar.SetConfigFile("goavatar.ini")
	s, err := goavatar.Connect(myDelegate)
	if err != nil {
		...
	}
	s.LocalAvatar().SetPosition(vmath.Vector3{X: 1})
	s.Run(ctx)

Network receive routines decode packets and post them to the session queue. Callbacks posted with
Session.Post run on the logic routine, which is the only routine allowed to touch avatars.

Once the domain assigns this client its session id, pass it to Session.SetOwnerSessionID so the mixer's
data about our own avatar is not tracked as a remote avatar.

# Publishing

Each tick the publisher sends the identity of the local avatar when it changed, the traits when they changed, and
the avatar data. Avatar data is built at decreasing detail until it fits in one datagram: first with face
tracking, then without it, and finally position, orientation and scale only. Small joint changes are culled, and
once in a while every joint is resent so that lost updates heal.

# Config

goavatar.ini configures logging, the mixer addresses and the local avatar. See goavatar.ini.sample.
*/
package goavatar
