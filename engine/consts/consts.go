package consts

import "time"

// Avatar scale and height limits
const (
	// MIN_AVATAR_SCALE is the absolute lower bound of avatar target scale
	MIN_AVATAR_SCALE = 0.005
	// MAX_AVATAR_SCALE is the absolute upper bound of avatar target scale
	MAX_AVATAR_SCALE = 1000.0
	// DEFAULT_AVATAR_HEIGHT is used when an avatar's own height cannot be measured yet
	DEFAULT_AVATAR_HEIGHT = 1.755
	// MIN_AVATAR_HEIGHT is the smallest height a domain may allow
	MIN_AVATAR_HEIGHT = MIN_AVATAR_SCALE * DEFAULT_AVATAR_HEIGHT
	// MAX_AVATAR_HEIGHT is the largest height a domain may allow
	MAX_AVATAR_HEIGHT = MAX_AVATAR_SCALE * DEFAULT_AVATAR_HEIGHT
	// AVATAR_HEIGHT_EPSILON below which an unscaled height is treated as unknown
	AVATAR_HEIGHT_EPSILON = 1.0e-4

	// TRANSLATION_COMPRESSION_RADIX is the fixed point radix of joint translations
	TRANSLATION_COMPRESSION_RADIX = 14
	// AUDIO_LOUDNESS_SCALE maps audio loudness onto a two byte ratio
	AUDIO_LOUDNESS_SCALE = 1024.0
	// AVATAR_MIN_ROTATION_DOT is the rotation similarity above which a joint change is culled
	AVATAR_MIN_ROTATION_DOT = 0.9999999
	// AVATAR_MIN_TRANSLATION is the translation distance below which a joint change is culled
	AVATAR_MIN_TRANSLATION = 0.0001
)

// Tunable Options
const (
	// MAX_AVATAR_DATA_SIZE is the largest avatar data payload that fits in one datagram
	MAX_AVATAR_DATA_SIZE = 1400
	// UDP_MAX_PACKET_PAYLOAD_SIZE is the receive buffer size of datagram links
	UDP_MAX_PACKET_PAYLOAD_SIZE = 1500
	// MAX_RELIABLE_PACKET_PAYLOAD_SIZE bounds identity, traits and ack packets
	MAX_RELIABLE_PACKET_PAYLOAD_SIZE = 64 * 1024

	// MIN_TIME_BETWEEN_AVATAR_DATA_SENDS throttles avatar data publishes (45Hz)
	MIN_TIME_BETWEEN_AVATAR_DATA_SENDS = time.Second / 45
	// AVATAR_SEND_FULL_UPDATE_RATIO is the chance that a publish resends everything
	AVATAR_SEND_FULL_UPDATE_RATIO = 0.02

	// MAX_BITSET_CAPACITY bounds the growth of property bit sets
	MAX_BITSET_CAPACITY = 1024
	// MAX_JOINTS is the most joints an avatar may carry on the wire
	MAX_JOINTS = 255
	// MAX_BLENDSHAPE_COEFFICIENTS is the most face blendshapes on the wire
	MAX_BLENDSHAPE_COEFFICIENTS = 255

	// REMOVED_AVATAR_MEMORY is how long a removed avatar blocks stale messages from recreating it
	REMOVED_AVATAR_MEMORY = time.Second * 10

	// SESSION_LOOP_INTERVAL is the tick interval of the session logic loop
	SESSION_LOOP_INTERVAL = time.Millisecond * 10
	// SESSION_STATS_INTERVAL is the interval to log session statistics
	SESSION_STATS_INTERVAL = time.Second * 10

	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
	// HANDLER_WARN_THRESHOLD is the handler duration above which opmon warns
	HANDLER_WARN_THRESHOLD = time.Millisecond * 5
)

// Debug Options
const (
	// DEBUG_PACKETS prints packet send/recv debug logs
	DEBUG_PACKETS = false
	// DEBUG_AVATARS prints avatar directory debug logs
	DEBUG_AVATARS = false
	// DEBUG_TRAITS prints trait ledger debug logs
	DEBUG_TRAITS = false
	// DEBUG_PUBLISH prints publisher debug logs
	DEBUG_PUBLISH = false
)
