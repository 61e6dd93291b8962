package gwvar

import "expvar"

// Bool is a boolean expvar
type Bool struct {
	val *expvar.Int
}

// NewBool publishes a boolean expvar
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

// Value returns the value
func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

// Set sets the value
func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

// Variables served on /debug/vars
var (
	IsConnected  = NewBool("IsConnected")
	AvatarCount  = expvar.NewInt("AvatarCount")
	MixerCount   = expvar.NewInt("MixerCount")
	DataSequence = expvar.NewInt("DataSequence")
	CPUPercent   = expvar.NewFloat("CPUPercent")
	RSS          = expvar.NewInt("RSS")
)
