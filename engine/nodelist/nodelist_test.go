package nodelist

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestNodeList(t *testing.T) {
	nl := New()
	nl.Add(&Node{ID: 3, Type: AvatarMixer, Addr: "mixer-b"})
	nl.Add(&Node{ID: 1, Type: AvatarMixer, Addr: "mixer-a"})
	nl.Add(&Node{ID: 2, Type: AudioMixer, Addr: "audio"})
	assert.Equal(t, 3, nl.Len())

	var addrs []string
	nl.Each(AvatarMixer, func(node *Node) {
		addrs = append(addrs, node.Addr)
	})
	assert.Equal(t, []string{"mixer-a", "mixer-b"}, addrs)
	assert.Equal(t, "mixer-a", nl.First(AvatarMixer).Addr)
	assert.Equal(t, (*Node)(nil), nl.First(EntityServer))

	removed := nl.Remove(1)
	assert.Equal(t, "mixer-a", removed.Addr)
	assert.Equal(t, (*Node)(nil), nl.Remove(1))
	assert.Equal(t, "mixer-b", nl.First(AvatarMixer).Addr)
	assert.Equal(t, "AvatarMixer#3<mixer-b>", nl.Get(3).String())
}
