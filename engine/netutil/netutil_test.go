package netutil

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xtaci/kcp-go"
)

func TestIsConnectionError(t *testing.T) {
	assert.T(t, IsConnectionError(io.EOF))
	assert.T(t, IsConnectionError(errors.Wrap(io.EOF, "read")))
	assert.T(t, !IsConnectionError(errors.New("other")))
	assert.T(t, !IsConnectionError("not an error"))
}

func TestUDPLink(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	link, err := DialUDP(server.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer link.Close()
	assert.Equal(t, false, link.Reliable())

	p := NewPacket()
	p.AppendVarStr("hello mixer")
	assert.Equal(t, nil, link.SendPacket(p))
	p.Release()

	buf := make([]byte, 2048)
	server.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, from, err := server.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}
	r := NewPacketFromPayload(buf[:n])
	assert.Equal(t, "hello mixer", r.ReadVarStr())
	r.Release()

	server.WriteToUDP([]byte{9, 8, 7}, from)
	link.SetReadDeadline(time.Now().Add(5 * time.Second))
	in, err := link.RecvPacket()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []byte{9, 8, 7}, in.Payload())
	in.Release()
}

func TestUDPLinkRejectsLargePacket(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	link, err := DialUDP(server.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer link.Close()

	p := NewPacket()
	defer p.Release()
	p.AppendBytes(make([]byte, 2000))
	assert.NotEqual(t, nil, link.SendPacket(p))
}

func TestKCPLink(t *testing.T) {
	listener, err := kcp.ListenWithOptions("127.0.0.1:0", nil, 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	accepted := make(chan *KCPLink, 1)
	go func() {
		conn, err := listener.AcceptKCP()
		if err != nil {
			return
		}
		accepted <- NewKCPLink(conn)
	}()

	link, err := DialKCP(listener.Addr().String(), 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer link.Close()
	assert.Equal(t, true, link.Reliable())

	for i := 0; i < 3; i++ {
		p := NewPacket()
		p.AppendUint32(uint32(i))
		p.AppendVarStr("identity")
		assert.Equal(t, nil, link.SendPacket(p))
		p.Release()
	}

	var server *KCPLink
	select {
	case server = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("accept timeout")
	}
	defer server.Close()

	for i := 0; i < 3; i++ {
		in, err := server.RecvPacket()
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, uint32(i), in.ReadUint32())
		assert.Equal(t, "identity", in.ReadVarStr())
		assert.Equal(t, nil, in.ReadError())
		in.Release()
	}
}
