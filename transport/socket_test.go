package transport

import (
	"net"
	"testing"
	"time"

	"github.com/dragmakex/dv-routing/arena"
	"github.com/dragmakex/dv-routing/logger"
)

func TestSendAndServe(t *testing.T) {
	sock, err := Listen(0, &logger.NullLogger{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sock.Close()

	out := make(chan Packet, 1)
	stop := make(chan struct{})
	a := arena.NewArena(MaxDatagramSize, 2)
	go sock.Serve(out, a, stop)

	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: sock.LocalPort()}
	if err := sock.Send("10.0.0.1:HELLO:0", dst); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case pkt := <-out:
		if string(pkt.Data) != "10.0.0.1:HELLO:0" {
			t.Errorf("unexpected payload: %q", pkt.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
	}

	close(stop)
	sock.Close()
}

func TestCloseUnblocksServe(t *testing.T) {
	sock, err := Listen(0, &logger.NullLogger{})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	out := make(chan Packet)
	stop := make(chan struct{})
	a := arena.NewArena(MaxDatagramSize, 1)

	done := make(chan struct{})
	go func() {
		sock.Serve(out, a, stop)
		close(done)
	}()

	sock.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after socket close")
	}
}
