// Package transport owns the UDP broadcast socket lifecycle: binding,
// enabling broadcast, the arena-backed receive loop, and best-effort
// send. It knows nothing about HELLO or DV semantics -- that is the
// reactor's job, layered on top of Packet.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dragmakex/dv-routing/arena"
	"github.com/dragmakex/dv-routing/logger"
)

// MaxDatagramSize bounds the receive buffer. spec.md recommends
// datagrams stay under 512 bytes, but a DV advertisement listing many
// destinations can exceed that comfortably before it becomes a real
// problem, so the buffer is sized generously above the recommendation.
const MaxDatagramSize = 8192

// receiveBackoff is how long the receive loop pauses after a transient
// read error before retrying.
const receiveBackoff = 100 * time.Millisecond

// Packet is one datagram read off the socket, paired with its sender.
type Packet struct {
	Data   []byte
	Sender net.UDPAddr
}

// Socket wraps a broadcast-enabled UDP connection.
type Socket struct {
	conn *net.UDPConn
	log  logger.DebugLogger
}

// Listen binds a UDP socket to 0.0.0.0:port with SO_BROADCAST enabled.
// A bind failure here is startup-fatal per spec.md §7.
func Listen(port int, log logger.DebugLogger) (*Socket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("transport: listen on port %d: %w", port, err)
	}
	if err := setBroadcast(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: enable SO_BROADCAST on port %d: %w", port, err)
	}
	return &Socket{conn: conn, log: log}, nil
}

// setBroadcast enables SO_BROADCAST on conn's underlying file
// descriptor, required to send to the limited-broadcast address
// returned by BroadcastAddr.
func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// BroadcastAddr is the limited-broadcast destination datagrams are sent
// to.
func BroadcastAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4bcast, Port: port}
}

// Send transmits payload to dst. Send failures are never fatal: they
// are logged and returned to the caller, matching spec.md §7's "transient I/O"
// handling -- the caller (the reactor) is responsible for not clearing
// any dirty flag on a failed DV send so it gets retried.
func (s *Socket) Send(payload string, dst *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP([]byte(payload), dst)
	if err != nil {
		s.log.Errorf("transport: send to %v failed: %v", dst, err)
	}
	return err
}

// Serve runs the blocking receive loop, pushing raw received packets onto
// out until stop is closed or the socket suffers a permanent failure.
// Buffers are drawn from and returned to a, so a high rate of small
// datagrams does not churn the allocator. Serve returns when the
// socket is closed (the sanctioned shutdown mechanism) or stop fires.
func (s *Socket) Serve(out chan<- Packet, a arena.Arena, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		buf := a.Pop()
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			a.Push(buf)
			if isClosedConnError(err) {
				return
			}
			s.log.Errorf("transport: read error: %v", err)
			select {
			case <-time.After(receiveBackoff):
				continue
			case <-stop:
				return
			}
		}

		pkt := Packet{Data: buf[:n], Sender: *addr}
		select {
		case out <- pkt:
		case <-stop:
			a.Push(buf[:cap(buf)])
			return
		}
	}
}

// Close shuts down the socket, which unblocks any goroutine parked in
// Serve's ReadFromUDP.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// LocalPort returns the bound local port, useful when Listen was given
// port 0.
func (s *Socket) LocalPort() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
