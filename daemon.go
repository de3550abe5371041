// Package dvrouting implements a distance-vector routing daemon: a
// neighbor-detection state machine driven by periodic HELLO beacons, a
// distance table updated by a single Bellman-Ford relaxation step per
// received DV, and the concurrent reactor tying both to one UDP
// broadcast socket.
package dvrouting

import (
	"flag"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dragmakex/dv-routing/arena"
	"github.com/dragmakex/dv-routing/debughttp"
	"github.com/dragmakex/dv-routing/logger"
	"github.com/dragmakex/dv-routing/metrics"
	"github.com/dragmakex/dv-routing/neighbor"
	"github.com/dragmakex/dv-routing/route"
	"github.com/dragmakex/dv-routing/throttle"
	"github.com/dragmakex/dv-routing/transport"
	"github.com/dragmakex/dv-routing/wire"
)

// Protocol constants, fixed per spec -- not runtime configurable.
const (
	Port            = 5555
	HelloPeriod     = 5 * time.Second
	StaleTimeout    = 10 * time.Second
	pollGranularity = 1 * time.Second
)

// Config configures a Daemon. Use NewConfig for defaults.
type Config struct {
	// MyIP is this node's identity on the wire. Required.
	MyIP string
	// MaxDestinations bounds distinct destinations tracked by the route
	// table. 0 means unbounded.
	MaxDestinations int
	// ClientPerMinuteLimit caps datagrams accepted per source IP per
	// minute. <= 0 disables throttling.
	ClientPerMinuteLimit int
	// ThrottlerTrackedClients bounds the LRU of tracked source IPs.
	ThrottlerTrackedClients int
	// DebugHTTPAddr, if non-empty, serves /debug/neighbors,
	// /debug/routes, /debug/dv and /metrics. Empty disables it.
	DebugHTTPAddr string
}

// NewConfig returns a Config populated with default values, including
// the default MyIP of 192.168.1.100.
func NewConfig() *Config {
	return &Config{
		MyIP:                    "192.168.1.100",
		MaxDestinations:         4096,
		ClientPerMinuteLimit:    50,
		ThrottlerTrackedClients: 1000,
		DebugHTTPAddr:           "127.0.0.1:8711",
	}
}

// RegisterFlags registers c's fields other than MyIP as command-line
// flags; MyIP is not registered. If c is
// nil, a fresh NewConfig() is used and returned.
func RegisterFlags(c *Config) *Config {
	if c == nil {
		c = NewConfig()
	}
	flag.IntVar(&c.MaxDestinations, "maxDestinations", c.MaxDestinations,
		"Maximum number of distinct destinations to track in the route table. 0 means unbounded.")
	flag.IntVar(&c.ClientPerMinuteLimit, "clientPerMinuteLimit", c.ClientPerMinuteLimit,
		"Maximum datagrams accepted per source IP per minute. Non-positive disables throttling.")
	flag.IntVar(&c.ThrottlerTrackedClients, "throttlerTrackedClients", c.ThrottlerTrackedClients,
		"Number of source IPs the client throttle remembers.")
	flag.StringVar(&c.DebugHTTPAddr, "debugHTTPAddr", c.DebugHTTPAddr,
		"Address for the debug HTTP server. Empty disables it.")
	return c
}

// Daemon is a running (or not-yet-started) DV routing node.
type Daemon struct {
	config Config

	neighbors *neighbor.Table
	routes    *route.Table
	throttle  *throttle.Throttle
	metrics   *metrics.Registry
	log       logger.DebugLogger

	sock  *transport.Socket
	debug *debughttp.Server

	// listenPort defaults to Port; only a same-package test may override
	// it (via newForTest) to bind an ephemeral port for isolation. There
	// is no exported way to change it -- spec's "no runtime
	// reconfiguration of port" holds for every real caller.
	listenPort int

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Daemon. If config is nil, NewConfig() is used. If log is
// nil, a &logger.NullLogger{} is used and all output is discarded.
func New(config *Config, log logger.DebugLogger) (*Daemon, error) {
	if config == nil {
		config = NewConfig()
	}
	if config.MyIP == "" {
		return nil, fmt.Errorf("dvrouting: Config.MyIP must be set")
	}
	if log == nil {
		log = &logger.NullLogger{}
	}

	cfg := *config
	m := metrics.New()
	d := &Daemon{
		config:     cfg,
		neighbors:  neighbor.New(cfg.MyIP, log),
		routes:     route.New(cfg.MyIP, cfg.MaxDestinations, log, m),
		throttle:   throttle.New(cfg.ClientPerMinuteLimit, cfg.ThrottlerTrackedClients),
		metrics:    m,
		log:        log,
		listenPort: Port,
		stop:       make(chan struct{}),
	}
	return d, nil
}

// newForTest builds a Daemon bound to an OS-assigned ephemeral port
// instead of the fixed protocol port, so package tests can run several
// daemons concurrently without colliding on 5555.
func newForTest(config *Config, log logger.DebugLogger) (*Daemon, error) {
	d, err := New(config, log)
	if err != nil {
		return nil, err
	}
	d.listenPort = 0
	return d, nil
}

// Start binds the UDP socket, launches the reactor and the debug HTTP
// server (if configured), and returns. A bind/SO_BROADCAST failure here
// is startup-fatal, per spec §7, and no goroutines are left running.
func (d *Daemon) Start() error {
	sock, err := transport.Listen(d.listenPort, d.log)
	if err != nil {
		return err
	}
	d.sock = sock
	d.listenPort = sock.LocalPort()

	if d.config.DebugHTTPAddr != "" {
		d.debug = debughttp.New(d.config.DebugHTTPAddr, d.neighbors, d.routes, d.metrics, d.log)
		d.debug.Start()
	}

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.periodicTask()
	}()
	go func() {
		defer d.wg.Done()
		d.receiveTask()
	}()
	return nil
}

// Run is Start followed by blocking until Stop is called elsewhere.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}
	<-d.stop
	d.wg.Wait()
	return nil
}

// Stop signals both reactor tasks to exit, closes the socket (which
// unblocks the receive task), shuts the debug server down, and waits
// for both tasks to finish.
func (d *Daemon) Stop() {
	select {
	case <-d.stop:
		return // already stopped
	default:
		close(d.stop)
	}
	d.sock.Close()
	if d.debug != nil {
		d.debug.Stop()
	}
	d.throttle.Stop()
	d.wg.Wait()
}

// periodicTask fires every HelloPeriod, polling the stop channel at
// pollGranularity so shutdown is observed within one second.
func (d *Daemon) periodicTask() {
	broadcastAddr := transport.BroadcastAddr(d.listenPort)
	var elapsed time.Duration
	ticker := time.NewTicker(pollGranularity)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			elapsed += pollGranularity
			if elapsed < HelloPeriod {
				continue
			}
			elapsed = 0
			d.tick(broadcastAddr, StaleTimeout)
		}
	}
}

// tick runs one HELLO/sweep/GC/conditional-DV-broadcast cycle.
// staleTimeout is StaleTimeout in production; tests pass a different
// value to force an eviction without waiting out the real timeout.
func (d *Daemon) tick(broadcastAddr *net.UDPAddr, staleTimeout time.Duration) {
	hello := d.neighbors.BuildHello()
	if d.sock.Send(hello, broadcastAddr) == nil {
		d.metrics.HelloSent.Inc()
	}

	evicted := d.neighbors.RemoveStale(staleTimeout)
	if len(evicted) > 0 {
		d.metrics.NeighborEvicted.Add(float64(len(evicted)))
		d.routes.GCVia(evicted)
		d.metrics.RouteCount.Set(float64(len(d.routes.Snapshot())))
	}
	d.metrics.NeighborCount.Set(float64(d.neighbors.Len()))

	if d.routes.SendIfDirty(func(dv string) error { return d.sock.Send(dv, broadcastAddr) }) {
		d.metrics.DVSent.Inc()
	}
}

// receiveTask decodes and dispatches inbound datagrams until the socket
// is closed by Stop.
func (d *Daemon) receiveTask() {
	out := make(chan transport.Packet, 8)
	a := arena.NewArena(transport.MaxDatagramSize, 3)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sock.Serve(out, a, d.stop)
	}()

	for {
		select {
		case <-d.stop:
			return
		case pkt, ok := <-out:
			if !ok {
				return
			}
			d.dispatch(pkt)
			a.Push(pkt.Data)
		}
	}
}

// dispatch decodes one packet and routes it to the appropriate table,
// after the client throttle and the self-filter have had a chance to
// drop it.
func (d *Daemon) dispatch(pkt transport.Packet) {
	if !d.throttle.Allow(pkt.Sender.IP.String()) {
		d.metrics.ThrottledDrops.Inc()
		d.log.Debugf("dvrouting: throttled packet from %v", pkt.Sender)
		return
	}

	decoded := wire.Decode(pkt.Data)
	switch decoded.Kind {
	case wire.KindHello:
		d.neighbors.ProcessHello(decoded.Hello.IP, decoded.Hello.Seq)
		d.metrics.HelloReceived.Inc()
	case wire.KindDV:
		d.routes.Ingest(decoded.DV)
		d.metrics.DVReceived.Inc()
		d.metrics.RouteCount.Set(float64(len(d.routes.Snapshot())))
	default:
		d.metrics.MalformedDrops.Inc()
		d.log.Debugf("dvrouting: dropped malformed packet from %v", pkt.Sender)
	}
}

// LocalPort returns the UDP port the daemon is bound to, mainly useful
// in tests where Port is overridden by binding port 0, so the OS picks
// an ephemeral port.
func (d *Daemon) LocalPort() int {
	return d.sock.LocalPort()
}

// Neighbors exposes the neighbor table for callers that want direct,
// read-only access (the debug HTTP server uses the same accessor).
func (d *Daemon) Neighbors() *neighbor.Table { return d.neighbors }

// Routes exposes the route table for callers that want direct,
// read-only access.
func (d *Daemon) Routes() *route.Table { return d.routes }
