// Package neighbor implements the neighbor-detection state machine: the
// set of peers directly heard from within the liveness window, keyed by
// IPv4 address, driven by periodic HELLO beacons.
package neighbor

import (
	"sort"
	"sync"
	"time"

	"github.com/dragmakex/dv-routing/logger"
	"github.com/dragmakex/dv-routing/wire"
)

// Entry is one directly-heard peer.
type Entry struct {
	IP        string
	LastSeq   uint16
	LastHeard time.Time
}

// Table is the process-wide set of neighbor entries. It is safe for
// concurrent use by the reactor's periodic and receive tasks.
type Table struct {
	mu      sync.Mutex
	myIP    string
	entries map[string]*Entry
	seq     uint16
	log     logger.DebugLogger
}

// New creates an empty neighbor table for the local node identified by
// myIP. log must not be nil; pass a *logger.NullLogger to discard
// output.
func New(myIP string, log logger.DebugLogger) *Table {
	return &Table{
		myIP:    myIP,
		entries: make(map[string]*Entry),
		log:     log,
	}
}

// BuildHello returns the wire form of the next HELLO beacon and
// advances the local sequence counter. It performs no I/O; the caller
// is responsible for transmitting the returned string.
func (t *Table) BuildHello() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := wire.EncodeHello(t.myIP, t.seq)
	t.seq++
	return msg
}

// ProcessHello records a HELLO received from senderIP. HELLOs from
// ourselves are ignored. A previously unknown sender is inserted; a
// known sender has its liveness refreshed and its last-seen sequence
// advanced, using a signed difference so a 16-bit sequence wraparound
// is still treated as "newer" rather than regressing (see design notes
// on the original implementation's unguarded wraparound).
func (t *Table) ProcessHello(senderIP string, seq uint16) {
	if senderIP == t.myIP {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[senderIP]
	if !ok {
		t.entries[senderIP] = &Entry{IP: senderIP, LastSeq: seq, LastHeard: time.Now()}
		t.log.Debugf("neighbor: new peer %s, seq=%d", senderIP, seq)
		return
	}
	e.LastHeard = time.Now()
	if seqIsNewer(seq, e.LastSeq) {
		e.LastSeq = seq
	}
}

// seqIsNewer reports whether seq should be considered more recent than
// last, tolerating a single wraparound of the 16-bit counter.
func seqIsNewer(seq, last uint16) bool {
	return int16(seq-last) > 0
}

// RemoveStale deletes every entry whose liveness window has expired
// (now - last_heard > maxAge, strictly) and returns the IPs evicted.
func (t *Table) RemoveStale(maxAge time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var evicted []string
	for ip, e := range t.entries {
		if now.Sub(e.LastHeard) > maxAge {
			delete(t.entries, ip)
			evicted = append(evicted, ip)
		}
	}
	if len(evicted) > 0 {
		t.log.Infof("neighbor: swept %d stale peer(s): %v", len(evicted), evicted)
	}
	return evicted
}

// Len returns the number of live neighbors.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns a copy of all current entries, sorted by IP for
// stable output (used by tests and the debug HTTP endpoint).
func (t *Table) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}
