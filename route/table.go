// Package route implements the distance table: a collection of
// (destination, via-neighbor) -> distance entries, the derived
// distance vector over those entries, and the "dirty" flag that
// decides when the reactor should re-broadcast.
package route

import (
	"sort"
	"sync"

	"github.com/dragmakex/dv-routing/logger"
	"github.com/dragmakex/dv-routing/metrics"
	"github.com/dragmakex/dv-routing/wire"
)

// NoRoute is the symbolic "unreachable" distance. Any route at or above
// this value is excluded from the emitted distance vector. It is far
// above any hop count a real broadcast domain could produce.
const NoRoute = 1_000_000

// Entry is one (dest, via, distance) route.
type Entry struct {
	Dest     string
	Via      string
	Distance int
}

type key struct {
	dest string
	via  string
}

// Table is the process-wide route table shared by the reactor's
// periodic and receive tasks. The dirty flag is protected by the same
// mutex as the routes themselves, which is what makes "is the DV dirty"
// and "serialize the DV" atomic with respect to concurrent ingestion.
type Table struct {
	mu sync.Mutex

	myIP    string
	routes  map[key]int
	perDest map[string]int // live (dest,via) count, for MaxDestinations accounting
	dirty   bool

	maxDestinations int
	log             logger.DebugLogger
	metrics         *metrics.Registry
}

// New creates an empty route table for the local node identified by
// myIP. maxDestinations bounds the number of distinct destinations the
// table will track; 0 means unbounded.
func New(myIP string, maxDestinations int, log logger.DebugLogger, m *metrics.Registry) *Table {
	return &Table{
		myIP:            myIP,
		routes:          make(map[key]int),
		perDest:         make(map[string]int),
		maxDestinations: maxDestinations,
		log:             log,
		metrics:         m,
	}
}

// ProcessRaw decodes raw as a DV datagram and ingests it. It returns
// false without error if raw does not decode to a DV message at all;
// callers that already have a decoded wire.DV should call Ingest
// directly instead.
func (t *Table) ProcessRaw(raw []byte) bool {
	d := wire.Decode(raw)
	if d.Kind != wire.KindDV {
		return false
	}
	return t.Ingest(d.DV)
}

// Ingest applies a single relaxation step of Bellman-Ford using dv's
// tuples, advertised by dv.Sender. A DV from ourselves is discarded
// entirely (we do not learn from our own echoes). For every other
// tuple, the route keyed (dest, dv.Sender) is created or overwritten
// with dv.Sender's distance plus the unit link cost to that neighbor --
// even when the new distance is larger than the old one, since that
// encodes the neighbor's own estimate having worsened. Routes for other
// via-neighbors are never touched by this call.
//
// Returns true if at least one route was created or changed, in which
// case the dirty flag is also set.
func (t *Table) Ingest(dv wire.DV) bool {
	if dv.Sender == t.myIP {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	for _, p := range dv.Pairs {
		newDist := p.Dist + 1
		k := key{dest: p.Dest, via: dv.Sender}

		if existing, ok := t.routes[k]; ok {
			if existing != newDist {
				t.routes[k] = newDist
				changed = true
			}
			continue
		}

		if t.maxDestinations > 0 && t.perDest[p.Dest] == 0 && t.distinctDestinationsLocked() >= t.maxDestinations {
			t.log.Errorf("route: rejecting destination %s, table at MaxDestinations=%d", p.Dest, t.maxDestinations)
			t.metrics.RoutesRejected.Inc()
			continue
		}

		t.routes[k] = newDist
		t.perDest[p.Dest]++
		changed = true
	}

	if changed {
		t.dirty = true
	}
	return changed
}

// GCVia removes every route whose via-neighbor is in deadNeighbors.
// Returns true if any route was removed, in which case the dirty flag
// is also set -- per design notes, a neighbor timing out invalidates
// everything learned through it.
func (t *Table) GCVia(deadNeighbors []string) bool {
	if len(deadNeighbors) == 0 {
		return false
	}
	dead := make(map[string]bool, len(deadNeighbors))
	for _, ip := range deadNeighbors {
		dead[ip] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k := range t.routes {
		if dead[k.via] {
			delete(t.routes, k)
			t.perDest[k.dest]--
			if t.perDest[k.dest] <= 0 {
				delete(t.perDest, k.dest)
			}
			removed++
		}
	}
	if removed > 0 {
		t.log.Infof("route: garbage collected %d route(s) via dead neighbor(s) %v", removed, deadNeighbors)
		t.metrics.RoutesGC.Add(float64(removed))
		t.dirty = true
		return true
	}
	return false
}

// distinctDestinationsLocked returns the number of distinct
// destinations currently tracked. Caller must hold t.mu.
func (t *Table) distinctDestinationsLocked() int {
	return len(t.perDest)
}

// DistanceVector computes the best (minimum) distance to every
// destination with at least one route below NoRoute, sorted by
// destination for stable output.
func (t *Table) DistanceVector() []wire.DVPair {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.distanceVectorLocked()
}

// distanceVectorLocked is DistanceVector's body. Caller must hold t.mu.
func (t *Table) distanceVectorLocked() []wire.DVPair {
	best := make(map[string]int, len(t.perDest))
	for k, d := range t.routes {
		if cur, ok := best[k.dest]; !ok || d < cur {
			best[k.dest] = d
		}
	}

	out := make([]wire.DVPair, 0, len(best))
	for dest, dist := range best {
		if dist >= NoRoute {
			continue
		}
		out = append(out, wire.DVPair{Dest: dest, Dist: dist})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dest < out[j].Dest })
	return out
}

// Encode returns the wire-format DV string this node would currently
// broadcast.
func (t *Table) Encode() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.encodeLocked()
}

// encodeLocked is Encode's body. Caller must hold t.mu.
func (t *Table) encodeLocked() string {
	return wire.EncodeDV(t.myIP, t.distanceVectorLocked())
}

// Dirty reports whether the table has changed since the last send.
func (t *Table) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// MarkSent clears the dirty flag after a successful broadcast. Callers
// must not clear it on a failed send -- the DV will simply be retried
// on the next tick. Exported for tests; production code should prefer
// SendIfDirty, which folds the check, serialize, send and clear into
// one critical section.
func (t *Table) MarkSent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}

// SendIfDirty holds t.mu across the dirty check, DV serialization, the
// send callback, and the flag clear, so a concurrent Ingest or GCVia
// either completes entirely before this call observes the table or
// entirely after -- it can never land between Encode and MarkSent and
// have its change silently dropped. Returns true if a DV was sent (send
// returned nil). A failed send leaves the dirty flag set for retry on
// the next tick, per spec's transient-I/O handling.
func (t *Table) SendIfDirty(send func(string) error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dirty {
		return false
	}
	dv := t.encodeLocked()
	if err := send(dv); err != nil {
		return false
	}
	t.dirty = false
	return true
}

// Snapshot returns every (dest, via, distance) entry, sorted for
// stable output (used by tests and the debug HTTP endpoint).
func (t *Table) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.routes))
	for k, d := range t.routes {
		out = append(out, Entry{Dest: k.dest, Via: k.via, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dest != out[j].Dest {
			return out[i].Dest < out[j].Dest
		}
		return out[i].Via < out[j].Via
	})
	return out
}
