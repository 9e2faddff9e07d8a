// Package bus implements the intercore message bus: a bounded,
// power-of-two SPMC ring per publisher (spec.md §4.7), plus the Message
// taxonomy the Scheduler routes between tasks. Subscribers read without
// locking; the publisher's Next takes the ring's mutex while it scans the
// subscriber cursors, so the send path is not lock-free. Cross-task/cross-core
// communication goes through here and nowhere else — the evaluator never
// touches a Ring directly, only Messages (see internal/eval's intercore
// primitives).
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/odsl-lang/odsl/internal/ast"
)

// Ring is a bounded, power-of-two ring buffer with one writer cursor
// (Publisher) and any number of independent reader cursors (Subscriber).
// Ordering between the writer and readers is enforced purely by the
// acquire/release semantics Go's sync/atomic gives loads and stores of the
// cursor words; the payload slot is always written before the writer
// cursor is advanced, so a subscriber that observes cursor N also observes
// every slot below N.
type Ring struct {
	mask uint64
	buf  []ast.Value

	mu    sync.Mutex // guards subs (append-only) and reader cursor creation
	write atomic.Uint64
	subs  []*atomic.Uint64
}

// NewRing creates a Ring whose capacity is the next power of two >= capacity.
func NewRing(capacity int) *Ring {
	c := nextPow2(capacity)
	return &Ring{mask: uint64(c - 1), buf: make([]ast.Value, c)}
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the ring's fixed slot count.
func (r *Ring) Capacity() int { return len(r.buf) }

// Publisher returns the ring's single writer handle.
func (r *Ring) Publisher() *Publisher { return &Publisher{ring: r} }

// NewSubscriber attaches a fresh reader cursor positioned at the ring's
// current write point: per spec.md §5, "A Sub issued after a Pub for the
// same publisher sees only elements published after the subscribe point
// (no replay)."
func (r *Ring) NewSubscriber() *Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := &atomic.Uint64{}
	cur.Store(r.write.Load())
	r.subs = append(r.subs, cur)
	return &Subscriber{ring: r, cursor: cur}
}

// Publisher is the ring's single writer.
type Publisher struct{ ring *Ring }

// Next reports whether a slot is available to write without lapping the
// slowest subscriber.
func (p *Publisher) Next() bool {
	w := p.ring.write.Load()
	p.ring.mu.Lock()
	defer p.ring.mu.Unlock()
	for _, s := range p.ring.subs {
		if w-s.Load() >= uint64(len(p.ring.buf)) {
			return false
		}
	}
	return true
}

// Send writes v to the next slot and commits. It returns false (the caller
// must Yield per spec.md §4.7) if the ring is full relative to the
// slowest subscriber.
func (p *Publisher) Send(v ast.Value) bool {
	if !p.Next() {
		return false
	}
	w := p.ring.write.Load()
	p.ring.buf[w&p.ring.mask] = v
	p.ring.write.Store(w + 1) // release: publishes the slot written above
	return true
}

// Subscriber is one independent reader cursor over a Ring.
type Subscriber struct {
	ring   *Ring
	cursor *atomic.Uint64
}

// Recv consumes the next element. ok is false (the caller must Yield) if
// the cursor has caught up with the writer.
func (s *Subscriber) Recv() (v ast.Value, ok bool) {
	r := s.cursor.Load()
	if r >= s.ring.write.Load() { // acquire: pairs with Publisher.Send's store
		return ast.Nil, false
	}
	v = s.ring.buf[r&s.ring.mask]
	s.cursor.Store(r + 1)
	return v, true
}
