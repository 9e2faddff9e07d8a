package bus

import (
	"sync"

	"github.com/odsl-lang/odsl/internal/ast"
)

// Router owns every Ring/Publisher/Subscriber handle allocated via Pub/Sub
// messages and answers Snd/Rcv requests against them. Spawn/Halt are not
// handled here: they name task lifecycle operations the Scheduler alone
// can perform, so sched.Scheduler intercepts them before a message ever
// reaches Router.Route.
type Router struct {
	mu     sync.Mutex
	rings  map[int]*Ring
	pubs   map[int]*Publisher
	subs   map[int]*Subscriber
	nextID int
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{rings: map[int]*Ring{}, pubs: map[int]*Publisher{}, subs: map[int]*Subscriber{}}
}

func (r *Router) alloc() int {
	r.nextID++
	return r.nextID
}

// Route answers a Pub/Sub/Snd/Rcv message. yield reports that the request
// cannot complete yet (ring full for Snd, ring empty for Rcv) and the
// evaluator's task must surrender and retry, per spec.md §7: "Ring-full/
// empty are NOT errors: they become Yield suspensions."
func (r *Router) Route(msg Message) (reply Message, yield bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch m := msg.(type) {
	case Pub:
		id := r.alloc()
		ring := NewRing(m.Cap)
		r.rings[id] = ring
		r.pubs[id] = ring.Publisher()
		return Ack{TaskID: m.TaskID, ResultID: id}, false

	case Sub:
		ring, ok := r.rings[m.PubID]
		if !ok {
			return Ack{TaskID: m.TaskID, ResultID: -1}, false
		}
		id := r.alloc()
		r.subs[id] = ring.NewSubscriber()
		return Ack{TaskID: m.TaskID, ResultID: id}, false

	case Snd:
		pub, ok := r.pubs[m.CursorID]
		if !ok {
			return Ack{ResultID: -1}, false
		}
		if !pub.Send(m.Value) {
			return nil, true
		}
		return ValueReply{Value: ast.Nil}, false

	case Rcv:
		sub, ok := r.subs[m.CursorID]
		if !ok {
			return Ack{ResultID: -1}, false
		}
		v, ok := sub.Recv()
		if !ok {
			return nil, true
		}
		return ValueReply{Value: v}, false

	default:
		return Ack{ResultID: -1}, false
	}
}
