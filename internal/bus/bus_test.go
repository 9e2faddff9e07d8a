package bus

import (
	"testing"

	"github.com/odsl-lang/odsl/internal/ast"
)

func TestRingFIFO(t *testing.T) {
	r := NewRing(8)
	pub := r.Publisher()
	sub := r.NewSubscriber()

	for i := int64(0); i < 8; i++ {
		if !pub.Send(ast.Number(i)) {
			t.Fatalf("send %d refused on non-full ring", i)
		}
	}
	for i := int64(0); i < 8; i++ {
		v, ok := sub.Recv()
		if !ok {
			t.Fatalf("recv %d failed with elements remaining", i)
		}
		if v.Num != i {
			t.Fatalf("recv %d = %d, want %d (FIFO violated)", i, v.Num, i)
		}
	}
	if _, ok := sub.Recv(); ok {
		t.Fatalf("recv succeeded on drained ring")
	}
}

func TestRingBackpressure(t *testing.T) {
	r := NewRing(4)
	pub := r.Publisher()
	sub := r.NewSubscriber()

	for i := int64(0); i < 4; i++ {
		if !pub.Send(ast.Number(i)) {
			t.Fatalf("send %d refused below capacity", i)
		}
	}
	if pub.Send(ast.Number(99)) {
		t.Fatalf("send succeeded on full ring: would lap the subscriber")
	}

	// Draining one element frees exactly one slot.
	if _, ok := sub.Recv(); !ok {
		t.Fatalf("recv failed on full ring")
	}
	if !pub.Send(ast.Number(4)) {
		t.Fatalf("send refused after drain")
	}
}

func TestRingCapacityRoundsToPowerOfTwo(t *testing.T) {
	if c := NewRing(5).Capacity(); c != 8 {
		t.Fatalf("Capacity() = %d, want 8", c)
	}
	if c := NewRing(0).Capacity(); c != 1 {
		t.Fatalf("Capacity() = %d, want 1", c)
	}
}

func TestSubscriberNoReplay(t *testing.T) {
	r := NewRing(8)
	pub := r.Publisher()
	pub.Send(ast.Number(1))
	pub.Send(ast.Number(2))

	// Attached after two sends: must not see them.
	late := r.NewSubscriber()
	if _, ok := late.Recv(); ok {
		t.Fatalf("late subscriber replayed an element published before subscribe")
	}
	pub.Send(ast.Number(3))
	v, ok := late.Recv()
	if !ok || v.Num != 3 {
		t.Fatalf("late subscriber got %v, %v, want 3", v.Num, ok)
	}
}

func TestIndependentSubscriberCursors(t *testing.T) {
	r := NewRing(8)
	pub := r.Publisher()
	s1 := r.NewSubscriber()
	s2 := r.NewSubscriber()

	pub.Send(ast.Number(11))
	pub.Send(ast.Number(12))

	// Interleaved reads: each cursor advances independently.
	for _, want := range []struct {
		sub  *Subscriber
		want int64
	}{{s1, 11}, {s2, 11}, {s1, 12}, {s2, 12}} {
		v, ok := want.sub.Recv()
		if !ok || v.Num != want.want {
			t.Fatalf("recv = %d, %v, want %d", v.Num, ok, want.want)
		}
	}
}

func TestSlowestSubscriberGatesPublisher(t *testing.T) {
	r := NewRing(2)
	pub := r.Publisher()
	fast := r.NewSubscriber()
	_ = r.NewSubscriber() // slow: never reads

	pub.Send(ast.Number(1))
	pub.Send(ast.Number(2))
	fast.Recv()
	fast.Recv()

	if pub.Send(ast.Number(3)) {
		t.Fatalf("send succeeded despite un-drained slow subscriber")
	}
}

func TestRouterPubSubSndRcv(t *testing.T) {
	rt := NewRouter()

	reply, yield := rt.Route(Pub{TaskID: 1, Cap: 4})
	if yield {
		t.Fatalf("Pub yielded")
	}
	pubID := reply.(Ack).ResultID

	reply, yield = rt.Route(Sub{TaskID: 1, PubID: pubID})
	if yield {
		t.Fatalf("Sub yielded")
	}
	subID := reply.(Ack).ResultID

	// Empty ring: Rcv backpressures.
	if _, yield = rt.Route(Rcv{CursorID: subID}); !yield {
		t.Fatalf("Rcv on empty ring did not yield")
	}

	if _, yield = rt.Route(Snd{CursorID: pubID, Value: ast.Number(42)}); yield {
		t.Fatalf("Snd on empty ring yielded")
	}
	reply, yield = rt.Route(Rcv{CursorID: subID})
	if yield {
		t.Fatalf("Rcv after Snd yielded")
	}
	if v := reply.(ValueReply).Value; v.Num != 42 {
		t.Fatalf("Rcv = %d, want 42", v.Num)
	}
}

func TestRouterSndBackpressure(t *testing.T) {
	rt := NewRouter()
	reply, yield := rt.Route(Pub{Cap: 2})
	pubID := mustAck(t, reply, yield)
	reply, yield = rt.Route(Sub{PubID: pubID})
	mustAck(t, reply, yield)

	for i := 0; i < 2; i++ {
		if _, yield := rt.Route(Snd{CursorID: pubID, Value: ast.Number(int64(i))}); yield {
			t.Fatalf("Snd %d yielded below capacity", i)
		}
	}
	if _, yield := rt.Route(Snd{CursorID: pubID, Value: ast.Number(9)}); !yield {
		t.Fatalf("Snd past capacity did not yield")
	}
}

func TestRouterUnknownHandles(t *testing.T) {
	rt := NewRouter()
	if reply, _ := rt.Route(Sub{PubID: 99}); reply.(Ack).ResultID != -1 {
		t.Fatalf("Sub to unknown publisher did not refuse")
	}
	if reply, _ := rt.Route(Snd{CursorID: 99}); reply.(Ack).ResultID != -1 {
		t.Fatalf("Snd to unknown cursor did not refuse")
	}
	if reply, _ := rt.Route(Rcv{CursorID: 99}); reply.(Ack).ResultID != -1 {
		t.Fatalf("Rcv from unknown cursor did not refuse")
	}
}

func mustAck(t *testing.T, reply Message, yield bool) int {
	t.Helper()
	if yield {
		t.Fatalf("unexpected yield")
	}
	ack, ok := reply.(Ack)
	if !ok || ack.ResultID == -1 {
		t.Fatalf("request refused: %#v", reply)
	}
	return ack.ResultID
}
