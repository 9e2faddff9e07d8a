package sched

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	"github.com/odsl-lang/odsl/internal/eval"
)

func execRecursive(t *testing.T, src string, opts ...Option) (ast.Value, *Scheduler) {
	t.Helper()
	s := New(ast.NewArena(), opts...)
	id := s.Spawn(src, Recursive)
	p, err := s.Exec(id, src)
	if err != nil {
		t.Fatalf("exec %q: %v", src, err)
	}
	if p.Kind != PollEnd {
		t.Fatalf("exec %q: poll kind %d, want PollEnd", src, p.Kind)
	}
	return p.Value, s
}

func TestRecursiveExecPlainProgram(t *testing.T) {
	v, _ := execRecursive(t, "2+5+3")
	if v.String() != "10" {
		t.Fatalf("result = %s, want 10", v.String())
	}
}

func TestPubSubSndRcvScenario(t *testing.T) {
	var out bytes.Buffer
	src := "p0:pub[0;8]; s1:sub[0;p0]; s2:sub[0;p0]; snd[p0;11]; snd[p0;12]; print[rcv s1; rcv s2; rcv s1; rcv s2]"
	v, _ := execRecursive(t, src, WithEvalOptions(eval.WithOutput(&out)))
	if got := strings.TrimSpace(out.String()); got != "#a[11;11;12;12]" {
		t.Fatalf("printed %q, want #a[11;11;12;12]", got)
	}
	if v.String() != "#a[11;11;12;12]" {
		t.Fatalf("result = %s, want #a[11;11;12;12]", v.String())
	}
}

func TestSpawnPrimitiveCreatesTask(t *testing.T) {
	_, s := execRecursive(t, `spawn["1+2"]`)
	// One spawner plus one spawned task.
	if len(s.List()) != 2 {
		t.Fatalf("task table has %d entries, want 2", len(s.List()))
	}
	if !s.Quiescent() {
		t.Fatalf("both tasks should have retired")
	}
}

func TestHaltRetiresTask(t *testing.T) {
	s := New(ast.NewArena())
	id := s.Spawn("", Mainloop)
	// The task halts itself mid-program; the tail expression never runs.
	if _, err := s.Exec(id, "halt[]; 42"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	task, _ := s.Task(id)
	if task.StatusNow() != StatusHalted {
		t.Fatalf("status = %s, want halted", task.StatusNow())
	}
}

func TestCooperativeYieldParksForOneTick(t *testing.T) {
	s := New(ast.NewArena())
	id := s.Spawn("", Mainloop)
	p, err := s.Exec(id, "yield; 7")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if p.Kind != PollYield {
		t.Fatalf("poll kind after exec = %d, want PollYield", p.Kind)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	task, _ := s.Task(id)
	if task.Result().String() != "7" {
		t.Fatalf("result = %s, want 7", task.Result().String())
	}
}

func TestCorecursivePollStepsOnce(t *testing.T) {
	s := New(ast.NewArena())
	id := s.Spawn("", Corecursive)
	if _, err := s.Exec(id, "1+2+3"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	task, _ := s.Task(id)
	steps := 0
	for task.StatusNow() != StatusDone {
		if _, err := s.Poll(id, eval.Context{}); err != nil {
			t.Fatalf("poll: %v", err)
		}
		steps++
		if steps > 1000 {
			t.Fatalf("corecursive task never finished")
		}
	}
	if steps < 2 {
		t.Fatalf("corecursive task finished in %d polls; expected several single steps", steps)
	}
	if task.Result().String() != "6" {
		t.Fatalf("result = %s, want 6", task.Result().String())
	}
}

func TestBackpressureBlocksUntilDrained(t *testing.T) {
	var out bytes.Buffer
	s := New(ast.NewArena(), WithEvalOptions(eval.WithOutput(&out)))

	// Producer: ring of capacity 2, three sends; the third must block until
	// the consumer drains. Consumer subscribes first via the shared handle.
	prod := s.Spawn("", Mainloop)
	cons := s.Spawn("", Mainloop)
	if _, err := s.Exec(prod, "p:pub[0;2]; yield; snd[p;1]; snd[p;2]; snd[p;3]"); err != nil {
		t.Fatalf("exec producer: %v", err)
	}
	if _, err := s.Exec(cons, "s:sub[0;1]; print[rcv s; rcv s; rcv s]"); err != nil {
		t.Fatalf("exec consumer: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "#a[1;2;3]" {
		t.Fatalf("consumer printed %q, want #a[1;2;3]", got)
	}
}

func TestTwoSchedulersSharedRouter(t *testing.T) {
	var out bytes.Buffer
	router := bus.NewRouter()
	a := New(ast.NewArena(), WithRouter(router))
	b := New(ast.NewArena(), WithRouter(router), WithEvalOptions(eval.WithOutput(&out)))

	prod := a.Spawn("", Mainloop)
	cons := b.Spawn("", Mainloop)
	if _, err := a.Exec(prod, "p:pub[0;8]; yield; snd[p;11]; snd[p;12]"); err != nil {
		t.Fatalf("exec producer: %v", err)
	}
	if _, err := b.Exec(cons, "s:sub[0;1]; print[rcv s; rcv s]"); err != nil {
		t.Fatalf("exec consumer: %v", err)
	}

	for i := 0; i < 100; i++ {
		liveA, progA, err := a.Tick()
		if err != nil {
			t.Fatalf("tick a: %v", err)
		}
		liveB, progB, err := b.Tick()
		if err != nil {
			t.Fatalf("tick b: %v", err)
		}
		if liveA+liveB == 0 {
			break
		}
		if !progA && !progB {
			t.Fatalf("cross-scheduler deadlock")
		}
	}
	if got := strings.TrimSpace(out.String()); got != "#a[11;12]" {
		t.Fatalf("consumer printed %q, want #a[11;12]", got)
	}
}

func TestDeadlockDetected(t *testing.T) {
	s := New(ast.NewArena())
	id := s.Spawn("", Mainloop)
	// Receive with nothing ever published to the ring: blocked forever.
	if _, err := s.Exec(id, "p:pub[0;2]; s:sub[0;p]; rcv s"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := s.Run(); err != ErrDeadlock {
		t.Fatalf("run = %v, want ErrDeadlock", err)
	}
}

func TestGCRequiresQuiescence(t *testing.T) {
	s := New(ast.NewArena())
	id := s.Spawn("", Mainloop)
	if _, err := s.Exec(id, "p:pub[0;2]; s:sub[0;p]; rcv s"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := s.GC(); err != ErrNotQuiescent {
		t.Fatalf("GC with a blocked task = %v, want ErrNotQuiescent", err)
	}
}

func TestGCResetsTable(t *testing.T) {
	_, s := execRecursive(t, "1+1")
	if err := s.GC(); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("task table not empty after GC")
	}
}

func TestDumpJSON(t *testing.T) {
	_, s := execRecursive(t, "2+3")
	out, err := s.DumpJSON(false)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if n := gjson.GetBytes(out, "tasks.#").Int(); n != 1 {
		t.Fatalf("tasks.# = %d, want 1", n)
	}
	if got := gjson.GetBytes(out, "tasks.0.status").String(); got != "done" {
		t.Fatalf("tasks.0.status = %q, want done", got)
	}
	if got := gjson.GetBytes(out, "tasks.0.result").String(); got != "5" {
		t.Fatalf("tasks.0.result = %q, want 5", got)
	}
	if got := gjson.GetBytes(out, "tasks.0.mode").String(); got != "recursive" {
		t.Fatalf("tasks.0.mode = %q, want recursive", got)
	}
}

func TestListNaturalOrder(t *testing.T) {
	s := New(ast.NewArena())
	for i := 0; i < 11; i++ {
		s.Spawn("", Mainloop)
	}
	list := s.List()
	if len(list) != 11 {
		t.Fatalf("list has %d entries, want 11", len(list))
	}
	// Natural order keeps t2 before t10.
	i2, i10 := -1, -1
	for i, line := range list {
		if strings.HasPrefix(line, "t2 ") {
			i2 = i
		}
		if strings.HasPrefix(line, "t10 ") {
			i10 = i
		}
	}
	if i2 == -1 || i10 == -1 || i2 > i10 {
		t.Fatalf("natural order violated: t2 at %d, t10 at %d", i2, i10)
	}
}
