// Package sched implements the cooperative scheduler of spec.md §4.6: a
// task table, a round-robin poll loop, and the routing of intercore
// messages between suspended tasks and the bus. One Scheduler is one
// "core": single-threaded, cooperative, with cross-core coupling only
// through a shared bus.Router over the bus's bounded rings.
package sched

import (
	"errors"
	"fmt"
	"sync"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	oerrors "github.com/odsl-lang/odsl/internal/errors"
	"github.com/odsl-lang/odsl/internal/eval"
	"github.com/odsl-lang/odsl/internal/lexer"
	"github.com/odsl-lang/odsl/internal/parser"
)

// ErrNotQuiescent is returned by GC when a live task still references the
// arena: resetting under it would corrupt suspended continuations.
var ErrNotQuiescent = errors.New("sched: gc requires quiescence (live tasks remain)")

// ErrDeadlock is returned by Run when every live task is blocked on
// backpressure and no task can make progress to drain a ring.
var ErrDeadlock = errors.New("sched: all live tasks blocked on intercore backpressure")

// PollKind tags the four outcomes of the poll contract (spec.md §6).
type PollKind int

const (
	PollIdle PollKind = iota
	PollYield
	PollEnd
	PollErr
)

// Poll is one poll outcome: Idle, Yield(Context), End(value), or Err.
type Poll struct {
	Kind  PollKind
	Ctx   eval.Context
	Value ast.Value
	Err   error
}

// Scheduler owns a table of task slots sharing one interpreter memory (the
// arena and its interners), and a bus router that may be shared with other
// Schedulers for cross-core messaging.
type Scheduler struct {
	mu       sync.Mutex
	arena    *ast.Arena
	router   *bus.Router
	tasks    map[int]*Task
	order    []int
	nextID   int
	evalOpts []eval.Option
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRouter shares an existing bus router, coupling this Scheduler to
// every other Scheduler built over the same one.
func WithRouter(r *bus.Router) Option { return func(s *Scheduler) { s.router = r } }

// WithEvalOptions forwards options to every task Evaluator this Scheduler
// creates (output redirection, tracing).
func WithEvalOptions(opts ...eval.Option) Option {
	return func(s *Scheduler) { s.evalOpts = append(s.evalOpts, opts...) }
}

// New creates a Scheduler whose tasks allocate out of a.
func New(a *ast.Arena, opts ...Option) *Scheduler {
	s := &Scheduler{arena: a, tasks: map[int]*Task{}}
	for _, o := range opts {
		o(s)
	}
	if s.router == nil {
		s.router = bus.NewRouter()
	}
	return s
}

// Router returns the bus router this Scheduler routes intercore messages
// through.
func (s *Scheduler) Router() *bus.Router { return s.router }

// Spawn allocates a task slot. source may be empty; Exec primes the slot
// with input later. The returned id is stamped onto the task's outgoing
// intercore messages.
func (s *Scheduler) Spawn(source string, mode Termination) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	ev := eval.New(s.arena, append(append([]eval.Option{}, s.evalOpts...), eval.WithTaskID(id))...)
	t := &Task{ID: id, Mode: mode, Source: source, Ev: ev, status: StatusNew}
	s.tasks[id] = t
	s.order = append(s.order, id)
	return id
}

// Task returns the slot for id.
func (s *Scheduler) Task(id int) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Exec primes task id with input: parses it into the shared arena, advances
// the trampoline to its first suspension, and — for Recursive tasks —
// drives straight through to Return, routing messages inline.
func (s *Scheduler) Exec(id int, input string) (Poll, error) {
	t, ok := s.Task(id)
	if !ok {
		return Poll{Kind: PollErr}, fmt.Errorf("sched: no task %d", id)
	}
	prog, errs := s.parse(input)
	if len(errs) > 0 {
		return Poll{Kind: PollErr, Err: errs[0]}, errs[0]
	}
	t.Source = input
	t.err = nil
	t.result = ast.Nil
	t.coop = false
	t.pending = nil
	if t.Mode == Corecursive {
		// Corecursive tasks advance one step per Poll; priming only sets
		// up the initial state.
		t.st = eval.Initial(prog, t.Ev.Root())
		t.status = StatusRunning
		return s.pollResult(t), nil
	}
	st, err := t.Ev.Run(prog, t.Ev.Root())
	if err != nil {
		t.status = StatusDone
		t.err = err
		return Poll{Kind: PollErr, Err: err}, err
	}
	t.st = st
	t.status = StatusRunning
	if err := s.advance(t); err != nil {
		return Poll{Kind: PollErr, Err: err}, err
	}
	if t.Mode == Recursive {
		if err := s.driveRecursive(t); err != nil {
			return Poll{Kind: PollErr, Err: err}, err
		}
	}
	return s.pollResult(t), nil
}

func (s *Scheduler) parse(input string) (*ast.Vector, []*oerrors.Error) {
	l := lexer.New(input)
	p := parser.New(l, s.arena, input, "<task>")
	prog := p.ParseProgram()
	return prog, p.Errors()
}

// Poll advances task id with ctx delivered as the resumption value, per the
// poll contract of spec.md §6. Corecursive tasks advance one trampoline
// step; other modes advance to their next suspension.
func (s *Scheduler) Poll(id int, ctx eval.Context) (Poll, error) {
	t, ok := s.Task(id)
	if !ok {
		return Poll{Kind: PollErr}, fmt.Errorf("sched: no task %d", id)
	}
	if !t.live() {
		return s.pollResult(t), nil
	}

	if t.st.Kind == eval.KYield {
		reply := replyValue(ctx)
		t.st = eval.ResumeWith(t.st, reply)
		t.coop = false
		t.pending = nil
		t.status = StatusRunning
	}

	if t.Mode == Corecursive {
		st, err := t.Ev.Step(t.st)
		if err != nil {
			t.status = StatusDone
			t.err = err
			return Poll{Kind: PollErr, Err: err}, err
		}
		t.st = st
		if st.Kind == eval.KReturn {
			t.result = st.Value
			t.status = StatusDone
		}
		if st.Kind == eval.KYield {
			return Poll{Kind: PollYield, Ctx: st.Ctx}, nil
		}
		return s.pollResult(t), nil
	}

	st, err := t.Ev.Drive(t.st)
	if err != nil {
		t.status = StatusDone
		t.err = err
		return Poll{Kind: PollErr, Err: err}, err
	}
	t.st = st
	if err := s.advance(t); err != nil {
		return Poll{Kind: PollErr, Err: err}, err
	}
	return s.pollResult(t), nil
}

func replyValue(ctx eval.Context) ast.Value {
	switch {
	case ctx.Msg != nil:
		return eval.ValueFromReply(ctx.Msg)
	case ctx.Node != nil:
		if vn, ok := ctx.Node.(*ast.ValueNode); ok {
			return vn.Val
		}
		return ast.Nil
	default:
		return ast.Nil
	}
}

func (s *Scheduler) pollResult(t *Task) Poll {
	switch {
	case t.err != nil:
		return Poll{Kind: PollErr, Err: t.err}
	case t.status == StatusDone:
		return Poll{Kind: PollEnd, Value: t.result}
	case t.status == StatusBlocked:
		return Poll{Kind: PollYield, Ctx: eval.Context{Msg: t.pending}}
	case t.coop:
		return Poll{Kind: PollYield}
	default:
		return Poll{Kind: PollIdle}
	}
}

// advance services a task's trampoline state until it parks: on a
// cooperative yield (resumed next tick), on bus backpressure (retried next
// tick), or at Return.
func (s *Scheduler) advance(t *Task) error {
	for {
		switch t.st.Kind {
		case eval.KReturn:
			t.result = t.st.Value
			t.status = StatusDone
			return nil

		case eval.KYield:
			ctx := t.st.Ctx
			if ctx.Msg == nil {
				t.coop = true
				t.status = StatusRunning
				return nil
			}
			reply, backpressure, err := s.service(t, ctx.Msg)
			if err != nil {
				t.status = StatusDone
				t.err = err
				return err
			}
			if backpressure {
				t.pending = ctx.Msg
				t.status = StatusBlocked
				return nil
			}
			if t.status == StatusHalted {
				// The message halted this very task (halt[] with its own
				// id); the suspended continuation never resumes.
				return nil
			}
			t.pending = nil
			t.status = StatusRunning
			st, err := t.Ev.Resume(t.st, reply)
			if err != nil {
				t.status = StatusDone
				t.err = err
				return err
			}
			t.st = st

		default:
			st, err := t.Ev.Drive(t.st)
			if err != nil {
				t.status = StatusDone
				t.err = err
				return err
			}
			t.st = st
		}
	}
}

// service answers one intercore message. Spawn and Halt are task-lifecycle
// operations only the scheduler can perform; everything else goes to the
// bus router. backpressure reports that the bus could not complete the
// request yet (ring full/empty) and the task must stay suspended.
func (s *Scheduler) service(t *Task, msg bus.Message) (reply ast.Value, backpressure bool, err error) {
	switch m := msg.(type) {
	case bus.Spawn:
		id := s.Spawn(m.Txt, Mainloop)
		if _, err := s.Exec(id, m.Txt); err != nil {
			return ast.Number(-1), false, nil
		}
		return ast.Number(int64(id)), false, nil

	case bus.Halt:
		if target, ok := s.Task(m.TaskID); ok {
			target.status = StatusHalted
		}
		return ast.Nil, false, nil

	default:
		replyMsg, yield := s.router.Route(msg)
		if yield {
			return ast.Nil, true, nil
		}
		if ack, ok := replyMsg.(bus.Ack); ok && ack.ResultID == -1 {
			return ast.Nil, false, oerrors.New(oerrors.InvalidOperation, lexer.Position{},
				fmt.Sprintf("intercore request %T refused by bus", msg), "", "")
		}
		t.nextResultID()
		return eval.ValueFromReply(replyMsg), false, nil
	}
}

// Tick runs one round-robin pass: every parked task gets one chance to
// resume (cooperative yields are resumed with Nil, back-pressured requests
// are retried). It reports how many tasks remain live and whether any task
// made progress this round.
func (s *Scheduler) Tick() (live int, progressed bool, err error) {
	s.mu.Lock()
	order := append([]int{}, s.order...)
	s.mu.Unlock()

	for _, id := range order {
		t, ok := s.Task(id)
		if !ok || !t.live() {
			continue
		}
		switch {
		case t.coop:
			t.coop = false
			t.st = eval.ResumeWith(t.st, ast.Nil)
			if aerr := s.advance(t); aerr != nil {
				return s.liveCount(), true, aerr
			}
			progressed = true

		case t.status == StatusBlocked:
			reply, backpressure, serr := s.service(t, t.pending)
			if serr != nil {
				t.status = StatusDone
				t.err = serr
				return s.liveCount(), true, serr
			}
			if backpressure {
				continue
			}
			t.pending = nil
			t.status = StatusRunning
			st, rerr := t.Ev.Resume(t.st, reply)
			if rerr != nil {
				t.status = StatusDone
				t.err = rerr
				return s.liveCount(), true, rerr
			}
			t.st = st
			if aerr := s.advance(t); aerr != nil {
				return s.liveCount(), true, aerr
			}
			progressed = true
		}
	}
	return s.liveCount(), progressed, nil
}

func (s *Scheduler) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.live() {
			n++
		}
	}
	return n
}

// Run drives every live task to retirement, routing all intercore messages:
// the Mainloop termination mode. It returns ErrDeadlock if a full pass over
// the table moves nothing while blocked tasks remain.
func (s *Scheduler) Run() error {
	for {
		live, progressed, err := s.Tick()
		if err != nil {
			return err
		}
		if live == 0 {
			return nil
		}
		if !progressed {
			return ErrDeadlock
		}
	}
}

func (s *Scheduler) driveRecursive(t *Task) error {
	for t.live() {
		if t.coop {
			t.coop = false
			t.st = eval.ResumeWith(t.st, ast.Nil)
			if err := s.advance(t); err != nil {
				return err
			}
			continue
		}
		if t.status != StatusBlocked {
			// advance only parks on coop, backpressure, or retirement;
			// anything else here would spin.
			return nil
		}
		reply, backpressure, err := s.service(t, t.pending)
		if err != nil {
			t.status = StatusDone
			t.err = err
			return err
		}
		if backpressure {
			// No other task can drain the ring inside a synchronous
			// drive; surfacing the deadlock beats spinning.
			t.status = StatusDone
			t.err = ErrDeadlock
			return ErrDeadlock
		}
		t.pending = nil
		t.status = StatusRunning
		st, err := t.Ev.Resume(t.st, reply)
		if err != nil {
			t.status = StatusDone
			t.err = err
			return err
		}
		t.st = st
		if err := s.advance(t); err != nil {
			return err
		}
	}
	return nil
}

// Quiescent reports whether no task is live: the precondition for GC.
func (s *Scheduler) Quiescent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.live() {
			return false
		}
	}
	return true
}

// GC resets the shared arena and retires every task slot. Legal only at
// quiescence; violating that returns ErrNotQuiescent rather than silently
// corrupting suspended continuations.
func (s *Scheduler) GC() error {
	if !s.Quiescent() {
		return ErrNotQuiescent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = map[int]*Task{}
	s.order = nil
	s.arena.Reset()
	return nil
}
