package sched

import (
	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	"github.com/odsl-lang/odsl/internal/eval"
)

// Termination selects how far a task is driven per scheduling decision
// (spec.md §4.6 and the Open Question pin-down in DESIGN.md).
type Termination int

const (
	// Recursive drives the task to Return synchronously inside Exec,
	// routing every intercore message inline.
	Recursive Termination = iota
	// Corecursive advances exactly one trampoline step per Poll call.
	Corecursive
	// Mainloop leaves driving to Run, which round-robins every live task
	// and routes all messages until the table drains.
	Mainloop
)

func (m Termination) String() string {
	switch m {
	case Recursive:
		return "recursive"
	case Corecursive:
		return "corecursive"
	case Mainloop:
		return "mainloop"
	default:
		return "unknown"
	}
}

// Status is a task slot's lifecycle state.
type Status int

const (
	// StatusNew is allocated but not yet primed with source via Exec.
	StatusNew Status = iota
	// StatusRunning is live: either mid-evaluation or parked on a
	// cooperative yield awaiting its next tick.
	StatusRunning
	// StatusBlocked is suspended on an intercore message the bus could not
	// service yet (ring full/empty backpressure).
	StatusBlocked
	// StatusDone holds a final result.
	StatusDone
	// StatusHalted was terminated by a Halt message.
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusRunning:
		return "running"
	case StatusBlocked:
		return "blocked"
	case StatusDone:
		return "done"
	case StatusHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Task is one slot in the scheduler's table: a trampoline state, a result-id
// counter, and the task's own Evaluator view over the shared interpreter
// memory.
type Task struct {
	ID     int
	Mode   Termination
	Source string
	Ev     *eval.Evaluator

	st       eval.State
	status   Status
	coop     bool        // parked on a cooperative (message-less) yield
	pending  bus.Message // intercore request the bus back-pressured
	result   ast.Value
	resultID int
	err      error
}

// StatusNow reports the slot's lifecycle state.
func (t *Task) StatusNow() Status { return t.status }

// Result returns the final value of a StatusDone task.
func (t *Task) Result() ast.Value { return t.result }

// Err returns the evaluation error that retired the task, if any.
func (t *Task) Err() error { return t.err }

func (t *Task) live() bool {
	return t.status == StatusRunning || t.status == StatusBlocked
}

func (t *Task) nextResultID() int {
	t.resultID++
	return t.resultID
}
