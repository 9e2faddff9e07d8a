package bus

import "github.com/odsl-lang/odsl/internal/ast"

// Message is the sum type routed by the Scheduler (spec.md §4.7): Pub/Sub/
// Snd/Rcv/Spawn/Halt requests and the Ack/Value replies they provoke.
type Message interface{ isMessage() }

// Pub allocates a new publisher ring of capacity Cap.
type Pub struct {
	From, To, TaskID int
	Cap              int
}

// Sub attaches a subscriber to an existing publisher ring.
type Sub struct {
	From, To, TaskID int
	PubID            int
}

// Snd produces one element on the ring identified by CursorID (a publisher
// handle id).
type Snd struct {
	CursorID int
	Value    ast.Value
}

// Rcv consumes one element from the ring identified by CursorID (a
// subscriber handle id).
type Rcv struct {
	CursorID int
}

// Spawn asks the Scheduler to create a new task running Txt.
type Spawn struct {
	Txt string
}

// Halt terminates the addressed task.
type Halt struct {
	TaskID int
}

// Ack is the generic reply carrier: ResultID holds whatever handle id the
// request allocated (a publisher id for Pub, a subscriber id for Sub), or
// -1 on failure. Spawn is answered by the Scheduler with the new task id as
// a plain Number, not with an Ack.
type Ack struct {
	TaskID, ResultID int
	Subs             []int
}

// ValueReply carries a received value back from a Rcv request.
type ValueReply struct {
	Value ast.Value
}

func (Pub) isMessage()        {}
func (Sub) isMessage()        {}
func (Snd) isMessage()        {}
func (Rcv) isMessage()        {}
func (Spawn) isMessage()      {}
func (Halt) isMessage()       {}
func (Ack) isMessage()        {}
func (ValueReply) isMessage() {}
