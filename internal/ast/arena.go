package ast

import (
	"github.com/odsl-lang/odsl/internal/arena"
	"github.com/odsl-lang/odsl/internal/lexer"
)

// Arena owns one chunked arena.Arena pool per concrete node type, plus the
// three interning tables every Interpreter needs to turn source names,
// symbols and byte-sequences into stable u16 ids. Every node returned by an
// Arena method is a pointer into one of these pools: stable until Reset.
type Arena struct {
	Interners *arena.Interners

	vectors    *arena.Arena[Vector]
	values     *arena.Arena[ValueNode]
	names      *arena.Arena[NameNode]
	nameInts   *arena.Arena[NameIntNode]
	symInts    *arena.Arena[SymbolIntNode]
	seqInts    *arena.Arena[SequenceIntNode]
	anys       *arena.Arena[AnyNode]
	cons       *arena.Arena[ConsNode]
	lists      *arena.Arena[ListNode]
	dicts      *arena.Arena[DictNode]
	calls      *arena.Arena[CallNode]
	lambdas    *arena.Arena[LambdaNode]
	verbs      *arena.Arena[VerbNode]
	adverbs    *arena.Arena[AdverbNode]
	assigns    *arena.Arena[AssignNode]
	conds      *arena.Arena[CondNode]
	ioverbs    *arena.Arena[IoverbNode]
	yields     *arena.Arena[YieldNode]
}

// NewArena creates an empty Arena with fresh interning tables.
func NewArena() *Arena {
	return &Arena{
		Interners: arena.NewInterners(),
		vectors:   arena.New[Vector](0),
		values:    arena.New[ValueNode](0),
		names:     arena.New[NameNode](0),
		nameInts:  arena.New[NameIntNode](0),
		symInts:   arena.New[SymbolIntNode](0),
		seqInts:   arena.New[SequenceIntNode](0),
		anys:      arena.New[AnyNode](0),
		cons:      arena.New[ConsNode](0),
		lists:     arena.New[ListNode](0),
		dicts:     arena.New[DictNode](0),
		calls:     arena.New[CallNode](0),
		lambdas:   arena.New[LambdaNode](0),
		verbs:     arena.New[VerbNode](0),
		adverbs:   arena.New[AdverbNode](0),
		assigns:   arena.New[AssignNode](0),
		conds:     arena.New[CondNode](0),
		ioverbs:   arena.New[IoverbNode](0),
		yields:    arena.New[YieldNode](0),
	}
}

// Reset implements gc(): every node pool is dropped and the interning
// tables are cleared. Legal only when the caller guarantees no live
// Continuation still references this arena's nodes (scheduler quiescence).
func (a *Arena) Reset() {
	a.Interners.Reset()
	a.vectors.Reset()
	a.values.Reset()
	a.names.Reset()
	a.nameInts.Reset()
	a.symInts.Reset()
	a.seqInts.Reset()
	a.anys.Reset()
	a.cons.Reset()
	a.lists.Reset()
	a.dicts.Reset()
	a.calls.Reset()
	a.lambdas.Reset()
	a.verbs.Reset()
	a.adverbs.Reset()
	a.assigns.Reset()
	a.conds.Reset()
	a.ioverbs.Reset()
	a.yields.Reset()
}

func (a *Arena) NewVector(items []Node, p lexer.Position) *Vector {
	return a.vectors.Alloc(Vector{Items: items, P: p})
}

func (a *Arena) NewValue(v Value, p lexer.Position) *ValueNode {
	return a.values.Alloc(ValueNode{Val: v, P: p})
}

func (a *Arena) NewName(s string, p lexer.Position) *NameNode {
	return a.names.Alloc(NameNode{Str: s, P: p})
}

func (a *Arena) NewNameInt(id uint16, p lexer.Position) *NameIntNode {
	return a.nameInts.Alloc(NameIntNode{ID: id, P: p})
}

func (a *Arena) NewSymbolInt(id uint16, p lexer.Position) *SymbolIntNode {
	return a.symInts.Alloc(SymbolIntNode{ID: id, P: p})
}

func (a *Arena) NewSequenceInt(id uint16, p lexer.Position) *SequenceIntNode {
	return a.seqInts.Alloc(SequenceIntNode{ID: id, P: p})
}

func (a *Arena) NewAny(p lexer.Position) *AnyNode {
	return a.anys.Alloc(AnyNode{P: p})
}

func (a *Arena) NewCons(l, r Node, p lexer.Position) *ConsNode {
	return a.cons.Alloc(ConsNode{Left: l, Right: r, P: p})
}

func (a *Arena) NewIoverb(text string, p lexer.Position) *IoverbNode {
	return a.ioverbs.Alloc(IoverbNode{Text: text, P: p})
}

func (a *Arena) NewYield(p lexer.Position) *YieldNode {
	return a.yields.Alloc(YieldNode{P: p})
}

// InternName interns s into the Names table.
func (a *Arena) InternName(s string) (uint16, error) { return a.Interners.Names.Intern(s) }

// InternSymbol interns s into the Symbols table.
func (a *Arena) InternSymbol(s string) (uint16, error) { return a.Interners.Symbols.Intern(s) }

// InternSequence interns s into the Sequences table.
func (a *Arena) InternSequence(s string) (uint16, error) { return a.Interners.Sequences.Intern(s) }

// Name returns the interned string for id, if any.
func (a *Arena) Name(id uint16) (string, bool) { return a.Interners.Names.Lookup(id) }

// Symbol returns the interned string for id, if any.
func (a *Arena) Symbol(id uint16) (string, bool) { return a.Interners.Symbols.Lookup(id) }

// Sequence returns the interned string for id, if any.
func (a *Arena) Sequence(id uint16) (string, bool) { return a.Interners.Sequences.Lookup(id) }
