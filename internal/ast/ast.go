// Package ast defines the Abstract Syntax Tree node types for O-DSL: a
// tagged sum type realized, in the teacher's style, as one interface with a
// concrete struct per variant. Every node is allocated out of an Arena (see
// Arena in this package) so that references between nodes are ordinary Go
// pointers with arena lifetime: stable until the owning Interpreter calls
// GC, never individually freed before that.
package ast

import "github.com/odsl-lang/odsl/internal/lexer"

// Node is the common interface implemented by every AST variant.
type Node interface {
	// Pos reports where in the source this node came from, for error
	// reporting. Nodes synthesized by builders (not directly from a
	// token) inherit the position of their dominant child.
	Pos() lexer.Position
	astNode()
}

// Verb is the tag for a built-in dyadic/monadic primitive operator.
type Verb uint8

const (
	Plus Verb = iota
	Minus
	Times
	Divide
	Mod
	Min
	Max
	Less
	More
	Equal
	Match
	Concat
	Except
	Take
	Drop
	Cast
	Find
	At
	Dot
	Gets
	Pack
	Unpack
	New
	// NotEqual supplements spec.md's verb table: the `<>` glyph used in the
	// §8 scenario `(1;2;3)<>(1;2;3)` has no counterpart among the listed
	// verbs (Equal/Less/More/Match are the only comparisons named), so we
	// add the conventional "not equal" reading rather than overload one of
	// those. See SPEC_FULL.md / DESIGN.md for the grounding.
	NotEqual
)

var verbNames = map[Verb]string{
	Plus: "+", Minus: "-", Times: "*", Divide: "%", Mod: "!", Min: "&",
	Max: "|", Less: "<", More: ">", Equal: "=", Match: "~", Concat: ",",
	Except: "^", Take: "#", Drop: "_", Cast: "$", Find: "?", At: "@",
	Dot: ".", Gets: "!!", Pack: "[]", Unpack: "][", New: ";", NotEqual: "<>",
}

func (v Verb) String() string {
	if s, ok := verbNames[v]; ok {
		return s
	}
	return "?verb"
}

// Adverb is the tag for a higher-order operator applied over a verb, a
// lambda, or a plain value.
type Adverb uint8

const (
	Each Adverb = iota
	EachPrio
	EachLeft
	EachRight
	Over
	Scan
	Iterate
	Fixed
	Assign
	View
	Separator
)

var adverbNames = map[Adverb]string{
	Each: "'", EachPrio: "':", EachLeft: "\\:", EachRight: "/:", Over: "/",
	Scan: "\\", Iterate: "/iter", Fixed: "/fix", Assign: ":", View: "::",
	Separator: ";",
}

func (a Adverb) String() string {
	if s, ok := adverbNames[a]; ok {
		return s
	}
	return "?adverb"
}

// ValueKind tags the immediate atoms that live inline in AST leaves and
// double as the evaluator's runtime value representation.
type ValueKind uint8

const (
	VNil ValueKind = iota
	VNumber
	VFloat
	VHexlit
	VBool
	VSymbol
	VSequence
	VName
	VVecInt
	VVecFloat
	// VVecAny supplements spec.md's VecInt/VecFloat with a vector of
	// mixed/non-numeric atoms (symbols, bools, nested lists), needed so
	// Each/Over/Scan can iterate literal vectors like (1;"a";1b). See
	// SPEC_FULL.md "SUPPLEMENTED FEATURES" #3.
	VVecAny
	// VDict is the evaluated form of a Dict AST node: parallel Keys/Vals
	// slices. spec.md's Data Model lists Dict as an AST node but never
	// gives its evaluated Value kind; we supplement one here the same way
	// we supplement VVecAny.
	VDict
	// VLambda, VBuiltin and VVerbFn supplement spec.md's Value atoms with
	// the "functions are values" requirement implicit in the Data Model's
	// Call/Adverb nodes: a Call's Callee and an Adverb's Left operand both
	// evaluate to something callable, so that has to be a Value kind too.
	// VLambda wraps a closed-over *LambdaNode (params bound or partially
	// bound); VBuiltin names an entry in the evaluator's primitive table;
	// VVerbFn wraps a bare verb (e.g. the `+` in `+/x`) used as a function
	// reference rather than applied in place.
	VLambda
	VBuiltin
	VVerbFn
)

// Value is an immediate scalar or vector atom. It is used both as an AST
// leaf payload and as the result an evaluation step produces.
type Value struct {
	Kind ValueKind
	Num  int64
	Flt  float64
	Bool bool
	// ID holds the interned id for VSymbol/VSequence/VName.
	ID     uint16
	VecI   []int64
	VecF   []float64
	VecAny []Value
	Keys   []Value
	Vals   []Value

	// Lambda backs VLambda. Builtin backs VBuiltin (a name the evaluator's
	// primitive table is keyed on). VerbOp backs VVerbFn; Seed, when
	// non-nil, carries the bound operand of a seeded verb reference (`0+/x`
	// folds from 0, `2+\:v` maps with 2 fixed).
	Lambda  *LambdaNode
	Builtin string
	VerbOp  Verb
	Seed    *Value
}

// Nil is the canonical unit value.
var Nil = Value{Kind: VNil}

// Number builds an int atom.
func Number(n int64) Value { return Value{Kind: VNumber, Num: n} }

// Float builds a float atom.
func Float(f float64) Value { return Value{Kind: VFloat, Flt: f} }

// Hexlit builds a hex-literal int atom (kept distinct from Number so the
// printer can round-trip the original radix).
func Hexlit(n int64) Value { return Value{Kind: VHexlit, Num: n} }

// Bool builds a boolean atom.
func Bool(b bool) Value { return Value{Kind: VBool, Bool: b} }

// Symbol builds a symbol atom referencing an interned symbol id.
func Symbol(id uint16) Value { return Value{Kind: VSymbol, ID: id} }

// Sequence builds a byte-sequence atom referencing an interned sequence id.
func Sequence(id uint16) Value { return Value{Kind: VSequence, ID: id} }

// VecInt builds an integer vector atom.
func VecInt(xs []int64) Value { return Value{Kind: VVecInt, VecI: xs} }

// VecFloat builds a float vector atom.
func VecFloat(xs []float64) Value { return Value{Kind: VVecFloat, VecF: xs} }

// VecAny builds a mixed-type vector atom.
func VecAny(xs []Value) Value { return Value{Kind: VVecAny, VecAny: xs} }

// Dict builds a key/value dictionary atom.
func Dict(keys, vals []Value) Value { return Value{Kind: VDict, Keys: keys, Vals: vals} }

// LambdaValue wraps a closed-over lambda as a callable Value.
func LambdaValue(l *LambdaNode) Value { return Value{Kind: VLambda, Lambda: l} }

// BuiltinValue wraps a named primitive as a callable Value.
func BuiltinValue(name string) Value { return Value{Kind: VBuiltin, Builtin: name} }

// VerbFnValue wraps a bare verb (no operands yet) as a callable Value, the
// form an adverb's Left operand takes for e.g. `+/x`.
func VerbFnValue(op Verb) Value { return Value{Kind: VVerbFn, VerbOp: op} }

// SeededVerbFn wraps a verb reference carrying a bound operand: the `0+` of
// `0+/x` (fold seed) or the `2+` of `2+\:v` (fixed eachleft operand).
func SeededVerbFn(op Verb, seed Value) Value {
	s := seed
	return Value{Kind: VVerbFn, VerbOp: op, Seed: &s}
}

// Callable reports whether v can be the target of a Call or the function
// operand of an Adverb.
func (v Value) Callable() bool {
	switch v.Kind {
	case VLambda, VBuiltin, VVerbFn:
		return true
	default:
		return false
	}
}

// Truthy implements the conditional test rule of spec.md §4.4: a value is
// truthy unless it is Bool(false) or Number(0).
func (v Value) Truthy() bool {
	switch v.Kind {
	case VBool:
		return v.Bool
	case VNumber:
		return v.Num != 0
	default:
		return true
	}
}

// --- Node variants -----------------------------------------------------

// Vector is the top-level program, and also a bracketed item sequence: a
// semicolon-separated list of sub-expressions.
type Vector struct {
	Items []Node
	P     lexer.Position
}

func (n *Vector) Pos() lexer.Position { return n.P }
func (*Vector) astNode()              {}

// ValueNode wraps an immediate Value as a leaf node.
type ValueNode struct {
	Val Value
	P   lexer.Position
}

func (n *ValueNode) Pos() lexer.Position { return n.P }
func (*ValueNode) astNode()              {}

// NameNode is an identifier reference that has not been interned. The
// parser interns names itself and emits NameIntNode; a NameNode arises as
// the implicit `x` parameter NewLambdaExpr supplies, and the evaluator
// interns it when binding or looking it up. The type exists because
// spec.md's Atom sum lists both Name(String) and NameInt(u16).
type NameNode struct {
	Str string
	P   lexer.Position
}

func (n *NameNode) Pos() lexer.Position { return n.P }
func (*NameNode) astNode()              {}

// NameIntNode is a name reference resolved to an interned id.
type NameIntNode struct {
	ID uint16
	P  lexer.Position
}

func (n *NameIntNode) Pos() lexer.Position { return n.P }
func (*NameIntNode) astNode()              {}

// SymbolIntNode is a symbol literal resolved to an interned id.
type SymbolIntNode struct {
	ID uint16
	P  lexer.Position
}

func (n *SymbolIntNode) Pos() lexer.Position { return n.P }
func (*SymbolIntNode) astNode()              {}

// SequenceIntNode is a byte-sequence literal resolved to an interned id.
type SequenceIntNode struct {
	ID uint16
	P  lexer.Position
}

func (n *SequenceIntNode) Pos() lexer.Position { return n.P }
func (*SequenceIntNode) astNode()              {}

// AnyNode is the `[;]` placeholder hole used in partial application.
type AnyNode struct {
	P lexer.Position
}

func (n *AnyNode) Pos() lexer.Position { return n.P }
func (*AnyNode) astNode()              {}

// ConsNode is a cons cell, the building block dict/list literals fold
// their comma-separated items into before the Dict/List wrapper applies.
type ConsNode struct {
	Left, Right Node
	P           lexer.Position
}

func (n *ConsNode) Pos() lexer.Position { return n.P }
func (*ConsNode) astNode()              {}

// ListNode wraps a Cons chain (or a single item) as an ordered list.
type ListNode struct {
	Items Node
	P     lexer.Position
}

func (n *ListNode) Pos() lexer.Position { return n.P }
func (*ListNode) astNode()              {}

// DictNode wraps a Cons chain as a key/value dictionary.
type DictNode struct {
	Items Node
	P     lexer.Position
}

func (n *DictNode) Pos() lexer.Position { return n.P }
func (*DictNode) astNode()              {}

// CallNode applies Callee to Args (a Vector of argument expressions,
// possibly containing AnyNode holes for partial application).
type CallNode struct {
	Callee, Args Node
	P            lexer.Position
}

func (n *CallNode) Pos() lexer.Position { return n.P }
func (*CallNode) astNode()              {}

// LambdaNode is a function literal. Env is the environment node current at
// the lambda's creation site, captured for lexical scoping; it is nil
// until the evaluator closes over it (the parser never sets it).
type LambdaNode struct {
	Env    any // *env.Node[ast.Node], typed at the eval boundary to avoid an import cycle
	Params Node
	Body   Node
	P      lexer.Position
}

func (n *LambdaNode) Pos() lexer.Position { return n.P }
func (*LambdaNode) astNode()              {}

// VerbNode applies a dyadic verb (or, with Left == nil, a monadic one).
type VerbNode struct {
	Op          Verb
	Left, Right Node
	P           lexer.Position
}

func (n *VerbNode) Pos() lexer.Position { return n.P }
func (*VerbNode) astNode()              {}

// AdverbNode applies an adverb to a verb/lambda/value (Left) and an
// argument (Right).
type AdverbNode struct {
	Op          Adverb
	Left, Right Node
	P           lexer.Position
}

func (n *AdverbNode) Pos() lexer.Position { return n.P }
func (*AdverbNode) astNode()              {}

// AssignNode binds Value to Name in the current environment node. Name
// must resolve to a NameIntNode at evaluation time.
type AssignNode struct {
	Name, Value Node
	P           lexer.Position
}

func (n *AssignNode) Pos() lexer.Position { return n.P }
func (*AssignNode) astNode()              {}

// CondNode is a three-branch conditional, as rewritten from `$[test;t;e]`.
type CondNode struct {
	Test, Then, Else Node
	P                lexer.Position
}

func (n *CondNode) Pos() lexer.Position { return n.P }
func (*CondNode) astNode()              {}

// IoverbNode carries a literal I/O escape-hatch string. Per
// SPEC_FULL.md's supplemented semantics, evaluating it forces a Symbol
// atom of its text (no I/O primitives are wired at this layer).
type IoverbNode struct {
	Text string
	P    lexer.Position
}

func (n *IoverbNode) Pos() lexer.Position { return n.P }
func (*IoverbNode) astNode()              {}

// YieldNode marks an explicit suspension point in source (`yield`), distinct
// from the implicit Yield trampoline state intercore primitives produce.
type YieldNode struct {
	P lexer.Position
}

func (n *YieldNode) Pos() lexer.Position { return n.P }
func (*YieldNode) astNode()              {}
