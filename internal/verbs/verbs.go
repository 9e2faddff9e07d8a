// Package verbs implements O-DSL's scalar/vector dyadic and monadic
// primitive operators over ast.Value (spec.md §4.5, C5). The higher-order
// adverbs (over/scan/each/...) are driven as trampoline continuations in
// internal/eval, since they must thread through the CPS machinery to avoid
// host recursion on vector length (spec.md §4.5's closing paragraph); this
// package supplies the pure value-level helpers (Len, Index, ToSlice,
// FromSlice) those continuations call at each step.
package verbs

import (
	"fmt"
	"math"
	"sort"

	"github.com/odsl-lang/odsl/internal/ast"
)

// Error is a verb-evaluation failure (type mismatch, length mismatch,
// unsupported operand kind).
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

func errf(op, format string, args ...any) error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsVector reports whether v is one of the vector Value kinds.
func IsVector(v ast.Value) bool {
	return v.Kind == ast.VVecInt || v.Kind == ast.VVecFloat || v.Kind == ast.VVecAny
}

// Len returns the element count of a vector value (0 for scalars).
func Len(v ast.Value) int {
	switch v.Kind {
	case ast.VVecInt:
		return len(v.VecI)
	case ast.VVecFloat:
		return len(v.VecF)
	case ast.VVecAny:
		return len(v.VecAny)
	default:
		return 0
	}
}

// Index returns the i-th element of a vector as a scalar Value.
func Index(v ast.Value, i int) ast.Value {
	switch v.Kind {
	case ast.VVecInt:
		return ast.Number(v.VecI[i])
	case ast.VVecFloat:
		return ast.Float(v.VecF[i])
	case ast.VVecAny:
		return v.VecAny[i]
	default:
		return v
	}
}

// ToSlice expands any value (scalar or vector) into a []ast.Value of
// scalars, for adverb drivers that iterate generically.
func ToSlice(v ast.Value) []ast.Value {
	if !IsVector(v) {
		return []ast.Value{v}
	}
	n := Len(v)
	out := make([]ast.Value, n)
	for i := 0; i < n; i++ {
		out[i] = Index(v, i)
	}
	return out
}

// FromSlice rebuilds a vector Value from scalars, picking the narrowest
// homogeneous kind (VecInt if all ints, VecFloat if all numeric with at
// least one float, VecAny otherwise).
func FromSlice(xs []ast.Value) ast.Value {
	allInt, allNum := true, true
	for _, x := range xs {
		switch x.Kind {
		case ast.VNumber, ast.VHexlit:
		case ast.VFloat:
			allInt = false
		default:
			allInt, allNum = false, false
		}
	}
	switch {
	case allInt:
		ints := make([]int64, len(xs))
		for i, x := range xs {
			ints[i] = x.Num
		}
		return ast.VecInt(ints)
	case allNum:
		floats := make([]float64, len(xs))
		for i, x := range xs {
			floats[i] = numAsFloat(x)
		}
		return ast.VecFloat(floats)
	default:
		return ast.VecAny(xs)
	}
}

func numAsFloat(v ast.Value) float64 {
	if v.Kind == ast.VFloat {
		return v.Flt
	}
	return float64(v.Num)
}

func isNumeric(v ast.Value) bool {
	return v.Kind == ast.VNumber || v.Kind == ast.VFloat || v.Kind == ast.VHexlit
}

// Dyadic applies a dyadic verb to two scalar or vector operands, following
// spec.md §4.5's broadcasting and type-promotion rules: (atom,atom) ->
// atom; (vec,atom)/(atom,vec) -> elementwise; (vec,vec) of equal length ->
// elementwise; float promotes over int.
func Dyadic(op ast.Verb, l, r ast.Value) (ast.Value, error) {
	switch op {
	case ast.Concat:
		return concat(l, r), nil
	case ast.Except:
		return except(l, r)
	case ast.Take:
		return take(l, r)
	case ast.Drop:
		return drop(l, r)
	case ast.Find:
		return find(l, r)
	case ast.At:
		return at(l, r)
	case ast.Dot:
		return at(l, r)
	case ast.Cast:
		return cast(l, r)
	case ast.Gets:
		return lookup(l, r)
	case ast.Pack:
		return FromSlice(ToSlice(r)), nil
	case ast.Unpack:
		if IsVector(r) && Len(r) > 0 {
			return Index(r, 0), nil
		}
		return r, nil
	}

	if IsVector(l) || IsVector(r) {
		return broadcast(op, l, r)
	}
	return scalarDyadic(op, l, r)
}

func broadcast(op ast.Verb, l, r ast.Value) (ast.Value, error) {
	switch {
	case IsVector(l) && IsVector(r):
		if Len(l) != Len(r) {
			return ast.Nil, errf(op.String(), "length mismatch: %d vs %d", Len(l), Len(r))
		}
		ls, rs := ToSlice(l), ToSlice(r)
		out := make([]ast.Value, len(ls))
		for i := range ls {
			v, err := scalarDyadic(op, ls[i], rs[i])
			if err != nil {
				return ast.Nil, err
			}
			out[i] = v
		}
		return FromSlice(out), nil
	case IsVector(l):
		ls := ToSlice(l)
		out := make([]ast.Value, len(ls))
		for i := range ls {
			v, err := scalarDyadic(op, ls[i], r)
			if err != nil {
				return ast.Nil, err
			}
			out[i] = v
		}
		return FromSlice(out), nil
	default:
		rs := ToSlice(r)
		out := make([]ast.Value, len(rs))
		for i := range rs {
			v, err := scalarDyadic(op, l, rs[i])
			if err != nil {
				return ast.Nil, err
			}
			out[i] = v
		}
		return FromSlice(out), nil
	}
}

func scalarDyadic(op ast.Verb, l, r ast.Value) (ast.Value, error) {
	switch op {
	case ast.Equal:
		return boolNum(l.Equal(r)), nil
	case ast.NotEqual:
		return boolNum(!l.Equal(r)), nil
	case ast.Match:
		return boolNum(l.Equal(r)), nil
	}

	if !isNumeric(l) || !isNumeric(r) {
		// Equal, NotEqual and Match were answered above for every kind;
		// every other verb, comparison or arithmetic, rejects a non-numeric
		// atom.
		switch op {
		case ast.Less, ast.More, ast.Min, ast.Max:
			return ast.Nil, errf(op.String(), "non-numeric operand")
		}
		return ast.Nil, errf(op.String(), "non-numeric operand")
	}

	useFloat := l.Kind == ast.VFloat || r.Kind == ast.VFloat
	lf, rf := numAsFloat(l), numAsFloat(r)
	li, ri := l.Num, r.Num

	switch op {
	case ast.Plus:
		if useFloat {
			return ast.Float(lf + rf), nil
		}
		return ast.Number(li + ri), nil
	case ast.Minus:
		if useFloat {
			return ast.Float(lf - rf), nil
		}
		return ast.Number(li - ri), nil
	case ast.Times:
		if useFloat {
			return ast.Float(lf * rf), nil
		}
		return ast.Number(li * ri), nil
	case ast.Divide:
		if rf == 0 {
			return ast.Nil, errf("%", "division by zero")
		}
		return ast.Float(lf / rf), nil
	case ast.Mod:
		if useFloat {
			return ast.Float(math.Mod(lf, rf)), nil
		}
		if ri == 0 {
			return ast.Nil, errf("!", "modulo by zero")
		}
		return ast.Number(li % ri), nil
	case ast.Min:
		if useFloat {
			return ast.Float(math.Min(lf, rf)), nil
		}
		if li < ri {
			return ast.Number(li), nil
		}
		return ast.Number(ri), nil
	case ast.Max:
		if useFloat {
			return ast.Float(math.Max(lf, rf)), nil
		}
		if li > ri {
			return ast.Number(li), nil
		}
		return ast.Number(ri), nil
	case ast.Less:
		if useFloat {
			return boolNum(lf < rf), nil
		}
		return boolNum(li < ri), nil
	case ast.More:
		if useFloat {
			return boolNum(lf > rf), nil
		}
		return boolNum(li > ri), nil
	default:
		return ast.Nil, errf(op.String(), "unsupported dyadic operand kind")
	}
}

func boolNum(b bool) ast.Value {
	if b {
		return ast.Number(1)
	}
	return ast.Number(0)
}

func concat(l, r ast.Value) ast.Value {
	return FromSlice(append(append([]ast.Value{}, ToSlice(l)...), ToSlice(r)...))
}

func except(l, r ast.Value) (ast.Value, error) {
	rs := ToSlice(r)
	var out []ast.Value
	for _, x := range ToSlice(l) {
		found := false
		for _, y := range rs {
			if x.Equal(y) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, x)
		}
	}
	return FromSlice(out), nil
}

func take(l, r ast.Value) (ast.Value, error) {
	if !isNumeric(l) {
		return ast.Nil, errf("#", "left operand of take must be numeric")
	}
	n := int(l.Num)
	src := ToSlice(r)
	if len(src) == 0 {
		return FromSlice(nil), nil
	}
	out := make([]ast.Value, abs(n))
	if n >= 0 {
		for i := range out {
			out[i] = src[i%len(src)]
		}
	} else {
		for i := range out {
			out[i] = src[mod(len(src)+n+i, len(src))]
		}
	}
	return FromSlice(out), nil
}

func drop(l, r ast.Value) (ast.Value, error) {
	if !isNumeric(l) {
		return ast.Nil, errf("_", "left operand of drop must be numeric")
	}
	n := int(l.Num)
	src := ToSlice(r)
	if n >= 0 {
		if n > len(src) {
			n = len(src)
		}
		return FromSlice(src[n:]), nil
	}
	n = -n
	if n > len(src) {
		n = len(src)
	}
	return FromSlice(src[:len(src)-n]), nil
}

func find(l, r ast.Value) (ast.Value, error) {
	src := ToSlice(l)
	for i, x := range src {
		if x.Equal(r) {
			return ast.Number(int64(i)), nil
		}
	}
	return ast.Number(int64(len(src))), nil
}

func at(l, r ast.Value) (ast.Value, error) {
	if l.Kind == ast.VDict {
		for i, k := range l.Keys {
			if k.Equal(r) {
				return l.Vals[i], nil
			}
		}
		return ast.Nil, errf("@", "key not found")
	}
	if IsVector(r) {
		idx := ToSlice(r)
		out := make([]ast.Value, len(idx))
		for i, ix := range idx {
			v, err := at(l, ix)
			if err != nil {
				return ast.Nil, err
			}
			out[i] = v
		}
		return FromSlice(out), nil
	}
	if !isNumeric(r) {
		return ast.Nil, errf("@", "index must be numeric")
	}
	i := int(r.Num)
	n := Len(l)
	if n == 0 {
		return ast.Nil, errf("@", "index into scalar")
	}
	if i < 0 || i >= n {
		return ast.Nil, errf("@", "index %d out of range [0,%d)", i, n)
	}
	return Index(l, i), nil
}

func lookup(l, r ast.Value) (ast.Value, error) {
	return at(l, r)
}

func cast(l, r ast.Value) (ast.Value, error) {
	if l.Kind != ast.VSymbol {
		return r, nil
	}
	switch l.ID {
	case 0: // reserved for "i" by convention of the first interned cast symbol
		if r.Kind == ast.VFloat {
			return ast.Number(int64(r.Flt)), nil
		}
	case 1: // "f"
		if isNumeric(r) {
			return ast.Float(numAsFloat(r)), nil
		}
	}
	return r, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func mod(a, b int) int {
	if b == 0 {
		return 0
	}
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Monadic applies a monadic verb (a Verb with a nil left operand) to its
// single operand, per spec.md §4.5's conventional K table plus the
// monadic reading supplement in SPEC_FULL.md.
func Monadic(op ast.Verb, v ast.Value) (ast.Value, error) {
	switch op {
	case ast.Plus: // flip: a no-op identity on our flat vectors
		return v, nil
	case ast.Minus: // negate
		return negate(v)
	case ast.Times: // first
		if IsVector(v) {
			if Len(v) == 0 {
				return ast.Nil, errf("*", "first of empty vector")
			}
			return Index(v, 0), nil
		}
		return v, nil
	case ast.Divide: // sqrt
		if !isNumeric(v) {
			return ast.Nil, errf("%", "sqrt of non-numeric")
		}
		return ast.Float(math.Sqrt(numAsFloat(v))), nil
	case ast.Mod: // iota
		if !isNumeric(v) {
			return ast.Nil, errf("!", "iota requires a numeric count")
		}
		n := int(v.Num)
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(i)
		}
		return ast.VecInt(out), nil
	case ast.Min: // where: indices of truthy/nonzero elements
		var out []int64
		for i, x := range ToSlice(v) {
			if x.Truthy() {
				out = append(out, int64(i))
			}
		}
		return ast.VecInt(out), nil
	case ast.Max: // rev
		xs := ToSlice(v)
		out := make([]ast.Value, len(xs))
		for i, x := range xs {
			out[len(xs)-1-i] = x
		}
		return FromSlice(out), nil
	case ast.Less: // asc
		return sortVec(v, true)
	case ast.More: // desc
		return sortVec(v, false)
	case ast.Match: // not
		var out []ast.Value
		for _, x := range ToSlice(v) {
			out = append(out, boolNum(!x.Truthy()))
		}
		if !IsVector(v) {
			return out[0], nil
		}
		return FromSlice(out), nil
	case ast.Concat: // enlist
		return FromSlice([]ast.Value{v}), nil
	case ast.Take: // count
		if IsVector(v) {
			return ast.Number(int64(Len(v))), nil
		}
		return ast.Number(1), nil
	case ast.Drop: // floor
		if !isNumeric(v) {
			return ast.Nil, errf("_", "floor of non-numeric")
		}
		return ast.Number(int64(math.Floor(numAsFloat(v)))), nil
	case ast.Find: // unique
		var out []ast.Value
		for _, x := range ToSlice(v) {
			dup := false
			for _, y := range out {
				if x.Equal(y) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, x)
			}
		}
		return FromSlice(out), nil
	case ast.At: // type: the numeric ast.ValueKind of v, not a type
		// symbol.
		return ast.Number(int64(v.Kind)), nil
	default:
		return v, nil
	}
}

func negate(v ast.Value) (ast.Value, error) {
	if IsVector(v) {
		xs := ToSlice(v)
		out := make([]ast.Value, len(xs))
		for i, x := range xs {
			n, err := negate(x)
			if err != nil {
				return ast.Nil, err
			}
			out[i] = n
		}
		return FromSlice(out), nil
	}
	if !isNumeric(v) {
		return ast.Nil, errf("-", "negate of non-numeric")
	}
	if v.Kind == ast.VFloat {
		return ast.Float(-v.Flt), nil
	}
	return ast.Number(-v.Num), nil
}

func sortVec(v ast.Value, ascending bool) (ast.Value, error) {
	xs := append([]ast.Value{}, ToSlice(v)...)
	sort.SliceStable(xs, func(i, j int) bool {
		a, b := xs[i], xs[j]
		if ascending {
			return numAsFloat(a) < numAsFloat(b)
		}
		return numAsFloat(a) > numAsFloat(b)
	})
	return FromSlice(xs), nil
}
