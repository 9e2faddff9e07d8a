package ast

import "github.com/odsl-lang/odsl/internal/lexer"

// Smart constructors. These are where spec.md §4.2's local rewrites live:
// the parser never has to special-case Cond/Assign/Adverb-lifting itself,
// it just calls NewVerbExpr/NewAdverbExpr and gets the canonical tree back.

// NewCondExpr builds a three-branch conditional.
func (a *Arena) NewCondExpr(test, then, els Node, p lexer.Position) *CondNode {
	return a.conds.Alloc(CondNode{Test: test, Then: then, Else: els, P: p})
}

// NewListExpr wraps items (conventionally a Cons chain) as an ordered list.
func (a *Arena) NewListExpr(items Node, p lexer.Position) *ListNode {
	return a.lists.Alloc(ListNode{Items: items, P: p})
}

// NewDictExpr wraps items (conventionally a Cons chain of key;value pairs)
// as a dictionary.
func (a *Arena) NewDictExpr(items Node, p lexer.Position) *DictNode {
	return a.dicts.Alloc(DictNode{Items: items, P: p})
}

// NewAssignExpr builds a name := value binding.
func (a *Arena) NewAssignExpr(name, value Node, p lexer.Position) *AssignNode {
	return a.assigns.Alloc(AssignNode{Name: name, Value: value, P: p})
}

// NewCallExpr builds a call/bracket-application node. A single-argument
// juxtaposition (`f x`) is sugar the parser desugars into `f[x]` by calling
// this the same way it would for an explicit bracket call.
func (a *Arena) NewCallExpr(callee, args Node, p lexer.Position) *CallNode {
	return a.calls.Alloc(CallNode{Callee: callee, Args: args, P: p})
}

// NewAdverbExpr builds an adverb application. No further rewrite applies at
// this level; the rewrite that matters (lifting an adverb out from under a
// verb) lives in NewVerbExpr, since it is triggered by the verb, not the
// adverb.
func (a *Arena) NewAdverbExpr(op Adverb, left, right Node, p lexer.Position) *AdverbNode {
	return a.adverbs.Alloc(AdverbNode{Op: op, Left: left, Right: right, P: p})
}

// NewLambdaExpr builds a function literal. A nil params list is replaced
// with the implicit single parameter `x`, as an uninterned NameNode; the
// parser passes nil only for bodies that name none of x/y/z (e.g. `{42}`),
// and gives `{x+1}` and `{[x]x+1}` an interned NameIntNode `x` instead.
func (a *Arena) NewLambdaExpr(env any, params, body Node, p lexer.Position) *LambdaNode {
	if params == nil {
		params = a.NewName("x", p)
	}
	return a.lambdas.Alloc(LambdaNode{Env: env, Params: params, Body: body, P: p})
}

// NewVerbExpr builds a verb application, applying the three constructor
// rewrites of spec.md §4.2:
//
//  1. `$[nil; Dict(Cons(a, Cons(t, f)))]` (a Cast verb over a 3-item dict)
//     becomes `Cond(a, t, List(f))`.
//  2. `verb(V, l, Adverb(Assign, al, ar))` becomes `Assign(al, ar)`: an
//     assignment nested under a verb's right operand propagates out to
//     replace the whole expression.
//  3. `verb(V, l, Adverb(A, al, ar))` (A != Assign) becomes
//     `Adverb(A, Verb(V, l, nil), ar)`: the adverb lifts over its verb,
//     re-targeting itself at the verb instead of at its original left
//     operand.
func (a *Arena) NewVerbExpr(op Verb, left, right Node, p lexer.Position) Node {
	if op == Cast && left == nil {
		if cond, ok := a.tryCondRewrite(right, p); ok {
			return cond
		}
	}
	if adv, ok := right.(*AdverbNode); ok {
		if adv.Op == Assign {
			return a.NewAssignExpr(adv.Left, adv.Right, p)
		}
		lifted := a.verbs.Alloc(VerbNode{Op: op, Left: left, Right: nil, P: p})
		return a.NewAdverbExpr(adv.Op, lifted, adv.Right, p)
	}
	return a.verbs.Alloc(VerbNode{Op: op, Left: left, Right: right, P: p})
}

// NewBareVerb allocates a VerbNode with no Right operand: a verb used as a
// function reference rather than applied in place, e.g. the `+` of `+/x` or
// the `0+` seed of `0+/x`. It bypasses NewVerbExpr's rewrite table, which
// only ever triggers by inspecting a non-nil Right operand.
func (a *Arena) NewBareVerb(op Verb, left Node, p lexer.Position) *VerbNode {
	return a.verbs.Alloc(VerbNode{Op: op, Left: left, Right: nil, P: p})
}

func (a *Arena) tryCondRewrite(right Node, p lexer.Position) (Node, bool) {
	d, ok := right.(*DictNode)
	if !ok {
		return nil, false
	}
	outer, ok := d.Items.(*ConsNode)
	if !ok {
		return nil, false
	}
	inner, ok := outer.Right.(*ConsNode)
	if !ok {
		return nil, false
	}
	test, then, els := outer.Left, inner.Left, inner.Right
	return a.NewCondExpr(test, then, a.NewListExpr(els, p), p), true
}
