// Package parser implements a recursive-descent parser for O-DSL surface
// syntax, producing ast.Node trees directly out of an ast.Arena. It is a
// concrete stand-in for the "external collaborator" parser spec.md §1
// assumes: the core (arena, evaluator, scheduler, bus) never depends on
// this package's grammar, only on the AST shapes it ultimately builds, but
// the CLI needs something runnable end to end.
//
// O-DSL has no operator precedence in the conventional sense: verb chains
// are right-associative (`2+5+3` parses as `2+(5+3)`), matching the
// teacher's general "keep HOW, generalize WHAT" guidance applied to a K
// grammar rather than re-deriving precedence climbing from scratch.
package parser

import (
	"fmt"
	"strconv"

	"github.com/odsl-lang/odsl/internal/ast"
	oerrors "github.com/odsl-lang/odsl/internal/errors"
	"github.com/odsl-lang/odsl/internal/lexer"
)

// Parser turns a token stream into an AST rooted at a *ast.Vector.
type Parser struct {
	l      *lexer.Lexer
	arena  *ast.Arena
	source string
	file   string

	cur, peek lexer.Token
	errs      []*oerrors.Error
}

// New creates a Parser reading from l and allocating into a.
func New(l *lexer.Lexer, a *ast.Arena, source, file string) *Parser {
	p := &Parser{l: l, arena: a, source: source, file: file}
	p.next()
	p.next()
	return p
}

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []*oerrors.Error { return p.errs }

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(pos lexer.Position, format string, args ...any) {
	p.errs = append(p.errs, oerrors.New(oerrors.ParseError, pos, fmt.Sprintf(format, args...), p.source, p.file))
}

// ParseProgram parses the whole input as a semicolon-separated top-level
// sequence and returns it wrapped in a *ast.Vector.
func (p *Parser) ParseProgram() *ast.Vector {
	pos := p.cur.Pos
	var items []ast.Node
	for p.cur.Type != lexer.EOF {
		if p.cur.Type == lexer.SEMI {
			p.next()
			continue
		}
		expr := p.parseExpr()
		if expr != nil {
			items = append(items, expr)
		}
		if p.cur.Type == lexer.SEMI {
			p.next()
		} else if p.cur.Type != lexer.EOF {
			p.errorf(p.cur.Pos, "unexpected token %s", p.cur.Type)
			p.next()
		}
	}
	return p.arena.NewVector(items, pos)
}

func canStartPrimary(t lexer.TokenType) bool {
	switch t {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.HEX, lexer.BOOL, lexer.SYMBOL,
		lexer.STRING, lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE, lexer.DOLLAR:
		return true
	default:
		return false
	}
}

func verbFor(t lexer.TokenType) (ast.Verb, bool) {
	switch t {
	case lexer.PLUS:
		return ast.Plus, true
	case lexer.MINUS:
		return ast.Minus, true
	case lexer.STAR:
		return ast.Times, true
	case lexer.PERCENT:
		return ast.Divide, true
	case lexer.BANG:
		return ast.Mod, true
	case lexer.AMP:
		return ast.Min, true
	case lexer.PIPE:
		return ast.Max, true
	case lexer.LT:
		return ast.Less, true
	case lexer.GT:
		return ast.More, true
	case lexer.NEQ:
		return ast.NotEqual, true
	case lexer.EQ:
		return ast.Equal, true
	case lexer.TILDE:
		return ast.Match, true
	case lexer.COMMA:
		return ast.Concat, true
	case lexer.CARET:
		return ast.Except, true
	case lexer.HASH:
		return ast.Take, true
	case lexer.UNDERSCORE:
		return ast.Drop, true
	case lexer.DOLLAR:
		return ast.Cast, true
	case lexer.QUESTION:
		return ast.Find, true
	case lexer.AT:
		return ast.At, true
	case lexer.DOT:
		return ast.Dot, true
	default:
		return 0, false
	}
}

func adverbFor(t lexer.TokenType) (ast.Adverb, bool) {
	switch t {
	case lexer.QUOTE:
		return ast.Each, true
	case lexer.QUOTECOLON:
		return ast.EachPrio, true
	case lexer.BACKSLASH:
		return ast.Scan, true
	case lexer.BACKCOLON:
		return ast.EachLeft, true
	case lexer.SLASH:
		return ast.Over, true
	case lexer.SLASHCOLON:
		return ast.EachRight, true
	default:
		return 0, false
	}
}

// parseExpr parses one top-level expression: an assignment, a right-
// associative verb/adverb chain, or a juxtaposition call.
func (p *Parser) parseExpr() ast.Node {
	if p.cur.Type == lexer.IDENT && p.peek.Type == lexer.COLON {
		pos := p.cur.Pos
		name := p.internedName()
		p.next() // consume ':'
		value := p.parseExpr()
		return p.arena.NewAssignExpr(name, value, pos)
	}

	// A bare verb glyph immediately followed by an adverb glyph, with no
	// term in between, is the unseeded function-reference form (`+/x`):
	// the verb never applies to anything, it just names the fold/scan/each
	// operator. This has to be checked before parseTermWithPostfix/
	// parsePrimary ever run, since parsePrimary's own verb-prefix branch
	// would otherwise try (and fail) to parse an operand starting at the
	// adverb glyph.
	if op, ok := verbFor(p.cur.Type); ok {
		if _, ok2 := adverbFor(p.peek.Type); ok2 {
			pos := p.cur.Pos
			p.next() // consume verb glyph
			advOp, _ := adverbFor(p.cur.Type)
			p.next() // consume adverb glyph
			operand := p.parseExpr()
			bare := p.arena.NewBareVerb(op, nil, pos)
			return p.arena.NewAdverbExpr(advOp, bare, operand, pos)
		}
	}

	term := p.parseTermWithPostfix()
	if term == nil {
		return nil
	}
	pos := term.Pos()

	if op, ok := verbFor(p.cur.Type); ok {
		p.next()
		if advOp, ok2 := adverbFor(p.cur.Type); ok2 {
			// Seeded function-reference form (`0+/x`): term is the fold
			// seed, op becomes a bare verb the adverb drives.
			p.next()
			operand := p.parseExpr()
			bare := p.arena.NewBareVerb(op, term, pos)
			return p.arena.NewAdverbExpr(advOp, bare, operand, pos)
		}
		right := p.parseExpr()
		return p.arena.NewVerbExpr(op, term, right, pos)
	}
	if op, ok := adverbFor(p.cur.Type); ok {
		p.next()
		right := p.parseExpr()
		return p.arena.NewAdverbExpr(op, term, right, pos)
	}
	if canStartPrimary(p.cur.Type) {
		// Juxtaposition: `f x` is sugar for `f[x]`, and the rest of the
		// expression is the single argument (`print a*10` ≡ `print[a*10]`).
		arg := p.parseExpr()
		args := p.arena.NewVector([]ast.Node{arg}, arg.Pos())
		return p.arena.NewCallExpr(term, args, pos)
	}
	return term
}

// parseTermWithPostfix parses one primary and applies any immediately
// following bracket-call postfixes (`f[x]`, chained as `f[x][y]`).
func (p *Parser) parseTermWithPostfix() ast.Node {
	term := p.parsePrimary()
	if term == nil {
		return nil
	}
	for p.cur.Type == lexer.LBRACKET {
		pos := p.cur.Pos
		items := p.parseBracketItems()
		args := p.arena.NewVector(items, pos)
		term = p.arena.NewCallExpr(term, args, pos)
	}
	return term
}

// parseUnaryOperand parses the tightly-bound operand of a monadic verb
// prefix: a term with postfix calls, but no further verb chaining, so `#v+1`
// parses as `(#v)+1`.
func (p *Parser) parseUnaryOperand() ast.Node {
	return p.parseTermWithPostfix()
}

func (p *Parser) parsePrimary() ast.Node {
	pos := p.cur.Pos
	switch p.cur.Type {
	case lexer.INT:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			p.errorf(pos, "invalid integer literal %q", p.cur.Literal)
		}
		p.next()
		return p.arena.NewValue(ast.Number(n), pos)
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			p.errorf(pos, "invalid float literal %q", p.cur.Literal)
		}
		p.next()
		return p.arena.NewValue(ast.Float(f), pos)
	case lexer.HEX:
		n, err := strconv.ParseInt(p.cur.Literal[2:], 16, 64)
		if err != nil {
			p.errorf(pos, "invalid hex literal %q", p.cur.Literal)
		}
		p.next()
		return p.arena.NewValue(ast.Hexlit(n), pos)
	case lexer.BOOL:
		b := p.cur.Literal != "0"
		p.next()
		return p.arena.NewValue(ast.Bool(b), pos)
	case lexer.SYMBOL:
		id, err := p.arena.InternSymbol(p.cur.Literal)
		if err != nil {
			p.errorf(pos, "%v", err)
		}
		p.next()
		return p.arena.NewSymbolInt(id, pos)
	case lexer.STRING:
		id, err := p.arena.InternSequence(p.cur.Literal)
		if err != nil {
			p.errorf(pos, "%v", err)
		}
		p.next()
		return p.arena.NewSequenceInt(id, pos)
	case lexer.IDENT:
		if p.cur.Literal == "yield" {
			p.next()
			return p.arena.NewYield(pos)
		}
		return p.internedName()
	case lexer.LPAREN:
		return p.parseParenGroup()
	case lexer.LBRACKET:
		items := p.parseBracketItems()
		return p.arena.NewListExpr(p.arena.NewVector(items, pos), pos)
	case lexer.LBRACE:
		return p.parseLambda()
	case lexer.DOLLAR:
		return p.parseCond()
	default:
		if op, ok := verbFor(p.cur.Type); ok {
			p.next()
			operand := p.parseUnaryOperand()
			return p.arena.NewVerbExpr(op, nil, operand, pos)
		}
		p.errorf(pos, "unexpected token %s %q", p.cur.Type, p.cur.Literal)
		p.next()
		return nil
	}
}

func (p *Parser) internedName() ast.Node {
	pos := p.cur.Pos
	id, err := p.arena.InternName(p.cur.Literal)
	if err != nil {
		p.errorf(pos, "%v", err)
	}
	p.next()
	return p.arena.NewNameInt(id, pos)
}

// parseParenGroup handles both grouping `(expr)` and list literals
// `(a;b;c)`. A single item with no separating semicolon is plain grouping;
// more than one item (or a trailing separator) produces a List.
func (p *Parser) parseParenGroup() ast.Node {
	pos := p.cur.Pos
	p.next() // consume '('
	var items []ast.Node
	sep := false
	for p.cur.Type != lexer.RPAREN && p.cur.Type != lexer.EOF {
		if p.cur.Type == lexer.SEMI {
			items = append(items, &ast.AnyNode{})
			sep = true
			p.next()
			continue
		}
		items = append(items, p.parseExpr())
		if p.cur.Type == lexer.SEMI {
			sep = true
			p.next()
		} else {
			break
		}
	}
	if p.cur.Type == lexer.RPAREN {
		p.next()
	} else {
		p.errorf(p.cur.Pos, "expected ')'")
	}
	if len(items) == 1 && !sep {
		return items[0]
	}
	return p.arena.NewListExpr(p.arena.NewVector(items, pos), pos)
}

// parseBracketItems parses a `[item;item;...]` list, treating an empty slot
// adjacent to a semicolon (or to the brackets themselves) as an
// ast.AnyNode hole: partial-application syntax, e.g. `aa[;2]` or the
// all-holes `aa[;;]`. N semicolons produce N+1 slots, matching how `;` is
// read as a separator rather than a terminator; empty brackets `[]` produce
// no slots at all (a zero-argument call such as `halt[]`).
func (p *Parser) parseBracketItems() []ast.Node {
	open := p.cur.Pos
	p.next() // consume '['
	var items []ast.Node
	if p.cur.Type == lexer.RBRACKET {
		p.next()
		return items
	}
	for {
		if p.cur.Type == lexer.SEMI || p.cur.Type == lexer.RBRACKET || p.cur.Type == lexer.EOF {
			items = append(items, p.arena.NewAny(p.cur.Pos))
		} else {
			items = append(items, p.parseExpr())
		}
		if p.cur.Type == lexer.SEMI {
			p.next()
			continue
		}
		break
	}
	if p.cur.Type == lexer.RBRACKET {
		p.next()
	} else {
		p.errorf(open, "expected ']'")
	}
	return items
}

func (p *Parser) parseLambda() ast.Node {
	pos := p.cur.Pos
	p.next() // consume '{'

	var params ast.Node
	if p.cur.Type == lexer.LBRACKET {
		paramPos := p.cur.Pos
		p.next()
		var names []ast.Node
		for p.cur.Type != lexer.RBRACKET && p.cur.Type != lexer.EOF {
			if p.cur.Type != lexer.IDENT {
				p.errorf(p.cur.Pos, "expected parameter name")
				break
			}
			names = append(names, p.internedName())
			if p.cur.Type == lexer.SEMI {
				p.next()
			} else {
				break
			}
		}
		if p.cur.Type == lexer.RBRACKET {
			p.next()
		} else {
			p.errorf(p.cur.Pos, "expected ']'")
		}
		if len(names) == 1 {
			params = names[0]
		} else {
			params = p.arena.NewVector(names, paramPos)
		}
	}

	var body []ast.Node
	for p.cur.Type != lexer.RBRACE && p.cur.Type != lexer.EOF {
		body = append(body, p.parseExpr())
		if p.cur.Type == lexer.SEMI {
			p.next()
		} else {
			break
		}
	}
	if p.cur.Type == lexer.RBRACE {
		p.next()
	} else {
		p.errorf(p.cur.Pos, "expected '}'")
	}

	var bodyNode ast.Node
	if len(body) == 1 {
		bodyNode = body[0]
	} else {
		bodyNode = p.arena.NewVector(body, pos)
	}
	if params == nil {
		params = p.implicitParams(bodyNode, pos)
	}
	return p.arena.NewLambdaExpr(nil, params, bodyNode, pos)
}

// implicitParams derives the parameter list of a `{...}` lambda written
// without an explicit [params] header: the conventional x/y/z names, in that
// order, up to the highest one the body references. `{x*y}` gets [x;y],
// `{x}` gets [x], and a body naming none of the three still gets the single
// implicit x that ast.NewLambdaExpr would default to.
func (p *Parser) implicitParams(body ast.Node, pos lexer.Position) ast.Node {
	var ids [3]uint16
	for i, s := range []string{"x", "y", "z"} {
		id, err := p.arena.InternName(s)
		if err != nil {
			p.errorf(pos, "%v", err)
			return nil
		}
		ids[i] = id
	}
	highest := -1
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case nil:
		case *ast.NameIntNode:
			for i, id := range ids {
				if t.ID == id && i > highest {
					highest = i
				}
			}
		case *ast.Vector:
			for _, it := range t.Items {
				walk(it)
			}
		case *ast.ConsNode:
			walk(t.Left)
			walk(t.Right)
		case *ast.ListNode:
			walk(t.Items)
		case *ast.DictNode:
			walk(t.Items)
		case *ast.CallNode:
			walk(t.Callee)
			walk(t.Args)
		case *ast.VerbNode:
			walk(t.Left)
			walk(t.Right)
		case *ast.AdverbNode:
			walk(t.Left)
			walk(t.Right)
		case *ast.AssignNode:
			walk(t.Value)
		case *ast.CondNode:
			walk(t.Test)
			walk(t.Then)
			walk(t.Else)
		}
		// Nested lambdas are deliberately not walked: their x/y/z belong to
		// the inner scope.
	}
	walk(body)
	if highest < 0 {
		return nil
	}
	names := make([]ast.Node, highest+1)
	for i := 0; i <= highest; i++ {
		names[i] = p.arena.NewNameInt(ids[i], pos)
	}
	if len(names) == 1 {
		return names[0]
	}
	return p.arena.NewVector(names, pos)
}

// parseCond parses the explicit `$[test;then;else]` conditional surface
// syntax directly into a CondNode, rather than routing through the
// Cast-over-Dict rewrite of ast.NewVerbExpr (which List-wraps the else
// branch per spec.md §4.2's literal rewrite formula). The evaluator's
// contCond accepts the Else branch in either shape.
func (p *Parser) parseCond() ast.Node {
	pos := p.cur.Pos
	p.next() // consume '$'
	if p.cur.Type != lexer.LBRACKET {
		p.errorf(p.cur.Pos, "expected '[' after '$'")
		return nil
	}
	items := p.parseBracketItems()
	if len(items) != 3 {
		p.errorf(pos, "$[test;then;else] requires exactly 3 items, got %d", len(items))
		for len(items) < 3 {
			items = append(items, &ast.AnyNode{})
		}
	}
	return p.arena.NewCondExpr(items[0], items[1], items[2], pos)
}
