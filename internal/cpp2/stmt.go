package cpp2

import (
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// parseCompound parses "{ statements }" and returns the closing brace. With
// reuse the statements share sc, which is how a function body shares the
// scope of its parameters.
func (p *parser) parseCompound(sc *scope, fn int, reuse bool) *symtab.Token {
	p.expect("{")
	inner := sc
	if !reuse {
		inner = newScope(scopeBlock, sc, fn)
	}
	for !p.at("}") {
		if p.eof() {
			p.fail(nil, "expected '}' at end of compound statement")
		}
		p.parseStatement(inner, fn)
	}
	return p.next()
}

func (p *parser) parseStatement(sc *scope, fn int) {
	t := p.peek()
	if t == nil {
		p.fail(nil, "expected a statement")
	}
	switch {
	case is(t, "{"):
		p.parseCompound(sc, fn, false)
	case is(t, ";"):
		p.next()
	case t.IsIdentifier() && is(p.peekN(1), ":"):
		if n := p.peekN(2); is(n, "while") || is(n, "for") || is(n, "do") {
			// loop label
			p.pos += 2
			return
		}
		p.parseDeclaration(sc, fn)
	case is(t, "if"):
		p.next()
		if n := p.peek(); n != nil && n.Text == "constexpr" {
			p.next()
		}
		p.parseExpr(sc, fn, stopBrace)
		p.parseCompound(sc, fn, false)
		if p.accept("else") {
			if p.at("if") {
				p.parseStatement(sc, fn)
			} else {
				p.parseCompound(sc, fn, false)
			}
		}
	case is(t, "while"):
		p.next()
		p.parseExpr(sc, fn, stopBraceOrNext)
		if p.accept("next") {
			p.parseExpr(sc, fn, stopBrace)
		}
		p.parseCompound(sc, fn, false)
	case is(t, "do"):
		p.next()
		p.parseCompound(sc, fn, false)
		p.expect("while")
		p.parseExpr(sc, fn, stopSemicolonOrNext)
		if p.accept("next") {
			p.parseExpr(sc, fn, stopSemicolon)
		}
		p.expect(";")
	case is(t, "for"):
		p.next()
		p.parseExpr(sc, fn, stopDoOrNext)
		if p.accept("next") {
			p.parseExpr(sc, fn, stopDo)
		}
		p.expect("do")
		p.expect("(")
		loop := newScope(scopeBlock, sc, fn)
		p.parseParam(fn, loop, false)
		p.expect(")")
		if p.at("{") {
			p.parseCompound(loop, fn, true)
		} else {
			p.parseStatement(loop, fn)
		}
	case is(t, "return"):
		p.next()
		if !p.at(";") {
			p.parseExpr(sc, fn, stopSemicolon)
		}
		p.expect(";")
	case is(t, "break") || is(t, "continue"):
		p.next()
		if n := p.peek(); n != nil && n.IsIdentifier() {
			p.next()
		}
		p.expect(";")
	case is(t, "assert"):
		p.next()
		if p.at("<") {
			p.skipBalanced("<", ">")
		}
		p.expect("(")
		p.parseExpr(sc, fn, nil)
		p.expect(")")
		p.expect(";")
	default:
		p.parseExpr(sc, fn, stopSemicolon)
		if is(p.tokAt(p.pos-1), ";") && !p.at(";") {
			return
		}
		p.expect(";")
	}
}

// binaryOps are the operators that cannot end an operand. The postfix forms
// of '*', '&', '++', '--' and '$' can, and '>' may close a template argument
// list.
var binaryOps = map[string]bool{
	"+": true, "-": true, "/": true, "%": true, "^": true, "|": true,
	"==": true, "!=": true, "<": true, "<=": true, ">=": true,
	"&&": true, "||": true, "!": true, "~": true,
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true,
	".": true, "..": true, "::": true, "->": true,
}

// statementKeywords cannot appear inside an expression outside of braces.
var statementKeywords = map[string]bool{
	"return": true, "if": true, "while": true, "for": true, "do": true,
}

// parseExpr consumes a balanced token run up to one of stops at depth zero,
// or up to an unmatched closing bracket. Identifiers are bound on the way and
// anonymous functions become declarations owned by owner. An empty run, a
// dangling binary operator and a statement keyword outside braces are
// errors.
func (p *parser) parseExpr(sc *scope, owner int, stops stopSet) {
	depth, braces := 0, 0
	var last *symtab.Token
	for {
		t := p.peek()
		if t != nil && isSyntax(t) {
			if depth == 0 && stops[t.Text] {
				p.endExpr(last, t)
				return
			}
			switch t.Text {
			case "(", "[":
				depth++
			case "{":
				depth++
				braces++
			case ")", "]", "}":
				if depth == 0 {
					p.endExpr(last, t)
					return
				}
				if t.Text != "}" && last != nil && isSyntax(last) && binaryOps[last.Text] {
					p.fail(t, "expected an operand after '%s', found %s", last.Text, describe(t))
				}
				depth--
				if t.Text == "}" {
					braces--
				}
			case ";":
				if depth == 0 {
					p.endExpr(last, t)
					return
				}
				if braces == 0 {
					p.fail(t, "unbalanced parentheses before ';'")
				}
			case ":":
				if n := p.peekN(1); is(n, "(") || is(n, "<") {
					p.parseAnonymous(sc, owner)
					last = p.tokAt(p.pos - 1)
					if is(last, ";") {
						// an expression body consumed the terminator
						return
					}
					continue
				}
			default:
				if braces == 0 && statementKeywords[t.Text] {
					p.fail(t, "expected ';' before '%s'", t.Text)
				}
			}
		}
		if t == nil {
			p.endExpr(last, nil)
			return
		}
		p.record(t, sc)
		p.next()
		last = t
	}
}

// endExpr checks the end of an expression whose last token is last, stopped
// at t.
func (p *parser) endExpr(last, t *symtab.Token) {
	switch {
	case last == nil:
		p.fail(t, "expected an expression, found %s", describe(t))
	case isSyntax(last) && binaryOps[last.Text]:
		p.fail(t, "expected an operand after '%s', found %s", last.Text, describe(t))
	}
}

// parseAnonymous parses ":(params) = body" inside an expression.
func (p *parser) parseAnonymous(sc *scope, owner int) {
	colon := p.next()
	idx := p.b.newDecl(nil, "", colon.Pos, owner, nil)
	inner := newScope(scopeFunction, sc, idx)
	if p.at("<") {
		p.parseTemplateParams(idx, inner)
	}
	p.parseFunction(idx, inner)
}
