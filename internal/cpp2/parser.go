package cpp2

import (
	"fmt"
	"strings"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// bailout unwinds the parser to the section boundary after an error.
type bailout struct{}

type stopSet map[string]bool

var (
	stopSemicolon       = stopSet{";": true}
	stopBrace           = stopSet{"{": true}
	stopBraceOrNext     = stopSet{"{": true, "next": true}
	stopSemicolonOrNext = stopSet{";": true, "next": true}
	stopDo              = stopSet{"do": true}
	stopDoOrNext        = stopSet{"do": true, "next": true}
	stopParamEnd        = stopSet{",": true}
	stopObjectType      = stopSet{"=": true, "==": true, ";": true}
	stopParamType       = stopSet{",": true, "=": true}
	stopTemplateParam   = stopSet{",": true, ">": true, "=": true}
	stopReturnType      = stopSet{"=": true, "==": true, ";": true, "pre": true, "post": true, "assert": true}
)

// parser walks the tokens of one section.
type parser struct {
	b    *builder
	toks []symtab.Token
	pos  int
}

// parseSection parses every declaration of sec. A syntax error abandons the
// rest of the section and adds a generic error at its start.
func (b *builder) parseSection(sec *symtab.Section) {
	if len(sec.Tokens) == 0 {
		return
	}
	p := &parser{b: b, toks: sec.Tokens}
	start := sec.Tokens[0].Pos
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(bailout); !ok {
			panic(r)
		}
		b.errs = append(b.errs, symtab.ErrorEntry{Pos: start, Message: "ill-formed declaration", Fallback: true})
	}()
	for !p.eof() {
		p.parseDeclaration(b.file, symtab.NoDecl)
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.toks)
}

func (p *parser) tokAt(i int) *symtab.Token {
	if i < 0 || i >= len(p.toks) {
		return nil
	}
	return &p.toks[i]
}

func (p *parser) peek() *symtab.Token {
	return p.tokAt(p.pos)
}

func (p *parser) peekN(n int) *symtab.Token {
	return p.tokAt(p.pos + n)
}

func (p *parser) next() *symtab.Token {
	t := p.tokAt(p.pos)
	if t != nil {
		p.pos++
	}
	return t
}

// isSyntax reports whether t is punctuation or a keyword.
func isSyntax(t *symtab.Token) bool {
	return t.Kind == symtab.TokenPunct || t.Kind == symtab.TokenKeyword
}

func is(t *symtab.Token, text string) bool {
	return t != nil && isSyntax(t) && t.Text == text
}

func (p *parser) at(text string) bool {
	return is(p.peek(), text)
}

func (p *parser) accept(text string) bool {
	if p.at(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) *symtab.Token {
	if !p.at(text) {
		p.fail(p.peek(), "expected '%s', found %s", text, describe(p.peek()))
	}
	return p.next()
}

// record passes the identifier at the cursor to the builder with the two
// tokens before it.
func (p *parser) record(t *symtab.Token, sc *scope) {
	p.b.record(t, p.tokAt(p.pos-1), p.tokAt(p.pos-2), sc)
}

func describe(t *symtab.Token) string {
	if t == nil {
		return "end of section"
	}
	return fmt.Sprintf("'%s'", t.Text)
}

// fail records an error at t, or just past the last token when t is nil, and
// unwinds to parseSection.
func (p *parser) fail(t *symtab.Token, format string, args ...any) {
	var pos symtab.Position
	switch {
	case t != nil:
		pos = t.Pos
	case len(p.toks) > 0:
		last := p.toks[len(p.toks)-1]
		pos = symtab.Position{Line: last.Pos.Line, Column: last.Pos.Column + last.Length}
	}
	p.b.errorf(pos, format, args...)
	panic(bailout{})
}

func (p *parser) skipBalanced(open, closing string) {
	p.expect(open)
	for depth := 1; depth > 0; {
		t := p.next()
		switch {
		case t == nil:
			p.fail(nil, "expected '%s'", closing)
		case is(t, open):
			depth++
		case is(t, closing):
			depth--
		}
	}
}

// parseDeclaration parses "name: ..." and returns the new declaration index.
func (p *parser) parseDeclaration(sc *scope, parent int) int {
	for p.at("public") || p.at("protected") || p.at("private") {
		p.next()
	}
	t := p.peek()
	if t == nil || !t.IsIdentifier() {
		p.fail(t, "expected a declaration, found %s", describe(t))
	}
	p.next()
	name := t.Text
	if name == "operator" {
		var sb strings.Builder
		sb.WriteString(name)
		for !p.eof() && !p.at(":") {
			sb.WriteString(p.next().Text)
		}
		name = sb.String()
	}
	p.expect(":")
	idx := p.b.newDecl(t, name, t.Pos, parent, sc)
	p.parseDeclarationBody(idx, sc)
	return idx
}

func (p *parser) parseDeclarationBody(idx int, sc *scope) {
	parent := p.b.decls[idx].Parent
	inner := newScope(scopeFunction, sc, idx)
	if p.at("<") {
		p.parseTemplateParams(idx, inner)
	}
	switch {
	case p.at("("):
		p.parseFunction(idx, inner)
	case p.accept("=="):
		p.b.decls[idx].Kind = symtab.DeclAlias
		p.b.decls[idx].Alias = symtab.AliasObject
		p.parseExpr(sc, parent, stopSemicolon)
		p.expect(";")
	case p.accept("="):
		p.b.decls[idx].Kind = symtab.DeclObject
		p.parseInitializer(idx, sc, parent)
	case p.at("@") || p.at("type") || p.at("final"):
		p.parseType(idx, inner)
	case p.at("namespace"):
		p.parseNamespace(idx, inner)
	default:
		p.b.decls[idx].Kind = symtab.DeclObject
		p.b.decls[idx].ObjectType = p.parseTypeID(sc, stopObjectType)
		if p.accept("=") || p.accept("==") {
			p.parseInitializer(idx, sc, parent)
			return
		}
		p.expect(";")
	}
}

// parseInitializer parses the expression after '=' and remembers the last
// name of its leading "a.b::c" chain for type deduction.
func (p *parser) parseInitializer(idx int, sc *scope, owner int) {
	i := p.pos
	for {
		t := p.tokAt(i)
		sep := p.tokAt(i + 1)
		name := p.tokAt(i + 2)
		if t == nil || !t.IsIdentifier() || !(is(sep, ".") || is(sep, "::")) || name == nil || !name.IsIdentifier() {
			break
		}
		i += 2
	}
	if t := p.tokAt(i); t != nil {
		p.b.inits[idx] = t.ID
	}
	p.parseExpr(sc, owner, stopSemicolon)
	// an anonymous function with an expression body shares the ';'
	if is(p.tokAt(p.pos-1), ";") && !p.at(";") {
		return
	}
	p.expect(";")
}

func (p *parser) parseTemplateParams(idx int, sc *scope) {
	p.expect("<")
	for !p.at(">") {
		t := p.peek()
		if t == nil || !t.IsIdentifier() {
			p.fail(t, "expected a template parameter name, found %s", describe(t))
		}
		p.next()
		p.accept("...")
		tp := p.b.newDecl(t, t.Text, t.Pos, idx, sc)
		p.b.decls[tp].Kind = symtab.DeclType
		p.b.decls[tp].Parameter = true
		if p.accept(":") && !p.accept("type") {
			p.b.decls[tp].Kind = symtab.DeclObject
			p.b.decls[tp].ObjectType = p.parseTypeID(sc, stopTemplateParam)
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(">")
}

// parseType parses "@meta type = { members }" or a type alias.
func (p *parser) parseType(idx int, inner *scope) {
	for p.accept("@") {
		if t := p.next(); t == nil || !t.IsIdentifier() {
			p.fail(t, "expected a metafunction name, found %s", describe(t))
		}
		if p.at("<") {
			p.skipBalanced("<", ">")
		}
	}
	p.accept("final")
	p.expect("type")
	if p.accept("==") {
		p.b.decls[idx].Kind = symtab.DeclAlias
		p.b.decls[idx].Alias = symtab.AliasType
		p.parseTypeID(inner.parent, stopSemicolon)
		p.expect(";")
		return
	}
	p.b.decls[idx].Kind = symtab.DeclType
	inner.kind = scopeType
	p.expect("=")
	p.b.decls[idx].EndLine = p.parseMembers(idx, inner, true)
}

func (p *parser) parseNamespace(idx int, inner *scope) {
	p.expect("namespace")
	if p.accept("==") {
		p.b.decls[idx].Kind = symtab.DeclAlias
		p.b.decls[idx].Alias = symtab.AliasNamespace
		p.parseTypeID(inner.parent, stopSemicolon)
		p.expect(";")
		return
	}
	p.b.decls[idx].Kind = symtab.DeclNamespace
	inner.kind = scopeNamespace
	p.expect("=")
	p.b.decls[idx].EndLine = p.parseMembers(idx, inner, false)
}

// parseMembers parses a braced declaration list and returns the line of the
// closing brace. Bare "name;" entries are enumerators of the owning type.
func (p *parser) parseMembers(idx int, inner *scope, enumerators bool) int {
	p.expect("{")
	for !p.at("}") {
		t := p.peek()
		if t == nil {
			p.fail(nil, "expected '}' at end of '%s'", p.b.decls[idx].Name)
		}
		if enumerators && t.IsIdentifier() && is(p.peekN(1), ";") {
			p.pos += 2
			e := p.b.newDecl(t, t.Text, t.Pos, idx, inner)
			p.b.decls[e].Kind = symtab.DeclObject
			p.b.decls[e].ObjectType = p.b.decls[idx].Name
			continue
		}
		p.parseDeclaration(inner, idx)
	}
	closing := p.next()
	p.accept(";")
	return closing.Pos.Line
}

// parseFunction parses a parameter list, return clause, contracts and body.
// inner already holds any template parameters.
func (p *parser) parseFunction(idx int, inner *scope) {
	p.b.decls[idx].Kind = symtab.DeclFunction
	p.expect("(")
	params := p.parseParams(idx, inner, false)
	p.expect(")")
	p.accept("throws")

	var ret, retType string
	if p.accept("->") {
		if p.accept("(") {
			rets := p.parseParams(idx, inner, true)
			p.expect(")")
			ret = "(" + strings.Join(rets, ", ") + ")"
			retType = ret
		} else {
			if t := p.peek(); t != nil && t.Kind == symtab.TokenKeyword && passingKeywords[t.Text] {
				p.next()
				ret = t.Text + " "
			}
			retType = p.parseTypeID(inner, stopReturnType)
			ret += retType
		}
	}
	for p.at("pre") || p.at("post") || p.at("assert") {
		p.next()
		if p.at("<") {
			p.skipBalanced("<", ">")
		}
		p.expect("(")
		p.parseExpr(inner, idx, nil)
		p.expect(")")
	}

	name := p.b.decls[idx].Name
	p.b.decls[idx].Signature = formatSignature(name, params, ret)
	p.b.returns[idx] = retType

	switch {
	case p.accept(";"):
	case p.accept("=") || p.accept("=="):
		if p.at("{") {
			closing := p.parseCompound(inner, idx, true)
			p.b.decls[idx].EndLine = closing.Pos.Line
			return
		}
		p.parseExpr(inner, idx, stopSemicolon)
		semi := p.expect(";")
		p.b.decls[idx].EndLine = semi.Pos.Line
	default:
		p.fail(p.peek(), "expected '=' or ';' after function signature, found %s", describe(p.peek()))
	}
}

// parseParams parses parameters up to the closing paren. Return parameters
// are not added to the function's Params.
func (p *parser) parseParams(fn int, sc *scope, ret bool) []string {
	var texts []string
	for !p.at(")") {
		idx, text := p.parseParam(fn, sc, ret)
		if !ret {
			p.b.decls[fn].Params = append(p.b.decls[fn].Params, idx)
		}
		texts = append(texts, text)
		if !p.accept(",") {
			break
		}
	}
	return texts
}

// parseParam parses "[passing] name [: type] [= default]" and returns the
// declaration and its signature text.
func (p *parser) parseParam(fn int, sc *scope, ret bool) (int, string) {
	passing := ""
	if t := p.peek(); t != nil && t.Kind == symtab.TokenKeyword && passingKeywords[t.Text] {
		passing = t.Text
		p.next()
	}
	for p.at("virtual") || p.at("override") || p.at("final") || p.at("implicit") {
		p.next()
	}
	t := p.peek()
	if t == nil || !(t.IsIdentifier() || is(t, "this")) {
		p.fail(t, "expected a parameter name, found %s", describe(t))
	}
	p.next()
	p.accept("...")

	idx := p.b.newDecl(t, t.Text, t.Pos, fn, sc)
	p.b.decls[idx].Kind = symtab.DeclObject
	p.b.decls[idx].Parameter = !ret
	p.b.decls[idx].Return = ret

	written := ""
	if p.accept(":") {
		written = p.parseTypeID(sc, stopParamType)
	}
	typ := written
	if t.Text == "this" {
		if ty := sc.enclosingType(); ty != symtab.NoDecl {
			typ = p.b.decls[ty].Name
		}
	}
	if typ == "" {
		typ = "_"
	}
	p.b.decls[idx].ObjectType = typ

	if p.accept("=") {
		p.parseExpr(sc, fn, stopParamEnd)
	}

	text := t.Text
	if passing != "" {
		text = passing + " " + text
	}
	if written != "" {
		text += ": " + written
	}
	return idx, text
}

// parseTypeID consumes a type up to one of stops at nesting depth zero and
// returns its normalized text.
func (p *parser) parseTypeID(sc *scope, stops stopSet) string {
	var parts []*symtab.Token
	depth := 0
loop:
	for {
		t := p.peek()
		if t == nil {
			break
		}
		if isSyntax(t) {
			if depth == 0 && stops[t.Text] {
				break
			}
			switch t.Text {
			case "<", "(", "[":
				depth++
			case ">", ")", "]":
				if depth == 0 {
					break loop
				}
				depth--
			case "{", "}", ";":
				break loop
			}
		}
		p.record(t, sc)
		parts = append(parts, t)
		p.next()
	}
	if len(parts) == 0 {
		p.fail(p.peek(), "expected a type, found %s", describe(p.peek()))
	}
	return joinTypeTokens(parts)
}

func isWord(t *symtab.Token) bool {
	switch t.Kind {
	case symtab.TokenIdentifier, symtab.TokenKeyword, symtab.TokenNumber:
		return true
	}
	return false
}

// joinTypeTokens puts a space between adjacent words and after commas.
func joinTypeTokens(parts []*symtab.Token) string {
	var sb strings.Builder
	for i, t := range parts {
		if i > 0 {
			prev := parts[i-1]
			if (isWord(prev) && isWord(t)) || prev.Text == "," {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// formatSignature renders "name: (params) -> ret". Anonymous functions render
// as ":(params) -> ret".
func formatSignature(name string, params []string, ret string) string {
	var sb strings.Builder
	if name == "" {
		sb.WriteString(":(")
	} else {
		sb.WriteString(name)
		sb.WriteString(": (")
	}
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteByte(')')
	if ret != "" {
		sb.WriteString(" -> ")
		sb.WriteString(ret)
	}
	return sb.String()
}
