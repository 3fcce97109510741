package cpp2

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

type scopeKind int

const (
	scopeFile scopeKind = iota
	scopeNamespace
	scopeType
	scopeFunction
	scopeBlock
)

// scope maps names to declaration indices. Function and block scopes are
// ordered: a name is visible only after its declaration. The others see all
// of their members regardless of order.
type scope struct {
	kind   scopeKind
	parent *scope
	owner  int
	names  map[string][]int
}

func newScope(kind scopeKind, parent *scope, owner int) *scope {
	return &scope{kind: kind, parent: parent, owner: owner, names: make(map[string][]int)}
}

func (s *scope) ordered() bool {
	return s.kind == scopeFunction || s.kind == scopeBlock
}

// enclosingType returns the type declaration owning the nearest type scope.
func (s *scope) enclosingType() int {
	for ; s != nil; s = s.parent {
		if s.kind == scopeType {
			return s.owner
		}
	}
	return symtab.NoDecl
}

// use is a plain identifier whose lookup waits for all declarations.
type use struct {
	tok   int
	name  string
	scope *scope
}

// memberUse is an identifier after '.', '..' or '::'.
type memberUse struct {
	tok       int
	name      string
	base      int // token ID of the left operand, -1 when not an identifier
	this      bool
	qualified bool
	ufcs      bool
	scope     *scope
}

// builder accumulates the declaration arena and the token bindings of one
// analysis run.
type builder struct {
	decls    []symtab.Declaration
	refs     map[int]int
	errs     []symtab.ErrorEntry
	file     *scope
	deferred []use
	members  []memberUse
	inits    map[int]int
	returns  map[int]string
}

func newBuilder() *builder {
	return &builder{
		refs:    make(map[int]int),
		file:    newScope(scopeFile, nil, symtab.NoDecl),
		inits:   make(map[int]int),
		returns: make(map[int]string),
	}
}

func (b *builder) errorf(pos symtab.Position, format string, args ...any) {
	b.errs = append(b.errs, symtab.ErrorEntry{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// newDecl allocates a declaration named by tok (nil for anonymous ones) and
// declares it in sc.
func (b *builder) newDecl(tok *symtab.Token, name string, pos symtab.Position, parent int, sc *scope) int {
	idx := len(b.decls)
	d := symtab.Declaration{
		Index:     idx,
		Name:      name,
		NameToken: -1,
		Pos:       pos,
		Parent:    parent,
	}
	if tok != nil {
		d.NameToken = tok.ID
	}
	if parent != symtab.NoDecl {
		d.Depth = b.decls[parent].Depth + 1
		d.Member = b.decls[parent].Kind == symtab.DeclType
	}
	b.decls = append(b.decls, d)

	if name == "" || sc == nil {
		return idx
	}
	if sc.ordered() && name != "_" && len(sc.names[name]) > 0 {
		b.errorf(pos, "'%s' is already declared in this scope", name)
	}
	sc.names[name] = append(sc.names[name], idx)
	return idx
}

// resolve binds a plain identifier. Lookups through ordered scopes happen now,
// so later declarations are not visible; the first unordered scope defers the
// rest of the search until parsing is complete.
func (b *builder) resolve(tok *symtab.Token, sc *scope) {
	for s := sc; s != nil; s = s.parent {
		if !s.ordered() {
			b.deferred = append(b.deferred, use{tok: tok.ID, name: tok.Text, scope: s})
			return
		}
		if ids := s.names[tok.Text]; len(ids) > 0 {
			b.refs[tok.ID] = ids[len(ids)-1]
			return
		}
	}
}

// record classifies an identifier by the token before it.
func (b *builder) record(tok, prev, prevprev *symtab.Token, sc *scope) {
	if !tok.IsIdentifier() {
		return
	}
	if prev == nil || prev.Kind != symtab.TokenPunct {
		b.resolve(tok, sc)
		return
	}
	switch prev.Text {
	case ".", "..", "::":
		m := memberUse{
			tok:       tok.ID,
			name:      tok.Text,
			base:      -1,
			qualified: prev.Text == "::",
			ufcs:      prev.Text == ".",
			scope:     sc,
		}
		if prevprev != nil {
			switch {
			case prevprev.Kind == symtab.TokenKeyword && prevprev.Text == "this":
				m.this = true
			case prevprev.IsIdentifier():
				m.base = prevprev.ID
			}
		}
		if m.qualified && m.base < 0 && !m.this {
			// ::name refers to the global namespace
			b.deferred = append(b.deferred, use{tok: tok.ID, name: tok.Text, scope: b.file})
			return
		}
		b.members = append(b.members, m)
	default:
		b.resolve(tok, sc)
	}
}

// finalize resolves everything that had to wait for the whole file and
// returns the snapshot.
func (b *builder) finalize() *symtab.Snapshot {
	for _, u := range b.deferred {
		for s := u.scope; s != nil; s = s.parent {
			if ids := s.names[u.name]; len(ids) > 0 {
				b.refs[u.tok] = ids[0]
				break
			}
		}
	}

	// a deduced type can make a member chain resolvable, which in turn can
	// deduce another type
	for round := 0; round < 2; round++ {
		b.inferTypes()
		for _, m := range b.members {
			if _, done := b.refs[m.tok]; !done {
				b.resolveMember(m)
			}
		}
	}
	for i := range b.decls {
		if b.decls[i].Kind == symtab.DeclObject && b.decls[i].ObjectType == "" {
			b.decls[i].ObjectType = "_"
		}
	}

	syms := make(map[int]symtab.SymbolEntry, len(b.refs)+len(b.decls))
	for i := range b.decls {
		if b.decls[i].NameToken >= 0 {
			syms[b.decls[i].NameToken] = b.entry(i)
		}
	}
	for tok, d := range b.refs {
		syms[tok] = b.entry(d)
	}

	return &symtab.Snapshot{Decls: b.decls, Symbols: syms}
}

func (b *builder) entry(d int) symtab.SymbolEntry {
	decl := &b.decls[d]
	return symtab.SymbolEntry{
		Decl:      d,
		Parameter: decl.Parameter,
		Member:    decl.Member,
		Return:    decl.Return,
	}
}

// inferTypes fills the type of deduced objects ("x := T(...)" or
// "x := f(...)") from what their initializer names.
func (b *builder) inferTypes() {
	objs := make([]int, 0, len(b.inits))
	for d := range b.inits {
		objs = append(objs, d)
	}
	sort.Ints(objs)
	for _, d := range objs {
		if b.decls[d].ObjectType != "" {
			continue
		}
		target, ok := b.refs[b.inits[d]]
		if !ok {
			continue
		}
		switch t := &b.decls[target]; t.Kind {
		case symtab.DeclType:
			b.decls[d].ObjectType = t.Name
		case symtab.DeclFunction:
			if ret := b.returns[target]; ret != "" && ret != "_" && !strings.HasPrefix(ret, "(") {
				b.decls[d].ObjectType = ret
			}
		case symtab.DeclObject:
			if t.ObjectType != "_" {
				b.decls[d].ObjectType = t.ObjectType
			}
		}
	}
}

func (b *builder) resolveMember(m memberUse) {
	container := symtab.NoDecl
	switch {
	case m.this:
		container = m.scope.enclosingType()
	case m.base >= 0:
		base, ok := b.refs[m.base]
		if !ok {
			return
		}
		switch bd := &b.decls[base]; bd.Kind {
		case symtab.DeclObject:
			container = b.findType(BaseTypeName(bd.ObjectType))
		case symtab.DeclType, symtab.DeclNamespace:
			container = base
		}
	}
	if container != symtab.NoDecl {
		for i := range b.decls {
			if b.decls[i].Parent == container && b.decls[i].Name == m.name {
				b.refs[m.tok] = i
				return
			}
		}
	}
	if m.ufcs {
		// obj.f(args) may call a free function f(obj, args)
		for i := range b.decls {
			if d := &b.decls[i]; d.Kind == symtab.DeclFunction && d.IsGlobal() && d.Name == m.name {
				b.refs[m.tok] = i
				return
			}
		}
	}
}

// findType returns the first type declaration with the given name.
func (b *builder) findType(name string) int {
	if name == "" || name == "_" {
		return symtab.NoDecl
	}
	for i := range b.decls {
		if b.decls[i].Kind == symtab.DeclType && b.decls[i].Name == name {
			return i
		}
	}
	return symtab.NoDecl
}

// BaseTypeName strips qualifiers, pointers, references, template arguments
// and namespace prefixes from a type text: "const std::vector<int>&" becomes
// "vector".
func BaseTypeName(t string) string {
	t = strings.TrimSpace(t)
	for _, q := range []string{"const ", "volatile "} {
		t = strings.ReplaceAll(t, q, "")
	}
	t = strings.Trim(t, "*& ")
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "::"); i >= 0 {
		t = t[i+2:]
	}
	return strings.TrimSpace(t)
}
