// Package finder answers editor queries against an open document, falling
// back to the project index for names the document does not declare.
package finder

import (
	"strings"

	"github.com/tender-barbarian/cpp2ls/internal/completion"
	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/indexer"
	"github.com/tender-barbarian/cpp2ls/internal/resolver"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// MatchMode controls how symbol names are compared in FindSymbol.
type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchPrefix   MatchMode = "prefix"
	MatchContains MatchMode = "contains"
)

func matchesQuery(symbolName, query string, mode MatchMode) bool {
	switch mode {
	case MatchPrefix:
		return strings.HasPrefix(symbolName, query)
	case MatchContains:
		return strings.Contains(symbolName, query)
	default:
		return symbolName == query
	}
}

// Finder runs queries. All positions are 0-based. A nil result means "no
// answer" and is never an error.
type Finder struct {
	idx *indexer.Indexer
}

// New creates a Finder backed by the given Indexer, which may be nil.
func New(idx *indexer.Indexer) *Finder {
	return &Finder{idx: idx}
}

// FindSymbol searches the project index for global symbols matching name.
// mode controls how name is compared: exact (default), prefix, or contains.
func (f *Finder) FindSymbol(name string, mode MatchMode) []symtab.IndexedSymbol {
	if f.idx == nil {
		return nil
	}
	if mode == MatchExact || mode == "" {
		return f.idx.Lookup(name)
	}
	return f.idx.Match(func(s string) bool { return matchesQuery(s, name, mode) })
}

// lookup returns the first project symbol named name.
func (f *Finder) lookup(name string) *symtab.IndexedSymbol {
	if f.idx == nil {
		return nil
	}
	if syms := f.idx.Lookup(name); len(syms) > 0 {
		return &syms[0]
	}
	return nil
}

// target is the token under the cursor and what it resolves to.
type target struct {
	snap  *symtab.Snapshot
	tok   *symtab.Token
	decl  *symtab.Declaration
	entry symtab.SymbolEntry
}

func (f *Finder) targetAt(doc *document.Document, line, col int) (target, bool) {
	snap := doc.Active()
	if snap == nil {
		return target{}, false
	}
	tok := resolver.FindTokenAt(snap, resolver.ToInternal(line, col))
	if tok == nil {
		return target{}, false
	}
	t := target{snap: snap, tok: tok}
	t.decl, t.entry, _ = resolver.Resolve(snap, tok)
	return t, true
}

// HoverResult is hover markdown and the span of the token it describes.
type HoverResult struct {
	Contents string         `json:"contents"`
	Range    resolver.Range `json:"range"`
}

// Hover describes the token at the position.
func (f *Finder) Hover(doc *document.Document, line, col int) *HoverResult {
	t, ok := f.targetAt(doc, line, col)
	if !ok {
		return nil
	}
	if t.decl != nil {
		return &HoverResult{Contents: completion.Hover(t.decl, t.entry), Range: resolver.TokenRange(t.tok)}
	}
	if !t.tok.IsIdentifier() {
		return nil
	}
	if s := f.lookup(t.tok.Text); s != nil {
		return &HoverResult{Contents: completion.HoverIndexed(s, doc.URI()), Range: resolver.TokenRange(t.tok)}
	}
	return nil
}

// Definition returns the declaration site of the token at the position.
func (f *Finder) Definition(doc *document.Document, line, col int) *symtab.Location {
	t, ok := f.targetAt(doc, line, col)
	if !ok {
		return nil
	}
	if t.decl != nil {
		loc := resolver.DeclLocation(doc.URI(), t.decl)
		return &loc
	}
	if !t.tok.IsIdentifier() {
		return nil
	}
	if s := f.lookup(t.tok.Text); s != nil {
		loc := s.Location()
		return &loc
	}
	return nil
}

// References returns the in-file uses of the declaration the token at the
// position refers to, sorted by position. The declaration's own name is
// included only with includeDecl. When the token does not resolve, the
// first project symbol of that name stands in as the declaration.
func (f *Finder) References(doc *document.Document, line, col int, includeDecl bool) []symtab.Location {
	t, ok := f.targetAt(doc, line, col)
	if !ok {
		return nil
	}
	if t.decl == nil {
		if !includeDecl || !t.tok.IsIdentifier() {
			return nil
		}
		if s := f.lookup(t.tok.Text); s != nil {
			return []symtab.Location{s.Location()}
		}
		return nil
	}
	var out []symtab.Location
	for _, u := range resolver.Uses(t.snap, t.decl.Index) {
		if u.ID == t.decl.NameToken && !includeDecl {
			continue
		}
		out = append(out, resolver.TokenLocation(doc.URI(), u))
	}
	return out
}

// Completion returns the candidates at the position: members and UFCS
// candidates after "obj." or "obj..", otherwise everything visible plus
// project symbols and keywords.
func (f *Finder) Completion(doc *document.Document, line, col int) []completion.Item {
	snap := doc.Active()
	if acc, ok := completion.ParseAccess(lineAt(doc.Text(), line), col); ok {
		if snap == nil {
			return nil
		}
		return completion.Members(snap, acc, resolver.ToInternal(line, col))
	}
	var project []*symtab.IndexedSymbol
	if f.idx != nil {
		all := f.idx.AllSymbols()
		project = make([]*symtab.IndexedSymbol, len(all))
		for i := range all {
			project[i] = &all[i]
		}
	}
	return completion.Complete(snap, line+1, project)
}

// SignatureHelp returns the signature of the innermost unclosed call before
// the position. Tokens come from the latest analysis so the call being typed
// is seen even when that analysis failed.
func (f *Finder) SignatureHelp(doc *document.Document, line, col int) *completion.Signature {
	latest := doc.Latest()
	if latest == nil {
		return nil
	}
	call, ok := completion.CallAt(resolver.TokensBefore(latest, resolver.ToInternal(line, col)))
	if !ok {
		return nil
	}
	if d, _, ok := resolver.Resolve(latest, call.Name); ok && d.Kind == symtab.DeclFunction {
		return completion.NewSignature(d.Signature, call.ActiveParameter)
	}
	if d := completion.FindFunction(doc.Active(), call.Name.Text); d != nil {
		return completion.NewSignature(d.Signature, call.ActiveParameter)
	}
	if f.idx != nil {
		if s := f.idx.LookupFunction(call.Name.Text); s != nil {
			return completion.NewSignature(s.Signature, call.ActiveParameter)
		}
	}
	return nil
}

// lineAt returns the 0-based line of text without its line terminator.
func lineAt(text string, line int) string {
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			return ""
		}
		text = text[nl+1:]
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	return strings.TrimSuffix(text, "\r")
}
