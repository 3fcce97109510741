// Package completion computes what is visible at a cursor: plain completion
// candidates, members and UFCS candidates after a dot, signature help, and
// hover text.
package completion

import (
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// ItemKind classifies a completion item.
type ItemKind string

const (
	KindFunction  ItemKind = "function"
	KindMethod    ItemKind = "method"
	KindVariable  ItemKind = "variable"
	KindParameter ItemKind = "parameter"
	KindField     ItemKind = "field"
	KindType      ItemKind = "type"
	KindNamespace ItemKind = "namespace"
	KindKeyword   ItemKind = "keyword"
)

// Item is one completion candidate.
type Item struct {
	Label      string   `json:"label"`
	Kind       ItemKind `json:"kind"`
	Detail     string   `json:"detail,omitempty"`
	InsertText string   `json:"insert_text,omitempty"`
}

// keyword pairs a keyword with the text shown as its detail.
type keyword struct {
	word   string
	detail string
}

var keywords = []keyword{
	{"if", "if () { }"},
	{"else", "else { }"},
	{"while", "while () { }"},
	{"for", "for  do { }"},
	{"do", "do { } while ();"},
	{"return", "return"},
	{"break", "break"},
	{"continue", "continue"},
	{"in", "in"},
	{"out", "out"},
	{"inout", "inout"},
	{"copy", "copy"},
	{"move", "move"},
	{"forward", "forward"},
	{"type", "type"},
	{"namespace", "namespace"},
	{"true", "true"},
	{"false", "false"},
	{"nullptr", "nullptr"},
	{"this", "this"},
	{"that", "that"},
	{"inspect", "inspect"},
	{"is", "is"},
	{"as", "as"},
	{"throws", "throws"},
	{"pre", "pre"},
	{"post", "post"},
	{"assert", "assert"},
	{"public", "public"},
	{"protected", "protected"},
	{"private", "private"},
	{"virtual", "virtual"},
	{"override", "override"},
	{"final", "final"},
	{"implicit", "implicit"},
}

// Keywords returns the keyword items whose label is not in seen.
func Keywords(seen map[string]bool) []Item {
	out := make([]Item, 0, len(keywords))
	for _, kw := range keywords {
		if seen[kw.word] {
			continue
		}
		out = append(out, Item{Label: kw.word, Kind: KindKeyword, Detail: kw.detail})
	}
	return out
}

// declItem renders a declaration as a plain completion item. ok is false for
// kinds that are not offered.
func declItem(d *symtab.Declaration, parameter bool) (Item, bool) {
	it := Item{Label: d.Name}
	switch d.Kind {
	case symtab.DeclFunction:
		it.Kind = KindFunction
		it.Detail = d.Signature
		it.InsertText = d.Name + "("
	case symtab.DeclObject:
		if parameter {
			it.Kind = KindParameter
			it.Detail = "(parameter) " + d.ObjectType
		} else {
			it.Kind = KindVariable
			it.Detail = d.ObjectType
		}
	case symtab.DeclType:
		it.Kind = KindType
		it.Detail = "type"
	case symtab.DeclNamespace:
		it.Kind = KindNamespace
		it.Detail = "namespace"
	default:
		return it, false
	}
	return it, true
}

// indexedItem renders a project-index symbol.
func indexedItem(s *symtab.IndexedSymbol) Item {
	it := Item{Label: s.Name}
	switch s.Kind {
	case symtab.SymbolKindFunction:
		it.Kind = KindFunction
		it.Detail = s.Signature
		it.InsertText = s.Name + "("
	case symtab.SymbolKindType:
		it.Kind = KindType
		it.Detail = "type"
	case symtab.SymbolKindNamespace:
		it.Kind = KindNamespace
		it.Detail = "namespace"
	case symtab.SymbolKindVariable:
		it.Kind = KindVariable
		it.Detail = "variable"
	case symtab.SymbolKindAlias:
		it.Kind = KindType
		it.Detail = "alias"
	}
	return it
}
