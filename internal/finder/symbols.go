package finder

import (
	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/resolver"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// DocumentSymbol is one node of a document outline. Line, Column and EndLine
// are 0-based.
type DocumentSymbol struct {
	Name     string           `json:"name"`
	Kind     symtab.DeclKind  `json:"kind"`
	Detail   string           `json:"detail,omitempty"`
	Line     int              `json:"line"`
	Column   int              `json:"column"`
	EndLine  int              `json:"end_line"`
	Children []DocumentSymbol `json:"children,omitempty"`
}

// DocumentSymbols returns the outline of the document: global declarations
// with the members of types and namespaces nested below them.
func (f *Finder) DocumentSymbols(doc *document.Document) []DocumentSymbol {
	snap := doc.Active()
	if snap == nil {
		return nil
	}
	children := make(map[int][]int)
	for i := range snap.Decls {
		d := &snap.Decls[i]
		if !d.HasName() || d.Parameter {
			continue
		}
		children[d.Parent] = append(children[d.Parent], i)
	}
	var build func(parent int) []DocumentSymbol
	build = func(parent int) []DocumentSymbol {
		var out []DocumentSymbol
		for _, i := range children[parent] {
			d := &snap.Decls[i]
			s := outlineSymbol(d)
			if d.Kind == symtab.DeclType || d.Kind == symtab.DeclNamespace {
				s.Children = build(i)
			}
			out = append(out, s)
		}
		return out
	}
	return build(symtab.NoDecl)
}

func outlineSymbol(d *symtab.Declaration) DocumentSymbol {
	line, col := resolver.ToExternal(d.Pos)
	s := DocumentSymbol{Name: d.Name, Kind: d.Kind, Line: line, Column: col, EndLine: line}
	if d.EndLine > 0 {
		s.EndLine = d.EndLine - 1
	}
	switch d.Kind {
	case symtab.DeclFunction:
		s.Detail = d.Signature
	case symtab.DeclObject:
		s.Detail = d.ObjectType
	}
	return s
}
