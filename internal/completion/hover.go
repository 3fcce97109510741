package completion

import (
	"strings"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// Hover renders a declaration as markdown: a cpp2 code block followed by the
// role of the referring token.
func Hover(d *symtab.Declaration, e symtab.SymbolEntry) string {
	var sb strings.Builder
	sb.WriteString("```cpp2\n")
	switch d.Kind {
	case symtab.DeclFunction:
		sb.WriteString(d.Signature)
	case symtab.DeclObject:
		sb.WriteString(d.Name + ": " + d.ObjectType)
	case symtab.DeclType:
		sb.WriteString(d.Name + ": type")
	case symtab.DeclNamespace:
		sb.WriteString(d.Name + ": namespace")
	case symtab.DeclAlias:
		switch d.Alias {
		case symtab.AliasType:
			sb.WriteString(d.Name + ": type ==")
		case symtab.AliasNamespace:
			sb.WriteString(d.Name + ": namespace ==")
		default:
			sb.WriteString(d.Name + " ==")
		}
	}
	sb.WriteString("\n```")

	switch {
	case e.Parameter:
		sb.WriteString("\n\n*(parameter)*")
	case e.Member:
		sb.WriteString("\n\n*(member)*")
	case e.Return:
		sb.WriteString("\n\n*(return value)*")
	}
	return sb.String()
}

// HoverIndexed renders a project-index symbol. Symbols from a file other
// than currentURI name their file.
func HoverIndexed(s *symtab.IndexedSymbol, currentURI string) string {
	var sb strings.Builder
	sb.WriteString("```cpp2\n")
	switch s.Kind {
	case symtab.SymbolKindFunction:
		sb.WriteString(s.Signature)
	case symtab.SymbolKindType:
		sb.WriteString(s.Name + ": type")
	case symtab.SymbolKindNamespace:
		sb.WriteString(s.Name + ": namespace")
	case symtab.SymbolKindVariable:
		sb.WriteString(s.Name)
	case symtab.SymbolKindAlias:
		sb.WriteString(s.Name + ": ==")
	}
	sb.WriteString("\n```")

	if s.FileURI != currentURI {
		if i := strings.LastIndex(s.FileURI, "/"); i >= 0 {
			sb.WriteString("\n\n*from " + s.FileURI[i+1:] + "*")
		}
	}
	return sb.String()
}
