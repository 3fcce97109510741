package completion

import (
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// EnclosingFunction returns the innermost function whose body can contain
// the 1-based line. A function with an unknown end extends to the end of the
// file. Between equally nested candidates the later one in source order wins.
func EnclosingFunction(snap *symtab.Snapshot, line int) *symtab.Declaration {
	var best *symtab.Declaration
	for i := range snap.DeclCount() {
		d := &snap.Decls[i]
		if d.Kind != symtab.DeclFunction || d.Pos.Line > line {
			continue
		}
		if d.EndLine > 0 && d.EndLine < line {
			continue
		}
		if best == nil || d.Depth >= best.Depth {
			best = d
		}
	}
	return best
}

// Visible returns the offerable declarations visible at the 1-based line,
// deduplicated by name with the first occurrence kept. Aliases and other kinds
// completion does not offer are skipped before deduplication, so they never
// hide a later declaration of the same name.
//
// Global functions, types and namespaces are visible everywhere. Any other
// declaration must start at or before line, and belong either to the global
// scope when line is outside every function, or to the enclosing function.
func Visible(snap *symtab.Snapshot, line int) []*symtab.Declaration {
	fn := EnclosingFunction(snap, line)
	seen := make(map[string]bool)
	var out []*symtab.Declaration
	for i := range snap.DeclCount() {
		d := &snap.Decls[i]
		if !d.HasName() || seen[d.Name] || !offered(d) {
			continue
		}
		if !visible(snap, d, fn, line) {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}

// offered reports whether completion renders d.
func offered(d *symtab.Declaration) bool {
	_, ok := declItem(d, d.Parameter)
	return ok
}

func visible(snap *symtab.Snapshot, d, fn *symtab.Declaration, line int) bool {
	switch d.Kind {
	case symtab.DeclFunction, symtab.DeclType, symtab.DeclNamespace:
		if d.IsGlobal() {
			return true
		}
	}
	if d.Pos.Line > line {
		return false
	}
	if fn == nil {
		return d.IsGlobal()
	}
	return snap.NearestFunction(d) == fn
}

// Complete returns the plain completion items at the 1-based line: visible
// declarations, then project symbols not already offered, then keywords.
func Complete(snap *symtab.Snapshot, line int, project []*symtab.IndexedSymbol) []Item {
	seen := make(map[string]bool)
	var out []Item
	if snap != nil {
		for _, d := range Visible(snap, line) {
			it, ok := declItem(d, d.Parameter)
			if !ok {
				continue
			}
			seen[d.Name] = true
			out = append(out, it)
		}
	}
	for _, s := range project {
		if s == nil || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, indexedItem(s))
	}
	return append(out, Keywords(seen)...)
}
