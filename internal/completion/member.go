package completion

import (
	"regexp"

	"github.com/tender-barbarian/cpp2ls/internal/cpp2"
	"github.com/tender-barbarian/cpp2ls/internal/resolver"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

var accessor = regexp.MustCompile(`([A-Za-z_][A-Za-z_0-9]*)(\.\.?)$`)

// Access is an "obj." or "obj.." expression ending at the cursor.
type Access struct {
	Object string
	// MemberOnly is set for "..", which excludes UFCS candidates.
	MemberOnly bool
}

// ParseAccess inspects the text left of the cursor. col is a 0-based byte
// offset into lineText.
func ParseAccess(lineText string, col int) (Access, bool) {
	if col > len(lineText) {
		col = len(lineText)
	}
	if col < 0 {
		return Access{}, false
	}
	m := accessor.FindStringSubmatch(lineText[:col])
	if m == nil {
		return Access{}, false
	}
	return Access{Object: m[1], MemberOnly: m[2] == ".."}, true
}

// Members returns the members of the object named by acc, plus UFCS
// candidates unless acc is member-only. The object is the nearest earlier
// token with that name before the 1-based pos; it must resolve to an object of
// a known type.
func Members(snap *symtab.Snapshot, acc Access, pos symtab.Position) []Item {
	tok := resolver.IdentifierBefore(snap, acc.Object, pos)
	if tok == nil {
		return nil
	}
	obj, _, ok := resolver.Resolve(snap, tok)
	if !ok || obj.Kind != symtab.DeclObject {
		return nil
	}
	typeName := cpp2.BaseTypeName(obj.ObjectType)
	if typeName == "" || typeName == "_" {
		return nil
	}

	seen := make(map[string]bool)
	var out []Item
	add := func(it Item) {
		if seen[it.Label] {
			return
		}
		seen[it.Label] = true
		out = append(out, it)
	}

	if typ := FindType(snap, typeName); typ != nil {
		for i := range snap.Decls {
			d := &snap.Decls[i]
			if d.Parent != typ.Index || !d.HasName() || d.Parameter {
				continue
			}
			if it, ok := memberItem(d); ok {
				add(it)
			}
		}
	}

	if acc.MemberOnly {
		return out
	}
	for i := range snap.Decls {
		d := &snap.Decls[i]
		if d.Kind != symtab.DeclFunction || !d.IsGlobal() || !d.HasName() || len(d.Params) == 0 {
			continue
		}
		first := snap.Decl(d.Params[0])
		if first == nil || first.Name == "this" {
			continue
		}
		if cpp2.BaseTypeName(first.ObjectType) != typeName {
			continue
		}
		add(Item{Label: d.Name, Kind: KindFunction, Detail: d.Signature, InsertText: d.Name + "("})
	}
	return out
}

func memberItem(d *symtab.Declaration) (Item, bool) {
	switch d.Kind {
	case symtab.DeclFunction:
		return Item{Label: d.Name, Kind: KindMethod, Detail: d.Signature, InsertText: d.Name + "("}, true
	case symtab.DeclObject:
		return Item{Label: d.Name, Kind: KindField, Detail: d.ObjectType}, true
	case symtab.DeclType:
		return Item{Label: d.Name, Kind: KindType, Detail: "type"}, true
	}
	return Item{}, false
}

// FindType returns the first type declaration named name.
func FindType(snap *symtab.Snapshot, name string) *symtab.Declaration {
	for i := range snap.DeclCount() {
		if d := &snap.Decls[i]; d.Kind == symtab.DeclType && d.Name == name {
			return d
		}
	}
	return nil
}

// FindFunction returns the first function declaration named name.
func FindFunction(snap *symtab.Snapshot, name string) *symtab.Declaration {
	for i := range snap.DeclCount() {
		if d := &snap.Decls[i]; d.Kind == symtab.DeclFunction && d.Name == name {
			return d
		}
	}
	return nil
}
