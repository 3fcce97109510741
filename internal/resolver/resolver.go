// Package resolver maps editor positions to tokens and tokens to the
// declarations they name.
//
// Positions crossing the package boundary as (line, column) pairs are 0-based;
// symtab.Position values are the analyzer's 1-based coordinates.
package resolver

import (
	"sort"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// ToInternal converts a 0-based editor position into a 1-based analyzer one.
func ToInternal(line, col int) symtab.Position {
	return symtab.Position{Line: line + 1, Column: col + 1}
}

// ToExternal converts a 1-based analyzer position into 0-based editor
// coordinates, clamping at zero.
func ToExternal(p symtab.Position) (line, col int) {
	return max(p.Line-1, 0), max(p.Column-1, 0)
}

// Range is a 0-based token span on one line.
type Range struct {
	Line     int `json:"line"`
	StartCol int `json:"start_col"`
	EndCol   int `json:"end_col"`
}

// TokenRange returns the 0-based span of t.
func TokenRange(t *symtab.Token) Range {
	line, col := ToExternal(t.Pos)
	return Range{Line: line, StartCol: col, EndCol: col + t.Length}
}

// FindTokenAt returns the first token whose span contains pos, or nil.
func FindTokenAt(snap *symtab.Snapshot, pos symtab.Position) *symtab.Token {
	var found *symtab.Token
	snap.EachToken(func(t *symtab.Token) bool {
		if t.Contains(pos.Line, pos.Column) {
			found = t
			return false
		}
		return true
	})
	return found
}

// Resolve looks up the declaration t refers to. ok is false when the token is
// not in the symbol table; callers then fall back to the project index.
func Resolve(snap *symtab.Snapshot, t *symtab.Token) (decl *symtab.Declaration, entry symtab.SymbolEntry, ok bool) {
	if snap == nil || t == nil {
		return nil, entry, false
	}
	entry, ok = snap.Symbols[t.ID]
	if !ok {
		return nil, entry, false
	}
	decl = snap.Decl(entry.Decl)
	return decl, entry, decl != nil
}

// TokensBefore returns the tokens that start strictly before pos, in source
// order.
func TokensBefore(snap *symtab.Snapshot, pos symtab.Position) []*symtab.Token {
	var out []*symtab.Token
	snap.EachToken(func(t *symtab.Token) bool {
		if !t.Pos.Before(pos) {
			return false
		}
		out = append(out, t)
		return true
	})
	return out
}

// IdentifierBefore returns the last identifier named name that starts before
// pos, or nil.
func IdentifierBefore(snap *symtab.Snapshot, name string, pos symtab.Position) *symtab.Token {
	var found *symtab.Token
	for _, t := range TokensBefore(snap, pos) {
		if t.IsIdentifier() && t.Text == name {
			found = t
		}
	}
	return found
}

// Uses returns every token bound to the declaration at index decl, sorted by
// position. The declaration's own name token is included.
func Uses(snap *symtab.Snapshot, decl int) []*symtab.Token {
	var out []*symtab.Token
	snap.EachToken(func(t *symtab.Token) bool {
		if e, ok := snap.Symbols[t.ID]; ok && e.Decl == decl {
			out = append(out, t)
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos.Before(out[j].Pos)
	})
	return out
}

// DeclLocation returns the 0-based declaration site of d in the file uri.
func DeclLocation(uri string, d *symtab.Declaration) symtab.Location {
	line, col := ToExternal(d.Pos)
	return symtab.Location{URI: uri, Line: line, Column: col}
}

// TokenLocation returns the 0-based start of t in the file uri.
func TokenLocation(uri string, t *symtab.Token) symtab.Location {
	line, col := ToExternal(t.Pos)
	return symtab.Location{URI: uri, Line: line, Column: col}
}
