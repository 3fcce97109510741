package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tender-barbarian/cpp2ls/internal/cpp2"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

const source = `add: (a: i32, b: i32) -> i32 = {
    r := a + b;
    return r + a;
}
`

func analyze(t *testing.T, text string) *symtab.Snapshot {
	t.Helper()
	snap := cpp2.Analyze(cpp2.NewSource(text))
	require.True(t, snap.Valid(), "errors: %v", snap.Errors)
	return snap
}

func TestFindTokenAt(t *testing.T) {
	snap := analyze(t, source)

	tests := []struct {
		name      string
		line, col int // 0-based
		want      string
	}{
		{name: "start of name", line: 0, col: 0, want: "add"},
		{name: "inside name", line: 0, col: 2, want: "add"},
		{name: "punctuation", line: 0, col: 3, want: ":"},
		{name: "local", line: 1, col: 4, want: "r"},
		{name: "whitespace", line: 1, col: 0},
		{name: "past end of line", line: 2, col: 40},
		{name: "past end of file", line: 50, col: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := FindTokenAt(snap, ToInternal(tt.line, tt.col))
			if tt.want == "" {
				assert.Nil(t, tok)
				return
			}
			require.NotNil(t, tok)
			assert.Equal(t, tt.want, tok.Text)
		})
	}
}

func TestFindTokenAtCoversWholeSpan(t *testing.T) {
	snap := analyze(t, source)
	for _, d := range snap.Decls {
		nameTok := snap.Token(d.NameToken)
		require.NotNil(t, nameTok)
		for c := d.Pos.Column; c < d.Pos.Column+nameTok.Length; c++ {
			got := FindTokenAt(snap, symtab.Position{Line: d.Pos.Line, Column: c})
			require.NotNil(t, got)
			assert.Equal(t, nameTok.ID, got.ID)
		}
	}
}

func TestResolve(t *testing.T) {
	snap := analyze(t, source)

	tok := FindTokenAt(snap, ToInternal(2, 15))
	require.NotNil(t, tok)
	require.Equal(t, "a", tok.Text)

	decl, entry, ok := Resolve(snap, tok)
	require.True(t, ok)
	assert.Equal(t, "a", decl.Name)
	assert.True(t, entry.Parameter)

	colon := FindTokenAt(snap, ToInternal(0, 3))
	_, _, ok = Resolve(snap, colon)
	assert.False(t, ok)

	_, _, ok = Resolve(nil, tok)
	assert.False(t, ok)
}

func TestUses(t *testing.T) {
	snap := analyze(t, source)
	a := snap.Decls[1]
	require.Equal(t, "a", a.Name)

	var got []symtab.Location
	for _, tok := range Uses(snap, a.Index) {
		got = append(got, TokenLocation("file:///a.cpp2", tok))
	}
	assert.Equal(t, []symtab.Location{
		{URI: "file:///a.cpp2", Line: 0, Column: 6},
		{URI: "file:///a.cpp2", Line: 1, Column: 9},
		{URI: "file:///a.cpp2", Line: 2, Column: 15},
	}, got)
}

func TestIdentifierBefore(t *testing.T) {
	snap := analyze(t, source)

	tok := IdentifierBefore(snap, "r", ToInternal(3, 0))
	require.NotNil(t, tok)
	assert.Equal(t, symtab.Position{Line: 3, Column: 12}, tok.Pos)

	assert.Nil(t, IdentifierBefore(snap, "r", ToInternal(0, 0)))
	assert.Nil(t, IdentifierBefore(snap, "missing", ToInternal(3, 0)))
}

func TestCoordinateConversion(t *testing.T) {
	p := ToInternal(0, 0)
	assert.Equal(t, symtab.Position{Line: 1, Column: 1}, p)

	line, col := ToExternal(symtab.Position{Line: 4, Column: 7})
	assert.Equal(t, 3, line)
	assert.Equal(t, 6, col)

	line, col = ToExternal(symtab.Position{})
	assert.Zero(t, line)
	assert.Zero(t, col)
}

func FuzzCoordinateRoundTrip(f *testing.F) {
	f.Add(0, 0)
	f.Add(10, 3)
	f.Add(1<<20, 7)
	f.Fuzz(func(t *testing.T, line, col int) {
		if line < 0 || col < 0 || line > 1<<30 || col > 1<<30 {
			return
		}
		gotLine, gotCol := ToExternal(ToInternal(line, col))
		if gotLine != line || gotCol != col {
			t.Fatalf("round trip of (%d, %d) gave (%d, %d)", line, col, gotLine, gotCol)
		}
	})
}
