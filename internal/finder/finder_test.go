package finder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tender-barbarian/cpp2ls/internal/completion"
	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/indexer"
	"github.com/tender-barbarian/cpp2ls/internal/resolver"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

const (
	docURI  = "file:///ws/main.cpp2"
	mathURI = "file:///ws/math.cpp2"

	mainText = `point: type = {
    x: i32 = 0;
    y: i32 = 0;
    sum: (this) -> i32 = x + y;
}

norm: (p: point) -> i32 = p.x * p.x;

main: () -> int = {
    p: point = ();
    s := p.sum();
    t := add(1, 2);
    return norm(p) + s + t;
}
`
	// mainText cut short while typing a member access on line 10
	brokenText = `point: type = {
    x: i32 = 0;
    y: i32 = 0;
    sum: (this) -> i32 = x + y;
}

norm: (p: point) -> i32 = p.x * p.x;

main: () -> int = {
    p: point = ();
    p.
`
)

func newIndex(t *testing.T) *indexer.Indexer {
	t.Helper()
	idx, err := indexer.New("")
	require.NoError(t, err)
	idx.UpdateFile(mathURI, 1, []symtab.IndexedSymbol{
		{Name: "add", Kind: symtab.SymbolKindFunction, Signature: "add: (a: i32, b: i32) -> i32"},
		{Name: "limit", Kind: symtab.SymbolKindVariable, Line: 2},
	})
	return idx
}

func openDoc(t *testing.T, texts ...string) *document.Document {
	t.Helper()
	doc := document.New(docURI, document.WithTempDir(t.TempDir()))
	for _, text := range texts {
		doc.Update(text)
	}
	return doc
}

func TestFindSymbol(t *testing.T) {
	idx, err := indexer.New("../../tests/testdata")
	require.NoError(t, err)
	_, err = idx.Index()
	require.NoError(t, err)
	finder := New(idx)

	tests := []struct {
		symbol     string
		mode       MatchMode
		wantNames  []string
		wantKind   symtab.SymbolKind // checked on every result when non-empty
		wantSigHas string            // substring checked in every Signature when non-empty
	}{
		{symbol: "add", wantNames: []string{"add"}, wantKind: symtab.SymbolKindFunction, wantSigHas: "add: (a: i32"},
		{symbol: "point", wantNames: []string{"point"}, wantKind: symtab.SymbolKindType},
		{symbol: "origin", wantNames: []string{"origin"}, wantKind: symtab.SymbolKindVariable},
		{symbol: "shapes", wantNames: []string{"shapes"}, wantKind: symtab.SymbolKindNamespace},
		{symbol: "s", mode: MatchPrefix, wantNames: []string{"scale", "shapes"}},
		{symbol: "a", mode: MatchContains, wantNames: []string{"add", "main", "scale", "shapes"}},
		{symbol: "area"},
		{symbol: "ThisSymbolDefinitelyDoesNotExist"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol+"/"+string(tt.mode), func(t *testing.T) {
			refs := finder.FindSymbol(tt.symbol, tt.mode)
			if len(tt.wantNames) == 0 {
				assert.Empty(t, refs)
				return
			}
			names := make([]string, len(refs))
			for i, r := range refs {
				names[i] = r.Name
				if tt.wantKind != "" {
					assert.Equal(t, tt.wantKind, r.Kind)
				}
				if tt.wantSigHas != "" {
					assert.Contains(t, r.Signature, tt.wantSigHas)
				}
			}
			assert.ElementsMatch(t, tt.wantNames, names)
		})
	}
}

func TestFindSymbolWithoutIndex(t *testing.T) {
	assert.Nil(t, New(nil).FindSymbol("add", MatchExact))
}

func TestHover(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, mainText)
	require.True(t, doc.Valid(), "errors: %v", doc.Errors())

	tests := []struct {
		name      string
		line, col int
		want      string
		wantRange resolver.Range
	}{
		{
			name: "local object", line: 12, col: 16,
			want:      "```cpp2\np: point\n```",
			wantRange: resolver.Range{Line: 12, StartCol: 16, EndCol: 17},
		},
		{
			name: "global function", line: 12, col: 13,
			want:      "```cpp2\nnorm: (p: point) -> i32\n```",
			wantRange: resolver.Range{Line: 12, StartCol: 11, EndCol: 15},
		},
		{
			name: "member through this", line: 3, col: 25,
			want:      "```cpp2\nx: i32\n```\n\n*(member)*",
			wantRange: resolver.Range{Line: 3, StartCol: 25, EndCol: 26},
		},
		{
			name: "parameter", line: 6, col: 26,
			want:      "```cpp2\np: point\n```\n\n*(parameter)*",
			wantRange: resolver.Range{Line: 6, StartCol: 26, EndCol: 27},
		},
		{
			name: "project symbol", line: 11, col: 10,
			want:      "```cpp2\nadd: (a: i32, b: i32) -> i32\n```\n\n*from math.cpp2*",
			wantRange: resolver.Range{Line: 11, StartCol: 9, EndCol: 12},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finder.Hover(doc, tt.line, tt.col)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Contents)
			assert.Equal(t, tt.wantRange, got.Range)
		})
	}

	assert.Nil(t, finder.Hover(doc, 5, 0), "blank line")
	assert.Nil(t, finder.Hover(doc, 12, 19), "operator")
	assert.Nil(t, finder.Hover(doc, 40, 0), "past the end")
}

func TestHoverWithoutSnapshot(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, "int main() { return 0; }\n")
	assert.Nil(t, finder.Hover(doc, 0, 4))
	assert.Nil(t, finder.Definition(doc, 0, 4))
	assert.Nil(t, finder.References(doc, 0, 4, true))
	assert.Nil(t, finder.DocumentSymbols(doc))
	assert.Nil(t, finder.SignatureHelp(doc, 0, 10))
}

func TestDefinition(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, mainText)

	tests := []struct {
		name      string
		line, col int
		want      *symtab.Location
	}{
		{"local object", 12, 16, &symtab.Location{URI: docURI, Line: 9, Column: 4}},
		{"declaration itself", 9, 4, &symtab.Location{URI: docURI, Line: 9, Column: 4}},
		{"type name", 9, 8, &symtab.Location{URI: docURI, Line: 0, Column: 0}},
		{"member call", 10, 11, &symtab.Location{URI: docURI, Line: 3, Column: 4}},
		{"project symbol", 11, 9, &symtab.Location{URI: mathURI, Line: 0, Column: 0}},
		{"punctuation", 11, 12, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finder.Definition(doc, tt.line, tt.col))
		})
	}
}

func TestReferences(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, mainText)

	loc := func(line, col int) symtab.Location {
		return symtab.Location{URI: docURI, Line: line, Column: col}
	}

	tests := []struct {
		name        string
		line, col   int
		includeDecl bool
		want        []symtab.Location
	}{
		{"with declaration", 12, 16, true, []symtab.Location{loc(9, 4), loc(10, 9), loc(12, 16)}},
		{"without declaration", 9, 4, false, []symtab.Location{loc(10, 9), loc(12, 16)}},
		{"project symbol with declaration", 11, 9, true, []symtab.Location{{URI: mathURI}}},
		{"project symbol without declaration", 11, 9, false, nil},
		{"keyword", 12, 4, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finder.References(doc, tt.line, tt.col, tt.includeDecl)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("References mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, mainText)

	items := finder.Completion(doc, 12, 4)
	var labels []string
	for _, it := range items {
		if it.Kind != completion.KindKeyword {
			labels = append(labels, it.Label)
		}
	}
	assert.Equal(t, []string{"point", "norm", "main", "p", "s", "t", "add", "limit"}, labels)
	assert.Contains(t, items, completion.Item{Label: "return", Kind: completion.KindKeyword, Detail: "return"})
}

func TestCompletionMembersFromCachedSnapshot(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, mainText, brokenText)
	require.False(t, doc.Valid())
	require.Equal(t, document.UseCached, doc.Selection())

	items := finder.Completion(doc, 10, 6)
	want := []completion.Item{
		{Label: "x", Kind: completion.KindField, Detail: "i32"},
		{Label: "y", Kind: completion.KindField, Detail: "i32"},
		{Label: "sum", Kind: completion.KindMethod, Detail: "sum: (this) -> i32", InsertText: "sum("},
		{Label: "norm", Kind: completion.KindFunction, Detail: "norm: (p: point) -> i32", InsertText: "norm("},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("Completion mismatch (-want +got):\n%s", diff)
	}

	// hover keeps answering from the last good analysis
	got := finder.Hover(doc, 12, 13)
	require.NotNil(t, got)
	assert.Equal(t, "```cpp2\nnorm: (p: point) -> i32\n```", got.Contents)
}

func TestSignatureHelp(t *testing.T) {
	finder := New(newIndex(t))
	doc := openDoc(t, mainText)

	tests := []struct {
		name      string
		line, col int
		want      *completion.Signature
	}{
		{
			name: "project function second argument", line: 11, col: 16,
			want: &completion.Signature{
				Label:           "add: (a: i32, b: i32) -> i32",
				Parameters:      []string{"a: i32", "b: i32"},
				ActiveParameter: 1,
			},
		},
		{
			name: "local function first argument", line: 12, col: 16,
			want: &completion.Signature{
				Label:      "norm: (p: point) -> i32",
				Parameters: []string{"p: point"},
			},
		},
		{name: "outside a call", line: 9, col: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finder.SignatureHelp(doc, tt.line, tt.col))
		})
	}
}

func TestDocumentSymbols(t *testing.T) {
	finder := New(nil)
	doc := openDoc(t, mainText)

	want := []DocumentSymbol{
		{
			Name: "point", Kind: symtab.DeclType, Line: 0, EndLine: 4,
			Children: []DocumentSymbol{
				{Name: "x", Kind: symtab.DeclObject, Detail: "i32", Line: 1, Column: 4, EndLine: 1},
				{Name: "y", Kind: symtab.DeclObject, Detail: "i32", Line: 2, Column: 4, EndLine: 2},
				{Name: "sum", Kind: symtab.DeclFunction, Detail: "sum: (this) -> i32", Line: 3, Column: 4, EndLine: 3},
			},
		},
		{Name: "norm", Kind: symtab.DeclFunction, Detail: "norm: (p: point) -> i32", Line: 6, EndLine: 6},
		{Name: "main", Kind: symtab.DeclFunction, Detail: "main: () -> int", Line: 8, EndLine: 13},
	}
	if diff := cmp.Diff(want, finder.DocumentSymbols(doc)); diff != "" {
		t.Errorf("DocumentSymbols mismatch (-want +got):\n%s", diff)
	}
}

func TestLineAt(t *testing.T) {
	text := "first\r\nsecond\nthird"
	assert.Equal(t, "first", lineAt(text, 0))
	assert.Equal(t, "second", lineAt(text, 1))
	assert.Equal(t, "third", lineAt(text, 2))
	assert.Equal(t, "", lineAt(text, 3))
}
