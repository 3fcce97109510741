package indexer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/tender-barbarian/cpp2ls/internal/cpp2"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

const workspace = `
-- src/geometry.cpp2 --
point: type = {
    x: i32 = 0;
}

distance: (a: point, b: point) -> i32 = a.x - b.x;
-- src/main.cpp2 --
main: () -> int = {
    return 0;
}
origin: i32 = 0;
-- include/util.h2 --
util: namespace = {
    twice: (v: i32) -> i32 = v * 2;
}
-- .hidden/secret.cpp2 --
secret: () = { }
-- build/generated/gen.cpp2 --
gen: () = { }
-- ignored/skip.cpp2 --
skip: () = { }
-- .gitignore --
ignored/
-- notes.txt --
notes: () = { }
`

// writeWorkspace materialises a txtar archive under a fresh temp dir.
func writeWorkspace(t *testing.T, archive string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		p := filepath.Join(root, filepath.FromSlash(f.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, f.Data, 0o600))
	}
	return root
}

// countingAnalyzer records which files were analyzed.
type countingAnalyzer struct {
	mu    sync.Mutex
	paths []string
}

func (c *countingAnalyzer) AnalyzeFile(path string) (*symtab.Snapshot, error) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	return cpp2.Frontend{}.AnalyzeFile(path)
}

func (c *countingAnalyzer) reset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.paths)
	c.paths = nil
	return n
}

type nameKind struct {
	Name string
	Kind symtab.SymbolKind
}

func nameKinds(syms []symtab.IndexedSymbol) []nameKind {
	out := make([]nameKind, 0, len(syms))
	for _, s := range syms {
		out = append(out, nameKind{s.Name, s.Kind})
	}
	return out
}

func newTestIndexer(t *testing.T, root string, opts ...Option) *Indexer {
	t.Helper()
	opts = append([]Option{WithGitignore(true), WithExclude("build/**")}, opts...)
	idx, err := New(root, opts...)
	require.NoError(t, err)
	return idx
}

func TestIndexDiscovery(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)

	stats, err := idx.Index()
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Indexed: 3, Symbols: 5}, stats)
	assert.True(t, idx.Dirty())

	want := []nameKind{
		{"util", symtab.SymbolKindNamespace},
		{"point", symtab.SymbolKindType},
		{"distance", symtab.SymbolKindFunction},
		{"main", symtab.SymbolKindFunction},
		{"origin", symtab.SymbolKindVariable},
	}
	if diff := cmp.Diff(want, nameKinds(idx.AllSymbols())); diff != "" {
		t.Errorf("AllSymbols mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"secret", "gen", "skip", "notes", "twice", "x"} {
		assert.Empty(t, idx.Lookup(name), name)
	}
}

func TestIndexWithoutGitignore(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx, err := New(root)
	require.NoError(t, err)

	stats, err := idx.Index()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Files)
	assert.Len(t, idx.Lookup("skip"), 1)
	assert.Len(t, idx.Lookup("gen"), 1)
	assert.Empty(t, idx.Lookup("secret"))
}

func TestLookup(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)
	_, err := idx.Index()
	require.NoError(t, err)

	got := idx.Lookup("distance")
	require.Len(t, got, 1)
	assert.Equal(t, symtab.IndexedSymbol{
		Name:      "distance",
		Kind:      symtab.SymbolKindFunction,
		Signature: "distance: (a: point, b: point) -> i32",
		FileURI:   PathToURI(filepath.Join(root, "src", "geometry.cpp2")),
		Line:      4,
		Column:    0,
	}, got[0])

	fn := idx.LookupFunction("main")
	require.NotNil(t, fn)
	assert.Equal(t, "main: () -> int", fn.Signature)

	assert.Nil(t, idx.LookupFunction("point"))
	assert.Nil(t, idx.Lookup("missing"))
}

func TestLookupAcrossFiles(t *testing.T) {
	root := writeWorkspace(t, `
-- a.cpp2 --
helper: () = { }
-- b.cpp2 --
helper: type = { }
`)
	idx := newTestIndexer(t, root)
	_, err := idx.Index()
	require.NoError(t, err)

	got := nameKinds(idx.Lookup("helper"))
	assert.ElementsMatch(t, []nameKind{
		{"helper", symtab.SymbolKindFunction},
		{"helper", symtab.SymbolKindType},
	}, got)

	fn := idx.LookupFunction("helper")
	require.NotNil(t, fn)
	assert.True(t, strings.HasSuffix(fn.FileURI, "/a.cpp2"))
}

func TestIndexStaleness(t *testing.T) {
	root := writeWorkspace(t, workspace)
	counter := &countingAnalyzer{}
	idx := newTestIndexer(t, root, WithAnalyzer(counter))

	_, err := idx.Index()
	require.NoError(t, err)
	assert.Equal(t, 3, counter.reset())

	geometry := filepath.Join(root, "src", "geometry.cpp2")
	uri := PathToURI(geometry)
	before := idx.File(uri)
	require.NotNil(t, before)
	require.NoError(t, idx.Save())

	stats, err := idx.Index()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Indexed)
	assert.Equal(t, 0, counter.reset())
	assert.Same(t, before, idx.File(uri))
	assert.False(t, idx.Dirty())

	src, err := os.ReadFile(geometry)
	require.NoError(t, err)
	src = append(src, []byte("scale: (p: point, k: i32) -> point = p;\n")...)
	require.NoError(t, os.WriteFile(geometry, src, 0o600))
	later := time.Unix(0, before.MTime).Add(time.Second)
	require.NoError(t, os.Chtimes(geometry, later, later))

	stats, err = idx.Index()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, []string{geometry}, counter.paths)
	assert.NotSame(t, before, idx.File(uri))
	assert.Equal(t, later.UnixNano(), idx.File(uri).MTime)
	assert.Len(t, idx.Lookup("scale"), 1)
	assert.True(t, idx.Dirty())
}

func TestIndexRemovesVanishedFiles(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)
	_, err := idx.Index()
	require.NoError(t, err)
	require.Len(t, idx.Lookup("origin"), 1)

	require.NoError(t, os.Remove(filepath.Join(root, "src", "main.cpp2")))
	stats, err := idx.Index()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, idx.Lookup("origin"))
	assert.Empty(t, idx.Lookup("main"))
	assert.Len(t, idx.Lookup("point"), 1)
}

func TestIndexKeepsEntriesOutsideRoot(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)
	outside := "file:///elsewhere/scratch.cpp2"
	idx.UpdateFile(outside, 1, []symtab.IndexedSymbol{{Name: "scratch", Kind: symtab.SymbolKindFunction}})

	_, err := idx.Index()
	require.NoError(t, err)
	assert.Len(t, idx.Lookup("scratch"), 1)
}

func TestCacheRoundTrip(t *testing.T) {
	root := writeWorkspace(t, workspace)
	first := newTestIndexer(t, root)
	_, err := first.Index()
	require.NoError(t, err)
	require.NoError(t, first.Save())
	assert.False(t, first.Dirty())
	assert.FileExists(t, filepath.Join(root, ".cache", "cpp2ls", "index.json"))

	counter := &countingAnalyzer{}
	second := newTestIndexer(t, root, WithAnalyzer(counter))
	require.NoError(t, second.Load())
	assert.False(t, second.Dirty())

	for _, s := range first.AllSymbols() {
		if diff := cmp.Diff(first.Lookup(s.Name), second.Lookup(s.Name)); diff != "" {
			t.Errorf("Lookup(%q) mismatch (-saved +loaded):\n%s", s.Name, diff)
		}
	}

	stats, err := second.Index()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Indexed)
	assert.Equal(t, 0, counter.reset())
}

func TestLoadErrors(t *testing.T) {
	root := t.TempDir()
	idx, err := New(root)
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Load(), ErrNoCache)

	require.NoError(t, os.MkdirAll(filepath.Dir(idx.CachePath()), 0o750))
	require.NoError(t, os.WriteFile(idx.CachePath(), []byte(`{"version":"0","files":[]}`), 0o600))
	assert.ErrorIs(t, idx.Load(), ErrVersionMismatch)

	require.NoError(t, os.WriteFile(idx.CachePath(), []byte(`{not json`), 0o600))
	err = idx.Load()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoCache) || errors.Is(err, ErrVersionMismatch))
}

func TestRefreshRecoversFromBadCache(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)
	require.NoError(t, os.MkdirAll(filepath.Dir(idx.CachePath()), 0o750))
	require.NoError(t, os.WriteFile(idx.CachePath(), []byte(`{"version":"0","files":[]}`), 0o600))

	stats, err := idx.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Indexed)
	assert.False(t, idx.Dirty())

	data, err := os.ReadFile(idx.CachePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1"`)
}

func TestSaveOnlyWhenDirty(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)
	_, err := idx.Index()
	require.NoError(t, err)
	require.NoError(t, idx.Save())
	require.NoError(t, os.Remove(idx.CachePath()))

	require.NoError(t, idx.Save())
	assert.NoFileExists(t, idx.CachePath())
}

func TestNoRoot(t *testing.T) {
	idx, err := New("")
	require.NoError(t, err)
	_, err = idx.Index()
	assert.ErrorIs(t, err, ErrNoRoot)
	assert.ErrorIs(t, idx.Load(), ErrNoRoot)
	assert.ErrorIs(t, idx.Save(), ErrNoRoot)
}

func TestUpdateAndRemoveFile(t *testing.T) {
	idx, err := New("")
	require.NoError(t, err)
	uri := "file:///ws/a.cpp2"

	assert.True(t, idx.NeedsReindex(uri, 10))
	idx.UpdateFile(uri, 10, []symtab.IndexedSymbol{
		{Name: "f", Kind: symtab.SymbolKindFunction, Signature: "f: ()"},
		{Name: "v", Kind: symtab.SymbolKindVariable, Line: 2},
	})
	assert.False(t, idx.NeedsReindex(uri, 10))
	assert.True(t, idx.NeedsReindex(uri, 11))

	got := idx.Lookup("v")
	require.Len(t, got, 1)
	assert.Equal(t, uri, got[0].FileURI)
	assert.Equal(t, 1, idx.FileCount())

	idx.UpdateFile(uri, 12, []symtab.IndexedSymbol{{Name: "g", Kind: symtab.SymbolKindFunction}})
	assert.Empty(t, idx.Lookup("f"))
	assert.Len(t, idx.Lookup("g"), 1)

	idx.RemoveFile(uri)
	assert.Empty(t, idx.Lookup("g"))
	assert.Equal(t, 0, idx.FileCount())
}

func TestReindexFile(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)
	path := filepath.Join(root, "src", "main.cpp2")
	uri := PathToURI(path)

	require.NoError(t, idx.ReindexFile(uri))
	assert.Len(t, idx.Lookup("origin"), 1)

	require.NoError(t, os.Remove(path))
	require.NoError(t, idx.ReindexFile(uri))
	assert.Empty(t, idx.Lookup("origin"))

	assert.Error(t, idx.ReindexFile("untitled:1"))
}

func TestMatch(t *testing.T) {
	idx, err := New("")
	require.NoError(t, err)
	idx.UpdateFile("file:///b.cpp2", 1, []symtab.IndexedSymbol{{Name: "parse_line"}, {Name: "print"}})
	idx.UpdateFile("file:///a.cpp2", 1, []symtab.IndexedSymbol{{Name: "parse"}, {Name: "parse_line", Line: 3}})

	got := idx.Match(func(name string) bool { return strings.HasPrefix(name, "parse") })
	want := []symtab.IndexedSymbol{
		{Name: "parse", FileURI: "file:///a.cpp2"},
		{Name: "parse_line", FileURI: "file:///a.cpp2", Line: 3},
		{Name: "parse_line", FileURI: "file:///b.cpp2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Match mismatch (-want +got):\n%s", diff)
	}
}

func TestCovers(t *testing.T) {
	root := writeWorkspace(t, workspace)
	idx := newTestIndexer(t, root)

	tests := []struct {
		name string
		uri  string
		want bool
	}{
		{"source file", PathToURI(filepath.Join(root, "src", "main.cpp2")), true},
		{"header", PathToURI(filepath.Join(root, "include", "x.h2")), true},
		{"hidden dir", PathToURI(filepath.Join(root, ".hidden", "secret.cpp2")), false},
		{"excluded", PathToURI(filepath.Join(root, "build", "generated", "gen.cpp2")), false},
		{"other extension", PathToURI(filepath.Join(root, "notes.txt")), false},
		{"outside root", "file:///elsewhere/a.cpp2", false},
		{"not a file", "untitled:Untitled-1", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, idx.Covers(tc.uri))
		})
	}
}

func TestIsUnderRoot(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		root     string
		expected bool
	}{
		{"direct child", "/root/foo.cpp2", "/root", true},
		{"nested child", "/root/src/sub/foo.cpp2", "/root", true},
		{"sibling dir", "/other/foo.cpp2", "/root", false},
		{"parent dir", "/foo.cpp2", "/root", false},
		{"root itself", "/root", "/root", true},
		{"dot-dot named child", "/root/..foo.cpp2", "/root", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isUnderRoot(tc.path, tc.root))
		})
	}
}

func TestURIConversion(t *testing.T) {
	tests := []struct {
		path string
		uri  string
	}{
		{"/ws/src/main.cpp2", "file:///ws/src/main.cpp2"},
		{"/ws/my dir/a.h2", "file:///ws/my%20dir/a.h2"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.uri, PathToURI(tc.path))
			assert.Equal(t, tc.path, URIToPath(tc.uri))
		})
	}
	assert.Equal(t, "", URIToPath("untitled:Untitled-1"))
	assert.Equal(t, "", URIToPath("%zz"))
}

func TestHasHiddenSegment(t *testing.T) {
	assert.True(t, hasHiddenSegment(".git/config"))
	assert.True(t, hasHiddenSegment("src/.cache/index.json"))
	assert.False(t, hasHiddenSegment("src/main.cpp2"))
	assert.False(t, hasHiddenSegment("."))
}
