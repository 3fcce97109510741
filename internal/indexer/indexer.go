// Package indexer maintains the project-wide index of global cpp2
// declarations: one entry per file plus a name lookup derived from them.
package indexer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dghubble/trie"
	"github.com/rs/zerolog"

	"github.com/tender-barbarian/cpp2ls/internal/cpp2"
	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// ErrNoRoot is returned by operations that need a project root when none is set.
var ErrNoRoot = errors.New("no project root")

// DefaultExtensions are the file extensions indexed when none are configured.
var DefaultExtensions = []string{".cpp2", ".h2"}

// Indexer holds the per-file symbol entries of a project and the name trie
// built from them. The trie is only ever rebuilt from the file map.
type Indexer struct {
	mu    sync.RWMutex
	files map[string]*symtab.FileIndex
	names *trie.RuneTrie
	dirty bool

	root             string
	cacheDir         string
	extensions       []string
	exclude          []string
	respectGitignore bool
	analyzer         document.Analyzer
	logger           zerolog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithExtensions sets the file extensions to index, each with its leading dot.
func WithExtensions(exts ...string) Option {
	return func(idx *Indexer) {
		if len(exts) > 0 {
			idx.extensions = exts
		}
	}
}

// WithExclude adds doublestar patterns, relative to the root, of files to skip.
func WithExclude(patterns ...string) Option {
	return func(idx *Indexer) { idx.exclude = append(idx.exclude, patterns...) }
}

// WithGitignore makes discovery skip files matched by the root .gitignore.
func WithGitignore(respect bool) Option {
	return func(idx *Indexer) { idx.respectGitignore = respect }
}

// WithAnalyzer replaces the cpp2 front end used for files on disk.
func WithAnalyzer(a document.Analyzer) Option {
	return func(idx *Indexer) { idx.analyzer = a }
}

// WithCacheDir sets the directory holding index.json. Relative paths are
// resolved against the root.
func WithCacheDir(dir string) Option {
	return func(idx *Indexer) { idx.cacheDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(idx *Indexer) { idx.logger = l.With().Str("component", "indexer").Logger() }
}

// New creates an Indexer rooted at rootPath. An empty rootPath yields an index
// that only holds entries added with UpdateFile. Call Index to scan the root.
func New(rootPath string, opts ...Option) (*Indexer, error) {
	idx := &Indexer{
		files:      make(map[string]*symtab.FileIndex),
		names:      trie.NewRuneTrie(),
		extensions: DefaultExtensions,
		analyzer:   cpp2.Frontend{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if rootPath == "" {
		return idx, nil
	}
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}
	idx.root = absRoot
	switch {
	case idx.cacheDir == "":
		idx.cacheDir = filepath.Join(absRoot, ".cache", "cpp2ls")
	case !filepath.IsAbs(idx.cacheDir):
		idx.cacheDir = filepath.Join(absRoot, idx.cacheDir)
	}
	return idx, nil
}

// Root returns the absolute project root, or "" when none is set.
func (idx *Indexer) Root() string { return idx.root }

// Stats summarises one Index run.
type Stats struct {
	Files   int `json:"files"`
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
	Symbols int `json:"symbols"`
}

// Index scans the root and re-derives the entries of files that are new or
// whose modification time advanced. Entries of files no longer found are
// removed. The name trie is rebuilt when anything changed.
func (idx *Indexer) Index() (Stats, error) {
	if idx.root == "" {
		return Stats{}, ErrNoRoot
	}
	paths, err := idx.discover()
	if err != nil {
		return Stats{}, err
	}

	type result struct {
		uri   string
		entry *symtab.FileIndex
	}
	var fresh []result
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		uri := PathToURI(path)
		seen[uri] = true
		info, err := os.Stat(path)
		if err != nil {
			idx.logger.Debug().Err(err).Str("path", path).Msg("skipping file")
			continue
		}
		mtime := info.ModTime().UnixNano()
		if !idx.NeedsReindex(uri, mtime) {
			continue
		}
		syms, err := idx.analyzeFile(uri, path)
		if err != nil {
			idx.logger.Warn().Err(err).Str("path", path).Msg("indexing file")
			continue
		}
		fresh = append(fresh, result{uri: uri, entry: &symtab.FileIndex{URI: uri, MTime: mtime, Symbols: syms}})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	stats := Stats{Files: len(paths), Indexed: len(fresh)}
	for _, r := range fresh {
		idx.files[r.uri] = r.entry
	}
	for uri := range idx.files {
		if seen[uri] {
			continue
		}
		if path := URIToPath(uri); path != "" && isUnderRoot(path, idx.root) {
			delete(idx.files, uri)
			stats.Removed++
		}
	}
	if stats.Indexed > 0 || stats.Removed > 0 {
		idx.rebuild()
		idx.dirty = true
	}
	for _, f := range idx.files {
		stats.Symbols += len(f.Symbols)
	}
	idx.logger.Info().
		Int("files", stats.Files).
		Int("indexed", stats.Indexed).
		Int("removed", stats.Removed).
		Msg("index scan complete")
	return stats, nil
}

// Refresh loads the on-disk cache, rescans the root and saves the cache when
// the scan changed anything. A missing or outdated cache only means a full
// scan.
func (idx *Indexer) Refresh() (Stats, error) {
	if err := idx.Load(); err != nil {
		switch {
		case errors.Is(err, ErrNoCache):
		case errors.Is(err, ErrVersionMismatch):
			idx.logger.Info().Msg("index cache version changed, rescanning")
		default:
			idx.logger.Warn().Err(err).Msg("loading index cache")
		}
	}
	stats, err := idx.Index()
	if err != nil {
		return stats, err
	}
	if err := idx.Save(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (idx *Indexer) analyzeFile(uri, path string) (syms []symtab.IndexedSymbol, err error) {
	defer func() {
		if r := recover(); r != nil {
			syms, err = nil, fmt.Errorf("internal analyzer error: %v", r)
		}
	}()
	snap, err := idx.analyzer.AnalyzeFile(path)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	return document.Project(uri, snap), nil
}

// NeedsReindex reports whether the entry for uri is missing or older than mtime.
func (idx *Indexer) NeedsReindex(uri string, mtime int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	f, ok := idx.files[uri]
	return !ok || f.MTime < mtime
}

// UpdateFile replaces the entry for uri.
func (idx *Indexer) UpdateFile(uri string, mtime int64, symbols []symtab.IndexedSymbol) {
	entry := &symtab.FileIndex{URI: uri, MTime: mtime, Symbols: make([]symtab.IndexedSymbol, len(symbols))}
	copy(entry.Symbols, symbols)
	for i := range entry.Symbols {
		entry.Symbols[i].FileURI = uri
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.files[uri] = entry
	idx.rebuild()
	idx.dirty = true
}

// ReindexFile re-derives the entry for uri from the file on disk. The entry is
// removed when the file no longer exists.
func (idx *Indexer) ReindexFile(uri string) error {
	path := URIToPath(uri)
	if path == "" {
		return fmt.Errorf("not a file URI: %s", uri)
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		idx.RemoveFile(uri)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	syms, err := idx.analyzeFile(uri, path)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	idx.UpdateFile(uri, info.ModTime().UnixNano(), syms)
	return nil
}

// RemoveFile drops the entry for uri.
func (idx *Indexer) RemoveFile(uri string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.files[uri]; !ok {
		return
	}
	delete(idx.files, uri)
	idx.rebuild()
	idx.dirty = true
}

// Covers reports whether the file at uri lies under the root and would be
// picked up by a scan.
func (idx *Indexer) Covers(uri string) bool {
	path := URIToPath(uri)
	if path == "" || idx.root == "" || !isUnderRoot(path, idx.root) {
		return false
	}
	rel, err := filepath.Rel(idx.root, path)
	if err != nil {
		return false
	}
	return !hasHiddenSegment(rel) && idx.hasExtension(path) && !idx.excluded(rel)
}

// File returns the entry for uri, or nil.
func (idx *Indexer) File(uri string) *symtab.FileIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.files[uri]
}

// FileCount returns the number of indexed files.
func (idx *Indexer) FileCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}

// Dirty reports whether the index changed since it was last loaded or saved.
func (idx *Indexer) Dirty() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dirty
}

// Lookup returns every symbol named name across all files.
func (idx *Indexer) Lookup(name string) []symtab.IndexedSymbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	v, ok := idx.names.Get(name).([]*symtab.IndexedSymbol)
	if !ok {
		return nil
	}
	out := make([]symtab.IndexedSymbol, len(v))
	for i, s := range v {
		out[i] = *s
	}
	return out
}

// LookupFunction returns the first function named name, or nil.
func (idx *Indexer) LookupFunction(name string) *symtab.IndexedSymbol {
	for _, s := range idx.Lookup(name) {
		if s.Kind == symtab.SymbolKindFunction {
			return &s
		}
	}
	return nil
}

// Match returns the symbols whose name satisfies match, ordered by name, then
// file, then position.
func (idx *Indexer) Match(match func(name string) bool) []symtab.IndexedSymbol {
	idx.mu.RLock()
	var out []symtab.IndexedSymbol
	_ = idx.names.Walk(func(name string, value interface{}) error {
		if !match(name) {
			return nil
		}
		for _, s := range value.([]*symtab.IndexedSymbol) {
			out = append(out, *s)
		}
		return nil
	})
	idx.mu.RUnlock()
	sortSymbols(out)
	return out
}

// AllSymbols returns every indexed symbol, ordered by file, then position.
func (idx *Indexer) AllSymbols() []symtab.IndexedSymbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []symtab.IndexedSymbol
	for _, uri := range idx.sortedURIs() {
		out = append(out, idx.files[uri].Symbols...)
	}
	return out
}

// rebuild derives the name trie from the file map. The caller holds mu.
func (idx *Indexer) rebuild() {
	names := trie.NewRuneTrie()
	for _, uri := range idx.sortedURIs() {
		f := idx.files[uri]
		for i := range f.Symbols {
			s := &f.Symbols[i]
			prev, _ := names.Get(s.Name).([]*symtab.IndexedSymbol)
			names.Put(s.Name, append(prev, s))
		}
	}
	idx.names = names
}

func (idx *Indexer) sortedURIs() []string {
	uris := make([]string, 0, len(idx.files))
	for uri := range idx.files {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func sortSymbols(syms []symtab.IndexedSymbol) {
	sort.SliceStable(syms, func(i, j int) bool {
		a, b := syms[i], syms[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.FileURI != b.FileURI {
			return a.FileURI < b.FileURI
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}
