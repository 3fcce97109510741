package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// cacheVersion tags the persisted layout. Any other tag forces a full rescan.
const cacheVersion = "1"

var (
	// ErrNoCache is returned by Load when no cache file exists.
	ErrNoCache = errors.New("no index cache")
	// ErrVersionMismatch is returned by Load when the cache was written with
	// another layout.
	ErrVersionMismatch = errors.New("index cache version mismatch")
)

type cacheRecord struct {
	Version string             `json:"version"`
	Files   []symtab.FileIndex `json:"files"`
}

// CachePath returns the location of the persisted index.
func (idx *Indexer) CachePath() string {
	return filepath.Join(idx.cacheDir, "index.json")
}

// Load replaces the index with the persisted one. On any error the index is
// left unchanged.
func (idx *Indexer) Load() error {
	if idx.root == "" {
		return ErrNoRoot
	}
	data, err := os.ReadFile(idx.CachePath())
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoCache
	}
	if err != nil {
		return fmt.Errorf("reading index cache: %w", err)
	}
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parsing index cache: %w", err)
	}
	if rec.Version != cacheVersion {
		return fmt.Errorf("%w: found %q, want %q", ErrVersionMismatch, rec.Version, cacheVersion)
	}

	files := make(map[string]*symtab.FileIndex, len(rec.Files))
	for i := range rec.Files {
		f := &rec.Files[i]
		for j := range f.Symbols {
			f.Symbols[j].FileURI = f.URI
			f.Symbols[j].Kind = symtab.ParseSymbolKind(string(f.Symbols[j].Kind))
		}
		files[f.URI] = f
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.files = files
	idx.rebuild()
	idx.dirty = false
	idx.logger.Debug().Int("files", len(files)).Str("path", idx.CachePath()).Msg("index cache loaded")
	return nil
}

// Save writes the index to the cache file when it changed since the last
// Load or Save.
func (idx *Indexer) Save() error {
	if idx.root == "" {
		return ErrNoRoot
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	rec := cacheRecord{Version: cacheVersion, Files: make([]symtab.FileIndex, 0, len(idx.files))}
	for _, uri := range idx.sortedURIs() {
		rec.Files = append(rec.Files, *idx.files[uri])
	}

	p := idx.CachePath()
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("creating index cache dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index cache: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("writing index cache: %w", err)
	}
	idx.dirty = false
	return nil
}
