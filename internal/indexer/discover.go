package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// discover returns the absolute paths of the project's source files, sorted.
// Paths with a hidden segment, paths ignored by the root .gitignore and paths
// matching an exclude pattern are skipped.
func (idx *Indexer) discover() ([]string, error) {
	var gi *ignore.GitIgnore
	if idx.respectGitignore {
		gi = loadGitignore(idx.root)
	}

	var files []string
	err := filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			idx.logger.Debug().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if path == idx.root {
			return nil
		}
		rel, err := filepath.Rel(idx.root, path)
		if err != nil {
			return nil
		}
		if hasHiddenSegment(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !idx.hasExtension(path) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if idx.excluded(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", idx.root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (idx *Indexer) hasExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range idx.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// excluded reports whether the slash-separated relative path matches one of
// the exclude globs. Invalid patterns never match.
func (idx *Indexer) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range idx.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
