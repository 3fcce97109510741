// Package config holds the runtime configuration shared by the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/indexer"
)

// Config is the server configuration.
type Config struct {
	// Root is the project directory to index. Empty disables the project
	// index until a client supplies a workspace root.
	Root string
	// CacheDir holds index.json. Relative paths are resolved against Root.
	CacheDir string
	// Extensions are the indexed file extensions, with their leading dot.
	Extensions []string
	// Exclude are doublestar patterns, relative to Root, of files to skip.
	Exclude []string
	// RespectGitignore skips files matched by Root/.gitignore.
	RespectGitignore bool
	// TempDir is where document text is staged for analysis.
	TempDir  string
	LogLevel string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		CacheDir:         ".cache/cpp2ls",
		Extensions:       append([]string(nil), indexer.DefaultExtensions...),
		RespectGitignore: true,
		LogLevel:         "info",
	}
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs []error
	if c.Root != "" {
		info, err := os.Stat(c.Root)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("root: %w", err))
		case !info.IsDir():
			errs = append(errs, fmt.Errorf("root %s is not a directory", c.Root))
		}
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("at least one extension is required"))
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid exclude pattern %q", p))
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithRoot returns a copy of c indexing root.
func (c Config) WithRoot(root string) Config {
	c.Root = root
	return c
}

// DocumentOptions returns the options for documents created under c.
func (c Config) DocumentOptions(logger zerolog.Logger) []document.Option {
	return []document.Option{document.WithTempDir(c.TempDir), document.WithLogger(logger)}
}

// NewIndexer returns an indexer for c.Root. The index is empty until loaded
// or scanned.
func (c Config) NewIndexer(logger zerolog.Logger) (*indexer.Indexer, error) {
	return indexer.New(c.Root,
		indexer.WithExtensions(c.Extensions...),
		indexer.WithExclude(c.Exclude...),
		indexer.WithGitignore(c.RespectGitignore),
		indexer.WithCacheDir(c.CacheDir),
		indexer.WithLogger(logger),
	)
}
