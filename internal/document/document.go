// Package document holds the analysis state of one open file: the snapshot
// of the latest run, the last valid snapshot, and the rule choosing between
// them for queries.
package document

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tender-barbarian/cpp2ls/internal/cpp2"
	"github.com/tender-barbarian/cpp2ls/internal/resolver"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// StagingErrorMessage is reported when the text cannot be written to disk
// for the analyzer.
const StagingErrorMessage = "Failed to create temporary file for parsing"

// Analyzer turns a file on disk into a snapshot. A nil snapshot with a nil
// error means the file holds no cpp2 code.
type Analyzer interface {
	AnalyzeFile(path string) (*symtab.Snapshot, error)
}

// Selection names the snapshot a query reads.
type Selection int

const (
	UseNone Selection = iota
	UseCurrent
	UseCached
)

func (s Selection) String() string {
	switch s {
	case UseCurrent:
		return "current"
	case UseCached:
		return "cached"
	default:
		return "none"
	}
}

// Select prefers current, and falls back to cached when current is missing,
// has no declarations, or is invalid while cached has strictly more
// declarations.
func Select(current, cached *symtab.Snapshot) Selection {
	useCached := current == nil ||
		current.Empty() ||
		(!current.Valid() && cached.DeclCount() > current.DeclCount())
	switch {
	case !useCached:
		return UseCurrent
	case cached != nil:
		return UseCached
	default:
		return UseNone
	}
}

// Document is the state of one open file. It is not safe for concurrent use.
type Document struct {
	uri      string
	text     string
	current  *symtab.Snapshot
	cached   *symtab.Snapshot
	latest   *symtab.Snapshot
	errors   []symtab.ErrorEntry
	valid    bool
	analyzer Analyzer
	tempDir  string
	logger   zerolog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithAnalyzer replaces the cpp2 front end.
func WithAnalyzer(a Analyzer) Option {
	return func(d *Document) { d.analyzer = a }
}

// WithTempDir sets where the text is staged for analysis. Empty means the
// system temporary directory.
func WithTempDir(dir string) Option {
	return func(d *Document) { d.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Document) { d.logger = l.With().Str("component", "document").Logger() }
}

// New returns an empty document for uri. Call Update to analyze text.
func New(uri string, opts ...Option) *Document {
	d := &Document{
		uri:      uri,
		analyzer: cpp2.Frontend{},
		logger:   zerolog.Nop(),
		valid:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URI returns the document URI.
func (d *Document) URI() string { return d.uri }

// Text returns the last text passed to Update.
func (d *Document) Text() string { return d.text }

// Valid reports whether the last update produced no errors.
func (d *Document) Valid() bool { return d.valid }

// Errors returns the errors of the last update.
func (d *Document) Errors() []symtab.ErrorEntry { return d.errors }

// Update replaces the text and re-analyzes it. A valid, non-empty result
// becomes the cached snapshot and current is cleared. Failures of the
// analyzer never escape: they become a single internal error at (1,1) and
// leave the cached snapshot untouched.
func (d *Document) Update(text string) {
	d.text = text
	d.current = nil
	d.errors = nil
	d.valid = false

	path, err := d.stage(text)
	if err != nil {
		d.logger.Warn().Err(err).Str("uri", d.uri).Msg("staging document")
		d.errors = []symtab.ErrorEntry{internalError(StagingErrorMessage)}
		return
	}
	defer os.Remove(path)

	snap, err := d.analyze(path)
	if err != nil {
		d.logger.Error().Err(err).Str("uri", d.uri).Msg("analyzing document")
		d.errors = []symtab.ErrorEntry{internalError(err.Error())}
		return
	}
	if snap == nil {
		// nothing to analyze
		d.latest = nil
		d.valid = true
		return
	}

	d.latest = snap
	d.current = snap
	d.errors = snap.Errors
	d.valid = snap.Valid()
	if d.valid && !snap.Empty() {
		d.cached = snap
		d.current = nil
	}
	d.logger.Debug().
		Str("uri", d.uri).
		Bool("valid", d.valid).
		Int("decls", snap.DeclCount()).
		Int("errors", len(snap.Errors)).
		Str("selection", d.Selection().String()).
		Msg("document updated")
}

func internalError(msg string) symtab.ErrorEntry {
	return symtab.ErrorEntry{Pos: symtab.Position{Line: 1, Column: 1}, Message: msg, Internal: true}
}

// stage writes text to a fresh temporary file and returns its path.
func (d *Document) stage(text string) (string, error) {
	f, err := os.CreateTemp(d.tempDir, "cpp2ls-*.cpp2")
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}
	_, werr := f.WriteString(text)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing staging file: %w", err)
	}
	return f.Name(), nil
}

func (d *Document) analyze(path string) (snap *symtab.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("internal analyzer error: %v", r)
		}
	}()
	return d.analyzer.AnalyzeFile(path)
}

// Selection applies Select to the document's snapshots.
func (d *Document) Selection() Selection {
	return Select(d.current, d.cached)
}

// Active returns the snapshot queries should read, or nil.
func (d *Document) Active() *symtab.Snapshot {
	switch d.Selection() {
	case UseCurrent:
		return d.current
	case UseCached:
		return d.cached
	default:
		return nil
	}
}

// Latest returns the snapshot of the most recent analysis run, valid or not.
// Token-level scans that must follow the text being typed read it instead of
// Active.
func (d *Document) Latest() *symtab.Snapshot {
	if d.latest != nil {
		return d.latest
	}
	return d.Active()
}

// Diagnostics returns the errors in 0-based coordinates. Fallback errors are
// dropped when more than one error was reported.
func (d *Document) Diagnostics() []symtab.Diagnostic {
	out := make([]symtab.Diagnostic, 0, len(d.errors))
	for _, e := range d.errors {
		if e.Fallback && len(d.errors) > 1 {
			continue
		}
		line, col := resolver.ToExternal(e.Pos)
		out = append(out, symtab.Diagnostic{
			Line:     line,
			Column:   col,
			Message:  e.Message,
			Internal: e.Internal,
		})
	}
	return out
}

// IndexedSymbols projects the named global declarations of the active
// snapshot for the project index.
func (d *Document) IndexedSymbols() []symtab.IndexedSymbol {
	snap := d.Active()
	if snap == nil {
		return nil
	}
	return Project(d.uri, snap)
}

// Project returns the indexed symbols of snap's named global declarations.
func Project(uri string, snap *symtab.Snapshot) []symtab.IndexedSymbol {
	var out []symtab.IndexedSymbol
	for i := range snap.Decls {
		decl := &snap.Decls[i]
		if !decl.HasName() || !decl.IsGlobal() {
			continue
		}
		sym := symtab.IndexedSymbol{
			Name:    decl.Name,
			FileURI: uri,
		}
		sym.Line, sym.Column = resolver.ToExternal(decl.Pos)
		switch decl.Kind {
		case symtab.DeclFunction:
			sym.Kind = symtab.SymbolKindFunction
			sym.Signature = decl.Signature
		case symtab.DeclType:
			sym.Kind = symtab.SymbolKindType
		case symtab.DeclNamespace:
			sym.Kind = symtab.SymbolKindNamespace
		case symtab.DeclObject:
			sym.Kind = symtab.SymbolKindVariable
		case symtab.DeclAlias:
			sym.Kind = symtab.SymbolKindAlias
		default:
			continue
		}
		out = append(out, sym)
	}
	return out
}
