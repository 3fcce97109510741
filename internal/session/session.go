// Package session holds the process-wide state of the server: the open
// documents and the project index.
package session

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/finder"
	"github.com/tender-barbarian/cpp2ls/internal/indexer"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// ErrUnknownDocument is returned for operations on a URI that is not open.
var ErrUnknownDocument = errors.New("unknown document")

// handle serialises access to one document so no reader sees its snapshots
// mid-update.
type handle struct {
	mu  sync.Mutex
	doc *document.Document
}

// Session is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	docs    map[string]*handle
	index   *indexer.Indexer
	finder  *finder.Finder
	docOpts []document.Option
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithDocumentOptions sets the options every document is created with.
func WithDocumentOptions(opts ...document.Option) Option {
	return func(s *Session) { s.docOpts = append(s.docOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l.With().Str("component", "session").Logger() }
}

// New creates a session over idx, which may be nil.
func New(idx *indexer.Indexer, opts ...Option) *Session {
	s := &Session{
		docs:   make(map[string]*handle),
		index:  idx,
		finder: finder.New(idx),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.docOpts = append(s.docOpts, document.WithLogger(s.logger))
	return s
}

// Index returns the project index, or nil.
func (s *Session) Index() *indexer.Indexer { return s.index }

// Finder returns the query layer.
func (s *Session) Finder() *finder.Finder { return s.finder }

// Open analyzes text as the content of uri and returns its diagnostics. An
// already open document is replaced.
func (s *Session) Open(uri, text string) []symtab.Diagnostic {
	h := &handle{doc: document.New(uri, s.docOpts...)}
	h.mu.Lock()
	defer h.mu.Unlock()

	s.mu.Lock()
	s.docs[uri] = h
	s.mu.Unlock()

	return s.update(h, text)
}

// Change re-analyzes an open document with its new full text.
func (s *Session) Change(uri, text string) ([]symtab.Diagnostic, error) {
	h, ok := s.handle(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return s.update(h, text), nil
}

// update runs the document update and projects its symbols into the index.
// The caller holds h.mu.
func (s *Session) update(h *handle, text string) []symtab.Diagnostic {
	h.doc.Update(text)
	if s.index != nil {
		s.index.UpdateFile(h.doc.URI(), s.now().UnixNano(), h.doc.IndexedSymbols())
	}
	return h.doc.Diagnostics()
}

// Close forgets an open document. Its index entry is re-derived from disk
// when the file belongs to the project, and dropped otherwise.
func (s *Session) Close(uri string) error {
	s.mu.Lock()
	_, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	if s.index == nil {
		return nil
	}
	if !s.index.Covers(uri) {
		s.index.RemoveFile(uri)
		return nil
	}
	if err := s.index.ReindexFile(uri); err != nil {
		s.logger.Warn().Err(err).Str("uri", uri).Msg("reindexing closed document")
		s.index.RemoveFile(uri)
	}
	return nil
}

// Save re-derives the index entry of a saved project file from disk and
// persists the index.
func (s *Session) Save(uri string) error {
	if _, ok := s.handle(uri); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	if s.index == nil || !s.index.Covers(uri) {
		return nil
	}
	if err := s.index.ReindexFile(uri); err != nil {
		return err
	}
	if err := s.index.Save(); err != nil && !errors.Is(err, indexer.ErrNoRoot) {
		return fmt.Errorf("saving index: %w", err)
	}
	return nil
}

// Query runs fn with the document for uri while holding its lock. A URI that
// is not open but names a readable file is analyzed from disk for this call
// only.
func (s *Session) Query(uri string, fn func(*document.Document)) error {
	if h, ok := s.handle(uri); ok {
		h.mu.Lock()
		defer h.mu.Unlock()
		fn(h.doc)
		return nil
	}
	path := indexer.URIToPath(uri)
	if path == "" {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	doc := document.New(uri, s.docOpts...)
	doc.Update(string(data))
	fn(doc)
	return nil
}

// Text returns the text of an open document. ok is false when uri is not
// open; closed files are not read from disk.
func (s *Session) Text(uri string) (text string, ok bool) {
	h, ok := s.handle(uri)
	if !ok {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Text(), true
}

// Diagnostics returns the diagnostics of an open document.
func (s *Session) Diagnostics(uri string) ([]symtab.Diagnostic, error) {
	var diags []symtab.Diagnostic
	err := s.Query(uri, func(doc *document.Document) { diags = doc.Diagnostics() })
	return diags, err
}

// Documents returns the URIs of the open documents, sorted.
func (s *Session) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func (s *Session) handle(uri string) (*handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.docs[uri]
	return h, ok
}
