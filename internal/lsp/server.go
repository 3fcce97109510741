// Package lsp exposes the session over the Language Server Protocol.
package lsp

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/tender-barbarian/cpp2ls/internal/config"
	"github.com/tender-barbarian/cpp2ls/internal/indexer"
	"github.com/tender-barbarian/cpp2ls/internal/session"
)

const serverName = "cpp2ls"

// Server handles LSP requests. Until initialize names a workspace it serves
// open documents without a project index.
type Server struct {
	mu      sync.RWMutex
	session *session.Session

	cfg     config.Config
	version string
	logger  zerolog.Logger
	handler protocol.Handler
}

// New creates a server. When cfg.Root is set the project index is loaded
// during initialize.
func New(cfg config.Config, version string, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		version: version,
		logger:  logger.With().Str("component", "lsp").Logger(),
	}
	s.session = session.New(nil, s.sessionOptions()...)
	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.didOpen,
		TextDocumentDidChange:      s.didChange,
		TextDocumentDidClose:       s.didClose,
		TextDocumentDidSave:        s.didSave,
		TextDocumentHover:          s.hover,
		TextDocumentDefinition:     s.definition,
		TextDocumentReferences:     s.references,
		TextDocumentCompletion:     s.completion,
		TextDocumentSignatureHelp:  s.signatureHelp,
		TextDocumentDocumentSymbol: s.documentSymbol,
		WorkspaceSymbol:            s.workspaceSymbol,
	}
	return s
}

// RunStdio serves the protocol on stdin/stdout until the client exits.
func (s *Server) RunStdio() error {
	srv := glspserver.NewServer(&s.handler, serverName, false)
	return srv.RunStdio()
}

// Session returns the current session.
func (s *Server) Session() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Server) sessionOptions() []session.Option {
	return []session.Option{
		session.WithDocumentOptions(s.cfg.DocumentOptions(s.logger)...),
		session.WithLogger(s.logger),
	}
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	root := rootFromParams(params)
	if root == "" {
		root = s.cfg.Root
	}
	if root != "" {
		s.openWorkspace(root)
	}

	capabilities := s.handler.CreateServerCapabilities()
	openClose := true
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
		Save:      true,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", ":"},
	}
	capabilities.SignatureHelpProvider = &protocol.SignatureHelpOptions{
		TriggerCharacters: []string{"(", ","},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

// openWorkspace loads the project index for root and replaces the session.
// Failures leave the server without an index.
func (s *Server) openWorkspace(root string) {
	log := s.logger.With().Str("root", root).Logger()
	idx, err := s.cfg.WithRoot(root).NewIndexer(s.logger)
	if err != nil {
		log.Error().Err(err).Msg("creating index")
		return
	}
	stats, err := idx.Refresh()
	if err != nil {
		log.Error().Err(err).Msg("indexing workspace")
		return
	}
	log.Info().
		Int("files", stats.Files).
		Int("indexed", stats.Indexed).
		Int("symbols", stats.Symbols).
		Msg("workspace indexed")

	s.mu.Lock()
	s.session = session.New(idx, s.sessionOptions()...)
	s.mu.Unlock()
}

// rootFromParams returns the client's workspace root as a path: the root URI,
// else the first workspace folder, else the deprecated root path.
func rootFromParams(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		if p := indexer.URIToPath(*params.RootURI); p != "" {
			return p
		}
	}
	if len(params.WorkspaceFolders) > 0 {
		if p := indexer.URIToPath(params.WorkspaceFolders[0].URI); p != "" {
			return p
		}
	}
	if params.RootPath != nil {
		return *params.RootPath
	}
	return ""
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	s.logger.Debug().Msg("client initialized")
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	if idx := s.Session().Index(); idx != nil {
		if err := idx.Save(); err != nil {
			s.logger.Warn().Err(err).Msg("saving index on shutdown")
		}
	}
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
