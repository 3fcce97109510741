package lsp

import (
	"errors"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/tender-barbarian/cpp2ls/internal/session"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

const diagnosticSource = "cpp2"

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug().Str("uri", uri).Msg("didOpen")
	diags := s.Session().Open(uri, params.TextDocument.Text)
	publishDiagnostics(ctx, uri, diags)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug().Str("uri", uri).Msg("didChange")
	sess := s.Session()

	text, ok := sess.Text(uri)
	if !ok {
		s.logger.Debug().Str("uri", uri).Msg("ignoring change to a document that is not open")
		return nil
	}
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
			} else {
				text = applyEdit(text, *c.Range, c.Text)
			}
		}
	}

	diags, err := sess.Change(uri, text)
	if errors.Is(err, session.ErrUnknownDocument) {
		return nil
	}
	if err != nil {
		return err
	}
	publishDiagnostics(ctx, uri, diags)
	return nil
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug().Str("uri", uri).Msg("didClose")
	publishDiagnostics(ctx, uri, nil)
	if err := s.Session().Close(uri); err != nil && !errors.Is(err, session.ErrUnknownDocument) {
		return err
	}
	return nil
}

func (s *Server) didSave(_ *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.logger.Debug().Str("uri", uri).Msg("didSave")
	if err := s.Session().Save(uri); err != nil && !errors.Is(err, session.ErrUnknownDocument) {
		s.logger.Warn().Err(err).Str("uri", uri).Msg("reindexing saved document")
	}
	return nil
}

// publishDiagnostics sends diags for uri. A nil slice clears them.
func publishDiagnostics(ctx *glsp.Context, uri string, diags []symtab.Diagnostic) {
	severity := protocol.DiagnosticSeverityError
	source := diagnosticSource
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		start := position(d.Line, d.Column)
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: position(d.Line, d.Column+1)},
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: out,
	})
}

// applyEdit replaces the 0-based range r of text. Characters are counted as
// bytes.
func applyEdit(text string, r protocol.Range, replacement string) string {
	start := offset(text, r.Start)
	end := offset(text, r.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + replacement + text[end:]
}

func offset(text string, p protocol.Position) int {
	off := 0
	for line := protocol.UInteger(0); line < p.Line; line++ {
		nl := strings.IndexByte(text[off:], '\n')
		if nl < 0 {
			return len(text)
		}
		off += nl + 1
	}
	lineEnd := len(text)
	if nl := strings.IndexByte(text[off:], '\n'); nl >= 0 {
		lineEnd = off + nl
	}
	return min(off+int(p.Character), lineEnd)
}

func position(line, col int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(max(line, 0)), Character: protocol.UInteger(max(col, 0))}
}
