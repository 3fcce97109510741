package lsp

import (
	"errors"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/tender-barbarian/cpp2ls/internal/completion"
	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/finder"
	"github.com/tender-barbarian/cpp2ls/internal/resolver"
	"github.com/tender-barbarian/cpp2ls/internal/session"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// query runs fn against the document at uri. Unknown documents yield no
// answer rather than an error.
func (s *Server) query(uri string, fn func(*document.Document, *finder.Finder)) error {
	sess := s.Session()
	err := sess.Query(uri, func(doc *document.Document) { fn(doc, sess.Finder()) })
	if errors.Is(err, session.ErrUnknownDocument) {
		return nil
	}
	return err
}

func (s *Server) logRequest(method string, pos protocol.TextDocumentPositionParams) {
	s.logger.Debug().
		Str("method", method).
		Str("uri", pos.TextDocument.URI).
		Uint32("line", pos.Position.Line).
		Uint32("character", pos.Position.Character).
		Msg("request")
}

func (s *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.logRequest("hover", params.TextDocumentPositionParams)
	line, col := int(params.Position.Line), int(params.Position.Character)
	var out *protocol.Hover
	err := s.query(params.TextDocument.URI, func(doc *document.Document, f *finder.Finder) {
		h := f.Hover(doc, line, col)
		if h == nil {
			return
		}
		r := lspRange(h.Range)
		out = &protocol.Hover{
			Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: h.Contents},
			Range:    &r,
		}
	})
	return out, err
}

func (s *Server) definition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	s.logRequest("definition", params.TextDocumentPositionParams)
	line, col := int(params.Position.Line), int(params.Position.Character)
	var out any
	err := s.query(params.TextDocument.URI, func(doc *document.Document, f *finder.Finder) {
		if loc := f.Definition(doc, line, col); loc != nil {
			out = lspLocation(*loc, 1)
		}
	})
	return out, err
}

func (s *Server) references(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.logRequest("references", params.TextDocumentPositionParams)
	line, col := int(params.Position.Line), int(params.Position.Character)
	var out []protocol.Location
	err := s.query(params.TextDocument.URI, func(doc *document.Document, f *finder.Finder) {
		locs := f.References(doc, line, col, params.Context.IncludeDeclaration)
		if len(locs) == 0 {
			return
		}
		// every reference names the same declaration, so they share a width
		width := 1
		if snap := doc.Active(); snap != nil {
			if t := resolver.FindTokenAt(snap, resolver.ToInternal(line, col)); t != nil {
				width = t.Length
			}
		}
		out = make([]protocol.Location, 0, len(locs))
		for _, l := range locs {
			out = append(out, lspLocation(l, width))
		}
	})
	return out, err
}

func (s *Server) completion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	s.logRequest("completion", params.TextDocumentPositionParams)
	line, col := int(params.Position.Line), int(params.Position.Character)
	var out any
	err := s.query(params.TextDocument.URI, func(doc *document.Document, f *finder.Finder) {
		items := f.Completion(doc, line, col)
		if len(items) == 0 {
			return
		}
		list := make([]protocol.CompletionItem, 0, len(items))
		for _, it := range items {
			list = append(list, completionItem(it))
		}
		out = list
	})
	return out, err
}

func (s *Server) signatureHelp(_ *glsp.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	s.logRequest("signatureHelp", params.TextDocumentPositionParams)
	line, col := int(params.Position.Line), int(params.Position.Character)
	var out *protocol.SignatureHelp
	err := s.query(params.TextDocument.URI, func(doc *document.Document, f *finder.Finder) {
		sig := f.SignatureHelp(doc, line, col)
		if sig == nil {
			return
		}
		paramsInfo := make([]protocol.ParameterInformation, 0, len(sig.Parameters))
		for _, p := range sig.Parameters {
			paramsInfo = append(paramsInfo, protocol.ParameterInformation{Label: p})
		}
		active := protocol.UInteger(sig.ActiveParameter)
		first := protocol.UInteger(0)
		out = &protocol.SignatureHelp{
			Signatures: []protocol.SignatureInformation{{
				Label:      sig.Label,
				Parameters: paramsInfo,
			}},
			ActiveSignature: &first,
			ActiveParameter: &active,
		}
	})
	return out, err
}

func (s *Server) documentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	var out any
	err := s.query(params.TextDocument.URI, func(doc *document.Document, f *finder.Finder) {
		syms := f.DocumentSymbols(doc)
		if len(syms) == 0 {
			return
		}
		out = documentSymbols(syms)
	})
	return out, err
}

func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	syms := s.Session().Finder().FindSymbol(params.Query, finder.MatchContains)
	if len(syms) == 0 {
		return nil, nil
	}
	out := make([]protocol.SymbolInformation, 0, len(syms))
	for _, sym := range syms {
		out = append(out, protocol.SymbolInformation{
			Name:     sym.Name,
			Kind:     indexedSymbolKind(sym.Kind),
			Location: lspLocation(sym.Location(), len(sym.Name)),
		})
	}
	return out, nil
}

func lspRange(r resolver.Range) protocol.Range {
	return protocol.Range{Start: position(r.Line, r.StartCol), End: position(r.Line, r.EndCol)}
}

func lspLocation(l symtab.Location, width int) protocol.Location {
	return protocol.Location{
		URI:   l.URI,
		Range: protocol.Range{Start: position(l.Line, l.Column), End: position(l.Line, l.Column+width)},
	}
}

var completionKinds = map[completion.ItemKind]protocol.CompletionItemKind{
	completion.KindFunction:  protocol.CompletionItemKindFunction,
	completion.KindMethod:    protocol.CompletionItemKindMethod,
	completion.KindVariable:  protocol.CompletionItemKindVariable,
	completion.KindParameter: protocol.CompletionItemKindVariable,
	completion.KindField:     protocol.CompletionItemKindField,
	completion.KindType:      protocol.CompletionItemKindClass,
	completion.KindNamespace: protocol.CompletionItemKindModule,
	completion.KindKeyword:   protocol.CompletionItemKindKeyword,
}

func completionItem(it completion.Item) protocol.CompletionItem {
	out := protocol.CompletionItem{Label: it.Label}
	if k, ok := completionKinds[it.Kind]; ok {
		out.Kind = &k
	}
	if it.Detail != "" {
		detail := it.Detail
		out.Detail = &detail
	}
	if it.InsertText != "" {
		insert := it.InsertText
		out.InsertText = &insert
	}
	return out
}

func declSymbolKind(k symtab.DeclKind) protocol.SymbolKind {
	switch k {
	case symtab.DeclFunction:
		return protocol.SymbolKindFunction
	case symtab.DeclType:
		return protocol.SymbolKindClass
	case symtab.DeclNamespace:
		return protocol.SymbolKindNamespace
	case symtab.DeclAlias:
		return protocol.SymbolKindTypeParameter
	default:
		return protocol.SymbolKindVariable
	}
}

func indexedSymbolKind(k symtab.SymbolKind) protocol.SymbolKind {
	switch k {
	case symtab.SymbolKindFunction:
		return protocol.SymbolKindFunction
	case symtab.SymbolKindType:
		return protocol.SymbolKindClass
	case symtab.SymbolKindNamespace:
		return protocol.SymbolKindNamespace
	case symtab.SymbolKindAlias:
		return protocol.SymbolKindTypeParameter
	default:
		return protocol.SymbolKindVariable
	}
}

func documentSymbols(syms []finder.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		sel := protocol.Range{Start: position(sym.Line, sym.Column), End: position(sym.Line, sym.Column+len(sym.Name))}
		full := sel
		if sym.EndLine > sym.Line {
			full.End = position(sym.EndLine, 1)
		}
		ds := protocol.DocumentSymbol{
			Name:           sym.Name,
			Kind:           declSymbolKind(sym.Kind),
			Range:          full,
			SelectionRange: sel,
		}
		if sym.Detail != "" {
			detail := sym.Detail
			ds.Detail = &detail
		}
		if len(sym.Children) > 0 {
			ds.Children = documentSymbols(sym.Children)
		}
		out = append(out, ds)
	}
	return out
}
