package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/finder"
	"github.com/tender-barbarian/cpp2ls/internal/session"
)

func root(sess *session.Session) string {
	if idx := sess.Index(); idx != nil {
		return idx.Root()
	}
	return ""
}

// positionQuery resolves the file and position of req and runs fn against
// that document.
func positionQuery(sess *session.Session, req mcp.CallToolRequest, fn func(f *finder.Finder, doc *document.Document, line, col int) any) (*mcp.CallToolResult, error) {
	uri, err := fileURI(req, root(sess))
	if err != nil {
		return nil, err
	}
	line, col, err := position(req)
	if err != nil {
		return nil, err
	}
	var result any
	err = sess.Query(uri, func(doc *document.Document) {
		result = fn(sess.Finder(), doc, line, col)
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(result)
}

// hoverHandler returns a handler for the hover tool.
func hoverHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return positionQuery(sess, req, func(f *finder.Finder, doc *document.Document, line, col int) any {
			return f.Hover(doc, line, col)
		})
	}
}

// definitionHandler returns a handler for the definition tool.
func definitionHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return positionQuery(sess, req, func(f *finder.Finder, doc *document.Document, line, col int) any {
			return f.Definition(doc, line, col)
		})
	}
}

// referencesHandler returns a handler for the references tool. The
// declaration itself is included unless include_declaration is false.
func referencesHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		includeDecl := req.GetBool("include_declaration", true)
		return positionQuery(sess, req, func(f *finder.Finder, doc *document.Document, line, col int) any {
			return f.References(doc, line, col, includeDecl)
		})
	}
}

// completionHandler returns a handler for the completion tool.
func completionHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return positionQuery(sess, req, func(f *finder.Finder, doc *document.Document, line, col int) any {
			return f.Completion(doc, line, col)
		})
	}
}

// signatureHelpHandler returns a handler for the signature_help tool.
func signatureHelpHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return positionQuery(sess, req, func(f *finder.Finder, doc *document.Document, line, col int) any {
			return f.SignatureHelp(doc, line, col)
		})
	}
}

// diagnosticsHandler returns a handler for the diagnostics tool. Files that
// are not open are analyzed from disk.
func diagnosticsHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uri, err := fileURI(req, root(sess))
		if err != nil {
			return nil, err
		}
		diags, err := sess.Diagnostics(uri)
		if err != nil {
			return nil, err
		}
		return jsonResult(diags)
	}
}

// documentSymbolsHandler returns a handler for the document_symbols tool.
func documentSymbolsHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uri, err := fileURI(req, root(sess))
		if err != nil {
			return nil, err
		}
		var syms []finder.DocumentSymbol
		err = sess.Query(uri, func(doc *document.Document) {
			syms = sess.Finder().DocumentSymbols(doc)
		})
		if err != nil {
			return nil, err
		}
		return jsonResult(syms)
	}
}
