package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tender-barbarian/cpp2ls/internal/finder"
	"github.com/tender-barbarian/cpp2ls/internal/session"
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

var errNoIndex = errors.New("no project index: the server was started without a root")

// symbolResult is an indexed symbol together with the file declaring it.
type symbolResult struct {
	Name      string            `json:"name"`
	Kind      symtab.SymbolKind `json:"kind"`
	Signature string            `json:"signature,omitempty"`
	URI       string            `json:"uri"`
	Line      int               `json:"line"`
	Column    int               `json:"column"`
}

// findSymbolHandler returns a handler for the find_symbol tool.
// It searches the project index by name, with an optional kind filter
// (function, type, namespace, variable, alias).
func findSymbolHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return nil, err
		}
		if sess.Index() == nil {
			return nil, errNoIndex
		}
		kind := req.GetString("kind", "")
		match := finder.MatchMode(req.GetString("match", string(finder.MatchExact)))

		syms := sess.Finder().FindSymbol(name, match)
		results := make([]symbolResult, 0, len(syms))
		for _, s := range syms {
			if kind != "" && string(s.Kind) != kind {
				continue
			}
			results = append(results, symbolResult{
				Name:      s.Name,
				Kind:      s.Kind,
				Signature: s.Signature,
				URI:       s.FileURI,
				Line:      s.Line,
				Column:    s.Column,
			})
		}
		return jsonResult(results)
	}
}

// reindexHandler returns a handler for the reindex tool. It rescans the
// project root and persists the cache. The in-memory index is not reloaded
// from the cache, so entries of open documents survive.
func reindexHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idx := sess.Index()
		if idx == nil {
			return nil, errNoIndex
		}
		stats, err := idx.Index()
		if err != nil {
			return nil, err
		}
		if err := idx.Save(); err != nil {
			return nil, err
		}
		return jsonResult(stats)
	}
}
