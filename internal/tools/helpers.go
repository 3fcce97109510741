package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tender-barbarian/cpp2ls/internal/indexer"
)

// maxInputLen bounds every string argument a tool accepts.
const maxInputLen = 4096

// withLengthCheck rejects calls whose string arguments exceed maxInputLen.
func withLengthCheck(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		for name, v := range req.GetArguments() {
			s, ok := v.(string)
			if ok && len(s) > maxInputLen {
				return nil, fmt.Errorf("argument %q exceeds maximum length of %d bytes", name, maxInputLen)
			}
		}
		return next(ctx, req)
	}
}

// jsonResult serialises v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// fileURI reads the required "file" argument. It accepts a file:// URI, an
// absolute path, or a path relative to root.
func fileURI(req mcp.CallToolRequest, root string) (string, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return "", err
	}
	if strings.Contains(file, "://") {
		return file, nil
	}
	if !filepath.IsAbs(file) {
		if root == "" {
			return "", fmt.Errorf("relative path %q without a project root", file)
		}
		file = filepath.Join(root, file)
	}
	return indexer.PathToURI(filepath.Clean(file)), nil
}

// position reads the 0-based "line" and "character" arguments.
func position(req mcp.CallToolRequest) (line, col int, err error) {
	line, err = req.RequireInt("line")
	if err != nil {
		return 0, 0, err
	}
	col, err = req.RequireInt("character")
	if err != nil {
		return 0, 0, err
	}
	if line < 0 || col < 0 {
		return 0, 0, fmt.Errorf("negative position %d:%d", line, col)
	}
	return line, col, nil
}
