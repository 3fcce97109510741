package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLengthCheck(t *testing.T) {
	handler := withLengthCheck(func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	tests := []struct {
		name        string
		args        map[string]any
		expectedErr bool
	}{
		{
			name:        "short string passes through",
			args:        map[string]any{"q": "hello"},
			expectedErr: false,
		},
		{
			name:        "string at exact limit passes through",
			args:        map[string]any{"q": strings.Repeat("x", maxInputLen)},
			expectedErr: false,
		},
		{
			name:        "string one byte over limit is rejected",
			args:        map[string]any{"q": strings.Repeat("x", maxInputLen+1)},
			expectedErr: true,
		},
		{
			name:        "non-string argument is allowed",
			args:        map[string]any{"n": 42},
			expectedErr: false,
		},
		{
			name:        "nil arguments passes through",
			args:        nil,
			expectedErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: tt.args}}
			_, err := handler(context.Background(), req)
			if tt.expectedErr {
				require.Error(t, err)
				assert.ErrorContains(t, err, "exceeds maximum length")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFileURI(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		root        string
		expected    string
		expectedErr bool
	}{
		{name: "uri passes through", file: "file:///ws/a.cpp2", root: "/other", expected: "file:///ws/a.cpp2"},
		{name: "absolute path", file: "/ws/src/a.cpp2", expected: "file:///ws/src/a.cpp2"},
		{name: "relative path joins root", file: "src/../a.cpp2", root: "/ws", expected: "file:///ws/a.cpp2"},
		{name: "relative path without root", file: "a.cpp2", expectedErr: true},
		{name: "missing", expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{}
			if tt.file != "" {
				args["file"] = tt.file
			}
			req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
			actual, err := fileURI(req, tt.root)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]any
		line, col   int
		expectedErr bool
	}{
		{name: "json numbers", args: map[string]any{"line": float64(3), "character": float64(7)}, line: 3, col: 7},
		{name: "missing character", args: map[string]any{"line": float64(3)}, expectedErr: true},
		{name: "negative", args: map[string]any{"line": float64(-1), "character": float64(0)}, expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: tt.args}}
			line, col, err := position(req)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.line, line)
			assert.Equal(t, tt.col, col)
		})
	}
}
