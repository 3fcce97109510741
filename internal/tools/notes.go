package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Note is free text a client attached to a project symbol.
type Note struct {
	Symbol string `json:"symbol"`
	Text   string `json:"text"`
}

// NoteStore keeps symbol notes in a JSON file next to the index cache.
type NoteStore struct {
	mu  sync.RWMutex
	dir string
}

// NewNoteStore stores notes under dir.
func NewNoteStore(dir string) *NoteStore {
	return &NoteStore{dir: dir}
}

func (ns *NoteStore) path() string {
	return filepath.Join(ns.dir, "notes.json")
}

func (ns *NoteStore) load() (map[string]string, error) {
	data, err := os.ReadFile(ns.path())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing notes: %w", err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (ns *NoteStore) save(m map[string]string) error {
	p := ns.path()
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("creating notes dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("writing notes: %w", err)
	}
	return nil
}

func (ns *NoteStore) writeHandler() server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := req.RequireString("symbol")
		if err != nil {
			return nil, err
		}
		text, err := req.RequireString("text")
		if err != nil {
			return nil, err
		}
		ns.mu.Lock()
		defer ns.mu.Unlock()
		m, err := ns.load()
		if err != nil {
			return nil, err
		}
		m[symbol] = text
		if err := ns.save(m); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText("ok"), nil
	}
}

func (ns *NoteStore) readHandler() server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := req.RequireString("symbol")
		if err != nil {
			return nil, err
		}
		ns.mu.RLock()
		defer ns.mu.RUnlock()
		m, err := ns.load()
		if err != nil {
			return nil, err
		}
		text, ok := m[symbol]
		if !ok {
			return nil, fmt.Errorf("no note for %q", symbol)
		}
		return mcp.NewToolResultText(text), nil
	}
}

func (ns *NoteStore) listHandler() server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ns.mu.RLock()
		defer ns.mu.RUnlock()
		m, err := ns.load()
		if err != nil {
			return nil, err
		}
		notes := make([]Note, 0, len(m))
		for symbol, text := range m {
			notes = append(notes, Note{Symbol: symbol, Text: text})
		}
		sort.Slice(notes, func(i, j int) bool { return notes[i].Symbol < notes[j].Symbol })
		return jsonResult(notes)
	}
}

func (ns *NoteStore) deleteHandler() server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := req.RequireString("symbol")
		if err != nil {
			return nil, err
		}
		ns.mu.Lock()
		defer ns.mu.Unlock()
		m, err := ns.load()
		if err != nil {
			return nil, err
		}
		if _, ok := m[symbol]; !ok {
			return nil, fmt.Errorf("no note for %q", symbol)
		}
		delete(m, symbol)
		if err := ns.save(m); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText("ok"), nil
	}
}
