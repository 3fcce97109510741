package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tender-barbarian/cpp2ls/internal/session"
)

const (
	fileDesc      = "File as a file:// URI, an absolute path, or a path relative to the project root"
	lineDesc      = "0-based line"
	characterDesc = "0-based byte column"
)

func positionTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("file", mcp.Required(), mcp.Description(fileDesc)),
		mcp.WithNumber("line", mcp.Required(), mcp.Description(lineDesc)),
		mcp.WithNumber("character", mcp.Required(), mcp.Description(characterDesc)),
	}, opts...)
	return mcp.NewTool(name, opts...)
}

// Register wires the cpp2 query tools to s. Each tool delegates to sess, so
// open documents are seen with their unsaved text and other files are read
// from disk. notes may be nil, which leaves out the note tools.
func Register(s *server.MCPServer, sess *session.Session, notes *NoteStore) {
	s.AddTool(mcp.NewTool("find_symbol",
		mcp.WithDescription("Searches the project index for global symbols by name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name")),
		mcp.WithString("kind", mcp.Description("Filter by kind: function, type, namespace, variable, alias (empty = all)")),
		mcp.WithString("match", mcp.Description(`Match mode: "exact" (default), "prefix", or "contains"`)),
	), withLengthCheck(findSymbolHandler(sess)))

	s.AddTool(positionTool("hover",
		"Describes the symbol under the position as markdown."),
		withLengthCheck(hoverHandler(sess)))

	s.AddTool(positionTool("definition",
		"Returns the declaration site of the symbol under the position."),
		withLengthCheck(definitionHandler(sess)))

	s.AddTool(positionTool("references",
		"Returns the uses of the symbol under the position within its file.",
		mcp.WithBoolean("include_declaration", mcp.Description("Include the declaration itself (default: true)")),
	), withLengthCheck(referencesHandler(sess)))

	s.AddTool(positionTool("completion",
		"Lists completion candidates at the position, including members after a dot."),
		withLengthCheck(completionHandler(sess)))

	s.AddTool(positionTool("signature_help",
		"Returns the signature of the call enclosing the position and the active parameter."),
		withLengthCheck(signatureHelpHandler(sess)))

	s.AddTool(mcp.NewTool("diagnostics",
		mcp.WithDescription("Returns the parse and semantic errors of a file."),
		mcp.WithString("file", mcp.Required(), mcp.Description(fileDesc)),
	), withLengthCheck(diagnosticsHandler(sess)))

	s.AddTool(mcp.NewTool("document_symbols",
		mcp.WithDescription("Returns the declaration outline of a file."),
		mcp.WithString("file", mcp.Required(), mcp.Description(fileDesc)),
	), withLengthCheck(documentSymbolsHandler(sess)))

	s.AddTool(mcp.NewTool("reindex",
		mcp.WithDescription("Rescans the project root and refreshes the on-disk index cache."),
	), withLengthCheck(reindexHandler(sess)))

	if notes == nil {
		return
	}

	s.AddTool(mcp.NewTool("write_note",
		mcp.WithDescription("Attaches a note to a symbol name, replacing any previous note."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
	), withLengthCheck(notes.writeHandler()))

	s.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Returns the note attached to a symbol name."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol name")),
	), withLengthCheck(notes.readHandler()))

	s.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("Lists every symbol note."),
	), withLengthCheck(notes.listHandler()))

	s.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Removes the note attached to a symbol name."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol name")),
	), withLengthCheck(notes.deleteHandler()))
}
