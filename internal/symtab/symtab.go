package symtab

// Location identifies a source position in a file. Line and Column are 0-based.
type Location struct {
	URI    string `json:"uri"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Position is a 1-based analyzer position.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// TokenKind classifies a lexical token.
type TokenKind string

const (
	TokenIdentifier TokenKind = "identifier"
	TokenKeyword    TokenKind = "keyword"
	TokenNumber     TokenKind = "number"
	TokenString     TokenKind = "string"
	TokenChar       TokenKind = "char"
	TokenPunct      TokenKind = "punct"
)

// Token is an immutable lexical unit. ID is unique within one snapshot and is
// the key of the symbol table.
type Token struct {
	ID     int       `json:"id"`
	Kind   TokenKind `json:"kind"`
	Text   string    `json:"text"`
	Pos    Position  `json:"pos"`
	Length int       `json:"length"`
}

// Contains reports whether the 1-based (line, col) falls inside the token span.
func (t *Token) Contains(line, col int) bool {
	return t.Pos.Line == line && col >= t.Pos.Column && col < t.Pos.Column+t.Length
}

// IsIdentifier reports whether the token can name a declaration.
func (t *Token) IsIdentifier() bool {
	return t.Kind == TokenIdentifier
}

// Section is a contiguous run of cpp2 code within a file.
type Section struct {
	StartLine int     `json:"start_line"`
	Tokens    []Token `json:"tokens"`
}

// DeclKind classifies a declaration.
type DeclKind string

const (
	DeclFunction  DeclKind = "function"
	DeclObject    DeclKind = "object"
	DeclType      DeclKind = "type"
	DeclNamespace DeclKind = "namespace"
	DeclAlias     DeclKind = "alias"
)

// AliasKind refines DeclAlias.
type AliasKind string

const (
	AliasNone      AliasKind = ""
	AliasType      AliasKind = "type"
	AliasNamespace AliasKind = "namespace"
	AliasObject    AliasKind = "object"
)

// NoDecl is the arena index meaning "no declaration".
const NoDecl = -1

// Declaration is one node of the declaration arena. Parent is an index into
// the owning snapshot's Decls, never a pointer.
type Declaration struct {
	Index      int       `json:"index"`
	Kind       DeclKind  `json:"kind"`
	Alias      AliasKind `json:"alias,omitempty"`
	Name       string    `json:"name,omitempty"`
	NameToken  int       `json:"name_token"` // token ID, or -1 for anonymous declarations
	Pos        Position  `json:"pos"`
	Parent     int       `json:"parent"`
	Depth      int       `json:"depth"`
	EndLine    int       `json:"end_line,omitempty"` // closing brace line, 0 when unknown
	Signature  string    `json:"signature,omitempty"`
	ObjectType string    `json:"object_type,omitempty"`
	Params     []int     `json:"params,omitempty"` // parameter declarations in order
	Parameter  bool      `json:"parameter,omitempty"`
	Member     bool      `json:"member,omitempty"`
	Return     bool      `json:"return,omitempty"`
}

// HasName reports whether the declaration is named.
func (d *Declaration) HasName() bool {
	return d.Name != ""
}

// IsGlobal reports whether the declaration has no parent declaration.
func (d *Declaration) IsGlobal() bool {
	return d.Parent == NoDecl
}

// SymbolEntry associates a token with the declaration it refers to.
type SymbolEntry struct {
	Decl      int  `json:"decl"`
	Parameter bool `json:"parameter,omitempty"`
	Member    bool `json:"member,omitempty"`
	Return    bool `json:"return,omitempty"`
}

// ErrorEntry is an analyzer-reported error at a 1-based position.
type ErrorEntry struct {
	Pos      Position `json:"pos"`
	Message  string   `json:"message"`
	Internal bool     `json:"internal,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

// Diagnostic is an error translated to 0-based coordinates.
type Diagnostic struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Internal bool   `json:"internal,omitempty"`
}

// SymbolKind classifies an indexed symbol. The string values are the
// persisted schema.
type SymbolKind string

const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindType      SymbolKind = "type"
	SymbolKindNamespace SymbolKind = "namespace"
	SymbolKindVariable  SymbolKind = "variable"
	SymbolKindAlias     SymbolKind = "alias"
)

// ParseSymbolKind maps a persisted kind string back to a SymbolKind.
// Unknown strings map to SymbolKindFunction.
func ParseSymbolKind(s string) SymbolKind {
	switch SymbolKind(s) {
	case SymbolKindType, SymbolKindNamespace, SymbolKindVariable, SymbolKindAlias:
		return SymbolKind(s)
	default:
		return SymbolKindFunction
	}
}

// IndexedSymbol is the serializable projection of a global declaration.
// Line and Column are 0-based.
type IndexedSymbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Signature string     `json:"signature,omitempty"`
	FileURI   string     `json:"-"`
	Line      int        `json:"line"`
	Column    int        `json:"column"`
}

// Location returns the symbol's declaration site.
func (s *IndexedSymbol) Location() Location {
	return Location{URI: s.FileURI, Line: s.Line, Column: s.Column}
}

// FileIndex holds the indexed symbols of one file. MTime is in nanoseconds.
type FileIndex struct {
	URI     string          `json:"uri"`
	MTime   int64           `json:"mtime"`
	Symbols []IndexedSymbol `json:"symbols"`
}
