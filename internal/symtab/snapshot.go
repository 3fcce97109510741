package symtab

// Snapshot is the immutable result of one analysis run over a document.
type Snapshot struct {
	Sections []Section           `json:"sections"`
	Decls    []Declaration       `json:"decls"`
	Symbols  map[int]SymbolEntry `json:"symbols"`
	Errors   []ErrorEntry        `json:"errors"`
}

// Valid reports whether the analysis produced no errors.
func (s *Snapshot) Valid() bool {
	return s != nil && len(s.Errors) == 0
}

// DeclCount returns the number of resolved declarations.
func (s *Snapshot) DeclCount() int {
	if s == nil {
		return 0
	}
	return len(s.Decls)
}

// Empty reports whether the snapshot has no resolved declarations.
func (s *Snapshot) Empty() bool {
	return s.DeclCount() == 0
}

// Decl returns the declaration at index i, or nil when i is out of range.
func (s *Snapshot) Decl(i int) *Declaration {
	if s == nil || i < 0 || i >= len(s.Decls) {
		return nil
	}
	return &s.Decls[i]
}

// Parent returns d's parent declaration, or nil for globals.
func (s *Snapshot) Parent(d *Declaration) *Declaration {
	if d == nil {
		return nil
	}
	return s.Decl(d.Parent)
}

// NearestFunction walks d's parent links and returns the closest ancestor
// that is a function, or nil.
func (s *Snapshot) NearestFunction(d *Declaration) *Declaration {
	for p := s.Parent(d); p != nil; p = s.Parent(p) {
		if p.Kind == DeclFunction {
			return p
		}
	}
	return nil
}

// EachToken calls fn for every token in every section, in source order, until
// fn returns false.
func (s *Snapshot) EachToken(fn func(*Token) bool) {
	if s == nil {
		return
	}
	for i := range s.Sections {
		toks := s.Sections[i].Tokens
		for j := range toks {
			if !fn(&toks[j]) {
				return
			}
		}
	}
}

// Token returns the token with the given ID.
func (s *Snapshot) Token(id int) *Token {
	var found *Token
	s.EachToken(func(t *Token) bool {
		if t.ID == id {
			found = t
			return false
		}
		return true
	})
	return found
}

// TokenCount returns the number of tokens across all sections.
func (s *Snapshot) TokenCount() int {
	n := 0
	if s == nil {
		return n
	}
	for i := range s.Sections {
		n += len(s.Sections[i].Tokens)
	}
	return n
}
