package cpp2

import (
	"fmt"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// Keywords are the cpp2 words lexed as TokenKeyword.
var Keywords = map[string]bool{
	"if": true, "else": true, "while": true, "for": true, "do": true, "next": true,
	"return": true, "break": true, "continue": true,
	"in": true, "out": true, "inout": true, "copy": true, "move": true, "forward": true,
	"type": true, "namespace": true, "true": true, "false": true, "nullptr": true,
	"this": true, "that": true, "inspect": true, "is": true, "as": true, "throws": true,
	"pre": true, "post": true, "assert": true,
	"public": true, "protected": true, "private": true,
	"virtual": true, "override": true, "final": true, "implicit": true,
}

var passingKeywords = map[string]bool{
	"in": true, "out": true, "inout": true, "copy": true, "move": true, "forward": true,
}

// punctuators are matched longest first.
var punctuators = []string{
	"...", "..", "::", "->", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"{", "}", "(", ")", "[", "]", "<", ">", ";", ":", ",", ".", "=",
	"+", "-", "*", "/", "%", "&", "|", "!", "^", "~", "?", "@", "$", "#",
}

// lexer turns the lines of one section into tokens.
type lexer struct {
	lines     []string
	nextID    int
	errs      []symtab.ErrorEntry
	inComment bool
}

// lex tokenizes every section of src. Token IDs are unique across sections.
func lex(src *Source) ([]symtab.Section, []symtab.ErrorEntry) {
	lx := &lexer{lines: src.lines}
	out := make([]symtab.Section, 0, len(src.sections))
	for _, sp := range src.sections {
		lx.inComment = false
		toks := lx.lexRange(sp.start, sp.end)
		out = append(out, symtab.Section{StartLine: sp.start, Tokens: toks})
	}
	return out, lx.errs
}

func (lx *lexer) lexRange(start, end int) []symtab.Token {
	var toks []symtab.Token
	for ln := start; ln <= end && ln <= len(lx.lines); ln++ {
		toks = lx.lexLine(ln, lx.lines[ln-1], toks)
	}
	return toks
}

func (lx *lexer) emit(toks []symtab.Token, kind symtab.TokenKind, text string, line, col int) []symtab.Token {
	t := symtab.Token{
		ID:     lx.nextID,
		Kind:   kind,
		Text:   text,
		Pos:    symtab.Position{Line: line, Column: col},
		Length: len(text),
	}
	lx.nextID++
	return append(toks, t)
}

func (lx *lexer) errorf(line, col int, format string, args ...any) {
	lx.errs = append(lx.errs, symtab.ErrorEntry{
		Pos:     symtab.Position{Line: line, Column: col},
		Message: fmt.Sprintf(format, args...),
	})
}

func (lx *lexer) lexLine(ln int, line string, toks []symtab.Token) []symtab.Token {
	i := 0
	for i < len(line) {
		c := line[i]
		col := i + 1

		if lx.inComment {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				lx.inComment = false
				i += 2
				continue
			}
			i++
			continue
		}

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return toks
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			lx.inComment = true
			i += 2
		case isIdentStart(c):
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			word := line[i:j]
			kind := symtab.TokenIdentifier
			if Keywords[word] {
				kind = symtab.TokenKeyword
			}
			toks = lx.emit(toks, kind, word, ln, col)
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(line) && isDigit(line[i+1])):
			j := scanNumber(line, i)
			toks = lx.emit(toks, symtab.TokenNumber, line[i:j], ln, col)
			i = j
		case c == '"' || c == '\'':
			j := skipQuoted(line, i)
			if j >= len(line) || line[j] != c || j == i {
				lx.errorf(ln, col, "unterminated %s literal", literalName(c))
				j = len(line) - 1
			}
			kind := symtab.TokenString
			if c == '\'' {
				kind = symtab.TokenChar
			}
			toks = lx.emit(toks, kind, line[i:j+1], ln, col)
			i = j + 1
		default:
			p := matchPunct(line[i:])
			if p == "" {
				lx.errorf(ln, col, "unexpected character '%c'", c)
				i++
				continue
			}
			toks = lx.emit(toks, symtab.TokenPunct, p, ln, col)
			i += len(p)
		}
	}
	return toks
}

func literalName(q byte) string {
	if q == '\'' {
		return "character"
	}
	return "string"
}

func matchPunct(s string) string {
	for _, p := range punctuators {
		if len(s) >= len(p) && s[:len(p)] == p {
			return p
		}
	}
	return ""
}

func scanNumber(line string, i int) int {
	j := i
	for j < len(line) {
		c := line[j]
		switch {
		case isIdentPart(c), c == '.':
			// stop at the ".." range operator
			if c == '.' && j+1 < len(line) && line[j+1] == '.' {
				return j
			}
			j++
		case c == '\'' && j+1 < len(line) && isDigit(line[j+1]):
			j++
		default:
			return j
		}
	}
	return j
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
