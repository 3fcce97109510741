package completion

import (
	"strings"

	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// Call is the innermost unclosed call before the cursor.
type Call struct {
	Name            *symtab.Token
	ActiveParameter int
}

// CallAt scans tokens leftward from the end, tracking parenthesis depth,
// until it finds an unmatched '(' preceded by an identifier. The active
// parameter is the number of top-level commas after that '('.
func CallAt(tokens []*symtab.Token) (Call, bool) {
	depth, commas := 0, 0
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		if t.Kind != symtab.TokenPunct {
			continue
		}
		switch t.Text {
		case ")":
			depth++
		case "(":
			if depth > 0 {
				depth--
				continue
			}
			if i == 0 || !tokens[i-1].IsIdentifier() {
				return Call{}, false
			}
			return Call{Name: tokens[i-1], ActiveParameter: commas}, true
		case ",":
			if depth == 0 {
				commas++
			}
		}
	}
	return Call{}, false
}

// Signature is a function signature with its parameter labels.
type Signature struct {
	Label           string   `json:"label"`
	Parameters      []string `json:"parameters"`
	ActiveParameter int      `json:"active_parameter"`
}

// NewSignature splits the parameter list out of a "name: (params) -> ret"
// label. Parameter labels are substrings of label.
func NewSignature(label string, active int) *Signature {
	return &Signature{Label: label, Parameters: splitParams(label), ActiveParameter: active}
}

func splitParams(label string) []string {
	start := strings.Index(label, "(")
	if start < 0 {
		return nil
	}
	var (
		params []string
		depth  int
		from   = start + 1
	)
	for i := start; i < len(label); i++ {
		switch label[i] {
		case '(', '<', '[':
			depth++
		case ')', '>', ']':
			depth--
			if depth == 0 {
				if p := strings.TrimSpace(label[from:i]); p != "" {
					params = append(params, p)
				}
				return params
			}
		case ',':
			if depth == 1 {
				params = append(params, strings.TrimSpace(label[from:i]))
				from = i + 1
			}
		}
	}
	return params
}
