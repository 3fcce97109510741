// Package cpp2 is a front end for cppfront "syntax 2" source. It finds the
// cpp2 code sections of a mixed file, lexes them, parses the declarations and
// statements, and resolves identifiers into an analysis snapshot.
package cpp2

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// declStart matches a line that opens a cpp2 declaration: "name:" but not "name::".
var declStart = regexp.MustCompile(`^\s*(?:(?:public|protected|private)\s+)?(?:[A-Za-z_][A-Za-z_0-9]*|operator\s*\S+?)\s*:(?:[^:]|$)`)

// span is an inclusive 1-based line range holding cpp2 code.
type span struct {
	start, end int
}

// Source is a loaded file split into lines, with its cpp2 sections located.
type Source struct {
	lines    []string
	sections []span
}

// Load reads the file at path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading source: %w", err)
	}
	return NewSource(string(data)), nil
}

// NewSource splits text into lines and locates its cpp2 sections.
func NewSource(text string) *Source {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	s := &Source{lines: lines}
	s.sections = findSections(lines)
	return s
}

// Lines returns the source lines.
func (s *Source) Lines() []string {
	return s.lines
}

// HasCpp2 reports whether the file contains any cpp2 code.
func (s *Source) HasCpp2() bool {
	return len(s.sections) > 0
}

// startsCpp2 reports whether line opens a cpp2 declaration.
func startsCpp2(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
		return false
	}
	return declStart.MatchString(line)
}

// findSections walks the file in C++1 mode, tracking brace depth, and opens a
// section at every depth-0 line that starts a cpp2 declaration. A section
// extends across consecutive declarations separated only by blank or comment
// lines.
func findSections(lines []string) []span {
	var (
		sections []span
		cpp1     scanState
	)
	for i := 0; i < len(lines); {
		if cpp1.depth == 0 && !cpp1.inComment && startsCpp2(lines[i]) {
			start := i
			end := scanDeclarations(lines, i)
			sections = append(sections, span{start: start + 1, end: end + 1})
			i = end + 1
			continue
		}
		cpp1.feed(lines[i])
		i++
	}
	return sections
}

// scanDeclarations returns the index of the last line belonging to the
// section that starts at line from.
func scanDeclarations(lines []string, from int) int {
	var st scanState
	last := from
	i := from
	for i < len(lines) {
		st.feed(lines[i])
		last = i
		i++
		if st.depth > 0 || st.inComment || !st.terminated {
			continue
		}
		// A complete declaration ended on this line; keep going only if the
		// next code line opens another cpp2 declaration.
		j := i
		for j < len(lines) && isBlankOrComment(lines[j]) {
			j++
		}
		if j < len(lines) && startsCpp2(lines[j]) {
			i = j
			st = scanState{}
			continue
		}
		break
	}
	return last
}

func isBlankOrComment(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "//")
}

// scanState is a character-level scanner that knows about comments and
// literals, enough to count braces reliably.
type scanState struct {
	depth      int
	inComment  bool
	terminated bool
}

func (st *scanState) feed(line string) {
	st.terminated = false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if st.inComment {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				st.inComment = false
				i++
			}
			continue
		}
		switch c {
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return
			}
			if i+1 < len(line) && line[i+1] == '*' {
				st.inComment = true
				i++
				continue
			}
		case '"', '\'':
			i = skipQuoted(line, i)
		case '{', '(', '[':
			st.depth++
		case '}', ')', ']':
			if st.depth > 0 {
				st.depth--
			}
			if c == '}' && st.depth == 0 {
				st.terminated = true
				continue
			}
		case ';':
			if st.depth == 0 {
				st.terminated = true
				continue
			}
		}
		if c != ' ' && c != '\t' && st.depth == 0 {
			st.terminated = false
		}
	}
}

// skipQuoted returns the index of the closing quote of the literal opened at i.
func skipQuoted(line string, i int) int {
	q := line[i]
	// digit separators such as 1'000 are not character literals
	if q == '\'' && i > 0 && isDigit(line[i-1]) {
		return i
	}
	for j := i + 1; j < len(line); j++ {
		if line[j] == '\\' {
			j++
			continue
		}
		if line[j] == q {
			return j
		}
	}
	return len(line) - 1
}
