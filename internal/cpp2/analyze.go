package cpp2

import (
	"github.com/tender-barbarian/cpp2ls/internal/symtab"
)

// Analyze lexes, parses and resolves every cpp2 section of src. The returned
// snapshot carries the errors of all stages in the order they were found.
func Analyze(src *Source) *symtab.Snapshot {
	sections, lexErrs := lex(src)
	b := newBuilder()
	for i := range sections {
		b.parseSection(&sections[i])
	}
	snap := b.finalize()
	snap.Sections = sections
	snap.Errors = append(lexErrs, b.errs...)
	return snap
}

// Frontend analyzes files on disk.
type Frontend struct{}

// AnalyzeFile loads and analyzes the file at path. It returns a nil snapshot
// and no error when the file holds no cpp2 code.
func (Frontend) AnalyzeFile(path string) (*symtab.Snapshot, error) {
	src, err := Load(path)
	if err != nil {
		return nil, err
	}
	if !src.HasCpp2() {
		return nil, nil
	}
	return Analyze(src), nil
}
