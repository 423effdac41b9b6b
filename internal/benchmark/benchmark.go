// Package benchmark defines the Florida B.E.S.T. benchmark domain types
// and the identifier normalization and matching logic.
package benchmark

import (
	"regexp"
	"strings"
)

// DefaultSubject is assumed when the source data carries no subject.
const DefaultSubject = "Mathematics"

// Benchmark is a single standard, immutable after ingestion.
type Benchmark struct {
	ID         string
	Definition string
	GradeLevel string
	Subject    string
	CPALMSURL  string
}

// idPattern is the benchmark code grammar: two uppercase letters, a
// grade token (1-3 digits, a bare letter like K, or K followed by 1-2
// digits), 1-3 uppercase strand letters, then domain and benchmark
// numbers. All dot separated, e.g. MA.K.NSO.1.1.
var idPattern = regexp.MustCompile(`^[A-Z]{2}\.(?:\d{1,3}|K\d{1,2}|[A-Z])\.[A-Z]{1,3}\.\d+\.\d+$`)

// separators maps the accepted alternate separators onto dots.
var separators = strings.NewReplacer("-", ".", "_", ".", " ", ".")

// Normalize canonicalizes free-text input into the benchmark code
// grammar: trim, uppercase, and dash/underscore/space separators become
// dots. Returns false when the result does not satisfy the grammar.
// Malformed input is an expected case, never a panic.
func Normalize(raw string) (string, bool) {
	id := separators.Replace(strings.ToUpper(strings.TrimSpace(raw)))
	if !idPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// ValidID reports whether id is already in canonical grammar form.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
