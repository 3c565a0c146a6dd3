// Package ice selects and interprets internal consistency evaluators (ICEs):
// the validation actions merged into a package from a ruleset.
package ice

import (
	"fmt"
	"path"
	"strings"
)

// Pattern is a case-insensitive wildcard expression matched against action
// names: * matches any run of characters, ? one character, and [abc] or
// [a-z] one character from the set.
//
// Escaping follows the installer shell's wildcard rules, not path.Match:
// a backtick escapes the next character (ICE`* matches the literal name
// "ICE*"), a backslash is an ordinary character, and [^...] is a set
// containing '^' rather than a negation.
type Pattern struct {
	raw   string
	lower string
}

// Compile validates expr and returns a Pattern.
func Compile(expr string) (Pattern, error) {
	lower := strings.ToLower(translate(expr))
	if _, err := path.Match(lower, ""); err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return Pattern{raw: expr, lower: lower}, nil
}

// translate rewrites a backtick-escaped wildcard expression into path.Match
// syntax.
func translate(expr string) string {
	var b strings.Builder
	rs := []rune(expr)
	inSet := false
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; {
		case r == '`' && i+1 < len(rs):
			i++
			b.WriteRune('\\')
			b.WriteRune(rs[i])
		case r == '\\':
			b.WriteString(`\\`)
		case r == '[' && !inSet:
			inSet = true
			b.WriteRune(r)
			if i+1 < len(rs) && rs[i+1] == '^' {
				i++
				b.WriteString(`\^`)
			}
		case r == ']' && inSet:
			inSet = false
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MustCompile is like Compile but panics on an invalid expression.
func MustCompile(expr string) Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileAll compiles every expression, failing on the first invalid one.
func CompileAll(exprs []string) ([]Pattern, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]Pattern, 0, len(exprs))
	for _, e := range exprs {
		p, err := Compile(e)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether name matches the pattern, ignoring case.
func (p Pattern) Match(name string) bool {
	ok, _ := path.Match(p.lower, strings.ToLower(name))
	return ok
}

// String returns the expression as supplied.
func (p Pattern) String() string {
	return p.raw
}

func matchAny(patterns []Pattern, name string) bool {
	for _, p := range patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}
