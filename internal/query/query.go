// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns a free-text filter and a category selection into a
// feed search expression. It performs no I/O.
package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedInput is returned when the text or a category is not valid
// UTF-8, or a category or root is not a plain taxonomy code.
var ErrMalformedInput = errors.New("malformed query input")

// defaultRoots is used when Build is called without root taxonomies.
var defaultRoots = []string{"cs"}

// Scope is one normalized filter scope: the combination of free text and
// categories that defines a single result stream.
type Scope struct {
	// Text is the whitespace-collapsed free-text filter.
	Text string

	// Categories are the selected taxonomy codes, deduplicated, in
	// selection order.
	Categories []string

	// Expression is the feed search expression for this scope.
	Expression string
}

// Key returns a stable fingerprint of the scope. Two scopes with equal
// keys address the same result stream.
func (s Scope) Key() string {
	return s.Expression
}

// IsZero reports whether no scope has been built yet.
func (s Scope) IsZero() bool {
	return s.Expression == ""
}

// Build normalizes text and categories and builds the search expression.
// With no categories the expression covers every item under roots (or
// "cs" when roots is empty). Empty inputs mean "no constraint".
func Build(text string, categories []string, roots ...string) (Scope, error) {
	if !utf8.ValidString(text) {
		return Scope{}, fmt.Errorf("%w: text is not valid UTF-8", ErrMalformedInput)
	}
	for _, c := range categories {
		if !utf8.ValidString(c) {
			return Scope{}, fmt.Errorf("%w: category %q is not valid UTF-8", ErrMalformedInput, c)
		}
	}

	s := Scope{
		Text:       strings.Join(strings.Fields(text), " "),
		Categories: NormalizeCategories(categories),
	}
	for _, c := range s.Categories {
		if !validCode(c) {
			return Scope{}, fmt.Errorf("%w: category %q is not a taxonomy code", ErrMalformedInput, c)
		}
	}
	for _, r := range roots {
		if r = strings.TrimSuffix(strings.TrimSpace(r), ".*"); r != "" && !validCode(r) {
			return Scope{}, fmt.Errorf("%w: root %q is not a taxonomy code", ErrMalformedInput, r)
		}
	}

	var expr string
	if len(s.Categories) > 0 {
		clauses := make([]string, len(s.Categories))
		for i, c := range s.Categories {
			clauses[i] = "cat:" + c
		}
		expr = strings.Join(clauses, " OR ")
		if s.Text != "" && len(clauses) > 1 {
			expr = "(" + expr + ")"
		}
	} else {
		expr = rootClause(roots)
	}

	if s.Text != "" {
		expr += ` AND ti:"` + escape(s.Text) + `"`
	}
	s.Expression = expr
	return s, nil
}

// NormalizeCategories trims codes, maps friendly tags to taxonomy codes,
// and removes empties and duplicates while keeping selection order.
func NormalizeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	var out []string
	for _, c := range categories {
		c = ResolveTag(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// rootClause returns the wildcard clause for the supported root archives.
func rootClause(roots []string) string {
	var clauses []string
	seen := make(map[string]bool)
	for _, r := range roots {
		r = strings.TrimSuffix(strings.TrimSpace(r), ".*")
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		clauses = append(clauses, "cat:"+r+".*")
	}
	if len(clauses) == 0 {
		return rootClause(defaultRoots)
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// validCode reports whether c looks like a taxonomy code such as "cs.LG"
// or "cond-mat.stat-mech". Anything else could add clauses to the
// expression.
func validCode(c string) bool {
	if c == "" {
		return false
	}
	for _, r := range c {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// escape makes text safe inside a double-quoted feed phrase.
func escape(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(text)
}
