// Package markup implements the post-emission bounds-check rewrite: every
// indexed reference to a parameter or entity array member in the emitted
// C++ is wrapped in a runtime bounds-check call carrying the dimension
// size, the 0-based dimension ordinal, the array name, and the source
// location of the reference itself.
package markup

import (
	"fmt"
	"regexp"
	"strings"
)

// ArrayShape describes one indexable symbol (a parameter or an entity
// array member) by name and per-dimension size, in declaration order.
// Rank-0 (scalar) symbols carry no shape and are never markup candidates.
type ArrayShape struct {
	Name     string
	DimSizes []int
}

// Pattern is one compiled search/replace pair, equivalent to one entry of
// the original compiler's pattern map: a regex matching Name followed by
// one bracketed index expression per dimension, and its bounds-checked
// replacement text.
type Pattern struct {
	Name    string
	Search  *regexp.Regexp
	Replace string
}

// ShapeConflictError reports that the same array-member name was declared
// with two different shapes in different entities, which the original
// compiler treats as fatal ("turn off index_errors").
type ShapeConflictError struct {
	Name string
}

func (e *ShapeConflictError) Error() string {
	return fmt.Sprintf("markup: multiple incommensurable array members named %q; shapes must match across entities", e.Name)
}

// BuildPatterns compiles one Pattern per shape with rank > 0. When two
// shapes share a Name, their DimSizes must be identical (the same
// indexing helper, and hence the same bounds, applies wherever the name
// is referenced) or BuildPatterns returns a ShapeConflictError.
func BuildPatterns(shapes []ArrayShape) ([]Pattern, error) {
	bySearch := map[string]string{} // search regex text -> name, for order-independent dedup detection
	seen := map[string][]int{}      // name -> first-seen shape, for the cross-entity consistency check

	var patterns []Pattern
	for _, s := range shapes {
		if len(s.DimSizes) == 0 {
			continue // scalar: no index checking
		}
		if prior, ok := seen[s.Name]; ok && !sameShape(prior, s.DimSizes) {
			return nil, &ShapeConflictError{Name: s.Name}
		}
		seen[s.Name] = s.DimSizes

		search, replace := buildPattern(s)
		if existingName, ok := bySearch[search]; ok && existingName != s.Name {
			// Different names producing the same search text cannot happen
			// (the name is itself part of the search), kept only as a guard
			// against a future regex-construction bug.
			return nil, fmt.Errorf("markup: internal error: pattern collision between %q and %q", existingName, s.Name)
		}
		bySearch[search] = s.Name

		re, err := regexp.Compile(search)
		if err != nil {
			return nil, fmt.Errorf("markup: compiling bounds-check pattern for %q: %w", s.Name, err)
		}
		patterns = append(patterns, Pattern{Name: s.Name, Search: re, Replace: replace})
	}
	return patterns, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildPattern renders the search regex and bounds-check replacement text
// for one array shape, mirroring the original compiler's group numbering:
// group 1 is the symbol name, then a (whitespace, index-expression) group
// pair per dimension.
func buildPattern(s ArrayShape) (search, replace string) {
	var srch, repl strings.Builder
	srch.WriteString(`(\b` + regexp.QuoteMeta(s.Name) + `\b)`)
	repl.WriteString("${1}")

	grp := 2
	for dim, size := range s.DimSizes {
		srch.WriteString(`(\s*)\[([^\[\]]+)\]`)
		repl.WriteString(fmt.Sprintf(`${%d}[om_check_index(${%d},%d,%d,"${1}",__FILE__,__LINE__)]`,
			grp, grp+1, size, dim))
		grp += 2
	}
	return srch.String(), repl.String()
}

// Apply rewrites code by running every pattern's regex/replace in turn,
// accumulating matches the same way the original compiler folds its whole
// pattern map over the source text in one pass per pattern.
func Apply(code string, patterns []Pattern) string {
	out := code
	for _, p := range patterns {
		out = p.Search.ReplaceAllString(out, p.Replace)
	}
	return out
}
